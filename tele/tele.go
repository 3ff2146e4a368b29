package tele

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/spq"

	"github.com/hrpv/neeytele/log2"
)

var retryDelay = 5 * time.Second

type tele struct {
	config    Config
	log       *log2.Log
	transport Transporter
	q         *spq.Queue
	stopCh    chan struct{}
}

func New() Teler { return &tele{} }

// test code sets the transport
func NewWithTransporter(trans Transporter) Teler { return &tele{transport: trans} }

func (self *tele) Init(ctx context.Context, log *log2.Log, conf Config) error {
	self.config = conf
	self.log = log
	if self.config.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	if self.config.TopicPrefix == "" {
		self.config.TopicPrefix = DefaultTopicPrefix
	}
	self.stopCh = make(chan struct{})

	if self.transport == nil { // production path
		self.transport = &transportMqtt{}
	}
	if !self.config.Enabled {
		return nil
	}
	if err := self.transport.Init(ctx, log, self.config); err != nil {
		return errors.Annotate(err, "tele transport")
	}

	if self.config.PersistPath == "" {
		panic("code error must set tele.persist_path")
	}
	var err error
	self.q, err = spq.Open(self.config.PersistPath)
	if err != nil {
		return errors.Annotate(err, "tele queue")
	}

	go self.qworker()
	return nil
}

func (self *tele) Close() {
	close(self.stopCh)
	if self.q != nil {
		self.q.Close()
	}
	if self.transport != nil {
		self.transport.Close()
	}
}

// Report queues the full JSON document for at-least-once delivery and
// fires the scalar topics immediately, losing scalars is fine.
func (self *tele) Report(r *Report) error {
	if !self.config.Enabled {
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Annotatef(err, "tele report marshal")
	}
	if err = self.q.Push(payload); err != nil {
		return errors.Annotate(err, "tele report push")
	}
	self.sendScalars(r)
	return nil
}

func (self *tele) sendScalars(r *Report) {
	b := &r.Battery
	self.transport.SendScalar("total_voltage", formatFloat(b.TotalVoltage))
	self.transport.SendScalar("delta_voltage", formatFloat(b.DeltaVoltage))
	self.transport.SendScalar("temperature", formatFloat(b.Temperature1))
	balancing := "OFF"
	if b.Balancing {
		balancing = "ON"
	}
	self.transport.SendScalar("balancing", balancing)
	for _, c := range r.Cells {
		self.transport.SendScalar(fmt.Sprintf("cell_%d/voltage", c.Cell), formatFloat(c.Voltage))
	}
}

func (self *tele) qworker() {
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			// success path
			b := box.Bytes()
			if del := self.qhandle(b); del {
				if err = self.q.Delete(box); err != nil {
					self.log.Errorf("tele qhandle Delete b=%x err=%v", b, err)
				}
			} else {
				if err = self.q.DeletePush(box); err != nil {
					self.log.Errorf("tele qhandle DeletePush b=%x err=%v", b, err)
				}
				// broker is down or slow, no point hammering the queue
				select {
				case <-self.stopCh:
					return
				case <-time.After(retryDelay):
				}
			}

		case spq.ErrClosed:
			select {
			case <-self.stopCh: // success path
			default:
				self.log.Errorf("CRITICAL tele spq closed unexpectedly")
			}
			return

		default:
			self.log.Errorf("CRITICAL tele spq err=%v", err)
			// here will go yet unhandled shit like disk full
		}
	}
}

func (self *tele) qhandle(b []byte) bool {
	if len(b) == 0 {
		self.log.Errorf("tele spq peek=empty")
		// what else can we do?
		return true
	}
	return self.transport.SendReport(b)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
