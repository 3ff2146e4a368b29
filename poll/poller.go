package poll

import (
	"context"
	"math"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/hrpv/neeytele/heltec"
	"github.com/hrpv/neeytele/helpers"
	"github.com/hrpv/neeytele/log2"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultSettle   = 2 * time.Second
)

var errStopping = errors.New("poller stopping")

// Sink receives each successful cycle. DeviceInfo is the cached copy, same
// pointer across cycles.
type Sink func(di *heltec.DeviceInfo, ci *heltec.CellInfo)

type PollerConfig struct {
	Interval       time.Duration // between cell info reads, DefaultInterval when zero
	Settle         time.Duration // pause after device info before the next session
	RequestTimeout time.Duration
}

// Poller owns the periodic read loop: device info once, then cell info
// every interval, with exponential backoff on failed cycles.
type Poller struct {
	orch  *Orchestrator
	sink  Sink
	log   *log2.Log
	alive *alive.Alive
	bo    helpers.Backoff

	interval time.Duration
	settle   time.Duration
	timeout  time.Duration

	devInfo *heltec.DeviceInfo
}

func NewPoller(orch *Orchestrator, conf PollerConfig, sink Sink, log *log2.Log) *Poller {
	self := &Poller{
		orch:     orch,
		sink:     sink,
		log:      log,
		alive:    alive.NewAlive(),
		interval: conf.Interval,
		settle:   conf.Settle,
		timeout:  conf.RequestTimeout,
	}
	if self.interval == 0 {
		self.interval = DefaultInterval
	}
	if self.settle == 0 {
		self.settle = DefaultSettle
	}
	self.bo = helpers.Backoff{
		Min: 1 * time.Second,
		Max: 2 * self.interval,
		K:   2,
		Log: log.Debugf,
	}
	return self
}

func (self *Poller) Alive() *alive.Alive { return self.alive }

// DeviceInfo returns the cached identity record, nil until the first
// successful read.
func (self *Poller) DeviceInfo() *heltec.DeviceInfo { return self.devInfo }

// Cycle performs one poll: device info if not yet cached, then cell info.
func (self *Poller) Cycle(ctx context.Context) (*heltec.CellInfo, error) {
	if self.devInfo == nil {
		rec, st, err := self.orch.Request(ctx, Request{
			Function: heltec.FunctionRead,
			Command:  heltec.CommandDeviceInfo,
			Timeout:  self.timeout,
		})
		if err != nil {
			return nil, errors.Annotatef(err, "device info state=%s", st)
		}
		di, ok := rec.(*heltec.DeviceInfo)
		if !ok {
			return nil, errors.Errorf("code error device info record=%#v", rec)
		}
		self.devInfo = di
		self.log.Infof("device model=%s hw=%s sw=%s power-ons=%d runtime=%s",
			di.Model, di.HardwareVersion, di.SoftwareVersion, di.PowerOnCount, di.TotalRuntimeString())
		// the device needs a moment between sessions after it drops the link
		if !helpers.SleepAlive(self.alive, self.settle) {
			return nil, errStopping
		}
	}

	rec, st, err := self.orch.Request(ctx, Request{
		Function: heltec.FunctionRead,
		Command:  heltec.CommandCellInfo,
		Timeout:  self.timeout,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "cell info state=%s", st)
	}
	ci, ok := rec.(*heltec.CellInfo)
	if !ok {
		return nil, errors.Errorf("code error cell info record=%#v", rec)
	}
	return ci, nil
}

// Run polls until Alive().Stop(). Cycle errors are logged and backed off,
// never fatal: the device regularly refuses connections while balancing.
func (self *Poller) Run() {
	if !self.alive.Add(1) {
		return
	}
	defer self.alive.Done()

	for self.alive.IsRunning() {
		if delay := self.bo.DelayBefore(); delay > 0 {
			if !helpers.SleepAlive(self.alive, delay) {
				return
			}
		}

		ci, err := self.Cycle(context.Background())
		if errors.Cause(err) == errStopping {
			return
		}
		self.bo.Update(err == nil)
		if err != nil {
			self.log.Errorf("poll cycle err=%v", err)
		} else {
			self.logCycle(ci)
			if self.sink != nil {
				self.sink(self.devInfo, ci)
			}
		}

		if !helpers.SleepAlive(self.alive, self.interval) {
			return
		}
	}
}

func (self *Poller) logCycle(ci *heltec.CellInfo) {
	if math.IsNaN(float64(ci.AverageVoltage)) {
		self.log.Infof("cycle ok cells=0 (all idle)")
		return
	}
	self.log.Infof("cycle ok total=%.2fV avg=%.3fV delta=%.3fV min=#%d max=#%d balancing=%t status=%s",
		ci.TotalVoltage, ci.AverageVoltage, ci.DeltaVoltage,
		ci.MinVoltageCell, ci.MaxVoltageCell, ci.Balancing, ci.OperationStatus)
}
