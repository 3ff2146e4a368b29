// Package poll drives request/response sessions against the balancer and
// the periodic polling loop on top of them.
//
// The device closes the BLE link after every reply, so one session is one
// connect, one request, one response, one teardown. The session, not the
// connection, is the unit of retry.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"

	"github.com/hrpv/neeytele/ble"
	"github.com/hrpv/neeytele/heltec"
	"github.com/hrpv/neeytele/log2"
)

type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateAwaitingResponse
	StateCompleted
	StateTimedOut
	StateDisconnectedEarly
	StateConnectFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed-out"
	case StateDisconnectedEarly:
		return "disconnected-early"
	case StateConnectFailed:
		return "connect-failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

const DefaultResponseTimeout = 10 * time.Second

type Request struct {
	Function heltec.Function
	Command  heltec.Command
	Register byte
	Value    uint32

	// Timeout bounds AwaitingResponse, DefaultResponseTimeout when zero.
	Timeout time.Duration

	// Accept decides when the session is complete. Default: first record
	// whose kind matches Command.
	Accept func(heltec.Record) bool
}

// Orchestrator owns one request/response cycle at a time against a single
// device address. Not safe for concurrent Request calls, which the polling
// model never makes.
type Orchestrator struct {
	Addr string
	Per  ble.Peripheral
	Log  *log2.Log
}

// Request runs one full session. The returned state is the session outcome
// (StateCompleted, StateTimedOut, StateDisconnectedEarly or
// StateConnectFailed); transport resources are released on every path
// before returning.
func (self *Orchestrator) Request(ctx context.Context, req Request) (heltec.Record, State, error) {
	accept := req.Accept
	if accept == nil {
		accept = func(r heltec.Record) bool { return r.Kind() == req.Command }
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = DefaultResponseTimeout
	}

	self.Log.Debugf("session connecting addr=%s command=%s", self.Addr, req.Command)
	sess, err := self.Per.Connect(ctx, self.Addr)
	if err != nil {
		return nil, StateConnectFailed, errors.Annotatef(err, "session command=%s", req.Command)
	}
	defer func() {
		// unsubscribe errors are not worth failing a session over
		if err := sess.Unsubscribe(); err != nil {
			self.Log.Debugf("session unsubscribe err=%v", err)
		}
		if err := sess.Close(); err != nil {
			self.Log.Debugf("session close err=%v", err)
		}
	}()

	asm := heltec.NewAssembler(self.Log)
	done := make(chan heltec.Record, 1)
	err = sess.Subscribe(func(chunk []byte) {
		frame := asm.Feed(chunk)
		if frame == nil {
			return
		}
		rec, err := heltec.Decode(frame)
		if err != nil {
			self.Log.Errorf("session decode err=%v", err)
			return
		}
		if u, ok := rec.(*heltec.Unrecognized); ok {
			self.Log.Debugf("session dropped unknown frame type=%02x", u.Type)
			return
		}
		if accept(rec) {
			select {
			case done <- rec:
			default:
			}
		}
	})
	if err != nil {
		return nil, StateConnectFailed, errors.Annotatef(err, "session command=%s", req.Command)
	}

	if err = sess.Write(heltec.BuildCommand(req.Function, req.Command, req.Register, req.Value)); err != nil {
		return nil, StateConnectFailed, errors.Annotatef(err, "session command=%s", req.Command)
	}

	// awaiting response
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case rec := <-done:
		return rec, StateCompleted, nil

	case <-timer.C:
		return nil, StateTimedOut, errors.Timeoutf("session command=%s response", req.Command)

	case <-sess.Disconnected():
		// expected device behavior right after a reply: the frame may have
		// been accepted just before we observed the drop
		select {
		case rec := <-done:
			return rec, StateCompleted, nil
		default:
		}
		return nil, StateDisconnectedEarly, errors.Errorf("session command=%s device disconnected before reply", req.Command)

	case <-ctx.Done():
		return nil, StateTimedOut, errors.Annotatef(ctx.Err(), "session command=%s", req.Command)
	}
}
