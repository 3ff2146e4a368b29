package ble

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"tinygo.org/x/bluetooth"

	"github.com/hrpv/neeytele/log2"
)

const defaultConnectTimeout = 15 * time.Second

var (
	serviceUUID        = bluetooth.New16BitUUID(0xFFE0)
	characteristicUUID = bluetooth.New16BitUUID(0xFFE1)
)

// Bluez implements Peripheral on top of tinygo.org/x/bluetooth
// (BlueZ over D-Bus on Linux).
type Bluez struct {
	log     *log2.Log
	adapter *bluetooth.Adapter

	mu      sync.Mutex
	enabled bool
	current *bluezSession
}

func NewBluez(log *log2.Log) *Bluez {
	return &Bluez{
		log:     log,
		adapter: bluetooth.DefaultAdapter,
	}
}

func (self *Bluez) enable() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.enabled {
		return nil
	}
	if err := self.adapter.Enable(); err != nil {
		return errors.Annotate(err, "ble adapter enable")
	}
	self.adapter.SetConnectHandler(self.onConnectEvent)
	self.enabled = true
	return nil
}

func (self *Bluez) Connect(ctx context.Context, addr string) (Session, error) {
	if err := self.enable(); err != nil {
		return nil, err
	}
	mac, err := bluetooth.ParseMAC(addr)
	if err != nil {
		return nil, errors.Annotatef(err, "ble address=%s", addr)
	}

	timeout := defaultConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 && d < timeout {
			timeout = d
		}
	}
	params := bluetooth.ConnectionParams{
		ConnectionTimeout: bluetooth.NewDuration(timeout),
	}

	dev, err := self.adapter.Connect(bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, params)
	if err != nil {
		return nil, errors.Annotatef(err, "ble connect addr=%s", addr)
	}

	sess := &bluezSession{
		per:          self,
		addr:         addr,
		dev:          dev,
		log:          self.log,
		disconnected: make(chan struct{}),
	}
	// register before service discovery, the device may drop us mid-way
	self.setCurrent(sess)

	svcs, err := dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err == nil && len(svcs) == 0 {
		err = errors.NotFoundf("service %s", ServiceUUID)
	}
	if err != nil {
		_ = sess.Close()
		return nil, errors.Annotatef(err, "ble discover service addr=%s", addr)
	}
	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{characteristicUUID})
	if err == nil && len(chars) == 0 {
		err = errors.NotFoundf("characteristic %s", CharacteristicUUID)
	}
	if err != nil {
		_ = sess.Close()
		return nil, errors.Annotatef(err, "ble discover characteristic addr=%s", addr)
	}
	sess.char = chars[0]
	return sess, nil
}

func (self *Bluez) setCurrent(s *bluezSession) {
	self.mu.Lock()
	self.current = s
	self.mu.Unlock()
}

func (self *Bluez) clearCurrent(s *bluezSession) {
	self.mu.Lock()
	if self.current == s {
		self.current = nil
	}
	self.mu.Unlock()
}

func (self *Bluez) onConnectEvent(dev bluetooth.Device, connected bool) {
	if connected {
		return
	}
	self.mu.Lock()
	cur := self.current
	self.mu.Unlock()
	if cur != nil && strings.EqualFold(dev.Address.String(), cur.addr) {
		self.log.Debugf("ble device %s dropped the link", cur.addr)
		cur.markDisconnected()
	}
}

type bluezSession struct {
	per  *Bluez
	addr string
	dev  bluetooth.Device
	char bluetooth.DeviceCharacteristic
	log  *log2.Log

	dropOnce     sync.Once
	disconnected chan struct{}
}

func (self *bluezSession) Subscribe(handler func([]byte)) error {
	err := self.char.EnableNotifications(func(buf []byte) {
		// BlueZ reuses the notification buffer
		chunk := make([]byte, len(buf))
		copy(chunk, buf)
		handler(chunk)
	})
	return errors.Annotatef(err, "ble subscribe addr=%s", self.addr)
}

func (self *bluezSession) Unsubscribe() error {
	return errors.Annotatef(self.char.EnableNotifications(nil), "ble unsubscribe addr=%s", self.addr)
}

func (self *bluezSession) Write(b []byte) error {
	_, err := self.char.WriteWithoutResponse(b)
	return errors.Annotatef(err, "ble write addr=%s", self.addr)
}

func (self *bluezSession) Disconnected() <-chan struct{} { return self.disconnected }

func (self *bluezSession) markDisconnected() {
	self.dropOnce.Do(func() { close(self.disconnected) })
}

func (self *bluezSession) Close() error {
	self.per.clearCurrent(self)
	err := self.dev.Disconnect()
	self.markDisconnected()
	return errors.Annotatef(err, "ble disconnect addr=%s", self.addr)
}
