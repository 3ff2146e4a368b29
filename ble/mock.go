package ble

// Public API to easily create transport stubs to test protocol code.

import (
	"context"
	"sync"
)

// MockPeripheral hands out scripted sessions. OnWrite runs synchronously
// inside Session.Write, so a script can deliver chunks and drop the link
// in a deterministic order, the way the real device behaves.
type MockPeripheral struct {
	mu         sync.Mutex
	ConnectErr error
	OnWrite    func(s *MockSession, request []byte)

	Connects int
	Sessions []*MockSession
}

func (self *MockPeripheral) Connect(ctx context.Context, addr string) (Session, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Connects++
	if self.ConnectErr != nil {
		return nil, self.ConnectErr
	}
	s := &MockSession{
		per:          self,
		Addr:         addr,
		disconnected: make(chan struct{}),
	}
	self.Sessions = append(self.Sessions, s)
	return s, nil
}

func (self *MockPeripheral) ConnectCount() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.Connects
}

func (self *MockPeripheral) LastSession() *MockSession {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.Sessions) == 0 {
		return nil
	}
	return self.Sessions[len(self.Sessions)-1]
}

type MockSession struct {
	per  *MockPeripheral
	Addr string

	mu           sync.Mutex
	handler      func([]byte)
	dropOnce     sync.Once
	disconnected chan struct{}

	Writes         [][]byte
	SubscribeErr   error
	UnsubscribeErr error
	WriteErr       error
	Unsubscribed   bool
	Closed         bool
}

func (self *MockSession) Subscribe(handler func([]byte)) error {
	if self.SubscribeErr != nil {
		return self.SubscribeErr
	}
	self.mu.Lock()
	self.handler = handler
	self.mu.Unlock()
	return nil
}

func (self *MockSession) Unsubscribe() error {
	self.mu.Lock()
	self.Unsubscribed = true
	self.handler = nil
	self.mu.Unlock()
	return self.UnsubscribeErr
}

func (self *MockSession) Write(b []byte) error {
	if self.WriteErr != nil {
		return self.WriteErr
	}
	self.mu.Lock()
	self.Writes = append(self.Writes, append([]byte(nil), b...))
	onWrite := self.per.OnWrite
	self.mu.Unlock()
	if onWrite != nil {
		onWrite(self, b)
	}
	return nil
}

// Deliver feeds one notification chunk into the subscribed handler.
func (self *MockSession) Deliver(chunk []byte) {
	self.mu.Lock()
	handler := self.handler
	self.mu.Unlock()
	if handler != nil {
		handler(chunk)
	}
}

// Drop simulates the device closing the link.
func (self *MockSession) Drop() {
	self.dropOnce.Do(func() { close(self.disconnected) })
}

func (self *MockSession) Disconnected() <-chan struct{} { return self.disconnected }

func (self *MockSession) Close() error {
	self.mu.Lock()
	self.Closed = true
	self.mu.Unlock()
	return nil
}
