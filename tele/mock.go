package tele

// Public API to easily create transport stubs to test telemetry code.

import (
	"context"
	"sync"

	"github.com/hrpv/neeytele/log2"
)

type MockTransport struct {
	mu      sync.Mutex
	reports [][]byte
	scalars map[string]string

	// FailSends makes SendReport refuse that many deliveries first.
	FailSends int
}

func (self *MockTransport) Init(ctx context.Context, log *log2.Log, conf Config) error {
	self.mu.Lock()
	self.scalars = make(map[string]string)
	self.mu.Unlock()
	return nil
}

func (self *MockTransport) SendReport(payload []byte) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.FailSends > 0 {
		self.FailSends--
		return false
	}
	self.reports = append(self.reports, append([]byte(nil), payload...))
	return true
}

func (self *MockTransport) SendScalar(topicSuffix, payload string) bool {
	self.mu.Lock()
	self.scalars[topicSuffix] = payload
	self.mu.Unlock()
	return true
}

func (self *MockTransport) Close() {}

func (self *MockTransport) ReportCount() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.reports)
}

func (self *MockTransport) LastReport() []byte {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.reports) == 0 {
		return nil
	}
	return self.reports[len(self.reports)-1]
}

func (self *MockTransport) Scalar(topicSuffix string) string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.scalars[topicSuffix]
}
