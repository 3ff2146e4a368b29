package tele

import (
	"context"

	"github.com/hrpv/neeytele/log2"
)

// Transporter contract:
// - Init fails only with invalid config, ignores network errors
// - SendReport returns true only after broker ack, false means keep it queued
// - SendScalar is fire-and-forget
// - application may start without network available
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, conf Config) error
	SendReport(payload []byte) bool
	SendScalar(topicSuffix, payload string) bool
	Close()
}
