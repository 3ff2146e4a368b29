// Package ble is the minimal wireless transport surface the balancer
// protocol needs: connect to one peripheral, subscribe to one
// characteristic, write one request, observe disconnect. The device
// terminates the link after every reply, so sessions are short-lived
// and reconnect logic lives with the caller.
package ble

import "context"

// Heltec/NEEY balancers expose a UART-style service.
const (
	ServiceUUID        = "0000ffe0-0000-1000-8000-00805f9b34fb"
	CharacteristicUUID = "0000ffe1-0000-1000-8000-00805f9b34fb"
)

type Peripheral interface {
	// Connect opens a session to the device with the given MAC address and
	// resolves the protocol characteristic.
	Connect(ctx context.Context, addr string) (Session, error)
}

type Session interface {
	// Subscribe registers the notification handler for inbound chunks.
	// The handler is called from the transport goroutine; the chunk is
	// owned by the handler.
	Subscribe(handler func(chunk []byte)) error
	Unsubscribe() error

	// Write sends one request frame without response confirmation, the
	// only write mode the balancer accepts.
	Write(b []byte) error

	// Disconnected is closed when the device drops the link. The balancer
	// does this right after each reply, it is not an error by itself.
	Disconnected() <-chan struct{}

	Close() error
}
