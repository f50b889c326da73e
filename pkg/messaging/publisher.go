// Package messaging defines the transport-neutral event publishing contract.
package messaging

import (
	"context"
)

// Event is a message with a routing subject and an encoded payload.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
