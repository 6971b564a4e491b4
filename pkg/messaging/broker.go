package messaging

import "context"

// Broker publishes push events to named channels. Channels are role groups
// (doctor, lab_technician, patient); connected frontends subscribe per role.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
