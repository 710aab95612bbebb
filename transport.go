package memphis

import (
	"time"

	"github.com/nats-io/nats.go"
)

// controlTransport is the subset of *nats.Conn the control plane needs:
// request-reply for lifecycle calls, fire-and-forget publish for
// notifications/DLS/pm-acks, and plain/queue subscriptions for the
// schema-update and DLS listeners. *nats.Conn satisfies this directly, so
// production code never needs an adapter struct; tests substitute a fake.
type controlTransport interface {
	Request(subject string, data []byte, timeout time.Duration) (*nats.Msg, error)
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Status() nats.Status
	Close()
}

var _ controlTransport = (*nats.Conn)(nil)
