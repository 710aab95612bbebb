package memphis

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// jetstreamContext is the subset of jetstream.JetStream the producer and
// consumer need: async publish for produce, and stream lookup to attach to
// a durable the broker already provisioned via the control plane.
// jetstream.JetStream satisfies this structurally.
type jetstreamContext interface {
	PublishMsgAsync(m *nats.Msg, opts ...jetstream.PublishOpt) (jetstream.PubAckFuture, error)
	Stream(ctx context.Context, stream string) (jetstream.Stream, error)
}

// streamHandle is the subset of jetstream.Stream used to attach to a
// durable consumer by name. jetstream.Stream satisfies this structurally.
type streamHandle interface {
	Consumer(ctx context.Context, name string) (jetstream.Consumer, error)
}

// pullConsumer is the subset of jetstream.Consumer the pull loop and
// liveness ping need. jetstream.Consumer satisfies this structurally.
type pullConsumer interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
	Info(ctx context.Context) (*jetstream.ConsumerInfo, error)
}

// inboundMsg is the subset of jetstream.Msg the message wrapper needs.
// jetstream.Msg satisfies this structurally.
type inboundMsg interface {
	Data() []byte
	Headers() nats.Header
	Subject() string
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	InProgress() error
	NakWithDelay(delay time.Duration) error
}

var (
	_ jetstreamContext = (jetstream.JetStream)(nil)
	_ streamHandle     = (jetstream.Stream)(nil)
	_ pullConsumer     = (jetstream.Consumer)(nil)
	_ inboundMsg       = (jetstream.Msg)(nil)
)
