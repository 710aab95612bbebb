package memphis

import (
	"context"
	"errors"
	"time"

	"github.com/memphisdev/memphis.go/pkg/concurrency"
	"github.com/memphisdev/memphis.go/pkg/resilience"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func newTestConsumerCtx() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

func newTestCircuitBreaker() *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("test"))
}

func fakeNatsMsg(data string) *nats.Msg {
	return &nats.Msg{Data: []byte(data), Subject: "$memphis_dls_test_cg1"}
}

var errTestBrokerAck = errors.New("broker ack failed")

func newTestMutex() *concurrency.SmartRWMutex {
	return concurrency.NewSmartRWMutex(concurrency.MutexConfig{Name: "test"})
}

func fakeMsg(data string) *nats.Msg {
	return &nats.Msg{Data: []byte(data)}
}

// fakeJetStream is an in-process jetstreamContext stand-in for producer unit
// tests that never need a live broker. Consumer tests bypass Stream lookup
// entirely by constructing a Consumer with pre-attached fake pullConsumers.
type fakeJetStream struct {
	lastMsg    *nats.Msg
	publishErr error
}

func (f *fakeJetStream) PublishMsgAsync(m *nats.Msg, opts ...jetstream.PublishOpt) (jetstream.PubAckFuture, error) {
	f.lastMsg = m
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return nil, nil
}

func (f *fakeJetStream) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	return nil, nil
}

// fakeInflight is a minimal inflightTracker stand-in for Message tests.
type fakeInflight struct {
	cleared []string
}

func (f *fakeInflight) clearInflight(key string) {
	f.cleared = append(f.cleared, key)
}

// fakeInboundMsg is an in-process inboundMsg stand-in for Message and
// Consumer.deliver tests; it never touches a real JetStream message.
type fakeInboundMsg struct {
	data            []byte
	headers         nats.Header
	subject         string
	seq             uint64
	ackErr          error
	ackCalls        int
	inProgressCalls int
	nakCalls        int
	nakDelay        time.Duration
}

func (f *fakeInboundMsg) Data() []byte         { return f.data }
func (f *fakeInboundMsg) Headers() nats.Header { return f.headers }
func (f *fakeInboundMsg) Subject() string      { return f.subject }

func (f *fakeInboundMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{Sequence: jetstream.SequencePair{Stream: f.seq}}, nil
}

func (f *fakeInboundMsg) Ack() error {
	f.ackCalls++
	return f.ackErr
}

func (f *fakeInboundMsg) InProgress() error {
	f.inProgressCalls++
	return nil
}

func (f *fakeInboundMsg) NakWithDelay(d time.Duration) error {
	f.nakCalls++
	f.nakDelay = d
	return nil
}

// fakePullConsumer is an in-process pullConsumer stand-in for the liveness
// ping; Fetch is never exercised since pull-loop tests drive Consumer.deliver
// directly rather than a real JetStream fetch/batch round trip.
type fakePullConsumer struct {
	infoErr   error
	infoCalls int
}

func (f *fakePullConsumer) Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	return nil, errors.New("fakePullConsumer.Fetch: not implemented")
}

func (f *fakePullConsumer) Info(ctx context.Context) (*jetstream.ConsumerInfo, error) {
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &jetstream.ConsumerInfo{}, nil
}
