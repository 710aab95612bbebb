package memphis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/memphisdev/memphis.go/pkg/logger"
	"github.com/memphisdev/memphis.go/pkg/resilience"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	consumerPingInterval  = 30 * time.Second
	consumerPingTimeout   = 5 * time.Second
	consumerDLSBufferSize = 1024
)

// ConsumerOpts configures Station.CreateConsumer.
type ConsumerOpts struct {
	Name                     string
	ConsumerGroup            string
	BatchSize                int
	BatchWait                time.Duration
	MaxAckTime               time.Duration
	MaxMsgDeliveries         int
	StartConsumeFromSequence uint64
	LastMessages             int64
	GenUniqueSuffix          bool
}

func defaultConsumerOpts(name string) ConsumerOpts {
	return ConsumerOpts{
		Name:                     name,
		BatchSize:                10,
		BatchWait:                5 * time.Second,
		MaxAckTime:               30 * time.Second,
		MaxMsgDeliveries:         2,
		StartConsumeFromSequence: 1,
		LastMessages:             -1,
	}
}

// ConsumerOption customizes a ConsumerOpts before creation.
type ConsumerOption func(*ConsumerOpts)

func ConsumerGroup(name string) ConsumerOption {
	return func(o *ConsumerOpts) { o.ConsumerGroup = name }
}

func ConsumerBatchSize(n int) ConsumerOption {
	return func(o *ConsumerOpts) { o.BatchSize = n }
}

func ConsumerBatchWait(d time.Duration) ConsumerOption {
	return func(o *ConsumerOpts) { o.BatchWait = d }
}

func ConsumerMaxAckTime(d time.Duration) ConsumerOption {
	return func(o *ConsumerOpts) { o.MaxAckTime = d }
}

func ConsumerMaxMsgDeliveries(n int) ConsumerOption {
	return func(o *ConsumerOpts) { o.MaxMsgDeliveries = n }
}

func ConsumerStartConsumeFromSequence(seq uint64) ConsumerOption {
	return func(o *ConsumerOpts) { o.StartConsumeFromSequence = seq }
}

func ConsumerLastMessages(n int64) ConsumerOption {
	return func(o *ConsumerOpts) { o.LastMessages = n }
}

func ConsumerGenUniqueSuffix() ConsumerOption {
	return func(o *ConsumerOpts) { o.GenUniqueSuffix = true }
}

// Consumer pulls messages from one or more of a station's partitions,
// fanning them into a single delivery channel with cross-partition dedup,
// per-message keep-alive, and a background liveness ping.
type Consumer struct {
	client  *Client
	station *Station
	name    string
	group   string
	durable string

	batchSize     int
	batchWait     time.Duration
	maxAckTime    time.Duration
	maxDeliveries int

	pulls []pullConsumer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	consumeOnce sync.Once
	msgs        chan *Message

	dlsOnce  sync.Once
	dlsErr   error
	dlsSub   *nats.Subscription
	dlsMsgs  chan *Message

	breaker   *resilience.CircuitBreaker
	reachable atomic.Bool
}

// CreateConsumer registers a consumer against the station and attaches one
// JetStream pull consumer per partition (or a single one for an
// unpartitioned station). The liveness ping starts immediately; pull loops
// only start once Consume is called.
func (s *Station) CreateConsumer(name string, opts ...ConsumerOption) (*Consumer, error) {
	o := defaultConsumerOpts(name)
	for _, opt := range opts {
		opt(&o)
	}

	if o.StartConsumeFromSequence < 1 {
		return nil, ErrInvalidSequence(o.StartConsumeFromSequence)
	}

	sanitizedName, err := sanitize(o.Name, o.GenUniqueSuffix)
	if err != nil {
		return nil, ErrTransport(err)
	}

	group := o.ConsumerGroup
	durableSource := sanitizedName
	if group != "" {
		sg, err := sanitize(group, false)
		if err != nil {
			return nil, ErrTransport(err)
		}
		group = sg
		durableSource = sg
	}
	durable := internalName(durableSource)

	raw, err := s.client.sendInternalRequest(subjectConsumerCreations, createConsumerReq{
		Name:                sanitizedName,
		StationName:         s.name,
		ConnectionID:        s.client.connectionID,
		ConsumerType:        "application",
		ConsumersGroup:      group,
		MaxAckTimeMs:        int(o.MaxAckTime.Milliseconds()),
		MaxMsgDeliveries:    o.MaxMsgDeliveries,
		StartConsumeFromSeq: o.StartConsumeFromSequence,
		LastMessages:        o.LastMessages,
		ReqVersion:          2,
		Username:            s.client.username,
	})
	if err != nil {
		return nil, err
	}
	resp, err := parseCreateResponse(raw)
	if err != nil {
		return nil, err
	}

	var partitions []int
	if resp.PartitionsUpdate != nil {
		partitions = resp.PartitionsUpdate.PartitionsList
	}
	s.adoptPartitions(partitions)

	streamNames := partitions
	var names []string
	if len(streamNames) == 0 {
		names = []string{s.internalName()}
	} else {
		for _, p := range streamNames {
			names = append(names, s.internalName(p))
		}
	}

	attachCtx, cancelAttach := context.WithTimeout(context.Background(), s.client.reqTimeout)
	defer cancelAttach()

	pulls := make([]pullConsumer, 0, len(names))
	for _, sn := range names {
		stream, err := s.client.js.Stream(attachCtx, sn)
		if err != nil {
			return nil, ErrTransport(err)
		}
		jsCons, err := stream.Consumer(attachCtx, durable)
		if err != nil {
			return nil, ErrTransport(err)
		}
		pulls = append(pulls, jsCons)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		client:        s.client,
		station:       s,
		name:          sanitizedName,
		group:         group,
		durable:       durable,
		batchSize:     o.BatchSize,
		batchWait:     o.BatchWait,
		maxAckTime:    o.MaxAckTime,
		maxDeliveries: o.MaxMsgDeliveries,
		pulls:         pulls,
		ctx:           ctx,
		cancel:        cancel,
		msgs:          make(chan *Message, o.BatchSize*len(pulls)+1),
		dlsMsgs:       make(chan *Message, consumerDLSBufferSize),
		breaker:       resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("memphis.consumer." + sanitizedName)),
	}
	c.reachable.Store(true)

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Name returns the consumer's sanitized, broker-visible name.
func (c *Consumer) Name() string { return c.name }

// Reachable reports whether the most recent liveness ping succeeded for
// every attached partition consumer.
func (c *Consumer) Reachable() bool { return c.reachable.Load() }

// Consume starts one pull loop per partition, each deduping against the
// station's shared in-flight set, and returns the unified delivery channel.
// Calling Consume more than once returns the same channel without starting
// additional loops.
func (c *Consumer) Consume() <-chan *Message {
	c.consumeOnce.Do(func() {
		for _, pc := range c.pulls {
			c.wg.Add(1)
			go c.runPullLoop(pc)
		}
	})
	return c.msgs
}

func (c *Consumer) runPullLoop(pc pullConsumer) {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		batch, err := pc.Fetch(c.batchSize, jetstream.FetchMaxWait(c.batchWait))
		if err != nil {
			if !errors.Is(err, nats.ErrTimeout) {
				logger.L().Warn("memphis: pull fetch failed", "consumer", c.name, "error", err)
			}
			continue
		}

		for m := range batch.Messages() {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			c.deliver(m)
		}
		if berr := batch.Error(); berr != nil && !errors.Is(berr, nats.ErrTimeout) {
			logger.L().Warn("memphis: pull batch error", "consumer", c.name, "error", berr)
		}
	}
}

// deliver dedups m against the station's shared in-flight set and, if new,
// wraps and forwards it to the delivery channel. A duplicate is neither
// forwarded nor acked — it is silently dropped, relying on the broker's own
// redelivery of the still-in-flight original.
func (c *Consumer) deliver(m inboundMsg) {
	var seq uint64
	if meta, err := m.Metadata(); err == nil && meta != nil {
		seq = meta.Sequence.Stream
	}
	dedupKey := fmt.Sprintf("%s-%d", m.Subject(), seq)

	if !c.station.markInflight(dedupKey) {
		logger.L().Debug("memphis: suppressing duplicate delivery", "dedupKey", dedupKey)
		return
	}

	msg := newMessage(c.client, c.station, c.durable, c.maxAckTime, m, dedupKey, seq, true, c.ctx, &c.wg)
	select {
	case c.msgs <- msg:
	case <-c.ctx.Done():
		msg.terminate()
	}
}

// ConsumeDLS lazily opens a queue subscription (queue group = durable name)
// on the consumer's dead-letter subject and returns a channel of messages
// the broker routed there. Multiple Consumer instances sharing a consumer
// group and calling ConsumeDLS share that queue group, so the broker
// load-balances DLS delivery across them.
func (c *Consumer) ConsumeDLS() (<-chan *Message, error) {
	if err := c.ensureDLSSubscription(); err != nil {
		return nil, err
	}
	return c.dlsMsgs, nil
}

// FetchDLS synchronously drains up to batchSize already-buffered DLS
// messages, waiting up to timeout for the buffer to fill. It shares the
// same lazily-opened subscription as ConsumeDLS.
func (c *Consumer) FetchDLS(batchSize int, timeout time.Duration) ([]*Message, error) {
	if err := c.ensureDLSSubscription(); err != nil {
		return nil, err
	}

	out := make([]*Message, 0, batchSize)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for len(out) < batchSize {
		select {
		case m := <-c.dlsMsgs:
			out = append(out, m)
		case <-deadline.C:
			return out, nil
		}
	}
	return out, nil
}

func (c *Consumer) ensureDLSSubscription() error {
	c.dlsOnce.Do(func() {
		subject := subjectDLS(c.station.internalName(), c.durable)
		sub, err := c.client.transport.QueueSubscribe(subject, c.durable, c.handleDLSMsg)
		if err != nil {
			c.dlsErr = ErrTransport(err)
			return
		}
		c.dlsSub = sub
	})
	return c.dlsErr
}

func (c *Consumer) handleDLSMsg(raw *nats.Msg) {
	wrapped := newMessage(c.client, c.station, c.durable, 0, natsMsgAdapter{raw}, "", 0, false, c.ctx, &c.wg)
	select {
	case c.dlsMsgs <- wrapped:
	default:
		logger.L().Warn("memphis: dls buffer full, dropping message", "consumer", c.name)
		wrapped.terminate()
	}
}

func (c *Consumer) pingLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(consumerPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.pingOnce()
		}
	}
}

// pingOnce checks every attached partition consumer's liveness. Failures
// are logged and tracked via Reachable(); they never tear the consumer down
// — the broker is expected to recover, and premature exit would silently
// stop delivery.
func (c *Consumer) pingOnce() {
	ok := true
	for _, pc := range c.pulls {
		err := c.breaker.Execute(c.ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, consumerPingTimeout)
			defer cancel()
			_, err := pc.Info(ctx)
			return err
		})
		if err != nil {
			ok = false
			logger.L().Warn("memphis: consumer liveness ping failed", "consumer", c.name, "error", err)
		}
	}
	c.reachable.Store(ok)
}

// Stop cancels the consumer's pull loops, ping loop, and any still-running
// keep-alive tasks without deregistering it from the broker. It blocks until
// every one of those tasks has actually returned, bounded by one batchWait
// (spec.md §5 P5): a task that somehow overruns that bound is logged and
// Stop returns anyway rather than hanging the caller forever.
func (c *Consumer) Stop() {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.batchWait):
		logger.L().Warn("memphis: stop timed out waiting for pull/ping/keep-alive tasks", "consumer", c.name, "batchWait", c.batchWait)
	}
}

// Destroy stops the consumer and deregisters it from the broker.
func (c *Consumer) Destroy() error {
	c.Stop()
	if c.dlsSub != nil {
		_ = c.dlsSub.Unsubscribe()
	}
	raw, err := c.client.sendInternalRequest(subjectConsumerDestructions, destroyConsumerReq{
		Name:         c.name,
		StationName:  c.station.name,
		ConnectionID: c.client.connectionID,
		Username:     c.client.username,
		ReqVersion:   1,
	})
	if err != nil {
		return err
	}
	return checkReply(raw)
}

// natsMsgAdapter wraps a core *nats.Msg (used for DLS delivery, which the
// broker publishes as a plain fire-and-forget message, not a JetStream
// message) so it satisfies inboundMsg. Ack/InProgress/NakWithDelay are
// meaningless for a non-JetStream message and are no-ops.
type natsMsgAdapter struct{ m *nats.Msg }

func (a natsMsgAdapter) Data() []byte                              { return a.m.Data }
func (a natsMsgAdapter) Headers() nats.Header                      { return a.m.Header }
func (a natsMsgAdapter) Subject() string                           { return a.m.Subject }
func (a natsMsgAdapter) Metadata() (*jetstream.MsgMetadata, error) { return nil, nil }
func (a natsMsgAdapter) Ack() error                                { return nil }
func (a natsMsgAdapter) InProgress() error                         { return nil }
func (a natsMsgAdapter) NakWithDelay(time.Duration) error          { return nil }
