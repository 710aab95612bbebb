package memphis

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"github.com/memphisdev/memphis.go/pkg/logger"
)

// inflightTracker is the narrow capability a Message needs from its owning
// Station: remove its dedup key on any terminal transition. Message holds
// this interface rather than *Station directly so it can never walk back up
// to the station's producers, schema binding, or partition list — only the
// one piece of shared state it is actually responsible for releasing.
type inflightTracker interface {
	clearInflight(key string)
}

// Message is an inbound delivery: payload, headers, and the broker-assigned
// stream sequence, plus the machinery to keep the broker from redelivering
// it while the application is still working on it. A Message is only ever
// handed to the caller once forward through the consumer's delivery or DLS
// channel; it always reaches a terminal transition (Ack, Delay,
// DisableKeepAlive, or GC) exactly once.
type Message struct {
	payload  []byte
	headers  map[string][]string
	sequence uint64
	subject  string
	cgName   string

	inflight inflightTracker
	dedupKey string

	msg    inboundMsg
	client *Client

	keepAliveCancel context.CancelFunc
	terminateOnce   sync.Once
}

// newMessage wraps m for delivery to the application. parentCtx roots the
// keep-alive goroutine at the owning Consumer's cancellation token (spec.md
// §5/§9: keep-alive tasks must cascade-cancel with every other per-consumer
// task); pass nil outside a Consumer's lifetime (e.g. in tests) to root it at
// context.Background() instead. wg, if non-nil, is Add(1)'d before the
// keep-alive goroutine starts and Done() when it returns, so a caller can
// bound a shutdown wait on it.
func newMessage(client *Client, inflight inflightTracker, group string, maxAckTime time.Duration, m inboundMsg, dedupKey string, seq uint64, enableKeepAlive bool, parentCtx context.Context, wg *sync.WaitGroup) *Message {
	msg := &Message{
		payload:  m.Data(),
		headers:  map[string][]string(m.Headers()),
		sequence: seq,
		subject:  m.Subject(),
		cgName:   group,
		inflight: inflight,
		dedupKey: dedupKey,
		msg:      m,
		client:   client,
	}
	if enableKeepAlive && maxAckTime > 0 {
		msg.startKeepAlive(parentCtx, maxAckTime, wg)
	}
	runtime.SetFinalizer(msg, finalizeMessage)
	return msg
}

// finalizeMessage is the best-effort cleanup path for a Message an
// application forgot to ack: it releases the keep-alive goroutine and the
// station's dedup entry so neither leaks past the Message's lifetime.
func finalizeMessage(m *Message) {
	m.terminate()
}

func (m *Message) startKeepAlive(parent context.Context, maxAckTime time.Duration, wg *sync.WaitGroup) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	m.keepAliveCancel = cancel
	if wg != nil {
		wg.Add(1)
	}
	go m.keepAliveLoop(ctx, maxAckTime, wg)
}

// keepAliveLoop issues a progress ack every maxAckTime*0.9 until cancelled,
// either by the Message's own terminal transition or by the owning
// Consumer's cancellation token (via parent in startKeepAlive). The 10%
// safety margin is read once at Message construction and never re-read if
// MaxAckTime changes mid-life (open question in spec.md §9).
func (m *Message) keepAliveLoop(ctx context.Context, maxAckTime time.Duration, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	safety := time.Duration(float64(maxAckTime) * 0.1)
	interval := maxAckTime - safety
	if interval <= 0 {
		interval = maxAckTime
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := m.msg.InProgress(); err != nil {
				logger.L().Debug("memphis: progress ack failed", "subject", m.subject, "error", err)
			}
			timer.Reset(interval)
		}
	}
}

// terminate runs the shared part of every terminal transition: cancel the
// keep-alive goroutine and release the station's dedup entry. Safe to call
// more than once (Ack/Delay/DisableKeepAlive/finalizer may all race to call
// it on the same Message); only the first call does anything.
func (m *Message) terminate() {
	m.terminateOnce.Do(func() {
		if m.keepAliveCancel != nil {
			m.keepAliveCancel()
		}
		if m.inflight != nil {
			m.inflight.clearInflight(m.dedupKey)
		}
		runtime.SetFinalizer(m, nil)
	})
}

// Data returns the message payload.
func (m *Message) Data() []byte { return m.payload }

// Sequence returns the broker-assigned stream sequence number.
func (m *Message) Sequence() uint64 { return m.sequence }

// Subject returns the subject the message was delivered on.
func (m *Message) Subject() string { return m.subject }

// Header returns the first value of the named header, or "".
func (m *Message) Header(key string) string {
	if vs, ok := m.headers[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Headers returns the message's application-visible headers, excluding the
// $memphis-reserved control headers stamped by the producer/broker.
func (m *Message) Headers() map[string]string {
	out := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		if hasReservedPrefix(k) || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}

// Ack terminates the message (cancelling keep-alive, clearing its dedup
// entry) and acknowledges it to the broker. If the broker ack fails but the
// message carries a poison-message id, it falls back to the resend-ack path
// ($memphis_pm_acks); failure of that fallback is the residual error
// returned to the caller.
func (m *Message) Ack() error {
	m.terminate()

	if err := m.msg.Ack(); err != nil {
		pmID := m.Header(headerPoisonMsgID)
		if pmID == "" {
			return ErrTransport(err)
		}
		cg := m.cgName
		if v := m.Header(headerPoisonCgName); v != "" {
			cg = v
		}
		data, merr := json.Marshal(pmAckReq{ID: pmID, CgName: cg})
		if merr != nil {
			return ErrTransport(merr)
		}
		if perr := m.client.transport.Publish(subjectPMAcks, data); perr != nil {
			return ErrTransport(perr)
		}
	}
	return nil
}

// Delay terminates the message and issues a negative ack with the given
// redelivery delay.
func (m *Message) Delay(d time.Duration) error {
	m.terminate()
	if err := m.msg.NakWithDelay(d); err != nil {
		return ErrTransport(err)
	}
	return nil
}

// DisableKeepAlive terminates the message without acking or naking it,
// letting the broker redeliver it once MaxAckTime elapses.
func (m *Message) DisableKeepAlive() {
	m.terminate()
}
