package memphis

const (
	headerMsgID          = "msg-id"
	headerProducedBy     = "$memphis_producedBy"
	headerConnectionID   = "$memphis_connectionId"
	headerPoisonMsgID    = "$memphis_pm_id"
	headerPoisonCgName   = "$memphis_pm_cg_name"
	reservedHeaderPrefix = "$memphis"
)

// Envelope is an outbound message: headers plus payload, optionally carrying
// a broker-level dedup id surfaced as the msg-id header.
type Envelope struct {
	Headers map[string][]string
	Payload []byte
	MsgID   string
}

// NewEnvelope builds an Envelope with an empty, ready-to-use header map.
func NewEnvelope(payload []byte) *Envelope {
	return &Envelope{
		Headers: make(map[string][]string),
		Payload: payload,
	}
}

// SetHeader adds a caller-supplied header. Keys starting with "$memphis" are
// reserved for the client and broker; SetHeader rejects them rather than
// letting an application silently corrupt the control headers stamped at
// publish time.
func (e *Envelope) SetHeader(key, value string) error {
	if hasReservedPrefix(key) {
		return ErrBrokerError("header keys must not start with $memphis: " + key)
	}
	if e.Headers == nil {
		e.Headers = make(map[string][]string)
	}
	e.Headers[key] = []string{value}
	return nil
}

func hasReservedPrefix(key string) bool {
	if len(key) < len(reservedHeaderPrefix) {
		return false
	}
	return key[:len(reservedHeaderPrefix)] == reservedHeaderPrefix
}

// stamp sets the producer and connection identity headers and, if msgID is
// set, the broker-level dedup header. Called immediately before publish so
// every outbound message carries consistent identity regardless of what the
// caller already put in Headers.
func (e *Envelope) stamp(producerName, connectionID string) {
	if e.Headers == nil {
		e.Headers = make(map[string][]string)
	}
	e.Headers[headerProducedBy] = []string{producerName}
	e.Headers[headerConnectionID] = []string{connectionID}
	if e.MsgID != "" {
		e.Headers[headerMsgID] = []string{e.MsgID}
	}
}
