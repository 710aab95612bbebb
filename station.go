package memphis

import (
	"encoding/json"
	"fmt"

	"github.com/memphisdev/memphis.go/pkg/concurrency"
	"github.com/memphisdev/memphis.go/pkg/logger"
	"github.com/nats-io/nats.go"
)

// StationOpts configures CreateStation.
type StationOpts struct {
	Name                     string
	RetentionType            string
	RetentionValue           int
	StorageType              string
	Replicas                 int
	IdempotencyWindowMs      int
	SchemaName               string
	SendPoisonMsgToDLS       bool
	SendSchemaFailedMsgToDLS bool
	TieredStorageEnabled     bool
	PartitionsNumber         int
	GenUniqueSuffix          bool
}

func defaultStationOpts(name string) StationOpts {
	return StationOpts{
		Name:                     name,
		RetentionType:            RetentionMessages,
		RetentionValue:           10_000_000,
		StorageType:              StorageFile,
		Replicas:                 1,
		IdempotencyWindowMs:      120_000,
		SendPoisonMsgToDLS:       true,
		SendSchemaFailedMsgToDLS: true,
		PartitionsNumber:         1,
	}
}

// StationOption customizes a StationOpts before CreateStation sends it.
type StationOption func(*StationOpts)

func StationRetention(kind string, value int) StationOption {
	return func(o *StationOpts) { o.RetentionType, o.RetentionValue = kind, value }
}

func StationStorage(kind string) StationOption {
	return func(o *StationOpts) { o.StorageType = kind }
}

func StationReplicas(n int) StationOption {
	return func(o *StationOpts) { o.Replicas = n }
}

func StationIdempotencyWindow(ms int) StationOption {
	return func(o *StationOpts) { o.IdempotencyWindowMs = ms }
}

func StationSchema(name string) StationOption {
	return func(o *StationOpts) { o.SchemaName = name }
}

func StationSendPoisonMsgToDLS(enabled bool) StationOption {
	return func(o *StationOpts) { o.SendPoisonMsgToDLS = enabled }
}

func StationSendSchemaFailedMsgToDLS(enabled bool) StationOption {
	return func(o *StationOpts) { o.SendSchemaFailedMsgToDLS = enabled }
}

func StationTieredStorage(enabled bool) StationOption {
	return func(o *StationOpts) { o.TieredStorageEnabled = enabled }
}

func StationPartitions(n int) StationOption {
	return func(o *StationOpts) { o.PartitionsNumber = n }
}

func StationGenUniqueSuffix() StationOption {
	return func(o *StationOpts) { o.GenUniqueSuffix = true }
}

// Station is a logical, possibly partitioned stream: the factory for its
// producers and consumers, the holder of the shared in-flight dedup set,
// and the subscriber to its own schema hot-swap feed.
type Station struct {
	client *Client
	name   string

	dlsPoison        bool
	dlsSchemaFailure bool

	partitionsMu *concurrency.SmartRWMutex
	partitions   []int

	schemaMu *concurrency.SmartRWMutex
	schema   *SchemaBinding

	inflightMu *concurrency.SmartRWMutex
	inflight   map[string]struct{}

	schemaSub *nats.Subscription
}

// CreateStation registers a station with the broker. Station creation is
// idempotent: calling it again with the same name and options succeeds
// without error even if the station already exists.
func (c *Client) CreateStation(name string, opts ...StationOption) (*Station, error) {
	o := defaultStationOpts(name)
	for _, opt := range opts {
		opt(&o)
	}

	sanitizedName, err := sanitize(o.Name, o.GenUniqueSuffix)
	if err != nil {
		return nil, ErrTransport(err)
	}

	req := createStationReq{
		Name:                sanitizedName,
		RetentionType:       o.RetentionType,
		RetentionValue:      o.RetentionValue,
		StorageType:         o.StorageType,
		Replicas:            o.Replicas,
		IdempotencyWindowMs: o.IdempotencyWindowMs,
		SchemaName:          o.SchemaName,
		DLSConfiguration: dlsConfigurationReq{
			Poison:      o.SendPoisonMsgToDLS,
			Schemaverse: o.SendSchemaFailedMsgToDLS,
		},
		Username:             c.username,
		TieredStorageEnabled: o.TieredStorageEnabled,
		PartitionsNumber:     o.PartitionsNumber,
	}

	raw, err := c.sendInternalRequest(subjectStationCreations, req)
	if err != nil {
		return nil, err
	}
	if err := checkReply(raw); err != nil {
		return nil, err
	}

	// The broker's station-creation reply never carries a partition list
	// (only producer/consumer creation replies do, per the control-plane
	// contract); the list is adopted lazily the first time one arrives.
	st := &Station{
		client:           c,
		name:             sanitizedName,
		dlsPoison:        o.SendPoisonMsgToDLS,
		dlsSchemaFailure: o.SendSchemaFailedMsgToDLS,
		partitionsMu:     concurrency.NewSmartRWMutex(concurrency.MutexConfig{Name: "station." + sanitizedName + ".partitions"}),
		schemaMu:         concurrency.NewSmartRWMutex(concurrency.MutexConfig{Name: "station." + sanitizedName + ".schema"}),
		inflightMu:       concurrency.NewSmartRWMutex(concurrency.MutexConfig{Name: "station." + sanitizedName + ".inflight"}),
		inflight:         make(map[string]struct{}),
	}

	st.subscribeSchemaUpdates()

	return st, nil
}

// Name returns the station's sanitized, broker-visible name.
func (s *Station) Name() string { return s.name }

// internalName returns the dot-safe station identifier, optionally
// suffixed with a partition index.
func (s *Station) internalName(partition ...int) string {
	base := internalName(s.name)
	if len(partition) == 0 {
		return base
	}
	return fmt.Sprintf("%s$%d", base, partition[0])
}

// subjectName returns the produce-side subject for the station, optionally
// for a specific partition.
func (s *Station) subjectName(partition ...int) string {
	return s.internalName(partition...) + ".final"
}

func (s *Station) subscribeSchemaUpdates() {
	sub, err := s.client.transport.Subscribe(subjectSchemaUpdates(s.internalName()), s.handleSchemaUpdate)
	if err != nil {
		logger.L().Warn("memphis: failed to subscribe to schema updates", "station", s.name, "error", err)
		return
	}
	s.schemaSub = sub
}

func (s *Station) handleSchemaUpdate(msg *nats.Msg) {
	var evt schemaUpdateEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		logger.L().Warn("memphis: unparseable schema update, ignoring", "station", s.name, "error", err)
		return
	}
	if evt.Init.SchemaName == "" {
		s.setSchema(nil)
		return
	}
	binding, err := newSchemaBinding(evt.Init)
	if err != nil {
		logger.L().Warn("memphis: failed to build validator from schema update, ignoring", "station", s.name, "error", err)
		return
	}
	s.setSchema(binding)
}

func (s *Station) setSchema(b *SchemaBinding) {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	s.schema = b
}

// SchemaBinding returns the station's current schema binding, or nil if
// none is bound.
func (s *Station) SchemaBinding() *SchemaBinding {
	s.schemaMu.RLock()
	defer s.schemaMu.RUnlock()
	return s.schema
}

// adoptPartitions caches the broker-declared partition list the first time
// a producer or consumer creation response reports one. Later calls are a
// no-op: all producers/consumers of one station see the same list.
func (s *Station) adoptPartitions(list []int) {
	if len(list) == 0 {
		return
	}
	s.partitionsMu.Lock()
	defer s.partitionsMu.Unlock()
	if len(s.partitions) == 0 {
		s.partitions = list
	}
}

// partitionList returns the cached partition list in broker order.
func (s *Station) partitionList() []int {
	s.partitionsMu.RLock()
	defer s.partitionsMu.RUnlock()
	return s.partitions
}

// markInflight inserts dedupKey and reports whether it was newly inserted
// (false means it was already present and the caller must suppress delivery).
func (s *Station) markInflight(dedupKey string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, exists := s.inflight[dedupKey]; exists {
		return false
	}
	s.inflight[dedupKey] = struct{}{}
	return true
}

// clearInflight removes dedupKey, idempotently.
func (s *Station) clearInflight(dedupKey string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, dedupKey)
}

// Destroy unregisters the station from the broker and cancels its
// schema-update subscription.
func (s *Station) Destroy() error {
	if s.schemaSub != nil {
		_ = s.schemaSub.Unsubscribe()
	}
	raw, err := s.client.sendInternalRequest(subjectStationDestructions, destroyStationReq{
		StationName: s.name,
		Username:    s.client.username,
	})
	if err != nil {
		return err
	}
	return checkReply(raw)
}
