package memphis

import (
	"encoding/hex"
	"encoding/json"

	"github.com/memphisdev/memphis.go/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ProducerOpts configures Station.CreateProducer.
type ProducerOpts struct {
	Name            string
	GenUniqueSuffix bool
}

// ProducerOption customizes a ProducerOpts before creation.
type ProducerOption func(*ProducerOpts)

func ProducerGenUniqueSuffix() ProducerOption {
	return func(o *ProducerOpts) { o.GenUniqueSuffix = true }
}

// Producer publishes to one station, round-robining across its partitions.
type Producer struct {
	client     *Client
	station    *Station
	name       string
	partitions *partitionIterator
}

// CreateProducer registers a producer against the station.
func (s *Station) CreateProducer(name string, opts ...ProducerOption) (*Producer, error) {
	o := ProducerOpts{Name: name}
	for _, opt := range opts {
		opt(&o)
	}

	sanitizedName, err := sanitize(o.Name, o.GenUniqueSuffix)
	if err != nil {
		return nil, ErrTransport(err)
	}

	raw, err := s.client.sendInternalRequest(subjectProducerCreations, createProducerReq{
		Name:         sanitizedName,
		StationName:  s.name,
		ProducerType: "application",
		ConnectionID: s.client.connectionID,
		ReqVersion:   2,
		Username:     s.client.username,
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

	return &Producer{
		client:     s.client,
		station:    s,
		name:       sanitizedName,
		partitions: newPartitionIterator(partitions),
	}, nil
}

// Name returns the producer's sanitized, broker-visible name.
func (p *Producer) Name() string { return p.name }

// Produce validates and publishes env, letting the station's partition
// iterator (if any) pick the target partition.
func (p *Producer) Produce(env *Envelope) (jetstream.PubAckFuture, error) {
	return p.produce(env, nil)
}

// ProduceToPartition validates and publishes env to an explicit partition.
// The station must expose that partition; calling this against an
// unpartitioned station fails with ErrPartitionRequired.
func (p *Producer) ProduceToPartition(partition int, env *Envelope) (jetstream.PubAckFuture, error) {
	return p.produce(env, &partition)
}

func (p *Producer) produce(env *Envelope, explicitPartition *int) (jetstream.PubAckFuture, error) {
	if len(env.Payload) == 0 {
		return nil, ErrPayloadEmpty()
	}

	env.stamp(p.name, p.client.connectionID)

	// Capture the binding once so a concurrent schema hot-swap can't be
	// observed half-applied within a single produce call.
	if binding := p.station.SchemaBinding(); binding != nil {
		if verr := binding.Validate(env.Payload); verr != nil {
			detail := verr.Error()
			p.client.sendNotification(notificationSchemaValidationFailAlert, "schema validation failed", detail, "")
			if p.station.dlsSchemaFailure {
				p.sendToDLS(env, detail)
			}
			return nil, ErrSchemaValidation(detail)
		}
	}

	subject, err := p.resolveSubject(explicitPartition)
	if err != nil {
		return nil, err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    env.Payload,
		Header:  nats.Header(env.Headers),
	}

	future, err := p.client.js.PublishMsgAsync(msg)
	if err != nil {
		return nil, ErrTransport(err)
	}
	return future, nil
}

func (p *Producer) resolveSubject(explicit *int) (string, error) {
	if explicit != nil {
		list := p.station.partitionList()
		if len(list) == 0 {
			return "", ErrPartitionRequired()
		}
		found := false
		for _, v := range list {
			if v == *explicit {
				found = true
				break
			}
		}
		if !found {
			return "", ErrPartitionNotValid(*explicit)
		}
		return p.station.subjectName(*explicit), nil
	}

	if p.partitions == nil {
		return p.station.subjectName(), nil
	}
	next, ok := p.partitions.next()
	if !ok {
		return "", ErrPartitionUnavailable()
	}
	return p.station.subjectName(next), nil
}

// sendToDLS posts a DlsMessage for a produce call rejected by schema
// validation. Publish failures are logged, not returned: the caller
// already has the ErrSchemaValidation they need to act on.
func (p *Producer) sendToDLS(env *Envelope, validationErr string) {
	req := dlsMessageReq{
		StationName: p.station.name,
		Producer: dlsProducerRef{
			Name:         p.name,
			ConnectionID: p.client.connectionID,
		},
		Message: dlsMessageBody{
			Headers: env.Headers,
			Payload: hex.EncodeToString(env.Payload),
			MsgID:   env.MsgID,
		},
		ValidationError: validationErr,
	}
	data, err := json.Marshal(req)
	if err != nil {
		logger.L().Warn("memphis: failed to marshal dls message", "station", p.station.name, "error", err)
		return
	}
	if err := p.client.transport.Publish(subjectSchemaverseDLS, data); err != nil {
		logger.L().Warn("memphis: failed to publish dls message", "station", p.station.name, "error", err)
	}
}

// Destroy unregisters the producer from the broker.
func (p *Producer) Destroy() error {
	raw, err := p.client.sendInternalRequest(subjectProducerDestructions, destroyProducerReq{
		Name:         p.name,
		StationName:  p.station.name,
		ConnectionID: p.client.connectionID,
		Username:     p.client.username,
		ReqVersion:   1,
	})
	if err != nil {
		return err
	}
	return checkReply(raw)
}
