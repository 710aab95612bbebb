package memphis

import "fmt"

// Reserved control-plane subjects. These strings are wire-compatible with
// the broker and must not be altered.
const (
	subjectProducerCreations    = "$memphis_producer_creations"
	subjectProducerDestructions = "$memphis_producer_destructions"
	subjectConsumerCreations    = "$memphis_consumer_creations"
	subjectConsumerDestructions = "$memphis_consumer_destructions"
	subjectStationCreations     = "$memphis_station_creations"
	subjectStationDestructions  = "$memphis_station_destructions"
	subjectSchemaAttachments    = "$memphis_schema_attachments"
	subjectSchemaDetachments    = "$memphis_schema_detachments"
	subjectNotifications        = "$memphis_notifications"
	subjectSchemaverseDLS       = "$memphis_schemaverse_dls"
	subjectPMAcks               = "$memphis_pm_acks"
	subjectSDKClientsUpdates    = "$memphis_sdk_clients_updates"
)

// subjectSchemaUpdates returns the per-station schema hot-swap subject.
func subjectSchemaUpdates(internalStation string) string {
	return fmt.Sprintf("$memphis_schema_updates_%s", internalStation)
}

// subjectDLS returns the per-station, per-durable dead-letter subject. The
// open question of whether <stream> should be the unpartitioned or
// per-partition station name is resolved in DESIGN.md: unpartitioned, since
// that is what every reference revision in the source pack does.
func subjectDLS(internalStream, durable string) string {
	return fmt.Sprintf("$memphis_dls_%s_%s", internalStream, durable)
}

// Retention, storage, and schema type tags (exact wire values).
const (
	RetentionMessageAgeSec = "message_age_sec"
	RetentionMessages      = "messages"
	RetentionBytes         = "bytes"
	RetentionAckBased      = "ack_based"

	StorageFile   = "file"
	StorageMemory = "memory"

	SchemaTypeJSON     = "json"
	SchemaTypeGraphQL  = "graphql"
	SchemaTypeProtobuf = "protobuf"

	notificationSchemaValidationFailAlert = "schema_validation_fail_alert"
)

// createStationReq is the CreateStation control-plane request body.
type createStationReq struct {
	Name                 string              `json:"name"`
	RetentionType        string              `json:"retention_type"`
	RetentionValue       int                 `json:"retention_value"`
	StorageType          string              `json:"storage_type"`
	Replicas             int                 `json:"replicas"`
	IdempotencyWindowMs  int                 `json:"idempotency_window_in_ms"`
	SchemaName           string              `json:"schema_name"`
	DLSConfiguration     dlsConfigurationReq `json:"dls_configuration"`
	Username             string              `json:"username"`
	TieredStorageEnabled bool                `json:"tiered_storage_enabled"`
	PartitionsNumber     int                 `json:"partitions_number"`
}

type dlsConfigurationReq struct {
	Poison      bool `json:"poison"`
	Schemaverse bool `json:"Schemaverse"`
}

// destroyStationReq is the DestroyStation control-plane request body.
type destroyStationReq struct {
	StationName string `json:"station_name"`
	Username    string `json:"username"`
}

// createProducerReq is the CreateProducer control-plane request body.
type createProducerReq struct {
	Name         string `json:"name"`
	StationName  string `json:"station_name"`
	ProducerType string `json:"producer_type"`
	ConnectionID string `json:"connection_id"`
	ReqVersion   int    `json:"req_version"`
	Username     string `json:"username"`
}

// destroyProducerReq is the DestroyProducer control-plane request body.
type destroyProducerReq struct {
	Name         string `json:"name"`
	StationName  string `json:"station_name"`
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username"`
	ReqVersion   int    `json:"req_version"`
}

// createConsumerReq is the CreateConsumer control-plane request body.
type createConsumerReq struct {
	Name                string `json:"name"`
	StationName         string `json:"station_name"`
	ConnectionID        string `json:"connection_id"`
	ConsumerType        string `json:"consumer_type"`
	ConsumersGroup      string `json:"consumers_group"`
	MaxAckTimeMs        int    `json:"max_ack_time_ms"`
	MaxMsgDeliveries    int    `json:"max_msg_deliveries"`
	StartConsumeFromSeq uint64 `json:"start_consume_from_sequence"`
	LastMessages        int64  `json:"last_messages"`
	ReqVersion          int    `json:"req_version"`
	Username            string `json:"username"`
}

// destroyConsumerReq is the DestroyConsumer control-plane request body.
type destroyConsumerReq struct {
	Name         string `json:"name"`
	StationName  string `json:"station_name"`
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username"`
	ReqVersion   int    `json:"req_version"`
}

// notificationReq is the Notification control-plane request body.
type notificationReq struct {
	Title string `json:"title"`
	Msg   string `json:"msg"`
	Type  string `json:"type"`
	Code  string `json:"code"`
}

// pmAckReq is the PmAck (poison-message resend-ack) request body.
type pmAckReq struct {
	ID     string `json:"id"`
	CgName string `json:"cg_name"`
}

// dlsMessageReq is the DlsMessage request body posted to the schemaverse DLS
// subject when a produce call fails schema validation.
type dlsMessageReq struct {
	StationName     string         `json:"station_name"`
	Producer        dlsProducerRef `json:"producer"`
	Message         dlsMessageBody `json:"message"`
	ValidationError string         `json:"validation_error"`
}

type dlsProducerRef struct {
	Name         string `json:"name"`
	ConnectionID string `json:"connection_id"`
}

type dlsMessageBody struct {
	Headers map[string][]string `json:"headers"`
	Payload string              `json:"payload"` // hex-encoded
	MsgID   string              `json:"msg_id"`
}

// genericCreateResp is the shared shape of create responses: either empty
// (legacy broker, meaning "non-partitioned, no schema") or JSON carrying at
// least a partitions update and, for producers, schema/DLS fields.
type genericCreateResp struct {
	Err              string            `json:"error"`
	PartitionsUpdate *partitionsUpdate `json:"partitions_update"`
	SchemaUpdate     *schemaUpdateInit `json:"schema_update"`
	SchemaverseToDLS bool              `json:"schemaverse_to_dls"`
	SendNotification bool              `json:"send_notification"`
}

type partitionsUpdate struct {
	PartitionsList []int `json:"partitions_list"`
}

// schemaUpdateInit mirrors the schema-update subscription payload and the
// schema_update field embedded in a producer create response.
type schemaUpdateInit struct {
	SchemaName    string        `json:"schema_name"`
	ActiveVersion schemaVersion `json:"active_version"`
	Type          string        `json:"type"`
}

type schemaVersion struct {
	VersionNumber int    `json:"version_number"`
	Descriptor    string `json:"descriptor"`
	SchemaContent string `json:"schema_content"`
	StructName    string `json:"message_struct_name"`
}

// schemaUpdateEvent is what arrives on the per-station schema-update subject.
type schemaUpdateEvent struct {
	UpdateType int              `json:"UpdateType"`
	Init       schemaUpdateInit `json:"init"`
}
