package memphis

import (
	"strconv"

	appErrors "github.com/memphisdev/memphis.go/pkg/errors"
)

// Error codes surfaced by this package. Every operation that can fail
// returns an *appErrors.AppError carrying one of these codes, so callers
// can branch on Code without string-matching Error().
const (
	CodeTransport            = "MEMPHIS_TRANSPORT"
	CodeNotConnected         = "MEMPHIS_NOT_CONNECTED"
	CodeBrokerError          = "MEMPHIS_BROKER_ERROR"
	CodeProtocol             = "MEMPHIS_PROTOCOL"
	CodeInvalidSequence      = "MEMPHIS_INVALID_SEQUENCE"
	CodePayloadEmpty         = "MEMPHIS_PAYLOAD_EMPTY"
	CodePartitionNotValid    = "MEMPHIS_PARTITION_NOT_VALID"
	CodePartitionRequired    = "MEMPHIS_PARTITION_REQUIRED"
	CodePartitionUnavailable = "MEMPHIS_PARTITION_UNAVAILABLE"
	CodeSchemaValidation     = "MEMPHIS_SCHEMA_VALIDATION"
	CodeInvalidResponse      = "MEMPHIS_INVALID_RESPONSE"
)

// ErrTransport wraps a failure from the underlying NATS connect/publish/request call.
func ErrTransport(err error) *appErrors.AppError {
	return appErrors.New(CodeTransport, "transport failure", err)
}

// ErrNotConnected is returned when an operation is attempted on a closed or never-connected Conn.
func ErrNotConnected() *appErrors.AppError {
	return appErrors.New(CodeNotConnected, "not connected to the broker", nil)
}

// ErrBrokerError wraps a non-empty error field in a broker reply.
func ErrBrokerError(msg string) *appErrors.AppError {
	return appErrors.New(CodeBrokerError, msg, nil)
}

// ErrProtocol is returned when a broker reply is neither empty nor valid JSON with an error field.
func ErrProtocol(raw []byte) *appErrors.AppError {
	return appErrors.New(CodeProtocol, "malformed broker reply: "+string(raw), nil)
}

// ErrInvalidSequence is returned when a consumer is created with a non-positive start sequence.
func ErrInvalidSequence(seq uint64) *appErrors.AppError {
	return appErrors.New(CodeInvalidSequence, "startConsumeFromSequence must be >= 1, got "+strconv.FormatUint(seq, 10), nil)
}

// ErrPayloadEmpty is returned when Produce is called with zero-length bytes.
func ErrPayloadEmpty() *appErrors.AppError {
	return appErrors.New(CodePayloadEmpty, "message payload must not be empty", nil)
}

// ErrPartitionNotValid is returned when ProduceToPartition names a partition the station does not expose.
func ErrPartitionNotValid(partition int) *appErrors.AppError {
	return appErrors.New(CodePartitionNotValid, "partition not valid for this station: "+strconv.Itoa(partition), nil)
}

// ErrPartitionRequired is returned when a partition is given against an unpartitioned station.
func ErrPartitionRequired() *appErrors.AppError {
	return appErrors.New(CodePartitionRequired, "station is not partitioned; omit the partition argument", nil)
}

// ErrPartitionUnavailable is returned when producing to a station whose partition list is empty.
func ErrPartitionUnavailable() *appErrors.AppError {
	return appErrors.New(CodePartitionUnavailable, "no partitions available on this station", nil)
}

// ErrSchemaValidation wraps a validator rejection of a produced payload.
func ErrSchemaValidation(detail string) *appErrors.AppError {
	return appErrors.New(CodeSchemaValidation, detail, nil)
}

// ErrInvalidResponse is returned when a create response is non-empty but not parseable JSON.
func ErrInvalidResponse(raw []byte) *appErrors.AppError {
	return appErrors.New(CodeInvalidResponse, "unparseable create response: "+string(raw), nil)
}
