// Package schemaregistry builds pluggable payload validators from a
// station's schema-update payload: JSON Schema Draft 7, a shallow GraphQL
// SDL check, and protobuf via a compiled FileDescriptorProto.
package schemaregistry

import "fmt"

// Validator validates produced payloads against a bound schema.
type Validator interface {
	Validate(payload []byte) error
	Name() string
	Type() string
}

// New builds a Validator for the given schema type. content is the raw
// schema source (JSON Schema text, or GraphQL SDL); descriptor and
// structName are protobuf-only: descriptor is a base64-encoded
// FileDescriptorProto and structName names the message type to validate
// against within it.
func New(schemaType, name, content, descriptor, structName string) (Validator, error) {
	switch schemaType {
	case "json":
		return newJSONValidator(name, content)
	case "protobuf":
		return newProtobufValidator(name, descriptor, structName)
	case "graphql":
		return newGraphQLValidator(name, content)
	default:
		return nil, fmt.Errorf("unsupported schema type: %q", schemaType)
	}
}
