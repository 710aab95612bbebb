package schemaregistry

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

type protobufValidator struct {
	name    string
	msgDesc protoreflect.MessageDescriptor
}

func newProtobufValidator(name, descriptorB64, structName string) (*protobufValidator, error) {
	raw, err := base64.StdEncoding.DecodeString(descriptorB64)
	if err != nil {
		return nil, fmt.Errorf("decode protobuf descriptor for %q: %w", name, err)
	}

	var fdProto descriptorpb.FileDescriptorProto
	if err := proto.Unmarshal(raw, &fdProto); err != nil {
		return nil, fmt.Errorf("unmarshal protobuf file descriptor for %q: %w", name, err)
	}

	fd, err := protodesc.NewFile(&fdProto, protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("build protobuf file descriptor for %q: %w", name, err)
	}

	md := fd.Messages().ByName(protoreflect.Name(structName))
	if md == nil {
		return nil, fmt.Errorf("message %q not found in protobuf schema %q", structName, name)
	}

	return &protobufValidator{name: name, msgDesc: md}, nil
}

// Validate unmarshals payload against the bound message descriptor using a
// dynamic message, since the produced Go type is unknown to this package.
// A successful unmarshal is the closest analogue to "conforms to schema"
// that wire-format protobuf offers; it does not reject unknown fields.
func (v *protobufValidator) Validate(payload []byte) error {
	msg := dynamicpb.NewMessage(v.msgDesc)
	if err := proto.Unmarshal(payload, msg); err != nil {
		return fmt.Errorf("payload does not conform to protobuf schema %q: %w", v.name, err)
	}
	return nil
}

func (v *protobufValidator) Name() string { return v.name }
func (v *protobufValidator) Type() string { return "protobuf" }
