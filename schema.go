package memphis

import "github.com/memphisdev/memphis.go/internal/schemaregistry"

// SchemaBinding is a station's current validator plus the name and type tag
// it was constructed from. Nil means the station has no bound schema.
type SchemaBinding struct {
	Name      string
	Type      string
	validator schemaregistry.Validator
}

func newSchemaBinding(evt schemaUpdateInit) (*SchemaBinding, error) {
	v, err := schemaregistry.New(evt.Type, evt.SchemaName, evt.ActiveVersion.SchemaContent, evt.ActiveVersion.Descriptor, evt.ActiveVersion.StructName)
	if err != nil {
		return nil, err
	}
	return &SchemaBinding{Name: evt.SchemaName, Type: evt.Type, validator: v}, nil
}

// Validate runs payload through the bound validator.
func (b *SchemaBinding) Validate(payload []byte) error {
	if b == nil || b.validator == nil {
		return nil
	}
	return b.validator.Validate(payload)
}
