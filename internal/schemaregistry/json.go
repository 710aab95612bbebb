package schemaregistry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type jsonValidator struct {
	name   string
	loader gojsonschema.JSONLoader
}

func newJSONValidator(name, content string) (*jsonValidator, error) {
	loader := gojsonschema.NewStringLoader(content)
	// Compile eagerly so a malformed schema fails at bind time rather than
	// surfacing as a confusing validation error on the first produce call.
	if _, err := gojsonschema.NewSchema(loader); err != nil {
		return nil, fmt.Errorf("compile json schema %q: %w", name, err)
	}
	return &jsonValidator{name: name, loader: loader}, nil
}

func (v *jsonValidator) Validate(payload []byte) error {
	result, err := gojsonschema.Validate(v.loader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("json schema %q: %w", v.name, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("payload failed json schema %q: %s", v.name, strings.Join(msgs, "; "))
	}
	return nil
}

func (v *jsonValidator) Name() string { return v.name }
func (v *jsonValidator) Type() string { return "json" }
