package schemaregistry

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

type graphqlValidator struct {
	name   string
	schema *ast.Schema
}

func newGraphQLValidator(name, content string) (*graphqlValidator, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: content})
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema %q: %w", name, err)
	}
	return &graphqlValidator{name: name, schema: schema}, nil
}

// Validate only confirms the payload is non-empty. This client does not
// execute GraphQL documents against the schema, so it cannot deep-validate
// a produced payload the way the JSON validator does; that mirrors the
// shallow graphql support the source SDKs ship.
func (v *graphqlValidator) Validate(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty payload against graphql schema %q", v.name)
	}
	return nil
}

func (v *graphqlValidator) Name() string { return v.name }
func (v *graphqlValidator) Type() string { return "graphql" }
