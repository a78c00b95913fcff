// Package schemas validates reference documents, such as the role catalog,
// against JSON Schemas embedded in the binary.
package schemas

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFS embed.FS

// RoleCatalog is the schema of the job requirement catalog file.
const RoleCatalog = "role_catalog.schema.json"

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// Violation is one schema failure at a dotted field path.
type Violation struct {
	Field   string
	Message string
}

// Error reports every violation of a document, ordered by field.
type Error struct {
	Schema     string
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("document does not match %s: %s", e.Schema, strings.Join(parts, "; "))
}

// LoadError means the schema itself is missing or malformed.
type LoadError struct {
	Schema string
	Cause  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load schema %s: %v", e.Schema, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Validate checks document against the named embedded schema. Schemas are
// compiled once and reused.
func Validate(name string, document []byte) error {
	schema, err := load(name)
	if err != nil {
		return err
	}
	return check(name, schema, gojsonschema.NewBytesLoader(document))
}

// ValidateWith checks document against an inline schema that is compiled
// on every call.
func ValidateWith(schemaJSON, document []byte) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return &LoadError{Schema: "(inline)", Cause: err}
	}
	return check("(inline)", schema, gojsonschema.NewBytesLoader(document))
}

func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, &LoadError{Schema: name, Cause: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &LoadError{Schema: name, Cause: err}
	}
	compiled[name] = s
	return s, nil
}

func check(name string, schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) error {
	result, err := schema.Validate(doc)
	if err != nil {
		// The document is not parseable JSON.
		return &Error{Schema: name, Violations: []Violation{{Field: "(root)", Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}
	out := &Error{Schema: name}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		out.Violations = append(out.Violations, Violation{Field: field, Message: desc.Description()})
	}
	sort.SliceStable(out.Violations, func(i, j int) bool {
		return out.Violations[i].Field < out.Violations[j].Field
	})
	return out
}
