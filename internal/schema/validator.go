// Package schema validates assembled sync documents against the published
// metrics-sync JSON Schema before anything is handed to the transport layer.
//
// The schema is embedded verbatim as published. It contains two known typos
// that are preserved for wire compatibility: the numeric filter variant
// spells its comparison-operator field "opertaion", and the top-level
// reference_url property declares its type under a non-standard "types" key
// (which draft-07 validators ignore, leaving that field unconstrained).
// Do not normalize either without confirming what the remote service accepts.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed eppo_schema.json
var schemaJSON []byte

const schemaResource = "eppo_schema.json"

// Violation is one schema violation, addressed by JSON pointer.
type Violation struct {
	// InstancePointer locates the offending value in the document
	InstancePointer string
	// Message names the violated constraint
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.InstancePointer, v.Message)
}

// SchemaValidationError aggregates every violation found in a document, not
// just the first, so one run reports everything there is to fix.
type SchemaValidationError struct {
	Violations []Violation
}

func (e *SchemaValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "document failed schema validation with %d violation(s):", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Validator validates documents against the embedded schema.
type Validator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("embedded schema is not valid JSON: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("failed to register schema resource: %w", err)
	}
	compiled, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{
		schema:  compiled,
		printer: message.NewPrinter(language.English),
	}, nil
}

// Validate checks the document against the schema. The document is
// round-tripped through its JSON encoding so validation sees exactly what
// would go over the wire.
func (v *Validator) Validate(doc any) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return v.ValidateJSON(encoded)
}

// ValidateJSON checks raw JSON bytes against the schema.
func (v *Validator) ValidateJSON(data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}

	out := &SchemaValidationError{}
	v.collect(ve, out)
	return out
}

// collect flattens the validation error tree into leaf violations.
func (v *Validator) collect(ve *jsonschema.ValidationError, out *SchemaValidationError) {
	if len(ve.Causes) == 0 {
		out.Violations = append(out.Violations, Violation{
			InstancePointer: pointer(ve.InstanceLocation),
			Message:         ve.ErrorKind.LocalizedString(v.printer),
		})
		return
	}
	for _, cause := range ve.Causes {
		v.collect(cause, out)
	}
}

// pointer renders instance location segments as a JSON pointer.
func pointer(segments []string) string {
	if len(segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		s = strings.ReplaceAll(s, "~", "~0")
		s = strings.ReplaceAll(s, "/", "~1")
		b.WriteString(s)
	}
	return b.String()
}
