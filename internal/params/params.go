// Package params validates and coerces raw form fields into typed parameters
// against an endpoint-supplied schema. Integer parsing is strict: empty or
// non-numeric input counts as "missing", never as zero, so a required int
// field fails validation instead of silently passing a zero ID through.
package params

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Type is the expected shape of a form field.
type Type int

const (
	String Type = iota
	Int
	Bool
	IntList
)

// Field describes one schema entry.
type Field struct {
	Name     string
	Type     Type
	Required bool
	Default  interface{}
	Message  string
}

// Schema is the ordered list of fields an endpoint accepts.
type Schema []Field

// ValidationError reports the first field that failed extraction.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Params holds extracted values keyed by field name. Optional fields with no
// default are simply absent.
type Params struct {
	values map[string]interface{}
}

func (e *ValidationError) defaulted(field Field) *ValidationError {
	if field.Message != "" {
		e.Message = field.Message
	}
	return e
}

func missing(field Field) *ValidationError {
	return (&ValidationError{Field: field.Name, Message: field.Name + " is required."}).defaulted(field)
}

// Extract reads the request's form fields (including multipart) and coerces
// them per the schema.
func Extract(c *gin.Context, schema Schema) (*Params, *ValidationError) {
	p := &Params{values: make(map[string]interface{}, len(schema))}

	for _, field := range schema {
		switch field.Type {
		case IntList:
			raw, ok := c.GetPostFormArray(field.Name)
			if !ok || len(raw) == 0 {
				if field.Required {
					return nil, missing(field)
				}
				continue
			}
			ids := make([]uint64, 0, len(raw))
			for _, v := range raw {
				n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
				if err != nil {
					return nil, missing(field)
				}
				ids = append(ids, n)
			}
			p.values[field.Name] = ids

		case Int:
			raw, ok := c.GetPostForm(field.Name)
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				if field.Required {
					return nil, missing(field)
				}
				if field.Default != nil {
					p.values[field.Name] = toInt64(field.Default)
				}
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				// Malformed numeric input is treated as missing, not zero.
				if field.Required {
					return nil, missing(field)
				}
				if field.Default != nil {
					p.values[field.Name] = toInt64(field.Default)
				}
				continue
			}
			p.values[field.Name] = n

		case Bool:
			raw, ok := c.GetPostForm(field.Name)
			if !ok || raw == "" {
				if field.Required {
					return nil, missing(field)
				}
				if field.Default != nil {
					p.values[field.Name] = field.Default.(bool)
				}
				continue
			}
			p.values[field.Name] = raw == "1" || strings.EqualFold(raw, "true") || strings.EqualFold(raw, "on")

		default: // String
			raw, ok := c.GetPostForm(field.Name)
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				if field.Required {
					return nil, missing(field)
				}
				if field.Default != nil {
					p.values[field.Name] = field.Default.(string)
				}
				continue
			}
			p.values[field.Name] = raw
		}
	}

	return p, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

// Has reports whether a value was extracted for the field.
func (p *Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// String returns the string value for the field, or "" when absent.
func (p *Params) String(name string) string {
	if v, ok := p.values[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the int value for the field, or 0 when absent. Prefer
// OptionalUint for ID fields so absence is explicit.
func (p *Params) Int(name string) int {
	if v, ok := p.values[name].(int64); ok {
		return int(v)
	}
	return 0
}

// Uint returns the field as an unsigned ID. Negative values count as absent.
func (p *Params) Uint(name string) uint64 {
	v, _ := p.OptionalUint(name)
	return v
}

// OptionalUint returns the field as an unsigned ID along with whether it was
// present and non-negative.
func (p *Params) OptionalUint(name string) (uint64, bool) {
	v, ok := p.values[name].(int64)
	if !ok || v < 0 {
		return 0, false
	}
	return uint64(v), true
}

// Bool returns the bool value for the field, or false when absent.
func (p *Params) Bool(name string) bool {
	if v, ok := p.values[name].(bool); ok {
		return v
	}
	return false
}

// UintList returns the list value for the field.
func (p *Params) UintList(name string) []uint64 {
	if v, ok := p.values[name].([]uint64); ok {
		return v
	}
	return nil
}
