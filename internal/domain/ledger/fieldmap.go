package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// TransformType
// ---------------------------------------------------------------------------

// TransformType names a value transform applied while mapping a field
// between the local schema and the ledger system's schema.
type TransformType string

const (
	// TransformNone copies the value unchanged
	TransformNone TransformType = "none"
	// TransformUppercase upper-cases a string value
	TransformUppercase TransformType = "uppercase"
	// TransformLowercase lower-cases a string value
	TransformLowercase TransformType = "lowercase"
	// TransformTrim strips surrounding whitespace
	TransformTrim TransformType = "trim"
	// TransformPrefix prepends the transform argument
	TransformPrefix TransformType = "prefix"
	// TransformSuffix appends the transform argument
	TransformSuffix TransformType = "suffix"
	// TransformDateFormat reformats a timestamp using the argument as a
	// Go reference layout for the output
	TransformDateFormat TransformType = "date_format"
	// TransformDecimalScale rounds a numeric value to the scale given by
	// the argument
	TransformDecimalScale TransformType = "decimal_scale"
)

// IsValid returns true if the transform type is valid
func (t TransformType) IsValid() bool {
	switch t {
	case TransformNone, TransformUppercase, TransformLowercase, TransformTrim,
		TransformPrefix, TransformSuffix, TransformDateFormat, TransformDecimalScale:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// FieldMapping
// ---------------------------------------------------------------------------

// FieldMapping maps one local field to one remote field for an entity type,
// with an optional value transform. Mappings apply in both directions; the
// transform runs on push, and pull copies the raw remote value back.
type FieldMapping struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     EntityType
	LocalField     string
	RemoteField    string
	Transform      TransformType
	// TransformArg parameterizes prefix, suffix, date_format and
	// decimal_scale transforms; unused otherwise.
	TransformArg string
	Required     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Apply runs the mapping's transform over a raw JSON value and returns the
// transformed value. Null values pass through untouched.
func (f *FieldMapping) Apply(raw json.RawMessage) (json.RawMessage, error) {
	if f.Transform == TransformNone || f.Transform == "" || string(raw) == "null" {
		return raw, nil
	}

	switch f.Transform {
	case TransformUppercase, TransformLowercase, TransformTrim, TransformPrefix, TransformSuffix:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: field %s expects a string for %s", ErrLedgerValidation, f.LocalField, f.Transform)
		}
		switch f.Transform {
		case TransformUppercase:
			s = strings.ToUpper(s)
		case TransformLowercase:
			s = strings.ToLower(s)
		case TransformTrim:
			s = strings.TrimSpace(s)
		case TransformPrefix:
			s = f.TransformArg + s
		case TransformSuffix:
			s = s + f.TransformArg
		}
		return json.Marshal(s)

	case TransformDateFormat:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: field %s expects a timestamp string", ErrLedgerValidation, f.LocalField)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrLedgerValidation, f.LocalField, err)
		}
		layout := f.TransformArg
		if layout == "" {
			layout = "2006-01-02"
		}
		return json.Marshal(t.Format(layout))

	case TransformDecimalScale:
		var num json.Number
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		if err := dec.Decode(&num); err != nil {
			return nil, fmt.Errorf("%w: field %s expects a number", ErrLedgerValidation, f.LocalField)
		}
		d, err := decimal.NewFromString(num.String())
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrLedgerValidation, f.LocalField, err)
		}
		scale := int32(2)
		if f.TransformArg != "" {
			var n int
			if _, err := fmt.Sscanf(f.TransformArg, "%d", &n); err == nil {
				scale = int32(n)
			}
		}
		return json.RawMessage(d.Round(scale).String()), nil

	default:
		return raw, nil
	}
}

// MapPayload projects a local payload onto the remote schema using the
// given field mappings. Fields without a mapping are dropped; a missing
// required field fails validation.
func MapPayload(payload json.RawMessage, mappings []FieldMapping) (json.RawMessage, error) {
	var src map[string]json.RawMessage
	if err := json.Unmarshal(payload, &src); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrLedgerValidation)
	}
	dst := make(map[string]json.RawMessage, len(mappings))
	for i := range mappings {
		m := &mappings[i]
		raw, ok := src[m.LocalField]
		if !ok || string(raw) == "null" {
			if m.Required {
				return nil, fmt.Errorf("%w: required field %s missing", ErrLedgerValidation, m.LocalField)
			}
			continue
		}
		out, err := m.Apply(raw)
		if err != nil {
			return nil, err
		}
		dst[m.RemoteField] = out
	}
	return json.Marshal(dst)
}

// UnmapPayload projects a remote payload back onto the local schema. Pull
// copies values verbatim; transforms are push-side only.
func UnmapPayload(payload json.RawMessage, mappings []FieldMapping) (json.RawMessage, error) {
	var src map[string]json.RawMessage
	if err := json.Unmarshal(payload, &src); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrLedgerValidation)
	}
	dst := make(map[string]json.RawMessage, len(mappings))
	for i := range mappings {
		m := &mappings[i]
		if raw, ok := src[m.RemoteField]; ok {
			dst[m.LocalField] = raw
		}
	}
	return json.Marshal(dst)
}

// ---------------------------------------------------------------------------
// FieldMappingRepository port
// ---------------------------------------------------------------------------

// FieldMappingRepository is the port for field mapping configuration.
type FieldMappingRepository interface {
	ListByEntityType(ctx context.Context, orgID uuid.UUID, entityType EntityType) ([]FieldMapping, error)
	Replace(ctx context.Context, orgID uuid.UUID, entityType EntityType, mappings []FieldMapping) error
}
