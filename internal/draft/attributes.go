package draft

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

// AttributeValue is one typed product attribute. The concrete types are
// TextValue, NumberValue, SelectValue and BooleanValue.
type AttributeValue interface {
	Type() string
	Raw() any
}

type (
	TextValue    string
	NumberValue  float64
	SelectValue  string
	BooleanValue bool
)

func (TextValue) Type() string    { return domain.AttributeText }
func (NumberValue) Type() string  { return domain.AttributeNumber }
func (SelectValue) Type() string  { return domain.AttributeSelect }
func (BooleanValue) Type() string { return domain.AttributeBoolean }

func (v TextValue) Raw() any    { return string(v) }
func (v NumberValue) Raw() any  { return float64(v) }
func (v SelectValue) Raw() any  { return string(v) }
func (v BooleanValue) Raw() any { return bool(v) }

// AttributeValues maps attribute names to typed values.
type AttributeValues map[string]AttributeValue

// Raw flattens the values into the plain map the backend expects.
func (v AttributeValues) Raw() map[string]any {
	out := make(map[string]any, len(v))
	for name, value := range v {
		out[name] = value.Raw()
	}
	return out
}

// DefaultAttributeValues pre-fills every required attribute of schema.
func DefaultAttributeValues(schema []domain.CategoryAttribute) AttributeValues {
	out := AttributeValues{}
	for _, attr := range schema {
		if !attr.Required {
			continue
		}
		switch attr.Type {
		case domain.AttributeText:
			out[attr.Name] = TextValue("")
		case domain.AttributeNumber:
			out[attr.Name] = NumberValue(0)
		case domain.AttributeBoolean:
			out[attr.Name] = BooleanValue(false)
		case domain.AttributeSelect:
			if len(attr.Options) > 0 {
				out[attr.Name] = SelectValue(attr.Options[0])
			}
		}
	}
	return out
}

// ParseAttributeValues converts a decoded JSON bag into typed values using the
// attribute types declared by schema. Names the schema does not declare are
// rejected.
func ParseAttributeValues(schema []domain.CategoryAttribute, raw map[string]any) (AttributeValues, error) {
	byName := make(map[string]domain.CategoryAttribute, len(schema))
	for _, attr := range schema {
		byName[attr.Name] = attr
	}
	out := make(AttributeValues, len(raw))
	for name, value := range raw {
		attr, ok := byName[name]
		if !ok {
			return nil, reject(CodeInvalidAttribute, "unknown attribute %q", name)
		}
		if value == nil {
			continue
		}
		typed, err := toAttributeValue(attr, value)
		if err != nil {
			return nil, err
		}
		out[name] = typed
	}
	return out, nil
}

func toAttributeValue(attr domain.CategoryAttribute, value any) (AttributeValue, error) {
	switch attr.Type {
	case domain.AttributeText:
		if s, ok := value.(string); ok {
			return TextValue(s), nil
		}
	case domain.AttributeSelect:
		if s, ok := value.(string); ok {
			return SelectValue(s), nil
		}
	case domain.AttributeBoolean:
		if b, ok := value.(bool); ok {
			return BooleanValue(b), nil
		}
	case domain.AttributeNumber:
		switch n := value.(type) {
		case float64:
			return NumberValue(n), nil
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return NumberValue(f), nil
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return NumberValue(f), nil
			}
		}
	}
	return nil, reject(CodeInvalidAttribute, "%s must be a %s value", labelOf(attr), attr.Type)
}

func labelOf(attr domain.CategoryAttribute) string {
	if attr.Label != "" {
		return attr.Label
	}
	return attr.Name
}

// ValidateAttributeValues checks values against schema. A required boolean is
// satisfied by false.
func ValidateAttributeValues(schema []domain.CategoryAttribute, values AttributeValues) error {
	for _, attr := range schema {
		value, present := values[attr.Name]
		if !present {
			if attr.Required {
				return reject(CodeInvalidAttribute, "%s is required", labelOf(attr))
			}
			continue
		}
		if value.Type() != attr.Type {
			return reject(CodeInvalidAttribute, "%s must be a %s value", labelOf(attr), attr.Type)
		}
		if err := validateValue(attr, value); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(attr domain.CategoryAttribute, value AttributeValue) error {
	switch v := value.(type) {
	case TextValue:
		s := strings.TrimSpace(string(v))
		if s == "" {
			if attr.Required {
				return reject(CodeInvalidAttribute, "%s is required", labelOf(attr))
			}
			return nil
		}
		if attr.Validation != nil && attr.Validation.Pattern != "" {
			re, err := regexp.Compile(attr.Validation.Pattern)
			if err == nil && !re.MatchString(s) {
				return reject(CodeInvalidAttribute, "%s has an invalid format", labelOf(attr))
			}
		}
	case SelectValue:
		if v == "" {
			if attr.Required {
				return reject(CodeInvalidAttribute, "%s is required", labelOf(attr))
			}
			return nil
		}
		if !slices.Contains(attr.Options, string(v)) {
			return reject(CodeInvalidAttribute, "%q is not an option of %s", string(v), labelOf(attr))
		}
	case NumberValue:
		if val := attr.Validation; val != nil {
			if val.Min != nil && float64(v) < *val.Min {
				return reject(CodeInvalidAttribute, "%s must be at least %s", labelOf(attr), strconv.FormatFloat(*val.Min, 'f', -1, 64))
			}
			if val.Max != nil && float64(v) > *val.Max {
				return reject(CodeInvalidAttribute, "%s must be at most %s", labelOf(attr), strconv.FormatFloat(*val.Max, 'f', -1, 64))
			}
		}
	case BooleanValue:
	}
	return nil
}
