package outputs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Strategy validates one output document against one JSON Schema.
//
// Both arguments are raw JSON. Validate returns one message per violation;
// an empty result means the output passed.
type Strategy interface {
	Name() string
	Validate(schema, output []byte) []string
}

// Strategy names accepted by SelectStrategy.
const (
	StrategyAuto    = "auto"
	StrategyFull    = "full"
	StrategyMinimal = "minimal"
)

// ErrFullUnavailable is returned by SelectStrategy when the full validator
// was not compiled in (nocue build tag).
var ErrFullUnavailable = errors.New("full schema validation is not available in this build")

// SelectStrategy picks the validation strategy for a run. "auto" (or "")
// prefers the full validator and falls back to MinimalStrategy.
func SelectStrategy(name string) (Strategy, error) {
	switch name {
	case "", StrategyAuto:
		if s, ok := fullStrategy(); ok {
			return s, nil
		}
		return MinimalStrategy{}, nil
	case StrategyFull:
		s, ok := fullStrategy()
		if !ok {
			return nil, ErrFullUnavailable
		}
		return s, nil
	case StrategyMinimal:
		return MinimalStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown validation strategy %q (want auto, full or minimal)", name)
	}
}

// MinimalStrategy is a deliberately incomplete approximation of JSON Schema
// validation, used when no full validator is available. It checks only the
// top level of the output:
//
//   - every name in the schema's "required" array is present
//   - if "additionalProperties" is false, every output member is declared
//     in "properties"
//
// It does NOT check types, formats, enums, patterns, numeric bounds,
// nested schemas, $ref, or composition keywords (allOf, anyOf, oneOf). An
// output accepted by MinimalStrategy may still be rejected by a full
// validator.
type MinimalStrategy struct{}

// Name implements Strategy.
func (MinimalStrategy) Name() string { return StrategyMinimal }

// Validate implements Strategy.
func (MinimalStrategy) Validate(schema, output []byte) []string {
	var s map[string]any
	if err := decode(schema, &s); err != nil || s == nil {
		return []string{"schema is not a JSON object"}
	}

	var required []string
	if list, ok := s["required"].([]any); ok {
		for _, name := range list {
			if str, ok := name.(string); ok {
				required = append(required, str)
			}
		}
	}
	closed := s["additionalProperties"] == false
	props, _ := s["properties"].(map[string]any)

	if len(required) == 0 && !closed {
		return nil
	}

	var out map[string]any
	if err := decode(output, &out); err != nil || out == nil {
		return []string{"output is not a JSON object"}
	}

	var msgs []string
	for _, name := range required {
		if _, ok := out[name]; !ok {
			msgs = append(msgs, fmt.Sprintf("missing required field '%s'", name))
		}
	}
	if closed {
		names := make([]string, 0, len(out))
		for name := range out {
			if _, declared := props[name]; !declared {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			msgs = append(msgs, fmt.Sprintf("unexpected field '%s'", name))
		}
	}
	return msgs
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
