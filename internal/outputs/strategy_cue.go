//go:build !nocue

package outputs

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/jsonschema"
)

// StrategyCUE is the Name of CUEStrategy.
const StrategyCUE = "cue"

func fullStrategy() (Strategy, bool) {
	return NewCUEStrategy(), true
}

// CUEStrategy validates outputs with CUE's JSON Schema support. The schema
// is converted to a CUE value, unified with the output, and the result must
// be concrete and error-free.
//
// It is stricter than plain JSON Schema in two places:
//   - "format" is asserted, not just annotated ("nope" fails
//     "format": "date-time")
//   - "type": "integer" rejects numbers written with a fraction, so 1.0
//     fails even though JSON Schema treats it as an integer
//
// Not safe for concurrent use.
type CUEStrategy struct {
	ctx      *cue.Context
	compiled map[string]compiledSchema
}

type compiledSchema struct {
	value cue.Value
	err   error
}

// NewCUEStrategy creates a CUEStrategy with its own CUE context.
func NewCUEStrategy() *CUEStrategy {
	return &CUEStrategy{
		ctx:      cuecontext.New(),
		compiled: make(map[string]compiledSchema),
	}
}

// Name implements Strategy.
func (s *CUEStrategy) Name() string { return StrategyCUE }

// Validate implements Strategy.
func (s *CUEStrategy) Validate(schema, output []byte) []string {
	sv, err := s.compile(schema)
	if err != nil {
		return []string{fmt.Sprintf("compile schema: %v", err)}
	}

	expr, err := cuejson.Extract("output", output)
	if err != nil {
		return []string{fmt.Sprintf("decode output: %v", err)}
	}
	data := s.ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return []string{fmt.Sprintf("decode output: %v", err)}
	}

	if err := sv.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return cueMessages(err)
	}
	return nil
}

// compile converts a JSON Schema document to a CUE value, memoized by the
// schema's bytes.
func (s *CUEStrategy) compile(schema []byte) (cue.Value, error) {
	key := string(schema)
	if c, ok := s.compiled[key]; ok {
		return c.value, c.err
	}

	v, err := s.build(schema)
	s.compiled[key] = compiledSchema{value: v, err: err}
	return v, err
}

func (s *CUEStrategy) build(schema []byte) (cue.Value, error) {
	expr, err := cuejson.Extract("schema.json", schema)
	if err != nil {
		return cue.Value{}, err
	}
	raw := s.ctx.BuildExpr(expr)
	if err := raw.Err(); err != nil {
		return cue.Value{}, err
	}

	file, err := jsonschema.Extract(raw, &jsonschema.Config{})
	if err != nil {
		return cue.Value{}, err
	}
	v := s.ctx.BuildFile(file)
	if err := v.Err(); err != nil {
		return cue.Value{}, err
	}
	return v, nil
}

// cueMessages flattens a CUE error list into distinct messages.
func cueMessages(err error) []string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []string{err.Error()}
	}

	seen := make(map[string]bool, len(errs))
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Error()
		if seen[msg] {
			continue
		}
		seen[msg] = true
		msgs = append(msgs, msg)
	}
	return msgs
}
