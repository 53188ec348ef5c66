package outputs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusSchema = `{"required":["status"],"additionalProperties":false,"properties":{"status":{}}}`

func TestMinimalStrategy_StatusSchema(t *testing.T) {
	var s MinimalStrategy

	assert.Equal(t, []string{"unexpected field 'extra'"},
		s.Validate([]byte(statusSchema), []byte(`{"status":"ok","extra":1}`)))
	assert.Empty(t, s.Validate([]byte(statusSchema), []byte(`{"status":"ok"}`)))
}

func TestMinimalStrategy(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		output string
		want   []string
	}{
		{
			name:   "missing required",
			schema: `{"required":["intent","confidence"]}`,
			output: `{"intent":"led.on"}`,
			want:   []string{"missing required field 'confidence'"},
		},
		{
			name:   "missing and unexpected, unexpected sorted",
			schema: `{"required":["a"],"additionalProperties":false,"properties":{"a":{},"b":{}}}`,
			output: `{"z":1,"b":2,"c":3}`,
			want:   []string{"missing required field 'a'", "unexpected field 'c'", "unexpected field 'z'"},
		},
		{
			name:   "additional properties allowed by default",
			schema: `{"properties":{"a":{}}}`,
			output: `{"a":1,"b":2}`,
		},
		{
			name:   "additional properties schema is not false",
			schema: `{"additionalProperties":{"type":"string"},"properties":{}}`,
			output: `{"b":2}`,
		},
		{
			name:   "closed without properties rejects everything",
			schema: `{"additionalProperties":false}`,
			output: `{"a":1}`,
			want:   []string{"unexpected field 'a'"},
		},
		{
			// Types are not checked.
			name:   "type mismatch passes",
			schema: `{"required":["n"],"properties":{"n":{"type":"integer"}}}`,
			output: `{"n":"not a number"}`,
		},
		{
			name:   "nothing to check on non-object output",
			schema: `{"type":"string"}`,
			output: `"hello"`,
		},
		{
			name:   "non-object output",
			schema: `{"required":["a"]}`,
			output: `[1]`,
			want:   []string{"output is not a JSON object"},
		},
		{
			name:   "non-object schema",
			schema: `true`,
			output: `{}`,
			want:   []string{"schema is not a JSON object"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinimalStrategy{}.Validate([]byte(tt.schema), []byte(tt.output))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectStrategy(t *testing.T) {
	s, err := SelectStrategy(StrategyMinimal)
	require.NoError(t, err)
	assert.Equal(t, StrategyMinimal, s.Name())

	_, err = SelectStrategy("strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"strict"`)
}
