package intelligence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStructured(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"strict", `{"summary":"plain"}`, "plain", false},
		{"strict with whitespace", "\n  {\"summary\":\"ws\"}\n", "ws", false},
		{"json fence", "Here you go:\n```json\n{\"summary\":\"tagged\"}\n```\nThanks", "tagged", false},
		{"bare fence", "```\n{\"summary\":\"bare\"}\n```", "bare", false},
		{"single line fence", "```{\"summary\":\"inline\"}```", "inline", false},
		{"single line json fence", "```json {\"summary\": \"x\"}```", "x", false},
		{"single line json fence no space", "```json{\"summary\":\"tight\"}```", "tight", false},
		{"inline tag then newline", "```json {\"summary\":\"split\"}\n```", "split", false},
		{"first fence wins", "```json\n{\"summary\":\"first\"}\n```\n```json\n{\"summary\":\"second\"}\n```", "first", false},
		{"prose", "The conversation was about pricing.", "", true},
		{"broken fence", "```json\n{\"summary\":", "", true},
		{"invalid json in fence", "```json\nnot json\n```", "", true},
		{"empty", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Summary string `json:"summary"`
			}
			err := decodeStructured(tt.text, &out)
			if tt.wantErr {
				require.ErrorIs(t, err, errNotStructured)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Summary)
		})
	}
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{}, stringList(nil))
	assert.Equal(t, []string{"a", "b"}, stringList([]any{"a", " ", "b"}))
	assert.Equal(t, []string{"single"}, stringList("single"))
	assert.Equal(t, []string{"1", `{"k":"v"}`}, stringList([]any{float64(1), map[string]any{"k": "v"}}))
}
