package provider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blueberrycongee/recall/pkg/types"
)

func TestSplitTurns(t *testing.T) {
	tests := []struct {
		name      string
		messages  []types.Message
		system    string
		history   int
		prompt    string
		multiTurn bool
	}{
		{
			name:   "empty",
			prompt: "",
		},
		{
			name:     "single user turn",
			messages: []types.Message{types.UserMessage("hi")},
			prompt:   "hi",
		},
		{
			name: "first system message wins",
			messages: []types.Message{
				types.SystemMessage("first"),
				types.UserMessage("hi"),
				types.SystemMessage("second"),
			},
			system: "first",
			prompt: "hi",
		},
		{
			name: "multi turn",
			messages: []types.Message{
				types.SystemMessage("sys"),
				types.UserMessage("one"),
				types.AssistantMessage("two"),
				types.UserMessage("three"),
			},
			system:    "sys",
			history:   2,
			prompt:    "three",
			multiTurn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, history, prompt, multi := SplitTurns(tt.messages)
			assert.Equal(t, tt.system, system)
			assert.Len(t, history, tt.history)
			assert.Equal(t, tt.prompt, prompt)
			assert.Equal(t, tt.multiTurn, multi)
		})
	}
}

func TestSplitTurns_HistoryOrder(t *testing.T) {
	_, history, _, _ := SplitTurns([]types.Message{
		types.UserMessage("a"),
		types.AssistantMessage("b"),
		types.UserMessage("c"),
	})
	assert.Equal(t, []types.Message{types.UserMessage("a"), types.AssistantMessage("b")}, history)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 100, EstimateTokens(strings.Repeat("x", 400)))
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcdefg"))
	assert.Equal(t, 100, EstimateTokens(strings.Repeat("é", 400)))
	assert.Equal(t, 2, EstimateTokens("日本語のテキスト"))
}
