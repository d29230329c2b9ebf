package provider

import (
	"unicode/utf8"

	"github.com/blueberrycongee/recall/pkg/types"
)

// SplitTurns separates a message list into the parts every adapter needs.
// The first system message becomes the system instruction and later ones are
// ignored. With more than one conversational turn, all but the last form the
// history and multiTurn is true; the last turn is always the prompt.
func SplitTurns(messages []types.Message) (system string, history []types.Message, prompt string, multiTurn bool) {
	seenSystem := false
	turns := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == types.RoleSystem {
			if !seenSystem {
				system = m.Content
				seenSystem = true
			}
			continue
		}
		turns = append(turns, m)
	}

	switch len(turns) {
	case 0:
		return system, nil, "", false
	case 1:
		return system, nil, turns[0].Content, false
	default:
		last := len(turns) - 1
		return system, turns[:last], turns[last].Content, true
	}
}

// EstimateTokens approximates the token count of text as characters/4.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
