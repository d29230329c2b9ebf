package intelligence

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blueberrycongee/recall/pkg/types"
)

// DefaultMaxTopics is used when ExtractTopics is given a non-positive limit.
const DefaultMaxTopics = 5

var listMarker = regexp.MustCompile(`^(?:[-•*]+|\d+[.)])\s*`)

// ExtractTopics asks for the main topics of a conversation, one per line.
// It returns at most maxTopics entries, or an empty list on provider error.
func (s *Service) ExtractTopics(ctx context.Context, messages []types.Message, maxTopics int) []string {
	if maxTopics <= 0 {
		maxTopics = DefaultMaxTopics
	}

	var lines []string
	for _, m := range messages {
		if m.Role != types.RoleSystem {
			lines = append(lines, m.Content)
		}
	}
	if len(lines) == 0 {
		return []string{}
	}

	prompt := fmt.Sprintf(`Extract the %d main topics discussed in this conversation.
List them as short phrases (2-4 words each).

Conversation:
%s

Topics (one per line):`, maxTopics, strings.Join(lines, "\n"))

	res := s.ask(ctx, "You are a topic extraction expert.", prompt)
	if res.Failed() {
		s.logger.Warn("topic extraction failed", "provider", res.Provider, "error", res.Error)
		return []string{}
	}
	return parseTopics(res.Content, maxTopics)
}

func parseTopics(content string, limit int) []string {
	topics := make([]string, 0, limit)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		topics = append(topics, line)
		if len(topics) == limit {
			break
		}
	}
	return topics
}
