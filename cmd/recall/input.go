package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/recall/pkg/types"
)

// readInput reads path, or stdin when path is "-" or empty.
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// parseMessages accepts a JSON list of messages or an object with a
// "messages" list, the shape of a single exported conversation.
func parseMessages(data []byte) ([]types.Message, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var conv types.Conversation
		if err := json.Unmarshal([]byte(trimmed), &conv); err != nil {
			return nil, fmt.Errorf("decode conversation: %w", err)
		}
		return conv.Messages, nil
	}

	var msgs []types.Message
	if err := json.Unmarshal([]byte(trimmed), &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// parseConversations decodes a JSON list of conversations.
func parseConversations(data []byte) ([]types.Conversation, error) {
	var convs []types.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	for i, c := range convs {
		if c.ID == "" {
			return nil, fmt.Errorf("conversation %d: id is required", i)
		}
	}
	return convs, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
