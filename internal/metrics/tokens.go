package metrics

import "strings"

// RecordChatTokens adds the tokens of one successful chat call.
func RecordChatTokens(provider, model string, tokens int) {
	if tokens <= 0 {
		return
	}
	ChatTokens.WithLabelValues(provider, sanitizeModelLabel(model)).Add(float64(tokens))
}

const maxModelLabelLen = 64

// sanitizeModelLabel keeps model labels short and free of characters that
// make poor label values. Gemini's "models/" prefix is dropped.
func sanitizeModelLabel(model string) string {
	model = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(model), "models/"))
	if model == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(min(len(model), maxModelLabelLen))
	for _, r := range model {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == ':' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() >= maxModelLabelLen {
			break
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}
