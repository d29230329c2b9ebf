package intelligence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

const fence = "```"

var errNotStructured = errors.New("response is not structured JSON")

// decodeStructured decodes a model answer into v. It tries the whole text
// first, then the first fenced block. Nothing else is attempted.
func decodeStructured(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errNotStructured
	}
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	block, ok := fencedBlock(trimmed)
	if !ok {
		return errNotStructured
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("%w: %v", errNotStructured, err)
	}
	return nil
}

// fencedBlock returns the body of the first ``` block. An info string such
// as "json" is skipped, whether it ends the opening line or sits directly
// before the body on the same line.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(fence):]

	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && isInfoString(rest[:nl]) {
		rest = rest[nl+1:]
	} else {
		rest = skipInlineInfoString(rest)
	}

	end := strings.Index(rest, fence)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// skipInlineInfoString drops a leading info token when whitespace or the
// start of a JSON value follows it.
func skipInlineInfoString(s string) string {
	i := 0
	for i < len(s) && isInfoByte(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return s
	}
	switch s[i] {
	case ' ', '\t', '\r', '{', '[':
		return s[i:]
	}
	return s
}

func isInfoString(s string) bool {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		if !isInfoByte(s[i]) {
			return false
		}
	}
	return true
}

func isInfoByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_' || b == '+'
}

// stringList coerces a decoded JSON value into a list of strings. Models
// sometimes answer with a single string or with objects instead of a list.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := stringValue(t); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
