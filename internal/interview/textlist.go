package interview

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// TextList is an ordered list of non-empty trimmed items. Generators return
// strengths and weaknesses either as an array or as one bullet or newline
// separated string; NormalizeTextList turns both into a TextList.
type TextList []string

// NormalizeTextList accepts a string, a []string or a []any of strings.
func NormalizeTextList(v any) TextList {
	switch val := v.(type) {
	case nil:
		return TextList{}
	case TextList:
		return cleanItems(val)
	case string:
		return splitPlain(val)
	case []string:
		return cleanItems(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			switch s := item.(type) {
			case string:
				items = append(items, s)
			case nil:
			default:
				items = append(items, fmt.Sprint(s))
			}
		}
		return cleanItems(items)
	default:
		return cleanItems([]string{fmt.Sprint(val)})
	}
}

func splitPlain(s string) TextList {
	lines := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r' || r == '•'
	})
	return cleanItems(lines)
}

func cleanItems(items []string) TextList {
	out := make(TextList, 0, len(items))
	for _, item := range items {
		item = stripBullet(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// stripBullet removes a leading list marker such as "-", "*", "·" or "1.".
func stripBullet(s string) string {
	trimmed := strings.TrimLeft(s, "-*·•– ")
	if trimmed != s {
		return strings.TrimSpace(trimmed)
	}

	digits := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && digits < len(s) && (s[digits] == '.' || s[digits] == ')') {
		return strings.TrimSpace(s[digits+1:])
	}
	return s
}

// String renders the list as bullet lines.
func (l TextList) String() string {
	if len(l) == 0 {
		return ""
	}
	return "- " + strings.Join(l, "\n- ")
}

// UnmarshalJSON accepts both the array and the plain string representation.
func (l *TextList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = NormalizeTextList(raw)
	return nil
}
