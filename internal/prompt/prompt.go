package prompt

import (
	"fmt"
	"strings"
)

// Values maps placeholder names to the values substituted for them.
type Values map[string]any

// Render replaces every occurrence of each {name} placeholder in template with
// the stringified value for name. Placeholders without a value are left as is.
// Substitution is a single pass over template, so inserted values are never
// scanned for placeholders themselves.
func Render(template string, values Values) string {
	if template == "" || len(values) == 0 {
		return template
	}

	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", stringify(value))
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
