package gemini

import (
	"google.golang.org/genai"

	"github.com/spigell/interviewer/internal/ai"
)

// toGenaiSchema translates s into the Gemini response schema. Gemini has no
// string-or-array union, so text lists are requested as arrays.
func toGenaiSchema(s *ai.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{Description: s.Description}

	switch s.Kind {
	case ai.KindObject:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
		out.Required = append([]string(nil), s.Required...)
		out.PropertyOrdering = s.PropertyNames()
	case ai.KindArray:
		out.Type = genai.TypeArray
		out.Items = toGenaiSchema(s.Items)
		if s.MinItems != nil {
			out.MinItems = int64Ptr(*s.MinItems)
		}
		if s.MaxItems != nil {
			out.MaxItems = int64Ptr(*s.MaxItems)
		}
	case ai.KindString:
		out.Type = genai.TypeString
		if s.NonEmpty {
			out.MinLength = int64Ptr(1)
		}
	case ai.KindNumber:
		out.Type = genai.TypeNumber
		out.Minimum = s.Minimum
		out.Maximum = s.Maximum
	case ai.KindInteger:
		out.Type = genai.TypeInteger
		out.Minimum = s.Minimum
		out.Maximum = s.Maximum
	}

	return out
}

func int64Ptr(v int) *int64 {
	n := int64(v)
	return &n
}
