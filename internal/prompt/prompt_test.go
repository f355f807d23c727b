package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		values   Values
		expect   string
	}{
		{
			name:     "leaves unresolved placeholders",
			template: "Hello {name}, job {jobTitle}",
			values:   Values{"name": "X"},
			expect:   "Hello X, job {jobTitle}",
		},
		{
			name:     "replaces every occurrence",
			template: "{a}-{a}-{b}",
			values:   Values{"a": 1, "b": "two"},
			expect:   "1-1-two",
		},
		{
			name:     "ignores unused values",
			template: "static",
			values:   Values{"unused": "v"},
			expect:   "static",
		},
		{
			name:     "nil value becomes empty",
			template: "[{v}]",
			values:   Values{"v": nil},
			expect:   "[]",
		},
		{
			name:     "malformed tokens pass through",
			template: "{open and {name}}",
			values:   Values{"name": "n"},
			expect:   "{open and n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Render(tt.template, tt.values); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestRenderKeepsValuesVerbatim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		values   Values
		expect   string
	}{
		{
			name:     "answer quoting another placeholder",
			template: "ORIG {question}|{candidateAnswer}",
			values:   Values{"question": "Tell me about a bug", "candidateAnswer": "I templated {question} strings"},
			expect:   "ORIG Tell me about a bug|I templated {question} strings",
		},
		{
			name:     "description quoting the title placeholder",
			template: "{jobTitle}: {jobDescription}",
			values:   Values{"jobTitle": "SRE", "jobDescription": "Use {jobTitle} in {{templates}}"},
			expect:   "SRE: Use {jobTitle} in {{templates}}",
		},
		{
			name:     "value naming itself",
			template: "{x} and {y}",
			values:   Values{"x": "{y}", "y": "{x}"},
			expect:   "{y} and {x}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for i := 0; i < 20; i++ {
				if got := Render(tt.template, tt.values); got != tt.expect {
					t.Fatalf("expected %q, got %q", tt.expect, got)
				}
			}
		})
	}
}

func TestDefaultsAreComplete(t *testing.T) {
	defaults := Defaults()
	for _, name := range Names {
		if strings.TrimSpace(defaults.Get(name)) == "" {
			t.Fatalf("default template %s is empty", name)
		}
	}

	if !strings.Contains(defaults.QuestionGeneration, "{numQuestions}") {
		t.Fatalf("question generation template must reference {numQuestions}")
	}
	if !strings.Contains(defaults.Originality, "IGNORE structural similarity") {
		t.Fatalf("originality template lost its structural similarity instruction")
	}
}

func TestWithDefaultsKeepsOverrides(t *testing.T) {
	custom := Templates{AnswerEvaluation: "custom {transcript}"}.WithDefaults()

	if custom.AnswerEvaluation != "custom {transcript}" {
		t.Fatalf("override was replaced: %q", custom.AnswerEvaluation)
	}
	if custom.CVAnalysis != Defaults().CVAnalysis {
		t.Fatalf("blank template was not filled with default")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "originality.md"), []byte("file {candidateAnswer}"), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}

	loaded, err := LoadDir(dir, Templates{Originality: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loaded.Originality != "file {candidateAnswer}" {
		t.Fatalf("expected file override, got %q", loaded.Originality)
	}
	if loaded.QuestionGeneration != "" {
		t.Fatalf("missing files must not change templates")
	}
}
