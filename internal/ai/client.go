package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/utils"
)

// Backend is a text generator. When schema is not nil the backend instructs
// the model to emit JSON conforming to it.
type Backend interface {
	GenerateContent(ctx context.Context, prompt string, schema *Schema) (string, error)
	Model() string
}

// Result is the outcome of a generation call. Value is set only for
// structured requests and holds the parsed JSON.
type Result struct {
	Text  string
	Value any
}

// Client requests free text or schema-shaped JSON from a backend. It does not
// check the parsed value against the schema; callers own that decision.
type Client struct {
	backend   Backend
	logger    *zap.Logger
	maxLogLen int
}

const defaultMaxLogLength = 200

func NewClient(backend Backend, logger *zap.Logger, maxLogLength int) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Client{
		backend:   backend,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Generate sends prompt to the backend. Transport and parse failures are
// returned as *GenerationError.
func (c *Client) Generate(ctx context.Context, prompt string, schema *Schema) (*Result, error) {
	if c == nil || c.backend == nil {
		return nil, &GenerationError{Err: fmt.Errorf("%w: client is not initialized", ErrTransport)}
	}

	c.logger.Debug("generate content request",
		zap.Bool("structured", schema != nil),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.backend.GenerateContent(ctx, prompt, schema)
	if err != nil {
		return nil, &GenerationError{Raw: raw, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}

	c.logger.Debug("generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	text := strings.TrimSpace(raw)
	if schema == nil {
		return &Result{Text: text}, nil
	}

	value, err := parseJSON(text)
	if err != nil {
		return nil, &GenerationError{Raw: raw, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}

	return &Result{Text: text, Value: value}, nil
}

// GenerateText requests free-form text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	res, err := c.Generate(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (c *Client) Model() string {
	if c == nil || c.backend == nil {
		return ""
	}
	return c.backend.Model()
}

func parseJSON(raw string) (any, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, err
	}
	return value, nil
}

// extractJSON strips markdown code fences some models wrap around JSON even
// when asked not to.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
