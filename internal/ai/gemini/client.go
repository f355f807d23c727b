package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-pro"
	defaultMaxRetries = 3
	baseRetryDelay    = 2 * time.Second
	// maxRetryDelay is the longest server-requested delay worth waiting for.
	maxRetryDelay = 30 * time.Second

	jsonMIMEType = "application/json"
)

var wait = utils.WaitFor

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

type Options struct {
	APIKey            string
	Model             string
	SystemInstruction string
	MaxRetries        int
	Temperature       *float32
}

// Generator is an ai.Backend over the Gemini API. Structured requests use
// the native JSON response mode with the schema translated to genai.Schema.
type Generator struct {
	chats             chatCreator
	model             string
	systemInstruction string
	maxRetries        int
	temperature       *float32
	logger            *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		chats:             genaiChats{chats: client.Chats},
		model:             model,
		systemInstruction: strings.TrimSpace(opts.SystemInstruction),
		maxRetries:        maxRetries,
		temperature:       opts.Temperature,
		logger:            logger.WithModel(log, "gemini", model),
	}, nil
}

// GenerateContent sends prompt in a fresh chat and returns the response text.
// Temporary API errors are retried up to maxRetries attempts in total.
func (g *Generator) GenerateContent(ctx context.Context, prompt string, schema *ai.Schema) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := g.config(schema)

	for attempt := 1; ; attempt++ {
		output, err := g.send(ctx, config, prompt)
		if err == nil {
			return output, nil
		}

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt >= g.maxRetries {
			return "", fmt.Errorf("generate content: %w", err)
		}

		g.logger.Warn("temporary gemini error, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
	}
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, prompt string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return "", err
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

func (g *Generator) config(schema *ai.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: g.temperature}
	if g.systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: g.systemInstruction}}}
	}
	if schema != nil {
		cfg.ResponseMIMEType = jsonMIMEType
		cfg.ResponseSchema = toGenaiSchema(schema)
	}
	return cfg
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)

// retryDelay decides whether err is temporary and how long to wait before
// the next attempt. Quota errors asking for a long pause are not retried.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	backoff := baseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))

	switch {
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	case apiErr.Code == http.StatusTooManyRequests:
		requested, ok := requestedDelay(apiErr)
		if !ok {
			return backoff, true
		}
		if requested > maxRetryDelay {
			return 0, false
		}
		return requested, true
	default:
		return 0, false
	}
}

// requestedDelay reads the server's retry hint from RetryInfo details or
// from the error message.
func requestedDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		kind, _ := detail["@type"].(string)
		if !strings.HasSuffix(kind, "RetryInfo") {
			continue
		}
		if raw, ok := detail["retryDelay"].(string); ok {
			if d, err := time.ParseDuration(raw); err == nil {
				return d, true
			}
		}
	}

	match := retryAfterPattern.FindStringSubmatch(apiErr.Message)
	if len(match) != 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
