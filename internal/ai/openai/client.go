package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/logger"
)

const (
	defaultModel      = "gpt-4o"
	defaultMaxRetries = 2
	schemaName        = "response"
)

type completionCreator interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type Options struct {
	APIKey            string
	Model             string
	SystemInstruction string
	MaxRetries        int
	Temperature       *float64
}

// Generator is an ai.Backend over OpenAI chat completions. Structured
// requests use the json_schema response format.
type Generator struct {
	completions       completionCreator
	model             string
	systemInstruction string
	temperature       *float64
	logger            *zap.Logger
}

func NewGenerator(opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	)

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	return &Generator{
		completions:       &client.Chat.Completions,
		model:             model,
		systemInstruction: strings.TrimSpace(opts.SystemInstruction),
		temperature:       opts.Temperature,
		logger:            logger.WithModel(log, "openai", model),
	}, nil
}

func (g *Generator) GenerateContent(ctx context.Context, prompt string, schema *ai.Schema) (string, error) {
	if g == nil || g.completions == nil {
		return "", errors.New("openai generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	completion, err := g.completions.New(ctx, g.params(prompt, schema))
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	choice := completion.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return "", fmt.Errorf("model refused: %s", refusal)
	}

	output := strings.TrimSpace(choice.Message.Content)
	if output == "" {
		return "", errors.New("openai returned empty response")
	}

	g.logger.Debug("chat completion finished",
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Int64("total_tokens", completion.Usage.TotalTokens),
	)

	return output, nil
}

func (g *Generator) params(prompt string, schema *ai.Schema) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if g.systemInstruction != "" {
		messages = append(messages, openai.SystemMessage(g.systemInstruction))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
	}
	if g.temperature != nil {
		params.Temperature = openai.Float(*g.temperature)
	}
	if schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema.JSONSchema(),
					// strict mode requires every property to be required
					Strict: openai.Bool(false),
				},
			},
		}
	}
	return params
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
