package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/ai/gemini"
	"github.com/spigell/interviewer/internal/ai/openai"
	"github.com/spigell/interviewer/internal/cvtext"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/pipeline"
	"github.com/spigell/interviewer/internal/prompt"
	"github.com/spigell/interviewer/internal/secrets"
	"github.com/spigell/interviewer/internal/storage"
)

// runtime bundles what every command needs once the config is loaded.
type runtime struct {
	config   *Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	store    storage.Store
	cv       *cvtext.Extractor
}

// setup builds the logger, reads the config and wires the pipeline and the
// store. Failures are fatal, the same way for every command.
func setup(ctx context.Context) *runtime {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the interviewer", zap.String("version", resolveVersion()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	backend, err := newBackend(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai backend", zap.Error(err))
	}

	templates, err := loadTemplates(config.Prompts)
	if err != nil {
		logger.Fatal("loading prompt templates", zap.Error(err))
	}

	client := ai.NewClient(backend, logger, config.AI.MaxLogLength)
	p := pipeline.New(client, templates, logger, pipelineOptions(config.Pipeline))

	store, err := newStore(ctx, config.Storage, logger)
	if err != nil {
		logger.Fatal("building storage", zap.Error(err))
	}

	if config.CV != nil {
		if err := cvtext.SetLicense(config.CV.LicenseKey); err != nil {
			logger.Fatal("setting pdf license key", zap.Error(err))
		}
	}

	return &runtime{
		config:   config,
		logger:   logger,
		pipeline: p,
		store:    store,
		cv:       cvtext.New(logger),
	}
}

// close releases the store connection, if any.
func (r *runtime) close() {
	if closer, ok := r.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			r.logger.Warn("closing storage", zap.Error(err))
		}
	}
	_ = r.logger.Sync()
}

// runContext bounds one pipeline run by pipeline.timeout.
func (r *runtime) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.Pipeline == nil || r.config.Pipeline.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.config.Pipeline.Timeout)
}

func newBackend(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Backend, error) {
	if cfg == nil {
		return nil, errors.New("ai configuration is required")
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", "gemini":
		gcfg := cfg.Gemini
		if gcfg == nil {
			gcfg = &GeminiConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  gcfg.APIKeyFile,
			Value: gcfg.APIKey,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}
		return gemini.NewGenerator(ctx, gemini.Options{
			APIKey:     apiKey,
			Model:      gcfg.Model,
			MaxRetries: gcfg.MaxRetries,
		}, log)
	case "openai":
		ocfg := cfg.OpenAI
		if ocfg == nil {
			ocfg = &OpenAIConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			File:  ocfg.APIKeyFile,
			Value: ocfg.APIKey,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY)", err)
		}
		return openai.NewGenerator(openai.Options{
			APIKey:     apiKey,
			Model:      ocfg.Model,
			MaxRetries: ocfg.MaxRetries,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func loadTemplates(cfg *PromptsConfig) (prompt.Templates, error) {
	if cfg == nil {
		return prompt.Defaults(), nil
	}
	templates, err := prompt.LoadDir(cfg.Dir, cfg.Templates)
	if err != nil {
		return templates, err
	}
	return templates.WithDefaults(), nil
}

func pipelineOptions(cfg *PipelineConfig) pipeline.Options {
	if cfg == nil {
		return pipeline.Options{}
	}
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = -1
	}
	return pipeline.Options{
		Concurrency:      concurrency,
		BaselineFallback: cfg.BaselineFallback,
		FeedbackFallback: cfg.FeedbackFallback,
	}
}

func newStore(ctx context.Context, cfg *StorageConfig, log *zap.Logger) (storage.Store, error) {
	if cfg == nil {
		return storage.NewMemoryStore(), nil
	}

	switch driver := strings.TrimSpace(strings.ToLower(cfg.Driver)); driver {
	case "", "memory":
		log.Debug("using in-memory storage")
		return storage.NewMemoryStore(), nil
	case "redis":
		store := storage.NewRedisStore(cfg.Redis)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("using redis storage", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// redacted returns a copy of config safe for logging.
func redacted(config *Config) *Config {
	c := *config
	if c.AI != nil {
		aiCfg := *c.AI
		if aiCfg.Gemini != nil {
			g := *aiCfg.Gemini
			g.APIKey = mask(g.APIKey)
			aiCfg.Gemini = &g
		}
		if aiCfg.OpenAI != nil {
			o := *aiCfg.OpenAI
			o.APIKey = mask(o.APIKey)
			aiCfg.OpenAI = &o
		}
		c.AI = &aiCfg
	}
	if c.Storage != nil {
		s := *c.Storage
		s.Redis.Password = mask(s.Redis.Password)
		c.Storage = &s
	}
	if c.CV != nil {
		cv := *c.CV
		cv.LicenseKey = mask(cv.LicenseKey)
		c.CV = &cv
	}
	return &c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// writeJSON prints v as indented JSON to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readJSON decodes the JSON file at path into v.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
