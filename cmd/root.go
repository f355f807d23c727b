package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/prompt"
	"github.com/spigell/interviewer/internal/storage"
)

const (
	app       = "interviewer"
	envPrefix = "INTERVIEWER"
)

type Config struct {
	AI       *AIConfig             `mapstructure:"ai"`
	Pipeline *PipelineConfig       `mapstructure:"pipeline"`
	Prompts  *PromptsConfig        `mapstructure:"prompts"`
	Storage  *StorageConfig        `mapstructure:"storage"`
	Server   *ServerConfig         `mapstructure:"server"`
	CV       *CVConfig             `mapstructure:"cv"`
	Job      *interview.JobDetails `mapstructure:"job"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	OpenAI   *OpenAIConfig `mapstructure:"openai"`
	// MaxLogLength bounds prompt and response previews in debug logs.
	MaxLogLength int `mapstructure:"max-log-length"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type PipelineConfig struct {
	// Concurrency bounds parallel fan-out calls. 0 means unlimited.
	Concurrency      int           `mapstructure:"concurrency"`
	BaselineFallback string        `mapstructure:"baseline-fallback"`
	FeedbackFallback string        `mapstructure:"feedback-fallback"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type PromptsConfig struct {
	prompt.Templates `mapstructure:",squash"`
	Dir              string `mapstructure:"dir"`
}

type StorageConfig struct {
	Driver string               `mapstructure:"driver"`
	Redis  storage.RedisOptions `mapstructure:"redis"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type CVConfig struct {
	LicenseKey string `mapstructure:"unidoc-license-key"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer generates interview questions and evaluates candidate answers and CVs with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so environment overrides reach Unmarshal
// even when the config file does not mention them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.openai.api-key", "")
	v.SetDefault("ai.openai.api-key-file", "")
	v.SetDefault("ai.openai.model", "")
	v.SetDefault("ai.openai.max-retries", 2)

	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.baseline-fallback", "")
	v.SetDefault("pipeline.feedback-fallback", "")
	v.SetDefault("pipeline.timeout", 5*time.Minute)

	v.SetDefault("prompts.dir", "")
	for _, name := range prompt.Names {
		v.SetDefault("prompts."+string(name), "")
	}

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", app)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("cv.unidoc-license-key", "")
}

func initConfig() {
	// A missing .env file is fine, everything can come from the real environment.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			// We can't proceed if the config file parsed with error.
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
