package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "interviewer"
)

type Config struct {
	Interview    *InterviewConfig    `mapstructure:"interview"`
	Verification *VerificationConfig `mapstructure:"verification"`
	LogDir       string              `mapstructure:"log-dir"`
	AI           *AIConfig           `mapstructure:"ai"`
}

type InterviewConfig struct {
	MaxTurns          int `mapstructure:"max-turns"`
	DefaultDifficulty int `mapstructure:"default-difficulty"`
}

type VerificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer is a cli that conducts automated technical interviews",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBinds := map[string]string{
		"interview.max-turns":          "MAX_TURNS",
		"interview.default-difficulty": "DEFAULT_DIFFICULTY",
		"verification.enabled":         "RAG_ENABLED",
		"ai.gemini.api-key-file":       "GEMINI_API_KEY_FILE",
	}
	for key, env := range envBinds {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("interview.max-turns", 10)
	viper.SetDefault("interview.default-difficulty", 2)
	viper.SetDefault("verification.enabled", true)
	viper.SetDefault("log-dir", "logs")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The defaults and environment variables cover a full run, so a missing
	// config file is fine. A present but broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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
