package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/agents"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/ai"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/ai/gemini"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/engine"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/knowledge"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/logger"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/metrics"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/secrets"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultName       = "Анонимный кандидат"
	defaultPosition   = "Python Developer"
	defaultExperience = "2"
	defaultStack      = "Python, SQL, Git"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interview session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("name", "n", "", "candidate name (skips the interactive prompt)")
	runCmd.Flags().StringP("log-dir", "l", "", "directory for session logs")

	viper.BindPFlag("log-dir", runCmd.Flags().Lookup("log-dir"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting the interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	zlog.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	m := metrics.New()

	caller, err := newCaller(ctx, config, m, zlog)
	if err != nil {
		zlog.Fatal(
			"building the reasoning client",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	base := knowledge.NewBase(viper.GetBool("verification.enabled"), nil, zlog)

	deps := agents.Deps{
		Caller:   caller,
		Verifier: base,
		Metrics:  m,
		Logger:   zlog,
	}
	tun := agents.Tunables{
		MaxTurns: viper.GetInt("interview.max-turns"),
	}

	eng, err := engine.New(engine.Config{
		MaxTurns:          viper.GetInt("interview.max-turns"),
		DefaultDifficulty: viper.GetInt("interview.default-difficulty"),
		LogDir:            viper.GetString("log-dir"),
	}, engine.Deps{
		Coordinator: agents.NewCoordinator(deps, tun),
		Interviewer: agents.NewInterviewer(deps, tun),
		Observer:    agents.NewObserver(deps, tun),
		Reporter:    agents.NewReporter(deps, tun),
		Answers:     &consoleAnswers{},
		Presenter:   &consolePresenter{},
		Metrics:     m,
		Logger:      zlog,
	})
	if err != nil {
		zlog.Fatal("building the engine", zap.Error(err))
	}

	profile, err := collectProfile(cmd)
	if err != nil {
		zlog.Fatal("collecting the candidate profile", zap.Error(err))
	}

	started := time.Now()
	result, err := eng.Run(ctx, profile)
	if err != nil {
		// The interview itself finished; only the transcript flush failed.
		zlog.Error("session log was not persisted", zap.Error(err))
	}

	zlog.Info("session finished",
		append(m.Fields(),
			zap.Duration("duration", time.Since(started)),
			zap.String("log_path", result.LogPath),
		)...,
	)
}

// newCaller wires the configured reasoning provider into the retrying caller.
func newCaller(ctx context.Context, config *Config, m *metrics.Metrics, zlog *zap.Logger) (*ai.Caller, error) {
	var aiCfg AIConfig
	if config != nil && config.AI != nil {
		aiCfg = *config.AI
	}

	provider := strings.TrimSpace(strings.ToLower(aiCfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	var gem GeminiConfig
	if aiCfg.Gemini != nil {
		gem = *aiCfg.Gemini
	}
	if gem.APIKeyFile == "" {
		gem.APIKeyFile = viper.GetString("ai.gemini.api-key-file")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: gem.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	client, err := gemini.New(ctx, apiKey, gem.Model, logger.WithCommonFields(zlog, "gemini", gem.Model))
	if err != nil {
		return nil, err
	}

	callerLogger := logger.WithCommonFields(zlog, "gemini", client.Model())
	return ai.NewCaller(client, ai.CallerConfig{
		MaxRetries: gem.MaxRetries,
		MaxLogLen:  gem.MaxLogLength,
	}, m, callerLogger), nil
}

// collectProfile gathers the candidate profile interactively, falling back to
// sensible defaults on empty input.
func collectProfile(cmd *cobra.Command) (session.CandidateProfile, error) {
	name := strings.TrimSpace(cmd.Flag("name").Value.String())
	if name == "" {
		var err error
		name, err = askString("Имя кандидата", defaultName)
		if err != nil {
			return session.CandidateProfile{}, err
		}
	}

	position, err := askString("Позиция", defaultPosition)
	if err != nil {
		return session.CandidateProfile{}, err
	}

	gradePrompt := promptui.Select{
		Label:     "Грейд",
		Items:     []string{string(session.GradeJunior), string(session.GradeMiddle), string(session.GradeSenior)},
		CursorPos: 1,
	}
	_, grade, err := gradePrompt.Run()
	if err != nil {
		return session.CandidateProfile{}, err
	}

	expText, err := askString("Опыт в годах", defaultExperience)
	if err != nil {
		return session.CandidateProfile{}, err
	}
	experience, err := strconv.ParseFloat(strings.Replace(expText, ",", ".", 1), 64)
	if err != nil || experience < 0 {
		experience = 2
	}

	stack, err := askString("Технологии (через запятую)", defaultStack)
	if err != nil {
		return session.CandidateProfile{}, err
	}

	return session.CandidateProfile{
		Name:            name,
		Position:        position,
		Grade:           session.Grade(grade),
		ExperienceYears: experience,
		Technologies:    splitStack(stack),
	}, nil
}

func askString(label, fallback string) (string, error) {
	p := promptui.Prompt{Label: label, Default: fallback}
	value, err := p.Run()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return strings.TrimSpace(value), nil
}

func splitStack(stack string) []string {
	parts := strings.Split(stack, ",")
	technologies := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			technologies = append(technologies, t)
		}
	}
	return technologies
}

// consoleAnswers reads candidate answers from the terminal. A Ctrl-C inside
// the prompt surfaces as an error and finishes the session gracefully.
type consoleAnswers struct{}

func (consoleAnswers) NextAnswer(_ context.Context, _ string) (string, error) {
	p := promptui.Prompt{Label: "Ваш ответ"}
	return p.Run()
}

type consolePresenter struct{}

func (consolePresenter) ShowQuestion(question string) {
	fmt.Printf("\nВопрос: %s\n", question)
}

func (consolePresenter) ShowFeedback(text string) {
	fmt.Printf("\n%s\n%s\n%s\n", strings.Repeat("=", 60), text, strings.Repeat("=", 60))
}
