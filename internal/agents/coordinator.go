package agents

import (
	"context"
	_ "embed"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
)

//go:embed prompts/coordinator.md
var coordinatorPrompt string

// Action is the coordinator's routing verdict.
type Action string

const (
	ActionContinue    Action = "continue"
	ActionChangeTopic Action = "change_topic"
	ActionEnd         Action = "end_interview"
)

// Decision is what the engine receives from the coordinator every routing
// step.
type Decision struct {
	Action        Action
	NewTopic      string
	NewDifficulty int
	Reasoning     string
	Instruction   string
}

type rawDecision struct {
	Action        string `mapstructure:"action"`
	NewTopic      string `mapstructure:"new_topic"`
	NewDifficulty int    `mapstructure:"new_difficulty"`
	Reasoning     string `mapstructure:"reasoning"`
	Instruction   string `mapstructure:"instruction_to_interviewer"`
}

const defaultInstruction = "Задай следующий вопрос"

// Coordinator decides whether to continue, change topic or end the interview.
type Coordinator struct {
	deps Deps
	tun  Tunables
}

func NewCoordinator(deps Deps, tun Tunables) *Coordinator {
	return &Coordinator{deps: deps.withDefaults(), tun: tun.withDefaults()}
}

// ShouldEnd reports the hard stop conditions that hold regardless of what the
// reasoning service would say.
func (c *Coordinator) ShouldEnd(s *session.State) bool {
	if s.Complete {
		return true
	}

	turns := s.TurnCount()
	if turns >= c.tun.MaxTurns {
		c.deps.Logger.Info("turn limit reached",
			zap.Int("turns", turns),
			zap.Int("max_turns", c.tun.MaxTurns),
		)
		return true
	}

	if turns >= c.tun.EarlyFinishTurns && s.Assessment.TechnicalScore > c.tun.EarlyFinishScore {
		c.deps.Logger.Info("candidate demonstrates a high level",
			zap.Float64("technical_score", s.Assessment.TechnicalScore),
		)
		return true
	}

	return false
}

func (c *Coordinator) Decide(ctx context.Context, s *session.State) Decision {
	prompt := render(coordinatorPrompt, map[string]string{
		"CANDIDATE":      profileSummary(s.Candidate),
		"TECHNOLOGIES":   formatTechnologies(s.Candidate.Technologies, c.tun.TechnologiesShown),
		"TOPIC":          orDefault(s.Topic, "нет темы"),
		"DIFFICULTY":     strconv.Itoa(s.Difficulty),
		"QUESTIONS_COUNT": strconv.Itoa(s.TurnCount()),
		"MAX_TURNS":      strconv.Itoa(c.tun.MaxTurns),
		"SCORE":          formatFloat(s.Assessment.TechnicalScore),
		"OBSERVER_NOTES": orDefault(s.Recommendation, "нет заметок"),
		"HISTORY":        formatHistory(s.History(c.tun.HistoryTurns)),
	})

	var raw rawDecision
	if err := c.deps.Caller.Object(ctx, prompt, &raw); err != nil {
		c.deps.Logger.Warn("coordinator call failed, using fallback decision", zap.Error(err))
		c.deps.Metrics.FallbackUsed()
		return c.Fallback(s)
	}

	return c.normalize(raw, s)
}

func (c *Coordinator) normalize(raw rawDecision, s *session.State) Decision {
	action := Action(strings.TrimSpace(raw.Action))
	switch action {
	case ActionContinue, ActionChangeTopic, ActionEnd:
	default:
		action = ActionContinue
	}

	if action == ActionChangeTopic && strings.TrimSpace(raw.NewTopic) == "" {
		action = ActionContinue
	}

	difficulty := raw.NewDifficulty
	if difficulty == 0 {
		difficulty = s.Difficulty
	}

	return Decision{
		Action:        action,
		NewTopic:      strings.TrimSpace(raw.NewTopic),
		NewDifficulty: session.ClampDifficulty(difficulty),
		Reasoning:     orDefault(raw.Reasoning, "Продолжаем интервью"),
		Instruction:   orDefault(raw.Instruction, defaultInstruction),
	}
}

// Fallback is the deterministic routing decision used when the reasoning
// service fails: end at the turn limit or on an early high score, otherwise
// keep the current topic and difficulty.
func (c *Coordinator) Fallback(s *session.State) Decision {
	turns := s.TurnCount()

	action := ActionContinue
	reasoning := "Продолжаем интервью (fallback)"

	switch {
	case turns >= c.tun.MaxTurns:
		action = ActionEnd
		reasoning = "Достигнут лимит вопросов"
	case turns >= c.tun.EarlyFinishTurns && s.Assessment.TechnicalScore > c.tun.EarlyFinishScore:
		action = ActionEnd
		reasoning = "Кандидат демонстрирует высокий уровень"
	}

	return Decision{
		Action:        action,
		NewTopic:      s.Topic,
		NewDifficulty: session.ClampDifficulty(s.Difficulty),
		Reasoning:     reasoning,
		Instruction:   defaultInstruction,
	}
}
