// Package engine drives the interview as a turn-based state machine:
// Start -> Routing -> Asking -> AwaitingAnswer -> Evaluating -> Routing,
// until routing decides to report. Reporting always runs, including after
// context cancellation, so a session log and feedback exist for every
// started interview.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/agents"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/metrics"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
)

// Stage identifies a step of the interview state machine.
type Stage int

const (
	StageStart Stage = iota
	StageRouting
	StageAsking
	StageAwaitingAnswer
	StageEvaluating
	StageReporting
	StageEnd
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageRouting:
		return "routing"
	case StageAsking:
		return "asking"
	case StageAwaitingAnswer:
		return "awaiting_answer"
	case StageEvaluating:
		return "evaluating"
	case StageReporting:
		return "reporting"
	case StageEnd:
		return "end"
	}
	return "unknown"
}

// stopTokens end the interview when the candidate enters one as an answer.
var stopTokens = map[string]struct{}{
	"стоп":      {},
	"stop":      {},
	"завершить": {},
	"конец":     {},
	"exit":      {},
	"quit":      {},
}

func isStopToken(answer string) bool {
	_, ok := stopTokens[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}

// AnswerSource supplies candidate answers, one per asked question.
type AnswerSource interface {
	NextAnswer(ctx context.Context, question string) (string, error)
}

// Presenter shows interview output to whoever is watching the session.
type Presenter interface {
	ShowQuestion(question string)
	ShowFeedback(text string)
}

type noopPresenter struct{}

func (noopPresenter) ShowQuestion(string) {}
func (noopPresenter) ShowFeedback(string) {}

// Coordinator routes the interview.
type Coordinator interface {
	ShouldEnd(s *session.State) bool
	Decide(ctx context.Context, s *session.State) agents.Decision
}

// Interviewer produces the next question.
type Interviewer interface {
	NextQuestion(ctx context.Context, s *session.State) string
}

// Observer evaluates an answer.
type Observer interface {
	Evaluate(ctx context.Context, s *session.State, question, answer string) session.Evaluation
}

// Reporter produces the final feedback.
type Reporter interface {
	Report(ctx context.Context, s *session.State, duration time.Duration) agents.Feedback
}

// Config tunes the engine loop.
type Config struct {
	MaxTurns          int
	DefaultDifficulty int
	LogDir            string

	// RaiseQuality and LowerQuality adapt the difficulty from the normalized
	// technical score of the last answer.
	RaiseQuality float64
	LowerQuality float64

	// SkillThreshold confirms the current topic as a skill when an answer
	// scores at or above it without errors.
	SkillThreshold float64
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 10
	}
	if c.DefaultDifficulty <= 0 {
		c.DefaultDifficulty = 2
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.RaiseQuality <= 0 {
		c.RaiseQuality = 0.8
	}
	if c.LowerQuality <= 0 {
		c.LowerQuality = 0.4
	}
	if c.SkillThreshold <= 0 {
		c.SkillThreshold = 7
	}
	return c
}

// Deps aggregates the engine collaborators.
type Deps struct {
	Coordinator Coordinator
	Interviewer Interviewer
	Observer    Observer
	Reporter    Reporter

	Answers   AnswerSource
	Presenter Presenter

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Result is everything a finished interview produces.
type Result struct {
	State    *session.State
	Log      *session.Log
	Feedback agents.Feedback
	LogPath  string
}

type Engine struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Coordinator == nil || deps.Interviewer == nil || deps.Observer == nil || deps.Reporter == nil {
		return nil, errors.New("engine: all four agents are required")
	}
	if deps.Answers == nil {
		return nil, errors.New("engine: answer source is required")
	}
	if deps.Presenter == nil {
		deps.Presenter = noopPresenter{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{cfg: cfg.withDefaults(), deps: deps}, nil
}

// Run executes a full interview for the given candidate. Agent failures and
// cancellation degrade to deterministic fallbacks; the only error Run returns
// is a failed transcript flush, and the in-memory result comes back alongside
// it so the caller can retry the save.
func (e *Engine) Run(ctx context.Context, profile session.CandidateProfile) (*Result, error) {
	e.deps.Metrics.SessionStarted()

	state := session.NewState(profile, e.cfg.DefaultDifficulty)
	log := session.NewLog(profile.Name)

	e.deps.Logger.Info("interview started",
		zap.String("candidate", profile.Name),
		zap.String("position", profile.Position),
		zap.Int("max_turns", e.cfg.MaxTurns),
	)

	stage := StageStart
	for stage != StageReporting && stage != StageEnd {
		// Cancellation is honored at stage boundaries only, so a turn in
		// flight finishes cleanly and reporting still runs.
		if ctx.Err() != nil {
			e.deps.Logger.Warn("session interrupted", zap.String("stage", stage.String()))
			break
		}

		switch stage {
		case StageStart:
			stage = StageRouting
		case StageRouting:
			stage = e.route(ctx, state)
		case StageAsking:
			stage = e.ask(ctx, state)
		case StageAwaitingAnswer:
			stage = e.awaitAnswer(ctx, state)
		case StageEvaluating:
			stage = e.evaluate(ctx, state, log)
		}
	}

	return e.report(ctx, state, log)
}

func (e *Engine) route(ctx context.Context, state *session.State) Stage {
	// The hard cap holds no matter what the coordinator answers.
	if state.TurnCount() >= e.cfg.MaxTurns || e.deps.Coordinator.ShouldEnd(state) {
		return StageReporting
	}

	decision := e.deps.Coordinator.Decide(ctx, state)
	state.AddThought("coordinator", decision.Reasoning)

	e.deps.Logger.Debug("routing decision",
		zap.String("action", string(decision.Action)),
		zap.String("topic", decision.NewTopic),
		zap.Int("difficulty", decision.NewDifficulty),
	)

	switch decision.Action {
	case agents.ActionEnd:
		return StageReporting
	case agents.ActionChangeTopic:
		state.Topic = decision.NewTopic
	}
	state.Difficulty = session.ClampDifficulty(decision.NewDifficulty)
	state.Instruction = decision.Instruction
	return StageAsking
}

func (e *Engine) ask(ctx context.Context, state *session.State) Stage {
	question := e.deps.Interviewer.NextQuestion(ctx, state)
	state.RecordQuestion(question)
	e.deps.Metrics.QuestionAsked()
	e.deps.Presenter.ShowQuestion(question)
	return StageAwaitingAnswer
}

func (e *Engine) awaitAnswer(ctx context.Context, state *session.State) Stage {
	answer, err := e.deps.Answers.NextAnswer(ctx, state.PendingQuestion)
	if err != nil {
		e.deps.Logger.Warn("answer source closed, finishing the interview", zap.Error(err))
		return StageReporting
	}
	if isStopToken(answer) {
		e.deps.Logger.Info("stop keyword received")
		state.AddThought("engine", "candidate requested to stop the interview")
		return StageReporting
	}
	state.RecordAnswer(answer)
	return StageEvaluating
}

func (e *Engine) evaluate(ctx context.Context, state *session.State, log *session.Log) Stage {
	eval := e.deps.Observer.Evaluate(ctx, state, state.PendingQuestion, state.PendingAnswer)
	if eval.Reasoning != "" {
		state.AddThought("observer", eval.Reasoning)
	}

	state.Assessment.Apply(state.Topic, eval)
	if eval.TechnicalScore >= e.cfg.SkillThreshold && !eval.HasErrors && state.Topic != "" {
		state.Assessment.ConfirmSkill(state.Topic)
	}
	e.adaptDifficulty(state, eval)

	turn := state.CompleteTurn(eval)
	log.Append(turn.Question, turn.Answer, turn.Thoughts)

	e.deps.Logger.Debug("turn evaluated",
		zap.Int("turn_id", turn.ID),
		zap.Float64("technical_score", eval.TechnicalScore),
		zap.Float64("smoothed_technical", state.Assessment.TechnicalScore),
		zap.Int("difficulty", state.Difficulty),
	)
	return StageRouting
}

func (e *Engine) adaptDifficulty(state *session.State, eval session.Evaluation) {
	quality := eval.TechnicalScore / 10
	switch {
	case quality >= e.cfg.RaiseQuality:
		state.Difficulty = session.ClampDifficulty(state.Difficulty + 1)
	case quality < e.cfg.LowerQuality:
		state.Difficulty = session.ClampDifficulty(state.Difficulty - 1)
	}
}

func (e *Engine) report(ctx context.Context, state *session.State, log *session.Log) (*Result, error) {
	duration := time.Since(state.StartedAt)
	feedback := e.deps.Reporter.Report(ctx, state, duration)

	state.Complete = true
	log.Finish(feedback.Text)
	e.deps.Metrics.SessionCompleted()

	// A lost log file must not swallow the feedback: the error travels back
	// alongside the in-memory result so the caller can retry the flush.
	var saveErr error
	path, err := log.SaveTo(e.cfg.LogDir)
	if err != nil {
		e.deps.Logger.Error("failed to save the session log", zap.Error(err))
		saveErr = fmt.Errorf("saving the session log: %w", err)
		path = ""
	}

	e.deps.Presenter.ShowFeedback(feedback.Text)
	e.deps.Logger.Info("interview finished",
		zap.Int("turns", state.TurnCount()),
		zap.String("recommendation", feedback.Verdict.Recommendation),
		zap.String("log_path", path),
		zap.Duration("duration", duration),
	)

	return &Result{State: state, Log: log, Feedback: feedback, LogPath: path}, saveErr
}
