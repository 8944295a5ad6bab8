package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/agents"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/ai"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/knowledge"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/metrics"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
)

type fakeCoordinator struct{}

func (fakeCoordinator) ShouldEnd(*session.State) bool { return false }

func (fakeCoordinator) Decide(_ context.Context, s *session.State) agents.Decision {
	return agents.Decision{
		Action:        agents.ActionContinue,
		NewDifficulty: s.Difficulty,
		Reasoning:     "continue",
		Instruction:   "ask",
	}
}

type fakeInterviewer struct{ n int }

func (f *fakeInterviewer) NextQuestion(context.Context, *session.State) string {
	f.n++
	return fmt.Sprintf("Вопрос номер %d?", f.n)
}

type fakeObserver struct{ score float64 }

func (f fakeObserver) Evaluate(_ context.Context, _ *session.State, _, _ string) session.Evaluation {
	return session.Evaluation{
		TechnicalScore:     f.score,
		CompletenessScore:  f.score,
		ConfidenceScore:    f.score,
		CommunicationScore: f.score,
		Depth:              session.DepthAdequate,
		Reasoning:          "fake evaluation",
	}
}

type fakeReporter struct{}

func (fakeReporter) Report(_ context.Context, s *session.State, _ time.Duration) agents.Feedback {
	return agents.Feedback{
		Verdict: agents.Verdict{Level: "Middle", Recommendation: "Hire", Confidence: 50},
		Text:    fmt.Sprintf("feedback after %d turns", s.TurnCount()),
	}
}

type scriptedAnswers struct {
	answers []string
	next    int
}

func (s *scriptedAnswers) NextAnswer(context.Context, string) (string, error) {
	if s.next >= len(s.answers) {
		return "", errors.New("no more answers")
	}
	a := s.answers[s.next]
	s.next++
	return a, nil
}

func repeatAnswers(answer string, n int) *scriptedAnswers {
	answers := make([]string, n)
	for i := range answers {
		answers[i] = answer
	}
	return &scriptedAnswers{answers: answers}
}

func testProfile() session.CandidateProfile {
	return session.CandidateProfile{
		Name:         "Тест Кандидат",
		Position:     "Python Developer",
		Grade:        session.GradeMiddle,
		Technologies: []string{"Python"},
	}
}

func newTestEngine(t *testing.T, cfg Config, deps Deps) *Engine {
	t.Helper()
	if cfg.LogDir == "" {
		cfg.LogDir = t.TempDir()
	}
	if deps.Coordinator == nil {
		deps.Coordinator = fakeCoordinator{}
	}
	if deps.Interviewer == nil {
		deps.Interviewer = &fakeInterviewer{}
	}
	if deps.Observer == nil {
		deps.Observer = fakeObserver{score: 5}
	}
	if deps.Reporter == nil {
		deps.Reporter = fakeReporter{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	e, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestRunSmoothsAssessment(t *testing.T) {
	e := newTestEngine(t, Config{MaxTurns: 3}, Deps{
		Observer: fakeObserver{score: 8},
		Answers:  repeatAnswers("развернутый ответ кандидата", 3),
	})

	res, err := e.Run(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State.TurnCount() != 3 {
		t.Fatalf("expected 3 turns, got %d", res.State.TurnCount())
	}
	if got := res.State.Assessment.TechnicalScore; math.Abs(got-5.256) > 1e-9 {
		t.Fatalf("expected smoothed score 5.256, got %v", got)
	}
	if !res.State.Complete {
		t.Fatal("state must be complete after the run")
	}
}

func TestRunStopsOnHardCap(t *testing.T) {
	e := newTestEngine(t, Config{MaxTurns: 4}, Deps{
		Answers: repeatAnswers("ответ", 20),
	})

	res, err := e.Run(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State.TurnCount() != 4 {
		t.Fatalf("hard cap must hold at 4 turns, got %d", res.State.TurnCount())
	}
}

func TestRunStopKeywordKeepsCompletedTurns(t *testing.T) {
	e := newTestEngine(t, Config{MaxTurns: 10}, Deps{
		Answers: &scriptedAnswers{answers: []string{"первый нормальный ответ", "СТОП"}},
	})

	res, err := e.Run(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State.TurnCount() != 1 {
		t.Fatalf("expected 1 completed turn, got %d", res.State.TurnCount())
	}
	if res.Feedback.Text == "" {
		t.Fatal("feedback must still be produced after a stop keyword")
	}
	if len(res.Log.Turns) != 1 {
		t.Fatalf("log should keep the completed turn, got %d", len(res.Log.Turns))
	}
}

func TestRunLogTurnIDsAreSequential(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, Config{MaxTurns: 3, LogDir: dir}, Deps{
		Answers: repeatAnswers("ответ кандидата", 3),
	})

	res, err := e.Run(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, turn := range res.Log.Turns {
		if turn.TurnID != i+1 {
			t.Fatalf("turn %d has id %d", i, turn.TurnID)
		}
	}
	if res.LogPath == "" {
		t.Fatal("log path must be set")
	}
	if _, err := os.Stat(res.LogPath); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

func TestRunSurfacesLogSaveFailure(t *testing.T) {
	// A directory path under a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("writing blocker file: %v", err)
	}

	e := newTestEngine(t, Config{MaxTurns: 2, LogDir: filepath.Join(blocker, "logs")}, Deps{
		Answers: repeatAnswers("ответ кандидата", 2),
	})

	res, err := e.Run(context.Background(), testProfile())
	if err == nil {
		t.Fatal("a failed log save must surface from Run")
	}
	if res == nil {
		t.Fatal("the in-memory result must be returned alongside the save error")
	}
	if res.LogPath != "" {
		t.Fatalf("log path must be empty after a failed save, got %q", res.LogPath)
	}
	if res.State.TurnCount() != 2 {
		t.Fatalf("the interview itself must finish, got %d turns", res.State.TurnCount())
	}
	if res.Feedback.Text == "" {
		t.Fatal("feedback must survive a failed save")
	}
}

func TestRunCancelledContextStillReports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, Config{}, Deps{
		Answers: repeatAnswers("ответ", 3),
	})

	res, err := e.Run(ctx, testProfile())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State.TurnCount() != 0 {
		t.Fatalf("cancelled run should complete no turns, got %d", res.State.TurnCount())
	}
	if res.Feedback.Text == "" {
		t.Fatal("feedback must be produced for an interrupted session")
	}
}

func TestRunAnswerSourceClosedGoesToReporting(t *testing.T) {
	e := newTestEngine(t, Config{MaxTurns: 10}, Deps{
		Answers: &scriptedAnswers{answers: []string{"единственный ответ"}},
	})

	res, err := e.Run(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State.TurnCount() != 1 {
		t.Fatalf("expected 1 turn before the source closed, got %d", res.State.TurnCount())
	}
}

type failingGenerator struct{}

func (failingGenerator) GenerateContent(context.Context, string) (string, error) {
	return "", errors.New("service unavailable")
}

// Full pipeline with the real agents and a dead reasoning service: every
// decision must come from the deterministic fallbacks and the run must still
// produce a verdict and a log.
func TestRunWithRealAgentsAllFallbacks(t *testing.T) {
	m := metrics.New()
	caller := ai.NewCaller(failingGenerator{}, ai.CallerConfig{
		MaxRetries: 1,
		Timeout:    time.Second,
		RetryPause: time.Millisecond,
	}, m, zap.NewNop())

	deps := agents.Deps{
		Caller:   caller,
		Verifier: knowledge.NewBase(true, nil, zap.NewNop()),
		Metrics:  m,
		Logger:   zap.NewNop(),
	}
	tun := agents.Tunables{MaxTurns: 2}

	e := newTestEngine(t, Config{MaxTurns: 2}, Deps{
		Coordinator: agents.NewCoordinator(deps, tun),
		Interviewer: agents.NewInterviewer(deps, tun),
		Observer:    agents.NewObserver(deps, tun),
		Reporter:    agents.NewReporter(deps, tun),
		Answers:     repeatAnswers(strings.Repeat("подробный ответ про питон ", 10), 5),
		Metrics:     m,
	})

	res, err := e.Run(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State.TurnCount() != 2 {
		t.Fatalf("expected 2 turns, got %d", res.State.TurnCount())
	}
	if res.Feedback.Verdict.Recommendation == "" {
		t.Fatal("fallback verdict must carry a recommendation")
	}
	if res.Feedback.Text == "" {
		t.Fatal("templated feedback must not be empty")
	}
	if m.Snapshot().FallbacksUsed == 0 {
		t.Fatal("fallbacks should be counted")
	}
	if m.Snapshot().QuestionsAsked != 2 {
		t.Fatalf("expected 2 questions asked, got %d", m.Snapshot().QuestionsAsked)
	}
}
