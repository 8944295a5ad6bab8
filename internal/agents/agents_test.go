package agents

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/ai"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/knowledge"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/metrics"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
)

var errStub = errors.New("stub generator failure")

type stubGenerator struct {
	responses []string
	err       error
	calls     int
}

func (s *stubGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

type stubVerifier struct {
	result knowledge.Result
	err    error
}

func (s *stubVerifier) Verify(_ context.Context, _, _, _ string) (knowledge.Result, error) {
	return s.result, s.err
}

func testDeps(gen ai.Generator) (Deps, *metrics.Metrics) {
	m := metrics.New()
	caller := ai.NewCaller(gen, ai.CallerConfig{
		MaxRetries: 1,
		Timeout:    time.Second,
		RetryPause: time.Millisecond,
	}, m, zap.NewNop())

	return Deps{
		Caller:   caller,
		Verifier: &stubVerifier{result: knowledge.Result{Confidence: 0.9, SupportingText: "ok"}},
		Metrics:  m,
		Logger:   zap.NewNop(),
	}, m
}

func testState(turns int, technical float64) *session.State {
	s := session.NewState(session.CandidateProfile{
		Name:            "Иван Иванов",
		Position:        "Python Developer",
		Grade:           session.GradeMiddle,
		ExperienceYears: 3,
		Technologies:    []string{"Python", "SQL"},
	}, 2)
	s.Topic = "python"

	for i := 0; i < turns; i++ {
		s.RecordQuestion("q")
		s.RecordAnswer("a")
		s.CompleteTurn(session.Evaluation{TechnicalScore: technical})
	}
	s.Assessment.TechnicalScore = technical
	return s
}
