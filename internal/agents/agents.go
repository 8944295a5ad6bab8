// Package agents implements the four decision roles of the interview:
// Coordinator routes, Interviewer asks, Observer evaluates, Reporter
// concludes. Every role renders a prompt, calls the resilient ai.Caller and,
// when the call fails or the output fails sanity checks, substitutes a
// deterministic fallback so the engine always receives a usable decision.
package agents

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/ai"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/knowledge"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/metrics"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
)

// Deps aggregates the collaborators shared by all agents.
type Deps struct {
	Caller   *ai.Caller
	Verifier knowledge.Verifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Tunables collects the heuristic thresholds used by the deterministic
// fallbacks. They are configuration, not invariants.
type Tunables struct {
	// MaxTurns caps the interview length.
	MaxTurns int
	// EarlyFinishTurns and EarlyFinishScore end the interview early once the
	// candidate has clearly demonstrated a high level.
	EarlyFinishTurns int
	EarlyFinishScore float64

	// ErrorConfidenceFloor marks an answer as erroneous when the knowledge
	// check scores below it.
	ErrorConfidenceFloor float64

	// ShortAnswerWords and LongAnswerWords bound the length bands of the
	// observer fallback.
	ShortAnswerWords int
	LongAnswerWords  int

	// RaiseQuality and LowerQuality drive difficulty adaptation from the
	// normalized technical score of the last answer.
	RaiseQuality float64
	LowerQuality float64

	// HistoryTurns and AskedQuestionsShown limit how much context goes into
	// the prompts.
	HistoryTurns        int
	AskedQuestionsShown int
	// TechnologiesShown limits how many declared technologies are rendered.
	TechnologiesShown int
	// AnswerRuneLimit truncates very long answers before evaluation.
	AnswerRuneLimit int
}

func (t Tunables) withDefaults() Tunables {
	if t.MaxTurns <= 0 {
		t.MaxTurns = 10
	}
	if t.EarlyFinishTurns <= 0 {
		t.EarlyFinishTurns = 5
	}
	if t.EarlyFinishScore <= 0 {
		t.EarlyFinishScore = 7
	}
	if t.ErrorConfidenceFloor <= 0 {
		t.ErrorConfidenceFloor = 0.4
	}
	if t.ShortAnswerWords <= 0 {
		t.ShortAnswerWords = 15
	}
	if t.LongAnswerWords <= 0 {
		t.LongAnswerWords = 100
	}
	if t.RaiseQuality <= 0 {
		t.RaiseQuality = 0.8
	}
	if t.LowerQuality <= 0 {
		t.LowerQuality = 0.4
	}
	if t.HistoryTurns <= 0 {
		t.HistoryTurns = 4
	}
	if t.AskedQuestionsShown <= 0 {
		t.AskedQuestionsShown = 5
	}
	if t.TechnologiesShown <= 0 {
		t.TechnologiesShown = 5
	}
	if t.AnswerRuneLimit <= 0 {
		t.AnswerRuneLimit = 4000
	}
	return t
}

// render substitutes {{KEY}} placeholders in a prompt template.
func render(template string, vars map[string]string) string {
	for key, value := range vars {
		template = strings.ReplaceAll(template, "{{"+key+"}}", value)
	}
	return template
}

// formatHistory renders the last turns as a dialog for the prompts.
func formatHistory(turns []session.Turn) string {
	if len(turns) == 0 {
		return "Нет истории диалога"
	}

	lines := make([]string, 0, len(turns)*2)
	for _, turn := range turns {
		lines = append(lines,
			"Интервьюер: "+turn.Question,
			"Кандидат: "+turn.Answer,
		)
	}
	return strings.Join(lines, "\n")
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "- нет"
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

func formatTechnologies(technologies []string, limit int) string {
	if len(technologies) > limit {
		technologies = technologies[:limit]
	}
	if len(technologies) == 0 {
		return "не указаны"
	}
	return strings.Join(technologies, ", ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func profileSummary(p session.CandidateProfile) string {
	return fmt.Sprintf("%s, позиция %s, грейд %s, опыт %.1f лет",
		orDefault(p.Name, "Анонимный кандидат"), orDefault(p.Position, "не указана"), string(p.Grade), p.ExperienceYears)
}
