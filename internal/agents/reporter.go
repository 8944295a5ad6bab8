package agents

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
)

//go:embed prompts/feedback.md
var feedbackPrompt string

const maxRoadmapItems = 5

// Verdict is the deterministic part of the final feedback. It never depends
// on the reasoning service.
type Verdict struct {
	Level          string
	Recommendation string
	Confidence     float64
}

// Feedback is the final report handed to the engine.
type Feedback struct {
	Verdict         Verdict
	ConfirmedSkills []string
	KnowledgeGaps   map[string]string
	SoftSkillNotes  []string
	Roadmap         []string
	Text            string
}

// Reporter builds the final feedback after the interview ends.
type Reporter struct {
	deps Deps
	tun  Tunables
}

func NewReporter(deps Deps, tun Tunables) *Reporter {
	return &Reporter{deps: deps.withDefaults(), tun: tun.withDefaults()}
}

// DetermineLevel maps the declared grade and the smoothed technical score to
// the confirmed level.
func DetermineLevel(grade session.Grade, technical float64) string {
	switch grade {
	case session.GradeJunior:
		if technical >= 6 {
			return "Middle-ready Junior"
		}
		return "Junior"
	case session.GradeMiddle:
		switch {
		case technical >= 8:
			return "Senior-ready Middle"
		case technical >= 6:
			return "Middle"
		default:
			return "Junior+"
		}
	case session.GradeSenior:
		switch {
		case technical >= 9:
			return "Senior"
		case technical >= 7:
			return "Middle+"
		default:
			return "Under review"
		}
	}
	return "Under review"
}

// DetermineRecommendation maps the smoothed scores to a hiring verdict.
func DetermineRecommendation(technical, communication float64) string {
	switch {
	case technical >= 8 && communication >= 7:
		return "Strong Hire"
	case technical >= 6 && communication >= 5:
		return "Hire"
	case technical >= 4:
		return "Hire with reservations"
	default:
		return "No Hire"
	}
}

// BuildVerdict computes the deterministic verdict from the final assessment.
func (r *Reporter) BuildVerdict(s *session.State) Verdict {
	a := s.Assessment
	confidence := math.Min(a.ConfidenceScore*10, 100)
	confidence = math.Round(confidence*10) / 10

	return Verdict{
		Level:          DetermineLevel(s.Candidate.Grade, a.TechnicalScore),
		Recommendation: DetermineRecommendation(a.TechnicalScore, a.CommunicationScore),
		Confidence:     confidence,
	}
}

// Report produces the final feedback. The narrative text comes from the
// reasoning service; if it fails the deterministic parts still stand and a
// templated summary takes its place.
func (r *Reporter) Report(ctx context.Context, s *session.State, duration time.Duration) Feedback {
	verdict := r.BuildVerdict(s)
	roadmap := buildRoadmap(s.Assessment, maxRoadmapItems)

	fb := Feedback{
		Verdict:         verdict,
		ConfirmedSkills: s.Assessment.ConfirmedSkills,
		KnowledgeGaps:   s.Assessment.KnowledgeGaps,
		SoftSkillNotes:  s.Assessment.SoftSkillNotes,
		Roadmap:         roadmap,
	}

	prompt := render(feedbackPrompt, map[string]string{
		"CANDIDATE":          profileSummary(s.Candidate),
		"DURATION":           formatDuration(duration),
		"TOTAL_QUESTIONS":    strconv.Itoa(s.TurnCount()),
		"ASSESSMENT_SUMMARY": assessmentSummary(s.Assessment),
		"LEVEL":              verdict.Level,
		"RECOMMENDATION":     verdict.Recommendation,
		"CONFIDENCE":         fmt.Sprintf("%.1f%%", verdict.Confidence),
		"CONFIRMED_SKILLS":   formatList(s.Assessment.ConfirmedSkills),
		"KNOWLEDGE_GAPS":     formatGaps(s.Assessment.KnowledgeGaps),
		"SOFT_SKILLS":        formatList(s.Assessment.SoftSkillNotes),
		"ROADMAP":            formatList(roadmap),
	})

	text, err := r.deps.Caller.Text(ctx, prompt)
	if err != nil {
		r.deps.Logger.Warn("reporter call failed, using the neutral verdict", zap.Error(err))
		r.deps.Metrics.FallbackUsed()
		return r.fallback(s, duration)
	}

	fb.Text = strings.TrimSpace(text)
	if fb.Text == "" {
		fb.Text = r.fallbackText(s, verdict, roadmap, duration)
	}
	return fb
}

// fallback is the neutral feedback emitted when the reasoning service is
// unavailable: the session still ends with a verdict, but one that asks for a
// human decision instead of guessing.
func (r *Reporter) fallback(s *session.State, duration time.Duration) Feedback {
	verdict := Verdict{
		Level:          "Under review",
		Recommendation: "Manual review required",
		Confidence:     50,
	}
	roadmap := []string{"Провести повторное интервью с живым интервьюером"}

	return Feedback{
		Verdict:         verdict,
		ConfirmedSkills: s.Assessment.ConfirmedSkills,
		KnowledgeGaps:   s.Assessment.KnowledgeGaps,
		SoftSkillNotes:  s.Assessment.SoftSkillNotes,
		Roadmap:         roadmap,
		Text:            r.fallbackText(s, verdict, roadmap, duration),
	}
}

func (r *Reporter) fallbackText(s *session.State, verdict Verdict, roadmap []string, duration time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Итоги интервью: %s\n\n", s.Candidate.Name)
	fmt.Fprintf(&b, "Вопросов задано: %d, длительность: %s\n", s.TurnCount(), formatDuration(duration))
	fmt.Fprintf(&b, "Подтвержденный уровень: %s\n", verdict.Level)
	fmt.Fprintf(&b, "Рекомендация: %s (уверенность %.1f%%)\n\n", verdict.Recommendation, verdict.Confidence)
	fmt.Fprintf(&b, "Оценки: %s\n\n", assessmentSummary(s.Assessment))
	if len(s.Assessment.ConfirmedSkills) > 0 {
		fmt.Fprintf(&b, "Подтвержденные навыки:\n%s\n\n", formatList(s.Assessment.ConfirmedSkills))
	}
	if len(s.Assessment.KnowledgeGaps) > 0 {
		fmt.Fprintf(&b, "Пробелы в знаниях:\n%s\n\n", formatGaps(s.Assessment.KnowledgeGaps))
	}
	fmt.Fprintf(&b, "План развития:\n%s\n", formatList(roadmap))
	return b.String()
}

func buildRoadmap(a session.Assessment, limit int) []string {
	topics := make([]string, 0, len(a.KnowledgeGaps))
	for topic := range a.KnowledgeGaps {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	roadmap := make([]string, 0, limit)
	for _, topic := range topics {
		if len(roadmap) >= limit {
			break
		}
		roadmap = append(roadmap, fmt.Sprintf("Изучить тему «%s» и закрыть выявленные пробелы", topic))
	}

	if len(roadmap) < limit && a.TechnicalScore < 6 {
		roadmap = append(roadmap, "Укрепить базовые технические знания по основному стеку")
	}
	if len(roadmap) < limit && a.CommunicationScore < 5 {
		roadmap = append(roadmap, "Практиковать развернутые ответы на технические вопросы")
	}
	if len(roadmap) == 0 {
		roadmap = append(roadmap, "Продолжать углублять экспертизу в текущем стеке")
	}
	return roadmap
}

func assessmentSummary(a session.Assessment) string {
	return fmt.Sprintf("техника %s, коммуникация %s, уверенность %s",
		formatFloat(a.TechnicalScore),
		formatFloat(a.CommunicationScore),
		formatFloat(a.ConfidenceScore),
	)
}

func formatGaps(gaps map[string]string) string {
	if len(gaps) == 0 {
		return "- нет"
	}
	topics := make([]string, 0, len(gaps))
	for topic := range gaps {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	lines := make([]string, 0, len(topics))
	for _, topic := range topics {
		lines = append(lines, fmt.Sprintf("- %s: %s", topic, gaps[topic]))
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%d сек", int(d.Seconds()))
	}
	return fmt.Sprintf("%d мин %d сек", int(d.Minutes()), int(d.Seconds())%60)
}
