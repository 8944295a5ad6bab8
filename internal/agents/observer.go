package agents

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/knowledge"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/utils"
)

//go:embed prompts/observer.md
var observerPrompt string

// shortResponses mark an answer as evasive regardless of its length.
var shortResponses = []string{
	"не знаю", "не помню", "ничем", "нет", "не", "no", "don't know",
}

const fallbackCorrection = "Рекомендуем глубже изучить эту тему: " +
	"посмотрите официальную документацию и разберите базовые примеры."

type rawEvaluation struct {
	TechnicalScore      float64  `mapstructure:"technical_score"`
	CompletenessScore   float64  `mapstructure:"completeness_score"`
	ConfidenceScore     float64  `mapstructure:"confidence_score"`
	CommunicationScore  float64  `mapstructure:"communication_score"`
	HasErrors           bool     `mapstructure:"has_errors"`
	Errors              []string `mapstructure:"errors_list"`
	IsEvasive           bool     `mapstructure:"is_evasive"`
	Depth               string   `mapstructure:"depth_of_knowledge"`
	NextQuestionHint    string   `mapstructure:"recommendation_for_next_question"`
	SuggestedCorrection string   `mapstructure:"suggested_correction"`
	Reasoning           string   `mapstructure:"reasoning"`
}

// Observer scores each answer, checking it against the knowledge base first.
type Observer struct {
	deps Deps
	tun  Tunables
}

func NewObserver(deps Deps, tun Tunables) *Observer {
	return &Observer{deps: deps.withDefaults(), tun: tun.withDefaults()}
}

func (o *Observer) Evaluate(ctx context.Context, s *session.State, question, answer string) session.Evaluation {
	verification := o.verify(ctx, question, answer, s.Topic)

	prompt := render(observerPrompt, map[string]string{
		"TOPIC":           orDefault(s.Topic, "общие вопросы"),
		"GRADE":           string(s.Candidate.Grade),
		"QUESTION":        question,
		"ANSWER":          utils.TruncateRunes(answer, o.tun.AnswerRuneLimit),
		"KNOWLEDGE_CHECK": fmt.Sprintf("%s (уверенность: %.2f)", verification.SupportingText, verification.Confidence),
	})

	var raw rawEvaluation
	if err := o.deps.Caller.Object(ctx, prompt, &raw); err != nil {
		o.deps.Logger.Warn("observer call failed, using heuristic evaluation", zap.Error(err))
		o.deps.Metrics.FallbackUsed()
		return o.Fallback(answer, verification)
	}

	return o.normalize(raw)
}

func (o *Observer) verify(ctx context.Context, question, answer, topic string) knowledge.Result {
	if o.deps.Verifier == nil {
		return knowledge.Result{Confidence: 0.5, SupportingText: "Проверка знаний недоступна"}
	}
	res, err := o.deps.Verifier.Verify(ctx, question, answer, topic)
	if err != nil {
		o.deps.Logger.Warn("knowledge verification failed", zap.Error(err))
		return knowledge.Result{Confidence: 0.5, SupportingText: "Проверка знаний недоступна"}
	}
	return res
}

func (o *Observer) normalize(raw rawEvaluation) session.Evaluation {
	depth := session.KnowledgeDepth(strings.TrimSpace(strings.ToLower(raw.Depth)))
	switch depth {
	case session.DepthShallow, session.DepthAdequate, session.DepthDeep:
	default:
		depth = session.DepthAdequate
	}

	return session.Evaluation{
		TechnicalScore:      clampScore(raw.TechnicalScore),
		CompletenessScore:   clampScore(raw.CompletenessScore),
		ConfidenceScore:     clampScore(raw.ConfidenceScore),
		CommunicationScore:  clampScore(raw.CommunicationScore),
		HasErrors:           raw.HasErrors,
		Errors:              raw.Errors,
		IsEvasive:           raw.IsEvasive,
		Depth:               depth,
		NextQuestionHint:    strings.TrimSpace(raw.NextQuestionHint),
		SuggestedCorrection: strings.TrimSpace(raw.SuggestedCorrection),
		Reasoning:           strings.TrimSpace(raw.Reasoning),
	}
}

// Fallback scores an answer with length heuristics when the reasoning
// service is unavailable.
func (o *Observer) Fallback(answer string, verification knowledge.Result) session.Evaluation {
	words := countWords(answer)
	trimmed := strings.ToLower(strings.TrimSpace(answer))

	if isShortResponse(trimmed) || words <= 2 {
		return session.Evaluation{
			TechnicalScore:      1,
			CompletenessScore:   1,
			ConfidenceScore:     2,
			CommunicationScore:  3,
			HasErrors:           true,
			IsEvasive:           true,
			Depth:               session.DepthShallow,
			SuggestedCorrection: fallbackCorrection,
			Reasoning:           "Heuristic: answer is too short to evaluate",
		}
	}

	var score float64
	switch {
	case words < o.tun.ShortAnswerWords:
		score = 3
	case words > o.tun.LongAnswerWords:
		score = 7
	default:
		score = 5
	}

	eval := session.Evaluation{
		TechnicalScore:     score,
		CompletenessScore:  score,
		ConfidenceScore:    score,
		CommunicationScore: score,
		IsEvasive:          words < o.tun.ShortAnswerWords,
		Depth:              session.DepthShallow,
		Reasoning:          "Heuristic: scored by answer length",
	}
	if score > 6 {
		eval.CommunicationScore = 8
		eval.Depth = session.DepthAdequate
	}
	if verification.Confidence < o.tun.ErrorConfidenceFloor {
		eval.HasErrors = true
		eval.SuggestedCorrection = fallbackCorrection
	}
	return eval
}

func isShortResponse(trimmed string) bool {
	for _, s := range shortResponses {
		if trimmed == s {
			return true
		}
	}
	return false
}
