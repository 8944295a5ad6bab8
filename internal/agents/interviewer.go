package agents

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/session"
)

//go:embed prompts/interviewer.md
var interviewerPrompt string

//go:embed prompts/question_retry.md
var questionRetryPrompt string

// fallbackQuestions are used when the reasoning service cannot produce a
// usable question. Keyed by lowercased topic.
var fallbackQuestions = map[string][]string{
	"python": {
		"Расскажите о своем опыте работы с Python?",
		"Какие структуры данных в Python вы используете чаще всего и почему?",
		"Чем список отличается от кортежа в Python?",
		"Как работает сборка мусора в Python?",
		"Что такое декораторы и где вы их применяли?",
	},
	"базы данных": {
		"Какие базы данных вы использовали в своих проектах?",
		"Чем отличаются реляционные базы данных от нереляционных?",
		"Что такое индексы и когда их стоит использовать?",
		"Расскажите про уровни изоляции транзакций?",
	},
}

// Interviewer turns the coordinator's instruction into a concrete question
// for the candidate.
type Interviewer struct {
	deps Deps
	tun  Tunables
}

func NewInterviewer(deps Deps, tun Tunables) *Interviewer {
	return &Interviewer{deps: deps.withDefaults(), tun: tun.withDefaults()}
}

// NextQuestion produces a question that has not been asked yet in this
// session. It never returns an empty string.
func (iv *Interviewer) NextQuestion(ctx context.Context, s *session.State) string {
	topic := s.Topic
	if topic == "" && len(s.Candidate.Technologies) > 0 {
		topic = s.Candidate.Technologies[0]
	}

	asked := lastN(s.AskedQuestions, iv.tun.AskedQuestionsShown)

	prompt := render(interviewerPrompt, map[string]string{
		"CANDIDATE":       profileSummary(s.Candidate),
		"TECHNOLOGIES":    formatTechnologies(s.Candidate.Technologies, iv.tun.TechnologiesShown),
		"TOPIC":           orDefault(topic, "общие вопросы"),
		"DIFFICULTY":      strconv.Itoa(s.Difficulty),
		"INSTRUCTION":     orDefault(s.Instruction, defaultInstruction),
		"OBSERVER_NOTES":  orDefault(s.Recommendation, "нет заметок"),
		"HISTORY":         formatHistory(s.History(iv.tun.HistoryTurns)),
		"ASKED_QUESTIONS": formatList(asked),
	})

	if q := iv.generate(ctx, prompt, s); q != "" {
		return q
	}

	// One retry with a prompt that stresses novelty.
	retry := render(questionRetryPrompt, map[string]string{
		"TOPIC":           orDefault(topic, "общие вопросы"),
		"DIFFICULTY":      strconv.Itoa(s.Difficulty),
		"ASKED_QUESTIONS": formatList(asked),
	})
	if q := iv.generate(ctx, retry, s); q != "" {
		return q
	}

	iv.deps.Logger.Warn("interviewer falling back to the question bank",
		zap.String("topic", topic),
	)
	iv.deps.Metrics.FallbackUsed()
	return iv.fallback(topic, s.AskedQuestions)
}

func (iv *Interviewer) generate(ctx context.Context, prompt string, s *session.State) string {
	text, err := iv.deps.Caller.Text(ctx, prompt)
	if err != nil {
		iv.deps.Logger.Warn("interviewer call failed", zap.Error(err))
		return ""
	}

	q := tidyQuestion(text)
	if q == "" || isDuplicate(q, s.AskedQuestions) {
		return ""
	}
	return q
}

func (iv *Interviewer) fallback(topic string, asked []string) string {
	for _, q := range fallbackQuestions[strings.ToLower(strings.TrimSpace(topic))] {
		if !isDuplicate(q, asked) {
			return q
		}
	}
	return fmt.Sprintf("Расскажите о своем опыте работы с %s (вопрос %d)?",
		orDefault(topic, "вашими основными технологиями"), len(asked)+1)
}

// tidyQuestion strips chat framing the model sometimes adds and makes sure
// the result reads as a question.
func tidyQuestion(text string) string {
	q := strings.TrimSpace(text)
	if idx := strings.IndexByte(q, '\n'); idx >= 0 {
		q = strings.TrimSpace(q[:idx])
	}

	for _, prefix := range []string{"Вопрос:", "Question:", "Q:", "Интервьюер:"} {
		if strings.HasPrefix(q, prefix) {
			q = strings.TrimSpace(strings.TrimPrefix(q, prefix))
		}
	}
	q = strings.Trim(q, "\"«»")

	if q == "" {
		return ""
	}
	if !strings.HasSuffix(q, "?") {
		q = strings.TrimRight(q, ".!") + "?"
	}
	return q
}

func isDuplicate(question string, asked []string) bool {
	key := normalizeQuestion(question)
	for _, prev := range asked {
		if normalizeQuestion(prev) == key {
			return true
		}
	}
	return false
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(q), "?.!"))
}
