// Package knowledge provides the verification collaborator consulted by the
// observer: given a question/answer pair it returns a confidence score and
// supporting text. The stock implementation is an in-memory document base
// scored by keyword overlap; it is read-only after construction and safe to
// share across sessions.
package knowledge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/utils"
)

// Result is the outcome of verifying a candidate answer.
type Result struct {
	Confidence     float64
	SupportingText string
}

// Verifier checks an answer against reference material. Implementations must
// not block indefinitely; callers treat any error as confidence 0.5.
type Verifier interface {
	Verify(ctx context.Context, question, answer, topic string) (Result, error)
}

// Document is one reference entry in the base.
type Document struct {
	Topic      string
	Subtopic   string
	Difficulty int
	Text       string
}

const (
	// keywordTarget is the overlap count mapped to full confidence.
	keywordTarget = 4
	// minKeywordRunes filters out prepositions and particles when tokenizing.
	minKeywordRunes = 4

	supportPrefix  = "Согласно базе знаний: "
	disabledText   = "Проверка знаний отключена"
	noMatchText    = "Не найдено релевантной информации в базе знаний"
	supportMaxLen  = 200
	disabledScore  = 0.5
	noMatchScore   = 0.3
)

type Base struct {
	enabled bool
	docs    []Document
	logger  *zap.Logger
}

// NewBase builds a verifier over the provided documents. A nil document slice
// loads the default reference set.
func NewBase(enabled bool, docs []Document, logger *zap.Logger) *Base {
	if docs == nil {
		docs = DefaultDocuments()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Base{enabled: enabled, docs: docs, logger: logger}
}

func (b *Base) Verify(_ context.Context, question, answer, topic string) (Result, error) {
	if !b.enabled {
		return Result{Confidence: disabledScore, SupportingText: disabledText}, nil
	}

	doc, overlap := b.bestMatch(question, answer, topic)
	if doc == nil {
		return Result{Confidence: noMatchScore, SupportingText: noMatchText}, nil
	}

	confidence := float64(overlap) / keywordTarget
	if confidence > 1 {
		confidence = 1
	}

	b.logger.Debug("knowledge verification",
		zap.String("topic", topic),
		zap.Int("keyword_overlap", overlap),
		zap.Float64("confidence", confidence),
	)

	return Result{
		Confidence:     confidence,
		SupportingText: supportPrefix + utils.TruncateForLog(doc.Text, supportMaxLen),
	}, nil
}

// bestMatch returns the document sharing the most keywords with the answer.
// Documents matching the topic are preferred; when none match the whole base
// is considered.
func (b *Base) bestMatch(question, answer, topic string) (*Document, int) {
	candidates := b.byTopic(topic)
	if len(candidates) == 0 {
		candidates = b.docs
	}

	answerWords := tokenize(answer)
	if len(answerWords) == 0 {
		answerWords = tokenize(question)
	}

	var best *Document
	bestOverlap := 0
	for i := range candidates {
		overlap := overlapCount(tokenize(candidates[i].Text), answerWords)
		if overlap > bestOverlap {
			best = &candidates[i]
			bestOverlap = overlap
		}
	}

	return best, bestOverlap
}

func (b *Base) byTopic(topic string) []Document {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return nil
	}

	var matched []Document
	for _, doc := range b.docs {
		if strings.Contains(topic, doc.Topic) || strings.Contains(doc.Topic, topic) {
			matched = append(matched, doc)
		}
	}
	return matched
}

func tokenize(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	}) {
		if len([]rune(w)) < minKeywordRunes {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

func isWordRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= 'а' && r <= 'я') || (r >= 'А' && r <= 'Я') || r == 'ё' || r == 'Ё'
}

func overlapCount(doc, answer map[string]struct{}) int {
	count := 0
	for w := range answer {
		if _, ok := doc[w]; ok {
			count++
		}
	}
	return count
}

// DefaultDocuments returns the built-in reference set used when no custom
// knowledge base is configured.
func DefaultDocuments() []Document {
	return []Document{
		{Topic: "python", Subtopic: "basics", Difficulty: 1, Text: "Python - интерпретируемый язык программирования высокого уровня с динамической типизацией."},
		{Topic: "python", Subtopic: "data_structures", Difficulty: 1, Text: "Список (list) в Python - изменяемая последовательность элементов. Кортеж (tuple) неизменяем. Сложность доступа по индексу O(1)."},
		{Topic: "python", Subtopic: "data_structures", Difficulty: 1, Text: "Словарь (dict) - структура данных ключ-значение. В среднем O(1) для операций поиска, вставки, удаления."},
		{Topic: "python", Subtopic: "advanced", Difficulty: 3, Text: "Декоратор в Python - функция, которая принимает другую функцию и расширяет её функциональность, не изменяя её код."},
		{Topic: "python", Subtopic: "concurrency", Difficulty: 4, Text: "GIL (Global Interpreter Lock) в CPython позволяет выполнять только один поток Python одновременно."},
		{Topic: "базы данных", Subtopic: "sql", Difficulty: 2, Text: "SQL JOIN объединяет строки из двух или более таблиц на основе связанного столбца. Типы: INNER, LEFT, RIGHT, FULL."},
		{Topic: "базы данных", Subtopic: "performance", Difficulty: 3, Text: "Индекс в базе данных ускоряет поиск, но замедляет вставку и обновление. Используется B-дерево или hash индексы."},
		{Topic: "web", Subtopic: "api", Difficulty: 2, Text: "REST API использует HTTP методы: GET (получить), POST (создать), PUT (обновить), DELETE (удалить)."},
		{Topic: "devops", Subtopic: "containers", Difficulty: 2, Text: "Docker контейнер - изолированная среда для запуска приложений. Образ - шаблон для создания контейнеров."},
	}
}
