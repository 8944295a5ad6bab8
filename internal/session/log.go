package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LogTurn is the persisted form of one exchange.
type LogTurn struct {
	TurnID              int    `json:"turn_id"`
	AgentVisibleMessage string `json:"agent_visible_message"`
	UserMessage         string `json:"user_message"`
	InternalThoughts    string `json:"internal_thoughts"`
}

// Log is the append-only session transcript. The engine only appends to it
// and reads back nothing but counts.
type Log struct {
	ID            string
	Participant   string
	StartedAt     time.Time
	EndedAt       time.Time
	Turns         []LogTurn
	FinalFeedback string
}

func NewLog(participant string) *Log {
	return &Log{
		ID:          uuid.NewString(),
		Participant: participant,
		StartedAt:   time.Now(),
	}
}

// Append records one exchange. Turn IDs are strictly sequential from 1.
func (l *Log) Append(question, answer, thoughts string) {
	l.Turns = append(l.Turns, LogTurn{
		TurnID:              len(l.Turns) + 1,
		AgentVisibleMessage: question,
		UserMessage:         answer,
		InternalThoughts:    thoughts,
	})
}

// Finish stores the final feedback text and stamps the end time.
func (l *Log) Finish(feedback string) {
	l.FinalFeedback = feedback
	if l.EndedAt.IsZero() {
		l.EndedAt = time.Now()
	}
}

func (l *Log) Duration() time.Duration {
	end := l.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(l.StartedAt)
}

type logPayload struct {
	ParticipantName string    `json:"participant_name"`
	Turns           []LogTurn `json:"turns"`
	FinalFeedback   string    `json:"final_feedback"`
}

// SaveTo writes the transcript as JSON into dir and returns the file path.
func (l *Log) SaveTo(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory %q: %w", dir, err)
	}

	payload := logPayload{
		ParticipantName: l.Participant,
		Turns:           l.Turns,
		FinalFeedback:   l.FinalFeedback,
	}
	if payload.Turns == nil {
		payload.Turns = []LogTurn{}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling session log: %w", err)
	}

	name := fmt.Sprintf("interview_%s_%s.json", sanitizeName(l.Participant), l.StartedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing session log %q: %w", path, err)
	}

	return path, nil
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r == 'ё', r == 'Ё':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
