package session

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// State is the single root of all mutable interview data. It is created at
// session start, mutated in place by the engine's stages and discarded after
// the transcript is flushed. There are no concurrent writers.
type State struct {
	Candidate  CandidateProfile
	Assessment Assessment
	Turns      []Turn

	Topic      string
	Difficulty int
	Complete   bool

	PendingQuestion string
	PendingAnswer   string
	AskedQuestions  []string

	// Instruction is the coordinator's latest directive for the interviewer;
	// Recommendation is the observer's latest hint for the coordinator.
	Instruction    string
	Recommendation string

	// thoughts accumulates the per-turn agent trace for the transcript.
	thoughts []string

	StartedAt time.Time
}

func NewState(candidate CandidateProfile, difficulty int) *State {
	return &State{
		Candidate:  candidate,
		Assessment: NewAssessment(),
		Difficulty: ClampDifficulty(difficulty),
		StartedAt:  time.Now(),
	}
}

func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

func (s *State) TurnCount() int {
	return len(s.Turns)
}

// RecordQuestion stores the freshly asked question and clears the answer slot.
func (s *State) RecordQuestion(question string) {
	s.PendingQuestion = question
	s.PendingAnswer = ""
	s.AskedQuestions = append(s.AskedQuestions, question)
}

func (s *State) RecordAnswer(answer string) {
	s.PendingAnswer = answer
}

// CompleteTurn appends the evaluated exchange to the turn sequence and resets
// the per-turn slots. Turn IDs are assigned sequentially from 1.
func (s *State) CompleteTurn(eval Evaluation) Turn {
	turn := Turn{
		ID:         len(s.Turns) + 1,
		Question:   s.PendingQuestion,
		Answer:     s.PendingAnswer,
		Evaluation: eval,
		Thoughts:   s.TakeThoughts(),
	}
	s.Turns = append(s.Turns, turn)

	s.PendingQuestion = ""
	s.PendingAnswer = ""
	s.Instruction = ""
	s.Recommendation = eval.NextQuestionHint

	return turn
}

// History returns the last n completed turns, oldest first.
func (s *State) History(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if n > len(s.Turns) {
		n = len(s.Turns)
	}
	return s.Turns[len(s.Turns)-n:]
}

// AddThought appends one agent trace line for the current turn.
func (s *State) AddThought(role, text string) {
	s.thoughts = append(s.thoughts, fmt.Sprintf("[%s]: %s", role, text))
}

// TakeThoughts drains the accumulated trace as a single block.
func (s *State) TakeThoughts() string {
	joined := strings.Join(s.thoughts, "\n")
	s.thoughts = nil
	return joined
}
