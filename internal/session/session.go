// Package session holds all mutable data of one interview: the candidate
// profile, the running assessment, the ordered turn sequence and the
// append-only transcript log. One State instance per session, owned by the
// engine; nothing here is shared between sessions.
package session

// Grade is the declared seniority level of a candidate.
type Grade string

const (
	GradeJunior Grade = "Junior"
	GradeMiddle Grade = "Middle"
	GradeSenior Grade = "Senior"
)

// CandidateProfile is the immutable input collected before the session starts.
type CandidateProfile struct {
	Name            string
	Position        string
	Grade           Grade
	ExperienceYears float64
	Technologies    []string
}

// KnowledgeDepth classifies how deep an answer went.
type KnowledgeDepth string

const (
	DepthShallow  KnowledgeDepth = "shallow"
	DepthAdequate KnowledgeDepth = "adequate"
	DepthDeep     KnowledgeDepth = "deep"
)

// Evaluation is the observer's verdict on one question/answer pair. Scores are
// on a 0..10 scale and already clamped by the observer.
type Evaluation struct {
	TechnicalScore     float64
	CompletenessScore  float64
	ConfidenceScore    float64
	CommunicationScore float64

	HasErrors bool
	Errors    []string
	IsEvasive bool
	Depth     KnowledgeDepth

	NextQuestionHint    string
	SuggestedCorrection string
	Reasoning           string
}

// Turn is one completed question/answer exchange. Turns are appended in order
// and never edited afterward.
type Turn struct {
	ID         int
	Question   string
	Answer     string
	Evaluation Evaluation
	Thoughts   string
}
