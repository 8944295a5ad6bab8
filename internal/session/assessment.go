package session

import (
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/utils"
)

const (
	// Exponential smoothing weights: history keeps 0.7, the new turn adds 0.3.
	historyWeight = 0.7
	turnWeight    = 0.3

	scoreMin = 0.0
	scoreMax = 10.0

	correctionLimit = 200

	defaultGapTopic = "общие вопросы"

	noteEvasive = "evasive when answering"
	noteDeep    = "showed deep understanding of the topic"
)

// Assessment is the running candidate profile, updated after every turn.
type Assessment struct {
	TechnicalScore     float64
	CommunicationScore float64
	ConfidenceScore    float64

	ConfirmedSkills []string
	KnowledgeGaps   map[string]string
	SoftSkillNotes  []string
}

func NewAssessment() Assessment {
	return Assessment{KnowledgeGaps: make(map[string]string)}
}

// Apply folds one evaluation into the running scores. The smoothing update is
// a convex combination of clamped inputs, so all scores stay within [0,10].
func (a *Assessment) Apply(topic string, eval Evaluation) {
	a.TechnicalScore = smooth(a.TechnicalScore, eval.TechnicalScore)
	a.CommunicationScore = smooth(a.CommunicationScore, eval.CommunicationScore)
	a.ConfidenceScore = smooth(a.ConfidenceScore, eval.ConfidenceScore)

	if eval.HasErrors && eval.SuggestedCorrection != "" {
		if topic == "" {
			topic = defaultGapTopic
		}
		if a.KnowledgeGaps == nil {
			a.KnowledgeGaps = make(map[string]string)
		}
		a.KnowledgeGaps[topic] = utils.TruncateRunes(eval.SuggestedCorrection, correctionLimit)
	}

	if eval.IsEvasive {
		a.SoftSkillNotes = append(a.SoftSkillNotes, noteEvasive)
	}

	if eval.Depth == DepthDeep {
		a.SoftSkillNotes = append(a.SoftSkillNotes, noteDeep)
	}
}

// ConfirmSkill records a skill once.
func (a *Assessment) ConfirmSkill(skill string) {
	for _, s := range a.ConfirmedSkills {
		if s == skill {
			return
		}
	}
	a.ConfirmedSkills = append(a.ConfirmedSkills, skill)
}

func smooth(old, incoming float64) float64 {
	return old*historyWeight + clampScore(incoming)*turnWeight
}

func clampScore(v float64) float64 {
	if v < scoreMin {
		return scoreMin
	}
	if v > scoreMax {
		return scoreMax
	}
	return v
}
