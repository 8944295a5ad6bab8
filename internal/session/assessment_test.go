package session

import (
	"math"
	"strings"
	"testing"
)

func TestApplySmoothingConvergesTowardEight(t *testing.T) {
	a := NewAssessment()

	for i := 0; i < 3; i++ {
		a.Apply("python", Evaluation{
			TechnicalScore:     8,
			CommunicationScore: 7,
			ConfidenceScore:    7,
		})
	}

	// 8 * 0.3 * (1 + 0.7 + 0.49) = 5.256
	if math.Abs(a.TechnicalScore-5.256) > 1e-9 {
		t.Fatalf("expected technical score 5.256, got %v", a.TechnicalScore)
	}

	expectedComm := 7 * 0.3 * (1 + 0.7 + 0.49)
	if math.Abs(a.CommunicationScore-expectedComm) > 1e-9 {
		t.Fatalf("expected communication score %v, got %v", expectedComm, a.CommunicationScore)
	}
}

func TestApplyKeepsScoresWithinBounds(t *testing.T) {
	a := NewAssessment()

	inputs := []float64{25, -14, 10, 0, 9.9, 1000, -0.001}
	for _, v := range inputs {
		a.Apply("python", Evaluation{
			TechnicalScore:     v,
			CommunicationScore: v,
			ConfidenceScore:    v,
		})

		for _, score := range []float64{a.TechnicalScore, a.CommunicationScore, a.ConfidenceScore} {
			if score < 0 || score > 10 {
				t.Fatalf("score escaped [0,10] after input %v: %v", v, score)
			}
		}
	}
}

func TestApplyRecordsKnowledgeGapTruncated(t *testing.T) {
	a := NewAssessment()

	correction := strings.Repeat("й", 300)
	a.Apply("python", Evaluation{HasErrors: true, SuggestedCorrection: correction})

	gap, ok := a.KnowledgeGaps["python"]
	if !ok {
		t.Fatal("expected a knowledge gap for the current topic")
	}
	if got := len([]rune(gap)); got != 200 {
		t.Fatalf("expected 200 runes, got %d", got)
	}
}

func TestApplyUsesDefaultTopicWhenEmpty(t *testing.T) {
	a := NewAssessment()

	a.Apply("", Evaluation{HasErrors: true, SuggestedCorrection: "повторите основы"})

	if _, ok := a.KnowledgeGaps[defaultGapTopic]; !ok {
		t.Fatalf("expected gap under the default topic, got %v", a.KnowledgeGaps)
	}
}

func TestApplyAppendsSoftSkillNotes(t *testing.T) {
	a := NewAssessment()

	a.Apply("python", Evaluation{IsEvasive: true})
	a.Apply("python", Evaluation{Depth: DepthDeep})
	a.Apply("python", Evaluation{IsEvasive: true})

	if len(a.SoftSkillNotes) != 3 {
		t.Fatalf("expected 3 notes (duplicates allowed), got %d", len(a.SoftSkillNotes))
	}
	if !strings.Contains(a.SoftSkillNotes[0], "evasive") {
		t.Fatalf("expected an evasiveness note, got %q", a.SoftSkillNotes[0])
	}
	if !strings.Contains(a.SoftSkillNotes[1], "deep") {
		t.Fatalf("expected a depth note, got %q", a.SoftSkillNotes[1])
	}
}

func TestConfirmSkillDeduplicates(t *testing.T) {
	a := NewAssessment()

	a.ConfirmSkill("Python")
	a.ConfirmSkill("SQL")
	a.ConfirmSkill("Python")

	if len(a.ConfirmedSkills) != 2 {
		t.Fatalf("expected 2 skills, got %v", a.ConfirmedSkills)
	}
}
