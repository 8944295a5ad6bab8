package knowledge

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestVerifyDisabledReturnsNeutralConfidence(t *testing.T) {
	base := NewBase(false, nil, zap.NewNop())

	res, err := base.Verify(context.Background(), "q", "a", "python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 0.5 {
		t.Fatalf("expected 0.5 confidence, got %v", res.Confidence)
	}
	if res.SupportingText == "" {
		t.Fatal("expected explanatory placeholder")
	}
}

func TestVerifyScoresKeywordOverlap(t *testing.T) {
	base := NewBase(true, nil, zap.NewNop())

	answer := "Список изменяемая последовательность элементов, кортеж неизменяем, доступ по индексу"
	res, err := base.Verify(context.Background(), "Чем список отличается от кортежа?", answer, "python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Confidence < 0.75 {
		t.Fatalf("expected high confidence for overlapping answer, got %v", res.Confidence)
	}
	if res.SupportingText == "" {
		t.Fatal("expected supporting text from the matched document")
	}
}

func TestVerifyCapsConfidenceAtOne(t *testing.T) {
	base := NewBase(true, nil, zap.NewNop())

	answer := "Список list изменяемая последовательность элементов кортеж tuple неизменяем сложность доступа индексу python"
	res, err := base.Verify(context.Background(), "", answer, "python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence > 1 {
		t.Fatalf("confidence must stay within [0,1], got %v", res.Confidence)
	}
}

func TestVerifyUnrelatedAnswerReturnsLowConfidence(t *testing.T) {
	base := NewBase(true, nil, zap.NewNop())

	res, err := base.Verify(context.Background(), "Вопрос про глубокую тему", "пфф эээ", "astrology")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence > 0.3 {
		t.Fatalf("expected low confidence, got %v", res.Confidence)
	}
}
