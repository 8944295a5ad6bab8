package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestCommonFieldsSkipsEmptyValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		model    string
		expected int
	}{
		{name: "both set", provider: "gemini", model: "gemini-2.5-pro", expected: 2},
		{name: "model missing", provider: "gemini", model: "  ", expected: 1},
		{name: "both missing", provider: "", model: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fields := CommonFields(tt.provider, tt.model)
			if len(fields) != tt.expected {
				t.Fatalf("expected %d fields, got %d", tt.expected, len(fields))
			}
		})
	}
}

func TestWithCommonFieldsHandlesNilLogger(t *testing.T) {
	if got := WithCommonFields(nil, "gemini", "model"); got == nil {
		t.Fatal("expected a usable logger")
	}

	base := zap.NewNop()
	if got := WithCommonFields(base, "", ""); got != base {
		t.Fatal("expected the original logger when no fields are present")
	}
}
