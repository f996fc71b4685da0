package components

import (
	"strings"
	"testing"
)

func TestProgress_View_ZeroPercent(t *testing.T) {
	result := NewProgress(0, 8).View()

	if !strings.HasPrefix(result, "□□□□□□□□") {
		t.Errorf("expected all empty boxes, got: %s", result)
	}
	if !strings.HasSuffix(result, " 0%") {
		t.Errorf("expected 0%%, got: %s", result)
	}
}

func TestProgress_View_HundredPercent(t *testing.T) {
	result := NewProgress(100, 8).View()

	if result != "■■■■■■■■ 100%" {
		t.Errorf("expected full bar, got: %s", result)
	}
}

func TestProgress_View_ZeroWidth(t *testing.T) {
	if result := NewProgress(50, 0).View(); result != "" {
		t.Errorf("expected empty string for zero width, got: %s", result)
	}
}

func TestProgress_View_Clamps(t *testing.T) {
	if result := NewProgress(-5, 4).View(); result != "□□□□ 0%" {
		t.Errorf("expected clamp to 0%%, got: %s", result)
	}
	if result := NewProgress(150, 4).View(); result != "■■■■ 100%" {
		t.Errorf("expected clamp to 100%%, got: %s", result)
	}
}

func TestProgress_View_DifferentWidths(t *testing.T) {
	tests := []struct {
		width    int
		percent  int
		expected string
	}{
		{4, 50, "■■□□ 50%"},
		{10, 30, "■■■□□□□□□□ 30%"},
		{6, 33, "■□□□□□ 33%"},
		{6, 67, "■■■■□□ 67%"},
	}

	for _, tt := range tests {
		result := NewProgress(tt.percent, tt.width).View()
		if result != tt.expected {
			t.Errorf("Progress(%d, %d).View() = %q, want %q",
				tt.percent, tt.width, result, tt.expected)
		}
	}
}
