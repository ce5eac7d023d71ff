package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// testColor is a neutral color used for sparkline tests.
var testColor = lipgloss.Color("#ffffff")

func TestRenderSparkline_Empty(t *testing.T) {
	result := stripANSI(RenderSparkline(nil, 10, testColor))
	if result != strings.Repeat(" ", 10) {
		t.Errorf("expected 10 spaces, got %q", result)
	}
}

func TestRenderSparkline_AllZeros(t *testing.T) {
	values := []float64{0, 0, 0, 0, 0}
	result := stripANSI(RenderSparkline(values, 5, testColor))
	runes := []rune(result)
	if len(runes) != 5 {
		t.Fatalf("expected 5 runes, got %d: %q", len(runes), result)
	}
	for i, ch := range runes {
		if ch != '▁' {
			t.Errorf("index %d: expected '▁', got %q", i, ch)
		}
	}
}

func TestRenderSparkline_Ascending(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	result := []rune(stripANSI(RenderSparkline(values, 8, testColor)))

	if len(result) != 8 {
		t.Fatalf("expected 8 runes, got %d: %q", len(result), string(result))
	}

	// Characters should be non-decreasing left to right.
	idx := func(r rune) int {
		for i, b := range sparkBlocks {
			if b == r {
				return i
			}
		}
		return -1
	}
	for i := 1; i < len(result); i++ {
		if idx(result[i]) < idx(result[i-1]) {
			t.Errorf("index %d: levels decreased: %q", i, string(result))
		}
	}
	if result[len(result)-1] != '█' {
		t.Errorf("max value should render full block, got %q", result[len(result)-1])
	}
}

func TestRenderSparkline_TruncatesLongSeries(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	result := []rune(stripANSI(RenderSparkline(values, 10, testColor)))
	if len(result) != 10 {
		t.Fatalf("expected 10 runes, got %d", len(result))
	}
}

func TestRenderSparkline_LeftPadsShortSeries(t *testing.T) {
	result := stripANSI(RenderSparkline([]float64{5, 10}, 6, testColor))
	if !strings.HasPrefix(result, "    ") {
		t.Errorf("expected 4 leading spaces, got %q", result)
	}
	if len([]rune(result)) != 6 {
		t.Errorf("expected width 6, got %d", len([]rune(result)))
	}
}

func TestRenderSparkline_ZeroWidth(t *testing.T) {
	if got := RenderSparkline([]float64{1, 2}, 0, testColor); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
