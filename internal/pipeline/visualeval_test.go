package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRunTimes(t *testing.T) {
	code := `self.play(Write(title), run_time=2)
self.play(Transform(a, b), run_time = 1.5)
self.wait(1)
self.play(FadeOut(title), run_time=0.75)`

	times := ExtractRunTimes(code)
	require.Len(t, times, 3)
	assert.Equal(t, []float64{2, 1.5, 0.75}, times)
}

func TestExtractRunTimesNoneFound(t *testing.T) {
	assert.Empty(t, ExtractRunTimes("self.wait(2)"))
}

func TestParseVisualVerdict(t *testing.T) {
	tests := []struct {
		name     string
		report   string
		approved bool
	}{
		{"explicit approved", "Review notes...\nOverall Verdict: [APPROVED]", true},
		{"explicit revise", "Overall Verdict: [REVISE]\nPacing is off.", false},
		{"explicit reject", "Overall Verdict: REJECT", false},
		{"loose approved mention", "The code is approved as written.", true},
		{"loose not approved", "This is not approved in its current form.", false},
		{"no signal", "Interesting visualization choices throughout.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.approved, parseVisualVerdict(tt.report))
		})
	}
}

func TestFormatRunTimes(t *testing.T) {
	assert.Equal(t, "None found", formatRunTimes(nil))
	assert.Equal(t, "2, 1.5", formatRunTimes([]float64{2, 1.5}))
}
