package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name     string
		report   string
		accepted bool
	}{
		{
			name:     "assessment correct",
			report:   "Detailed review...\nOverall Assessment: [CORRECT]\nWell done.",
			accepted: true,
		},
		{
			name:     "assessment incorrect",
			report:   "Overall Assessment: [INCORRECT]\nStep 3 is wrong.",
			accepted: false,
		},
		{
			name:     "assessment needs revision",
			report:   "Overall Assessment: [NEEDS_REVISION]",
			accepted: false,
		},
		{
			name:     "assessment without brackets",
			report:   "overall assessment: correct",
			accepted: true,
		},
		{
			name:     "assessment outranks perfect score",
			report:   "Correctness Score: 10/10\nOverall Assessment: [INCORRECT]",
			accepted: false,
		},
		{
			name:     "verdict yes and suitable",
			report:   "Final Verdict: Yes, this solution is suitable for video production.",
			accepted: true,
		},
		{
			name:     "verdict not suitable",
			report:   "Final Verdict: Yes and no, ultimately not suitable for production.",
			accepted: false,
		},
		{
			name:     "verdict plain no",
			report:   "Final Verdict: No.",
			accepted: false,
		},
		{
			name:     "score nine passes",
			report:   "Correctness Score: [9]/10",
			accepted: true,
		},
		{
			name:     "score eight fails",
			report:   "Correctness Score: 8/10",
			accepted: false,
		},
		{
			name:     "unparseable report fails closed",
			report:   "The solution looks quite reasonable to me overall.",
			accepted: false,
		},
		{
			name:     "empty report fails closed",
			report:   "",
			accepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.accepted, parseEvaluation(tt.report))
		})
	}
}
