package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScript = `[SEGMENT 1]
AUDIO: Welcome! Today we integrate x squared from zero to one.
VISUAL_CUE: Show the title and the integral expression.

[SEGMENT 2]
AUDIO: The antiderivative of x squared is x cubed over three.
VISUAL_CUE: Animate the power rule transformation.

[SEGMENT 3]
AUDIO: Evaluating at the bounds gives one third.
VISUAL_CUE: Highlight the final boxed answer.`

func TestParseSegments(t *testing.T) {
	segments := ParseSegments(sampleScript)
	require.Len(t, segments, 3)

	assert.Equal(t, 1, segments[0].Number)
	assert.Equal(t, "Welcome! Today we integrate x squared from zero to one.", segments[0].Audio)
	assert.Equal(t, "Show the title and the integral expression.", segments[0].VisualCue)

	assert.Equal(t, 3, segments[2].Number)
	assert.Equal(t, "Highlight the final boxed answer.", segments[2].VisualCue)
}

func TestParseSegmentsCaseInsensitiveMarkers(t *testing.T) {
	script := "[segment 1]\naudio: spoken text here\nvisual_cue: draw a circle"
	segments := ParseSegments(script)
	require.Len(t, segments, 1)
	assert.Equal(t, "spoken text here", segments[0].Audio)
	assert.Equal(t, "draw a circle", segments[0].VisualCue)
}

func TestParseSegmentsMissingVisualCue(t *testing.T) {
	script := "[SEGMENT 1]\nAUDIO: Narration without any cue."
	segments := ParseSegments(script)
	require.Len(t, segments, 1)
	assert.Equal(t, "Narration without any cue.", segments[0].Audio)
	assert.Empty(t, segments[0].VisualCue)
}

func TestParseSegmentsMultilineAudio(t *testing.T) {
	script := "[SEGMENT 1]\nAUDIO: First sentence.\nSecond sentence.\nVISUAL_CUE: Something."
	segments := ParseSegments(script)
	require.Len(t, segments, 1)
	assert.Equal(t, "First sentence.\nSecond sentence.", segments[0].Audio)
}

func TestParseSegmentsNoMarkers(t *testing.T) {
	assert.Empty(t, ParseSegments("Here is your script without any structure."))
}

func TestWriteScriptRejectsUnstructuredOutput(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"prose with no segment markers at all"}}
	sess := newTestSession(t)

	writer := NewScriptWriter(provider, "write a script", 0.6, 4000, nopLogger{})
	_, err := writer.WriteScript(context.Background(), "the answer is 1/3", sess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no segments found")
}

func TestWriteScriptSavesPerSegmentArtifacts(t *testing.T) {
	provider := &scriptedProvider{responses: []string{sampleScript}}
	sess := newTestSession(t)

	writer := NewScriptWriter(provider, "write a script", 0.6, 4000, nopLogger{})
	script, err := writer.WriteScript(context.Background(), "the answer is 1/3", sess)
	require.NoError(t, err)
	require.Len(t, script.Segments, 3)

	assert.FileExists(t, sess.Path("audio_script.txt", "script"))
	assert.FileExists(t, sess.Path("segments.json", "script"))
	assert.FileExists(t, sess.Path("segment_01_audio.txt", "audio"))
	assert.FileExists(t, sess.Path("segment_03_visual.txt", "script"))
}
