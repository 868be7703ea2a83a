package compositor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func sampleWords() []contracts.WordTimestamp {
	return []contracts.WordTimestamp{
		{Word: "the", Start: 0.0, End: 0.2},
		{Word: "quick", Start: 0.2, End: 0.5},
		{Word: "brown", Start: 0.5, End: 0.8},
		{Word: "fox.", Start: 0.8, End: 1.1},
		{Word: "jumps", Start: 1.1, End: 1.4},
	}
}

func TestGenerateASSSubtitles_EmptyWordsErrors(t *testing.T) {
	err := GenerateASSSubtitles(nil, "/tmp/whatever.ass", 0)
	require.Error(t, err)
}

func TestGenerateASSSubtitles_WritesExpectedSections(t *testing.T) {
	path := t.TempDir() + "/out.ass"
	err := GenerateASSSubtitles(sampleWords(), path, 0.5)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "[Script Info]")
	assert.Contains(t, content, "[V4+ Styles]")
	assert.Contains(t, content, "[Events]")
	assert.Contains(t, content, "QUICK")
	assert.Contains(t, content, assColorPurple)
}

func TestChunkWords_BreaksAtSentenceEndAndChunkSize(t *testing.T) {
	chunks := chunkWords(sampleWords(), 4)
	require.Len(t, chunks, 2)
	assert.Equal(t, "fox.", chunks[0][len(chunks[0])-1].Word)
	assert.Len(t, chunks[1], 1)
}

func TestBuildHighlightedChunkText_WrapsActiveWord(t *testing.T) {
	chunk := sampleWords()[:3]
	text := buildHighlightedChunkText(chunk, 1)
	assert.Contains(t, text, "\\bord16")
	assert.Contains(t, text, "QUICK")
}

func TestFormatASSTime_FormatsHoursMinutesSecondsCentiseconds(t *testing.T) {
	assert.Equal(t, "0:00:01.50", formatASSTime(1.5))
	assert.Equal(t, "1:01:05.00", formatASSTime(3665))
}

func TestFormatASSTime_ClampsNegativeToZero(t *testing.T) {
	assert.Equal(t, "0:00:00.00", formatASSTime(-2))
}
