package missionparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHeuristic_DialogueWithStageDirections(t *testing.T) {
	p := New(nil)
	mission := `Sarah: "I can't believe you did that!" *throws coffee cup* Cut to: Mark ducking behind the couch.`

	parsed := p.ParseHeuristic(mission)

	assert.Contains(t, parsed.ScriptContent, "I can't believe you did that")
	assert.NotEmpty(t, parsed.VisualInstructions)
	for _, v := range parsed.VisualInstructions {
		assert.NotContains(t, strings.ToLower(v), "sarah:")
	}
}

func TestParseHeuristic_SatiricalKeywordDetected(t *testing.T) {
	p := New(nil)
	parsed := p.ParseHeuristic("A Family Guy style parody of a morning news broadcast.")
	assert.True(t, parsed.IsSatirical)
	assert.Equal(t, "Family Guy style animation", parsed.StyleNotes)
}

func TestParseHeuristic_NoDialogueMarkers_FallsBackToSentenceSplit(t *testing.T) {
	p := New(nil)
	parsed := p.ParseHeuristic("Welcome to the show. Today we explore the ocean depths.")
	assert.NotEmpty(t, parsed.ScriptContent)
}

func TestParseHeuristic_SkipsActionAndSkipKeywordSentences(t *testing.T) {
	p := New(nil)
	parsed := p.ParseHeuristic("Breaking news just in. John fights the alien invaders. Welcome back to our program.")
	assert.NotContains(t, parsed.ScriptContent, "Breaking news")
	assert.NotContains(t, parsed.ScriptContent, "fights the alien")
}

// TestOutputInvariant_ScriptContentNeverStartsWithVisualMarker exercises the
// spec's output invariant across a range of mixed dialogue/stage-direction
// missions, including the satirical scenario.
func TestOutputInvariant_ScriptContentNeverStartsWithVisualMarker(t *testing.T) {
	p := New(nil)
	missions := []string{
		`Show a wide shot of the city. Anna: "We need to leave now."`,
		`(Opening scene) Tom: "This isn't over." Cut to: the parking lot.`,
		`*Dramatic zoom* Scene: the courtroom. Judge: "Order in the court!"`,
		`[Intro graphic] Host: "Let's get started."`,
	}
	forbidden := []string{"Show", "Cut to", "Scene:", "(", "*", "["}

	for _, m := range missions {
		parsed := p.ParseHeuristic(m)
		for _, f := range forbidden {
			assert.False(t, strings.HasPrefix(strings.TrimSpace(parsed.ScriptContent), f),
				"script-content %q must not start with %q (mission: %q)", parsed.ScriptContent, f, m)
		}
	}
}

func TestCreateFallbackParse_UsesWholeMissionVerbatim(t *testing.T) {
	parsed := CreateFallbackParse("Some unparseable garbled mission text")
	assert.Equal(t, "Some unparseable garbled mission text", parsed.ScriptContent)
	assert.Equal(t, "fallback", parsed.MissionType)
	assert.Less(t, parsed.ParsingConfidence, 0.6)
}

func TestExtractJSONObject_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"script_content\": \"hi\"}\n```"
	got := extractJSONObject(raw)
	assert.Equal(t, `{"script_content": "hi"}`, got)
}

func TestExtractJSONObject_NoObjectReturnsEmpty(t *testing.T) {
	assert.Empty(t, extractJSONObject("not json at all"))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, clampConfidence(-0.2))
	assert.Equal(t, 1.0, clampConfidence(1.4))
	assert.Equal(t, 0.75, clampConfidence(0.75))
}
