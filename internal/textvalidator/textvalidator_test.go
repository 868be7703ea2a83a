package textvalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguageAndRTL_HebrewAboveThreshold(t *testing.T) {
	isRTL, lang := detectLanguageAndRTL("שלום עולם זה טקסט בעברית")
	assert.True(t, isRTL)
	assert.Equal(t, "he", lang)
}

func TestDetectLanguageAndRTL_ArabicAboveThreshold(t *testing.T) {
	isRTL, lang := detectLanguageAndRTL("مرحبا بالعالم هذا نص عربي")
	assert.True(t, isRTL)
	assert.Equal(t, "ar", lang)
}

func TestDetectLanguageAndRTL_EnglishBelowThreshold(t *testing.T) {
	isRTL, lang := detectLanguageAndRTL("This is plain English text")
	assert.False(t, isRTL)
	assert.Empty(t, lang)
}

func TestRemoveInstructions_SkipsWhenNoVisualMarkers(t *testing.T) {
	cleaned, issues := removeInstructions("Just a plain sentence with no markers")
	assert.Equal(t, "Just a plain sentence with no markers", cleaned)
	assert.Empty(t, issues)
}

func TestRemoveInstructions_StripsVisualTag(t *testing.T) {
	cleaned, issues := removeInstructions("Hello [VISUAL: close up shot] world")
	assert.NotContains(t, cleaned, "[VISUAL:")
	assert.NotEmpty(t, issues)
}

func TestRemoveInstructions_StripsSceneMarkerLine(t *testing.T) {
	cleaned, issues := removeInstructions("Scene: a dark alley at night (cut to:)")
	assert.NotContains(t, cleaned, "Scene:")
	assert.NotEmpty(t, issues)
}

func TestRemoveInstructions_StripsAsteriskWrappedStageDirection(t *testing.T) {
	cleaned, issues := removeInstructions("Hello *zoom in* world")
	assert.NotContains(t, cleaned, "*")
	assert.NotEmpty(t, issues)
}

func TestRemoveInstructions_StripsParentheticalStageDirection(t *testing.T) {
	cleaned, issues := removeInstructions("Hello (camera pans left) world")
	assert.NotContains(t, cleaned, "(")
	assert.NotContains(t, cleaned, ")")
	assert.NotEmpty(t, issues)
}

func TestRemoveMetadata_WholeTextIsMetadataReturnsEmpty(t *testing.T) {
	cleaned, issues := removeMetadata(`1, "created_at": "now", "updated_at": "now", "_id": "x", "foo": "y"`, false)
	assert.Empty(t, cleaned)
	assert.NotEmpty(t, issues)
}

func TestRemoveMetadata_StripsBraceStructures(t *testing.T) {
	cleaned, issues := removeMetadata(`Hello {{ some_field: 1 }} world`, false)
	assert.NotContains(t, cleaned, "{")
	assert.NotContains(t, cleaned, "}")
	assert.NotEmpty(t, issues)
}

func TestRemoveMetadata_LeavesPlainTextUntouched(t *testing.T) {
	cleaned, issues := removeMetadata("A perfectly normal sentence.", false)
	assert.Equal(t, "A perfectly normal sentence.", cleaned)
	assert.Empty(t, issues)
}

func TestCleanText_StripsLeadingTrailingPunctuationAndCollapsesWhitespace(t *testing.T) {
	cleaned := cleanText("  ...Hello   world!!!  ", false)
	assert.Equal(t, "Hello world", cleaned)
}

func TestCleanText_PrependsRTLMarkForRTLText(t *testing.T) {
	cleaned := cleanText("שלום", true)
	assert.True(t, len(cleaned) > len("שלום"))
}

func TestContainsInvalidPatterns_BraceLeakageIsInvalid(t *testing.T) {
	assert.True(t, containsInvalidPatterns("some {leftover} braces", false))
}

func TestContainsInvalidPatterns_TooManyColonsIsInvalid(t *testing.T) {
	assert.True(t, containsInvalidPatterns("a: b: c: d: e", false))
}

func TestContainsInvalidPatterns_TooShortNonRTLIsInvalid(t *testing.T) {
	assert.True(t, containsInvalidPatterns("!!", false))
}

func TestContainsInvalidPatterns_ValidPlainTextPasses(t *testing.T) {
	assert.False(t, containsInvalidPatterns("A normal piece of narration text", false))
}

func TestContainsInvalidPatterns_RTLWithFewRTLCharsIsInvalid(t *testing.T) {
	assert.True(t, containsInvalidPatterns("ab", true))
}

func TestValidate_CleanEnglishTextPassesThrough(t *testing.T) {
	result := Validate("This is a perfectly normal narration line.", "narration", "")
	assert.True(t, result.IsValid)
	assert.Equal(t, "This is a perfectly normal narration line", result.CleanedText)
}

func TestValidate_MetadataLeakageFallsBackToContextDefault(t *testing.T) {
	result := Validate(`1, "created_at": "now", "updated_at": "now", "_id": "x", "foo": "y"`, "cta", "")
	assert.False(t, result.IsValid)
	assert.Equal(t, "Subscribe for more", result.CleanedText)
}

func TestValidate_HookContextDefault(t *testing.T) {
	result := Validate("{{{{{{", "hook", "")
	assert.Equal(t, "You won't believe this", result.CleanedText)
}

func TestValidate_UnknownContextDefaultsToContent(t *testing.T) {
	result := Validate("{{{{{{", "narration", "")
	assert.Equal(t, "Content", result.CleanedText)
}

func TestValidate_EmptyInputIsValid(t *testing.T) {
	result := Validate("", "narration", "")
	assert.True(t, result.IsValid)
}

func TestValidate_VisualTagInstructionRemoved(t *testing.T) {
	result := Validate("[VISUAL: wide shot] Hello there, friend.", "narration", "")
	assert.True(t, result.InstructionsRemoved)
	assert.NotContains(t, result.CleanedText, "[VISUAL:")
}

func TestValidate_StripsAsteriskAndParentheticalStageDirections(t *testing.T) {
	result := Validate("Hello *zoom in* there, (camera pans left) friend.", "narration", "")
	assert.True(t, result.InstructionsRemoved)
	assert.NotContains(t, result.CleanedText, "*")
	assert.NotContains(t, result.CleanedText, "(")
	assert.NotContains(t, result.CleanedText, ")")
}

func TestValidate_ExpectedLanguageOverridesDetection(t *testing.T) {
	result := Validate("Plain ASCII text", "narration", "fr")
	assert.Equal(t, "fr", result.LanguageDetected)
}
