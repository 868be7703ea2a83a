package scriptprocessor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandContractions(t *testing.T) {
	in := "I don't think it's fair, we're leaving and won't return because you can't help."
	out := expandContractions(in)
	assert.NotContains(t, strings.ToLower(out), "don't")
	assert.NotContains(t, strings.ToLower(out), "it's")
	assert.NotContains(t, strings.ToLower(out), "we're")
	assert.NotContains(t, strings.ToLower(out), "won't")
	assert.NotContains(t, strings.ToLower(out), "can't")
	assert.Contains(t, out, "do not")
	assert.Contains(t, out, "it is")
}

func TestSplitIntoSentences_PreservesDecimalNumbers(t *testing.T) {
	sentences := splitIntoSentences("The rating is 4.2 out of five. It was a great show.")
	require.Len(t, sentences, 2)
	assert.Contains(t, sentences[0], "4.2")
}

func TestSplitIntoSentences_EachSegmentOneSentence(t *testing.T) {
	sentences := splitIntoSentences("Hello there! How are you? I am fine.")
	require.Len(t, sentences, 3)
}

func TestEnsurePunctuation_RecognizesSemicolonAndColon(t *testing.T) {
	assert.Equal(t, "Wait;", ensurePunctuation("Wait;"))
	assert.Equal(t, "Wait:", ensurePunctuation("Wait:"))
}

func TestEnsurePunctuation_AppendsPeriodWhenUnterminated(t *testing.T) {
	assert.Equal(t, "Wait.", ensurePunctuation("Wait"))
}

func TestSplitIntoSentences_SemicolonTerminatedSentenceKeepsSingleTerminator(t *testing.T) {
	sentences := splitIntoSentences("Wait; stop!")
	require.Len(t, sentences, 2)
	for _, s := range sentences {
		cleaned := ensurePunctuation(s)
		terminators := 0
		for _, r := range cleaned {
			if strings.ContainsRune(".!?;:", r) {
				terminators++
			}
		}
		assert.Equal(t, 1, terminators)
	}
}

func TestSplitLongSentence_RespectsMaxLength(t *testing.T) {
	long := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen"
	parts := splitLongSentence(long, 15)
	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, wordCount(p), 16) // allows trailing punctuation word boundary slack
	}
}

func TestProcess_HeuristicFallback_NoOrchestrator(t *testing.T) {
	p := New(nil)
	result := p.Process(context.Background(), "Welcome to the show. Today is a great day.", "en", 0)
	assert.NotEmpty(t, result.Segments)
	for _, seg := range result.Segments {
		assert.NotContains(t, strings.ToLower(seg.Text), "don't")
	}
}

func TestProcess_EmptyInput_YieldsEmptySegmentsFallback(t *testing.T) {
	p := New(nil)
	result := p.Process(context.Background(), "", "en", 30)
	assert.Empty(t, result.Segments)
	assert.Equal(t, MatchFallback, result.DurationMatch)
}

func TestReprocess_TrimsOverBudgetScript(t *testing.T) {
	p := New(nil)
	longScript := strings.Repeat("This is a filler sentence about nothing important. ", 20)
	result := p.reprocess(longScript, "en", 10, ruleFor("en"))
	assert.LessOrEqual(t, result.TotalWordCount, int(10*wordsPerSecond*1.15))
}

func TestReprocess_ExpandsUnderBudgetScript(t *testing.T) {
	p := New(nil)
	shortScript := "Hi there."
	result := p.reprocess(shortScript, "en", 20, ruleFor("en"))
	assert.Greater(t, result.TotalWordCount, wordCount(shortScript))
}

func TestClassifyMatch_Perfect(t *testing.T) {
	assert.Equal(t, MatchPerfect, classifyMatch(30, 31))
	assert.Equal(t, MatchClose, classifyMatch(30, 34))
	assert.Equal(t, MatchAdjusted, classifyMatch(30, 50))
}

func TestLanguageRules_HebrewAndArabicShorterSentences(t *testing.T) {
	en := ruleFor("en")
	he := ruleFor("he")
	ar := ruleFor("ar")
	de := ruleFor("de")
	assert.Equal(t, 15, en.maxSentenceLength)
	assert.Equal(t, 12, he.maxSentenceLength)
	assert.Equal(t, 12, ar.maxSentenceLength)
	assert.Equal(t, 18, de.maxSentenceLength)
	assert.True(t, he.rtlSpecific)
	assert.True(t, ar.rtlSpecific)
}

func TestApplyLanguageFormatting_StripsParensForRTL(t *testing.T) {
	out := applyLanguageFormatting("hello (world) [test]", ruleFor("he"))
	assert.NotContains(t, out, "(")
	assert.NotContains(t, out, "[")
}

func TestCreateFallback_SentenceSplitsVerbatim(t *testing.T) {
	ps := CreateFallback("First sentence here. Second sentence here.", "en", 10)
	assert.Equal(t, MatchFallback, ps.DurationMatch)
	assert.Len(t, ps.Segments, 2)
}
