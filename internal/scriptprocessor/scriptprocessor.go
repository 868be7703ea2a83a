// Package scriptprocessor implements C5: rewriting parsed script text into
// TTS-ready, single-sentence segments bound to a target duration. Grounded
// on original_source/src/generators/enhanced_script_processor.py —
// language_rules, _reprocess_for_duration's trim/expand thresholds, and
// _split_into_sentences/_split_long_sentence translate directly.
package scriptprocessor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/faceless-engine/synthesizer/internal/orchestrator"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

// wordsPerSecond is fixed at 2.5 throughout this module (SPEC_FULL §4.5/§9),
// resolving the original's three inconsistent rates (2.3, 2.5, 2.8).
const wordsPerSecond = 2.5

const (
	perfectToleranceS = 2.0
	acceptToleranceS  = 5.0
	trimAboveRatio    = 1.2
	trimDownToRatio   = 1.1
	expandBelowRatio  = 0.6
)

// DurationMatch classifies how closely a ProcessedScript's estimated
// duration matches its target.
type DurationMatch string

const (
	MatchPerfect  DurationMatch = "perfect"
	MatchClose    DurationMatch = "close"
	MatchAdjusted DurationMatch = "adjusted"
	MatchFallback DurationMatch = "fallback"
)

type Segment struct {
	Text            string
	DurationS       float64
	WordCount       int
	VoiceSuggestion string
}

type ProcessedScript struct {
	OptimizedScript       string
	Segments              []Segment
	TotalEstimatedDuration float64
	TotalWordCount        int
	DurationMatch         DurationMatch
	TargetDuration        float64
	Language              string
}

// languageRule is one row of the language_rules table.
type languageRule struct {
	maxSentenceLength int
	sentenceEndings   []string
	avoidPatterns     []string
	rtlSpecific       bool
}

var languageRules = map[string]languageRule{
	"en": {maxSentenceLength: 15, sentenceEndings: []string{".", "!", "?"}, avoidPatterns: []string{"..."}},
	"he": {maxSentenceLength: 12, sentenceEndings: []string{".", "!", "?"}, avoidPatterns: []string{"...", "(", ")", "[", "]"}, rtlSpecific: true},
	"ar": {maxSentenceLength: 12, sentenceEndings: []string{".", "!", "?"}, avoidPatterns: []string{"...", "(", ")", "[", "]"}, rtlSpecific: true},
	"fr": {maxSentenceLength: 16, sentenceEndings: []string{".", "!", "?"}, avoidPatterns: []string{"..."}},
	"es": {maxSentenceLength: 16, sentenceEndings: []string{".", "!", "?"}, avoidPatterns: []string{"..."}},
	"de": {maxSentenceLength: 18, sentenceEndings: []string{".", "!", "?"}, avoidPatterns: []string{"..."}},
}

func ruleFor(language string) languageRule {
	if r, ok := languageRules[language]; ok {
		return r
	}
	return languageRules["en"]
}

// contractionExpansions is the fixed, deterministic expansion table; the
// original source prompt-engineers this via AI instructions, but the
// reprocessing/fallback paths here must be AI-independent (SPEC_FULL §4.5).
var contractionExpansions = map[string]string{
	"don't":   "do not",
	"it's":    "it is",
	"we're":   "we are",
	"let's":   "let us",
	"won't":   "will not",
	"can't":   "cannot",
	"isn't":   "is not",
	"they're": "they are",
	"i'm":     "I am",
	"you're":  "you are",
	"didn't":  "did not",
	"doesn't": "does not",
}

var contractionPattern = regexp.MustCompile(`(?i)\b(don't|it's|we're|let's|won't|can't|isn't|they're|I'm|you're|didn't|doesn't)\b`)

func expandContractions(s string) string {
	return contractionPattern.ReplaceAllStringFunc(s, func(m string) string {
		if exp, ok := contractionExpansions[strings.ToLower(m)]; ok {
			if m[0] >= 'A' && m[0] <= 'Z' {
				return strings.ToUpper(exp[:1]) + exp[1:]
			}
			return exp
		}
		return m
	})
}

var sentenceEndingSplit = regexp.MustCompile(`([.!?;:]+)\s*`)

// numberProtect protects decimals like "4.2" from being split at the '.'.
var numberProtect = regexp.MustCompile(`(\d)\.(\d)`)

const numberPlaceholder = "\x00DOT\x00"

func splitIntoSentences(text string) []string {
	protected := numberProtect.ReplaceAllString(text, "$1"+numberPlaceholder+"$2")
	parts := sentenceEndingSplit.Split(protected, -1)
	endings := sentenceEndingSplit.FindAllString(protected, -1)

	var out []string
	for i, p := range parts {
		sentence := p
		if i < len(endings) {
			sentence += strings.TrimSpace(endings[i])
		}
		sentence = strings.ReplaceAll(sentence, numberPlaceholder, ".")
		sentence = strings.TrimSpace(sentence)
		if sentence != "" {
			out = append(out, sentence)
		}
	}
	return out
}

var breakWords = map[string]bool{
	"and": true, "but": true, "or": true, "so": true, "because": true,
	"when": true, "while": true, "although": true,
}

// splitLongSentence breaks a sentence exceeding maxLength words at natural
// break points (trailing commas or conjunctions), per _split_long_sentence.
func splitLongSentence(sentence string, maxLength int) []string {
	words := strings.Fields(sentence)
	if len(words) <= maxLength {
		return []string{ensurePunctuation(sentence)}
	}

	var out []string
	var current []string
	for _, w := range words {
		current = append(current, w)
		shouldBreak := len(current) >= maxLength ||
			(len(current) >= maxLength/2 && (strings.HasSuffix(w, ",") || breakWords[strings.ToLower(w)]))
		if shouldBreak {
			out = append(out, ensurePunctuation(strings.Join(current, " ")))
			current = nil
		}
	}
	if len(current) > 0 {
		out = append(out, ensurePunctuation(strings.Join(current, " ")))
	}
	return out
}

func ensurePunctuation(sentence string) string {
	sentence = strings.TrimSpace(sentence)
	for _, ending := range []string{".", "!", "?", ";", ":"} {
		if strings.HasSuffix(sentence, ending) {
			return sentence
		}
	}
	return sentence + "."
}

// applyLanguageFormatting strips avoid-patterns and, for RTL languages,
// parentheses/brackets that confuse TTS engines.
func applyLanguageFormatting(text string, rule languageRule) string {
	for _, pattern := range rule.avoidPatterns {
		text = strings.ReplaceAll(text, pattern, "")
	}
	if rule.rtlSpecific {
		text = regexp.MustCompile(`[()\[\]{}]`).ReplaceAllString(text, "")
		text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// Processor implements C5.
type Processor struct {
	orch *orchestrator.Orchestrator
}

func New(orch *orchestrator.Orchestrator) *Processor {
	return &Processor{orch: orch}
}

// Process produces a ProcessedScript from scriptContent bound to
// targetDuration, attempting the AI path first and falling back to
// deterministic reprocessing/sentence-splitting per SPEC_FULL §4.5.
func (p *Processor) Process(ctx context.Context, scriptContent, language string, targetDuration float64) ProcessedScript {
	rule := ruleFor(language)

	if p.orch != nil {
		if ps, ok := p.tryAI(ctx, scriptContent, language, targetDuration, rule); ok {
			return ps
		}
	}

	if scriptContent == "" {
		return ProcessedScript{Language: language, TargetDuration: targetDuration, DurationMatch: MatchFallback}
	}

	return p.reprocess(scriptContent, language, targetDuration, rule)
}

func (p *Processor) tryAI(ctx context.Context, scriptContent, language string, targetDuration float64, rule languageRule) (ProcessedScript, bool) {
	prompt := buildProcessingPrompt(scriptContent, language, targetDuration)
	res, err := p.orch.ExecuteText(ctx, func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(ctx, contracts.TextRequest{
			Prompt:         prompt,
			Temperature:    0.7,
			MaxTokens:      2000,
			ResponseFormat: contracts.ResponseFormatJSON,
		})
	})
	if err != nil {
		return ProcessedScript{}, false
	}

	optimized := expandContractions(applyLanguageFormatting(res.Response.Text, rule))
	estimated := estimateDuration(optimized)
	if targetDuration > 0 && abs(estimated-targetDuration) > acceptToleranceS {
		return ProcessedScript{}, false
	}

	return p.segmentize(optimized, language, targetDuration, rule, classifyMatch(estimated, targetDuration)), true
}

func buildProcessingPrompt(scriptContent, language string, targetDuration float64) string {
	var sb strings.Builder
	sb.WriteString("Optimize this script for TTS delivery in language ")
	sb.WriteString(language)
	sb.WriteString(", targeting ")
	sb.WriteString(fmt.Sprintf("%.1f", targetDuration))
	sb.WriteString(" seconds. No contractions, one sentence per segment.\n\nScript:\n")
	sb.WriteString(scriptContent)
	return sb.String()
}

// reprocess performs the deterministic trim/expand + re-split algorithm
// from _reprocess_for_duration, used whenever the AI path is unavailable or
// rejected.
func (p *Processor) reprocess(scriptContent, language string, targetDuration float64, rule languageRule) ProcessedScript {
	formatted := expandContractions(applyLanguageFormatting(scriptContent, rule))
	targetWords := int(targetDuration * wordsPerSecond)
	words := strings.Fields(formatted)

	match := MatchAdjusted
	optimized := formatted

	switch {
	case targetWords > 0 && len(words) > int(float64(targetWords)*trimAboveRatio):
		optimized = trimToSentenceBoundary(formatted, float64(targetWords)*trimDownToRatio)
	case targetWords > 0 && len(words) < int(float64(targetWords)*expandBelowRatio):
		optimized = expandByRepeating(formatted, targetWords)
	default:
		if targetDuration == 0 {
			match = MatchFallback
		}
	}

	return p.segmentize(optimized, language, targetDuration, rule, match)
}

// trimToSentenceBoundary keeps whole sentences until adding the next one
// would exceed maxWords, never cutting mid-sentence.
func trimToSentenceBoundary(text string, maxWords float64) string {
	sentences := splitIntoSentences(text)
	var kept []string
	current := 0.0
	for _, s := range sentences {
		w := float64(wordCount(s))
		if current+w > maxWords {
			break
		}
		kept = append(kept, s)
		current += w
	}
	if len(kept) == 0 && len(sentences) > 0 {
		kept = append(kept, sentences[0])
	}
	return strings.Join(kept, " ")
}

// expandByRepeating concatenates from the original script until the target
// word count is reached, per the original's expansion branch.
func expandByRepeating(text string, targetWords int) string {
	words := strings.Fields(text)
	result := append([]string{}, words...)
	for len(result) < targetWords {
		remaining := targetWords - len(result)
		if remaining >= len(words) {
			result = append(result, words...)
		} else {
			result = append(result, words[:remaining]...)
		}
		if len(words) == 0 {
			break
		}
	}
	return strings.Join(result, " ")
}

func (p *Processor) segmentize(optimized, language string, targetDuration float64, rule languageRule, match DurationMatch) ProcessedScript {
	sentences := splitIntoSentences(optimized)

	var segments []Segment
	for _, s := range sentences {
		words := strings.Fields(s)
		var pieces []string
		if len(words) > rule.maxSentenceLength {
			pieces = splitLongSentence(s, rule.maxSentenceLength)
		} else {
			pieces = []string{ensurePunctuation(s)}
		}
		for _, piece := range pieces {
			wc := wordCount(piece)
			segments = append(segments, Segment{
				Text:            piece,
				DurationS:       float64(wc) / wordsPerSecond,
				WordCount:       wc,
				VoiceSuggestion: "storyteller",
			})
		}
	}

	var totalDuration float64
	var totalWords int
	for _, seg := range segments {
		totalDuration += seg.DurationS
		totalWords += seg.WordCount
	}

	finalMatch := match
	if targetDuration > 0 {
		finalMatch = classifyMatch(totalDuration, targetDuration)
	}
	if len(segments) == 0 {
		finalMatch = MatchFallback
	}

	return ProcessedScript{
		OptimizedScript:        optimized,
		Segments:               segments,
		TotalEstimatedDuration: totalDuration,
		TotalWordCount:         totalWords,
		DurationMatch:          finalMatch,
		TargetDuration:         targetDuration,
		Language:               language,
	}
}

func classifyMatch(estimated, target float64) DurationMatch {
	diff := abs(estimated - target)
	switch {
	case diff <= perfectToleranceS:
		return MatchPerfect
	case diff <= acceptToleranceS:
		return MatchClose
	default:
		return MatchAdjusted
	}
}

func estimateDuration(text string) float64 {
	return float64(wordCount(text)) / wordsPerSecond
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// CreateFallback builds a ProcessedScript by sentence-splitting the input
// verbatim, used when the AI path fails entirely and reprocessing itself
// cannot run (e.g. no orchestrator configured).
func CreateFallback(scriptContent, language string, targetDuration float64) ProcessedScript {
	p := &Processor{}
	rule := ruleFor(language)
	ps := p.segmentize(expandContractions(scriptContent), language, targetDuration, rule, MatchFallback)
	ps.DurationMatch = MatchFallback
	return ps
}
