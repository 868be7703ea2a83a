// Package textvalidator implements C8: the deterministic safety net that
// strips instruction/metadata leakage from user-visible text before it
// reaches narration or subtitles. Grounded on
// original_source/src/utils/text_validator.py's fallback (non-AI) pattern
// set; the AI-assisted variants are not ported since C4's AI path already
// separates instructions upstream and this package is specified as the
// deterministic safety net (SPEC_FULL §4.8).
package textvalidator

import (
	"regexp"
	"strings"
)

type Result struct {
	OriginalText        string
	CleanedText         string
	IsValid             bool
	IssuesFound         []string
	IsRTL               bool
	LanguageDetected    string
	MetadataRemoved     bool
	InstructionsRemoved bool
}

// rtlRanges mirrors text_validator.py's rtl_ranges table.
var rtlRanges = [][2]rune{
	{0x0590, 0x05FF}, // Hebrew
	{0x0600, 0x06FF}, // Arabic
	{0x0750, 0x077F}, // Arabic Supplement
	{0x08A0, 0x08FF}, // Arabic Extended-A
	{0xFB50, 0xFDFF}, // Arabic Presentation Forms-A
	{0xFE70, 0xFEFF}, // Arabic Presentation Forms-B
}

const rtlMark = "‏"

var (
	metadataDictLike  = regexp.MustCompile(`^\d+\s*,\s*['"]`)
	metadataBraceOpen = regexp.MustCompile(`\{\s*\{`)
	metadataBraceEnd  = regexp.MustCompile(`\}\s*\}$`)
	metadataDBFields  = regexp.MustCompile(`(?i)_id\s*:|created_at\s*:|updated_at\s*:`)
	metadataBraceSpan = regexp.MustCompile(`\{[^}]*\}`)

	visualTag       = regexp.MustCompile(`\[VISUAL:[^\]]*\]`)
	sceneMarker     = regexp.MustCompile(`(?im)^(Scene|Visual|SCENE|VISUAL):.*$`)
	asteriskSpan    = regexp.MustCompile(`\*[^*]+\*`)
	parenSpan       = regexp.MustCompile(`\([^)]*\)`)
	leadingPunct    = regexp.MustCompile(`^[.,;:!?\-_]+`)
	trailingPunct   = regexp.MustCompile(`[.,;:!?\-_]+$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	nonWordNonSpace = regexp.MustCompile(`[^\w\s]`)
)

var visualMarkerTokens = []string{"scene:", "visual:", "cut to:", "fade:", "(", "[", "*"}

// Validate runs the deterministic pipeline: instruction removal, metadata
// removal, whitespace/punctuation cleanup, then final-pattern validation
// with a context-appropriate default substitution. Order matches
// validate_text: instructions first, then metadata.
func Validate(text, context, expectedLanguage string) Result {
	if text == "" {
		return Result{IsValid: true}
	}

	original := text
	isRTL, language := detectLanguageAndRTL(text)
	if expectedLanguage != "" {
		language = expectedLanguage
	}

	cleaned, instructionIssues := removeInstructions(text)
	instructionsRemoved := len(instructionIssues) > 0

	cleaned, metadataIssues := removeMetadata(cleaned, isRTL)
	metadataRemoved := len(metadataIssues) > 0

	cleaned = cleanText(cleaned, isRTL)

	issues := append(append([]string{}, instructionIssues...), metadataIssues...)
	isValid := strings.TrimSpace(cleaned) != "" && !containsInvalidPatterns(cleaned, isRTL)

	if !isValid || strings.TrimSpace(cleaned) == "" {
		cleaned = defaultFor(context)
		issues = append(issues, "text validation failed, using default: "+cleaned)
	}

	return Result{
		OriginalText:        original,
		CleanedText:         cleaned,
		IsValid:             isValid,
		IssuesFound:         issues,
		IsRTL:               isRTL,
		LanguageDetected:    language,
		MetadataRemoved:     metadataRemoved,
		InstructionsRemoved: instructionsRemoved,
	}
}

func defaultFor(context string) string {
	switch context {
	case "cta":
		return "Subscribe for more"
	case "hook":
		return "You won't believe this"
	default:
		return "Content"
	}
}

// detectLanguageAndRTL implements the character-based fallback: >30% of
// non-whitespace characters in RTL Unicode ranges marks the text RTL; Hebrew vs Arabic is
// decided by which range has more hits.
func detectLanguageAndRTL(text string) (bool, string) {
	runes := []rune(text)
	if len(runes) == 0 {
		return false, ""
	}

	rtlCount := 0
	hebrewCount := 0
	arabicCount := 0
	for _, r := range runes {
		inRTL := false
		for _, rng := range rtlRanges {
			if r >= rng[0] && r <= rng[1] {
				inRTL = true
				break
			}
		}
		if inRTL {
			rtlCount++
		}
		if r >= 0x0590 && r <= 0x05FF {
			hebrewCount++
		}
		if r >= 0x0600 && r <= 0x06FF {
			arabicCount++
		}
	}

	nonWhitespace := len([]rune(strings.Join(strings.Fields(text), "")))
	isRTL := nonWhitespace > 0 && float64(rtlCount) > float64(nonWhitespace)*0.3
	language := ""
	if isRTL {
		if hebrewCount > arabicCount {
			language = "he"
		} else if arabicCount > 0 {
			language = "ar"
		}
	}
	return isRTL, language
}

// removeInstructions strips [VISUAL: ...] tags, line-anchored scene markers,
// *...*-wrapped and (...)-wrapped stage directions, but only when a marker is
// actually present — text that's already clean is left untouched, per
// has_visual_markers' short-circuit.
func removeInstructions(text string) (string, []string) {
	lower := strings.ToLower(text)
	hasMarkers := strings.Contains(text, "[VISUAL:") || strings.Contains(text, "DIALOGUE:")
	if !hasMarkers {
		for _, marker := range visualMarkerTokens {
			if strings.Contains(lower, marker) {
				hasMarkers = true
				break
			}
		}
	}
	if !hasMarkers {
		return text, nil
	}

	cleaned := text
	var issues []string

	if strings.Contains(cleaned, "[VISUAL:") {
		cleaned = visualTag.ReplaceAllString(cleaned, "")
		issues = append(issues, "removed [VISUAL:] tags")
	}
	if sceneMarker.MatchString(cleaned) {
		issues = append(issues, "removed scene marker")
		cleaned = sceneMarker.ReplaceAllString(cleaned, "")
	}
	if asteriskSpan.MatchString(cleaned) {
		issues = append(issues, "removed asterisk-wrapped stage direction")
		cleaned = asteriskSpan.ReplaceAllString(cleaned, "")
	}
	if parenSpan.MatchString(cleaned) {
		issues = append(issues, "removed parenthetical stage direction")
		cleaned = parenSpan.ReplaceAllString(cleaned, "")
	}

	cleaned = collapseWhitespace(cleaned)
	return strings.TrimSpace(cleaned), issues
}

// removeMetadata strips dictionary/config-shaped leakage using the minimal
// fallback pattern set.
func removeMetadata(text string, isRTL bool) (string, []string) {
	cleaned := text
	var issues []string

	if !isRTL && (metadataDictLike.MatchString(cleaned) || strings.Count(cleaned, ":") > 5) {
		return "", []string{"entire text appears to be metadata"}
	}

	for _, pattern := range []*regexp.Regexp{metadataDictLike, metadataBraceOpen, metadataBraceEnd, metadataDBFields} {
		if pattern.MatchString(cleaned) {
			issues = append(issues, "found metadata pattern")
			cleaned = pattern.ReplaceAllString(cleaned, " ")
		}
	}

	if strings.Contains(cleaned, "{") || strings.Contains(cleaned, "}") {
		cleaned = metadataBraceSpan.ReplaceAllString(cleaned, " ")
		cleaned = strings.ReplaceAll(cleaned, "{", " ")
		cleaned = strings.ReplaceAll(cleaned, "}", " ")
		issues = append(issues, "removed dictionary structures")
	}

	cleaned = collapseWhitespace(cleaned)
	return strings.TrimSpace(cleaned), issues
}

func collapseWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

// cleanText trims stray whitespace/punctuation and, for RTL text, ensures
// the leading RTL mark is present.
func cleanText(text string, isRTL bool) string {
	cleaned := collapseWhitespace(text)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = leadingPunct.ReplaceAllString(cleaned, "")
	cleaned = trailingPunct.ReplaceAllString(cleaned, "")

	if isRTL && !strings.HasPrefix(cleaned, rtlMark) {
		cleaned = rtlMark + cleaned
	}
	return cleaned
}

// containsInvalidPatterns is the final gate: brace leakage, excessive
// colons (non-RTL), or too-short content all fail validation.
func containsInvalidPatterns(text string, isRTL bool) bool {
	if strings.Count(text, "{") > 0 || strings.Count(text, "}") > 0 {
		return true
	}
	if !isRTL && strings.Count(text, ":") > 3 {
		return true
	}

	if isRTL {
		rtlChars := 0
		for _, r := range text {
			for _, rng := range rtlRanges {
				if r >= rng[0] && r <= rng[1] {
					rtlChars++
					break
				}
			}
		}
		return rtlChars < 2
	}

	cleanedForCheck := nonWordNonSpace.ReplaceAllString(text, "")
	return len(strings.TrimSpace(cleanedForCheck)) < 3
}
