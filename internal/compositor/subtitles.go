package compositor

import (
	"fmt"
	"os"
	"strings"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

// TikTok-style ASS subtitle generation: word-by-word highlighted chunks,
// the currently spoken word shown in a purple "pill" background. Adapted
// from the teacher's internal/services/subtitles.go, operating on
// contracts.WordTimestamp instead of the teacher's own WordTimestamp type.

const (
	wordsPerChunk = 4

	subtitleFontName = "Noto Sans"
	subtitleFontSize = 124

	assColorWhite     = "&H00FFFFFF"
	assColorBlack     = "&H00000000"
	assColorPurple    = "&H00CC3299"
	assColorSemiBlack = "&H80000000"

	outlineNormal    = 6
	outlineHighlight = 16

	subtitleMarginV = 440
)

// GenerateASSSubtitles writes a TikTok-style ASS subtitle file from
// word-level timestamps, offsetting every timestamp by silenceOffsetSec
// (e.g. the silence buffer prepended ahead of narration).
func GenerateASSSubtitles(words []contracts.WordTimestamp, outputPath string, silenceOffsetSec float64) error {
	if len(words) == 0 {
		return fmt.Errorf("no words to generate subtitles from")
	}

	chunks := chunkWords(words, wordsPerChunk)

	var sb strings.Builder
	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("PlayResX: 2160\n")
	sb.WriteString("PlayResY: 3840\n")
	sb.WriteString("WrapStyle: 0\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf(
		"Style: Default,%s,%d,%s,%s,%s,%s,-1,0,0,0,100,100,2,0,1,%d,0,2,40,40,%d,1\n",
		subtitleFontName, subtitleFontSize,
		assColorWhite, assColorWhite, assColorBlack, assColorSemiBlack,
		outlineNormal, subtitleMarginV,
	))
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, chunk := range chunks {
		for wordIdx, word := range chunk {
			startTime := word.Start + silenceOffsetSec
			var endTime float64
			if wordIdx < len(chunk)-1 {
				endTime = chunk[wordIdx+1].Start + silenceOffsetSec
			} else {
				endTime = word.End + silenceOffsetSec
			}

			displayText := buildHighlightedChunkText(chunk, wordIdx)
			sb.WriteString(fmt.Sprintf(
				"Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
				formatASSTime(startTime), formatASSTime(endTime), displayText,
			))
		}
	}

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write ASS subtitle file: %w", err)
	}
	return nil
}

// chunkWords groups words into display chunks, also breaking early at
// sentence-ending punctuation so chunks read naturally.
func chunkWords(words []contracts.WordTimestamp, chunkSize int) [][]contracts.WordTimestamp {
	var chunks [][]contracts.WordTimestamp
	var current []contracts.WordTimestamp

	for _, word := range words {
		current = append(current, word)
		isSentenceEnd := strings.ContainsAny(word.Word, ".!?")
		if len(current) >= chunkSize || (isSentenceEnd && len(current) >= 2) {
			chunks = append(chunks, current)
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// buildHighlightedChunkText renders a chunk with the word at activeIdx
// wrapped in a purple-pill ASS override.
func buildHighlightedChunkText(chunk []contracts.WordTimestamp, activeIdx int) string {
	var parts []string
	for i, word := range chunk {
		cleanWord := strings.ToUpper(strings.TrimSpace(word.Word))
		if cleanWord == "" {
			continue
		}
		if i == activeIdx {
			parts = append(parts, fmt.Sprintf("{\\3c%s\\bord%d}%s{\\r}", assColorPurple, outlineHighlight, cleanWord))
		} else {
			parts = append(parts, cleanWord)
		}
	}
	return strings.Join(parts, " ")
}

func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	centiseconds := int((seconds - float64(int(seconds))) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centiseconds)
}
