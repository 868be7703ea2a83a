// Package missionparser implements C4: splitting a free-form mission into
// spoken script, visual instructions, and style/effects metadata. Grounded
// on original_source/src/agents/enhanced_mission_parser.py — the AI-path
// JSON-schema prompt and the regex-driven heuristic fallback translate
// directly; see ParseHeuristic for the dialogue/visual pattern families.
package missionparser

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/faceless-engine/synthesizer/internal/orchestrator"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

// ParsedMission mirrors spec §3 field-for-field.
type ParsedMission struct {
	Original              string
	ScriptContent         string
	VisualInstructions    []string
	CharacterDescriptions map[string]string
	SceneDescriptions     []string
	StyleNotes            string
	SpecialEffects        []string
	IsSatirical           bool
	MissionType           string
	ParsingConfidence     float64
}

const (
	reliableConfidence = 0.8
	forceFallbackBelow = 0.6
)

var satiricalKeywords = []string{"family guy", "parody", "satire", "comedy", "funny"}

var styleMarkers = map[string]string{
	"family guy": "Family Guy style animation",
	"marvel":     "Marvel cinematic style",
	"anime":      "Anime style",
}

// dialoguePatterns extract quoted or speaker-labelled speech. Grounded on
// enhanced_mission_parser.py's dialogue_patterns list.
var dialoguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[A-Za-z][\w\s]*:\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)[A-Za-z][\w\s]*:\s*'([^']+)'`),
	regexp.MustCompile(`"([^"]+)"\s*\*[^*]+\*`),
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`'([^']+)'`),
}

// visualPatterns classify a line/sentence as a visual instruction rather
// than dialogue. Grounded on enhanced_mission_parser.py's visual_patterns.
var visualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*[^*]+\*`),
	regexp.MustCompile(`\([^)]+\)`),
	regexp.MustCompile(`(?i)\b(Cut to|Show|Display|Pan to|Zoom|Fade|Scene:)\b.*`),
	regexp.MustCompile(`(?i)\b(Background:|Setting:|Visual:)\b.*`),
}

// sentenceLeadingVisual matches the output invariant's forbidden leading
// substrings (spec §4.4): script-content must never start a sentence with
// these markers.
var sentenceLeadingVisual = regexp.MustCompile(`^\s*(Show|Cut to|Scene:|\(|\*|\[)`)

var skipKeywords = []string{
	"breaking news", "camera", "footage", "graphic", "music plays",
	"sound effect", "transition", "fade to",
}

var actionDescription = regexp.MustCompile(`^[A-Z]\w+\s+(is|are|does|fights|removes|shows)\b`)

var speakerLabel = regexp.MustCompile(`^[A-Z][a-zA-Z\s]*:\s*`)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Parser implements C4.
type Parser struct {
	orch *orchestrator.Orchestrator
}

func New(orch *orchestrator.Orchestrator) *Parser {
	return &Parser{orch: orch}
}

// aiParseResult is the JSON schema the AI path requests.
type aiParseResult struct {
	ScriptContent         string            `json:"script_content"`
	VisualInstructions    []string          `json:"visual_instructions"`
	CharacterDescriptions map[string]string `json:"character_descriptions"`
	SceneDescriptions     []string          `json:"scene_descriptions"`
	StyleNotes            string            `json:"style_notes"`
	SpecialEffects        []string          `json:"special_effects"`
	IsSatirical           bool              `json:"is_satirical"`
	MissionType           string            `json:"mission_type"`
	Confidence            float64           `json:"confidence"`
}

// Parse attempts the AI path first; on any failure, low confidence, or a
// nil orchestrator it falls back to the deterministic heuristic parser.
func (p *Parser) Parse(ctx context.Context, mission string, flagContext string) ParsedMission {
	if p.orch != nil {
		if parsed, ok := p.parseAI(ctx, mission, flagContext); ok {
			return parsed
		}
	}
	return p.ParseHeuristic(mission)
}

func (p *Parser) parseAI(ctx context.Context, mission, flagContext string) (ParsedMission, bool) {
	prompt := buildParsePrompt(mission, flagContext)
	res, err := p.orch.ExecuteText(ctx, func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(ctx, contracts.TextRequest{
			Prompt:         prompt,
			Temperature:    0.3,
			ResponseFormat: contracts.ResponseFormatJSON,
		})
	})
	if err != nil {
		return ParsedMission{}, false
	}

	jsonBlob := extractJSONObject(res.Response.Text)
	if jsonBlob == "" {
		return ParsedMission{}, false
	}

	var parsed aiParseResult
	if err := json.Unmarshal([]byte(jsonBlob), &parsed); err != nil {
		return ParsedMission{}, false
	}

	if parsed.Confidence < forceFallbackBelow {
		return ParsedMission{}, false
	}

	return ParsedMission{
		Original:              mission,
		ScriptContent:         parsed.ScriptContent,
		VisualInstructions:    parsed.VisualInstructions,
		CharacterDescriptions: parsed.CharacterDescriptions,
		SceneDescriptions:     parsed.SceneDescriptions,
		StyleNotes:            parsed.StyleNotes,
		SpecialEffects:        parsed.SpecialEffects,
		IsSatirical:           parsed.IsSatirical,
		MissionType:           parsed.MissionType,
		ParsingConfidence:     clampConfidence(parsed.Confidence),
	}, true
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func buildParsePrompt(mission, flagContext string) string {
	var sb strings.Builder
	sb.WriteString("Separate this video mission into spoken dialogue versus visual instructions. ")
	sb.WriteString("Return JSON with keys: script_content, visual_instructions, character_descriptions, ")
	sb.WriteString("scene_descriptions, style_notes, special_effects, is_satirical, mission_type, confidence.\n\n")
	if flagContext != "" {
		sb.WriteString(flagContext)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Mission: ")
	sb.WriteString(mission)
	return sb.String()
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return jsonObjectPattern.FindString(text)
}

// ParseHeuristic is the deterministic, AI-independent fallback. Grounded on
// enhanced_mission_parser.py's _heuristic_parse.
func (p *Parser) ParseHeuristic(mission string) ParsedMission {
	parsed := ParsedMission{
		Original:              mission,
		CharacterDescriptions: map[string]string{},
		ParsingConfidence:     0.5,
		MissionType:           "heuristic",
	}

	lowerMission := strings.ToLower(mission)
	for _, kw := range satiricalKeywords {
		if strings.Contains(lowerMission, kw) {
			parsed.IsSatirical = true
			break
		}
	}
	for marker, note := range styleMarkers {
		if strings.Contains(lowerMission, marker) {
			parsed.StyleNotes = note
			break
		}
	}

	var dialogue []string
	var visuals []string

	foundDialogue := false
	for _, pat := range dialoguePatterns {
		for _, m := range pat.FindAllStringSubmatch(mission, -1) {
			if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
				dialogue = append(dialogue, strings.TrimSpace(m[1]))
				foundDialogue = true
			}
		}
		if foundDialogue {
			break
		}
	}

	for _, pat := range visualPatterns {
		for _, m := range pat.FindAllString(mission, -1) {
			cleaned := strings.Trim(strings.TrimSpace(m), "*()")
			if cleaned != "" {
				visuals = append(visuals, cleaned)
			}
		}
	}

	if !foundDialogue {
		// No explicit dialogue markers: sentence-split, skip visual/action
		// description sentences and a keyword skip-list, per the original's
		// fallback-within-the-fallback path.
		for _, sentence := range sentenceSplit.Split(mission, -1) {
			s := strings.TrimSpace(sentence)
			if s == "" {
				continue
			}
			lowerS := strings.ToLower(s)
			skip := false
			for _, kw := range skipKeywords {
				if strings.Contains(lowerS, kw) {
					skip = true
					break
				}
			}
			if skip || actionDescription.MatchString(s) || sentenceLeadingVisual.MatchString(s) {
				continue
			}
			s = speakerLabel.ReplaceAllString(s, "")
			if s != "" {
				dialogue = append(dialogue, s)
			}
		}
	}

	parsed.ScriptContent = joinSentences(dialogue)
	parsed.VisualInstructions = dedupe(visuals)
	return parsed
}

func joinSentences(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range parts {
		p = strings.TrimSuffix(strings.TrimSpace(p), ".")
		if p == "" {
			continue
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(p)
		sb.WriteString(".")
	}
	return sb.String()
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// CreateFallbackParse is the fallback-of-fallback: used when even the
// heuristic path should be bypassed (e.g. upstream already knows the
// mission is unparseable). It treats the whole mission as verbatim script
// content, mirroring _create_fallback_parse's minimal behavior.
func CreateFallbackParse(mission string) ParsedMission {
	return ParsedMission{
		Original:              mission,
		ScriptContent:         mission,
		CharacterDescriptions: map[string]string{},
		ParsingConfidence:     0.3,
		MissionType:           "fallback",
	}
}
