// Package pipeline implements C9: the end-to-end driver that turns a
// mission string into a finished video by sequencing every other package
// in this module. Grounded on the teacher's internal/worker/worker.go
// handleGeneratePlan/handleProcessClip/handleRenderFinal — the same
// errgroup two-pipeline-per-unit fan-out and per-service semaphore
// bounding, generalized from the teacher's fixed image+video / audio+
// transcription pair (one per clip) to N script segments, and promoted
// from a queue-worker job handler into a directly callable driver.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/faceless-engine/synthesizer/internal/audiogate"
	"github.com/faceless-engine/synthesizer/internal/compositor"
	"github.com/faceless-engine/synthesizer/internal/logger"
	"github.com/faceless-engine/synthesizer/internal/metrics"
	"github.com/faceless-engine/synthesizer/internal/missionparser"
	"github.com/faceless-engine/synthesizer/internal/orchestrator"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
	"github.com/faceless-engine/synthesizer/internal/scriptprocessor"
	"github.com/faceless-engine/synthesizer/internal/syncplanner"
	"github.com/faceless-engine/synthesizer/internal/textvalidator"
)

const (
	defaultMaxRegenerationAttempts = 2
	defaultImageConcurrency        = 2 // mirrors the teacher's geminiSem
	defaultSpeechConcurrency       = 4 // mirrors the teacher's ttsSem
	defaultVideoConcurrency        = 2 // mirrors the teacher's xaiSem
	defaultRenderConcurrency       = 2 // mirrors the teacher's renderSem
	defaultVideoPollTimeout        = 5 * time.Minute
)

// TranscriberFunc matches openaitext.Service.TranscribeAudio's signature so
// the driver can call into Whisper transcription without importing a
// concrete provider package — the orchestrator only knows about the four
// ServiceKind interfaces, and transcription isn't one of them.
type TranscriberFunc func(ctx context.Context, audioPath, language string) ([]contracts.WordTimestamp, error)

// Config parameterizes one RunPipeline call.
type Config struct {
	Language                string
	FlagContext             string
	TargetDurationS         float64
	AspectRatio             string
	VoiceID                 string
	Style                   string
	BackgroundMusicPath     string
	OutputDir               string // session artifacts land under OutputDir/<session-id>/
	MaxRegenerationAttempts int    // 0 => defaultMaxRegenerationAttempts
	UseVideoGeneration      bool   // false => Ken Burns only, never calls the video provider chain
}

// SegmentResult captures one script segment's generated assets.
type SegmentResult struct {
	Index         int
	Text          string
	AudioPath     string
	ImagePaths    []string
	VideoPath     string
	AudioProvider contracts.ProviderID
	ImageProvider contracts.ProviderID
	VideoProvider contracts.ProviderID
}

// SessionResult is RunPipeline's return value.
type SessionResult struct {
	SessionID      string
	Mission        missionparser.ParsedMission
	Script         scriptprocessor.ProcessedScript
	Segments       []SegmentResult
	SyncAnalysis   syncplanner.SyncAnalysis
	FinalVideoPath string
	Degraded       bool
	Warnings       []string
}

// Driver is C9: the pipeline orchestrating C1-C8 and the compositor.
type Driver struct {
	orch        *orchestrator.Orchestrator
	gate        *audiogate.Gate
	strategy    syncplanner.SyncStrategy
	compositor  *compositor.Compositor
	transcriber TranscriberFunc
	log         logger.Logger

	speechSem chan struct{}
	imageSem  chan struct{}
	videoSem  chan struct{}
	renderSem chan struct{}
}

// New constructs a Driver. transcriber may be nil, in which case segments
// render without subtitle burn-in.
func New(orch *orchestrator.Orchestrator, gate *audiogate.Gate, strategy syncplanner.SyncStrategy, comp *compositor.Compositor, transcriber TranscriberFunc, log logger.Logger) *Driver {
	return &Driver{
		orch:        orch,
		gate:        gate,
		strategy:    strategy,
		compositor:  comp,
		transcriber: transcriber,
		log:         log,
		speechSem:   make(chan struct{}, defaultSpeechConcurrency),
		imageSem:    make(chan struct{}, defaultImageConcurrency),
		videoSem:    make(chan struct{}, defaultVideoConcurrency),
		renderSem:   make(chan struct{}, defaultRenderConcurrency),
	}
}

func (d *Driver) withSemaphore(ctx context.Context, sem chan struct{}, fn func() error) error {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()
	return fn()
}

// RunPipeline sequences C4 (mission parsing) -> C5 (script processing) ->
// a per-segment errgroup fan-out over C1-C3 (speech, image, optional video)
// -> C6 (duration gate with bounded regeneration) -> C7 (sync planning) ->
// C8 (text validation) -> the compositor.
func (d *Driver) RunPipeline(ctx context.Context, mission string, cfg Config) (SessionResult, error) {
	cfg = applyDefaults(cfg)

	sessionID := uuid.New().String()
	sessionDir := filepath.Join(cfg.OutputDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return SessionResult{}, fmt.Errorf("create session dir: %w", err)
	}

	result := SessionResult{SessionID: sessionID}

	parser := missionparser.New(d.orch)
	parsed := parser.Parse(ctx, mission, cfg.FlagContext)
	result.Mission = parsed

	proc := scriptprocessor.New(d.orch)
	script := proc.Process(ctx, parsed.ScriptContent, cfg.Language, cfg.TargetDurationS)
	result.Script = script

	if len(script.Segments) == 0 {
		return result, fmt.Errorf("script processing produced no segments")
	}

	segResults, err := d.generateSegments(ctx, script.Segments, cfg)
	if err != nil {
		return result, err
	}
	result.Segments = segResults

	analysis := d.runDurationGate(ctx, script.Segments, segResults, cfg, &result)

	paddedAudio, err := d.padSegmentAudio(ctx, sessionDir, segResults)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("padding insertion failed, using unpadded audio: %v", err))
	} else {
		for i := range segResults {
			segResults[i].AudioPath = paddedAudio[i]
		}
	}

	result.SyncAnalysis = d.planSync(ctx, segResults, analysis, cfg, &result)

	clipPaths, err := d.renderSegments(ctx, script.Segments, segResults, cfg, &result)
	if err != nil {
		return result, err
	}

	finalPath := filepath.Join(sessionDir, "final.mp4")
	if err := d.compositor.ComposeFinal(ctx, clipPaths, cfg.BackgroundMusicPath, finalPath); err != nil {
		return result, fmt.Errorf("compose final video: %w", err)
	}
	result.FinalVideoPath = finalPath

	return result, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.MaxRegenerationAttempts <= 0 {
		cfg.MaxRegenerationAttempts = defaultMaxRegenerationAttempts
	}
	if cfg.TargetDurationS <= 0 {
		cfg.TargetDurationS = 30
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = "9:16"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "artifacts/sessions"
	}
	return cfg
}

// generateSegments runs one errgroup child per segment, each of which in
// turn fans out image/video (Pipeline A) and speech (Pipeline B) exactly
// like the teacher's handleProcessClip.
func (d *Driver) generateSegments(ctx context.Context, segments []scriptprocessor.Segment, cfg Config) ([]SegmentResult, error) {
	segResults := make([]SegmentResult, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			sr, err := d.processSegment(gctx, i, seg, cfg)
			if err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			segResults[i] = sr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segResults, nil
}

// processSegment is one segment's Pipeline A (image -> optional video) /
// Pipeline B (speech) fan-out, converging only in the caller once both
// finish — the same shape as the teacher's handleProcessClip, narrowed to
// one segment instead of one clip row.
func (d *Driver) processSegment(ctx context.Context, index int, seg scriptprocessor.Segment, cfg Config) (SegmentResult, error) {
	sr := SegmentResult{Index: index, Text: seg.Text}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.generateVisual(gctx, index, seg, cfg, &sr)
	})

	g.Go(func() error {
		speech, err := d.generateSpeech(gctx, seg, cfg)
		if err != nil {
			return fmt.Errorf("speech generation: %w", err)
		}
		sr.AudioPath = speech.Response.AudioPath
		sr.AudioProvider = speech.ProviderUsed
		return nil
	})

	if err := g.Wait(); err != nil {
		return SegmentResult{}, err
	}
	return sr, nil
}

// generateVisual generates the segment's image and, when enabled, an AI
// video from the same prompt. Video failures are non-fatal — the segment
// simply falls back to the Ken Burns image path at render time, mirroring
// the teacher's xAI/Veo-failure fallback in handleProcessClip.
func (d *Driver) generateVisual(ctx context.Context, index int, seg scriptprocessor.Segment, cfg Config, sr *SegmentResult) error {
	var imgResult orchestrator.Result[contracts.ImageResponse]
	err := d.withSemaphore(ctx, d.imageSem, func() error {
		var opErr error
		imgResult, opErr = d.orch.ExecuteImage(ctx, func(svc contracts.ImageService) (contracts.ImageResponse, error) {
			return svc.Execute(ctx, contracts.ImageRequest{
				Prompt:      seg.Text,
				Style:       cfg.Style,
				AspectRatio: cfg.AspectRatio,
				Count:       1,
			})
		})
		return opErr
	})
	if err != nil {
		return fmt.Errorf("image generation: %w", err)
	}
	sr.ImagePaths = imgResult.Response.ArtifactPaths
	sr.ImageProvider = imgResult.ProviderUsed

	if !cfg.UseVideoGeneration || len(sr.ImagePaths) == 0 {
		return nil
	}

	req := contracts.VideoRequest{
		Prompt:      seg.Text,
		DurationS:   seg.DurationS,
		Style:       cfg.Style,
		AspectRatio: cfg.AspectRatio,
	}
	var videoResult orchestrator.Result[contracts.VideoResponse]
	videoErr := d.withSemaphore(ctx, d.videoSem, func() error {
		var opErr error
		videoResult, opErr = d.orch.ExecuteVideo(ctx, req, func(svc contracts.VideoService) (contracts.VideoResponse, error) {
			started, startErr := svc.Execute(ctx, req)
			if startErr != nil {
				return contracts.VideoResponse{}, startErr
			}
			if started.Status == contracts.VideoCompleted {
				return started, nil
			}
			return contracts.WaitForCompletion(ctx, svc, started.JobID, defaultVideoPollTimeout)
		})
		return opErr
	})
	if videoErr != nil {
		d.log.Warnf("segment %d: video generation failed, falling back to still image: %v", index, videoErr)
		return nil
	}
	if videoResult.Response.Status != contracts.VideoCompleted {
		d.log.Warnf("segment %d: video generation did not complete (%s), falling back to still image", index, videoResult.Response.Status)
		return nil
	}
	sr.VideoPath = videoResult.Response.VideoPath
	sr.VideoProvider = videoResult.ProviderUsed
	return nil
}

func (d *Driver) generateSpeech(ctx context.Context, seg scriptprocessor.Segment, cfg Config) (orchestrator.Result[contracts.SpeechResponse], error) {
	voiceID := cfg.VoiceID
	if voiceID == "" {
		voiceID = seg.VoiceSuggestion
	}
	var result orchestrator.Result[contracts.SpeechResponse]
	err := d.withSemaphore(ctx, d.speechSem, func() error {
		var opErr error
		result, opErr = d.orch.ExecuteSpeech(ctx, func(svc contracts.SpeechService) (contracts.SpeechResponse, error) {
			return svc.Execute(ctx, contracts.SpeechRequest{
				Text:         seg.Text,
				VoiceID:      voiceID,
				Language:     cfg.Language,
				OutputFormat: "mp3",
			})
		})
		return opErr
	})
	return result, err
}

// runDurationGate checks the generated audio against the target duration
// and, when C6 signals MustRegenerate, re-runs speech generation for every
// segment up to cfg.MaxRegenerationAttempts times before giving up and
// marking the session degraded rather than failing outright.
func (d *Driver) runDurationGate(ctx context.Context, segments []scriptprocessor.Segment, segResults []SegmentResult, cfg Config, result *SessionResult) audiogate.Analysis {
	audioPaths := collectAudioPaths(segResults)
	analysis := d.gate.AnalyzeAudioFiles(ctx, audioPaths, cfg.TargetDurationS)
	metrics.RecordDurationGate(analysis.MustRegenerate)

	attempts := 0
	for analysis.MustRegenerate && attempts < cfg.MaxRegenerationAttempts {
		attempts++
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"regenerating audio (attempt %d/%d): %s", attempts, cfg.MaxRegenerationAttempts, analysis.Recommendation))

		for i, seg := range segments {
			speech, err := d.generateSpeech(ctx, seg, cfg)
			if err != nil {
				metrics.RecordRegenerationAttempt(false)
				result.Warnings = append(result.Warnings, fmt.Sprintf("segment %d regeneration failed: %v", i, err))
				continue
			}
			metrics.RecordRegenerationAttempt(true)
			segResults[i].AudioPath = speech.Response.AudioPath
			segResults[i].AudioProvider = speech.ProviderUsed
		}
		audioPaths = collectAudioPaths(segResults)
		analysis = d.gate.AnalyzeAudioFiles(ctx, audioPaths, cfg.TargetDurationS)
		metrics.RecordDurationGate(analysis.MustRegenerate)
	}

	if analysis.MustRegenerate {
		result.Degraded = true
		metrics.RecordSessionDegraded()
		result.Warnings = append(result.Warnings, "duration gate still failing after max regeneration attempts, proceeding degraded")
	}
	return analysis
}

func (d *Driver) padSegmentAudio(ctx context.Context, sessionDir string, segResults []SegmentResult) ([]string, error) {
	audioPaths := collectAudioPaths(segResults)
	return d.gate.AddPaddingBetweenSegments(ctx, audioPaths, sessionDir)
}

// planSync derives C7's sync analysis over the full clip sequence, using
// the first segment's audio as the beat/voice-detection timeline (the
// padded narration for every segment shares the same target cadence) and
// every segment's primary visual as one of video.Clips.
func (d *Driver) planSync(ctx context.Context, segResults []SegmentResult, analysis audiogate.Analysis, cfg Config, result *SessionResult) syncplanner.SyncAnalysis {
	clips := make([]string, len(segResults))
	for i, sr := range segResults {
		switch {
		case sr.VideoPath != "":
			clips[i] = sr.VideoPath
		case len(sr.ImagePaths) > 0:
			clips[i] = sr.ImagePaths[0]
		}
	}

	maxSegmentDuration := cfg.TargetDurationS
	if n := len(segResults); n > 0 {
		maxSegmentDuration = (cfg.TargetDurationS / float64(n)) * 2
	}
	planner := syncplanner.New(d.strategy, maxSegmentDuration)

	primaryAudio := syncplanner.AudioData{Duration: analysis.TotalDuration}
	if len(segResults) > 0 {
		primaryAudio.Path = segResults[0].AudioPath
	}

	syncAnalysis, err := planner.Plan(ctx, primaryAudio, syncplanner.VideoData{Clips: clips}, cfg.TargetDurationS)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("sync planning failed, falling back to even distribution: %v", err))
		return syncplanner.SyncAnalysis{}
	}
	metrics.RecordSyncScore(fmt.Sprintf("%T", d.strategy), syncAnalysis.OverallSyncScore)
	return syncAnalysis
}

// renderSegments validates each segment's on-screen text (C8), optionally
// transcribes its narration for subtitle burn-in, and renders the clip via
// the compositor, bounded by renderSem.
func (d *Driver) renderSegments(ctx context.Context, segments []scriptprocessor.Segment, segResults []SegmentResult, cfg Config, result *SessionResult) ([]string, error) {
	clipPaths := make([]string, 0, len(segResults))
	for i, sr := range segResults {
		validated := textvalidator.Validate(segments[i].Text, "segment", cfg.Language)
		if !validated.IsValid {
			result.Warnings = append(result.Warnings, fmt.Sprintf("segment %d text failed validation: %v", i, validated.IssuesFound))
		}

		var words []contracts.WordTimestamp
		if d.transcriber != nil {
			w, terr := d.transcriber(ctx, sr.AudioPath, cfg.Language)
			if terr != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("segment %d transcription failed, rendering without subtitles: %v", i, terr))
			} else {
				words = w
			}
		}

		seg := compositor.Segment{
			Index:     i,
			ImagePath: firstOrEmpty(sr.ImagePaths),
			VideoPath: sr.VideoPath,
			AudioPath: sr.AudioPath,
			Words:     words,
		}

		var clipPath string
		renderErr := d.withSemaphore(ctx, d.renderSem, func() error {
			var rerr error
			clipPath, rerr = d.compositor.RenderSegment(ctx, seg)
			return rerr
		})
		if renderErr != nil {
			return nil, fmt.Errorf("render segment %d: %w", i, renderErr)
		}
		clipPaths = append(clipPaths, clipPath)
	}
	return clipPaths, nil
}

func collectAudioPaths(segResults []SegmentResult) []string {
	paths := make([]string, len(segResults))
	for i, sr := range segResults {
		paths[i] = sr.AudioPath
	}
	return paths
}

func firstOrEmpty(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}
