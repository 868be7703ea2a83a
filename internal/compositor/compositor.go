// Package compositor implements the final-render stage: turning a sequence
// of per-segment image/video + narration audio into a single finished MP4.
// Adapted from the teacher's internal/services/ffmpeg.go (zoompan Ken Burns
// motion, ASS subtitle burn-in, concat, background-music mixing), narrowed
// to consume an explicit []Segment built by the pipeline driver instead of
// the teacher's worker-internal per-clip loop over DB rows.
package compositor

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/faceless-engine/synthesizer/internal/audiogate"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

// ClipEffect is the Ken Burns / motion effect applied to a still image.
type ClipEffect string

const (
	EffectZoomIn         ClipEffect = "zoom_in"
	EffectZoomOut        ClipEffect = "zoom_out"
	EffectPanDown        ClipEffect = "pan_down"
	EffectPanUp          ClipEffect = "pan_up"
	EffectPanLeft        ClipEffect = "pan_left"
	EffectPanRight       ClipEffect = "pan_right"
	EffectZoomInPanUp    ClipEffect = "zoom_in_pan_up"
	EffectZoomInPanDown  ClipEffect = "zoom_in_pan_down"
	EffectZoomInPanLeft  ClipEffect = "zoom_in_pan_left"
	EffectZoomInPanRight ClipEffect = "zoom_in_pan_right"
)

var allEffects = []ClipEffect{
	EffectZoomIn, EffectZoomOut,
	EffectPanDown, EffectPanUp, EffectPanLeft, EffectPanRight,
	EffectZoomInPanUp, EffectZoomInPanDown, EffectZoomInPanLeft, EffectZoomInPanRight,
}

// RandomEffect picks a random motion effect for a clip with no Effect set.
func RandomEffect() ClipEffect {
	return allEffects[rand.Intn(len(allEffects))]
}

const (
	outputWidth  = 2160
	outputHeight = 3840
	videoFPS     = 30

	breathAmplitude = 0.03
	breathFrequency = 0.12

	silenceBufferMs = 500
	musicVolume     = 0.12
)

// Segment is one rendered unit handed to the compositor by the pipeline
// driver: a still image (Ken Burns fallback) or an AI-generated video,
// paired with narration audio and optional word-level timestamps for
// subtitle burn-in.
type Segment struct {
	Index     int
	ImagePath string
	VideoPath string // "" falls back to Ken Burns motion over ImagePath
	AudioPath string
	Words     []contracts.WordTimestamp // "" / nil skips subtitle burn-in
	Effect    ClipEffect                // "" picks RandomEffect()
}

// Compositor renders segments and composes the final video.
type Compositor struct {
	tempDir   string
	outputDir string
}

func New(tempDir, outputDir string) (*Compositor, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create compositor temp dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create compositor output dir: %w", err)
	}
	return &Compositor{tempDir: tempDir, outputDir: outputDir}, nil
}

// RenderSegment prepends a silence buffer to the segment's narration,
// optionally burns in ASS subtitles generated from Words, and renders
// either the Ken Burns path (ImagePath) or the AI-video path (VideoPath).
func (c *Compositor) RenderSegment(ctx context.Context, seg Segment) (string, error) {
	paddedAudio := filepath.Join(c.tempDir, fmt.Sprintf("seg_%d_padded.mp3", seg.Index))
	if err := c.prependSilence(ctx, seg.AudioPath, paddedAudio, silenceBufferMs); err != nil {
		return "", fmt.Errorf("prepend silence: %w", err)
	}

	durationS, err := audiogate.GetAudioDuration(ctx, paddedAudio)
	if err != nil {
		return "", fmt.Errorf("measure padded audio duration: %w", err)
	}
	durationMs := int(durationS * 1000)

	var subtitlePath string
	if len(seg.Words) > 0 {
		subtitlePath = filepath.Join(c.tempDir, fmt.Sprintf("seg_%d.ass", seg.Index))
		if err := GenerateASSSubtitles(seg.Words, subtitlePath, float64(silenceBufferMs)/1000.0); err != nil {
			return "", fmt.Errorf("generate subtitles: %w", err)
		}
	}

	outputPath := filepath.Join(c.outputDir, fmt.Sprintf("segment_%d.mp4", seg.Index))

	if seg.VideoPath != "" {
		if err := c.renderClipFromVideo(ctx, seg.VideoPath, paddedAudio, outputPath, subtitlePath); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	effect := seg.Effect
	if effect == "" {
		effect = RandomEffect()
	}
	if err := c.renderClipWithEffect(ctx, seg.ImagePath, paddedAudio, outputPath, effect, durationMs, subtitlePath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// ComposeFinal concatenates rendered segment clips in order and mixes in
// background music when musicPath is non-empty, matching the teacher's
// handleRenderFinal: a music-mix failure or a missing path falls back to the
// concatenated video as-is rather than failing the whole render.
func (c *Compositor) ComposeFinal(ctx context.Context, clipPaths []string, musicPath, outputPath string) error {
	concatPath := filepath.Join(c.tempDir, "concatenated.mp4")
	if err := c.concatenateClips(ctx, clipPaths, concatPath); err != nil {
		return fmt.Errorf("concatenate clips: %w", err)
	}

	if musicPath == "" {
		return copyFile(concatPath, outputPath)
	}
	if _, err := os.Stat(musicPath); os.IsNotExist(err) {
		return copyFile(concatPath, outputPath)
	}
	if err := c.mixBackgroundMusic(ctx, concatPath, musicPath, outputPath); err != nil {
		return copyFile(concatPath, outputPath)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (c *Compositor) prependSilence(ctx context.Context, inputAudioPath, outputAudioPath string, silenceMs int) error {
	delayFilter := fmt.Sprintf("adelay=%d|%d", silenceMs, silenceMs)
	args := []string{"-i", inputAudioPath, "-af", delayFilter, "-y", outputAudioPath}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg prepend silence failed: %w", err)
	}
	return nil
}

func (c *Compositor) renderClipWithEffect(ctx context.Context, imagePath, audioPath, outputPath string, effect ClipEffect, durationMs int, subtitlePath string) error {
	vf := buildMotionFilter(effect, durationMs)
	if subtitlePath != "" {
		vf += fmt.Sprintf(",ass='%s'", escapeFFmpegFilterPath(subtitlePath))
	}

	args := []string{
		"-i", imagePath,
		"-i", audioPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-y",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg render clip failed (effect=%s): %w", effect, err)
	}
	return nil
}

// renderClipFromVideo combines an AI-generated video with narration audio,
// discarding the video's own audio track and freezing its last frame (via
// tpad) if it is shorter than the narration.
func (c *Compositor) renderClipFromVideo(ctx context.Context, videoPath, audioPath, outputPath string, subtitlePath string) error {
	filterExpr := "[0:v]tpad=stop_mode=clone:stop_duration=60"
	if subtitlePath != "" {
		filterExpr += fmt.Sprintf(",ass='%s'", escapeFFmpegFilterPath(subtitlePath))
	}
	filterExpr += "[v]"

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-filter_complex", filterExpr,
		"-map", "[v]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-y",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg render clip from video failed: %w", err)
	}
	return nil
}

func (c *Compositor) concatenateClips(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := filepath.Join(c.tempDir, "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{"-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", "-y", outputPath}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w", err)
	}
	return nil
}

func (c *Compositor) mixBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string) error {
	filterComplex := fmt.Sprintf(
		"[0:a]volume=1.0[narration];[1:a]volume=%.2f[music];[narration][music]amix=inputs=2:duration=first:dropout_transition=3[aout]",
		musicVolume,
	)
	args := []string{
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filterComplex,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mix background music failed: %w", err)
	}
	return nil
}

// escapeFFmpegFilterPath escapes characters with special meaning inside an
// FFmpeg filter string (colons, backslashes, single quotes).
func escapeFFmpegFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}

// buildMotionFilter constructs the -vf zoompan filter for effect, combining
// the primary pan/zoom motion with a subtle breathing-pulse oscillation.
func buildMotionFilter(effect ClipEffect, durationMs int) string {
	totalFrames := (durationMs * videoFPS / 1000) + videoFPS*2
	if totalFrames < videoFPS {
		totalFrames = videoFPS
	}

	breathExpr := fmt.Sprintf("%.3f*sin(on*%.3f)", breathAmplitude, breathFrequency)

	var zExpr, xExpr, yExpr string
	switch effect {
	case EffectZoomIn:
		zExpr = fmt.Sprintf("1.0+0.5*on/%d+%s", totalFrames, breathExpr)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	case EffectZoomOut:
		zExpr = fmt.Sprintf("1.5-0.5*on/%d+%s", totalFrames, breathExpr)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	case EffectPanDown:
		zExpr = fmt.Sprintf("1.3+%s", breathExpr)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = fmt.Sprintf("(ih-ih/zoom)*on/%d", totalFrames)
	case EffectPanUp:
		zExpr = fmt.Sprintf("1.3+%s", breathExpr)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = fmt.Sprintf("(ih-ih/zoom)*(1-on/%d)", totalFrames)
	case EffectPanRight:
		zExpr = fmt.Sprintf("1.3+%s", breathExpr)
		xExpr = fmt.Sprintf("(iw-iw/zoom)*on/%d", totalFrames)
		yExpr = "ih/2-(ih/zoom/2)"
	case EffectPanLeft:
		zExpr = fmt.Sprintf("1.3+%s", breathExpr)
		xExpr = fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", totalFrames)
		yExpr = "ih/2-(ih/zoom/2)"
	case EffectZoomInPanUp:
		zExpr = fmt.Sprintf("1.0+0.4*on/%d+%s", totalFrames, breathExpr)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = fmt.Sprintf("max(0,(ih-ih/zoom)*(1-on/%d))", totalFrames)
	case EffectZoomInPanDown:
		zExpr = fmt.Sprintf("1.0+0.4*on/%d+%s", totalFrames, breathExpr)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = fmt.Sprintf("min(ih-ih/zoom,(ih-ih/zoom)*on/%d)", totalFrames)
	case EffectZoomInPanRight:
		zExpr = fmt.Sprintf("1.0+0.4*on/%d+%s", totalFrames, breathExpr)
		xExpr = fmt.Sprintf("min(iw-iw/zoom,(iw-iw/zoom)*on/%d)", totalFrames)
		yExpr = "ih/2-(ih/zoom/2)"
	case EffectZoomInPanLeft:
		zExpr = fmt.Sprintf("1.0+0.4*on/%d+%s", totalFrames, breathExpr)
		xExpr = fmt.Sprintf("max(0,(iw-iw/zoom)*(1-on/%d))", totalFrames)
		yExpr = "ih/2-(ih/zoom/2)"
	default:
		zExpr = fmt.Sprintf("1.0+0.4*on/%d+%s", totalFrames, breathExpr)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	}

	return fmt.Sprintf(
		"zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zExpr, xExpr, yExpr, totalFrames, outputWidth, outputHeight, videoFPS,
	)
}
