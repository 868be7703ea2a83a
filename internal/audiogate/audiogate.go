// Package audiogate implements C6: validating generated audio duration
// against the target before video generation proceeds, with a bounded
// regeneration gate. Grounded near-verbatim on
// original_source/src/utils/audio_duration_manager.py; duration measurement
// follows the teacher's internal/services/ffmpeg.go GetAudioDuration/
// GetVideoDuration ffprobe idiom instead of the original's moviepy dependency.
package audiogate

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultTolerancePercent   = 5.0
	defaultMinSegmentDuration = 1.0
	defaultMaxSegmentDuration = 30.0
	defaultPaddingS           = 0.3
	ratioFloor                = 0.8
	ratioCeil                 = 1.2
	qualityFloor              = 0.6
)

// Gate holds the tunables from SPEC_FULL §4.6. New() and NewWithSeed() fill
// them with the defaults above; a zero-value Gate leaves every tunable at 0.
type Gate struct {
	TolerancePercent   float64
	MinSegmentDuration float64
	MaxSegmentDuration float64
	PaddingBetweenS    float64

	// rng drives CalculateDynamicClipDurations' jitter. Seeded from the wall
	// clock by New(); use NewWithSeed for reproducible output.
	rng *rand.Rand
}

func New() *Gate {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed builds a Gate whose CalculateDynamicClipDurations jitter is
// reproducible: the same analysis and seed always produce the same durations.
func NewWithSeed(seed int64) *Gate {
	return &Gate{
		TolerancePercent:   defaultTolerancePercent,
		MinSegmentDuration: defaultMinSegmentDuration,
		MaxSegmentDuration: defaultMaxSegmentDuration,
		PaddingBetweenS:    defaultPaddingS,
		rng:                rand.New(rand.NewSource(seed)),
	}
}

type SegmentInfo struct {
	Index         int
	File          string
	Duration      float64
	IsTooShort    bool
	IsTooLong     bool
	QualityIssues []string
}

type Analysis struct {
	TotalDuration      float64
	TargetDuration     float64
	SegmentDurations   []float64
	IsWithinTolerance  bool
	TolerancePercent   float64
	DurationDifference float64
	DurationRatio      float64
	Recommendation     string
	SegmentsInfo       []SegmentInfo
	QualityScore       float64
	MustRegenerate     bool
}

// GetAudioDuration shells out to ffprobe, following the teacher's
// FFmpegService.GetAudioDuration idiom, returning seconds rather than
// milliseconds since this package's math operates in seconds throughout.
func GetAudioDuration(ctx context.Context, audioPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}
	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return durationSec, nil
}

// AnalyzeAudioFiles measures each file's duration via ffprobe, sums them
// (plus inter-segment padding), and classifies against targetDuration.
// Grounded on analyze_audio_files.
func (g *Gate) AnalyzeAudioFiles(ctx context.Context, audioFiles []string, targetDuration float64) Analysis {
	var segmentsInfo []SegmentInfo
	var segmentDurations []float64
	var totalDuration float64

	for i, f := range audioFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		duration, err := GetAudioDuration(ctx, f)
		if err != nil {
			continue
		}

		info := SegmentInfo{Index: i, File: f, Duration: duration}
		if duration < g.MinSegmentDuration {
			info.IsTooShort = true
			info.QualityIssues = append(info.QualityIssues, fmt.Sprintf("too short (%.1fs < %.1fs)", duration, g.MinSegmentDuration))
		}
		if duration > g.MaxSegmentDuration {
			info.IsTooLong = true
			info.QualityIssues = append(info.QualityIssues, fmt.Sprintf("too long (%.1fs > %.1fs)", duration, g.MaxSegmentDuration))
		}

		segmentsInfo = append(segmentsInfo, info)
		segmentDurations = append(segmentDurations, duration)
		totalDuration += duration
	}

	if len(segmentDurations) > 1 {
		totalDuration += g.PaddingBetweenS * float64(len(segmentDurations)-1)
	}

	toleranceRange := targetDuration * (g.TolerancePercent / 100)
	minDuration := targetDuration - toleranceRange
	maxDuration := targetDuration + toleranceRange
	isWithinTolerance := totalDuration >= minDuration && totalDuration <= maxDuration
	durationDifference := totalDuration - targetDuration

	var durationRatio float64
	if targetDuration > 0 {
		durationRatio = totalDuration / targetDuration
	}

	qualityIssuesCount := 0
	for _, s := range segmentsInfo {
		qualityIssuesCount += len(s.QualityIssues)
	}
	var durationPenalty float64
	if targetDuration > 0 {
		durationPenalty = math.Abs(durationDifference) / targetDuration
	}
	qualityScore := math.Max(0, 1-(float64(qualityIssuesCount)*0.1+durationPenalty))

	mustRegenerate := !isWithinTolerance ||
		durationRatio < ratioFloor ||
		durationRatio > ratioCeil ||
		qualityScore < qualityFloor

	recommendation := recommend(isWithinTolerance, mustRegenerate, totalDuration, minDuration, maxDuration, durationDifference, qualityScore)

	return Analysis{
		TotalDuration:      totalDuration,
		TargetDuration:     targetDuration,
		SegmentDurations:   segmentDurations,
		IsWithinTolerance:  isWithinTolerance,
		TolerancePercent:   g.TolerancePercent,
		DurationDifference: durationDifference,
		DurationRatio:      durationRatio,
		Recommendation:     recommendation,
		SegmentsInfo:       segmentsInfo,
		QualityScore:       qualityScore,
		MustRegenerate:     mustRegenerate,
	}
}

func recommend(withinTolerance, mustRegenerate bool, total, min, max, diff, quality float64) string {
	switch {
	case withinTolerance && quality >= 0.8:
		return "audio duration is optimal - proceed with video generation"
	case mustRegenerate:
		switch {
		case total < min:
			return fmt.Sprintf("audio is %.1fs too short - must regenerate with slower speech or more content", math.Abs(diff))
		case total > max:
			return fmt.Sprintf("audio is %.1fs too long - must regenerate with faster speech or less content", math.Abs(diff))
		default:
			return fmt.Sprintf("audio has quality issues (score: %.2f) - must regenerate", quality)
		}
	default:
		return fmt.Sprintf("audio duration acceptable but could be improved (diff: %+.1fs)", diff)
	}
}

// CalculateDynamicClipDurations distributes analysis.TotalDuration across
// numClips, reusing exact segment durations when counts already match.
// Grounded on calculate_dynamic_clip_durations.
func (g *Gate) CalculateDynamicClipDurations(analysis Analysis, numClips int) []float64 {
	if numClips <= 0 {
		return nil
	}
	if len(analysis.SegmentDurations) == numClips {
		return append([]float64{}, analysis.SegmentDurations...)
	}

	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	total := analysis.TotalDuration
	base := total / float64(numClips)
	durations := make([]float64, numClips)
	for i := range durations {
		variation := 0.9 + g.rng.Float64()*0.2 // ±10%
		d := base * variation
		durations[i] = clamp(d, g.MinSegmentDuration, g.MaxSegmentDuration)
	}

	sumExceptLast := 0.0
	for i := 0; i < numClips-1; i++ {
		sumExceptLast += durations[i]
	}
	durations[numClips-1] = total - sumExceptLast

	if durations[numClips-1] < g.MinSegmentDuration {
		shortage := g.MinSegmentDuration - durations[numClips-1]
		if numClips > 1 {
			perClip := shortage / float64(numClips-1)
			for i := 0; i < numClips-1; i++ {
				durations[i] -= perClip
			}
		}
		durations[numClips-1] = g.MinSegmentDuration
	}

	return durations
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AddPaddingBetweenSegments appends a silence gap (via ffmpeg) after
// every file but the last, writing results under outputDir. Grounded on
// add_padding_between_segments; this module uses ffmpeg's apad filter
// instead of moviepy's AudioClip/concatenate_audioclips.
func (g *Gate) AddPaddingBetweenSegments(ctx context.Context, audioFiles []string, outputDir string) ([]string, error) {
	if len(audioFiles) <= 1 || g.PaddingBetweenS <= 0 {
		return audioFiles, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return audioFiles, fmt.Errorf("create output dir: %w", err)
	}

	padded := make([]string, 0, len(audioFiles))
	for i, f := range audioFiles {
		base := fmt.Sprintf("padded_%d_%s", i, trimToBase(f))
		outPath := outputDir + string(os.PathSeparator) + base

		if i == len(audioFiles)-1 {
			if err := copyFile(ctx, f, outPath); err != nil {
				return audioFiles, err
			}
			padded = append(padded, outPath)
			continue
		}

		filter := fmt.Sprintf("[0:a]apad=pad_dur=%.3f[out]", g.PaddingBetweenS)
		args := []string{"-y", "-i", f, "-filter_complex", filter, "-map", "[out]", outPath}
		cmd := exec.CommandContext(ctx, "ffmpeg", args...)
		if err := cmd.Run(); err != nil {
			return audioFiles, fmt.Errorf("ffmpeg padding failed for %s: %w", f, err)
		}
		padded = append(padded, outPath)
	}
	return padded, nil
}

func trimToBase(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}

func copyFile(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", src, "-c", "copy", dst)
	return cmd.Run()
}

// ValidateBeforeVideoGeneration analyzes audio and gates progression per
// validate_before_video_generation: when blockOnFailure is true and the
// analysis requires regeneration, canProceed is false.
func (g *Gate) ValidateBeforeVideoGeneration(ctx context.Context, audioFiles []string, targetDuration float64, blockOnFailure bool) (bool, Analysis) {
	analysis := g.AnalyzeAudioFiles(ctx, audioFiles, targetDuration)
	canProceed := !analysis.MustRegenerate || !blockOnFailure
	return canProceed, analysis
}
