package syncplanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	points []SyncPoint
	err    error
}

func (f fakeStrategy) Synchronize(ctx context.Context, audio AudioData, video VideoData) ([]SyncPoint, error) {
	return f.points, f.err
}

func TestDetectEnergyPeaks_FindsLocalMaximaAboveThreshold(t *testing.T) {
	energy := []float64{0.1, 0.1, 0.9, 0.1, 0.1, 0.1, 0.85, 0.1}
	peaks := detectEnergyPeaks(energy)
	assert.NotEmpty(t, peaks)
}

func TestDetectEnergyPeaks_EmptyInputNoPeaks(t *testing.T) {
	assert.Empty(t, detectEnergyPeaks(nil))
}

func TestScoreForType_NoMatchingPointsReturnsNeutral(t *testing.T) {
	points := []SyncPoint{{Type: SyncVoice, Confidence: 0.85}}
	score := scoreForType(points, SyncBeat)
	assert.Equal(t, 0.5, score)
}

func TestScoreForType_AveragesConfidenceCappedAtOne(t *testing.T) {
	points := []SyncPoint{
		{Type: SyncBeat, Confidence: 0.9},
		{Type: SyncBeat, Confidence: 0.9},
	}
	score := scoreForType(points, SyncBeat)
	assert.InDelta(t, 0.9, score, 0.001)
}

func TestPlan_OverallScoreWeighting(t *testing.T) {
	strategy := fakeStrategy{points: []SyncPoint{
		{AudioTimestamp: 0, Type: SyncBeat, Confidence: 0.9},
		{AudioTimestamp: 1, Type: SyncVoice, Confidence: 0.85},
	}}
	p := New(strategy, 10)
	analysis, err := p.Plan(context.Background(), AudioData{Duration: 10}, VideoData{Clips: []string{"a.mp4", "b.mp4"}}, 10)
	require.NoError(t, err)
	expected := 0.9*0.6 + 0.85*0.4
	assert.InDelta(t, expected, analysis.OverallSyncScore, 0.01)
}

func TestPlan_NoSyncPointsEvenDistribution(t *testing.T) {
	strategy := fakeStrategy{}
	p := New(strategy, 100)
	analysis, err := p.Plan(context.Background(), AudioData{Duration: 20}, VideoData{Clips: []string{"a", "b", "c", "d"}}, 20)
	require.NoError(t, err)
	require.Len(t, analysis.AdjustedClipDurations, 4)
	for _, d := range analysis.AdjustedClipDurations {
		assert.InDelta(t, 5.0, d, 0.01)
	}
}

func TestPlan_LowScoreTriggersRecommendations(t *testing.T) {
	strategy := fakeStrategy{}
	p := New(strategy, 100)
	analysis, err := p.Plan(context.Background(), AudioData{Duration: 10}, VideoData{Clips: []string{"a"}}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, analysis.Recommendations)
}

func TestPlan_FewerSyncPointsThanClipsFallsBackToEvenDistribution(t *testing.T) {
	strategy := fakeStrategy{points: []SyncPoint{
		{AudioTimestamp: 0, Type: SyncBeat, Confidence: 0.9},
	}}
	p := New(strategy, 100)
	analysis, err := p.Plan(context.Background(), AudioData{Duration: 30}, VideoData{Clips: []string{"a", "b", "c"}}, 30)
	require.NoError(t, err)
	require.Len(t, analysis.AdjustedClipDurations, 3)
	sum := 0.0
	for _, d := range analysis.AdjustedClipDurations {
		assert.InDelta(t, 10.0, d, 0.01)
		sum += d
	}
	assert.InDelta(t, 30.0, sum, 1e-3)
}

func TestClampDuration_RespectsMinAndMax(t *testing.T) {
	p := New(fakeStrategy{}, 5)
	assert.Equal(t, minClipDurationS, p.clampDuration(0.1))
	assert.Equal(t, 5.0, p.clampDuration(10))
	assert.Equal(t, 3.0, p.clampDuration(3))
}

func TestSpeedFactor_NoAdjustmentWithinTenPercent(t *testing.T) {
	assert.Equal(t, 1.0, SpeedFactor(10, 10.5))
}

func TestSpeedFactor_ClampsToRange(t *testing.T) {
	assert.Equal(t, speedClampMax, SpeedFactor(100, 1))
	assert.Equal(t, speedClampMin, SpeedFactor(1, 100))
}

func TestHybridSyncStrategy_MergesAndSortsByAudioTimestamp(t *testing.T) {
	beat := fakeStrategy{points: []SyncPoint{{AudioTimestamp: 5, Type: SyncBeat, Confidence: 0.9}}}
	voice := fakeStrategy{points: []SyncPoint{{AudioTimestamp: 1, Type: SyncVoice, Confidence: 0.85}}}
	hybrid := HybridSyncStrategy{Strategies: []SyncStrategy{beat, voice}}

	points, err := hybrid.Synchronize(context.Background(), AudioData{}, VideoData{})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, SyncVoice, points[0].Type)
	assert.Equal(t, SyncBeat, points[1].Type)
}
