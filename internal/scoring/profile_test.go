package scoring

import (
	"math"
	"testing"

	"github.com/fleetwatch/fleetwatch/internal/model"
)

func TestScoreBounds(t *testing.T) {
	profiles := []Profile{Balanced, HighConcurrency, IOIntensive, MemorySensitive}
	inputs := []Inputs{
		{},
		{CPUPercent: 100, MemUsedPercent: 100, LoadAvg1: 64, DiskUtilPercent: 100, RcvBytesPerSec: 1e9, SendBytesPerSec: 1e9, CPUCores: 4},
		{CPUPercent: -10, MemUsedPercent: -5, LoadAvg1: -1, CPUCores: 0},
		{CPUPercent: 50, MemUsedPercent: 40, LoadAvg1: 2, DiskUtilPercent: 10, RcvBytesPerSec: 1e6, SendBytesPerSec: 1e6, CPUCores: 4},
	}
	for _, p := range profiles {
		for _, in := range inputs {
			score := Score(in, p)
			if score < 0 || score > 100 {
				t.Errorf("Score(%+v, %v) = %v, out of [0, 100]", in, p, score)
			}
		}
	}
}

func TestBalancedScoreWorkedExample(t *testing.T) {
	// cpu 50%, mem 40%, load1 2.0 on 4 cores, disk util 10%, 1 MB/s each way.
	score := Score(Inputs{
		CPUPercent:      50,
		MemUsedPercent:  40,
		LoadAvg1:        2.0,
		DiskUtilPercent: 10,
		RcvBytesPerSec:  1e6,
		SendBytesPerSec: 1e6,
		CPUCores:        4,
	}, Balanced)

	// 0.5*0.35 + 0.6*0.30 + (1-2/6)*0.15 + 0.9*0.15 + 0.992*0.05 ≈ 63.96
	if math.Abs(score-63.96) > 0.1 {
		t.Errorf("balanced score = %v, want ≈63.96", score)
	}
}

func TestProfileSwapFavorsLowMemory(t *testing.T) {
	// cpu pegged, memory nearly idle: the memory-sensitive profile must rank
	// this host higher than the balanced one does.
	balanced := ScoreAggregates(90, 10, 0.5, 5, 1, 1, Balanced)
	memSensitive := ScoreAggregates(90, 10, 0.5, 5, 1, 1, MemorySensitive)
	if memSensitive <= balanced {
		t.Errorf("memory-sensitive score %v not above balanced %v", memSensitive, balanced)
	}
}

func TestScoreSnapshotUsesCoreCount(t *testing.T) {
	info := &model.MonitorInfo{
		CPUStat: []model.CPUStat{
			{CPUName: "cpu", CPUPercent: 0},
			{CPUName: "cpu0"}, {CPUName: "cpu1"},
		},
		CPULoad: &model.CPULoad{LoadAvg1: 3.0},
	}
	// 2 cores, balanced coefficient 1.5: load_score = 1 - 3/(2*1.5) = 0.
	got := ScoreSnapshot(info, Balanced)
	want := Score(Inputs{LoadAvg1: 3.0, CPUCores: 2}, Balanced)
	if got != want {
		t.Errorf("snapshot score = %v, want %v", got, want)
	}
}

func TestScoreAggregatesConvertsKB(t *testing.T) {
	// 1 KB/s stored rates: the rescore must treat them as 1024 B/s, which is
	// negligible against max bandwidth, so it matches zero-network scoring
	// within float tolerance but not exactly.
	withNet := ScoreAggregates(50, 50, 1, 10, 1, 1, Balanced)
	zeroNet := ScoreAggregates(50, 50, 1, 10, 0, 0, Balanced)
	if withNet > zeroNet {
		t.Errorf("network traffic raised the score: %v > %v", withNet, zeroNet)
	}
	if zeroNet-withNet > 0.01 {
		t.Errorf("1 KB/s cost %v points, want < 0.01", zeroNet-withNet)
	}
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in     string
		want   Profile
		wantOK bool
	}{
		{"", Balanced, false},
		{"BALANCED", Balanced, true},
		{"balanced", Balanced, true},
		{"HIGH_CONCURRENCY", HighConcurrency, true},
		{"IO_INTENSIVE", IOIntensive, true},
		{"MEMORY_SENSITIVE", MemorySensitive, true},
		{"NOPE", Balanced, false},
	}
	for _, tt := range tests {
		got, ok := ParseProfile(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseProfile(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestWeightsSumToOne(t *testing.T) {
	for _, p := range []Profile{Balanced, HighConcurrency, IOIntensive, MemorySensitive} {
		w := p.Weights()
		sum := w.CPU + w.Mem + w.Load + w.Disk + w.Net
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("%v weights sum to %v, want 1.0", p, sum)
		}
	}
}
