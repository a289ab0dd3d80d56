package scoring

import (
	"strings"

	"github.com/fleetwatch/fleetwatch/internal/model"
)

// Profile names a weighting scheme that turns raw metrics into a 0-100 host
// health score.
type Profile int

const (
	Balanced Profile = iota
	HighConcurrency
	IOIntensive
	MemorySensitive
)

// RescoreCPUCores is assumed when rescoring from persisted aggregates, where
// the original per-CPU vector (and with it the real core count) is gone.
const RescoreCPUCores = 4

// ScoreNote is attached to query responses whose scores were recomputed from
// stored aggregates rather than the live snapshot.
const ScoreNote = "rescored from aggregates; core count assumed 4"

type Weights struct {
	CPU             float64
	Mem             float64
	Load            float64
	Disk            float64
	Net             float64
	LoadCoefficient float64
	MaxBandwidth    float64 // bytes/s
}

func (p Profile) Weights() Weights {
	switch p {
	case HighConcurrency:
		return Weights{0.45, 0.25, 0.15, 0.10, 0.05, 1.2, 125000000.0}
	case IOIntensive:
		return Weights{0.20, 0.15, 0.20, 0.35, 0.10, 2.0, 125000000.0}
	case MemorySensitive:
		return Weights{0.20, 0.45, 0.15, 0.10, 0.10, 1.5, 125000000.0}
	default:
		return Weights{0.35, 0.30, 0.15, 0.15, 0.05, 1.5, 125000000.0}
	}
}

func (p Profile) String() string {
	switch p {
	case HighConcurrency:
		return "HIGH_CONCURRENCY"
	case IOIntensive:
		return "IO_INTENSIVE"
	case MemorySensitive:
		return "MEMORY_SENSITIVE"
	default:
		return "BALANCED"
	}
}

// ParseProfile maps a wire profile name to a Profile. Unknown or empty names
// fall back to BALANCED; ok reports whether the name was recognized.
func ParseProfile(name string) (Profile, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "BALANCED":
		return Balanced, strings.TrimSpace(name) != ""
	case "HIGH_CONCURRENCY":
		return HighConcurrency, true
	case "IO_INTENSIVE":
		return IOIntensive, true
	case "MEMORY_SENSITIVE":
		return MemorySensitive, true
	default:
		return Balanced, false
	}
}

// Inputs are the sampled values a score is computed from.
type Inputs struct {
	CPUPercent      float64
	MemUsedPercent  float64
	LoadAvg1        float64
	DiskUtilPercent float64
	RcvBytesPerSec  float64
	SendBytesPerSec float64
	CPUCores        int
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Score maps sampled values to [0, 100] under the profile's weights. Each
// component sub-score is clamped to [0, 1] before weighting.
func Score(in Inputs, p Profile) float64 {
	w := p.Weights()

	cores := in.CPUCores
	if cores < 1 {
		cores = 1
	}

	cpuScore := clamp01(1.0 - in.CPUPercent/100.0)
	memScore := clamp01(1.0 - in.MemUsedPercent/100.0)
	loadScore := clamp01(1.0 - in.LoadAvg1/(float64(cores)*w.LoadCoefficient))
	diskScore := clamp01(1.0 - in.DiskUtilPercent/100.0)
	netRcvScore := clamp01(1.0 - in.RcvBytesPerSec/w.MaxBandwidth)
	netSendScore := clamp01(1.0 - in.SendBytesPerSec/w.MaxBandwidth)
	netScore := (netRcvScore + netSendScore) / 2.0

	score := cpuScore*w.CPU + memScore*w.Mem + loadScore*w.Load +
		diskScore*w.Disk + netScore*w.Net
	return clamp01(score) * 100.0
}

// ScoreSnapshot scores a live snapshot: the core count comes from the per-CPU
// vector and the network rates from the first interface.
func ScoreSnapshot(info *model.MonitorInfo, p Profile) float64 {
	in := Inputs{CPUCores: 1}
	if len(info.CPUStat) > 0 {
		in.CPUPercent = info.CPUStat[0].CPUPercent
		in.CPUCores = info.CPUCores()
	}
	if info.CPULoad != nil {
		in.LoadAvg1 = info.CPULoad.LoadAvg1
	}
	if info.MemInfo != nil {
		in.MemUsedPercent = info.MemInfo.UsedPercent
	}
	if len(info.NetInfo) > 0 {
		in.RcvBytesPerSec = info.NetInfo[0].RcvRate
		in.SendBytesPerSec = info.NetInfo[0].SendRate
	}
	in.DiskUtilPercent = info.MaxDiskUtil()
	return Score(in, p)
}

// ScoreAggregates rescores from the persisted aggregate columns. Stored
// network rates are KB/s; the original per-CPU vector is not persisted, so
// the core count falls back to RescoreCPUCores.
func ScoreAggregates(cpuPercent, memUsedPercent, loadAvg1, diskUtilPercent, sendRateKB, rcvRateKB float64, p Profile) float64 {
	return Score(Inputs{
		CPUPercent:      cpuPercent,
		MemUsedPercent:  memUsedPercent,
		LoadAvg1:        loadAvg1,
		DiskUtilPercent: diskUtilPercent,
		RcvBytesPerSec:  rcvRateKB * 1024.0,
		SendBytesPerSec: sendRateKB * 1024.0,
		CPUCores:        RescoreCPUCores,
	}, p)
}
