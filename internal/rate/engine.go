package rate

import "sync"

// Engine keeps the previous sample per host (and per sub-entity for the
// network, softirq and disk series) and turns consecutive samples into
// relative change rates. Compute-and-update is atomic per call, so two
// ingests for the same host cannot interleave a stale prior.
type Engine struct {
	mu       sync.Mutex
	perf     map[string]PerfSample
	net      map[string]map[string]NetSample
	softirq  map[string]map[string]SoftIrqSample
	mem      map[string]MemSample
	disk     map[string]map[string]DiskSample
	diskUtil map[string]float64
}

func New() *Engine {
	return &Engine{
		perf:     make(map[string]PerfSample),
		net:      make(map[string]map[string]NetSample),
		softirq:  make(map[string]map[string]SoftIrqSample),
		mem:      make(map[string]MemSample),
		disk:     make(map[string]map[string]DiskSample),
		diskUtil: make(map[string]float64),
	}
}

// Rate is the uniform change-rate rule: 0 when the prior sample is 0,
// signed (now-prior)/prior otherwise.
func Rate(now, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (now - prior) / prior
}

// PerfSample is the aggregate vector a performance row's rates are computed
// against. Network rates are in KB/s, matching the persisted columns.
type PerfSample struct {
	CPUPercent     float64
	UsrPercent     float64
	SystemPercent  float64
	NicePercent    float64
	IdlePercent    float64
	IOWaitPercent  float64
	IrqPercent     float64
	SoftIrqPercent float64
	LoadAvg1       float64
	LoadAvg3       float64
	LoadAvg15      float64
	MemUsedPercent float64
	MemTotal       float64
	MemFree        float64
	MemAvail       float64
	SendRate       float64
	RcvRate        float64
}

// PerfRates swaps in curr as the host's prior sample and returns the
// field-for-field change rates against the previous one. First sight of a
// host yields all zeroes.
func (e *Engine) PerfRates(host string, curr PerfSample) PerfSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	last := e.perf[host]
	e.perf[host] = curr
	return PerfSample{
		CPUPercent:     Rate(curr.CPUPercent, last.CPUPercent),
		UsrPercent:     Rate(curr.UsrPercent, last.UsrPercent),
		SystemPercent:  Rate(curr.SystemPercent, last.SystemPercent),
		NicePercent:    Rate(curr.NicePercent, last.NicePercent),
		IdlePercent:    Rate(curr.IdlePercent, last.IdlePercent),
		IOWaitPercent:  Rate(curr.IOWaitPercent, last.IOWaitPercent),
		IrqPercent:     Rate(curr.IrqPercent, last.IrqPercent),
		SoftIrqPercent: Rate(curr.SoftIrqPercent, last.SoftIrqPercent),
		LoadAvg1:       Rate(curr.LoadAvg1, last.LoadAvg1),
		LoadAvg3:       Rate(curr.LoadAvg3, last.LoadAvg3),
		LoadAvg15:      Rate(curr.LoadAvg15, last.LoadAvg15),
		MemUsedPercent: Rate(curr.MemUsedPercent, last.MemUsedPercent),
		MemTotal:       Rate(curr.MemTotal, last.MemTotal),
		MemFree:        Rate(curr.MemFree, last.MemFree),
		MemAvail:       Rate(curr.MemAvail, last.MemAvail),
		SendRate:       Rate(curr.SendRate, last.SendRate),
		RcvRate:        Rate(curr.RcvRate, last.RcvRate),
	}
}

type NetSample struct {
	RcvBytesRate   float64
	RcvPacketsRate float64
	SndBytesRate   float64
	SndPacketsRate float64
	ErrIn          uint64
	ErrOut         uint64
	DropIn         uint64
	DropOut        uint64
}

// NetRates holds the change rates of a NetSample; the unsigned counters are
// rated as floats under the same rule.
type NetRates struct {
	RcvBytesRate   float64
	RcvPacketsRate float64
	SndBytesRate   float64
	SndPacketsRate float64
	ErrIn          float64
	ErrOut         float64
	DropIn         float64
	DropOut        float64
}

func (e *Engine) NetRates(host, iface string, curr NetSample) NetRates {
	e.mu.Lock()
	defer e.mu.Unlock()
	byIface := e.net[host]
	if byIface == nil {
		byIface = make(map[string]NetSample)
		e.net[host] = byIface
	}
	last := byIface[iface]
	byIface[iface] = curr
	return NetRates{
		RcvBytesRate:   Rate(curr.RcvBytesRate, last.RcvBytesRate),
		RcvPacketsRate: Rate(curr.RcvPacketsRate, last.RcvPacketsRate),
		SndBytesRate:   Rate(curr.SndBytesRate, last.SndBytesRate),
		SndPacketsRate: Rate(curr.SndPacketsRate, last.SndPacketsRate),
		ErrIn:          Rate(float64(curr.ErrIn), float64(last.ErrIn)),
		ErrOut:         Rate(float64(curr.ErrOut), float64(last.ErrOut)),
		DropIn:         Rate(float64(curr.DropIn), float64(last.DropIn)),
		DropOut:        Rate(float64(curr.DropOut), float64(last.DropOut)),
	}
}

type SoftIrqSample struct {
	Hi      float64
	Timer   float64
	NetTx   float64
	NetRx   float64
	Block   float64
	IrqPoll float64
	Tasklet float64
	Sched   float64
	HRTimer float64
	RCU     float64
}

func (e *Engine) SoftIrqRates(host, cpu string, curr SoftIrqSample) SoftIrqSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	byCPU := e.softirq[host]
	if byCPU == nil {
		byCPU = make(map[string]SoftIrqSample)
		e.softirq[host] = byCPU
	}
	last := byCPU[cpu]
	byCPU[cpu] = curr
	return SoftIrqSample{
		Hi:      Rate(curr.Hi, last.Hi),
		Timer:   Rate(curr.Timer, last.Timer),
		NetTx:   Rate(curr.NetTx, last.NetTx),
		NetRx:   Rate(curr.NetRx, last.NetRx),
		Block:   Rate(curr.Block, last.Block),
		IrqPoll: Rate(curr.IrqPoll, last.IrqPoll),
		Tasklet: Rate(curr.Tasklet, last.Tasklet),
		Sched:   Rate(curr.Sched, last.Sched),
		HRTimer: Rate(curr.HRTimer, last.HRTimer),
		RCU:     Rate(curr.RCU, last.RCU),
	}
}

type MemSample struct {
	Total        float64
	Free         float64
	Avail        float64
	Buffers      float64
	Cached       float64
	SwapCached   float64
	Active       float64
	Inactive     float64
	ActiveAnon   float64
	InactiveAnon float64
	ActiveFile   float64
	InactiveFile float64
	Dirty        float64
	Writeback    float64
	AnonPages    float64
	Mapped       float64
	KReclaimable float64
	SReclaimable float64
	SUnreclaim   float64
}

func (e *Engine) MemRates(host string, curr MemSample) MemSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	last := e.mem[host]
	e.mem[host] = curr
	return MemSample{
		Total:        Rate(curr.Total, last.Total),
		Free:         Rate(curr.Free, last.Free),
		Avail:        Rate(curr.Avail, last.Avail),
		Buffers:      Rate(curr.Buffers, last.Buffers),
		Cached:       Rate(curr.Cached, last.Cached),
		SwapCached:   Rate(curr.SwapCached, last.SwapCached),
		Active:       Rate(curr.Active, last.Active),
		Inactive:     Rate(curr.Inactive, last.Inactive),
		ActiveAnon:   Rate(curr.ActiveAnon, last.ActiveAnon),
		InactiveAnon: Rate(curr.InactiveAnon, last.InactiveAnon),
		ActiveFile:   Rate(curr.ActiveFile, last.ActiveFile),
		InactiveFile: Rate(curr.InactiveFile, last.InactiveFile),
		Dirty:        Rate(curr.Dirty, last.Dirty),
		Writeback:    Rate(curr.Writeback, last.Writeback),
		AnonPages:    Rate(curr.AnonPages, last.AnonPages),
		Mapped:       Rate(curr.Mapped, last.Mapped),
		KReclaimable: Rate(curr.KReclaimable, last.KReclaimable),
		SReclaimable: Rate(curr.SReclaimable, last.SReclaimable),
		SUnreclaim:   Rate(curr.SUnreclaim, last.SUnreclaim),
	}
}

type DiskSample struct {
	ReadBytesPerSec   float64
	WriteBytesPerSec  float64
	ReadIOPS          float64
	WriteIOPS         float64
	AvgReadLatencyMs  float64
	AvgWriteLatencyMs float64
	UtilPercent       float64
}

func (e *Engine) DiskRates(host, disk string, curr DiskSample) DiskSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	byDisk := e.disk[host]
	if byDisk == nil {
		byDisk = make(map[string]DiskSample)
		e.disk[host] = byDisk
	}
	last := byDisk[disk]
	byDisk[disk] = curr
	return DiskSample{
		ReadBytesPerSec:   Rate(curr.ReadBytesPerSec, last.ReadBytesPerSec),
		WriteBytesPerSec:  Rate(curr.WriteBytesPerSec, last.WriteBytesPerSec),
		ReadIOPS:          Rate(curr.ReadIOPS, last.ReadIOPS),
		WriteIOPS:         Rate(curr.WriteIOPS, last.WriteIOPS),
		AvgReadLatencyMs:  Rate(curr.AvgReadLatencyMs, last.AvgReadLatencyMs),
		AvgWriteLatencyMs: Rate(curr.AvgWriteLatencyMs, last.AvgWriteLatencyMs),
		UtilPercent:       Rate(curr.UtilPercent, last.UtilPercent),
	}
}

// DiskUtilRate rates the host-wide max disk utilization used by the
// performance row's disk_util_percent_rate column.
func (e *Engine) DiskUtilRate(host string, curr float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	last := e.diskUtil[host]
	e.diskUtil[host] = curr
	return Rate(curr, last)
}
