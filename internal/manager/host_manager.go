package manager

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/model"
	"github.com/fleetwatch/fleetwatch/internal/models"
	"github.com/fleetwatch/fleetwatch/internal/rate"
	"github.com/fleetwatch/fleetwatch/internal/scoring"
)

const (
	// DefaultLivenessTTL is the age beyond which a host is considered
	// offline and evicted from the scoreboard.
	DefaultLivenessTTL = 60 * time.Second

	defaultSweepInterval = 60 * time.Second
)

// SampleWriter is the write half of the sample store the ingest fan-out
// targets.
type SampleWriter interface {
	InsertPerformance(*models.ServerPerformance) error
	InsertNetDetail(*models.ServerNetDetail) error
	InsertSoftIrqDetail(*models.ServerSoftIrqDetail) error
	InsertMemDetail(*models.ServerMemDetail) error
	InsertDiskDetail(*models.ServerDiskDetail) error
	InsertCPUCoreDetail(*models.ServerCPUCoreDetail) error
}

// HostScore is one live scoreboard entry.
type HostScore struct {
	Info      *model.MonitorInfo
	Score     float64
	Timestamp time.Time
}

// HostManager coordinates ingestion: it derives host identity, drives the
// rate and scoring engines, maintains the live scoreboard and fans the
// snapshot out into the store. A background sweeper evicts stale entries.
type HostManager struct {
	mu     sync.Mutex
	scores map[string]HostScore

	rates  *rate.Engine
	writer SampleWriter

	ttl           time.Duration
	sweepInterval time.Duration
	stop          chan struct{}
}

func NewHostManager(writer SampleWriter, rates *rate.Engine, ttl time.Duration) *HostManager {
	if ttl <= 0 {
		ttl = DefaultLivenessTTL
	}
	return &HostManager{
		scores:        make(map[string]HostScore),
		rates:         rates,
		writer:        writer,
		ttl:           ttl,
		sweepInterval: defaultSweepInterval,
		stop:          make(chan struct{}),
	}
}

func (hm *HostManager) Start() {
	go hm.loop()
	slog.Info("Host manager started", "liveness_ttl", hm.ttl)
}

func (hm *HostManager) Stop() {
	close(hm.stop)
	slog.Info("Host manager stopped")
}

func (hm *HostManager) loop() {
	ticker := time.NewTicker(hm.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hm.Sweep(time.Now())
		case <-hm.stop:
			return
		}
	}
}

// Sweep removes scoreboard entries older than the liveness TTL.
func (hm *HostManager) Sweep(now time.Time) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	for host, entry := range hm.scores {
		if now.Sub(entry.Timestamp) > hm.ttl {
			slog.Debug("Removing stale host", "server", host)
			delete(hm.scores, host)
		}
	}
}

// OnDataReceived ingests one pushed snapshot. Ingest is best-effort: a
// failed insert is logged and the remaining fan-out continues. Only a
// snapshot with no usable host identity is dropped outright.
func (hm *HostManager) OnDataReceived(info *model.MonitorInfo) {
	host := info.HostKey()
	if host == "" {
		slog.Error("Received snapshot with empty server identifier")
		return
	}

	now := time.Now()
	score := scoring.ScoreSnapshot(info, scoring.Balanced)

	var netInRate, netOutRate float64 // MB/s, first interface
	if len(info.NetInfo) > 0 {
		netInRate = info.NetInfo[0].RcvRate / (1024.0 * 1024.0)
		netOutRate = info.NetInfo[0].SendRate / (1024.0 * 1024.0)
	}

	curr := rate.PerfSample{}
	if len(info.CPUStat) > 0 {
		cpu := info.CPUStat[0]
		curr.CPUPercent = cpu.CPUPercent
		curr.UsrPercent = cpu.UsrPercent
		curr.SystemPercent = cpu.SystemPercent
		curr.NicePercent = cpu.NicePercent
		curr.IdlePercent = cpu.IdlePercent
		curr.IOWaitPercent = cpu.IOWaitPercent
		curr.IrqPercent = cpu.IrqPercent
		curr.SoftIrqPercent = cpu.SoftIrqPercent
	}
	if info.CPULoad != nil {
		curr.LoadAvg1 = info.CPULoad.LoadAvg1
		curr.LoadAvg3 = info.CPULoad.LoadAvg3
		curr.LoadAvg15 = info.CPULoad.LoadAvg15
	}
	if info.MemInfo != nil {
		curr.MemUsedPercent = info.MemInfo.UsedPercent
		curr.MemTotal = info.MemInfo.Total
		curr.MemFree = info.MemInfo.Free
		curr.MemAvail = info.MemInfo.Avail
	}
	if len(info.NetInfo) > 0 {
		curr.SendRate = info.NetInfo[0].SendRate / 1024.0
		curr.RcvRate = info.NetInfo[0].RcvRate / 1024.0
	}

	perfRates := hm.rates.PerfRates(host, curr)
	diskUtil := info.MaxDiskUtil()
	diskUtilRate := hm.rates.DiskUtilRate(host, diskUtil)

	hm.mu.Lock()
	hm.scores[host] = HostScore{Info: info, Score: score, Timestamp: now}
	hm.mu.Unlock()

	hm.writeSnapshot(host, info, now, score, curr, perfRates, diskUtil, diskUtilRate)

	slog.Debug("Snapshot ingested",
		"server", host, "score", score,
		"cpu_percent", curr.CPUPercent, "mem_used_percent", curr.MemUsedPercent,
		"load_avg_1", curr.LoadAvg1, "disk_util_percent", diskUtil,
		"net_in_mb_s", netInRate, "net_out_mb_s", netOutRate)
}

// writeSnapshot is the fan-out: one performance row plus one detail row per
// sub-entity, each with its own change rates.
func (hm *HostManager) writeSnapshot(host string, info *model.MonitorInfo, now time.Time,
	score float64, curr rate.PerfSample, perfRates rate.PerfSample, diskUtil, diskUtilRate float64) {

	perf := &models.ServerPerformance{
		ServerName: host,
		Timestamp:  now,

		CPUPercent:     curr.CPUPercent,
		UsrPercent:     curr.UsrPercent,
		SystemPercent:  curr.SystemPercent,
		NicePercent:    curr.NicePercent,
		IdlePercent:    curr.IdlePercent,
		IOWaitPercent:  curr.IOWaitPercent,
		IrqPercent:     curr.IrqPercent,
		SoftIrqPercent: curr.SoftIrqPercent,

		LoadAvg1:  curr.LoadAvg1,
		LoadAvg3:  curr.LoadAvg3,
		LoadAvg15: curr.LoadAvg15,

		MemUsedPercent: curr.MemUsedPercent,
		Total:          curr.MemTotal,
		Free:           curr.MemFree,
		Avail:          curr.MemAvail,

		DiskUtilPercent: diskUtil,
		SendRate:        curr.SendRate,
		RcvRate:         curr.RcvRate,
		Score:           score,

		CPUPercentRate:      perfRates.CPUPercent,
		UsrPercentRate:      perfRates.UsrPercent,
		SystemPercentRate:   perfRates.SystemPercent,
		NicePercentRate:     perfRates.NicePercent,
		IdlePercentRate:     perfRates.IdlePercent,
		IOWaitPercentRate:   perfRates.IOWaitPercent,
		IrqPercentRate:      perfRates.IrqPercent,
		SoftIrqPercentRate:  perfRates.SoftIrqPercent,
		LoadAvg1Rate:        perfRates.LoadAvg1,
		LoadAvg3Rate:        perfRates.LoadAvg3,
		LoadAvg15Rate:       perfRates.LoadAvg15,
		MemUsedPercentRate:  perfRates.MemUsedPercent,
		TotalRate:           perfRates.MemTotal,
		FreeRate:            perfRates.MemFree,
		AvailRate:           perfRates.MemAvail,
		DiskUtilPercentRate: diskUtilRate,
		SendRateRate:        perfRates.SendRate,
		RcvRateRate:         perfRates.RcvRate,
	}
	if err := hm.writer.InsertPerformance(perf); err != nil {
		slog.Error("Failed to persist performance row", "server", host, "error", err)
	}

	for _, net := range info.NetInfo {
		sample := rate.NetSample{
			RcvBytesRate:   net.RcvRate,
			RcvPacketsRate: net.RcvPacketsRate,
			SndBytesRate:   net.SendRate,
			SndPacketsRate: net.SendPacketsRate,
			ErrIn:          net.ErrIn,
			ErrOut:         net.ErrOut,
			DropIn:         net.DropIn,
			DropOut:        net.DropOut,
		}
		rates := hm.rates.NetRates(host, net.Name, sample)
		row := &models.ServerNetDetail{
			ServerName: host,
			NetName:    net.Name,
			Timestamp:  now,

			ErrIn:   net.ErrIn,
			ErrOut:  net.ErrOut,
			DropIn:  net.DropIn,
			DropOut: net.DropOut,

			RcvBytesRate:   net.RcvRate,
			RcvPacketsRate: net.RcvPacketsRate,
			SndBytesRate:   net.SendRate,
			SndPacketsRate: net.SendPacketsRate,

			RcvBytesRateRate:   rates.RcvBytesRate,
			RcvPacketsRateRate: rates.RcvPacketsRate,
			SndBytesRateRate:   rates.SndBytesRate,
			SndPacketsRateRate: rates.SndPacketsRate,
			ErrInRate:          rates.ErrIn,
			ErrOutRate:         rates.ErrOut,
			DropInRate:         rates.DropIn,
			DropOutRate:        rates.DropOut,
		}
		if err := hm.writer.InsertNetDetail(row); err != nil {
			slog.Error("Failed to persist net detail row", "server", host, "net", net.Name, "error", err)
		}
	}

	for _, sirq := range info.SoftIrq {
		sample := rate.SoftIrqSample{
			Hi:      float64(sirq.Hi),
			Timer:   float64(sirq.Timer),
			NetTx:   float64(sirq.NetTx),
			NetRx:   float64(sirq.NetRx),
			Block:   float64(sirq.Block),
			IrqPoll: float64(sirq.IrqPoll),
			Tasklet: float64(sirq.Tasklet),
			Sched:   float64(sirq.Sched),
			HRTimer: float64(sirq.HRTimer),
			RCU:     float64(sirq.RCU),
		}
		rates := hm.rates.SoftIrqRates(host, sirq.CPU, sample)
		row := &models.ServerSoftIrqDetail{
			ServerName: host,
			CPUName:    sirq.CPU,
			Timestamp:  now,

			Hi:      sirq.Hi,
			Timer:   sirq.Timer,
			NetTx:   sirq.NetTx,
			NetRx:   sirq.NetRx,
			Block:   sirq.Block,
			IrqPoll: sirq.IrqPoll,
			Tasklet: sirq.Tasklet,
			Sched:   sirq.Sched,
			HRTimer: sirq.HRTimer,
			RCU:     sirq.RCU,

			HiRate:      rates.Hi,
			TimerRate:   rates.Timer,
			NetTxRate:   rates.NetTx,
			NetRxRate:   rates.NetRx,
			BlockRate:   rates.Block,
			IrqPollRate: rates.IrqPoll,
			TaskletRate: rates.Tasklet,
			SchedRate:   rates.Sched,
			HRTimerRate: rates.HRTimer,
			RCURate:     rates.RCU,
		}
		if err := hm.writer.InsertSoftIrqDetail(row); err != nil {
			slog.Error("Failed to persist softirq detail row", "server", host, "cpu", sirq.CPU, "error", err)
		}
	}

	if info.MemInfo != nil {
		mem := info.MemInfo
		sample := rate.MemSample{
			Total:        mem.Total,
			Free:         mem.Free,
			Avail:        mem.Avail,
			Buffers:      mem.Buffers,
			Cached:       mem.Cached,
			SwapCached:   mem.SwapCached,
			Active:       mem.Active,
			Inactive:     mem.Inactive,
			ActiveAnon:   mem.ActiveAnon,
			InactiveAnon: mem.InactiveAnon,
			ActiveFile:   mem.ActiveFile,
			InactiveFile: mem.InactiveFile,
			Dirty:        mem.Dirty,
			Writeback:    mem.Writeback,
			AnonPages:    mem.AnonPages,
			Mapped:       mem.Mapped,
			KReclaimable: mem.KReclaimable,
			SReclaimable: mem.SReclaimable,
			SUnreclaim:   mem.SUnreclaim,
		}
		rates := hm.rates.MemRates(host, sample)
		row := &models.ServerMemDetail{
			ServerName: host,
			Timestamp:  now,

			Total:        mem.Total,
			Free:         mem.Free,
			Avail:        mem.Avail,
			Buffers:      mem.Buffers,
			Cached:       mem.Cached,
			SwapCached:   mem.SwapCached,
			Active:       mem.Active,
			Inactive:     mem.Inactive,
			ActiveAnon:   mem.ActiveAnon,
			InactiveAnon: mem.InactiveAnon,
			ActiveFile:   mem.ActiveFile,
			InactiveFile: mem.InactiveFile,
			Dirty:        mem.Dirty,
			Writeback:    mem.Writeback,
			AnonPages:    mem.AnonPages,
			Mapped:       mem.Mapped,
			KReclaimable: mem.KReclaimable,
			SReclaimable: mem.SReclaimable,
			SUnreclaim:   mem.SUnreclaim,

			TotalRate:        rates.Total,
			FreeRate:         rates.Free,
			AvailRate:        rates.Avail,
			BuffersRate:      rates.Buffers,
			CachedRate:       rates.Cached,
			SwapCachedRate:   rates.SwapCached,
			ActiveRate:       rates.Active,
			InactiveRate:     rates.Inactive,
			ActiveAnonRate:   rates.ActiveAnon,
			InactiveAnonRate: rates.InactiveAnon,
			ActiveFileRate:   rates.ActiveFile,
			InactiveFileRate: rates.InactiveFile,
			DirtyRate:        rates.Dirty,
			WritebackRate:    rates.Writeback,
			AnonPagesRate:    rates.AnonPages,
			MappedRate:       rates.Mapped,
			KReclaimableRate: rates.KReclaimable,
			SReclaimableRate: rates.SReclaimable,
			SUnreclaimRate:   rates.SUnreclaim,
		}
		if err := hm.writer.InsertMemDetail(row); err != nil {
			slog.Error("Failed to persist mem detail row", "server", host, "error", err)
		}
	}

	for _, disk := range info.DiskInfo {
		sample := rate.DiskSample{
			ReadBytesPerSec:   disk.ReadBytesPerSec,
			WriteBytesPerSec:  disk.WriteBytesPerSec,
			ReadIOPS:          disk.ReadIOPS,
			WriteIOPS:         disk.WriteIOPS,
			AvgReadLatencyMs:  disk.AvgReadLatencyMs,
			AvgWriteLatencyMs: disk.AvgWriteLatencyMs,
			UtilPercent:       disk.UtilPercent,
		}
		rates := hm.rates.DiskRates(host, disk.Name, sample)
		row := &models.ServerDiskDetail{
			ServerName: host,
			DiskName:   disk.Name,
			Timestamp:  now,

			Reads:            disk.Reads,
			Writes:           disk.Writes,
			SectorsRead:      disk.SectorsRead,
			SectorsWritten:   disk.SectorsWritten,
			ReadTimeMs:       disk.ReadTimeMs,
			WriteTimeMs:      disk.WriteTimeMs,
			IOInProgress:     disk.IOInProgress,
			IOTimeMs:         disk.IOTimeMs,
			WeightedIOTimeMs: disk.WeightedIOTimeMs,

			ReadBytesPerSec:   disk.ReadBytesPerSec,
			WriteBytesPerSec:  disk.WriteBytesPerSec,
			ReadIOPS:          disk.ReadIOPS,
			WriteIOPS:         disk.WriteIOPS,
			AvgReadLatencyMs:  disk.AvgReadLatencyMs,
			AvgWriteLatencyMs: disk.AvgWriteLatencyMs,
			UtilPercent:       disk.UtilPercent,

			ReadBytesPerSecRate:   rates.ReadBytesPerSec,
			WriteBytesPerSecRate:  rates.WriteBytesPerSec,
			ReadIOPSRate:          rates.ReadIOPS,
			WriteIOPSRate:         rates.WriteIOPS,
			AvgReadLatencyMsRate:  rates.AvgReadLatencyMs,
			AvgWriteLatencyMsRate: rates.AvgWriteLatencyMs,
			UtilPercentRate:       rates.UtilPercent,
		}
		if err := hm.writer.InsertDiskDetail(row); err != nil {
			slog.Error("Failed to persist disk detail row", "server", host, "disk", disk.Name, "error", err)
		}
	}

	// Index 0 is the aggregate line; only real cores get a detail row.
	for i := 1; i < len(info.CPUStat); i++ {
		cpu := info.CPUStat[i]
		row := &models.ServerCPUCoreDetail{
			ServerName: host,
			CPUName:    cpu.CPUName,
			Timestamp:  now,

			CPUPercent:     cpu.CPUPercent,
			UsrPercent:     cpu.UsrPercent,
			SystemPercent:  cpu.SystemPercent,
			NicePercent:    cpu.NicePercent,
			IdlePercent:    cpu.IdlePercent,
			IOWaitPercent:  cpu.IOWaitPercent,
			IrqPercent:     cpu.IrqPercent,
			SoftIrqPercent: cpu.SoftIrqPercent,
		}
		if err := hm.writer.InsertCPUCoreDetail(row); err != nil {
			slog.Error("Failed to persist cpu core detail row", "server", host, "cpu", cpu.CPUName, "error", err)
		}
	}
}

// GetAllHostScores returns a snapshot copy of the live scoreboard.
func (hm *HostManager) GetAllHostScores() map[string]HostScore {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	out := make(map[string]HostScore, len(hm.scores))
	for host, entry := range hm.scores {
		out[host] = entry
	}
	return out
}

// GetBestHost returns the host with the highest current score, "" when the
// scoreboard is empty. Ties break by map iteration order.
func (hm *HostManager) GetBestHost() string {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	best := ""
	bestScore := -1.0
	for host, entry := range hm.scores {
		if entry.Score > bestScore {
			bestScore = entry.Score
			best = host
		}
	}
	return best
}
