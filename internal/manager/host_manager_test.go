package manager

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/model"
	"github.com/fleetwatch/fleetwatch/internal/models"
	"github.com/fleetwatch/fleetwatch/internal/rate"
)

type fakeWriter struct {
	mu       sync.Mutex
	perf     []*models.ServerPerformance
	net      []*models.ServerNetDetail
	softirq  []*models.ServerSoftIrqDetail
	mem      []*models.ServerMemDetail
	disk     []*models.ServerDiskDetail
	cpuCores []*models.ServerCPUCoreDetail
	fail     bool
}

func (w *fakeWriter) InsertPerformance(row *models.ServerPerformance) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("write failed")
	}
	w.perf = append(w.perf, row)
	return nil
}

func (w *fakeWriter) InsertNetDetail(row *models.ServerNetDetail) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.net = append(w.net, row)
	return nil
}

func (w *fakeWriter) InsertSoftIrqDetail(row *models.ServerSoftIrqDetail) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.softirq = append(w.softirq, row)
	return nil
}

func (w *fakeWriter) InsertMemDetail(row *models.ServerMemDetail) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mem = append(w.mem, row)
	return nil
}

func (w *fakeWriter) InsertDiskDetail(row *models.ServerDiskDetail) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disk = append(w.disk, row)
	return nil
}

func (w *fakeWriter) InsertCPUCoreDetail(row *models.ServerCPUCoreDetail) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cpuCores = append(w.cpuCores, row)
	return nil
}

func snapshot() *model.MonitorInfo {
	return &model.MonitorInfo{
		HostInfo: &model.HostInfo{Hostname: "h", IPAddress: "1.2.3.4"},
		CPUStat: []model.CPUStat{
			{CPUName: "cpu", CPUPercent: 50, UsrPercent: 30, SystemPercent: 15},
			{CPUName: "cpu0", CPUPercent: 48},
			{CPUName: "cpu1", CPUPercent: 52},
			{CPUName: "cpu2", CPUPercent: 49},
			{CPUName: "cpu3", CPUPercent: 51},
		},
		CPULoad: &model.CPULoad{LoadAvg1: 2.0, LoadAvg3: 1.5, LoadAvg15: 1.0},
		MemInfo: &model.MemInfo{Total: 16000, Free: 6000, Avail: 9000, UsedPercent: 40},
		NetInfo: []model.NetInfo{
			{Name: "eth0", RcvRate: 1e6, SendRate: 1e6, RcvPacketsRate: 800, SendPacketsRate: 700},
			{Name: "eth1", RcvRate: 100, SendRate: 100},
		},
		DiskInfo: []model.DiskInfo{
			{Name: "sda", UtilPercent: 10, ReadIOPS: 120, WriteIOPS: 80},
		},
		SoftIrq: []model.SoftIrq{
			{CPU: "cpu0", Timer: 1000, Sched: 500},
			{CPU: "cpu1", Timer: 1100, Sched: 450},
		},
	}
}

func newTestManager(w SampleWriter) *HostManager {
	return NewHostManager(w, rate.New(), DefaultLivenessTTL)
}

func TestIngestPopulatesScoreboard(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)

	before := time.Now()
	hm.OnDataReceived(snapshot())

	scores := hm.GetAllHostScores()
	entry, ok := scores["h_1.2.3.4"]
	if !ok {
		t.Fatalf("scoreboard missing entry, have %v", scores)
	}
	if entry.Score < 0 || entry.Score > 100 {
		t.Errorf("score = %v, out of [0, 100]", entry.Score)
	}
	if entry.Timestamp.Before(before) {
		t.Errorf("entry timestamp %v predates ingest", entry.Timestamp)
	}
}

func TestIngestFanOutCounts(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)
	hm.OnDataReceived(snapshot())

	if len(w.perf) != 1 {
		t.Errorf("performance rows = %d, want 1", len(w.perf))
	}
	if len(w.net) != 2 {
		t.Errorf("net detail rows = %d, want 2", len(w.net))
	}
	if len(w.softirq) != 2 {
		t.Errorf("softirq detail rows = %d, want 2", len(w.softirq))
	}
	if len(w.mem) != 1 {
		t.Errorf("mem detail rows = %d, want 1", len(w.mem))
	}
	if len(w.disk) != 1 {
		t.Errorf("disk detail rows = %d, want 1", len(w.disk))
	}
	if len(w.cpuCores) != 4 {
		t.Errorf("cpu core detail rows = %d, want 4", len(w.cpuCores))
	}
}

func TestFirstIngestRatesAreZero(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)
	hm.OnDataReceived(snapshot())

	perf := w.perf[0]
	if perf.CPUPercentRate != 0 || perf.MemUsedPercentRate != 0 || perf.SendRateRate != 0 {
		t.Errorf("first ingest carried non-zero rates: %+v", perf)
	}
}

func TestSecondIngestComputesRates(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)
	hm.OnDataReceived(snapshot())

	second := snapshot()
	second.CPUStat[0].CPUPercent = 100
	hm.OnDataReceived(second)

	perf := w.perf[1]
	if perf.CPUPercentRate != 1.0 {
		t.Errorf("cpu_percent_rate = %v, want 1.0", perf.CPUPercentRate)
	}
	if perf.MemUsedPercentRate != 0 {
		t.Errorf("mem_used_percent_rate = %v, want 0", perf.MemUsedPercentRate)
	}
}

func TestIdenticalIngestsRateZero(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)
	hm.OnDataReceived(snapshot())
	hm.OnDataReceived(snapshot())

	perf := w.perf[1]
	if perf.CPUPercentRate != 0 || perf.LoadAvg1Rate != 0 || perf.RcvRateRate != 0 ||
		perf.DiskUtilPercentRate != 0 {
		t.Errorf("identical snapshots produced non-zero rates: %+v", perf)
	}
	net := w.net[2] // eth0 of the second ingest
	if net.RcvBytesRateRate != 0 || net.SndPacketsRateRate != 0 {
		t.Errorf("identical net samples produced non-zero rates: %+v", net)
	}
}

func TestEmptyIdentityDropped(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)
	hm.OnDataReceived(&model.MonitorInfo{})

	if len(hm.GetAllHostScores()) != 0 {
		t.Error("scoreboard mutated by identity-less snapshot")
	}
	if len(w.perf) != 0 {
		t.Error("identity-less snapshot was persisted")
	}
}

func TestWriteFailureDoesNotAbortFanOut(t *testing.T) {
	w := &fakeWriter{fail: true}
	hm := newTestManager(w)
	hm.OnDataReceived(snapshot())

	// The performance insert failed, but the detail fan-out and the
	// scoreboard update still went through.
	if len(w.net) != 2 || len(w.mem) != 1 {
		t.Errorf("fan-out aborted after failed insert: net=%d mem=%d", len(w.net), len(w.mem))
	}
	if len(hm.GetAllHostScores()) != 1 {
		t.Error("scoreboard not updated after failed insert")
	}
}

func TestSweepEvictsStaleEntries(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)
	hm.OnDataReceived(snapshot())

	hm.Sweep(time.Now())
	if len(hm.GetAllHostScores()) != 1 {
		t.Fatal("fresh entry swept")
	}

	hm.Sweep(time.Now().Add(61 * time.Second))
	if len(hm.GetAllHostScores()) != 0 {
		t.Error("stale entry survived sweep")
	}
}

func TestGetBestHost(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)

	if best := hm.GetBestHost(); best != "" {
		t.Errorf("best host on empty scoreboard = %q, want \"\"", best)
	}

	busy := snapshot()
	busy.HostInfo = &model.HostInfo{Hostname: "busy"}
	busy.CPUStat[0].CPUPercent = 95
	busy.MemInfo.UsedPercent = 90
	hm.OnDataReceived(busy)

	idle := snapshot()
	idle.HostInfo = &model.HostInfo{Hostname: "idle"}
	idle.CPUStat[0].CPUPercent = 5
	idle.MemInfo.UsedPercent = 10
	hm.OnDataReceived(idle)

	if best := hm.GetBestHost(); best != "idle" {
		t.Errorf("best host = %q, want idle", best)
	}
}

func TestScoreboardCopyIsDetached(t *testing.T) {
	w := &fakeWriter{}
	hm := newTestManager(w)
	hm.OnDataReceived(snapshot())

	scores := hm.GetAllHostScores()
	delete(scores, "h_1.2.3.4")
	if len(hm.GetAllHostScores()) != 1 {
		t.Error("mutating the returned map affected the scoreboard")
	}
}
