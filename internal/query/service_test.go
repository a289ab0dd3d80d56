package query

import (
	"errors"
	"testing"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/model"
	"github.com/fleetwatch/fleetwatch/internal/models"
	"github.com/fleetwatch/fleetwatch/internal/store"
)

type fakeReader struct {
	perfRows   []models.ServerPerformance
	perfTotal  int64
	latestRows []models.ServerPerformance
	netRows    []models.ServerNetDetail
	err        error

	gotPage     int
	gotPageSize int
	gotTh       model.AnomalyThresholds
}

func (r *fakeReader) QueryPerformance(_ string, _, _ time.Time, page, pageSize int) ([]models.ServerPerformance, int64, error) {
	r.gotPage, r.gotPageSize = page, pageSize
	return r.perfRows, r.perfTotal, r.err
}

func (r *fakeReader) QueryTrend(_ string, _, _ time.Time, _ int) ([]models.ServerPerformance, error) {
	return r.perfRows, r.err
}

func (r *fakeReader) QueryAnomalySource(_ string, _, _ time.Time, th model.AnomalyThresholds, page, pageSize int) ([]models.ServerPerformance, int64, error) {
	r.gotTh = th
	r.gotPage, r.gotPageSize = page, pageSize
	return r.perfRows, r.perfTotal, r.err
}

func (r *fakeReader) QueryLatestSource() ([]models.ServerPerformance, error) {
	return r.latestRows, r.err
}

func (r *fakeReader) QueryNetDetail(_ string, _, _ time.Time, page, pageSize int) ([]models.ServerNetDetail, int64, error) {
	r.gotPage, r.gotPageSize = page, pageSize
	return r.netRows, int64(len(r.netRows)), r.err
}

func (r *fakeReader) QueryDiskDetail(_ string, _, _ time.Time, page, pageSize int) ([]models.ServerDiskDetail, int64, error) {
	return nil, 0, r.err
}

func (r *fakeReader) QueryMemDetail(_ string, _, _ time.Time, page, pageSize int) ([]models.ServerMemDetail, int64, error) {
	return nil, 0, r.err
}

func (r *fakeReader) QuerySoftIrqDetail(_ string, _, _ time.Time, page, pageSize int) ([]models.ServerSoftIrqDetail, int64, error) {
	return nil, 0, r.err
}

func (r *fakeReader) QueryCPUCoreDetail(_ string, _, _ time.Time, page, pageSize int) ([]models.ServerCPUCoreDetail, int64, error) {
	return nil, 0, r.err
}

func validRange() model.TimeRange {
	return model.TimeRange{StartTime: 1000, EndTime: 2000}
}

func TestInvalidTimeRangeRejected(t *testing.T) {
	s := NewService(&fakeReader{})
	_, err := s.QueryPerformance(&model.QueryPerformanceRequest{
		TimeRange: model.TimeRange{StartTime: 2000, EndTime: 1000},
	})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("err = %v, want ErrInvalidTimeRange", err)
	}
}

func TestUninitializedStorePropagates(t *testing.T) {
	s := NewService(&fakeReader{err: store.ErrNotInitialized})
	_, err := s.QueryPerformance(&model.QueryPerformanceRequest{TimeRange: validRange()})
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestStoreErrorFailsSoft(t *testing.T) {
	s := NewService(&fakeReader{err: errors.New("connection reset")})
	resp, err := s.QueryPerformance(&model.QueryPerformanceRequest{TimeRange: validRange()})
	if err != nil {
		t.Fatalf("store error surfaced: %v", err)
	}
	if len(resp.Records) != 0 || resp.TotalCount != 0 {
		t.Errorf("expected empty fail-soft response, got %+v", resp)
	}
}

func TestPaginationCoercedToDefaults(t *testing.T) {
	r := &fakeReader{}
	s := NewService(r)
	resp, err := s.QueryPerformance(&model.QueryPerformanceRequest{
		TimeRange:  validRange(),
		Pagination: model.Pagination{Page: 0, PageSize: 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.gotPage != 1 || r.gotPageSize != 100 {
		t.Errorf("store saw page=%d size=%d, want 1/100", r.gotPage, r.gotPageSize)
	}
	if resp.Page != 1 || resp.PageSize != 100 {
		t.Errorf("response echoed page=%d size=%d, want 1/100", resp.Page, resp.PageSize)
	}
}

func TestRescoreOnProfile(t *testing.T) {
	row := models.ServerPerformance{
		ServerName: "h", Timestamp: time.Unix(1500, 0),
		CPUPercent: 90, MemUsedPercent: 10, LoadAvg1: 0.5, DiskUtilPercent: 5,
		Score: 42,
	}
	r := &fakeReader{perfRows: []models.ServerPerformance{row}, perfTotal: 1}
	s := NewService(r)

	stored, err := s.QueryPerformance(&model.QueryPerformanceRequest{TimeRange: validRange()})
	if err != nil {
		t.Fatal(err)
	}
	if stored.Records[0].Score != 42 {
		t.Errorf("without profile score = %v, want stored 42", stored.Records[0].Score)
	}
	if stored.ScoreNote != "" {
		t.Errorf("unexpected score note on stored scores: %q", stored.ScoreNote)
	}

	rescored, err := s.QueryPerformance(&model.QueryPerformanceRequest{
		TimeRange: validRange(), Profile: "MEMORY_SENSITIVE",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rescored.Records[0].Score == 42 {
		t.Error("profile supplied but score unchanged")
	}
	if rescored.ScoreNote == "" {
		t.Error("rescored response missing score note")
	}
}

func TestAnomalyThresholdDefaults(t *testing.T) {
	r := &fakeReader{}
	s := NewService(r)
	_, err := s.QueryAnomaly(&model.QueryAnomalyRequest{TimeRange: validRange()})
	if err != nil {
		t.Fatal(err)
	}
	want := model.AnomalyThresholds{CPUThreshold: 80, MemThreshold: 90, DiskThreshold: 85, ChangeRateThreshold: 0.5}
	if r.gotTh != want {
		t.Errorf("store saw thresholds %+v, want %+v", r.gotTh, want)
	}
}

func TestAnomalyExpansion(t *testing.T) {
	// Second push of the end-to-end scenario: cpu jumped 50 -> 100, so the
	// row carries cpu=100 and cpu_percent_rate=1.0.
	row := models.ServerPerformance{
		ServerName: "h_1.2.3.4", Timestamp: time.Unix(1500, 0),
		CPUPercent: 100, MemUsedPercent: 40, DiskUtilPercent: 10,
		CPUPercentRate: 1.0, MemUsedPercentRate: 0,
	}
	r := &fakeReader{perfRows: []models.ServerPerformance{row}, perfTotal: 1}
	s := NewService(r)

	resp, err := s.QueryAnomaly(&model.QueryAnomalyRequest{TimeRange: validRange()})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalCount != 1 {
		t.Errorf("total_count = %d, want 1 (source rows, not records)", resp.TotalCount)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("records = %d, want 2 (CPU_HIGH + RATE_SPIKE), got %+v", len(resp.Records), resp.Records)
	}

	cpuHigh := resp.Records[0]
	if cpuHigh.AnomalyType != model.AnomalyCPUHigh || cpuHigh.Severity != model.SeverityCritical ||
		cpuHigh.Value != 100 || cpuHigh.MetricName != "cpu_percent" {
		t.Errorf("unexpected CPU_HIGH record: %+v", cpuHigh)
	}
	spike := resp.Records[1]
	if spike.AnomalyType != model.AnomalyRateSpike || spike.MetricName != "cpu_percent_rate" {
		t.Errorf("unexpected RATE_SPIKE record: %+v", spike)
	}
	if spike.Severity != model.SeverityWarning {
		// |1.0| is not > 1.0, so this spike is WARNING, not CRITICAL.
		t.Errorf("RATE_SPIKE severity = %q, want WARNING", spike.Severity)
	}
}

func TestAnomalySeverities(t *testing.T) {
	th := model.AnomalyThresholds{CPUThreshold: 80, MemThreshold: 90, DiskThreshold: 85, ChangeRateThreshold: 0.5}

	warn := ExpandAnomalies(models.ServerPerformance{CPUPercent: 90}, th)
	if len(warn) != 1 || warn[0].Severity != model.SeverityWarning {
		t.Errorf("cpu 90 -> %+v, want one WARNING", warn)
	}

	crit := ExpandAnomalies(models.ServerPerformance{CPUPercent: 96, MemUsedPercentRate: -1.5}, th)
	if len(crit) != 2 {
		t.Fatalf("records = %d, want 2", len(crit))
	}
	if crit[0].Severity != model.SeverityCritical {
		t.Errorf("cpu 96 severity = %q, want CRITICAL", crit[0].Severity)
	}
	if crit[1].Severity != model.SeverityCritical {
		t.Errorf("|rate| 1.5 severity = %q, want CRITICAL", crit[1].Severity)
	}
}

func latestRows(now time.Time) []models.ServerPerformance {
	// Stored scores 70/85/60 map onto distinct aggregate projections; the
	// rescore preserves their relative order under BALANCED.
	return []models.ServerPerformance{
		{ServerName: "mid", Timestamp: now, CPUPercent: 40, MemUsedPercent: 40, LoadAvg1: 1, DiskUtilPercent: 20},
		{ServerName: "best", Timestamp: now, CPUPercent: 10, MemUsedPercent: 15, LoadAvg1: 0.2, DiskUtilPercent: 5},
		{ServerName: "worst", Timestamp: now.Add(-2 * time.Minute), CPUPercent: 80, MemUsedPercent: 70, LoadAvg1: 4, DiskUtilPercent: 60},
	}
}

func TestScoreRankOrderingAndPaging(t *testing.T) {
	now := time.Now()
	s := NewService(&fakeReader{latestRows: latestRows(now)})

	desc, err := s.QueryScoreRank(&model.QueryScoreRankRequest{
		Pagination: model.Pagination{Page: 1, PageSize: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if desc.TotalCount != 3 {
		t.Errorf("total_count = %d, want 3", desc.TotalCount)
	}
	if len(desc.Records) != 2 || desc.Records[0].ServerName != "best" || desc.Records[1].ServerName != "mid" {
		t.Errorf("DESC page 1 = %+v, want [best mid]", desc.Records)
	}

	asc, err := s.QueryScoreRank(&model.QueryScoreRankRequest{
		Order:      model.SortAsc,
		Pagination: model.Pagination{Page: 1, PageSize: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(asc.Records) != 2 || asc.Records[0].ServerName != "worst" || asc.Records[1].ServerName != "mid" {
		t.Errorf("ASC page 1 = %+v, want [worst mid]", asc.Records)
	}

	past, err := s.QueryScoreRank(&model.QueryScoreRankRequest{
		Pagination: model.Pagination{Page: 5, PageSize: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(past.Records) != 0 {
		t.Errorf("page past the end returned %d records", len(past.Records))
	}
}

func TestLatestScoreClusterStats(t *testing.T) {
	now := time.Now()
	s := NewService(&fakeReader{latestRows: latestRows(now)})
	s.now = func() time.Time { return now }

	resp, err := s.QueryLatestScore(&model.QueryLatestScoreRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Stats.TotalServers != 3 {
		t.Errorf("total_servers = %d, want 3", resp.Stats.TotalServers)
	}
	if resp.Stats.OnlineServers != 2 || resp.Stats.OfflineServers != 1 {
		t.Errorf("online/offline = %d/%d, want 2/1", resp.Stats.OnlineServers, resp.Stats.OfflineServers)
	}
	if resp.Stats.BestServer != "best" || resp.Stats.WorstServer != "worst" {
		t.Errorf("best/worst = %q/%q", resp.Stats.BestServer, resp.Stats.WorstServer)
	}
	if resp.Records[0].ServerName != "best" {
		t.Errorf("records not sorted DESC: first = %q", resp.Records[0].ServerName)
	}
	for _, rec := range resp.Records {
		if rec.ServerName == "worst" && rec.Status != model.StatusOffline {
			t.Errorf("stale host status = %q, want OFFLINE", rec.Status)
		}
		if rec.ServerName == "best" && rec.Status != model.StatusOnline {
			t.Errorf("fresh host status = %q, want ONLINE", rec.Status)
		}
	}
}

func TestLatestScoreEmptyStore(t *testing.T) {
	s := NewService(&fakeReader{})
	resp, err := s.QueryLatestScore(&model.QueryLatestScoreRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Records) != 0 {
		t.Errorf("records = %d, want 0", len(resp.Records))
	}
	if resp.Stats != (model.ClusterStats{}) {
		t.Errorf("stats = %+v, want zeroed", resp.Stats)
	}
}

func TestNetDetailPassthrough(t *testing.T) {
	r := &fakeReader{netRows: []models.ServerNetDetail{
		{ServerName: "h", NetName: "eth0", Timestamp: time.Unix(1500, 0), RcvBytesRate: 123, ErrIn: 7},
	}}
	s := NewService(r)
	resp, err := s.QueryNetDetail(&model.QueryDetailRequest{ServerName: "h", TimeRange: validRange()})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(resp.Records))
	}
	rec := resp.Records[0]
	if rec.NetName != "eth0" || rec.RcvBytesRate != 123 || rec.ErrIn != 7 || rec.Timestamp != 1500 {
		t.Errorf("unexpected record %+v", rec)
	}
}
