package query

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/model"
	"github.com/fleetwatch/fleetwatch/internal/models"
	"github.com/fleetwatch/fleetwatch/internal/scoring"
	"github.com/fleetwatch/fleetwatch/internal/store"
)

// ErrInvalidTimeRange is surfaced to the caller when start_time > end_time.
var ErrInvalidTimeRange = errors.New("invalid time range: start_time > end_time")

// Default anomaly thresholds, applied field-wise when a request carries zero
// or negative values.
const (
	DefaultCPUThreshold  = 80.0
	DefaultMemThreshold  = 90.0
	DefaultDiskThreshold = 85.0
	DefaultRateThreshold = 0.5
)

// criticalAbsolute and criticalRate split WARNING from CRITICAL severities.
const (
	criticalAbsolute = 95.0
	criticalRate     = 1.0
)

// livenessTTL drives the ONLINE/OFFLINE status on query responses. It is fixed
// at 60 s, equal to the host manager's default TTL; a TTL set through
// LIVENESS_TTL_SECONDS reaches the sweeper only, not these statuses.
const livenessTTL = 60 * time.Second

// SampleReader is the read half of the sample store the query service
// translates transport requests into.
type SampleReader interface {
	QueryPerformance(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerPerformance, int64, error)
	QueryTrend(serverName string, start, end time.Time, intervalSeconds int) ([]models.ServerPerformance, error)
	QueryAnomalySource(serverName string, start, end time.Time, th model.AnomalyThresholds, page, pageSize int) ([]models.ServerPerformance, int64, error)
	QueryLatestSource() ([]models.ServerPerformance, error)
	QueryNetDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerNetDetail, int64, error)
	QueryDiskDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerDiskDetail, int64, error)
	QueryMemDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerMemDetail, int64, error)
	QuerySoftIrqDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerSoftIrqDetail, int64, error)
	QueryCPUCoreDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerCPUCoreDetail, int64, error)
}

// Service is the read path: validation, store access, query-time rescoring,
// anomaly synthesis, ranking and cluster statistics.
type Service struct {
	reader SampleReader
	// now is swappable for liveness tests.
	now func() time.Time
}

func NewService(reader SampleReader) *Service {
	return &Service{reader: reader, now: time.Now}
}

func timeRangeOf(tr model.TimeRange) (time.Time, time.Time, error) {
	start := time.Unix(tr.StartTime, 0)
	end := time.Unix(tr.EndTime, 0)
	if start.After(end) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return start, end, nil
}

func normalizePaging(p model.Pagination) (int, int) {
	page, pageSize := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	return page, pageSize
}

// failSoft logs a store error and reports whether the caller should return an
// empty result instead of failing. Uninitialized-store errors propagate so the
// transport can answer UNAVAILABLE.
func failSoft(op string, err error) (error, bool) {
	if errors.Is(err, store.ErrNotInitialized) {
		return err, false
	}
	slog.Error("Store query failed", "op", op, "error", err)
	return nil, true
}

func perfRecord(row models.ServerPerformance) model.PerformanceRecord {
	return model.PerformanceRecord{
		ServerName: row.ServerName,
		Timestamp:  row.Timestamp.Unix(),

		CPUPercent:     row.CPUPercent,
		UsrPercent:     row.UsrPercent,
		SystemPercent:  row.SystemPercent,
		NicePercent:    row.NicePercent,
		IdlePercent:    row.IdlePercent,
		IOWaitPercent:  row.IOWaitPercent,
		IrqPercent:     row.IrqPercent,
		SoftIrqPercent: row.SoftIrqPercent,

		LoadAvg1:  row.LoadAvg1,
		LoadAvg3:  row.LoadAvg3,
		LoadAvg15: row.LoadAvg15,

		MemUsedPercent: row.MemUsedPercent,
		MemTotal:       row.Total,
		MemFree:        row.Free,
		MemAvail:       row.Avail,

		DiskUtilPercent: row.DiskUtilPercent,
		SendRate:        row.SendRate,
		RcvRate:         row.RcvRate,
		Score:           row.Score,

		CPUPercentRate:      row.CPUPercentRate,
		MemUsedPercentRate:  row.MemUsedPercentRate,
		DiskUtilPercentRate: row.DiskUtilPercentRate,
		LoadAvg1Rate:        row.LoadAvg1Rate,
		SendRateRate:        row.SendRateRate,
		RcvRateRate:         row.RcvRateRate,
	}
}

// QueryPerformance returns paginated history for one host, newest first.
// Supplying a profile recomputes every score from the stored aggregates.
func (s *Service) QueryPerformance(req *model.QueryPerformanceRequest) (*model.QueryPerformanceResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(req.Pagination)

	rows, total, err := s.reader.QueryPerformance(req.ServerName, start, end, page, pageSize)
	if err != nil {
		if err, soft := failSoft("performance", err); !soft {
			return nil, err
		}
		rows, total = nil, 0
	}

	resp := &model.QueryPerformanceResponse{
		Records:    make([]model.PerformanceRecord, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}

	rescore := req.Profile != ""
	profile, _ := scoring.ParseProfile(req.Profile)
	for _, row := range rows {
		rec := perfRecord(row)
		if rescore {
			rec.Score = scoring.ScoreAggregates(rec.CPUPercent, rec.MemUsedPercent,
				rec.LoadAvg1, rec.DiskUtilPercent, rec.SendRate, rec.RcvRate, profile)
		}
		resp.Records = append(resp.Records, rec)
	}
	if rescore {
		resp.ScoreNote = scoring.ScoreNote
	}
	return resp, nil
}

// QueryTrend delegates bucket aggregation to the store and rescores each
// returned bucket when a profile is supplied.
func (s *Service) QueryTrend(req *model.QueryTrendRequest) (*model.QueryTrendResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}

	rows, err := s.reader.QueryTrend(req.ServerName, start, end, req.IntervalSeconds)
	if err != nil {
		if err, soft := failSoft("trend", err); !soft {
			return nil, err
		}
		rows = nil
	}

	resp := &model.QueryTrendResponse{
		Records: make([]model.PerformanceRecord, 0, len(rows)),
	}
	rescore := req.Profile != ""
	profile, _ := scoring.ParseProfile(req.Profile)
	for _, row := range rows {
		rec := perfRecord(row)
		if rescore {
			rec.Score = scoring.ScoreAggregates(rec.CPUPercent, rec.MemUsedPercent,
				rec.LoadAvg1, rec.DiskUtilPercent, rec.SendRate, rec.RcvRate, profile)
		}
		resp.Records = append(resp.Records, rec)
	}
	if rescore {
		resp.ScoreNote = scoring.ScoreNote
	}
	return resp, nil
}

// NormalizeThresholds replaces zero-or-negative members with the defaults.
func NormalizeThresholds(th model.AnomalyThresholds) model.AnomalyThresholds {
	if th.CPUThreshold <= 0 {
		th.CPUThreshold = DefaultCPUThreshold
	}
	if th.MemThreshold <= 0 {
		th.MemThreshold = DefaultMemThreshold
	}
	if th.DiskThreshold <= 0 {
		th.DiskThreshold = DefaultDiskThreshold
	}
	if th.ChangeRateThreshold <= 0 {
		th.ChangeRateThreshold = DefaultRateThreshold
	}
	return th
}

func absoluteSeverity(value float64) string {
	if value > criticalAbsolute {
		return model.SeverityCritical
	}
	return model.SeverityWarning
}

func rateSeverity(value float64) string {
	if abs(value) > criticalRate {
		return model.SeverityCritical
	}
	return model.SeverityWarning
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ExpandAnomalies synthesizes one record per triggered condition on a source
// row. A row exceeding several thresholds yields several records.
func ExpandAnomalies(row models.ServerPerformance, th model.AnomalyThresholds) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	add := func(anomalyType, metric string, value, threshold, severityValue float64, rateKind bool) {
		severity := absoluteSeverity(severityValue)
		if rateKind {
			severity = rateSeverity(severityValue)
		}
		out = append(out, model.AnomalyRecord{
			ServerName:  row.ServerName,
			Timestamp:   row.Timestamp.Unix(),
			AnomalyType: anomalyType,
			Severity:    severity,
			Value:       value,
			Threshold:   threshold,
			MetricName:  metric,
		})
	}

	if row.CPUPercent > th.CPUThreshold {
		add(model.AnomalyCPUHigh, "cpu_percent", row.CPUPercent, th.CPUThreshold, row.CPUPercent, false)
	}
	if row.MemUsedPercent > th.MemThreshold {
		add(model.AnomalyMemHigh, "mem_used_percent", row.MemUsedPercent, th.MemThreshold, row.MemUsedPercent, false)
	}
	if row.DiskUtilPercent > th.DiskThreshold {
		add(model.AnomalyDiskHigh, "disk_util_percent", row.DiskUtilPercent, th.DiskThreshold, row.DiskUtilPercent, false)
	}
	if abs(row.CPUPercentRate) > th.ChangeRateThreshold {
		add(model.AnomalyRateSpike, "cpu_percent_rate", row.CPUPercentRate, th.ChangeRateThreshold, row.CPUPercentRate, true)
	}
	if abs(row.MemUsedPercentRate) > th.ChangeRateThreshold {
		add(model.AnomalyRateSpike, "mem_used_percent_rate", row.MemUsedPercentRate, th.ChangeRateThreshold, row.MemUsedPercentRate, true)
	}
	return out
}

// QueryAnomaly pages over qualifying performance rows and expands each into
// its triggered anomaly records. TotalCount counts source rows, preserving
// client paging semantics.
func (s *Service) QueryAnomaly(req *model.QueryAnomalyRequest) (*model.QueryAnomalyResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(req.Pagination)
	th := NormalizeThresholds(req.Thresholds)

	rows, total, err := s.reader.QueryAnomalySource(req.ServerName, start, end, th, page, pageSize)
	if err != nil {
		if err, soft := failSoft("anomaly", err); !soft {
			return nil, err
		}
		rows, total = nil, 0
	}

	resp := &model.QueryAnomalyResponse{
		Records:    make([]model.AnomalyRecord, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for _, row := range rows {
		resp.Records = append(resp.Records, ExpandAnomalies(row, th)...)
	}
	return resp, nil
}

func (s *Service) scoreSummaries(rows []models.ServerPerformance, profile scoring.Profile) []model.ServerScoreSummary {
	now := s.now()
	out := make([]model.ServerScoreSummary, 0, len(rows))
	for _, row := range rows {
		summary := model.ServerScoreSummary{
			ServerName:      row.ServerName,
			LastUpdate:      row.Timestamp.Unix(),
			CPUPercent:      row.CPUPercent,
			MemUsedPercent:  row.MemUsedPercent,
			DiskUtilPercent: row.DiskUtilPercent,
			LoadAvg1:        row.LoadAvg1,
		}
		summary.Score = scoring.ScoreAggregates(row.CPUPercent, row.MemUsedPercent,
			row.LoadAvg1, row.DiskUtilPercent, row.SendRate, row.RcvRate, profile)
		if now.Sub(row.Timestamp) > livenessTTL {
			summary.Status = model.StatusOffline
		} else {
			summary.Status = model.StatusOnline
		}
		out = append(out, summary)
	}
	return out
}

// QueryScoreRank rescores the latest row per host, sorts by score and
// paginates in memory. Pages past the end are empty, not an error.
func (s *Service) QueryScoreRank(req *model.QueryScoreRankRequest) (*model.QueryScoreRankResponse, error) {
	page, pageSize := normalizePaging(req.Pagination)

	rows, err := s.reader.QueryLatestSource()
	if err != nil {
		if err, soft := failSoft("score_rank", err); !soft {
			return nil, err
		}
		rows = nil
	}

	profile, _ := scoring.ParseProfile(req.Profile)
	summaries := s.scoreSummaries(rows, profile)

	asc := req.Order == model.SortAsc
	sort.SliceStable(summaries, func(i, j int) bool {
		if asc {
			return summaries[i].Score < summaries[j].Score
		}
		return summaries[i].Score > summaries[j].Score
	})

	resp := &model.QueryScoreRankResponse{
		TotalCount: int64(len(summaries)),
		Page:       page,
		PageSize:   pageSize,
		ScoreNote:  scoring.ScoreNote,
	}
	offset := (page - 1) * pageSize
	if offset < len(summaries) {
		endIdx := offset + pageSize
		if endIdx > len(summaries) {
			endIdx = len(summaries)
		}
		resp.Records = summaries[offset:endIdx]
	} else {
		resp.Records = []model.ServerScoreSummary{}
	}
	return resp, nil
}

// QueryLatestScore returns every host's rescored latest row (score
// descending) plus cluster-wide statistics. An empty store yields an empty
// list and zeroed stats.
func (s *Service) QueryLatestScore(req *model.QueryLatestScoreRequest) (*model.QueryLatestScoreResponse, error) {
	rows, err := s.reader.QueryLatestSource()
	if err != nil {
		if err, soft := failSoft("latest_score", err); !soft {
			return nil, err
		}
		rows = nil
	}

	profile, _ := scoring.ParseProfile(req.Profile)
	summaries := s.scoreSummaries(rows, profile)

	stats := model.ClusterStats{MaxScore: -1, MinScore: 101}
	var totalScore float64
	for _, summary := range summaries {
		totalScore += summary.Score
		if summary.Status == model.StatusOnline {
			stats.OnlineServers++
		} else {
			stats.OfflineServers++
		}
		if summary.Score > stats.MaxScore {
			stats.MaxScore = summary.Score
			stats.BestServer = summary.ServerName
		}
		if summary.Score < stats.MinScore {
			stats.MinScore = summary.Score
			stats.WorstServer = summary.ServerName
		}
	}
	stats.TotalServers = len(summaries)
	if len(summaries) > 0 {
		stats.AvgScore = totalScore / float64(len(summaries))
	}
	if stats.MaxScore < 0 {
		stats.MaxScore = 0
	}
	if stats.MinScore > 100 {
		stats.MinScore = 0
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Score > summaries[j].Score
	})

	return &model.QueryLatestScoreResponse{
		Records:   summaries,
		Stats:     stats,
		ScoreNote: scoring.ScoreNote,
	}, nil
}

// Per-subsystem detail queries forward straight to the store.

func (s *Service) QueryNetDetail(req *model.QueryDetailRequest) (*model.QueryNetDetailResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(req.Pagination)

	rows, total, err := s.reader.QueryNetDetail(req.ServerName, start, end, page, pageSize)
	if err != nil {
		if err, soft := failSoft("net_detail", err); !soft {
			return nil, err
		}
		rows, total = nil, 0
	}

	resp := &model.QueryNetDetailResponse{
		Records:    make([]model.NetDetailRecord, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for _, row := range rows {
		resp.Records = append(resp.Records, model.NetDetailRecord{
			ServerName:     row.ServerName,
			NetName:        row.NetName,
			Timestamp:      row.Timestamp.Unix(),
			ErrIn:          row.ErrIn,
			ErrOut:         row.ErrOut,
			DropIn:         row.DropIn,
			DropOut:        row.DropOut,
			RcvBytesRate:   row.RcvBytesRate,
			SndBytesRate:   row.SndBytesRate,
			RcvPacketsRate: row.RcvPacketsRate,
			SndPacketsRate: row.SndPacketsRate,
		})
	}
	return resp, nil
}

func (s *Service) QueryDiskDetail(req *model.QueryDetailRequest) (*model.QueryDiskDetailResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(req.Pagination)

	rows, total, err := s.reader.QueryDiskDetail(req.ServerName, start, end, page, pageSize)
	if err != nil {
		if err, soft := failSoft("disk_detail", err); !soft {
			return nil, err
		}
		rows, total = nil, 0
	}

	resp := &model.QueryDiskDetailResponse{
		Records:    make([]model.DiskDetailRecord, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for _, row := range rows {
		resp.Records = append(resp.Records, model.DiskDetailRecord{
			ServerName:        row.ServerName,
			DiskName:          row.DiskName,
			Timestamp:         row.Timestamp.Unix(),
			ReadBytesPerSec:   row.ReadBytesPerSec,
			WriteBytesPerSec:  row.WriteBytesPerSec,
			ReadIOPS:          row.ReadIOPS,
			WriteIOPS:         row.WriteIOPS,
			AvgReadLatencyMs:  row.AvgReadLatencyMs,
			AvgWriteLatencyMs: row.AvgWriteLatencyMs,
			UtilPercent:       row.UtilPercent,
		})
	}
	return resp, nil
}

func (s *Service) QueryMemDetail(req *model.QueryDetailRequest) (*model.QueryMemDetailResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(req.Pagination)

	rows, total, err := s.reader.QueryMemDetail(req.ServerName, start, end, page, pageSize)
	if err != nil {
		if err, soft := failSoft("mem_detail", err); !soft {
			return nil, err
		}
		rows, total = nil, 0
	}

	resp := &model.QueryMemDetailResponse{
		Records:    make([]model.MemDetailRecord, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for _, row := range rows {
		resp.Records = append(resp.Records, model.MemDetailRecord{
			ServerName: row.ServerName,
			Timestamp:  row.Timestamp.Unix(),
			Total:      row.Total,
			Free:       row.Free,
			Avail:      row.Avail,
			Buffers:    row.Buffers,
			Cached:     row.Cached,
			Active:     row.Active,
			Inactive:   row.Inactive,
			Dirty:      row.Dirty,
		})
	}
	return resp, nil
}

func (s *Service) QuerySoftIrqDetail(req *model.QueryDetailRequest) (*model.QuerySoftIrqDetailResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(req.Pagination)

	rows, total, err := s.reader.QuerySoftIrqDetail(req.ServerName, start, end, page, pageSize)
	if err != nil {
		if err, soft := failSoft("softirq_detail", err); !soft {
			return nil, err
		}
		rows, total = nil, 0
	}

	resp := &model.QuerySoftIrqDetailResponse{
		Records:    make([]model.SoftIrqDetailRecord, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for _, row := range rows {
		resp.Records = append(resp.Records, model.SoftIrqDetailRecord{
			ServerName: row.ServerName,
			CPUName:    row.CPUName,
			Timestamp:  row.Timestamp.Unix(),
			Hi:         row.Hi,
			Timer:      row.Timer,
			NetTx:      row.NetTx,
			NetRx:      row.NetRx,
			Block:      row.Block,
			Sched:      row.Sched,
		})
	}
	return resp, nil
}

func (s *Service) QueryCpuCoreDetail(req *model.QueryDetailRequest) (*model.QueryCpuCoreDetailResponse, error) {
	start, end, err := timeRangeOf(req.TimeRange)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(req.Pagination)

	rows, total, err := s.reader.QueryCPUCoreDetail(req.ServerName, start, end, page, pageSize)
	if err != nil {
		if err, soft := failSoft("cpu_core_detail", err); !soft {
			return nil, err
		}
		rows, total = nil, 0
	}

	resp := &model.QueryCpuCoreDetailResponse{
		Records:    make([]model.CpuCoreDetailRecord, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for _, row := range rows {
		resp.Records = append(resp.Records, model.CpuCoreDetailRecord{
			ServerName:     row.ServerName,
			CPUName:        row.CPUName,
			Timestamp:      row.Timestamp.Unix(),
			CPUPercent:     row.CPUPercent,
			UsrPercent:     row.UsrPercent,
			SystemPercent:  row.SystemPercent,
			NicePercent:    row.NicePercent,
			IdlePercent:    row.IdlePercent,
			IOWaitPercent:  row.IOWaitPercent,
			IrqPercent:     row.IrqPercent,
			SoftIrqPercent: row.SoftIrqPercent,
		})
	}
	return resp, nil
}
