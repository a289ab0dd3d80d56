package store

import (
	"fmt"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/model"
	"github.com/fleetwatch/fleetwatch/internal/models"
)

// QueryPerformance returns the host's performance rows in the closed time
// range, newest first, paginated, together with the unpaginated total.
func (s *Store) QueryPerformance(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerPerformance, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, 0, ErrNotInitialized
	}
	page, pageSize = normalizePaging(page, pageSize)

	q := s.db.Model(&models.ServerPerformance{}).
		Where("server_name = ? AND timestamp BETWEEN ? AND ?",
			serverName, FormatTime(start), FormatTime(end))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count performance rows: %w", err)
	}

	var rows []models.ServerPerformance
	if err := q.Order("timestamp DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("query performance rows: %w", err)
	}
	return rows, total, nil
}

// trendRow carries one epoch-aligned aggregation bucket. The alias bucket_ts
// is distinct from the raw timestamp column so GROUP BY resolves the alias.
type trendRow struct {
	ServerName          string    `gorm:"column:server_name"`
	BucketTS            time.Time `gorm:"column:bucket_ts"`
	CPUPercent          float64   `gorm:"column:cpu_percent"`
	UsrPercent          float64   `gorm:"column:usr_percent"`
	SystemPercent       float64   `gorm:"column:system_percent"`
	IOWaitPercent       float64   `gorm:"column:io_wait_percent"`
	LoadAvg1            float64   `gorm:"column:load_avg_1"`
	LoadAvg3            float64   `gorm:"column:load_avg_3"`
	LoadAvg15           float64   `gorm:"column:load_avg_15"`
	MemUsedPercent      float64   `gorm:"column:mem_used_percent"`
	DiskUtilPercent     float64   `gorm:"column:disk_util_percent"`
	SendRate            float64   `gorm:"column:send_rate"`
	RcvRate             float64   `gorm:"column:rcv_rate"`
	Score               float64   `gorm:"column:score"`
	CPUPercentRate      float64   `gorm:"column:cpu_percent_rate"`
	MemUsedPercentRate  float64   `gorm:"column:mem_used_percent_rate"`
	DiskUtilPercentRate float64   `gorm:"column:disk_util_percent_rate"`
	LoadAvg1Rate        float64   `gorm:"column:load_avg_1_rate"`
}

// QueryTrend aggregates the host's rows into fixed-width buckets aligned to
// the epoch when intervalSeconds > 0 (column averages per bucket, bucket
// order ascending); with intervalSeconds == 0 it returns raw rows ascending.
func (s *Store) QueryTrend(serverName string, start, end time.Time, intervalSeconds int) ([]models.ServerPerformance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	if intervalSeconds <= 0 {
		var rows []models.ServerPerformance
		if err := s.db.
			Where("server_name = ? AND timestamp BETWEEN ? AND ?",
				serverName, FormatTime(start), FormatTime(end)).
			Order("timestamp ASC").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("query trend rows: %w", err)
		}
		return rows, nil
	}

	var buckets []trendRow
	err := s.db.Raw(`SELECT server_name,
  FROM_UNIXTIME(FLOOR(UNIX_TIMESTAMP(timestamp) / ?) * ?) AS bucket_ts,
  AVG(cpu_percent) AS cpu_percent,
  AVG(usr_percent) AS usr_percent,
  AVG(system_percent) AS system_percent,
  AVG(io_wait_percent) AS io_wait_percent,
  AVG(load_avg_1) AS load_avg_1,
  AVG(load_avg_3) AS load_avg_3,
  AVG(load_avg_15) AS load_avg_15,
  AVG(mem_used_percent) AS mem_used_percent,
  AVG(disk_util_percent) AS disk_util_percent,
  AVG(send_rate) AS send_rate,
  AVG(rcv_rate) AS rcv_rate,
  AVG(score) AS score,
  AVG(cpu_percent_rate) AS cpu_percent_rate,
  AVG(mem_used_percent_rate) AS mem_used_percent_rate,
  AVG(disk_util_percent_rate) AS disk_util_percent_rate,
  AVG(load_avg_1_rate) AS load_avg_1_rate
FROM server_performance
WHERE server_name = ? AND timestamp BETWEEN ? AND ?
GROUP BY server_name, bucket_ts
ORDER BY bucket_ts`,
		intervalSeconds, intervalSeconds,
		serverName, FormatTime(start), FormatTime(end)).
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("query trend buckets: %w", err)
	}

	rows := make([]models.ServerPerformance, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, models.ServerPerformance{
			ServerName:          b.ServerName,
			Timestamp:           b.BucketTS,
			CPUPercent:          b.CPUPercent,
			UsrPercent:          b.UsrPercent,
			SystemPercent:       b.SystemPercent,
			IOWaitPercent:       b.IOWaitPercent,
			LoadAvg1:            b.LoadAvg1,
			LoadAvg3:            b.LoadAvg3,
			LoadAvg15:           b.LoadAvg15,
			MemUsedPercent:      b.MemUsedPercent,
			DiskUtilPercent:     b.DiskUtilPercent,
			SendRate:            b.SendRate,
			RcvRate:             b.RcvRate,
			Score:               b.Score,
			CPUPercentRate:      b.CPUPercentRate,
			MemUsedPercentRate:  b.MemUsedPercentRate,
			DiskUtilPercentRate: b.DiskUtilPercentRate,
			LoadAvg1Rate:        b.LoadAvg1Rate,
		})
	}
	return rows, nil
}

// QueryAnomalySource selects the performance rows that violate any absolute
// threshold or whose cpu/mem change rates spike past the rate threshold.
// An empty serverName spans the whole fleet.
func (s *Store) QueryAnomalySource(serverName string, start, end time.Time, th model.AnomalyThresholds, page, pageSize int) ([]models.ServerPerformance, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, 0, ErrNotInitialized
	}
	page, pageSize = normalizePaging(page, pageSize)

	q := s.db.Model(&models.ServerPerformance{}).
		Where("timestamp BETWEEN ? AND ?", FormatTime(start), FormatTime(end))
	if serverName != "" {
		q = q.Where("server_name = ?", serverName)
	}
	q = q.Where(
		"cpu_percent > ? OR mem_used_percent > ? OR disk_util_percent > ? OR ABS(cpu_percent_rate) > ? OR ABS(mem_used_percent_rate) > ?",
		th.CPUThreshold, th.MemThreshold, th.DiskThreshold,
		th.ChangeRateThreshold, th.ChangeRateThreshold)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count anomaly rows: %w", err)
	}

	var rows []models.ServerPerformance
	if err := q.Order("timestamp DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("query anomaly rows: %w", err)
	}
	return rows, total, nil
}

// QueryLatestSource returns, for every host ever persisted, its row with the
// maximum timestamp.
func (s *Store) QueryLatestSource() ([]models.ServerPerformance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	var rows []models.ServerPerformance
	err := s.db.Raw(`SELECT p1.*
FROM server_performance p1
INNER JOIN (
  SELECT server_name, MAX(timestamp) AS max_ts
  FROM server_performance GROUP BY server_name
) p2 ON p1.server_name = p2.server_name AND p1.timestamp = p2.max_ts
ORDER BY p1.timestamp DESC`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query latest rows: %w", err)
	}
	return rows, nil
}

func (s *Store) QueryNetDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerNetDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, 0, ErrNotInitialized
	}
	page, pageSize = normalizePaging(page, pageSize)

	q := s.db.Model(&models.ServerNetDetail{}).
		Where("server_name = ? AND timestamp BETWEEN ? AND ?",
			serverName, FormatTime(start), FormatTime(end))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count net detail rows: %w", err)
	}

	var rows []models.ServerNetDetail
	if err := q.Order("timestamp DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("query net detail rows: %w", err)
	}
	return rows, total, nil
}

func (s *Store) QueryDiskDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerDiskDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, 0, ErrNotInitialized
	}
	page, pageSize = normalizePaging(page, pageSize)

	q := s.db.Model(&models.ServerDiskDetail{}).
		Where("server_name = ? AND timestamp BETWEEN ? AND ?",
			serverName, FormatTime(start), FormatTime(end))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count disk detail rows: %w", err)
	}

	var rows []models.ServerDiskDetail
	if err := q.Order("timestamp DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("query disk detail rows: %w", err)
	}
	return rows, total, nil
}

func (s *Store) QueryMemDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerMemDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, 0, ErrNotInitialized
	}
	page, pageSize = normalizePaging(page, pageSize)

	q := s.db.Model(&models.ServerMemDetail{}).
		Where("server_name = ? AND timestamp BETWEEN ? AND ?",
			serverName, FormatTime(start), FormatTime(end))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count mem detail rows: %w", err)
	}

	var rows []models.ServerMemDetail
	if err := q.Order("timestamp DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("query mem detail rows: %w", err)
	}
	return rows, total, nil
}

func (s *Store) QuerySoftIrqDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerSoftIrqDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, 0, ErrNotInitialized
	}
	page, pageSize = normalizePaging(page, pageSize)

	q := s.db.Model(&models.ServerSoftIrqDetail{}).
		Where("server_name = ? AND timestamp BETWEEN ? AND ?",
			serverName, FormatTime(start), FormatTime(end))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count softirq detail rows: %w", err)
	}

	var rows []models.ServerSoftIrqDetail
	if err := q.Order("timestamp DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("query softirq detail rows: %w", err)
	}
	return rows, total, nil
}

// QueryCPUCoreDetail returns the latest row per CPU core within the range,
// ordered by core name. The total counts distinct cores, not raw rows.
func (s *Store) QueryCPUCoreDetail(serverName string, start, end time.Time, page, pageSize int) ([]models.ServerCPUCoreDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, 0, ErrNotInitialized
	}
	page, pageSize = normalizePaging(page, pageSize)

	startStr, endStr := FormatTime(start), FormatTime(end)

	var total int64
	err := s.db.Model(&models.ServerCPUCoreDetail{}).
		Where("server_name = ? AND timestamp BETWEEN ? AND ?", serverName, startStr, endStr).
		Distinct("cpu_name").Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("count cpu core rows: %w", err)
	}

	var rows []models.ServerCPUCoreDetail
	err = s.db.Raw(`SELECT d.*
FROM server_cpu_core_detail d
INNER JOIN (
  SELECT cpu_name, MAX(timestamp) AS latest_ts
  FROM server_cpu_core_detail
  WHERE server_name = ? AND timestamp BETWEEN ? AND ?
  GROUP BY cpu_name
) latest ON d.cpu_name = latest.cpu_name AND d.timestamp = latest.latest_ts
WHERE d.server_name = ?
ORDER BY d.cpu_name ASC
LIMIT ? OFFSET ?`,
		serverName, startStr, endStr, serverName,
		pageSize, (page-1)*pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("query cpu core rows: %w", err)
	}
	return rows, total, nil
}
