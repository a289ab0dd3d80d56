package model

// Query wire types. Timestamps travel as unix seconds; the store boundary
// formats them as local wall-clock "YYYY-MM-DD HH:MM:SS".

type TimeRange struct {
	StartTime int64 `json:"start_time"` // unix seconds
	EndTime   int64 `json:"end_time"`
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

const (
	SortDesc = "DESC"
	SortAsc  = "ASC"
)

const (
	StatusOnline  = "ONLINE"
	StatusOffline = "OFFLINE"
)

// AnomalyThresholds with zero or negative members are replaced by the
// defaults (cpu=80, mem=90, disk=85, rate=0.5) before querying.
type AnomalyThresholds struct {
	CPUThreshold        float64 `json:"cpu_threshold"`
	MemThreshold        float64 `json:"mem_threshold"`
	DiskThreshold       float64 `json:"disk_threshold"`
	ChangeRateThreshold float64 `json:"change_rate_threshold"`
}

type QueryPerformanceRequest struct {
	ServerName string     `json:"server_name"`
	TimeRange  TimeRange  `json:"time_range"`
	Pagination Pagination `json:"pagination"`
	Profile    string     `json:"profile,omitempty"`
}

type QueryPerformanceResponse struct {
	Records    []PerformanceRecord `json:"records"`
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	ScoreNote  string              `json:"score_note,omitempty"`
}

type QueryTrendRequest struct {
	ServerName      string    `json:"server_name"`
	TimeRange       TimeRange `json:"time_range"`
	IntervalSeconds int       `json:"interval_seconds"`
	Profile         string    `json:"profile,omitempty"`
}

type QueryTrendResponse struct {
	Records   []PerformanceRecord `json:"records"`
	ScoreNote string              `json:"score_note,omitempty"`
}

type QueryAnomalyRequest struct {
	ServerName string            `json:"server_name"` // empty queries all hosts
	TimeRange  TimeRange         `json:"time_range"`
	Thresholds AnomalyThresholds `json:"thresholds"`
	Pagination Pagination        `json:"pagination"`
}

type QueryAnomalyResponse struct {
	Records []AnomalyRecord `json:"records"`
	// TotalCount counts qualifying performance rows, not expanded anomaly
	// records; clients page over source rows.
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

type QueryScoreRankRequest struct {
	Order      string     `json:"order"` // DESC (default) or ASC
	Pagination Pagination `json:"pagination"`
	Profile    string     `json:"profile,omitempty"`
}

type QueryScoreRankResponse struct {
	Records    []ServerScoreSummary `json:"records"`
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	ScoreNote  string               `json:"score_note,omitempty"`
}

type QueryLatestScoreRequest struct {
	Profile string `json:"profile,omitempty"`
}

type QueryLatestScoreResponse struct {
	Records   []ServerScoreSummary `json:"records"`
	Stats     ClusterStats         `json:"stats"`
	ScoreNote string               `json:"score_note,omitempty"`
}

// QueryDetailRequest is the shared envelope of the per-subsystem detail
// queries (net, disk, mem, softirq, cpu core).
type QueryDetailRequest struct {
	ServerName string     `json:"server_name"`
	TimeRange  TimeRange  `json:"time_range"`
	Pagination Pagination `json:"pagination"`
}

type QueryNetDetailResponse struct {
	Records    []NetDetailRecord `json:"records"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

type QueryDiskDetailResponse struct {
	Records    []DiskDetailRecord `json:"records"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

type QueryMemDetailResponse struct {
	Records    []MemDetailRecord `json:"records"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

type QuerySoftIrqDetailResponse struct {
	Records    []SoftIrqDetailRecord `json:"records"`
	TotalCount int64                 `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
}

type QueryCpuCoreDetailResponse struct {
	Records    []CpuCoreDetailRecord `json:"records"`
	TotalCount int64                 `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
}

type PerformanceRecord struct {
	ServerName string `json:"server_name"`
	Timestamp  int64  `json:"timestamp"`

	CPUPercent     float64 `json:"cpu_percent"`
	UsrPercent     float64 `json:"usr_percent"`
	SystemPercent  float64 `json:"system_percent"`
	NicePercent    float64 `json:"nice_percent"`
	IdlePercent    float64 `json:"idle_percent"`
	IOWaitPercent  float64 `json:"io_wait_percent"`
	IrqPercent     float64 `json:"irq_percent"`
	SoftIrqPercent float64 `json:"soft_irq_percent"`

	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg3  float64 `json:"load_avg_3"`
	LoadAvg15 float64 `json:"load_avg_15"`

	MemUsedPercent float64 `json:"mem_used_percent"`
	MemTotal       float64 `json:"mem_total"`
	MemFree        float64 `json:"mem_free"`
	MemAvail       float64 `json:"mem_avail"`

	DiskUtilPercent float64 `json:"disk_util_percent"`

	SendRate float64 `json:"send_rate"` // KB/s
	RcvRate  float64 `json:"rcv_rate"`  // KB/s

	Score float64 `json:"score"`

	CPUPercentRate      float64 `json:"cpu_percent_rate"`
	MemUsedPercentRate  float64 `json:"mem_used_percent_rate"`
	DiskUtilPercentRate float64 `json:"disk_util_percent_rate"`
	LoadAvg1Rate        float64 `json:"load_avg_1_rate"`
	SendRateRate        float64 `json:"send_rate_rate"`
	RcvRateRate         float64 `json:"rcv_rate_rate"`
}

const (
	AnomalyCPUHigh   = "CPU_HIGH"
	AnomalyMemHigh   = "MEM_HIGH"
	AnomalyDiskHigh  = "DISK_HIGH"
	AnomalyRateSpike = "RATE_SPIKE"

	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

type AnomalyRecord struct {
	ServerName  string  `json:"server_name"`
	Timestamp   int64   `json:"timestamp"`
	AnomalyType string  `json:"anomaly_type"`
	Severity    string  `json:"severity"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	MetricName  string  `json:"metric_name"`
}

type ServerScoreSummary struct {
	ServerName      string  `json:"server_name"`
	Score           float64 `json:"score"`
	LastUpdate      int64   `json:"last_update"`
	Status          string  `json:"status"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemUsedPercent  float64 `json:"mem_used_percent"`
	DiskUtilPercent float64 `json:"disk_util_percent"`
	LoadAvg1        float64 `json:"load_avg_1"`
}

type ClusterStats struct {
	TotalServers   int     `json:"total_servers"`
	OnlineServers  int     `json:"online_servers"`
	OfflineServers int     `json:"offline_servers"`
	AvgScore       float64 `json:"avg_score"`
	MaxScore       float64 `json:"max_score"`
	MinScore       float64 `json:"min_score"`
	BestServer     string  `json:"best_server"`
	WorstServer    string  `json:"worst_server"`
}

type NetDetailRecord struct {
	ServerName     string  `json:"server_name"`
	NetName        string  `json:"net_name"`
	Timestamp      int64   `json:"timestamp"`
	ErrIn          uint64  `json:"err_in"`
	ErrOut         uint64  `json:"err_out"`
	DropIn         uint64  `json:"drop_in"`
	DropOut        uint64  `json:"drop_out"`
	RcvBytesRate   float64 `json:"rcv_bytes_rate"`
	SndBytesRate   float64 `json:"snd_bytes_rate"`
	RcvPacketsRate float64 `json:"rcv_packets_rate"`
	SndPacketsRate float64 `json:"snd_packets_rate"`
}

type DiskDetailRecord struct {
	ServerName        string  `json:"server_name"`
	DiskName          string  `json:"disk_name"`
	Timestamp         int64   `json:"timestamp"`
	ReadBytesPerSec   float64 `json:"read_bytes_per_sec"`
	WriteBytesPerSec  float64 `json:"write_bytes_per_sec"`
	ReadIOPS          float64 `json:"read_iops"`
	WriteIOPS         float64 `json:"write_iops"`
	AvgReadLatencyMs  float64 `json:"avg_read_latency_ms"`
	AvgWriteLatencyMs float64 `json:"avg_write_latency_ms"`
	UtilPercent       float64 `json:"util_percent"`
}

type MemDetailRecord struct {
	ServerName string  `json:"server_name"`
	Timestamp  int64   `json:"timestamp"`
	Total      float64 `json:"total"`
	Free       float64 `json:"free"`
	Avail      float64 `json:"avail"`
	Buffers    float64 `json:"buffers"`
	Cached     float64 `json:"cached"`
	Active     float64 `json:"active"`
	Inactive   float64 `json:"inactive"`
	Dirty      float64 `json:"dirty"`
}

type SoftIrqDetailRecord struct {
	ServerName string `json:"server_name"`
	CPUName    string `json:"cpu_name"`
	Timestamp  int64  `json:"timestamp"`
	Hi         int64  `json:"hi"`
	Timer      int64  `json:"timer"`
	NetTx      int64  `json:"net_tx"`
	NetRx      int64  `json:"net_rx"`
	Block      int64  `json:"block"`
	Sched      int64  `json:"sched"`
}

type CpuCoreDetailRecord struct {
	ServerName     string  `json:"server_name"`
	CPUName        string  `json:"cpu_name"`
	Timestamp      int64   `json:"timestamp"`
	CPUPercent     float64 `json:"cpu_percent"`
	UsrPercent     float64 `json:"usr_percent"`
	SystemPercent  float64 `json:"system_percent"`
	NicePercent    float64 `json:"nice_percent"`
	IdlePercent    float64 `json:"idle_percent"`
	IOWaitPercent  float64 `json:"io_wait_percent"`
	IrqPercent     float64 `json:"irq_percent"`
	SoftIrqPercent float64 `json:"soft_irq_percent"`
}
