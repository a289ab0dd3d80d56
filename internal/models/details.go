package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// One detail row per sub-entity (interface, CPU, disk; memory has none) is
// written alongside every performance row.

type ServerNetDetail struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ServerName string    `gorm:"column:server_name;not null;index:idx_net_server_ts" json:"server_name"`
	NetName    string    `gorm:"column:net_name;not null" json:"net_name"`
	Timestamp  time.Time `gorm:"column:timestamp;type:datetime;not null;index:idx_net_server_ts" json:"timestamp"`

	ErrIn   uint64 `gorm:"column:err_in" json:"err_in"`
	ErrOut  uint64 `gorm:"column:err_out" json:"err_out"`
	DropIn  uint64 `gorm:"column:drop_in" json:"drop_in"`
	DropOut uint64 `gorm:"column:drop_out" json:"drop_out"`

	RcvBytesRate   float64 `gorm:"column:rcv_bytes_rate" json:"rcv_bytes_rate"`
	RcvPacketsRate float64 `gorm:"column:rcv_packets_rate" json:"rcv_packets_rate"`
	SndBytesRate   float64 `gorm:"column:snd_bytes_rate" json:"snd_bytes_rate"`
	SndPacketsRate float64 `gorm:"column:snd_packets_rate" json:"snd_packets_rate"`

	RcvBytesRateRate   float64 `gorm:"column:rcv_bytes_rate_rate" json:"rcv_bytes_rate_rate"`
	RcvPacketsRateRate float64 `gorm:"column:rcv_packets_rate_rate" json:"rcv_packets_rate_rate"`
	SndBytesRateRate   float64 `gorm:"column:snd_bytes_rate_rate" json:"snd_bytes_rate_rate"`
	SndPacketsRateRate float64 `gorm:"column:snd_packets_rate_rate" json:"snd_packets_rate_rate"`
	ErrInRate          float64 `gorm:"column:err_in_rate" json:"err_in_rate"`
	ErrOutRate         float64 `gorm:"column:err_out_rate" json:"err_out_rate"`
	DropInRate         float64 `gorm:"column:drop_in_rate" json:"drop_in_rate"`
	DropOutRate        float64 `gorm:"column:drop_out_rate" json:"drop_out_rate"`
}

func (ServerNetDetail) TableName() string { return "server_net_detail" }

func (d *ServerNetDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type ServerSoftIrqDetail struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ServerName string    `gorm:"column:server_name;not null;index:idx_softirq_server_ts" json:"server_name"`
	CPUName    string    `gorm:"column:cpu_name;not null" json:"cpu_name"`
	Timestamp  time.Time `gorm:"column:timestamp;type:datetime;not null;index:idx_softirq_server_ts" json:"timestamp"`

	Hi      int64 `gorm:"column:hi" json:"hi"`
	Timer   int64 `gorm:"column:timer" json:"timer"`
	NetTx   int64 `gorm:"column:net_tx" json:"net_tx"`
	NetRx   int64 `gorm:"column:net_rx" json:"net_rx"`
	Block   int64 `gorm:"column:block" json:"block"`
	IrqPoll int64 `gorm:"column:irq_poll" json:"irq_poll"`
	Tasklet int64 `gorm:"column:tasklet" json:"tasklet"`
	Sched   int64 `gorm:"column:sched" json:"sched"`
	HRTimer int64 `gorm:"column:hrtimer" json:"hrtimer"`
	RCU     int64 `gorm:"column:rcu" json:"rcu"`

	HiRate      float64 `gorm:"column:hi_rate" json:"hi_rate"`
	TimerRate   float64 `gorm:"column:timer_rate" json:"timer_rate"`
	NetTxRate   float64 `gorm:"column:net_tx_rate" json:"net_tx_rate"`
	NetRxRate   float64 `gorm:"column:net_rx_rate" json:"net_rx_rate"`
	BlockRate   float64 `gorm:"column:block_rate" json:"block_rate"`
	IrqPollRate float64 `gorm:"column:irq_poll_rate" json:"irq_poll_rate"`
	TaskletRate float64 `gorm:"column:tasklet_rate" json:"tasklet_rate"`
	SchedRate   float64 `gorm:"column:sched_rate" json:"sched_rate"`
	HRTimerRate float64 `gorm:"column:hrtimer_rate" json:"hrtimer_rate"`
	RCURate     float64 `gorm:"column:rcu_rate" json:"rcu_rate"`
}

func (ServerSoftIrqDetail) TableName() string { return "server_softirq_detail" }

func (d *ServerSoftIrqDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type ServerMemDetail struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ServerName string    `gorm:"column:server_name;not null;index:idx_mem_server_ts" json:"server_name"`
	Timestamp  time.Time `gorm:"column:timestamp;type:datetime;not null;index:idx_mem_server_ts" json:"timestamp"`

	Total        float64 `gorm:"column:total" json:"total"`
	Free         float64 `gorm:"column:free" json:"free"`
	Avail        float64 `gorm:"column:avail" json:"avail"`
	Buffers      float64 `gorm:"column:buffers" json:"buffers"`
	Cached       float64 `gorm:"column:cached" json:"cached"`
	SwapCached   float64 `gorm:"column:swap_cached" json:"swap_cached"`
	Active       float64 `gorm:"column:active" json:"active"`
	Inactive     float64 `gorm:"column:inactive" json:"inactive"`
	ActiveAnon   float64 `gorm:"column:active_anon" json:"active_anon"`
	InactiveAnon float64 `gorm:"column:inactive_anon" json:"inactive_anon"`
	ActiveFile   float64 `gorm:"column:active_file" json:"active_file"`
	InactiveFile float64 `gorm:"column:inactive_file" json:"inactive_file"`
	Dirty        float64 `gorm:"column:dirty" json:"dirty"`
	Writeback    float64 `gorm:"column:writeback" json:"writeback"`
	AnonPages    float64 `gorm:"column:anon_pages" json:"anon_pages"`
	Mapped       float64 `gorm:"column:mapped" json:"mapped"`
	KReclaimable float64 `gorm:"column:kreclaimable" json:"kreclaimable"`
	SReclaimable float64 `gorm:"column:sreclaimable" json:"sreclaimable"`
	SUnreclaim   float64 `gorm:"column:sunreclaim" json:"sunreclaim"`

	TotalRate        float64 `gorm:"column:total_rate" json:"total_rate"`
	FreeRate         float64 `gorm:"column:free_rate" json:"free_rate"`
	AvailRate        float64 `gorm:"column:avail_rate" json:"avail_rate"`
	BuffersRate      float64 `gorm:"column:buffers_rate" json:"buffers_rate"`
	CachedRate       float64 `gorm:"column:cached_rate" json:"cached_rate"`
	SwapCachedRate   float64 `gorm:"column:swap_cached_rate" json:"swap_cached_rate"`
	ActiveRate       float64 `gorm:"column:active_rate" json:"active_rate"`
	InactiveRate     float64 `gorm:"column:inactive_rate" json:"inactive_rate"`
	ActiveAnonRate   float64 `gorm:"column:active_anon_rate" json:"active_anon_rate"`
	InactiveAnonRate float64 `gorm:"column:inactive_anon_rate" json:"inactive_anon_rate"`
	ActiveFileRate   float64 `gorm:"column:active_file_rate" json:"active_file_rate"`
	InactiveFileRate float64 `gorm:"column:inactive_file_rate" json:"inactive_file_rate"`
	DirtyRate        float64 `gorm:"column:dirty_rate" json:"dirty_rate"`
	WritebackRate    float64 `gorm:"column:writeback_rate" json:"writeback_rate"`
	AnonPagesRate    float64 `gorm:"column:anon_pages_rate" json:"anon_pages_rate"`
	MappedRate       float64 `gorm:"column:mapped_rate" json:"mapped_rate"`
	KReclaimableRate float64 `gorm:"column:kreclaimable_rate" json:"kreclaimable_rate"`
	SReclaimableRate float64 `gorm:"column:sreclaimable_rate" json:"sreclaimable_rate"`
	SUnreclaimRate   float64 `gorm:"column:sunreclaim_rate" json:"sunreclaim_rate"`
}

func (ServerMemDetail) TableName() string { return "server_mem_detail" }

func (d *ServerMemDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type ServerDiskDetail struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ServerName string    `gorm:"column:server_name;not null;index:idx_disk_server_ts" json:"server_name"`
	DiskName   string    `gorm:"column:disk_name;not null" json:"disk_name"`
	Timestamp  time.Time `gorm:"column:timestamp;type:datetime;not null;index:idx_disk_server_ts" json:"timestamp"`

	Reads            uint64 `gorm:"column:reads" json:"reads"`
	Writes           uint64 `gorm:"column:writes" json:"writes"`
	SectorsRead      uint64 `gorm:"column:sectors_read" json:"sectors_read"`
	SectorsWritten   uint64 `gorm:"column:sectors_written" json:"sectors_written"`
	ReadTimeMs       uint64 `gorm:"column:read_time_ms" json:"read_time_ms"`
	WriteTimeMs      uint64 `gorm:"column:write_time_ms" json:"write_time_ms"`
	IOInProgress     uint64 `gorm:"column:io_in_progress" json:"io_in_progress"`
	IOTimeMs         uint64 `gorm:"column:io_time_ms" json:"io_time_ms"`
	WeightedIOTimeMs uint64 `gorm:"column:weighted_io_time_ms" json:"weighted_io_time_ms"`

	ReadBytesPerSec   float64 `gorm:"column:read_bytes_per_sec" json:"read_bytes_per_sec"`
	WriteBytesPerSec  float64 `gorm:"column:write_bytes_per_sec" json:"write_bytes_per_sec"`
	ReadIOPS          float64 `gorm:"column:read_iops" json:"read_iops"`
	WriteIOPS         float64 `gorm:"column:write_iops" json:"write_iops"`
	AvgReadLatencyMs  float64 `gorm:"column:avg_read_latency_ms" json:"avg_read_latency_ms"`
	AvgWriteLatencyMs float64 `gorm:"column:avg_write_latency_ms" json:"avg_write_latency_ms"`
	UtilPercent       float64 `gorm:"column:util_percent" json:"util_percent"`

	ReadBytesPerSecRate   float64 `gorm:"column:read_bytes_per_sec_rate" json:"read_bytes_per_sec_rate"`
	WriteBytesPerSecRate  float64 `gorm:"column:write_bytes_per_sec_rate" json:"write_bytes_per_sec_rate"`
	ReadIOPSRate          float64 `gorm:"column:read_iops_rate" json:"read_iops_rate"`
	WriteIOPSRate         float64 `gorm:"column:write_iops_rate" json:"write_iops_rate"`
	AvgReadLatencyMsRate  float64 `gorm:"column:avg_read_latency_ms_rate" json:"avg_read_latency_ms_rate"`
	AvgWriteLatencyMsRate float64 `gorm:"column:avg_write_latency_ms_rate" json:"avg_write_latency_ms_rate"`
	UtilPercentRate       float64 `gorm:"column:util_percent_rate" json:"util_percent_rate"`
}

func (ServerDiskDetail) TableName() string { return "server_disk_detail" }

func (d *ServerDiskDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ServerCPUCoreDetail holds one row per core per ingest so the latest-per-core
// query has data to return.
type ServerCPUCoreDetail struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ServerName string    `gorm:"column:server_name;not null;index:idx_cpucore_server_ts" json:"server_name"`
	CPUName    string    `gorm:"column:cpu_name;not null" json:"cpu_name"`
	Timestamp  time.Time `gorm:"column:timestamp;type:datetime;not null;index:idx_cpucore_server_ts" json:"timestamp"`

	CPUPercent     float64 `gorm:"column:cpu_percent" json:"cpu_percent"`
	UsrPercent     float64 `gorm:"column:usr_percent" json:"usr_percent"`
	SystemPercent  float64 `gorm:"column:system_percent" json:"system_percent"`
	NicePercent    float64 `gorm:"column:nice_percent" json:"nice_percent"`
	IdlePercent    float64 `gorm:"column:idle_percent" json:"idle_percent"`
	IOWaitPercent  float64 `gorm:"column:io_wait_percent" json:"io_wait_percent"`
	IrqPercent     float64 `gorm:"column:irq_percent" json:"irq_percent"`
	SoftIrqPercent float64 `gorm:"column:soft_irq_percent" json:"soft_irq_percent"`
}

func (ServerCPUCoreDetail) TableName() string { return "server_cpu_core_detail" }

func (d *ServerCPUCoreDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
