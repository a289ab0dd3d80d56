package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServerPerformance is the main per-ingest row: the flat aggregate projection
// of a snapshot plus its stored score and the parallel *_rate columns.
type ServerPerformance struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ServerName string    `gorm:"column:server_name;not null;index:idx_perf_server_ts" json:"server_name"`
	Timestamp  time.Time `gorm:"column:timestamp;type:datetime;not null;index:idx_perf_server_ts" json:"timestamp"`

	CPUPercent     float64 `gorm:"column:cpu_percent" json:"cpu_percent"`
	UsrPercent     float64 `gorm:"column:usr_percent" json:"usr_percent"`
	SystemPercent  float64 `gorm:"column:system_percent" json:"system_percent"`
	NicePercent    float64 `gorm:"column:nice_percent" json:"nice_percent"`
	IdlePercent    float64 `gorm:"column:idle_percent" json:"idle_percent"`
	IOWaitPercent  float64 `gorm:"column:io_wait_percent" json:"io_wait_percent"`
	IrqPercent     float64 `gorm:"column:irq_percent" json:"irq_percent"`
	SoftIrqPercent float64 `gorm:"column:soft_irq_percent" json:"soft_irq_percent"`

	LoadAvg1  float64 `gorm:"column:load_avg_1" json:"load_avg_1"`
	LoadAvg3  float64 `gorm:"column:load_avg_3" json:"load_avg_3"`
	LoadAvg15 float64 `gorm:"column:load_avg_15" json:"load_avg_15"`

	MemUsedPercent float64 `gorm:"column:mem_used_percent" json:"mem_used_percent"`
	Total          float64 `gorm:"column:total" json:"total"`
	Free           float64 `gorm:"column:free" json:"free"`
	Avail          float64 `gorm:"column:avail" json:"avail"`

	DiskUtilPercent float64 `gorm:"column:disk_util_percent" json:"disk_util_percent"`

	// Network aggregate rates from the first interface, persisted in KB/s.
	SendRate float64 `gorm:"column:send_rate" json:"send_rate"`
	RcvRate  float64 `gorm:"column:rcv_rate" json:"rcv_rate"`

	Score float64 `gorm:"column:score" json:"score"`

	CPUPercentRate      float64 `gorm:"column:cpu_percent_rate" json:"cpu_percent_rate"`
	UsrPercentRate      float64 `gorm:"column:usr_percent_rate" json:"usr_percent_rate"`
	SystemPercentRate   float64 `gorm:"column:system_percent_rate" json:"system_percent_rate"`
	NicePercentRate     float64 `gorm:"column:nice_percent_rate" json:"nice_percent_rate"`
	IdlePercentRate     float64 `gorm:"column:idle_percent_rate" json:"idle_percent_rate"`
	IOWaitPercentRate   float64 `gorm:"column:io_wait_percent_rate" json:"io_wait_percent_rate"`
	IrqPercentRate      float64 `gorm:"column:irq_percent_rate" json:"irq_percent_rate"`
	SoftIrqPercentRate  float64 `gorm:"column:soft_irq_percent_rate" json:"soft_irq_percent_rate"`
	LoadAvg1Rate        float64 `gorm:"column:load_avg_1_rate" json:"load_avg_1_rate"`
	LoadAvg3Rate        float64 `gorm:"column:load_avg_3_rate" json:"load_avg_3_rate"`
	LoadAvg15Rate       float64 `gorm:"column:load_avg_15_rate" json:"load_avg_15_rate"`
	MemUsedPercentRate  float64 `gorm:"column:mem_used_percent_rate" json:"mem_used_percent_rate"`
	TotalRate           float64 `gorm:"column:total_rate" json:"total_rate"`
	FreeRate            float64 `gorm:"column:free_rate" json:"free_rate"`
	AvailRate           float64 `gorm:"column:avail_rate" json:"avail_rate"`
	DiskUtilPercentRate float64 `gorm:"column:disk_util_percent_rate" json:"disk_util_percent_rate"`
	SendRateRate        float64 `gorm:"column:send_rate_rate" json:"send_rate_rate"`
	RcvRateRate         float64 `gorm:"column:rcv_rate_rate" json:"rcv_rate_rate"`
}

func (ServerPerformance) TableName() string { return "server_performance" }

func (p *ServerPerformance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
