package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetwatch/fleetwatch/internal/manager"
	"github.com/fleetwatch/fleetwatch/internal/model"
	"github.com/fleetwatch/fleetwatch/internal/query"
)

const Version = "1.2.0"

// FleetHandler exposes the host manager's administrative reads and the
// cluster summary over the admin HTTP surface.
type FleetHandler struct {
	hosts   *manager.HostManager
	queries *query.Service
}

func NewFleetHandler(hosts *manager.HostManager, queries *query.Service) *FleetHandler {
	return &FleetHandler{hosts: hosts, queries: queries}
}

type hostScoreView struct {
	ServerName string  `json:"server_name"`
	Score      float64 `json:"score"`
	LastUpdate int64   `json:"last_update"`
	AgeSeconds float64 `json:"age_seconds"`
}

// GetScores returns the live scoreboard snapshot.
func (h *FleetHandler) GetScores(c *fiber.Ctx) error {
	now := time.Now()
	scores := h.hosts.GetAllHostScores()

	views := make([]hostScoreView, 0, len(scores))
	for host, entry := range scores {
		views = append(views, hostScoreView{
			ServerName: host,
			Score:      entry.Score,
			LastUpdate: entry.Timestamp.Unix(),
			AgeSeconds: now.Sub(entry.Timestamp).Seconds(),
		})
	}
	return c.JSON(fiber.Map{"hosts": views})
}

// GetBestHost returns the highest-scoring live host, empty when the
// scoreboard has no entries.
func (h *FleetHandler) GetBestHost(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"best_host": h.hosts.GetBestHost()})
}

// GetCluster returns the persisted latest-per-host view with cluster stats,
// rescored under ?profile= (BALANCED when absent).
func (h *FleetHandler) GetCluster(c *fiber.Ctx) error {
	resp, err := h.queries.QueryLatestScore(&model.QueryLatestScoreRequest{
		Profile: c.Query("profile"),
	})
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   true,
			"message": "Sample store unavailable",
		})
	}
	return c.JSON(resp)
}

// Health is the liveness probe.
func (h *FleetHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": Version})
}
