package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/subfoxapp/SubFox/internal/pkg/jobqueue"
	"github.com/subfoxapp/SubFox/internal/pkg/statistics"
)

// HandleGetStats returns public aggregate totals. Values come from the Redis
// statistics cache and may lag the database by a few minutes.
func HandleGetStats(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData()

	return c.JSON(fiber.Map{
		"total_users":         data.TotalUsers,
		"total_subscriptions": data.TotalSubscriptions,
		"monthly_spend":       data.MonthlySpend,
	})
}

// HandleAdminJobStats returns job queue counters for the admin dashboard.
func HandleAdminJobStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	ctx := c.UserContext()

	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", err.Error())
	}
	queued, err := queue.GetQueueSize(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", err.Error())
	}
	processing, err := queue.GetProcessingSize(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return c.JSON(fiber.Map{
		"running":    jobqueue.GetManager().IsRunning(),
		"queued":     queued,
		"processing": processing,
		"by_status":  stats,
	})
}

// HandleAdminStatsRefresh forces a statistics cache refresh ahead of the
// regular interval.
func HandleAdminStatsRefresh(c *fiber.Ctx) error {
	statistics.ResetCacheUpdateTimer()
	statistics.UpdateCacheIfNeeded()

	data := statistics.GetStatisticsData()
	return c.JSON(fiber.Map{
		"refreshed":           true,
		"total_users":         data.TotalUsers,
		"total_subscriptions": data.TotalSubscriptions,
		"monthly_spend":       data.MonthlySpend,
	})
}
