package handler

import (
	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/service"
)

// DashboardHandler handles dashboard commands.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// HandleDashboard handles /dashboard [开始日期 结束日期].
func (h *DashboardHandler) HandleDashboard(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var start, end string
	args := c.Args()
	if len(args) > 0 {
		start = args[0]
	}
	if len(args) > 1 {
		end = args[1]
	}
	rng, err := service.ParseDateRange(start, end, h.dashboard.Location())
	if err != nil {
		return c.Reply("用法: /dashboard [开始日期 结束日期]\n日期格式: 2026-05-01")
	}

	ctx, cancel := commandContext()
	defer cancel()
	m, err := h.dashboard.Dashboard(ctx, sender.ID, rng)
	if err != nil {
		return replyError(c, err, "获取数据看板失败")
	}
	return c.Reply(formatDashboard(m, rng, h.dashboard.Location()))
}

// HandleTrend handles /trend.
func (h *DashboardHandler) HandleTrend(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()
	m, err := h.dashboard.Dashboard(ctx, sender.ID, nil)
	if err != nil {
		return replyError(c, err, "获取收益趋势失败")
	}
	return c.Reply(formatTrend(m.ProfitTrend))
}
