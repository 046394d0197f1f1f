package api

import (
	"net/http"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

type incomeSourceItem struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type incomeSources struct {
	Categories []string           `json:"categories"`
	Data       []incomeSourceItem `json:"data"`
}

type profitTrend struct {
	Dates   []string  `json:"dates"`
	Profits []float64 `json:"profits"`
}

// dashboardResponse is the chart-ready form of model.DashboardMetrics.
type dashboardResponse struct {
	TotalInvestment  float64       `json:"totalInvestment"`
	TotalRevenue     float64       `json:"totalRevenue"`
	NetProfit        float64       `json:"netProfit"`
	HourlyEfficiency float64       `json:"hourlyEfficiency"`
	TotalSessions    int           `json:"totalSessions"`
	IncomeSources    incomeSources `json:"incomeSources"`
	ProfitTrend      profitTrend   `json:"profitTrend"`
	TotalAssetsValue float64       `json:"totalAssetsValue"`
	AssetsCount      int           `json:"assetsCount"`
}

func newDashboardResponse(m model.DashboardMetrics) dashboardResponse {
	resp := dashboardResponse{
		TotalInvestment:  m.TotalInvestment.InexactFloat64(),
		TotalRevenue:     m.TotalRevenue.InexactFloat64(),
		NetProfit:        m.NetProfit.InexactFloat64(),
		HourlyEfficiency: m.HourlyEfficiency.InexactFloat64(),
		TotalSessions:    m.TotalSessions,
		IncomeSources: incomeSources{
			Categories: make([]string, 0, len(m.IncomeSources)),
			Data:       make([]incomeSourceItem, 0, len(m.IncomeSources)),
		},
		ProfitTrend: profitTrend{
			Dates:   make([]string, 0, len(m.ProfitTrend)),
			Profits: make([]float64, 0, len(m.ProfitTrend)),
		},
		TotalAssetsValue: m.TotalAssetsValue.InexactFloat64(),
		AssetsCount:      m.AssetsCount,
	}
	for _, src := range m.IncomeSources {
		resp.IncomeSources.Categories = append(resp.IncomeSources.Categories, string(src.Category))
		resp.IncomeSources.Data = append(resp.IncomeSources.Data, incomeSourceItem{
			Name:  string(src.Category),
			Value: src.Amount.InexactFloat64(),
		})
	}
	for _, p := range m.ProfitTrend {
		resp.ProfitTrend.Dates = append(resp.ProfitTrend.Dates, p.Date.Format(service.DateLayout))
		resp.ProfitTrend.Profits = append(resp.ProfitTrend.Profits, p.Profit.InexactFloat64())
	}
	return resp
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := service.ParseDateRange(q.Get("startDate"), q.Get("endDate"), s.deps.Dashboard.Location())
	if err != nil {
		writeError(w, r, err, "", "获取数据看板失败")
		return
	}

	m, err := s.deps.Dashboard.Dashboard(r.Context(), mustUser(r), rng)
	if err != nil {
		writeError(w, r, err, "", "获取数据看板失败")
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(m))
}
