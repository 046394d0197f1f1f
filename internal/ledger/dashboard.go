package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"game-ledger-bot/internal/model"
)

// TrendDays is the length of the daily profit trend.
const TrendDays = 30

// DashboardInput carries one owner's records into ComputeDashboard.
type DashboardInput struct {
	UserID       int64
	Sessions     []*model.Session
	Transactions []*model.Transaction
	Assets       []*model.Asset

	// Range bounds session start times and transaction creation times.
	// Assets are never date-filtered.
	Range *model.DateRange

	// Now anchors the trend; its calendar day in Location is the last entry.
	Now      time.Time
	Location *time.Location
}

// ComputeDashboard aggregates the owner's records into dashboard metrics.
// Records owned by another user are ignored. Sums are kept at full precision
// and rounded only when written to the result.
func ComputeDashboard(in DashboardInput) model.DashboardMetrics {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	sessions := ownedSessions(in.UserID, in.Sessions, in.Range)
	transactions := ownedTransactions(in.UserID, in.Transactions, in.Range)

	investment := decimal.Zero
	gameHours := decimal.Zero
	for _, s := range sessions {
		investment = investment.Add(decimal.NewFromFloat(s.PointCardCost))
		gameHours = gameHours.Add(
			decimal.NewFromFloat(s.DurationHours).Mul(decimal.NewFromInt(int64(s.MultiAccount))),
		)
	}

	revenue := decimal.Zero
	sources := newSourceAccumulator()
	for _, t := range transactions {
		if t.Type != model.TxIncome {
			continue
		}
		converted := ToCurrency(t.Amount)
		revenue = revenue.Add(converted)
		sources.add(t.Category, converted)
	}

	net := revenue.Sub(investment)
	efficiency := decimal.Zero
	if gameHours.IsPositive() {
		efficiency = net.Div(gameHours)
	}

	assetsValue := decimal.Zero
	assetsCount := 0
	for _, a := range in.Assets {
		if a == nil || a.UserID != in.UserID {
			continue
		}
		assetsValue = assetsValue.Add(a.TotalValue())
		assetsCount++
	}

	totalRevenue := round2(revenue)
	totalInvestment := round2(investment)

	return model.DashboardMetrics{
		TotalInvestment:  totalInvestment,
		TotalRevenue:     totalRevenue,
		NetProfit:        totalRevenue.Sub(totalInvestment),
		HourlyEfficiency: round2(efficiency),
		TotalSessions:    len(sessions),
		IncomeSources:    sources.result(),
		ProfitTrend:      ProfitTrend(sessions, transactions, now, loc),
		TotalAssetsValue: round2(assetsValue),
		AssetsCount:      assetsCount,
	}
}

// ProfitTrend returns TrendDays daily net profits ending on now's calendar day
// in loc, oldest first. Income counts on the day it was recorded and session
// cost on the day the session started.
func ProfitTrend(sessions []*model.Session, transactions []*model.Transaction, now time.Time, loc *time.Location) []model.TrendPoint {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	first := time.Date(local.Year(), local.Month(), local.Day()-(TrendDays-1), 0, 0, 0, 0, loc)

	daily := make([]decimal.Decimal, TrendDays)
	for i := range daily {
		daily[i] = decimal.Zero
	}

	for _, t := range transactions {
		if t.Type != model.TxIncome {
			continue
		}
		if i, ok := dayIndex(first, t.CreatedAt, loc); ok {
			daily[i] = daily[i].Add(ToCurrency(t.Amount))
		}
	}
	for _, s := range sessions {
		if i, ok := dayIndex(first, s.StartTime, loc); ok {
			daily[i] = daily[i].Sub(decimal.NewFromFloat(s.PointCardCost))
		}
	}

	trend := make([]model.TrendPoint, TrendDays)
	for i := range trend {
		trend[i] = model.TrendPoint{
			Date:   first.AddDate(0, 0, i),
			Profit: round2(daily[i]),
		}
	}
	return trend
}

// dayIndex locates t among the TrendDays local days starting at first.
func dayIndex(first, t time.Time, loc *time.Location) (int, bool) {
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if day.Before(first) {
		return 0, false
	}
	// Walk calendar days rather than dividing by 24h so DST days stay one bucket.
	for i := 0; i < TrendDays; i++ {
		if first.AddDate(0, 0, i).Equal(day) {
			return i, true
		}
	}
	return 0, false
}

func ownedSessions(userID int64, in []*model.Session, r *model.DateRange) []*model.Session {
	out := make([]*model.Session, 0, len(in))
	for _, s := range in {
		if s == nil || s.UserID != userID || !r.Contains(s.StartTime) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func ownedTransactions(userID int64, in []*model.Transaction, r *model.DateRange) []*model.Transaction {
	out := make([]*model.Transaction, 0, len(in))
	for _, t := range in {
		if t == nil || t.UserID != userID || !r.Contains(t.CreatedAt) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// sourceAccumulator sums income per category, keeping first-seen order.
type sourceAccumulator struct {
	order  []model.Category
	totals map[model.Category]decimal.Decimal
}

func newSourceAccumulator() *sourceAccumulator {
	return &sourceAccumulator{totals: make(map[model.Category]decimal.Decimal)}
}

func (a *sourceAccumulator) add(c model.Category, amount decimal.Decimal) {
	current, ok := a.totals[c]
	if !ok {
		a.order = append(a.order, c)
		current = decimal.Zero
	}
	a.totals[c] = current.Add(amount)
}

func (a *sourceAccumulator) result() []model.IncomeSource {
	out := make([]model.IncomeSource, 0, len(a.order))
	for _, c := range a.order {
		out = append(out, model.IncomeSource{Category: c, Amount: round2(a.totals[c])})
	}
	return out
}
