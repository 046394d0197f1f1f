package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"game-ledger-bot/internal/ledger"
	"game-ledger-bot/internal/model"
)

const separator = "━━━━━━━━━━━━━━━"

func money(d decimal.Decimal) string {
	return "¥" + d.StringFixed(ledger.MoneyPlaces)
}

func statusLabel(s model.SessionStatus) string {
	switch s {
	case model.SessionActive:
		return "进行中"
	case model.SessionEnded:
		return "已结束"
	case model.SessionArchived:
		return "已归档"
	}
	return string(s)
}

// formatSession renders one session as a single line.
func formatSession(s *model.Session, loc *time.Location) string {
	line := fmt.Sprintf("#%d %s %d开 %s",
		s.ID, statusLabel(s.Status), s.MultiAccount, s.StartTime.In(loc).Format("01-02 15:04"))
	if s.Status == model.SessionEnded {
		line += fmt.Sprintf(" | %.2f小时 成本 ¥%.2f", s.DurationHours, s.PointCardCost)
	}
	if s.Notes != nil {
		line += " | " + *s.Notes
	}
	return line
}

// formatSettled renders the reply to a settled session.
func formatSettled(s *model.Session) string {
	return fmt.Sprintf(
		"✅ 会话 #%d 已结束\n%s\n⏱ 时长: %.2f 小时\n👥 多开: %d\n💳 点卡成本: ¥%.2f",
		s.ID, separator, s.DurationHours, s.MultiAccount, s.PointCardCost,
	)
}

// formatTransaction renders one transaction as a single line.
func formatTransaction(tx *model.Transaction, loc *time.Location) string {
	sign := "+"
	if tx.Type == model.TxExpense {
		sign = "-"
	}
	line := fmt.Sprintf("#%d %s %s %s%.0f (%s)",
		tx.ID, tx.CreatedAt.In(loc).Format("01-02 15:04"), tx.Category, sign, tx.Amount, money(ledger.ToCurrency(tx.Amount)))
	if tx.Item != nil {
		line += " " + *tx.Item
	}
	return line
}

// formatAsset renders one asset as a single line.
func formatAsset(a *model.Asset) string {
	return fmt.Sprintf("#%d [%s] %s ×%d 单价 ¥%.2f 合计 %s",
		a.ID, a.Type, a.Name, a.EffectiveQuantity(), a.Value, money(a.TotalValue()))
}

// formatDashboard renders the dashboard metrics.
func formatDashboard(m model.DashboardMetrics, rng *model.DateRange, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📊 数据看板")
	if !rng.IsZero() {
		b.WriteString(" (")
		if rng.Start != nil {
			b.WriteString(rng.Start.In(loc).Format("2006-01-02"))
		}
		b.WriteString(" ~ ")
		if rng.End != nil {
			b.WriteString(rng.End.In(loc).Format("2006-01-02"))
		}
		b.WriteString(")")
	}
	b.WriteString("\n" + separator + "\n")
	fmt.Fprintf(&b, "💳 总投入: %s\n", money(m.TotalInvestment))
	fmt.Fprintf(&b, "💰 总收入: %s\n", money(m.TotalRevenue))
	fmt.Fprintf(&b, "📈 净收益: %s\n", money(m.NetProfit))
	fmt.Fprintf(&b, "⚡ 单机时薪: %s\n", money(m.HourlyEfficiency))
	fmt.Fprintf(&b, "🎮 会话数: %d\n", m.TotalSessions)
	fmt.Fprintf(&b, "🎒 资产: %d 项, 共 %s\n", m.AssetsCount, money(m.TotalAssetsValue))

	if len(m.IncomeSources) > 0 {
		b.WriteString(separator + "\n收入来源:\n")
		for _, src := range m.IncomeSources {
			fmt.Fprintf(&b, "  %s: %s\n", src.Category, money(src.Amount))
		}
	}
	b.WriteString(separator)
	return b.String()
}

// formatTrend renders the days of the trend that had any activity.
func formatTrend(points []model.TrendPoint) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 近%d天收益\n%s\n", ledger.TrendDays, separator))

	total := decimal.Zero
	active := 0
	for _, p := range points {
		total = total.Add(p.Profit)
		if p.Profit.IsZero() {
			continue
		}
		active++
		fmt.Fprintf(&b, "%s  %s\n", p.Date.Format("01-02"), money(p.Profit))
	}
	if active == 0 {
		b.WriteString("暂无收益记录\n")
	}
	fmt.Fprintf(&b, "%s\n合计: %s", separator, money(total))
	return b.String()
}
