// Package model defines the data models for the game ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a Telegram user owning ledger records.
type User struct {
	TelegramID int64     `db:"telegram_id" json:"telegramId"`
	Username   string    `db:"username" json:"username"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// SessionStatus is the lifecycle state of a play session.
type SessionStatus string

// Session statuses. Archived and ended are terminal.
const (
	SessionActive   SessionStatus = "active"
	SessionArchived SessionStatus = "archived"
	SessionEnded    SessionStatus = "ended"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionArchived, SessionEnded:
		return true
	}
	return false
}

// Multi-account bounds for a session.
const (
	MinMultiAccount = 1
	MaxMultiAccount = 8
)

// Session is one play period.
// DurationHours and PointCardCost stay zero until the session is settled.
type Session struct {
	ID            int64         `db:"id" json:"id"`
	UserID        int64         `db:"user_id" json:"userId"`
	StartTime     time.Time     `db:"start_time" json:"startTime"`
	EndTime       *time.Time    `db:"end_time" json:"endTime,omitempty"`
	DurationHours float64       `db:"duration_hours" json:"durationHours"`
	MultiAccount  int           `db:"multi_account" json:"multiAccount"`
	PointCardCost float64       `db:"point_card_cost" json:"pointCardCost"`
	Status        SessionStatus `db:"status" json:"status"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// TxType is the direction of a transaction.
type TxType string

// Transaction directions.
const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// Valid reports whether t is a known direction.
func (t TxType) Valid() bool {
	return t == TxIncome || t == TxExpense
}

// Label returns the display text of the direction.
func (t TxType) Label() string {
	if t == TxIncome {
		return "收入"
	}
	return "支出"
}

// Category classifies where in-game money came from or went to.
type Category string

// Transaction categories.
const (
	CategoryShimen   Category = "师门"
	CategoryZhuagui  Category = "抓鬼"
	CategoryFuben    Category = "副本"
	CategoryFengyao  Category = "封妖"
	CategoryLianyao  Category = "炼妖"
	CategoryActivity Category = "活动"
	CategoryOther    Category = "其他"
)

// Categories returns every transaction category in display order.
func Categories() []Category {
	return []Category{
		CategoryShimen, CategoryZhuagui, CategoryFuben, CategoryFengyao,
		CategoryLianyao, CategoryActivity, CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Transaction is a single income or expense event.
// Amount is in in-game currency and is never negative.
type Transaction struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	SessionID *int64    `db:"session_id" json:"sessionId,omitempty"`
	Type      TxType    `db:"type" json:"type"`
	Category  Category  `db:"category" json:"category"`
	Amount    float64   `db:"amount" json:"amount"`
	Item      *string   `db:"item" json:"item,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// AssetType classifies an owned asset.
type AssetType string

// Asset types.
const (
	AssetCharacter AssetType = "角色"
	AssetEquipment AssetType = "装备"
	AssetPet       AssetType = "召唤兽"
	AssetCurrency  AssetType = "游戏币"
	AssetOther     AssetType = "其他"
)

// AssetTypes returns every asset type in display order.
func AssetTypes() []AssetType {
	return []AssetType{AssetCharacter, AssetEquipment, AssetPet, AssetCurrency, AssetOther}
}

// Valid reports whether t is a known asset type.
func (t AssetType) Valid() bool {
	for _, known := range AssetTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Asset is an owned item or resource with a valuation.
type Asset struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Name        string    `db:"name" json:"name"`
	Type        AssetType `db:"type" json:"type"`
	Value       float64   `db:"value" json:"value"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// EffectiveQuantity returns the quantity, reading an unset quantity as 1.
func (a Asset) EffectiveQuantity() int {
	if a.Quantity < 1 {
		return 1
	}
	return a.Quantity
}

// TotalValue returns Value × Quantity.
func (a Asset) TotalValue() decimal.Decimal {
	return decimal.NewFromFloat(a.Value).Mul(decimal.NewFromInt(int64(a.EffectiveQuantity())))
}

// DateRange bounds records by time. A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether the range has no bounds.
func (r *DateRange) IsZero() bool {
	return r == nil || (r.Start == nil && r.End == nil)
}

// Contains reports whether t falls inside the range, bounds inclusive.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// IncomeSource is the converted income of one category.
type IncomeSource struct {
	Category Category        `json:"name"`
	Amount   decimal.Decimal `json:"value"`
}

// TrendPoint is the net profit of one local calendar day.
type TrendPoint struct {
	Date   time.Time       `json:"date"`
	Profit decimal.Decimal `json:"profit"`
}

// DashboardMetrics is the aggregated view of one user's ledger.
// Monetary fields are in real currency, rounded to 2 decimal places.
type DashboardMetrics struct {
	TotalInvestment  decimal.Decimal `json:"totalInvestment"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	NetProfit        decimal.Decimal `json:"netProfit"`
	HourlyEfficiency decimal.Decimal `json:"hourlyEfficiency"`
	TotalSessions    int             `json:"totalSessions"`
	IncomeSources    []IncomeSource  `json:"incomeSources"`
	ProfitTrend      []TrendPoint    `json:"profitTrend"`
	TotalAssetsValue decimal.Decimal `json:"totalAssetsValue"`
	AssetsCount      int             `json:"assetsCount"`
}
