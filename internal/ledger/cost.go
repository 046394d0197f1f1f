// Package ledger implements the settlement cost model and the dashboard aggregator.
// Everything here is pure: callers pass records in and get values back.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"game-ledger-bot/internal/model"
)

// Pricing policy.
const (
	// PointCardRate is the point-card price in real currency per account-hour.
	PointCardRate = "0.6"

	// ExchangeRate is the amount of in-game currency worth one unit of real currency.
	ExchangeRate = 10000

	// MoneyPlaces is the number of decimal places every monetary output is rounded to.
	MoneyPlaces = 2
)

var (
	pointCardRate = decimal.RequireFromString(PointCardRate)
	exchangeRate  = decimal.NewFromInt(ExchangeRate)
	msPerHour     = decimal.NewFromInt(int64(time.Hour / time.Millisecond))
)

// Settlement errors.
var (
	ErrSessionNotActive    = errors.New("session is not active")
	ErrMissingStartTime    = errors.New("session has no start time")
	ErrEndBeforeStart      = errors.New("end time is before start time")
	ErrInvalidMultiAccount = errors.New("multi account must be between 1 and 8")
)

// round2 rounds half away from zero to MoneyPlaces.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ValidateMultiAccount checks the multiplier bounds.
func ValidateMultiAccount(n int) error {
	if n < model.MinMultiAccount || n > model.MaxMultiAccount {
		return fmt.Errorf("%w: got %d", ErrInvalidMultiAccount, n)
	}
	return nil
}

// DurationHours returns the elapsed hours between start and end rounded to 2 places.
func DurationHours(start, end time.Time) decimal.Decimal {
	ms := decimal.NewFromInt(end.Sub(start).Milliseconds())
	return round2(ms.Div(msPerHour))
}

// PointCardCost returns round2(hours × multiAccount × PointCardRate).
func PointCardCost(hours decimal.Decimal, multiAccount int) decimal.Decimal {
	return round2(hours.Mul(decimal.NewFromInt(int64(multiAccount))).Mul(pointCardRate))
}

// SettleSession closes an active session at endTime.
// The returned copy is ended, carries the end time and has its duration and
// point-card cost computed. The input is not modified.
func SettleSession(s model.Session, endTime time.Time) (model.Session, error) {
	if s.Status != model.SessionActive {
		return s, fmt.Errorf("%w: session %d is %s", ErrSessionNotActive, s.ID, s.Status)
	}
	if s.StartTime.IsZero() {
		return s, fmt.Errorf("%w: session %d", ErrMissingStartTime, s.ID)
	}
	if endTime.Before(s.StartTime) {
		return s, fmt.Errorf("%w: start %s, end %s", ErrEndBeforeStart,
			s.StartTime.Format(time.RFC3339), endTime.Format(time.RFC3339))
	}
	if err := ValidateMultiAccount(s.MultiAccount); err != nil {
		return s, err
	}

	hours := DurationHours(s.StartTime, endTime)
	cost := PointCardCost(hours, s.MultiAccount)

	end := endTime
	s.EndTime = &end
	s.Status = model.SessionEnded
	s.DurationHours = hours.InexactFloat64()
	s.PointCardCost = cost.InexactFloat64()
	return s, nil
}

// ArchiveSession shelves an active session without settling it.
// Archived sessions carry no duration or cost.
func ArchiveSession(s model.Session) (model.Session, error) {
	if s.Status != model.SessionActive {
		return s, fmt.Errorf("%w: session %d is %s", ErrSessionNotActive, s.ID, s.Status)
	}
	s.Status = model.SessionArchived
	return s, nil
}

// ToCurrency converts an in-game currency amount to real currency at full precision.
func ToCurrency(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Div(exchangeRate)
}
