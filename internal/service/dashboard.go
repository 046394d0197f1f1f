package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"game-ledger-bot/internal/ledger"
	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/pkg/metrics"
)

// DashboardService loads an owner's records and aggregates them.
type DashboardService struct {
	sessions SessionStore
	txs      TransactionStore
	assets   AssetStore
	loc      *time.Location
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService. loc sets the calendar
// used for the daily trend; nil means time.Local.
func NewDashboardService(sessions SessionStore, txs TransactionStore, assets AssetStore, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{
		sessions: sessions,
		txs:      txs,
		assets:   assets,
		loc:      loc,
		now:      time.Now,
	}
}

// Location returns the calendar location of the trend.
func (s *DashboardService) Location() *time.Location {
	return s.loc
}

// Dashboard computes the metrics of userID, optionally bounded by rng.
// The three record sets are loaded concurrently.
func (s *DashboardService) Dashboard(ctx context.Context, userID int64, rng *model.DateRange) (model.DashboardMetrics, error) {
	started := time.Now()
	if rng != nil && rng.Start != nil && rng.End != nil && rng.End.Before(*rng.Start) {
		return model.DashboardMetrics{}, fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}

	in := ledger.DashboardInput{
		UserID:   userID,
		Range:    rng,
		Now:      s.now(),
		Location: s.loc,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Sessions, err = s.sessions.ListByUser(gctx, userID, model.SessionFilter{Range: rng})
		if err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.Transactions, err = s.txs.ListByUser(gctx, userID, model.TransactionFilter{Range: rng})
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.Assets, err = s.assets.ListByUser(gctx, userID, "")
		if err != nil {
			return fmt.Errorf("failed to load assets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.DashboardMetrics{}, err
	}

	m := ledger.ComputeDashboard(in)

	elapsed := time.Since(started)
	metrics.DashboardDuration.Observe(elapsed.Seconds())
	log.Debug().
		Int64("user_id", userID).
		Int("sessions", len(in.Sessions)).
		Int("transactions", len(in.Transactions)).
		Int("assets", len(in.Assets)).
		Dur("elapsed", elapsed).
		Msg("Dashboard computed")

	return m, nil
}

// DateLayout is the day format accepted for range bounds.
const DateLayout = "2006-01-02"

// ParseDateRange parses optional start and end bounds. A bound may be a day
// (DateLayout, read in loc) or an RFC 3339 timestamp. A day as end bound
// covers that whole day. Both empty yields nil.
func ParseDateRange(start, end string, loc *time.Location) (*model.DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}

	rng := &model.DateRange{}
	if start != "" {
		t, _, err := parseBound(start, loc)
		if err != nil {
			return nil, err
		}
		rng.Start = &t
	}
	if end != "" {
		t, day, err := parseBound(end, loc)
		if err != nil {
			return nil, err
		}
		if day {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		rng.End = &t
	}
	if rng.Start != nil && rng.End != nil && rng.End.Before(*rng.Start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	return rng, nil
}

func parseBound(v string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(DateLayout, v, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: bad date %q", ErrInvalidInput, v)
	}
	return t, false, nil
}
