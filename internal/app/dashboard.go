package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studytec-client/internal/domain"
)

// DashboardSource lists classes and attempts on the backend.
type DashboardSource interface {
	ListClasses(ctx context.Context, teacherID string) ([]domain.ClassRecord, error)
	ListHistory(ctx context.Context, userID string) ([]domain.HistoryRecord, error)
}

// DashboardAggregator keeps the last successful role-scoped aggregate.
type DashboardAggregator struct {
	source DashboardSource
	now    func() time.Time
	log    zerolog.Logger

	mu        sync.RWMutex
	gen       uint64
	dashboard domain.Dashboard
}

func NewDashboardAggregator(source DashboardSource, log zerolog.Logger) *DashboardAggregator {
	return &DashboardAggregator{
		source: source,
		now:    time.Now,
		log:    log.With().Str("component", "dashboard").Logger(),
	}
}

// Snapshot returns the last aggregate.
func (d *DashboardAggregator) Snapshot() domain.Dashboard {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dashboard
}

// Clear drops the aggregate, used when the session returns to anonymous.
func (d *DashboardAggregator) Clear() {
	d.mu.Lock()
	d.gen++
	d.dashboard = domain.Dashboard{}
	d.mu.Unlock()
}

// Refresh reads classes and history concurrently and replaces the aggregate
// only when both succeed. On failure the previous aggregate is kept. A result
// overtaken by Clear or by a later Refresh is discarded.
func (d *DashboardAggregator) Refresh(ctx context.Context, actor domain.Actor) (domain.Dashboard, error) {
	return d.refresh(ctx, actor, d.begin())
}

// begin claims the next generation. Results of earlier generations are
// dropped from then on.
func (d *DashboardAggregator) begin() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	return d.gen
}

func (d *DashboardAggregator) refresh(ctx context.Context, actor domain.Actor, gen uint64) (domain.Dashboard, error) {
	if actor.Role == domain.RoleAnonymous {
		return d.Snapshot(), fmt.Errorf("%w: %w", domain.ErrFetch, domain.ErrNotAuthenticated)
	}

	teacherID, userID, historyScoped := scopes(actor)

	var (
		classes []domain.ClassRecord
		history = []domain.HistoryRecord{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		classes, err = d.source.ListClasses(gctx, teacherID)
		return err
	})
	if !historyScoped || userID != "" {
		g.Go(func() error {
			var err error
			history, err = d.source.ListHistory(gctx, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		d.log.Warn().Err(err).Stringer("role", actor.Role).Msg("dashboard refresh failed")
		return d.Snapshot(), fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}

	if classes == nil {
		classes = []domain.ClassRecord{}
	}
	if history == nil {
		history = []domain.HistoryRecord{}
	}
	next := domain.Dashboard{Classes: classes, History: history, UpdatedAt: d.now()}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		d.log.Debug().Stringer("role", actor.Role).Msg("stale dashboard result dropped")
		return d.dashboard, nil
	}
	d.dashboard = next
	return next, nil
}

// scopes derives the query scopes for actor. Classes are scoped to the
// teacher's own id; history is scoped to the actor unless they are staff.
// A scoped actor without an id (a joined guest) has no history to read.
func scopes(actor domain.Actor) (teacherID, userID string, historyScoped bool) {
	switch actor.Role {
	case domain.RoleTeacher:
		return actor.ID(), "", false
	case domain.RoleMaster:
		return "", "", false
	default:
		return "", actor.ID(), true
	}
}
