// Package escalation runs the periodic sweep that advances escalation
// levels on SLA-breached complaints and auto-closes complaints past the
// citizen response window. Cadence comes from a cron expression; a
// singleton leader lock (Redis across replicas, an in-process mutex for
// single-instance deployments) keeps one sweep active at a time.
package escalation

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"grievance/internal/actor"
	"grievance/internal/clock"
	"grievance/internal/complaint"
	"grievance/internal/grievance"
	"grievance/internal/metrics"
)

// level2BreachWindow is how long past its SLA deadline a level-1 complaint
// must be before advancing to level 2 (measured from the deadline, not from
// the level-1 escalation).
const level2BreachWindow = 3 * 24 * time.Hour

// Repository selects the per-rule candidate sets. Narrower than "select
// everything and filter in Go" so the prefilter can live in SQL.
type Repository interface {
	OverdueInProgress(ctx context.Context, asOf time.Time) ([]grievance.Complaint, error)
	ResolvedOlderThan(ctx context.Context, cutoff time.Time) ([]grievance.Complaint, error)
	FiledOlderThan(ctx context.Context, cutoff time.Time) ([]grievance.Complaint, error)
}

// AuditSink is the subset of audit.Sink the scheduler calls directly for the
// SLA_WARNING case (no complaint mutation accompanies it).
type AuditSink interface {
	Record(ctx context.Context, entityType, entityID string, action grievance.AuditAction, oldValue, newValue *string, a actor.Context, reason string) (*grievance.AuditEvent, error)
}

// Notifier is the subset of notify.Dispatcher the scheduler calls directly.
type Notifier interface {
	Notify(ctx context.Context, n *grievance.Notification) error
}

// RecipientResolver resolves the ADMIN recipient for stale-intake warnings.
type RecipientResolver interface {
	AdminID(ctx context.Context) (int64, bool, error)
}

// LeaderLock is the advisory singleton-sweep lock. *RedisLock (leaderlock.go)
// implements it against redis/go-redis/v9; NewLocalLock adapts a sync.Mutex
// for single-instance deployments without redis.addr configured.
type LeaderLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// localLock adapts a plain sync.Mutex to LeaderLock for the no-Redis case.
type localLock struct{ mu sync.Mutex }

func (l *localLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

// NewLocalLock returns an in-process LeaderLock for single-instance
// deployments (no redis.addr configured).
func NewLocalLock() LeaderLock { return &localLock{} }

// Config carries the sweep's tunables (config.Config's Escalation/Signoff
// sections in practice).
type Config struct {
	CronExpr            string        // escalation.cron, default "@every 6h"
	SignoffWindow       time.Duration // signoff.window_hours, default 72h
	StaleFiledThreshold time.Duration // safety threshold for stuck FILED complaints
}

// Scheduler runs the sweep on a cron cadence and on demand.
type Scheduler struct {
	repo    Repository
	engine  *complaint.Engine
	audit   AuditSink
	notify  Notifier
	admins  RecipientResolver
	lock    LeaderLock
	clock   clock.Clock
	cfg     Config
	metrics *metrics.Metrics // nil-safe: tests construct a Scheduler without metrics
	cronSvc *cron.Cron
	mu      sync.Mutex
	running bool
}

func New(repo Repository, engine *complaint.Engine, audit AuditSink, notify Notifier, admins RecipientResolver, lock LeaderLock, clk clock.Clock, cfg Config, m *metrics.Metrics) *Scheduler {
	return &Scheduler{repo: repo, engine: engine, audit: audit, notify: notify, admins: admins, lock: lock, clock: clk, cfg: cfg, metrics: m}
}

// Start schedules Sweep on the configured cron cadence. Idempotent: logs
// and returns if already running. Runs an immediate sweep before the
// cron-driven ones begin.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		log.Warn().Msg("escalation scheduler already running")
		return nil
	}

	c := cron.New()
	expr := s.cfg.CronExpr
	if expr == "" {
		expr = "@every 6h"
	}
	if _, err := c.AddFunc(expr, func() { s.Sweep(ctx) }); err != nil {
		return grievance.Wrap(grievance.KindValidation, "invalid escalation.cron expression", err)
	}
	c.Start()
	s.cronSvc = c
	s.running = true
	log.Info().Str("cron", expr).Msg("escalation scheduler started")

	go s.Sweep(ctx)
	return nil
}

// Stop halts the cron scheduler; in-flight sweeps still honor ctx.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cronSvc.Stop()
	s.running = false
	log.Info().Msg("escalation scheduler stopped")
}

// Sweep runs one pass. It is re-runnable: each per-complaint action checks
// its own precondition atomically, so two overlapping sweeps never
// double-escalate. Only one sweep runs at a time across the deployment
// (LeaderLock).
func (s *Scheduler) Sweep(ctx context.Context) {
	release, ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("escalation sweep: leader lock acquisition failed")
		return
	}
	if !ok {
		log.Debug().Msg("escalation sweep: another instance holds the lock, skipping")
		return
	}
	defer release()

	start := s.clock.Now()
	escalated, reminders, closed := 0, 0, 0

	overdue, err := s.repo.OverdueInProgress(ctx, start)
	if err != nil {
		log.Error().Err(err).Msg("escalation sweep: failed to load overdue complaints")
	}
	for _, c := range overdue {
		select {
		case <-ctx.Done():
			log.Warn().Msg("escalation sweep: cancelled mid-sweep")
			return
		default:
		}
		if did, err := s.escalateOne(ctx, &c, start); err != nil {
			log.Error().Err(err).Int64("complaint_id", c.ComplaintID).Msg("escalation sweep: failed to escalate complaint")
		} else if did {
			escalated++
		}
	}

	resolvedCutoff := start.Add(-s.signoffWindow())
	agedResolved, err := s.repo.ResolvedOlderThan(ctx, resolvedCutoff)
	if err != nil {
		log.Error().Err(err).Msg("escalation sweep: failed to load aged resolved complaints")
	}
	for _, c := range agedResolved {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := s.engine.Transition(ctx, c.ComplaintID, grievance.StatusClosed, actor.System, "auto-close after response window"); err != nil {
			log.Error().Err(err).Int64("complaint_id", c.ComplaintID).Msg("escalation sweep: failed to auto-close complaint")
			continue
		}
		closed++
	}

	staleFiledCutoff := start.Add(-s.staleFiledThreshold())
	staleFiled, err := s.repo.FiledOlderThan(ctx, staleFiledCutoff)
	if err != nil {
		log.Error().Err(err).Msg("escalation sweep: failed to load stale FILED complaints")
	}
	for _, c := range staleFiled {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := s.warnStaleFiled(ctx, &c); err != nil {
			log.Error().Err(err).Int64("complaint_id", c.ComplaintID).Msg("escalation sweep: failed to warn on stale FILED complaint")
			continue
		}
		reminders++
	}

	duration := s.clock.Now().Sub(start)
	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(duration.Seconds())
	}
	log.Info().Dur("duration", duration).
		Int("escalated", escalated).Int("auto_closed", closed).Int("stale_warnings", reminders).
		Msg("escalation sweep completed")
}

// Overdue returns the current set of IN_PROGRESS complaints past their SLA
// deadline, for GET /escalations/overdue.
func (s *Scheduler) Overdue(ctx context.Context) ([]grievance.Complaint, error) {
	return s.repo.OverdueInProgress(ctx, s.clock.Now())
}

// Stats summarizes the current overdue set by escalation level, for GET
// /escalations/stats.
type Stats struct {
	TotalOverdue int `json:"totalOverdue"`
	Level0       int `json:"level0"`
	Level1       int `json:"level1"`
	Level2       int `json:"level2"`
}

func (s *Scheduler) Stats(ctx context.Context) (Stats, error) {
	overdue, err := s.repo.OverdueInProgress(ctx, s.clock.Now())
	if err != nil {
		return Stats{}, grievance.Wrap(grievance.KindExternalUnavailable, "failed to load overdue complaints", err)
	}
	var st Stats
	st.TotalOverdue = len(overdue)
	for _, c := range overdue {
		switch c.EscalationLevel {
		case 0:
			st.Level0++
		case 1:
			st.Level1++
		default:
			st.Level2++
		}
	}
	return st, nil
}

// TriggerSweep runs one sweep synchronously, for POST /escalations/trigger;
// Sweep doubles as the cron-driven and manually-triggered entry point.
func (s *Scheduler) TriggerSweep(ctx context.Context) {
	s.Sweep(ctx)
}

func (s *Scheduler) signoffWindow() time.Duration {
	if s.cfg.SignoffWindow > 0 {
		return s.cfg.SignoffWindow
	}
	return 72 * time.Hour
}

func (s *Scheduler) staleFiledThreshold() time.Duration {
	if s.cfg.StaleFiledThreshold > 0 {
		return s.cfg.StaleFiledThreshold
	}
	return 48 * time.Hour
}

// escalateOne applies the level-0 and level-1 sweep rules for one
// IN_PROGRESS overdue complaint. The compare-and-swap write
// retries transient failures a bounded number of times; it never retries a
// business-logic rejection (level already moved) since that returns
// escalated=false with a nil error, not an error.
func (s *Scheduler) escalateOne(ctx context.Context, c *grievance.Complaint, now time.Time) (bool, error) {
	daysOverdue := int(now.Sub(c.SLADeadline).Hours() / 24)
	if daysOverdue < 0 {
		daysOverdue = 0
	}

	var from, to int
	var newPriority grievance.Priority
	var reason string

	switch {
	case c.EscalationLevel == 0:
		from, to = 0, 1
		newPriority = c.Priority.Upgrade()
		reason = "SLA breached by " + strconv.Itoa(daysOverdue) + " days"
	case c.EscalationLevel == 1 && now.Sub(c.SLADeadline) >= level2BreachWindow:
		from, to = 1, 2
		newPriority = grievance.PriorityCritical
		reason = "SLA breached by " + strconv.Itoa(daysOverdue) + " days, level 1 unresolved for 3+ days"
	default:
		return false, nil // level 2 is terminal, or level 1 hasn't aged enough yet
	}

	var escalated bool
	op := func() error {
		_, did, err := s.engine.EscalateLevel(ctx, c.ComplaintID, from, to, newPriority, reason)
		escalated = did
		return err
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, bo); err != nil {
		return false, err
	}
	return escalated, nil
}

func (s *Scheduler) warnStaleFiled(ctx context.Context, c *grievance.Complaint) error {
	reason := "complaint has remained FILED beyond the intake stall threshold"
	idStr := strconv.FormatInt(c.ComplaintID, 10)
	if _, err := s.audit.Record(ctx, "COMPLAINT", idStr, grievance.ActionUpdated, nil, nil, actor.System, reason); err != nil {
		return err
	}
	adminID, ok, err := s.admins.AdminID(ctx)
	if err != nil || !ok {
		return nil
	}
	return s.notify.Notify(ctx, &grievance.Notification{
		RecipientID:  adminID,
		Type:         grievance.NotifySLAWarning,
		Title:        "Complaint stuck in FILED",
		Message:      "Complaint #" + idStr + " " + reason,
		ComplaintRef: sql.NullInt64{Int64: c.ComplaintID, Valid: true},
		CreatedAt:    s.clock.Now(),
	})
}
