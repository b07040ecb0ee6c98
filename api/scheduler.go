/*
scheduler.go - Automated overdue and reminder sweeps

PURPOSE:
  Periodically applies the past-due check to every sent ledger and emits
  payment reminders for ledgers the ReminderPolicy deems eligible. The
  engine itself is time-passive: nothing moves a ledger to overdue until
  someone asks, so this sweeper is that someone.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Sweeps are idempotent: re-checking an already-overdue ledger is a no-op
  - Reminder send times are tracked in memory per ledger; after a restart
    the first sweep may remind again, which the 7-day policy tolerates
  - Delivery goes through the invoice.Notifier contract; the engine never
    touches a transport

USAGE:
  sweeper := NewSweeper(svc, notifier)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - invoice/reminder.go: The eligibility policy
  - handlers.go: SweepOverdue endpoint (manual sweep)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/invoice-engine/invoice"
	"github.com/warp/invoice-engine/logger"
)

// Sweeper handles automated overdue marking and reminder notification.
type Sweeper struct {
	Svc           *invoice.Service
	Policy        invoice.ReminderPolicy
	Notifier      invoice.Notifier
	CheckInterval time.Duration

	ticker       *time.Ticker
	stop         chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	log          zerolog.Logger
	lastReminded map[string]time.Time
}

// NewSweeper creates a sweeper with the default policy and a 1h interval.
func NewSweeper(svc *invoice.Service, notifier invoice.Notifier) *Sweeper {
	return &Sweeper{
		Svc:           svc,
		Policy:        invoice.DefaultReminderPolicy(),
		Notifier:      notifier,
		CheckInterval: time.Hour,
		stop:          make(chan struct{}),
		log:           logger.WithComponent("sweeper"),
		lastReminded:  make(map[string]time.Time),
	}
}

// Start begins the background sweep loop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.log.Info().Dur("interval", s.CheckInterval).Msg("sweeper started")
}

// Stop stops the sweep loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.log.Info().Msg("sweeper stopped")
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.Sweep(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.Sweep(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Sweep runs one pass: overdue marking, then reminders.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.Svc.Now()

	moved, err := s.Svc.SweepOverdue(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("overdue sweep failed")
		return
	}
	if moved > 0 {
		s.log.Info().Int("marked_overdue", moved).Msg("ledgers moved to overdue")
	}

	open, err := s.Svc.List(ctx, invoice.ListFilter{
		Statuses: []invoice.Status{invoice.StatusSent, invoice.StatusOverdue},
	})
	if err != nil {
		s.log.Error().Err(err).Msg("listing open ledgers failed")
		return
	}

	for _, l := range open {
		var last *time.Time
		if t, ok := s.lastReminded[l.ID]; ok {
			last = &t
		}
		if !s.Policy.IsReminderDue(l, now, last) {
			continue
		}
		if err := s.Notifier.PaymentReminder(ctx, l); err != nil {
			s.log.Error().Err(err).Str("ledger", l.ID).Msg("reminder delivery failed")
			continue
		}
		s.lastReminded[l.ID] = now
	}
}

// =============================================================================
// LOG NOTIFIER - Default delivery when no real transport is wired
// =============================================================================

// LogNotifier writes reminders to the log. Stands in for the real
// notification collaborator (email, SMS) in dev setups.
type LogNotifier struct {
	Log zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{Log: logger.WithComponent("notifier")}
}

func (n *LogNotifier) PaymentReminder(_ context.Context, l *invoice.Ledger) error {
	n.Log.Info().
		Str("ledger", l.ID).
		Str("number", l.Number).
		Str("status", string(l.Status)).
		Str("amount_due", l.Totals.AmountDue.String()).
		Msg("payment reminder due")
	return nil
}

var _ invoice.Notifier = (*LogNotifier)(nil)
