package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/invoice-engine/invoice"
	"github.com/warp/invoice-engine/store/memory"
)

// captureNotifier records which ledgers were reminded.
type captureNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureNotifier) PaymentReminder(_ context.Context, l *invoice.Ledger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, l.ID)
	return nil
}

func (c *captureNotifier) reminded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func setupSweeper(t *testing.T, now time.Time) (*Sweeper, *invoice.Service, *captureNotifier, *time.Time) {
	t.Helper()
	clock := now
	svc := invoice.NewService(memory.NewStore(), &invoice.SequenceGenerator{Prefix: "id"}, memory.NewSequence("INV"))
	svc.Now = func() time.Time { return clock }

	notifier := &captureNotifier{}
	sweeper := NewSweeper(svc, notifier)
	return sweeper, svc, notifier, &clock
}

func sentLedger(t *testing.T, svc *invoice.Service, due time.Time) *invoice.Ledger {
	t.Helper()
	ctx := context.Background()
	l, err := svc.Create(ctx, "EUR", due)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, l.ID, invoice.ItemInput{
		Description: "Consulting",
		Quantity:    1,
		UnitPrice:   invoice.NewMoney(10000, "EUR"),
		VATRate:     decimal.RequireFromString("21"),
	})
	require.NoError(t, err)
	l, err = svc.Finalize(ctx, l.ID, "user-1")
	require.NoError(t, err)
	return l
}

func TestSweeper_MarksOverdueAndReminds(t *testing.T) {
	// GIVEN: a sent ledger past its due date
	// WHEN: one sweep runs
	// THEN: the ledger is overdue and exactly one reminder goes out

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sweeper, svc, notifier, clock := setupSweeper(t, start)
	l := sentLedger(t, svc, due)

	*clock = due.Add(time.Hour)
	sweeper.Sweep(context.Background())

	got, err := svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusOverdue, got.Status)
	assert.Equal(t, []string{l.ID}, notifier.reminded())
}

func TestSweeper_RemindsSentLedgersBeforeDueDate(t *testing.T) {
	// Reminders are not gated on overdue; any open balance qualifies.
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	sweeper, svc, notifier, _ := setupSweeper(t, start)
	l := sentLedger(t, svc, due)

	sweeper.Sweep(context.Background())

	got, err := svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusSent, got.Status)
	assert.Equal(t, []string{l.ID}, notifier.reminded())
}

func TestSweeper_HonorsReminderInterval(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	sweeper, svc, notifier, clock := setupSweeper(t, start)
	l := sentLedger(t, svc, due)

	sweeper.Sweep(context.Background())
	require.Len(t, notifier.reminded(), 1)

	// One day later, inside the 7-day window: no second reminder.
	*clock = start.Add(24 * time.Hour)
	sweeper.Sweep(context.Background())
	assert.Len(t, notifier.reminded(), 1)

	// Past the window: reminded again.
	*clock = start.Add(invoice.DefaultReminderInterval)
	sweeper.Sweep(context.Background())
	assert.Equal(t, []string{l.ID, l.ID}, notifier.reminded())
}

func TestSweeper_SkipsSettledLedgers(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	sweeper, svc, notifier, _ := setupSweeper(t, start)
	l := sentLedger(t, svc, due)

	_, err := svc.RecordPayment(context.Background(), l.ID, invoice.PaymentInput{
		Amount: invoice.NewMoney(12100, "EUR"),
		Method: invoice.MethodBankTransfer,
	})
	require.NoError(t, err)

	sweeper.Sweep(context.Background())

	assert.Empty(t, notifier.reminded())
}

func TestSweeper_StartStop(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sweeper, _, _, _ := setupSweeper(t, start)
	sweeper.CheckInterval = 50 * time.Millisecond

	sweeper.Start()
	time.Sleep(10 * time.Millisecond)
	sweeper.Stop()
}
