package invoice

import "time"

// =============================================================================
// REMINDER POLICY - Pure eligibility computation, no transport
// =============================================================================

// DefaultReminderInterval is the minimum gap between reminders for the
// same ledger unless configured otherwise.
const DefaultReminderInterval = 7 * 24 * time.Hour

// ReminderPolicy decides whether a dunning notice is due for a ledger.
// It is a pure computation: no side effects and no knowledge of how a
// reminder would be delivered. The notification collaborator consumes its
// output and does the sending.
type ReminderPolicy struct {
	Interval time.Duration
}

// DefaultReminderPolicy returns a policy with the 7-day interval.
func DefaultReminderPolicy() ReminderPolicy {
	return ReminderPolicy{Interval: DefaultReminderInterval}
}

// IsReminderDue reports whether a reminder should be sent for l at now.
// Eligible only while the ledger is sent or overdue with an open balance,
// and either no reminder has gone out yet (lastReminderAt nil) or the
// configured interval has elapsed since the last one.
func (rp ReminderPolicy) IsReminderDue(l *Ledger, now time.Time, lastReminderAt *time.Time) bool {
	if !l.Status.Payable() {
		return false
	}
	if !l.Totals.AmountDue.IsPositive() {
		return false
	}
	if lastReminderAt == nil {
		return true
	}
	interval := rp.Interval
	if interval <= 0 {
		interval = DefaultReminderInterval
	}
	return now.Sub(*lastReminderAt) >= interval
}
