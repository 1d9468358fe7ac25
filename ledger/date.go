package ledger

import "time"

// =============================================================================
// DATE - Calendar date with no time component
// =============================================================================

// Date is a calendar date. Accrual bookkeeping is date-granular: a wallet
// accrues at most once per Date, and LastAccrualDate comparisons ignore any
// time-of-day component.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC. The scheduler passes this
// into the batch; the engine itself never reads the clock to decide whether
// to accrue.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) AddDays(n int) Date     { return Date{Time: d.normalize().AddDate(0, 0, n)} }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }
