package aggregation

import (
	"fmt"
	"time"
)

// MonthStart truncates a timestamp to the first instant of its calendar month in UTC.
// Example: MonthStart(2024-02-17T10:35:42Z) → 2024-02-01T00:00:00Z
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Quarter identifies a calendar quarter.
type Quarter struct {
	Year int
	Q    int // 1..4
}

// QuarterOf returns the calendar quarter containing t (UTC).
func QuarterOf(t time.Time) Quarter {
	t = t.UTC()
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

// Index is a monotonically increasing ordinal; consecutive quarters differ by one.
func (q Quarter) Index() int { return q.Year*4 + q.Q - 1 }

// Start returns the first day of the quarter.
func (q Quarter) Start() time.Time {
	return time.Date(q.Year, time.Month((q.Q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

func (q Quarter) Before(other Quarter) bool { return q.Index() < other.Index() }

// String formats the quarter as "2024Q1".
func (q Quarter) String() string { return fmt.Sprintf("%dQ%d", q.Year, q.Q) }
