package tools

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/docchat/docchat/internal/errs"
)

// TimeLayout renders times the way an en-US locale does
const TimeLayout = "1/2/2006, 3:04:05 PM"

// Searcher answers web search queries
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Executor runs parsed tool calls
type Executor struct {
	search Searcher
	now    func() time.Time
}

// NewExecutor creates an executor backed by search
func NewExecutor(search Searcher) *Executor {
	return &Executor{search: search, now: time.Now}
}

// Execute runs call and returns its textual result. Failures wrap errs.ErrToolExecution.
func (e *Executor) Execute(ctx context.Context, call Call) (string, error) {
	switch c := call.(type) {
	case SearchWebCall:
		out, err := e.search.Search(ctx, c.Query)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", errs.ErrToolExecution, c.Name(), err)
		}
		return out, nil
	case TimeInTimezoneCall:
		return e.timeIn(c.Timezone)
	default:
		return "", fmt.Errorf("%w: unhandled call %T", errs.ErrToolExecution, call)
	}
}

func (e *Executor) timeIn(zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("%w: invalid timezone %q: %w", errs.ErrToolExecution, zone, err)
	}
	return e.now().In(loc).Format(TimeLayout), nil
}
