package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockedby/groupwatch/internal/telegram"
)

// MaxFetchRetries is how many times a transient page failure is retried
// before it is surfaced to the orchestrator.
const MaxFetchRetries = 3

// HistorySource serves pages of group history, most recent first.
type HistorySource interface {
	GetHistoryPage(ctx context.Context, group *telegram.Group, offsetID int, offsetDate int, limit int) (*telegram.Page, error)
}

// Paginator walks a group's history backwards through a date window,
// sleeping between pages and retrying transient failures. It trims
// messages outside the window and stops once the walk passes the
// window's start.
type Paginator struct {
	source   HistorySource
	group    *telegram.Group
	start    time.Time
	end      time.Time
	delay    time.Duration
	pageSize int
	log      zerolog.Logger

	offsetID  int
	total     int
	firstPage bool
	exhausted bool
}

// NewPaginator creates a paginator over [start, end] for one group.
func NewPaginator(source HistorySource, group *telegram.Group, start, end time.Time, delay time.Duration, pageSize int) *Paginator {
	return &Paginator{
		source:    source,
		group:     group,
		start:     start,
		end:       end,
		delay:     delay,
		pageSize:  pageSize,
		log:       zerolog.Nop(),
		firstPage: true,
	}
}

// WithLogger attaches a logger to the paginator.
func (p *Paginator) WithLogger(log zerolog.Logger) *Paginator {
	p.log = log
	return p
}

// EstimatedTotal is the server-reported history size, 0 until the
// first page arrives or when the server does not report one.
func (p *Paginator) EstimatedTotal() int {
	return p.total
}

// Next returns the next in-window batch of messages and their senders.
// A nil page with nil error means the history is exhausted. Pages that
// fall entirely outside the window are skipped internally.
func (p *Paginator) Next(ctx context.Context) (*telegram.Page, error) {
	for {
		if p.exhausted {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !p.firstPage {
			if err := p.sleep(ctx); err != nil {
				return nil, err
			}
		}

		page, err := p.fetchPage(ctx)
		if err != nil {
			return nil, err
		}
		p.firstPage = false

		if page.Total > 0 && p.total == 0 {
			p.total = page.Total
		}
		if len(page.Messages) == 0 {
			p.exhausted = true
			return nil, nil
		}
		p.offsetID = page.Messages[len(page.Messages)-1].ID

		trimmed := p.trim(page)
		if len(trimmed.Messages) > 0 {
			return trimmed, nil
		}
		if p.exhausted {
			return nil, nil
		}
		// Whole page was newer than the window, keep walking.
	}
}

// fetchPage calls the source, retrying transient failures.
func (p *Paginator) fetchPage(ctx context.Context) (*telegram.Page, error) {
	// On the first call anchor the walk just past the window end so
	// the server starts at the newest in-window message.
	offsetDate := 0
	if p.offsetID == 0 {
		offsetDate = int(p.end.Add(time.Second).Unix())
	}

	// The initial call plus up to MaxFetchRetries retries.
	var lastErr error
	for attempt := 0; attempt <= MaxFetchRetries; attempt++ {
		page, err := p.source.GetHistoryPage(ctx, p.group, p.offsetID, offsetDate, p.pageSize)
		if err == nil {
			return page, nil
		}
		lastErr = err

		fe := AsFetchError(err)
		if fe.IsFatal() || ctx.Err() != nil {
			return nil, err
		}
		p.log.Warn().Err(err).Int("attempt", attempt).Int64("group_id", p.group.ID).Msg("paginator: page fetch failed")
		if attempt < MaxFetchRetries {
			if sleepErr := p.sleep(ctx); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, fmt.Errorf("fetch history page after %d retries: %w", MaxFetchRetries, lastErr)
}

// trim drops messages outside the window. Seeing a message older than
// the window start ends the walk.
func (p *Paginator) trim(page *telegram.Page) *telegram.Page {
	kept := make([]telegram.RawMessage, 0, len(page.Messages))
	for _, m := range page.Messages {
		if m.Date.Before(p.start) {
			p.exhausted = true
			break
		}
		if m.Date.After(p.end) {
			continue
		}
		kept = append(kept, m)
	}
	return &telegram.Page{Messages: kept, Users: page.Users, Total: page.Total}
}

func (p *Paginator) sleep(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
