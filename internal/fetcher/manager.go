package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/groupwatch/internal/telegram"
)

// errors
var (
	ErrAlreadyRunning = errors.New("a fetch session is already running")
)

// FetchJob represents an active fetch session.
type FetchJob struct {
	ID        uuid.UUID    `json:"id"`
	Group     string       `json:"group"`
	StartedAt time.Time    `json:"started_at"`
	Options   FetchOptions `json:"-"`
}

// Fetcher defines the fetching logic the manager drives.
type Fetcher interface {
	Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, error)
}

// TelegramStatusSource reports the connection state of the account.
type TelegramStatusSource interface {
	GetStatus() telegram.Status
}

// Manager gates fetch sessions: at most one runs at a time.
// thread-safe
type Manager struct {
	mu         sync.Mutex
	current    *FetchJob
	cancelFn   context.CancelFunc
	lastResult *FetchResult
	fetcher    Fetcher
	tgStatus   TelegramStatusSource
}

// NewManager creates a fetch manager.
func NewManager(fetcher Fetcher, tgStatus TelegramStatusSource) *Manager {
	return &Manager{
		fetcher:  fetcher,
		tgStatus: tgStatus,
	}
}

// Start tries to acquire the session slot and launches the fetch.
// Returns ErrAlreadyRunning if a session is in flight.
func (m *Manager) Start(_ context.Context, opts FetchOptions) (*FetchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, ErrAlreadyRunning
	}

	// IMPORTANT: Use background context, NOT the HTTP request context!
	// The HTTP request context gets canceled when the handler returns,
	// which would immediately cancel our fetch session.
	fetchCtx, cancel := context.WithCancel(context.Background())
	m.cancelFn = cancel

	job := &FetchJob{
		ID:        uuid.New(),
		Group:     opts.Group,
		StartedAt: time.Now(),
		Options:   opts,
	}
	m.current = job

	go m.run(fetchCtx, job)

	return job, nil
}

// Stop cancels the current session.
// safe to call when no session is running
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
}

// Current returns the running job, nil when idle.
func (m *Manager) Current() *FetchJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsFetching reports whether a session is in flight.
func (m *Manager) IsFetching() bool {
	return m.Current() != nil
}

// LastResult returns the outcome of the most recently finished session,
// nil if none has finished yet.
func (m *Manager) LastResult() *FetchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResult
}

// run executes the session in its own goroutine and releases the slot
// when it finishes, whatever the outcome.
func (m *Manager) run(ctx context.Context, job *FetchJob) {
	var result *FetchResult
	if m.fetcher != nil {
		// errors are folded into the result and logged by the service
		result, _ = m.fetcher.Fetch(ctx, job.Options)
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == job.ID {
		m.current = nil
		m.cancelFn = nil
	}
	if result != nil {
		m.lastResult = result
	}
	m.mu.Unlock()
}

// GetTelegramStatus returns the current account connection status.
func (m *Manager) GetTelegramStatus() telegram.Status {
	if m.tgStatus == nil {
		return "UNKNOWN"
	}
	return m.tgStatus.GetStatus()
}
