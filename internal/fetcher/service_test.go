package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/groupwatch/internal/models"
	"github.com/blockedby/groupwatch/internal/repository"
	"github.com/blockedby/groupwatch/internal/telegram"
)

// fakeGroupSource resolves one group and serves scripted pages.
type fakeGroupSource struct {
	scriptedSource
	group      *telegram.Group
	resolveErr error
}

func (f *fakeGroupSource) ResolveGroup(_ context.Context, _ string) (*telegram.Group, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.group, nil
}

// fakeMessageStore keeps inserted messages in memory.
type fakeMessageStore struct {
	mu        sync.Mutex
	inserted  []*models.Message
	existing  map[int64]bool
	deleted   map[int64]bool
	insertErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		existing: make(map[int64]bool),
		deleted:  make(map[int64]bool),
	}
}

func (f *fakeMessageStore) Exists(_ context.Context, messageID, _ int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[messageID], nil
}

func (f *fakeMessageStore) IsDeleted(_ context.Context, messageID, _ int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[messageID], nil
}

func (f *fakeMessageStore) Insert(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.existing[m.MessageID] {
		return repository.ErrDuplicateMessage
	}
	f.existing[m.MessageID] = true
	f.inserted = append(f.inserted, m)
	return nil
}

// fakeGroupStore tracks upserts and last-fetch updates.
type fakeGroupStore struct {
	stored        *models.Group
	upserted      *models.Group
	lastFetchedAt *time.Time
}

func (f *fakeGroupStore) GetByID(_ context.Context, _ int64) (*models.Group, error) {
	return f.stored, nil
}

func (f *fakeGroupStore) Upsert(_ context.Context, g *models.Group) error {
	f.upserted = g
	return nil
}

func (f *fakeGroupStore) UpdateLastFetch(_ context.Context, _ int64, ts time.Time) error {
	f.lastFetchedAt = &ts
	return nil
}

type fakeUserStore struct {
	upserted []*models.User
}

func (f *fakeUserStore) Upsert(_ context.Context, u *models.User) error {
	f.upserted = append(f.upserted, u)
	return nil
}

type fakeLicense struct {
	allowed bool
	reason  string
}

func (f *fakeLicense) CanAddGroup(_ context.Context) (bool, string, error) {
	return f.allowed, f.reason, nil
}

// eventRecorder collects published events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventRecorder) Publish(_ context.Context, event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *eventRecorder) byType(eventType string) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Event
	for _, ev := range e.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func windowOpts() FetchOptions {
	return FetchOptions{
		Group:     "@testgroup",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC),
	}
}

func newTestService(source *fakeGroupSource, messages *fakeMessageStore, groups *fakeGroupStore, license *fakeLicense, events *eventRecorder) *Service {
	return NewService(source, messages, groups, &fakeUserStore{}, license, events, 0, 100, zerolog.Nop())
}

func TestService_Fetch(t *testing.T) {
	inWindow := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	source := &fakeGroupSource{
		group: testGroup(),
		scriptedSource: scriptedSource{pages: []*telegram.Page{
			{
				Messages: []telegram.RawMessage{
					{ID: 3, GroupID: 100, FromID: 1, Text: "third #tag", Date: inWindow.Add(2 * time.Hour), ReactionsCount: 2},
					{ID: 2, GroupID: 100, FromID: 2, Caption: "pic", MediaKind: telegram.MediaKindPhoto, Date: inWindow.Add(time.Hour)},
				},
				Users: map[int64]telegram.RawUser{
					1: {ID: 1, Username: "alice"},
					2: {ID: 2, FirstName: "Bob"},
				},
				Total: 3,
			},
			{
				Messages: []telegram.RawMessage{
					{ID: 1, GroupID: 100, FromID: 1, Text: "first", Date: inWindow},
				},
				Users: map[int64]telegram.RawUser{1: {ID: 1, Username: "alice"}},
			},
			{},
		}},
	}
	messages := newFakeMessageStore()
	groups := &fakeGroupStore{}
	events := &eventRecorder{}

	svc := newTestService(source, messages, groups, &fakeLicense{allowed: true}, events)
	result, err := svc.Fetch(context.Background(), windowOpts())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 3, result.MessageCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Equal(t, 0, result.ErrorCount)

	assert.Equal(t, UserActivity{Messages: 2, Media: 0, Reactions: 2}, result.UserSummary[1])
	assert.Equal(t, UserActivity{Messages: 1, Media: 1, Reactions: 0}, result.UserSummary[2])

	// group was registered and stamped
	require.NotNil(t, groups.upserted)
	assert.Equal(t, int64(100), groups.upserted.ID)
	assert.True(t, groups.upserted.IsActive)
	assert.NotNil(t, groups.lastFetchedAt)

	// stored messages carry classification
	require.Len(t, messages.inserted, 3)
	tagged := messages.inserted[0]
	assert.Equal(t, models.StringList{"tag"}, tagged.Tags)
	assert.Equal(t, "https://t.me/testgroup/3", tagged.MessageLink)

	// event stream brackets the session
	assert.Len(t, events.byType(EventFetchStart), 1)
	assert.Len(t, events.byType(EventFetchEnd), 1)
	assert.Len(t, events.byType(EventMessageNew), 3)
	assert.Len(t, events.byType(EventFetchProgress), 3)
}

func TestService_Fetch_SkipsExistingAndDeleted(t *testing.T) {
	inWindow := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	source := &fakeGroupSource{
		group: testGroup(),
		scriptedSource: scriptedSource{pages: []*telegram.Page{
			{Messages: []telegram.RawMessage{
				{ID: 3, GroupID: 100, FromID: 1, Text: "new", Date: inWindow},
				{ID: 2, GroupID: 100, FromID: 1, Text: "already stored", Date: inWindow},
				{ID: 1, GroupID: 100, FromID: 1, Text: "was deleted locally", Date: inWindow},
			}},
			{},
		}},
	}
	messages := newFakeMessageStore()
	messages.existing[2] = true
	messages.existing[1] = true
	messages.deleted[1] = true
	events := &eventRecorder{}

	svc := newTestService(source, messages, &fakeGroupStore{}, &fakeLicense{allowed: true}, events)
	result, err := svc.Fetch(context.Background(), windowOpts())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.MessageCount)
	assert.Equal(t, 2, result.SkippedCount)

	// the deleted message must not be re-inserted
	require.Len(t, messages.inserted, 1)
	assert.Equal(t, int64(3), messages.inserted[0].MessageID)
}

// refetching the same window against the same store adds no rows
func TestService_Fetch_RerunIsIdempotent(t *testing.T) {
	inWindow := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	script := func() []*telegram.Page {
		return []*telegram.Page{
			{Messages: []telegram.RawMessage{
				{ID: 2, GroupID: 100, FromID: 1, Text: "second", Date: inWindow.Add(time.Hour)},
				{ID: 1, GroupID: 100, FromID: 1, Text: "first", Date: inWindow},
			}},
			{},
		}
	}

	source := &fakeGroupSource{group: testGroup(), scriptedSource: scriptedSource{pages: script()}}
	messages := newFakeMessageStore()
	svc := newTestService(source, messages, &fakeGroupStore{}, &fakeLicense{allowed: true}, &eventRecorder{})

	first, err := svc.Fetch(context.Background(), windowOpts())
	require.NoError(t, err)
	assert.Equal(t, 2, first.MessageCount)

	// same window, same store, fresh script
	source.pages = script()
	second, err := svc.Fetch(context.Background(), windowOpts())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, second.Status)
	assert.Equal(t, 0, second.MessageCount)
	assert.Equal(t, 2, second.SkippedCount)
	assert.Len(t, messages.inserted, 2)
}

func TestService_Fetch_QuotaDenied(t *testing.T) {
	source := &fakeGroupSource{group: testGroup()}
	messages := newFakeMessageStore()

	svc := newTestService(source, messages, &fakeGroupStore{}, &fakeLicense{reason: "group limit reached (10 of 10)"}, &eventRecorder{})
	result, err := svc.Fetch(context.Background(), windowOpts())

	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrKindQuota, result.Err.Kind)
	assert.Zero(t, source.calls)
}

// a group already tracked bypasses the quota
func TestService_Fetch_KnownGroupSkipsQuota(t *testing.T) {
	source := &fakeGroupSource{
		group:          testGroup(),
		scriptedSource: scriptedSource{pages: []*telegram.Page{{}}},
	}
	groups := &fakeGroupStore{stored: &models.Group{ID: 100, IsActive: true}}

	svc := newTestService(source, newFakeMessageStore(), groups, &fakeLicense{allowed: false}, &eventRecorder{})
	result, err := svc.Fetch(context.Background(), windowOpts())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
}

func TestService_Fetch_AuthExpired(t *testing.T) {
	source := &fakeGroupSource{resolveErr: errors.New("rpc error code 401: AUTH_KEY_UNREGISTERED")}

	svc := newTestService(source, newFakeMessageStore(), &fakeGroupStore{}, &fakeLicense{allowed: true}, &eventRecorder{})
	result, err := svc.Fetch(context.Background(), windowOpts())

	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ErrKindAuthExpired, result.Err.Kind)
}

func TestService_Fetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeGroupSource{group: testGroup()}
	groups := &fakeGroupStore{}
	events := &eventRecorder{}

	svc := newTestService(source, newFakeMessageStore(), groups, &fakeLicense{allowed: true}, events)
	result, err := svc.Fetch(ctx, windowOpts())

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Status)
	// no completion stamp on a cancelled run
	assert.Nil(t, groups.lastFetchedAt)
	assert.Len(t, events.byType(EventFetchEnd), 1)
}

// a page failure after retries keeps the partial result
func TestService_Fetch_PartialOnPageFailure(t *testing.T) {
	inWindow := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	source := &fakeGroupSource{
		group: testGroup(),
		scriptedSource: scriptedSource{
			pages: []*telegram.Page{
				{Messages: []telegram.RawMessage{{ID: 9, GroupID: 100, FromID: 1, Text: "kept", Date: inWindow}}},
			},
		},
	}
	// exhaust retries on the second page
	failing := &pageThenFail{inner: source}

	messages := newFakeMessageStore()
	svc := NewService(failing, messages, &fakeGroupStore{}, &fakeUserStore{}, &fakeLicense{allowed: true}, &eventRecorder{}, 0, 100, zerolog.Nop())

	result, err := svc.Fetch(context.Background(), windowOpts())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.MessageCount)
	assert.Equal(t, 1, result.ErrorCount)
}

// pageThenFail serves the inner source's pages, then fails every call.
type pageThenFail struct {
	inner *fakeGroupSource
}

func (p *pageThenFail) ResolveGroup(ctx context.Context, ref string) (*telegram.Group, error) {
	return p.inner.ResolveGroup(ctx, ref)
}

func (p *pageThenFail) GetHistoryPage(ctx context.Context, g *telegram.Group, offsetID, offsetDate, limit int) (*telegram.Page, error) {
	if len(p.inner.pages) == 0 {
		return nil, errors.New("TIMEOUT")
	}
	return p.inner.GetHistoryPage(ctx, g, offsetID, offsetDate, limit)
}
