package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockedby/groupwatch/internal/models"
	"github.com/blockedby/groupwatch/internal/repository"
	"github.com/blockedby/groupwatch/internal/telegram"
)

// GroupSource resolves group references and serves their history.
type GroupSource interface {
	HistorySource
	ResolveGroup(ctx context.Context, ref string) (*telegram.Group, error)
}

// MessageStore persists fetched messages.
type MessageStore interface {
	ExistenceStore
	Insert(ctx context.Context, m *models.Message) error
}

// GroupStore persists tracked groups.
type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	Upsert(ctx context.Context, g *models.Group) error
	UpdateLastFetch(ctx context.Context, id int64, ts time.Time) error
}

// UserStore persists message senders.
type UserStore interface {
	Upsert(ctx context.Context, u *models.User) error
}

// LicenseGate decides whether a group not yet tracked may be added.
type LicenseGate interface {
	CanAddGroup(ctx context.Context) (bool, string, error)
}

// FetchResult is the final outcome of one fetch session.
type FetchResult struct {
	GroupID      int64                  `json:"group_id"`
	Status       Status                 `json:"status"`
	MessageCount int                    `json:"message_count"`
	SkippedCount int                    `json:"skipped_count"`
	ErrorCount   int                    `json:"error_count"`
	UserSummary  map[int64]UserActivity `json:"user_summary"`
	Err          *FetchError            `json:"error,omitempty"`
}

// Service runs fetch sessions end to end: validate, resolve, paginate,
// classify, dedup, persist, publish.
type Service struct {
	tg        GroupSource
	messages  MessageStore
	groups    GroupStore
	users     UserStore
	license   LicenseGate
	publisher EventPublisher

	delay    time.Duration
	pageSize int
	log      zerolog.Logger
}

// NewService creates a fetch service.
func NewService(
	tg GroupSource,
	messages MessageStore,
	groups GroupStore,
	users UserStore,
	license LicenseGate,
	publisher EventPublisher,
	delay time.Duration,
	pageSize int,
	log zerolog.Logger,
) *Service {
	if publisher == nil {
		publisher = MultiPublisher(nil)
	}
	return &Service{
		tg:        tg,
		messages:  messages,
		groups:    groups,
		users:     users,
		license:   license,
		publisher: publisher,
		delay:     delay,
		pageSize:  pageSize,
		log:       log,
	}
}

// Fetch runs one session. Fatal errors (validation, permission, auth,
// quota) abort the run; item-level failures are counted and the run
// continues. The returned result is non-nil even on failure.
func (s *Service) Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	group, fe := s.prepare(ctx, opts)
	if fe != nil {
		return &FetchResult{Status: StatusFailed, Err: fe}, fe
	}

	session := NewFetchSession(group.ID, opts.StartDate, opts.EndDate)
	s.publish(ctx, Event{Type: EventFetchStart, Payload: FetchStartPayload{
		GroupID:   group.ID,
		Group:     opts.Group,
		StartDate: opts.StartDate,
		EndDate:   opts.EndDate,
	}})

	status, runErr := s.run(ctx, group, session)

	result := &FetchResult{
		GroupID:      group.ID,
		Status:       status,
		MessageCount: session.NewCount,
		SkippedCount: session.SkippedCount,
		ErrorCount:   session.ErrorCount,
		UserSummary:  session.UserSummary(),
	}
	if runErr != nil {
		result.Err = AsFetchError(runErr)
	}

	if status == StatusCompleted {
		if err := s.groups.UpdateLastFetch(ctx, group.ID, time.Now().UTC()); err != nil {
			s.log.Error().Err(err).Int64("group_id", group.ID).Msg("fetcher: update last fetch date failed")
		}
	}

	endPayload := FetchEndPayload{
		GroupID:      group.ID,
		Status:       status,
		MessageCount: result.MessageCount,
		SkippedCount: result.SkippedCount,
		ErrorCount:   result.ErrorCount,
		UserSummary:  result.UserSummary,
	}
	if result.Err != nil {
		endPayload.Error = result.Err.Error()
	}
	s.publish(context.WithoutCancel(ctx), Event{Type: EventFetchEnd, Payload: endPayload})

	s.log.Info().
		Int64("group_id", group.ID).
		Str("status", string(status)).
		Int("new", result.MessageCount).
		Int("skipped", result.SkippedCount).
		Int("errors", result.ErrorCount).
		Msg("fetcher: session finished")

	return result, runErr
}

// prepare validates the target group and enforces the group quota for
// groups not tracked yet.
func (s *Service) prepare(ctx context.Context, opts FetchOptions) (*telegram.Group, *FetchError) {
	group, err := s.tg.ResolveGroup(ctx, opts.Group)
	if err != nil {
		if telegram.IsPermissionError(err) || telegram.IsAuthError(err) || telegram.IsTransientError(err) {
			return nil, classifyRemoteError(err)
		}
		return nil, newFetchError(ErrKindValidation, fmt.Sprintf("cannot resolve group %q", opts.Group), err)
	}

	stored, err := s.groups.GetByID(ctx, group.ID)
	if err != nil {
		return nil, newFetchError(ErrKindPersistence, "load tracked group", err)
	}
	if stored == nil {
		allowed, reason, err := s.license.CanAddGroup(ctx)
		if err != nil {
			return nil, newFetchError(ErrKindPersistence, "check group quota", err)
		}
		if !allowed {
			return nil, newFetchError(ErrKindQuota, reason, nil)
		}
	}

	if err := s.groups.Upsert(ctx, &models.Group{
		ID:          group.ID,
		AccessHash:  group.AccessHash,
		Username:    group.Username,
		Title:       group.Title,
		IsForum:     group.IsForum,
		MemberCount: group.MemberCount,
		IsActive:    true,
	}); err != nil {
		return nil, newFetchError(ErrKindPersistence, "save tracked group", err)
	}

	return group, nil
}

// run drives the page loop and returns the terminal status.
func (s *Service) run(ctx context.Context, group *telegram.Group, session *FetchSession) (Status, error) {
	paginator := NewPaginator(s.tg, group, session.StartDate, session.EndDate, s.delay, s.pageSize).
		WithLogger(s.log)
	dedup := NewDedupIndex(s.messages)

	for {
		if ctx.Err() != nil {
			return StatusCancelled, nil
		}

		page, err := paginator.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return StatusCancelled, nil
			}
			fe := AsFetchError(err)
			if fe.IsFatal() {
				return StatusFailed, fe
			}
			// Transient failure after retries: keep the partial result.
			session.ErrorCount++
			s.log.Warn().Err(err).Int64("group_id", group.ID).Msg("fetcher: pagination stopped early")
			return StatusCompleted, nil
		}
		if page == nil {
			return StatusCompleted, nil
		}
		session.EstimatedTotal = paginator.EstimatedTotal()

		for _, raw := range page.Messages {
			if ctx.Err() != nil {
				return StatusCancelled, nil
			}
			s.processMessage(ctx, dedup, group, session, raw, page.Users)
			s.publish(ctx, Event{Type: EventFetchProgress, Payload: ProgressPayload{
				GroupID:        group.ID,
				Processed:      session.ProcessedCount,
				EstimatedTotal: session.EstimatedTotal,
			}})
		}
	}
}

// processMessage handles one raw message: dedup, classify, persist.
// Failures are recorded on the session and reported in the message
// event; they never abort the run.
func (s *Service) processMessage(ctx context.Context, dedup *DedupIndex, group *telegram.Group, session *FetchSession, raw telegram.RawMessage, users map[int64]telegram.RawUser) {
	outcome, err := dedup.Check(ctx, int64(raw.ID), group.ID)
	if err != nil {
		session.RecordError()
		s.publishMessage(ctx, MessagePayload{Error: err.Error()})
		return
	}
	switch outcome {
	case OutcomeExisting:
		session.RecordSkip()
		s.publishMessage(ctx, MessagePayload{Skipped: true})
		return
	case OutcomeExistingDeleted:
		session.RecordSkip()
		s.publishMessage(ctx, MessagePayload{Skipped: true, Deleted: true})
		return
	}

	user := s.persistUser(ctx, raw.FromID, users)

	c := Classify(raw)
	msg := &models.Message{
		MessageID:      int64(raw.ID),
		GroupID:        group.ID,
		UserID:         raw.FromID,
		Content:        raw.Text,
		Caption:        raw.Caption,
		DateSent:       raw.Date,
		HasMedia:       c.HasMedia,
		MediaType:      c.MediaType,
		MediaCount:     c.MediaCount,
		MessageLink:    telegram.BuildMessageLink(group, raw.ID),
		MessageType:    c.MessageType,
		HasSticker:     c.HasSticker,
		StickerEmoji:   c.StickerEmoji,
		HasLink:        c.HasLink,
		Tags:           models.StringList(c.Tags),
		ReactionsCount: raw.ReactionsCount,
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrDuplicateMessage) {
			session.RecordSkip()
			s.publishMessage(ctx, MessagePayload{Message: msg, User: user, Skipped: true})
			return
		}
		session.RecordError()
		s.publishMessage(ctx, MessagePayload{Message: msg, User: user, Error: err.Error()})
		return
	}

	session.RecordMessage(raw.FromID, c.HasMedia, raw.ReactionsCount)
	s.publishMessage(ctx, MessagePayload{Message: msg, User: user})
}

// persistUser upserts the sender when the page carries it. Sender
// persistence is best effort, a failure only logs.
func (s *Service) persistUser(ctx context.Context, fromID int64, users map[int64]telegram.RawUser) *models.User {
	raw, ok := users[fromID]
	if !ok {
		return nil
	}
	user := &models.User{
		ID:        raw.ID,
		Username:  raw.Username,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		IsBot:     raw.Bot,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.log.Warn().Err(err).Int64("user_id", raw.ID).Msg("fetcher: user upsert failed")
	}
	return user
}

func (s *Service) publishMessage(ctx context.Context, payload MessagePayload) {
	s.publish(ctx, Event{Type: EventMessageNew, Payload: payload})
}

// publish delivers an event, swallowing panics from subscribers.
func (s *Service) publish(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("event", event.Type).Msg("fetcher: event subscriber panicked")
		}
	}()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", event.Type).Msg("fetcher: event publish failed")
	}
}
