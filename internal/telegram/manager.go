// Package telegram provides the Telegram MTProto client wrapper.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"gorm.io/gorm"

	"github.com/blockedby/groupwatch/internal/config"
	"github.com/blockedby/groupwatch/internal/logger"
)

// Status represents the Telegram client status.
type Status string

// Status constants define the possible states of the Telegram client.
const (
	StatusInitializing Status = "INITIALIZING"
	StatusReady        Status = "READY"
	StatusUnauthorized Status = "UNAUTHORIZED"
	StatusError        Status = "ERROR"
)

// ClientFactory is a function that creates a telegram client.
type ClientFactory func(ctx context.Context, cfg *config.Config, db *gorm.DB) (*gotgproto.Client, error)

// QRClientFactory is a function that creates a raw telegram client for QR auth.
type QRClientFactory func(cfg *config.Config) (*QRClientBundle, error)

// Manager handles Telegram client lifecycle and authentication.
type Manager struct {
	client *gotgproto.Client
	db     *gorm.DB
	cfg    *config.Config
	log    *logger.Logger

	status Status
	mu     sync.RWMutex

	clientFactory   ClientFactory
	qrClientFactory QRClientFactory

	// QR flow state
	qrInProgress atomic.Bool
	qrCancel     context.CancelFunc
	qrMu         sync.Mutex
}

// NewManager creates a new Telegram Manager.
func NewManager(cfg *config.Config, db *gorm.DB) *Manager {
	return &Manager{
		db:              db,
		cfg:             cfg,
		log:             logger.Get(),
		status:          StatusInitializing,
		clientFactory:   NewPersistentClient,
		qrClientFactory: NewQRClient,
	}
}

// SetClientFactory allows overriding the client creation logic (e.g. for testing).
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientFactory = f
}

// SetQRClientFactory allows overriding the QR client creation logic (e.g. for testing).
func (m *Manager) SetQRClientFactory(f QRClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qrClientFactory = f
}

// GetStatus returns the current Telegram client status.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// GetClient returns the underlying Telegram client, or nil when unauthorized.
func (m *Manager) GetClient() *gotgproto.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Init tries to restore a session from the database.
// An empty sessions table leaves the manager in UNAUTHORIZED state
// so the app can start without a connected account.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	m.status = StatusInitializing
	m.mu.Unlock()

	var count int64
	if err := m.db.Table("sessions").Count(&count).Error; err != nil {
		m.log.Warn().Err(err).Msg("telegram: failed to check sessions table")
	}

	if count == 0 {
		m.log.Info().Msg("telegram: no session in database, waiting for auth")
		m.mu.Lock()
		m.status = StatusUnauthorized
		m.mu.Unlock()
		return nil
	}

	client, err := m.clientFactory(ctx, m.cfg, m.db)
	if err != nil {
		m.log.Warn().Err(err).Msg("telegram: failed to initialize persistent client, switching to unauthorized mode")
		m.mu.Lock()
		m.status = StatusUnauthorized
		m.mu.Unlock()
		return nil // keep the app running
	}

	m.mu.Lock()
	m.client = client
	m.status = StatusReady
	m.mu.Unlock()

	m.log.Info().Msg("telegram: client is ready")
	return nil
}

// IsQRInProgress returns true if a QR login flow is currently in progress.
func (m *Manager) IsQRInProgress() bool {
	return m.qrInProgress.Load()
}

// StartQR starts the QR login flow.
// Blocks until login succeeds or the context is canceled.
// Returns an error immediately if a QR flow is already in progress.
func (m *Manager) StartQR(ctx context.Context, onQRCode func(url string)) error {
	m.mu.Lock()
	if m.status == StatusReady {
		m.mu.Unlock()
		return fmt.Errorf("already logged in")
	}
	m.mu.Unlock()

	m.qrMu.Lock()
	if m.qrInProgress.Load() {
		m.qrMu.Unlock()
		m.log.Info().Msg("telegram: QR flow already in progress, ignoring new request")
		return fmt.Errorf("QR login already in progress")
	}

	qrCtx, cancel := context.WithCancel(ctx)
	m.qrCancel = cancel
	m.qrInProgress.Store(true)
	m.qrMu.Unlock()

	defer func() {
		m.qrInProgress.Store(false)
		m.qrMu.Lock()
		if m.qrCancel != nil {
			m.qrCancel()
			m.qrCancel = nil
		}
		m.qrMu.Unlock()
	}()

	bundle, err := m.qrClientFactory(m.cfg)
	if err != nil {
		return fmt.Errorf("create QR client: %w", err)
	}

	var authErr error
	var sessionData *session.Data

	// client.Run blocks until the context is canceled or the function returns
	err = bundle.Client.Run(qrCtx, func(ctx context.Context) error {
		qr := bundle.Client.QR()
		loggedIn := qrlogin.OnLoginToken(&bundle.Dispatcher)

		_, authErr = qr.Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			m.log.Info().Str("url", token.URL()).Msg("telegram: QR token generated")
			onQRCode(token.URL())
			return nil
		})

		if authErr != nil {
			return authErr
		}

		m.log.Info().Msg("telegram: QR auth success, capturing session")
		loader := session.Loader{Storage: bundle.Storage}
		sessionData, authErr = loader.Load(ctx)
		return authErr
	})

	if err != nil || authErr != nil {
		if errors.Is(err, context.Canceled) || errors.Is(authErr, context.Canceled) {
			return context.Canceled
		}
		return fmt.Errorf("QR auth flow failed: %w", errors.Join(err, authErr))
	}

	if sessionData == nil {
		return fmt.Errorf("session data is nil after successful auth")
	}

	m.log.Info().Msg("telegram: saving session to database")
	if err := m.saveSessionToDB(sessionData); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	// reinitialize with the new session (creates the persistent gotgproto client)
	return m.Init(ctx)
}

// CancelQR cancels any ongoing QR login flow.
func (m *Manager) CancelQR() {
	m.qrMu.Lock()
	defer m.qrMu.Unlock()

	if m.qrCancel != nil {
		m.log.Info().Msg("telegram: canceling ongoing QR flow")
		m.qrCancel()
		m.qrCancel = nil
	}
	m.qrInProgress.Store(false)
}

func (m *Manager) saveSessionToDB(data *session.Data) error {
	sess, err := toStorageSession(data)
	if err != nil {
		return err
	}

	// a fresh database has no sessions table yet
	if err := m.db.AutoMigrate(sess); err != nil {
		return fmt.Errorf("migrate sessions table: %w", err)
	}

	// storage.Session's primary key is a fixed version, so Save upserts
	return m.db.Save(sess).Error
}

// Stop stops the Telegram client.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Stop()
	}
}
