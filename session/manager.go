// Package session owns the signed-in identity and the persisted credential.
// It logs in, registers, reconciles the cached identity against the backend
// profile and tears the session down when the backend rejects the credential.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/vendoriq-client/authmodel"
	apperrors "github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/jrsteele09/vendoriq-client/store"
	"github.com/jrsteele09/vendoriq-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Client is the part of the transport gateway the manager calls.
type Client interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// LoginResult describes a successful login. Identity holds only the email
// until the background profile fetch commits.
type LoginResult struct {
	Identity   Identity
	Claims     *token.Claims
	LoggedInAt time.Time
}

// Manager is the single owner of session state. Construct one per process
// and pass it to whatever needs to sign in or read the identity.
type Manager struct {
	store   store.Store
	client  Client
	logger  zerolog.Logger
	nowFunc func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	fetches singleflight.Group
	wg      sync.WaitGroup

	mu        sync.Mutex
	started   bool
	epoch     uint64
	phase     Phase
	identity  *Identity
	loading   bool
	listeners []func(State)

	// pending holds committed states not yet delivered to listeners.
	pending  []State
	draining bool
}

type ManagerOption func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(st store.Store, client Client, options ...ManagerOption) (*Manager, error) {
	if st == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if client == nil {
		return nil, errors.New("[NewManager] client is required")
	}

	m := &Manager{
		store:   st,
		client:  client,
		logger:  log.Logger,
		nowFunc: time.Now,
		phase:   PhaseInitializing,
		loading: true,
	}
	for _, opt := range options {
		opt(m)
	}
	m.baseCtx, m.cancel = context.WithCancel(context.Background())
	return m, nil
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	return State{Phase: m.phase, Identity: m.identity.clone(), Loading: m.loading}
}

// OnChange registers fn to be called after every committed state change.
// Calls are made one at a time in commit order, possibly on the goroutine
// of a later commit.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Wait blocks until every background profile fetch has settled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels in-flight background fetches and waits for them.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// update runs fn under the state lock and, when fn reports a change,
// notifies listeners with the resulting state.
func (m *Manager) update(fn func() bool) {
	m.mu.Lock()
	if fn() {
		m.pending = append(m.pending, m.stateLocked())
	}
	m.mu.Unlock()
	m.deliver()
}

// deliver drains pending states to listeners. Only one goroutine drains at
// a time; a commit made while another goroutine drains is delivered by it.
func (m *Manager) deliver() {
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	for len(m.pending) > 0 {
		next := m.pending[0]
		m.pending = m.pending[1:]
		listeners := append([]func(State){}, m.listeners...)
		m.mu.Unlock()
		for _, l := range listeners {
			l(next)
		}
		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
}

// Start reconciles the session with what the store holds from a previous
// run. With no credential the session becomes anonymous straight away.
// Otherwise the cached identity is exposed at once and the authoritative
// profile is fetched in the background; Loading stays true until that
// fetch settles.
func (m *Manager) Start(ctx context.Context) error {
	var startErr error
	m.update(func() bool {
		if m.started {
			startErr = apperrors.ErrAlreadyStarted
			return false
		}
		m.started = true

		cred, err := token.Load(ctx, m.store)
		var cached *Identity
		if err == nil && cred != nil {
			cached, err = loadCachedIdentity(ctx, m.store)
		}
		if err != nil {
			startErr = errors.Wrap(err, "[Start] failed to read persisted session")
			m.phase, m.identity, m.loading = PhaseAnonymous, nil, false
			return true
		}

		if cred == nil {
			m.phase, m.identity, m.loading = PhaseAnonymous, nil, false
			m.logger.Debug().Msg("[Start] no stored credential")
			return true
		}

		m.phase, m.identity = PhaseAuthenticated, cached
		m.logger.Debug().Str("identity", cached.DisplayName()).Msg("[Start] restored cached identity")
		m.scheduleFetchLocked(true)
		return true
	})
	return startErr
}

// Login exchanges email and password for a credential, persists it with the
// email and returns as soon as the identity {email} is committed. The
// profile is fetched in the background.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)

	var pair authmodel.TokenPair
	err := m.client.Post(ctx, authmodel.PathLogin, authmodel.LoginRequest{Email: email, Password: password}, &pair)
	if err != nil {
		return nil, errors.Wrap(err, "[Login] login request failed")
	}
	if pair.Access == "" {
		return nil, errors.Wrap(apperrors.ErrUnexpectedResponse, "[Login] response carried no access token")
	}

	cred := token.Credential{AccessToken: pair.Access, RefreshToken: pair.Refresh}
	result := &LoginResult{Identity: Identity{Email: email}, LoggedInAt: m.nowFunc()}
	if claims, err := token.Inspect(cred.AccessToken); err == nil {
		result.Claims = claims
	}

	var persistErr error
	m.update(func() bool {
		values := cred.StoreValues()
		values[store.KeyUserEmail] = email
		if err := m.store.Delete(ctx, store.KeyUserFullName, store.KeyUserBusinessName); err != nil {
			persistErr = err
			return false
		}
		if err := m.store.SetMany(ctx, values); err != nil {
			persistErr = err
			return false
		}

		m.skipStartLocked()
		m.epoch++
		m.phase = PhaseAuthenticated
		m.identity = &Identity{Email: email}
		m.scheduleFetchLocked(false)
		return true
	})
	if persistErr != nil {
		return nil, errors.Wrap(persistErr, "[Login] failed to persist credential")
	}

	event := m.logger.Info().Str("email", email)
	if result.Claims != nil {
		event = event.Str("user_id", result.Claims.UserID)
	}
	event.Msg("[Login] signed in")
	return result, nil
}

// Register creates a vendor account. It does not sign in.
func (m *Manager) Register(ctx context.Context, req authmodel.RegisterRequest) (*authmodel.Vendor, error) {
	req.Email = strings.TrimSpace(req.Email)

	var vendor authmodel.Vendor
	if err := m.client.Post(ctx, authmodel.PathRegister, req, &vendor); err != nil {
		return nil, errors.Wrap(err, "[Register] registration request failed")
	}
	m.logger.Info().Str("email", vendor.Email).Int64("vendor_id", vendor.ID).Msg("[Register] vendor created")
	return &vendor, nil
}

// RefreshProfile fetches the profile now and commits it under the same
// rules as the background fetch. A rejected credential ends the session.
func (m *Manager) RefreshProfile(ctx context.Context) (*Identity, error) {
	m.mu.Lock()
	epoch := m.epoch
	fallback := ""
	if m.identity != nil {
		fallback = m.identity.Email
	}
	m.mu.Unlock()

	cred, err := token.Load(ctx, m.store)
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshProfile] failed to read credential")
	}
	if cred == nil {
		return nil, apperrors.ErrNoCredential
	}

	var profile *authmodel.Profile
	select {
	case res := <-m.fetches.DoChan(cred.AccessToken, m.fetchProfile):
		err = res.Err
		if err == nil {
			profile = res.Val.(*authmodel.Profile)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	identity, err := m.settle(epoch, fallback, profile, err, false)
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshProfile] profile not applied")
	}
	return identity, nil
}

// Logout removes the credential and the cached identity together. Calling
// it without a session is harmless.
func (m *Manager) Logout(ctx context.Context) error {
	var err error
	m.update(func() bool {
		before := m.stateLocked()
		m.skipStartLocked()
		err = m.clearLocked(ctx)
		return before.Phase != m.phase || (before.Identity != nil) != (m.identity != nil) || before.Loading != m.loading
	})
	if err != nil {
		return errors.Wrap(err, "[Logout] failed to clear stored session")
	}
	m.logger.Info().Msg("[Logout] signed out")
	return nil
}

// skipStartLocked marks startup reconciliation as done when a login or
// logout happens before Start, since the store no longer reflects a
// previous run.
func (m *Manager) skipStartLocked() {
	if !m.started {
		m.started = true
		m.loading = false
	}
}

// clearLocked removes the session from the store and then from memory,
// advancing the epoch so in-flight fetches become inert. When the store
// delete fails nothing changes: the session stays whole on both sides.
func (m *Manager) clearLocked(ctx context.Context) error {
	if err := m.store.Delete(ctx, store.SessionKeys...); err != nil {
		return err
	}
	m.epoch++
	m.phase = PhaseAnonymous
	m.identity = nil
	return nil
}

// scheduleFetchLocked starts a background profile fetch bound to the
// current epoch.
func (m *Manager) scheduleFetchLocked(startup bool) {
	epoch := m.epoch
	fallback := ""
	if m.identity != nil {
		fallback = m.identity.Email
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		var profile *authmodel.Profile
		cred, err := token.Load(m.baseCtx, m.store)
		switch {
		case err != nil:
		case cred == nil:
			err = apperrors.ErrNoCredential
		default:
			res := <-m.fetches.DoChan(cred.AccessToken, m.fetchProfile)
			err = res.Err
			if err == nil {
				profile = res.Val.(*authmodel.Profile)
			}
		}

		if _, err := m.settle(epoch, fallback, profile, err, startup); err != nil {
			m.logger.Debug().Err(err).Uint64("epoch", epoch).Msg("[fetchProfile] background fetch not applied")
		}
	}()
}

func (m *Manager) fetchProfile() (any, error) {
	var profile authmodel.Profile
	if err := m.client.Get(m.baseCtx, authmodel.PathProfile, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// settle commits the outcome of a profile fetch started at epoch. The
// result is applied only while that epoch is current and a credential is
// still stored. An authorization failure ends the session; any other
// failure leaves it untouched.
func (m *Manager) settle(epoch uint64, fallbackEmail string, profile *authmodel.Profile, fetchErr error, startup bool) (*Identity, error) {
	ctx := context.WithoutCancel(m.baseCtx)

	var identity *Identity
	var err error
	m.update(func() bool {
		changed := false
		if startup && m.loading {
			m.loading = false
			changed = true
		}

		if epoch != m.epoch {
			err = apperrors.ErrStaleEpoch
			return changed
		}
		cred, loadErr := token.Load(ctx, m.store)
		if loadErr != nil {
			err = loadErr
			return changed
		}
		if cred == nil {
			err = apperrors.ErrNoCredential
			return changed
		}

		if fetchErr != nil {
			err = fetchErr
			if !apperrors.Is(fetchErr, apperrors.ErrUnauthorized) {
				m.logger.Warn().Err(fetchErr).Msg("[fetchProfile] keeping session after failed profile fetch")
				return changed
			}
			m.logger.Warn().Err(fetchErr).Msg("[fetchProfile] credential rejected, signing out")
			if clearErr := m.clearLocked(ctx); clearErr != nil {
				m.logger.Error().Err(clearErr).Msg("[fetchProfile] failed to clear stored session")
				return changed
			}
			return true
		}

		identity = identityFromProfile(profile, fallbackEmail)
		if persistErr := persistIdentity(ctx, m.store, identity); persistErr != nil {
			m.logger.Error().Err(persistErr).Msg("[fetchProfile] failed to persist identity")
		}
		m.phase = PhaseAuthenticated
		m.identity = identity
		identity = identity.clone()
		return true
	})
	return identity, err
}
