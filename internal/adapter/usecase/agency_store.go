package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"agency-hub/internal/core/domain"
	"agency-hub/internal/core/port"
)

const (
	// StateKey is the backing store key holding the agency document.
	StateKey = "agency-state-v1"
	// QuotaOverrideKey lifts the account quota when it holds "1".
	QuotaOverrideKey = "agency-account-quota-override"

	defaultHydrateTimeout = 5 * time.Second
)

// AgencyStore is the observable domain store. It implements
// port.AgencyUseCase on top of a backing store: the document is hydrated
// once, every action persists the whole new document before notifying
// listeners, and changes written by other contexts replace the local
// document wholesale (last write wins).
//
// Transitions are serialised. Listeners run synchronously on the goroutine
// that caused the transition and may read the snapshot, but must not call
// actions.
type AgencyStore struct {
	storage        port.KeyValueStore
	logger         *slog.Logger
	newID          domain.IDFunc
	maxAccounts    int
	hydrateTimeout time.Duration

	hydrateOnce sync.Once
	stopWatch   func()

	// txMu serialises hydration, actions and external replacements.
	txMu sync.Mutex

	// lastRaw is the encoded document last persisted or adopted; guarded
	// by txMu.
	lastRaw string

	mu        sync.RWMutex
	state     *domain.AgencyState
	listeners map[uint64]func()
	nextID    uint64
}

// AgencyOption customises an AgencyStore.
type AgencyOption func(*AgencyStore)

// WithIDFunc replaces the uuid generator used for new entities.
func WithIDFunc(fn domain.IDFunc) AgencyOption {
	return func(s *AgencyStore) { s.newID = fn }
}

// WithMaxAccounts sets the account quota. A negative value disables it.
func WithMaxAccounts(n int) AgencyOption {
	return func(s *AgencyStore) { s.maxAccounts = n }
}

// WithHydrateTimeout bounds the backing store read performed by implicit
// hydration.
func WithHydrateTimeout(d time.Duration) AgencyOption {
	return func(s *AgencyStore) { s.hydrateTimeout = d }
}

// NewAgencyStore creates a cold store over storage. Nothing is read until
// the first Subscribe, GetSnapshot, action or explicit Hydrate.
func NewAgencyStore(storage port.KeyValueStore, logger *slog.Logger, opts ...AgencyOption) *AgencyStore {
	s := &AgencyStore{
		storage:        storage,
		logger:         logger,
		newID:          uuid.NewString,
		maxAccounts:    1,
		hydrateTimeout: defaultHydrateTimeout,
		state:          domain.DefaultState(),
		listeners:      map[uint64]func(){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted document and starts following changes made
// by other contexts. Only the first call has any effect; a missing or
// malformed document leaves the default in place.
func (s *AgencyStore) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() {
		// Watching starts before the read; changes that race with it queue
		// on txMu and are applied after the hydrated document.
		s.stopWatch = s.storage.Watch(s.applyExternal)

		s.txMu.Lock()
		defer s.txMu.Unlock()

		raw, ok, err := s.storage.Get(ctx, StateKey)
		if err != nil {
			s.logger.Debug("hydrate agency state", slog.Any("error", err))
			return
		}
		if !ok {
			return
		}
		next, err := domain.DecodeState(raw)
		if err != nil {
			s.logger.Debug("hydrate agency state", slog.Any("error", err))
			return
		}
		s.lastRaw = raw
		s.replace(next)
	})
}

// Close stops following external changes.
func (s *AgencyStore) Close() {
	s.txMu.Lock()
	stop := s.stopWatch
	s.stopWatch = nil
	s.txMu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *AgencyStore) ensureHydrated() {
	ctx, cancel := context.WithTimeout(context.Background(), s.hydrateTimeout)
	defer cancel()
	s.Hydrate(ctx)
}

// Subscribe implements port.AgencyUseCase.
func (s *AgencyStore) Subscribe(listener func()) func() {
	s.ensureHydrated()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// GetSnapshot implements port.AgencyUseCase.
func (s *AgencyStore) GetSnapshot() *domain.AgencyState {
	s.ensureHydrated()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// transition applies reduce to the current document. When reduce returns
// a different tree it becomes current, is persisted and listeners are
// notified, in that order.
func (s *AgencyStore) transition(ctx context.Context, reduce func(*domain.AgencyState) *domain.AgencyState) {
	s.ensureHydrated()

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	cur := s.state
	s.mu.RUnlock()

	next := reduce(cur)
	if next == cur {
		return
	}
	s.replace(next)
	s.persist(ctx, next)
	s.emit()
}

// applyExternal adopts the document written by another context. The
// change only signals that the key moved: the current durable value is
// re-read under txMu, so a notification that arrives after this context's
// own later write cannot roll it back. Removed or malformed documents are
// ignored and the current state is kept.
func (s *AgencyStore) applyExternal(ch port.Change) {
	if ch.Key != StateKey {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.hydrateTimeout)
	defer cancel()

	s.txMu.Lock()
	defer s.txMu.Unlock()

	raw, ok, err := s.storage.Get(ctx, StateKey)
	if err != nil {
		s.logger.Debug("re-read agency state", slog.Any("error", err))
		raw, ok = ch.Value, ch.Present
	}
	if !ok || raw == s.lastRaw {
		return
	}
	next, err := domain.DecodeState(raw)
	if err != nil {
		s.logger.Debug("ignore external agency state", slog.Any("error", err))
		return
	}
	s.lastRaw = raw
	s.replace(next)
	s.emit()
}

func (s *AgencyStore) replace(next *domain.AgencyState) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// persist writes the document through. Failures are logged and dropped:
// the in-memory document stays authoritative for this context.
func (s *AgencyStore) persist(ctx context.Context, st *domain.AgencyState) {
	raw, err := domain.EncodeState(st)
	if err == nil {
		err = s.storage.Set(ctx, StateKey, raw)
	}
	if err != nil {
		s.logger.Debug("persist agency state", slog.Any("error", err))
		return
	}
	s.lastRaw = raw
}

func (s *AgencyStore) emit() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// AssignCampaign implements port.AgencyUseCase. It reports false, leaving
// the document untouched, when the campaign does not exist or managerID is
// neither a current manager nor the administrator sentinel.
func (s *AgencyStore) AssignCampaign(ctx context.Context, campaignID, managerID string) bool {
	var ok bool
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		if _, found := cur.CampaignByID(campaignID); !found || !cur.IsOwner(managerID) {
			return cur
		}
		ok = true
		return domain.AssignCampaign(cur, campaignID, managerID)
	})
	return ok
}

// RemoveCampaignFromManager implements port.AgencyUseCase.
func (s *AgencyStore) RemoveCampaignFromManager(ctx context.Context, campaignID string) {
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		return domain.RemoveCampaignFromManager(cur, campaignID)
	})
}

// AssignAccount implements port.AgencyUseCase with the same validation as
// AssignCampaign, applied to every campaign of the account at once.
func (s *AgencyStore) AssignAccount(ctx context.Context, accountID, managerID string) bool {
	var ok bool
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		if _, found := cur.AccountByID(accountID); !found || !cur.IsOwner(managerID) {
			return cur
		}
		ok = true
		return domain.AssignAccount(cur, accountID, managerID)
	})
	return ok
}

// RemoveFromManager implements port.AgencyUseCase.
func (s *AgencyStore) RemoveFromManager(ctx context.Context, accountID string) {
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		return domain.RemoveFromManager(cur, accountID)
	})
}

// DeleteManager implements port.AgencyUseCase.
func (s *AgencyStore) DeleteManager(ctx context.Context, managerID string) {
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		return domain.DeleteManager(cur, managerID)
	})
}

// AddManager implements port.AgencyUseCase.
func (s *AgencyStore) AddManager(ctx context.Context, name string) *domain.Manager {
	var added *domain.Manager
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		next, m, ok := domain.AddManager(cur, name, s.newID)
		if ok {
			added = &m
		}
		return next
	})
	return added
}

// RenameManager implements port.AgencyUseCase.
func (s *AgencyStore) RenameManager(ctx context.Context, managerID, name string) port.RenameResult {
	var reason domain.RenameReason
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		var next *domain.AgencyState
		next, reason = domain.RenameManager(cur, managerID, name)
		return next
	})
	if reason != "" {
		return port.RenameResult{Reason: reason}
	}
	return port.RenameResult{OK: true}
}

// AddAiAccount implements port.AgencyUseCase.
func (s *AgencyStore) AddAiAccount(ctx context.Context) *domain.Account {
	return s.addAccount(ctx, "AI account")
}

// AddOwnAccount implements port.AgencyUseCase.
func (s *AgencyStore) AddOwnAccount(ctx context.Context) *domain.Account {
	return s.addAccount(ctx, "Own account")
}

// addAccount reads the quota override inside the transition so that the
// flag and the account count it is checked against are seen together.
func (s *AgencyStore) addAccount(ctx context.Context, label string) *domain.Account {
	var added *domain.Account
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		limit := s.maxAccounts
		if s.quotaOverridden(ctx) {
			limit = -1
		}
		name := fmt.Sprintf("%s %d", label, len(cur.Accounts)+1)
		next, a, ok := domain.AddAccount(cur, name, limit, s.newID)
		if ok {
			added = &a
		}
		return next
	})
	return added
}

// AddCampaign implements port.AgencyUseCase. An empty name falls back to
// domain.DefaultCampaignName.
func (s *AgencyStore) AddCampaign(ctx context.Context, accountID, name string) *domain.Campaign {
	var added *domain.Campaign
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		next, c, ok := domain.AddCampaign(cur, accountID, name, s.newID)
		if ok {
			added = &c
		}
		return next
	})
	return added
}

// DeleteCampaign implements port.AgencyUseCase.
func (s *AgencyStore) DeleteCampaign(ctx context.Context, campaignID string) bool {
	var deleted bool
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		next := domain.DeleteCampaign(cur, campaignID)
		deleted = next != cur
		return next
	})
	return deleted
}

// SetCampaignStatus implements port.AgencyUseCase.
func (s *AgencyStore) SetCampaignStatus(ctx context.Context, campaignID string, status domain.CampaignStatus) bool {
	var ok bool
	s.transition(ctx, func(cur *domain.AgencyState) *domain.AgencyState {
		if _, found := cur.CampaignByID(campaignID); !found || !status.Valid() {
			return cur
		}
		ok = true
		return domain.SetCampaignStatus(cur, campaignID, status)
	})
	return ok
}

// SetQuotaOverride persists or clears the flag lifting the account quota.
// It waits for any transition in flight.
func (s *AgencyStore) SetQuotaOverride(ctx context.Context, enabled bool) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if enabled {
		return s.storage.Set(ctx, QuotaOverrideKey, "1")
	}
	return s.storage.Remove(ctx, QuotaOverrideKey)
}

func (s *AgencyStore) quotaOverridden(ctx context.Context) bool {
	v, ok, err := s.storage.Get(ctx, QuotaOverrideKey)
	if err != nil {
		s.logger.Debug("read quota override", slog.Any("error", err))
		return false
	}
	return ok && v == "1"
}
