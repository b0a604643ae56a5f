// Package settings holds user preferences persisted to the device store.
package settings

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/kv"
	"github.com/and161185/subtrack/internal/model"
)

// StorageKey is the device-store key of the persisted settings.
const StorageKey = "settings-storage"

// Store owns the preferences. Every mutation is persisted; a failed write is
// logged and the in-memory value stays.
type Store struct {
	kv  kv.Store
	log *zap.Logger

	mu      sync.RWMutex
	s       model.Settings
	version uint64

	pmu     sync.Mutex
	written uint64
}

type snapshot struct {
	version uint64
	data    model.Settings
}

// New returns a Store holding the defaults.
func New(store kv.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: store, log: log, s: model.DefaultSettings()}
}

// Load replaces the in-memory settings with the persisted ones, if any.
// Fields missing from the stored blob keep their defaults.
func (st *Store) Load(ctx context.Context) error {
	loaded := model.DefaultSettings()
	found, err := kv.GetJSON(ctx, st.kv, StorageKey, &loaded)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return nil
	}
	if !loaded.Language.Valid() {
		loaded.Language = model.LangEnglish
	}
	if !loaded.Currency.Valid() {
		loaded.Currency = model.USD
	}
	if !loaded.Theme.Valid() {
		loaded.Theme = model.ThemeSystem
	}
	st.mu.Lock()
	st.s = loaded
	st.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (st *Store) Get() model.Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// SetLanguage changes the UI language.
func (st *Store) SetLanguage(ctx context.Context, l model.Language) error {
	return st.Apply(ctx, model.SettingsPatch{Language: &l})
}

// SetCurrency changes the display currency.
func (st *Store) SetCurrency(ctx context.Context, c model.Currency) error {
	return st.Apply(ctx, model.SettingsPatch{Currency: &c})
}

// SetTheme changes the theme mode.
func (st *Store) SetTheme(ctx context.Context, t model.ThemeMode) error {
	return st.Apply(ctx, model.SettingsPatch{Theme: &t})
}

// SetPushNotifications toggles push notifications.
func (st *Store) SetPushNotifications(ctx context.Context, on bool) {
	_ = st.Apply(ctx, model.SettingsPatch{PushNotifications: &on})
}

// SetEmailNotifications toggles email notifications.
func (st *Store) SetEmailNotifications(ctx context.Context, on bool) {
	_ = st.Apply(ctx, model.SettingsPatch{EmailNotifications: &on})
}

// SetPro toggles the Pro tier.
func (st *Store) SetPro(ctx context.Context, on bool) {
	_ = st.Apply(ctx, model.SettingsPatch{IsPro: &on})
}

// Apply merges a partial update in one persisted write. Unknown enum values
// reject the whole patch.
func (st *Store) Apply(ctx context.Context, p model.SettingsPatch) error {
	if p.Language != nil && !p.Language.Valid() {
		return fmt.Errorf("%w: unknown language %q", errs.ErrValidation, *p.Language)
	}
	if p.Currency != nil && !p.Currency.Valid() {
		return fmt.Errorf("%w: unknown currency %q", errs.ErrValidation, *p.Currency)
	}
	if p.Theme != nil && !p.Theme.Valid() {
		return fmt.Errorf("%w: unknown theme %q", errs.ErrValidation, *p.Theme)
	}

	st.mu.Lock()
	s := st.s
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.PushNotifications != nil {
		s.PushNotifications = *p.PushNotifications
	}
	if p.EmailNotifications != nil {
		s.EmailNotifications = *p.EmailNotifications
	}
	if p.IsPro != nil {
		s.IsPro = *p.IsPro
	}
	st.s = s
	snap := st.commitLocked()
	st.mu.Unlock()

	st.persist(ctx, snap)
	return nil
}

func (st *Store) commitLocked() snapshot {
	st.version++
	return snapshot{version: st.version, data: st.s}
}

// persist writes snap unless a newer snapshot was already written.
func (st *Store) persist(ctx context.Context, snap snapshot) {
	st.pmu.Lock()
	defer st.pmu.Unlock()
	if snap.version <= st.written {
		return
	}
	if err := kv.SetJSON(ctx, st.kv, StorageKey, snap.data); err != nil {
		st.log.Warn("persist settings", zap.Error(err))
		return
	}
	st.written = snap.version
}
