package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/kv"
	"github.com/and161185/subtrack/internal/model"
)

type failingKV struct{ *kv.Memory }

func (f *failingKV) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestStore_DefaultsAndPersistence(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	st := New(mem, zaptest.NewLogger(t))
	require.NoError(t, st.Load(ctx))
	require.Equal(t, model.DefaultSettings(), st.Get())

	require.NoError(t, st.SetLanguage(ctx, model.LangFrench))
	require.NoError(t, st.SetCurrency(ctx, model.MAD))
	require.NoError(t, st.SetTheme(ctx, model.ThemeDark))
	st.SetPushNotifications(ctx, false)
	st.SetEmailNotifications(ctx, false)
	st.SetPro(ctx, true)

	reloaded := New(mem, zaptest.NewLogger(t))
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, model.Settings{
		Language: model.LangFrench,
		Currency: model.MAD,
		Theme:    model.ThemeDark,
		IsPro:    true,
	}, reloaded.Get())
}

func TestStore_RejectsUnknownValues(t *testing.T) {
	ctx := context.Background()
	st := New(kv.NewMemory(), nil)

	err := st.SetLanguage(ctx, "de")
	require.True(t, errors.Is(err, errs.ErrValidation))
	require.Error(t, st.SetCurrency(ctx, "GBP"))
	require.Error(t, st.SetTheme(ctx, "neon"))

	lang := model.LangArabic
	bad := model.Currency("JPY")
	require.Error(t, st.Apply(ctx, model.SettingsPatch{Language: &lang, Currency: &bad}))
	require.Equal(t, model.LangEnglish, st.Get().Language, "rejected patch applies nothing")
}

func TestStore_ApplyPartial(t *testing.T) {
	ctx := context.Background()
	st := New(kv.NewMemory(), nil)

	pro := true
	cur := model.EUR
	require.NoError(t, st.Apply(ctx, model.SettingsPatch{IsPro: &pro, Currency: &cur}))
	got := st.Get()
	require.True(t, got.IsPro)
	require.Equal(t, model.EUR, got.Currency)
	require.Equal(t, model.ThemeSystem, got.Theme)
	require.True(t, got.PushNotifications)
}

func TestStore_LoadPartialAndCorrupt(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, StorageKey, []byte(`{"currency":"EUR","theme":"purple"}`)))

	st := New(mem, nil)
	require.NoError(t, st.Load(ctx))
	got := st.Get()
	require.Equal(t, model.EUR, got.Currency)
	require.Equal(t, model.ThemeSystem, got.Theme)
	require.True(t, got.EmailNotifications)

	require.NoError(t, mem.Set(ctx, StorageKey, []byte(`not json`)))
	require.Error(t, New(mem, nil).Load(ctx))
}

func TestStore_PersistFailureKeepsMemoryValue(t *testing.T) {
	ctx := context.Background()
	st := New(&failingKV{Memory: kv.NewMemory()}, zaptest.NewLogger(t))
	st.SetPro(ctx, true)
	require.True(t, st.Get().IsPro)
}

func TestStore_StaleSnapshotNeverOverwritesNewer(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := New(mem, nil)
	require.NoError(t, st.SetTheme(ctx, model.ThemeDark))

	st.mu.Lock()
	stale := st.commitLocked()
	st.mu.Unlock()
	require.NoError(t, st.SetTheme(ctx, model.ThemeLight))
	st.persist(ctx, stale)

	again := New(mem, nil)
	require.NoError(t, again.Load(ctx))
	require.Equal(t, model.ThemeLight, again.Get().Theme)
}

func TestStore_ConcurrentApplyPersistsLatest(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	st := New(mem, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			st.SetPushNotifications(ctx, on)
		}(i%2 == 0)
	}
	wg.Wait()

	again := New(mem, nil)
	require.NoError(t, again.Load(ctx))
	require.Equal(t, st.Get(), again.Get())
}
