// Package subscriptions is the client-side subscription store. It keeps a
// device-persisted collection of records and reconciles it with an optional
// cloud store: local records are uploaded once, then the server wins.
//
// Local state is authoritative for display. Cloud add and update change local
// state only after the server answered; cloud delete drops the record locally
// whatever the server said. Responses are applied in arrival order.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/kv"
	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/reminder"
)

// StorageKey is the device-store key of the persisted collection.
const StorageKey = "subscriptions-storage"

// CloudStore is the remote "subscriptions" table.
type CloudStore interface {
	// Insert stores sub (ID ignored, UserID set) and returns the server row.
	Insert(ctx context.Context, sub model.Subscription) (model.Subscription, error)
	// Update applies patch to a remote row and returns it.
	Update(ctx context.Context, id model.SubscriptionID, patch model.SubscriptionPatch) (model.Subscription, error)
	// Delete removes a remote row.
	Delete(ctx context.Context, id model.SubscriptionID) error
	// List returns every row of userID ordered by renewal date.
	List(ctx context.Context, userID string) ([]model.Subscription, error)
}

// SessionSource tells whether cloud operations are allowed and for whom.
type SessionSource interface {
	UserID() (string, bool)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithReminders sets the reminder scheduler (default: inert).
func WithReminders(r reminder.Scheduler) Option { return func(s *Store) { s.reminders = r } }

type persisted struct {
	Subscriptions []model.Subscription `json:"subscriptions"`
	IsInitialized bool                 `json:"is_initialized"`
	IsSynced      bool                 `json:"is_synced"`
}

// Store owns the subscription collection.
type Store struct {
	kv        kv.Store
	cloud     CloudStore
	sess      SessionSource
	reminders reminder.Scheduler
	log       *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	subs        []model.Subscription
	loading     int
	lastErr     string
	initialized bool
	synced      bool
	migrating   bool
	version     uint64

	pmu     sync.Mutex
	written uint64
}

// New constructs a Store. cloud may be nil for an offline-only client.
func New(store kv.Store, cloud CloudStore, sess SessionSource, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		kv:    store,
		cloud: cloud,
		sess:  sess,
		log:   log,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.reminders == nil {
		s.reminders = reminder.NewNoop(log)
	}
	return s
}

// Load restores the persisted collection and flags.
func (s *Store) Load(ctx context.Context) error {
	var p persisted
	found, err := kv.GetJSON(ctx, s.kv, StorageKey, &p)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	if !found {
		return nil
	}
	s.mu.Lock()
	s.subs = p.Subscriptions
	s.initialized = p.IsInitialized
	s.synced = p.IsSynced
	s.mu.Unlock()
	return nil
}

// ---- local operations (never fail) ----

// AddLocal creates an on-device record.
func (s *Store) AddLocal(ctx context.Context, in model.CreateSubscriptionInput) model.Subscription {
	sub := s.newRecord(in)
	sub.ID = model.NewLocalID()

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.schedule(ctx, sub)
	return sub.Clone()
}

// UpdateLocal patches a record in place. It reports false if id is unknown.
func (s *Store) UpdateLocal(ctx context.Context, id model.SubscriptionID, patch model.SubscriptionPatch) (model.Subscription, bool) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Subscription{}, false
	}
	upd := patch.Apply(s.subs[i])
	upd.UpdatedAt = s.now().UTC()
	s.subs[i] = upd
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return upd.Clone(), true
}

// DeleteLocal removes a record. It reports false if id is unknown.
func (s *Store) DeleteLocal(ctx context.Context, id model.SubscriptionID) bool {
	s.cancel(ctx, id)

	s.mu.Lock()
	if !s.removeLocked(id) {
		s.mu.Unlock()
		return false
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return true
}

// ---- cloud operations ----

// AddCloud inserts a record into the cloud store for the session user and
// appends the server row.
func (s *Store) AddCloud(ctx context.Context, in model.CreateSubscriptionInput) (model.Subscription, error) {
	userID, ok := s.userID()
	if !ok {
		return model.Subscription{}, s.fail(errs.ErrUnauthenticated)
	}
	s.begin()

	sub := s.newRecord(in)
	sub.UserID = userID
	created, err := s.cloud.Insert(ctx, sub)
	if err != nil {
		return model.Subscription{}, s.end(fmt.Errorf("add subscription: %w", err))
	}

	s.mu.Lock()
	s.subs = append(s.subs, created)
	snap := s.commitLocked()
	s.mu.Unlock()
	s.end(nil)

	s.persist(ctx, snap)
	s.schedule(ctx, created)
	return created.Clone(), nil
}

// UpdateCloud patches a remote record. Local and demo ids are refused.
func (s *Store) UpdateCloud(ctx context.Context, id model.SubscriptionID, patch model.SubscriptionPatch) (model.Subscription, error) {
	if id.IsLocal() {
		return model.Subscription{}, fmt.Errorf("update %s: %w", id, errs.ErrLocalRecord)
	}
	if _, ok := s.userID(); !ok {
		return model.Subscription{}, s.fail(errs.ErrUnauthenticated)
	}
	s.begin()

	updated, err := s.cloud.Update(ctx, id, patch)
	if err != nil {
		return model.Subscription{}, s.end(fmt.Errorf("update subscription: %w", err))
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.subs[i] = updated
	}
	snap := s.commitLocked()
	s.mu.Unlock()
	s.end(nil)

	s.persist(ctx, snap)
	return updated.Clone(), nil
}

// DeleteCloud deletes a remote record. Reminders are cancelled and the record
// leaves local state whatever the remote outcome; a remote failure is still
// returned and recorded. Local and demo ids are refused.
func (s *Store) DeleteCloud(ctx context.Context, id model.SubscriptionID) error {
	if id.IsLocal() {
		return fmt.Errorf("delete %s: %w", id, errs.ErrLocalRecord)
	}
	s.begin()
	s.cancel(ctx, id)

	var err error
	if _, ok := s.userID(); !ok {
		err = errs.ErrUnauthenticated
	} else {
		err = s.cloud.Delete(ctx, id)
	}

	s.mu.Lock()
	s.removeLocked(id)
	snap := s.commitLocked()
	s.mu.Unlock()
	s.persist(ctx, snap)

	if err != nil {
		return s.end(fmt.Errorf("delete subscription: %w", err))
	}
	s.end(nil)
	return nil
}

// ---- routing by namespace ----

// Add writes to the cloud when a session exists, locally otherwise.
func (s *Store) Add(ctx context.Context, in model.CreateSubscriptionInput) (model.Subscription, error) {
	if _, ok := s.userID(); ok {
		return s.AddCloud(ctx, in)
	}
	return s.AddLocal(ctx, in), nil
}

// Update sends remote records to the cloud when a session exists and patches
// everything else locally.
func (s *Store) Update(ctx context.Context, id model.SubscriptionID, patch model.SubscriptionPatch) (model.Subscription, error) {
	if _, ok := s.userID(); ok && !id.IsLocal() {
		return s.UpdateCloud(ctx, id, patch)
	}
	sub, ok := s.UpdateLocal(ctx, id, patch)
	if !ok {
		return model.Subscription{}, fmt.Errorf("update %s: %w", id, errs.ErrNotFound)
	}
	return sub, nil
}

// Delete removes local records locally, remote ones through the cloud when a
// session exists, and remote ones without a session from local state only.
func (s *Store) Delete(ctx context.Context, id model.SubscriptionID) error {
	if _, ok := s.userID(); ok && !id.IsLocal() {
		return s.DeleteCloud(ctx, id)
	}
	if !s.DeleteLocal(ctx, id) {
		return fmt.Errorf("delete %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// ---- seeding, migration and sync ----

type demoRecord struct {
	key      string
	name     string
	price    string
	category model.Category
	inDays   int
}

var demoRecords = []demoRecord{
	{"1", "Netflix", "15.99", model.CategoryStreaming, 8},
	{"2", "Spotify", "9.99", model.CategoryMusic, 3},
	{"3", "Figma", "12.00", model.CategoryDesign, 18},
}

// InitWithDemoData seeds the demo records on first run. It does nothing once
// seeded or when any record exists, and reports whether it seeded.
func (s *Store) InitWithDemoData(ctx context.Context) bool {
	s.mu.Lock()
	if s.initialized || len(s.subs) > 0 {
		s.mu.Unlock()
		return false
	}
	now := s.now().UTC()
	today := model.DateOf(s.now())
	for _, d := range demoRecords {
		s.subs = append(s.subs, model.Subscription{
			ID:           model.DemoID(d.key),
			Name:         d.name,
			Price:        decimal.RequireFromString(d.price),
			Currency:     model.USD,
			RenewalDate:  today.AddDays(d.inDays),
			Category:     d.category,
			IsActive:     true,
			ReminderDays: append([]int(nil), model.DefaultReminderDays...),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	s.initialized = true
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return true
}

// DroppedRecord is a local record whose upload failed during migration.
type DroppedRecord struct {
	Record model.Subscription
	Err    error
}

// MigrationReport describes one migration run.
type MigrationReport struct {
	Skipped  bool
	Uploaded []model.Subscription
	Dropped  []DroppedRecord
}

// MigrateLocalToCloud uploads every local and demo record for userID once.
// The collection is then replaced by the server rows. Records whose upload
// failed are not kept: they are listed in the report, logged, and reported as
// errs.ErrMigrationIncomplete.
func (s *Store) MigrateLocalToCloud(ctx context.Context, userID string) (MigrationReport, error) {
	s.mu.Lock()
	if s.synced || s.migrating {
		s.mu.Unlock()
		return MigrationReport{Skipped: true}, nil
	}
	var local []model.Subscription
	for _, sub := range s.subs {
		if sub.ID.IsLocal() {
			local = append(local, sub.Clone())
		}
	}
	if len(local) == 0 {
		s.synced = true
		snap := s.commitLocked()
		s.mu.Unlock()
		s.persist(ctx, snap)
		return MigrationReport{}, nil
	}
	if s.cloud == nil {
		s.mu.Unlock()
		return MigrationReport{}, s.fail(errors.New("cloud store not configured"))
	}
	s.migrating = true
	s.mu.Unlock()
	s.begin()

	var rep MigrationReport
	for _, sub := range local {
		up := sub
		up.ID = model.SubscriptionID{}
		up.UserID = userID
		created, err := s.cloud.Insert(ctx, up)
		if err != nil {
			s.log.Warn("migration dropped local record",
				zap.Stringer("id", sub.ID), zap.String("name", sub.Name), zap.Error(err))
			rep.Dropped = append(rep.Dropped, DroppedRecord{Record: sub, Err: err})
			continue
		}
		rep.Uploaded = append(rep.Uploaded, created)
	}

	s.mu.Lock()
	s.subs = make([]model.Subscription, 0, len(rep.Uploaded))
	for _, sub := range rep.Uploaded {
		s.subs = append(s.subs, sub.Clone())
	}
	s.synced = true
	s.migrating = false
	snap := s.commitLocked()
	s.mu.Unlock()
	s.persist(ctx, snap)

	for _, sub := range local {
		s.cancel(ctx, sub.ID)
	}
	for _, sub := range rep.Uploaded {
		s.schedule(ctx, sub)
	}

	s.log.Info("migrated local records",
		zap.Int("uploaded", len(rep.Uploaded)), zap.Int("dropped", len(rep.Dropped)))
	if len(rep.Dropped) > 0 {
		return rep, s.end(fmt.Errorf("%w: %d of %d records not uploaded",
			errs.ErrMigrationIncomplete, len(rep.Dropped), len(local)))
	}
	s.end(nil)
	return rep, nil
}

// SyncOutcome tells what SyncWithCloud did.
type SyncOutcome int

// Sync outcomes.
const (
	// SyncSkipped: no session, local data stands.
	SyncSkipped SyncOutcome = iota
	// SyncMigrated: local records were uploaded; no fetch was made.
	SyncMigrated
	// SyncFetched: the collection was replaced by the server list.
	SyncFetched
)

func (o SyncOutcome) String() string {
	switch o {
	case SyncMigrated:
		return "migrated"
	case SyncFetched:
		return "fetched"
	default:
		return "skipped"
	}
}

// SyncWithCloud reconciles with the cloud store. Without a session it does
// nothing. Before the first migration with local records present it migrates
// and returns; callers wanting fresh data call it again. Otherwise it replaces
// the collection with the server list ordered by renewal date.
func (s *Store) SyncWithCloud(ctx context.Context) (SyncOutcome, error) {
	userID, ok := s.userID()
	if !ok {
		return SyncSkipped, nil
	}

	s.mu.RLock()
	needMigration := !s.synced && s.hasLocalLocked()
	s.mu.RUnlock()
	if needMigration {
		_, err := s.MigrateLocalToCloud(ctx, userID)
		return SyncMigrated, err
	}

	s.begin()
	list, err := s.cloud.List(ctx, userID)
	if err != nil {
		return SyncFetched, s.end(fmt.Errorf("fetch subscriptions: %w", err))
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].RenewalDate.Before(list[j].RenewalDate) })

	s.mu.Lock()
	s.subs = list
	snap := s.commitLocked()
	s.mu.Unlock()
	s.end(nil)

	s.persist(ctx, snap)
	return SyncFetched, nil
}

// ResetSync clears the migration guard so records created while signed out
// are uploaded on the next sign-in.
func (s *Store) ResetSync(ctx context.Context) {
	s.mu.Lock()
	s.synced = false
	snap := s.commitLocked()
	s.mu.Unlock()
	s.persist(ctx, snap)
}

// ---- queries ----

// Get returns the record with id.
func (s *Store) Get(id model.SubscriptionID) (model.Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.subs[i].Clone(), true
	}
	return model.Subscription{}, false
}

// All returns every record in collection order.
func (s *Store) All() []model.Subscription {
	return s.filter(func(model.Subscription) bool { return true })
}

// Active returns the active records.
func (s *Store) Active() []model.Subscription {
	return s.filter(func(sub model.Subscription) bool { return sub.IsActive })
}

// ExpiringWithin returns active records renewing between today and
// today+days inclusive.
func (s *Store) ExpiringWithin(days int) []model.Subscription {
	today := model.DateOf(s.now())
	until := today.AddDays(days)
	return s.filter(func(sub model.Subscription) bool {
		return sub.IsActive && !sub.RenewalDate.Before(today) && !sub.RenewalDate.After(until)
	})
}

// BurnRate sums the monthly price of active records in currency.
func (s *Store) BurnRate(currency model.Currency) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, sub := range s.subs {
		if sub.IsActive && sub.Currency == currency {
			total = total.Add(sub.Price)
		}
	}
	return total
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// IsLoading reports whether a cloud operation is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// LastError returns the message of the last failed cloud operation, or "".
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsInitialized reports whether demo data was seeded.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// IsSynced reports whether local records were migrated.
func (s *Store) IsSynced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synced
}

// ---- helpers ----

func (s *Store) newRecord(in model.CreateSubscriptionInput) model.Subscription {
	now := s.now().UTC()
	return model.Subscription{
		Name:         in.Name,
		Price:        in.Price,
		Currency:     in.Currency,
		RenewalDate:  in.RenewalDate,
		Category:     in.Category.OrDefault(),
		Notes:        in.Notes,
		IsActive:     true,
		ReminderDays: append([]int(nil), model.DefaultReminderDays...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Store) userID() (string, bool) {
	if s.sess == nil || s.cloud == nil {
		return "", false
	}
	return s.sess.UserID()
}

func (s *Store) filter(keep func(model.Subscription) bool) []model.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if keep(sub) {
			out = append(out, sub.Clone())
		}
	}
	return out
}

func (s *Store) indexLocked(id model.SubscriptionID) int {
	for i := range s.subs {
		if s.subs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(id model.SubscriptionID) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.subs = append(s.subs[:i], s.subs[i+1:]...)
	return true
}

func (s *Store) hasLocalLocked() bool {
	for _, sub := range s.subs {
		if sub.ID.IsLocal() {
			return true
		}
	}
	return false
}

// begin marks a cloud operation as started and clears the last error.
func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.lastErr = ""
	s.mu.Unlock()
}

// end finishes a cloud operation, recording err if non-nil, and returns err.
func (s *Store) end(err error) error {
	s.mu.Lock()
	if s.loading > 0 {
		s.loading--
	}
	if err != nil {
		s.lastErr = err.Error()
	}
	s.mu.Unlock()
	return err
}

// fail records err for an operation that never started.
func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	return err
}

type snapshot struct {
	version uint64
	data    persisted
}

func (s *Store) commitLocked() snapshot {
	s.version++
	subs := make([]model.Subscription, len(s.subs))
	for i := range s.subs {
		subs[i] = s.subs[i].Clone()
	}
	return snapshot{
		version: s.version,
		data:    persisted{Subscriptions: subs, IsInitialized: s.initialized, IsSynced: s.synced},
	}
}

// persist writes snap unless a newer snapshot was already written.
func (s *Store) persist(ctx context.Context, snap snapshot) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if snap.version <= s.written {
		return
	}
	if err := kv.SetJSON(ctx, s.kv, StorageKey, snap.data); err != nil {
		s.log.Warn("persist subscriptions", zap.Error(err))
		return
	}
	s.written = snap.version
}

func (s *Store) schedule(ctx context.Context, sub model.Subscription) {
	if err := s.reminders.Schedule(ctx, sub, sub.ReminderDays); err != nil {
		s.log.Warn("schedule reminders", zap.Stringer("id", sub.ID), zap.Error(err))
	}
}

func (s *Store) cancel(ctx context.Context, id model.SubscriptionID) {
	if err := s.reminders.Cancel(ctx, id); err != nil {
		s.log.Warn("cancel reminders", zap.Stringer("id", id), zap.Error(err))
	}
}
