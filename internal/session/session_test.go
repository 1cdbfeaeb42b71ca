package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/logging"
	"github.com/example/nutriscan/internal/models"
	"github.com/example/nutriscan/internal/profile"
)

type stubCache struct {
	values  map[string]string
	setErrs []error
	getErrs []error
	setKeys []string
	ttls    []time.Duration
}

func newStubCache() *stubCache {
	return &stubCache{values: make(map[string]string)}
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	s.ttls = append(s.ttls, expiration)
	if len(s.setErrs) > 0 {
		err := s.setErrs[0]
		s.setErrs = s.setErrs[1:]
		if err != nil {
			return err
		}
	}
	s.values[key] = value.(string)
	return nil
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	if len(s.getErrs) > 0 {
		err := s.getErrs[0]
		s.getErrs = s.getErrs[1:]
		if err != nil {
			return "", err
		}
	}
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

type transientRedisError struct{}

func (transientRedisError) Error() string   { return "redis transient" }
func (transientRedisError) Timeout() bool   { return true }
func (transientRedisError) Temporary() bool { return true }

func fastStore(cache Cache) *RedisStore {
	store := NewRedisStore(cache, time.Hour, zap.NewNop())
	store.initialBackoff = time.Millisecond
	store.maxBackoff = 2 * time.Millisecond
	return store
}

func TestNewStateDefaults(t *testing.T) {
	s := New("abc")
	if s.ActiveTab != TabScan || s.InputMode != InputUpload || s.Loading {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if s.ProfileFetch != profile.FetchIdle || s.ProfileSave != profile.SaveIdle {
		t.Fatalf("unexpected profile states %+v", s)
	}
	if s.UserID() != "" {
		t.Fatalf("expected no user id, got %q", s.UserID())
	}
}

func TestScanTransitions(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	s, _ := store.Update(ctx, "a", BeginScan())
	if !s.Loading {
		t.Fatal("expected loading after BeginScan")
	}

	s, _ = store.Update(ctx, "a", CompleteScan(models.FailedResult("boom")))
	if s.Loading {
		t.Fatal("expected loading cleared")
	}
	if s.LastResult == nil || s.LastResult.Error != "boom" {
		t.Fatalf("unexpected last result %+v", s.LastResult)
	}
}

func TestProfileTransitions(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	s, _ := store.Update(ctx, "a", SelectTab(TabProfile), BeginProfileFetch())
	if s.ProfileFetch != profile.FetchLoading {
		t.Fatalf("unexpected fetch state %s", s.ProfileFetch)
	}
	s, _ = store.Update(ctx, "a", ProfileLoaded(nil, false))
	if s.ProfileFetch != profile.FetchFailed || s.Profile != nil {
		t.Fatalf("unexpected state after failed fetch %+v", s)
	}

	s, _ = store.Update(ctx, "a", BeginProfileSave(), ProfileSaveFailed("Failed to update profile"))
	if s.ProfileSave != profile.SaveFailed || s.ActiveTab != TabProfile || s.ProfileError == "" {
		t.Fatalf("unexpected state after failed save %+v", s)
	}

	saved := &models.UserProfile{UserID: "u1", Name: "Alex"}
	s, _ = store.Update(ctx, "a", BeginProfileSave(), ProfileSaved(saved))
	if s.ProfileSave != profile.SaveSaved || s.ActiveTab != TabScan || s.ProfileError != "" {
		t.Fatalf("unexpected state after save %+v", s)
	}
	if s.UserID() != "u1" {
		t.Fatalf("expected user id from profile, got %q", s.UserID())
	}

	// A later miss keeps the saved profile.
	s, _ = store.Update(ctx, "a", BeginProfileFetch(), ProfileLoaded(nil, false))
	if s.Profile == nil {
		t.Fatal("failed fetch must not drop the known profile")
	}
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := store.Update(ctx, "a", SelectInputMode(InputCamera)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := store.Get(ctx, "a")
	if s.InputMode != InputCamera {
		t.Fatalf("expected camera mode, got %s", s.InputMode)
	}

	now = now.Add(2 * time.Minute)
	s, _ = store.Get(ctx, "a")
	if s.InputMode != InputUpload {
		t.Fatalf("expected expired session to reset, got %s", s.InputMode)
	}
}

func TestMemoryStoreSweepDropsIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if _, err := store.Update(ctx, fmt.Sprintf("s-%d", i), BeginScan()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	now = now.Add(24 * time.Hour)
	if _, err := store.Update(ctx, "fresh", BeginScan()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := store.Sweep(); n != 1000 {
		t.Fatalf("expected 1000 idle sessions dropped, got %d", n)
	}
	if len(store.sessions) != 1 {
		t.Fatalf("expected only the fresh session left, got %d", len(store.sessions))
	}
	if _, ok := store.sessions["fresh"]; !ok {
		t.Fatal("fresh session was dropped")
	}
}

func TestMemoryStoreSweepWithoutTTLKeepsSessions(t *testing.T) {
	store := NewMemoryStore(0)
	now := time.Now()
	store.now = func() time.Time { return now }

	_, _ = store.Update(context.Background(), "a", BeginScan())
	now = now.Add(24 * time.Hour)

	if n := store.Sweep(); n != 0 || len(store.sessions) != 1 {
		t.Fatalf("expected nothing dropped, got %d (left %d)", n, len(store.sessions))
	}
}

func TestMemoryStoreRunSweeperStopsOnCancel(t *testing.T) {
	store := NewMemoryStore(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = store.Update(ctx, "a", BeginScan())

	done := make(chan struct{})
	go func() {
		store.RunSweeper(ctx, zap.NewNop())
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for {
		store.mu.Lock()
		left := len(store.sessions)
		store.mu.Unlock()
		if left == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweeper never dropped the idle session")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestRedisStoreMissReturnsDefaults(t *testing.T) {
	store := fastStore(newStubCache())

	s, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if s.ID != "missing" || s.ActiveTab != TabScan {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestRedisStoreUpdatePersistsJSON(t *testing.T) {
	cache := newStubCache()
	store := fastStore(cache)
	ctx := context.Background()

	if _, err := store.Update(ctx, "abc", SelectTab(TabHistory), CompleteScan(models.AnalysisResult{Success: true})); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if cache.setKeys[0] != "session:abc" || cache.ttls[0] != time.Hour {
		t.Fatalf("unexpected write %v %v", cache.setKeys, cache.ttls)
	}

	var stored State
	if err := json.Unmarshal([]byte(cache.values["session:abc"]), &stored); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if stored.ActiveTab != TabHistory || stored.LastResult == nil || !stored.LastResult.Success {
		t.Fatalf("unexpected stored state %+v", stored)
	}

	s, err := store.Get(ctx, "abc")
	if err != nil || s.ActiveTab != TabHistory {
		t.Fatalf("unexpected reload %+v, %v", s, err)
	}
}

func TestRedisStoreRetriesTransientSet(t *testing.T) {
	cache := newStubCache()
	cache.setErrs = []error{transientRedisError{}}
	store := fastStore(cache)

	if _, err := store.Update(context.Background(), "abc", BeginScan()); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(cache.setKeys) != 2 || cache.setKeys[0] != cache.setKeys[1] {
		t.Fatalf("expected one retry on the same key, got %v", cache.setKeys)
	}
}

func TestRedisStoreReturnsOperationErrorOnFailure(t *testing.T) {
	cache := newStubCache()
	cache.getErrs = []error{errors.New("boom")}
	store := fastStore(cache)

	_, err := store.Update(context.Background(), "abc", BeginScan())
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "session.get" || opErr.SessionID != "abc" {
		t.Fatalf("unexpected operation error %+v", opErr)
	}
}

func TestRedisStoreDiscardsCorruptState(t *testing.T) {
	cache := newStubCache()
	cache.values["session:abc"] = "{not json"
	s, err := fastStore(cache).Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if s.ActiveTab != TabScan {
		t.Fatalf("expected default state, got %+v", s)
	}
}

func TestParseHelpers(t *testing.T) {
	if ParseInputMode("camera") != InputCamera || ParseInputMode("") != InputUpload {
		t.Fatal("unexpected mode parsing")
	}
}
