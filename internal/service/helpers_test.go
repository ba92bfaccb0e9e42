package service

import (
	"bitwise74/dropgate/db"
	"bitwise74/dropgate/internal/storage"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testEpoch = time.UnixMilli(1_700_000_000_000)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.t = f.t.Add(d)
}

// newTestDB opens a private in-memory sqlite database for the test
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())

	conn, err := db.New("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := conn.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return conn
}

type testEnv struct {
	db       *gorm.DB
	store    *flakyStore
	clock    *fakeClock
	registry *Registry
}

func newTestEnv(t *testing.T, slugs SlugConfig) *testEnv {
	t.Helper()

	env := &testEnv{
		db:    newTestDB(t),
		store: &flakyStore{ObjectStore: storage.NewMemStore()},
		clock: &fakeClock{t: testEpoch},
	}
	env.registry = NewRegistry(env.db, env.store, slugs, env.clock.Now)

	return env
}

func (e *testEnv) upload(t *testing.T, nf NewFile) string {
	t.Helper()

	if nf.Body == nil {
		nf.Body = strings.NewReader("hello")
		nf.Size = 5
	}
	if nf.Name == "" {
		nf.Name = "hello.txt"
	}

	rec, err := e.registry.Create(context.Background(), nf)
	require.NoError(t, err)

	return rec.ID
}

var errInjected = errors.New("injected failure")

// flakyStore wraps an ObjectStore and fails selected operations on demand
type flakyStore struct {
	storage.ObjectStore

	mu         sync.Mutex
	failPut    bool
	failDelete bool
	puts       int
}

func (s *flakyStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	s.puts++
	fail := s.failPut
	s.mu.Unlock()

	if fail {
		return errInjected
	}

	return s.ObjectStore.Put(ctx, key, body, size, contentType)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failDelete
	s.mu.Unlock()

	if fail {
		return errInjected
	}

	return s.ObjectStore.Delete(ctx, key)
}

func (s *flakyStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.puts
}
