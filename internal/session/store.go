// Package session keeps parsed uploads in memory so a report can be
// re-aggregated or exported without uploading the file again.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "callreport/internal/errors"
	"callreport/internal/infrastructure"
	"callreport/internal/spreadsheet"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = apierrors.NewNotFoundError("upload session")

// Upload is a parsed spreadsheet held for one user.
type Upload struct {
	ID         string
	FileName   string
	Table      *spreadsheet.Table
	UploadedAt time.Time
}

type entry struct {
	upload    *Upload
	createdAt time.Time
	expiresAt time.Time
}

// Options configures a Store.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	Logger     *slog.Logger
	Metrics    *infrastructure.BusinessMetrics
}

// Store is a TTL-bound map of session id to Upload. Reading an entry
// extends its lifetime; when full, the oldest entry is evicted.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
	now        func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries:    make(map[string]*entry),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		logger:     logger.With(slog.String("component", "session_store")),
		metrics:    opts.Metrics,
		now:        time.Now,
	}
}

// Put stores a table under a new random id and returns the stored Upload.
func (s *Store) Put(ctx context.Context, fileName string, table *spreadsheet.Table) *Upload {
	now := s.now()
	up := &Upload{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Table:      table,
		UploadedAt: now,
	}

	s.mu.Lock()
	evicted := 0
	for s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if !s.evictOldest() {
			break
		}
		evicted++
	}
	s.entries[up.ID] = &entry{upload: up, createdAt: now, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.DebugContext(ctx, "evicted sessions to make room", slog.Int("count", evicted))
	}
	s.metrics.RecordSessionDelta(ctx, int64(1-evicted))
	return up
}

// Get returns the upload for id and extends its lifetime.
func (s *Store) Get(ctx context.Context, id string) (*Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	if !now.Before(e.expiresAt) {
		delete(s.entries, id)
		s.metrics.RecordSessionDelta(ctx, -1)
		return nil, ErrNotFound
	}
	e.expiresAt = now.Add(s.ttl)
	return e.upload, nil
}

// Delete discards a session. It reports whether the id existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		s.metrics.RecordSessionDelta(ctx, -1)
	}
	return ok
}

// Len returns the number of stored sessions, expired ones included until
// the next purge.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Purge removes expired sessions and returns how many were removed.
func (s *Store) Purge(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.metrics.RecordSessionDelta(ctx, -int64(removed))
		s.logger.DebugContext(ctx, "purged expired sessions", slog.Int("count", removed))
	}
	return removed
}

// Run purges expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "session janitor started",
		slog.Duration("interval", interval),
		slog.Duration("ttl", s.ttl))

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "session janitor stopped")
			return nil
		case <-ticker.C:
			s.Purge(ctx)
		}
	}
}

// evictOldest must be called with mu held.
func (s *Store) evictOldest() bool {
	var oldestID string
	var oldest time.Time

	for id, e := range s.entries {
		if oldestID == "" || e.createdAt.Before(oldest) {
			oldestID = id
			oldest = e.createdAt
		}
	}

	if oldestID == "" {
		return false
	}
	delete(s.entries, oldestID)
	return true
}
