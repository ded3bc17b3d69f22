package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	_ "modernc.org/sqlite"
)

const notionsQuery = `
SELECT DISTINCT notion_key
FROM knowledge_chunks
WHERE subject_key = ?
  AND instr(cycle_keys, ?) > 0
  AND notion_key IS NOT NULL
ORDER BY notion_key`

// NotionStore answers notion lookups from the read-only knowledge database.
type NotionStore struct {
	db     *sql.DB
	cache  *cache.Cache
	group  singleflight.Group
	logger *zap.Logger
}

// OpenNotions opens the knowledge database at path in read-only mode.
// Lookups are cached for ttl.
func OpenNotions(path string, ttl time.Duration, logger *zap.Logger) (*NotionStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("knowledge database: %w", err)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open knowledge database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open knowledge database: %w", err)
	}

	return &NotionStore{
		db:     db,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}, nil
}

// Notions returns the distinct notion keys of a subject whose cycle list
// contains cycle, sorted alphabetically.
func (s *NotionStore) Notions(ctx context.Context, subject, cycle string) ([]string, error) {
	key := subject + "\x00" + cycle
	if v, ok := s.cache.Get(key); ok {
		return slices.Clone(v.([]string)), nil
	}

	// The flight outlives any single caller; each caller stops waiting on
	// its own context.
	flight := s.group.DoChan(key, func() (any, error) {
		notions, err := s.query(context.WithoutCancel(ctx), subject, cycle)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, notions, cache.DefaultExpiration)
		return notions, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		s.logger.Debug("notion lookup",
			zap.String("subject", subject),
			zap.String("cycle", cycle),
			zap.Bool("shared", res.Shared))
		return slices.Clone(res.Val.([]string)), nil
	}
}

// readOnlyDSN builds a SQLite URI for path. The path is escaped so '?' and
// '#' stay part of the file name.
func readOnlyDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		Opaque:   (&url.URL{Path: path}).EscapedPath(),
		RawQuery: "mode=ro",
	}
	return u.String()
}

func (s *NotionStore) query(ctx context.Context, subject, cycle string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, notionsQuery, subject, cycle)
	if err != nil {
		return nil, fmt.Errorf("query notions: %w", err)
	}
	defer rows.Close()

	notions := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan notion: %w", err)
		}
		notions = append(notions, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read notions: %w", err)
	}
	slices.Sort(notions)
	return notions, nil
}

// Flush drops every cached lookup.
func (s *NotionStore) Flush() {
	s.cache.Flush()
}

// Close releases the database handle.
func (s *NotionStore) Close() error {
	return s.db.Close()
}
