// Package store provides a thin bbolt wrapper for bc19's local snapshot store.
//
// The store keeps what was fetched and what was reduced from it, so a
// dashboard can be rebuilt or compared without going back to the network.
// Entries are written explicitly by `fetch --store` and `reduce --store`;
// nothing expires on its own.
//
// Buckets:
//
//	feeds      — raw timeline.json payloads keyed timeline:<fetched at>
//	schools    — raw schools.json payloads keyed schools:<fetched at>
//	dashboards — reduced dashboard JSON keyed by report timestamp
//	_meta      — internal: schema version, created_at
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/bc19/internal/util"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Feed kinds accepted by PutFeed and LatestFeed.
const (
	KindTimeline = "timeline"
	KindSchools  = "schools"
)

// keyLayout is fixed-width so keys sort in fetch order.
const keyLayout = "2006-01-02T15:04:05.000000000Z"

// Bucket name constants.
var (
	bucketFeeds      = []byte("feeds")
	bucketSchools    = []byte("schools")
	bucketDashboards = []byte("dashboards")
	bucketInternal   = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"feeds", "schools", "dashboards"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketFeeds, bucketSchools, bucketDashboards, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(util.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// Meta returns the value stored under key in the internal bucket.
func (s *Store) Meta(key string) string {
	var v string
	_ = s.db.View(func(tx *bolt.Tx) error {
		v = string(tx.Bucket(bucketInternal).Get([]byte(key)))
		return nil
	})
	return v
}

// ─── Feeds ────────────────────────────────────────────────────────────────────

// FeedEntry is one stored feed payload.
type FeedEntry struct {
	Key       string          `json:"key"`
	Kind      string          `json:"kind"`
	URL       string          `json:"url"`
	FetchedAt time.Time       `json:"fetched_at"`
	Data      json.RawMessage `json:"data"`
}

// Size is the payload size in bytes.
func (e FeedEntry) Size() int { return len(e.Data) }

func feedBucket(kind string) ([]byte, error) {
	switch kind {
	case KindTimeline:
		return bucketFeeds, nil
	case KindSchools:
		return bucketSchools, nil
	}
	return nil, fmt.Errorf("unknown feed kind %q (use %s or %s)", kind, KindTimeline, KindSchools)
}

// PutFeed stores a raw payload of the given kind, stamped with the
// current time. data must be valid JSON.
func (s *Store) PutFeed(kind, url string, data []byte) (FeedEntry, error) {
	bname, err := feedBucket(kind)
	if err != nil {
		return FeedEntry{}, err
	}
	if !json.Valid(data) {
		return FeedEntry{}, fmt.Errorf("storing %s feed: payload is not valid JSON", kind)
	}
	now := util.Now().UTC()
	entry := FeedEntry{
		Key:       kind + ":" + now.Format(keyLayout),
		Kind:      kind,
		URL:       url,
		FetchedAt: now,
		Data:      json.RawMessage(data),
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return FeedEntry{}, fmt.Errorf("encoding feed: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bname).Put([]byte(entry.Key), b)
	})
	return entry, err
}

// LatestFeed returns the most recently stored payload of kind.
// Returns (entry, true, nil) if found, (zero, false, nil) if the bucket is empty.
func (s *Store) LatestFeed(kind string) (FeedEntry, bool, error) {
	bname, err := feedBucket(kind)
	if err != nil {
		return FeedEntry{}, false, err
	}
	var entry FeedEntry
	found := false
	err = s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(bname).Cursor().Last()
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return FeedEntry{}, false, fmt.Errorf("reading latest %s feed: %w", kind, err)
	}
	return entry, found, nil
}

// ListFeeds returns stored feeds of every kind, newest first. Data is left
// empty; only sizes are reported through Bytes.
func (s *Store) ListFeeds() ([]FeedInfo, error) {
	var out []FeedInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, bname := range [][]byte{bucketFeeds, bucketSchools} {
			err := tx.Bucket(bname).ForEach(func(k, v []byte) error {
				var e FeedEntry
				if err := json.Unmarshal(v, &e); err != nil {
					return fmt.Errorf("decoding %s: %w", k, err)
				}
				out = append(out, FeedInfo{Key: e.Key, Kind: e.Kind, URL: e.URL, FetchedAt: e.FetchedAt, Bytes: e.Size()})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].FetchedAt.After(out[j].FetchedAt) })
	return out, err
}

// FeedInfo summarizes a stored feed without its payload.
type FeedInfo struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	Bytes     int       `json:"bytes"`
}

// ─── Dashboards ───────────────────────────────────────────────────────────────

// PutDashboard stores reduced dashboard JSON under its report timestamp.
// A second reduction of the same report overwrites the first.
func (s *Store) PutDashboard(reportTimestamp string, data []byte) error {
	if reportTimestamp == "" {
		return fmt.Errorf("storing dashboard: empty report timestamp")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDashboards).Put([]byte(reportTimestamp), data)
	})
}

// GetDashboard retrieves dashboard JSON by report timestamp. An empty key
// returns the most recent one.
func (s *Store) GetDashboard(reportTimestamp string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDashboards)
		var v []byte
		if reportTimestamp == "" {
			_, v = b.Cursor().Last()
		} else {
			v = b.Get([]byte(reportTimestamp))
		}
		if v != nil {
			out = bytes.Clone(v)
		}
		return nil
	})
	return out, out != nil, err
}

// ListDashboards returns stored report timestamps, oldest first.
func (s *Store) ListDashboards() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDashboards).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			st := BucketStats{Name: name}
			_ = b.ForEach(func(k, v []byte) error {
				st.Count++
				st.Bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, st)
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	known := false
	for _, b := range AllBuckets {
		known = known || b == name
	}
	if !known {
		return fmt.Errorf("unknown bucket %q", name)
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
