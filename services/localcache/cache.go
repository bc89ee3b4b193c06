package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"movieverse/models"
)

var (
	ErrUserIDRequired  = errors.New("user id is required")
	ErrMovieIDRequired = errors.New("movie id is required")
)

var (
	bucketFavorites = []byte("favorites")
	bucketSyncQueue = []byte("syncqueue")
)

// Cache is the durable local mirror of the remote favorites store plus the
// per-user queue of offline mutations awaiting replay. One value per user
// per bucket, serialized as JSON.
type Cache struct {
	db *bolt.DB
}

// New opens (creating if necessary) the cache database at path.
func New(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketFavorites, bucketSyncQueue} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache buckets: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) get(bucket []byte, key string, dest any) (bool, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

func (c *Cache) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// Favorites returns the cached favorites list for the user. The second
// return distinguishes "never cached" from an empty list.
func (c *Cache) Favorites(userID string) ([]models.FavoriteEntry, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, false, ErrUserIDRequired
	}
	var entries []models.FavoriteEntry
	ok, err := c.get(bucketFavorites, userID, &entries)
	return entries, ok, err
}

// SaveFavorites replaces the cached list for the user.
func (c *Cache) SaveFavorites(userID string, entries []models.FavoriteEntry) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	if entries == nil {
		entries = []models.FavoriteEntry{}
	}
	return c.set(bucketFavorites, userID, entries)
}

// UpsertFavorite applies an add to the cached list in place.
func (c *Cache) UpsertFavorite(userID string, entry models.FavoriteEntry) error {
	entries, _, err := c.Favorites(userID)
	if err != nil {
		return err
	}
	for i, existing := range entries {
		if existing.MovieID == entry.MovieID {
			entries[i] = entry
			return c.SaveFavorites(userID, entries)
		}
	}
	return c.SaveFavorites(userID, append([]models.FavoriteEntry{entry}, entries...))
}

// DeleteFavorite applies a removal to the cached list in place.
func (c *Cache) DeleteFavorite(userID, movieID string) error {
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return ErrMovieIDRequired
	}
	entries, ok, err := c.Favorites(userID)
	if err != nil || !ok {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.MovieID != movieID {
			kept = append(kept, e)
		}
	}
	return c.SaveFavorites(userID, kept)
}

// ClearFavorites drops the user's cached list.
func (c *Cache) ClearFavorites(userID string) error {
	return c.SaveFavorites(userID, []models.FavoriteEntry{})
}

// Queue returns the user's pending mutation queue, empty if none exists.
func (c *Cache) Queue(userID string) (models.SyncQueue, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.SyncQueue{}, ErrUserIDRequired
	}
	var q models.SyncQueue
	if _, err := c.get(bucketSyncQueue, userID, &q); err != nil {
		return models.SyncQueue{}, err
	}
	return q, nil
}

func (c *Cache) saveQueue(userID string, q models.SyncQueue) error {
	return c.set(bucketSyncQueue, userID, q)
}

// EnqueueAdd records an offline add. A pending remove of the same movie is
// an exact inverse, so the two cancel instead of both replaying.
func (c *Cache) EnqueueAdd(userID string, record models.MovieRecord) error {
	q, err := c.Queue(userID)
	if err != nil {
		return err
	}

	kept := q.PendingRemoves[:0]
	cancelled := false
	for _, id := range q.PendingRemoves {
		if id == record.CanonicalID {
			cancelled = true
			continue
		}
		kept = append(kept, id)
	}
	q.PendingRemoves = kept
	if cancelled {
		return c.saveQueue(userID, q)
	}

	for _, pending := range q.PendingAdds {
		if pending.CanonicalID == record.CanonicalID {
			return nil
		}
	}
	q.PendingAdds = append(q.PendingAdds, record)
	return c.saveQueue(userID, q)
}

// EnqueueRemove records an offline removal, cancelling a pending add of the
// same movie when present.
func (c *Cache) EnqueueRemove(userID, movieID string) error {
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return ErrMovieIDRequired
	}
	q, err := c.Queue(userID)
	if err != nil {
		return err
	}

	kept := q.PendingAdds[:0]
	cancelled := false
	for _, pending := range q.PendingAdds {
		if pending.CanonicalID == movieID {
			cancelled = true
			continue
		}
		kept = append(kept, pending)
	}
	q.PendingAdds = kept
	if cancelled {
		return c.saveQueue(userID, q)
	}

	for _, id := range q.PendingRemoves {
		if id == movieID {
			return nil
		}
	}
	q.PendingRemoves = append(q.PendingRemoves, movieID)
	return c.saveQueue(userID, q)
}

// ReplaceQueue swaps the user's queue wholesale. Used by replay to keep
// only the mutations that failed to land.
func (c *Cache) ReplaceQueue(userID string, q models.SyncQueue) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	return c.saveQueue(userID, q)
}

// MarkSynced empties the queue and stamps the sync time. The stamp is set
// even when the queue was already empty.
func (c *Cache) MarkSynced(userID string, at time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	at = at.UTC()
	return c.saveQueue(userID, models.SyncQueue{LastSyncedAt: &at})
}

// QueuedUsers lists users whose queues still hold pending mutations.
func (c *Cache) QueuedUsers() ([]string, error) {
	var users []string
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSyncQueue).ForEach(func(k, v []byte) error {
			var q models.SyncQueue
			if err := json.Unmarshal(v, &q); err != nil {
				return fmt.Errorf("decode queue for %s: %w", k, err)
			}
			if !q.Empty() {
				users = append(users, string(k))
			}
			return nil
		})
	})
	return users, err
}
