package localcache

import (
	"path/filepath"
	"testing"
	"time"

	"movieverse/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestFavoritesRoundTrip(t *testing.T) {
	c := newTestCache(t)

	if _, ok, err := c.Favorites("u1"); err != nil || ok {
		t.Fatalf("expected no cached list, got ok=%v err=%v", ok, err)
	}

	entry := models.FavoriteEntry{UserID: "u1", MovieID: "603", Title: "The Matrix", Year: "1999"}
	if err := c.SaveFavorites("u1", []models.FavoriteEntry{entry}); err != nil {
		t.Fatalf("save favorites: %v", err)
	}

	got, ok, err := c.Favorites("u1")
	if err != nil || !ok {
		t.Fatalf("favorites: ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].MovieID != "603" {
		t.Fatalf("unexpected cached list: %+v", got)
	}

	// An explicitly saved empty list still counts as cached.
	if err := c.ClearFavorites("u1"); err != nil {
		t.Fatalf("clear favorites: %v", err)
	}
	got, ok, err = c.Favorites("u1")
	if err != nil || !ok || len(got) != 0 {
		t.Fatalf("expected cached empty list, got %v ok=%v err=%v", got, ok, err)
	}
}

func TestUpsertAndDeleteFavorite(t *testing.T) {
	c := newTestCache(t)

	first := models.FavoriteEntry{UserID: "u1", MovieID: "603", Title: "The Matrix"}
	second := models.FavoriteEntry{UserID: "u1", MovieID: "604", Title: "The Matrix Reloaded"}

	if err := c.UpsertFavorite("u1", first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := c.UpsertFavorite("u1", second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Re-upserting the same id replaces, not duplicates.
	first.Poster = "https://example.com/matrix.jpg"
	if err := c.UpsertFavorite("u1", first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, _, err := c.Favorites("u1")
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	if err := c.DeleteFavorite("u1", "603"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _, _ = c.Favorites("u1")
	if len(got) != 1 || got[0].MovieID != "604" {
		t.Fatalf("unexpected list after delete: %+v", got)
	}
}

func TestQueueCancellation(t *testing.T) {
	c := newTestCache(t)
	rec := models.MovieRecord{CanonicalID: "603", Title: "The Matrix"}

	// Add then remove cancels out to a clean queue.
	if err := c.EnqueueAdd("u1", rec); err != nil {
		t.Fatalf("enqueue add: %v", err)
	}
	if err := c.EnqueueRemove("u1", "603"); err != nil {
		t.Fatalf("enqueue remove: %v", err)
	}
	q, err := c.Queue("u1")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if !q.Empty() {
		t.Fatalf("expected empty queue, got %+v", q)
	}
	if q.State() != models.SyncClean {
		t.Fatalf("state = %q, want clean", q.State())
	}

	// Remove then add also cancels.
	if err := c.EnqueueRemove("u1", "603"); err != nil {
		t.Fatalf("enqueue remove: %v", err)
	}
	if err := c.EnqueueAdd("u1", rec); err != nil {
		t.Fatalf("enqueue add: %v", err)
	}
	q, _ = c.Queue("u1")
	if !q.Empty() {
		t.Fatalf("expected empty queue, got %+v", q)
	}
}

func TestQueueDeduplicates(t *testing.T) {
	c := newTestCache(t)
	rec := models.MovieRecord{CanonicalID: "603", Title: "The Matrix"}

	for i := 0; i < 3; i++ {
		if err := c.EnqueueAdd("u1", rec); err != nil {
			t.Fatalf("enqueue add: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := c.EnqueueRemove("u1", "999"); err != nil {
			t.Fatalf("enqueue remove: %v", err)
		}
	}

	q, err := c.Queue("u1")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(q.PendingAdds) != 1 || len(q.PendingRemoves) != 1 {
		t.Fatalf("expected deduplicated queue, got %+v", q)
	}
	if q.State() != models.SyncPendingBoth {
		t.Fatalf("state = %q, want pendingBoth", q.State())
	}
}

func TestMarkSynced(t *testing.T) {
	c := newTestCache(t)

	if err := c.EnqueueAdd("u1", models.MovieRecord{CanonicalID: "603"}); err != nil {
		t.Fatalf("enqueue add: %v", err)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := c.MarkSynced("u1", at); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	q, err := c.Queue("u1")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if !q.Empty() {
		t.Fatalf("queue not emptied: %+v", q)
	}
	if q.LastSyncedAt == nil || !q.LastSyncedAt.Equal(at) {
		t.Fatalf("last synced = %v, want %v", q.LastSyncedAt, at)
	}

	// Syncing with nothing pending still refreshes the stamp.
	later := at.Add(time.Hour)
	if err := c.MarkSynced("u1", later); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	q, _ = c.Queue("u1")
	if q.LastSyncedAt == nil || !q.LastSyncedAt.Equal(later) {
		t.Fatalf("last synced = %v, want %v", q.LastSyncedAt, later)
	}
}

func TestQueuedUsers(t *testing.T) {
	c := newTestCache(t)

	if err := c.EnqueueAdd("u1", models.MovieRecord{CanonicalID: "603"}); err != nil {
		t.Fatalf("enqueue add: %v", err)
	}
	if err := c.EnqueueRemove("u2", "604"); err != nil {
		t.Fatalf("enqueue remove: %v", err)
	}
	if err := c.MarkSynced("u3", time.Now()); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	users, err := c.QueuedUsers()
	if err != nil {
		t.Fatalf("queued users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 queued users, got %v", users)
	}
}
