package syncer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"movieverse/models"
	"movieverse/services/favorites"
	"movieverse/services/localcache"
)

// RemoteStore is the authoritative favorites backend the reconciler fronts.
// *favorites.Store satisfies it; tests substitute failing fakes.
type RemoteStore interface {
	Add(ctx context.Context, entry models.FavoriteEntry) (models.FavoriteEntry, error)
	List(ctx context.Context, userID string) ([]models.FavoriteEntry, error)
	Remove(ctx context.Context, userID, movieID string) (models.FavoriteEntry, error)
	ClearAll(ctx context.Context, userID string) (int, error)
}

var _ RemoteStore = (*favorites.Store)(nil)

// Result reports how a mutation landed: applied remotely, or queued in the
// local cache for later replay because the remote was unreachable.
type Result struct {
	Entry  models.FavoriteEntry
	Queued bool
}

// Status is the per-user sync state exposed over the API.
type Status struct {
	State          models.SyncState `json:"state"`
	PendingAdds    int              `json:"pendingAdds"`
	PendingRemoves int              `json:"pendingRemoves"`
	LastSyncedAt   *time.Time       `json:"lastSyncedAt"`
}

// Reconciler keeps the local cache and the remote store convergent. Every
// mutation goes remote-first; when the remote fails, the mutation applies
// to the cache and queues for replay. Reads prefer the remote and fall
// back to the cache.
type Reconciler struct {
	remote   RemoteStore
	cache    *localcache.Cache
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a reconciler replaying queued mutations every interval.
func New(remote RemoteStore, cache *localcache.Cache, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{remote: remote, cache: cache, interval: interval, now: time.Now}
}

// Add stores a favorite remote-first. Domain rejections from the remote
// (duplicate, validation) pass through untouched; only transport-level
// failures fall back to the queue.
func (r *Reconciler) Add(ctx context.Context, entry models.FavoriteEntry) (Result, error) {
	added, err := r.remote.Add(ctx, entry)
	if err == nil {
		if cerr := r.cache.UpsertFavorite(entry.UserID, added); cerr != nil {
			log.Printf("[syncer] cache mirror failed after add: %v", cerr)
		}
		return Result{Entry: added}, nil
	}
	if isDomainError(err) {
		return Result{Entry: added}, err
	}

	log.Printf("[syncer] remote add failed, queueing for user %s: %v", entry.UserID, err)
	if entry.AddedAt.IsZero() {
		entry.AddedAt = r.now().UTC()
	}
	if entry.MovieID == "" {
		return Result{}, favorites.ErrMovieIDRequired
	}
	if err := r.cache.UpsertFavorite(entry.UserID, entry); err != nil {
		return Result{}, err
	}
	if err := r.cache.EnqueueAdd(entry.UserID, entry.Record()); err != nil {
		return Result{}, err
	}
	return Result{Entry: entry, Queued: true}, nil
}

// Remove deletes a favorite remote-first with queue fallback.
func (r *Reconciler) Remove(ctx context.Context, userID, movieID string) (Result, error) {
	removed, err := r.remote.Remove(ctx, userID, movieID)
	if err == nil {
		if cerr := r.cache.DeleteFavorite(userID, removed.MovieID); cerr != nil {
			log.Printf("[syncer] cache mirror failed after remove: %v", cerr)
		}
		return Result{Entry: removed}, nil
	}
	if isDomainError(err) {
		return Result{}, err
	}

	log.Printf("[syncer] remote remove failed, queueing for user %s: %v", userID, err)
	if err := r.cache.DeleteFavorite(userID, movieID); err != nil {
		return Result{}, err
	}
	if err := r.cache.EnqueueRemove(userID, movieID); err != nil {
		return Result{}, err
	}
	return Result{Queued: true}, nil
}

// List returns the user's favorites, serving the cached mirror when the
// remote is unreachable. The bool reports whether the cache served.
func (r *Reconciler) List(ctx context.Context, userID string) ([]models.FavoriteEntry, bool, error) {
	entries, err := r.remote.List(ctx, userID)
	if err == nil {
		if cerr := r.cache.SaveFavorites(userID, entries); cerr != nil {
			log.Printf("[syncer] cache mirror failed after list: %v", cerr)
		}
		return entries, false, nil
	}
	if isDomainError(err) {
		return nil, false, err
	}

	cached, ok, cerr := r.cache.Favorites(userID)
	if cerr != nil {
		return nil, false, cerr
	}
	if !ok {
		return nil, false, err
	}
	log.Printf("[syncer] serving cached favorites for user %s: %v", userID, err)
	return cached, true, nil
}

// IsFavorite checks whether the record matches any of the user's favorites.
func (r *Reconciler) IsFavorite(ctx context.Context, userID string, rec models.MovieRecord) (bool, models.FavoriteEntry, error) {
	entries, _, err := r.List(ctx, userID)
	if err != nil {
		return false, models.FavoriteEntry{}, err
	}
	entry, ok := Match(entries, rec)
	return ok, entry, nil
}

// ClearAll wipes both sides. The queue empties too: pending mutations are
// moot once the user wants nothing kept.
func (r *Reconciler) ClearAll(ctx context.Context, userID string) (int, error) {
	n, err := r.remote.ClearAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	if cerr := r.cache.ClearFavorites(userID); cerr != nil {
		log.Printf("[syncer] cache clear failed: %v", cerr)
	}
	if cerr := r.cache.MarkSynced(userID, r.now()); cerr != nil {
		log.Printf("[syncer] queue clear failed: %v", cerr)
	}
	return n, nil
}

// Replay pushes the user's queued mutations to the remote, then refreshes
// the cache from it. A mutation the remote already absorbed (duplicate add,
// missing removal target) counts as replayed. Each mutation retries a few
// times independently; those that still fail stay queued for the next
// round, and the sync stamp records that a round ran either way.
func (r *Reconciler) Replay(ctx context.Context, userID string) (replayed, failed int, err error) {
	q, err := r.cache.Queue(userID)
	if err != nil {
		return 0, 0, err
	}

	var remaining models.SyncQueue
	for _, rec := range q.PendingAdds {
		rec := rec
		err := retry.Do(func() error {
			_, err := r.remote.Add(ctx, rec.FavoriteFor(userID))
			if errors.Is(err, favorites.ErrDuplicate) {
				return nil
			}
			return err
		}, retry.Attempts(3), retry.Delay(200*time.Millisecond), retry.Context(ctx), retry.LastErrorOnly(true))
		if err != nil {
			log.Printf("[syncer] replay add %s failed for user %s: %v", rec.CanonicalID, userID, err)
			remaining.PendingAdds = append(remaining.PendingAdds, rec)
			continue
		}
		replayed++
	}

	for _, movieID := range q.PendingRemoves {
		movieID := movieID
		err := retry.Do(func() error {
			_, err := r.remote.Remove(ctx, userID, movieID)
			if errors.Is(err, favorites.ErrNotFound) {
				return nil
			}
			return err
		}, retry.Attempts(3), retry.Delay(200*time.Millisecond), retry.Context(ctx), retry.LastErrorOnly(true))
		if err != nil {
			log.Printf("[syncer] replay remove %s failed for user %s: %v", movieID, userID, err)
			remaining.PendingRemoves = append(remaining.PendingRemoves, movieID)
			continue
		}
		replayed++
	}

	at := r.now().UTC()
	remaining.LastSyncedAt = &at
	failed = len(remaining.PendingAdds) + len(remaining.PendingRemoves)
	if err := r.cache.ReplaceQueue(userID, remaining); err != nil {
		return replayed, failed, err
	}

	if failed == 0 {
		if err := r.Merge(ctx, userID); err != nil {
			log.Printf("[syncer] merge after replay failed for user %s: %v", userID, err)
		}
	}
	return replayed, failed, nil
}

// Merge refreshes the cached mirror from the remote. One-way: the remote
// is authoritative, the cache never pushes state during a merge.
func (r *Reconciler) Merge(ctx context.Context, userID string) error {
	entries, err := r.remote.List(ctx, userID)
	if err != nil {
		return err
	}
	return r.cache.SaveFavorites(userID, entries)
}

// Status reports the user's queue state.
func (r *Reconciler) Status(userID string) (Status, error) {
	q, err := r.cache.Queue(userID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		State:          q.State(),
		PendingAdds:    len(q.PendingAdds),
		PendingRemoves: len(q.PendingRemoves),
		LastSyncedAt:   q.LastSyncedAt,
	}, nil
}

// Start begins the background replay loop.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go r.replayLoop(loopCtx)

	log.Println("[syncer] replay loop started")
	return nil
}

// Stop halts the replay loop, waiting for an in-flight round to finish.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[syncer] replay loop stopped")
	case <-ctx.Done():
		log.Println("[syncer] replay loop stopped (timeout)")
	}

	r.running = false
	return nil
}

func (r *Reconciler) replayLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.replayAll(ctx)
		}
	}
}

func (r *Reconciler) replayAll(ctx context.Context) {
	users, err := r.cache.QueuedUsers()
	if err != nil {
		log.Printf("[syncer] list queued users: %v", err)
		return
	}
	for _, userID := range users {
		if _, _, err := r.Replay(ctx, userID); err != nil {
			log.Printf("[syncer] replay failed for user %s: %v", userID, err)
		}
	}
}

// isDomainError distinguishes remote rejections, which callers should see
// as-is, from transport failures, which trigger the offline fallback.
func isDomainError(err error) bool {
	return errors.Is(err, favorites.ErrDuplicate) ||
		errors.Is(err, favorites.ErrNotFound) ||
		errors.Is(err, favorites.ErrUserIDRequired) ||
		errors.Is(err, favorites.ErrMovieIDRequired) ||
		errors.Is(err, favorites.ErrTitleRequired)
}
