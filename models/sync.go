package models

import "time"

// SyncState classifies a user's pending local mutations.
type SyncState string

const (
	SyncClean          SyncState = "clean"
	SyncPendingAdds    SyncState = "pendingAdds"
	SyncPendingRemoves SyncState = "pendingRemoves"
	SyncPendingBoth    SyncState = "pendingBoth"
)

// SyncQueue holds the mutations applied locally while the remote store was
// unreachable, awaiting replay. It persists across sessions until drained.
type SyncQueue struct {
	PendingAdds    []MovieRecord `json:"pendingAdds"`
	PendingRemoves []string      `json:"pendingRemoves"`
	LastSyncedAt   *time.Time    `json:"lastSyncedAt"`
}

// State derives the queue's sync state from its contents.
func (q SyncQueue) State() SyncState {
	switch {
	case len(q.PendingAdds) > 0 && len(q.PendingRemoves) > 0:
		return SyncPendingBoth
	case len(q.PendingAdds) > 0:
		return SyncPendingAdds
	case len(q.PendingRemoves) > 0:
		return SyncPendingRemoves
	default:
		return SyncClean
	}
}

// Empty reports whether there is nothing left to replay.
func (q SyncQueue) Empty() bool {
	return len(q.PendingAdds) == 0 && len(q.PendingRemoves) == 0
}
