// Package numlist maps positions in the last displayed numbered list
// back to the underlying identifiers. Whenever a listing command renders
// a numbered list to the admin, the ordered identifiers are registered
// under the list's key; a later command may then reference an item by
// its number instead of its full identifier.
package numlist

import (
	"strconv"
	"sync"
)

// List keys shared between the listing commands and the resolver.
const (
	KeyAvailableModels    = "available_models"
	KeyOutreachPrompts    = "outreach_prompts"
	KeyPreparedOutreaches = "prepared_outreaches"
	KeyActiveOutreaches   = "active_outreaches"
	KeyPendingReplies     = "pending_replies"
	KeyLogChats           = "log_chats"
)

// Registry holds the most recently displayed numbered list per key.
type Registry struct {
	mu    sync.Mutex
	lists map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{lists: make(map[string][]string)}
}

// Register records the ordered identifiers shown for key, replacing any
// previous list under the same key.
func (r *Registry) Register(key string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := make([]string, len(ids))
	copy(stored, ids)
	r.lists[key] = stored
}

// Resolve maps token to an identifier from the last list shown for key.
// A non-numeric token, or a numeric token when no list was registered,
// is returned unchanged (it may already be a full identifier). A numeric
// token out of the list's range resolves to ok=false. When destructive
// is true the stored list is discarded by the lookup, successful or not,
// so stale positions cannot resolve against a list no longer on screen.
func (r *Registry) Resolve(key, token string, destructive bool) (id string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, exists := r.lists[key]
	if destructive && exists {
		delete(r.lists, key)
	}

	n, err := strconv.Atoi(token)
	if err != nil || !exists {
		return token, true
	}
	if n < 1 || n > len(ids) {
		return "", false
	}
	return ids[n-1], true
}

// Clear drops the stored list for key, if any.
func (r *Registry) Clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lists, key)
}
