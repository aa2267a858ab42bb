// Package outreach holds the admin-driven outreach lifecycle: prepared
// proposals awaiting approval, active outreach conversations, and (in
// ALL_REPLIES approval mode) generated replies pending an admin send.
package outreach

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hosamdev/wassist/internal/history"
)

// Proposal is a generated outreach opening awaiting admin disposition.
type Proposal struct {
	ID           string
	Channel      string
	ChatID       string
	Proposed     string
	SystemPrompt string
	Task         string
	CreatedAt    time.Time
	seq          int
}

// Key returns the conversation key the proposal targets.
func (p *Proposal) Key() string { return p.Channel + ":" + p.ChatID }

// Conversation is an outreach whose opening has been sent. The record is
// retained after ending for historical queries; only Active ones take
// routing precedence.
type Conversation struct {
	Channel        string
	ChatID         string
	SystemPrompt   string
	Task           string
	History        *history.Ring
	Active         bool
	StartedAt      time.Time
	EndedAt        time.Time
	SourceProposal string
}

// Key returns the conversation key.
func (c *Conversation) Key() string { return c.Channel + ":" + c.ChatID }

// PendingReply is a generated outreach reply held back for admin
// approval under ALL_REPLIES mode.
type PendingReply struct {
	ID        string
	Channel   string
	ChatID    string
	Proposed  string
	CreatedAt time.Time
	seq       int
}

// Store owns all outreach state. All transitions are serialized through
// its mutex.
type Store struct {
	mu             sync.Mutex
	proposals      map[string]*Proposal
	conversations  map[string]*Conversation
	pendingReplies map[string]*PendingReply
	proposalSeq    int
	replySeq       int
}

// NewStore creates an empty lifecycle store.
func NewStore() *Store {
	return &Store{
		proposals:      make(map[string]*Proposal),
		conversations:  make(map[string]*Conversation),
		pendingReplies: make(map[string]*PendingReply),
		proposalSeq:    1,
		replySeq:       1,
	}
}

// Prepare records a new proposal and returns it. IDs are monotonically
// generated and never reused within a process.
func (s *Store) Prepare(channel, chatID, proposed, systemPrompt, task string) *Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposalSeq++
	p := &Proposal{
		ID:           fmt.Sprintf("p%d", s.proposalSeq),
		Channel:      channel,
		ChatID:       chatID,
		Proposed:     proposed,
		SystemPrompt: systemPrompt,
		Task:         task,
		CreatedAt:    time.Now(),
		seq:          s.proposalSeq,
	}
	s.proposals[p.ID] = p
	return p
}

// Proposal returns the proposal with the given id.
func (s *Store) Proposal(id string) (*Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	return p, ok
}

// Proposals returns all pending proposals ordered by id sequence.
func (s *Store) Proposals() []*Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// CancelProposal deletes a proposal. It reports whether one existed.
func (s *Store) CancelProposal(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposals[id]; !ok {
		return false
	}
	delete(s.proposals, id)
	return true
}

// Activate consumes the proposal and creates an active conversation for
// its target with firstTurn as the opening assistant turn. The caller
// must have already delivered firstTurn to the target; a send failure
// means Activate is never called and the proposal survives. An existing
// record for the target (active or ended) is replaced.
func (s *Store) Activate(proposalID, firstTurn string, historyCapacity int) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[proposalID]
	if !ok {
		return nil, fmt.Errorf("proposal %s not found", proposalID)
	}
	delete(s.proposals, proposalID)

	conv := &Conversation{
		Channel:        p.Channel,
		ChatID:         p.ChatID,
		SystemPrompt:   p.SystemPrompt,
		Task:           p.Task,
		History:        history.NewRing(historyCapacity),
		Active:         true,
		StartedAt:      time.Now(),
		SourceProposal: p.ID,
	}
	conv.History.Append("assistant", firstTurn)
	s.conversations[conv.Key()] = conv
	return conv, nil
}

// ActiveFor returns the conversation for key only while its active flag
// is set.
func (s *Store) ActiveFor(key string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[key]
	if !ok || !c.Active {
		return nil, false
	}
	return c, true
}

// Conversation returns the record for key regardless of active flag.
func (s *Store) Conversation(key string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[key]
	return c, ok
}

// ActiveConversations returns all records with the active flag set,
// ordered by start time.
func (s *Store) ActiveConversations() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// End clears the active flag for key. Ending is terminal for routing but
// the record stays queryable. It reports whether an active record existed.
func (s *Store) End(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[key]
	if !ok || !c.Active {
		return false
	}
	c.Active = false
	c.EndedAt = time.Now()
	return true
}

// ClearSource drops the conversation's back-reference to its originating
// proposal. Called after the first inbound reply so ALL_REPLIES approval
// applies from the second reply onward.
func (s *Store) ClearSource(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[key]; ok {
		c.SourceProposal = ""
	}
}

// HasSource reports whether the conversation still references its
// originating proposal.
func (s *Store) HasSource(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[key]
	return ok && c.SourceProposal != ""
}

// AddPendingReply parks a generated reply for admin approval.
func (s *Store) AddPendingReply(channel, chatID, proposed string) *PendingReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replySeq++
	r := &PendingReply{
		ID:        fmt.Sprintf("r%d", s.replySeq),
		Channel:   channel,
		ChatID:    chatID,
		Proposed:  proposed,
		CreatedAt: time.Now(),
		seq:       s.replySeq,
	}
	s.pendingReplies[r.ID] = r
	return r
}

// PendingReply returns the pending reply with the given id.
func (s *Store) PendingReply(id string) (*PendingReply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.pendingReplies[id]
	return r, ok
}

// PendingReplies returns all held replies ordered by creation.
func (s *Store) PendingReplies() []*PendingReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PendingReply, 0, len(s.pendingReplies))
	for _, r := range s.pendingReplies {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// RemovePendingReply discards a held reply. It reports whether one existed.
func (s *Store) RemovePendingReply(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pendingReplies[id]; !ok {
		return false
	}
	delete(s.pendingReplies, id)
	return true
}
