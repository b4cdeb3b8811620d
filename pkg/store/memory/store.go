package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
)

type openKey struct {
	workspaceID string
	actionType  domain.ActionType
}

// Store is the in-memory implementation of the governance store: versioned
// snapshots, classification history, actions with an open-slot index, the
// transition log and the append-only audit ledger. It is safe for
// concurrent use and backs both tests and persistence-free deployments.
type Store struct {
	mu              sync.RWMutex
	snapshots       map[string][]domain.WorkspaceSnapshot
	classifications map[string][]domain.Classification
	actions         map[string]domain.Action
	open            map[openKey]string
	transitions     map[string][]domain.Transition
	entries         []domain.AuditEntry
	entryByAction   map[string]int
	seq             int64
	events          []domain.Event
}

func NewStore() *Store {
	return &Store{
		snapshots:       make(map[string][]domain.WorkspaceSnapshot),
		classifications: make(map[string][]domain.Classification),
		actions:         make(map[string]domain.Action),
		open:            make(map[openKey]string),
		transitions:     make(map[string][]domain.Transition),
		entryByAction:   make(map[string]int),
	}
}

// AppendSnapshot records a new immutable snapshot for a workspace.
func (s *Store) AppendSnapshot(_ context.Context, snap domain.WorkspaceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.WorkspaceID] = append(s.snapshots[snap.WorkspaceID], snap)
	return nil
}

// LatestSnapshots returns the most recent snapshot of every known
// workspace, ordered by workspace name.
func (s *Store) LatestSnapshots(_ context.Context) ([]domain.WorkspaceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WorkspaceSnapshot, 0, len(s.snapshots))
	for _, history := range s.snapshots {
		out = append(out, history[len(history)-1])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SnapshotHistory(_ context.Context, workspaceID string) ([]domain.WorkspaceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.snapshots[workspaceID]
	out := make([]domain.WorkspaceSnapshot, len(history))
	copy(out, history)
	return out, nil
}

func (s *Store) AppendClassification(_ context.Context, c domain.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[c.WorkspaceID] = append(s.classifications[c.WorkspaceID], c)
	return nil
}

// LatestClassification returns the current classification of a workspace;
// the second return is false when the workspace was never classified.
func (s *Store) LatestClassification(_ context.Context, workspaceID string) (domain.Classification, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.classifications[workspaceID]
	if len(history) == 0 {
		return domain.Classification{}, false, nil
	}
	return history[len(history)-1], true, nil
}

func (s *Store) OpenActionExists(_ context.Context, workspaceID string, actionType domain.ActionType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.open[openKey{workspaceID, actionType}]
	return ok, nil
}

// CreateAction persists a new action, enforcing the one-open-action
// invariant per (workspace, type) slot.
func (s *Store) CreateAction(_ context.Context, action domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := openKey{action.WorkspaceID, action.Type}
	if _, ok := s.open[key]; ok {
		return domain.ErrDuplicateAction
	}
	s.actions[action.ID] = action
	if action.Open() {
		s.open[key] = action.ID
	}
	return nil
}

func (s *Store) GetAction(_ context.Context, id string) (domain.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	act, ok := s.actions[id]
	if !ok {
		return domain.Action{}, domain.ErrActionNotFound
	}
	return act, nil
}

// ListActions returns actions filtered by status; an empty status means all.
// Results are ordered by creation time.
func (s *Store) ListActions(_ context.Context, status domain.ActionStatus) ([]domain.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Action, 0, len(s.actions))
	for _, act := range s.actions {
		if status == "" || act.Status == status {
			out = append(out, act)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatusCAS atomically moves an action from -> to. It returns
// domain.ErrInvalidTransition when the current status differs from `from`,
// which is how racing transition attempts are serialized.
func (s *Store) UpdateStatusCAS(
	_ context.Context,
	id string,
	from, to domain.ActionStatus,
	incrementRetry bool,
) (domain.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act, ok := s.actions[id]
	if !ok {
		return domain.Action{}, domain.ErrActionNotFound
	}
	if act.Status != from {
		return domain.Action{}, domain.ErrInvalidTransition
	}
	act.Status = to
	if incrementRetry {
		act.RetryCount++
	}
	act.UpdatedAt = time.Now()
	s.actions[id] = act

	key := openKey{act.WorkspaceID, act.Type}
	if to.Terminal() {
		delete(s.open, key)
	} else if from.Terminal() {
		// Failed -> Approved retry re-occupies the slot.
		s.open[key] = id
	}
	return act, nil
}

func (s *Store) AppendTransition(_ context.Context, t domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions[t.ActionID] = append(s.transitions[t.ActionID], t)
	return nil
}

func (s *Store) TransitionsForAction(_ context.Context, actionID string) ([]domain.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.transitions[actionID]
	out := make([]domain.Transition, len(history))
	copy(out, history)
	return out, nil
}

// Append adds an entry to the audit ledger, assigning the next monotonic
// sequence number. The ledger's only mutation is insertion.
func (s *Store) Append(_ context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.Seq = s.seq
	s.entries = append(s.entries, entry)
	s.entryByAction[entry.ActionID] = len(s.entries) - 1
	return entry, nil
}

// EntryForAction returns the ledger entry recorded for an action, if any.
func (s *Store) EntryForAction(_ context.Context, actionID string) (domain.AuditEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.entryByAction[actionID]
	if !ok {
		return domain.AuditEntry{}, false, nil
	}
	return s.entries[idx], true, nil
}

// Query returns a read-only page of the ledger in sequence order, plus the
// total number of entries matching the filter.
func (s *Store) Query(_ context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.AuditEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if q.WorkspaceID != "" && e.WorkspaceID != q.WorkspaceID {
			continue
		}
		if !q.From.IsZero() && e.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.Timestamp.After(q.To) {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)

	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * q.PageSize
		if start >= total {
			return []domain.AuditEntry{}, total, nil
		}
		end := start + q.PageSize
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}

	out := make([]domain.AuditEntry, len(matched))
	copy(out, matched)
	return out, total, nil
}

// EntryCount returns the ledger size.
func (s *Store) EntryCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Store) AppendEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(_ context.Context, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}
