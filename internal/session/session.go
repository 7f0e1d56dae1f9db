// Package session holds per-user research state: the last accepted candidate
// set, its title index and the current selection.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// Session is one user's candidate set store. All methods are safe for
// concurrent use; mutations are serialized by the session mutex.
type Session struct {
	id        string
	createdAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
	issued     uint64
	accepted   uint64
	query      string
	phrase     string
	candidates []*domain.PaperRecord
	titleIndex domain.TitleIndex
	selection  []string
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	ID         string                `json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	Sequence   uint64                `json:"sequence"`
	Query      string                `json:"query,omitempty"`
	Phrase     string                `json:"phrase,omitempty"`
	Candidates []*domain.PaperRecord `json:"candidates"`
	TitleIndex domain.TitleIndex     `json:"title_index"`
	Selection  []string              `json:"selection"`
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		lastAccess: now,
		titleIndex: domain.TitleIndex{},
		selection:  []string{},
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// BeginDiscovery issues the sequence number for a new discovery.
func (s *Session) BeginDiscovery() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.lastAccess = time.Now()
	return s.issued
}

// ReplaceCandidates installs the result of discovery seq. The previous
// candidate set is discarded and the selection is filtered to ids present in
// the new set, keeping its order. A discovery older than the last accepted
// one returns domain.ErrStaleDiscovery and changes nothing. Duplicate or
// missing ids are rejected with a SchemaError.
func (s *Session) ReplaceCandidates(seq uint64, query, phrase string, papers []*domain.PaperRecord) (Snapshot, error) {
	index, err := domain.BuildTitleIndex(papers)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.accepted {
		return Snapshot{}, fmt.Errorf("discovery %d superseded by %d: %w", seq, s.accepted, domain.ErrStaleDiscovery)
	}

	s.accepted = seq
	s.query = query
	s.phrase = phrase
	s.candidates = papers
	s.titleIndex = index

	kept := make([]string, 0, len(s.selection))
	for _, id := range s.selection {
		if _, ok := index[id]; ok {
			kept = append(kept, id)
		}
	}
	s.selection = kept
	s.lastAccess = time.Now()

	return s.snapshotLocked(), nil
}

// SetSelection replaces the selection. Every id must be a current candidate;
// duplicates are dropped keeping the first occurrence.
func (s *Session) SetSelection(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	selection := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.titleIndex[id]; !ok {
			return domain.NewPreconditionError("set selection", fmt.Sprintf("paper %q is not in the current candidate set", id))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		selection = append(selection, id)
	}
	s.selection = selection
	s.lastAccess = time.Now()
	return nil
}

// SelectedPapers re-validates the selection against the title index and
// returns the selected records in selection order. An orphaned id is a
// PreconditionError.
func (s *Session) SelectedPapers() ([]*domain.PaperRecord, domain.TitleIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]*domain.PaperRecord, len(s.candidates))
	for _, p := range s.candidates {
		byID[p.ID] = p
	}

	papers := make([]*domain.PaperRecord, 0, len(s.selection))
	for _, id := range s.selection {
		p, ok := byID[id]
		if _, indexed := s.titleIndex[id]; !ok || !indexed {
			return nil, nil, domain.NewPreconditionError("enrichment", fmt.Sprintf("selected paper %q is no longer a candidate", id))
		}
		papers = append(papers, p)
	}
	s.lastAccess = time.Now()
	return papers, copyIndex(s.titleIndex), nil
}

// Paper returns the candidate with the given id.
func (s *Session) Paper(id string) (*domain.PaperRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.candidates {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// LastAccess reports when the session was last used.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		Sequence:   s.accepted,
		Query:      s.query,
		Phrase:     s.phrase,
		Candidates: append([]*domain.PaperRecord{}, s.candidates...),
		TitleIndex: copyIndex(s.titleIndex),
		Selection:  append([]string{}, s.selection...),
	}
}

func copyIndex(idx domain.TitleIndex) domain.TitleIndex {
	out := make(domain.TitleIndex, len(idx))
	for k, v := range idx {
		out[k] = v
	}
	return out
}
