package session

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
)

func papers(ids ...string) []*domain.PaperRecord {
	out := make([]*domain.PaperRecord, len(ids))
	for i, id := range ids {
		out[i] = &domain.PaperRecord{ID: id, Title: "Title " + id}
		out[i].Normalize()
	}
	return out
}

func TestSession_ReplaceCandidates(t *testing.T) {
	t.Run("title index mirrors candidates", func(t *testing.T) {
		s := New("s1")
		snap, err := s.ReplaceCandidates(s.BeginDiscovery(), "q", "phrase", papers("A1", "A2"))
		require.NoError(t, err)

		assert.Equal(t, domain.TitleIndex{"A1": "Title A1", "A2": "Title A2"}, snap.TitleIndex)
		assert.Len(t, snap.Candidates, len(snap.TitleIndex))
		assert.Equal(t, uint64(1), snap.Sequence)
		assert.Equal(t, "phrase", snap.Phrase)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		s := New("s1")
		_, err := s.ReplaceCandidates(s.BeginDiscovery(), "q", "p", papers("A1", "A1"))
		assert.ErrorIs(t, err, domain.ErrSchema)
		assert.Empty(t, s.Snapshot().Candidates)
	})

	t.Run("selection is filtered to surviving ids", func(t *testing.T) {
		s := New("s1")
		_, err := s.ReplaceCandidates(s.BeginDiscovery(), "q", "p", papers("A1", "A2", "A3"))
		require.NoError(t, err)
		require.NoError(t, s.SetSelection([]string{"A3", "A1", "A2"}))

		snap, err := s.ReplaceCandidates(s.BeginDiscovery(), "q2", "p2", papers("A2", "B1", "A3"))
		require.NoError(t, err)
		assert.Equal(t, []string{"A3", "A2"}, snap.Selection)
		_, stillThere := snap.TitleIndex["A1"]
		assert.False(t, stillThere)
	})

	t.Run("stale discovery is discarded", func(t *testing.T) {
		s := New("s1")
		first := s.BeginDiscovery()
		second := s.BeginDiscovery()

		_, err := s.ReplaceCandidates(second, "new", "new", papers("N1"))
		require.NoError(t, err)

		_, err = s.ReplaceCandidates(first, "old", "old", papers("O1"))
		assert.ErrorIs(t, err, domain.ErrStaleDiscovery)

		snap := s.Snapshot()
		assert.Equal(t, second, snap.Sequence)
		assert.Equal(t, domain.TitleIndex{"N1": "Title N1"}, snap.TitleIndex)
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		s := New("s1")
		_, err := s.ReplaceCandidates(s.BeginDiscovery(), "q", "p", papers("A1"))
		require.NoError(t, err)

		snap := s.Snapshot()
		snap.TitleIndex["X"] = "mutated"
		snap.Selection = append(snap.Selection, "X")

		again := s.Snapshot()
		if diff := cmp.Diff(domain.TitleIndex{"A1": "Title A1"}, again.TitleIndex); diff != "" {
			t.Errorf("title index changed (-want +got):\n%s", diff)
		}
		assert.Empty(t, again.Selection)
	})
}

func TestSession_SetSelection(t *testing.T) {
	s := New("s1")
	_, err := s.ReplaceCandidates(s.BeginDiscovery(), "q", "p", papers("A1", "A2"))
	require.NoError(t, err)

	t.Run("unknown id is a precondition error", func(t *testing.T) {
		err := s.SetSelection([]string{"A1", "ZZ"})
		assert.ErrorIs(t, err, domain.ErrPrecondition)
		assert.Empty(t, s.Snapshot().Selection, "failed selection leaves the previous one")
	})

	t.Run("duplicates collapse in order", func(t *testing.T) {
		require.NoError(t, s.SetSelection([]string{"A2", "A1", "A2"}))
		assert.Equal(t, []string{"A2", "A1"}, s.Snapshot().Selection)
	})

	t.Run("empty selection clears", func(t *testing.T) {
		require.NoError(t, s.SetSelection(nil))
		assert.Empty(t, s.Snapshot().Selection)
	})
}

func TestSession_SelectedPapers(t *testing.T) {
	s := New("s1")
	_, err := s.ReplaceCandidates(s.BeginDiscovery(), "q", "p", papers("A1", "A2"))
	require.NoError(t, err)
	require.NoError(t, s.SetSelection([]string{"A2", "A1"}))

	selected, index, err := s.SelectedPapers()
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "A2", selected[0].ID)
	assert.Equal(t, "Title A1", index["A1"])

	t.Run("orphaned id is refused", func(t *testing.T) {
		s.mu.Lock()
		s.selection = append(s.selection, "GONE")
		s.mu.Unlock()

		_, _, err := s.SelectedPapers()
		assert.ErrorIs(t, err, domain.ErrPrecondition)
	})
}

func TestSession_ConcurrentDiscoveries(t *testing.T) {
	s := New("s1")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq := s.BeginDiscovery()
			_, _ = s.ReplaceCandidates(seq, "q", "p", papers("A1"))
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, domain.TitleIndex{"A1": "Title A1"}, snap.TitleIndex)
	assert.LessOrEqual(t, snap.Sequence, uint64(20))
}

func TestSession_Paper(t *testing.T) {
	s := New("s1")
	_, err := s.ReplaceCandidates(s.BeginDiscovery(), "q", "p", papers("A1"))
	require.NoError(t, err)

	p, ok := s.Paper("A1")
	require.True(t, ok)
	assert.Equal(t, "Title A1", p.Title)

	_, ok = s.Paper("nope")
	assert.False(t, ok)
}
