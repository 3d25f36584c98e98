package reaction

import (
	"strconv"
	"sync"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// Store holds the in-memory forward table of reactions keyed by idx and the
// derived reverse index from product name to the set of reaction IDs that
// produce it. The reverse index is private, never separately writable, and
// is rebuilt in full whenever the forward table mutates.
//
// Store is safe for concurrent use; AddReactions is atomic — either every
// reaction in the batch passes validation and is committed, or none
// are.
type Store struct {
	mu sync.RWMutex

	byID         map[string]Reaction
	productIndex map[string]map[string]struct{} // product name -> set of idx
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		byID:         make(map[string]Reaction),
		productIndex: make(map[string]map[string]struct{}),
	}
}

// AddReactions merges a batch of reactions into the store. IDs that collide
// with an existing entry are overwritten (last write wins). The entire batch
// is validated before anything is committed: if any reaction in the batch
// fails Validate, the store is left unchanged and an error is returned.
// The reverse index is rebuilt after the batch merge completes, never
// during.
func (s *Store) AddReactions(batch []Reaction) error {
	if len(batch) == 0 {
		return nil
	}
	for _, r := range batch {
		if err := r.Validate(); err != nil {
			return errors.Wrap(err, errors.CodeReactionInvalid, "batch rejected").
				WithDetail("batch_size=" + strconv.Itoa(len(batch)))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range batch {
		s.byID[r.ID] = r
	}
	s.rebuildProductIndexLocked()
	return nil
}

// rebuildProductIndexLocked recomputes the reverse index from scratch over
// the current forward table. Callers must hold s.mu for writing.
func (s *Store) rebuildProductIndexLocked() {
	idx := make(map[string]map[string]struct{}, len(s.productIndex))
	for id, r := range s.byID {
		for _, p := range r.Products {
			set, ok := idx[p]
			if !ok {
				set = make(map[string]struct{})
				idx[p] = set
			}
			set[id] = struct{}{}
		}
	}
	s.productIndex = idx
}

// Get returns the reaction with the given idx, or (Reaction{}, false) if no
// such reaction exists.
func (s *Store) Get(idx string) (Reaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[idx]
	return r, ok
}

// Producers returns the sorted list of reaction IDs that produce the given
// (already-lowercased) substance name. It is O(1) amortized via the
// precomputed reverse index, plus O(k log k) to sort the result.
func (s *Store) Producers(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.productIndex[name]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return sortedCopy(ids)
}

// Iterate returns every reaction currently in the store, ordered by idx for
// deterministic iteration.
func (s *Store) Iterate() []Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	ids = sortedCopy(ids)
	out := make([]Reaction, len(ids))
	for i, id := range ids {
		out[i] = s.byID[id]
	}
	return out
}

// Len returns the number of reactions currently in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// AllNames returns every distinct reactant and product name currently held
// by the store, sorted. Used by the Entity Aligner to build its candidate
// name set for both alignment passes.
func (s *Store) AllNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for _, r := range s.byID {
		for _, n := range r.Reactants {
			set[n] = struct{}{}
		}
		for _, n := range r.Products {
			set[n] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	return sortedCopy(names)
}

// Rename applies mapping (surviving-name -> canonical) to every reactant and
// product across the store, then rebuilds the derived reverse index.
// Idempotent: re-applying the same mapping after it has already been
// applied is a no-op, since every renamed occurrence now maps to
// itself.
func (s *Store) Rename(mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.byID {
		r.Reactants = renameAll(r.Reactants, mapping)
		r.Products = renameAll(r.Products, mapping)
		s.byID[id] = r
	}
	s.rebuildProductIndexLocked()
}

func renameAll(names []string, mapping map[string]string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if canonical, ok := mapping[n]; ok {
			out[i] = canonical
		} else {
			out[i] = n
		}
	}
	return out
}

// Project returns a new Store containing only the reactions whose idx is in
// allowed. Used by the reaction filter to produce a filtered
// store without mutating the original.
func (s *Store) Project(allowed map[string]struct{}) *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := NewStore()
	for id, r := range s.byID {
		if _, ok := allowed[id]; ok {
			out.byID[id] = r
		}
	}
	out.rebuildProductIndexLocked()
	return out
}
