package runtime

import "github.com/aretw0/nodegraph/pkg/domain"

// worklist is an insertion-ordered set of node handles.
type worklist struct {
	items  []domain.NodeID
	member map[domain.NodeID]bool
}

func newWorklist(seed []domain.NodeID) *worklist {
	w := &worklist{member: make(map[domain.NodeID]bool)}
	for _, id := range seed {
		w.add(id)
	}
	return w
}

func (w *worklist) add(id domain.NodeID) {
	if w.member[id] {
		return
	}
	w.member[id] = true
	w.items = append(w.items, id)
}

func (w *worklist) remove(id domain.NodeID) {
	if !w.member[id] {
		return
	}
	delete(w.member, id)
	for i, x := range w.items {
		if x == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return
		}
	}
}

func (w *worklist) has(id domain.NodeID) bool { return w.member[id] }
func (w *worklist) empty() bool               { return len(w.items) == 0 }
func (w *worklist) len() int                  { return len(w.items) }

// snapshot returns a copy of the items so a pass can iterate while the list changes.
func (w *worklist) snapshot() []domain.NodeID {
	out := make([]domain.NodeID, len(w.items))
	copy(out, w.items)
	return out
}
