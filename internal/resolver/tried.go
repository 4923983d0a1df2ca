// internal/resolver/tried.go
package resolver

// TriedSet tracks which actions have already been resolved within the
// current page state. Keys are action identities (kind:identifier), so the
// same logical suggestion is attempted at most once per reload epoch.
type TriedSet struct {
	keys map[string]struct{}
}

func NewTriedSet() *TriedSet {
	return &TriedSet{keys: make(map[string]struct{})}
}

func (t *TriedSet) Contains(key string) bool {
	_, ok := t.keys[key]
	return ok
}

func (t *TriedSet) Add(key string) {
	t.keys[key] = struct{}{}
}

func (t *TriedSet) Len() int {
	return len(t.keys)
}

// Clear empties the set. Called when a page reload starts a new epoch.
func (t *TriedSet) Clear() {
	t.keys = make(map[string]struct{})
}
