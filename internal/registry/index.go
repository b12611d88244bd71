package registry

import "apeguard/pkg/platform/tx"

// index is a dense list of keys plus a canonical-form to position table.
// Removal swaps the last element into the freed slot, so positions are not
// stable across removals. Every mutation records its inverse in the journal.
type index[K any] struct {
	items    []K
	canons   []string
	position map[string]int
}

func newIndex[K any]() *index[K] {
	return &index[K]{position: make(map[string]int)}
}

func (x *index[K]) len() int { return len(x.items) }

func (x *index[K]) find(canon string) (int, bool) {
	i, ok := x.position[canon]
	return i, ok
}

func (x *index[K]) at(i int) (K, bool) {
	if i < 0 || i >= len(x.items) {
		var zero K
		return zero, false
	}
	return x.items[i], true
}

func (x *index[K]) snapshot() []K {
	out := make([]K, len(x.items))
	copy(out, x.items)
	return out
}

func (x *index[K]) push(j *tx.Journal, canon string, key K) int {
	x.items = append(x.items, key)
	x.canons = append(x.canons, canon)
	i := len(x.items) - 1
	x.position[canon] = i
	j.Record(func() { x.pop(canon) })
	return i
}

// remove deletes canon with swap-and-pop and returns the stored key.
func (x *index[K]) remove(j *tx.Journal, canon string) (K, bool) {
	idx, ok := x.position[canon]
	if !ok {
		var zero K
		return zero, false
	}
	removed := x.items[idx]
	last := len(x.items) - 1
	if idx != last {
		x.items[idx] = x.items[last]
		x.canons[idx] = x.canons[last]
		x.position[x.canons[idx]] = idx
	}
	x.pop(canon)

	j.Record(func() {
		if idx != last {
			movedKey, movedCanon := x.items[idx], x.canons[idx]
			x.items = append(x.items, movedKey)
			x.canons = append(x.canons, movedCanon)
			x.position[movedCanon] = last
			x.items[idx], x.canons[idx] = removed, canon
		} else {
			x.items = append(x.items, removed)
			x.canons = append(x.canons, canon)
		}
		x.position[canon] = idx
	})
	return removed, true
}

// pop drops the final slot and forgets canon.
func (x *index[K]) pop(canon string) {
	last := len(x.items) - 1
	var zero K
	x.items[last] = zero
	x.items = x.items[:last]
	x.canons = x.canons[:last]
	delete(x.position, canon)
}
