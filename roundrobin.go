package memphis

import "sync/atomic"

// partitionIterator cycles through a station's declared partition list in
// broker order. A nil/empty iterator means the station is unpartitioned.
// next() is lock-free (an atomic counter) so concurrent produce calls on one
// Producer still make progress, though the documented contract is one
// producer per task at a time; the atomic only prevents a data race, not a
// guaranteed-fair interleaving under concurrent callers.
type partitionIterator struct {
	partitions []int
	cursor     atomic.Uint64
}

func newPartitionIterator(partitions []int) *partitionIterator {
	if len(partitions) == 0 {
		return nil
	}
	cp := make([]int, len(partitions))
	copy(cp, partitions)
	return &partitionIterator{partitions: cp}
}

// next returns the next partition in cyclic order, and true. Returns
// (0, false) if the iterator is empty (should not happen given the
// constructor's nil-on-empty behavior, but kept for safety).
func (it *partitionIterator) next() (int, bool) {
	if it == nil || len(it.partitions) == 0 {
		return 0, false
	}
	i := it.cursor.Add(1) - 1
	return it.partitions[int(i)%len(it.partitions)], true
}

// list returns the partitions in broker-declared order.
func (it *partitionIterator) list() []int {
	if it == nil {
		return nil
	}
	return it.partitions
}
