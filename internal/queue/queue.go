// Package queue provides a bounded top-k candidate collector for
// nearest-neighbor scans. This is an internal package.
package queue

import "sort"

// Candidate is a scored row produced by a vector scan.
type Candidate struct {
	ID       uint64  // ID is the stable identifier of the row.
	Distance float32 // Distance is the squared L2 distance to the query.
}

// TopK keeps the k candidates with the smallest distances seen so far.
//
// Internally it is a max-heap on distance: the root is the current worst
// candidate, so an incoming better candidate replaces it in O(log k).
// Candidates must be pushed in ascending ID order; combined with the
// strict-less replacement rule this guarantees that among equal-distance
// candidates the lowest IDs are retained, which keeps result ordering
// deterministic.
type TopK struct {
	k     int
	items []Candidate
}

// NewTopK creates a collector bounded to k candidates. k must be positive.
func NewTopK(k int) *TopK {
	capHint := k
	if capHint > 1024 {
		capHint = 1024
	}
	return &TopK{
		k:     k,
		items: make([]Candidate, 0, capHint),
	}
}

// Len returns the number of collected candidates.
func (t *TopK) Len() int {
	return len(t.items)
}

// Push offers a candidate to the collector.
func (t *TopK) Push(c Candidate) {
	if len(t.items) < t.k {
		t.items = append(t.items, c)
		t.siftUp(len(t.items) - 1)
		return
	}

	// Full: admit only strictly better candidates than the current worst.
	if c.Distance < t.items[0].Distance {
		t.items[0] = c
		t.siftDown(0)
	}
}

// Sorted drains the collector and returns the candidates ordered by
// ascending distance, ties broken by ascending ID. The collector must not
// be reused afterwards.
func (t *TopK) Sorted() []Candidate {
	out := t.items
	t.items = nil

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func (t *TopK) less(i, j int) bool {
	// Max-heap on distance; among equals the larger ID sits closer to the
	// root so it is the first evicted.
	if t.items[i].Distance != t.items[j].Distance {
		return t.items[i].Distance > t.items[j].Distance
	}
	return t.items[i].ID > t.items[j].ID
}

func (t *TopK) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !t.less(i, parent) {
			break
		}
		t.items[i], t.items[parent] = t.items[parent], t.items[i]
		i = parent
	}
}

func (t *TopK) siftDown(i int) {
	n := len(t.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && t.less(right, left) {
			child = right
		}
		if !t.less(child, i) {
			break
		}
		t.items[i], t.items[child] = t.items[child], t.items[i]
		i = child
	}
}
