// Package kdtree implements a static 3-D k-d tree over meter-space points.
// The tree is built once and queried concurrently; it stores dense slot
// indices instead of record ids so payload lookup stays with the caller.
package kdtree

import (
	"container/heap"
	"math"
	"sort"
)

// Hit is one query result: the point's slot and its Euclidean distance in
// meters from the query center.
type Hit struct {
	Slot     uint32
	Distance float64
}

// Tree is a balanced k-d tree. Points holds one meter-space point per
// slot; Order arranges the slots so every subtree occupies a contiguous
// range with its split point in the middle. Both fields are exported so
// the tree survives gob encoding as-is.
type Tree struct {
	Points [][3]float64
	Order  []uint32
}

// New builds a tree over points. The slice index of each point is its slot.
func New(points [][3]float64) *Tree {
	order := make([]uint32, len(points))
	for i := range order {
		order[i] = uint32(i)
	}
	t := &Tree{Points: points, Order: order}
	t.build(0, len(order), 0)
	return t
}

// Len returns the number of indexed points.
func (t *Tree) Len() int { return len(t.Points) }

func (t *Tree) build(lo, hi, depth int) {
	if hi-lo <= 1 {
		return
	}
	axis := depth % 3
	seg := t.Order[lo:hi]
	sort.Slice(seg, func(i, j int) bool {
		return t.Points[seg[i]][axis] < t.Points[seg[j]][axis]
	})
	mid := (lo + hi) / 2
	t.build(lo, mid, depth+1)
	t.build(mid+1, hi, depth+1)
}

// Within returns every point with distance <= radius from center, in no
// particular order. Traversal compares squared distances; the square root
// runs once per reported hit.
func (t *Tree) Within(center [3]float64, radius float64) []Hit {
	if len(t.Points) == 0 || radius < 0 || math.IsNaN(radius) {
		return nil
	}
	var out []Hit
	t.within(0, len(t.Order), 0, center, radius*radius, &out)
	return out
}

func (t *Tree) within(lo, hi, depth int, center [3]float64, r2 float64, out *[]Hit) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	slot := t.Order[mid]
	d2 := sqDist(t.Points[slot], center)
	if d2 <= r2 {
		*out = append(*out, Hit{Slot: slot, Distance: math.Sqrt(d2)})
	}

	axis := depth % 3
	delta := center[axis] - t.Points[slot][axis]
	if delta <= 0 {
		t.within(lo, mid, depth+1, center, r2, out)
		if delta*delta <= r2 {
			t.within(mid+1, hi, depth+1, center, r2, out)
		}
	} else {
		t.within(mid+1, hi, depth+1, center, r2, out)
		if delta*delta <= r2 {
			t.within(lo, mid, depth+1, center, r2, out)
		}
	}
}

// Nearest returns the min(k, Len) points closest to center, ascending by
// distance. Equidistant points are kept in traversal order; callers must
// not rely on a specific tie-break.
func (t *Tree) Nearest(center [3]float64, k int) []Hit {
	if k <= 0 || len(t.Points) == 0 {
		return nil
	}
	h := &candidateHeap{}
	t.nearest(0, len(t.Order), 0, center, k, h)

	out := make([]Hit, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		c := heap.Pop(h).(candidate)
		out[i] = Hit{Slot: c.slot, Distance: math.Sqrt(c.d2)}
	}
	return out
}

func (t *Tree) nearest(lo, hi, depth int, center [3]float64, k int, h *candidateHeap) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	slot := t.Order[mid]
	d2 := sqDist(t.Points[slot], center)

	if h.Len() < k {
		heap.Push(h, candidate{slot: slot, d2: d2})
	} else if d2 < (*h)[0].d2 {
		(*h)[0] = candidate{slot: slot, d2: d2}
		heap.Fix(h, 0)
	}

	axis := depth % 3
	delta := center[axis] - t.Points[slot][axis]

	nearLo, nearHi := lo, mid
	farLo, farHi := mid+1, hi
	if delta > 0 {
		nearLo, nearHi = mid+1, hi
		farLo, farHi = lo, mid
	}

	t.nearest(nearLo, nearHi, depth+1, center, k, h)
	if h.Len() < k || delta*delta < (*h)[0].d2 {
		t.nearest(farLo, farHi, depth+1, center, k, h)
	}
}

func sqDist(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}

// candidateHeap is a max-heap on squared distance, holding the best k
// candidates seen so far.
type candidate struct {
	slot uint32
	d2   float64
}

type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].d2 > h[j].d2 }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
