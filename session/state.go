// Package session holds the per-connection state that ties decoded values together.
//
// Values on the stream refer to each other through 24-bit ids: an array header
// declares the ids of its future members, a time series label gives an id its
// series, and later values carrying that id land in the array slot or the series.
// State keeps those id tables, the accumulated series data and the counters used by
// the stream controller.
//
// Four time series declared by one array header and labelled identically are an
// OHLC timebar. When the fourth label arrives the series are merged: every point
// becomes a four sample bar and later values for any of the four ids write their
// sample in place.
//
// State is owned by a single stream controller and is not safe for concurrent use.
package session

import (
	"strconv"

	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/value"
)

// TimebarWidth is the number of member series of a timebar.
const TimebarWidth = 4

// maxRankDepth bounds array nesting walks.
const maxRankDepth = 64

// slot records where a member value is written.
type slot struct {
	array uint32
	pos   int
}

// pendingTensor is a tensor whose elements span several chunks.
type pendingTensor struct {
	id     uint32
	tensor *value.Tensor
}

// State is the mutable decoding context of one connection.
type State struct {
	result  value.Value
	isError bool

	series      []Series
	seriesIndex map[uint32]int

	arrays        map[uint32][]value.Value
	arrayWhere    map[uint32]slot
	arrayMembers  map[uint32][]uint32
	timebars      map[uint32]bool
	timebarCursor map[uint32]int

	pending *pendingTensor

	neededLabels int
	labelsSeen   int

	totalDecoded int64
	mark         int64
}

// New creates an empty State.
func New() *State {
	return &State{
		seriesIndex:   make(map[uint32]int),
		arrays:        make(map[uint32][]value.Value),
		arrayWhere:    make(map[uint32]slot),
		arrayMembers:  make(map[uint32][]uint32),
		timebars:      make(map[uint32]bool),
		timebarCursor: make(map[uint32]int),
	}
}

// Result returns the last top-level value and whether the session is in error.
func (s *State) Result() (value.Value, bool) {
	return s.result, s.isError
}

// SetResult records v as the top-level result.
func (s *State) SetResult(v value.Value) {
	s.result = v
}

// SetError puts the session in error state. It is never cleared.
func (s *State) SetError() {
	s.isError = true
}

// IsError reports whether the server sent an error value.
func (s *State) IsError() bool {
	return s.isError
}

// RegisterArray records an array header.
//
// Each member id is mapped to its slot. Time series members increase the number
// of labels needed. An array of exactly four time series becomes a timebar
// candidate, confirmed only once all four labels are equal.
//
// Parameters:
//   - id: Id of the array
//   - members: Declared members in slot order
func (s *State) RegisterArray(id uint32, members []value.Member) {
	s.arrays[id] = make([]value.Value, len(members))

	ids := make([]uint32, len(members))
	series := 0
	for i, m := range members {
		ids[i] = m.ID
		s.arrayWhere[m.ID] = slot{array: id, pos: i}
		if m.Tag == format.TypeTimeSerie {
			series++
		}
	}
	s.arrayMembers[id] = ids
	s.neededLabels += series

	if len(members) == TimebarWidth && series == TimebarWidth {
		s.timebars[id] = false
	}
}

// StoreArray records an inline array under its own id.
func (s *State) StoreArray(id uint32, elems value.Array) {
	s.arrays[id] = elems
}

// Array returns the elements of array id.
func (s *State) Array(id uint32) ([]value.Value, bool) {
	a, ok := s.arrays[id]
	return a, ok
}

// InArray reports whether id was declared as an array member.
func (s *State) InArray(id uint32) bool {
	_, ok := s.arrayWhere[id]
	return ok
}

// SetSlot writes v into the array slot declared for id.
// Reports false when id is not an array member.
func (s *State) SetSlot(id uint32, v value.Value) bool {
	w, ok := s.arrayWhere[id]
	if !ok {
		return false
	}

	elems := s.arrays[w.array]
	if w.pos >= len(elems) {
		return false
	}
	elems[w.pos] = v

	return true
}

// Rank returns the path of id through nested arrays: the slot positions from the
// top-level array (id 0, rendered "0") down to id, concatenated. Ids outside any
// array return "".
func (s *State) Rank(id uint32) string {
	var path []int
	for depth := 0; id != 0; depth++ {
		w, ok := s.arrayWhere[id]
		if !ok || depth == maxRankDepth {
			return ""
		}
		path = append(path, w.pos)
		id = w.array
	}

	rank := []byte{'0'}
	for i := len(path) - 1; i >= 0; i-- {
		rank = strconv.AppendInt(rank, int64(path[i]), 10)
	}

	return string(rank)
}

// LabelsPending reports whether some declared time series have no label yet.
func (s *State) LabelsPending() bool {
	return s.neededLabels > s.labelsSeen
}

// PendingTensor returns the tensor being assembled across chunks.
func (s *State) PendingTensor() (uint32, *value.Tensor, bool) {
	if s.pending == nil {
		return 0, nil, false
	}

	return s.pending.id, s.pending.tensor, true
}

// ParkTensor stores a partially received tensor.
func (s *State) ParkTensor(id uint32, t *value.Tensor) {
	s.pending = &pendingTensor{id: id, tensor: t}
}

// ClearTensor forgets the pending tensor.
func (s *State) ClearTensor() {
	s.pending = nil
}

// AddDecoded adds weight to the decoded value counter.
func (s *State) AddDecoded(weight int64) {
	s.totalDecoded += weight
}

// TotalDecoded returns the decoded value counter.
func (s *State) TotalDecoded() int64 {
	return s.totalDecoded
}

// Mark records the decoded value counter as the point Restore returns to.
func (s *State) Mark() {
	s.mark = s.totalDecoded
}

// Restore resets the decoded value counter to the last Mark.
func (s *State) Restore() {
	s.totalDecoded = s.mark
}
