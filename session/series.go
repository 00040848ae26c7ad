package session

import (
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/value"
)

const nanosPerMilli = 1e6

// Key is the x coordinate of a sample: a time in milliseconds, or a label for
// samples sent without a time.
type Key struct {
	Millis  float64
	Label   string
	HasTime bool
}

// Native returns Millis for timed keys and Label otherwise.
func (k Key) Native() any {
	if k.HasTime {
		return k.Millis
	}

	return k.Label
}

// Sample is one (key, value) pair.
type Sample struct {
	Key   Key
	Value value.Value
}

// Point is one entry of a series: a single sample, or four samples (open, high,
// low, close) for a timebar.
type Point struct {
	Samples []Sample
}

// Tuple flattens the point to key, value, key, value, ...
func (p Point) Tuple() []any {
	out := make([]any, 0, 2*len(p.Samples))
	for _, s := range p.Samples {
		out = append(out, s.Key.Native(), value.Native(s.Value))
	}

	return out
}

// Series is a labelled sequence of points.
type Series struct {
	Label   string
	Points  []Point
	Timebar bool
}

// SeriesPosition returns the ordinal of the series id writes to.
func (s *State) SeriesPosition(id uint32) (int, bool) {
	pos, ok := s.seriesIndex[id]
	return pos, ok
}

// Series returns the series at ordinal pos.
func (s *State) Series(pos int) (Series, bool) {
	if pos < 0 || pos >= len(s.series) {
		return Series{}, false
	}

	return s.series[pos], true
}

// SeriesCount returns the number of registered series, merged ones included.
func (s *State) SeriesCount() int {
	return len(s.series)
}

// RegisterLabel declares id as a time series named label and returns its ordinal.
//
// When id belongs to a timebar candidate array whose four members now all carry
// label, the series of the other three members are merged into the new one:
// their k-th point becomes sample i of bar k, where i is the member's slot, their
// own series are emptied, and their ids are redirected to the merged series with
// a write cursor past the migrated points.
//
// Parameters:
//   - id: Id of the series
//   - label: Series name
//
// Returns:
//   - int: Ordinal of the new series
//   - bool: Whether this label completed a timebar merge
func (s *State) RegisterLabel(id uint32, label string) (int, bool) {
	pos := len(s.series)
	s.seriesIndex[id] = pos
	s.series = append(s.series, Series{Label: label})
	s.labelsSeen++

	w, ok := s.arrayWhere[id]
	if !ok {
		return pos, false
	}
	if _, candidate := s.timebars[w.array]; !candidate {
		return pos, false
	}

	members := s.arrayMembers[w.array]
	for _, m := range members {
		mpos, ok := s.seriesIndex[m]
		if !ok || s.series[mpos].Label != label {
			return pos, false
		}
	}

	s.timebars[w.array] = true
	s.series[pos].Timebar = true

	for i, m := range members {
		mpos := s.seriesIndex[m]
		if mpos == pos {
			s.timebarCursor[m] = 0
			continue
		}

		prev := s.series[mpos].Points
		for k, p := range prev {
			var sample Sample
			if len(p.Samples) > 0 {
				sample = p.Samples[0]
			}
			s.writeBar(pos, k, i, sample)
		}

		s.series[mpos].Points = nil
		s.seriesIndex[m] = pos
		s.timebarCursor[m] = len(prev)
	}

	return pos, true
}

// AppendPoint adds v to the series of id.
//
// nanos is the sample time in nanoseconds. format.NoTime marks a sample without a time:
// its key is the next ordinal, or the first element of v when v is a Pair, in which
// case the second element is the value. Timebar members write their sample at
// their cursor instead of appending.
//
// Reports false when id is not a time series.
func (s *State) AppendPoint(id uint32, v value.Value, nanos int64) bool {
	pos, ok := s.seriesIndex[id]
	if !ok {
		return false
	}

	if cursor, bar := s.timebarCursor[id]; bar {
		sample := s.sample(pos, v, nanos)
		s.writeBar(pos, cursor, s.arrayWhere[id].pos, sample)
		s.timebarCursor[id] = cursor + 1

		return true
	}

	s.series[pos].Points = append(s.series[pos].Points, Point{
		Samples: []Sample{s.sample(pos, v, nanos)},
	})

	return true
}

func (s *State) sample(pos int, v value.Value, nanos int64) Sample {
	if nanos != format.NoTime {
		return Sample{
			Key:   Key{Millis: float64(nanos) / nanosPerMilli, HasTime: true},
			Value: v,
		}
	}

	if pair, ok := v.(value.Pair); ok {
		return Sample{Key: Key{Label: value.FormatKey(pair[0])}, Value: pair[1]}
	}

	ordinal := value.Int(len(s.series[pos].Points) + 1)

	return Sample{Key: Key{Label: value.FormatKey(ordinal)}, Value: v}
}

// writeBar sets sample i of bar k in series pos, appending a bar whose four
// samples all equal sample when k is past the end.
func (s *State) writeBar(pos, k, i int, sample Sample) {
	points := s.series[pos].Points
	if k < len(points) {
		if i < len(points[k].Samples) {
			points[k].Samples[i] = sample
		}

		return
	}

	bar := make([]Sample, TimebarWidth)
	for j := range bar {
		bar[j] = sample
	}
	s.series[pos].Points = append(points, Point{Samples: bar})
}
