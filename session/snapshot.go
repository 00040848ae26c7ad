package session

import "github.com/arloliu/tickwire/value"

// Snapshot is the view of a session handed to consumers after each decode attempt.
//
// Series point slices are shared with the session: they are capped so appends
// made later are not visible, but timebar samples written in place are. Copy the
// points to keep them beyond the next decode attempt.
//
// Array holds the slots of the top-level array (id 0) when one was declared,
// with nested declared arrays resolved in place. Slots of time series members
// stay nil: their data is in Series.
type Snapshot struct {
	Result       value.Value
	IsError      bool
	Array        value.Array
	Series       []Series
	TotalDecoded int64
}

// Snapshot returns the current view of the session.
func (s *State) Snapshot() Snapshot {
	series := make([]Series, len(s.series))
	for i, sr := range s.series {
		series[i] = Series{
			Label:   sr.Label,
			Points:  sr.Points[:len(sr.Points):len(sr.Points)],
			Timebar: sr.Timebar,
		}
	}

	return Snapshot{
		Result:       s.result,
		IsError:      s.isError,
		Array:        s.resolveArray(0, 0),
		Series:       series,
		TotalDecoded: s.totalDecoded,
	}
}

// resolveArray copies the slots of array id, replacing empty slots of nested
// array members by their own slots.
func (s *State) resolveArray(id uint32, depth int) value.Array {
	elems, ok := s.arrays[id]
	if !ok || depth > maxRankDepth {
		return nil
	}

	out := make(value.Array, len(elems))
	copy(out, elems)

	members := s.arrayMembers[id]
	for i, v := range out {
		if v != nil || i >= len(members) {
			continue
		}
		if nested := s.resolveArray(members[i], depth+1); nested != nil {
			out[i] = nested
		}
	}

	return out
}

// Items returns the points of the first registered series, or nil.
func (s Snapshot) Items() []Point {
	if len(s.Series) == 0 {
		return nil
	}

	return s.Series[0].Points
}

// ExportedSeries is the serializable form of a series.
type ExportedSeries struct {
	Label   string  `json:"label" msgpack:"label"`
	Timebar bool    `json:"timebar,omitempty" msgpack:"timebar,omitempty"`
	Points  [][]any `json:"points" msgpack:"points"`
}

// Exported is the serializable form of a snapshot.
type Exported struct {
	Result       any              `json:"result" msgpack:"result"`
	IsError      bool             `json:"is_error,omitempty" msgpack:"is_error,omitempty"`
	Array        []any            `json:"array,omitempty" msgpack:"array,omitempty"`
	TotalDecoded int64            `json:"total_decoded" msgpack:"total_decoded"`
	Series       []ExportedSeries `json:"series" msgpack:"series"`
}

// Export converts the snapshot to plain data for JSON or msgpack encoding.
// Series without points are left out, which drops the members emptied by a
// timebar merge.
func (s Snapshot) Export() Exported {
	out := Exported{
		Result:       value.Native(s.Result),
		IsError:      s.IsError,
		TotalDecoded: s.TotalDecoded,
		Series:       make([]ExportedSeries, 0, len(s.Series)),
	}
	if s.Array != nil {
		out.Array, _ = value.Native(s.Array).([]any)
	}

	for _, sr := range s.Series {
		if len(sr.Points) == 0 && !sr.Timebar {
			continue
		}

		points := make([][]any, len(sr.Points))
		for i, p := range sr.Points {
			points[i] = p.Tuple()
		}
		out.Series = append(out.Series, ExportedSeries{
			Label:   sr.Label,
			Timebar: sr.Timebar,
			Points:  points,
		})
	}

	return out
}
