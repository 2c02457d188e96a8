package ledger

import "maps"

// Stats counts applied and discarded records.
type Stats struct {
	Applied   int
	Discarded int

	AppliedByType   map[Operation]int
	DiscardedByType map[Operation]int
}

func newStats() Stats {
	return Stats{
		AppliedByType:   make(map[Operation]int),
		DiscardedByType: make(map[Operation]int),
	}
}

func (s *Stats) apply(op Operation) {
	s.Applied++
	s.AppliedByType[op]++
}

func (s *Stats) discard(op Operation) {
	s.Discarded++
	s.DiscardedByType[op]++
}

func (s Stats) clone() Stats {
	s.AppliedByType = maps.Clone(s.AppliedByType)
	s.DiscardedByType = maps.Clone(s.DiscardedByType)
	return s
}

// Total is the number of records seen.
func (s Stats) Total() int {
	return s.Applied + s.Discarded
}
