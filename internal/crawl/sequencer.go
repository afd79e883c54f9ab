package crawl

import "github.com/sells-group/office-scraper/internal/model"

// sequencer releases outcomes in input order regardless of completion order.
type sequencer struct {
	pos     map[int]int // row index -> position in the table
	next    int
	pending map[int]Outcome
}

func newSequencer(rows []model.SourceRow) *sequencer {
	pos := make(map[int]int, len(rows))
	for i, r := range rows {
		pos[r.Index] = i
	}
	return &sequencer{pos: pos, pending: make(map[int]Outcome)}
}

// push buffers o and returns every outcome that is now next in line.
func (s *sequencer) push(o Outcome) []Outcome {
	s.pending[s.pos[o.Row]] = o

	var ready []Outcome
	for {
		next, ok := s.pending[s.next]
		if !ok {
			return ready
		}
		delete(s.pending, s.next)
		ready = append(ready, next)
		s.next++
	}
}
