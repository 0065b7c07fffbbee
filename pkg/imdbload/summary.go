package imdbload

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RelationCount aggregates flush results for one destination relation.
//
// Offered is the loader's self-reported count: rows handed to the inserter,
// an upper bound on affected rows used for progress only. Inserted is what the
// database reported; Filtered is only populated with diagnostics enabled.
type RelationCount struct {
	Relation string
	Offered  int64
	Inserted int64
	Filtered int64
	Flushes  int
}

// Summary is the outcome of one load run.
type Summary struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Relations []RelationCount
}

// NewSummary starts an empty summary with a fresh run ID.
func NewSummary() *Summary {
	return &Summary{RunID: uuid.New(), StartedAt: time.Now()}
}

// Add folds one flush result into the relation's totals, keeping first-seen order.
func (s *Summary) Add(relation string, offered, inserted, filtered int64) {
	for i := range s.Relations {
		if s.Relations[i].Relation == relation {
			s.Relations[i].Offered += offered
			s.Relations[i].Inserted += inserted
			s.Relations[i].Filtered += filtered
			s.Relations[i].Flushes++
			return
		}
	}
	s.Relations = append(s.Relations, RelationCount{
		Relation: relation,
		Offered:  offered,
		Inserted: inserted,
		Filtered: filtered,
		Flushes:  1,
	})
}

// Get returns the totals for a relation, or a zero count if it never flushed.
func (s *Summary) Get(relation string) RelationCount {
	for _, rc := range s.Relations {
		if rc.Relation == relation {
			return rc
		}
	}
	return RelationCount{Relation: relation}
}

// String renders "relation: offered, ..." in load order.
func (s *Summary) String() string {
	parts := make([]string, 0, len(s.Relations))
	for _, rc := range s.Relations {
		parts = append(parts, fmt.Sprintf("%s: %d", rc.Relation, rc.Offered))
	}
	return strings.Join(parts, ", ")
}
