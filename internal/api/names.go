package api

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field limits for name records.
const (
	minNConstLen = 2
	maxNConstLen = 20
	maxNameLen   = 512
	maxYear      = 9999
)

// NameBasic is a person record written through the CRUD façade.
type NameBasic struct {
	NConst      string `json:"nconst"`
	PrimaryName string `json:"primaryName"`
	BirthYear   *int32 `json:"birthYear"`
	DeathYear   *int32 `json:"deathYear"`
}

// Normalize trims the text fields in place and checks the limits.
func (n *NameBasic) Normalize() error {
	n.NConst = strings.TrimSpace(n.NConst)
	n.PrimaryName = strings.TrimSpace(n.PrimaryName)

	if l := utf8.RuneCountInString(n.NConst); l < minNConstLen || l > maxNConstLen {
		return fmt.Errorf("nconst must be %d to %d characters", minNConstLen, maxNConstLen)
	}
	if l := utf8.RuneCountInString(n.PrimaryName); l < 1 || l > maxNameLen {
		return fmt.Errorf("primaryName must be 1 to %d characters", maxNameLen)
	}
	if !validYear(n.BirthYear) {
		return fmt.Errorf("birthYear must be between 0 and %d", maxYear)
	}
	if !validYear(n.DeathYear) {
		return fmt.Errorf("deathYear must be between 0 and %d", maxYear)
	}
	return nil
}

func validYear(y *int32) bool {
	return y == nil || (*y >= 0 && *y <= maxYear)
}

// NameStore writes name records. With upsert an existing nconst is
// overwritten, otherwise it is left alone.
type NameStore interface {
	Insert(ctx context.Context, n NameBasic, upsert bool) error
	// InsertBatch writes all items atomically.
	InsertBatch(ctx context.Context, items []NameBasic, upsert bool) error
}

// RoleReporter reports whether the database accepts writes.
type RoleReporter interface {
	Role(ctx context.Context) (string, error)
}
