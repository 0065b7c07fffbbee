// Package synth generates synthetic name records and replays them against a
// running façade.
package synth

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/vvka-141/imdbload/internal/api"
)

var (
	firstNames = []string{"Ana", "Luis", "María", "Carlos", "Sofía", "Jorge", "Elena", "Mateo", "Lucía", "Diego"}
	lastNames  = []string{"García", "Hernández", "Martínez", "López", "González", "Pérez", "Rodríguez", "Sánchez", "Ramírez", "Flores"}
)

const (
	nconstSpace  = 10_000_000
	maxOffset    = 9_000_000
	minBirthYear = 1850
	maxBirthYear = 2010
	maxDeathYear = 2024
	// deathShare is the fraction of records that carry a death year.
	deathShare = 0.25
)

// Generator hands out records with sequential nconsts starting at a random
// offset, so two generators rarely collide.
//
// Thread-Safety: safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	next uint64
}

// NewGenerator seeds a generator. The same seed yields the same sequence.
func NewGenerator(seed uint64) *Generator {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Generator{rnd: rnd, next: uint64(rnd.IntN(maxOffset + 1))}
}

// NConst returns "nm" followed by seven digits, wrapping after nm9999999.
func (g *Generator) NConst() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nconstLocked()
}

func (g *Generator) nconstLocked() string {
	id := g.next % nconstSpace
	g.next++
	return fmt.Sprintf("nm%07d", id)
}

// Record returns one synthetic person.
func (g *Generator) Record() api.NameBasic {
	g.mu.Lock()
	defer g.mu.Unlock()

	birth := int32(minBirthYear + g.rnd.IntN(maxBirthYear-minBirthYear+1))
	var death *int32
	if g.rnd.Float64() >= 1-deathShare {
		lo := max(birth, 1900)
		d := lo + int32(g.rnd.IntN(int(maxDeathYear-lo+1)))
		death = &d
	}
	return api.NameBasic{
		NConst:      g.nconstLocked(),
		PrimaryName: firstNames[g.rnd.IntN(len(firstNames))] + " " + lastNames[g.rnd.IntN(len(lastNames))],
		BirthYear:   &birth,
		DeathYear:   death,
	}
}

// Batch returns k records.
func (g *Generator) Batch(k int) []api.NameBasic {
	out := make([]api.NameBasic, k)
	for i := range out {
		out[i] = g.Record()
	}
	return out
}
