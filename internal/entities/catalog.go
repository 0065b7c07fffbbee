package entities

import (
	"fmt"
	"strings"

	"github.com/vvka-141/imdbload/internal/batch"
	"github.com/vvka-141/imdbload/internal/files/tsv"
	n "github.com/vvka-141/imdbload/internal/normalize"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Entity names, in load order.
const (
	TitleBasics     = "title.basics"
	NameBasics      = "name.basics"
	TitleAkas       = "title.akas"
	TitleCrew       = "title.crew"
	TitleEpisode    = "title.episode"
	TitlePrincipals = "title.principals"
	TitleRatings    = "title.ratings"
)

// Identifier columns are stored as read; only text attributes are normalized.

var titleBasics = Spec{
	Entity:   TitleBasics,
	Required: []string{"tconst", "titleType", "primaryTitle", "originalTitle", "isAdult", "startYear", "endYear", "runtimeMinutes"},
	Targets: []Target{
		{Relation: schema.TitleBasics, Tier: batch.Small},
		{Relation: schema.BasicsGenres, Tier: batch.Medium, After: []string{schema.TitleBasics.Name}},
	},
	Map: func(rec tsv.Record, emit Emit) {
		tconst := rec.Get("tconst")
		primary := n.Required(rec.Get("primaryTitle"))
		emit(schema.TitleBasics.Name,
			tconst,
			n.Required(rec.Get("titleType")),
			primary,
			n.Required(rec.Get("originalTitle")),
			n.Bool(rec.Get("isAdult")),
			n.Year(rec.Get("startYear")),
			n.Year(rec.Get("endYear")),
			n.Int(rec.Get("runtimeMinutes")),
		)
		for _, g := range n.List(rec.Get("genres")) {
			emit(schema.BasicsGenres.Name, tconst, primary, g)
		}
	},
}

var nameBasics = Spec{
	Entity:   NameBasics,
	Required: []string{"nconst", "primaryName", "birthYear", "deathYear"},
	Targets: []Target{
		{Relation: schema.NameBasics, Tier: batch.Small},
		{Relation: schema.NameProfessions, Tier: batch.Medium, After: []string{schema.NameBasics.Name}},
		{Relation: schema.NameKnownFor, Tier: batch.Medium, After: []string{schema.NameBasics.Name}},
	},
	Map: func(rec tsv.Record, emit Emit) {
		nconst := rec.Get("nconst")
		emit(schema.NameBasics.Name,
			nconst,
			n.Required(rec.Get("primaryName")),
			n.Year(rec.Get("birthYear")),
			n.Year(rec.Get("deathYear")),
		)
		for _, p := range n.List(rec.Get("primaryProfession")) {
			emit(schema.NameProfessions.Name, nconst, p)
		}
		for _, t := range n.List(rec.Get("knownForTitles")) {
			emit(schema.NameKnownFor.Name, nconst, t)
		}
	},
}

var titleAkas = Spec{
	Entity:   TitleAkas,
	Required: []string{"titleId", "ordering", "title"},
	Targets: []Target{
		{Relation: schema.Akas, Tier: batch.Small},
		{Relation: schema.AkaTypes, Tier: batch.Medium, After: []string{schema.Akas.Name}},
		{Relation: schema.AkaAttributes, Tier: batch.Medium, After: []string{schema.Akas.Name}},
	},
	Map: func(rec tsv.Record, emit Emit) {
		titleID := rec.Get("titleId")
		ordering := n.Int(rec.Get("ordering"))
		emit(schema.Akas.Name,
			titleID,
			ordering,
			n.Required(rec.Get("title")),
			n.Null(rec.Get("region")),
			n.Bool(rec.Get("isOriginalTitle")),
		)
		for _, t := range n.List(rec.Get("types")) {
			emit(schema.AkaTypes.Name, titleID, ordering, t)
		}
		for _, a := range n.List(rec.Get("attributes")) {
			emit(schema.AkaAttributes.Name, titleID, ordering, a)
		}
	},
}

var titleCrew = Spec{
	Entity:   TitleCrew,
	Required: []string{"tconst"},
	Targets: []Target{
		{Relation: schema.CrewDirectors, Tier: batch.Medium},
		{Relation: schema.CrewWriters, Tier: batch.Medium},
	},
	Map: func(rec tsv.Record, emit Emit) {
		tconst := rec.Get("tconst")
		for _, d := range n.List(rec.Get("directors")) {
			emit(schema.CrewDirectors.Name, tconst, d)
		}
		for _, w := range n.List(rec.Get("writers")) {
			emit(schema.CrewWriters.Name, tconst, w)
		}
	},
}

var titleEpisode = Spec{
	Entity:   TitleEpisode,
	Required: []string{"tconst", "parentTconst"},
	Targets: []Target{
		{Relation: schema.Episodes, Tier: batch.Small},
	},
	Map: func(rec tsv.Record, emit Emit) {
		emit(schema.Episodes.Name,
			rec.Get("tconst"),
			n.Null(rec.Get("parentTconst")),
			n.Int(rec.Get("seasonNumber")),
			n.Int(rec.Get("episodeNumber")),
		)
	},
}

var titlePrincipals = Spec{
	Entity:   TitlePrincipals,
	Required: []string{"tconst", "ordering", "nconst", "category"},
	Targets: []Target{
		{Relation: schema.Principals, Tier: batch.Small},
	},
	Map: func(rec tsv.Record, emit Emit) {
		emit(schema.Principals.Name,
			rec.Get("tconst"),
			n.Int(rec.Get("ordering")),
			rec.Get("nconst"),
			n.Required(rec.Get("category")),
			n.Null(rec.Get("job")),
			n.Null(rec.Get("characters")),
		)
	},
}

var titleRatings = Spec{
	Entity:   TitleRatings,
	Required: []string{"tconst", "averageRating", "numVotes"},
	Targets: []Target{
		{Relation: schema.Ratings, Tier: batch.Medium},
	},
	Map: func(rec tsv.Record, emit Emit) {
		emit(schema.Ratings.Name,
			rec.Get("tconst"),
			n.FloatOr(rec.Get("averageRating"), 0),
			n.IntOr(rec.Get("numVotes"), 0),
		)
	},
}

// All returns every entity spec in dependency order: titles, names, akas,
// crew, episodes, principals, ratings.
func All() []Spec {
	return []Spec{titleBasics, nameBasics, titleAkas, titleCrew, titleEpisode, titlePrincipals, titleRatings}
}

// Names returns the entity names in load order.
func Names() []string {
	specs := All()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Entity
	}
	return names
}

// Select returns the specs named in only, still in dependency order.
// An empty selection means all of them.
func Select(only []string) ([]Spec, error) {
	all := All()
	if len(only) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(only))
	for _, name := range only {
		name = strings.TrimSpace(name)
		found := false
		for _, s := range all {
			if s.Entity == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%q (known: %s): %w", name, strings.Join(Names(), ", "), imdbload.ErrUnknownEntity)
		}
		want[name] = true
	}

	var selected []Spec
	for _, s := range all {
		if want[s.Entity] {
			selected = append(selected, s)
		}
	}
	return selected, nil
}
