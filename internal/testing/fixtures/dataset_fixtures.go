package fixtures

import (
	"strings"

	"github.com/vvka-141/imdbload/internal/files/filesystem"
)

// Headers of the seven dumps, in the column order the real files use.
var Headers = map[string][]string{
	"title.basics":     {"tconst", "titleType", "primaryTitle", "originalTitle", "isAdult", "startYear", "endYear", "runtimeMinutes", "genres"},
	"name.basics":      {"nconst", "primaryName", "birthYear", "deathYear", "primaryProfession", "knownForTitles"},
	"title.akas":       {"titleId", "ordering", "title", "region", "language", "types", "attributes", "isOriginalTitle"},
	"title.crew":       {"tconst", "directors", "writers"},
	"title.episode":    {"tconst", "parentTconst", "seasonNumber", "episodeNumber"},
	"title.principals": {"tconst", "ordering", "nconst", "category", "job", "characters"},
	"title.ratings":    {"tconst", "averageRating", "numVotes"},
}

// DatasetBuilder provides a fluent API for building in-memory TSV dumps.
//
// Example usage:
//
//	fs := NewDatasetBuilder().
//	    Title("tt1", "movie", "Foo", "0", "Comedy,Drama").
//	    Name("nm1", "Jane Doe", "1970", `\N`, "actress", "tt1").
//	    Build()
type DatasetBuilder struct {
	rows  map[string][]string
	order []string
}

// NewDatasetBuilder creates an empty builder. Entities without rows produce
// no file, so a loader for them fails with a missing source.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{rows: make(map[string][]string)}
}

// Row appends a raw data row to entity's dump.
func (b *DatasetBuilder) Row(entity string, fields ...string) *DatasetBuilder {
	if _, ok := b.rows[entity]; !ok {
		b.order = append(b.order, entity)
	}
	b.rows[entity] = append(b.rows[entity], strings.Join(fields, "\t"))
	return b
}

// Empty registers entity with a header but no rows.
func (b *DatasetBuilder) Empty(entity string) *DatasetBuilder {
	if _, ok := b.rows[entity]; !ok {
		b.order = append(b.order, entity)
		b.rows[entity] = nil
	}
	return b
}

// Title adds a title.basics row with no years or runtime.
func (b *DatasetBuilder) Title(tconst, titleType, primaryTitle, isAdult, genres string) *DatasetBuilder {
	return b.Row("title.basics", tconst, titleType, primaryTitle, primaryTitle, isAdult, `\N`, `\N`, `\N`, genres)
}

// Name adds a name.basics row.
func (b *DatasetBuilder) Name(nconst, primaryName, birthYear, deathYear, professions, knownFor string) *DatasetBuilder {
	return b.Row("name.basics", nconst, primaryName, birthYear, deathYear, professions, knownFor)
}

// Aka adds a title.akas row.
func (b *DatasetBuilder) Aka(titleID, ordering, title, region, types, attributes, isOriginal string) *DatasetBuilder {
	return b.Row("title.akas", titleID, ordering, title, region, `\N`, types, attributes, isOriginal)
}

// Crew adds a title.crew row.
func (b *DatasetBuilder) Crew(tconst, directors, writers string) *DatasetBuilder {
	return b.Row("title.crew", tconst, directors, writers)
}

// Episode adds a title.episode row.
func (b *DatasetBuilder) Episode(tconst, parent, season, episode string) *DatasetBuilder {
	return b.Row("title.episode", tconst, parent, season, episode)
}

// Principal adds a title.principals row.
func (b *DatasetBuilder) Principal(tconst, ordering, nconst, category string) *DatasetBuilder {
	return b.Row("title.principals", tconst, ordering, nconst, category, `\N`, `\N`)
}

// Rating adds a title.ratings row.
func (b *DatasetBuilder) Rating(tconst, average, votes string) *DatasetBuilder {
	return b.Row("title.ratings", tconst, average, votes)
}

// Content renders one entity's dump.
func (b *DatasetBuilder) Content(entity string) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(Headers[entity], "\t"))
	sb.WriteByte('\n')
	for _, r := range b.rows[entity] {
		sb.WriteString(r)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Build writes every entity's dump as <entity>.tsv into a memory filesystem.
func (b *DatasetBuilder) Build() *filesystem.MemoryFileSystem {
	fs := filesystem.NewMemoryFileSystem()
	for _, entity := range b.order {
		fs.AddFile(entity+".tsv", b.Content(entity))
	}
	return fs
}

// Complete returns a builder with every dump present, plus a handful of rows
// covering fan-out, sentinels, dangling references and a duplicate key.
func Complete() *DatasetBuilder {
	return NewDatasetBuilder().
		Title("tt0000001", "short", "Carmencita", "0", "Documentary,Short").
		Title("tt0000002", "short", `\N`, "1", "Animation").
		Title("tt0000003", "tvSeries", "Show", `\N`, `\N`).
		Title("tt0000004", "tvEpisode", "Pilot", "0", "Comedy,Drama").
		Title("tt0000001", "movie", "Duplicate", "0", "Horror").
		Name("nm0000001", "Fred Astaire", "1899", "1987", "actor,soundtrack", "tt0000001,tt9999999").
		Name("nm0000002", "Lauren Bacall", "1924", "2014", "actress", "tt0000002").
		Aka("tt0000001", "1", "Carmencita", `\N`, "original", `\N`, "1").
		Aka("tt0000001", "2", "Carmencita - spanyol tánc", "HU", "imdbDisplay,working", "literal title", "0").
		Aka("tt9999999", "1", "Orphan", "US", "imdbDisplay", `\N`, "0").
		Crew("tt0000001", "nm0000001", "nm0000002,nm9999999").
		Crew("tt9999999", "nm0000001", `\N`).
		Episode("tt0000004", "tt0000003", "1", "1").
		Episode("tt0000002", `\N`, `\N`, `\N`).
		Episode("tt0000001", "tt9999999", "1", "2").
		Principal("tt0000001", "1", "nm0000001", "self").
		Principal("tt0000001", "2", "nm9999999", "director").
		Principal("tt0000002", "1", "nm0000002", `\N`).
		Rating("tt0000001", "5.7", "2100").
		Rating("tt0000002", `\N`, "oops").
		Rating("tt9999999", "9.9", "1")
}
