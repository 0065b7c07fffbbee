// Package schema describes the destination relations: their columns, conflict
// keys and the parent relations a row must reference before it may be
// inserted. The same catalog drives table creation and the staged inserts.
//
// No relation declares a database foreign key; referential integrity is
// enforced at insert time by the staging filter.
package schema

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Column is one relation column.
type Column struct {
	Name    string
	Type    string
	NotNull bool
}

// Ref pairs a child column with the parent column it must match.
type Ref struct {
	Child  string
	Parent string
}

// Parent is one referential precondition. A row passes when some row of Table
// matches on every Ref. When Optional is set and the (single) child column is
// NULL the row passes without a lookup.
type Parent struct {
	Table    string
	On       []Ref
	Optional bool
}

// Relation is a destination table.
type Relation struct {
	Name    string
	Columns []Column
	Key     []string
	Parents []Parent
}

// ColumnNames returns the column names in declaration order.
func (r Relation) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Qualified returns the quoted schema-qualified table name.
func Qualified(schemaName, table string) string {
	if schemaName == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schemaName, table}.Sanitize()
}

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for r.
func (r Relation) CreateTableSQL(schemaName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", Qualified(schemaName, r.Name))
	for _, c := range r.Columns {
		fmt.Fprintf(&b, "    %s %s", pgx.Identifier{c.Name}.Sanitize(), c.Type)
		if c.NotNull {
			b.WriteString(" NOT NULL")
		}
		b.WriteString(",\n")
	}
	fmt.Fprintf(&b, "    PRIMARY KEY (%s)\n)", quoteList(r.Key))
	return b.String()
}

// StageTableSQL returns the statement creating an unconstrained temporary copy
// of r's columns that is dropped at commit.
func (r Relation) StageTableSQL(stage string) string {
	defs := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
	}
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(), strings.Join(defs, ", "))
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = pgx.Identifier{n}.Sanitize()
	}
	return strings.Join(q, ", ")
}

const (
	typeID   = "varchar(20)"
	typeTag  = "varchar(64)"
	typeText = "text"
	typeInt  = "integer"
)

var (
	TitleBasics = Relation{
		Name: "title_basics",
		Columns: []Column{
			{"tconst", typeID, true},
			{"titletype", typeTag, true},
			{"primarytitle", typeText, true},
			{"originaltitle", typeText, true},
			{"isadult", "boolean", true},
			{"startyear", typeInt, false},
			{"endyear", typeInt, false},
			{"runtimeminutes", typeInt, false},
		},
		Key: []string{"tconst"},
	}

	BasicsGenres = Relation{
		Name: "basics_genres",
		Columns: []Column{
			{"tconst", typeID, true},
			{"primarytitle", typeText, false},
			{"genre", typeTag, true},
		},
		Key:     []string{"tconst", "genre"},
		Parents: []Parent{titleBy("tconst")},
	}

	NameBasics = Relation{
		Name: "name_basics",
		Columns: []Column{
			{"nconst", typeID, true},
			{"primaryname", "varchar(512)", true},
			{"birthyear", typeInt, false},
			{"deathyear", typeInt, false},
		},
		Key: []string{"nconst"},
	}

	NameProfessions = Relation{
		Name: "name_professions",
		Columns: []Column{
			{"nconst", typeID, true},
			{"profession", typeTag, true},
		},
		Key:     []string{"nconst", "profession"},
		Parents: []Parent{nameBy("nconst")},
	}

	NameKnownFor = Relation{
		Name: "name_known_for",
		Columns: []Column{
			{"nconst", typeID, true},
			{"tconst", typeID, true},
		},
		Key:     []string{"nconst", "tconst"},
		Parents: []Parent{nameBy("nconst"), titleBy("tconst")},
	}

	Akas = Relation{
		Name: "akas",
		Columns: []Column{
			{"titleid", typeID, true},
			{"ordering", typeInt, true},
			{"title", typeText, true},
			{"region", typeTag, false},
			{"isoriginaltitle", "boolean", true},
		},
		Key:     []string{"titleid", "ordering"},
		Parents: []Parent{titleBy("titleid")},
	}

	AkaTypes = Relation{
		Name: "aka_types",
		Columns: []Column{
			{"titleid", typeID, true},
			{"ordering", typeInt, true},
			{"type", typeText, true},
		},
		Key:     []string{"titleid", "ordering", "type"},
		Parents: []Parent{akaBy()},
	}

	AkaAttributes = Relation{
		Name: "aka_attributes",
		Columns: []Column{
			{"titleid", typeID, true},
			{"ordering", typeInt, true},
			{"attribute", typeText, true},
		},
		Key:     []string{"titleid", "ordering", "attribute"},
		Parents: []Parent{akaBy()},
	}

	CrewDirectors = Relation{
		Name: "crew_directors",
		Columns: []Column{
			{"tconst", typeID, true},
			{"nconst", typeID, true},
		},
		Key:     []string{"tconst", "nconst"},
		Parents: []Parent{titleBy("tconst"), nameBy("nconst")},
	}

	CrewWriters = Relation{
		Name: "crew_writers",
		Columns: []Column{
			{"tconst", typeID, true},
			{"nconst", typeID, true},
		},
		Key:     []string{"tconst", "nconst"},
		Parents: []Parent{titleBy("tconst"), nameBy("nconst")},
	}

	Episodes = Relation{
		Name: "episodes",
		Columns: []Column{
			{"tconst", typeID, true},
			{"parenttconst", typeID, false},
			{"seasonnumber", typeInt, false},
			{"episodenumber", typeInt, false},
		},
		Key: []string{"tconst"},
		Parents: []Parent{
			titleBy("tconst"),
			{Table: TitleBasics.Name, On: []Ref{{"parenttconst", "tconst"}}, Optional: true},
		},
	}

	Principals = Relation{
		Name: "principals",
		Columns: []Column{
			{"tconst", typeID, true},
			{"ordering", typeInt, true},
			{"nconst", typeID, true},
			{"category", typeTag, true},
			{"job", typeText, false},
			{"characters", typeText, false},
		},
		Key:     []string{"tconst", "ordering"},
		Parents: []Parent{titleBy("tconst"), nameBy("nconst")},
	}

	Ratings = Relation{
		Name: "ratings",
		Columns: []Column{
			{"tconst", typeID, true},
			{"averagerating", "numeric", true},
			{"numvotes", typeInt, true},
		},
		Key:     []string{"tconst"},
		Parents: []Parent{titleBy("tconst")},
	}
)

func titleBy(col string) Parent {
	return Parent{Table: "title_basics", On: []Ref{{col, "tconst"}}}
}

func nameBy(col string) Parent {
	return Parent{Table: "name_basics", On: []Ref{{col, "nconst"}}}
}

func akaBy() Parent {
	return Parent{Table: "akas", On: []Ref{{"titleid", "titleid"}, {"ordering", "ordering"}}}
}

// All returns every relation, parents before children.
func All() []Relation {
	return []Relation{
		TitleBasics, BasicsGenres,
		NameBasics, NameProfessions, NameKnownFor,
		Akas, AkaTypes, AkaAttributes,
		CrewDirectors, CrewWriters,
		Episodes,
		Principals,
		Ratings,
	}
}


