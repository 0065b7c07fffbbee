package entities

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/imdbload/internal/batch"
	"github.com/vvka-141/imdbload/internal/files/filesystem"
	"github.com/vvka-141/imdbload/internal/logging"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/internal/staging"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

type flushCall struct {
	relation string
	rows     [][]any
}

type recordingInserter struct {
	calls []flushCall
	err   error
}

func (r *recordingInserter) InsertFiltered(_ context.Context, rel schema.Relation, rows [][]any) (staging.Result, error) {
	if r.err != nil {
		return staging.Result{}, r.err
	}
	r.calls = append(r.calls, flushCall{rel.Name, rows})
	return staging.Result{Offered: int64(len(rows)), Inserted: int64(len(rows))}, nil
}

func (r *recordingInserter) order() []string {
	var out []string
	for _, c := range r.calls {
		out = append(out, c.relation)
	}
	return out
}

func (r *recordingInserter) rows(relation string) [][]any {
	var out [][]any
	for _, c := range r.calls {
		if c.relation == relation {
			out = append(out, c.rows...)
		}
	}
	return out
}

func load(t *testing.T, spec Spec, content string, sizes batch.Sizes) *recordingInserter {
	t.Helper()
	fs := filesystem.NewMemoryFileSystem()
	fs.AddFile(spec.Entity+".tsv", content)
	ins := &recordingInserter{}
	l := NewLoader(fs, ins, sizes, logging.NewNullLogger())
	require.NoError(t, l.Load(context.Background(), spec, nil))
	return ins
}

var large = batch.Sizes{Small: 1000, Medium: 1000}

const basicsHeader = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n"

func TestTitleBasics_FanOutGenres(t *testing.T) {
	ins := load(t, titleBasics, basicsHeader+
		"tt1\tmovie\tFoo\tFoo\t0\t1999\t\\N\t90\tComedy,Drama\n", large)

	assert.Equal(t, []string{"title_basics", "basics_genres"}, ins.order())
	genres := ins.rows("basics_genres")
	require.Len(t, genres, 2)
	assert.Equal(t, []any{"tt1", "Foo", "Comedy"}, genres[0])
	assert.Equal(t, []any{"tt1", "Foo", "Drama"}, genres[1])
}

func TestTitleBasics_SentinelSubstitution(t *testing.T) {
	ins := load(t, titleBasics, basicsHeader+
		"tt1\tmovie\t\\N\tOrig\t1\t\\N\tabc\t\\N\t\\N\n", large)

	row := ins.rows("title_basics")[0]
	assert.Equal(t, `\N`, row[2], "required primary title keeps the sentinel literal")
	assert.Equal(t, true, row[4])
	assert.Nil(t, row[5])
	assert.Nil(t, row[6], "unparseable year is null")
	assert.Empty(t, ins.rows("basics_genres"))
}

func TestTitleBasics_BooleanAsymmetry(t *testing.T) {
	ins := load(t, titleBasics, basicsHeader+
		"tt1\tmovie\tA\tA\t1\t\\N\t\\N\t\\N\t\n"+
		"tt2\tmovie\tB\tB\t0\t\\N\t\\N\t\\N\t\n"+
		"tt3\tmovie\tC\tC\t\t\\N\t\\N\t\\N\t\n"+
		"tt4\tmovie\tD\tD\t\\N\t\\N\t\\N\t\\N\t\n", large)

	rows := ins.rows("title_basics")
	require.Len(t, rows, 4)
	assert.Equal(t, []any{true, false, false, false}, []any{rows[0][4], rows[1][4], rows[2][4], rows[3][4]})
}

func TestParentFlushesBeforeDueChild(t *testing.T) {
	// Two genres per title: the genre buffer is due after the first line while
	// the title is still buffered.
	ins := load(t, titleBasics, basicsHeader+
		"tt1\tmovie\tA\tA\t0\t\\N\t\\N\t\\N\tComedy,Drama\n"+
		"tt2\tmovie\tB\tB\t0\t\\N\t\\N\t\\N\tHorror\n",
		batch.Sizes{Small: 10, Medium: 2})

	assert.Equal(t, []string{"title_basics", "basics_genres", "title_basics", "basics_genres"}, ins.order())
	assert.Equal(t, []any{"tt1"}, ins.calls[0].rows[0][:1])
}

func TestAkas_TypesWaitForAkas(t *testing.T) {
	ins := load(t, titleAkas,
		"titleId\tordering\ttitle\tregion\tlanguage\ttypes\tattributes\tisOriginalTitle\n"+
			"tt1\t1\tX\tUS\ten\timdbDisplay,working\tliteral title\t0\n"+
			"tt1\tbad\t\\N\t\\N\t\\N\t\\N\t\\N\t1\n",
		batch.Sizes{Small: 5, Medium: 2})

	assert.Equal(t, []string{"akas", "aka_types", "akas", "aka_attributes"}, ins.order())

	akas := ins.rows("akas")
	require.Len(t, akas, 2)
	assert.Equal(t, int32(1), *(akas[0][1].(*int32)))
	assert.Equal(t, "US", *(akas[0][3].(*string)))
	assert.Nil(t, akas[1][1], "unparseable ordering is null")
	assert.Equal(t, `\N`, akas[1][2])
	assert.Nil(t, akas[1][3])
	assert.Equal(t, true, akas[1][4])

	require.Len(t, ins.rows("aka_types"), 2)
	require.Len(t, ins.rows("aka_attributes"), 1)
}

func TestNameBasics(t *testing.T) {
	ins := load(t, nameBasics,
		"nconst\tprimaryName\tbirthYear\tdeathYear\tprimaryProfession\tknownForTitles\n"+
			"nm1\tFred Astaire\t1899\t1987\tactor,,miscellaneous\ttt1,tt2\n", large)

	assert.Equal(t, []string{"name_basics", "name_professions", "name_known_for"}, ins.order())
	assert.Equal(t, [][]any{{"nm1", "actor"}, {"nm1", "miscellaneous"}}, ins.rows("name_professions"))
	assert.Equal(t, [][]any{{"nm1", "tt1"}, {"nm1", "tt2"}}, ins.rows("name_known_for"))
}

func TestCrew_EmptyListsProduceNothing(t *testing.T) {
	ins := load(t, titleCrew, "tconst\tdirectors\twriters\ntt1\tnm1\t\\N\n", large)
	assert.Equal(t, []string{"crew_directors"}, ins.order())
}

func TestEpisode_NullParent(t *testing.T) {
	ins := load(t, titleEpisode, "tconst\tparentTconst\tseasonNumber\tepisodeNumber\ntt2\t\\N\t1\t\\N\n", large)
	row := ins.rows("episodes")[0]
	assert.Equal(t, "tt2", row[0])
	assert.Nil(t, row[1])
	assert.Nil(t, row[3])
}

func TestPrincipals_CategorySentinel(t *testing.T) {
	ins := load(t, titlePrincipals,
		"tconst\tordering\tnconst\tcategory\tjob\tcharacters\ntt1\t1\tnm1\t\\N\t\\N\t[\"Self\"]\n", large)
	row := ins.rows("principals")[0]
	assert.Equal(t, `\N`, row[3])
	assert.Nil(t, row[4])
	assert.Equal(t, `["Self"]`, *(row[5].(*string)))
}

func TestRatings_Defaults(t *testing.T) {
	ins := load(t, titleRatings, "tconst\taverageRating\tnumVotes\ntt1\t\\N\tx\ntt2\t7.5\t12\n", large)
	rows := ins.rows("ratings")
	assert.Equal(t, []any{"tt1", 0.0, int32(0)}, rows[0])
	assert.Equal(t, []any{"tt2", 7.5, int32(12)}, rows[1])
}

func TestRatings_NonFiniteBecomesDefault(t *testing.T) {
	ins := load(t, titleRatings, "tconst\taverageRating\tnumVotes\ntt1\tinf\t3\ntt2\tNaN\t4\ntt3\t-Infinity\t5\n", large)
	rows := ins.rows("ratings")
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, 0.0, row[1], "row %v", row)
	}
}

func TestLoad_GzipSource(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("tconst\taverageRating\tnumVotes\ntt1\t5.0\t3\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	fs := filesystem.NewMemoryFileSystem()
	fs.AddBytes("title.ratings.tsv.gz", buf.Bytes())
	ins := &recordingInserter{}
	require.NoError(t, NewLoader(fs, ins, large, logging.NewNullLogger()).Load(context.Background(), titleRatings, nil))
	assert.Len(t, ins.rows("ratings"), 1)
}

func TestLoad_MissingSourceIsFatal(t *testing.T) {
	l := NewLoader(filesystem.NewMemoryFileSystem(), &recordingInserter{}, large, logging.NewNullLogger())
	err := l.Load(context.Background(), titleRatings, nil)
	assert.ErrorIs(t, err, imdbload.ErrSourceMissing)
}

func TestLoad_MissingColumnIsFatal(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem()
	fs.AddFile("title.ratings.tsv", "tconst\tnumVotes\ntt1\t3\n")
	l := NewLoader(fs, &recordingInserter{}, large, logging.NewNullLogger())
	assert.ErrorIs(t, l.Load(context.Background(), titleRatings, nil), imdbload.ErrMissingColumn)
}

func TestLoad_InserterErrorAborts(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem()
	fs.AddFile("title.ratings.tsv", "tconst\taverageRating\tnumVotes\ntt1\t1\t1\n")
	boom := errors.New("boom")
	l := NewLoader(fs, &recordingInserter{err: boom}, large, logging.NewNullLogger())
	err := l.Load(context.Background(), titleRatings, nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "flushing ratings")
}

func TestLoad_ReportsFlushes(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem()
	fs.AddFile("title.crew.tsv", "tconst\tdirectors\twriters\ntt1\tnm1,nm2\tnm3\n")
	got := map[string]int64{}
	l := NewLoader(fs, &recordingInserter{}, large, logging.NewNullLogger())
	require.NoError(t, l.Load(context.Background(), titleCrew, func(rel string, res staging.Result) {
		got[rel] += res.Offered
	}))
	assert.Equal(t, map[string]int64{"crew_directors": 2, "crew_writers": 1}, got)
}

func TestLoad_CanceledContext(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem()
	fs.AddFile("title.ratings.tsv", "tconst\taverageRating\tnumVotes\ntt1\t1\t1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewLoader(fs, &recordingInserter{}, large, logging.NewNullLogger())
	assert.ErrorIs(t, l.Load(ctx, titleRatings, nil), context.Canceled)
}

func TestSelect(t *testing.T) {
	specs, err := Select([]string{"title.ratings", "title.basics"})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, TitleBasics, specs[0].Entity, "selection keeps dependency order")
	assert.Equal(t, TitleRatings, specs[1].Entity)

	all, err := Select(nil)
	require.NoError(t, err)
	assert.Equal(t, Names(), []string{TitleBasics, NameBasics, TitleAkas, TitleCrew, TitleEpisode, TitlePrincipals, TitleRatings})
	assert.Len(t, all, 7)

	_, err = Select([]string{"title.nope"})
	assert.ErrorIs(t, err, imdbload.ErrUnknownEntity)
}

func TestSpecs_TargetsFollowRelationOrder(t *testing.T) {
	pos := map[string]int{}
	for i, r := range schema.All() {
		pos[r.Name] = i
	}
	last := -1
	for _, s := range All() {
		for _, tgt := range s.Targets {
			p, ok := pos[tgt.Relation.Name]
			require.True(t, ok, tgt.Relation.Name)
			assert.Greater(t, p, last, "%s out of order", tgt.Relation.Name)
			last = p
		}
	}
}

type recordingLogger struct{ verbose []string }

func (l *recordingLogger) Verbose(format string, args ...interface{}) {
	l.verbose = append(l.verbose, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Error(string, ...interface{}) {}

func TestLoad_LogsLinesRead(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem()
	fs.AddFile(TitleRatings+".tsv", "tconst\taverageRating\tnumVotes\ntt1\t5.0\t1\ntt2\t6.0\t2\n")
	log := &recordingLogger{}
	l := NewLoader(fs, &recordingInserter{}, large, log)
	require.NoError(t, l.Load(context.Background(), titleRatings, nil))

	assert.Contains(t, log.verbose, "Reading "+TitleRatings+".tsv (3 columns)", "got %v", log.verbose)
	assert.Contains(t, log.verbose, TitleRatings+".tsv: read 3 lines")
}
