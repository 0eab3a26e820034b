package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int64) ENGINE = MergeTree() ORDER BY x;

-- second
CREATE TABLE b (y String) ENGINE = MergeTree() ORDER BY y;
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE TABLE b")
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{"plain", `SELECT 1; SELECT 2;`, false},
		{"escaped quote", `SELECT 'it''s'; SELECT 1;`, false},
		{"semicolon in literal", `SELECT 'a;b';`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateNoSemicolonInStrings(tt.sql)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSemicolonInString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://user:pw@localhost:9000/fximpact")
	require.NoError(t, err)
	assert.Equal(t, "fximpact", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestLoad_OrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_scores.sql": {Data: []byte("CREATE TABLE s ();")},
		"pg/001_events.sql": {Data: []byte("CREATE TABLE e ();")},
		"pg/003_empty.sql":  {Data: []byte("  \n")},
		"pg/README.md":      {Data: []byte("not sql")},
	}

	migrations, err := load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001_events", migrations[0].Version)
	assert.Equal(t, "002_scores", migrations[1].Version)

	_, err = load(fsys, "missing")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.NotEmpty(t, pg)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, m := range ch {
		assert.NoError(t, validateNoSemicolonInStrings(m.SQL), m.Version)
		assert.NotEmpty(t, splitStatements(m.SQL), m.Version)
	}
}
