package clickhouse

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schemaDir holds the SQL files embedded by the migrations package, which
// cannot be imported here because it depends on this package.
const schemaDir = "../migrations/clickhouse"

// setupTestDB starts a ClickHouse server, creates the schema in the fximpact
// database and returns a connection to it.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "fximpact"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s/fximpact", endpoint), WithMaxOpenConns(4))
	require.NoError(t, err)

	applySchema(t, ctx, conn)
	return conn, func() { _ = conn.Close() }
}

// applySchema executes every statement of the schema files one at a time,
// since the native protocol rejects multi-statement queries.
func applySchema(t *testing.T, ctx context.Context, conn *Conn) {
	t.Helper()

	fsys := os.DirFS(schemaDir)
	files, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no schema files in %s", schemaDir)

	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		require.NoError(t, err)
		for _, stmt := range statements(string(data)) {
			require.NoError(t, conn.Exec(ctx, stmt), "apply %s", name)
		}
	}
}

// statements drops "--" comment lines and splits the rest on semicolons.
func statements(sql string) []string {
	var body strings.Builder
	sc := bufio.NewScanner(strings.NewReader(sql))
	for sc.Scan() {
		if line := sc.Text(); !strings.HasPrefix(strings.TrimSpace(line), "--") {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}

	var out []string
	for _, stmt := range strings.Split(body.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
