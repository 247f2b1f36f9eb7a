package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/quadro/internal/loader"
	"github.com/odyssey-erp/quadro/internal/platform/db"
	"github.com/odyssey-erp/quadro/internal/registry"
	"github.com/odyssey-erp/quadro/internal/shared"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetBuildFlags()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSource(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "source.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBuildCommandBuildsAndRelocates(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "header\n1\tAcme\tSP\t1\t9\t1\tOwner\tAlice\n")
	serveDir := filepath.Join(dir, "serve")

	out, err := execute(t, "build", "-f", source, "-d", filepath.Join(dir, "build", "registry"), "--serve-dir", serveDir)
	require.NoError(t, err)
	assert.Contains(t, out, "built 1 rows")
	assert.Contains(t, out, "store moved to")

	_, err = os.Stat(filepath.Join(serveDir, "registry.db"))
	require.NoError(t, err)
}

func TestBuildCommandNoMove(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "header\n")
	store := filepath.Join(dir, "database.db")

	out, err := execute(t, "build", "--file_name", source, "--database", store, "--serve-dir", filepath.Join(dir, "serve"), "--no-move")
	require.NoError(t, err)
	assert.NotContains(t, out, "store moved")

	_, err = os.Stat(store)
	require.NoError(t, err)
}

func TestBuildCommandFailureSkipsRelocation(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "header\n1\tAcme\n")
	serveDir := filepath.Join(dir, "serve")

	_, err := execute(t, "build", "-f", source, "-d", filepath.Join(dir, "database.db"), "--serve-dir", serveDir)
	require.ErrorIs(t, err, shared.ErrSchema)

	_, statErr := os.Stat(serveDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildCommandMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "build", "-f", filepath.Join(dir, "missing.csv"), "-d", filepath.Join(dir, "database.db"))
	require.ErrorIs(t, err, shared.ErrIO)
}

func TestBuildCommandRejectsArguments(t *testing.T) {
	_, err := execute(t, "build", "extra")
	require.Error(t, err)
}

func TestQueueCommandsRequireRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	_, err := execute(t, "queue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

func TestBuildCommandWithDefaultsReplacesServedStore(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORE_DRIVER", loader.DriverSQLite)
	t.Setenv("SOURCE_PATH", loader.DefaultSourcePath)
	t.Setenv("STORE_PATH", "database.db")
	t.Setenv("SERVE_DIR", ".")
	t.Setenv("REDIS_ADDR", "")
	require.NoError(t, os.WriteFile(loader.DefaultSourcePath, []byte("header\n1\tAcme\tSP\t1\t9\t1\tOwner\tAlice\n"), 0o644))

	_, err := execute(t, "build")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle, err := db.NewSQLiteHandle(ctx, db.SQLiteOptions{Path: "database.db", RequiredTable: registry.TableName})
	require.NoError(t, err)
	defer handle.Close()
	svc := registry.NewService(registry.NewSQLiteRepository(handle), registry.NewMemoryCache(16, time.Hour))

	var swaps atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- handle.Watch(ctx, func() {
			_ = svc.Invalidate(ctx)
			swaps.Add(1)
		})
	}()

	q := registry.OperatorsQuery{Company: "Acme", Page: registry.DefaultPage()}
	names, err := svc.ListOperators(ctx, q)
	require.NoError(t, err)
	require.Equal(t, []string{"Alice"}, names)

	require.NoError(t, os.WriteFile(loader.DefaultSourcePath, []byte("header\n1\tAcme\tSP\t1\t9\t1\tOwner\tBob\n"), 0o644))
	// Rebuild until the watcher, which registers asynchronously, sees the new file.
	require.Eventually(t, func() bool {
		if swaps.Load() > 0 {
			return true
		}
		_, err := execute(t, "build")
		return err == nil && swaps.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)

	names, err = svc.ListOperators(ctx, q)
	require.NoError(t, err)
	require.Equal(t, []string{"Bob"}, names)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".database.db.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	cancel()
	require.NoError(t, <-done)
}

func TestBuildCommandInvalidatesSharedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	dir := t.TempDir()
	source := writeSource(t, dir, "header\n1\tAcme\tSP\t1\t9\t1\tOwner\tAlice\n")

	out, err := execute(t, "build", "-f", source, "-d", filepath.Join(dir, "database.db"), "--no-move")
	require.NoError(t, err)
	assert.Contains(t, out, "cache invalidated")

	version, err := mr.Get("registry:version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestBuildCommandSurvivesUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	t.Setenv("REDIS_ADDR", addr)
	dir := t.TempDir()
	source := writeSource(t, dir, "header\n")

	out, err := execute(t, "build", "-f", source, "-d", filepath.Join(dir, "database.db"), "--no-move")
	require.NoError(t, err)
	assert.NotContains(t, out, "cache invalidated")
}
