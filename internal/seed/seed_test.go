package seed_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/kevinbacon/domain/bacon"
	"github.com/emergent-company/kevinbacon/domain/graph"
	"github.com/emergent-company/kevinbacon/internal/client"
	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/internal/seed"
	"github.com/emergent-company/kevinbacon/pkg/apperror"
)

func newAPI(t *testing.T) *client.Client {
	t.Helper()
	store := graphstore.NewMemoryStore(4, slog.Default())
	t.Cleanup(func() { _ = store.Close() })

	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(slog.Default())
	graph.RegisterRoutes(e, graph.NewHandler(graph.NewService(store, slog.Default())), &config.Config{})
	m := bacon.NewMetrics(prometheus.NewRegistry())
	bacon.RegisterRoutes(e, bacon.NewHandler(bacon.NewFinder(store, "nm0000102"), m, slog.Default()))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return client.New(client.Config{ServerURL: srv.URL})
}

func writeDatasets(t *testing.T) seed.Files {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	return seed.Files{
		Titles: write("title.basics.tsv",
			"tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\n"+
				"tt1\tmovie\tFootloose\tFootloose\t0\t1984\n"+
				"tt2\ttvEpisode\tSkipped\tSkipped\t0\t1999\n"+
				"tt3\tmovie\tApollo 13\tApollo 13\t0\t1995\n"),
		Principals: write("title.principals.tsv",
			"tconst\tordering\tnconst\tcategory\tjob\tcharacters\n"+
				"tt1\t1\tnm0000102\tactor\t\\N\t\\N\n"+
				"tt1\t2\tnmLori\tactress\t\\N\t\\N\n"+
				"tt1\t3\tnmDirector\tdirector\t\\N\t\\N\n"+
				"tt2\t1\tnmTV\tactor\t\\N\t\\N\n"+
				"tt3\t1\tnmLori\tactress\t\\N\t\\N\n"+
				"tt3\t2\tnmTom\tactor\t\\N\t\\N\n"),
		Names: write("name.basics.tsv",
			"nconst\tprimaryName\tbirthYear\n"+
				"nm0000102\tKevin Bacon\t1958\n"+
				"nmLori\tLori Singer\t1957\n"+
				"nmTom\tTom Hanks\t1956\n"+
				"nmTV\tTV Person\t\\N\n"),
	}
}

func TestRun(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()

	stats, err := seed.Run(ctx, api, writeDatasets(t), seed.Options{Concurrency: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Actors.Created.Load())
	assert.Equal(t, int64(2), stats.Movies.Created.Load())
	assert.Equal(t, int64(4), stats.Relationships.Created.Load())

	a, err := api.GetActor(ctx, "nmLori")
	require.NoError(t, err)
	assert.Equal(t, "Lori Singer", a.Name)
	assert.Equal(t, []string{"tt1", "tt3"}, a.Movies)

	n, err := api.BaconNumber(ctx, "nmTom")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = api.GetActor(ctx, "nmTV")
	assert.True(t, client.HasCode(err, "actor_not_found"))
}

func TestRun_Rerun(t *testing.T) {
	api := newAPI(t)
	files := writeDatasets(t)

	_, err := seed.Run(context.Background(), api, files, seed.Options{})
	require.NoError(t, err)

	stats, err := seed.Run(context.Background(), api, files, seed.Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.Actors.Created.Load())
	assert.Equal(t, int64(3), stats.Actors.Skipped.Load())
	assert.Equal(t, int64(2), stats.Movies.Skipped.Load())
	assert.Equal(t, int64(4), stats.Relationships.Skipped.Load())
}

func TestRun_Limit(t *testing.T) {
	api := newAPI(t)

	stats, err := seed.Run(context.Background(), api, writeDatasets(t), seed.Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Movies.Created.Load())
	assert.Equal(t, int64(2), stats.Actors.Created.Load())
	assert.Equal(t, int64(2), stats.Relationships.Created.Load())
}

func TestRun_MissingFile(t *testing.T) {
	files := writeDatasets(t)
	files.Names = filepath.Join(t.TempDir(), "absent.tsv")

	_, err := seed.Run(context.Background(), newAPI(t), files, seed.Options{})
	assert.ErrorContains(t, err, "names:")
}

func TestRun_RateLimited(t *testing.T) {
	stats, err := seed.Run(context.Background(), newAPI(t), writeDatasets(t), seed.Options{Rate: 200})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Actors.Created.Load())
	assert.Equal(t, int64(4), stats.Relationships.Created.Load())
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seed.Run(ctx, newAPI(t), writeDatasets(t), seed.Options{Rate: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_UnnamedRowsUseIDs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	files := seed.Files{
		Titles: write("title.basics.tsv",
			"tconst\ttitleType\tprimaryTitle\tstartYear\n"+
				"tt9\tmovie\t\\N\t2001\n"),
		Principals: write("title.principals.tsv",
			"tconst\tordering\tnconst\tcategory\n"+
				"tt9\t1\tnmNoName\tactor\n"),
		Names: write("name.basics.tsv",
			"nconst\tprimaryName\n"+
				"nmNoName\t\\N\n"),
	}
	api := newAPI(t)

	stats, err := seed.Run(context.Background(), api, files, seed.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Movies.Created.Load())
	assert.Equal(t, int64(1), stats.Actors.Created.Load())
	assert.Equal(t, int64(1), stats.Relationships.Created.Load())

	movie, err := api.GetMovie(context.Background(), "tt9")
	require.NoError(t, err)
	assert.Equal(t, "tt9", movie.Name)
	actor, err := api.GetActor(context.Background(), "nmNoName")
	require.NoError(t, err)
	assert.Equal(t, "nmNoName", actor.Name)
}
