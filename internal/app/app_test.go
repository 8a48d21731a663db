package app_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/bc19/internal/app"
	"github.com/derickschaefer/bc19/internal/config"
	"github.com/derickschaefer/bc19/internal/feed"
	"github.com/derickschaefer/bc19/internal/store"
	"github.com/derickschaefer/bc19/internal/timeline"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// server serves the fixtures and counts timeline requests.
func server(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	tl, sc := fixture(t, "timeline.json"), fixture(t, "schools.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/timeline.json":
			atomic.AddInt32(&hits, 1)
			_, _ = w.Write(tl)
		case "/schools.json":
			_, _ = w.Write(sc)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newDeps(t *testing.T, srv *httptest.Server) (*app.Deps, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		FeedURL:         srv.URL + "/timeline.json",
		SchoolsURL:      srv.URL + "/schools.json",
		DBPath:          filepath.Join(t.TempDir(), "bc19.db"),
		Timeout:         5 * time.Second,
		Rate:            100,
		Population:      timeline.DefaultPopulation,
		PositivityStart: "2020-04-10",
		LogLevel:        "debug",
	}
	var logs bytes.Buffer
	d, err := app.New(cfg, &logs)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, &logs
}

func TestNewLeavesMissingStoreClosed(t *testing.T) {
	srv, _ := server(t)
	d, _ := newDeps(t, srv)
	assert.Nil(t, d.Store)
	_, err := os.Stat(d.Config.DBPath)
	assert.True(t, os.IsNotExist(err), "New must not create the database")

	require.NoError(t, d.RequireStore())
	assert.NotNil(t, d.Store)
	require.NoError(t, d.RequireStore(), "second call is a no-op")
}

func TestNewRejectsBadLogLevel(t *testing.T) {
	_, err := app.New(&config.Config{LogLevel: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRequireStoreWithoutPath(t *testing.T) {
	d, err := app.New(&config.Config{Rate: 1}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, errors.Is(d.RequireStore(), app.ErrNoStore))
}

func TestLoadLiveFetchesBothFeeds(t *testing.T) {
	srv, hits := server(t)
	d, logs := newDeps(t, srv)

	l, err := d.Load(context.Background(), app.Input{})
	require.NoError(t, err)
	assert.Equal(t, app.SourceLive, l.Source)
	assert.Len(t, l.Feed.Dates, 3)
	assert.Len(t, l.Schools, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
	assert.Contains(t, logs.String(), "fetching timeline")
}

func TestLoadFromFiles(t *testing.T) {
	srv, hits := server(t)
	d, _ := newDeps(t, srv)

	l, err := d.Load(context.Background(), app.Input{
		TimelineFile: filepath.Join("testdata", "timeline.json"),
		SchoolsFile:  filepath.Join("testdata", "schools.json"),
	})
	require.NoError(t, err)
	assert.Equal(t, app.SourceFile, l.Source)
	assert.Len(t, l.Schools, 1)
	assert.EqualValues(t, 0, atomic.LoadInt32(hits), "file input must not touch the network")
}

func TestLoadFileWithoutSchools(t *testing.T) {
	srv, _ := server(t)
	d, _ := newDeps(t, srv)
	l, err := d.Load(context.Background(), app.Input{TimelineFile: filepath.Join("testdata", "timeline.json")})
	require.NoError(t, err)
	assert.Empty(t, l.Schools)
}

func TestSaveThenLoadPrefersStore(t *testing.T) {
	srv, hits := server(t)
	d, _ := newDeps(t, srv)

	live, err := d.Load(context.Background(), app.Input{})
	require.NoError(t, err)
	require.NoError(t, d.Save(live))

	stored, err := d.Load(context.Background(), app.Input{})
	require.NoError(t, err)
	assert.Equal(t, app.SourceStore, stored.Source)
	assert.Len(t, stored.Feed.Dates, 3)
	assert.Len(t, stored.Schools, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))

	refreshed, err := d.Load(context.Background(), app.Input{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, app.SourceLive, refreshed.Source)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))

	feeds, err := d.Store.ListFeeds()
	require.NoError(t, err)
	assert.Len(t, feeds, 2)
	assert.Equal(t, store.KindTimeline, feeds[0].Kind)
}

func TestLoadEmptyStoreFallsBackToLive(t *testing.T) {
	srv, hits := server(t)
	d, _ := newDeps(t, srv)
	require.NoError(t, d.RequireStore())

	l, err := d.Load(context.Background(), app.Input{})
	require.NoError(t, err)
	assert.Equal(t, app.SourceLive, l.Source)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestLoadFetchErrorIsFatal(t *testing.T) {
	srv, _ := server(t)
	d, _ := newDeps(t, srv)
	d.Client = feed.NewClient(srv.URL+"/missing.json", "", time.Second, 100, false)

	_, err := d.Load(context.Background(), app.Input{})
	var fe *feed.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.Status)
}

func TestDashboardFromFixture(t *testing.T) {
	srv, _ := server(t)
	d, _ := newDeps(t, srv)

	l, err := d.Load(context.Background(), app.Input{})
	require.NoError(t, err)
	db, tl, err := d.Dashboard(l)
	require.NoError(t, err)

	assert.Equal(t, 3, tl.Rows())
	assert.Equal(t, "2021-03-01T12:00:00-08:00", db.ReportTimestamp)
	assert.Equal(t, "Purple", db.MonitoringTier)
	assert.Equal(t, "2021-02-27", db.Dates.First)
	assert.Equal(t, "2021-03-01", db.Dates.Last)

	total := db.Counters["totalCases"]
	require.True(t, total.Value.Valid)
	assert.Equal(t, 110.0, total.Value.Value)
	assert.Equal(t, 104.0, total.RelativeValues[0].Value)
}

func TestReduceMissingCategoryIsCounted(t *testing.T) {
	srv, _ := server(t)
	d, _ := newDeps(t, srv)

	l, err := d.Load(context.Background(), app.Input{TimelineFile: filepath.Join("testdata", "timeline.json")})
	require.NoError(t, err)
	for i := range l.Feed.Dates {
		l.Feed.Dates[i].CountyJail.Inmates.Population.Valid = false
	}
	_, err = d.Reduce(l)
	var dae *timeline.DataAvailabilityError
	require.True(t, errors.As(err, &dae))
	assert.Equal(t, timeline.CategoryJail, dae.Category)

	path := filepath.Join(t.TempDir(), "bc19.prom")
	require.NoError(t, d.Metrics.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bc19_missing_category_total{category="jail"} 1`)
}
