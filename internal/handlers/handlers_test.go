package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasa-explorer/internal/cache"
	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/services"
	"nasa-explorer/internal/tracker"
	"nasa-explorer/internal/views"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFetcher struct {
	calls atomic.Int32
}

func (f *fakeFetcher) FetchPosition(context.Context) (*domain.ISSPosition, []byte, error) {
	f.calls.Add(1)
	return &domain.ISSPosition{Latitude: 51.5, Longitude: -0.12, Timestamp: 1700000000, Velocity: 27600, Altitude: 420},
		[]byte(`{"latitude":51.5,"longitude":-0.12}`), nil
}

type env struct {
	router  *gin.Engine
	tracker *tracker.Tracker
	cache   *cache.QueryCache
	calls   *atomic.Int32
}

func newEnv(t *testing.T) *env {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/planetary/apod", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("date") == "2000-01-01" {
			http.Error(w, `{"msg":"No data available"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"title":"Pillars","date":"2024-01-01","media_type":"image","url":"https://apod/p.jpg","explanation":"Gas and dust."}`))
	})
	mux.HandleFunc("/neo/rest/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"element_count":2,"near_earth_objects":{"2024-01-01":[
			{"id":"1","name":"(2024 AA)","is_potentially_hazardous_asteroid":true,"estimated_diameter":{"meters":{"estimated_diameter_min":10,"estimated_diameter_max":20}},
			 "close_approach_data":[{"close_approach_date":"2024-01-01","relative_velocity":{"kilometers_per_hour":"40000"},"miss_distance":{"kilometers":"5000000"}}]},
			{"id":"2","name":"(2024 BB)","is_potentially_hazardous_asteroid":false,"estimated_diameter":{"meters":{"estimated_diameter_min":5,"estimated_diameter_max":8}},
			 "close_approach_data":[{"close_approach_date":"2024-01-02","relative_velocity":{"kilometers_per_hour":"20000"},"miss_distance":{"kilometers":"700000"}}]}]}}`))
	})
	mux.HandleFunc("/mars-photos/api/v1/rovers/curiosity/photos", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"photos":[{"id":7,"sol":1000,"img_src":"https://mars/7.jpg","earth_date":"2015-05-30","camera":{"name":"NAVCAM","full_name":"Navigation Camera"}}]}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"collection":{"items":[
			{"data":[{"nasa_id":"a","title":"Andromeda","description":"Nearest spiral galaxy","date_created":"2010-01-01T00:00:00Z"}],"links":[{"href":"https://img/a~thumb.jpg","rel":"preview"}]}
		],"metadata":{"total_hits":250}}}`))
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	nasa := clients.NewNasaClient(upstream.URL, "KEY", clients.Options{})
	images := clients.NewImagesClient(upstream.URL, clients.Options{})
	qc := cache.New(cache.DefaultPolicy)

	tr, err := tracker.New(&fakeFetcher{}, tracker.DefaultInterval)
	require.NoError(t, err)

	h := NewHandler(Services{
		Apod:      services.NewApodService(nasa, qc, nil),
		Gallery:   services.NewGalleryService(images, qc),
		Rovers:    services.NewRoverService(nasa, qc),
		Asteroids: services.NewAsteroidService(nasa, qc, nil),
		Iss:       services.NewIssService(tr, nil),
		Archive:   services.NewArchiveService(nil),
		Cache:     qc,
	})
	h.now = func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) }

	renderer, err := views.NewRenderer()
	require.NoError(t, err)
	return &env{router: NewRouter(h, renderer), tracker: tr, cache: qc, calls: &calls}
}

func (e *env) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestGetAPOD(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/apod?date=2024-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, env.Ok)

	var pic domain.PictureOfDay
	require.NoError(t, json.Unmarshal(env.Data, &pic))
	assert.Equal(t, "Pillars", pic.Title)

	e.do(http.MethodGet, "/api/apod?date=2024-01-01", "")
	assert.Equal(t, int32(1), e.calls.Load(), "second request is served from cache")
}

func TestGetAPODErrors(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"malformed date", "/api/apod?date=01-01-2024", http.StatusBadRequest, "BAD_REQUEST"},
		{"before first picture", "/api/apod?date=1990-01-01", http.StatusBadRequest, "BAD_REQUEST"},
		{"upstream not found", "/api/apod?date=2000-01-01", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w)
			assert.False(t, env.Ok)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestSearchGallery(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/gallery?q=galaxy", "")
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Page      int                `json:"page"`
		Items     []domain.ImageItem `json:"items"`
		TotalHits int                `json:"total_hits"`
		HasNext   bool               `json:"has_next"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, 1, data.Page)
	assert.Len(t, data.Items, 1)
	assert.Equal(t, 250, data.TotalHits)
	assert.True(t, data.HasNext)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/gallery", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/gallery?q=x&page=0", "").Code)
}

func TestRovers(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/rovers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"perseverance"`)

	w = e.do(http.MethodGet, "/api/rovers/curiosity/photos?sol=1000&camera=navcam", "")
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Camera  string              `json:"camera"`
		Photos  []domain.RoverPhoto `json:"photos"`
		HasNext bool                `json:"has_next"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "NAVCAM", data.Camera)
	assert.Len(t, data.Photos, 1)
	assert.False(t, data.HasNext)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/rovers/pathfinder/photos", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/rovers/spirit/photos?camera=MAHLI", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/rovers/curiosity/photos?sol=0", "").Code)
}

func TestAsteroids(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/asteroids?start=2024-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		StartDate string                   `json:"start_date"`
		EndDate   string                   `json:"end_date"`
		Asteroids []domain.NearEarthObject `json:"asteroids"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "2024-01-01", data.StartDate)
	assert.Equal(t, "2024-01-08", data.EndDate)
	require.Len(t, data.Asteroids, 2)
	assert.Equal(t, "2", data.Asteroids[0].ID, "closest first")

	w = e.do(http.MethodGet, "/api/asteroids/stats?start=2024-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.AsteroidStats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 50, stats.HazardPercent)
	assert.Equal(t, int32(1), e.calls.Load(), "feed and stats share one upstream call")

	w = e.do(http.MethodGet, "/api/asteroids/chart.svg?start=2024-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<svg")

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/asteroids?start=tomorrow", "").Code)
}

func TestISSEndpoints(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/iss", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap tracker.Snapshot
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &snap))
	assert.Equal(t, tracker.StatusLoading, snap.Status)

	w = e.do(http.MethodPut, "/api/iss/interval", `{"interval_ms":2000}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &snap))
	assert.Equal(t, int64(2000), snap.IntervalMs)

	w = e.do(http.MethodPut, "/api/iss/interval", `{"interval_ms":3000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, "/api/iss/follow", `{"follow":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, e.tracker.Snapshot().Follow)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/api/iss/follow", `{}`).Code)

	w = e.do(http.MethodGet, "/api/iss/last", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(http.MethodGet, "/api/iss/trend", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UNAVAILABLE", decode(t, w).Error.Code)
}

func TestArchiveDisabled(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/api/archive/apod/latest", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCacheEndpoints(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodGet, "/api/apod?date=2024-01-01", "")

	w := e.do(http.MethodGet, "/api/cache/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, 1, stats.Entries)

	w = e.do(http.MethodPost, "/api/cache/invalidate?prefix=apod%7C", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":1`)

	e.do(http.MethodGet, "/api/apod?date=2024-01-01", "")
	assert.Equal(t, int32(2), e.calls.Load())

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/cache/invalidate", "").Code)
}

func TestNotFound(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)

	w = e.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "<!DOCTYPE html>")
}

func TestPagesRender(t *testing.T) {
	e := newEnv(t)

	for _, target := range []string{
		"/",
		"/apod?date=2024-01-01",
		"/gallery?q=andromeda",
		"/mars-rovers?rover=curiosity&sol=1000",
		"/iss-tracker",
		"/asteroids?start=2024-01-01",
	} {
		w := e.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Contains(t, w.Body.String(), "<!DOCTYPE html>", target)
	}
}

func TestApodPageLimitsDatePicker(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/apod", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `min="1995-06-16"`)
	assert.Contains(t, w.Body.String(), `max="2024-01-03"`)
}

func TestPageSectionErrorKeepsFrame(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/apod?date=1990-01-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "<header")
	assert.Contains(t, w.Body.String(), "1990-01-01")

	w = e.do(http.MethodGet, "/mars-rovers?rover=pathfinder", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown rover")
}

func TestStreamISS(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/iss/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap tracker.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, tracker.StatusLoading, snap.Status)

	e.tracker.Poll(context.Background())
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, tracker.StatusReady, snap.Status)
	require.NotNil(t, snap.Position)
	assert.Equal(t, 51.5, snap.Position.Latitude)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
		{tracker.ErrInvalidInterval, http.StatusBadRequest, "BAD_REQUEST"},
		{services.ErrArchiveDisabled, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{clients.ErrCircuitOpen, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{clients.ErrRateLimited, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{&clients.StatusError{Source: "nasa", Code: http.StatusNotFound}, http.StatusNotFound, "NOT_FOUND"},
		{&clients.StatusError{Source: "nasa", Code: http.StatusInternalServerError}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{clients.ErrPayload, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{assert.AnError, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		status, code := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
