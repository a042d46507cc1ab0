package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/bookings"
	"github.com/wolfman30/experiment-scheduler/internal/config"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/dropout"
	"github.com/wolfman30/experiment-scheduler/internal/http/handlers"
	"github.com/wolfman30/experiment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
	"github.com/wolfman30/experiment-scheduler/internal/selection"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

type stubScheduler struct{}

func (stubScheduler) Plan(_ context.Context, linkID string) (*bookings.Plan, error) {
	if linkID == "missing" {
		return nil, schedules.ErrNotFound
	}
	return &bookings.Plan{LinkID: linkID}, nil
}

func (stubScheduler) Slots(context.Context, dates.Date) ([]availability.TimeSlot, error) {
	return []availability.TimeSlot{"11:00"}, nil
}

func (stubScheduler) Preview(context.Context, string, selection.Choice) (*bookings.Preview, error) {
	return &bookings.Preview{}, nil
}

func (stubScheduler) Submit(context.Context, string, selection.Choice) (*bookings.Receipt, error) {
	return nil, selection.ErrNotReady
}

type stubStore struct{}

func (stubStore) List(context.Context) ([]schedules.Record, error) { return nil, nil }

func (stubStore) CreateParticipant(_ context.Context, p schedules.NewParticipant) (*schedules.Record, error) {
	return &schedules.Record{LinkID: p.LinkID, ParticipantID: p.ParticipantID}, nil
}

type stubSnapshots struct{}

func (stubSnapshots) Cached(context.Context) ([]availability.BookingRecord, error) { return nil, nil }

type stubDropouts struct{}

func (stubDropouts) Process(_ context.Context, id string, d dates.Date) (*dropout.Outcome, error) {
	return &dropout.Outcome{ParticipantID: id, DropoutDate: d}, nil
}

func newTestRouter(t *testing.T, rps float64) http.Handler {
	t.Helper()

	logger := logging.NewWithWriter(&bytes.Buffer{}, "error")
	reg := prometheus.NewRegistry()
	metrics.NewSchedulerMetrics(reg).ObservePlan("ok")
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })

	experimenter := handlers.NewExperimenterHandler(stubStore{}, stubSnapshots{}, stubDropouts{},
		config.Scheduler{Limits: selection.DefaultLimits()}, nil, logger)

	return New(&Config{
		Logger:             logger,
		Participants:       handlers.NewParticipantHandler(stubScheduler{}, logger),
		Experimenter:       experimenter,
		Health:             handlers.NewHealthHandler(nil, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"https://lab.example.edu"},
		RateLimitRPS:       rps,
		RateLimitBurst:     1,
		Stop:               stop,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected request id header")
	}
}

func TestRouterAPIRoutes(t *testing.T) {
	router := newTestRouter(t, 0)

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/v1/participants/abc/plan", "", http.StatusOK},
		{http.MethodGet, "/api/v1/participants/missing/plan", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/availability/slots?date=2025-07-21", "", http.StatusOK},
		{http.MethodPost, "/api/v1/participants/abc/preview", `{"first_session":"2025-07-21"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/participants/abc/submission", `{"first_session":"2025-07-21"}`, http.StatusUnprocessableEntity},
		{http.MethodGet, "/api/v1/overview/schedules", "", http.StatusOK},
		{http.MethodGet, "/api/v1/overview/calendar?month=2025-07", "", http.StatusOK},
		{http.MethodGet, "/api/v1/progress", "", http.StatusOK},
		{http.MethodPost, "/api/v1/participants", `{"participant_id":"P1"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/dropouts", `{"participant_id":"P1","dropout_date":"2025-07-21"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, rr.Code, rr.Body.String())
		}
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, 0)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("scheduler_booking_plan_total")) {
		t.Fatalf("expected scheduler metrics in exposition, got %s", rr.Body.String())
	}
}

func TestRouterRateLimitsAPI(t *testing.T) {
	router := newTestRouter(t, 0.001)

	codes := []int{}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %v", codes)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected health to bypass rate limit, got %d", rr.Code)
	}
}
