package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"

	store "announcements/app/internal/data/announcements"
	"announcements/app/internal/data/database"
	"announcements/app/internal/domain/announcements"
	"announcements/app/internal/domain/permission"
	"announcements/app/internal/platform/timestamp"
	"announcements/app/internal/search"
)

func TestCreateAndFetchAnnouncement(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})

	rec := env.do(t, "POST", "/api/categories", map[string]any{"title": "Release Notes"}, "")
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201 creating category, got %d: %s", rec.Code, rec.Body.String())
	}
	var category categoryBody
	decode(t, rec, &category)
	if category.Slug != "release-notes" {
		t.Fatalf("expected slug release-notes, got %q", category.Slug)
	}

	rec = env.do(t, "POST", "/api/announcements", map[string]any{
		"publisher": "user:default/jane",
		"title":     "Maintenance window",
		"excerpt":   "Saturday",
		"body":      "We will be **offline**.",
		"category":  category.Slug,
		"type":      "warning",
	}, "")
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201 creating announcement, got %d: %s", rec.Code, rec.Body.String())
	}
	var created announcementBody
	decode(t, rec, &created)
	if created.ID == "" || created.Type != "warning" {
		t.Fatalf("unexpected created announcement %+v", created)
	}

	rec = env.do(t, "GET", "/api/announcements/"+created.ID, nil, "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var fetched announcementBody
	decode(t, rec, &fetched)
	if fetched.Category == nil || fetched.Category.Title != "Release Notes" {
		t.Fatalf("expected embedded category, got %+v", fetched.Category)
	}
	if !fetched.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created_at %s, got %s", created.CreatedAt, fetched.CreatedAt)
	}
}

func TestGetUnknownAnnouncementReturns404(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})

	rec := env.do(t, "GET", "/api/announcements/missing", nil, "")
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestCreateAnnouncementRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})

	rec := env.do(t, "POST", "/api/announcements", map[string]any{"publisher": "user:default/jane"}, "")
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected status 400 for missing title, got %d", rec.Code)
	}

	rec = env.do(t, "POST", "/api/announcements", map[string]any{
		"publisher": "user:default/jane",
		"title":     "Orphan",
		"category":  "does-not-exist",
	}, "")
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown category, got %d", rec.Code)
	}

	list := env.list(t, "/api/announcements")
	if list.Count != 0 {
		t.Fatalf("expected no announcements persisted, got %d", list.Count)
	}
}

func TestDuplicateCategoryReturns409(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})

	if rec := env.do(t, "POST", "/api/categories", map[string]any{"title": "Ops"}, ""); rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if rec := env.do(t, "POST", "/api/categories", map[string]any{"title": "ops"}, ""); rec.Code != stdhttp.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	rec := env.do(t, "GET", "/api/categories", nil, "")
	var categories []categoryBody
	decode(t, rec, &categories)
	if len(categories) != 1 {
		t.Fatalf("expected one category, got %+v", categories)
	}
}

func TestWriteRoutesRequireToken(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{tokens: []string{"secret"}})
	payload := map[string]any{"publisher": "user:default/jane", "title": "Guarded"}

	if rec := env.do(t, "POST", "/api/announcements", payload, ""); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}
	if rec := env.do(t, "POST", "/api/announcements", payload, "wrong"); rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected status 403 with wrong token, got %d", rec.Code)
	}
	if rec := env.do(t, "POST", "/api/announcements", payload, "secret"); rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201 with valid token, got %d", rec.Code)
	}

	if rec := env.do(t, "GET", "/api/announcements", nil, ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected reads to stay open, got %d", rec.Code)
	}
}

func TestUpdateAndDeleteAnnouncement(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})
	created := env.create(t, map[string]any{"publisher": "user:default/jane", "title": "Draft"})

	rec := env.do(t, "PUT", "/api/announcements/"+created.ID, map[string]any{
		"publisher": "user:default/mallory",
		"title":     "Final",
		"sticky":    true,
	}, "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200 updating, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated announcementBody
	decode(t, rec, &updated)
	if updated.Title != "Final" || !updated.Sticky {
		t.Fatalf("expected replaced fields, got %+v", updated)
	}
	if updated.Publisher != "user:default/jane" {
		t.Fatalf("expected publisher to be preserved, got %q", updated.Publisher)
	}

	if rec := env.do(t, "PUT", "/api/announcements/missing", map[string]any{"title": "x"}, ""); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404 updating unknown id, got %d", rec.Code)
	}

	if rec := env.do(t, "DELETE", "/api/announcements/"+created.ID, nil, ""); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("expected status 204 deleting, got %d", rec.Code)
	}
	if rec := env.do(t, "GET", "/api/announcements/"+created.ID, nil, ""); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", rec.Code)
	}
	if rec := env.do(t, "DELETE", "/api/announcements/"+created.ID, nil, ""); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404 deleting twice, got %d", rec.Code)
	}
}

func TestListAnnouncementsPaginates(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})
	for _, title := range []string{"one", "two", "three"} {
		env.create(t, map[string]any{"publisher": "user:default/jane", "title": title})
	}

	list := env.list(t, "/api/announcements?max=2&page=2")
	if list.Count != 3 {
		t.Fatalf("expected count 3, got %d", list.Count)
	}
	if len(list.Results) != 1 {
		t.Fatalf("expected one result on page two, got %d", len(list.Results))
	}

	beyond := env.list(t, "/api/announcements?max=2&page=5")
	if beyond.Count != 3 || len(beyond.Results) != 0 {
		t.Fatalf("expected empty page beyond the end, got %+v", beyond)
	}
	if beyond.Results == nil {
		t.Fatalf("expected results to be an empty array, not null")
	}

	unknown := env.list(t, "/api/announcements?category=nope")
	if unknown.Count != 0 {
		t.Fatalf("expected unknown category to match nothing, got %d", unknown.Count)
	}
}

func TestUnseenFeedKeepsStickyAnnouncements(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})
	env.create(t, map[string]any{"publisher": "user:default/jane", "title": "Pinned", "sticky": true})
	env.create(t, map[string]any{"publisher": "user:default/jane", "title": "Regular"})

	all := env.list(t, "/api/announcements/unseen")
	if all.Count != 2 {
		t.Fatalf("expected every announcement for a first visit, got %d", all.Count)
	}

	since := timestamp.Encode(time.Now().Add(time.Hour))
	later := env.list(t, "/api/announcements/unseen?since="+since)
	if later.Count != 1 || later.Results[0].Title != "Pinned" {
		t.Fatalf("expected only the sticky announcement, got %+v", later)
	}

	if rec := env.do(t, "GET", "/api/announcements/unseen?since=yesterday", nil, ""); rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed since, got %d", rec.Code)
	}
}

func TestSearchRouteReturnsDocuments(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})
	created := env.create(t, map[string]any{
		"publisher": "user:default/jane",
		"title":     "Indexed",
		"body":      "Read the **release** notes.",
	})

	rec := env.do(t, "GET", "/api/search/announcements", nil, "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var documents []search.Document
	decode(t, rec, &documents)
	if len(documents) != 1 {
		t.Fatalf("expected one document, got %d", len(documents))
	}
	if documents[0].Text != "Read the release notes." {
		t.Fatalf("expected plain text body, got %q", documents[0].Text)
	}
	if documents[0].Location != search.Location(created.ID) {
		t.Fatalf("expected location %q, got %q", search.Location(created.ID), documents[0].Location)
	}
}

func TestRateLimiterMiddlewareCapsRequests(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{burst: 3})

	current := time.Unix(0, 0)
	env.srv.rateLimiter.now = func() time.Time {
		return current
	}

	for i := 0; i < 3; i++ {
		rec := env.do(t, "GET", "/healthz", nil, "")
		if rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected request %d to be allowed, got status %d", i+1, rec.Code)
		}
	}

	fourth := env.do(t, "GET", "/healthz", nil, "")
	if fourth.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", stdhttp.StatusTooManyRequests, fourth.Code)
	}
	if header := fourth.Header().Get("Retry-After"); header != "1" {
		t.Fatalf("expected Retry-After header to be 1, got %q", header)
	}
	if body := fourth.Body.String(); !strings.Contains(body, "Please wait a moment") {
		t.Fatalf("expected rate limit message in body, got %q", body)
	}

	current = current.Add(time.Second)

	if rec := env.do(t, "GET", "/healthz", nil, ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status %d after refill, got %d", stdhttp.StatusOK, rec.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	if header := rec.Header().Get("X-Request-ID"); header != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", header)
	}

	generated := env.do(t, "GET", "/healthz", nil, "")
	if generated.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{wrap: func(svc announcements.Service) announcements.Service {
		return panickingService{Service: svc}
	}})

	rec := env.do(t, "GET", "/api/categories", nil, "")
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500 after panic, got %d", rec.Code)
	}
}

func TestHealthRouteReportsDatabaseState(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})

	if rec := env.do(t, "GET", "/healthz", nil, ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if err := database.Close(env.db); err != nil {
		t.Fatalf("closing database failed: %v", err)
	}

	rec := env.do(t, "GET", "/healthz", nil, "")
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("expected status 503 with closed database, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Fatalf("expected degraded status, got %q", rec.Body.String())
	}
}

func TestUnexpectedErrorIsLoggedOnce(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	env := newTestServer(t, testOptions{logger: logger})

	if err := database.Close(env.db); err != nil {
		t.Fatalf("closing database failed: %v", err)
	}
	hook.Reset()

	rec := env.do(t, "GET", "/api/categories", nil, "")
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	errorEntries := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Message == "listing categories" {
			errorEntries++
		}
	}
	if errorEntries != 1 {
		t.Fatalf("expected the failure to be logged once at error level, got %d", errorEntries)
	}
}

func TestRateLimitedRequestLogsRequestID(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	env := newTestServer(t, testOptions{logger: logger, burst: 1})

	current := time.Unix(0, 0)
	env.srv.rateLimiter.now = func() time.Time {
		return current
	}

	env.do(t, "GET", "/healthz", nil, "")

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "limited-1")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}

	for _, entry := range hook.AllEntries() {
		if entry.Message == "request rate limited" {
			if entry.Data["request_id"] != "limited-1" || entry.Data["ip"] == "" {
				t.Fatalf("expected request id and ip on the entry, got %v", entry.Data)
			}
			return
		}
	}
	t.Fatalf("expected a rate limit log entry")
}

func TestListAnnouncementsOverflowingPageIsEmpty(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, testOptions{})
	env.create(t, map[string]any{"publisher": "user:default/jane", "title": "only"})

	list := env.list(t, "/api/announcements?max=8&page=2305843009213693953")
	if list.Count != 1 || len(list.Results) != 0 {
		t.Fatalf("expected an empty page past the end, got %+v", list)
	}

	if rec := env.do(t, "GET", "/api/announcements?page=0", nil, ""); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for page 0, got %d", rec.Code)
	}
	if rec := env.do(t, "GET", "/api/announcements?max=100000", nil, ""); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for an oversized page, got %d", rec.Code)
	}
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Options{}); err == nil {
		t.Fatalf("expected error without a service")
	}
}

// helper utilities

type testOptions struct {
	logger *logrus.Logger
	tokens []string
	burst  int
	wrap   func(announcements.Service) announcements.Service
}

type testEnv struct {
	srv *Server
	db  *gorm.DB
}

func newTestServer(t *testing.T, opts testOptions) *testEnv {
	t.Helper()

	logger := opts.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "announcements.db")})
	if err != nil {
		t.Fatalf("opening database failed: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	stores, err := store.Initialize(context.Background(), db, logger)
	if err != nil {
		t.Fatalf("initializing stores failed: %v", err)
	}

	svc, err := announcements.NewService(announcements.ServiceOptions{
		Announcements: stores.Announcements,
		Categories:    stores.Categories,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	if opts.wrap != nil {
		svc = opts.wrap(svc)
	}

	collator, err := search.NewCollator(svc, logger)
	if err != nil {
		t.Fatalf("NewCollator returned error: %v", err)
	}

	burst := opts.burst
	if burst <= 0 {
		burst = 100
	}

	srv, err := NewServer(Options{
		Service:    svc,
		Authorizer: permission.NewStaticAuthorizer(opts.tokens, logger),
		Collator:   collator,
		Database:   db,
		Logger:     logger,
		RateLimiter: RateLimiterSettings{
			Burst:             burst,
			RequestsPerSecond: float64(burst),
			ClientTTL:         time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body failed: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) create(t *testing.T, body map[string]any) announcementBody {
	t.Helper()

	rec := e.do(t, "POST", "/api/announcements", body, "")
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201 creating announcement, got %d: %s", rec.Code, rec.Body.String())
	}

	var created announcementBody
	decode(t, rec, &created)
	return created
}

func (e *testEnv) list(t *testing.T, path string) listBody {
	t.Helper()

	rec := e.do(t, "GET", path, nil, "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200 listing %s, got %d: %s", path, rec.Code, rec.Body.String())
	}

	var list listBody
	decode(t, rec, &list)
	return list
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decoding response %q failed: %v", rec.Body.String(), err)
	}
}

// stubs

type panickingService struct {
	announcements.Service
}

func (panickingService) ListCategories(context.Context) ([]announcements.Category, error) {
	panic("category listing exploded")
}
