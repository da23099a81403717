package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/actions"
	"github.com/agenda-distribuida/events-web/internal/clients"
	"github.com/agenda-distribuida/events-web/internal/listing"
	"github.com/agenda-distribuida/events-web/internal/models"
	"github.com/agenda-distribuida/events-web/internal/session"
	"github.com/agenda-distribuida/events-web/internal/state"
	"github.com/agenda-distribuida/events-web/web"
)

const (
	testSecret = "test-secret"
	testUserID = "42"
	perPage    = 2
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeAPI is an in-process events API.
type fakeAPI struct {
	mu        sync.Mutex
	public    []models.Event
	own       []models.Event
	listCalls map[string]int
	rejects   map[string]string
	created   []models.EventDraft
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		public: []models.Event{
			{ID: "1", Title: "Jazz Night", DateTime: "2025-03-01 20:00:00", Deadline: "2025-02-28 12:00:00", Location: "Hall A", Price: "10.00", AttendeeLimit: 50},
			{ID: "2", Title: "Book Fair", DateTime: "2025-04-10 10:00:00", Deadline: "2025-04-09 12:00:00", Location: "Plaza", Price: "0", AttendeeLimit: 200},
			{ID: "3", Title: "Chess Open", DateTime: "2025-05-05 09:00:00", Deadline: "2025-05-01 12:00:00", Location: "Club", Price: "5", AttendeeLimit: 1,
				Reservations: []models.Reservation{{ID: "7"}}},
		},
		listCalls: map[string]int{},
		rejects: map[string]string{
			"3":   "No tickets left.",
			"Bad": "The title field is required.",
		},
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		f.list(w, r, string(clients.ScopePublic), f.public)
	})
	mux.HandleFunc("GET /api/user/events", func(w http.ResponseWriter, r *http.Request) {
		f.list(w, r, string(clients.ScopeOwn), f.own)
	})
	mux.HandleFunc("POST /api/events/{id}/reserve", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := r.PathValue("id")
		if msg, ok := f.rejects[id]; ok {
			writeJSON(w, http.StatusUnprocessableEntity, models.MessageResponse{Message: msg})
			return
		}
		for i := range f.public {
			if string(f.public[i].ID) == id {
				f.public[i].Reservations = append(f.public[i].Reservations, models.Reservation{ID: testUserID})
			}
		}
		writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Ticket reserved."})
	})
	mux.HandleFunc("POST /api/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var d models.EventDraft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.created = append(f.created, d)
		if msg, ok := f.rejects[d.Title]; ok {
			writeJSON(w, http.StatusUnprocessableEntity, models.MessageResponse{Message: msg})
			return
		}
		limit, _ := strconv.Atoi(d.AttendeeLimit)
		f.own = append(f.own, models.Event{
			ID:            models.ID(strconv.Itoa(100 + len(f.own))),
			Title:         d.Title,
			DateTime:      d.DateTime,
			Deadline:      d.Deadline,
			Location:      d.Location,
			Price:         models.Price(d.Price),
			AttendeeLimit: limit,
		})
		writeJSON(w, http.StatusCreated, models.MessageResponse{Message: "Event created."})
	})
	return mux
}

func (f *fakeAPI) list(w http.ResponseWriter, r *http.Request, scope string, events []models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls[scope]++
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	lastPage := (len(events) + perPage - 1) / perPage
	var data []models.Event
	if start := (page - 1) * perPage; page >= 1 && start < len(events) {
		end := start + perPage
		if end > len(events) {
			end = len(events)
		}
		data = events[start:end]
	}
	writeJSON(w, http.StatusOK, models.EventPage{Data: data, LastPage: lastPage})
}

func (f *fakeAPI) calls(scope clients.Scope) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[string(scope)]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	api    *fakeAPI
	router *gin.Engine
	guard  *session.Guard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	store := state.NewMemoryStore(time.Hour)
	client := clients.NewEventsClient(srv.URL, 5*time.Second, logger)
	events := listing.NewController(client, store, clients.ScopePublic, pageEvents, logger)
	userEvents := listing.NewController(client, store, clients.ScopeOwn, pageUserEvents, logger)
	dispatcher := actions.NewDispatcher(client, events, userEvents, logger)
	guard := session.NewGuard(testSecret, "events_token", time.Hour, logger)

	tmpl, err := web.Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}

	router := SetupRouter(
		tmpl,
		guard,
		NewEventHandler(events, dispatcher, store, 0, time.UTC, logger),
		NewUserEventHandler(userEvents, dispatcher, store, 0, time.UTC, logger),
		logger,
	)
	return &testEnv{api: api, router: router, guard: guard}
}

// browser replays cookies between requests like a real user agent.
type browser struct {
	t       *testing.T
	router  http.Handler
	token   string
	cookies map[string]*http.Cookie
}

func (e *testEnv) anonymous(t *testing.T) *browser {
	return &browser{t: t, router: e.router, cookies: map[string]*http.Cookie{}}
}

func (e *testEnv) signedIn(t *testing.T) *browser {
	t.Helper()
	token, err := e.guard.Issue(testUserID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	b := e.anonymous(t)
	b.token = token
	return b
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(target string) string {
	b.t.Helper()
	rec := b.do(http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		b.t.Fatalf("GET %s status = %d, body = %s", target, rec.Code, rec.Body.String())
	}
	return rec.Body.String()
}

func (b *browser) post(target string, form url.Values) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	rec := b.do(http.MethodPost, target, form)
	if rec.Code != http.StatusSeeOther {
		b.t.Fatalf("POST %s status = %d, want %d; body = %s", target, rec.Code, http.StatusSeeOther, rec.Body.String())
	}
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q", w)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(body, u) {
			t.Errorf("body unexpectedly contains %q", u)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.anonymous(t).do(http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("response has no request id")
	}
}

func TestShowEvents(t *testing.T) {
	env := newTestEnv(t)
	b := env.anonymous(t)

	body := b.get("/events")
	assertContains(t, body,
		"Jazz Night",
		"Book Fair",
		"March 1, 2025, 8:00:00 PM",
		`action="/events/1/reserve"`,
		`href="?page=2"`,
	)
	assertNotContains(t, body, "Chess Open", `role="alertdialog"`, "Create Event")

	if _, ok := b.cookies["events_sid"]; !ok {
		t.Error("no session cookie was set")
	}

	body = b.get("/events?page=2")
	assertContains(t, body, "Chess Open")
	assertNotContains(t, body, "Jazz Night")
}

func TestShowEventsClampsOutOfRangePage(t *testing.T) {
	env := newTestEnv(t)

	body := env.anonymous(t).get("/events?page=9")
	assertContains(t, body, "Chess Open")
	if got := env.api.calls(clients.ScopePublic); got != 2 {
		t.Errorf("list calls = %d, want 2", got)
	}
}

func TestReserveTicket(t *testing.T) {
	env := newTestEnv(t)
	b := env.signedIn(t)

	b.get("/events")
	b.post("/events/1/reserve", nil)

	body := b.get("/events")
	assertContains(t, body, `role="alertdialog"`, "Ticket reserved.", "Ticket Reserved")
	assertNotContains(t, body, `action="/events/1/reserve"`, "text-red-700")

	// initial render plus the refresh after reserving; the redirect target
	// renders the stored listing.
	if got := env.api.calls(clients.ScopePublic); got != 2 {
		t.Errorf("list calls = %d, want 2", got)
	}

	body = b.get("/events")
	assertNotContains(t, body, `role="alertdialog"`)
	if got := env.api.calls(clients.ScopePublic); got != 3 {
		t.Errorf("list calls = %d, want 3", got)
	}
}

func TestReserveTicketRejected(t *testing.T) {
	env := newTestEnv(t)
	b := env.signedIn(t)

	b.get("/events?page=2")
	b.post("/events/3/reserve", nil)

	body := b.get("/events")
	assertContains(t, body, "No tickets left.", "text-red-700", "Chess Open")
	if got := env.api.calls(clients.ScopePublic); got != 1 {
		t.Errorf("list calls = %d, want 1", got)
	}
}

func TestUserEventsRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	b := env.anonymous(t)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/user/events"},
		{http.MethodPost, "/user/events"},
		{http.MethodPost, "/user/events/modal"},
	} {
		rec := b.do(tc.method, tc.target, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.target, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	b := env.signedIn(t)

	body := b.get("/user/events")
	assertContains(t, body, "Create Event")
	assertNotContains(t, body, `id="modal"`)

	b.post("/user/events/modal", nil)
	assertContains(t, b.get("/user/events"), `id="modal"`)

	b.post("/user/events", url.Values{
		"title":          {"Party"},
		"description":    {"Bring snacks"},
		"datetime":       {"2025-06-01T18:00"},
		"deadline":       {"2025-05-30T12:00"},
		"location":       {"Roof"},
		"price":          {"0"},
		"attendee_limit": {"30"},
	})

	body = b.get("/user/events")
	assertContains(t, body, "Event created.", "Party", "June 1, 2025, 6:00:00 PM")
	assertNotContains(t, body, `id="modal"`)

	if len(env.api.created) != 1 || env.api.created[0].AttendeeLimit != "30" {
		t.Errorf("created = %+v", env.api.created)
	}

	b.post("/user/events/modal", nil)
	assertNotContains(t, b.get("/user/events"), `value="Party"`)
}

func TestCreateEventFailureKeepsModalOpen(t *testing.T) {
	env := newTestEnv(t)
	b := env.signedIn(t)

	b.post("/user/events/modal", nil)
	b.post("/user/events", url.Values{"title": {"Bad"}, "location": {"Nowhere"}})

	body := b.get("/user/events")
	assertContains(t, body,
		"The title field is required.",
		"text-red-700",
		`id="modal"`,
		`value="Bad"`,
		`value="Nowhere"`,
	)
}

func TestOpenModalAsFirstRequestFetchesListing(t *testing.T) {
	env := newTestEnv(t)
	env.api.own = []models.Event{
		{ID: "50", Title: "Garden Party", DateTime: "2025-07-01 17:00:00", Deadline: "2025-06-30 12:00:00", AttendeeLimit: 12},
	}
	b := env.signedIn(t)

	b.post("/user/events/modal", nil)

	body := b.get("/user/events")
	assertContains(t, body, `id="modal"`, "Garden Party")
	if got := env.api.calls(clients.ScopeOwn); got != 1 {
		t.Errorf("list calls = %d, want 1", got)
	}

	// the stored listing is reused by the next action
	b.post("/user/events/modal/dismiss", url.Values{"reason": {"cancel"}})
	assertContains(t, b.get("/user/events"), "Garden Party")
	if got := env.api.calls(clients.ScopeOwn); got != 1 {
		t.Errorf("list calls = %d, want 1", got)
	}
}

func TestDismissModal(t *testing.T) {
	tests := []struct {
		name      string
		form      url.Values
		wantOpen  bool
		wantDraft bool
	}{
		{
			name:      "escape keeps draft",
			form:      url.Values{"reason": {"escape"}},
			wantDraft: true,
		},
		{
			name:      "click outside keeps draft",
			form:      url.Values{"reason": {"outside"}, "target": {"outside"}},
			wantDraft: true,
		},
		{
			name:      "click inside",
			form:      url.Values{"reason": {"outside"}, "target": {"inside"}},
			wantOpen:  true,
			wantDraft: true,
		},
		{
			name:      "click on trigger",
			form:      url.Values{"reason": {"outside"}, "target": {"trigger"}},
			wantOpen:  true,
			wantDraft: true,
		},
		{
			name: "cancel resets draft",
			form: url.Values{"reason": {"cancel"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			b := env.signedIn(t)

			b.post("/user/events/modal", nil)
			b.post("/user/events", url.Values{"title": {"Bad"}})
			b.get("/user/events")

			b.post("/user/events/modal/dismiss", tt.form)
			body := b.get("/user/events")
			if got := strings.Contains(body, `id="modal"`); got != tt.wantOpen {
				t.Fatalf("modal open = %v, want %v", got, tt.wantOpen)
			}

			b.post("/user/events/modal", nil)
			body = b.get("/user/events")
			if got := strings.Contains(body, `value="Bad"`); got != tt.wantDraft {
				t.Errorf("draft kept = %v, want %v", got, tt.wantDraft)
			}
		})
	}
}

func TestTriggerStaysClickableWhileModalIsOpen(t *testing.T) {
	env := newTestEnv(t)
	b := env.signedIn(t)

	assertNotContains(t, b.get("/user/events"), `value="trigger"`)

	b.post("/user/events/modal", nil)
	body := b.get("/user/events")
	assertContains(t, body, `z-[60]`, `name="target" value="trigger"`)

	b.post("/user/events/modal/dismiss", url.Values{"reason": {"outside"}, "target": {"trigger"}})
	assertContains(t, b.get("/user/events"), `id="modal"`)
}

func TestDismissClosedModalIsNoop(t *testing.T) {
	env := newTestEnv(t)
	b := env.signedIn(t)

	b.post("/user/events/modal/dismiss", url.Values{"reason": {"escape"}})
	assertNotContains(t, b.get("/user/events"), `id="modal"`)
}
