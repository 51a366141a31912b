package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventboard/internal/model"
	"eventboard/internal/store/storetest"
)

func seed() *storetest.Server {
	events := []model.Event{
		{ID: storetest.Num(1), Title: "Night Market", StartTime: "2024-03-10T18:00:00Z", EndTime: "2024-03-10T22:00:00Z", CreatedBy: storetest.Num(1), CategoryIDs: model.CategoryIDs{storetest.Num(2)}},
		{ID: storetest.Num(2), Title: "Morning Yoga", StartTime: "2024-03-11T07:00:00Z", EndTime: "2024-03-11T08:00:00Z", CreatedBy: storetest.Num(2)},
	}
	users := []model.User{{ID: storetest.Num(1), Name: "Ada"}, {ID: storetest.Num(2), Name: "Bob"}}
	cats := []model.Category{{ID: storetest.Num(1), Name: "General"}, {ID: storetest.Num(2), Name: "Food"}}
	return storetest.NewServer(events, users, cats)
}

func TestClientReads(t *testing.T) {
	t.Parallel()

	srv := seed()
	defer srv.Close()
	c := NewClient(srv.URL)
	ctx := context.Background()

	events, err := c.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].Title != "Night Market" {
		t.Fatalf("ListEvents = %+v", events)
	}
	if events[1].CategoryIDs != nil {
		t.Fatalf("categoryIds = %v, want nil for event without categories", events[1].CategoryIDs)
	}

	users, err := c.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("ListUsers = %v, %v", users, err)
	}
	cats, err := c.ListCategories(ctx)
	if err != nil || len(cats) != 2 {
		t.Fatalf("ListCategories = %v, %v", cats, err)
	}
	u, err := c.GetUser(ctx, storetest.Num(2))
	if err != nil || u.Name != "Bob" {
		t.Fatalf("GetUser = %v, %v", u, err)
	}
}

func TestClientCreateThenGet(t *testing.T) {
	t.Parallel()

	srv := seed()
	defer srv.Close()
	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	d := model.Draft{
		Title:       "Book club",
		StartTime:   "2024-04-01T18:00:00Z",
		EndTime:     "2024-04-01T19:00:00Z",
		CreatedBy:   storetest.Num(1),
		CategoryIDs: model.CategoryIDs{storetest.Num(2)},
	}
	created, err := c.CreateEvent(ctx, d)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID != storetest.Num(3) {
		t.Fatalf("created id = %v, want 3", created.ID)
	}

	var sent map[string]any
	if err := json.Unmarshal(srv.LastBody("POST /events"), &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if _, ok := sent["id"]; ok {
		t.Fatalf("create body carried an id: %v", sent)
	}

	got, err := c.GetEvent(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != d.Title || got.StartTime != d.StartTime || !got.CategoryIDs.Contains(storetest.Num(2)) {
		t.Fatalf("GetEvent = %+v, want fields of %+v", got, d)
	}
}

func TestClientUpdateSendsFullRecord(t *testing.T) {
	t.Parallel()

	srv := seed()
	defer srv.Close()
	c := NewClient(srv.URL)
	ctx := context.Background()

	ev, err := c.GetEvent(ctx, storetest.Num(1))
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	ev.Title = "Night Market (moved)"
	if err := c.UpdateEvent(ctx, ev.ID, ev); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	var sent map[string]json.RawMessage
	if err := json.Unmarshal(srv.LastBody("PUT /events/1"), &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	for _, k := range []string{"id", "title", "description", "startTime", "endTime", "image", "createdBy", "categoryIds"} {
		if _, ok := sent[k]; !ok {
			t.Fatalf("update body missing %q: %s", k, srv.LastBody("PUT /events/1"))
		}
	}
	if got := srv.Events()[0].Title; got != "Night Market (moved)" {
		t.Fatalf("stored title = %q", got)
	}
}

func TestClientDelete(t *testing.T) {
	t.Parallel()

	srv := seed()
	defer srv.Close()
	c := NewClient(srv.URL)

	if err := c.DeleteEvent(context.Background(), storetest.Num(2)); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if n := len(srv.Events()); n != 1 {
		t.Fatalf("events left = %d, want 1", n)
	}
}

func TestClientNotFound(t *testing.T) {
	t.Parallel()

	srv := seed()
	defer srv.Close()
	c := NewClient(srv.URL)

	_, err := c.GetEvent(context.Background(), storetest.Num(99))
	if !IsNotFound(err) {
		t.Fatalf("GetEvent(99) = %v, want NotFound", err)
	}
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("StatusOf = %d, want 404", StatusOf(err))
	}
	if _, err := c.GetUser(context.Background(), storetest.Num(99)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUser(99) = %v, want NotFound", err)
	}
}

func TestClientHTTPError(t *testing.T) {
	t.Parallel()

	srv := seed()
	defer srv.Close()
	srv.Fail("GET /events", http.StatusInternalServerError)
	c := NewClient(srv.URL)

	_, err := c.ListEvents(context.Background())
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("ListEvents = %v, want *Error", err)
	}
	if se.Kind != KindHTTP || se.Status != http.StatusInternalServerError {
		t.Fatalf("error = %+v, want http 500", se)
	}
	if !errors.Is(err, ErrHTTP) || errors.Is(err, ErrNotFound) {
		t.Fatalf("errors.Is mismatch for %v", err)
	}

	// A 404 on a collection is not a missing resource.
	srv.Fail("GET /users", http.StatusNotFound)
	if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrHTTP) {
		t.Fatalf("ListUsers = %v, want ErrHTTP", err)
	}
}

func TestClientTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithTimeout(time.Second))
	_, err := c.ListCategories(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("ListCategories = %v, want ErrTransport", err)
	}
	if StatusOf(err) != 0 {
		t.Fatalf("StatusOf = %d, want 0", StatusOf(err))
	}
}

func TestClientDecodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListEvents(context.Background())
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("ListEvents = %v, want ErrDecode", err)
	}
}

func TestClientSendsJSONHeaders(t *testing.T) {
	t.Parallel()

	var accept, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).UpdateEvent(context.Background(), model.StringID("a b"), model.Event{ID: model.StringID("a b")})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if accept != "application/json" || contentType != "application/json" {
		t.Fatalf("headers = %q / %q", accept, contentType)
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	if got := NewClient("").BaseURL(); got != DefaultBaseURL {
		t.Fatalf("BaseURL = %q, want %q", got, DefaultBaseURL)
	}
}
