package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"eventboard/internal/convert"
	"eventboard/internal/detail"
	"eventboard/internal/filter"
	"eventboard/internal/ics"
	"eventboard/internal/listing"
	appLog "eventboard/internal/log"
	"eventboard/internal/model"
)

const (
	// formOverhead is the body allowance on top of the image limit for the
	// remaining form fields and multipart framing.
	formOverhead    = 1 << 20
	multipartMemory = 8 << 20
)

// notices maps the notice query parameter set by post-redirect-get flows to
// the banner shown on the target page.
var notices = map[string]string{
	"created": "Event added",
	"updated": "Event updated",
	"deleted": "Event deleted",
}

func noticeFrom(r *http.Request) *model.Notification {
	if title, ok := notices[r.URL.Query().Get("notice")]; ok {
		return model.Success(title)
	}
	return nil
}

func criteriaFrom(r *http.Request) filter.Criteria {
	q := r.URL.Query()
	return filter.Criteria{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}
}

// parseID turns a route segment or form value back into an ID, numeric when
// the whole value is an integer.
func parseID(s string) model.ID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return model.NumericID(n)
	}
	return model.StringID(s)
}

func eventPath(id model.ID) string {
	return "/event/" + url.PathEscape(id.String())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	ctl := s.listingController()
	ctl.SetCriteria(criteriaFrom(r))

	status := http.StatusOK
	if err := ctl.Load(r.Context()); err != nil {
		status = http.StatusBadGateway
	}
	if r.URL.Query().Get("new") == "1" {
		ctl.OpenCreate()
	}
	if n := noticeFrom(r); n != nil {
		ctl.Notify(n)
	}
	s.renderListing(w, r, ctl, status)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctl := s.listingController()
	// The listing is needed to re-render the form with its selects.
	_ = ctl.Load(ctx)
	ctl.OpenCreate()

	draft, err := s.draftFromForm(w, r, ctl.Draft())
	if err != nil {
		ctl.RejectDraft(draft, err)
		s.renderListing(w, r, ctl, http.StatusUnprocessableEntity)
		return
	}

	if _, err := ctl.AddEvent(ctx, draft); err != nil {
		s.renderListing(w, r, ctl, failureStatus(err))
		return
	}
	http.Redirect(w, r, "/?notice=created", http.StatusSeeOther)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	ctl := s.detailController(nil)
	if !s.loadDetail(w, r, ctl) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("edit") == "1":
		_ = ctl.BeginEdit()
	case q.Get("confirm") == "delete":
		_ = ctl.RequestDelete()
	}
	if n := noticeFrom(r); n != nil {
		ctl.Notify(n)
	}
	s.renderDetail(w, r, ctl, http.StatusOK)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctl := s.detailController(nil)
	if !s.loadDetail(w, r, ctl) {
		return
	}
	if err := ctl.BeginEdit(); err != nil {
		s.renderDetail(w, r, ctl, http.StatusConflict)
		return
	}

	draft, err := s.draftFromForm(w, r, ctl.Draft())
	if err != nil {
		ctl.RejectDraft(draft, err)
		s.renderDetail(w, r, ctl, http.StatusUnprocessableEntity)
		return
	}

	if err := ctl.SubmitEdit(r.Context(), draft); err != nil {
		s.renderDetail(w, r, ctl, failureStatus(err))
		return
	}
	http.Redirect(w, r, eventPath(ctl.Event().ID)+"?notice=updated", http.StatusSeeOther)
}

// redirectNavigator records the destination a controller navigated to so
// the handler can answer with a redirect.
type redirectNavigator struct {
	path string
}

func (n *redirectNavigator) Navigate(path string) { n.path = path }

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := parseID(mux.Vars(r)["id"])
	if r.PostFormValue("confirm") != "yes" {
		http.Redirect(w, r, eventPath(id)+"?confirm=delete", http.StatusSeeOther)
		return
	}

	nav := &redirectNavigator{}
	ctl := s.detailController(nav)
	if !s.loadDetail(w, r, ctl) {
		return
	}
	if err := ctl.RequestDelete(); err != nil {
		s.renderDetail(w, r, ctl, http.StatusConflict)
		return
	}
	if err := ctl.ConfirmDelete(r.Context()); err != nil {
		s.renderDetail(w, r, ctl, http.StatusBadGateway)
		return
	}

	target := nav.path
	if target == "" {
		target = detail.ListingPath
	}
	http.Redirect(w, r, target+"?notice=deleted", http.StatusSeeOther)
}

// apiEventsResponse is the JSON response shape for /api/events.
type apiEventsResponse struct {
	Events []listing.Card `json:"events"`
	Total  int            `json:"total"`
	Query  string         `json:"q,omitempty"`
	Filter string         `json:"category,omitempty"`
}

func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	ctl := s.listingController()
	ctl.SetCriteria(criteriaFrom(r))
	if err := ctl.Load(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	v := ctl.View()
	writeJSON(w, http.StatusOK, apiEventsResponse{
		Events: v.Cards,
		Total:  v.Total,
		Query:  v.Criteria.Query,
		Filter: v.Criteria.Category,
	})
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	ctl := s.listingController()
	if err := ctl.Load(r.Context()); err != nil {
		http.Error(w, "failed to load events", http.StatusBadGateway)
		return
	}

	body := ics.Build(ctl.Events(), ctl.Users(), ctl.Categories(), ics.FeedOptions{
		Name:      "Events",
		BaseURL:   baseURL(r),
		Formatter: s.format,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handlePreview serves the last kiosk snapshot from disk. http.ServeFile
// answers 404 until the first capture has been written.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Snapshot.OutputPath)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, "error", http.StatusNotFound, pageData{
		Title:     "Not found",
		Message:   "The page you are looking for does not exist.",
		RequestID: requestID(r.Context()),
	})
}

// loadDetail loads the event named by the route. It renders the failure and
// returns false when the event could not be loaded.
func (s *Server) loadDetail(w http.ResponseWriter, r *http.Request, ctl *detail.Controller) bool {
	id := parseID(mux.Vars(r)["id"])
	if err := ctl.Load(r.Context(), id); err != nil {
		if ctl.NotFound() {
			s.pages.render(w, "error", http.StatusNotFound, pageData{
				Title:     "Event not found",
				Message:   "Event " + id.String() + " does not exist or was deleted.",
				RequestID: requestID(r.Context()),
			})
			return false
		}
		s.renderDetail(w, r, ctl, http.StatusBadGateway)
		return false
	}
	return true
}

func (s *Server) renderListing(w http.ResponseWriter, r *http.Request, ctl *listing.Controller, status int) {
	v := ctl.View()
	s.pages.render(w, "listing", status, pageData{
		Title:        "Events",
		Notification: v.Notification,
		Listing:      &v,
		RequestID:    requestID(r.Context()),
	})
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, ctl *detail.Controller, status int) {
	v := ctl.View()
	title := v.Title
	if title == "" {
		title = "Event"
	}
	s.pages.render(w, "detail", status, pageData{
		Title:        title,
		Notification: v.Notification,
		Detail:       &v,
		RequestID:    requestID(r.Context()),
	})
}

// failureStatus maps a failed submission to its response status.
func failureStatus(err error) int {
	if model.IsValidation(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// draftFromForm applies the submitted fields on top of base. Fields missing
// from the form keep their base value; an image is replaced only by a new
// upload or cleared by removeImage. The returned draft is usable even when
// err is set, so the form can be shown again with what was entered.
func (s *Server) draftFromForm(w http.ResponseWriter, r *http.Request, base model.Draft) (model.Draft, error) {
	d := base
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return d, &model.ValidationError{Fields: map[string]string{"image": "is too large"}}
		}
		return d, &model.ValidationError{Fields: map[string]string{"form": "could not be read"}}
	}

	form := r.PostForm
	fields := map[string]string{}

	if _, ok := form["title"]; ok {
		d.Title = strings.TrimSpace(form.Get("title"))
	}
	if _, ok := form["description"]; ok {
		d.Description = form.Get("description")
	}
	if _, ok := form["startTime"]; ok {
		d.StartTime = s.formTime(form.Get("startTime"))
	}
	if _, ok := form["endTime"]; ok {
		d.EndTime = s.formTime(form.Get("endTime"))
	}
	if _, ok := form["createdBy"]; ok {
		d.CreatedBy = model.ID{}
		if v := strings.TrimSpace(form.Get("createdBy")); v != "" {
			d.CreatedBy = parseID(v)
		}
	}
	if v, ok := form["categoryIds"]; ok && categoryChanged(form, v[0]) {
		if err := d.SetCategory(v[0]); err != nil {
			fields["categoryIds"] = "is not a valid category"
		}
	}

	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		dataURL, err := convert.ImageToDataURL(file, s.cfg.MaxImageBytes)
		if err != nil {
			appLog.Debug("image upload rejected", "err", err)
			fields["image"] = imageProblem(err)
		} else {
			d.Image = dataURL
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		if form.Get("removeImage") == "1" {
			d.Image = ""
		}
	default:
		fields["image"] = "could not be read"
	}

	if len(fields) > 0 {
		return d, &model.ValidationError{Fields: fields}
	}
	return d, nil
}

// categoryChanged reports whether the posted category selection differs from
// the one the form was rendered with. The edit form sends the rendered choice
// as categoryIdsShown; a selection left alone keeps the stored list, which may
// hold several categories or ids missing from the catalog.
func categoryChanged(form url.Values, selected string) bool {
	if selected == keepCategories {
		return false
	}
	shown, ok := form["categoryIdsShown"]
	return !ok || shown[0] != selected
}

func imageProblem(err error) string {
	switch {
	case errors.Is(err, convert.ErrImageTooBig):
		return "is too large"
	case errors.Is(err, convert.ErrNotAnImage):
		return "is not an image"
	case errors.Is(err, convert.ErrEmptyImage):
		return "is empty"
	default:
		return "could not be read"
	}
}

// formTime stores datetime-local input as an RFC 3339 UTC timestamp. Input
// that does not parse is kept as entered so validation can report it.
func (s *Server) formTime(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	t, err := s.format.Parse(v)
	if err != nil {
		return v
	}
	return t.UTC().Format(time.RFC3339)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
