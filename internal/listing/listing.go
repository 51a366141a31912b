// Package listing drives the event listing view: it loads the event, user
// and category collections, derives the filtered cards shown to the user and
// runs the create-event flow.
package listing

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"eventboard/internal/category"
	"eventboard/internal/datetime"
	"eventboard/internal/filter"
	appLog "eventboard/internal/log"
	"eventboard/internal/model"
)

// Store is the part of the event store the listing needs.
type Store interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateEvent(ctx context.Context, draft model.Draft) (model.Event, error)
}

// State is the load state of the listing.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Controller holds the listing's local copy of the store. It is not safe
// for concurrent use; each view owns its own Controller.
type Controller struct {
	store  Store
	engine *filter.Engine
	format *datetime.Formatter

	state State
	err   error

	events     []model.Event
	users      []model.User
	categories []model.Category

	criteria filter.Criteria

	creating bool
	draft    model.Draft

	notice *model.Notification
}

// Option customizes a Controller.
type Option func(*Controller)

// WithEngine sets the filter engine (and so the default category).
func WithEngine(e *filter.Engine) Option {
	return func(c *Controller) {
		if e != nil {
			c.engine = e
		}
	}
}

// WithFormatter sets the datetime formatter used for cards.
func WithFormatter(f *datetime.Formatter) Option {
	return func(c *Controller) {
		if f != nil {
			c.format = f
		}
	}
}

// New returns a Controller in the Loading state.
func New(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		engine: filter.New(filter.DefaultCategoryID),
		format: datetime.Default(),
		state:  StateLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches users, events and categories concurrently. The collections
// are replaced only when all three fetches succeed; otherwise the listing
// moves to StateFailed with empty collections and the error is returned.
func (c *Controller) Load(ctx context.Context) error {
	c.state = StateLoading
	c.err = nil

	var (
		users      []model.User
		events     []model.Event
		categories []model.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = c.store.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = c.store.ListEvents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = c.store.ListCategories(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		appLog.Error("listing load failed", err)
		c.state = StateFailed
		c.err = fmt.Errorf("load events: %w", err)
		c.users, c.events, c.categories = nil, nil, nil
		return c.err
	}

	c.users = users
	c.events = events
	c.categories = categories
	c.state = StateReady
	appLog.Debug("listing loaded",
		"events", len(events),
		"users", len(users),
		"categories", len(categories),
	)
	return nil
}

// Reload re-runs Load, keeping criteria and create-form state.
func (c *Controller) Reload(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *Controller) State() State { return c.state }

// Err returns the load failure, if any.
func (c *Controller) Err() error { return c.err }

// Events returns the full, unfiltered collection.
func (c *Controller) Events() []model.Event { return slices.Clone(c.events) }

func (c *Controller) Users() []model.User { return slices.Clone(c.users) }

func (c *Controller) Categories() []model.Category { return slices.Clone(c.categories) }

// SetCriteria changes the search and category filter. It never touches the
// store.
func (c *Controller) SetCriteria(cr filter.Criteria) { c.criteria = cr }

func (c *Controller) Criteria() filter.Criteria { return c.criteria }

// Visible returns the events that pass the current criteria, in store order.
func (c *Controller) Visible() []model.Event {
	return c.engine.Filter(c.events, c.criteria)
}

// OpenCreate opens the creation form with an empty draft.
func (c *Controller) OpenCreate() {
	c.creating = true
	c.draft = model.Draft{CategoryIDs: model.CategoryIDs{}}
}

// CloseCreate discards the draft and closes the form.
func (c *Controller) CloseCreate() {
	c.creating = false
	c.draft = model.Draft{}
}

func (c *Controller) Creating() bool { return c.creating }

// Draft returns the draft held by the open creation form.
func (c *Controller) Draft() model.Draft { return c.draft }

// Notification returns the latest user-visible notification, if any.
func (c *Controller) Notification() *model.Notification { return c.notice }

// Notify sets a notification, e.g. one carried over a redirect.
func (c *Controller) Notify(n *model.Notification) { c.notice = n }

// RejectDraft keeps the form open holding d and raises err, for input that
// could not be turned into a complete draft (a bad upload, for instance).
func (c *Controller) RejectDraft(d model.Draft, err error) {
	c.creating = true
	c.draft = d
	c.notice = model.Failure("Please check the event details", err)
}

// AddEvent validates and creates the draft. On success the stored record is
// appended to the collection and the form closes. On failure the collection
// is left untouched, the form stays open holding the draft, and an error
// notification is raised.
func (c *Controller) AddEvent(ctx context.Context, draft model.Draft) (model.Event, error) {
	c.creating = true
	c.draft = draft

	if err := draft.ValidateNew(); err != nil {
		c.notice = model.Failure("Please check the event details", err)
		return model.Event{}, err
	}

	created, err := c.store.CreateEvent(ctx, draft)
	if err != nil {
		appLog.Error("create event failed", err, "title", draft.Title)
		c.notice = model.Failure("Failed to add event", err)
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}

	c.events = append(c.events, created)
	c.CloseCreate()
	c.notice = model.Success("Event added")
	appLog.Info("event created", "id", created.ID.String(), "title", created.Title)
	return created, nil
}

// Card is the display form of one event.
type Card struct {
	ID          model.ID `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Image       string   `json:"image,omitempty"`
	Categories  []string `json:"categories"`
	Creator     string   `json:"creator,omitempty"`
}

// View is everything the listing page renders.
type View struct {
	State        State
	Err          error
	Cards        []Card
	Total        int
	Criteria     filter.Criteria
	Users        []model.User
	Categories   []model.Category
	Creating     bool
	Draft        model.Draft
	Notification *model.Notification
}

// View derives the page data from the current state.
func (c *Controller) View() View {
	visible := c.Visible()
	cards := make([]Card, 0, len(visible))
	for _, ev := range visible {
		cards = append(cards, c.card(ev))
	}
	return View{
		State:        c.state,
		Err:          c.err,
		Cards:        cards,
		Total:        len(c.events),
		Criteria:     c.criteria,
		Users:        c.Users(),
		Categories:   c.Categories(),
		Creating:     c.creating,
		Draft:        c.draft,
		Notification: c.notice,
	}
}

func (c *Controller) card(ev model.Event) Card {
	card := Card{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Start:       c.format.Format(ev.StartTime),
		End:         c.format.Format(ev.EndTime),
		Image:       ev.ImageURL(),
		Categories:  category.ResolveNames(ev.CategoryIDs, c.categories),
	}
	if u, ok := model.FindUser(c.users, ev.CreatedBy); ok {
		card.Creator = u.Name
	}
	return card
}
