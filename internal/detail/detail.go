// Package detail drives the single-event view: loading one event with its
// creator and the category catalog, editing it as a full-record update and
// deleting it after an explicit confirmation.
package detail

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"eventboard/internal/category"
	"eventboard/internal/datetime"
	appLog "eventboard/internal/log"
	"eventboard/internal/model"
	"eventboard/internal/store"
)

// ListingPath is where the user lands after deleting an event.
const ListingPath = "/"

// Store is the part of the event store the detail view needs.
type Store interface {
	GetEvent(ctx context.Context, id model.ID) (model.Event, error)
	UpdateEvent(ctx context.Context, id model.ID, event model.Event) error
	DeleteEvent(ctx context.Context, id model.ID) error
	GetUser(ctx context.Context, id model.ID) (model.User, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Mode is the modal sub-state of a loaded event.
type Mode string

const (
	ModeViewing          Mode = "viewing"
	ModeEditing          Mode = "editing"
	ModeConfirmingDelete Mode = "confirming_delete"
)

var (
	ErrNotReady     = errors.New("detail: event not loaded")
	ErrNotEditing   = errors.New("detail: editor is not open")
	ErrNotConfirmed = errors.New("detail: delete not confirmed")
)

// Controller holds one event's detail state. It is not safe for concurrent
// use.
type Controller struct {
	store  Store
	nav    Navigator
	format *datetime.Formatter

	state State
	mode  Mode
	err   error

	id         model.ID
	event      model.Event
	creator    *model.User
	categories []model.Category

	draft  model.Draft
	notice *model.Notification
}

// Option customizes a Controller.
type Option func(*Controller)

func WithFormatter(f *datetime.Formatter) Option {
	return func(c *Controller) {
		if f != nil {
			c.format = f
		}
	}
}

// New returns a Controller in the Loading state.
func New(s Store, nav Navigator, opts ...Option) *Controller {
	c := &Controller{
		store:  s,
		nav:    nav,
		format: datetime.Default(),
		state:  StateLoading,
		mode:   ModeViewing,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the event, then the category catalog and its creator in
// parallel. A failed event fetch moves to StateFailed; store.IsNotFound
// tells a missing event apart from other failures.
func (c *Controller) Load(ctx context.Context, id model.ID) error {
	c.state = StateLoading
	c.mode = ModeViewing
	c.err = nil
	c.id = id

	ev, err := c.store.GetEvent(ctx, id)
	if err != nil {
		appLog.Error("detail load failed", err, "id", id.String())
		c.state = StateFailed
		c.err = fmt.Errorf("load event %s: %w", id, err)
		c.event, c.creator, c.categories = model.Event{}, nil, nil
		return c.err
	}
	c.event = ev
	c.state = StateReady
	c.categories, c.creator = nil, nil

	var (
		categories []model.Category
		creator    *model.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = c.store.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		creator, err = c.fetchCreator(gctx, ev.CreatedBy)
		return err
	})
	if err := g.Wait(); err != nil {
		appLog.Error("detail related data failed", err, "id", id.String())
		c.notice = model.Failure("Some event details could not be loaded", err)
		return nil
	}
	c.categories = categories
	c.creator = creator
	return nil
}

// fetchCreator returns nil without error when the event has no creator or
// the creator no longer exists.
func (c *Controller) fetchCreator(ctx context.Context, id model.ID) (*model.User, error) {
	if id.IsZero() {
		return nil, nil
	}
	u, err := c.store.GetUser(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Mode() Mode { return c.mode }

// Err returns the load failure, if any.
func (c *Controller) Err() error { return c.err }

// NotFound reports whether the load failed because the event does not exist.
func (c *Controller) NotFound() bool { return c.err != nil && store.IsNotFound(c.err) }

// Event returns a copy of the last confirmed record.
func (c *Controller) Event() model.Event { return c.event.Clone() }

func (c *Controller) Creator() *model.User { return c.creator }

func (c *Controller) Categories() []model.Category { return slices.Clone(c.categories) }

func (c *Controller) Draft() model.Draft { return c.draft }

func (c *Controller) Notification() *model.Notification { return c.notice }

// Notify sets a notification, e.g. one carried over a redirect.
func (c *Controller) Notify(n *model.Notification) { c.notice = n }

// BeginEdit opens the editor with a draft copied from the current record.
func (c *Controller) BeginEdit() error {
	if c.state != StateReady {
		return ErrNotReady
	}
	c.draft = model.DraftFrom(c.event)
	c.mode = ModeEditing
	return nil
}

// CancelEdit closes the editor and drops the draft.
func (c *Controller) CancelEdit() {
	if c.mode == ModeEditing {
		c.mode = ModeViewing
	}
	c.draft = model.Draft{}
}

// SubmitEdit sends the draft merged into the current record as a full
// replacement. On success the record becomes the new confirmed state and the
// editor closes; on failure the editor stays open with the draft.
func (c *Controller) SubmitEdit(ctx context.Context, draft model.Draft) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	if c.mode != ModeEditing {
		return ErrNotEditing
	}
	c.draft = draft

	if err := c.draft.NumericCategories(); err != nil {
		c.notice = model.Failure("Failed to update event", err)
		return err
	}
	if err := c.draft.Validate(); err != nil {
		c.notice = model.Failure("Failed to update event", err)
		return err
	}

	record := c.draft.Merge(c.event)
	if err := c.store.UpdateEvent(ctx, c.id, record); err != nil {
		appLog.Error("update event failed", err, "id", c.id.String())
		c.notice = model.Failure("Failed to update event", err)
		return fmt.Errorf("update event %s: %w", c.id, err)
	}

	previousCreator := c.event.CreatedBy
	c.event = record
	c.mode = ModeViewing
	c.draft = model.Draft{}
	c.notice = model.Success("Event updated")
	appLog.Info("event updated", "id", c.id.String())

	// The creator shown must follow the record just confirmed.
	if record.CreatedBy != previousCreator {
		creator, err := c.fetchCreator(ctx, record.CreatedBy)
		if err != nil {
			appLog.Error("creator refresh failed", err, "id", c.id.String())
			c.creator = nil
			return nil
		}
		c.creator = creator
	}
	return nil
}

// RejectDraft keeps the editor open holding d and raises err without
// touching the store.
func (c *Controller) RejectDraft(d model.Draft, err error) {
	if c.state != StateReady {
		return
	}
	c.mode = ModeEditing
	c.draft = d
	c.notice = model.Failure("Failed to update event", err)
}

// RequestDelete opens the confirmation step. It never calls the store.
func (c *Controller) RequestDelete() error {
	if c.state != StateReady {
		return ErrNotReady
	}
	c.mode = ModeConfirmingDelete
	return nil
}

// CancelDelete closes the confirmation step.
func (c *Controller) CancelDelete() {
	if c.mode == ModeConfirmingDelete {
		c.mode = ModeViewing
	}
}

// ConfirmDelete deletes the event; it is only accepted while the
// confirmation step is open. On success the user is sent to the listing. On
// failure the user stays on the page and sees an error notification.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	if c.mode != ModeConfirmingDelete {
		return ErrNotConfirmed
	}
	c.mode = ModeViewing

	if err := c.store.DeleteEvent(ctx, c.id); err != nil {
		appLog.Error("delete event failed", err, "id", c.id.String())
		c.notice = model.Failure("Failed to delete event", err)
		return fmt.Errorf("delete event %s: %w", c.id, err)
	}

	appLog.Info("event deleted", "id", c.id.String())
	if c.nav != nil {
		c.nav.Navigate(ListingPath)
	}
	return nil
}

// View is everything the detail page renders.
type View struct {
	State        State
	Mode         Mode
	Err          error
	NotFound     bool
	ID           model.ID
	Title        string
	Description  string
	Start        string
	End          string
	Image        string
	Categories   []string
	Creator      *model.User
	Catalog      []model.Category
	Draft        model.Draft
	Notification *model.Notification
}

// View derives the page data from the current state.
func (c *Controller) View() View {
	v := View{
		State:        c.state,
		Mode:         c.mode,
		Err:          c.err,
		NotFound:     c.NotFound(),
		ID:           c.id,
		Catalog:      c.Categories(),
		Draft:        c.draft,
		Notification: c.notice,
		Creator:      c.creator,
	}
	if c.state != StateReady {
		return v
	}
	v.Title = c.event.Title
	v.Description = c.event.Description
	v.Start = c.format.Format(c.event.StartTime)
	v.End = c.format.Format(c.event.EndTime)
	v.Image = c.event.ImageURL()
	v.Categories = category.ResolveNames(c.event.CategoryIDs, c.categories)
	return v
}
