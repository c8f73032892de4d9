package dialog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/m3rciful/venuebot/core/logger"
	"github.com/m3rciful/venuebot/venues"
	"log/slog"
)

// DefaultPageSize is how many venues one result page carries.
const DefaultPageSize = 5

// MapURLFunc renders a coordinate into a static map image URL.
type MapURLFunc func(lat, lng float64) string

// Options wires the engine's collaborators.
type Options struct {
	Store  Store
	Search venues.Searcher
	MapURL MapURLFunc
	// PageSize overrides DefaultPageSize when positive.
	PageSize int
}

// Engine drives the conversation: it loads the user's session, consumes one
// inbound event, transitions the state machine, and returns the outbound
// prompts. At most one transition per user runs at a time; events for
// different users proceed concurrently.
type Engine struct {
	store    Store
	search   venues.Searcher
	mapURL   MapURLFunc
	pageSize int

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewEngine constructs a dialogue engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("dialog: nil store provided")
	}
	if opts.Search == nil {
		return nil, fmt.Errorf("dialog: nil searcher provided")
	}
	if opts.MapURL == nil {
		return nil, fmt.Errorf("dialog: nil map URL builder provided")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{
		store:    opts.Store,
		search:   opts.Search,
		mapURL:   opts.MapURL,
		pageSize: pageSize,
		locks:    make(map[int64]*sync.Mutex),
	}, nil
}

// userLock serializes transitions per user identity, including the time
// spent waiting on the search collaborator.
func (e *Engine) userLock(userID int64) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// HandleEvent consumes one inbound event and returns the prompts to send.
// A non-nil error reports an internal failure (such as a search provider
// error) that has already been converted into recovery prompts; the returned
// actions must be sent either way.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) ([]Action, error) {
	l := e.userLock(ev.UserID)
	l.Lock()
	defer l.Unlock()

	sess := e.store.Get(ev.UserID)
	logger.Debug(ctx, "dialog", "event.received",
		slog.Int64("user_id", ev.UserID),
		slog.String("kind", string(ev.Kind)),
		slog.String("stage", string(sess.Stage)),
	)

	switch sess.Stage {
	case StageIdle, StageTerminated:
		return e.handleIdle(ctx, ev)
	case StageAwaitingLocation:
		return e.handleAwaitingLocation(ctx, ev)
	case StageAwaitingType:
		return e.handleAwaitingType(ctx, ev, sess)
	case StageAwaitingContinue:
		return e.handleAwaitingContinue(ctx, ev)
	case StageAwaitingNewType:
		return e.handleAwaitingNewType(ctx, ev, sess)
	default:
		// Unknown stage in a stored session; start over rather than stall.
		e.reset(ev.UserID, StageIdle)
		return e.handleIdle(ctx, ev)
	}
}

func (e *Engine) handleIdle(ctx context.Context, ev Event) ([]Action, error) {
	if ev.Kind != EventText {
		return nil, nil
	}
	if !isGreeting(ev.Text) {
		// No question is outstanding: echo back as a diagnostic no-op.
		return []Action{Say{Text: "Echo: " + ev.Text}}, nil
	}

	e.store.Update(ev.UserID, func(s *Session) {
		*s = Session{Stage: StageAwaitingLocation}
	})
	e.logTransition(ctx, ev.UserID, StageAwaitingLocation)
	return []Action{
		Say{Text: textGreeting},
		Ask{Text: textAskLocation, WantLocation: true},
	}, nil
}

func (e *Engine) handleAwaitingLocation(ctx context.Context, ev Event) ([]Action, error) {
	if ev.Kind != EventLocation {
		// Question is still outstanding; repeat it instead of failing.
		return []Action{Ask{Text: textAskLocation, WantLocation: true}}, nil
	}

	e.store.Update(ev.UserID, func(s *Session) {
		s.Coords = &Coords{Lat: ev.Lat, Lng: ev.Lng}
		s.Stage = StageAwaitingType
	})
	e.logTransition(ctx, ev.UserID, StageAwaitingType)
	return []Action{Ask{Text: textAskType, Options: typeOptions}}, nil
}

func (e *Engine) handleAwaitingType(ctx context.Context, ev Event, sess Session) ([]Action, error) {
	if ev.Kind == EventLocation {
		// A fresh coordinate replaces the previous one; the question stands.
		e.store.Update(ev.UserID, func(s *Session) {
			s.Coords = &Coords{Lat: ev.Lat, Lng: ev.Lng}
		})
		return []Action{Ask{Text: textAskType, Options: typeOptions}}, nil
	}
	return e.runSearch(ctx, ev, sess)
}

func (e *Engine) handleAwaitingContinue(ctx context.Context, ev Event) ([]Action, error) {
	if ev.Kind != EventText {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(ev.Text)) {
	case "yes":
		return e.presentPage(ctx, ev.UserID), nil
	case "no":
		e.reset(ev.UserID, StageTerminated)
		e.logTransition(ctx, ev.UserID, StageTerminated)
		return []Action{Say{Text: textFarewell}}, nil
	default:
		// Unrecognized answer: repeat the question, touch nothing.
		return []Action{
			Say{Text: textDontUnderstand},
			Ask{Text: textAskMore, Options: moreOptions},
		}, nil
	}
}

func (e *Engine) handleAwaitingNewType(ctx context.Context, ev Event, sess Session) ([]Action, error) {
	if ev.Kind != EventText {
		return nil, nil
	}
	if isStop(ev.Text) {
		e.reset(ev.UserID, StageTerminated)
		e.logTransition(ctx, ev.UserID, StageTerminated)
		return []Action{Say{Text: textFarewellLater}}, nil
	}
	return e.runSearch(ctx, ev, sess)
}

// runSearch normalizes the type answer, queries the search collaborator with
// the session's coordinates, and presents the first page. The coordinates
// invariant holds here: without one we fall back to asking for the location
// again instead of issuing a search.
func (e *Engine) runSearch(ctx context.Context, ev Event, sess Session) ([]Action, error) {
	if sess.Coords == nil {
		e.store.Update(ev.UserID, func(s *Session) {
			s.Stage = StageAwaitingLocation
		})
		return []Action{Ask{Text: textAskLocation, WantLocation: true}}, nil
	}

	venueType := NormalizeType(ev.Text)
	e.store.Update(ev.UserID, func(s *Session) {
		s.VenueType = venueType
	})

	query := venues.Query{
		Lat:          sess.Coords.Lat,
		Lng:          sess.Coords.Lng,
		CategoryIDs:  categoriesFor(venueType),
		RadiusMeters: venues.RadiusMeters,
		Intent:       venues.IntentBrowse,
		Limit:        venues.ResultLimit,
	}
	results, err := e.search.Search(ctx, query)
	if err != nil {
		// Recoverable: report, keep the coordinates, re-ask for the type.
		logger.Error(ctx, "dialog", "search.failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("venue_type", string(venueType)),
			slog.String("err", err.Error()),
		)
		e.store.Update(ev.UserID, func(s *Session) {
			s.Stage = StageAwaitingType
			s.Results = nil
			s.Page = 0
		})
		return []Action{
			Say{Text: textSearchFailed},
			Ask{Text: textAskType, Options: typeOptions},
		}, fmt.Errorf("dialog: venue search: %w", err)
	}

	e.store.Update(ev.UserID, func(s *Session) {
		s.Results = results
		s.Page = 0
	})
	logger.Info(ctx, "dialog", "search.completed",
		slog.Int64("user_id", ev.UserID),
		slog.String("venue_type", string(venueType)),
		slog.Int("count", len(results)),
	)
	return e.presentPage(ctx, ev.UserID), nil
}

// presentPage delivers the next page of the current result set, or detects
// exhaustion and asks for another category.
func (e *Engine) presentPage(ctx context.Context, userID int64) []Action {
	var (
		actions   []Action
		nextStage Stage
		page      int
	)
	e.store.Update(userID, func(s *Session) {
		offset := s.Page * e.pageSize
		var slice []venues.Venue
		if offset < len(s.Results) {
			end := offset + e.pageSize
			if end > len(s.Results) {
				end = len(s.Results)
			}
			slice = s.Results[offset:end]
		}

		if len(slice) == 0 {
			s.Page = 0
			s.Stage = StageAwaitingNewType
			nextStage = s.Stage
			actions = []Action{Ask{Text: textOutOfResults, Options: newTypeOptions}}
			return
		}

		s.Page++
		s.Stage = StageAwaitingContinue
		nextStage = s.Stage
		page = s.Page

		cards := make([]Card, 0, len(slice))
		for _, v := range slice {
			cards = append(cards, e.renderCard(v))
		}
		actions = []Action{
			Cards{Items: cards},
			Ask{Text: textAskMore, Options: moreOptions},
		}
	})

	logger.Debug(ctx, "dialog", "page.presented",
		slog.Int64("user_id", userID),
		slog.String("stage", string(nextStage)),
		slog.Int("page", page),
	)
	return actions
}

func (e *Engine) renderCard(v venues.Venue) Card {
	return Card{
		Title:        v.Name,
		ImageURL:     e.mapURL(v.Location.Lat, v.Location.Lng),
		Subtitle:     v.Location.Address,
		Link:         v.CanonicalURL(),
		FallbackLink: v.URL,
	}
}

// reset discards the session's coordinates and results, leaving it at stage.
func (e *Engine) reset(userID int64, stage Stage) {
	e.store.Update(userID, func(s *Session) {
		*s = Session{Stage: stage}
	})
}

func (e *Engine) logTransition(ctx context.Context, userID int64, to Stage) {
	logger.Debug(ctx, "dialog", "stage.transition",
		slog.Int64("user_id", userID),
		slog.String("stage", string(to)),
	)
}

// NormalizeType maps a free-text answer to a venue type. Anything that is
// not an exact (case-insensitive) category label becomes TypeBoth; this is
// the documented defaulting policy, not an error path.
func NormalizeType(text string) VenueType {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case string(TypeBurgers):
		return TypeBurgers
	case string(TypeBeer):
		return TypeBeer
	default:
		return TypeBoth
	}
}

func categoriesFor(t VenueType) []string {
	switch t {
	case TypeBurgers:
		return []string{venues.BurgerCategoryID}
	case TypeBeer:
		return []string{venues.BeerCategoryID}
	default:
		return []string{venues.BurgerCategoryID, venues.BeerCategoryID}
	}
}

func isGreeting(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "hi", "hello":
		return true
	}
	return false
}

// isStop recognizes an explicit wish to end the conversation at the
// out-of-results question ("No, later" quick reply included).
func isStop(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	return lowered == "stop" || strings.Contains(lowered, "later")
}
