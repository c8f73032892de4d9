package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/venuebot/venues"
)

type fakeSearcher struct {
	results []venues.Venue
	err     error

	calls   int
	lastCtx context.Context
	lastQ   venues.Query
}

func (f *fakeSearcher) Search(ctx context.Context, q venues.Query) ([]venues.Venue, error) {
	f.calls++
	f.lastCtx = ctx
	f.lastQ = q
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func makeVenues(n int) []venues.Venue {
	out := make([]venues.Venue, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, venues.Venue{
			ID:   fmt.Sprintf("venue-%d", i),
			Name: fmt.Sprintf("Place %d", i),
			Location: venues.Location{
				Lat:     40.0 + float64(i)/100,
				Lng:     -70.0 - float64(i)/100,
				Address: fmt.Sprintf("%d Main St", i),
			},
		})
	}
	return out
}

func testMapURL(lat, lng float64) string {
	return fmt.Sprintf("map://%.2f,%.2f", lat, lng)
}

func newTestEngine(t *testing.T, search venues.Searcher) *Engine {
	t.Helper()
	e, err := NewEngine(Options{
		Store:  NewMemoryStore(),
		Search: search,
		MapURL: testMapURL,
	})
	require.NoError(t, err)
	return e
}

func textEvent(userID int64, text string) Event {
	return Event{UserID: userID, Kind: EventText, Text: text}
}

func locationEvent(userID int64, lat, lng float64) Event {
	return Event{UserID: userID, Kind: EventLocation, Lat: lat, Lng: lng}
}

func handle(t *testing.T, e *Engine, ev Event) []Action {
	t.Helper()
	actions, err := e.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	return actions
}

func cardTitles(t *testing.T, a Action) []string {
	t.Helper()
	cards, ok := a.(Cards)
	require.True(t, ok, "expected Cards, got %T", a)
	titles := make([]string, 0, len(cards.Items))
	for _, c := range cards.Items {
		titles = append(titles, c.Title)
	}
	return titles
}

func TestNewEngineValidatesCollaborators(t *testing.T) {
	store := NewMemoryStore()
	search := &fakeSearcher{}

	_, err := NewEngine(Options{Search: search, MapURL: testMapURL})
	assert.Error(t, err)
	_, err = NewEngine(Options{Store: store, MapURL: testMapURL})
	assert.Error(t, err)
	_, err = NewEngine(Options{Store: store, Search: search})
	assert.Error(t, err)

	e, err := NewEngine(Options{Store: store, Search: search, MapURL: testMapURL})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, e.pageSize)
}

func TestFullConversationFlow(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(7)}
	e := newTestEngine(t, search)
	const user = int64(42)

	// Greeting starts the flow and asks for a location.
	actions := handle(t, e, textEvent(user, "Hi"))
	require.Len(t, actions, 2)
	assert.Equal(t, Say{Text: textGreeting}, actions[0])
	ask, ok := actions[1].(Ask)
	require.True(t, ok)
	assert.Equal(t, textAskLocation, ask.Text)
	assert.True(t, ask.WantLocation)

	// Sharing a location moves on to the venue type question.
	actions = handle(t, e, locationEvent(user, 40.7, -74.0))
	require.Len(t, actions, 1)
	ask, ok = actions[0].(Ask)
	require.True(t, ok)
	assert.Equal(t, textAskType, ask.Text)
	assert.Equal(t, typeOptions, ask.Options)

	// Answering the type triggers exactly one search with the stored coords.
	actions = handle(t, e, textEvent(user, "Burgers"))
	require.Equal(t, 1, search.calls)
	assert.Equal(t, 40.7, search.lastQ.Lat)
	assert.Equal(t, -74.0, search.lastQ.Lng)
	assert.Equal(t, []string{venues.BurgerCategoryID}, search.lastQ.CategoryIDs)
	assert.Equal(t, venues.RadiusMeters, search.lastQ.RadiusMeters)
	assert.Equal(t, venues.IntentBrowse, search.lastQ.Intent)
	assert.Equal(t, venues.ResultLimit, search.lastQ.Limit)

	// First page: five cards plus the continue question.
	require.Len(t, actions, 2)
	assert.Equal(t,
		[]string{"Place 0", "Place 1", "Place 2", "Place 3", "Place 4"},
		cardTitles(t, actions[0]))
	ask, ok = actions[1].(Ask)
	require.True(t, ok)
	assert.Equal(t, textAskMore, ask.Text)
	assert.Equal(t, moreOptions, ask.Options)

	// Second page holds the remaining two venues.
	actions = handle(t, e, textEvent(user, "Yes"))
	require.Len(t, actions, 2)
	assert.Equal(t, []string{"Place 5", "Place 6"}, cardTitles(t, actions[0]))

	// A third request exhausts the list and offers a new category.
	actions = handle(t, e, textEvent(user, "yes"))
	require.Len(t, actions, 1)
	ask, ok = actions[0].(Ask)
	require.True(t, ok)
	assert.Equal(t, textOutOfResults, ask.Text)
	assert.Equal(t, newTypeOptions, ask.Options)

	// "No, later" ends the conversation.
	actions = handle(t, e, textEvent(user, "No, later"))
	require.Len(t, actions, 1)
	assert.Equal(t, Say{Text: textFarewellLater}, actions[0])

	// After ending, a greeting starts over from the location question.
	actions = handle(t, e, textEvent(user, "hello"))
	require.Len(t, actions, 2)
	assert.Equal(t, Say{Text: textGreeting}, actions[0])
}

func TestIdleEchoesUnrecognizedText(t *testing.T) {
	e := newTestEngine(t, &fakeSearcher{})
	actions := handle(t, e, textEvent(1, "what is this"))
	require.Len(t, actions, 1)
	assert.Equal(t, Say{Text: "Echo: what is this"}, actions[0])
}

func TestIdleIgnoresLocation(t *testing.T) {
	search := &fakeSearcher{}
	e := newTestEngine(t, search)
	actions := handle(t, e, locationEvent(1, 40.7, -74.0))
	assert.Empty(t, actions)
	assert.Zero(t, search.calls)
}

func TestTextWhileAwaitingLocationReprompts(t *testing.T) {
	search := &fakeSearcher{}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))

	actions := handle(t, e, textEvent(1, "somewhere downtown"))
	require.Len(t, actions, 1)
	ask, ok := actions[0].(Ask)
	require.True(t, ok)
	assert.Equal(t, textAskLocation, ask.Text)
	assert.True(t, ask.WantLocation)
	assert.Zero(t, search.calls, "no search may run before a location arrives")

	// The session still accepts a location afterwards.
	actions = handle(t, e, locationEvent(1, 40.7, -74.0))
	require.Len(t, actions, 1)
	assert.Equal(t, textAskType, actions[0].(Ask).Text)
}

func TestLocationWhileAwaitingTypeReplacesCoords(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(1)}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))

	actions := handle(t, e, locationEvent(1, 51.5, -0.1))
	require.Len(t, actions, 1)
	assert.Equal(t, textAskType, actions[0].(Ask).Text)

	handle(t, e, textEvent(1, "Beer"))
	require.Equal(t, 1, search.calls)
	assert.Equal(t, 51.5, search.lastQ.Lat)
	assert.Equal(t, -0.1, search.lastQ.Lng)
	assert.Equal(t, []string{venues.BeerCategoryID}, search.lastQ.CategoryIDs)
}

func TestUnknownTypeSearchesBoth(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(1)}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))
	handle(t, e, textEvent(1, "tacos"))

	require.Equal(t, 1, search.calls)
	assert.Equal(t,
		[]string{venues.BurgerCategoryID, venues.BeerCategoryID},
		search.lastQ.CategoryIDs)
}

func TestNormalizeType(t *testing.T) {
	cases := []struct {
		in   string
		want VenueType
	}{
		{"Burgers", TypeBurgers},
		{"burgers", TypeBurgers},
		{"  BEER  ", TypeBeer},
		{"Both", TypeBoth},
		{"tacos", TypeBoth},
		{"", TypeBoth},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeType(tc.in), "input %q", tc.in)
	}
	// Normalizing a normalized value is a no-op.
	for _, vt := range []VenueType{TypeBurgers, TypeBeer, TypeBoth} {
		assert.Equal(t, vt, NormalizeType(string(vt)))
	}
}

func TestPaginationCoversAllResultsInOrder(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(12)}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))

	var seen []string
	actions := handle(t, e, textEvent(1, "Burgers"))
	for {
		if len(actions) == 1 {
			// Out of results.
			assert.Equal(t, textOutOfResults, actions[0].(Ask).Text)
			break
		}
		titles := cardTitles(t, actions[0])
		require.NotEmpty(t, titles)
		require.LessOrEqual(t, len(titles), DefaultPageSize)
		seen = append(seen, titles...)
		actions = handle(t, e, textEvent(1, "Yes"))
	}

	want := make([]string, 0, 12)
	for _, v := range search.results {
		want = append(want, v.Name)
	}
	assert.Equal(t, want, seen, "pages concatenated must equal the full list")
}

func TestEmptyResultsAsksForAnotherType(t *testing.T) {
	search := &fakeSearcher{}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))

	actions := handle(t, e, textEvent(1, "Burgers"))
	require.Len(t, actions, 1)
	assert.Equal(t, textOutOfResults, actions[0].(Ask).Text)

	// Picking another type searches again with the same coordinates.
	search.results = makeVenues(2)
	actions = handle(t, e, textEvent(1, "Beer"))
	require.Equal(t, 2, search.calls)
	assert.Equal(t, 40.7, search.lastQ.Lat)
	require.Len(t, actions, 2)
	assert.Equal(t, []string{"Place 0", "Place 1"}, cardTitles(t, actions[0]))
}

func TestUnrecognizedContinueAnswerKeepsPosition(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(7)}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))
	handle(t, e, textEvent(1, "Burgers"))

	actions := handle(t, e, textEvent(1, "maybe tomorrow"))
	require.Len(t, actions, 2)
	assert.Equal(t, Say{Text: textDontUnderstand}, actions[0])
	assert.Equal(t, textAskMore, actions[1].(Ask).Text)

	// A later "yes" still delivers the second page, not the third.
	actions = handle(t, e, textEvent(1, "yes"))
	assert.Equal(t, []string{"Place 5", "Place 6"}, cardTitles(t, actions[0]))
}

func TestNoEndsConversation(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(7)}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))
	handle(t, e, textEvent(1, "Burgers"))

	actions := handle(t, e, textEvent(1, "No"))
	require.Len(t, actions, 1)
	assert.Equal(t, Say{Text: textFarewell}, actions[0])

	// The session is back at the start: plain text echoes again.
	actions = handle(t, e, textEvent(1, "Burgers"))
	require.Len(t, actions, 1)
	assert.Equal(t, Say{Text: "Echo: Burgers"}, actions[0])
}

func TestSearchFailureIsRecoverable(t *testing.T) {
	search := &fakeSearcher{err: errors.New("upstream down")}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))

	actions, err := e.HandleEvent(context.Background(), textEvent(1, "Burgers"))
	require.Error(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, Say{Text: textSearchFailed}, actions[0])
	assert.Equal(t, textAskType, actions[1].(Ask).Text)

	// The coordinates survive the failure; the next answer searches again.
	search.err = nil
	search.results = makeVenues(1)
	actions = handle(t, e, textEvent(1, "Beer"))
	require.Equal(t, 2, search.calls)
	assert.Equal(t, 40.7, search.lastQ.Lat)
	require.Len(t, actions, 2)
}

func TestStopWordEndsAtOutOfResults(t *testing.T) {
	search := &fakeSearcher{}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))
	handle(t, e, textEvent(1, "Burgers"))

	actions := handle(t, e, textEvent(1, "Nah, maybe LATER"))
	require.Len(t, actions, 1)
	assert.Equal(t, Say{Text: textFarewellLater}, actions[0])
}

func TestCardRendering(t *testing.T) {
	search := &fakeSearcher{results: []venues.Venue{
		{
			ID:   "abc123",
			Name: "Burger Joint",
			URL:  "https://burgerjoint.example",
			Location: venues.Location{
				Lat:     40.70,
				Lng:     -74.00,
				Address: "1 Main St",
			},
		},
	}}
	e := newTestEngine(t, search)
	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))
	actions := handle(t, e, textEvent(1, "Burgers"))

	cards, ok := actions[0].(Cards)
	require.True(t, ok)
	require.Len(t, cards.Items, 1)
	card := cards.Items[0]
	assert.Equal(t, "Burger Joint", card.Title)
	assert.Equal(t, "1 Main St", card.Subtitle)
	assert.Equal(t, "map://40.70,-74.00", card.ImageURL)
	assert.Equal(t, "https://foursquare.com/v/abc123", card.Link)
	assert.Equal(t, "https://burgerjoint.example", card.FallbackLink)
}

func TestSessionsAreIsolated(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(3)}
	e := newTestEngine(t, search)

	handle(t, e, textEvent(1, "hi"))
	// User 2 is still idle while user 1 is mid-conversation.
	actions := handle(t, e, textEvent(2, "Burgers"))
	require.Len(t, actions, 1)
	assert.Equal(t, Say{Text: "Echo: Burgers"}, actions[0])

	// User 1's flow is unaffected.
	actions = handle(t, e, locationEvent(1, 40.7, -74.0))
	require.Len(t, actions, 1)
	assert.Equal(t, textAskType, actions[0].(Ask).Text)
}

func TestCustomPageSize(t *testing.T) {
	search := &fakeSearcher{results: makeVenues(5)}
	e, err := NewEngine(Options{
		Store:    NewMemoryStore(),
		Search:   search,
		MapURL:   testMapURL,
		PageSize: 2,
	})
	require.NoError(t, err)

	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))
	actions := handle(t, e, textEvent(1, "Burgers"))
	assert.Len(t, cardTitles(t, actions[0]), 2)
	actions = handle(t, e, textEvent(1, "yes"))
	assert.Len(t, cardTitles(t, actions[0]), 2)
	actions = handle(t, e, textEvent(1, "yes"))
	assert.Len(t, cardTitles(t, actions[0]), 1)
}

// slowSearcher holds each search open for a while and records how many
// searches overlap, so tests can observe whether transitions serialize.
type slowSearcher struct {
	results []venues.Venue
	delay   time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	queries     []venues.Query
}

func (s *slowSearcher) Search(_ context.Context, q venues.Query) ([]venues.Venue, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return s.results, nil
}

func TestConcurrentEventsForOneUserSerialize(t *testing.T) {
	search := &slowSearcher{results: makeVenues(3), delay: 20 * time.Millisecond}
	e := newTestEngine(t, search)

	handle(t, e, textEvent(1, "hi"))
	handle(t, e, locationEvent(1, 40.7, -74.0))

	// All goroutines race from the awaiting-type stage. Exactly one of
	// them should win the search; the rest must observe the stage it left
	// behind instead of firing their own searches against a half-written
	// session.
	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.HandleEvent(context.Background(), textEvent(1, "burger"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, search.maxInFlight, "searches for one user must never overlap")
	require.NotEmpty(t, search.queries)
	for _, q := range search.queries {
		assert.Equal(t, 40.7, q.Lat)
		assert.Equal(t, -74.0, q.Lng)
	}

	sess := e.store.Get(1)
	assert.Equal(t, StageAwaitingContinue, sess.Stage)
	assert.Equal(t, 1, sess.Page)
}
