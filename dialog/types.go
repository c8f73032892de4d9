// Package dialog implements the conversation state machine that drives the
// venue search flow. It is transport-agnostic: inbound messages arrive as
// Events, outbound prompts leave as Actions, and the messaging adapter
// decides how to render them.
package dialog

import "github.com/m3rciful/venuebot/venues"

// Stage identifies the current node of the conversation state machine.
type Stage string

const (
	// StageIdle indicates no active conversation with the user.
	StageIdle Stage = "idle"
	// StageAwaitingLocation waits for the user to share a coordinate.
	StageAwaitingLocation Stage = "awaiting_location"
	// StageAwaitingType waits for a venue category answer.
	StageAwaitingType Stage = "awaiting_type"
	// StageAwaitingContinue waits for a yes/no answer after a result page.
	StageAwaitingContinue Stage = "awaiting_continue"
	// StageAwaitingNewType waits for a new category after result exhaustion.
	StageAwaitingNewType Stage = "awaiting_new_type"
	// StageTerminated marks an explicitly ended conversation; a greeting
	// starts a fresh cycle just like StageIdle.
	StageTerminated Stage = "terminated"
)

// VenueType is a normalized venue category preference.
type VenueType string

const (
	TypeBurgers VenueType = "burgers"
	TypeBeer    VenueType = "beer"
	TypeBoth    VenueType = "both"
)

// Coords is a latitude/longitude pair supplied by the user.
type Coords struct {
	Lat float64
	Lng float64
}

// Session holds one user's conversation progress. Results and Page are only
// meaningful while the stage is in the result-delivery part of the flow.
type Session struct {
	Stage     Stage
	Coords    *Coords
	VenueType VenueType
	Results   []venues.Venue
	Page      int
}

// EventKind distinguishes inbound event payloads.
type EventKind string

const (
	// EventText carries a raw text message.
	EventText EventKind = "text"
	// EventLocation carries a shared coordinate.
	EventLocation EventKind = "location"
)

// Event is a single inbound message tagged with the user identity.
type Event struct {
	UserID int64
	Kind   EventKind
	Text   string
	Lat    float64
	Lng    float64
}

// Action is an outbound instruction for the messaging adapter.
type Action interface {
	action()
}

// Say is a plain text message.
type Say struct {
	Text string
}

// Ask is a question with quick-reply options. WantLocation requests the
// transport's location share control instead of text options.
type Ask struct {
	Text         string
	Options      []string
	WantLocation bool
}

// Card is one presentational venue result.
type Card struct {
	Title        string
	ImageURL     string
	Subtitle     string
	Link         string
	FallbackLink string
}

// Cards is a batch of venue results delivered as one outbound message.
type Cards struct {
	Items []Card
}

func (Say) action()   {}
func (Ask) action()   {}
func (Cards) action() {}
