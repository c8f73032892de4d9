// Package venues wraps the Foursquare venue search API and the static map
// image collaborator used to illustrate results.
package venues

// Foursquare category identifiers and search parameters used by the bot.
// These are fixed configuration constants, not runtime-negotiable.
const (
	BurgerCategoryID = "4bf58dd8d48988d16c941735"
	BeerCategoryID   = "50327c8591d4c4b30a586d5d"

	// RadiusMeters bounds the search around the user's coordinate.
	RadiusMeters = 15000
	// ResultLimit caps how many venues a single search may return.
	ResultLimit = 50
	// IntentBrowse asks Foursquare for venues within the radius rather
	// than results biased towards check-in likelihood.
	IntentBrowse = "browse"
)

// Location is a venue coordinate with a human-readable address.
type Location struct {
	Lat     float64
	Lng     float64
	Address string
}

// Venue is a single read-only search result.
type Venue struct {
	ID       string
	Name     string
	URL      string
	Location Location
}

// CanonicalURL returns the venue's page on foursquare.com.
func (v Venue) CanonicalURL() string {
	return "https://foursquare.com/v/" + v.ID
}
