package venues

const staticMapsBase = "https://maps.googleapis.com/maps/api/staticmap"

// StaticMapBuilder formats Google Static Maps image URLs for result cards.
// The zero value produces unkeyed URLs.
type StaticMapBuilder struct {
	APIKey string
}

// URL returns a roadmap image centered on the coordinate with a single
// blue marker at the same point.
func (b StaticMapBuilder) URL(lat, lng float64) string {
	coord := formatLL(lat, lng)
	u := staticMapsBase +
		"?center=" + coord +
		"&zoom=13&size=600x300&maptype=roadmap" +
		"&markers=color:blue:A%7C" + coord
	if b.APIKey != "" {
		u += "&key=" + b.APIKey
	}
	return u
}
