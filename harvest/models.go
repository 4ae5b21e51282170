package harvest

// Property is the canonical record every module downstream of the
// normalization boundary assumes. Zero means the provider did not supply a
// usable value; renderers degrade to "N/A" rather than showing zeros as data.
type Property struct {
	PropertyID   string   `json:"property_id"`
	MLSNumber    string   `json:"mls_number,omitempty"`
	Street       string   `json:"street"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	ListPrice    float64  `json:"list_price"`
	SoldPrice    float64  `json:"sold_price,omitempty"`
	Sqft         float64  `json:"sqft"`
	Beds         float64  `json:"beds"`
	Baths        float64  `json:"baths"`
	DaysOnMarket int      `json:"days_on_market"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Photos       []string `json:"photos"`
	Status       string   `json:"status"`
	PropertyType string   `json:"property_type,omitempty"`
	PropertyURL  string   `json:"property_url,omitempty"`
	ListDate     string   `json:"list_date,omitempty"`
}

// HasValidCoords reports whether the record can be placed on a map.
// (0,0) counts as absent; providers emit it for unlocated listings.
func (p Property) HasValidCoords() bool {
	if p.Latitude == 0 && p.Longitude == 0 {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Address returns the display address, skipping empty components.
func (p Property) Address() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Street, p.City, p.State, p.ZipCode} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	out := ""
	for i, s := range parts {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// Price returns the effective price: sold price when the listing closed,
// list price otherwise.
func (p Property) Price() float64 {
	if p.SoldPrice > 0 {
		return p.SoldPrice
	}
	return p.ListPrice
}

// Thumbnail returns the first photo URL, or empty when the record has none.
func (p Property) Thumbnail() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0]
}
