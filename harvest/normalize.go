package harvest

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexNumber accepts a JSON number, a formatted string ("$1,234,567"), or
// null, and stores the coerced float. Unparseable input coerces to zero.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexNumber(parseFormattedNumber(s))
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

// flexString accepts a JSON string or number and stores its textual form.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

// photoList accepts an array of URLs, a bare URL string, or a comma-joined
// string of URLs.
type photoList []string

func (p *photoList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = nil
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var arr []string
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*p = photoList(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	out := make([]string, 0, 4)
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	*p = photoList(out)
	return nil
}

// parseFormattedNumber strips currency/grouping characters before parsing.
// Returns 0 for anything non-numeric.
func parseFormattedNumber(s string) float64 {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.NewReplacer("$", "", ",", "", "_", "", " ", "").Replace(cleaned)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// rawListing tolerates every alias the known producers emit. The struct is
// the only place in the repo that knows about them.
type rawListing struct {
	PropertyID   flexString `json:"property_id"`
	ID           flexString `json:"id"`
	MLSNumber    flexString `json:"mls_number"`
	Street       flexString `json:"street"`
	City         flexString `json:"city"`
	State        flexString `json:"state"`
	ZipCode      flexString `json:"zip_code"`
	ListPrice    flexNumber `json:"list_price"`
	SoldPrice    flexNumber `json:"sold_price"`
	Sqft         flexNumber `json:"sqft"`
	Beds         flexNumber `json:"beds"`
	Baths        flexNumber `json:"baths"`
	FullBaths    flexNumber `json:"full_baths"`
	DaysOnMarket flexNumber `json:"days_on_market"`
	DaysOnMLS    flexNumber `json:"days_on_mls"`
	Latitude     flexNumber `json:"latitude"`
	Lat          flexNumber `json:"lat"`
	Longitude    flexNumber `json:"longitude"`
	Lng          flexNumber `json:"lng"`
	Photos       photoList  `json:"photos"`
	PrimaryPhoto flexString `json:"primary_photo"`
	AltPhotos    photoList  `json:"alt_photos"`
	Status       flexString `json:"status"`
	PropertyType flexString `json:"property_type"`
	PropertyURL  flexString `json:"property_url"`
	ListDate     flexString `json:"list_date"`
}

func (r rawListing) toProperty() Property {
	baths := float64(r.Baths)
	if baths == 0 {
		baths = float64(r.FullBaths)
	}
	dom := int(r.DaysOnMarket)
	if dom == 0 {
		dom = int(r.DaysOnMLS)
	}
	lat := float64(r.Latitude)
	if lat == 0 {
		lat = float64(r.Lat)
	}
	lng := float64(r.Longitude)
	if lng == 0 {
		lng = float64(r.Lng)
	}

	photos := make([]string, 0, 1+len(r.Photos)+len(r.AltPhotos))
	if string(r.PrimaryPhoto) != "" {
		photos = append(photos, string(r.PrimaryPhoto))
	}
	photos = append(photos, r.Photos...)
	photos = append(photos, r.AltPhotos...)
	photos = filterPhotoURLs(photos)

	id := firstNonEmpty(string(r.PropertyID), string(r.ID), string(r.MLSNumber))

	return Property{
		PropertyID:   id,
		MLSNumber:    string(r.MLSNumber),
		Street:       string(r.Street),
		City:         string(r.City),
		State:        strings.ToUpper(strings.TrimSpace(string(r.State))),
		ZipCode:      string(r.ZipCode),
		ListPrice:    float64(r.ListPrice),
		SoldPrice:    float64(r.SoldPrice),
		Sqft:         float64(r.Sqft),
		Beds:         float64(r.Beds),
		Baths:        baths,
		DaysOnMarket: maxInt(dom, 0),
		Latitude:     lat,
		Longitude:    lng,
		Photos:       photos,
		Status:       strings.ToUpper(strings.TrimSpace(string(r.Status))),
		PropertyType: string(r.PropertyType),
		PropertyURL:  validHTTPURL(string(r.PropertyURL)),
		ListDate:     string(r.ListDate),
	}
}

var landTypes = map[string]struct{}{
	"land": {}, "lot": {}, "vacant land": {},
}

// NormalizeRecords maps a slice of raw provider records to canonical
// Properties. Records without a usable identifier and land/lot records are
// dropped; everything else passes through with defaults applied.
func NormalizeRecords(raw []json.RawMessage) []Property {
	out := make([]Property, 0, len(raw))
	for _, msg := range raw {
		var rl rawListing
		if err := json.Unmarshal(msg, &rl); err != nil {
			continue
		}
		p := rl.toProperty()
		if p.PropertyID == "" {
			continue
		}
		if _, land := landTypes[strings.ToLower(p.PropertyType)]; land {
			continue
		}
		out = append(out, p)
	}
	return out
}

// NormalizePayload decodes a provider search payload and normalizes its
// records. The payload carries either {"properties": [...]} or a bare array.
func NormalizePayload(raw []byte) ([]Property, error) {
	var root struct {
		Properties []json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &root); err == nil && root.Properties != nil {
		return NormalizeRecords(root.Properties), nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, err
	}
	return NormalizeRecords(arr), nil
}

// NormalizeOne normalizes a single raw record, for callers holding a
// property attribute bag rather than a search payload.
func NormalizeOne(raw []byte) (Property, error) {
	var rl rawListing
	if err := json.Unmarshal(raw, &rl); err != nil {
		return Property{}, err
	}
	return rl.toProperty(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func maxInt(v, def int) int {
	if v > def {
		return v
	}
	return def
}
