// Package canon normalizes postal addresses into stable keys. Listing feeds
// disagree on casing, punctuation, and suffix spelling for the same parcel;
// every identity derived from an address goes through here.
package canon

import (
	"regexp"
	"strings"
)

var rePunct = regexp.MustCompile(`[^A-Za-z0-9\s]`)

// suffixRepl is basic USPS-style street suffix normalization.
var suffixRepl = []string{
	" STREET", " ST",
	" ROAD", " RD",
	" AVENUE", " AVE",
	" BOULEVARD", " BLVD",
	" DRIVE", " DR",
	" LANE", " LN",
	" COURT", " CT",
	" CIRCLE", " CIR",
	" TERRACE", " TER",
	" PLACE", " PL",
	" PARKWAY", " PKWY",
	" HIGHWAY", " HWY",
}

var suffixer = strings.NewReplacer(suffixRepl...)

// Canonicalize normalizes an address and computes a stable property key.
// Unit and suite designators are dropped to stabilize identity per parcel.
func Canonicalize(street, city, state, zip string) (normStreet, normCity, normState, normZip, propertyKey string) {
	s := strings.TrimSpace(strings.ToUpper(street))
	s = stripUnit(s)
	s = rePunct.ReplaceAllString(s, " ")
	s = suffixer.Replace(s)
	s = collapseSpaces(s)

	c := collapseSpaces(rePunct.ReplaceAllString(strings.ToUpper(strings.TrimSpace(city)), " "))
	st := strings.ToUpper(strings.TrimSpace(state))
	if len(st) > 2 {
		st = stateAbbrev(st)
	}
	z := trimZIP(zip)

	key := strings.ToLower(s + "|" + c + "|" + st + "|" + z)
	return s, c, st, z, key
}

// AddressID builds the underscore-joined identifier some feeds use in place
// of a real property id. Lookups by such ids must match regardless of how
// the source spelled the address.
func AddressID(street, city, state, zip string) string {
	s, c, st, z, _ := Canonicalize(street, city, state, zip)
	parts := make([]string, 0, 4)
	for _, p := range []string{s, c, st, z} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(strings.Join(parts, " ")), "_"))
}

// NormalizeID canonicalizes an externally supplied underscore id so it can
// be compared against AddressID output.
func NormalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.ReplaceAll(id, " ", "_")
	for strings.Contains(id, "__") {
		id = strings.ReplaceAll(id, "__", "_")
	}
	return strings.Trim(id, "_")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trimZIP(z string) string {
	z = strings.TrimSpace(z)
	if len(z) >= 5 {
		return z[:5]
	}
	return z
}

// stripUnit removes trailing unit designators like APT, UNIT, STE, #.
func stripUnit(s string) string {
	up := " " + s + " "
	for _, t := range []string{" APT ", " UNIT ", " STE ", " SUITE ", " #"} {
		if i := strings.Index(up, t); i >= 0 {
			return strings.TrimSpace(up[:i])
		}
	}
	return strings.TrimSpace(s)
}

var stateNames = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR", "CALIFORNIA": "CA",
	"COLORADO": "CO", "CONNECTICUT": "CT", "DELAWARE": "DE", "FLORIDA": "FL", "GEORGIA": "GA",
	"HAWAII": "HI", "IDAHO": "ID", "ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA",
	"KANSAS": "KS", "KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD",
	"MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS", "MISSOURI": "MO",
	"MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV", "NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ",
	"NEW MEXICO": "NM", "NEW YORK": "NY", "NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH",
	"OKLAHOMA": "OK", "OREGON": "OR", "PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC",
	"SOUTH DAKOTA": "SD", "TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT", "VERMONT": "VT",
	"VIRGINIA": "VA", "WASHINGTON": "WA", "WEST VIRGINIA": "WV", "WISCONSIN": "WI", "WYOMING": "WY",
}

func stateAbbrev(s string) string {
	if v, ok := stateNames[s]; ok {
		return v
	}
	return s
}
