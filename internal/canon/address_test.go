package canon

import "testing"

func TestCanonicalizeStableAcrossSpellings(t *testing.T) {
	_, _, _, _, a := Canonicalize("123 Main Street, Apt 4", "Orlando", "Florida", "32801-1234")
	_, _, _, _, b := Canonicalize("123 MAIN ST", "orlando", "FL", "32801")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
}

func TestAddressID(t *testing.T) {
	id := AddressID("123 Main Street", "Orlando", "FL", "32801")
	if id != "123_main_st_orlando_fl_32801" {
		t.Fatalf("id = %q", id)
	}
}

func TestNormalizeID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"123 Main St Orlando", "123_main_st_orlando"},
		{"123__Main__St", "123_main_st"},
		{"_leading_trailing_", "leading_trailing"},
	}
	for _, c := range cases {
		if got := NormalizeID(c.in); got != c.want {
			t.Fatalf("NormalizeID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
