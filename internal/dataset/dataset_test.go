package dataset

import (
	"testing"

	"github.com/yourorg/flipdash/harvest"
)

func TestReplaceWholesale(t *testing.T) {
	s := New()
	s.Replace("32801", []harvest.Property{{PropertyID: "a"}, {PropertyID: "b"}})
	s.Replace("32803", []harvest.Property{{PropertyID: "c"}})

	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if s.Contains("a") {
		t.Fatal("property from previous set still resolves")
	}
	if !s.Contains("c") {
		t.Fatal("property from current set missing")
	}
	if s.Zip() != "32803" {
		t.Fatalf("zip = %q, want 32803", s.Zip())
	}
}

func TestFindByAddressFallback(t *testing.T) {
	s := New()
	s.Replace("32801", []harvest.Property{{
		PropertyID: "mls-1",
		Street:     "123 Main Street",
		City:       "Orlando",
		State:      "FL",
		ZipCode:    "32801",
	}})

	p, ok := s.Find("123_Main_St_Orlando_FL_32801")
	if !ok {
		t.Fatal("address-derived id did not resolve")
	}
	if p.PropertyID != "mls-1" {
		t.Fatalf("resolved %q, want mls-1", p.PropertyID)
	}
	if _, ok := s.Find("456_elm_st_orlando_fl_32801"); ok {
		t.Fatal("unknown address id resolved")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s := New()
	s.Replace("32801", []harvest.Property{{PropertyID: "a", ListPrice: 100}})
	got := s.All()
	got[0].ListPrice = 999
	if p, _ := s.Find("a"); p.ListPrice != 100 {
		t.Fatal("mutation through All leaked into the set")
	}
}
