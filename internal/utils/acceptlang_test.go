package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("de-AT", "en-US,en;q=0.9,de;q=0.8", []string{"en", "de"}, "en")
	if got != "de" {
		t.Fatalf("want de, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "en-US,en;q=0.9,de;q=0.8", []string{"en", "de"}, "en")
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "de;q=0.9,en;q=0.8", []string{"en", "de"}, "en")
	if got != "de" {
		t.Fatalf("want de, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "fr-FR,es;q=0.9", []string{"en", "de"}, "en")
	if got != "en" {
		t.Fatalf("want en fallback, got %s", got)
	}
}

func TestDetermineLocale_GarbageHeader(t *testing.T) {
	got := DetermineLocale("??", ";;;", []string{"en", "de"}, "de")
	if got != "de" {
		t.Fatalf("want de fallback, got %s", got)
	}
}
