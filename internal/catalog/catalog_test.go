package catalog

import "testing"

func TestResolve_KnownIdentifiers(t *testing.T) {
	for _, id := range []string{"modern", "professional", "simple", "creative", "executive", "minimalist"} {
		if got := Resolve(id); got != id {
			t.Errorf("Resolve(%q) = %q, want %q", id, got, id)
		}
	}
}

func TestResolve_UnknownFallsBackToModern(t *testing.T) {
	for _, id := range []string{"", "Modern", "fancy", "modern ", "creative; drop table", "🦄"} {
		if got := Resolve(id); got != "modern" {
			t.Errorf("Resolve(%q) = %q, want modern", id, got)
		}
	}
}

func TestTierOf(t *testing.T) {
	free := []string{"modern", "professional", "simple"}
	premium := []string{"creative", "executive", "minimalist"}

	for _, id := range free {
		if TierOf(id) != TierFree {
			t.Errorf("TierOf(%q) should be free", id)
		}
	}
	for _, id := range premium {
		if TierOf(id) != TierPremium {
			t.Errorf("TierOf(%q) should be premium", id)
		}
	}
	// 未知标识降级为默认模板，因此视作免费。
	if TierOf("unknown") != TierFree {
		t.Error("unknown identifiers degrade to the free default template")
	}
}

func TestKnown(t *testing.T) {
	if !Known("executive") {
		t.Error("executive should be known")
	}
	if Known("EXECUTIVE") {
		t.Error("identifiers are case sensitive")
	}
}
