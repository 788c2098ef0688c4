package geocode

import (
	"errors"
	"route-tracking-service/internal/domain"
	"testing"
)

func TestGazetteerResolve(t *testing.T) {
	g := NewGazetteer(Options{})

	tests := []struct {
		name string
		in   string
		want domain.Coordinates
	}{
		{"exact", "Seeb", domain.Coordinates{Lat: 23.6741, Lng: 58.1896}},
		{"case and whitespace", "  AL   Khuwair ", domain.Coordinates{Lat: 23.5861, Lng: 58.409}},
		{"filler stripped", "Qurum, Muscat", domain.Coordinates{Lat: 23.6151, Lng: 58.4884}},
		{"filler word only", "Ruwi Muscat", domain.Coordinates{Lat: 23.5921, Lng: 58.5637}},
		{"query contains key", "ruwi high street", domain.Coordinates{Lat: 23.5921, Lng: 58.5637}},
		{"key contains query", "azaiba sou", domain.Coordinates{Lat: 23.5986, Lng: 58.3731}},
		{"school alias", "School", schoolHub},
		{"airport via filler", "Muscat International Airport", domain.Coordinates{Lat: 23.5931, Lng: 58.2844}},
	}

	for _, tt := range tests {
		got, err := g.Resolve(tt.in)
		if err != nil {
			t.Fatalf("%s: Resolve(%q): unexpected error: %v", tt.name, tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%s: Resolve(%q) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestGazetteerSubstringUsesTableOrder(t *testing.T) {
	g := NewGazetteer(Options{})

	// "al hail" precedes "al hail north" and "al hail south".
	got, err := g.Resolve("al hail east")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (domain.Coordinates{Lat: 23.6987, Lng: 58.1834}); got != want {
		t.Fatalf("Resolve = %v, want first table match %v", got, want)
	}
}

func TestGazetteerNotFound(t *testing.T) {
	g := NewGazetteer(Options{})

	for _, in := range []string{"Nizwa Fort", "", "   ", "Muscat"} {
		if _, err := g.Resolve(in); !errors.Is(err, domain.ErrPlaceNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrPlaceNotFound", in, err)
		}
	}
}

func TestGazetteerKeysSurviveFillers(t *testing.T) {
	g := NewGazetteer(Options{})

	// A key made only of filler words could never be looked up.
	for _, p := range knownPlaces {
		if g.normalize(p.key) == "" {
			t.Errorf("table key %q is stripped to nothing by the default fillers", p.key)
		}
	}
}

func TestGazetteerFallbackRotation(t *testing.T) {
	g := NewGazetteer(Options{})
	n := len(fallbackRing)

	if got := g.ResolveWithFallback("Nizwa Fort", 0); got != fallbackRing[0] {
		t.Errorf("fallback 0 = %v, want %v", got, fallbackRing[0])
	}
	if got := g.ResolveWithFallback("Nizwa Fort", n+2); got != fallbackRing[2] {
		t.Errorf("fallback n+2 = %v, want %v", got, fallbackRing[2])
	}
	if got := g.ResolveWithFallback("Nizwa Fort", -1); got != fallbackRing[n-1] {
		t.Errorf("fallback -1 = %v, want %v", got, fallbackRing[n-1])
	}
	// Known names ignore the fallback index.
	if got := g.ResolveWithFallback("seeb", 5); got != (domain.Coordinates{Lat: 23.6741, Lng: 58.1896}) {
		t.Errorf("known name resolved to %v", got)
	}
}

func TestGazetteerResolveMany(t *testing.T) {
	g := NewGazetteer(Options{})

	got := g.ResolveMany([]string{"Seeb", "Unknown Farm", "Other Unknown", "School"})
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[1] != fallbackRing[1] || got[2] != fallbackRing[2] {
		t.Errorf("unresolved names should use their index: %v %v", got[1], got[2])
	}
	if got[3] != schoolHub {
		t.Errorf("School = %v, want %v", got[3], schoolHub)
	}
}

func TestGazetteerOptions(t *testing.T) {
	ring := []domain.Coordinates{{Lat: 1, Lng: 1}}
	g := NewGazetteer(Options{
		Extra: []domain.NamedPlace{
			{Name: "Nizwa Fort", Coordinates: domain.Coordinates{Lat: 22.9333, Lng: 57.5333}},
			{Name: "Seeb", Coordinates: domain.Coordinates{Lat: 0, Lng: 0}},
			{Name: "Broken", Coordinates: domain.Coordinates{Lat: 200, Lng: 0}},
		},
		Fillers:  []string{"oman"},
		Fallback: ring,
	})

	got, err := g.Resolve("Nizwa Fort Oman")
	if err != nil || got.Lat != 22.9333 {
		t.Fatalf("extra place: got %v err %v", got, err)
	}
	if got, _ := g.Resolve("seeb"); got.Lat != 23.6741 {
		t.Errorf("extra rows must not override built-in keys, got %v", got)
	}
	if _, err := g.Resolve("broken"); err == nil {
		t.Errorf("invalid extra coordinates should be skipped")
	}
	if got := g.Fallback(7); got != ring[0] {
		t.Errorf("custom ring not used: %v", got)
	}
	if g.Len() != len(knownPlaces)+1 {
		t.Errorf("Len = %d, want %d", g.Len(), len(knownPlaces)+1)
	}
}
