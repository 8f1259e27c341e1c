package universe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"BreadthSentinel/internal/model"

	"go.uber.org/zap"
)

const nifty50CSV = `Company Name,Industry,Symbol,Series,ISIN Code
Reliance Industries Ltd.,Oil Gas & Consumable Fuels,RELIANCE,EQ,INE002A01018
Tata Consultancy Services Ltd.,Information Technology,TCS,EQ,INE467B01029
Infosys Ltd.,Information Technology,INFY,EQ,INE009A01021
Infosys Ltd.,Information Technology,INFY,EQ,INE009A01021
`

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Nifty 500":                "nifty-500",
		"Defence & Aerospace":      "defence-and-aerospace",
		"NIFTY FINANCIAL SERVICES": "nifty-financial-services",
		"Jewellery (Gold)":         "jewellery-gold",
		"  Two & Three Wheelers  ": "two-and-three-wheelers",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if n := len(c.Themes()); n != 44 {
		t.Errorf("expected 44 themes, got %d", n)
	}
	if n := len(c.All()); n != len(nseIndices)+44 {
		t.Errorf("expected %d indices, got %d", len(nseIndices)+44, n)
	}

	for _, name := range []string{"Nifty 500", "nifty 500", "nifty-500"} {
		idx, err := c.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %q: %v", name, err)
		}
		if idx.Source != model.SourceNSE || idx.ListFile != "ind_nifty500list.csv" {
			t.Errorf("lookup %q: unexpected index %+v", name, idx)
		}
	}

	theme, err := c.Lookup("Defence & Aerospace")
	if err != nil {
		t.Fatalf("lookup theme: %v", err)
	}
	if theme.Source != model.SourceTheme || len(theme.Symbols) != 13 {
		t.Errorf("unexpected theme %+v", theme)
	}
	if theme.File != "theme_defence_and_aerospace.csv" {
		t.Errorf("unexpected theme file %q", theme.File)
	}

	if _, err := c.Lookup("Nifty 9000"); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("expected ErrUnknownIndex, got %v", err)
	}
	if _, err := c.Resolve([]string{"Nifty 50", "bogus"}); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("expected Resolve to fail on unknown index, got %v", err)
	}
}

func TestParseConstituents(t *testing.T) {
	got, err := parseConstituents([]byte(nifty50CSV), ".NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if _, err := parseConstituents([]byte("Name,ISIN\nfoo,bar\n"), ".NS"); err == nil {
		t.Error("expected error when Symbol column is missing")
	}
}

func TestResolver_NSEList(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path != "/ind_nifty50list.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(nifty50CSV))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, "", zap.NewNop())
	syms, err := r.Symbols(context.Background(), model.Index{
		Name: "Nifty 50", Source: model.SourceNSE, ListFile: "ind_nifty50list.csv",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syms) != 3 || syms[0] != "RELIANCE.NS" {
		t.Errorf("unexpected symbols %v", syms)
	}
	if gotUA != browserUA {
		t.Errorf("expected browser user agent, got %q", gotUA)
	}

	if _, err := r.Symbols(context.Background(), model.Index{
		Name: "Missing", Source: model.SourceNSE, ListFile: "nope.csv",
	}); err == nil {
		t.Error("expected error for 404 list")
	}
}

func TestResolver_Theme(t *testing.T) {
	r := NewResolver("http://127.0.0.1:1", "", zap.NewNop())
	syms, err := r.Symbols(context.Background(), model.Index{
		Name: "Copper", Source: model.SourceTheme, Symbols: []string{"VEDL.NS", "VEDL.NS", "HINDCOPPER.NS"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syms) != 2 {
		t.Errorf("expected duplicates removed, got %v", syms)
	}
}
