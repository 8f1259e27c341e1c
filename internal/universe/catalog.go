package universe

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"BreadthSentinel/internal/model"

	"gopkg.in/yaml.v3"
)

// ErrUnknownIndex is returned when a name matches neither a catalog index nor a theme.
var ErrUnknownIndex = errors.New("unknown index")

//go:embed themes.yaml
var themesYAML []byte

// nseIndices maps index names to NSE constituent list files and Yahoo benchmarks.
var nseIndices = []model.Index{
	{Name: "Nifty 50", ListFile: "ind_nifty50list.csv", Benchmark: "^NSEI", File: "market_breadth_nifty50.csv"},
	{Name: "Nifty 500", ListFile: "ind_nifty500list.csv", Benchmark: "^CRSLDX", File: "market_breadth_nifty500.csv"},
	{Name: "Nifty Smallcap 250", ListFile: "ind_niftysmallcap250list.csv", File: "market_breadth_smallcap.csv"},
	{Name: "NIFTY AUTO", ListFile: "ind_niftyautolist.csv", Benchmark: "^CNXAUTO", File: "breadth_auto.csv"},
	{Name: "NIFTY BANK", ListFile: "ind_niftybanklist.csv", Benchmark: "^NSEBANK", File: "breadth_bank.csv"},
	{Name: "NIFTY FINANCIAL SERVICES", ListFile: "ind_niftyfinancelist.csv", Benchmark: "NIFTY_FIN_SERVICE.NS", File: "breadth_finance.csv"},
	{Name: "NIFTY FMCG", ListFile: "ind_niftyfmcglist.csv", Benchmark: "^CNXFMCG", File: "breadth_fmcg.csv"},
	{Name: "NIFTY HEALTHCARE", ListFile: "ind_niftyhealthcarelist.csv", File: "breadth_healthcare.csv"},
	{Name: "NIFTY IT", ListFile: "ind_niftyitlist.csv", Benchmark: "^CNXIT", File: "breadth_it.csv"},
	{Name: "NIFTY MEDIA", ListFile: "ind_niftymedialist.csv", Benchmark: "^CNXMEDIA", File: "breadth_media.csv"},
	{Name: "NIFTY METAL", ListFile: "ind_niftymetallist.csv", Benchmark: "^CNXMETAL", File: "breadth_metal.csv"},
	{Name: "NIFTY PHARMA", ListFile: "ind_niftypharmalist.csv", Benchmark: "^CNXPHARMA", File: "breadth_pharma.csv"},
	{Name: "NIFTY PRIVATE BANK", ListFile: "ind_nifty_privatebanklist.csv", File: "breadth_pvtbank.csv"},
	{Name: "NIFTY PSU BANK", ListFile: "ind_niftypsubanklist.csv", Benchmark: "^CNXPSUBANK", File: "breadth_psubank.csv"},
	{Name: "NIFTY REALTY", ListFile: "ind_niftyrealtylist.csv", Benchmark: "^CNXREALTY", File: "breadth_realty.csv"},
	{Name: "NIFTY CONSUMER DURABLES", ListFile: "ind_niftyconsumerdurableslist.csv", File: "breadth_consumer.csv"},
	{Name: "NIFTY OIL AND GAS", ListFile: "ind_niftyoilgaslist.csv", File: "breadth_oilgas.csv"},
}

type themeFile struct {
	Themes []struct {
		Name      string   `yaml:"name"`
		Benchmark string   `yaml:"benchmark"`
		Symbols   []string `yaml:"symbols"`
	} `yaml:"themes"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns an index name into a lowercase, dash-separated identifier.
func Slugify(name string) string {
	s := strings.ToLower(strings.ReplaceAll(name, "&", " and "))
	return strings.Trim(nonSlug.ReplaceAllString(s, "-"), "-")
}

// Catalog holds every index the tool knows how to compute.
type Catalog struct {
	indices []model.Index
	byKey   map[string]int
}

// LoadCatalog builds the catalog from the built-in NSE lists and the embedded themes.
func LoadCatalog() (*Catalog, error) {
	var tf themeFile
	if err := yaml.Unmarshal(themesYAML, &tf); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}

	c := &Catalog{byKey: make(map[string]int)}
	for _, idx := range nseIndices {
		idx.Source = model.SourceNSE
		idx.Slug = Slugify(idx.Name)
		if err := c.add(idx); err != nil {
			return nil, err
		}
	}
	for _, th := range tf.Themes {
		if len(th.Symbols) == 0 {
			return nil, fmt.Errorf("theme %q has no symbols", th.Name)
		}
		slug := Slugify(th.Name)
		if err := c.add(model.Index{
			Name:      th.Name,
			Slug:      slug,
			Source:    model.SourceTheme,
			Symbols:   dedupe(th.Symbols),
			Benchmark: th.Benchmark,
			File:      "theme_" + strings.ReplaceAll(slug, "-", "_") + ".csv",
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(idx model.Index) error {
	for _, key := range []string{strings.ToLower(idx.Name), idx.Slug} {
		if _, dup := c.byKey[key]; dup {
			return fmt.Errorf("duplicate index %q", idx.Name)
		}
	}
	c.indices = append(c.indices, idx)
	c.byKey[strings.ToLower(idx.Name)] = len(c.indices) - 1
	c.byKey[idx.Slug] = len(c.indices) - 1
	return nil
}

// Lookup finds an index by name (case-insensitive) or slug.
func (c *Catalog) Lookup(name string) (model.Index, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if i, ok := c.byKey[key]; ok {
		return c.indices[i], nil
	}
	if i, ok := c.byKey[Slugify(name)]; ok {
		return c.indices[i], nil
	}
	return model.Index{}, fmt.Errorf("%w: %q", ErrUnknownIndex, name)
}

// Resolve looks up every name, failing on the first unknown one.
func (c *Catalog) Resolve(names []string) ([]model.Index, error) {
	out := make([]model.Index, 0, len(names))
	for _, n := range names {
		idx, err := c.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// All returns catalog indices in declaration order.
func (c *Catalog) All() []model.Index {
	out := make([]model.Index, len(c.indices))
	copy(out, c.indices)
	return out
}

// Themes returns only the curated theme universes, sorted by name.
func (c *Catalog) Themes() []model.Index {
	var out []model.Index
	for _, idx := range c.indices {
		if idx.Source == model.SourceTheme {
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
