package universe

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"BreadthSentinel/internal/model"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultNSEBaseURL hosts the NSE index constituent CSVs.
const DefaultNSEBaseURL = "https://nsearchives.nseindia.com/content/indices/"

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Resolver turns an index into its current member symbols.
type Resolver struct {
	client *resty.Client
	suffix string
	logger *zap.Logger
}

// NewResolver creates a resolver that downloads NSE lists from baseURL.
func NewResolver(baseURL, proxyURL string, logger *zap.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultNSEBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("User-Agent", browserUA)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &Resolver{client: client, suffix: ".NS", logger: logger.Named("universe")}
}

// Symbols returns the deduplicated member tickers of idx.
func (r *Resolver) Symbols(ctx context.Context, idx model.Index) ([]string, error) {
	switch idx.Source {
	case model.SourceTheme:
		return dedupe(idx.Symbols), nil
	case model.SourceNSE:
		return r.fetchNSEList(ctx, idx)
	default:
		return nil, fmt.Errorf("index %q: unsupported source %q", idx.Name, idx.Source)
	}
}

func (r *Resolver) fetchNSEList(ctx context.Context, idx model.Index) ([]string, error) {
	resp, err := r.client.R().SetContext(ctx).Get("/" + idx.ListFile)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", idx.ListFile, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", idx.ListFile, resp.StatusCode())
	}
	symbols, err := parseConstituents(resp.Body(), r.suffix)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", idx.ListFile, err)
	}
	r.logger.Info("constituents loaded",
		zap.String("index", idx.Name),
		zap.Int("symbols", len(symbols)))
	return symbols, nil
}

// parseConstituents reads the first column whose header mentions "Symbol"
// and appends suffix to each non-empty value.
func parseConstituents(body []byte, suffix string) ([]string, error) {
	rd := csv.NewReader(bytes.NewReader(body))
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true
	rows, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty constituent list")
	}

	col := -1
	for i, h := range rows[0] {
		if strings.Contains(h, "Symbol") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no Symbol column in header %v", rows[0])
	}

	symbols := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		s := strings.TrimSpace(row[col])
		if s == "" {
			continue
		}
		symbols = append(symbols, s+suffix)
	}
	return dedupe(symbols), nil
}
