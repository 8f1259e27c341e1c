// Package history persists breadth histories as flat CSV tables, one file
// per index, and merges freshly computed rows into them.
package history

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"BreadthSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// ErrMalformed is returned for history files that cannot be parsed.
var ErrMalformed = errors.New("malformed history file")

// Header is the column layout written by Save.
var Header = []string{"Date", "Percentage", "Above", "Below", "Total", "Index_Close"}

var required = []string{"Date", "Percentage", "Above", "Below", "Total"}

// Load reads a history file. A missing or empty file is an empty history.
// Columns are matched by header name, so files with a different column
// order load too. Rows come back sorted by date with one row per date; for
// repeated dates the later row wins.
func Load(path string) (model.BreadthHistory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.BreadthHistory{}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.BreadthHistory{}, nil
	}
	h, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Decode parses CSV history rows from r.
func Decode(r io.Reader) (model.BreadthHistory, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err == io.EOF {
		return model.BreadthHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
	}
	closeCol, hasClose := col["Index_Close"]

	var h model.BreadthHistory
	for line := 2; ; line++ {
		row, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		field := func(name string) string {
			i := col[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec, err := parseRow(field)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		if hasClose && closeCol < len(row) {
			if s := strings.TrimSpace(row[closeCol]); s != "" {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: Index_Close: %v", ErrMalformed, line, err)
				}
				rec.IndexClose = v
			}
		}
		h = append(h, rec)
	}
	return normalize(h), nil
}

func parseRow(field func(string) string) (model.BreadthRecord, error) {
	var rec model.BreadthRecord

	ds := field("Date")
	if len(ds) > len(model.DateLayout) {
		ds = ds[:len(model.DateLayout)] // tolerate "2024-01-02 00:00:00"
	}
	d, err := model.ParseDate(ds)
	if err != nil {
		return rec, fmt.Errorf("Date: %v", err)
	}
	rec.Date = d

	if rec.Percentage, err = parseFloatField(field("Percentage")); err != nil {
		return rec, fmt.Errorf("Percentage: %v", err)
	}
	if rec.Above, err = parseCount(field("Above")); err != nil {
		return rec, fmt.Errorf("Above: %v", err)
	}
	if rec.Below, err = parseCount(field("Below")); err != nil {
		return rec, fmt.Errorf("Below: %v", err)
	}
	if rec.Total, err = parseCount(field("Total")); err != nil {
		return rec, fmt.Errorf("Total: %v", err)
	}
	if rec.Above+rec.Below != rec.Total {
		return rec, fmt.Errorf("above %d + below %d != total %d", rec.Above, rec.Below, rec.Total)
	}
	if rec.Percentage < 0 || rec.Percentage > 100 {
		return rec, fmt.Errorf("percentage %v out of range", rec.Percentage)
	}
	return rec, nil
}

func parseFloatField(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

// parseCount accepts "12" as well as pandas-style "12.0".
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := parseFloatField(s)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) || f < 0 {
		return 0, fmt.Errorf("not a count: %q", s)
	}
	return int(f), nil
}

// Encode writes h as CSV with the standard header.
func Encode(w io.Writer, h model.BreadthHistory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range h {
		closeStr := ""
		if r.IndexClose > 0 {
			closeStr = decimal.NewFromFloat(r.IndexClose).StringFixed(2)
		}
		if err := cw.Write([]string{
			r.Date.Format(model.DateLayout),
			decimal.NewFromFloat(r.Percentage).StringFixed(4),
			strconv.Itoa(r.Above),
			strconv.Itoa(r.Below),
			strconv.Itoa(r.Total),
			closeStr,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save rewrites path with h. The file is written to a temporary sibling and
// renamed into place, so readers never see a partial table.
func Save(path string, h model.BreadthHistory) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, normalize(h)); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod history: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// normalize sorts by date and keeps the last row for each date.
func normalize(h model.BreadthHistory) model.BreadthHistory {
	out := make(model.BreadthHistory, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, r := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(r.Date) {
			dedup[n-1] = r
			continue
		}
		dedup = append(dedup, r)
	}
	return dedup
}
