// Package loader reads directories of newline-delimited JSON review files
// into an ordered in-memory sequence of raw records.
//
// Each line is decoded independently with UseNumber so numeric fields keep
// full precision for the normalizer to coerce. Every record is tagged with a
// category derived from its source filename, and a fixed synthetic record is
// appended after all files to exercise non-ASCII text handling end to end.
package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"reviewetl/internal/datasource/file"
	"reviewetl/pkg/records"
)

// FieldCategory is the field injected into every loaded record.
const FieldCategory = "category"

// fileCategories maps known input filenames to their item category. Files not
// listed here load with a nil category.
var fileCategories = map[string]string{
	"Amazon_Instant_Video_5.json":     "Instant video",
	"Digital_Music_5.json":            "Digital music",
	"Grocery_and_Gourmet_Food_5.json": "Grocery",
	"Musical_Instruments_5.json":      "Musical Instruments",
	"Office_Products_5.json":          "Office",
	"Sports_and_Outdoors_5.json":      "Sports and Outdoors",
	"Toys_and_Games_5.json":           "Toys and Games",
	"Video_Games_5.json":              "Video games",
}

// ParseError reports a line that is not a valid JSON object. It aborts the
// run: no partially loaded sequence is ever handed downstream.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Stats summarizes one load.
type Stats struct {
	Files          int
	Records        int
	DuplicateLines int // raw lines whose xxh3 fingerprint was already seen
}

// Load reads every file in dir (lexical order), decodes each line as one JSON
// object, tags it with the filename-derived category, and appends the fixed
// synthetic record. The returned sequence preserves file and line order.
func Load(ctx context.Context, dir string) ([]records.Record, Stats, error) {
	names, err := file.ListDir(dir)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read input dir: %w", err)
	}

	var (
		out   []records.Record
		stats Stats
		seen  = make(map[uint64]struct{})
	)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		category, known := fileCategories[name]

		recs, dups, err := loadFile(ctx, dir, name, category, known, seen)
		if err != nil {
			return nil, Stats{}, err
		}
		out = append(out, recs...)
		stats.Files++
		stats.Records += len(recs)
		stats.DuplicateLines += dups
	}

	out = append(out, SyntheticRecord())
	stats.Records++
	return out, stats, nil
}

func loadFile(ctx context.Context, dir, name, category string, known bool, seen map[uint64]struct{}) ([]records.Record, int, error) {
	src, err := file.NewLocal(filepath.Join(dir, name)).Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer src.Close()

	var (
		out  []records.Record
		dups int
		line int
	)

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		h := xxh3.HashString(text)
		if _, dup := seen[h]; dup {
			dups++
		} else {
			seen[h] = struct{}{}
		}

		rec, err := decodeLine(text)
		if err != nil {
			return nil, 0, &ParseError{File: name, Line: line, Err: err}
		}
		if known {
			rec[FieldCategory] = category
		} else {
			rec[FieldCategory] = nil
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", name, err)
	}
	return out, dups, nil
}

func decodeLine(text string) (records.Record, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %T, want object", raw)
	}
	return records.Record(obj), nil
}

// SyntheticRecord returns the fixed record appended after every load. Its
// payload is deliberately non-ASCII.
func SyntheticRecord() records.Record {
	return records.Record{
		"reviewerID":     "A3_B1S8AL_6V2A4",
		"asin":           "5555991584",
		"reviewerName":   "David Bisbal",
		"helpful":        []any{json.Number("12"), json.Number("12")},
		"reviewText":     "¿Cómo están los máquinas? Lo primero de todo, ¿nos hacemos unas fotillos o qué?",
		"overall":        json.Number("5.0"),
		"summary":        "¿Como estan los máquinas?",
		"unixReviewTime": json.Number("1084226400"),
		"reviewTime":     "05 11, 2004",
		FieldCategory:    "Digital music",
	}
}

// Category returns the category for a known input filename.
func Category(filename string) (string, bool) {
	c, ok := fileCategories[filename]
	return c, ok
}
