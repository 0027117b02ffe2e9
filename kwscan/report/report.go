package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
	"github.com/ZanzyTHEbar/kwscan/kwscan/search"
)

// TextOptions controls the plain text report.
type TextOptions struct {
	// SortKeywords prints keywords in lexical order instead of set order.
	SortKeywords bool
	// Detailed adds the matching lines of every file below each keyword.
	Detailed bool
	// Locator finds the matching lines in Detailed mode; nil uses a
	// search.FileScanner.
	Locator Locator

	Logger *zerolog.Logger
}

// Locator finds line-level keyword hits in a file.
type Locator interface {
	Locate(ctx context.Context, path string, keywords search.KeywordSet) ([]search.Hit, error)
}

// Text writes one "keyword: file, file" line per keyword. Keywords without
// matches print "-". Unreadable files are listed at the end.
func Text(ctx context.Context, w io.Writer, result *search.AggregateResult, opts TextOptions) error {
	keywords := result.Keywords()
	if opts.SortKeywords {
		sort.Strings(keywords)
	}

	var hits map[string]map[string][]int
	if opts.Detailed {
		var err error
		if hits, err = locateHits(ctx, result, opts); err != nil {
			return err
		}
	}

	for _, k := range keywords {
		files := result.Files(k)
		sort.Strings(files)

		line := "-"
		if len(files) > 0 {
			line = strings.Join(files, ", ")
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, line); err != nil {
			return err
		}

		if !opts.Detailed {
			continue
		}
		for _, f := range files {
			for _, n := range hits[k][f] {
				if _, err := fmt.Fprintf(w, "  %s:%d\n", f, n); err != nil {
					return err
				}
			}
		}
	}

	failures := result.Failures()
	if len(failures) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "unreadable (%d):\n", len(failures)); err != nil {
		return err
	}
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "  %s\n", f.Err); err != nil {
			return err
		}
	}
	return nil
}

// locateHits returns keyword -> file -> line numbers for every matched file.
// A file that has become unreadable since the scan is listed without lines.
func locateHits(ctx context.Context, result *search.AggregateResult, opts TextOptions) (map[string]map[string][]int, error) {
	locator := opts.Locator
	if locator == nil {
		locator = search.NewFileScanner()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	matched := make(map[string]bool)
	for _, k := range result.Keywords() {
		for _, f := range result.Files(k) {
			matched[f] = true
		}
	}

	hits := make(map[string]map[string][]int)
	for _, f := range result.FileList().Paths() {
		if !matched[f] {
			continue
		}
		found, err := locator.Locate(ctx, f, result.KeywordSet())
		if err != nil {
			var ioErr *search.IOError
			if errors.As(err, &ioErr) {
				logger.Warn().Str("path", f).Err(err).Msg("Skipping line hits of unreadable file")
				continue
			}
			return nil, fmt.Errorf("locate keywords in %s: %w", f, err)
		}
		for _, h := range found {
			if hits[h.Keyword] == nil {
				hits[h.Keyword] = make(map[string][]int)
			}
			hits[h.Keyword][h.Path] = append(hits[h.Keyword][h.Path], h.Line)
		}
	}
	return hits, nil
}

type jsonFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type jsonReport struct {
	Keywords map[string][]string `json:"keywords"`
	Failures []jsonFailure       `json:"failures"`
}

// JSON writes the result as an indented JSON object.
func JSON(w io.Writer, result *search.AggregateResult) error {
	out := jsonReport{
		Keywords: result.Map(),
		Failures: []jsonFailure{},
	}
	for k, files := range out.Keywords {
		sort.Strings(files)
		out.Keywords[k] = files
	}
	for _, f := range result.Failures() {
		out.Failures = append(out.Failures, jsonFailure{Path: f.Path, Error: f.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Summary writes a short description of a finished run.
func Summary(w io.Writer, s common.RunSummary) error {
	status := "ok"
	if !s.Success {
		status = "failed"
	}

	lines := []string{
		fmt.Sprintf("run       %s (%s)", s.RunID, status),
		fmt.Sprintf("strategy  %s, %d workers, %d chunks", s.Strategy, s.Workers, s.Chunks),
		fmt.Sprintf("files     %s scanned, %s, %d unreadable", humanize.Comma(int64(s.Files)), humanize.Bytes(uint64(s.Bytes)), s.Failures),
		fmt.Sprintf("elapsed   %s", common.FormatDuration(s.Duration)),
	}
	if len(s.WorkerDurations) > 0 {
		lines = append(lines, fmt.Sprintf("workers   mean %s, stddev %s",
			common.FormatDuration(s.WorkerMean), common.FormatDuration(s.WorkerStdDev)))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
