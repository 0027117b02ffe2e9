package search

import (
	"slices"
	"sort"

	"github.com/ZanzyTHEbar/kwscan/kwscan/indexing"
)

// AggregateResult maps every keyword of a run to the set of files that
// contain it, over the whole FileList. It is built once by Merge and has no
// mutators.
type AggregateResult struct {
	keywords KeywordSet
	files    FileList
	matches  *indexing.KeywordBitmaps
	failures []FileFailure
}

// Merge unions the partial results of a run. Every keyword of the set is
// present in the result, with an empty file set when nothing matched. The
// order of partials does not affect the result.
func Merge(keywords KeywordSet, files FileList, partials []*PartialResult) *AggregateResult {
	result := &AggregateResult{
		keywords: keywords,
		files:    files,
		matches:  indexing.NewKeywordBitmaps(keywords.words...),
	}

	for _, p := range partials {
		if p == nil {
			continue
		}
		result.matches.Union(p.Matches)
		result.failures = append(result.failures, p.Failures...)
	}

	sort.SliceStable(result.failures, func(i, j int) bool {
		return result.failures[i].ID < result.failures[j].ID
	})

	return result
}

// Keywords returns the run's keywords in set order.
func (r *AggregateResult) Keywords() []string { return r.keywords.Words() }

// KeywordSet returns the keyword set the run searched for.
func (r *AggregateResult) KeywordSet() KeywordSet { return r.keywords }

// FileList returns the run's files.
func (r *AggregateResult) FileList() FileList { return r.files }

// Files returns the files containing keyword, in FileList order.
func (r *AggregateResult) Files(keyword string) []string {
	ids := r.matches.IDs(keyword)
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, r.files.Path(id))
	}
	return paths
}

// Count returns how many files contain keyword.
func (r *AggregateResult) Count(keyword string) int {
	return int(r.matches.Cardinality(keyword))
}

// Contains reports whether the file at path contains keyword.
func (r *AggregateResult) Contains(keyword, path string) bool {
	id, ok := r.files.Lookup(path)
	return ok && r.matches.Contains(keyword, id)
}

// Failures returns the files that could not be scanned, in FileList order.
func (r *AggregateResult) Failures() []FileFailure {
	return slices.Clone(r.failures)
}

// Map returns keyword -> files for every keyword.
func (r *AggregateResult) Map() map[string][]string {
	out := make(map[string][]string, r.keywords.Len())
	for _, k := range r.keywords.words {
		out[k] = r.Files(k)
	}
	return out
}

// Equal reports whether both results hold the same matches and the same
// failed files. Failure messages are not compared.
func (r *AggregateResult) Equal(other *AggregateResult) bool {
	if other == nil {
		return false
	}
	if !slices.Equal(r.keywords.words, other.keywords.words) {
		return false
	}
	if !slices.Equal(r.files.Paths(), other.files.Paths()) {
		return false
	}
	if !r.matches.Equal(other.matches) {
		return false
	}
	return slices.EqualFunc(r.failures, other.failures, func(a, b FileFailure) bool {
		return a.ID == b.ID
	})
}
