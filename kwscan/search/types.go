package search

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/kwscan/kwscan/indexing"
)

// KeywordSet is the immutable set of keywords searched for during a run.
// Words are literal substrings kept in first-occurrence order; duplicates
// and empty strings are dropped.
type KeywordSet struct {
	words         []string
	needles       []string
	caseSensitive bool
}

// NewKeywordSet builds a KeywordSet. When caseSensitive is false both the
// keywords and the scanned content are lower-cased before matching.
func NewKeywordSet(words []string, caseSensitive bool) KeywordSet {
	ks := KeywordSet{caseSensitive: caseSensitive}
	seen := make(map[string]struct{}, len(words))

	for _, w := range words {
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}

		ks.words = append(ks.words, w)
		if caseSensitive {
			ks.needles = append(ks.needles, w)
		} else {
			ks.needles = append(ks.needles, strings.ToLower(w))
		}
	}

	return ks
}

func (ks KeywordSet) Len() int { return len(ks.words) }

// Words returns a copy of the keywords in set order.
func (ks KeywordSet) Words() []string {
	return append([]string(nil), ks.words...)
}

func (ks KeywordSet) CaseSensitive() bool { return ks.caseSensitive }

// Has reports whether word is one of the set's keywords.
func (ks KeywordSet) Has(word string) bool {
	for _, w := range ks.words {
		if w == word {
			return true
		}
	}
	return false
}

// FileRef is one file of the FileList together with its PathID.
type FileRef struct {
	ID   indexing.PathID
	Path string
}

// FileList is the ordered, duplicate-free list of files of a run.
type FileList struct {
	table *indexing.PathTable
}

// NewFileList builds a FileList keeping the first occurrence of every path.
func NewFileList(paths []string) FileList {
	table := indexing.NewPathTable()
	for _, p := range paths {
		if p == "" {
			continue
		}
		table.Intern(p)
	}
	return FileList{table: table}
}

func (fl FileList) Len() int {
	if fl.table == nil {
		return 0
	}
	return fl.table.Size()
}

// Path returns the path with the given id.
func (fl FileList) Path(id indexing.PathID) string {
	if fl.table == nil {
		return ""
	}
	return fl.table.Path(id)
}

// Lookup returns the id of path.
func (fl FileList) Lookup(path string) (indexing.PathID, bool) {
	if fl.table == nil {
		return 0, false
	}
	return fl.table.Lookup(path)
}

// Paths returns the paths in list order.
func (fl FileList) Paths() []string {
	if fl.table == nil {
		return nil
	}
	return fl.table.Paths()
}

// Refs returns every file with its id, in list order.
func (fl FileList) Refs() []FileRef {
	paths := fl.Paths()
	refs := make([]FileRef, len(paths))
	for i, p := range paths {
		refs[i] = FileRef{ID: indexing.PathID(i), Path: p}
	}
	return refs
}

// Chunk is the share of the FileList handed to exactly one worker.
type Chunk struct {
	ID    int
	Files []FileRef
}

// Paths returns the chunk's file paths.
func (c Chunk) Paths() []string {
	paths := make([]string, len(c.Files))
	for i, f := range c.Files {
		paths[i] = f.Path
	}
	return paths
}

// Match is what a Scanner found in one file.
type Match struct {
	Keywords []string
	Size     int64
}

// Hit is a line-level keyword occurrence.
type Hit struct {
	Keyword string
	Path    string
	Line    int
}

// FileFailure records a file that could not be scanned.
type FileFailure struct {
	ID   indexing.PathID
	Path string
	Err  error
}

func (f FileFailure) Error() string {
	return f.Err.Error()
}

// PartialResult is one worker's findings for its chunk. It belongs to the
// worker until it is sent to the coordinator.
type PartialResult struct {
	ChunkID  int
	Matches  *indexing.KeywordBitmaps
	Failures []FileFailure
	Files    int
	Bytes    int64
	Elapsed  time.Duration
}

func newPartialResult(chunkID int, keywords KeywordSet) *PartialResult {
	return &PartialResult{
		ChunkID: chunkID,
		Matches: indexing.NewKeywordBitmaps(keywords.words...),
	}
}
