package indexing

import (
	"path/filepath"
	"slices"
	"strings"
)

// PathTable assigns PathIDs to paths in insertion order. The same canonical
// path always maps to the same PathID, so a table doubles as a de-duplicating
// ordered path list.
type PathTable struct {
	pathToID map[string]PathID
	paths    []string
}

func NewPathTable() *PathTable {
	return &PathTable{pathToID: make(map[string]PathID)}
}

// Intern returns the PathID of path, assigning the next free one when the
// path is new. added reports whether the path was new.
func (m *PathTable) Intern(path string) (id PathID, added bool) {
	key := Canonicalize(path)
	if id, ok := m.pathToID[key]; ok {
		return id, false
	}
	id = PathID(len(m.paths))
	m.pathToID[key] = id
	m.paths = append(m.paths, key)
	return id, true
}

func (m *PathTable) Lookup(path string) (PathID, bool) {
	id, ok := m.pathToID[Canonicalize(path)]
	return id, ok
}

// Path returns the cleaned path stored for id, or "" when id is out of range.
func (m *PathTable) Path(id PathID) string {
	if int(id) >= len(m.paths) {
		return ""
	}
	return m.paths[id]
}

// Paths returns the stored paths ordered by PathID.
func (m *PathTable) Paths() []string {
	return append([]string(nil), m.paths...)
}

func (m *PathTable) Size() int { return len(m.paths) }

// Canonicalize converts p into the form used as a table key and stored path.
// Only the OS separator splits elements, so a backslash in a Linux file name
// stays part of that name. Paths with a ".." element are kept verbatim since
// collapsing them lexically is wrong across symlinks.
func Canonicalize(p string) string {
	if hasParentRef(p) {
		return p
	}
	return filepath.Clean(p)
}

func hasParentRef(p string) bool {
	return slices.Contains(strings.Split(filepath.ToSlash(p), "/"), "..")
}
