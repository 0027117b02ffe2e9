package indexing

import roaring "github.com/RoaringBitmap/roaring"

// KeywordBitmaps holds one roaring bitmap of PathIDs per keyword.
// Example: "error" -> bitmap of the files containing "error".
type KeywordBitmaps struct {
	byKeyword map[string]*roaring.Bitmap
}

// NewKeywordBitmaps creates a set with an empty bitmap for every keyword.
func NewKeywordBitmaps(keywords ...string) *KeywordBitmaps {
	kb := &KeywordBitmaps{byKeyword: make(map[string]*roaring.Bitmap, len(keywords))}
	for _, k := range keywords {
		kb.Ensure(k)
	}
	return kb
}

// FromIDs builds a set from a keyword -> PathIDs mapping.
func FromIDs(ids map[string][]PathID) *KeywordBitmaps {
	kb := &KeywordBitmaps{byKeyword: make(map[string]*roaring.Bitmap, len(ids))}
	for k, list := range ids {
		kb.byKeyword[k] = roaring.BitmapOf(list...)
	}
	return kb
}

// Ensure creates an empty bitmap for keyword if it has none yet.
func (kb *KeywordBitmaps) Ensure(keyword string) {
	if _, ok := kb.byKeyword[keyword]; !ok {
		kb.byKeyword[keyword] = roaring.New()
	}
}

func (kb *KeywordBitmaps) Add(keyword string, pid PathID) {
	kb.Ensure(keyword)
	kb.byKeyword[keyword].Add(pid)
}

// Union ORs other into kb. Keywords kb does not track are ignored.
func (kb *KeywordBitmaps) Union(other *KeywordBitmaps) {
	if other == nil {
		return
	}
	for k, bm := range other.byKeyword {
		if mine, ok := kb.byKeyword[k]; ok {
			mine.Or(bm)
		}
	}
}

func (kb *KeywordBitmaps) Has(keyword string) bool {
	_, ok := kb.byKeyword[keyword]
	return ok
}

func (kb *KeywordBitmaps) Contains(keyword string, pid PathID) bool {
	bm, ok := kb.byKeyword[keyword]
	return ok && bm.Contains(pid)
}

// IDs returns the PathIDs for keyword in ascending order.
func (kb *KeywordBitmaps) IDs(keyword string) []PathID {
	bm, ok := kb.byKeyword[keyword]
	if !ok {
		return nil
	}
	return bm.ToArray()
}

func (kb *KeywordBitmaps) Cardinality(keyword string) uint64 {
	bm, ok := kb.byKeyword[keyword]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

func (kb *KeywordBitmaps) Len() int { return len(kb.byKeyword) }

// ToIDs is the inverse of FromIDs.
func (kb *KeywordBitmaps) ToIDs() map[string][]PathID {
	out := make(map[string][]PathID, len(kb.byKeyword))
	for k, bm := range kb.byKeyword {
		out[k] = bm.ToArray()
	}
	return out
}

// Equal reports whether both sets track the same keywords with equal bitmaps.
func (kb *KeywordBitmaps) Equal(other *KeywordBitmaps) bool {
	if other == nil || len(kb.byKeyword) != len(other.byKeyword) {
		return false
	}
	for k, bm := range kb.byKeyword {
		theirs, ok := other.byKeyword[k]
		if !ok || !bm.Equals(theirs) {
			return false
		}
	}
	return true
}
