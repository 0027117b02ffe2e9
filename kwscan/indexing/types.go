package indexing

// PathID is a stable identifier for a path within one run's file list.
// It is the path's position in the list, kept small and contiguous so sets
// of files can be held in roaring bitmaps.
type PathID = uint32
