package search

import (
	"fmt"
	"sort"
)

// Partition policy names accepted by PartitionerByName
const (
	PolicyContiguous = "contiguous"
	PolicyRoundRobin = "round-robin"
)

// Partitioner splits a FileList into at most workerCount non-empty chunks
// that together contain every file exactly once.
type Partitioner func(files FileList, workerCount int) ([]Chunk, error)

var partitioners = map[string]Partitioner{
	PolicyContiguous: Partition,
	PolicyRoundRobin: PartitionRoundRobin,
}

// PartitionerByName returns the partitioner registered under name.
func PartitionerByName(name string) (Partitioner, error) {
	if p, ok := partitioners[name]; ok {
		return p, nil
	}
	return nil, &ConfigurationError{Field: "partition", Reason: fmt.Sprintf("%q", name), Err: ErrUnknownPolicy}
}

// Policies lists the registered partition policy names.
func Policies() []string {
	names := make([]string, 0, len(partitioners))
	for name := range partitioners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Partition splits files into contiguous blocks of ceil(len/workerCount)
// files; the last block takes the remainder. No empty chunk is produced, so
// fewer than workerCount chunks come back when there are few files.
func Partition(files FileList, workerCount int) ([]Chunk, error) {
	if workerCount < 1 {
		return nil, newConfigError("workers", fmt.Sprintf("must be >= 1, got %d", workerCount))
	}

	refs := files.Refs()
	if len(refs) == 0 {
		return nil, nil
	}

	size := (len(refs) + workerCount - 1) / workerCount
	chunks := make([]Chunk, 0, workerCount)
	for start := 0; start < len(refs); start += size {
		end := min(start+size, len(refs))
		chunks = append(chunks, Chunk{ID: len(chunks), Files: refs[start:end:end]})
	}

	return chunks, nil
}

// PartitionRoundRobin deals files to min(workerCount, len(files)) chunks in
// turn: file i goes to chunk i mod n.
func PartitionRoundRobin(files FileList, workerCount int) ([]Chunk, error) {
	if workerCount < 1 {
		return nil, newConfigError("workers", fmt.Sprintf("must be >= 1, got %d", workerCount))
	}

	refs := files.Refs()
	if len(refs) == 0 {
		return nil, nil
	}

	n := min(workerCount, len(refs))
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i].ID = i
		chunks[i].Files = make([]FileRef, 0, (len(refs)+n-1)/n)
	}
	for i, ref := range refs {
		chunks[i%n].Files = append(chunks[i%n].Files, ref)
	}

	return chunks, nil
}
