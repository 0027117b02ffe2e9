package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/kwscan/kwscan/indexing"
)

// WorkerJob is the message sent to an isolated worker process: one chunk and
// the keywords to look for.
type WorkerJob struct {
	RunID         string            `json:"run_id"`
	ChunkID       int               `json:"chunk_id"`
	Files         []string          `json:"files"`
	FileIDs       []indexing.PathID `json:"file_ids"`
	Keywords      []string          `json:"keywords"`
	CaseSensitive bool              `json:"case_sensitive"`
}

// FailureNote is a per-file IOError as carried in a WorkerReply.
type FailureNote struct {
	FileID  indexing.PathID `json:"file_id"`
	Path    string          `json:"path"`
	Message string          `json:"message"`
}

// WorkerReply is the message an isolated worker writes back: exactly one
// PartialResult plus the chunk identity.
type WorkerReply struct {
	ChunkID      int                          `json:"chunk_id"`
	Matches      map[string][]indexing.PathID `json:"matches"`
	Failures     []FailureNote                `json:"failures,omitempty"`
	Files        int                          `json:"files"`
	Bytes        int64                        `json:"bytes"`
	ElapsedNanos int64                        `json:"elapsed_ns"`
}

func newWorkerJob(runID string, chunk Chunk, keywords KeywordSet) WorkerJob {
	job := WorkerJob{
		RunID:         runID,
		ChunkID:       chunk.ID,
		Files:         make([]string, len(chunk.Files)),
		FileIDs:       make([]indexing.PathID, len(chunk.Files)),
		Keywords:      keywords.Words(),
		CaseSensitive: keywords.CaseSensitive(),
	}
	for i, f := range chunk.Files {
		job.Files[i] = f.Path
		job.FileIDs[i] = f.ID
	}
	return job
}

func (j WorkerJob) chunk() (Chunk, error) {
	if len(j.Files) != len(j.FileIDs) {
		return Chunk{}, fmt.Errorf("%w: %d files but %d file ids", ErrProtocol, len(j.Files), len(j.FileIDs))
	}
	chunk := Chunk{ID: j.ChunkID, Files: make([]FileRef, len(j.Files))}
	for i := range j.Files {
		chunk.Files[i] = FileRef{ID: j.FileIDs[i], Path: j.Files[i]}
	}
	return chunk, nil
}

func newWorkerReply(p *PartialResult) WorkerReply {
	reply := WorkerReply{
		ChunkID:      p.ChunkID,
		Matches:      p.Matches.ToIDs(),
		Files:        p.Files,
		Bytes:        p.Bytes,
		ElapsedNanos: int64(p.Elapsed),
	}
	for _, f := range p.Failures {
		msg := f.Err.Error()
		var ioErr *IOError
		if errors.As(f.Err, &ioErr) {
			msg = ioErr.Err.Error()
		}
		reply.Failures = append(reply.Failures, FailureNote{FileID: f.ID, Path: f.Path, Message: msg})
	}
	return reply
}

// partial converts a reply back into a PartialResult after checking it
// answers chunk: same chunk id, and only file ids that belong to the chunk.
func (r WorkerReply) partial(chunk Chunk, keywords KeywordSet) (*PartialResult, error) {
	if r.ChunkID != chunk.ID {
		return nil, fmt.Errorf("%w: reply for chunk %d, expected %d", ErrProtocol, r.ChunkID, chunk.ID)
	}

	owned := make(map[indexing.PathID]bool, len(chunk.Files))
	for _, f := range chunk.Files {
		owned[f.ID] = true
	}

	partial := newPartialResult(chunk.ID, keywords)
	for keyword, ids := range r.Matches {
		for _, id := range ids {
			if !owned[id] {
				return nil, fmt.Errorf("%w: file id %d is not part of chunk %d", ErrProtocol, id, chunk.ID)
			}
		}
		if keywords.Has(keyword) {
			partial.Matches.Union(indexing.FromIDs(map[string][]indexing.PathID{keyword: ids}))
		}
	}

	for _, note := range r.Failures {
		if !owned[note.FileID] {
			return nil, fmt.Errorf("%w: failed file id %d is not part of chunk %d", ErrProtocol, note.FileID, chunk.ID)
		}
		partial.Failures = append(partial.Failures, FileFailure{
			ID:   note.FileID,
			Path: note.Path,
			Err:  &IOError{Path: note.Path, Err: errors.New(note.Message)},
		})
	}

	partial.Files = r.Files
	partial.Bytes = r.Bytes
	partial.Elapsed = time.Duration(r.ElapsedNanos)
	return partial, nil
}

// ServeWorker is the body of an isolated worker process. It reads one
// WorkerJob from r, scans the chunk and writes one WorkerReply to w. A non-nil
// error means the chunk could not be completed; the process should then exit
// with a non-zero status.
func ServeWorker(ctx context.Context, r io.Reader, w io.Writer, scanner Scanner, logger zerolog.Logger) error {
	var msg WorkerJob
	if err := json.NewDecoder(r).Decode(&msg); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}

	chunk, err := msg.chunk()
	if err != nil {
		return err
	}

	if scanner == nil {
		scanner = NewFileScanner()
	}

	job := Job{
		RunID:    msg.RunID,
		Keywords: NewKeywordSet(msg.Keywords, msg.CaseSensitive),
		Chunks:   []Chunk{chunk},
		Workers:  1,
		Scanner:  scanner,
		Logger:   logger.With().Str("run_id", msg.RunID).Int("chunk", chunk.ID).Logger(),
	}

	partial, err := scanChunk(ctx, job, chunk)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(newWorkerReply(partial)); err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return nil
}
