package search

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
)

// Scanner finds which keywords occur in one file.
type Scanner interface {
	// Scan returns the subset of keywords contained in the file at path.
	// A missing or unreadable file yields an *IOError.
	Scan(ctx context.Context, path string, keywords KeywordSet) (Match, error)
}

// FileScanner matches keywords against the whole content of a file.
type FileScanner struct {
	validator *common.ValidationUtils
}

var _ Scanner = (*FileScanner)(nil)

func NewFileScanner() *FileScanner {
	return &FileScanner{validator: common.NewValidationUtils()}
}

// Scan reads the whole file and reports every keyword that is a substring of
// its content. Keywords are reported in KeywordSet order.
func (s *FileScanner) Scan(ctx context.Context, path string, keywords KeywordSet) (Match, error) {
	if err := s.validator.ValidateContextCancellation(ctx); err != nil {
		return Match{}, err
	}

	if err := s.checkRegular(path); err != nil {
		return Match{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Match{}, &IOError{Path: path, Err: err}
	}

	content := string(data)
	if !keywords.caseSensitive {
		content = strings.ToLower(content)
	}

	match := Match{Size: int64(len(data))}
	for i, needle := range keywords.needles {
		if strings.Contains(content, needle) {
			match.Keywords = append(match.Keywords, keywords.words[i])
		}
	}

	return match, nil
}

// Locate reports every line of the file containing a keyword, one Hit per
// keyword and line. Line numbers start at 1.
func (s *FileScanner) Locate(ctx context.Context, path string, keywords KeywordSet) ([]Hit, error) {
	if err := s.checkRegular(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	var hits []Hit
	reader := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		if err := s.validator.ValidateContextCancellation(ctx); err != nil {
			return nil, err
		}

		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, &IOError{Path: path, Err: readErr}
		}

		if line != "" {
			if !keywords.caseSensitive {
				line = strings.ToLower(line)
			}
			for i, needle := range keywords.needles {
				if strings.Contains(line, needle) {
					hits = append(hits, Hit{Keyword: keywords.words[i], Path: path, Line: lineNo})
				}
			}
		}

		if readErr != nil {
			break
		}
	}

	return hits, nil
}

func (s *FileScanner) checkRegular(path string) error {
	if err := s.validator.ValidatePath(path); err != nil {
		return &IOError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &IOError{Path: path, Err: ErrNotRegular}
	}
	return nil
}
