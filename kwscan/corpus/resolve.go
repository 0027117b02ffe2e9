package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/armon/go-radix"
	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"

	internal "github.com/ZanzyTHEbar/kwscan/kwscan"
	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
)

// Options controls how ResolveFiles expands its roots.
type Options struct {
	// Ignore holds extra gitignore-style patterns applied below every
	// directory root.
	Ignore []string
	// IgnoreFileName is looked up in every directory root; empty means
	// internal.DefaultIgnoreFileName.
	IgnoreFileName string
	// Extensions keeps only files with one of these extensions when
	// walking directories, e.g. ".txt". Explicit file roots are always kept.
	Extensions []string

	Logger *zerolog.Logger
}

// ResolveFiles expands roots into a lexically ordered list of unique file
// paths. Directories are walked recursively. A root that does not exist is
// kept as is so the scan reports it as an unreadable file.
func ResolveFiles(ctx context.Context, roots []string, opts Options) ([]string, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	errUtils := common.NewErrorUtils(logger)
	validator := common.NewValidationUtils()

	r := &resolver{
		opts:       opts,
		extensions: normalizeExtensions(opts.Extensions),
		tree:       radix.New(),
		logger:     logger,
	}
	if r.opts.IgnoreFileName == "" {
		r.opts.IgnoreFileName = internal.DefaultIgnoreFileName
	}

	for _, root := range roots {
		if err := validator.ValidateContextCancellation(ctx); err != nil {
			return nil, err
		}
		if err := validator.ValidatePath(root); err != nil {
			return nil, errUtils.WrapError(err, "invalid root %q", root)
		}

		root = filepath.Clean(root)
		info, err := os.Stat(root)
		switch {
		case err != nil:
			logger.Warn().Str("path", root).Err(err).Msg("Keeping unreadable root")
			r.add(root)
		case info.IsDir():
			if err := r.walk(ctx, root); err != nil {
				return nil, errUtils.LogAndWrapError(err, zerolog.ErrorLevel, "walk %s", root)
			}
		default:
			r.add(root)
		}
	}

	files := make([]string, 0, r.tree.Len())
	r.tree.Walk(func(key string, _ interface{}) bool {
		files = append(files, key)
		return false
	})

	logger.Debug().Int("roots", len(roots)).Int("files", len(files)).Msg("Resolved corpus")
	return files, nil
}

type resolver struct {
	opts       Options
	extensions map[string]bool
	tree       *radix.Tree
	logger     zerolog.Logger
}

func (r *resolver) add(path string) {
	r.tree.Insert(path, struct{}{})
}

func (r *resolver) walk(ctx context.Context, root string) error {
	matcher, err := r.ignoreMatcher(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			r.logger.Warn().Str("path", path).Err(err).Msg("Skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.matches(rel) || matcher.matches(rel+"/") {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || rel == r.opts.IgnoreFileName || matcher.matches(rel) {
			return nil
		}
		if len(r.extensions) > 0 && !r.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		r.add(path)
		return nil
	})
}

// ignoreMatcher combines the root's ignore file with the extra patterns.
type ignoreMatcher []*ignore.GitIgnore

func (m ignoreMatcher) matches(rel string) bool {
	for _, gi := range m {
		if gi.MatchesPath(rel) {
			return true
		}
	}
	return false
}

func (r *resolver) ignoreMatcher(root string) (ignoreMatcher, error) {
	var m ignoreMatcher

	ignorePath := filepath.Join(root, r.opts.IgnoreFileName)
	if _, err := os.Stat(ignorePath); err == nil {
		gi, err := ignore.CompileIgnoreFile(ignorePath)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", ignorePath, err)
		}
		m = append(m, gi)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error checking for %s: %w", ignorePath, err)
	}

	if len(r.opts.Ignore) > 0 {
		m = append(m, ignore.CompileIgnoreLines(r.opts.Ignore...))
	}
	return m, nil
}

func normalizeExtensions(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	out := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = true
	}
	return out
}
