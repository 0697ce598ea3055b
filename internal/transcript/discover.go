package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude matches plain-text transcripts.
var DefaultInclude = []string{"**/*.txt"}

// skipDirs are directory names never descended into.
var skipDirs = []string{
	".git",
	".podrag",
	"__pycache__",
	".venv",
	".idea",
	".vscode",
}

// File describes one transcript found under the corpus root.
type File struct {
	Path        string // Absolute path on disk.
	RelPath     string // Slash-separated path relative to the corpus root; used as the document id.
	Size        int64
	ContentHash string // SHA-256 hex digest of the file content.
}

// DiscoverOptions controls Discover.
type DiscoverOptions struct {
	RootDir string
	Include []string // Glob patterns; empty means DefaultInclude.
	Exclude []string
	Logger  *slog.Logger
	// OnSkip, if set, is called with each transcript that could not be read.
	OnSkip func(relPath string, err error)
}

// Discover walks the corpus root and returns every eligible transcript
// sorted by relative path. Files that cannot be hashed are logged, reported
// to OnSkip and skipped. A missing root is an error.
func Discover(opts DiscoverOptions) ([]File, error) {
	root, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root: %v", ErrCorpusIO, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrCorpusIO, root)
	}

	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	skip := func(rel string, err error) {
		logger.Warn("skipping transcript", "path", rel, "error", err)
		if opts.OnSkip != nil {
			opts.OnSkip(rel, err)
		}
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !matchesAny(rel, include) || matchesAny(rel, opts.Exclude) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			skip(rel, err)
			return nil
		}
		hash, err := hashFile(path)
		if err != nil {
			skip(rel, err)
			return nil
		}

		files = append(files, File{
			Path:        path,
			RelPath:     rel,
			Size:        fi.Size(),
			ContentHash: hash,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: traversal: %v", ErrCorpusIO, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Checksum digests the ordered (path, content hash) list of a corpus.
// Any added, removed, renamed or edited transcript changes it.
func Checksum(files []File) string {
	h := sha256.New()
	for _, f := range files {
		io.WriteString(h, f.RelPath)
		h.Write([]byte{0})
		io.WriteString(h, f.ContentHash)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func shouldSkipDir(name string) bool {
	for _, s := range skipDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// matchesAny reports whether relPath or its base name matches a pattern.
func matchesAny(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
