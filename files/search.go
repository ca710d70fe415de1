package files

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/deskagent/logging"
)

// DefaultMaxResults caps how many matches a single search returns.
const DefaultMaxResults = 200

// Match is one file returned by a search.
type Match struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"sizeBytes"`
	Modified  time.Time `json:"modified"`
	// Snippet holds the first matching line for content searches.
	Snippet string `json:"snippet,omitempty"`
}

// SizeKB returns the file size in kilobytes, rounded to one decimal.
func (m Match) SizeKB() float64 {
	return math.Round(float64(m.SizeBytes)/1024*10) / 10
}

func (m Match) String() string {
	ts := m.Modified.Format("2006-01-02 15:04")
	snip := ""
	if m.Snippet != "" {
		s := m.Snippet
		if len(s) > 120 {
			s = string([]rune(s)[:120])
		}
		snip = fmt.Sprintf("\n    …%s…", s)
	}
	return fmt.Sprintf("%s  (%.1f KB, %s)%s", m.Path, m.SizeKB(), ts, snip)
}

// Query describes one search. The zero value matches every file under the
// searcher's default root, recursively.
type Query struct {
	// NamePattern is a shell-style glob for the filename, e.g. "*.py" or
	// "report*". Empty means "*" (all files).
	NamePattern string
	// Root is the directory tree to search. Empty means the searcher's
	// default root.
	Root string
	// ContentKeyword restricts results to files whose text content contains
	// this string (case-insensitive).
	ContentKeyword string
	// Extensions restricts results to the given extensions, e.g.
	// []string{".py", ".txt"}. A missing leading dot is added.
	Extensions []string
	// MinSizeBytes and MaxSizeBytes filter by file size (0 = no limit).
	MinSizeBytes int64
	MaxSizeBytes int64
	// ModifiedAfter keeps only files modified after this time.
	ModifiedAfter time.Time
	// TopLevelOnly restricts the search to direct children of the root.
	TopLevelOnly bool
}

// SearcherOptions configure a Searcher.
type SearcherOptions struct {
	// DefaultRoot is searched when a query gives no root. Defaults to the
	// user's home directory.
	DefaultRoot string
	// MaxResults caps the number of matches returned per search.
	MaxResults int
	Logger     logging.Logger
}

// Searcher finds files anywhere on disk by name pattern, content keyword,
// extension, size or modification date.
type Searcher struct {
	defaultRoot string
	maxResults  int
	logger      logging.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(optFns ...func(o *SearcherOptions)) *Searcher {
	opts := SearcherOptions{
		MaxResults: DefaultMaxResults,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.DefaultRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		opts.DefaultRoot = home
	}

	return &Searcher{
		defaultRoot: opts.DefaultRoot,
		maxResults:  opts.MaxResults,
		logger:      opts.Logger,
	}
}

// Search walks the query's root and returns every file matching the given
// criteria, newest first. Unreadable files and directories are skipped, so
// the only error it returns is context cancellation.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Match, error) {
	root := q.Root
	if root == "" {
		root = s.defaultRoot
	}

	pattern := q.NamePattern
	if pattern == "" {
		pattern = "*"
	}

	extSet := make(map[string]struct{}, len(q.Extensions))
	for _, e := range q.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		extSet[e] = struct{}{}
	}

	var results []Match

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if cErr := ctx.Err(); cErr != nil {
			return cErr
		}

		if err != nil {
			return nil
		}

		if d.IsDir() {
			if q.TopLevelOnly && path != root {
				return fs.SkipDir
			}

			return nil
		}

		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		if len(extSet) > 0 {
			if _, ok := extSet[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
		}

		if q.MinSizeBytes > 0 && info.Size() < q.MinSizeBytes {
			return nil
		}

		if q.MaxSizeBytes > 0 && info.Size() > q.MaxSizeBytes {
			return nil
		}

		if !q.ModifiedAfter.IsZero() && info.ModTime().Before(q.ModifiedAfter) {
			return nil
		}

		snippet := ""
		if q.ContentKeyword != "" {
			snip, ok := findSnippet(path, q.ContentKeyword)
			if !ok {
				return nil
			}

			snippet = snip
		}

		results = append(results, Match{
			Path:      path,
			SizeBytes: info.Size(),
			Modified:  info.ModTime(),
			Snippet:   snippet,
		})

		if len(results) >= s.maxResults {
			return fs.SkipAll
		}

		return nil
	})
	if err != nil && err != fs.SkipAll {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Modified.After(results[j].Modified)
	})

	s.logger.Debug("files.search", "root", root, "pattern", pattern, "matches", len(results))

	return results, nil
}

// FindByName returns every file under root whose name matches exactly.
func (s *Searcher) FindByName(ctx context.Context, name, root string) ([]Match, error) {
	return s.Search(ctx, Query{NamePattern: name, Root: root})
}

// FindByExtension returns every file under root with the given extension.
func (s *Searcher) FindByExtension(ctx context.Context, extension, root string) ([]Match, error) {
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	return s.Search(ctx, Query{NamePattern: "*" + extension, Root: root})
}

// FindContaining returns text files under root whose content contains the
// keyword. With no extensions given it checks common text formats.
func (s *Searcher) FindContaining(ctx context.Context, keyword, root string, extensions []string) ([]Match, error) {
	if len(extensions) == 0 {
		extensions = []string{".txt", ".md", ".py", ".go", ".json", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".log"}
	}

	return s.Search(ctx, Query{Root: root, ContentKeyword: keyword, Extensions: extensions})
}

// findSnippet returns the first line of the file containing the keyword.
func findSnippet(path, keyword string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	kw := strings.ToLower(keyword)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(strings.ToLower(line), kw) {
			return strings.TrimSpace(line), true
		}
	}

	return "", false
}
