package toolkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/deskagent/files"
	"github.com/hupe1980/deskagent/tool"
)

func (t *Toolkit) readFileTool() tool.Tool {
	return tool.Tool{
		Name:        "read_file",
		Description: "Read the full text content of any file on disk.",
		Category:    CategoryFiles,
		Params: []tool.Param{
			{Name: "path", Type: tool.TypeString, Description: "Absolute or relative path to the file.", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			path := strArg(args, "path")

			content, err := t.reader.Read(path)
			if err != nil {
				return "", nil, err
			}

			return content, map[string]any{"path": path, "content": content}, nil
		},
	}
}

func (t *Toolkit) writeFileTool() tool.Tool {
	return tool.Tool{
		Name:        "write_file",
		Description: "Write text content to a file, creating it if needed (backs up the original).",
		Category:    CategoryFiles,
		Params: []tool.Param{
			{Name: "path", Type: tool.TypeString, Description: "Destination file path.", Required: true},
			{Name: "content", Type: tool.TypeString, Description: "Text content to write.", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			path := strArg(args, "path")
			content := strArg(args, "content")

			if err := t.writer.Write(path, content); err != nil {
				return "", nil, err
			}

			output := fmt.Sprintf("Wrote %d characters to %s", utf8.RuneCountInString(content), path)

			return output, map[string]any{"path": path}, nil
		},
	}
}

func (t *Toolkit) appendFileTool() tool.Tool {
	return tool.Tool{
		Name:        "append_file",
		Description: "Append text to the end of a file without overwriting it.",
		Category:    CategoryFiles,
		Params: []tool.Param{
			{Name: "path", Type: tool.TypeString, Description: "File path.", Required: true},
			{Name: "content", Type: tool.TypeString, Description: "Text to append.", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			path := strArg(args, "path")
			content := strArg(args, "content")

			if err := t.writer.Append(path, content); err != nil {
				return "", nil, err
			}

			return fmt.Sprintf("Appended %d characters to %s", utf8.RuneCountInString(content), path), nil, nil
		},
	}
}

func (t *Toolkit) searchFilesTool() tool.Tool {
	return tool.Tool{
		Name:        "search_files",
		Description: "Search for files by name pattern, extension or text content.",
		Category:    CategoryFiles,
		Params: []tool.Param{
			{Name: "query", Type: tool.TypeString, Description: "Filename glob pattern, e.g. '*.py' or 'report*'.", Default: "*"},
			{Name: "root", Type: tool.TypeString, Description: "Directory to search (default: home directory).", Default: ""},
			{Name: "extensions", Type: tool.TypeString, Description: "Comma-separated extensions to filter, e.g. '.py,.txt'.", Default: ""},
			{Name: "content", Type: tool.TypeString, Description: "Keyword that must appear inside the file.", Default: ""},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			var extensions []string
			for _, e := range strings.Split(strArg(args, "extensions"), ",") {
				if e = strings.TrimSpace(e); e != "" {
					extensions = append(extensions, e)
				}
			}

			matches, err := t.searcher.Search(ctx, files.Query{
				NamePattern:    strArg(args, "query"),
				Root:           strArg(args, "root"),
				ContentKeyword: strArg(args, "content"),
				Extensions:     extensions,
			})
			if err != nil {
				return "", nil, err
			}

			if len(matches) == 0 {
				return "No files found matching the criteria.", []string{}, nil
			}

			lines := make([]string, 0, len(matches))
			paths := make([]string, 0, len(matches))

			for _, m := range matches {
				lines = append(lines, m.String())
				paths = append(paths, m.Path)
			}

			return strings.Join(lines, "\n"), paths, nil
		},
	}
}

func (t *Toolkit) listDirectoryTool() tool.Tool {
	return tool.Tool{
		Name:        "list_directory",
		Description: "List the files and folders inside a directory.",
		Category:    CategoryFiles,
		Params: []tool.Param{
			{Name: "path", Type: tool.TypeString, Description: "Directory path (default: home).", Default: ""},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			target := strArg(args, "path")
			if target == "" {
				target = homeDir()
			}

			info, err := os.Stat(target)
			if os.IsNotExist(err) {
				return "", nil, fmt.Errorf("Path does not exist: %s", target)
			}
			if err != nil {
				return "", nil, err
			}
			if !info.IsDir() {
				return "", nil, fmt.Errorf("Path is a file, not a directory: %s", target)
			}

			entries, err := os.ReadDir(target)
			if err != nil {
				return "", nil, err
			}

			// Directories first, then case-insensitive by name.
			sort.SliceStable(entries, func(i, j int) bool {
				di, dj := entries[i].IsDir(), entries[j].IsDir()
				if di != dj {
					return di
				}
				return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
			})

			var lines []string
			paths := make([]string, 0, len(entries))

			for _, e := range entries {
				paths = append(paths, filepath.Join(target, e.Name()))

				if len(lines) >= listEntryCap {
					continue
				}

				if e.IsDir() {
					lines = append(lines, fmt.Sprintf("  %s/", e.Name()))
					continue
				}

				fileInfo, err := e.Info()
				if err != nil {
					continue
				}

				lines = append(lines, fmt.Sprintf("  %s  %.1f KB", e.Name(), float64(fileInfo.Size())/1024))
			}

			output := fmt.Sprintf("Contents of %s:\n%s", target, strings.Join(lines, "\n"))

			return output, paths, nil
		},
	}
}
