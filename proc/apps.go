package proc

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// AppInfo identifies one installed application.
type AppInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// String renders the app as "name (path)".
func (a AppInfo) String() string { return a.Name + " (" + a.Path + ")" }

// ListInstalled returns a best-effort list of installed applications
// using a platform-specific strategy: executables on PATH for Linux,
// /Applications bundles on macOS and Program Files executables on
// Windows. Unknown platforms yield an empty list.
func ListInstalled() []AppInfo {
	var apps []AppInfo
	switch runtime.GOOS {
	case "linux":
		apps = listInstalledPath()
	case "darwin":
		apps = listInstalledApplications()
	case "windows":
		apps = listInstalledProgramFiles()
	}

	sort.Slice(apps, func(i, j int) bool {
		return strings.ToLower(apps[i].Name) < strings.ToLower(apps[j].Name)
	})
	return apps
}

func listInstalledPath() []AppInfo {
	var apps []AppInfo
	seen := make(map[string]struct{})

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if _, ok := seen[entry.Name()]; ok {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
				continue
			}
			seen[entry.Name()] = struct{}{}
			apps = append(apps, AppInfo{Name: entry.Name(), Path: filepath.Join(dir, entry.Name())})
		}
	}
	return apps
}

func listInstalledApplications() []AppInfo {
	var apps []AppInfo
	entries, err := os.ReadDir("/Applications")
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".app" {
			apps = append(apps, AppInfo{
				Name: strings.TrimSuffix(entry.Name(), ".app"),
				Path: filepath.Join("/Applications", entry.Name()),
			})
		}
	}
	return apps
}

func listInstalledProgramFiles() []AppInfo {
	var apps []AppInfo
	bases := []string{
		os.Getenv("PROGRAMFILES"),
		os.Getenv("PROGRAMFILES(X86)"),
	}
	for _, base := range bases {
		if base == "" {
			continue
		}
		_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable subtrees
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".exe") {
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				apps = append(apps, AppInfo{Name: name, Path: path})
			}
			return nil
		})
	}
	return apps
}
