// Package source discovers and parses session transcript files.
package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const indexFileName = "sessions-index.json"

// ListProjects enumerates project directories under the projects root.
// A missing root is a normal state ("no usage recorded yet") and yields an
// empty slice, not an error.
func ListProjects(projectsDir string) ([]ProjectDir, error) {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var projects []ProjectDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirPath := filepath.Join(projectsDir, e.Name())
		projects = append(projects, ProjectDir{
			DirName:      e.Name(),
			DirPath:      dirPath,
			OriginalPath: resolveDisplayPath(dirPath, e.Name()),
		})
	}
	return projects, nil
}

// ListSessionFiles returns the transcript file names directly inside a
// project directory. An unreadable directory yields no files.
func ListSessionFiles(dirPath string) []string {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, e.Name())
	}
	return files
}

// resolveDisplayPath determines the human-readable path for a project dir.
// A well-formed index file wins; anything malformed falls back to decoding
// the directory name, so bad metadata never aborts discovery.
func resolveDisplayPath(dirPath, dirName string) string {
	data, err := os.ReadFile(filepath.Join(dirPath, indexFileName))
	if err == nil {
		var idx SessionsIndex
		if json.Unmarshal(data, &idx) == nil && idx.OriginalPath != "" {
			return idx.OriginalPath
		}
	}
	return decodeProjectPath(dirName)
}

// decodeProjectPath reverses the separator flattening applied to project
// directory names: "-Users-felipe-projects-foo" -> "/Users/felipe/projects/foo".
// Lossy when the original path itself contained "-"; accepted as a
// display-only hint.
func decodeProjectPath(dirName string) string {
	if strings.HasPrefix(dirName, "-") {
		return "/" + strings.ReplaceAll(dirName[1:], "-", "/")
	}
	return strings.ReplaceAll(dirName, "-", "/")
}
