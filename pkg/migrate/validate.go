package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// File is one migration found in a source tree.
type File struct {
	Version int64
	Name    string
}

// Scan lists migrations in fsys ordered by version, rejecting malformed
// names, duplicate versions and files without both goose sections.
func Scan(fsys fs.FS) ([]File, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var files []File
	byVersion := make(map[int64]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := fileNameRe.FindStringSubmatch(name)
		if match == nil {
			return nil, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name)
		}
		version, _ := strconv.ParseInt(match[1], 10, 64)
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("version %d used by %s and %s", version, prev, name)
		}
		byVersion[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return nil, fmt.Errorf("%s: missing %q", name, marker)
			}
		}
		files = append(files, File{Version: version, Name: name})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// Validate reports the first problem Scan finds.
func Validate(fsys fs.FS) error {
	_, err := Scan(fsys)
	return err
}
