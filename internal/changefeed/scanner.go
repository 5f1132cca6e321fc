package changefeed

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover returns the feed files at path: the file itself, or every .jsonl
// file below a directory in lexical order.
func Discover(path string) ([]DiscoveredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []DiscoveredFile{newDiscovered(path)}, nil
	}

	var files []DiscoveredFile
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		files = append(files, newDiscovered(p))
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

func newDiscovered(path string) DiscoveredFile {
	return DiscoveredFile{
		Path:  path,
		Batch: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
}
