// Package importer reads Hibiscus CSV exports and stages their rows.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo describes a CSV file waiting in an import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// ProcessedDir is the subdirectory processed files are moved to.
const ProcessedDir = "processed"

// Scan returns the CSV files directly inside dir, sorted by name. Hidden
// files such as office lock files are skipped.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/ and returns its new
// path. An earlier file of the same name is kept: the moved file then gets a
// numeric suffix, as in export-1.csv.
func MarkProcessed(dir, fileName string) (string, error) {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed dir: %w", err)
	}

	dst, err := freeName(dstDir, fileName)
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return dst, nil
}

// maxSuffix bounds the search for a free name in the processed dir.
const maxSuffix = 1000

func freeName(dir, fileName string) (string, error) {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	name := fileName
	for i := 1; i <= maxSuffix; i++ {
		dst := filepath.Join(dir, name)
		_, err := os.Lstat(dst)
		if os.IsNotExist(err) {
			return dst, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", dst, err)
		}
		name = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	return "", fmt.Errorf("no free name for %s in %s", fileName, dir)
}
