package batch

import (
	"fmt"
	"os"
	"path/filepath"
)

// Discover expands paths into result files. A directory contributes its
// *.csv files in sorted order (not recursive); a file is taken as is.
func Discover(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", p, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}
