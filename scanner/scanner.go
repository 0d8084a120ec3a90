package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docprobe/logger"
	"docprobe/utils"

	"github.com/spf13/afero"
)

// Options narrows and enriches a directory scan.
type Options struct {
	IncludePatterns  []string
	ExcludePatterns  []string
	HashAlgorithms   []string
	CollectMetadata  bool
	MetadataMaxBytes int64
}

// ScanError reports that the input directory could not be listed. No report
// can be produced after it.
type ScanError struct {
	Dir string
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Dir, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ScanDirectory lists the regular files directly inside dir, sorted by name.
// Subdirectories are not descended into and symbolic links are skipped.
func ScanDirectory(ctx context.Context, fs afero.Fs, dir string, opts Options) ([]FileRecord, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, &ScanError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	// afero.ReadDir sorts by name and reports lstat information on OsFs.
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, &ScanError{Dir: dir, Err: err}
	}

	filter, err := utils.NewNameFilter(opts.IncludePatterns, opts.ExcludePatterns)
	if err != nil {
		return nil, &ScanError{Dir: dir, Err: err}
	}
	modules := buildFileModules()
	records := make([]FileRecord, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Mode().IsRegular() {
			logger.Debugf("Skipping non-regular entry %s", entry.Name())
			continue
		}
		if !filter.Allows(entry.Name()) {
			logger.Debugf("Skipping filtered entry %s", entry.Name())
			continue
		}
		path := filepath.Join(dir, entry.Name())

		record := FileRecord{
			Path:      path,
			Name:      entry.Name(),
			Size:      entry.Size(),
			Extension: strings.ToLower(filepath.Ext(entry.Name())),
		}
		fc := &FileContext{Fs: fs, Path: path, Info: entry, Opts: opts}
		for _, module := range modules {
			if !module.Enabled(opts) {
				continue
			}
			if err := module.Collect(ctx, fc, &record); err != nil {
				logger.Warnf("Module %s failed for %s: %v", module.Name(), path, err)
			}
		}
		records = append(records, record)
	}
	return records, nil
}
