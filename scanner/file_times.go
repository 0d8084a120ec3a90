package scanner

import (
	"time"

	"github.com/djherbis/times"
	"github.com/spf13/afero"
)

type FileTimes struct {
	CreationTime string
}

// fileTimes reads the birth time from the host filesystem. Other
// afero backends have no such information and yield empty values.
func fileTimes(fs afero.Fs, path string) (FileTimes, error) {
	if _, ok := fs.(*afero.OsFs); !ok {
		return FileTimes{}, nil
	}
	ts, err := times.Stat(path)
	if err != nil {
		return FileTimes{}, err
	}
	var result FileTimes
	if ts.HasBirthTime() {
		result.CreationTime = ts.BirthTime().UTC().Format(time.RFC3339)
	}
	return result, nil
}
