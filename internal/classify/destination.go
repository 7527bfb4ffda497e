package classify

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"shutterbox/internal/metadata"
)

const (
	dirYearLayout  = "2006"
	dirMonthLayout = "2006-01"
	dirDayLayout   = "2006-01-02"
	fileLayout     = "2006_01_02-15_04_05"
)

// destinationDir returns the dated directory under target for a capture
// time: year, year-month, year-month-day, all zero padded.
func destinationDir(target string, capturedAt time.Time) string {
	return filepath.Join(
		target,
		capturedAt.Format(dirYearLayout),
		capturedAt.Format(dirMonthLayout),
		capturedAt.Format(dirDayLayout),
	)
}

// datedFilename renders the second-resolution name for a real capture time.
// ordinal is the count of prior ready entries sharing the exact timestamp;
// it is appended as ".N" before the extension for same-second bursts.
func datedFilename(capturedAt time.Time, ordinal int, ext string) string {
	name := capturedAt.Format(fileLayout)
	if ordinal > 0 {
		name = fmt.Sprintf("%s.%d", name, ordinal)
	}
	return name + ext
}

// undatedFilename renders the epoch-stamped name for files without a
// resolvable capture time. counter is scoped to the whole run, keeping the
// names unique even though they share the literal epoch timestamp.
func undatedFilename(counter int, ext string) string {
	return fmt.Sprintf("%s_%d%s", metadata.Epoch.Format(fileLayout), counter, ext)
}

// normalizeExt lowercases the source extension so destination names stay
// uniform regardless of how the camera cased them.
func normalizeExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
