package metadata

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// exifTimeLayout is the date format EXIF uses for all timestamp fields.
const exifTimeLayout = "2006:01:02 15:04:05"

// Epoch is the timestamp assigned to files whose capture time cannot be
// resolved. Entries carrying it are flagged synthetic so they are never
// confused with a photo genuinely taken at the epoch.
var Epoch = time.Unix(0, 0).UTC()

// Resolver turns raw EXIF fields into a capture time, working around
// metadata writers known to corrupt the primary capture tag.
type Resolver struct {
	knownBadSoftware []string
}

// NewResolver builds a Resolver. Matching against knownBadSoftware is a
// case-insensitive substring test on the EXIF software tag.
func NewResolver(knownBadSoftware []string) *Resolver {
	normalized := make([]string, 0, len(knownBadSoftware))
	for _, name := range knownBadSoftware {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			normalized = append(normalized, name)
		}
	}
	return &Resolver{knownBadSoftware: normalized}
}

// CaptureTime resolves the capture timestamp for f, first match wins. Files
// written by a known-bad tool trust the digitized tag ahead of the original
// tag, since that class of software rewrites the original tag incorrectly
// while leaving the digitized tag intact. When no field parses, the Unix
// epoch is returned with synthetic=true.
func (r *Resolver) CaptureTime(f *File) (time.Time, bool) {
	if f == nil || !f.HasEXIF {
		return Epoch, true
	}

	candidates := []string{f.DateTimeOriginal, f.DateTime}
	if r.badSoftware(f.Software) {
		candidates = []string{f.DateTimeDigitized, f.DateTimeOriginal, f.DateTime}
	}
	for _, value := range candidates {
		if t, err := ParseEXIFTime(value); err == nil {
			return t, false
		}
	}
	return Epoch, true
}

func (r *Resolver) badSoftware(software string) bool {
	if software == "" {
		return false
	}
	software = strings.ToLower(software)
	for _, bad := range r.knownBadSoftware {
		if strings.Contains(software, bad) {
			return true
		}
	}
	return false
}

// ParseEXIFTime parses an EXIF-formatted timestamp. EXIF carries no zone
// information, so values are taken as UTC.
func ParseEXIFTime(value string) (time.Time, error) {
	value = strings.TrimRight(strings.TrimSpace(value), "\x00")
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	t, err := time.Parse(exifTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse exif time %q: %w", value, err)
	}
	return t, nil
}
