// Package metadata reads EXIF timestamp fields and embedded thumbnails from
// image files and resolves a capture time from them despite quirks in the
// tools that wrote the metadata.
package metadata

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

var (
	// ErrUnreadable marks files that could not be opened or read.
	ErrUnreadable = errors.New("file unreadable")
	// ErrInvalidImage marks files whose image header failed to decode.
	ErrInvalidImage = errors.New("invalid image")
)

// File holds the raw EXIF fields relevant to classification. Timestamp
// fields carry the untouched EXIF strings; parsing happens in the Resolver.
type File struct {
	Path              string
	HasEXIF           bool
	Thumbnail         []byte
	DateTimeOriginal  string
	DateTimeDigitized string
	DateTime          string
	Software          string
}

// Read extracts EXIF metadata from the image at path. Open or read failures
// return ErrUnreadable and a broken image header returns ErrInvalidImage;
// a valid image without EXIF is not an error and yields HasEXIF=false.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	x, err := exif.Decode(f)
	if err != nil {
		// The image header decoded, so a failed EXIF parse means the file
		// carries no usable metadata block. PNGs and stripped JPEGs land
		// here; absence of metadata is not a classification failure.
		return &File{Path: path}, nil
	}

	file := &File{
		Path:              path,
		HasEXIF:           true,
		DateTimeOriginal:  stringTag(x, exif.DateTimeOriginal),
		DateTimeDigitized: stringTag(x, exif.DateTimeDigitized),
		DateTime:          stringTag(x, exif.DateTime),
		Software:          stringTag(x, exif.Software),
	}
	if thumb, err := x.JpegThumbnail(); err == nil && len(thumb) > 0 {
		file.Thumbnail = thumb
	}
	return file, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
