package testsupport

import (
	"bytes"
	"encoding/binary"
	"sort"
	"testing"
)

// JPEGSpec describes a generated test JPEG: EXIF timestamp fields (in the
// EXIF "2006:01:02 15:04:05" layout), an optional embedded thumbnail, and
// trailing bytes appended after the end-of-image marker to vary full-file
// content without touching the EXIF block.
type JPEGSpec struct {
	DateTimeOriginal  string
	DateTimeDigitized string
	DateTime          string
	Software          string
	Make              string
	Model             string
	Thumbnail         []byte
	Extra             []byte
}

// WriteJPEG encodes spec and writes the result to path.
func WriteJPEG(t testing.TB, path string, spec JPEGSpec) {
	t.Helper()
	WriteFile(t, path, EncodeJPEG(spec))
}

// EncodeJPEG assembles a minimal baseline JPEG around the EXIF fields in
// spec. The frame carries enough structure for image.DecodeConfig to read
// dimensions, and the APP1 segment parses with goexif. A zero spec yields a
// valid JPEG with no EXIF block at all.
func EncodeJPEG(spec JPEGSpec) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8}) // SOI

	// JFIF APP0 ahead of the EXIF APP1.
	buf.Write([]byte{
		0xFF, 0xE0, 0x00, 0x10,
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01,
		0x00,
		0x00, 0x01, 0x00, 0x01,
		0x00, 0x00,
	})

	if payload := encodeEXIFSegment(spec); len(payload) > 0 {
		length := uint16(len(payload) + 2)
		buf.Write([]byte{0xFF, 0xE1, byte(length >> 8), byte(length)})
		buf.Write(payload)
	}

	// 8x8 grayscale SOF0.
	buf.Write([]byte{
		0xFF, 0xC0, 0x00, 0x0B,
		0x08,
		0x00, 0x08,
		0x00, 0x08,
		0x01,
		0x01, 0x11, 0x00,
	})

	buf.Write([]byte{0xFF, 0xD9}) // EOI
	buf.Write(spec.Extra)
	return buf.Bytes()
}

// encodeEXIFSegment builds the APP1 payload: the "Exif\x00\x00" intro
// followed by a little-endian TIFF block. String fields live flat in IFD0;
// the thumbnail, when present, hangs off IFD1 via the JPEG interchange
// offset and length tags, with offsets measured from the TIFF header as
// goexif expects.
func encodeEXIFSegment(spec JPEGSpec) []byte {
	type field struct {
		tag   uint16
		value string
	}
	fields := make([]field, 0, 6)
	add := func(tag uint16, value string) {
		if value != "" {
			fields = append(fields, field{tag: tag, value: value})
		}
	}
	add(0x010F, spec.Make)
	add(0x0110, spec.Model)
	add(0x0131, spec.Software)
	add(0x0132, spec.DateTime)
	add(0x9003, spec.DateTimeOriginal)
	add(0x9004, spec.DateTimeDigitized)
	if len(fields) == 0 && len(spec.Thumbnail) == 0 {
		return nil
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	le16 := func(w *bytes.Buffer, v uint16) { _ = binary.Write(w, binary.LittleEndian, v) }
	le32 := func(w *bytes.Buffer, v uint32) { _ = binary.Write(w, binary.LittleEndian, v) }

	var tiffBuf bytes.Buffer
	tiffBuf.WriteString("II")
	tiffBuf.Write([]byte{0x2A, 0x00})
	tiffBuf.Write([]byte{0x08, 0x00, 0x00, 0x00})

	const ifdBase = 8
	ifdSize := 2 + len(fields)*12 + 4
	valueBase := ifdBase + ifdSize

	var ifd bytes.Buffer
	var values bytes.Buffer
	le16(&ifd, uint16(len(fields)))
	for _, f := range fields {
		raw := append([]byte(f.value), 0x00)
		le16(&ifd, f.tag)
		le16(&ifd, 2) // ASCII
		le32(&ifd, uint32(len(raw)))
		if len(raw) <= 4 {
			padded := make([]byte, 4)
			copy(padded, raw)
			ifd.Write(padded)
		} else {
			le32(&ifd, uint32(valueBase+values.Len()))
			values.Write(raw)
		}
	}

	ifd1Offset := 0
	if len(spec.Thumbnail) > 0 {
		ifd1Offset = valueBase + values.Len()
	}
	le32(&ifd, uint32(ifd1Offset))

	tiffBuf.Write(ifd.Bytes())
	tiffBuf.Write(values.Bytes())

	if len(spec.Thumbnail) > 0 {
		thumbStart := ifd1Offset + 2 + 2*12 + 4
		var ifd1 bytes.Buffer
		le16(&ifd1, 2)
		le16(&ifd1, 0x0201) // JPEGInterchangeFormat
		le16(&ifd1, 4)      // LONG
		le32(&ifd1, 1)
		le32(&ifd1, uint32(thumbStart))
		le16(&ifd1, 0x0202) // JPEGInterchangeFormatLength
		le16(&ifd1, 4)
		le32(&ifd1, 1)
		le32(&ifd1, uint32(len(spec.Thumbnail)))
		le32(&ifd1, 0)
		tiffBuf.Write(ifd1.Bytes())
		tiffBuf.Write(spec.Thumbnail)
	}

	segment := make([]byte, 0, 6+tiffBuf.Len())
	segment = append(segment, "Exif\x00\x00"...)
	segment = append(segment, tiffBuf.Bytes()...)
	return segment
}
