// Package fingerprint derives content identities for photo files.
//
// The digest of choice is SHA-256 over the embedded EXIF thumbnail: the
// thumbnail survives metadata edits that rewrite the surrounding file, so
// re-tagged copies of the same shot still collapse to one identity. Files
// without a thumbnail are digested whole.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Source names which bytes produced a digest.
type Source string

const (
	// SourceThumbnail digests the embedded EXIF thumbnail.
	SourceThumbnail Source = "thumbnail"
	// SourceContent digests the full file.
	SourceContent Source = "content"
)

// Result pairs a hex digest with the bytes it was derived from.
type Result struct {
	Digest string
	Source Source
}

// ForFile prefers the embedded thumbnail when present and falls back to
// hashing the full file content.
func ForFile(path string, thumbnail []byte) (Result, error) {
	if len(thumbnail) > 0 {
		return Thumbnail(thumbnail), nil
	}
	return File(path)
}

// Thumbnail digests embedded thumbnail bytes.
func Thumbnail(thumb []byte) Result {
	sum := sha256.Sum256(thumb)
	return Result{Digest: hex.EncodeToString(sum[:]), Source: SourceThumbnail}
}

// File streams the file at path through SHA-256.
func File(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return Result{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Result{Digest: hex.EncodeToString(hasher.Sum(nil)), Source: SourceContent}, nil
}
