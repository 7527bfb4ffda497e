package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shutterbox/internal/fileutil"
	"shutterbox/internal/testsupport"
)

func TestCopyFilePreservesContentAndMetadata(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "nested", "dst.jpg")
	testsupport.WriteFile(t, src, []byte("photo bytes"))

	modTime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(src, modTime, modTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chmod(src, 0o600); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "photo bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat dst: %v", err)
	}
	if !info.ModTime().Equal(modTime) {
		t.Fatalf("expected mod time preserved, got %v", info.ModTime())
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode preserved, got %v", info.Mode().Perm())
	}

	// The source must survive a copy.
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected source intact: %v", err)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.CopyFile(filepath.Join(dir, "absent.jpg"), filepath.Join(dir, "dst.jpg"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	testsupport.WriteFile(t, src, []byte("new content"))
	testsupport.WriteFile(t, dst, []byte("old content that is longer"))

	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "new content" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestMoveFileRemovesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "album", "dst.jpg")
	testsupport.WriteFile(t, src, []byte("move me"))

	if err := fileutil.MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, got %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "move me" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestLinkFileResolvesChains(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.jpg")
	testsupport.WriteFile(t, real, []byte("real"))

	intermediate := filepath.Join(dir, "intermediate.jpg")
	if err := os.Symlink(real, intermediate); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(dir, "library", "linked.jpg")
	if err := fileutil.LinkFile(intermediate, dst); err != nil {
		t.Fatalf("LinkFile failed: %v", err)
	}

	target, err := os.Readlink(dst)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	resolvedReal, err := filepath.EvalSymlinks(real)
	if err != nil {
		t.Fatalf("resolve real: %v", err)
	}
	if target != resolvedReal {
		t.Fatalf("expected link to resolved file %s, got %s", resolvedReal, target)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read through link: %v", err)
	}
	if string(data) != "real" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestLinkFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.LinkFile(filepath.Join(dir, "absent.jpg"), filepath.Join(dir, "dst.jpg"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
