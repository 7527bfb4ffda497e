package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shutterbox/internal/testsupport"
)

func seedCard(t *testing.T, env *cliTestEnv) {
	t.Helper()
	testsupport.WriteJPEG(t, filepath.Join(env.sourceDir, "IMG_0001.JPG"), testsupport.JPEGSpec{
		DateTimeOriginal: "2020:01:02 03:04:05",
	})
	testsupport.WriteJPEG(t, filepath.Join(env.sourceDir, "IMG_0002.JPG"), testsupport.JPEGSpec{
		DateTimeOriginal: "2021:05:06 07:08:09",
	})
	testsupport.WriteFile(t, filepath.Join(env.sourceDir, "notes.txt"), []byte("not a photo"))
}

func TestImportCommandFilesPhotos(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCard(t, env)

	out, _, err := runCLI(t, env.configPath, "import", env.sourceDir)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	requireContains(t, out, "Apply (copy): 2 applied")

	want := filepath.Join(env.libraryDir, "2020", "2020-01", "2020-01-02", "2020_01_02-03_04_05.jpg")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected %s in library: %v", want, err)
	}
}

func TestPlanApplyStatusFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCard(t, env)

	out, _, err := runCLI(t, env.configPath, "plan", env.sourceDir)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	requireContains(t, out, "IMG_0001.JPG")
	requireContains(t, out, "2 ready; run `shutterbox apply` to file them")

	dated := filepath.Join(env.libraryDir, "2020", "2020-01", "2020-01-02", "2020_01_02-03_04_05.jpg")
	if _, err := os.Stat(dated); err == nil {
		t.Fatal("plan must not write to the library")
	}

	out, _, err = runCLI(t, env.configPath, "apply")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	requireContains(t, out, "2 applied")
	if _, err := os.Stat(dated); err != nil {
		t.Fatalf("expected %s after apply: %v", dated, err)
	}

	out, _, err = runCLI(t, env.configPath, "apply")
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	requireContains(t, out, "Nothing pending")

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, out, "Last run:")
	requireContains(t, out, env.sourceDir)
	requireContains(t, out, "Environment:")
	requireContains(t, out, "Config:")
	requireContains(t, out, "Staging directory: [OK]")
}

func TestListCommandFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCard(t, env)

	out, _, err := runCLI(t, env.configPath, "list")
	if err != nil {
		t.Fatalf("list on empty ledger failed: %v", err)
	}
	requireContains(t, out, "Ledger is empty")

	if _, _, err := runCLI(t, env.configPath, "import", env.sourceDir); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	requireContains(t, out, "IMG_0001.JPG")
	requireContains(t, out, "notes.txt")

	out, _, err = runCLI(t, env.configPath, "list", "--status", "ignored")
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	requireContains(t, out, "notes.txt")
	if strings.Contains(out, "IMG_0001.JPG") {
		t.Fatalf("expected ready entries filtered out, got %q", out)
	}

	if _, _, err := runCLI(t, env.configPath, "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to error")
	}
}

func TestClearErasesLedgerHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCard(t, env)

	if _, _, err := runCLI(t, env.configPath, "import", env.sourceDir); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "clear")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	requireContains(t, out, "Cleared 3 ledger entries")

	out, _, err = runCLI(t, env.configPath, "apply")
	if err != nil {
		t.Fatalf("apply after clear failed: %v", err)
	}
	requireContains(t, out, "Nothing pending")

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status after clear failed: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestImportRequiresSourceArgument(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env.configPath, "import"); err == nil {
		t.Fatal("expected error when SOURCE is missing")
	}
}

func TestWatchRefusesWhenDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath, "watch")
	if err == nil {
		t.Fatal("expected watch to fail when disabled in config")
	}
	requireContains(t, err.Error(), "watch mode is disabled")
}
