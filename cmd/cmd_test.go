package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

const fixture = `[{"id":"1","name":"Sam"},{"id":"2","instrument":"guitar"}]`

func TestExportCommand(t *testing.T) {
	in := writeFixture(t, fixture)
	out := filepath.Join(t.TempDir(), "data.csv")

	if _, err := run(t, "export", in, "--out", out, "--cache-dir", t.TempDir()); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	want := "id,name,instrument\n1,Sam,\n2,,guitar\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExportCommandMalformedRemovesOutput(t *testing.T) {
	in := writeFixture(t, `[{"id":"1"},`)
	out := filepath.Join(t.TempDir(), "data.csv")

	if _, err := run(t, "export", in, "--out", out, "--cache-dir", t.TempDir()); err == nil {
		t.Fatal("expected an error for a truncated array")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file should have been removed, stat err = %v", err)
	}
}

func TestHeadersCommand(t *testing.T) {
	in := writeFixture(t, fixture)

	out, err := run(t, "headers", in, "--count", "--cache-dir", t.TempDir())
	if err != nil {
		t.Fatalf("headers failed: %v", err)
	}
	if out != "id\nname\ninstrument\n\n2 object(s)\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", writeFixture(t, fixture))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "2 object(s)") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = run(t, "validate", writeFixture(t, `[1]`))
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	if !strings.Contains(out, "Validation failed at byte") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, "stats", writeFixture(t, fixture))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, want := range []string{"Total records: 2", "Columns: 3", "  name: 1 (50.0%)", "    string: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestRejectsConflictingCacheFlags(t *testing.T) {
	in := writeFixture(t, fixture)
	_, err := run(t, "headers", in, "--cache-dir", t.TempDir(), "--cache-file", filepath.Join(t.TempDir(), "cachedFile"))
	if err == nil {
		t.Fatal("expected --cache-dir and --cache-file to conflict")
	}
	cfg.CacheFile = ""
}
