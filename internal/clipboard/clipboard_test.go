package clipboard

import (
	"os/exec"
	"testing"
)

func TestRunReader(t *testing.T) {
	out, err := runReader(exec.Command("echo", "hello"))
	if err != nil {
		t.Fatalf("runReader() error: %v", err)
	}
	if out != "hello\n" {
		t.Fatalf("runReader() = %q, want %q", out, "hello\n")
	}
}

func TestRunReaderCommandMissing(t *testing.T) {
	if _, err := runReader(exec.Command("definitely-not-a-real-command-xyz")); err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestRunWriter(t *testing.T) {
	if err := runWriter(exec.Command("cat"), "some text"); err != nil {
		t.Fatalf("runWriter() error: %v", err)
	}
}
