package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// mockRunner implements Runner
type mockRunner struct {
	failOn string
}

func (m *mockRunner) RunFile(ctx context.Context, path string) (*model.RunResult, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.failOn != "" && strings.HasSuffix(path, m.failOn) {
		return nil, errors.New("run error")
	}
	return &model.RunResult{
		ID:     path,
		Claims: []model.Claim{{Text: "Revenue grew 20%", Index: 0}},
	}, nil
}

func TestBatchProcessor_ProcessPaths(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 2)

	paths := []string{"a.txt", "b.txt", "c.txt"}
	results := processor.ProcessPaths(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d path = %s, want %s", i, res.Path, paths[i])
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Path, res.Error)
		}
		if res.Run == nil {
			t.Error("expected run for successful transcript")
		}
	}
}

func TestBatchProcessor_ProcessPaths_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{failOn: "bad.txt"}, 2)

	results := processor.ProcessPaths(context.Background(), []string{"good.txt", "bad.txt"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Error != nil {
		t.Errorf("good.txt failed: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for bad.txt")
	}
	if results[1].Run != nil {
		t.Error("expected nil run on error")
	}
}

func TestBatchProcessor_ProcessPaths_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 2)

	results := processor.ProcessPaths(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadPathsFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `q1.txt
# comment
/abs/q2.txt
   
q1.txt
q3.txt   `

	listPath := filepath.Join(dir, "transcripts.list")
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		t.Fatalf("ReadPathsFromFile failed: %v", err)
	}

	expected := []string{filepath.Join(dir, "q1.txt"), "/abs/q2.txt", filepath.Join(dir, "q3.txt")}
	if len(paths) != len(expected) {
		t.Fatalf("expected %d paths, got %d: %v", len(expected), len(paths), paths)
	}
	for i, p := range paths {
		if p != expected[i] {
			t.Errorf("path %d = %s, want %s", i, p, expected[i])
		}
	}
}

func TestReadPathsFromFile_Missing(t *testing.T) {
	if _, err := ReadPathsFromFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing list file")
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "notes.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := ExpandPaths([]string{dir, filepath.Join(dir, "a.txt")})
	if err != nil {
		t.Fatalf("ExpandPaths failed: %v", err)
	}

	expected := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}
	if len(paths) != len(expected) {
		t.Fatalf("got %v", paths)
	}
	for i := range expected {
		if paths[i] != expected[i] {
			t.Errorf("path %d = %s, want %s", i, paths[i], expected[i])
		}
	}

	if _, err := ExpandPaths([]string{filepath.Join(dir, "missing-*.txt")}); err == nil {
		t.Error("expected error for unmatched glob")
	}
}
