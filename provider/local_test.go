package provider

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalProvider_Stat(t *testing.T) {
	tempBase := t.TempDir()
	p := NewLocalProvider(tempBase)
	ctx := context.Background()

	testFile := "test-stat.txt"
	testContent := []byte("hello stat")

	if err := os.WriteFile(filepath.Join(tempBase, testFile), testContent, 0644); err != nil {
		t.Fatal(err)
	}

	info, err := p.Stat(ctx, testFile)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	if info.Name() != testFile {
		t.Errorf("expected %q, got %q", testFile, info.Name())
	}
	if info.Size() != int64(len(testContent)) {
		t.Errorf("expected size %d, got %d", len(testContent), info.Size())
	}
	if info.IsDir() {
		t.Errorf("expected isDir to be false")
	}
}

func TestLocalProvider_HasSize(t *testing.T) {
	tempBase := t.TempDir()
	p := NewLocalProvider(tempBase)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(tempBase, "a.bin"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempBase, "empty"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(tempBase, "dir"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"a.bin", 100, true},
		{"a.bin", 99, false},
		{"empty", 0, true},
		{"missing", 0, false},
		{"dir", 0, false},
	}

	for _, tt := range tests {
		if got := p.HasSize(ctx, tt.name, tt.size); got != tt.want {
			t.Errorf("HasSize(%q, %d) = %v, want %v", tt.name, tt.size, got, tt.want)
		}
	}
}

func TestLocalProvider_OpenWriteTruncatesAndCreatesParents(t *testing.T) {
	tempBase := t.TempDir()
	p := NewLocalProvider(tempBase)
	ctx := context.Background()

	testFile := "nested/deeper/test-write.txt"
	fullPath := filepath.Join(tempBase, testFile)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fullPath, []byte("old partial content that is long"), 0644); err != nil {
		t.Fatal(err)
	}

	wc, err := p.OpenWrite(ctx, testFile)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if _, err := wc.Write([]byte("new")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rc, err := p.OpenRead(ctx, testFile)
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(content) != "new" {
		t.Errorf("expected content %q, got %q", "new", content)
	}
}

func TestLocalProvider_Remove(t *testing.T) {
	tempBase := t.TempDir()
	p := NewLocalProvider(tempBase)

	if err := os.WriteFile(filepath.Join(tempBase, "gone.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := p.Remove("gone.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempBase, "gone.txt")); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, stat err = %v", err)
	}

	if err := p.Remove("never-existed.txt"); err != nil {
		t.Errorf("expected nil error removing a missing file, got %v", err)
	}
}

func TestLocalProvider_PathWithoutBase(t *testing.T) {
	p := NewLocalProvider("")
	if got := p.Path("/tmp/x/y.txt"); got != "/tmp/x/y.txt" {
		t.Errorf("Path() = %q, want %q", got, "/tmp/x/y.txt")
	}
}
