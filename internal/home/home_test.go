package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-tome")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-tome" {
			t.Errorf("expected path /tmp/test-tome, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-tome")

	t.Run("VolumesPath", func(t *testing.T) {
		expected := "/tmp/test-tome/volumes"
		if dir.VolumesPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.VolumesPath())
		}
	})

	t.Run("VolumePDFPath", func(t *testing.T) {
		expected := "/tmp/test-tome/volumes/volume_7.pdf"
		if dir.VolumePDFPath(7) != expected {
			t.Errorf("expected %s, got %s", expected, dir.VolumePDFPath(7))
		}
	})

	t.Run("DatabasePath", func(t *testing.T) {
		expected := "/tmp/test-tome/tome.db"
		if dir.DatabasePath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.DatabasePath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-tome/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	tomeDir := filepath.Join(tmpDir, "tome-test")

	dir, err := New(tomeDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Directory shouldn't exist yet
	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	// Create it
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	// Now it should exist
	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	// Volumes directory should also exist
	if _, err := os.Stat(dir.VolumesPath()); os.IsNotExist(err) {
		t.Error("volumes directory should exist after EnsureExists")
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	// Config doesn't exist
	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	// Create a config file
	configPath := dir.ConfigPath()
	if err := os.WriteFile(configPath, []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Now it should exist
	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}

func TestDir_RemoveVolumePDF(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	// Removing a missing file is fine
	if err := dir.RemoveVolumePDF(1); err != nil {
		t.Fatalf("remove of missing PDF should not error: %v", err)
	}

	path := dir.VolumePDFPath(1)
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatalf("write test PDF: %v", err)
	}
	if err := dir.RemoveVolumePDF(1); err != nil {
		t.Fatalf("remove PDF: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PDF should be gone after RemoveVolumePDF")
	}
}
