package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDoctorCommand(t *testing.T) {
	if doctorCmd == nil {
		t.Fatal("doctorCmd is nil")
	}

	if doctorCmd.Use != "doctor" {
		t.Errorf("doctorCmd.Use = %q, want %q", doctorCmd.Use, "doctor")
	}

	if doctorCmd.Short == "" {
		t.Error("doctorCmd.Short is empty")
	}

	if doctorCmd.RunE == nil {
		t.Error("doctorCmd.RunE is nil")
	}
}

func TestDoctorUsageExamples(t *testing.T) {
	if doctorCmd.Long == "" {
		t.Error("doctorCmd.Long is empty")
	}

	// The exit-code contract is part of the interface; scripts depend
	// on it.
	keywords := []string{"Build tools", "Settings", "Backup", "warnings"}
	for _, keyword := range keywords {
		if !strings.Contains(doctorCmd.Long, keyword) {
			t.Errorf("doctorCmd.Long missing keyword %q", keyword)
		}
	}
}

func TestWritableDir(t *testing.T) {
	dir := t.TempDir()

	if err := writableDir(dir); err != nil {
		t.Errorf("writableDir on an existing dir: %v", err)
	}

	// Leaves no probe files behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("writableDir left %d files behind", len(entries))
	}

	nested := filepath.Join(dir, "deep", "backups")
	if err := writableDir(nested); err != nil {
		t.Errorf("writableDir should create missing dirs: %v", err)
	}
	if _, err := os.Stat(nested); err != nil {
		t.Errorf("nested dir was not created: %v", err)
	}

	blocked := filepath.Join(dir, "file")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := writableDir(blocked); err == nil {
		t.Error("writableDir on a regular file should fail")
	}
}
