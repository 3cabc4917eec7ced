package helper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInstallCreatesExecutableScript(t *testing.T) {
	binDir := t.TempDir()

	changed, err := Install(binDir)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !changed {
		t.Error("expected changed=true on first install")
	}

	scriptPath := filepath.Join(binDir, ScriptName)
	info, err := os.Stat(scriptPath)
	if err != nil {
		t.Fatalf("script missing: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("script is not executable: %v", info.Mode())
	}

	data, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "#!/bin/sh") {
		t.Errorf("script missing shebang:\n%s", content)
	}
	if !strings.Contains(content, `exec perchup update "$@"`) {
		t.Errorf("script does not exec perchup update:\n%s", content)
	}

	if !Installed(binDir) {
		t.Error("Installed should report true after Install")
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	binDir := t.TempDir()

	if _, err := Install(binDir); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	changed, err := Install(binDir)
	if err != nil {
		t.Fatalf("second Install failed: %v", err)
	}
	if changed {
		t.Error("expected changed=false when the script is already current")
	}
}

func TestInstallReplacesOutdatedScript(t *testing.T) {
	binDir := t.TempDir()
	scriptPath := filepath.Join(binDir, ScriptName)
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\necho old\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	changed, err := Install(binDir)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !changed {
		t.Error("expected changed=true when replacing an outdated script")
	}

	data, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "echo old") {
		t.Error("outdated script contents survived Install")
	}
}

func TestInstalledFalseForMissingOrPlainFile(t *testing.T) {
	binDir := t.TempDir()
	if Installed(binDir) {
		t.Error("Installed should be false for an empty dir")
	}

	if err := os.WriteFile(filepath.Join(binDir, ScriptName), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if Installed(binDir) {
		t.Error("Installed should be false for a non-executable file")
	}
}

func TestEnsurePathEntryAlreadyOnPath(t *testing.T) {
	dir := t.TempDir()

	original := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", original) })
	os.Setenv("PATH", dir+string(filepath.ListSeparator)+original)

	added, configFile, err := EnsurePathEntry(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added {
		t.Error("expected added=false when dir is already on PATH")
	}
	if configFile != "" {
		t.Errorf("expected empty configFile, got %q", configFile)
	}
}

func TestEnsurePathEntryAppendsWithMarker(t *testing.T) {
	home := t.TempDir()
	binDir := filepath.Join(home, "bin")

	t.Setenv("HOME", home)
	t.Setenv("SHELL", "/bin/zsh")

	origPath := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", origPath) })
	os.Setenv("PATH", "/usr/bin:/bin")

	zprofile := filepath.Join(home, ".zprofile")
	if err := os.WriteFile(zprofile, []byte("# existing\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	added, configFile, err := EnsurePathEntry(binDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !added {
		t.Error("expected added=true")
	}
	if configFile != zprofile {
		t.Errorf("expected %q, got %q", zprofile, configFile)
	}

	data, err := os.ReadFile(zprofile)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# existing\n") {
		t.Errorf("existing content was clobbered:\n%s", content)
	}
	if !strings.Contains(content, pathMarker) {
		t.Errorf("marker missing from config:\n%s", content)
	}
	if !strings.Contains(content, binDir) {
		t.Errorf("bin dir missing from config:\n%s", content)
	}

	// A second call must not duplicate the entry.
	added, _, err = EnsurePathEntry(binDir)
	if err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
	if added {
		t.Error("expected added=false when the marker is already present")
	}
	again, err := os.ReadFile(zprofile)
	if err != nil {
		t.Fatal(err)
	}
	if count := strings.Count(string(again), pathMarker); count != 1 {
		t.Errorf("expected exactly one marker, found %d", count)
	}
}

func TestEnsurePathEntryFishSyntax(t *testing.T) {
	home := t.TempDir()
	binDir := filepath.Join(home, "bin")

	t.Setenv("HOME", home)
	t.Setenv("SHELL", "/usr/bin/fish")

	origPath := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", origPath) })
	os.Setenv("PATH", "/usr/bin:/bin")

	added, configFile, err := EnsurePathEntry(binDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !added {
		t.Error("expected added=true")
	}

	want := filepath.Join(home, ".config", "fish", "conf.d", "perchup.fish")
	if configFile != want {
		t.Errorf("expected %q, got %q", want, configFile)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "export PATH") {
		t.Errorf("fish config should not use export PATH:\n%s", content)
	}
	if !strings.Contains(content, "fish_add_path") {
		t.Errorf("expected fish_add_path:\n%s", content)
	}
}

func TestConfigFileFor(t *testing.T) {
	home := "/home/u"
	tests := []struct {
		shell  string
		want   string
		isFish bool
	}{
		{"zsh", "/home/u/.zprofile", false},
		{"bash", "/home/u/.bash_profile", false},
		{"fish", "/home/u/.config/fish/conf.d/perchup.fish", true},
		{"sh", "/home/u/.profile", false},
		{"", "/home/u/.profile", false},
	}
	for _, tt := range tests {
		got, isFish := configFileFor(tt.shell, home)
		if got != tt.want || isFish != tt.isFish {
			t.Errorf("configFileFor(%q) = (%q, %v), want (%q, %v)", tt.shell, got, isFish, tt.want, tt.isFish)
		}
	}
}
