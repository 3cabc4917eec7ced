// Package distro detects the host package manager family and installs
// the packages Perch needs to build from source.
package distro

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Family identifies the package-manager family perchup knows how to
// drive.
type Family string

const (
	FamilyApt    Family = "apt"
	FamilyDnf    Family = "dnf"
	FamilyPacman Family = "pacman"
)

// Info describes the detected distribution.
type Info struct {
	ID       string // os-release ID, e.g. "ubuntu"
	IDLike   string // os-release ID_LIKE, e.g. "debian"
	Codename string // os-release VERSION_CODENAME
	Family   Family
}

// osReleasePath is swapped out in tests.
var osReleasePath = "/etc/os-release"

// Detect reads /etc/os-release and maps the distribution onto a
// package-manager family, falling back to probing for the package
// manager binaries when the file is unhelpful.
func Detect() (*Info, error) {
	info := &Info{}

	vals, err := parseOSRelease(osReleasePath)
	if err == nil {
		info.ID = vals["ID"]
		info.IDLike = vals["ID_LIKE"]
		info.Codename = vals["VERSION_CODENAME"]
	}

	if family, ok := familyFor(info.ID, info.IDLike); ok {
		info.Family = family
		return info, nil
	}

	// Unknown or missing os-release: trust the binaries instead.
	for _, probe := range []struct {
		binary string
		family Family
	}{
		{"apt-get", FamilyApt},
		{"dnf", FamilyDnf},
		{"pacman", FamilyPacman},
	} {
		if _, err := exec.LookPath(probe.binary); err == nil {
			info.Family = probe.family
			return info, nil
		}
	}

	return nil, fmt.Errorf("unsupported distribution %q: no apt-get, dnf, or pacman found", info.ID)
}

// parseOSRelease reads the KEY=value pairs from an os-release file.
func parseOSRelease(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	vals := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			vals[parts[0]] = strings.Trim(parts[1], `"`)
		}
	}
	return vals, nil
}

// familyFor maps os-release identity fields onto a Family.
func familyFor(id, idLike string) (Family, bool) {
	ids := append([]string{id}, strings.Fields(idLike)...)
	for _, candidate := range ids {
		switch candidate {
		case "debian", "ubuntu", "linuxmint", "pop", "raspbian":
			return FamilyApt, true
		case "fedora", "rhel", "centos", "rocky", "almalinux":
			return FamilyDnf, true
		case "arch", "manjaro", "endeavouros":
			return FamilyPacman, true
		}
	}
	return "", false
}

// CanBuildDeb reports whether the host can produce a Debian package.
func CanBuildDeb() bool {
	_, err := exec.LookPath("dpkg-deb")
	return err == nil
}
