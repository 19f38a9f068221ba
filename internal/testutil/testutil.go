// Package testutil holds test doubles shared across packages.
package testutil

// UbuntuOSRelease is a representative /etc/os-release.
const UbuntuOSRelease = `PRETTY_NAME="Ubuntu 24.04.1 LTS"
NAME="Ubuntu"
VERSION_ID="24.04"
ID=ubuntu
ID_LIKE=debian
`

// NewUbuntuHost returns a FakeSystem with os-release and the base system tools in place.
func NewUbuntuHost() *FakeSystem {
	f := NewFakeSystem()
	f.AddFile("/etc/os-release", UbuntuOSRelease, 0o644)
	for _, bin := range []string{"/usr/bin/apt-get", "/usr/bin/dpkg-query", "/usr/bin/id", "/usr/bin/tar", "/usr/bin/chown", "/usr/sbin/useradd", "/usr/sbin/usermod"} {
		f.AddExecutable(bin)
	}
	return f
}
