package dbhost

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Vendor is the upstream DBMS a server was built from.
type Vendor uint16

// Constants enumerating vendors
const (
	VendorUnknown Vendor = iota
	VendorMySQL
	VendorMariaDB
)

func (v Vendor) String() string {
	switch v {
	case VendorMySQL:
		return "mysql"
	case VendorMariaDB:
		return "mariadb"
	default:
		return "unknown"
	}
}

// Version is a major, minor, patch tuple.
type Version [3]uint16

// Major returns the major version number.
func (ver Version) Major() uint16 { return ver[0] }

// Minor returns the minor version number.
func (ver Version) Minor() uint16 { return ver[1] }

// Patch returns the point release number.
func (ver Version) Patch() uint16 { return ver[2] }

func (ver Version) String() string {
	return fmt.Sprintf("%d.%d.%d", ver[0], ver[1], ver[2])
}

func (ver Version) pack() uint64 {
	return uint64(ver[0])<<32 | uint64(ver[1])<<16 | uint64(ver[2])
}

// AtLeast returns true if ver >= other.
func (ver Version) AtLeast(other Version) bool {
	return ver.pack() >= other.pack()
}

// Below returns true if ver < other.
func (ver Version) Below(other Version) bool {
	return ver.pack() < other.pack()
}

// ParseVersion parses a dotted version number such as the value of the
// version server variable. Non-digit text before the major version, or after
// the patch version (e.g. "-MariaDB-log"), is ignored. Components that fail to
// parse are left as zero, and the last such failure is returned.
func ParseVersion(s string) (ver Version, err error) {
	for n, part := range strings.SplitN(s, ".", 3) {
		switch n {
		case 0:
			if pos := strings.IndexFunc(part, unicode.IsDigit); pos > 0 {
				part = part[pos:]
			}
		case 2:
			if pos := strings.IndexFunc(part, func(r rune) bool { return !unicode.IsDigit(r) }); pos > -1 {
				part = part[:pos]
			}
		}
		num, parseErr := strconv.ParseUint(part, 10, 16)
		if parseErr != nil {
			err = parseErr
		}
		ver[n] = uint16(num)
	}
	return ver, err
}

// Flavor describes a database server release.
type Flavor struct {
	Vendor  Vendor
	Version Version
	Percona bool
}

// FlavorUnknown is the zero value of Flavor.
var FlavorUnknown = Flavor{}

// IdentifyFlavor determines a Flavor from the values of the version and
// version_comment server variables. Distributions sometimes strip the vendor
// name from both; in that case the major version decides.
func IdentifyFlavor(version, versionComment string) (fl Flavor) {
	fl.Version, _ = ParseVersion(version)
	combined := strings.ToLower(version + " " + versionComment)
	switch {
	case strings.Contains(combined, "percona"):
		fl.Vendor, fl.Percona = VendorMySQL, true
	case strings.Contains(combined, "mariadb"):
		fl.Vendor = VendorMariaDB
	case strings.Contains(combined, "mysql"):
		fl.Vendor = VendorMySQL
	}
	if fl.Vendor == VendorUnknown {
		switch fl.Version.Major() {
		case 10, 11:
			fl.Vendor = VendorMariaDB
		case 5, 8, 9:
			fl.Vendor = VendorMySQL
		}
	}
	return fl
}

// Known returns true if both the vendor and major version were determined.
func (fl Flavor) Known() bool {
	return fl.Vendor != VendorUnknown && fl.Version.Major() > 0
}

// IsMariaDB returns true if the flavor is any MariaDB release.
func (fl Flavor) IsMariaDB() bool {
	return fl.Vendor == VendorMariaDB
}

// Family returns a copy of fl without its patch version. Servers in the same
// family are expected to render SHOW CREATE TABLE identically.
func (fl Flavor) Family() Flavor {
	fl.Version[2] = 0
	return fl
}

func (fl Flavor) String() string {
	base := fl.Vendor.String()
	if fl.Percona {
		base = "percona"
	}
	if fl.Version.Patch() > 0 {
		return fmt.Sprintf("%s:%d.%d.%d", base, fl.Version[0], fl.Version[1], fl.Version[2])
	}
	return fmt.Sprintf("%s:%d.%d", base, fl.Version[0], fl.Version[1])
}
