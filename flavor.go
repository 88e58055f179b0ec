package mysql

import "strings"

// Flavor distinguishes MySQL from MariaDB, which diverge in a handful of
// places this module cares about (error code overlap, version string
// shape). Directly adapted from teacher go/mysql/flavor.go's
// mariaDBVersionString/prefix-matching logic, narrowed to just the
// sentinel; the teacher file's GTID/replication machinery is out of scope
// (spec.md Non-goals) and is not carried over.
type Flavor int

const (
	FlavorUnknown Flavor = iota
	FlavorMySQL
	FlavorMariaDB
)

func (f Flavor) String() string {
	switch f {
	case FlavorMySQL:
		return "mysql"
	case FlavorMariaDB:
		return "mariadb"
	default:
		return "unknown"
	}
}

// DetectFlavor inspects a HandshakeV10's server_version string. MariaDB
// embeds "-MariaDB-" (or a bare "MariaDB") in its version string; anything
// else that parses as a plausible MySQL version string is treated as
// MySQL.
func DetectFlavor(serverVersion string) Flavor {
	if strings.Contains(serverVersion, "MariaDB") {
		return FlavorMariaDB
	}
	if serverVersion == "" {
		return FlavorUnknown
	}
	return FlavorMySQL
}
