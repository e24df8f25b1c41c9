// Package slavetype maps requested machine-type names onto the canonical
// slave types the loan tool can hand out. The table is static configuration;
// resolution does no I/O and never mutates, so it is safe on every request.
package slavetype

import "path"

// slavePatterns maps each canonical slave type to the hostname globs that
// identify physical machines of that type.
var slavePatterns = map[string][]string{
	"b-2008-ix": {
		"b-2008-ix-*",
		"b-2008-sm-*",
		"w64-ix-*",
	},
	"b-linux64": {
		"b-linux64-hp-*",
		"b-linux64-ix-*",
	},
	"bld-linux64": {
		"bld-linux64-ec2-*",
	},
	"t-mavericks-r5": {
		"t-mavericks-r5-*",
	},
	"t-snow-r4": {
		"t-snow-r4-*",
	},
	"t-w732-ix": {
		"t-w732-ix-*",
	},
	"t-xp32-ix": {
		"t-xp32-ix-*",
	},
	"tst-linux32": {
		"tst-linux32-ec2-*",
	},
	"tst-linux64": {
		"tst-linux64-ec2-*",
	},
}

// Resolve maps a requested name to its canonical slave type. The name may be
// the canonical type itself or a concrete slave hostname matching one of the
// type's globs. Returns false when nothing matches.
func Resolve(requested string) (string, bool) {
	if _, ok := slavePatterns[requested]; ok {
		return requested, true
	}
	for slaveType, globs := range slavePatterns {
		for _, glob := range globs {
			if ok, err := path.Match(glob, requested); err == nil && ok {
				return slaveType, true
			}
		}
	}
	return "", false
}

// Patterns returns the full canonical-type to hostname-glob mapping. The
// result is a copy; callers cannot mutate the static table through it.
func Patterns() map[string][]string {
	out := make(map[string][]string, len(slavePatterns))
	for slaveType, globs := range slavePatterns {
		out[slaveType] = append([]string(nil), globs...)
	}
	return out
}

// MatchHost reports whether a hostname belongs to the given canonical type.
func MatchHost(slaveType, host string) bool {
	for _, glob := range slavePatterns[slaveType] {
		if ok, err := path.Match(glob, host); err == nil && ok {
			return true
		}
	}
	return false
}
