package enroller

import "os"

// fileExists checks whether a given file exists or not. Any stat failure,
// not just ENOENT, counts as missing: an unreadable or unreachable file is
// of no use to a caller either way.
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// StringSliceContains returns true if the string key
// exists in the string slice s.
func StringSliceContains(s []string, key string) bool {
	for _, v := range s {
		if v == key {
			return true
		}
	}

	return false
}
