package enroller

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// HostSpec is one requested certificate subject: a common name plus any
// subject alternative names.
type HostSpec struct {
	CommonName string
	AltNames   []string
}

// key returns the exact-tuple identity of the spec, used for deduplication.
func (h HostSpec) key() string {
	return h.CommonName + "\x00" + strings.Join(h.AltNames, "\x00")
}

// ParseHostLine splits one host file line into a HostSpec. The first
// whitespace-separated token is the common name, the rest are SANs.
// Duplicate SANs within the line are dropped, preserving first occurrence
// order. Blank lines yield ok == false.
func ParseHostLine(line string) (HostSpec, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return HostSpec{}, false
	}

	spec := HostSpec{CommonName: fields[0]}
	for _, san := range fields[1:] {
		if !StringSliceContains(spec.AltNames, san) {
			spec.AltNames = append(spec.AltNames, san)
		}
	}

	return spec, true
}

// ReadHostsFile reads one host per line from the file at path.
func ReadHostsFile(path string) ([]HostSpec, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open hosts file")
	}
	defer fh.Close()

	var specs []HostSpec
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		if spec, ok := ParseHostLine(scanner.Text()); ok {
			specs = append(specs, spec)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read hosts file")
	}

	return specs, nil
}

// DedupeHosts collapses exact-duplicate tuples, keeping first occurrence
// order. Two specs with the same common name but different SAN lists are
// distinct.
func DedupeHosts(hosts []HostSpec) []HostSpec {
	seen := make(map[string]struct{}, len(hosts))
	unique := make([]HostSpec, 0, len(hosts))
	for _, h := range hosts {
		k := h.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, h)
	}
	return unique
}
