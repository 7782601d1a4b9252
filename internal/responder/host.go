package responder

import (
	"os"
	"strings"

	"github.com/dcoker/llmnrd/internal/wire"
)

// hostLabel derives the short host name this responder answers for:
// the local hostname truncated at the first '.' and to
// wire.MaxLabelLength octets, exactly as the original
// matching_host_name derived it from gethostname(3).
func hostLabel(override string) (string, error) {
	name := override
	if name == "" {
		h, err := os.Hostname()
		if err != nil {
			return "", err
		}
		name = h
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if len(name) > wire.MaxLabelLength {
		name = name[:wire.MaxLabelLength]
	}
	return name, nil
}

// matchesHost reports whether qname (a single label, no trailing
// root marker) is an ASCII case-insensitive match for host.
func matchesHost(qname, host string) bool {
	return wire.EqualFoldASCII([]byte(qname), []byte(host))
}
