package wire

import (
	"strings"

	"github.com/dcoker/llmnrd/internal/wireerr"
)

// pointerMask identifies the top two bits of an RFC 1035 §4.1.4
// compression pointer length octet.
const pointerMask = 0xC0

// SkipName advances past a label sequence starting at offset and
// returns the offset of the next octet after the terminating root
// label. RFC 4795 §2.4 restricts LLMNR queries to a single label
// before the root; compression pointers are never valid in an
// inbound query, so any pointer octet is rejected rather than
// followed. labels reports how many non-root labels were consumed.
// Label bytes are otherwise unconstrained: an incoming qname is
// matched against the host name by EqualFoldASCII, not decoded as a
// hostname, so a legal but non-LDH byte (e.g. '_') must not cause the
// query to be dropped as malformed — it will simply fail to match.
func SkipName(data []byte, offset int) (next int, labels int, err error) {
	pos := offset
	for {
		if pos >= len(data) {
			return 0, 0, &wireerr.WireFormatError{Reason: "offset out of bounds", Offset: pos}
		}
		length := int(data[pos])
		if length == 0 {
			return pos + 1, labels, nil
		}
		if length&pointerMask == pointerMask {
			return 0, 0, &wireerr.WireFormatError{Reason: "invalid compression pointer", Offset: pos}
		}
		if length > MaxLabelLength {
			return 0, 0, &wireerr.WireFormatError{Reason: "label exceeds maximum 63 bytes per RFC 1035 §3.1", Offset: pos}
		}
		pos++
		if pos+length > len(data) {
			return 0, 0, &wireerr.WireFormatError{Reason: "truncated label", Offset: pos}
		}
		pos += length
		labels++
		// +1 for the root label octet that must still follow.
		if pos-offset+1 > MaxNameLength {
			return 0, 0, &wireerr.WireFormatError{Reason: "name exceeds maximum 255 bytes per RFC 1035 §3.1", Offset: offset}
		}
	}
}

// ParseName decodes the label sequence at offset into a dotted-label
// string and returns the offset of the next octet after it.
func ParseName(data []byte, offset int) (name string, next int, err error) {
	var b strings.Builder
	pos := offset
	first := true
	for {
		if pos >= len(data) {
			return "", 0, &wireerr.WireFormatError{Reason: "offset out of bounds", Offset: pos}
		}
		length := int(data[pos])
		if length == 0 {
			return b.String(), pos + 1, nil
		}
		if length&pointerMask == pointerMask {
			return "", 0, &wireerr.WireFormatError{Reason: "invalid compression pointer", Offset: pos}
		}
		if length > MaxLabelLength {
			return "", 0, &wireerr.WireFormatError{Reason: "label exceeds maximum 63 bytes per RFC 1035 §3.1", Offset: pos}
		}
		pos++
		if pos+length > len(data) {
			return "", 0, &wireerr.WireFormatError{Reason: "truncated label", Offset: pos}
		}
		label := data[pos : pos+length]
		if !first {
			b.WriteByte('.')
		}
		b.Write(label)
		first = false
		pos += length
		// The encoded form is the dotted string plus the first length
		// octet and the root label octet.
		if b.Len()+2 > MaxNameLength {
			return "", 0, &wireerr.WireFormatError{Reason: "name exceeds maximum 255 bytes per RFC 1035 §3.1", Offset: offset}
		}
	}
}

// validateLabel enforces RFC 952/1123 LDH syntax: letters, digits and
// hyphens, with a hyphen never first or last. It applies only to
// EncodeName's self-generated host label, never to an incoming
// qname's labels: RFC 4795 does not restrict what bytes a querier may
// send, and an unmatchable byte should fail the name comparison, not
// the decode.
func validateLabel(label []byte) error {
	if len(label) == 0 {
		return &wireerr.ValidationError{Field: "label", Reason: "empty label"}
	}
	for i, c := range label {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			continue
		case c == '-':
			if i == 0 || i == len(label)-1 {
				return &wireerr.ValidationError{Field: "label", Reason: "hyphen cannot be first or last character"}
			}
		default:
			return &wireerr.ValidationError{Field: "label", Reason: "invalid character"}
		}
	}
	return nil
}

// EncodeName encodes a dotted-label name (e.g. "host") into its wire
// form: one length-prefixed label per dot-separated component,
// terminated by the zero-length root label.
func EncodeName(name string) ([]byte, error) {
	if name == "" {
		return []byte{0}, nil
	}
	labels := strings.Split(name, ".")
	out := make([]byte, 0, len(name)+2)
	for _, label := range labels {
		if len(label) > MaxLabelLength {
			return nil, &wireerr.ValidationError{Field: "label", Reason: "exceeds maximum 63 bytes per RFC 1035 §3.1"}
		}
		if err := validateLabel([]byte(label)); err != nil {
			return nil, err
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	out = append(out, 0)
	if len(out) > MaxNameLength {
		return nil, &wireerr.ValidationError{Field: "name", Reason: "exceeds maximum 255 bytes per RFC 1035 §3.1"}
	}
	return out, nil
}
