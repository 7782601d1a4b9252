// Package wire implements the LLMNR (RFC 4795) wire format: the
// 12-octet header, RFC 1035 §3.1 label-sequence names restricted to a
// single label, and the ASCII-only case folding RFC 4795 §2.6 requires
// for name comparison.
package wire

// Port is the IANA-assigned LLMNR port (RFC 4795 §3).
const Port = 5355

// MulticastGroupV6 is the LLMNR IPv6 multicast group address
// (RFC 4795 §3, FF02:0:0:0:0:0:1:3).
const MulticastGroupV6 = "ff02::1:3"

// TTL is the fixed answer TTL in seconds. RFC 4795 does not mandate a
// value; 30 matches the reference implementation this responder is
// modeled on.
const TTL = 30

// HeaderSize is the fixed size of the LLMNR header in octets.
const HeaderSize = 12

// MaxLabelLength is the RFC 1035 §3.1 maximum length of a single
// label, exclusive of the length octet.
const MaxLabelLength = 63

// MaxNameLength is the RFC 1035 §3.1 maximum length of an encoded
// name, including length octets and the terminating root label.
const MaxNameLength = 255

// MaxMessageSize is the largest response this responder will ever
// send without truncation (RFC 4795 §2.8 references RFC 1035's 512
// octet default UDP message size absent EDNS0).
const MaxMessageSize = 512

// Resource record types this responder understands.
const (
	TypeA    uint16 = 1
	TypeAAAA uint16 = 28
	TypeANY  uint16 = 255
)

// ClassIN is the only resource record class this responder answers.
const ClassIN uint16 = 1

// Opcode is the 4-bit opcode field. RFC 4795 only defines QUERY (0).
const OpcodeQuery uint16 = 0
