package responder

import (
	"encoding/binary"
	"net/netip"

	"github.com/dcoker/llmnrd/internal/wire"
	"github.com/dcoker/llmnrd/internal/wireerr"
)

// question is a parsed LLMNR query question section.
type question struct {
	name       string
	nameEnd    int
	qtype      uint16
	qclass     uint16
}

// parseQuery validates and parses a received datagram's header and
// single question. Validity follows RFC 4795 §2.1/§2.4: the message
// must be a query (QR=0), carry exactly one question, and use the
// QUERY opcode; the question name must be a single label (no
// compression pointers, no multi-label names) since LLMNR never
// resolves anything but the responder's own short name.
func parseQuery(data []byte) (wire.Header, question, bool, error) {
	if len(data) < wire.HeaderSize {
		return wire.Header{}, question{}, false, &wireerr.WireFormatError{Reason: "truncated header", Offset: len(data)}
	}
	h, err := wire.DecodeHeader(data)
	if err != nil {
		return wire.Header{}, question{}, false, err
	}

	if h.IsResponse() || h.Opcode() != wire.OpcodeQuery || h.QDCount != 1 {
		return h, question{}, false, nil
	}
	if h.Conflict() {
		// RFC 4795 §2.1: a query with the C bit set is a conflict
		// query and must never be answered.
		return h, question{}, false, nil
	}

	next, labels, err := wire.SkipName(data, wire.HeaderSize)
	if err != nil {
		return h, question{}, false, err
	}
	if labels != 1 {
		// Not a valid LLMNR query for this responder: only single
		// labels are ever matched against the host name.
		return h, question{}, false, nil
	}
	if len(data)-next < 4 {
		return h, question{}, false, &wireerr.WireFormatError{Reason: "truncated question", Offset: next}
	}

	name, _, err := wire.ParseName(data, wire.HeaderSize)
	if err != nil {
		return h, question{}, false, err
	}

	qtype := binary.BigEndian.Uint16(data[next : next+2])
	qclass := binary.BigEndian.Uint16(data[next+2 : next+4])
	if qclass != wire.ClassIN {
		return h, question{}, false, nil
	}

	return h, question{name: name, nameEnd: next + 4, qtype: qtype, qclass: qclass}, true, nil
}

// buildResponse assembles an LLMNR response for a matched query.
// addrs4/addrs6 are answered in that order; the first answer's owner
// name is written inline, every subsequent answer uses a compression
// pointer (RFC 1035 §4.1.4) to the question name at offset 12, which
// holds the same name, exactly as the original respond_for_name
// constructed responses.
func buildResponse(reqHeader wire.Header, reqData []byte, nameEnd int, qtype uint16, addrs4, addrs6 []netip.Addr) []byte {
	var answers []netip.Addr
	switch qtype {
	case wire.TypeA:
		answers = addrs4
	case wire.TypeAAAA:
		answers = addrs6
	case wire.TypeANY:
		answers = append(append([]netip.Addr(nil), addrs4...), addrs6...)
	default:
		return nil
	}
	if len(answers) == 0 {
		return nil
	}

	resp := make([]byte, 0, wire.HeaderSize+nameEnd+len(answers)*28)

	h := reqHeader
	h.SetResponse(true)
	h.ANCount = 0
	h.NSCount = 0
	h.ARCount = 0
	resp = h.Encode(resp)
	resp = append(resp, reqData[wire.HeaderSize:nameEnd]...)

	nameOffset := wire.HeaderSize
	count := uint16(0)
	for i, addr := range answers {
		var rrType uint16
		var rdata []byte
		if addr.Is4() || addr.Is4In6() {
			rrType = wire.TypeA
			a4 := addr.As4()
			rdata = a4[:]
		} else {
			rrType = wire.TypeAAAA
			a16 := addr.As16()
			rdata = a16[:]
		}

		if i == 0 {
			resp = append(resp, reqData[wire.HeaderSize:nameEnd-4]...)
		} else {
			resp = appendUint16(resp, 0xC000|uint16(nameOffset))
		}
		resp = appendUint16(resp, rrType)
		resp = appendUint16(resp, wire.ClassIN)
		resp = appendUint32(resp, wire.TTL)
		resp = appendUint16(resp, uint16(len(rdata)))
		resp = append(resp, rdata...)
		count++
	}

	binary.BigEndian.PutUint16(resp[6:8], count)
	return resp
}

// truncate rewrites resp to fit within wire.MaxMessageSize, setting
// the TC bit, matching the original responder's EMSGSIZE fallback:
// send exactly 512 octets with truncation flagged rather than fail.
func truncate(resp []byte) []byte {
	if len(resp) <= wire.MaxMessageSize {
		return resp
	}
	h, err := wire.DecodeHeader(resp)
	if err != nil {
		return resp[:wire.MaxMessageSize]
	}
	h.SetTruncated(true)
	out := make([]byte, 0, wire.MaxMessageSize)
	out = h.Encode(out)
	out = append(out, resp[wire.HeaderSize:wire.MaxMessageSize]...)
	return out
}

func appendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}
