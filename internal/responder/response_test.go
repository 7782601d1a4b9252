package responder

import (
	"net/netip"
	"testing"

	"github.com/dcoker/llmnrd/internal/wire"
)

// buildQuery constructs a minimal single-question LLMNR query for
// "host" with the given qtype, optionally setting flags via the
// modify callback.
func buildQuery(qtype uint16, modify func(*wire.Header)) []byte {
	h := wire.Header{ID: 0x1234, QDCount: 1}
	if modify != nil {
		modify(&h)
	}
	buf := h.Encode(nil)
	name, _ := wire.EncodeName("host")
	buf = append(buf, name...)
	buf = appendUint16(buf, qtype)
	buf = appendUint16(buf, wire.ClassIN)
	return buf
}

func TestParseQueryAcceptsValidQuery(t *testing.T) {
	data := buildQuery(wire.TypeA, nil)
	_, q, ok, err := parseQuery(data)
	if err != nil {
		t.Fatalf("parseQuery() error = %v", err)
	}
	if !ok {
		t.Fatal("parseQuery() ok = false, want true")
	}
	if q.name != "host" || q.qtype != wire.TypeA {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestParseQueryRejectsResponseMessages(t *testing.T) {
	data := buildQuery(wire.TypeA, func(h *wire.Header) { h.SetResponse(true) })
	_, _, ok, err := parseQuery(data)
	if err != nil {
		t.Fatalf("parseQuery() error = %v", err)
	}
	if ok {
		t.Fatal("parseQuery() ok = true for a response message, want false")
	}
}

func TestParseQueryRejectsConflictBit(t *testing.T) {
	data := buildQuery(wire.TypeA, func(h *wire.Header) { h.Flags |= 1 << 10 })
	_, _, ok, err := parseQuery(data)
	if err != nil {
		t.Fatalf("parseQuery() error = %v", err)
	}
	if ok {
		t.Fatal("parseQuery() ok = true for a conflict query, want false")
	}
}

func TestParseQueryRejectsMultiLabelName(t *testing.T) {
	h := wire.Header{ID: 1, QDCount: 1}
	buf := h.Encode(nil)
	name, _ := wire.EncodeName("host.lan")
	buf = append(buf, name...)
	buf = appendUint16(buf, wire.TypeA)
	buf = appendUint16(buf, wire.ClassIN)

	_, _, ok, err := parseQuery(buf)
	if err != nil {
		t.Fatalf("parseQuery() error = %v", err)
	}
	if ok {
		t.Fatal("parseQuery() ok = true for a multi-label name, want false")
	}
}

func TestBuildResponseSingleAnswerInlineName(t *testing.T) {
	data := buildQuery(wire.TypeA, nil)
	reqHeader, q, ok, err := parseQuery(data)
	if err != nil || !ok {
		t.Fatalf("parseQuery() = (_, %v, %v)", ok, err)
	}

	addrs4 := []netip.Addr{netip.MustParseAddr("192.0.2.1")}
	resp := buildResponse(reqHeader, data, q.nameEnd, q.qtype, addrs4, nil)
	if resp == nil {
		t.Fatal("buildResponse() = nil, want a response")
	}

	respHeader, err := wire.DecodeHeader(resp)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if !respHeader.IsResponse() {
		t.Fatal("response QR bit not set")
	}
	if respHeader.ANCount != 1 {
		t.Fatalf("ANCount = %d, want 1", respHeader.ANCount)
	}
}

func TestBuildResponseSubsequentAnswersUseCompressionPointer(t *testing.T) {
	data := buildQuery(wire.TypeANY, nil)
	reqHeader, q, ok, err := parseQuery(data)
	if err != nil || !ok {
		t.Fatalf("parseQuery() = (_, %v, %v)", ok, err)
	}

	addrs4 := []netip.Addr{netip.MustParseAddr("192.0.2.1")}
	addrs6 := []netip.Addr{netip.MustParseAddr("fe80::1")}
	resp := buildResponse(reqHeader, data, q.nameEnd, q.qtype, addrs4, addrs6)
	if resp == nil {
		t.Fatal("buildResponse() = nil, want a response")
	}

	respHeader, _ := wire.DecodeHeader(resp)
	if respHeader.ANCount != 2 {
		t.Fatalf("ANCount = %d, want 2", respHeader.ANCount)
	}

	// The second answer's owner name must be a compression pointer
	// back to the question name at offset 12, not an inline copy.
	// ANY answers addrs4 then addrs6, so the first answer here is the
	// IPv4 address (rdata 4 bytes); the second answer's name field
	// immediately follows TYPE+CLASS+TTL+RDLENGTH+RDATA(A).
	nameLen := q.nameEnd - 4 - wire.HeaderSize
	firstAnswerStart := q.nameEnd
	secondNameOffset := firstAnswerStart + nameLen + 2 + 2 + 4 + 2 + 4
	if resp[secondNameOffset]&0xC0 != 0xC0 {
		t.Fatalf("expected compression pointer at offset %d, got %#x", secondNameOffset, resp[secondNameOffset])
	}
}

func TestBuildResponseNoAnswersReturnsNil(t *testing.T) {
	data := buildQuery(wire.TypeAAAA, nil)
	reqHeader, q, ok, err := parseQuery(data)
	if err != nil || !ok {
		t.Fatalf("parseQuery() = (_, %v, %v)", ok, err)
	}
	if resp := buildResponse(reqHeader, data, q.nameEnd, q.qtype, []netip.Addr{netip.MustParseAddr("192.0.2.1")}, nil); resp != nil {
		t.Fatal("buildResponse() with no AAAA addresses should return nil")
	}
}

func TestTruncateSetsTCBitAndFitsMaxSize(t *testing.T) {
	data := buildQuery(wire.TypeANY, nil)
	reqHeader, q, ok, _ := parseQuery(data)
	if !ok {
		t.Fatal("parseQuery() ok = false")
	}

	var addrs6 []netip.Addr
	for i := 0; i < 40; i++ {
		addrs6 = append(addrs6, netip.AddrFrom16([16]byte{0: 0xfe, 1: 0x80, 15: byte(i)}))
	}
	resp := buildResponse(reqHeader, data, q.nameEnd, q.qtype, nil, addrs6)
	if len(resp) <= wire.MaxMessageSize {
		t.Fatalf("test setup produced a response within MaxMessageSize (%d bytes); need oversize input", len(resp))
	}

	truncated := truncate(resp)
	if len(truncated) != wire.MaxMessageSize {
		t.Fatalf("truncate() length = %d, want %d", len(truncated), wire.MaxMessageSize)
	}
	h, err := wire.DecodeHeader(truncated)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if !h.Truncated() {
		t.Fatal("expected TC bit to be set after truncation")
	}
}
