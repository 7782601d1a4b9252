package wire

import (
	"encoding/binary"

	"github.com/dcoker/llmnrd/internal/wireerr"
)

// Header bit layout within the second 16-bit word (RFC 4795 §2.1):
//
//	 0  1  2  3  4  5  6  7  8  9 10 11 12 13 14 15
//	QR Opcode      C  TC  T  Z            RCODE
const (
	flagQR     = 1 << 15
	flagOpcode = 0xF << 11
	flagC      = 1 << 10
	flagTC     = 1 << 9
	flagT      = 1 << 8
)

// Header is the fixed 12-octet LLMNR message header.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// IsQuery reports whether the QR bit is clear.
func (h Header) IsQuery() bool { return h.Flags&flagQR == 0 }

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool { return h.Flags&flagQR != 0 }

// SetResponse sets or clears the QR bit.
func (h *Header) SetResponse(v bool) {
	if v {
		h.Flags |= flagQR
	} else {
		h.Flags &^= flagQR
	}
}

// Opcode returns the 4-bit opcode field.
func (h Header) Opcode() uint16 { return (h.Flags & flagOpcode) >> 11 }

// Conflict reports whether the C bit is set (RFC 4795 §2.1).
func (h Header) Conflict() bool { return h.Flags&flagC != 0 }

// Truncated reports whether the TC bit is set.
func (h Header) Truncated() bool { return h.Flags&flagTC != 0 }

// SetTruncated sets or clears the TC bit.
func (h *Header) SetTruncated(v bool) {
	if v {
		h.Flags |= flagTC
	} else {
		h.Flags &^= flagTC
	}
}

// Tentative reports whether the T bit is set.
func (h Header) Tentative() bool { return h.Flags&flagT != 0 }

// DecodeHeader parses the first HeaderSize octets of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &wireerr.WireFormatError{Reason: "truncated header", Offset: len(data)}
	}
	return Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		Flags:   binary.BigEndian.Uint16(data[2:4]),
		QDCount: binary.BigEndian.Uint16(data[4:6]),
		ANCount: binary.BigEndian.Uint16(data[6:8]),
		NSCount: binary.BigEndian.Uint16(data[8:10]),
		ARCount: binary.BigEndian.Uint16(data[10:12]),
	}, nil
}

// Encode appends the header's wire representation to dst and returns
// the extended slice.
func (h Header) Encode(dst []byte) []byte {
	var buf [HeaderSize]byte
	binary.BigEndian.PutUint16(buf[0:2], h.ID)
	binary.BigEndian.PutUint16(buf[2:4], h.Flags)
	binary.BigEndian.PutUint16(buf[4:6], h.QDCount)
	binary.BigEndian.PutUint16(buf[6:8], h.ANCount)
	binary.BigEndian.PutUint16(buf[8:10], h.NSCount)
	binary.BigEndian.PutUint16(buf[10:12], h.ARCount)
	return append(dst, buf[:]...)
}
