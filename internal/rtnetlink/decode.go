package rtnetlink

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// newGetAddrRequest builds an RTM_GETADDR/NLM_F_REQUEST|NLM_F_ROOT
// dump request for the given address family (AF_UNSPEC dumps both
// IPv4 and IPv6).
func newGetAddrRequest(family uint8) []byte {
	// ifaddrmsg: family(1) prefixlen(1) flags(1) scope(1) index(4).
	payload := make([]byte, unix.SizeofIfAddrmsg)
	payload[0] = family

	hdr := unix.NlMsghdr{
		Len:   uint32(unix.SizeofNlMsghdr + len(payload)),
		Type:  unix.RTM_GETADDR,
		Flags: unix.NLM_F_REQUEST | unix.NLM_F_ROOT,
		Seq:   1,
	}

	buf := make([]byte, 0, hdr.Len)
	buf = appendNlMsghdr(buf, hdr)
	buf = append(buf, payload...)
	return buf
}

func appendNlMsghdr(dst []byte, hdr unix.NlMsghdr) []byte {
	var b [unix.SizeofNlMsghdr]byte
	binary.LittleEndian.PutUint32(b[0:4], hdr.Len)
	binary.LittleEndian.PutUint16(b[4:6], hdr.Type)
	binary.LittleEndian.PutUint16(b[6:8], hdr.Flags)
	binary.LittleEndian.PutUint32(b[8:12], hdr.Seq)
	binary.LittleEndian.PutUint32(b[12:16], hdr.Pid)
	return append(dst, b[:]...)
}

// decodeNlmsgerr extracts the error code from an NLMSG_ERROR payload;
// 0 means the message is an ACK rather than a failure.
func decodeNlmsgerr(data []byte) int32 {
	if len(data) < 4 {
		return -int32(unix.EIO)
	}
	return int32(binary.LittleEndian.Uint32(data[0:4]))
}

// parseIfAddrMsg decodes an ifaddrmsg header plus its rtattr list
// from an RTM_NEWADDR/RTM_DELADDR payload.
func parseIfAddrMsg(data []byte) (*unix.IfAddrmsg, []unix.NetlinkRouteAttr, error) {
	if len(data) < unix.SizeofIfAddrmsg {
		return nil, nil, errShortIfAddrMsg
	}
	ifa := &unix.IfAddrmsg{
		Family:    data[0],
		Prefixlen: data[1],
		Flags:     data[2],
		Scope:     data[3],
		Index:     binary.LittleEndian.Uint32(data[4:8]),
	}
	// ParseNetlinkRouteAttr picks the fixed header size to skip from
	// Header.Type and skips the ifaddrmsg itself.
	attrs, err := unix.ParseNetlinkRouteAttr(&unix.NetlinkMessage{
		Header: unix.NlMsghdr{Len: uint32(unix.SizeofNlMsghdr + len(data)), Type: unix.RTM_NEWADDR},
		Data:   data,
	})
	if err != nil {
		return nil, nil, err
	}
	return ifa, attrs, nil
}

type staticError string

func (e staticError) Error() string { return string(e) }

const errShortIfAddrMsg staticError = "netlink: short ifaddrmsg payload"

// blockAllExcept returns a signal mask with every signal blocked
// except signum, mirroring the original worker's
// sigfillset+sigdelset(interrupt_signo) scoping so that only the
// targeted interrupt signal can ever break the blocking receive.
func blockAllExcept(signum int) unix.Sigset_t {
	var set unix.Sigset_t
	for i := range set.Val {
		set.Val[i] = ^uint64(0)
	}
	word := (signum - 1) / 64
	bit := uint((signum - 1) % 64)
	if word >= 0 && word < len(set.Val) {
		set.Val[word] &^= 1 << bit
	}
	return set
}
