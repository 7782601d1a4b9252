package rtnetlink

import (
	"encoding/binary"
	"testing"

	"golang.org/x/sys/unix"
)

func TestNewGetAddrRequestHeader(t *testing.T) {
	req := newGetAddrRequest(unix.AF_UNSPEC)
	if len(req) != unix.SizeofNlMsghdr+unix.SizeofIfAddrmsg {
		t.Fatalf("len(req) = %d, want %d", len(req), unix.SizeofNlMsghdr+unix.SizeofIfAddrmsg)
	}

	msgType := binary.LittleEndian.Uint16(req[4:6])
	flags := binary.LittleEndian.Uint16(req[6:8])
	if msgType != unix.RTM_GETADDR {
		t.Fatalf("msg type = %d, want RTM_GETADDR", msgType)
	}
	if flags&unix.NLM_F_REQUEST == 0 || flags&unix.NLM_F_ROOT == 0 {
		t.Fatalf("flags = %#x, want NLM_F_REQUEST|NLM_F_ROOT set", flags)
	}
}

func TestDecodeNlmsgerrACKIsZero(t *testing.T) {
	data := make([]byte, 4)
	if decodeNlmsgerr(data) != 0 {
		t.Fatal("expected zero error code for an all-zero NLMSG_ERROR payload (ACK)")
	}
}

func TestDecodeNlmsgerrTruncatedPayload(t *testing.T) {
	if decodeNlmsgerr(nil) == 0 {
		t.Fatal("expected a non-zero sentinel error code for a truncated payload")
	}
}

func TestBlockAllExceptLeavesOnlyTargetSignalUnblocked(t *testing.T) {
	set := blockAllExcept(34)
	word := (34 - 1) / 64
	bit := uint((34 - 1) % 64)
	if set.Val[word]&(1<<bit) != 0 {
		t.Fatal("target signal bit should be clear (unblocked)")
	}
	otherWord := (1 - 1) / 64
	otherBit := uint((1 - 1) % 64)
	if set.Val[otherWord]&(1<<otherBit) == 0 {
		t.Fatal("signal 1 should remain blocked")
	}
}

func TestParseIfAddrMsgShortPayload(t *testing.T) {
	_, _, err := parseIfAddrMsg([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected an error for a short ifaddrmsg payload")
	}
}
