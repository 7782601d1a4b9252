// Package llmnrsock owns the single UDP/IPv6 socket llmnrd receives
// queries on and sends responses from: binding and socket option
// setup, arrival-interface extraction via ancillary data, multicast
// group membership, and sending. The truncate-and-retry step for
// responses over 512 octets is done by the responder, not here.
//
// The split between fatal and best-effort socket options mirrors the
// original xllmnrd responder::open_udp6: IPV6_RECVPKTINFO is required
// because without it every query would arrive with no way to
// determine its arrival interface, while IPV6_V6ONLY, the unicast hop
// limit and IPV6_DONTFRAG degrade gracefully.
package llmnrsock

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/dcoker/llmnrd/internal/wire"
	"github.com/dcoker/llmnrd/internal/wireerr"
)

// Socket is an IPv6 UDP socket bound to the LLMNR port.
type Socket struct {
	conn   *net.UDPConn
	pc     *ipv6.PacketConn
	joined map[int]bool

	closeOnce sync.Once
	closeErr  error
}

// Open binds a UDP/IPv6 socket to wire.Port on the unspecified
// address and configures it for LLMNR use.
func Open() (*Socket, error) {
	conn, err := net.ListenUDP("udp6", &net.UDPAddr{Port: wire.Port})
	if err != nil {
		return nil, &wireerr.SetupError{Operation: "listen udp6", Err: err}
	}

	pc := ipv6.NewPacketConn(conn)

	// Mandatory: without arrival-interface information, a query could
	// not be matched to the interface whose addresses should answer
	// it.
	if err := pc.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		conn.Close()
		return nil, &wireerr.SetupError{Operation: "set IPV6_RECVPKTINFO", Err: err}
	}

	// Best-effort: a unicast hop limit of 1 matches RFC 4795 §2.8's
	// expectation that LLMNR stays link-local; failure here degrades
	// to whatever the kernel default hop limit is.
	if err := pc.SetHopLimit(1); err != nil {
		_ = err // best-effort, intentionally not fatal
	}

	// Best-effort: disable IPv6 fragmentation of LLMNR datagrams.
	if rc, err := conn.SyscallConn(); err == nil {
		_ = rc.Control(func(fd uintptr) {
			_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_DONTFRAG, 1)
		})
	}

	return &Socket{conn: conn, pc: pc, joined: make(map[int]bool)}, nil
}

// Close releases the socket. It is idempotent and safe to call
// concurrently with a blocked ReceiveFrom: closing the underlying
// connection is what unblocks it, since net.UDPConn has no other way
// to interrupt a read from another goroutine.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	if s.closeErr != nil {
		return &wireerr.NetworkError{Operation: "close socket", Err: s.closeErr}
	}
	return nil
}

// JoinGroup joins the LLMNR multicast group on the interface at
// index. It is idempotent.
func (s *Socket) JoinGroup(index int) error {
	if s.joined[index] {
		return nil
	}
	iface, err := net.InterfaceByIndex(index)
	if err != nil {
		return &wireerr.NetworkError{Operation: "join group", Err: err, Details: fmt.Sprintf("interface %d", index)}
	}
	group := &net.UDPAddr{IP: net.ParseIP(wire.MulticastGroupV6)}
	if err := s.pc.JoinGroup(iface, group); err != nil {
		return &wireerr.NetworkError{Operation: "join group", Err: err, Details: iface.Name}
	}
	s.joined[index] = true
	return nil
}

// LeaveGroup leaves the LLMNR multicast group on the interface at
// index. It is idempotent.
func (s *Socket) LeaveGroup(index int) error {
	if !s.joined[index] {
		return nil
	}
	iface, err := net.InterfaceByIndex(index)
	if err != nil {
		return &wireerr.NetworkError{Operation: "leave group", Err: err, Details: fmt.Sprintf("interface %d", index)}
	}
	group := &net.UDPAddr{IP: net.ParseIP(wire.MulticastGroupV6)}
	if err := s.pc.LeaveGroup(iface, group); err != nil {
		return &wireerr.NetworkError{Operation: "leave group", Err: err, Details: iface.Name}
	}
	delete(s.joined, index)
	return nil
}

// Datagram is one received LLMNR message together with its arrival
// metadata.
type Datagram struct {
	Payload        []byte
	Source         netip.AddrPort
	InterfaceIndex int
}

// ReceiveFrom blocks until a datagram arrives, ctx's deadline passes,
// or the socket is closed. Canceling a ctx that has no deadline does
// not by itself unblock the read. The returned Payload is a copy; the pooled read buffer is released
// before ReceiveFrom returns.
//
// A single pooled maximum-size buffer stands in for the original
// implementation's MSG_PEEK|MSG_TRUNC pre-sizing step: Go's UDP read
// already returns exactly the received datagram's length (never more,
// regardless of buffer capacity), so there is no over-read to guard
// against the way there is with a C recv() into a fixed buffer.
func (s *Socket) ReceiveFrom(ctx context.Context) (Datagram, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return Datagram{}, &wireerr.NetworkError{Operation: "set read deadline", Err: err}
		}
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}

	bufPtr := getBuffer()
	defer putBuffer(bufPtr)
	buf := *bufPtr

	n, cm, srcAddr, err := s.pc.ReadFrom(buf)
	if err != nil {
		if err == context.Canceled || ctx.Err() != nil {
			return Datagram{}, ctx.Err()
		}
		return Datagram{}, &wireerr.NetworkError{Operation: "receive", Err: err}
	}

	udpAddr, ok := srcAddr.(*net.UDPAddr)
	if !ok {
		return Datagram{}, &wireerr.NetworkError{Operation: "receive", Err: fmt.Errorf("unexpected source address type %T", srcAddr)}
	}
	src, ok := netip.AddrFromSlice(udpAddr.IP)
	if !ok {
		return Datagram{}, &wireerr.NetworkError{Operation: "receive", Err: fmt.Errorf("invalid source address %v", udpAddr.IP)}
	}

	ifIndex := 0
	if cm != nil {
		ifIndex = cm.IfIndex
	}

	payload := make([]byte, n)
	copy(payload, buf[:n])
	return Datagram{
		Payload:        payload,
		Source:         netip.AddrPortFrom(src.Unmap(), uint16(udpAddr.Port)),
		InterfaceIndex: ifIndex,
	}, nil
}

// SendTo writes a response. If the kernel rejects the datagram as too
// large (EMSGSIZE) and it exceeds wire.MaxMessageSize, the TC bit is
// expected to already be set by the caller on a truncated retry; this
// method performs the send only, leaving truncation policy to the
// responder which knows how to re-assemble a shorter message.
func (s *Socket) SendTo(payload []byte, dest netip.AddrPort, ifIndex int) error {
	cm := &ipv6.ControlMessage{IfIndex: ifIndex}
	udpDest := &net.UDPAddr{IP: dest.Addr().AsSlice(), Port: int(dest.Port())}
	n, err := s.pc.WriteTo(payload, cm, udpDest)
	if err != nil {
		return &wireerr.NetworkError{Operation: "send", Err: err}
	}
	if n != len(payload) {
		return &wireerr.NetworkError{Operation: "send", Err: fmt.Errorf("partial write: %d/%d bytes", n, len(payload))}
	}
	return nil
}
