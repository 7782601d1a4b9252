// Package rtnetlink implements the live address-change source that
// feeds the interface table: a worker goroutine that binds an
// AF_NETLINK/NETLINK_ROUTE socket subscribed to RTMGRP_IPV4_IFADDR
// and RTMGRP_IPV6_IFADDR, issues RTM_GETADDR dump requests on demand,
// and decodes RTM_NEWADDR/RTM_DELADDR notifications into
// iftable.Table mutations.
//
// The refresh protocol (Refresh/wait-for-completion via a condition
// variable, idempotent while a dump is already in flight) and the
// worker lifecycle (LockOSThread plus a per-thread signal mask so a
// single targeted signal can interrupt the blocking receive) are
// translated directly from the original xllmnrd ifaddr_*
// implementation, which used pthread_sigmask/pthread_kill for the
// same purpose.
package rtnetlink

import (
	"context"
	"net/netip"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dcoker/llmnrd/internal/iftable"
	"github.com/dcoker/llmnrd/internal/logging"
	"github.com/dcoker/llmnrd/internal/wireerr"
)

// Source maintains a live rtnetlink feed into an iftable.Table.
type Source struct {
	table  *iftable.Table
	log    logging.Logger
	signum int

	fd int

	mu               sync.Mutex
	cond             *sync.Cond
	refreshing       bool
	refreshDone      bool
	workerTID        int32
	wg               sync.WaitGroup
	closed           bool
}

// New opens the rtnetlink socket and subscribes to IPv4 and IPv6
// address change notifications. signum is the realtime signal number
// used to interrupt the worker's blocking receive during Close; it
// must be otherwise unused by the process (config.Default uses 34).
func New(table *iftable.Table, log logging.Logger, signum int) (*Source, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		return nil, &wireerr.SetupError{Operation: "netlink socket", Err: err}
	}
	sa := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: unix.RTMGRP_IPV4_IFADDR | unix.RTMGRP_IPV6_IFADDR,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, &wireerr.SetupError{Operation: "netlink bind", Err: err}
	}

	s := &Source{table: table, log: log, signum: signum, fd: fd}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Start launches the worker goroutine and performs the initial
// address dump. It blocks until the initial dump completes or ctx is
// done.
func (s *Source) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.run()

	return s.Refresh(ctx)
}

// Refresh requests a fresh RTM_GETADDR dump and waits for it to
// complete or for ctx to be done, returning ctx's error in the latter
// case. If a dump is already in flight, it waits for that one
// instead of issuing a redundant request (matching the original
// ifaddr_refresh's idempotent-while-in-progress behavior).
func (s *Source) Refresh(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	if s.refreshing {
		for s.refreshing && ctx.Err() == nil {
			s.cond.Wait()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
	s.refreshing = true
	s.refreshDone = false
	s.mu.Unlock()

	if err := s.sendDumpRequest(); err != nil {
		s.mu.Lock()
		s.refreshing = false
		s.cond.Broadcast()
		s.mu.Unlock()
		return &wireerr.RefreshError{Operation: "send RTM_GETADDR", Err: err}
	}

	s.mu.Lock()
	for !s.refreshDone && ctx.Err() == nil {
		s.cond.Wait()
	}
	done := s.refreshDone
	s.refreshing = false
	s.cond.Broadcast()
	s.mu.Unlock()
	if !done {
		return ctx.Err()
	}
	return nil
}

// Close stops the worker and releases the socket. It signals the
// worker's blocking receive via a targeted thread signal, the same
// technique the original implementation used with pthread_kill.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tid := s.workerTID
	s.mu.Unlock()

	if tid != 0 {
		_ = unix.Tgkill(unix.Getpid(), int(tid), unix.Signal(s.signum))
	}
	s.wg.Wait()
	return unix.Close(s.fd)
}

func (s *Source) sendDumpRequest() error {
	req := newGetAddrRequest(unix.AF_UNSPEC)
	return unix.Sendto(s.fd, req, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
}

// run is the worker goroutine body. It locks itself to its OS thread
// so that the per-thread signal mask it installs (unblocking only
// signum) is not migrated to or shared with another goroutine's
// thread, matching the original pthread_sigmask(SIG_SETMASK, ...)
// scoping.
func (s *Source) run() {
	defer s.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	mask := blockAllExcept(s.signum)
	if err := unix.PthreadSigmask(unix.SIG_SETMASK, &mask, nil); err != nil {
		s.log.Warningf("netlink worker: sigmask: %v", err)
	}

	s.mu.Lock()
	s.workerTID = int32(unix.Gettid())
	s.mu.Unlock()

	buf := make([]byte, 65536)
	for {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		n, _, err := unix.Recvfrom(s.fd, buf, unix.MSG_TRUNC)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			s.log.Errf("netlink worker: recv: %v", err)
			return
		}
		if n > len(buf) {
			// The datagram was truncated; grow and drop this message.
			buf = make([]byte, n)
			continue
		}

		msgs, err := unix.ParseNetlinkMessage(buf[:n])
		if err != nil {
			s.log.Errf("netlink worker: parse: %v", err)
			continue
		}
		s.handleMessages(msgs)
	}
}

// handleMessages decodes one batch of netlink messages. NLMSG_DONE is
// the explicit terminator of an RTM_GETADDR dump and is the only
// message that completes a pending Refresh; RTM_NEWADDR/RTM_DELADDR
// notifications arrive on the same socket both as dump replies and as
// asynchronous multicast-group notifications, and must not be
// mistaken for dump completion just because they lack NLM_F_MULTI.
func (s *Source) handleMessages(msgs []unix.NetlinkMessage) {
	for _, m := range msgs {
		switch m.Header.Type {
		case unix.NLMSG_NOOP:
			s.log.Infof("netlink: NLMSG_NOOP")
		case unix.NLMSG_ERROR:
			errno := decodeNlmsgerr(m.Data)
			if errno == 0 {
				continue // ACK, not a failure
			}
			s.log.Errf("netlink: NLMSG_ERROR: %v", unix.Errno(-errno))
		case unix.NLMSG_DONE:
			s.completeRefresh()
		case unix.RTM_NEWADDR:
			s.handleIfAddrMsg(m.Data, true)
		case unix.RTM_DELADDR:
			s.handleIfAddrMsg(m.Data, false)
		}
	}
}

func (s *Source) completeRefresh() {
	s.mu.Lock()
	s.refreshDone = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *Source) handleIfAddrMsg(data []byte, added bool) {
	ifa, attrs, err := parseIfAddrMsg(data)
	if err != nil {
		s.log.Infof("netlink: malformed ifaddrmsg: %v", err)
		return
	}
	addr, ok := s.addressFromAttrs(ifa, attrs)
	if !ok {
		return
	}
	if added {
		s.table.AddAddress(uint32(ifa.Index), addr)
	} else {
		s.table.RemoveAddress(uint32(ifa.Index), addr)
	}
}

// addressFromAttrs extracts the IFA_ADDRESS attribute from attrs for
// a recognized family. A short payload for the family or an
// unrecognized family is logged and the attribute is ignored, per
// the same tolerance the original ifaddr.c gives a malformed
// RTM_NEWADDR/RTM_DELADDR.
func (s *Source) addressFromAttrs(ifa *unix.IfAddrmsg, attrs []unix.NetlinkRouteAttr) (netip.Addr, bool) {
	for _, a := range attrs {
		if a.Attr.Type != unix.IFA_ADDRESS {
			continue
		}
		switch ifa.Family {
		case unix.AF_INET:
			if len(a.Value) != 4 {
				s.log.Infof("netlink: short IFA_ADDRESS (%d bytes) for AF_INET on interface %d, ignoring", len(a.Value), ifa.Index)
				return netip.Addr{}, false
			}
			return netip.AddrFrom4([4]byte(a.Value)), true
		case unix.AF_INET6:
			if len(a.Value) != 16 {
				s.log.Infof("netlink: short IFA_ADDRESS (%d bytes) for AF_INET6 on interface %d, ignoring", len(a.Value), ifa.Index)
				return netip.Addr{}, false
			}
			return netip.AddrFrom16([16]byte(a.Value)), true
		default:
			s.log.Infof("netlink: unknown address family %d on interface %d, ignoring", ifa.Family, ifa.Index)
			return netip.Addr{}, false
		}
	}
	return netip.Addr{}, false
}
