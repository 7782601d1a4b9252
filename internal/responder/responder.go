// Package responder implements the LLMNR query/response cycle: it
// owns the UDP socket and the receive loop, validates and matches
// incoming queries against the host's own name, assembles responses
// from the live interface table, and joins/leaves the LLMNR
// multicast group in response to interface table events.
//
// The validation order, name matching and response assembly in this
// package are a direct translation of the original xllmnrd
// responder::process_udp6/handle_udp6_query/respond_for_name; the
// functional-options construction and New/Close lifecycle follow the
// conventions used elsewhere in this codebase's responder packages.
package responder

import (
	"context"
	"errors"
	"net"

	"golang.org/x/sys/unix"

	"github.com/dcoker/llmnrd/internal/iftable"
	"github.com/dcoker/llmnrd/internal/llmnrsock"
	"github.com/dcoker/llmnrd/internal/logging"
	"github.com/dcoker/llmnrd/internal/wire"
)

// Responder answers LLMNR queries for this host's own name.
type Responder struct {
	table    *iftable.Table
	socket   *llmnrsock.Socket
	log      logging.Logger
	hostname string

	listenerHandle iftable.ListenerHandle
	done           chan struct{}
}

// New creates a Responder and opens its socket. The caller must call
// Run to begin answering queries and Close to release resources.
func New(table *iftable.Table, log logging.Logger, opts ...Option) (*Responder, error) {
	r := &Responder{table: table, log: log, done: make(chan struct{})}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.hostname == "" {
		label, err := hostLabel("")
		if err != nil {
			return nil, err
		}
		r.hostname = label
	}

	socket, err := llmnrsock.Open()
	if err != nil {
		return nil, err
	}
	r.socket = socket

	r.listenerHandle = table.AddListener(iftable.ListenerFunc(r.onInterfaceChange))
	return r, nil
}

// onInterfaceChange joins or leaves the multicast group on the
// affected interface. It is invoked synchronously from within the
// table's critical section (see iftable.Listener), so it must not
// call back into the table.
func (r *Responder) onInterfaceChange(e iftable.Event) {
	switch e.Kind {
	case iftable.Enabled:
		if err := r.socket.JoinGroup(int(e.Index)); err != nil {
			r.log.Errf("join multicast group on interface %d: %v", e.Index, err)
		} else {
			r.log.Noticef("joined LLMNR multicast group on interface %d", e.Index)
		}
	case iftable.Disabled:
		if err := r.socket.LeaveGroup(int(e.Index)); err != nil {
			r.log.Errf("leave multicast group on interface %d: %v", e.Index, err)
		} else {
			r.log.Noticef("left LLMNR multicast group on interface %d", e.Index)
		}
	}
}

// Run handles queries until ctx is done or Close is called. Since a
// blocked socket read has no portable way to watch a context directly,
// a watcher goroutine closes the socket itself on cancellation: that
// is what actually unblocks ReceiveFrom, rather than relying on the
// caller to call Close after Run returns (it can't - Run would never
// return).
func (r *Responder) Run(ctx context.Context) error {
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
		case <-r.done:
		}
		_ = r.socket.Close()
	}()
	defer func() { <-watcherDone }()

	for {
		dgram, err := r.socket.ReceiveFrom(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.log.Errf("receive: %v", err)
			continue
		}

		// RFC 4795 §2.8: a multicast source address is never a valid
		// unicast querier; silently drop it.
		if dgram.Source.Addr().IsMulticast() {
			continue
		}

		r.handleDatagram(dgram)
	}
}

// Close stops Run and releases the socket.
func (r *Responder) Close() error {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	r.table.RemoveListener(r.listenerHandle)
	return r.socket.Close()
}

func (r *Responder) handleDatagram(dgram llmnrsock.Datagram) {
	header, q, ok, err := parseQuery(dgram.Payload)
	if err != nil {
		r.log.Infof("malformed query from %s: %v", dgram.Source, err)
		return
	}
	if !ok {
		return
	}
	if !matchesHost(q.name, r.hostname) {
		return
	}

	addrs4, addrs6 := r.table.Snapshot(uint32(dgram.InterfaceIndex))
	resp := buildResponse(header, dgram.Payload, q.nameEnd, q.qtype, addrs4, addrs6)
	if resp == nil {
		return
	}

	// Send the full response first; only a kernel-rejected oversize
	// datagram (EMSGSIZE) falls back to the truncate-and-resend path,
	// since many responses over 512 octets still fit on the wire
	// untruncated.
	if err := r.socket.SendTo(resp, dgram.Source, dgram.InterfaceIndex); err != nil {
		if errors.Is(err, unix.EMSGSIZE) && len(resp) > wire.MaxMessageSize {
			resp = truncate(resp)
			if err := r.socket.SendTo(resp, dgram.Source, dgram.InterfaceIndex); err != nil {
				r.log.Errf("send truncated response to %s: %v", dgram.Source, err)
			}
			return
		}
		r.log.Errf("send response to %s: %v", dgram.Source, err)
	}
}

// HostLabel returns the short host name this responder matches
// queries against.
func (r *Responder) HostLabel() string { return r.hostname }
