// Package daemon sequences llmnrd's startup and shutdown. New opens
// the netlink source, then opens the responder's socket and subscribes
// it to interface events; Start performs the initial address dump and
// then runs the responder's receive loop until canceled. The socket is
// therefore bound before the initial dump, not after it, and the
// responder's listener sees the Enabled events that dump produces.
// Queries are first read only after the dump completes, so they are
// answered from a populated address table. Shutdown tears down in
// reverse order.
package daemon

import (
	"context"

	"github.com/dcoker/llmnrd/internal/config"
	"github.com/dcoker/llmnrd/internal/iftable"
	"github.com/dcoker/llmnrd/internal/logging"
	"github.com/dcoker/llmnrd/internal/responder"
	"github.com/dcoker/llmnrd/internal/rtnetlink"
)

// Daemon owns every long-lived resource of a running llmnrd process.
type Daemon struct {
	log   logging.Logger
	table *iftable.Table
	rtnl  *rtnetlink.Source
	resp  *responder.Responder
}

// New constructs a Daemon from cfg. It opens the netlink socket and
// the responder's UDP socket; call Start to bring the daemon up.
func New(cfg config.Config, log logging.Logger) (*Daemon, error) {
	table := iftable.New()

	rtnl, err := rtnetlink.New(table, log, cfg.InterruptSignal)
	if err != nil {
		return nil, err
	}

	var opts []responder.Option
	if cfg.Hostname != "" {
		opts = append(opts, responder.WithHostname(cfg.Hostname))
	}
	resp, err := responder.New(table, log, opts...)
	if err != nil {
		rtnl.Close()
		return nil, err
	}

	return &Daemon{log: log, table: table, rtnl: rtnl, resp: resp}, nil
}

// Start performs the initial netlink dump and then runs the
// responder's receive loop until ctx is done. It returns when the
// responder stops.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.rtnl.Start(ctx); err != nil {
		return err
	}
	d.log.Noticef("llmnrd answering for host %q on %d known interfaces", d.resp.HostLabel(), d.table.Len())
	return d.resp.Run(ctx)
}

// Refresh performs a synchronous netlink address dump, populating the
// interface table without starting the responder's receive loop. It
// is used by cmd/llmnrd's --debug-state diagnostic, which reports
// InterfaceCount and exits rather than serving queries.
func (d *Daemon) Refresh(ctx context.Context) error {
	return d.rtnl.Start(ctx)
}

// InterfaceCount returns the number of interfaces currently known to
// have at least one configured address.
func (d *Daemon) InterfaceCount() int {
	return d.table.Len()
}

// Shutdown releases every resource in the reverse of the order New
// acquired them: the responder's socket (and any joined multicast
// groups) before the netlink source.
func (d *Daemon) Shutdown() error {
	respErr := d.resp.Close()
	rtnlErr := d.rtnl.Close()
	if respErr != nil {
		return respErr
	}
	return rtnlErr
}
