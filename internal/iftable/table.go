// Package iftable tracks, per network interface index, the set of
// configured IPv4 and IPv6 addresses, and notifies registered
// listeners when an interface transitions between having no
// addresses and having at least one. It is the Go equivalent of the
// original xllmnrd interface_manager (libxllmnrd/interface.h):
// the recursive mutex there is replaced by invoking listener
// callbacks from inside the same critical section as the mutation,
// since no listener in this codebase needs to re-enter the table.
package iftable

import (
	"net/netip"
	"sort"
	"sync"
	"sync/atomic"
)

// Family identifies an address family for an Event.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

// EventKind identifies whether an interface gained its first address
// or lost its last one.
type EventKind int

const (
	// Enabled fires when an interface with no addresses gains one, in
	// either family. Event.Family is the family of that address.
	Enabled EventKind = iota
	// Disabled fires when an interface loses its last address of
	// either family. Event.Family is the family of the removed address.
	Disabled
)

// Event describes an interface address-availability transition.
type Event struct {
	Kind   EventKind
	Index  uint32
	Family Family
}

// Listener receives interface change events. OnInterfaceChange is
// called synchronously from within the Table's critical section, so
// it must not block and must not call back into the Table that is
// dispatching it (that would deadlock: sync.Mutex is not reentrant).
type Listener interface {
	OnInterfaceChange(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

func (f ListenerFunc) OnInterfaceChange(e Event) { f(e) }

// Interface holds the known addresses of one network interface.
type Interface struct {
	V4 []netip.Addr
	V6 []netip.Addr
}

func (i *Interface) empty() bool { return len(i.V4) == 0 && len(i.V6) == 0 }

// ListenerHandle identifies a registered Listener for later removal.
// Listener values (including function-typed ones via ListenerFunc)
// are not generally comparable, so registration is tracked by handle
// rather than by the listener value itself.
type ListenerHandle uint64

type listenerEntry struct {
	handle   ListenerHandle
	listener Listener
}

// Table is the set of interfaces indexed by kernel interface index.
// All exported methods are safe for concurrent use.
type Table struct {
	mu         sync.Mutex
	interfaces map[uint32]*Interface
	listeners  atomic.Pointer[[]listenerEntry]
	nextHandle atomic.Uint64
}

// New returns an empty Table.
func New() *Table {
	t := &Table{interfaces: make(map[uint32]*Interface)}
	empty := []listenerEntry{}
	t.listeners.Store(&empty)
	return t
}

// AddListener registers l to receive future Events and returns a
// handle for later removal. It does not replay history: a listener
// added after addresses already exist will not see synthetic Enabled
// events for them. Callers that need the current state should call
// Snapshot immediately after AddListener.
func (t *Table) AddListener(l Listener) ListenerHandle {
	h := ListenerHandle(t.nextHandle.Add(1))
	for {
		old := t.listeners.Load()
		next := make([]listenerEntry, len(*old)+1)
		copy(next, *old)
		next[len(*old)] = listenerEntry{handle: h, listener: l}
		if t.listeners.CompareAndSwap(old, &next) {
			return h
		}
	}
}

// RemoveListener unregisters the listener registered under h. It is
// a no-op if h is unknown.
func (t *Table) RemoveListener(h ListenerHandle) {
	for {
		old := t.listeners.Load()
		idx := -1
		for i, entry := range *old {
			if entry.handle == h {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		next := make([]listenerEntry, 0, len(*old)-1)
		next = append(next, (*old)[:idx]...)
		next = append(next, (*old)[idx+1:]...)
		if t.listeners.CompareAndSwap(old, &next) {
			return
		}
	}
}

// fire dispatches an event to every current listener. Must be called
// with t.mu held, so that a mutation and its resulting event are
// observed by listeners in the same order they occurred in the table.
func (t *Table) fire(e Event) {
	for _, entry := range *t.listeners.Load() {
		entry.listener.OnInterfaceChange(e)
	}
}

// AddAddress records addr as configured on the interface at index. It
// fires an Enabled event if the interface had no addresses of either
// family before.
func (t *Table) AddAddress(index uint32, addr netip.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()

	iface, ok := t.interfaces[index]
	if !ok {
		iface = &Interface{}
		t.interfaces[index] = iface
	}

	var family Family
	wasEmpty := iface.empty()
	if addr.Is4() || addr.Is4In6() {
		family = FamilyV4
		if !containsAddr(iface.V4, addr) {
			iface.V4 = insertSorted(iface.V4, addr)
		}
	} else {
		family = FamilyV6
		if !containsAddr(iface.V6, addr) {
			iface.V6 = insertSorted(iface.V6, addr)
		}
	}

	if wasEmpty {
		t.fire(Event{Kind: Enabled, Index: index, Family: family})
	}
}

// RemoveAddress removes addr from the interface at index. It fires a
// Disabled event if addr was the last address of either family on
// that interface.
func (t *Table) RemoveAddress(index uint32, addr netip.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()

	iface, ok := t.interfaces[index]
	if !ok {
		return
	}

	var family Family
	if addr.Is4() || addr.Is4In6() {
		family = FamilyV4
		iface.V4 = removeAddr(iface.V4, addr)
	} else {
		family = FamilyV6
		iface.V6 = removeAddr(iface.V6, addr)
	}

	if iface.empty() {
		t.fire(Event{Kind: Disabled, Index: index, Family: family})
		delete(t.interfaces, index)
	}
}

// InAddresses returns a copy of the IPv4 addresses of the interface
// at index.
func (t *Table) InAddresses(index uint32) []netip.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	iface, ok := t.interfaces[index]
	if !ok {
		return nil
	}
	return append([]netip.Addr(nil), iface.V4...)
}

// In6Addresses returns a copy of the IPv6 addresses of the interface
// at index.
func (t *Table) In6Addresses(index uint32) []netip.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	iface, ok := t.interfaces[index]
	if !ok {
		return nil
	}
	return append([]netip.Addr(nil), iface.V6...)
}

// Snapshot returns copies of both address families of the interface
// at index under a single lock acquisition, so a caller answering a
// qtype=ANY query observes one consistent point in time.
func (t *Table) Snapshot(index uint32) (v4, v6 []netip.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	iface, ok := t.interfaces[index]
	if !ok {
		return nil, nil
	}
	return append([]netip.Addr(nil), iface.V4...), append([]netip.Addr(nil), iface.V6...)
}

// Len returns the number of interfaces with at least one address.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.interfaces)
}

func containsAddr(addrs []netip.Addr, addr netip.Addr) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}

func insertSorted(addrs []netip.Addr, addr netip.Addr) []netip.Addr {
	i := sort.Search(len(addrs), func(i int) bool {
		return addrs[i].Compare(addr) >= 0
	})
	addrs = append(addrs, netip.Addr{})
	copy(addrs[i+1:], addrs[i:])
	addrs[i] = addr
	return addrs
}

func removeAddr(addrs []netip.Addr, addr netip.Addr) []netip.Addr {
	for i, a := range addrs {
		if a == addr {
			return append(addrs[:i], addrs[i+1:]...)
		}
	}
	return addrs
}
