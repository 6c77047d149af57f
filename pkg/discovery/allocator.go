// Package discovery resolves a service's dependencies to reachable
// addresses (spec §4.G) and allocates per-topology IPs for services that
// need one. Grounded on the teacher's lack of an equivalent component
// (warren's networking is cluster-overlay-specific, see pkg/network) and
// on poc/wireguard/main.go for the wgctrl/wgtypes key-management calls the
// Overlay topology uses.
package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/cuemby/harness/pkg/herrors"
)

// IPAllocator hands out stable IPs from a CIDR pool, one per service name.
// Releasing a name returns its IP to a free list, which is drained before
// the sequential cursor advances — so repeatedly allocating, releasing,
// and reallocating the same name yields the same IP back (spec §8
// scenario 4), and releasing the oldest-allocated name first frees its
// exact address for immediate reuse.
type IPAllocator struct {
	mu       sync.Mutex
	network  *net.IPNet
	cursor   net.IP
	byName   map[string]net.IP
	byIP     map[string]string // dotted IP -> name
	freeList []net.IP
}

// NewIPAllocator builds an allocator over cidr (e.g. "10.100.0.0/24").
// The network address, the gateway at .1, and the broadcast address are
// all reserved and never handed out — the first call to Allocate returns
// .2 (spec §3, §8 scenario 4).
func NewIPAllocator(cidr string) (*IPAllocator, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, herrors.Wrap(herrors.Config, "parse CIDR "+cidr, err)
	}
	start := make(net.IP, len(network.IP))
	copy(start, network.IP)
	incrementIP(start) // skip the network address itself
	incrementIP(start) // skip the reserved gateway at .1

	return &IPAllocator{
		network: network,
		cursor:  start,
		byName:  make(map[string]net.IP),
		byIP:    make(map[string]string),
	}, nil
}

// Allocate returns the IP assigned to name, allocating a new one if name
// has none yet.
func (a *IPAllocator) Allocate(name string) (net.IP, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ip, ok := a.byName[name]; ok {
		return ip, nil
	}

	var ip net.IP
	if len(a.freeList) > 0 {
		ip = a.freeList[0]
		a.freeList = a.freeList[1:]
	} else {
		for {
			if !a.network.Contains(a.cursor) {
				return nil, herrors.New(herrors.Resolution, fmt.Sprintf("IP pool %s exhausted", a.network.String()))
			}
			candidate := make(net.IP, len(a.cursor))
			copy(candidate, a.cursor)
			incrementIP(a.cursor)
			if isBroadcast(candidate, a.network) {
				continue
			}
			ip = candidate
			break
		}
	}

	a.byName[name] = ip
	a.byIP[ip.String()] = name
	return ip, nil
}

// Release frees name's IP for reuse. A no-op if name has no allocation.
func (a *IPAllocator) Release(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ip, ok := a.byName[name]
	if !ok {
		return
	}
	delete(a.byName, name)
	delete(a.byIP, ip.String())
	a.freeList = append(a.freeList, ip)
}

// Lookup returns the IP currently allocated to name, if any.
func (a *IPAllocator) Lookup(name string) (net.IP, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ip, ok := a.byName[name]
	return ip, ok
}

func incrementIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			return
		}
	}
}

func isBroadcast(ip net.IP, network *net.IPNet) bool {
	broadcast := make(net.IP, len(network.IP))
	for i := range network.IP {
		broadcast[i] = network.IP[i] | ^network.Mask[i]
	}
	return ip.Equal(broadcast)
}
