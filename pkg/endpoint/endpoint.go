// Package endpoint defines the IPv4 address/port pair used as the source and
// destination of every datagram.
package endpoint

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Endpoint is an IPv4 address in host byte order and a port.
// 127.0.0.1 is represented as 0x7F000001.
type Endpoint struct {
	Address uint32
	Port    uint16
}

// LocalhostAddress is 127.0.0.1 in host byte order.
const LocalhostAddress uint32 = 0x7F000001

// Any is 0.0.0.0:0, meaning any interface and an OS-assigned port when bound.
var Any = Endpoint{}

// ErrInvalid is returned when a string cannot be parsed as an endpoint.
var ErrInvalid = errors.New("invalid endpoint")

// New builds an endpoint from dotted-quad octets and a port.
func New(a, b, c, d byte, port uint16) Endpoint {
	return Endpoint{
		Address: uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d),
		Port:    port,
	}
}

// Localhost returns 127.0.0.1 with the given port.
func Localhost(port uint16) Endpoint {
	return Endpoint{Address: LocalhostAddress, Port: port}
}

// Parse parses "a.b.c.d:port". Hostnames and IPv6 are rejected.
func Parse(s string) (Endpoint, error) {
	host, portStr, ok := strings.Cut(s, ":")
	if !ok {
		return Endpoint{}, fmt.Errorf("%w %q: missing port", ErrInvalid, s)
	}

	addr, err := ParseAddress(host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w %q: bad port", ErrInvalid, s)
	}

	return Endpoint{Address: addr, Port: uint16(port)}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Endpoint {
	ep, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ep
}

// ParseAddress parses a dotted-quad IPv4 address into host byte order.
func ParseAddress(s string) (uint32, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return 0, err
	}
	if !ip.Is4() {
		return 0, fmt.Errorf("not an IPv4 address: %s", s)
	}
	o := ip.As4()
	return uint32(o[0])<<24 | uint32(o[1])<<16 | uint32(o[2])<<8 | uint32(o[3]), nil
}

// FromAddrPort converts a netip.AddrPort. IPv4-mapped IPv6 addresses are unmapped.
func FromAddrPort(ap netip.AddrPort) (Endpoint, error) {
	ip := ap.Addr().Unmap()
	if !ip.Is4() {
		return Endpoint{}, fmt.Errorf("%w: %s is not IPv4", ErrInvalid, ap)
	}
	o := ip.As4()
	return New(o[0], o[1], o[2], o[3], ap.Port()), nil
}

// Octets returns the address in network order, most significant octet first.
func (e Endpoint) Octets() [4]byte {
	return [4]byte{
		byte(e.Address >> 24),
		byte(e.Address >> 16),
		byte(e.Address >> 8),
		byte(e.Address),
	}
}

// AddrPort converts the endpoint to a netip.AddrPort.
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(e.Octets()), e.Port)
}

// IsAny reports whether the endpoint is 0.0.0.0:0.
func (e Endpoint) IsAny() bool {
	return e == Any
}

// String formats the endpoint as "a.b.c.d:port".
func (e Endpoint) String() string {
	o := e.Octets()
	return fmt.Sprintf("%d.%d.%d.%d:%d", o[0], o[1], o[2], o[3], e.Port)
}

// Compare orders endpoints by address, then port. It returns -1, 0 or 1.
func Compare(x, y Endpoint) int {
	switch {
	case x.Address > y.Address:
		return 1
	case x.Address < y.Address:
		return -1
	case x.Port > y.Port:
		return 1
	case x.Port < y.Port:
		return -1
	}
	return 0
}
