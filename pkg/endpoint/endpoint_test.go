package endpoint

import (
	"errors"
	"net/netip"
	"testing"
)

func TestNew_PacksHostOrder(t *testing.T) {
	ep := New(127, 0, 0, 1, 14000)

	if ep.Address != 0x7F000001 {
		t.Errorf("expected address 0x7F000001, got %#x", ep.Address)
	}
	if ep.Port != 14000 {
		t.Errorf("expected port 14000, got %d", ep.Port)
	}
	if ep != Localhost(14000) {
		t.Errorf("expected %v to equal Localhost(14000)", ep)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Endpoint
		wantErr bool
	}{
		{in: "127.0.0.1:14000", want: New(127, 0, 0, 1, 14000)},
		{in: "0.0.0.0:0", want: Any},
		{in: "10.1.2.3:65535", want: New(10, 1, 2, 3, 65535)},
		{in: "127.0.0.1", wantErr: true},
		{in: "127.0.0.1:65536", wantErr: true},
		{in: "127.0.0:80", wantErr: true},
		{in: "localhost:80", wantErr: true},
		{in: "[::1]:80", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.in, got)
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestString_RoundTripsThroughParse(t *testing.T) {
	ep := New(192, 168, 1, 20, 27000)

	if ep.String() != "192.168.1.20:27000" {
		t.Errorf("unexpected string %q", ep.String())
	}

	back := MustParse(ep.String())
	if back != ep {
		t.Errorf("expected %v, got %v", ep, back)
	}
}

func TestCompare_OrdersByAddressThenPort(t *testing.T) {
	a := New(10, 0, 0, 1, 500)
	b := New(10, 0, 0, 1, 600)
	c := New(10, 0, 0, 2, 1)

	if Compare(a, a) != 0 {
		t.Error("expected equal endpoints to compare 0")
	}
	if Compare(a, b) != -1 || Compare(b, a) != 1 {
		t.Error("expected port to break address ties")
	}
	if Compare(b, c) != -1 || Compare(c, b) != 1 {
		t.Error("expected address to dominate port")
	}
}

func TestAddrPort_Conversion(t *testing.T) {
	ep := New(8, 8, 4, 4, 53)

	ap := ep.AddrPort()
	if ap.String() != "8.8.4.4:53" {
		t.Errorf("unexpected AddrPort %s", ap)
	}

	back, err := FromAddrPort(ap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != ep {
		t.Errorf("expected %v, got %v", ep, back)
	}
}

func TestFromAddrPort_UnmapsIPv4InIPv6(t *testing.T) {
	ap := netip.MustParseAddrPort("[::ffff:127.0.0.1]:80")

	ep, err := FromAddrPort(ap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep != Localhost(80) {
		t.Errorf("expected 127.0.0.1:80, got %v", ep)
	}
}

func TestFromAddrPort_RejectsIPv6(t *testing.T) {
	_, err := FromAddrPort(netip.MustParseAddrPort("[::1]:80"))
	if err == nil {
		t.Error("expected error for IPv6 address")
	}
}

func TestIsAny(t *testing.T) {
	if !Any.IsAny() {
		t.Error("expected Any to be any")
	}
	if Localhost(0).IsAny() {
		t.Error("expected localhost not to be any")
	}
}
