package probe

import (
	"bytes"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	buf := make([]byte, 32)
	if err := Encode(buf, 42, 123456); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if !bytes.Equal(buf[:4], []byte(Magic)) {
		t.Errorf("expected magic prefix, got %q", buf[:4])
	}
	want := []byte{0, 0, 0, 42, 0, 1, 0xe2, 0x40}
	if !bytes.Equal(buf[4:12], want) {
		t.Errorf("expected big-endian header %x, got %x", want, buf[4:12])
	}

	seq, ms, ok := Decode(buf)
	if !ok || seq != 42 || ms != 123456 {
		t.Errorf("Decode() = %d, %d, %v", seq, ms, ok)
	}
}

func TestEncode_ShortBuffer(t *testing.T) {
	if err := Encode(make([]byte, HeaderSize-1), 1, 1); err == nil {
		t.Error("expected error for short buffer")
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short", []byte("UKP1\x00\x00")},
		{"wrong magic", []byte("XXXX\x00\x00\x00\x01\x00\x00\x00\x01")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := Decode(tt.buf); ok {
				t.Error("expected Decode to reject")
			}
		})
	}
}
