//go:build windows

package socket

import "testing"

const (
	wouldBlockCode  = wsaEWouldBlock
	connRefusedCode = wsaEConnRefused
)

func TestIsTruncated(t *testing.T) {
	if !IsTruncated(wsaEMsgSize) {
		t.Errorf("IsTruncated(WSAEMSGSIZE) = false, want true")
	}
	if IsWouldBlock(wsaEMsgSize) || IsTransient(wsaEMsgSize) {
		t.Errorf("WSAEMSGSIZE must not be classified as would-block or transient")
	}
	for _, code := range []int32{0, wsaEWouldBlock, wsaEConnReset} {
		if IsTruncated(code) {
			t.Errorf("IsTruncated(%d) = true, want false", code)
		}
	}
}
