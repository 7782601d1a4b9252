package llmnrsock

import "testing"

func TestGetBufferReturnsFullCapacityBuffer(t *testing.T) {
	buf := getBuffer()
	if len(*buf) != maxDatagramSize {
		t.Fatalf("len(buf) = %d, want %d", len(*buf), maxDatagramSize)
	}
	putBuffer(buf)
}

func TestBufferPoolKeepsFullLengthAcrossGetPut(t *testing.T) {
	buf := getBuffer()
	(*buf)[0] = 0xAB
	putBuffer(buf)

	for i := 0; i < 8; i++ {
		b := getBuffer()
		if len(*b) != maxDatagramSize {
			t.Fatalf("pooled buffer has wrong length: %d", len(*b))
		}
		putBuffer(b)
	}
}
