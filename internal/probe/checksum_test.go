package probe

import (
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name: "ICMP time exceeded header",
			// Type=11, Code=0, Checksum=0, unused
			data:     []byte{0x0b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			expected: 0xf4ff,
		},
		{
			name:     "Even length",
			data:     []byte{0x00, 0x01, 0x00, 0x02},
			expected: 0xfffc,
		},
		{
			name:     "Odd length",
			data:     []byte{0x00, 0x01, 0xf2},
			expected: 0x0dfe,
		},
		{
			name:     "Carry folding",
			data:     []byte{0xff, 0xff, 0x00, 0x01},
			expected: 0xfffe,
		},
		{
			name:     "Empty",
			data:     []byte{},
			expected: 0xffff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.expected {
				t.Errorf("Checksum(%v) = 0x%04x, want 0x%04x", tt.data, got, tt.expected)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	msg := []byte{0x0b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x45, 0x00}
	sum := Checksum(msg)
	msg[2] = byte(sum >> 8)
	msg[3] = byte(sum)

	if !ValidateChecksum(msg) {
		t.Error("ValidateChecksum() = false for a message with a correct checksum")
	}

	msg[9] ^= 0xff
	if ValidateChecksum(msg) {
		t.Error("ValidateChecksum() = true for a corrupted message")
	}
}
