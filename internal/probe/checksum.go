package probe

// Checksum calculates the Internet Checksum (RFC 1071) over data.
func Checksum(data []byte) uint16 {
	return ^onesComplementSum(data)
}

// ValidateChecksum reports whether data, including its embedded checksum
// field, sums to all ones.
func ValidateChecksum(data []byte) bool {
	return onesComplementSum(data) == 0xffff
}

func onesComplementSum(data []byte) uint16 {
	var sum uint32

	for i := 0; i+1 < len(data); i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}

	// Odd trailing byte is padded with zero
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}

	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return uint16(sum)
}
