package ping

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	protocolICMP  = 1
	echoHeaderLen = 8
	maxPayload    = 65500
)

// payload builds an echo payload of size bytes, each set to 1.
func payload(size int) []byte {
	return bytes.Repeat([]byte{1}, size)
}

// quotedEcho extracts the identifier and sequence of the echo request
// quoted inside an ICMP error message body.
func quotedEcho(data []byte) (id, seq uint16, ok bool) {
	if len(data) < ipv4.HeaderLen+echoHeaderLen {
		return 0, 0, false
	}

	ihl := int(data[0]&0x0f) * 4
	if ihl < ipv4.HeaderLen || len(data) < ihl+echoHeaderLen {
		return 0, 0, false
	}
	if data[9] != protocolICMP {
		return 0, 0, false
	}

	hdr := data[ihl:]
	if hdr[0] != byte(ipv4.ICMPTypeEcho) {
		return 0, 0, false
	}
	return binary.BigEndian.Uint16(hdr[4:6]), binary.BigEndian.Uint16(hdr[6:8]), true
}

// classify matches an inbound ICMP message against the echo request
// identified by id and seq. checkID is false for datagram sockets,
// where the kernel owns the identifier.
func classify(msg *icmp.Message, id, seq uint16, checkID bool) (Status, bool) {
	matchID := func(got uint16) bool { return !checkID || got == id }

	switch msg.Type {
	case ipv4.ICMPTypeEchoReply:
		echo, ok := msg.Body.(*icmp.Echo)
		if !ok || !matchID(uint16(echo.ID)) || uint16(echo.Seq) != seq { // #nosec G115
			return Other, false
		}
		return Success, true

	case ipv4.ICMPTypeTimeExceeded:
		body, ok := msg.Body.(*icmp.TimeExceeded)
		if !ok {
			return Other, false
		}
		qid, qseq, ok := quotedEcho(body.Data)
		if !ok || !matchID(qid) || qseq != seq {
			return Other, false
		}
		return TimeExceeded, true

	case ipv4.ICMPTypeDestinationUnreachable:
		body, ok := msg.Body.(*icmp.DstUnreach)
		if !ok {
			return Other, false
		}
		qid, qseq, ok := quotedEcho(body.Data)
		if !ok || !matchID(qid) || qseq != seq {
			return Other, false
		}
		return Other, true
	}

	return Other, false
}
