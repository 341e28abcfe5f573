package probe

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ICMPv4 message types the tracer cares about.
const (
	ICMPv4EchoReply    = 0
	ICMPv4Unreachable  = 3
	ICMPv4EchoRequest  = 8
	ICMPv4TimeExceeded = 11
)

// Datagram is a decoded ICMPv4 message as read from a raw socket,
// including the IPv4 header it arrived in.
type Datagram struct {
	// Source is the router or host that sent the ICMP message
	Source net.IP

	Type uint8
	Code uint8

	// Quoted holds the ICMP payload. For error messages this is the
	// original IP header plus at least 8 bytes of the original datagram.
	Quoted []byte
}

// ParseDatagram decodes a full IPv4 datagram carrying ICMP.
// It returns ErrInvalidPacket for truncated or corrupt input and
// ErrNotICMP when the datagram carries another protocol.
func ParseDatagram(data []byte) (*Datagram, error) {
	var (
		ip4     layers.IPv4
		icmp4   layers.ICMPv4
		decoded []gopacket.LayerType
	)

	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeIPv4, &ip4, &icmp4)
	parser.IgnoreUnsupported = true

	if err := parser.DecodeLayers(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}

	if len(decoded) == 0 || decoded[0] != layers.LayerTypeIPv4 {
		return nil, ErrInvalidPacket
	}
	if ip4.Protocol != layers.IPProtocolICMPv4 {
		return nil, ErrNotICMP
	}
	if len(decoded) < 2 || decoded[1] != layers.LayerTypeICMPv4 {
		return nil, ErrInvalidPacket
	}
	if !ValidateChecksum(ip4.Payload) {
		return nil, fmt.Errorf("%w: bad ICMP checksum", ErrInvalidPacket)
	}

	return &Datagram{
		Source: append(net.IP(nil), ip4.SrcIP.To4()...),
		Type:   icmp4.TypeCode.Type(),
		Code:   icmp4.TypeCode.Code(),
		Quoted: append([]byte(nil), icmp4.Payload...),
	}, nil
}

// IsTimeExceeded reports whether the datagram is an ICMP Time Exceeded message.
func (d *Datagram) IsTimeExceeded() bool {
	return d.Type == ICMPv4TimeExceeded
}

// IsUnreachable reports whether the datagram is an ICMP Destination Unreachable message.
func (d *Datagram) IsUnreachable() bool {
	return d.Type == ICMPv4Unreachable
}

// QuotedTCP is the part of an original TCP segment quoted inside an ICMP error.
type QuotedTCP struct {
	Dest    net.IP
	SrcPort uint16
	DstPort uint16
}

// QuotedTCP extracts the destination and ports of the TCP segment quoted in
// an ICMP error message. It returns false if the quote is not TCP or too short.
func (d *Datagram) QuotedTCP() (QuotedTCP, bool) {
	q := d.Quoted
	if len(q) < 20 || q[0]>>4 != 4 {
		return QuotedTCP{}, false
	}

	ihl := int(q[0]&0x0f) * 4
	if ihl < 20 || len(q) < ihl+4 {
		return QuotedTCP{}, false
	}
	if layers.IPProtocol(q[9]) != layers.IPProtocolTCP {
		return QuotedTCP{}, false
	}

	seg := q[ihl:]
	return QuotedTCP{
		Dest:    net.IP(append([]byte(nil), q[16:20]...)),
		SrcPort: binary.BigEndian.Uint16(seg[0:2]),
		DstPort: binary.BigEndian.Uint16(seg[2:4]),
	}, true
}
