package protocol

import "fmt"

type PacketType int32

const (
	ResponseValue PacketType = 0
	ExecCommand   PacketType = 2
	AuthResponse  PacketType = 2
	Auth          PacketType = 3
)

func (t PacketType) String() string {
	switch t {
	case ResponseValue:
		return "RESPONSE_VALUE"
	case ExecCommand:
		// AuthResponse shares this value
		return "EXECCOMMAND/AUTH_RESPONSE"
	case Auth:
		return "AUTH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

const (
	// InvalidRequestID is the request ID a server uses to mark a packet as
	// invalid, e.g. to reject a password.
	InvalidRequestID int32 = -1

	// ListenRequestID is the request ID of packets the server sends without
	// a matching request.
	ListenRequestID int32 = 0
)

const (
	// LengthFieldSize is the size of the length prefix, which is not counted
	// in the length itself.
	LengthFieldSize = 4

	// TerminatorSize covers the two NUL bytes that end every packet.
	TerminatorSize = 2

	// WrapperSize is everything counted by the length field except the payload.
	WrapperSize = 4 + 4 + TerminatorSize

	// MinLength is the length of a packet with an empty payload.
	MinLength = WrapperSize
)

// Packet is a single RCON packet. Packets are values; nothing in this module
// mutates one after it is built.
type Packet struct {
	RequestID int32
	Type      PacketType
	Payload   string
}

func NewPacket(requestID int32, packetType PacketType, payload string) Packet {
	return Packet{RequestID: requestID, Type: packetType, Payload: payload}
}

// IsValid returns false for packets carrying InvalidRequestID.
func (p Packet) IsValid() bool {
	return p.RequestID != InvalidRequestID
}

// EncodedLen returns the number of bytes p occupies on the wire, including
// the length prefix.
func EncodedLen(p Packet) int {
	return LengthFieldSize + WrapperSize + len(p.Payload)
}
