package rcontest

import (
	"fmt"

	"github.com/luma/rconctl/protocol"
)

type GameOptions struct {
	Password string

	// AuthQuirk sends an empty RESPONSE_VALUE ahead of every AUTH_RESPONSE,
	// the way CS:GO does.
	AuthQuirk bool

	// FragmentSize splits command output into packets of at most this many
	// bytes. Zero means 4096, what Minecraft uses.
	FragmentSize int

	// Commands maps a command to its output. Unknown commands produce an
	// "Unknown command" line.
	Commands map[string]string
}

// Game returns a Handler that behaves like a game server for one
// connection: it checks the password, refuses commands before a successful
// login, splits long output and echoes marker packets.
func Game(options GameOptions) Handler {
	fragmentSize := options.FragmentSize
	if fragmentSize < 1 {
		fragmentSize = 4096
	}

	authenticated := false

	return func(req protocol.Packet) []protocol.Packet {
		switch req.Type {
		case protocol.Auth:
			var resp []protocol.Packet
			if options.AuthQuirk {
				resp = append(resp, protocol.NewPacket(req.RequestID, protocol.ResponseValue, ""))
			}

			authenticated = req.Payload == options.Password

			id := req.RequestID
			if !authenticated {
				id = protocol.InvalidRequestID
			}

			return append(resp, protocol.NewPacket(id, protocol.AuthResponse, ""))

		case protocol.ExecCommand:
			if !authenticated {
				return []protocol.Packet{
					protocol.NewPacket(protocol.InvalidRequestID, protocol.ResponseValue, "Not authenticated"),
				}
			}

			output, ok := options.Commands[req.Payload]
			if !ok {
				output = fmt.Sprintf("Unknown command: %s", req.Payload)
			}

			return Fragment(req.RequestID, output, fragmentSize)

		case protocol.ResponseValue:
			return []protocol.Packet{protocol.NewPacket(req.RequestID, protocol.ResponseValue, "")}

		default:
			return nil
		}
	}
}

// Fragment splits output into RESPONSE_VALUE packets of at most size bytes.
// Empty output still yields one packet.
func Fragment(requestID int32, output string, size int) []protocol.Packet {
	packets := []protocol.Packet{}

	for len(output) > size {
		packets = append(packets, protocol.NewPacket(requestID, protocol.ResponseValue, output[:size]))
		output = output[size:]
	}

	return append(packets, protocol.NewPacket(requestID, protocol.ResponseValue, output))
}
