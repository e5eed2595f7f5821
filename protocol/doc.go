// This package implements encoding and decoding of the RCON protocol that
// rconctl uses to talk to game servers.
//
// RCON is a small binary request/response protocol over a single TCP stream.
// Every message is a packet with the same layout, all integers little-endian:
//
//   ```
//     int32  length     byte count of everything after this field
//     int32  requestID  chosen by the client, echoed by the server
//     int32  type       see below
//     []byte payload    ASCII/UTF-8, no embedded NUL
//     0x00 0x00         empty body terminator + string terminator
//   ```
//
// So `length` is always `4 + 4 + len(payload) + 2` and the smallest legal
// frame has a length of 10.
//
// === Packet types
//
// - `3` AUTH           - client sends the server password
// - `2` AUTH_RESPONSE  - server answers an AUTH
// - `2` EXECCOMMAND    - client asks the server to run a command
// - `0` RESPONSE_VALUE - server output for a command, or a log line
//
// AUTH_RESPONSE and EXECCOMMAND share the value 2. They are told apart by
// direction only, so the package keeps both names.
//
// === Request IDs
//
// The server copies the request ID of a request into every response packet.
// A request ID of -1 in a response marks it as invalid; an AUTH_RESPONSE with
// -1 means the password was rejected.
//
// Request ID 0 is used for packets the server pushes without being asked.
//
// === Authentication
//
//  ```
//    > <id> AUTH <password>
//    < <id> RESPONSE_VALUE ""     (only some servers)
//    < <id|-1> AUTH_RESPONSE ""
//  ```
//
// === Multi-packet responses
//
// Servers split command output that does not fit into one packet. The client
// follows the command with an empty RESPONSE_VALUE using the next request ID.
// Servers answer in order, so the echo of that marker arrives after the last
// fragment of the command output.
//
//  ```
//    > <id>   EXECCOMMAND <command>
//    > <id+1> RESPONSE_VALUE ""
//    < <id>   RESPONSE_VALUE <fragment>
//    < <id>   RESPONSE_VALUE <fragment>
//    < <id+1> RESPONSE_VALUE ...
//  ```
//
package protocol
