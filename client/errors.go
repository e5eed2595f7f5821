package client

import "errors"

var (
	ErrProtocolViolation    = errors.New("Server response violates the RCON protocol")
	ErrAuthenticationFailed = errors.New("Authentication failed")
	ErrSessionClosed        = errors.New("Session is closed")
)
