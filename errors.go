/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
)

// Recoverable rejection causes, reported back to the originating
// connection only. Anything else that reaches the dispatcher is logged
// and dropped.
var (
	errRoomNotFound  = errors.New("room not found")
	errGameNotFound  = errors.New("game definition not found")
	errUnauthorized  = errors.New("unauthorized")
	errUsernameTaken = errors.New("username taken")
	errInvalidState  = errors.New("invalid session state")
)

// reasonCode maps a rejection to the wire-level reason sent to clients.
func reasonCode(err error) string {
	switch {
	case errors.Is(err, errRoomNotFound):
		return "room_not_found"
	case errors.Is(err, errGameNotFound):
		return "game_not_found"
	case errors.Is(err, errUnauthorized):
		return "unauthorized"
	case errors.Is(err, errUsernameTaken):
		return "username_taken"
	case errors.Is(err, errInvalidState):
		return "invalid_state"
	default:
		return "internal"
	}
}
