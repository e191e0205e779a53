package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
)

// RoomCodeAlphabet is the set of characters used in generated room codes.
// Upper case only so codes survive being read out loud.
const RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomCodeLength is the length of generated room codes.
const RoomCodeLength = 8

var roomCode func() string

func init() {
	gen, err := nanoid.CustomASCII(RoomCodeAlphabet, RoomCodeLength)
	if err == nil {
		roomCode = gen
	}
}

// NewID returns a unique connection identifier.
func NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}

	// Fallback to timestamp if the random source is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// NewRoomCode returns a random shareable room code.
func NewRoomCode() string {
	if roomCode != nil {
		return roomCode()
	}

	buf := make([]byte, RoomCodeLength/2)
	if _, err := rand.Read(buf); err == nil {
		return strings.ToUpper(hex.EncodeToString(buf))
	}
	return strconv.FormatInt(time.Now().UnixNano()%100_000_000, 36)
}
