// Package id generates sortable identifiers for campaigns, uploads and requests.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"strings"
	"time"
)

// Crockford's Base32 alphabet (excludes I, L, O, U to avoid confusion).
const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ULIDLen is the length of an encoded ULID.
const ULIDLen = 26

// ErrInvalidULID is returned when a string is not a well-formed ULID.
var ErrInvalidULID = errors.New("id: invalid ulid")

// NewULID generates a ULID: 48-bit millisecond timestamp followed by 80 random bits,
// encoded as 26 Crockford Base32 characters. ULIDs sort by creation time.
func NewULID() string {
	return newULIDAt(time.Now())
}

func newULIDAt(t time.Time) string {
	var raw [16]byte
	ms := uint64(t.UnixMilli())
	raw[0] = byte(ms >> 40)
	raw[1] = byte(ms >> 32)
	binary.BigEndian.PutUint32(raw[2:6], uint32(ms))

	if _, err := rand.Read(raw[6:]); err != nil {
		// Degraded entropy; still unique per nanosecond.
		binary.BigEndian.PutUint64(raw[6:14], uint64(time.Now().UnixNano()))
	}

	hi := binary.BigEndian.Uint64(raw[:8])
	lo := binary.BigEndian.Uint64(raw[8:])

	// 128 bits into 26 groups of 5; the first group carries only the top 3 bits.
	var out [ULIDLen]byte
	for i := ULIDLen - 1; i >= 0; i-- {
		out[i] = crockfordBase32[lo&0x1F]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}

// IsULID reports whether s is a well-formed ULID.
func IsULID(s string) bool {
	if len(s) != ULIDLen || s[0] > '7' {
		return false
	}
	for i := range len(s) {
		if strings.IndexByte(crockfordBase32, s[i]) < 0 {
			return false
		}
	}
	return true
}

// ULIDTime returns the creation time encoded in s.
func ULIDTime(s string) (time.Time, error) {
	if !IsULID(s) {
		return time.Time{}, ErrInvalidULID
	}
	var ms uint64
	for i := range 10 {
		ms = ms<<5 | uint64(strings.IndexByte(crockfordBase32, s[i]))
	}
	return time.UnixMilli(int64(ms)), nil
}
