// Package store persists Slot, Fork and Block values in a key-value store,
// one byte-prefixed namespace per kind.
package store

import (
	"encoding/binary"
	"errors"
)

const (
	prefixSlot byte = iota + 1
	prefixFork
	prefixBlock
)

var (
	ErrSlotNotFound  = errors.New("slot not found")
	ErrForkNotFound  = errors.New("fork not found")
	ErrBlockNotFound = errors.New("block not found")
)

func makeKey(prefix byte, suffix []byte) []byte {
	key := make([]byte, 0, 1+len(suffix))
	key = append(key, prefix)
	return append(key, suffix...)
}

func uint64Key(prefix byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return makeKey(prefix, buf[:])
}
