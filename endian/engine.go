// Package endian provides the byte order engine used to encode and decode
// payload segments.
//
// The EndianEngine interface combines ByteOrder and AppendByteOrder from
// the standard encoding/binary package, so append-style encoders avoid the
// temporary buffer that ByteOrder alone requires:
//
//	// Using EndianEngine
//	buf = engine.AppendUint64(buf, value)
//
//	// Using ByteOrder only
//	tmp := make([]byte, 8)
//	engine.PutUint64(tmp, value)
//	buf = append(buf, tmp...)  // Slower, extra allocation
//
// File byte order is big-endian for every payload segment handled by sario,
// so only the big-endian engine is exposed.
//
// The returned engine is immutable, stateless, and safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single interface for convenient byte order
// operations.
//
// The interface is satisfied by binary.BigEndian and binary.LittleEndian
// from the standard library, making it fully compatible with existing Go
// code while providing access to both read/write and append operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
