package hash

import (
	"fmt"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// ErrChecksumMismatch is returned by Verify when the stored and computed sums differ.
type ErrChecksumMismatch struct {
	What     string
	Expected uint32
	Actual   uint32
}

func (e *ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("%s checksum mismatch: expected %08x, got %08x", e.What, e.Expected, e.Actual)
}

// Verify checks data against a stored CRC32C sum. what names the checked region in the error.
func Verify(what string, data []byte, expected uint32) error {
	if actual := CRC32C(data); actual != expected {
		return &ErrChecksumMismatch{What: what, Expected: expected, Actual: actual}
	}
	return nil
}
