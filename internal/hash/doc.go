// Package hash provides the checksums guarding container index blocks and dataset payloads.
//
// Every checksum in a container is CRC32-Castagnoli (CRC32C). Go's crc32 package
// uses the SSE4.2 / ARM CRC instructions when available.
//
//	sum := hash.CRC32C(payload)
//	if err := hash.Verify("index", payload, sum); err != nil {
//	    // corrupt container
//	}
package hash
