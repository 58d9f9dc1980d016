// Package compress implements the block encoding of container dataset payloads.
//
// Block layout: uint32 raw size | uint32 stored size | payload. A stored size of
// zero means the payload is the raw bytes; otherwise it is compressed with the
// algorithm recorded in the dataset's index entry (LZ4 via pierrec/lz4, zstd via
// klauspost/compress). Which algorithm to use is always the writer's choice.
package compress
