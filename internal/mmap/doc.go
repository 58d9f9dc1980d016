// Package mmap maps container files read-only into memory.
//
// Containers are immutable once renamed into place, so reading them through a
// shared read-only mapping is safe and avoids copying dataset blocks through
// kernel buffers.
//
//	m, err := mmap.Open("template.hsc")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// Unix uses mmap(2) via golang.org/x/sys/unix; Windows uses
// CreateFileMapping/MapViewOfFile.
package mmap
