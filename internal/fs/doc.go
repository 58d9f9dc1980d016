// Package fs provides filesystem abstractions for testability and fault injection.
//
// Container writers never write to their destination path directly: they stream
// into an [AtomicFile] and commit it over the target once the index and footer
// are durable. [FaultyFS] lets tests fail any of those
// steps to prove no partial container is ever left behind.
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 64})
//
// Like the rest of the local I/O path, this package takes no context.Context;
// local file system calls are not interruptible at the syscall level.
package fs
