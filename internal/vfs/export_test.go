package vfs

// DirentHeaderSize re-exports direntHeaderSize for the external vfs_test
// package, which sizes dirent buffers with it. Those tests live outside
// package vfs because they import vfsmock, which itself imports vfs.
const DirentHeaderSize = direntHeaderSize
