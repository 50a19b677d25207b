// Package cache implements the write-once, filesystem-backed memoization
// store. A key of n coordinates lives at StoragePath/<k0>/.../<kn-1>.leaf and
// the leaf holds one line: the fixed-precision value. Store exposes
// Retrieve/Add on top of an afero.Fs so production runs on the OS filesystem
// and tests on an in-memory one; Dumper flattens the whole tree into a sorted
// "<key>=<value>" snapshot file.
//
// Concurrent writers are not coordinated: two processes adding the same key
// may both pass the existence check, and the last rename wins.
package cache
