// Package registry shares reactive cells across a process without passing
// them through call trees.
//
// Entries are addressed by structural keys: a plain string or an ordered
// tuple of primitives. Two separately built keys with equal contents name
// the same cell, which is what makes the registry usable from unrelated
// packages:
//
//	// in package profile
//	user := registry.SharedSignal(registry.Tuple("user", 1), User{})
//
//	// in package sidebar, later, with no reference to profile
//	same := registry.SharedSignal(registry.Tuple("user", 1), User{})
//	// same == user: writes through either are seen by both
//
// The first GetOrCreate for a key decides its cell; later calls return that
// cell and ignore their factory. Registry cells belong to the registry, not
// to the scope that happened to create them, so they survive component
// unmounts and are released only by Delete, Reset, or process exit.
package registry
