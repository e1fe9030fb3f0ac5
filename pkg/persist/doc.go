// Package persist saves keyed reactive state across process restarts.
//
// A Manager walks a registry, serializes every persistent cell into a
// single JSON snapshot, and hands it to a Store. On the next start,
// Restore writes the saved values back into the cells the program has
// re-registered, through their ordinary write path, so effects and
// computeds react exactly as if the values had been set by code.
//
//	reg := registry.Default
//	theme := registry.SharedSignal(registry.Str("theme"), "light")
//
//	store, _ := persist.NewDiskStore("/var/lib/myapp")
//	m := persist.NewManager(reg, store, persist.ManagerConfig{
//	    SaveInterval: time.Minute,
//	}, nil)
//	_ = m.Restore(ctx)        // theme picks up its saved value
//	defer m.Stop(ctx)          // final save on shutdown
//
// Signals participate unless created with ripple.Transient. Resources stay
// out unless created with resource.WithPersist, since fetched data is
// usually cheaper to refetch than to trust stale.
//
// Stores are interchangeable: MemoryStore for tests, DiskStore for a
// single host, S3Store for durable shared storage.
package persist
