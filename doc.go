// Package treemanifest provides a tree-structured directory manifest with
// copy-on-write sharing, lazy loading and delta-compressed persistence.
//
// A manifest maps file paths to a 20-byte node id and a one-byte flag.
// Directories are stored as separate objects keyed by (path, id), so an
// unchanged subtree costs nothing to write again and nothing to compare.
//
// Basic usage (in memory):
//
//	m := treemanifest.New(nil)
//
//	// Record files
//	m.Set("src/main.go", id, treemanifest.FlagNone)
//	m.Set("bin/run", id2, treemanifest.FlagExec)
//
//	// Look them up
//	id, flag, err := m.Find("src/main.go")
//	if m.HasDir("src") { ... }
//
//	// Iterate in canonical order
//	for e, err := range m.Entries() {
//	    fmt.Println(e.Path, e.Node, e.Flag)
//	}
//
// With persistence:
//
//	store, _ := treemanifest.OpenLocalStore(dir, treemanifest.DefaultStoreOptions())
//	root, _ := m.Write(ctx, store)
//
//	// Later: nothing is read until a path is looked up
//	m = treemanifest.Load(store, root)
//
//	// Branch cheaply and write against the parent
//	next := m.Copy()
//	next.Set("src/main.go", newID, treemanifest.FlagNone)
//	nextRoot, _ := next.Write(ctx, store, treemanifest.WithBase(m))
//
//	// Compare
//	changes, _ := m.Diff(next, false)
//
// Text renders the legacy flat manifest format (v1 or v2) byte for byte, so
// tree and flat manifests can be used side by side.
//
// With remote sync:
//
//	r, _ := treemanifest.NewRegistryRemote("ttl.sh/myorg/manifests:main")
//	treemanifest.Push(ctx, m, r)
//	m, _ = treemanifest.Pull(ctx, store, r)
package treemanifest
