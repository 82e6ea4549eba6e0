package treemanifest

import (
	"fmt"
	"strings"

	"github.com/CuylerR/Meta-sapling-OS/flat"
	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

// Directory objects use the flat manifest line formats with entry names in
// place of full paths. Subdirectories are references: their stored id with
// the reserved "t" flag.
//
//	v1: {name}\0{40 hex}{flag}\n
//	v2: \0, then {stemlen}{suffix}\0{flag}\n{20 byte id}\n

// encodeDir serializes entries; every subdirectory must already be
// persisted.
func encodeDir(entries []entry, format Format) []byte {
	w := flat.NewWriter(format)
	for i := range entries {
		e := &entries[i]
		if e.isDir() {
			w.Add(e.name, e.dir.persisted(), dirFlag)
			continue
		}
		w.Add(e.name, e.file.Node, string(e.file.Flag))
	}
	return w.Bytes()
}

func hashDir(data []byte) Node {
	return node.Sum("tree", data)
}

func decodeDir(data []byte) ([]entry, error) {
	records, err := flat.DecodeRecords(data)
	if err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(records))
	for _, r := range records {
		if r.Path == "" || strings.ContainsAny(r.Path, "/\x00\n") {
			return nil, fmt.Errorf("invalid entry name %q", r.Path)
		}

		if r.Node.IsNull() {
			return nil, fmt.Errorf("entry %q has a null node", r.Path)
		}

		e := entry{name: r.Path}
		if r.Flag == dirFlag {
			e.dir = storedDir(r.Node)
		} else {
			e.file = File{Node: r.Node, Flag: Flag(r.Flag)}
		}

		if n := len(entries); n > 0 && entries[n-1].name == e.name {
			return nil, fmt.Errorf("duplicate entry %q", r.Path)
		}
		if n := len(entries); n > 0 && compareEntries(&entries[n-1], &e) >= 0 {
			return nil, fmt.Errorf("entry %q out of order", r.Path)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
