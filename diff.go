package treemanifest

// Change describes one path that differs between two manifests. The absent
// side is the zero File.
type Change struct {
	Old File
	New File
}

type differ struct {
	a, b   *Manifest
	clean  bool
	result map[string]*Change
}

// Diff compares m (old) with other (new). The result maps each differing
// path to its Change. With clean set, unchanged files are included with a
// nil Change.
//
// Subtrees that are the same node, or were written with the same id, are
// skipped without being loaded unless clean is set.
func (m *Manifest) Diff(other *Manifest, clean bool) (map[string]*Change, error) {
	d := &differ{a: m, b: other, clean: clean, result: make(map[string]*Change)}
	if err := d.dirs(m.root, other.root, ""); err != nil {
		return nil, err
	}
	return d.result, nil
}

func (d *differ) same(a, b *dirNode) bool {
	if a == b {
		return true
	}
	ida := a.persisted()
	return !ida.IsNull() && ida == b.persisted()
}

func (d *differ) dirs(a, b *dirNode, path string) error {
	if d.same(a, b) {
		if !d.clean {
			return nil
		}
		return d.all(d.a, a, path, func(File) *Change { return nil })
	}
	if err := d.a.load(a, path); err != nil {
		return err
	}
	if err := d.b.load(b, path); err != nil {
		return err
	}

	i, j := 0, 0
	for i < len(a.entries) || j < len(b.entries) {
		var c int
		switch {
		case i == len(a.entries):
			c = 1
		case j == len(b.entries):
			c = -1
		default:
			c = compareEntries(&a.entries[i], &b.entries[j])
		}

		switch {
		case c < 0:
			if err := d.removed(&a.entries[i], path); err != nil {
				return err
			}
			i++
		case c > 0:
			if err := d.added(&b.entries[j], path); err != nil {
				return err
			}
			j++
		default:
			ea, eb := &a.entries[i], &b.entries[j]
			sub := joinPath(path, ea.name)
			if ea.isDir() {
				if err := d.dirs(ea.dir, eb.dir, sub); err != nil {
					return err
				}
			} else if ea.file != eb.file {
				d.result[sub] = &Change{Old: ea.file, New: eb.file}
			} else if d.clean {
				d.result[sub] = nil
			}
			i++
			j++
		}
	}
	return nil
}

func (d *differ) removed(e *entry, path string) error {
	sub := joinPath(path, e.name)
	if !e.isDir() {
		d.result[sub] = &Change{Old: e.file}
		return nil
	}
	return d.all(d.a, e.dir, sub, func(f File) *Change { return &Change{Old: f} })
}

func (d *differ) added(e *entry, path string) error {
	sub := joinPath(path, e.name)
	if !e.isDir() {
		d.result[sub] = &Change{New: e.file}
		return nil
	}
	return d.all(d.b, e.dir, sub, func(f File) *Change { return &Change{New: f} })
}

// all records every file below dir using change.
func (d *differ) all(m *Manifest, dir *dirNode, path string, change func(File) *Change) error {
	if err := m.load(dir, path); err != nil {
		return err
	}
	for i := range dir.entries {
		e := &dir.entries[i]
		sub := joinPath(path, e.name)
		if e.isDir() {
			if err := d.all(m, e.dir, sub, change); err != nil {
				return err
			}
			continue
		}
		d.result[sub] = change(e.file)
	}
	return nil
}
