package treemanifest

import (
	"context"

	"github.com/sirupsen/logrus"
)

type writer struct {
	ctx       context.Context
	store     Store
	baseStore Store
	format    Format
	deltas    bool

	written int
	reused  int
}

// Write persists every unwritten directory to s, children before parents,
// and returns the root id. Directories already written are reused as is.
//
// With WithBase, a directory whose content matches base's directory at the
// same path is not added again, and changed directories are delta encoded
// against base's version. Without a base the directory's previous id is the
// delta base.
func (m *Manifest) Write(ctx context.Context, s Store, opts ...WriteOption) (Node, error) {
	if s == nil {
		return NullID, invalid("nil store")
	}
	wo := writeOptions{deltas: true}
	for _, opt := range opts {
		opt(&wo)
	}

	w := &writer{
		ctx:    ctx,
		store:  s,
		format: m.opts.Format,
		deltas: wo.deltas,
	}
	var base *dirNode
	if wo.base != nil {
		base = wo.base.root
		w.baseStore = wo.base.store
	}

	id, err := w.write(m.root, base, "")
	if err != nil {
		return NullID, err
	}
	if m.store == nil {
		m.store = s
	}

	m.opts.Logger.WithFields(logrus.Fields{
		"root":    id.Short(),
		"written": w.written,
		"reused":  w.reused,
		"format":  w.format.String(),
	}).Debug("Wrote manifest")
	return id, nil
}

func (w *writer) write(d, base *dirNode, path string) (Node, error) {
	if id := d.persisted(); !id.IsNull() {
		w.reused++
		return id, nil
	}
	if err := w.ctx.Err(); err != nil {
		return NullID, err
	}

	if base != nil {
		if err := base.materialize(w.ctx, w.baseStore, path); err != nil {
			return NullID, err
		}
	}

	for i := range d.entries {
		e := &d.entries[i]
		if !e.isDir() {
			continue
		}
		var baseChild *dirNode
		if base != nil {
			if j, ok := base.search(e.name, true); ok {
				baseChild = base.entries[j].dir
			}
		}
		if _, err := w.write(e.dir, baseChild, joinPath(path, e.name)); err != nil {
			return NullID, err
		}
	}

	data := encodeDir(d.entries, w.format)
	id := hashDir(data)

	baseID := d.prior
	if base != nil {
		if b := base.persisted(); !b.IsNull() {
			baseID = b
		}
	}

	if id != baseID {
		deltaBase := NullID
		if w.deltas {
			deltaBase = baseID
		}
		if err := w.store.Add(w.ctx, path, id, deltaBase, data); err != nil {
			return NullID, &StoreError{Op: "add", Path: path, Node: id, Err: err}
		}
		w.written++
	} else {
		w.reused++
	}

	d.markPersisted(id)
	return id, nil
}
