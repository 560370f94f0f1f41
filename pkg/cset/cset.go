// Package cset implements the changeset algebra: an ordered, normalized
// record of differences between two rosters (§3, §4.2), its application
// to an editable tree in the fixed order §4.2 mandates, and its textual
// encoding (§6).
//
// Grounded on pkg/synchronization/core/apply.go (which walks a Change list
// against an Entry tree) and diff.go (recursive base/target comparison),
// generalized from mutagen's single-pass path-replace model to the
// detach/attach/drop/delta phased application §4.2 requires, itself
// grounded on _examples/original_source/cset.cc.
package cset

import (
	"sort"

	"monotone-sub001/pkg/roster"
	"monotone-sub001/pkg/vpath"
)

// AttrKey names one (path, attribute key) pair. Path is the '/'-joined
// string form (not vpath.Path: a slice isn't comparable, so it can't be a
// map key) — split to a vpath.Path only at the point of use.
type AttrKey struct {
	Path string
	Key  string
}

// Delta records a file's old and new content hash.
type Delta struct {
	Old vpath.Hash
	New vpath.Hash
}

// Changeset is the seven disjoint collections of §3: deletions, directory
// adds, file adds, renames, content deltas, attribute clears, and
// attribute sets.
type Changeset struct {
	NodesDeleted  map[string]struct{}     // path -> {}
	DirsAdded     map[string]struct{}     // path -> {}
	FilesAdded    map[string]vpath.Hash   // path -> content hash
	NodesRenamed  map[string]string       // src path -> dst path
	DeltasApplied map[string]Delta        // path -> (old, new)
	AttrsCleared  map[AttrKey]struct{}    // (path, key) -> {}
	AttrsSet      map[AttrKey]string      // (path, key) -> value
}

// New returns an empty, normalized Changeset.
func New() *Changeset {
	return &Changeset{
		NodesDeleted:  make(map[string]struct{}),
		DirsAdded:     make(map[string]struct{}),
		FilesAdded:    make(map[string]vpath.Hash),
		NodesRenamed:  make(map[string]string),
		DeltasApplied: make(map[string]Delta),
		AttrsCleared:  make(map[AttrKey]struct{}),
		AttrsSet:      make(map[AttrKey]string),
	}
}

// EnsureValid checks the normalization invariants of §3: no path in both
// added and deltas; no (path, key) in both cleared and set; no path
// renamed to itself; no delete+rename on the same source; no add followed
// by rename of that add; no no-op delta; renames form a permutation on the
// intersection of their src and dst sets.
func (c *Changeset) EnsureValid() error {
	for path := range c.DeltasApplied {
		if _, ok := c.FilesAdded[path]; ok {
			return invalidf("cset: path %q is both added and delta'd", path)
		}
		if d := c.DeltasApplied[path]; d.Old == d.New {
			return invalidf("cset: path %q has a no-op delta", path)
		}
	}
	for key := range c.AttrsSet {
		if _, ok := c.AttrsCleared[key]; ok {
			return invalidf("cset: (%q, %q) is both cleared and set", key.Path, key.Key)
		}
	}
	for src, dst := range c.NodesRenamed {
		if src == dst {
			return invalidf("cset: path %q renamed to itself", src)
		}
		if _, ok := c.NodesDeleted[src]; ok {
			return invalidf("cset: path %q is both deleted and the source of a rename", src)
		}
		if _, ok := c.DirsAdded[src]; ok {
			return invalidf("cset: added path %q is also the source of a rename", src)
		}
		if _, ok := c.FilesAdded[src]; ok {
			return invalidf("cset: added path %q is also the source of a rename", src)
		}
	}
	// Renames must form a permutation on intersection(srcs, dsts): every dst
	// that is also a src elsewhere must itself be a rename source exactly
	// once, and there must be no ambiguity (two srcs mapping to one dst, or
	// one src mapping to two dsts) — map construction already forbids the
	// latter two; check for a dst collision against another src/dst pair.
	seenDst := make(map[string]struct{}, len(c.NodesRenamed))
	for _, dst := range c.NodesRenamed {
		if _, dup := seenDst[dst]; dup {
			return invalidf("cset: two renames target path %q", dst)
		}
		seenDst[dst] = struct{}{}
	}
	return nil
}

// scheduledOp is one detach or attach step, carrying the path length used
// to order it (§4.2 steps 1–2).
type scheduledOp struct {
	path string
	len  int
}

// detachPlan returns every delete and rename-source path, ordered by
// decreasing component length (leaves before ancestors) — §4.2 step 1.
func (c *Changeset) detachPlan() []scheduledOp {
	var ops []scheduledOp
	for path := range c.NodesDeleted {
		ops = append(ops, scheduledOp{path, componentCount(path)})
	}
	for src := range c.NodesRenamed {
		ops = append(ops, scheduledOp{src, componentCount(src)})
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].len != ops[j].len {
			return ops[i].len > ops[j].len
		}
		return ops[i].path > ops[j].path
	})
	return ops
}

// attachPlan returns every rename-target and add path, ordered by
// increasing component length (ancestors before leaves) — §4.2 step 2.
func (c *Changeset) attachPlan() []scheduledOp {
	var ops []scheduledOp
	for _, dst := range c.NodesRenamed {
		ops = append(ops, scheduledOp{dst, componentCount(dst)})
	}
	for path := range c.DirsAdded {
		ops = append(ops, scheduledOp{path, componentCount(path)})
	}
	for path := range c.FilesAdded {
		ops = append(ops, scheduledOp{path, componentCount(path)})
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].len != ops[j].len {
			return ops[i].len < ops[j].len
		}
		return ops[i].path < ops[j].path
	})
	return ops
}

func componentCount(path string) int {
	if path == "" {
		return 0
	}
	n := 1
	for _, r := range path {
		if r == '/' {
			n++
		}
	}
	return n
}

// Apply interprets c as a single atomic tree mutation against tree,
// following the fixed eight-step order of §4.2. Any failure aborts; per
// §5, the caller is responsible for discarding the partially-built result
// (Apply does not attempt rollback).
func Apply(c *Changeset, tree roster.EditableTree) error {
	// Step 1-3: schedule and execute detaches. Renamed nodes keep their
	// detached id for re-attachment; deleted nodes are recorded as drops.
	detached := make(map[string]vpath.NodeID) // src path -> detached node id
	var drops []vpath.NodeID
	for _, op := range c.detachPlan() {
		id, err := tree.DetachNode(vpath.SplitPath(op.path))
		if err != nil {
			return err
		}
		if _, isRename := c.NodesRenamed[op.path]; isRename {
			detached[op.path] = id
		} else {
			drops = append(drops, id)
		}
	}

	// Step 4-5: execute adds and rename re-attachments, ancestors first.
	for _, op := range c.attachPlan() {
		if src, isRenameTarget := reverseLookup(c.NodesRenamed, op.path); isRenameTarget {
			id := detached[src]
			if err := tree.AttachNode(id, vpath.SplitPath(op.path)); err != nil {
				return err
			}
			continue
		}
		if _, isDirAdd := c.DirsAdded[op.path]; isDirAdd {
			id := tree.CreateDirNode()
			if err := tree.AttachNode(id, vpath.SplitPath(op.path)); err != nil {
				return err
			}
			continue
		}
		if content, isFileAdd := c.FilesAdded[op.path]; isFileAdd {
			id := tree.CreateFileNode(content)
			if err := tree.AttachNode(id, vpath.SplitPath(op.path)); err != nil {
				return err
			}
			continue
		}
	}

	// Step 6: drops.
	for _, id := range drops {
		if err := tree.DropDetachedNode(id); err != nil {
			return err
		}
	}

	// Step 7: content deltas, then attr clears, then attr sets.
	deltaPaths := sortedKeys(c.DeltasApplied)
	for _, path := range deltaPaths {
		d := c.DeltasApplied[path]
		if err := tree.ApplyDelta(vpath.SplitPath(path), d.Old, d.New); err != nil {
			return err
		}
	}
	clearKeys := sortedAttrKeys(c.AttrsCleared)
	for _, k := range clearKeys {
		if err := tree.ClearAttr(vpath.SplitPath(k.Path), k.Key); err != nil {
			return err
		}
	}
	setKeys := make([]AttrKey, 0, len(c.AttrsSet))
	for k := range c.AttrsSet {
		setKeys = append(setKeys, k)
	}
	sort.Slice(setKeys, func(i, j int) bool {
		if setKeys[i].Path != setKeys[j].Path {
			return setKeys[i].Path < setKeys[j].Path
		}
		return setKeys[i].Key < setKeys[j].Key
	})
	for _, k := range setKeys {
		if err := tree.SetAttr(vpath.SplitPath(k.Path), k.Key, c.AttrsSet[k]); err != nil {
			return err
		}
	}

	// Step 8: commit.
	return tree.Commit()
}

func reverseLookup(m map[string]string, value string) (string, bool) {
	for k, v := range m {
		if v == value {
			return k, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]Delta) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAttrKeys(m map[AttrKey]struct{}) []AttrKey {
	keys := make([]AttrKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Key < keys[j].Key
	})
	return keys
}
