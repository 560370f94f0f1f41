package roster

import (
	"sort"

	"monotone-sub001/pkg/stanza"
	"monotone-sub001/pkg/vpath"
)

// Print renders the paired (roster, markings) in the textual format of §6:
// one stanza per node, in ascending path order, carrying the node's path,
// optional content, attribute list (live flag + value), birth revision,
// parent_name marks, file_content marks (files only), and per-attribute
// marks. r must be sane and temp-clean (every node reachable from the
// root); Print reports an error if a node's path cannot be resolved.
//
// Node identity is not part of the textual form: ids are a bookkeeping
// detail private to one in-memory roster (§3, "opaque integer"), not a
// durable cross-serialization identifier, so Parse reconstructs the tree
// from paths alone and assigns its own fresh ids. The round-trip law of
// §8 therefore holds up to Equal, not up to identical vpath.NodeID values
// (DESIGN.md, "pkg/roster/text.go").
func Print(r *Roster, m MarkingMap) (string, error) {
	type entry struct {
		path vpath.Path
		id   vpath.NodeID
	}
	entries := make([]entry, 0, len(r.Nodes))
	for id := range r.Nodes {
		path, ok := r.GetName(id)
		if !ok {
			return "", invalidf("print: node %d's path does not resolve (detached or dangling)", id)
		}
		entries = append(entries, entry{path: path, id: id})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path.Less(entries[j].path) })

	var stanzas []stanza.Stanza
	for _, e := range entries {
		node := r.Nodes[e.id]
		mark := m[e.id]
		s := stanza.Stanza{}
		s.PushStringPair("node", e.path.String())
		if node.Kind == KindFile {
			s.PushHexPair("content", node.Content.String())
		}
		for _, key := range sortedAttrNames(node.Attrs) {
			cell := node.Attrs[key]
			s.PushStringPair("attr", key)
			s.PushStringPair("live", boolString(cell.Live))
			s.PushStringPair("value", cell.Value)
		}
		s.PushStringPair("birth", mark.BirthRevision)
		for _, rev := range sortedRevisions(mark.ParentName) {
			s.PushStringPair("parent_name", rev)
		}
		if node.Kind == KindFile {
			for _, rev := range sortedRevisions(mark.FileContent) {
				s.PushStringPair("file_content", rev)
			}
		}
		for _, key := range sortedMarkAttrNames(mark.Attrs) {
			s.PushStringPair("attr_mark", key)
			for _, rev := range sortedRevisions(mark.Attrs[key]) {
				s.PushStringPair("mark", rev)
			}
		}
		stanzas = append(stanzas, s)
	}
	return stanza.Print(stanzas), nil
}

// Parse decodes the textual format produced by Print, reconstructing the
// roster through the editable-tree interface (CreateDirNode/CreateFileNode
// attached ancestors-first, exactly as cset.Apply builds a tree) and
// assigning fresh real ids in ascending path order via a dedicated
// NewTrueIDSource(1).
func Parse(input string) (*Roster, MarkingMap, error) {
	p, err := stanza.NewParser(input)
	if err != nil {
		return nil, nil, err
	}

	r := New()
	markings := make(MarkingMap)
	editable := r.Editable(NewTrueIDSource(1))

	var lastPath vpath.Path
	haveLast := false
	for p.PeekSym("node") {
		if err := p.ESym("node"); err != nil {
			return nil, nil, err
		}
		path, err := p.Str()
		if err != nil {
			return nil, nil, err
		}
		if haveLast && !lastPath.Less(vpath.SplitPath(path)) {
			return nil, nil, invalidf("roster: node stanzas out of ascending order or duplicated at %q", path)
		}
		lastPath, haveLast = vpath.SplitPath(path), true

		isFile := p.PeekSym("content")
		var content vpath.Hash
		if isFile {
			if err := p.ESym("content"); err != nil {
				return nil, nil, err
			}
			hexStr, err := p.Hex()
			if err != nil {
				return nil, nil, err
			}
			content, err = vpath.HashFromHex(hexStr)
			if err != nil {
				return nil, nil, err
			}
		}

		attrs := make(map[string]AttrCell)
		lastAttr := ""
		for p.PeekSym("attr") {
			p.ESym("attr")
			key, err := p.Str()
			if err != nil {
				return nil, nil, err
			}
			if lastAttr != "" && key <= lastAttr {
				return nil, nil, invalidf("roster: attr entries out of ascending order or duplicated at %q", key)
			}
			lastAttr = key
			if err := p.ESym("live"); err != nil {
				return nil, nil, err
			}
			liveStr, err := p.Str()
			if err != nil {
				return nil, nil, err
			}
			live, err := parseBool(liveStr)
			if err != nil {
				return nil, nil, err
			}
			if err := p.ESym("value"); err != nil {
				return nil, nil, err
			}
			value, err := p.Str()
			if err != nil {
				return nil, nil, err
			}
			attrs[key] = AttrCell{Live: live, Value: value}
		}

		if err := p.ESym("birth"); err != nil {
			return nil, nil, err
		}
		birth, err := p.Str()
		if err != nil {
			return nil, nil, err
		}

		parentName := make(RevisionSet)
		for p.PeekSym("parent_name") {
			p.ESym("parent_name")
			rev, err := p.Str()
			if err != nil {
				return nil, nil, err
			}
			parentName[rev] = struct{}{}
		}

		var fileContent RevisionSet
		if isFile {
			fileContent = make(RevisionSet)
			for p.PeekSym("file_content") {
				p.ESym("file_content")
				rev, err := p.Str()
				if err != nil {
					return nil, nil, err
				}
				fileContent[rev] = struct{}{}
			}
		}

		attrMarks := make(map[string]RevisionSet)
		lastAttrMark := ""
		for p.PeekSym("attr_mark") {
			p.ESym("attr_mark")
			key, err := p.Str()
			if err != nil {
				return nil, nil, err
			}
			if lastAttrMark != "" && key <= lastAttrMark {
				return nil, nil, invalidf("roster: attr_mark entries out of ascending order or duplicated at %q", key)
			}
			lastAttrMark = key
			set := make(RevisionSet)
			for p.PeekSym("mark") {
				p.ESym("mark")
				rev, err := p.Str()
				if err != nil {
					return nil, nil, err
				}
				set[rev] = struct{}{}
			}
			attrMarks[key] = set
		}

		var id vpath.NodeID
		if isFile {
			id = editable.CreateFileNode(content)
		} else {
			id = editable.CreateDirNode()
		}
		if err := editable.AttachNode(id, vpath.SplitPath(path)); err != nil {
			return nil, nil, err
		}
		for key, cell := range attrs {
			if cell.Live {
				if err := editable.SetAttr(vpath.SplitPath(path), key, cell.Value); err != nil {
					return nil, nil, err
				}
			} else {
				if err := editable.ClearAttr(vpath.SplitPath(path), key); err != nil {
					return nil, nil, err
				}
			}
		}

		markings[id] = &Marking{
			BirthRevision: birth,
			ParentName:    parentName,
			FileContent:   fileContent,
			Attrs:         attrMarks,
		}
	}

	if !p.Done() {
		return nil, nil, invalidf("roster: trailing input after parsing all node stanzas")
	}
	if err := editable.Commit(); err != nil {
		return nil, nil, err
	}
	return r, markings, nil
}

func sortedAttrNames(m map[string]AttrCell) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMarkAttrNames(m map[string]RevisionSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRevisions(s RevisionSet) []string {
	keys := make([]string, 0, len(s))
	for id := range s {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, invalidf("roster: invalid boolean literal %q", s)
	}
}
