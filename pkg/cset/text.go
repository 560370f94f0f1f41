package cset

import (
	"sort"

	"monotone-sub001/pkg/stanza"
	"monotone-sub001/pkg/vpath"
)

// Print renders c in the fixed stanza presentation order of §6: delete,
// rename, add_dir, add_file, patch, clear, set — each internally sorted by
// path (or (path, key) for attrs) ascending.
func Print(c *Changeset) string {
	var stanzas []stanza.Stanza

	deletePaths := sortedStrings(c.NodesDeleted)
	for _, p := range deletePaths {
		s := stanza.Stanza{}
		s.PushStringPair("delete", p)
		stanzas = append(stanzas, s)
	}

	renameSrcs := make([]string, 0, len(c.NodesRenamed))
	for src := range c.NodesRenamed {
		renameSrcs = append(renameSrcs, src)
	}
	sort.Strings(renameSrcs)
	for _, src := range renameSrcs {
		s := stanza.Stanza{}
		s.PushStringPair("rename", src)
		s.PushStringPair("to", c.NodesRenamed[src])
		stanzas = append(stanzas, s)
	}

	dirPaths := sortedStrings(c.DirsAdded)
	for _, p := range dirPaths {
		s := stanza.Stanza{}
		s.PushStringPair("add_dir", p)
		stanzas = append(stanzas, s)
	}

	filePaths := make([]string, 0, len(c.FilesAdded))
	for p := range c.FilesAdded {
		filePaths = append(filePaths, p)
	}
	sort.Strings(filePaths)
	for _, p := range filePaths {
		s := stanza.Stanza{}
		s.PushStringPair("add_file", p)
		s.PushHexPair("content", c.FilesAdded[p].String())
		stanzas = append(stanzas, s)
	}

	deltaPaths := sortedKeys(c.DeltasApplied)
	for _, p := range deltaPaths {
		d := c.DeltasApplied[p]
		s := stanza.Stanza{}
		s.PushStringPair("patch", p)
		s.PushHexPair("from", d.Old.String())
		s.PushHexPair("to", d.New.String())
		stanzas = append(stanzas, s)
	}

	clearKeys := sortedAttrKeys(c.AttrsCleared)
	for _, k := range clearKeys {
		s := stanza.Stanza{}
		s.PushStringPair("clear", k.Path)
		s.PushStringPair("attr", k.Key)
		stanzas = append(stanzas, s)
	}

	setKeysList := make([]AttrKey, 0, len(c.AttrsSet))
	for k := range c.AttrsSet {
		setKeysList = append(setKeysList, k)
	}
	sort.Slice(setKeysList, func(i, j int) bool {
		if setKeysList[i].Path != setKeysList[j].Path {
			return setKeysList[i].Path < setKeysList[j].Path
		}
		return setKeysList[i].Key < setKeysList[j].Key
	})
	for _, k := range setKeysList {
		s := stanza.Stanza{}
		s.PushStringPair("set", k.Path)
		s.PushStringPair("attr", k.Key)
		s.PushStringPair("value", c.AttrsSet[k])
		stanzas = append(stanzas, s)
	}

	return stanza.Print(stanzas)
}

// Parse decodes the textual format produced by Print. Parsers verify
// strict ascending order within each stanza class and reject duplicates
// (§6); out-of-order or duplicate input is a decoding error.
func Parse(input string) (*Changeset, error) {
	p, err := stanza.NewParser(input)
	if err != nil {
		return nil, err
	}
	c := New()

	lastDelete := ""
	for p.PeekSym("delete") {
		p.ESym("delete")
		path, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := checkAscending("delete", lastDelete, path); err != nil {
			return nil, err
		}
		lastDelete = path
		c.NodesDeleted[path] = struct{}{}
	}

	lastRename := ""
	for p.PeekSym("rename") {
		p.ESym("rename")
		src, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := checkAscending("rename", lastRename, src); err != nil {
			return nil, err
		}
		lastRename = src
		if err := p.ESym("to"); err != nil {
			return nil, err
		}
		dst, err := p.Str()
		if err != nil {
			return nil, err
		}
		c.NodesRenamed[src] = dst
	}

	lastDir := ""
	for p.PeekSym("add_dir") {
		p.ESym("add_dir")
		path, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := checkAscending("add_dir", lastDir, path); err != nil {
			return nil, err
		}
		lastDir = path
		c.DirsAdded[path] = struct{}{}
	}

	lastFile := ""
	for p.PeekSym("add_file") {
		p.ESym("add_file")
		path, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := checkAscending("add_file", lastFile, path); err != nil {
			return nil, err
		}
		lastFile = path
		if err := p.ESym("content"); err != nil {
			return nil, err
		}
		hexStr, err := p.Hex()
		if err != nil {
			return nil, err
		}
		h, err := vpath.HashFromHex(hexStr)
		if err != nil {
			return nil, err
		}
		c.FilesAdded[path] = h
	}

	lastPatch := ""
	for p.PeekSym("patch") {
		p.ESym("patch")
		path, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := checkAscending("patch", lastPatch, path); err != nil {
			return nil, err
		}
		lastPatch = path
		if err := p.ESym("from"); err != nil {
			return nil, err
		}
		fromHex, err := p.Hex()
		if err != nil {
			return nil, err
		}
		if err := p.ESym("to"); err != nil {
			return nil, err
		}
		toHex, err := p.Hex()
		if err != nil {
			return nil, err
		}
		from, err := vpath.HashFromHex(fromHex)
		if err != nil {
			return nil, err
		}
		to, err := vpath.HashFromHex(toHex)
		if err != nil {
			return nil, err
		}
		c.DeltasApplied[path] = Delta{Old: from, New: to}
	}

	var lastClear AttrKey
	for p.PeekSym("clear") {
		p.ESym("clear")
		path, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := p.ESym("attr"); err != nil {
			return nil, err
		}
		key, err := p.Str()
		if err != nil {
			return nil, err
		}
		ak := AttrKey{Path: path, Key: key}
		if err := checkAscendingAttr("clear", lastClear, ak); err != nil {
			return nil, err
		}
		lastClear = ak
		c.AttrsCleared[ak] = struct{}{}
	}

	var lastSet AttrKey
	for p.PeekSym("set") {
		p.ESym("set")
		path, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := p.ESym("attr"); err != nil {
			return nil, err
		}
		key, err := p.Str()
		if err != nil {
			return nil, err
		}
		if err := p.ESym("value"); err != nil {
			return nil, err
		}
		value, err := p.Str()
		if err != nil {
			return nil, err
		}
		ak := AttrKey{Path: path, Key: key}
		if err := checkAscendingAttr("set", lastSet, ak); err != nil {
			return nil, err
		}
		lastSet = ak
		c.AttrsSet[ak] = value
	}

	if !p.Done() {
		return nil, invalidf("cset: trailing input after parsing all recognized stanzas")
	}
	return c, nil
}

func checkAscending(stanzaName, last, cur string) error {
	if last != "" && cur <= last {
		return invalidf("cset: %s stanzas out of ascending order or duplicated at %q", stanzaName, cur)
	}
	return nil
}

func checkAscendingAttr(stanzaName string, last, cur AttrKey) error {
	if last.Path == "" && last.Key == "" {
		return nil
	}
	if !(last.Path < cur.Path || (last.Path == cur.Path && last.Key < cur.Key)) {
		return invalidf("cset: %s stanzas out of ascending order or duplicated at (%q, %q)", stanzaName, cur.Path, cur.Key)
	}
	return nil
}

func sortedStrings(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
