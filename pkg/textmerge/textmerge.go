// Package textmerge implements line-level three-way text merge (§4.3):
// LCS-based extent construction against the ancestor, pairwise extent
// merge, and prefix/suffix handling.
//
// Grounded on the LCS/diff approach used throughout the retrieval pack's
// diffing code and on _examples/original_source/diff_patch.cc's interleaved
// edit-script model, adapted to Go's slice-of-string line representation
// with a per-call interner (design notes, "String interning for LCS": "the
// interner is a per-call object, so there is no process-wide state").
package textmerge

import "github.com/pkg/errors"

// extentKind classifies one run of the ancestor's lines in an edit script.
type extentKind int

const (
	preserved extentKind = iota
	deleted
	changed
)

// extent describes what happened to one ancestor line: preserved (copied
// through unchanged), deleted (dropped), or changed (replaced by data, which
// may hold zero or more side lines attached at this ancestor position).
// There is exactly one extent per ancestor line (_examples/original_source's
// calculate_extents asserts a_b_map.size() == a_len), which is what lets
// mergeExtents compare the two sides index-by-index instead of needing to
// realign differing (pos, len) spans.
type extent struct {
	kind extentKind
	data []int
}

// Conflict is returned (instead of a merged sequence) when the three-way
// merge cannot reconcile both sides.
type Conflict struct {
	Reason string
}

func (c *Conflict) Error() string {
	return "textmerge: conflict: " + c.Reason
}

// Merge performs a three-way merge of ancestor, left, and right line
// sequences (§4.3). On success it returns the merged sequence and a nil
// error. On conflict it returns a nil sequence and a *Conflict. The core
// emits no partial output on failure (§4.3 step 5): the caller decides
// whether to invoke a higher-level merger.
func Merge(ancestor, left, right []string) ([]string, error) {
	interner := newInterner()
	a := interner.internAll(ancestor)
	l := interner.internAll(left)
	r := interner.internAll(right)

	leftExtents, leftPrefix, leftSuffix := buildExtents(a, l)
	rightExtents, rightPrefix, rightSuffix := buildExtents(a, r)

	if !equalInts(leftPrefix, rightPrefix) && len(leftPrefix) > 0 && len(rightPrefix) > 0 {
		return nil, &Conflict{Reason: "conflicting insertions before the start of the file"}
	}
	if !equalInts(leftSuffix, rightSuffix) && len(leftSuffix) > 0 && len(rightSuffix) > 0 {
		return nil, &Conflict{Reason: "conflicting insertions after the end of the file"}
	}

	merged, err := mergeExtents(leftExtents, rightExtents)
	if err != nil {
		return nil, err
	}

	var result []int
	result = append(result, pick(leftPrefix, rightPrefix)...)
	result = append(result, merged...)
	result = append(result, pick(leftSuffix, rightSuffix)...)

	return interner.resolveAll(result), nil
}

// pick returns whichever of a, b is non-empty (both-non-empty-and-differing
// is rejected before this is called; both-equal collapses to either).
func pick(a, b []int) []int {
	if len(a) > 0 {
		return a
	}
	return b
}

// mergeExtents walks two parallel, index-aligned extent lists (one entry
// per ancestor line on each side) and merges them position by position
// (§4.3 step 3; _examples/original_source's merge_extents).
func mergeExtents(left, right []extent) ([]int, error) {
	if len(left) != len(right) {
		return nil, errors.New("textmerge: internal error: misaligned extents")
	}
	var result []int
	for i := range left {
		le, re := left[i], right[i]
		switch {
		case le.kind == preserved && re.kind == preserved:
			result = append(result, le.data...)
		case le.kind == deleted && re.kind == deleted:
			// both deleted => drop
		case le.kind == deleted && re.kind == preserved:
			// one-sided delete vs preserved => drop
		case le.kind == preserved && re.kind == deleted:
			// one-sided delete vs preserved => drop
		case le.kind == changed && re.kind == preserved:
			result = append(result, le.data...)
		case le.kind == preserved && re.kind == changed:
			result = append(result, re.data...)
		case le.kind == changed && re.kind == changed:
			if equalInts(le.data, re.data) {
				result = append(result, le.data...)
			} else {
				return nil, &Conflict{Reason: "conflicting changes to the same region"}
			}
		default:
			// deleted vs changed (either order): one side removed content
			// the other side modified.
			return nil, &Conflict{Reason: "one side deleted content the other side changed"}
		}
	}
	return result, nil
}

// buildExtents computes lcs(ancestor, side) and converts it into exactly
// one extent per ancestor line, plus a leading prefix and trailing suffix
// of pure insertions (§4.3 step 2). Insertions that fall between two
// ancestor lines attach to the most recently emitted extent (converting it
// to changed), mirroring _examples/original_source's calculate_extents,
// which folds an insertion into extents.back() unless it falls before the
// first ancestor line (prefix) or after the last one has been consumed
// (suffix).
func buildExtents(ancestor, side []int) (extents []extent, prefix, suffix []int) {
	common := lcs(ancestor, side)
	extents = make([]extent, 0, len(ancestor))
	ci, sPos := 0, 0

	attachOrPrefix := func(ins []int) {
		if len(ins) == 0 {
			return
		}
		if len(extents) == 0 {
			prefix = append(prefix, ins...)
			return
		}
		last := &extents[len(extents)-1]
		last.kind = changed
		last.data = append(last.data, ins...)
	}

	for a := 0; a < len(ancestor); a++ {
		if ci < len(common) && common[ci].a == a {
			s := common[ci].s
			if s > sPos {
				attachOrPrefix(side[sPos:s])
			}
			extents = append(extents, extent{kind: preserved, data: []int{ancestor[a]}})
			sPos = s + 1
			ci++
			continue
		}
		extents = append(extents, extent{kind: deleted})
	}

	if sPos < len(side) {
		tail := side[sPos:]
		if len(extents) == 0 {
			// The ancestor was empty throughout: every insertion landed
			// before any ancestor line could be decided, so it's a prefix.
			prefix = append(prefix, tail...)
		} else {
			suffix = append(suffix, tail...)
		}
	}
	return extents, prefix, suffix
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pair is one common-subsequence index pair.
type pair struct {
	a, s int
}

// lcs computes the longest common subsequence between a and b (already
// interned to integers), returning the list of index pairs that
// participate in it, in ascending order. Classic O(n*m) dynamic
// programming; the line counts involved in a single merge are small
// enough that this is not a bottleneck worth a Myers-diff implementation.
func lcs(a, b []int) []pair {
	n, m := len(a), len(b)
	dp := make([][]int32, n+1)
	for i := range dp {
		dp[i] = make([]int32, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	var pairs []pair
	i, j := 0, 0
	for i < n && j < m {
		if a[i] == b[j] {
			pairs = append(pairs, pair{i, j})
			i++
			j++
		} else if dp[i+1][j] >= dp[i][j+1] {
			i++
		} else {
			j++
		}
	}
	return pairs
}

// interner maps lines to small integers for the duration of one Merge
// call (design notes: per-call, no process-wide state).
type interner struct {
	toID  map[string]int
	toStr []string
}

func newInterner() *interner {
	return &interner{toID: make(map[string]int)}
}

func (in *interner) intern(s string) int {
	if id, ok := in.toID[s]; ok {
		return id
	}
	id := len(in.toStr)
	in.toID[s] = id
	in.toStr = append(in.toStr, s)
	return id
}

func (in *interner) internAll(lines []string) []int {
	ids := make([]int, len(lines))
	for i, l := range lines {
		ids[i] = in.intern(l)
	}
	return ids
}

func (in *interner) resolveAll(ids []int) []string {
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = in.toStr[id]
	}
	return lines
}

// IsBinary applies the binary-file guard of §4.3: blobs containing a NUL
// byte are rejected from line-oriented three-way merging.
func IsBinary(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}
