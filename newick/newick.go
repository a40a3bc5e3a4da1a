// Package newick parses, writes, and manipulates rooted phylogenetic trees
// in parenthetical (Newick) notation, as exported by QIIME2's phylogeny
// pipelines.
package newick

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ampliomics/ampliseq"
)

// Node is one vertex of a rooted tree. Leaves carry feature identifiers in
// Name; internal node names are optional. Length is the length of the branch
// leading into the node (zero for the root and for edges introduced by
// multifurcation resolution).
type Node struct {
	Name     string
	Length   float64
	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Tree is a rooted tree over feature identifiers.
type Tree struct {
	Root *Node
}

// Parse reads a single Newick tree from s. Single-quoted labels, with a
// doubled quote as the escape, and missing branch lengths are accepted.
func Parse(s string) (*Tree, error) {
	p := &parser{s: s}
	p.skipSpace()

	root, err := p.clade()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != ';' {
		return nil, &ampliseq.FormatError{Problem: "newick tree missing terminating semicolon"}
	}

	return &Tree{Root: root}, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &ampliseq.FormatError{Problem: fmt.Sprintf("newick position %d: %s", p.pos, fmt.Sprintf(format, args...))}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) clade() (*Node, error) {
	p.skipSpace()
	n := &Node{}

	if p.peek() == '(' {
		p.pos++
		for {
			child, err := p.clade()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)

			p.skipSpace()
			switch p.peek() {
			case ',':
				p.pos++
				continue
			case ')':
				p.pos++
			default:
				return nil, p.errf("expected ',' or ')'")
			}
			break
		}
		if len(n.Children) < 2 {
			return nil, p.errf("internal node with fewer than two children")
		}
	}

	name, err := p.label()
	if err != nil {
		return nil, err
	}
	n.Name = name

	p.skipSpace()
	if p.peek() == ':' {
		p.pos++
		length, err := p.branchLength()
		if err != nil {
			return nil, err
		}
		n.Length = length
	}

	return n, nil
}

func (p *parser) label() (string, error) {
	p.skipSpace()

	if p.peek() == '\'' {
		p.pos++
		var b strings.Builder
		for {
			if p.pos >= len(p.s) {
				return "", p.errf("unterminated quoted label")
			}
			c := p.s[p.pos]
			p.pos++
			if c == '\'' {
				if p.peek() == '\'' { // escaped quote
					b.WriteByte('\'')
					p.pos++
					continue
				}
				return b.String(), nil
			}
			b.WriteByte(c)
		}
	}

	start := p.pos
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case '(', ')', ',', ':', ';', ' ', '\t', '\n', '\r':
			return p.s[start:p.pos], nil
		}
		p.pos++
	}
	return p.s[start:p.pos], nil
}

func (p *parser) branchLength() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, p.errf("expected branch length after ':'")
	}
	v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return 0, p.errf("invalid branch length %q", p.s[start:p.pos])
	}
	if v < 0 {
		return 0, p.errf("negative branch length %q", p.s[start:p.pos])
	}
	return v, nil
}

// String renders the tree in Newick notation with branch lengths.
func (t *Tree) String() string {
	var b strings.Builder
	writeNode(&b, t.Root, true)
	b.WriteByte(';')
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, root bool) {
	if !n.IsLeaf() {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writeNode(b, c, false)
		}
		b.WriteByte(')')
	}
	b.WriteString(quoteLabel(n.Name))
	if !root {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
	}
}

func quoteLabel(name string) string {
	if name == "" {
		return ""
	}
	if strings.ContainsAny(name, "(),:; \t'") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// Leaves returns the leaf nodes in left-to-right order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return out
}

// LeafNames returns the leaf labels in left-to-right order.
func (t *Tree) LeafNames() []string {
	leaves := t.Leaves()
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = l.Name
	}
	return out
}

// TotalBranchLength sums every branch length in the tree.
func (t *Tree) TotalBranchLength() float64 {
	var sum float64
	var walk func(n *Node, root bool)
	walk = func(n *Node, root bool) {
		if !root {
			sum += n.Length
		}
		for _, c := range n.Children {
			walk(c, false)
		}
	}
	walk(t.Root, true)
	return sum
}

// IsBinary reports whether every internal node has exactly two children.
// Phylogenetic distance metrics require this; see ResolveMultifurcations.
func (t *Tree) IsBinary() bool {
	var check func(n *Node) bool
	check = func(n *Node) bool {
		if n.IsLeaf() {
			return true
		}
		if len(n.Children) != 2 {
			return false
		}
		return check(n.Children[0]) && check(n.Children[1])
	}
	return check(t.Root)
}

// ResolveMultifurcations returns an equivalent strictly-binary tree:
// every node with more than two children is resolved into a ladder of
// binary splits whose newly introduced internal edges have length zero.
// This is an arbitrary resolution, but it preserves the leaf set, the
// total branch length, and all leaf-to-leaf path lengths. It must run
// before any phylogenetic distance computation; on a multifurcating tree
// those distances are silently wrong.
func (t *Tree) ResolveMultifurcations() *Tree {
	var resolve func(n *Node) *Node
	resolve = func(n *Node) *Node {
		out := &Node{Name: n.Name, Length: n.Length}
		if n.IsLeaf() {
			return out
		}

		children := make([]*Node, len(n.Children))
		for i, c := range n.Children {
			children[i] = resolve(c)
		}

		// Ladder extra children under zero-length internal edges.
		for len(children) > 2 {
			last := len(children) - 1
			merged := &Node{Length: 0, Children: []*Node{children[last-1], children[last]}}
			children = append(children[:last-1], merged)
		}
		out.Children = children
		return out
	}

	return &Tree{Root: resolve(t.Root)}
}

// Subset prunes the tree to the given leaf names. Internal nodes left with a
// single child are collapsed, with branch lengths merged, so path lengths
// among the kept leaves are unchanged. Unknown names are an error, as is a
// selection that keeps no leaves.
func (t *Tree) Subset(names []string) (*Tree, error) {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}

	present := make(map[string]struct{})
	for _, n := range t.LeafNames() {
		present[n] = struct{}{}
	}
	for _, n := range names {
		if _, ok := present[n]; !ok {
			return nil, &ampliseq.FormatError{Problem: "tree has no leaf named " + n}
		}
	}
	if len(keep) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "newick.Subset", Problem: "selection keeps zero leaves"}
	}

	var prune func(n *Node) *Node
	prune = func(n *Node) *Node {
		if n.IsLeaf() {
			if _, ok := keep[n.Name]; ok {
				return &Node{Name: n.Name, Length: n.Length}
			}
			return nil
		}

		var kept []*Node
		for _, c := range n.Children {
			if p := prune(c); p != nil {
				kept = append(kept, p)
			}
		}

		switch len(kept) {
		case 0:
			return nil
		case 1:
			// Collapse the unary node into its child.
			kept[0].Length += n.Length
			return kept[0]
		default:
			return &Node{Name: n.Name, Length: n.Length, Children: kept}
		}
	}

	root := prune(t.Root)
	if root == nil {
		return nil, &ampliseq.PreconditionError{Op: "newick.Subset", Problem: "selection keeps zero leaves"}
	}
	// A collapsed chain above the new root contributes no path length
	// between kept leaves.
	root.Length = 0

	return &Tree{Root: root}, nil
}

// Load reads a possibly-compressed Newick file from disk.
func Load(path string) (*Tree, error) {
	r, err := ampliseq.OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Parse(string(raw))
}
