package extract

import (
	"github.com/harness/depextract/module/artifact"
)

// Node is one materialized dependency: where it was extracted and what it
// pulled in, in declaration order.
type Node struct {
	Descriptor artifact.Descriptor        `json:"descriptor"`
	Artifact   *artifact.ResolvedArtifact `json:"artifact,omitempty"`
	Dir        string                     `json:"dir"`
	Digest     string                     `json:"digest,omitempty"`
	Children   []*Node                    `json:"children,omitempty"`
}

// Walk visits n and its descendants depth first, in declaration order.
// Returning an error from fn stops the walk.
func (n *Node) Walk(fn func(n *Node, depth int) error) error {
	return n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) error, depth int) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of resolved artifacts below and including n.
func (n *Node) Count() int {
	count := 0
	_ = n.Walk(func(node *Node, _ int) error {
		if node.Artifact != nil {
			count++
		}
		return nil
	})
	return count
}

// Label is the short human form used in tree output.
func (n *Node) Label() string {
	if n.Artifact != nil {
		return n.Artifact.Coordinates().String()
	}
	return n.Descriptor.String()
}
