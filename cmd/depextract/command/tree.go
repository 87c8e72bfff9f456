package command

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/harness/depextract/config"
	"github.com/harness/depextract/internal/style"
	"github.com/harness/depextract/module/extract"
	"github.com/harness/depextract/util/common/printer"
)

// printTree writes root as JSON when --format json is set and as an
// indented tree otherwise.
func printTree(w io.Writer, root *extract.Node) error {
	if config.Global.Format == "json" {
		options := printer.DefaultJsonOptions()
		options.Writer = w
		return printer.PrintJsonWithOptions(root, options)
	}

	t := tree.Root(style.Title.Render(root.Label())).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(style.Branch)
	addChildren(t, root.Dir, root.Children)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func addChildren(t *tree.Tree, base string, nodes []*extract.Node) {
	for _, n := range nodes {
		label := nodeLabel(base, n)
		if len(n.Children) == 0 {
			t.Child(label)
			continue
		}
		sub := tree.Root(label)
		addChildren(sub, base, n.Children)
		t.Child(sub)
	}
}

func nodeLabel(base string, n *extract.Node) string {
	version := n.Descriptor.Version
	if n.Artifact != nil {
		version = n.Artifact.Version()
	}
	label := style.Coordinate(n.Descriptor.GroupID+":"+n.Descriptor.ArtifactID, version)

	dir := n.Dir
	if rel, err := filepath.Rel(base, n.Dir); err == nil {
		dir = rel
	}
	label += " " + style.DimText.Render(filepath.ToSlash(dir))
	if n.Digest != "" {
		label += " " + style.DimText.Render(n.Digest)
	}
	return label
}
