package cmd

import (
	"fmt"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"

	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"
)

// visualTree renders virtual paths below a root as an ASCII tree.
type visualTree struct {
	root  string
	tree  gotree.Tree
	nodes map[string]gotree.Tree
}

func newVisualTree(root string) *visualTree {
	root = paths.Normalize(root)
	return &visualTree{root: root, tree: gotree.New(root), nodes: make(map[string]gotree.Tree)}
}

func (t *visualTree) node(virtualPath string) gotree.Tree {
	if paths.Equal(virtualPath, t.root) || !paths.IsUnder(virtualPath, t.root) {
		return t.tree
	}
	key := paths.Key(virtualPath)
	if n, ok := t.nodes[key]; ok {
		return n
	}
	n := t.node(paths.Parent(virtualPath)).Add(paths.Base(virtualPath))
	t.nodes[key] = n
	return n
}

func (t *visualTree) insert(item items.Item) {
	if item.IsFolder() {
		t.node(item.VirtualPath)
		return
	}
	t.node(paths.Parent(item.VirtualPath)).Add(item.Name + " *")
}

func (t *visualTree) render() string {
	return t.tree.Print()
}

func newTreeCmd(a *app) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "tree [virtual-path]",
		Short: "Display the virtual tree structure",
		Long: `Display every folder and document below a virtual path.
Documents are marked with an asterisk.

Example:
  vdfs tree /All`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			flags.recursive = true
			tree := newVisualTree(path)
			if err := a.matching(cmd.Context(), path, flags, tree.insert); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tree.render())
			return nil
		},
	}
	flags.register(cmd)
	_ = cmd.Flags().MarkHidden("recursive")
	return cmd
}
