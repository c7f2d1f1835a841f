package cmd

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/filter"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/mount"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"

	"github.com/spf13/cobra"
)

type queryFlags struct {
	recursive   bool
	filesOnly   bool
	foldersOnly bool
	internal    bool
	collections []string
	children    bool
	allow       []string
	deny        []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "include everything below the path")
	cmd.Flags().BoolVar(&f.filesOnly, "files", false, "only list documents")
	cmd.Flags().BoolVar(&f.foldersOnly, "folders", false, "only list folders")
	cmd.Flags().BoolVar(&f.internal, "internal", false, "treat the path as an internal path of a mount")
	cmd.Flags().StringSliceVar(&f.collections, "collection", nil, "only documents in these collections")
	cmd.Flags().BoolVar(&f.children, "children", false, "include child collections")
	cmd.Flags().StringSliceVar(&f.allow, "allow", nil, "only these document identities")
	cmd.Flags().StringSliceVar(&f.deny, "deny", nil, "never these document identities")
}

func (f *queryFlags) query(path string) filter.Query {
	q := filter.NewQuery(path)
	q.Internal = f.internal
	q.Recursive = f.recursive
	switch {
	case f.filesOnly && !f.foldersOnly:
		q.Types = filter.IncludeFiles
	case f.foldersOnly && !f.filesOnly:
		q.Types = filter.IncludeFolders
	}
	if len(f.collections) > 0 {
		q.Collections = &filter.CollectionFilter{Names: f.collections, IncludeChildren: f.children}
	}
	if len(f.allow) > 0 || len(f.deny) > 0 {
		q.Permissions = filter.NewPermissionList().Allow(f.allow...).Deny(f.deny...)
	}
	return q
}

// matching compiles the query against every mount the path reaches and
// calls fn once per distinct item.
func (a *app) matching(ctx context.Context, path string, flags *queryFlags, fn func(items.Item)) error {
	q := flags.query(path)
	var mounts []*mount.Mount
	if q.Internal {
		registry, err := a.mounts()
		if err != nil {
			return err
		}
		mounts = registry.Mounts()
	} else {
		var err error
		if mounts, err = a.mountsFor(path); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{})
	for _, m := range mounts {
		f := m.CompileFilter(ctx, q)
		m.EnumerateItemsMatchingFilter(f, func(item items.Item) bool {
			key := item.Kind.String() + paths.Key(item.VirtualPath)
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}
			fn(item)
			return true
		})
	}
	return nil
}

func newLsCmd(a *app) *cobra.Command {
	flags := &queryFlags{}
	long := false
	cmd := &cobra.Command{
		Use:   "ls [virtual-path]",
		Short: "List folders and documents",
		Long: `List the folders and documents at a virtual path.

Examples:
  vdfs ls /All
  vdfs ls /All/Documentation --recursive --files
  vdfs ls /All/Documentation -r --collection onboarding --children`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			out := cmd.OutOrStdout()
			return a.matching(cmd.Context(), path, flags, func(item items.Item) {
				if long {
					fmt.Fprintf(out, "%-6s %-40s %-24s %s\n", item.Kind, item.VirtualPath, item.DisplayName(), item.InternalPath())
					return
				}
				fmt.Fprintf(out, "%-6s %s\n", item.Kind, item.VirtualPath)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show display names and internal paths")
	return cmd
}
