package cmd

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/collections"

	"github.com/spf13/cobra"
)

func newCollectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage document collections",
		Long: `Create collections and manage their members. Members may be given as
virtual paths of documents or as document identities.

Examples:
  vdfs collections create onboarding
  vdfs collections create setup --parent onboarding
  vdfs collections add setup /All/Documentation/guide/setup
  vdfs ls /All/Documentation -r --collection onboarding --children`,
	}
	cmd.AddCommand(
		newCollectionsListCmd(a),
		newCollectionsCreateCmd(a),
		newCollectionsDeleteCmd(a),
		newCollectionsEditCmd(a, "add", "Add documents to a collection", collections.Store.Add),
		newCollectionsEditCmd(a, "remove", "Remove documents from a collection", collections.Store.Remove),
		newCollectionsMembersCmd(a),
	)
	return cmd
}

func newCollectionsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.collectionStore()
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range list {
				if c.Parent != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (in %s) %d\n", c.Name, c.Parent, c.Size)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", c.Name, c.Size)
			}
			return nil
		},
	}
}

func newCollectionsCreateCmd(a *app) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.collectionStore()
			if err != nil {
				return err
			}
			return store.Create(cmd.Context(), args[0], parent)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent collection")
	return cmd
}

func newCollectionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection and its children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.collectionStore()
			if err != nil {
				return err
			}
			return store.Delete(cmd.Context(), args[0])
		},
	}
}

type membershipEdit func(s collections.Store, ctx context.Context, name string, identities ...string) error

func newCollectionsEditCmd(a *app, use, short string, edit membershipEdit) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name> <document>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.collectionStore()
			if err != nil {
				return err
			}
			identities := make([]string, 0, len(args)-1)
			for _, arg := range args[1:] {
				identities = append(identities, a.identityOf(arg))
			}
			return edit(store, cmd.Context(), args[0], identities...)
		},
	}
}

func newCollectionsMembersCmd(a *app) *cobra.Command {
	var children bool
	cmd := &cobra.Command{
		Use:   "members <name>...",
		Short: "List the document identities in collections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.collectionStore()
			if err != nil {
				return err
			}
			members, err := store.Members(cmd.Context(), args, children)
			if err != nil {
				return err
			}
			for _, id := range members {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&children, "children", false, "include child collections")
	return cmd
}

// identityOf maps a document's virtual path to its identity. Anything that
// does not name an indexed document is used verbatim.
func (a *app) identityOf(arg string) string {
	_, item, err := a.documentAt(arg)
	if err != nil {
		return arg
	}
	return item.InternalPath()
}
