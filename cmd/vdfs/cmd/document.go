package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/mount"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/spf13/cobra"
)

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <virtual-path>",
		Short: "Print a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, item, err := a.documentAt(args[0])
			if err != nil {
				return err
			}
			doc, err := m.Load(item)
			if err != nil {
				return err
			}
			text, _ := doc.Content()
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newWriteCmd(a *app) *cobra.Command {
	var file, text string
	cmd := &cobra.Command{
		Use:   "write <virtual-path>",
		Short: "Replace a document's content",
		Long: `Replace a document's content and write it to disk.
The new content is taken from --text, from --file, or from stdin.

Examples:
  vdfs write /All/Documentation/intro --text "# Intro"
  cat intro.md | vdfs write /All/Documentation/intro`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, item, err := a.documentAt(args[0])
			if err != nil {
				return err
			}
			content := text
			switch {
			case cmd.Flags().Changed("text"):
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				content = string(data)
			default:
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				content = string(data)
			}
			return m.Write(item, content)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the new content from a file")
	cmd.Flags().StringVarP(&text, "text", "t", "", "new content")
	return cmd
}

func newNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new <virtual-folder> <name>",
		Short: "Create an empty document",
		Long: `Create an empty document in a folder of a mount.

Example:
  vdfs new /All/Documentation/guide install`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, folder, err := a.itemAt(args[0])
			if err != nil {
				return err
			}
			payload, ok := folder.FolderPayload(m.ID)
			if !ok {
				return fmt.Errorf("%s is not a folder", args[0])
			}
			item, err := m.CreateDocument(payload.Path, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), item.VirtualPath)
			return nil
		},
	}
}

func newAttrsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "attrs <virtual-path>",
		Short: "Show the attributes of a folder or document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, item, err := a.itemAt(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			path, err := m.PhysicalPath(item)
			if err == nil {
				fmt.Fprintf(out, "%-24s %s\n", "Path", path)
			}

			attrs := make(map[items.AttributeKey]items.AttributeValue)
			if item.IsFile() {
				attrs, _ = m.GetItemAttributes(item, true)
			} else {
				for _, key := range []items.AttributeKey{items.AttrIsEngineContent, items.AttrIsProjectContent, items.AttrIsPluginContent} {
					if v, ok := m.GetItemAttribute(item, true, key); ok {
						attrs[key] = v
					}
				}
			}

			rendered := make(map[string]string, len(attrs))
			for key, v := range attrs {
				if v.MetaData != nil && v.MetaData.Hidden && !all {
					continue
				}
				rendered[string(key)] = v.String()
			}
			for _, key := range trees.SortedTagKeys(rendered) {
				fmt.Fprintf(out, "%-24s %s\n", key, rendered[key])
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include hidden attributes")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <virtual-path>...",
		Short: "Open documents in $EDITOR",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor := newProcessEditor(os.Getenv("EDITOR"), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			registry, err := a.mounts(mount.WithEditor(editor))
			if err != nil {
				return err
			}
			for _, path := range args {
				m, err := registry.Route(path)
				if err != nil {
					return err
				}
				_, item, err := a.documentAt(path)
				if err != nil {
					return err
				}
				if err := m.Edit(cmd.Context(), item); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild every mount and print its statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.mounts()
			if err != nil {
				return err
			}
			rebuildErr := registry.RebuildAll(cmd.Context())
			out := cmd.OutOrStdout()
			for _, m := range registry.Mounts() {
				stats := m.Stats()
				fmt.Fprintf(out, "%-12s %-28s folders=%d documents=%d skipped=%d depth=%d took=%s\n",
					m.Name(), m.VirtualPrefix(), stats.Folders, stats.Documents, stats.Skipped, stats.MaxDepth, stats.BuildTime)
			}
			if rebuildErr != nil && errors.Is(rebuildErr, mount.ErrRootInaccessible) {
				a.logger.Warn().Err(rebuildErr).Msg("some documentation roots are missing")
				return nil
			}
			return rebuildErr
		},
	}
}
