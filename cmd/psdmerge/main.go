// Command psdmerge flattens layers of a document described by a YAML
// manifest into a PNG.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/psdmerge"
	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/layer"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "psdmerge",
		Short: "Flatten layers of a layered image document",
		Long: `psdmerge composites the layers of a document described by a YAML manifest
into a single PNG, honouring folders, clipping masks, opacity and blend modes.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose {
				psdmerge.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log merge steps to stderr")

	cmd.AddCommand(newFlattenCommand())
	cmd.AddCommand(newLayersCommand())

	return cmd
}

func newFlattenCommand() *cobra.Command {
	var (
		name     string
		crop     string
		debugDir string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "flatten <manifest>",
		Short: "Merge layers into a PNG",
		Long: `Merge the visible layers of the document into a PNG. With --layer only the
visible contents of the named layer are merged. With --crop the result is cut
to the bounds of the named layer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []psdmerge.Option
			if debugDir != "" {
				opts = append(opts, psdmerge.WithDebugDir(debugDir))
			}
			c, err := psdmerge.Open(args[0], opts...)
			if err != nil {
				return err
			}
			defer c.Close()

			img, err := flatten(c, name, crop)
			if err != nil {
				return err
			}
			if img == nil {
				return fmt.Errorf("nothing to merge")
			}
			defer img.Release()

			if err := img.SavePNG(output); err != nil {
				return err
			}
			if err := c.Flush(); err != nil {
				return fmt.Errorf("write snapshots: %w", err)
			}
			w, h := img.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", output, w, h)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "layer", "l", "", "merge only the visible contents of this layer")
	cmd.Flags().StringVar(&crop, "crop", "", "crop the result to the bounds of this layer")
	cmd.Flags().StringVar(&debugDir, "debug-dir", "", "write a snapshot of every paint step into this directory")
	cmd.Flags().StringVarP(&output, "output", "o", "merged.png", "output PNG file")

	return cmd
}

func flatten(c *psdmerge.Controller, name, crop string) (*imagebuf.ImageBuf, error) {
	targets := c.Document().VisibleDescendants()
	if name != "" {
		l, err := c.Find(name, true)
		if err != nil {
			return nil, err
		}
		targets = l.VisibleDescendants()
	}

	if crop == "" {
		return c.Merge(targets)
	}
	// Crop frames are usually hidden guides, so hidden layers count.
	frame, err := c.Find(crop, false)
	if err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}
	return c.MergeCropped(targets, frame)
}

func newLayersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layers <manifest>",
		Short: "Print the layer tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := psdmerge.Open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			printTree(cmd.OutOrStdout(), c.Document())
			return nil
		},
	}
}

func printTree(w io.Writer, doc *layer.Document) {
	fmt.Fprintf(w, "document %dx%d\n", doc.Width(), doc.Height())
	doc.Walk(func(l *layer.Layer) bool {
		var flags []string
		if l.IsFolder() {
			flags = append(flags, "folder")
		}
		if !l.Visible() {
			flags = append(flags, "hidden")
		}
		if l.Clipping() {
			flags = append(flags, "clipping")
		}
		if l.HasImage() {
			flags = append(flags, fmt.Sprintf("%dx%d@%d,%d", l.Width(), l.Height(), l.Left(), l.Top()))
		}
		fmt.Fprintf(w, "%s%s  opacity=%.2f blend=%s %s\n",
			strings.Repeat("  ", l.Depth()+1), l.Name(), l.Opacity(), l.BlendMode(), strings.Join(flags, " "))
		return true
	})
}
