package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mindcanvas/internal/editor"
	"mindcanvas/internal/exchange"
	"mindcanvas/internal/keymap"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	exportFormat string
	exportOutput string
	importFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved map in another format",
	Long: `Export writes the saved map as Markdown, Mermaid, JSON, PNG or SVG.
Without --format the format follows the extension of --output, and
Markdown is used when neither is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := resolveFormat(exportFormat, exportOutput, exchange.Markdown)
		if err != nil {
			return err
		}
		return withEditor(cmd, func(ed *editor.Editor) error {
			if exportOutput == "" || exportOutput == "-" {
				return ed.Export(cmd.OutOrStdout(), f)
			}
			file, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			if err := ed.Export(file, f); err != nil {
				file.Close()
				os.Remove(exportOutput)
				return err
			}
			return file.Close()
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Merge a Markdown, Mermaid or JSON file into the saved map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := resolveFormat(importFormat, args[0], "")
		if err != nil {
			return err
		}
		if !f.Importable() {
			return fmt.Errorf("%w: %s", exchange.ErrExportOnly, f)
		}
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		return withEditor(cmd, func(ed *editor.Editor) error {
			doc, importErr := ed.Import(file, f)
			if err := ed.Flush(cmd.Context()); err != nil {
				return errors.Join(importErr, err)
			}
			if importErr != nil {
				return importErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d cards and %d connections\n", len(doc.Cards), len(doc.Connections))
			return nil
		})
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the key bindings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEditor(cmd, func(ed *editor.Editor) error {
			return printBindings(cmd.OutOrStdout(), ed.Bindings())
		})
	},
}

var keysSetCmd = &cobra.Command{
	Use:   "set ACTION COMBO",
	Short: "Bind an action to a key combo such as Ctrl+k",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEditor(cmd, func(ed *editor.Editor) error {
			b := ed.Bindings()
			if err := b.Set(keymap.Action(args[0]), args[1]); err != nil {
				return err
			}
			return ed.SetBindings(cmd.Context(), b)
		})
	},
}

var keysResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default key bindings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEditor(cmd, func(ed *editor.Editor) error {
			return ed.ResetBindings(cmd.Context())
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of mindcanvas",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mindcanvas %s\n", Version)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "markdown, mermaid, json, png or svg")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (stdout when empty)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "markdown, mermaid or json (default from the extension)")

	keysCmd.AddCommand(keysSetCmd, keysResetCmd)
	rootCmd.AddCommand(exportCmd, importCmd, keysCmd, versionCmd)
}

// withEditor opens the saved map without a terminal front end and closes it
// afterwards, writing any pending change.
func withEditor(cmd *cobra.Command, fn func(*editor.Editor) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg, cmd.ErrOrStderr())
	ed, err := openEditor(cmd.Context(), cfg, logger, nil, nil)
	if err != nil {
		return err
	}
	return errors.Join(fn(ed), ed.Close())
}

// resolveFormat prefers an explicit name, then the extension of path, then
// fallback.
func resolveFormat(name, path string, fallback exchange.Format) (exchange.Format, error) {
	if name != "" {
		return exchange.ParseFormat(name)
	}
	if f, ok := exchange.FormatFromPath(path); ok {
		return f, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("%w: cannot tell the format of %q, use --format", exchange.ErrUnknownFormat, path)
	}
	return fallback, nil
}

func printBindings(w io.Writer, b keymap.Bindings) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tKEYS\tDESCRIPTION")
	for _, a := range keymap.Actions() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a, b.Get(a), keymap.Describe(a))
	}
	return tw.Flush()
}
