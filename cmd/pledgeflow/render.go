package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow/internal/htmltext"
)

func newRenderCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a reward or project description for the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			spans, err := htmltext.Styled(string(data))
			if err != nil {
				return err
			}
			text := htmltext.ANSI(spans)
			if plain {
				text = htmltext.Plain(spans)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "omit terminal escape sequences")
	return cmd
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
