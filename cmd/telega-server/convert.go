package main

import (
	"fmt"
	"io"

	"github.com/flemzord/telega-server/pkg/plist"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
)

type convertMode int

const (
	modeJSON  convertMode = iota + 1 // JSON in, plist out
	modePlist                        // plist in, JSON out
)

func convertCmd() *cobra.Command {
	var allowComments bool
	cmd := &cobra.Command{
		Use:       "convert json|plist",
		Short:     "Convert one document read from stdin",
		Long:      "Convert reads stdin until EOF, treating it as the named format, and\nprints the other representation followed by a newline.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"json", "plist"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := modeJSON
			if args[0] == "plist" {
				mode = modePlist
			}
			return convert(mode, allowComments, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&allowComments, "jsonc", false, "Accept comments and trailing commas in JSON input")
	return cmd
}

// convert transcodes all of in and writes the result and a newline to out.
func convert(mode convertMode, allowComments bool, in io.Reader, out, errOut io.Writer) error {
	if isTerminal(in) {
		fmt.Fprintln(errOut, "reading from stdin, finish with Ctrl-D")
	}

	var src plist.Buffer
	if _, err := src.ReadFrom(in); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	input := src.Bytes()
	if mode == modeJSON && allowComments {
		input = jsonc.ToJSON(input)
	}

	var dst plist.Buffer
	var err error
	if mode == modeJSON {
		err = plist.FromJSON(&dst, input)
	} else {
		err = plist.ToJSON(&dst, input)
	}
	if err != nil {
		return err
	}

	if _, err := dst.WriteString("\n"); err != nil {
		return err
	}
	_, err = out.Write(dst.Bytes())
	return err
}
