package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGrepCommand(deps *Deps) *cobra.Command {
	var transcript string
	var ignoreCase bool

	cmd := &cobra.Command{
		Use:   "grep DIR PATTERN",
		Short: "Search transcript lines by regular expression",
		Long: `Print the transcript lines of DIR whose text or speaker matches PATTERN,
prefixed with their 1-based line number.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(deps, args[0], transcript, "", false)
			if err != nil {
				return err
			}
			rows, err := doc.Search(args[1], ignoreCase)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range rows {
				da := doc.Act(r)
				if da.Speaker != "" {
					fmt.Fprintf(out, "%d\t(%s) %s\n", r+1, da.Speaker, da.Text)
				} else {
					fmt.Fprintf(out, "%d\t%s\n", r+1, da.Text)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&transcript, "transcript", "", "Transcript file name")
	cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "i", false, "Ignore case")

	return cmd
}
