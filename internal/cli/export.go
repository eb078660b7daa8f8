package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ELITR/alignmeet/internal/db"
)

func (d *Deps) openStore() (*db.Store, error) {
	path, err := d.Config.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	return d.OpenStore(path, d.Logger)
}

func newExportCommand(deps *Deps) *cobra.Command {
	var transcript, minutes, annotator string

	cmd := &cobra.Command{
		Use:   "export DIR",
		Short: "Copy a meeting's annotation into the export database",
		Long: `Read a meeting directory and store its minutes, dialog acts, links and
scores in the export database. Exporting the same pair of files again
replaces the previous export.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(deps, args[0], transcript, minutes, true)
			if err != nil {
				return err
			}
			if annotator == "" {
				annotator = deps.Config.Annotator
			}
			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := store.ExportDocument(doc, annotator)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&transcript, "transcript", "", "Transcript file name")
	cmd.Flags().StringVar(&minutes, "minutes", "", "Minutes file name")
	cmd.Flags().StringVar(&annotator, "annotator", "", "Annotator name (defaults to config)")

	return cmd
}

func newMeetingsCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "List exported meetings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			meetings, err := store.Meetings()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTRANSCRIPT\tMINUTES\tACTS\tLINKED\tCOVERAGE\tEXPORTED")
			for _, m := range meetings {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.0f%%\t%s\n",
					m.ID, m.Transcript, m.Minutes, m.ActCount, m.LinkedCount,
					100*m.Coverage(), m.ExportedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(newMeetingsShowCommand(deps))
	cmd.AddCommand(newMeetingsRmCommand(deps))

	return cmd
}

func newMeetingsShowCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the minutes and linked dialog acts of an exported meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			m, err := store.Meeting(args[0])
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("meeting %s not found", args[0])
			}
			minutes, err := store.MinutesForMeeting(m.ID)
			if err != nil {
				return err
			}
			acts, err := store.LinksForMeeting(m.ID)
			if err != nil {
				return err
			}

			byMinute := make(map[int][]db.DialogActRecord)
			var problems []db.DialogActRecord
			for _, da := range acts {
				if da.Minute != nil {
					byMinute[*da.Minute] = append(byMinute[*da.Minute], da)
				}
				if da.Problem != "" {
					problems = append(problems, da)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s + %s  (%s, %s)\n", m.ID, m.Transcript, m.Minutes,
				m.Annotator, m.ExportedAt.Format("2006-01-02 15:04"))
			fmt.Fprintf(out, "scores  %g %g %g %g\n\n", m.Adequacy, m.Grammaticality, m.Fluency, m.Relevance)
			for _, mr := range minutes {
				fmt.Fprintf(out, "%d. %s\n", mr.Position+1, mr.Text)
				for _, da := range byMinute[mr.Position] {
					mark := ""
					if !da.Final {
						mark = "?"
					}
					fmt.Fprintf(out, "   %d%s\t(%s) %s\n", da.Position+1, mark, da.Speaker, da.Text)
				}
			}
			if len(problems) > 0 {
				fmt.Fprintln(out, "\nproblems")
				for _, da := range problems {
					fmt.Fprintf(out, "   %d\t%s\n", da.Position+1, da.Problem)
				}
			}
			return nil
		},
	}
}

func newMeetingsRmCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an exported meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteMeeting(args[0]); err != nil {
				return err
			}
			deps.Logger.Info().Str("meeting", args[0]).Msg("deleted")
			return nil
		},
	}
}
