package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ELITR/alignmeet/internal/align"
	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/embedding"
)

func newAlignCommand(deps *Deps) *cobra.Command {
	var minutesEmb, transcriptEmb, output, dir string
	var threshold float64
	var final bool

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Propose links from two embedding caches",
		Long: `Link every transcript line to its nearest minute when their cosine distance
is below the threshold, and write the result as alignment file lines.

Links are tentative ("?") unless --final is given. With --dir the links are
merged into that meeting's alignment instead, keeping confirmed links, and
saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = deps.Config.Align.Threshold
			}
			if !cmd.Flags().Changed("final") {
				final = deps.Config.Align.Final
			}

			minutes, err := embedding.ReadCacheFile(minutesEmb)
			if err != nil {
				return fmt.Errorf("read minutes embeddings: %w", err)
			}
			transcript, err := embedding.ReadCacheFile(transcriptEmb)
			if err != nil {
				return fmt.Errorf("read transcript embeddings: %w", err)
			}

			proposals := align.Propose(transcript, minutes, threshold)
			if dir != "" {
				return applyToMeeting(cmd, deps, dir, proposals, final)
			}
			links := codec.LinksFromProposals(proposals, final)
			deps.Logger.Info().Int("acts", len(transcript)).Int("minutes", len(minutes)).Int("linked", len(links)).Msg("aligned")

			if output == "" {
				return codec.WriteLinks(cmd.OutOrStdout(), links)
			}
			return codec.WriteFileAtomic(output, func(f *os.File) error {
				return codec.WriteLinks(f, links)
			})
		},
	}

	cmd.Flags().StringVar(&minutesEmb, "minutes-emb", "", "Embedding cache of the minutes")
	cmd.Flags().StringVar(&transcriptEmb, "transcript-emb", "", "Embedding cache of the transcript")
	cmd.Flags().Float64Var(&threshold, "threshold", align.DefaultThreshold, "Largest cosine distance accepted as a link")
	cmd.Flags().BoolVar(&final, "final", false, "Write confirmed instead of tentative links")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVar(&dir, "dir", "", "Merge into the alignment of this meeting directory")
	cmd.MarkFlagsMutuallyExclusive("output", "dir")
	cmd.MarkFlagRequired("minutes-emb")
	cmd.MarkFlagRequired("transcript-emb")

	return cmd
}

func applyToMeeting(cmd *cobra.Command, deps *Deps, dir string, proposals []int, final bool) error {
	doc, err := openDocument(deps, dir, "", "", true)
	if err != nil {
		return err
	}
	if len(proposals) != doc.ActCount() {
		return fmt.Errorf("transcript embeddings have %d lines, %s has %d", len(proposals), doc.TranscriptFile(), doc.ActCount())
	}
	changed := doc.ApplyProposals(proposals, align.Options{Final: final})
	if changed > 0 {
		if err := doc.Save(); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d links changed\n", changed)
	return nil
}
