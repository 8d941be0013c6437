package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/textsummarizer/plugin/platform"
	"github.com/hrygo/textsummarizer/session"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [files...]",
	Short: "Summarize files, or stdin when no file is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		summarizer, extractor, err := newBackend(cmd.Context(), p, viper.GetBool("direct"))
		if err != nil {
			return err
		}
		m, err := startSessionMetrics(cmd.Context(), p.MetricsAddr)
		if err != nil {
			return err
		}
		defer m.Close()

		store := session.NewStore(summarizer, extractor, m.option())
		return runSummarize(cmd.Context(), store, args, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runSummarize submits every input, waits for all of them and prints the
// results in submission order. It fails if any record ends in Error.
func runSummarize(ctx context.Context, store *session.Store, paths []string, stdin io.Reader, out io.Writer) error {
	var pickers []session.FilePicker
	if len(paths) == 0 {
		pickers = append(pickers, platform.UploadPicker{Name: "stdin", Reader: stdin})
	}
	for _, path := range paths {
		pickers = append(pickers, platform.PathPicker{Path: path})
	}

	submitted := 0
	for _, picker := range pickers {
		if _, err := store.PickFile(ctx, picker); err != nil {
			return err
		}
		if _, ok := store.SubmitStaged(ctx); ok {
			submitted++
			continue
		}
		staged := store.Staged()
		store.ClearStaging()
		fmt.Fprintf(out, "skipped %s: no text\n", or(staged.FileName, "input"))
	}
	if submitted == 0 {
		return errors.New("nothing to summarize")
	}

	if err := store.Wait(ctx); err != nil {
		return errors.Wrap(err, "interrupted while waiting for summaries")
	}

	records := store.Records()
	slices.Reverse(records)
	failed := 0
	for i, rec := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s ==\n", rec.Title)
		if rec.Status == session.StatusError {
			failed++
			fmt.Fprintf(out, "error: %s\n", rec.Message)
			continue
		}
		fmt.Fprintln(out, rec.SummaryText)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d summaries failed", failed, len(records))
	}
	return nil
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
