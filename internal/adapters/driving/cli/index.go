package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

var (
	indexForce         bool
	indexSkipErrors    bool
	indexConcurrency   int
	indexStrategy      string
	indexCategory      string
	indexDocVersion    string
	indexEffectiveDate string
	indexWatch         bool
	indexJSON          bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index documents into the chunk tree and vector indexes",
	Long: `Reads each file, builds its chunk tree, stores the closure table and embeds
summary and detail nodes. A directory indexes every file with a configured
extension (default .md and .txt).

Documents that are already indexed are skipped unless --force is given.

Examples:
  hierag index laws/labour.txt
  hierag index --force --strategy legal laws/labour.txt
  hierag index --concurrency 4 --skip-errors laws/
  hierag index --watch laws/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "replace documents that are already indexed")
	indexCmd.Flags().BoolVar(&indexSkipErrors, "skip-errors", false, "continue past documents that fail")
	indexCmd.Flags().IntVarP(&indexConcurrency, "concurrency", "j", 0, "documents indexed at once (default from config)")
	indexCmd.Flags().StringVar(&indexStrategy, "strategy", "", "chunking strategy: legal, markdown or flat (default: detect)")
	indexCmd.Flags().StringVar(&indexCategory, "category", "", "category stored on the document")
	indexCmd.Flags().StringVar(&indexDocVersion, "version", "", "version tag stored on the document")
	indexCmd.Flags().StringVar(&indexEffectiveDate, "effective-date", "", "effective date stored on the document (YYYY-MM-DD)")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep running and re-index files in the directory as they change")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(indexCmd)
}

func indexOptions() (driving.IndexOptions, error) {
	opts := driving.IndexOptions{
		Force:    indexForce,
		Strategy: indexStrategy,
		Category: indexCategory,
		Version:  indexDocVersion,
	}
	if indexEffectiveDate != "" {
		d, err := time.Parse(time.DateOnly, indexEffectiveDate)
		if err != nil {
			return opts, fmt.Errorf("invalid --effective-date %q: want YYYY-MM-DD", indexEffectiveDate)
		}
		opts.EffectiveDate = &d
	}
	return opts, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return fmt.Errorf("index: %w", errNotConfigured)
	}

	opts, err := indexOptions()
	if err != nil {
		return err
	}
	bulk := driving.BulkOptions{
		IndexOptions: opts,
		SkipErrors:   indexSkipErrors,
		Concurrency:  indexConcurrency,
	}
	ctx := commandContext(cmd)

	if indexWatch {
		return runIndexWatch(cmd, args, opts)
	}

	var (
		files   []string
		results []driving.BulkResult
		errs    []error
	)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			res, err := indexService.IndexDirectory(ctx, arg, bulk)
			if res != nil {
				results = append(results, *res)
			}
			if err != nil {
				errs = append(errs, err)
				if !indexSkipErrors {
					break
				}
			}
			continue
		}
		files = append(files, arg)
	}
	if len(files) > 0 && (len(errs) == 0 || indexSkipErrors) {
		res, err := indexService.BulkIndex(ctx, files, bulk)
		if res != nil {
			results = append(results, *res)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if indexJSON {
		if err := writeIndexJSON(cmd, results); err != nil {
			return err
		}
	} else {
		writeIndexText(cmd, results)
	}
	return errors.Join(errs...)
}

func runIndexWatch(cmd *cobra.Command, args []string, opts driving.IndexOptions) error {
	if len(args) != 1 {
		return errors.New("--watch takes exactly one directory")
	}
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("--watch needs a directory: %s", dir)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bring the directory up to date before watching.
	res, err := indexService.IndexDirectory(ctx, dir, driving.BulkOptions{
		IndexOptions: opts,
		SkipErrors:   true,
		Concurrency:  indexConcurrency,
	})
	if err != nil {
		return err
	}
	writeIndexText(cmd, []driving.BulkResult{*res})

	st := newStyles(cmd.OutOrStdout())
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", dir)
	return indexService.Watch(ctx, dir, opts, func(ev driving.WatchEvent) {
		switch {
		case ev.Err != nil:
			cmd.Printf("%s %s: %v\n", st.Error.Render("failed"), ev.Path, ev.Err)
		case ev.Removed:
			cmd.Printf("%s %s\n", st.Warning.Render("removed"), ev.Path)
		case ev.Result != nil:
			writeIndexResult(cmd, st, ev.Result)
		}
	})
}

func writeIndexText(cmd *cobra.Command, results []driving.BulkResult) {
	st := newStyles(cmd.OutOrStdout())
	indexed, skipped, failed := 0, 0, 0
	for i := range results {
		for j := range results[i].Indexed {
			r := &results[i].Indexed[j]
			writeIndexResult(cmd, st, r)
			if r.Skipped {
				skipped++
			} else {
				indexed++
			}
		}
		for _, f := range results[i].Failures {
			cmd.Printf("%s %s: %v\n", st.Error.Render("failed"), f.Path, f.Err)
			failed++
		}
	}
	cmd.Printf("\n%d indexed, %d skipped, %d failed\n", indexed, skipped, failed)
}

func writeIndexResult(cmd *cobra.Command, st styles, r *driving.IndexResult) {
	if r.Skipped {
		cmd.Printf("%s %s (already indexed, use --force to replace)\n", st.Muted.Render("skipped"), r.Document.ID)
		return
	}
	cmd.Printf("%s %s [%s] %d chunks, %d summary + %d detail embeddings in %s\n",
		st.Success.Render("indexed"),
		r.Document.ID,
		r.Strategy,
		r.Document.ChunkCount,
		r.SummaryEmbeddings,
		r.DetailEmbeddings,
		r.Duration.Round(time.Millisecond))
}

type indexJSONResult struct {
	Path              string `json:"path"`
	DocumentID        string `json:"document_id"`
	Skipped           bool   `json:"skipped"`
	Strategy          string `json:"strategy"`
	Chunks            int    `json:"chunks"`
	SummaryEmbeddings int    `json:"summary_embeddings"`
	DetailEmbeddings  int    `json:"detail_embeddings"`
	DurationMillis    int64  `json:"duration_ms"`
	Error             string `json:"error,omitempty"`
}

func writeIndexJSON(cmd *cobra.Command, results []driving.BulkResult) error {
	out := make([]indexJSONResult, 0)
	for i := range results {
		for _, r := range results[i].Indexed {
			out = append(out, indexJSONResult{
				Path:              r.Path,
				DocumentID:        string(r.Document.ID),
				Skipped:           r.Skipped,
				Strategy:          r.Strategy,
				Chunks:            r.Document.ChunkCount,
				SummaryEmbeddings: r.SummaryEmbeddings,
				DetailEmbeddings:  r.DetailEmbeddings,
				DurationMillis:    r.Duration.Milliseconds(),
			})
		}
		for _, f := range results[i].Failures {
			out = append(out, indexJSONResult{Path: f.Path, Error: f.Err.Error()})
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
