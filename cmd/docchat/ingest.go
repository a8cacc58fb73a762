package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents",
	Long: `Extract, chunk, embed and store documents.

Supported formats are PDF, EPUB, DOCX, plain text and Markdown. With --watch,
every supported file in DIR is ingested and the directory is watched for new
or changed files until interrupted.

Examples:
  docchat ingest report.pdf notes.md
  docchat ingest --watch ~/documents`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("watch", "", "directory to watch for documents")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("watch")
	if len(args) == 0 && dir == "" {
		return errors.New("nothing to ingest: pass files or --watch DIR")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, false, false)
	if err != nil {
		return err
	}
	defer svc.close()

	out := cmd.OutOrStdout()
	var failed []error
	for _, path := range args {
		res, err := svc.processor.IngestFile(ctx, path)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if res.Skipped {
			fmt.Fprintf(out, "%s: already ingested (%s)\n", path, res.DocumentID)
			continue
		}
		fmt.Fprintf(out, "%s: %d chunks (%s)\n", path, res.Chunks, res.DocumentID)
	}
	if len(failed) > 0 {
		return errors.Join(failed...)
	}

	if dir != "" {
		return watchDocuments(ctx, svc.processor, dir)
	}
	return nil
}
