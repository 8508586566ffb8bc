package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/report"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/worker"
)

var (
	batchOpts   evaluateOptions
	concurrency int
	outputDir   string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Evaluate many documents listed in a file",
	Long: `Batch evaluates every document listed in a file:
- One document path or URL per line; blank lines and # comments are skipped
- Relative paths are resolved against the list file's directory
- Documents are evaluated concurrently with a configurable worker count
- Each document gets its own reports in the output directory

Human review is not available in batch mode.

Example:
  truth batch docs.txt
  truth batch docs.txt --concurrency 4 --output-dir ./truth-reports
  truth batch docs.txt --preset quick --timeout 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addEvaluateFlags(batchCmd, &batchOpts)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of documents evaluated at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./truth-reports", "output directory for reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchOpts.timeout)
	defer cancel()

	s, p, err := batchOpts.prepare(cmd, false)
	if err != nil {
		return err
	}
	defer s.flushMetrics()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Truth Batch Evaluation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workflow:     %s\n", p.Workflow().Name)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchOpts.timeout)
	fmt.Fprintf(os.Stderr, "\n")

	start := time.Now()
	processor := worker.NewBatchProcessor(p, concurrency, s.logger)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	names := make(map[string]int)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		base := uniqueBase(names, report.BaseName(result.Path))
		if _, err := report.WriteAll(result.Report, outputDir, base, p.Workflow().Renderers); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write reports: %v\n", result.Path, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (grade: %s, %d claims, %s)\n",
			result.Path, result.Report.OverallGrade, result.Report.Statistics.TotalClaims, result.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Elapsed:   %s\n", time.Since(start).Round(time.Second))
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

// uniqueBase suffixes repeated report names so documents sharing a file name don't overwrite each other
func uniqueBase(seen map[string]int, base string) string {
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s-%d.truth", strings.TrimSuffix(base, ".truth"), n)
	}
	return base
}
