package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/relnotesgen/internal/application"
)

var (
	genFromTag      string
	genToTag        string
	genFromCommit   string
	genToCommit     string
	genClientFacing bool
	genPush         bool
	genOutput       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate release notes for a range",
	Long: `Generate release notes for a tag range, a commit range, or the two most
recent tags when no range is given. The report is written to the output
directory, recorded in the report history and optionally pushed to the
repository.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genFromTag, "from-tag", "", "Start tag (exclusive)")
	generateCmd.Flags().StringVar(&genToTag, "to-tag", "", "End tag (default: branch head)")
	generateCmd.Flags().StringVar(&genFromCommit, "from-commit", "", "Start commit SHA (exclusive)")
	generateCmd.Flags().StringVar(&genToCommit, "to-commit", "", "End commit SHA (default: branch head)")
	generateCmd.Flags().BoolVar(&genClientFacing, "client-facing", false, "Only include client facing issues")
	generateCmd.Flags().BoolVar(&genPush, "push", false, "Publish the report to the repository")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output directory (default: report.directory or a temporary directory)")
	generateCmd.MarkFlagsMutuallyExclusive("from-tag", "from-commit")
	generateCmd.MarkFlagsMutuallyExclusive("to-tag", "to-commit")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.service.Generate(ctx, application.RangeRequest{
		FromTag:      genFromTag,
		ToTag:        genToTag,
		FromCommit:   genFromCommit,
		ToCommit:     genToCommit,
		ClientFacing: genClientFacing,
		Publish:      genPush,
	})
	if err != nil {
		return err
	}

	dir, err := outputDir(genOutput, a.cfg.Report.Directory)
	if err != nil {
		return err
	}
	outPath := filepath.Join(dir, report.FileName)
	if err := os.WriteFile(outPath, report.HTML, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.logger.Info("report written", "path", outPath, "id", report.ID)

	return printJSON(map[string]any{
		"id":      report.ID,
		"version": report.Notes.ReleaseVersion,
		"path":    outPath,
		"errors":  report.Notes.Errors,
	})
}

// outputDir resolves the report directory: the flag, then the configured
// directory, then a fresh temporary directory.
func outputDir(flag, configured string) (string, error) {
	dir := flag
	if dir == "" {
		dir = configured
	}
	if dir == "" {
		tmp, err := os.MkdirTemp("", "relnotes-")
		if err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
		return tmp, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return dir, nil
}
