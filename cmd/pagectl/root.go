package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/internal/writer"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	configPath  string
	pagesFlag   int
	regionsFlag int
	logDir      string
	outPath     string
)

// printer groups digits in byte and page counts.
var printer = message.NewPrinter(language.English)

var rootCmd = &cobra.Command{
	Use:   "pagectl",
	Short: "Boot and exercise buddy page allocator pools",
	Long: `pagectl boots a simulated machine whose memory regions are managed by
the buddy page allocator, then reports region layouts and free-list
statistics, translates addresses, or runs allocation workloads that verify
the allocator's metadata after every step.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "YAML machine description (overrides --pages/--regions)")
	rootCmd.PersistentFlags().IntVar(&pagesFlag, "pages", defaultPages, "Pages per region")
	rootCmd.PersistentFlags().IntVar(&regionsFlag, "regions", 1, "Number of regions")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write JSON debug logs to this directory")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "Write the JSON report to this file instead of stdout")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging() error {
	if !verbose && logDir == "" {
		return logger.Init(logger.Options{})
	}
	return logger.Init(logger.Options{
		Enabled: true,
		LogDir:  logDir,
		Level:   slog.LevelDebug,
	})
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// wantJSON reports whether commands should emit JSON instead of text
func wantJSON() bool {
	return jsonOut || outPath != ""
}

// reportSink, when set, receives JSON reports instead of stdout or --out
var reportSink writer.ReportWriter

// reportWriter picks the destination for JSON reports
func reportWriter() writer.ReportWriter {
	switch {
	case reportSink != nil:
		return reportSink
	case outPath != "":
		return &writer.FileWriter{Path: outPath}
	default:
		return &writer.StreamWriter{W: os.Stdout}
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	if err := reportWriter().WriteReport(v); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if outPath != "" && reportSink == nil {
		printVerbose("Report written to %s\n", outPath)
	}
	return nil
}
