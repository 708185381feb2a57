// Package main provides the CLI entry point for xlgrid-go.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/models"
)

var (
	outputPath string
	pretty     bool
	sheetsDir  string
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xlgrid",
		Short: "Inspect and convert .xls and .xlsx workbooks",
		Long: `xlgrid reads BIFF8 (.xls) and OOXML (.xlsx) workbooks into one object
model, dumps them as JSON and converts between the two formats.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML options file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: error, warn, info, debug")

	dumpCmd := &cobra.Command{
		Use:   "dump [input]",
		Short: "Write a JSON snapshot of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	dumpCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	dumpCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	dumpCmd.Flags().StringVar(&sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")

	convertCmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Convert between .xls and .xlsx",
		Long: `convert rewrites a workbook in the format named by the extension of the
output path (.xls or .xlsx).`,
		Args: cobra.ExactArgs(2),
		RunE: runConvert,
	}

	rootCmd.AddCommand(dumpCmd, convertCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadOptions() (xlgrid.Options, error) {
	opts := xlgrid.DefaultOptions()
	if configPath != "" {
		var err error
		if opts, err = xlgrid.LoadOptions(configPath); err != nil {
			return opts, fmt.Errorf("load config: %w", err)
		}
	}
	if logLevel != "" {
		opts.LogLevel = logLevel
	}
	return opts, opts.Validate()
}

func openInput(path string) (*xlgrid.Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return xlgrid.Open(path, opts)
}

func runDump(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	wb, err := openInput(inputPath)
	if err != nil {
		return err
	}
	snap := wb.Snapshot(filepath.Base(inputPath))

	jsonData, err := toJSON(snap, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if sheetsDir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	}

	if sheetsDir != "" {
		if err := writeSheetFiles(snap, sheetsDir); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath, outPath := args[0], args[1]
	var format xlgrid.Format
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".xls":
		format = xlgrid.FormatBIFF8
	case ".xlsx":
		format = xlgrid.FormatOOXML
	default:
		return fmt.Errorf("unknown output format: %s (must be .xls or .xlsx)", outPath)
	}
	wb, err := openInput(inputPath)
	if err != nil {
		return err
	}
	if wb.Format() != format {
		if wb, err = wb.ConvertTo(format); err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
	}
	return wb.Save(outPath)
}

func toJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func writeSheetFiles(wb *models.WorkbookData, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, sheet := range wb.Sheets {
		jsonData, err := toJSON(sheet, pretty)
		if err != nil {
			return err
		}
		filename := filepath.Join(dir, sheet.Name+".json")
		if err := os.WriteFile(filename, jsonData, 0644); err != nil {
			return err
		}
	}
	return nil
}
