package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bffagent/bffagent/internal/output"
)

// Output flag names shared by the listing commands.
const (
	flagOutputFormat = "output-format"
	flagOut          = "out"
	flagOutDir       = "out-dir"
)

var errOutTargetsExclusive = errors.New("--out and --out-dir are mutually exclusive")

// outputSink is where a command writes its rendered result.
type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func addOutputFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().String(flagOutputFormat, string(output.FormatTable), "Output format: "+formats)
	cmd.Flags().String(flagOut, "", "Write output to a file (default stdout)")
	cmd.Flags().String(flagOutDir, "", "Write output into a directory, one file per command")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString(flagOutputFormat)
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// openCommandSink resolves --out and --out-dir. Neither set, or --out -, means the command's stdout.
// With --out-dir the file is <dir>/<name>.<ext>.
func openCommandSink(cmd *cobra.Command, name string, format output.Format) (*outputSink, error) {
	outPath, _ := cmd.Flags().GetString(flagOut)
	outDir, _ := cmd.Flags().GetString(flagOutDir)
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return nil, errOutTargetsExclusive
	case outDir != "":
		outPath = filepath.Join(outDir, name+"."+format.Extension())
	case outPath == "" || outPath == "-":
		return &outputSink{writer: cmd.OutOrStdout(), close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: outPath}, nil
}
