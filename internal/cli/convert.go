package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/me/wdl2vidarr/internal/bundle"
	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/spf13/cobra"
)

// NewConvertCmd creates the root command of wdl2vidarr.
func NewConvertCmd() *cobra.Command {
	var inputPath, outputPath string

	cmd := &cobra.Command{
		Use:   "wdl2vidarr",
		Short: "Convert a WDL workflow into a Vidarr workflow bundle",
		Long: "Convert a WDL workflow and its imports into the JSON bundle Vidarr registers.\n" +
			"Without --output-path the bundle is pretty-printed to stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := bundle.New(logger).Convert(inputPath)
			if err != nil {
				return err
			}
			if outputPath == "" {
				return vidarr.Encode(cmd.OutOrStdout(), w, true)
			}
			return writeBundle(outputPath, w)
		},
		SilenceUsage: true,
	}
	addLoggingFlags(cmd)

	cmd.Flags().StringVarP(&inputPath, "input-wdl-path", "i", "", "Source WDL path")
	cmd.Flags().StringVarP(&outputPath, "output-path", "o", "", "Write the bundle to this file instead of stdout")
	_ = cmd.MarkFlagRequired("input-wdl-path")

	return cmd
}

// writeBundle writes compact JSON, creating the parent directory.
func writeBundle(path string, w *vidarr.Workflow) error {
	data, err := vidarr.Marshal(w, false)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	logger.Debug("bundle written", "path", path, "bytes", len(data))
	return nil
}
