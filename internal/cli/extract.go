package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/drive-renamer/internal/app"
)

var extractNoOCR bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the text the renamer would send to the model for a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		if extractNoOCR {
			cfg.OCR.Enabled = false
		}
		ex, cleanup, err := app.NewExtractor(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Println(ex.Extract(cmd.Context(), filepath.Base(args[0]), data))
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractNoOCR, "no-ocr", false, "skip OCR for images and scanned PDFs")
}
