package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/studychat/internal/app/upload"
	"github.com/PabloGalante/studychat/internal/domain"
)

// sniffLen is how many leading bytes content type detection looks at.
const sniffLen = 512

var pdfsCmd = &cobra.Command{
	Use:   "pdfs <path>...",
	Short: "List which of the given files would be accepted for upload",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := make([]domain.UploadFile, 0, len(args))
		for _, path := range args {
			f, err := describeFile(path)
			if err != nil {
				return err
			}
			files = append(files, f)
		}
		printSelection(cmd.OutOrStdout(), upload.FilterPDFs(files))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pdfsCmd)
}

// describeFile stats path and sniffs its content type.
func describeFile(path string) (domain.UploadFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.UploadFile{}, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return domain.UploadFile{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return domain.UploadFile{
		Name:        filepath.Base(path),
		ContentType: upload.DetectContentType(head[:n]),
		Size:        info.Size(),
	}, nil
}

func printSelection(w io.Writer, sel upload.Selection) {
	for _, f := range sel.Files {
		fmt.Fprintf(w, "  %-32s %10s  (%s)\n", f.Name, f.SizeLabel, f.HumanSize)
	}
	for _, name := range sel.Rejected {
		fmt.Fprintf(w, "  %-32s skipped, not a PDF\n", name)
	}
	if len(sel.Files) == 0 {
		fmt.Fprintln(w, "No PDF files selected")
		return
	}
	fmt.Fprintln(w, sel.UploadLabel())
}
