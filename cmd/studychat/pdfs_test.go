package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PabloGalante/studychat/internal/app/upload"
	"github.com/PabloGalante/studychat/internal/domain"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDescribeFileSniffsContent(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "notes.pdf", []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj\n"))
	txt := writeFile(t, dir, "fake.pdf", []byte("just some text"))

	got, err := describeFile(pdf)
	if err != nil {
		t.Fatalf("describeFile failed: %v", err)
	}
	if got.ContentType != upload.PDFContentType || got.Name != "notes.pdf" {
		t.Fatalf("unexpected description %+v", got)
	}

	got, err = describeFile(txt)
	if err != nil {
		t.Fatalf("describeFile failed: %v", err)
	}
	if upload.IsPDF(got.ContentType) {
		t.Fatalf("extension alone must not make a PDF, got %q", got.ContentType)
	}
}

func TestDescribeFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := describeFile(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := describeFile(dir); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestPrintSelection(t *testing.T) {
	sel := upload.FilterPDFs([]domain.UploadFile{
		{Name: "a.pdf", ContentType: "application/pdf", Size: 1572864},
		{Name: "b.png", ContentType: "image/png", Size: 10},
	})

	var out bytes.Buffer
	printSelection(&out, sel)

	got := out.String()
	for _, want := range []string{"a.pdf", "1.50 MB", "1.5 MiB", "b.png", "skipped", "Upload 1 File"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}

	out.Reset()
	printSelection(&out, upload.Selection{})
	if !strings.Contains(out.String(), "No PDF files selected") {
		t.Fatalf("unexpected empty output %q", out.String())
	}
}
