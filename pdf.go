package main

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // Margin in mm
	pdfLineHeight = 5   // Line height in mm
	pdfFontSize   = 9
)

// generatePDF writes the scan report to outputPath: a section per root
// with one line per result, then the summary.
func generatePDF(reports []ScanReport, summary Summary, dryRun bool, outputPath string) error {
	log.Info().Str("file", outputPath).Msg("Generating PDF report")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()
	width := float64(pdfPageWidth - 2*pdfMargin)

	pdf.SetFont("Helvetica", "B", pdfFontSize+4)
	pdf.MultiCell(width, pdfLineHeight*1.5, "BOM scan report", "", "L", false)
	pdf.Ln(pdfLineHeight / 2)

	for _, r := range reports {
		header := fmt.Sprintf("Root: %s", r.Root)
		if r.Remote != "" {
			header += fmt.Sprintf(" (clone of %s)", r.Remote)
		}
		pdf.SetFont("Helvetica", "B", pdfFontSize+1)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(width, pdfLineHeight, header, "", "L", false)
		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		pdf.SetFont("Courier", "", pdfFontSize)
		for _, res := range r.Results {
			switch {
			case res.Err != nil:
				pdf.SetTextColor(200, 0, 0)
			case res.Stripped:
				pdf.SetTextColor(0, 128, 0)
			case res.HasSignature:
				pdf.SetTextColor(160, 110, 0)
			default:
				pdf.SetTextColor(110, 110, 110)
			}
			pdf.MultiCell(width, pdfLineHeight, fmt.Sprintf("%s: %s", res.Path, describeResult(res, dryRun)), "", "L", false)
		}
		if r.Err != nil {
			pdf.SetTextColor(200, 0, 0)
			pdf.MultiCell(width, pdfLineHeight, fmt.Sprintf("Scan aborted: %v", r.Err), "", "L", false)
		}
		pdf.Ln(pdfLineHeight)
	}

	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(width, pdfLineHeight, "--- Summary ---", "", "L", false)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	summaryString := fmt.Sprintf("Files scanned: %d\nFiles with BOM: %d\nFiles stripped: %d\nFiles too small to check: %d\nFiles with errors: %d\nPaths failed to process: %d",
		summary.FilesScanned, summary.FilesWithBOM, summary.FilesStripped, summary.FilesSkipped, summary.FileErrors, summary.FailedRoots)
	if dryRun {
		summaryString += "\nDry run: no files were modified"
	}
	pdf.MultiCell(width, pdfLineHeight, summaryString, "", "L", false)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	log.Info().Str("file", outputPath).Msg("Saved PDF report")
	return nil
}
