package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/jadenpxrk/bomscan/internal/bom"
)

var (
	colorBOM     = color.New(color.FgYellow)
	colorStrip   = color.New(color.FgGreen)
	colorError   = color.New(color.FgRed, color.Bold)
	colorSkipped = color.New(color.FgHiBlack)
)

// resultRecord is the serialized form of a bom.FileResult.
type resultRecord struct {
	Path     string `yaml:"path" json:"path"`
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	HasBOM   bool   `yaml:"has_bom" json:"has_bom"`
	Stripped bool   `yaml:"stripped" json:"stripped"`
	Skipped  bool   `yaml:"skipped,omitempty" json:"skipped,omitempty"`
	Backup   string `yaml:"backup,omitempty" json:"backup,omitempty"`
	Error    string `yaml:"error,omitempty" json:"error,omitempty"`
}

type rootRecord struct {
	Root    string         `yaml:"root" json:"root"`
	Remote  string         `yaml:"remote,omitempty" json:"remote,omitempty"`
	Error   string         `yaml:"error,omitempty" json:"error,omitempty"`
	Results []resultRecord `yaml:"results" json:"results"`
}

type reportDocument struct {
	DryRun  bool         `yaml:"dry_run" json:"dry_run"`
	Roots   []rootRecord `yaml:"roots" json:"roots"`
	Summary Summary      `yaml:"summary" json:"summary"`
}

func newResultRecord(r bom.FileResult) resultRecord {
	rec := resultRecord{
		Path:     r.Path,
		HasBOM:   r.HasSignature,
		Stripped: r.Stripped,
		Skipped:  r.Skipped,
		Backup:   r.BackupPath,
		Error:    r.Message(),
	}
	if r.HasSignature {
		rec.Encoding = r.Encoding.String()
	}
	return rec
}

func newReportDocument(reports []ScanReport, summary Summary, dryRun bool) reportDocument {
	doc := reportDocument{DryRun: dryRun, Summary: summary, Roots: make([]rootRecord, 0, len(reports))}
	for _, r := range reports {
		rr := rootRecord{Root: r.Root, Remote: r.Remote, Results: make([]resultRecord, 0, len(r.Results))}
		if r.Err != nil {
			rr.Error = r.Err.Error()
		}
		for _, res := range r.Results {
			rr.Results = append(rr.Results, newResultRecord(res))
		}
		doc.Roots = append(doc.Roots, rr)
	}
	return doc
}

// renderReport formats the scan results as text, yaml or json.
func renderReport(reports []ScanReport, summary Summary, format string, dryRun bool) (string, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return printResults(reports, summary, dryRun), nil
	case "yaml", "yml":
		out, err := yaml.Marshal(newReportDocument(reports, summary, dryRun))
		if err != nil {
			return "", fmt.Errorf("error encoding yaml report: %w", err)
		}
		return string(out), nil
	case "json":
		out, err := json.MarshalIndent(newReportDocument(reports, summary, dryRun), "", "  ")
		if err != nil {
			return "", fmt.Errorf("error encoding json report: %w", err)
		}
		return string(out) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format: %s. Use 'text', 'yaml' or 'json'", format)
	}
}

// describeResult renders the status part of one result line, without color.
func describeResult(r bom.FileResult, dryRun bool) string {
	switch {
	case r.Err != nil && r.HasSignature:
		return fmt.Sprintf("%s BOM, ERROR %s", r.Encoding, r.Message())
	case r.Err != nil:
		return "ERROR " + r.Message()
	case r.Stripped && r.BackupPath != "":
		return fmt.Sprintf("%s BOM stripped (backup: %s)", r.Encoding, r.BackupPath)
	case r.Stripped:
		return fmt.Sprintf("%s BOM stripped", r.Encoding)
	case r.HasSignature && dryRun:
		return fmt.Sprintf("%s BOM (dry run)", r.Encoding)
	case r.HasSignature:
		return fmt.Sprintf("%s BOM", r.Encoding)
	case r.Skipped:
		return "too small, skipped"
	default:
		return "no BOM"
	}
}

func colorFor(r bom.FileResult) *color.Color {
	switch {
	case r.Err != nil:
		return colorError
	case r.Stripped:
		return colorStrip
	case r.HasSignature:
		return colorBOM
	default:
		return colorSkipped
	}
}

// printResults generates the text report: one line per result, then the
// summary block.
func printResults(reports []ScanReport, summary Summary, dryRun bool) string {
	var builder strings.Builder
	for _, r := range reports {
		header := r.Root
		if r.Remote != "" {
			header = fmt.Sprintf("%s (clone of %s)", r.Root, r.Remote)
		}
		builder.WriteString(fmt.Sprintf("Checking BOMs in %s\n", header))
		for _, res := range r.Results {
			builder.WriteString(fmt.Sprintf("%s: %s\n", res.Path, colorFor(res).Sprint(describeResult(res, dryRun))))
		}
		if r.Err != nil {
			builder.WriteString(colorError.Sprintf("Scan aborted: %v\n", r.Err))
		}
	}

	builder.WriteString("\n--- Summary ---\n")
	builder.WriteString(fmt.Sprintf("Files scanned: %d\n", summary.FilesScanned))
	builder.WriteString(fmt.Sprintf("Files with BOM: %d\n", summary.FilesWithBOM))
	if dryRun {
		builder.WriteString("Dry run: no files were modified\n")
	} else {
		builder.WriteString(fmt.Sprintf("Files stripped: %d\n", summary.FilesStripped))
	}
	if summary.FilesSkipped > 0 {
		builder.WriteString(fmt.Sprintf("Files too small to check: %d\n", summary.FilesSkipped))
	}
	if summary.FileErrors > 0 {
		builder.WriteString(fmt.Sprintf("Files with errors: %d\n", summary.FileErrors))
	}
	if summary.FailedRoots > 0 {
		builder.WriteString(fmt.Sprintf("Paths failed to process: %d\n", summary.FailedRoots))
	}
	return builder.String()
}
