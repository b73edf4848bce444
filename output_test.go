package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jadenpxrk/bomscan/internal/bom"
)

func init() {
	color.NoColor = true
}

func sampleReports() []ScanReport {
	return []ScanReport{
		{
			Root:    "root",
			Scanned: 3,
			Results: []bom.FileResult{
				{Path: "root/a.txt", Encoding: bom.UTF8, HasSignature: true, Stripped: true, BackupPath: "root/a.txt.bak"},
				{Path: "root/c.txt", Encoding: bom.UTF16BE, HasSignature: true, Err: errors.New("permission denied")},
			},
		},
		{Root: "/tmp/clone", Remote: "git@example.com:x/y.git", Err: errors.New("walk failed")},
	}
}

func TestDescribeResult(t *testing.T) {
	tests := []struct {
		name   string
		result bom.FileResult
		dryRun bool
		want   string
	}{
		{"stripped with backup", bom.FileResult{Encoding: bom.UTF8, HasSignature: true, Stripped: true, BackupPath: "a.bak"}, false, "UTF-8 BOM stripped (backup: a.bak)"},
		{"stripped", bom.FileResult{Encoding: bom.UTF16LE, HasSignature: true, Stripped: true}, false, "UTF-16LE BOM stripped"},
		{"dry run", bom.FileResult{Encoding: bom.UTF16BE, HasSignature: true}, true, "UTF-16BE BOM (dry run)"},
		{"found", bom.FileResult{Encoding: bom.UTF8, HasSignature: true}, false, "UTF-8 BOM"},
		{"strip failed", bom.FileResult{Encoding: bom.UTF8, HasSignature: true, Err: errors.New("boom")}, false, "UTF-8 BOM, ERROR boom"},
		{"unreadable", bom.FileResult{Err: errors.New("denied")}, false, "ERROR denied"},
		{"too small", bom.FileResult{Skipped: true}, false, "too small, skipped"},
		{"clean", bom.FileResult{}, false, "no BOM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeResult(tt.result, tt.dryRun))
		})
	}
}

func TestRenderReport_Text(t *testing.T) {
	reports := sampleReports()
	out, err := renderReport(reports, summarize(reports), "text", false)
	require.NoError(t, err)

	assert.Contains(t, out, "Checking BOMs in root\n")
	assert.Contains(t, out, "root/a.txt: UTF-8 BOM stripped (backup: root/a.txt.bak)\n")
	assert.Contains(t, out, "root/c.txt: UTF-16BE BOM, ERROR permission denied\n")
	assert.Contains(t, out, "Checking BOMs in /tmp/clone (clone of git@example.com:x/y.git)\n")
	assert.Contains(t, out, "Scan aborted: walk failed\n")
	assert.Contains(t, out, "Files scanned: 3\n")
	assert.Contains(t, out, "Files with BOM: 2\n")
	assert.Contains(t, out, "Files stripped: 1\n")
	assert.Contains(t, out, "Files with errors: 1\n")
	assert.Contains(t, out, "Paths failed to process: 1\n")
	assert.NotContains(t, out, "Dry run")
}

func TestRenderReport_TextDryRun(t *testing.T) {
	reports := []ScanReport{{Root: "r", Scanned: 1, Results: []bom.FileResult{
		{Path: "r/a", Encoding: bom.UTF8, HasSignature: true},
	}}}
	out, err := renderReport(reports, summarize(reports), "", true)
	require.NoError(t, err)
	assert.Contains(t, out, "r/a: UTF-8 BOM (dry run)\n")
	assert.Contains(t, out, "Dry run: no files were modified\n")
	assert.NotContains(t, out, "Files stripped")
	assert.NotContains(t, out, "errors")
}

func TestRenderReport_JSON(t *testing.T) {
	reports := sampleReports()
	out, err := renderReport(reports, summarize(reports), "JSON", false)
	require.NoError(t, err)

	var doc reportDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.False(t, doc.DryRun)
	require.Len(t, doc.Roots, 2)
	assert.Equal(t, resultRecord{
		Path: "root/a.txt", Encoding: "UTF-8", HasBOM: true, Stripped: true, Backup: "root/a.txt.bak",
	}, doc.Roots[0].Results[0])
	assert.Equal(t, "permission denied", doc.Roots[0].Results[1].Error)
	assert.Equal(t, "git@example.com:x/y.git", doc.Roots[1].Remote)
	assert.Equal(t, "walk failed", doc.Roots[1].Error)
	assert.Empty(t, doc.Roots[1].Results)
	assert.Equal(t, 1, doc.Summary.FailedRoots)
}

func TestRenderReport_YAML(t *testing.T) {
	reports := sampleReports()
	out, err := renderReport(reports, summarize(reports), "yml", true)
	require.NoError(t, err)

	var doc reportDocument
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.True(t, doc.DryRun)
	require.Len(t, doc.Roots, 2)
	assert.Equal(t, "UTF-16BE", doc.Roots[0].Results[1].Encoding)
	assert.Equal(t, 3, doc.Summary.FilesScanned)
	assert.Contains(t, out, "has_bom: true")
}

func TestRenderReport_UnsupportedFormat(t *testing.T) {
	_, err := renderReport(nil, Summary{}, "xml", false)
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestGeneratePDF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.pdf")
	reports := sampleReports()
	require.NoError(t, generatePDF(reports, summarize(reports), false, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, len(data) > 4 && string(data[:4]) == "%PDF", "output is not a PDF")
}

func TestGeneratePDF_BadPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "report.pdf")
	assert.Error(t, generatePDF(nil, Summary{}, true, out))
}
