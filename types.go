package main

import "github.com/jadenpxrk/bomscan/internal/bom"

// scanConfig is the resolved option set for one run (defaults < config file
// < environment < flags).
type scanConfig struct {
	Recursive      bool
	DryRun         bool
	Verbose        bool
	KeepBackup     bool
	BackupExt      string
	SkipUnreadable bool
	ShowHidden     bool
	NoIgnore       bool
	Extensions     []string // lower-case, with leading dot; empty means all
	TextOnly       bool     // restrict to files known to languages.yml
	Encodings      []string // empty means the full signature table
}

// ScanReport holds the results for one input root, in walk order.
type ScanReport struct {
	Root    string
	Remote  string // set when Root is a temporary clone of this URL
	Scanned int    // files handed to the BOM engine
	Results []bom.FileResult
	Err     error // traversal error that ended the scan of this root early
}

// Summary holds totals across all processed roots.
type Summary struct {
	FilesScanned  int `yaml:"files_scanned" json:"files_scanned"`
	FilesWithBOM  int `yaml:"files_with_bom" json:"files_with_bom"`
	FilesStripped int `yaml:"files_stripped" json:"files_stripped"`
	FilesSkipped  int `yaml:"files_skipped" json:"files_skipped"`
	FileErrors    int `yaml:"file_errors" json:"file_errors"`
	FailedRoots   int `yaml:"failed_roots" json:"failed_roots"`
}

// summarize tallies per-path outcomes. A path with several matching
// signatures counts once.
func summarize(reports []ScanReport) Summary {
	var s Summary
	for _, r := range reports {
		s.FilesScanned += r.Scanned
		if r.Err != nil {
			s.FailedRoots++
		}
		var (
			lastPath                        string
			withBOM, stripped, failed, skip bool
		)
		flush := func() {
			if withBOM {
				s.FilesWithBOM++
			}
			if stripped {
				s.FilesStripped++
			}
			if failed {
				s.FileErrors++
			}
			if skip {
				s.FilesSkipped++
			}
		}
		for i, res := range r.Results {
			if i == 0 || res.Path != lastPath {
				if i > 0 {
					flush()
				}
				lastPath = res.Path
				withBOM, stripped, failed, skip = false, false, false, false
			}
			withBOM = withBOM || res.HasSignature
			stripped = stripped || res.Stripped
			failed = failed || res.Err != nil
			skip = skip || res.Skipped
		}
		if len(r.Results) > 0 {
			flush()
		}
	}
	return s
}

// Failed reports whether the run should exit with a non-zero status.
func (s Summary) Failed() bool {
	return s.FileErrors > 0 || s.FailedRoots > 0
}
