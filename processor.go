package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/jadenpxrk/bomscan/internal/bom"
	"github.com/jadenpxrk/bomscan/internal/walker"
)

// newEngine builds the BOM engine for cfg, narrowing the signature table
// when specific encodings were requested.
func newEngine(fsys afero.Fs, cfg scanConfig) (*bom.Engine, error) {
	table := bom.DefaultTable()
	if len(cfg.Encodings) > 0 {
		encs := make([]bom.Encoding, 0, len(cfg.Encodings))
		for _, name := range cfg.Encodings {
			enc, err := bom.ParseEncoding(name)
			if err != nil {
				return nil, err
			}
			encs = append(encs, enc)
		}
		table = table.Subset(encs...)
	}
	return bom.NewEngine(fsys, table, bom.Options{
		DryRun:     cfg.DryRun,
		Verbose:    cfg.Verbose,
		KeepBackup: cfg.KeepBackup,
		BackupExt:  cfg.BackupExt,
	}), nil
}

// processLocalPath scans a single local file or directory. The returned
// error is set only when the scan could not start; a traversal that fails
// midway is recorded in ScanReport.Err next to the results gathered so far.
func processLocalPath(fsys afero.Fs, path string, cfg scanConfig, langData *LoadedLanguageData) (ScanReport, error) {
	report := ScanReport{Root: path}

	engine, err := newEngine(fsys, cfg)
	if err != nil {
		return report, err
	}

	info, err := fsys.Stat(path)
	if err != nil {
		return report, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if !info.IsDir() {
		// explicit file arguments bypass the hidden and ignore filters
		log.Debug().Str("file", path).Msg("Processing file")
		report.Scanned = 1
		report.Results = engine.Process(path)
		return report, nil
	}

	log.Info().Str("dir", path).Bool("recursive", cfg.Recursive).Bool("dry_run", cfg.DryRun).Msg("Processing directory")
	f := newFileFilter(fsys, path, cfg, langData)
	w, err := walker.New(fsys, path, walker.Options{
		Recursive:      cfg.Recursive,
		SkipUnreadable: cfg.SkipUnreadable,
		Prune:          f.pruneDir,
		OnSkip: func(dir string, err error) {
			log.Warn().Err(err).Str("dir", dir).Msg("Skipping unreadable directory")
		},
	})
	if err != nil {
		return report, err
	}
	defer w.Close()

	for {
		p, err := w.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Err = fmt.Errorf("error walking directory %s: %w", path, err)
			break
		}
		if !f.keepFile(p, w.Info()) {
			continue
		}
		report.Scanned++
		report.Results = append(report.Results, engine.Process(p)...)
	}
	return report, nil
}

// fileFilter decides which walked entries reach the BOM engine.
type fileFilter struct {
	root      string
	cfg       scanConfig
	backupExt string
	ignore    gitignore.IgnoreMatcher
	langData  *LoadedLanguageData
}

// newFileFilter reads root/.gitignore from fsys, the filesystem being walked.
func newFileFilter(fsys afero.Fs, root string, cfg scanConfig, langData *LoadedLanguageData) *fileFilter {
	f := &fileFilter{root: root, cfg: cfg, backupExt: cfg.BackupExt}
	if f.backupExt == "" {
		f.backupExt = bom.DefaultBackupExt
	}
	if cfg.TextOnly {
		f.langData = langData
	}

	if !cfg.NoIgnore {
		gitIgnorePath := filepath.Join(root, ".gitignore")
		file, err := fsys.Open(gitIgnorePath)
		switch {
		case err == nil:
			f.ignore = gitignore.NewGitIgnoreFromReader(root, file)
			file.Close()
		case !errors.Is(err, os.ErrNotExist):
			log.Warn().Err(err).Str("file", gitIgnorePath).Msg("Could not read .gitignore")
		}
	}
	return f
}

// pruneDir keeps hidden and ignored directories out of the traversal.
func (f *fileFilter) pruneDir(path string, info os.FileInfo) bool {
	if !f.cfg.ShowHidden && isHidden(info.Name()) {
		return true
	}
	return f.ignore != nil && f.ignore.Match(path, true)
}

// keepFile applies the file-level filters. In non-recursive mode the walker
// also yields subdirectories, which are dropped here.
func (f *fileFilter) keepFile(path string, info os.FileInfo) bool {
	if info != nil && !info.Mode().IsRegular() {
		return false
	}
	name := filepath.Base(path)

	// never rescan backups written by an earlier strip
	if strings.HasSuffix(name, f.backupExt) {
		return false
	}
	if !f.cfg.ShowHidden && isHidden(name) {
		return false
	}
	if f.ignore != nil && f.ignore.Match(path, false) {
		return false
	}
	if len(f.cfg.Extensions) > 0 && !hasExtension(name, f.cfg.Extensions) {
		return false
	}
	if f.langData != nil {
		if _, known := f.langData.GetLanguageForFile(path); !known {
			return false
		}
	}
	return true
}

// parsePatterns splits a comma-separated list, dropping blanks.
func parsePatterns(patterns string) []string {
	if patterns == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeExtensions lower-cases extensions and adds the leading dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// isHidden checks if a file path is hidden (starts with '.').
func isHidden(path string) bool {
	if path == "." || path == ".." {
		return false
	}
	baseName := filepath.Base(path)
	return len(baseName) > 0 && baseName[0] == '.'
}
