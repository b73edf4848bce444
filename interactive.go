package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/afero"

	"github.com/jadenpxrk/bomscan/internal/bom"
)

const pickerHint = "Tab marks a root, Enter scans the marked roots."

// findCandidates lists root and every file or directory below it that can
// be picked as a scan root. Hidden entries are left out unless showHidden.
func findCandidates(root string, showHidden bool) ([]string, error) {
	candidates := []string{root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries simply are not offered
		}
		if path == root {
			return nil
		}
		if !showHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scan roots under %s: %w", root, err)
	}
	return candidates, nil
}

// previewCandidate describes path for the picker: directories by entry
// count, files by size and the byte-order mark they start with, if any.
func previewCandidate(fsys afero.Fs, engine *bom.Engine, path string) string {
	info, err := fsys.Stat(path)
	if err != nil {
		return fmt.Sprintf("%s\n\ncannot stat: %v", path, err)
	}
	if info.IsDir() {
		entries, err := afero.ReadDir(fsys, path)
		if err != nil {
			return fmt.Sprintf("%s/\n\ndirectory, unreadable: %v", path, err)
		}
		return fmt.Sprintf("%s/\n\ndirectory, %d entries\n\n%s", path, len(entries), pickerHint)
	}

	det, err := engine.Detect(path)
	var status string
	switch {
	case err != nil:
		status = "cannot check: " + err.Error()
	case det.TooSmall:
		status = "too small to carry a BOM"
	case len(det.Matches) == 0:
		status = "no BOM"
	default:
		names := make([]string, len(det.Matches))
		for i, sig := range det.Matches {
			names[i] = sig.Encoding.String()
		}
		status = strings.Join(names, ", ") + " BOM"
	}
	return fmt.Sprintf("%s\n\n%d bytes, %s\n\n%s", path, info.Size(), status, pickerHint)
}

// runInteractiveFinder lets the user pick scan roots with a fuzzy finder.
// It returns nil, nil when the user aborts.
func runInteractiveFinder(showHidden bool) ([]string, error) {
	candidates, err := findCandidates(".", showHidden)
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	engine := bom.NewEngine(fsys, bom.DefaultTable(), bom.Options{DryRun: true})
	idx, err := fuzzyfinder.FindMulti(
		candidates,
		func(i int) string { return candidates[i] },
		fuzzyfinder.WithPromptString("scan> "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return pickerHint
			}
			return previewCandidate(fsys, engine, candidates[i])
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pick scan roots: %w", err)
	}

	roots := make([]string, len(idx))
	for i, n := range idx {
		roots[i] = candidates[n]
	}
	return roots, nil
}
