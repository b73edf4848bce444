package bom

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// DefaultBackupExt is appended to a file name to form its backup name.
const DefaultBackupExt = ".bak"

var (
	// ErrBackupExists is returned by Strip when the backup name is taken.
	ErrBackupExists = errors.New("backup file already exists")
	// ErrNotRegular is returned by Detect for directories and special files.
	ErrNotRegular = errors.New("not a regular file")
)

// Options controls what Process does with a detected signature.
type Options struct {
	DryRun     bool   // report matches without touching the file
	Verbose    bool   // also report files without a signature
	KeepBackup bool   // leave the backup in place after a successful strip
	BackupExt  string // defaults to DefaultBackupExt
}

// Detection is the outcome of probing one file.
type Detection struct {
	Path     string
	Size     int64
	Matches  []Signature
	TooSmall bool // the file cannot hold a signature followed by content
}

// FileResult is one reported record for a visited path. A path with two
// matching signatures yields two records.
type FileResult struct {
	Path         string
	Encoding     Encoding // zero unless HasSignature
	HasSignature bool
	Stripped     bool
	Skipped      bool   // too small to carry a signature
	BackupPath   string // set when a backup exists after processing
	Err          error
}

// Message returns the error text, or "" when the record has no error.
func (r FileResult) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Engine applies a signature table to individual files.
type Engine struct {
	fs    afero.Fs
	table Table
	opts  Options
}

// NewEngine returns an engine over fsys. The table is shared, never copied
// or modified.
func NewEngine(fsys afero.Fs, table Table, opts Options) *Engine {
	if opts.BackupExt == "" {
		opts.BackupExt = DefaultBackupExt
	}
	return &Engine{fs: fsys, table: table, opts: opts}
}

// BackupPath is where Strip moves path before rewriting it.
func (e *Engine) BackupPath(path string) string {
	return path + e.opts.BackupExt
}

// lstat stats path without following a final symlink when fsys can.
func lstat(fsys afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

// Detect reads the leading bytes of path and matches them against the
// table. A file no longer than the shortest signature is reported as
// TooSmall without reading it. A signature only matches when at least one
// byte of content follows it, so a 3-byte file holding a 2-byte UTF-16
// mark and one byte of text matches while a bare 3-byte UTF-8 mark does
// not. Symlinks are refused with ErrNotRegular.
func (e *Engine) Detect(path string) (Detection, error) {
	d := Detection{Path: path}

	// lstat before opening so a FIFO never blocks the open
	info, err := lstat(e.fs, path)
	if err != nil {
		return d, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return d, fmt.Errorf("detect %s: %w", path, ErrNotRegular)
	}

	f, err := e.fs.Open(path)
	if err != nil {
		return d, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if info, err = f.Stat(); err != nil {
		return d, fmt.Errorf("stat %s: %w", path, err)
	}
	d.Size = info.Size()
	if d.Size <= int64(e.table.MinSize()) {
		d.TooSmall = true
		return d, nil
	}

	probe := make([]byte, min(d.Size, int64(e.table.ProbeSize())))
	if _, err := io.ReadFull(f, probe); err != nil {
		return d, fmt.Errorf("read %s: %w", path, err)
	}
	for _, sig := range e.table.Match(probe) {
		if int64(sig.Len()) < d.Size {
			d.Matches = append(d.Matches, sig)
		}
	}
	return d, nil
}

// Strip removes sig from the start of path. The original is first renamed
// to its backup name, so its bytes survive any failure that follows; the
// remainder is then streamed into a new file at path. On failure after the
// rename the backup stays on disk and its path is returned with the error.
//
// The backup name is claimed with an exclusive create before the rename, so
// an existing backup is never replaced. A process that writes the backup
// name without O_EXCL after the claim can still be overwritten by the
// rename.
func (e *Engine) Strip(path string, sig Signature) (string, error) {
	info, err := lstat(e.fs, path)
	if err != nil {
		return "", fmt.Errorf("strip %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("strip %s: %w", path, ErrNotRegular)
	}

	backup := e.BackupPath(path)
	claim, err := e.fs.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("strip %s: %s: %w", path, backup, ErrBackupExists)
		}
		return "", fmt.Errorf("strip %s: %w", path, err)
	}
	claim.Close()

	if err := e.fs.Rename(path, backup); err != nil {
		_ = e.fs.Remove(backup)
		return "", fmt.Errorf("back up %s: %w", path, err)
	}

	if err := e.rewrite(path, backup, int64(sig.Len()), info.Mode().Perm()); err != nil {
		return backup, fmt.Errorf("rewrite %s (original kept at %s): %w", path, backup, err)
	}

	if !e.opts.KeepBackup {
		if err := e.fs.Remove(backup); err != nil {
			// the strip itself succeeded; report where the backup still is
			return backup, nil
		}
		return "", nil
	}
	return backup, nil
}

func (e *Engine) rewrite(path, backup string, offset int64, perm os.FileMode) error {
	src, err := e.fs.Open(backup)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer src.Close()

	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek past signature: %w", err)
	}

	dst, err := e.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy content: %w", err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Process detects signatures in path and, unless this is a dry run, strips
// the longest one. It returns one record per matching signature. Files
// without a signature produce no record unless the engine is verbose.
// Errors are recorded, never returned, so a scan can move on.
func (e *Engine) Process(path string) []FileResult {
	det, err := e.Detect(path)
	if err != nil {
		return []FileResult{{Path: path, Err: err}}
	}
	if det.TooSmall || len(det.Matches) == 0 {
		if e.opts.Verbose {
			return []FileResult{{Path: path, Skipped: det.TooSmall}}
		}
		return nil
	}

	results := make([]FileResult, len(det.Matches))
	longest := 0
	for i, sig := range det.Matches {
		results[i] = FileResult{Path: path, Encoding: sig.Encoding, HasSignature: true}
		if sig.Len() > det.Matches[longest].Len() {
			longest = i
		}
	}
	if e.opts.DryRun {
		return results
	}

	backup, err := e.Strip(path, det.Matches[longest])
	results[longest].BackupPath = backup
	if err != nil {
		results[longest].Err = err
	} else {
		results[longest].Stripped = true
	}
	return results
}
