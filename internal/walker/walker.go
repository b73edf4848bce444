// Package walker produces the paths of a directory tree lazily.
//
// A Walker holds one open directory stream and a stack of directories that
// were discovered but not opened yet. Memory use grows with the number of
// pending directories, never with the size of the tree.
package walker

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrNotDir is returned by New when the root exists but is not a directory.
var ErrNotDir = errors.New("not a directory")

const defaultBatchSize = 64

// Options controls how a Walker traverses the tree.
type Options struct {
	// Recursive descends into subdirectories. When false, subdirectories of
	// the root are produced as plain paths and never opened.
	Recursive bool

	// SkipUnreadable turns a directory that cannot be opened or listed into
	// a skip reported through OnSkip instead of a fatal error.
	SkipUnreadable bool

	// OnSkip is called for every directory skipped because of SkipUnreadable.
	OnSkip func(path string, err error)

	// Prune is consulted for each subdirectory found in recursive mode.
	// Returning true leaves the directory out of the traversal.
	Prune func(path string, info os.FileInfo) bool

	// BatchSize is the number of entries requested per directory read.
	BatchSize int
}

// Walker yields every regular file under a root directory.
// It is not safe for concurrent use.
type Walker struct {
	fs   afero.Fs
	opts Options

	dir     afero.File    // current directory stream, nil once exhausted
	dirPath string        // path of the current directory
	batch   []os.FileInfo // entries read but not consumed yet
	pending []string      // directories waiting to be opened (LIFO)
	last    os.FileInfo   // entry behind the path most recently produced
	err     error         // terminal error (io.EOF on normal completion)
}

// New opens root and returns a Walker positioned before its first entry.
// Failure to open root is reported here, not on the first call to Next.
func New(fsys afero.Fs, root string, opts Options) (*Walker, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open root %s: %w", root, ErrNotDir)
	}
	dir, err := fsys.Open(root)
	if err != nil {
		return nil, fmt.Errorf("open root %s: %w", root, err)
	}
	return &Walker{
		fs:      fsys,
		opts:    opts,
		dir:     dir,
		dirPath: root,
	}, nil
}

// Next returns the next path in the traversal. It returns io.EOF once the
// current directory is exhausted and no directories are pending. Any other
// error ends the traversal; later calls keep returning it.
func (w *Walker) Next() (string, error) {
	for w.err == nil {
		if len(w.batch) == 0 {
			if w.dir == nil {
				if !w.openPending() {
					continue
				}
			}
			if err := w.fill(); err != nil {
				w.fail(err)
			}
			continue
		}

		info := w.batch[0]
		w.batch = w.batch[1:]
		path := filepath.Join(w.dirPath, info.Name())

		switch {
		case info.IsDir():
			if !w.opts.Recursive {
				w.last = info
				return path, nil
			}
			if w.opts.Prune != nil && w.opts.Prune(path, info) {
				continue
			}
			w.pending = append(w.pending, path)
		case info.Mode().IsRegular():
			w.last = info
			return path, nil
		default:
			// symlinks and special files are neither followed nor produced
		}
	}
	return "", w.err
}

// fill reads the next batch from the current directory stream. Reaching the
// end of the stream closes it.
func (w *Walker) fill() error {
	entries, err := w.dir.Readdir(w.opts.BatchSize)
	w.batch = entries
	if err == nil {
		return nil
	}
	closeErr := w.closeDir()
	if errors.Is(err, io.EOF) {
		return closeErr
	}
	err = fmt.Errorf("read directory %s: %w", w.dirPath, err)
	if w.opts.SkipUnreadable {
		w.skip(w.dirPath, err)
		return nil
	}
	return err
}

// openPending pops the stack and opens the directory on top. It reports
// false when no stream was opened, which happens when the stack is empty
// (the walker is then done) or the directory was skipped.
func (w *Walker) openPending() bool {
	n := len(w.pending)
	if n == 0 {
		w.err = io.EOF
		return false
	}
	path := w.pending[n-1]
	w.pending = w.pending[:n-1]

	dir, err := w.fs.Open(path)
	if err != nil {
		err = fmt.Errorf("open directory %s: %w", path, err)
		if w.opts.SkipUnreadable {
			w.skip(path, err)
			return false
		}
		w.fail(err)
		return false
	}
	w.dir = dir
	w.dirPath = path
	return true
}

func (w *Walker) skip(path string, err error) {
	if w.opts.OnSkip != nil {
		w.opts.OnSkip(path, err)
	}
}

func (w *Walker) fail(err error) {
	w.err = err
	w.batch = nil
	w.pending = nil
	_ = w.closeDir()
}

func (w *Walker) closeDir() error {
	if w.dir == nil {
		return nil
	}
	err := w.dir.Close()
	w.dir = nil
	return err
}

// Info returns the file info of the entry behind the last path returned by
// Next, or nil before the first call.
func (w *Walker) Info() os.FileInfo {
	return w.last
}

// Pending reports how many directories are waiting to be traversed.
func (w *Walker) Pending() int {
	return len(w.pending)
}

// Close releases the open directory handle. The walker cannot be resumed.
func (w *Walker) Close() error {
	if w.err == nil {
		w.err = io.EOF
	}
	w.batch = nil
	w.pending = nil
	return w.closeDir()
}

// All adapts the walker to a range-over-func sequence. A fatal error is
// yielded once as the final pair. Breaking out of the loop closes the walker.
func (w *Walker) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer w.Close()
		for {
			path, err := w.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(path, err) || err != nil {
				return
			}
		}
	}
}
