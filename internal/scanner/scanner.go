// Package scanner walks a directory tree for documents to import.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("studio.scanner")

// Scan walks the subtree under root. Entries whose name begins with "." are
// skipped entirely. Every remaining file for which skip returns false is
// read and handed to callback. Callbacks run on one worker goroutine and
// Scan returns once all of them have completed or ctx is done.
func Scan(
	ctx context.Context,
	root string,
	skip func(path string, info fs.FileInfo) bool,
	callback func(path string, document []byte),
) error {
	fileCh := make(chan string, 100)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for path := range fileCh {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warningf("read error on %s: %v", path, err)
				continue
			}
			callback(path, data)
		}
	}()

	log.Debugf("walking %s", root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warningf("walk error: %v", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if skip != nil && skip(path, info) {
			return nil
		}

		select {
		case fileCh <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	close(fileCh)
	wg.Wait()
	return err
}
