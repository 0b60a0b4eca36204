package ingestor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// FileIngestor tails files matching configured paths and emits log entries.
// Existing content is skipped; only lines appended after Start are read.
type FileIngestor struct {
	cfg    config.FileSourceConfig
	name   string
	logger zerolog.Logger
}

// NewFileIngestor creates a new file tailing ingestor.
func NewFileIngestor(cfg config.FileSourceConfig, log zerolog.Logger) *FileIngestor {
	return &FileIngestor{
		cfg:    cfg,
		name:   "file",
		logger: log.With().Str("ingestor", "file").Logger(),
	}
}

// Name returns the ingestor identifier.
func (f *FileIngestor) Name() string {
	return f.name
}

// Start begins watching and tailing files, sending entries to the output channel.
func (f *FileIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	var files []string
	for _, pattern := range f.cfg.Paths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	files = f.filterExcluded(files)

	if len(files) == 0 {
		return fmt.Errorf("no files matched patterns: %v", f.cfg.Paths)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Offsets of tracked files. Only this goroutine touches it.
	positions := make(map[string]int64)

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		positions[file] = info.Size()
		if err := watcher.Add(file); err != nil {
			return fmt.Errorf("watching file %q: %w", file, err)
		}
	}

	// Directory watches pick up files created by rotation.
	dirs := make(map[string]struct{})
	for _, file := range files {
		dirs[filepath.Dir(file)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			f.logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory for new files")
		}
	}

	f.logger.Info().Int("files", len(positions)).Msg("tailing files")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Create == fsnotify.Create && f.accepts(event.Name) {
				positions[event.Name] = 0
				_ = watcher.Add(event.Name)
				f.logger.Debug().Str("file", event.Name).Msg("following new file")
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pos, tracked := positions[event.Name]
				if !tracked {
					continue
				}

				newPos, err := f.readNewLines(ctx, event.Name, pos, out)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					f.logger.Warn().Err(err).Str("file", event.Name).Msg("read failed")
					continue
				}
				positions[event.Name] = newPos
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// readNewLines reads complete lines appended after pos and returns the new
// offset. A trailing partial line is left for the next event.
func (f *FileIngestor) readNewLines(ctx context.Context, path string, pos int64, out chan<- *model.LogEntry) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return pos, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return pos, err
	}
	if info.Size() < pos {
		pos = 0 // Truncated in place
	}

	if _, err := file.Seek(pos, io.SeekStart); err != nil {
		return pos, err
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return pos, nil
		}
		if err != nil {
			return pos, err
		}
		pos += int64(len(line))

		line = trimNewline(line)
		if len(line) == 0 {
			continue
		}

		entry := model.NewLogEntry(f.name, line)
		entry.Metadata["file"] = path

		select {
		case out <- entry:
		case <-ctx.Done():
			return pos, ctx.Err()
		}
	}
}

func trimNewline(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

// accepts reports whether a newly created file should be followed.
func (f *FileIngestor) accepts(file string) bool {
	return f.matchesPatterns(file) && !f.isExcluded(file)
}

// filterExcluded removes files matching exclude patterns.
func (f *FileIngestor) filterExcluded(files []string) []string {
	if len(f.cfg.Exclude) == 0 {
		return files
	}

	var result []string
	for _, file := range files {
		if !f.isExcluded(file) {
			result = append(result, file)
		}
	}
	return result
}

// isExcluded checks if a file matches any exclude pattern.
func (f *FileIngestor) isExcluded(file string) bool {
	for _, pattern := range f.cfg.Exclude {
		if matched, _ := filepath.Match(pattern, filepath.Base(file)); matched {
			return true
		}
	}
	return false
}

// matchesPatterns checks if a file matches any configured path pattern.
func (f *FileIngestor) matchesPatterns(file string) bool {
	for _, pattern := range f.cfg.Paths {
		if matched, _ := filepath.Match(pattern, file); matched {
			return true
		}
	}
	return false
}
