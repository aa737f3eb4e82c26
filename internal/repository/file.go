package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

const (
	filePrefix = "simulation_"
	fileSuffix = ".json"
)

// snapshot is the on-disk layout of a stored simulation.
type snapshot struct {
	Summary SummaryRecord `json:"summary"`
	Days    []DayRecord   `json:"days"`
}

// File stores the simulation as a timestamped JSON file in a directory.
// The file is read once and then served from memory.
type File struct {
	dir    string
	logger *slog.Logger

	loaded atomic.Pointer[snapshot]
	mu     sync.Mutex // serializes Store, Reset and the first load
}

// NewFile creates a file repository rooted at dir.
func NewFile(dir string, logger *slog.Logger) *File {
	return &File{dir: dir, logger: logger}
}

// Store writes s to disk. The file is written under a temporary name and
// renamed, so readers never observe a partial simulation.
func (f *File) Store(_ context.Context, s *simulation.Simulation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.loadLocked()
	if err != nil {
		return err
	}
	if current != nil {
		return ErrAlreadyExists
	}

	snap := &snapshot{Summary: NewSummaryRecord(s.Summary), Days: dayRecords(s)}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding simulation: %w", err)
	}

	if err := f.ensureDir(); err != nil {
		return err
	}

	name := fmt.Sprintf("%s%d%s", filePrefix, s.CreatedAt.Unix(), fileSuffix)
	tmp, err := os.CreateTemp(f.dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("creating simulation file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing simulation file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing simulation file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming simulation file: %w", err)
	}

	f.loaded.Store(snap)
	f.logger.Info("simulation written", "path", filepath.Join(f.dir, name), "bytes", len(data))
	return nil
}

func (f *File) Exists(context.Context) (bool, error) {
	snap, err := f.load()
	return snap != nil, err
}

func (f *File) FetchDay(_ context.Context, n int) (weather.Day, error) {
	snap, err := f.load()
	if err != nil {
		return weather.Day{}, err
	}
	if snap == nil {
		return weather.Day{}, ErrNotFound
	}
	if n < 0 || n >= len(snap.Days) {
		return weather.Day{}, dayOutOfRange(n, len(snap.Days))
	}
	return snap.Days[n].Day()
}

func (f *File) FetchSummary(context.Context) (simulation.Summary, error) {
	snap, err := f.load()
	if err != nil {
		return simulation.Summary{}, err
	}
	if snap == nil {
		return simulation.Summary{}, ErrNotFound
	}
	return snap.Summary.Summary(), nil
}

// Reset removes every stored simulation file.
func (f *File) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := f.listFiles()
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(filepath.Join(f.dir, file.name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing simulation file %s: %w", file.name, err)
		}
	}
	f.loaded.Store(nil)
	return nil
}

// Ping checks that the directory can be read.
func (f *File) Ping(context.Context) error {
	_, err := f.listFiles()
	return err
}

func (f *File) Close() error { return nil }

// load returns the stored snapshot, or nil if there is none.
func (f *File) load() (*snapshot, error) {
	if snap := f.loaded.Load(); snap != nil {
		return snap, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

func (f *File) loadLocked() (*snapshot, error) {
	if snap := f.loaded.Load(); snap != nil {
		return snap, nil
	}

	files, err := f.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	// Files are sorted oldest first; take the last one.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(f.dir, latest.name))
	if err != nil {
		return nil, fmt.Errorf("reading simulation file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding simulation file %s: %w", latest.name, err)
	}

	f.loaded.Store(&snap)
	f.logger.Info("loaded simulation from disk",
		"file", latest.name,
		"days", len(snap.Days),
		"written_at", latest.ts.Format(time.RFC3339),
	)
	return &snap, nil
}

type simulationFile struct {
	name string
	ts   time.Time
}

func (f *File) listFiles() ([]simulationFile, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing simulation dir: %w", err)
	}

	var files []simulationFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		// Extract unix timestamp from filename.
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		unix, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, simulationFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (f *File) ensureDir() error {
	return os.MkdirAll(f.dir, 0755)
}
