// Package library scans dictionary library directories for .mdx databases
// and keeps stable profile IDs across rescans.
package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dictdeck/dictdeck/internal/logging"
)

var libLog = logging.ForComponent(logging.CompLibrary)

// Profile is one dictionary database found in the library.
type Profile struct {
	ID    int64
	Title string
	Path  string
}

// Library holds the scanned profiles from a set of library directories.
type Library struct {
	mu       sync.RWMutex
	paths    []string
	profiles []Profile
	idByPath map[string]int64
	nextID   int64
}

// New creates a Library over the given directories. Call Rescan to populate.
func New(paths []string) *Library {
	return &Library{
		paths:    append([]string(nil), paths...),
		idByPath: make(map[string]int64),
		nextID:   1,
	}
}

// Paths returns the configured library directories.
func (l *Library) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.paths...)
}

// SetPaths replaces the library directories. Rescan afterwards.
func (l *Library) SetPaths(paths []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append([]string(nil), paths...)
}

// Rescan walks the library directories for .mdx files. A file keeps its
// profile ID across rescans; files that disappeared are dropped.
func (l *Library) Rescan() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var found []string
	for _, dir := range l.paths {
		files, err := scanDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				libLog.Warn("library path missing", "path", dir)
				continue
			}
			return fmt.Errorf("library: scan %s: %w", dir, err)
		}
		found = append(found, files...)
	}
	sort.Strings(found)

	profiles := make([]Profile, 0, len(found))
	seen := make(map[string]int64, len(found))
	for _, path := range found {
		if _, dup := seen[path]; dup {
			continue
		}
		id, ok := l.idByPath[path]
		if !ok {
			id = l.nextID
			l.nextID++
			l.idByPath[path] = id
		}
		seen[path] = id
		profiles = append(profiles, Profile{
			ID:    id,
			Title: titleFromPath(path),
			Path:  path,
		})
	}

	// forget IDs of removed files so idByPath does not grow unbounded
	for path := range l.idByPath {
		if _, ok := seen[path]; !ok {
			delete(l.idByPath, path)
		}
	}

	l.profiles = profiles
	libLog.Debug("library rescanned", "profiles", len(profiles))
	return nil
}

// Profiles returns the current profile list in path order.
func (l *Library) Profiles() []Profile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Profile(nil), l.profiles...)
}

// ProfileByID returns the profile with the given ID.
func (l *Library) ProfileByID(id int64) (Profile, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// Titles returns profile display names keyed by ID.
func (l *Library) Titles() map[int64]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	titles := make(map[int64]string, len(l.profiles))
	for _, p := range l.profiles {
		titles[p.ID] = p.Title
	}
	return titles
}

func scanDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(name), ".mdx") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
