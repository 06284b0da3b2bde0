package levels

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when no level has the requested ID.
var ErrNotFound = errors.New("level not found")

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Loader handles loading levels from a directory tree.
type Loader struct {
	fsys fs.FS
	dir  string // walk root inside fsys
	root string // prefix for FilePath, empty for embedded levels
}

// NewLoader creates a loader for the level files under root.
func NewLoader(root string) *Loader {
	return &Loader{fsys: os.DirFS(root), dir: ".", root: root}
}

// Builtin returns a loader for the levels compiled into the binary.
func Builtin() *Loader {
	return &Loader{fsys: builtinFS, dir: "builtin"}
}

// LoadAll recursively scans and loads all valid level files.
// Returns levels sorted by ID for deterministic ordering.
func (l *Loader) LoadAll() ([]Level, error) {
	var levels []Level

	err := fs.WalkDir(l.fsys, l.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSupportedExtension(path.Ext(p)) {
			return nil
		}

		level, err := l.load(p)
		if err != nil {
			// Skip invalid files
			return nil
		}

		levels = append(levels, level)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", l.name(), err)
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].ID < levels[j].ID
	})

	return levels, nil
}

// LoadFile loads and validates a single level file from disk.
func LoadFile(p string) (Level, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Level{}, fmt.Errorf("reading file %s: %w", p, err)
	}
	return decode(data, p)
}

// LoadByID loads a specific level by ID.
func (l *Loader) LoadByID(id string) (Level, error) {
	levels, err := l.LoadAll()
	if err != nil {
		return Level{}, err
	}

	for _, lvl := range levels {
		if lvl.ID == id {
			return lvl, nil
		}
	}

	return Level{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ListIDs returns all level IDs in sorted order.
func (l *Loader) ListIDs() ([]string, error) {
	levels, err := l.LoadAll()
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(levels))
	for i, lvl := range levels {
		ids[i] = lvl.ID
	}
	return ids, nil
}

// Resolve finds a level by file path or ID. A reference ending in a level
// file extension is read from disk; anything else is looked up in userDir
// first (when set) and then among the built-in levels.
func Resolve(ref, userDir string) (Level, error) {
	if isSupportedExtension(filepath.Ext(ref)) {
		return LoadFile(ref)
	}

	if userDir != "" {
		lvl, err := NewLoader(userDir).LoadByID(ref)
		if err == nil {
			return lvl, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Level{}, err
		}
	}
	return Builtin().LoadByID(ref)
}

// Catalog merges the built-in levels with those under userDir. User levels
// replace built-in levels with the same ID.
func Catalog(userDir string) ([]Level, error) {
	byID := make(map[string]Level)

	builtin, err := Builtin().LoadAll()
	if err != nil {
		return nil, err
	}
	for _, lvl := range builtin {
		byID[lvl.ID] = lvl
	}

	if userDir != "" {
		user, err := NewLoader(userDir).LoadAll()
		if err != nil {
			return nil, err
		}
		for _, lvl := range user {
			byID[lvl.ID] = lvl
		}
	}

	out := make([]Level, 0, len(byID))
	for _, lvl := range byID {
		out = append(out, lvl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (l *Loader) load(p string) (Level, error) {
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return Level{}, fmt.Errorf("reading file %s: %w", p, err)
	}
	if l.root != "" {
		p = filepath.Join(l.root, filepath.FromSlash(p))
	}
	return decode(data, p)
}

func (l *Loader) name() string {
	if l.root == "" {
		return l.dir
	}
	return l.root
}

func decode(data []byte, p string) (Level, error) {
	level, err := ParseYAML(data)
	if err != nil {
		return Level{}, fmt.Errorf("parsing file %s: %w", p, err)
	}
	if err := level.Validate(); err != nil {
		return Level{}, fmt.Errorf("invalid level %s: %w", p, err)
	}
	level.FilePath = p
	return level, nil
}

// isSupportedExtension checks if extension is supported.
func isSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range FormatExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}
