package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"stacknote/internal/fsgate"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

type Settings struct {
	Slot    SlotSettings    `json:"slot"    toml:"slot"`
	Persist PersistSettings `json:"persist" toml:"persist"`
	Scope   ScopeSettings   `json:"scope"   toml:"scope"`
	Log     LogSettings     `json:"log"     toml:"log"`
}

type SlotSettings struct {
	// Backend is "json" (default) or "sqlite".
	Backend string `json:"backend" toml:"backend"`
	Name    string `json:"name"    toml:"name"`
}

type PersistSettings struct {
	Async bool `json:"async" toml:"async"`
}

type ScopeSettings struct {
	// Roots limits file access. Empty means unrestricted.
	Roots []string `json:"roots" toml:"roots"`
}

type LogSettings struct {
	Level string `json:"level" toml:"level"`
}

type SettingsFormat string

type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

func DefaultSettings() Settings {
	return Settings{
		Slot: SlotSettings{Backend: "json", Name: "workspace"},
		Log:  LogSettings{Level: "info"},
	}
}

// Normalise fills blanks with defaults and expands ~ in scope roots.
func Normalise(in Settings) Settings {
	def := DefaultSettings()
	out := in
	out.Slot.Backend = strings.ToLower(strings.TrimSpace(in.Slot.Backend))
	if out.Slot.Backend == "" {
		out.Slot.Backend = def.Slot.Backend
	}
	out.Slot.Name = strings.TrimSpace(in.Slot.Name)
	if out.Slot.Name == "" {
		out.Slot.Name = def.Slot.Name
	}
	out.Log.Level = strings.ToLower(strings.TrimSpace(in.Log.Level))
	if out.Log.Level == "" {
		out.Log.Level = def.Log.Level
	}
	roots := make([]string, 0, len(in.Scope.Roots))
	for _, r := range in.Scope.Roots {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		roots = append(roots, expandHome(r))
	}
	out.Scope.Roots = roots
	return out
}

// LoadSettings tries settings.toml first, then settings.json, then returns defaults.
// Parse errors fail immediately; missing files just skip to the next format.
func LoadSettings(dir string) (Settings, SettingsHandle, error) {
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
	}
	return loadFrom(candidates)
}

// HandleFor names an explicit settings file; the format follows its extension.
func HandleFor(path string) SettingsHandle {
	format := SettingsFormatTOML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = SettingsFormatJSON
	}
	return SettingsHandle{Path: path, Format: format}
}

// LoadHandle loads h alone. A missing file yields defaults and an empty handle.
func LoadHandle(h SettingsHandle) (Settings, SettingsHandle, error) {
	return loadFrom([]SettingsHandle{h})
}

// LoadSettingsFile loads an explicit file; the format follows its extension.
func LoadSettingsFile(path string) (Settings, SettingsHandle, error) {
	s, h, err := LoadHandle(HandleFor(path))
	if err == nil && h.Path == "" {
		return s, h, fmt.Errorf("settings file %q not found", path)
	}
	return s, h, err
}

func loadFrom(candidates []SettingsHandle) (Settings, SettingsHandle, error) {
	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(
				accumulated,
				fmt.Errorf("read settings %q: %w", candidate.Path, err),
			)
			continue
		}

		settings, err := decodeSettings(data, candidate.Format)
		if err != nil {
			return Settings{}, SettingsHandle{}, fmt.Errorf(
				"parse settings %q: %w",
				candidate.Path,
				err,
			)
		}
		return Normalise(settings), candidate, nil
	}

	if accumulated != nil {
		return Settings{}, SettingsHandle{}, accumulated
	}
	return DefaultSettings(), SettingsHandle{}, nil
}

func decodeSettings(data []byte, format SettingsFormat) (Settings, error) {
	var settings Settings
	switch format {
	case SettingsFormatTOML:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case SettingsFormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return settings, nil
}

func SaveSettings(settings Settings, handle SettingsHandle) error {
	settings = Normalise(settings)
	path := handle.Path
	format := handle.Format
	if path == "" {
		return errors.New("save settings: missing path")
	}
	if format == "" {
		format = SettingsFormatTOML
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure settings directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case SettingsFormatTOML:
		data, err = toml.Marshal(settings)
	case SettingsFormatJSON:
		data, err = json.MarshalIndent(settings, "", "  ")
	default:
		return fmt.Errorf("unsupported settings format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := fsgate.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", path, err)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
