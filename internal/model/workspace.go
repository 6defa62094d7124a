package model

import (
	"encoding/json"
	"strings"
)

// AddItemMode is the sidebar's "add item" affordance.
// The zero value means the affordance is hidden.
type AddItemMode string

const (
	AddItemOff    AddItemMode = ""
	AddItemFile   AddItemMode = "file"
	AddItemFolder AddItemMode = "folder"
)

// ParseAddItemMode accepts "file", "folder", and "off"/"false"/"" (case-insensitive).
func ParseAddItemMode(s string) (AddItemMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file":
		return AddItemFile, true
	case "folder", "dir", "directory":
		return AddItemFolder, true
	case "", "off", "false", "none":
		return AddItemOff, true
	default:
		return AddItemOff, false
	}
}

// Normalize maps unknown values to AddItemOff.
func (m AddItemMode) Normalize() AddItemMode {
	switch m {
	case AddItemFile, AddItemFolder:
		return m
	default:
		return AddItemOff
	}
}

// MarshalJSON encodes the hidden state as JSON false and the others as strings.
func (m AddItemMode) MarshalJSON() ([]byte, error) {
	switch m.Normalize() {
	case AddItemFile, AddItemFolder:
		return json.Marshal(string(m))
	default:
		return []byte("false"), nil
	}
}

// UnmarshalJSON accepts false, null, "file", or "folder". Anything else decodes as off
// so a hand-edited slot never fails the whole state.
func (m *AddItemMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*m = AddItemOff
		return nil
	}
	mode, _ := ParseAddItemMode(s)
	*m = mode
	return nil
}

// WorkspaceState is the authoritative in-memory model of what is open and how the
// shell is laid out. Values are treated as immutable; mutations return new values.
type WorkspaceState struct {
	// OpenPaths is rendering order. Entries are unique.
	OpenPaths []string `json:"openPaths"`

	// ProjectPath is the open-folder root; "" means no folder context.
	ProjectPath string `json:"projectPath"`
	// DirectoryPath is browsed independently of ProjectPath.
	DirectoryPath string `json:"directoryPath"`

	SidebarVisible   bool        `json:"sidebarVisible"`
	InfoPanelVisible bool        `json:"infoPanelVisible"`
	ShowAddItem      AddItemMode `json:"showAddItem"`
	ScrollMode       bool        `json:"scrollMode"`
}

// Empty returns the default state used on first launch and whenever the persisted
// slot is missing or unreadable.
func Empty() WorkspaceState {
	return WorkspaceState{
		OpenPaths:      []string{},
		SidebarVisible: true,
	}
}

func (s WorkspaceState) Clone() WorkspaceState {
	out := s
	out.OpenPaths = append([]string{}, s.OpenPaths...)
	return out
}

// Contains reports whether path is currently open.
func (s WorkspaceState) Contains(path string) bool {
	return s.IndexOf(path) >= 0
}

func (s WorkspaceState) IndexOf(path string) int {
	for i, p := range s.OpenPaths {
		if p == path {
			return i
		}
	}
	return -1
}

// Equal compares every field. A nil and an empty OpenPaths are equal.
func Equal(a, b WorkspaceState) bool {
	if len(a.OpenPaths) != len(b.OpenPaths) {
		return false
	}
	for i := range a.OpenPaths {
		if a.OpenPaths[i] != b.OpenPaths[i] {
			return false
		}
	}
	return a.ProjectPath == b.ProjectPath &&
		a.DirectoryPath == b.DirectoryPath &&
		a.SidebarVisible == b.SidebarVisible &&
		a.InfoPanelVisible == b.InfoPanelVisible &&
		a.ShowAddItem.Normalize() == b.ShowAddItem.Normalize() &&
		a.ScrollMode == b.ScrollMode
}
