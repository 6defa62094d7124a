package workspace

import (
	"strings"

	"stacknote/internal/model"
)

// DirTarget selects which root a directory open assigns.
type DirTarget int

const (
	// TargetDirectory assigns DirectoryPath (sidebar browsing).
	TargetDirectory DirTarget = iota
	// TargetProject assigns ProjectPath (open-folder context).
	TargetProject
)

// The functions below are total over WorkspaceState: they never mutate their input
// and each fully replaces the fields it touches.

// OpenFile appends path, or moves it to the end when already open.
func OpenFile(s model.WorkspaceState, path string) model.WorkspaceState {
	if strings.TrimSpace(path) == "" {
		return s.Clone()
	}
	out := s.Clone()
	out.OpenPaths = moveToEnd(out.OpenPaths, path)
	return out
}

// OpenDirectory applies the OpenFile list policy and also assigns the chosen root.
// Previously open paths are kept.
func OpenDirectory(s model.WorkspaceState, path string, target DirTarget) model.WorkspaceState {
	if strings.TrimSpace(path) == "" {
		return s.Clone()
	}
	out := OpenFile(s, path)
	switch target {
	case TargetProject:
		out.ProjectPath = path
	default:
		out.DirectoryPath = path
	}
	return out
}

// CollapseTo replaces the open set with [path].
func CollapseTo(s model.WorkspaceState, path string) model.WorkspaceState {
	if strings.TrimSpace(path) == "" {
		return s.Clone()
	}
	out := s.Clone()
	out.OpenPaths = []string{path}
	return out
}

func ToggleSidebar(s model.WorkspaceState) model.WorkspaceState {
	out := s.Clone()
	out.SidebarVisible = !s.SidebarVisible
	return out
}

func ToggleInfoPanel(s model.WorkspaceState) model.WorkspaceState {
	out := s.Clone()
	out.InfoPanelVisible = !s.InfoPanelVisible
	return out
}

func ToggleScrollMode(s model.WorkspaceState) model.WorkspaceState {
	out := s.Clone()
	out.ScrollMode = !s.ScrollMode
	return out
}

func SetProjectPath(s model.WorkspaceState, path string) model.WorkspaceState {
	out := s.Clone()
	out.ProjectPath = path
	return out
}

func SetDirectoryPath(s model.WorkspaceState, path string) model.WorkspaceState {
	out := s.Clone()
	out.DirectoryPath = path
	return out
}

func SetShowAddItem(s model.WorkspaceState, mode model.AddItemMode) model.WorkspaceState {
	out := s.Clone()
	out.ShowAddItem = mode.Normalize()
	return out
}

func moveToEnd(paths []string, path string) []string {
	out := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		if p != path {
			out = append(out, p)
		}
	}
	return append(out, path)
}
