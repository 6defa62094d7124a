package model

type EntryKind string

const (
	EntryKindFile      EntryKind = "file"
	EntryKindDirectory EntryKind = "directory"
)

// FileEntry is a file inside a listed directory.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// Preview holds the first characters of the file; empty when unreadable.
	Preview string `json:"preview,omitempty"`
}

// DirEntry is a sub-directory inside a listed directory.
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// ChildrenCount excludes hidden entries.
	ChildrenCount int `json:"childrenCount"`
}

// Entry holds exactly one of File or Directory.
type Entry struct {
	Kind      EntryKind  `json:"kind"`
	File      *FileEntry `json:"file,omitempty"`
	Directory *DirEntry  `json:"directory,omitempty"`
}

func (e Entry) Name() string {
	switch {
	case e.File != nil:
		return e.File.Name
	case e.Directory != nil:
		return e.Directory.Name
	default:
		return ""
	}
}

func (e Entry) Path() string {
	switch {
	case e.File != nil:
		return e.File.Path
	case e.Directory != nil:
		return e.Directory.Path
	default:
		return ""
	}
}

func (e Entry) IsDir() bool { return e.Kind == EntryKindDirectory }

// Document is a file opened into a panel.
type Document struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
