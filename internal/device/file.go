package device

import (
	"os"
	"sort"

	"rebo/internal/fault"
)

// File is the filesystem driver. Directory requests carry FlagDir and
// list entries; plain file requests read and write whole files.
type File struct{}

// NewFile creates the filesystem driver.
func NewFile() *File { return &File{} }

// Do implements Device.
func (f *File) Do(req *Request, cmd Command) int {
	switch cmd {
	case CmdOpen:
		return f.open(req)
	case CmdClose:
		req.Flags &^= FlagOpen
		return 0
	case CmdRead:
		if req.Flags&FlagDir != 0 {
			return f.readDir(req)
		}
		return f.readFile(req)
	case CmdWrite:
		return f.writeFile(req)
	case CmdQuery:
		return f.query(req)
	case CmdCreate:
		if err := os.MkdirAll(req.File.Path, 0o755); err != nil {
			return req.fail(fault.ErrNoCreate, "create %s: %v", req.File.Path, err)
		}
		return 0
	case CmdDelete:
		if err := os.Remove(req.File.Path); err != nil {
			return req.fail(fault.ErrNoDelete, "delete %s: %v", req.File.Path, err)
		}
		return 0
	case CmdRename:
		if err := os.Rename(req.File.Path, req.File.ToPath); err != nil {
			return req.fail(fault.ErrNoRename, "rename %s: %v", req.File.Path, err)
		}
		return 0
	default:
		return req.fail(fault.ErrReadError, "file does not support %s", cmd)
	}
}

func (f *File) open(req *Request) int {
	info, err := os.Stat(req.File.Path)
	if err != nil {
		if os.IsNotExist(err) && req.Flags&FlagNew != 0 {
			if req.Flags&FlagDir != 0 {
				if err := os.MkdirAll(req.File.Path, 0o755); err != nil {
					return req.fail(fault.ErrNoCreate, "create %s: %v", req.File.Path, err)
				}
			} else {
				fh, err := os.Create(req.File.Path)
				if err != nil {
					return req.fail(fault.ErrNoCreate, "create %s: %v", req.File.Path, err)
				}
				fh.Close()
			}
			req.Flags |= FlagOpen
			return 0
		}
		return req.fail(fault.ErrCannotOpen, "open %s: %v", req.File.Path, err)
	}
	if info.IsDir() {
		req.Flags |= FlagDir
	}
	req.File.Size = info.Size()
	req.File.ModTime = info.ModTime()
	req.Flags |= FlagOpen
	return 0
}

func (f *File) readDir(req *Request) int {
	entries, err := os.ReadDir(req.File.Path)
	if err != nil {
		return req.fail(fault.ErrReadError, "list %s: %v", req.File.Path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	req.File.Entries = names
	req.Actual = len(names)
	return 0
}

func (f *File) readFile(req *Request) int {
	data, err := os.ReadFile(req.File.Path)
	if err != nil {
		return req.fail(fault.ErrReadError, "read %s: %v", req.File.Path, err)
	}
	n := len(data)
	if n > len(req.Data) {
		n = len(req.Data)
	}
	copy(req.Data, data[:n])
	req.Actual = n
	return 0
}

func (f *File) writeFile(req *Request) int {
	n := req.Length
	if n > len(req.Data) {
		n = len(req.Data)
	}
	if err := os.WriteFile(req.File.Path, req.Data[:n], 0o644); err != nil {
		return req.fail(fault.ErrWriteError, "write %s: %v", req.File.Path, err)
	}
	req.Actual = n
	return 0
}

func (f *File) query(req *Request) int {
	info, err := os.Stat(req.File.Path)
	if err != nil {
		return req.fail(fault.ErrReadError, "query %s: %v", req.File.Path, err)
	}
	req.File.Size = info.Size()
	req.File.ModTime = info.ModTime()
	req.File.IsDir = info.IsDir()
	return 0
}
