// Package path converts between the runtime's canonical forward-slash
// paths and local OS paths, with wildcard awareness and dot
// normalization.
package path

import (
	"os"
	"runtime"
	"strings"

	"rebo/internal/fault"
	"rebo/internal/value"
)

// windows is split out so the conversion rules stay testable on any
// build platform.
var windows = runtime.GOOS == "windows"

// ToRuntime converts a local path to canonical forward-slash form. On
// Windows a drive letter "C:" becomes "/C"; backslashes collapse to
// forward slashes; runs of slashes collapse to one. A trailing slash is
// added when dirHint is set.
func ToRuntime(local string, dirHint bool) string {
	return toRuntime(local, dirHint, windows)
}

func toRuntime(local string, dirHint, win bool) string {
	var sb strings.Builder
	sb.Grow(len(local) + 2)

	i := 0
	if win && len(local) >= 2 && local[1] == ':' && isDriveLetter(local[0]) {
		sb.WriteByte('/')
		sb.WriteByte(local[0])
		i = 2
		if i < len(local) && (local[i] == '\\' || local[i] == '/') {
			sb.WriteByte('/')
			i++
		}
	}

	lastSlash := false
	for ; i < len(local); i++ {
		c := local[i]
		if c == '\\' || c == '/' {
			if !lastSlash {
				sb.WriteByte('/')
			}
			lastSlash = true
			continue
		}
		lastSlash = false
		sb.WriteByte(c)
	}

	out := sb.String()
	if dirHint && !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out
}

// ToLocal converts a canonical runtime path to a local OS path. With
// full set, leading "." and ".." segments resolve against the current
// working directory.
func ToLocal(path string, full bool) (string, *fault.Error) {
	cwd := ""
	if full {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	return toLocal(path, full, windows, cwd)
}

func toLocal(path string, full, win bool, cwd string) (string, *fault.Error) {
	sep := byte('/')
	if win {
		sep = '\\'
	}

	var out []string
	absolute := false

	segs := splitSegments(path)

	i := 0
	if win && len(path) > 0 && path[0] == '/' {
		if len(segs) > 0 && len(segs[0]) == 1 && isDriveLetter(segs[0][0]) {
			// "/C/..." is a drive path.
			out = append(out, segs[0]+":")
			absolute = true
			i = 1
		} else {
			// Bare "//x" is a UNC path.
			out = append(out, "")
			absolute = true
		}
	} else if len(path) > 0 && path[0] == '/' {
		absolute = true
	}

	if !absolute && full && cwd != "" {
		out = append(out, splitLocalSegments(cwd, win)...)
		absolute = true
	}

	for ; i < len(segs); i++ {
		switch segs[i] {
		case ".":
			// Elided.
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." && out[len(out)-1] != "" {
				out = out[:len(out)-1]
			} else if !absolute {
				out = append(out, "..")
			}
		default:
			out = append(out, segs[i])
		}
	}

	joined := strings.Join(out, string(sep))
	if absolute && !win {
		joined = string(sep) + joined
	}
	if win && len(out) > 0 && out[0] == "" {
		// UNC prefix uses two separators.
		joined = string(sep) + joined
	}
	if joined == "" {
		if absolute {
			joined = string(sep)
		} else {
			joined = "."
		}
	}
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(joined, string(sep)) && len(out) > 0 {
		joined += string(sep)
	}
	return joined, nil
}

// ValueToOS converts a file cell to an OS path string. On non-Windows
// platforms the result is the UTF-8 encoding of the string content.
func ValueToOS(c value.Cell, full bool) (string, *fault.Error) {
	switch c.Kind {
	case value.KindString, value.KindIssue:
		if c.Ser == nil {
			return "", fault.New(fault.ErrBadFilePath, "empty file path")
		}
		return ToLocal(string(c.Ser.BytesAt(c.Index())), full)
	default:
		return "", fault.New(fault.ErrBadFilePath, "cannot use %s as file path", c.Kind)
	}
}

// HasWildcard reports whether a path segment carries the * or ?
// wildcards recognized during directory listing.
func HasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// WildcardMatch matches a name against a pattern of literal characters,
// '*' (any run) and '?' (any one character).
func WildcardMatch(pattern, name string) bool {
	// Iterative star backtracking.
	pi, ni := 0, 0
	star, mark := -1, 0
	for ni < len(name) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == name[ni]):
			pi++
			ni++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = ni
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ni = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

func isDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func splitSegments(path string) []string {
	var segs []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func splitLocalSegments(local string, win bool) []string {
	local = strings.TrimRight(local, "/\\")
	var segs []string
	start := 0
	for i := 0; i <= len(local); i++ {
		if i == len(local) || local[i] == '/' || (win && local[i] == '\\') {
			if i > start {
				segs = append(segs, local[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
