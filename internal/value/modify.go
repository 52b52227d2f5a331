package value

import (
	"strings"
	"unicode/utf8"
)

// ModifyAction selects the structural edit performed by Modify.
type ModifyAction uint8

const (
	// ModInsert inserts before the target index.
	ModInsert ModifyAction = iota
	// ModAppend inserts at the tail.
	ModAppend
	// ModChange overwrites at the target index.
	ModChange
)

// ModifyFlag adjusts Modify semantics.
type ModifyFlag uint8

const (
	// ModOnly suppresses one-level spreading of block sources.
	ModOnly ModifyFlag = 1 << iota
	// ModPart limits the source (insert/append) or the replaced range
	// (change) to the part length.
	ModPart
)

// ModifyArray is the single INSERT/APPEND/CHANGE entry point for array
// series. Returns the index past the insertion, or 0 for append.
func ModifyArray(action ModifyAction, dst *Series, idx int, src Cell, flags ModifyFlag, part, dups int) int {
	if dups < 0 {
		if action == ModAppend {
			return 0
		}
		return idx
	}

	if action == ModAppend || idx > dst.Tail() {
		idx = dst.Tail()
	}
	if idx < 0 {
		idx = 0
	}

	// Collect the source cells, spreading blocks one level unless /only.
	var cells []Cell
	if src.Kind == KindBlock && flags&ModOnly == 0 && src.Ser != nil {
		from := src.Index()
		n := src.Ser.Tail() - from
		if flags&ModPart != 0 && part < n {
			n = part
		}
		if n < 0 {
			n = 0
		}
		cells = src.Ser.Cells()[from : from+n]
	} else {
		cells = []Cell{src}
	}
	ilen := len(cells)

	// Same-series source: shallow-copy to a temporary first.
	if src.Kind == KindBlock && src.Ser == dst {
		tmp := make([]Cell, ilen)
		copy(tmp, cells)
		cells = tmp
	}

	size := dups * ilen
	if size == 0 {
		if action == ModAppend {
			return 0
		}
		return idx
	}

	switch action {
	case ModInsert, ModAppend:
		dst.openHole(idx, size)
	case ModChange:
		if flags&ModPart != 0 {
			dstLen := part
			if dstLen > dst.Tail()-idx {
				dstLen = dst.Tail() - idx
			}
			if dstLen < 0 {
				dstLen = 0
			}
			switch {
			case size < dstLen:
				dst.Remove(idx+size, dstLen-size)
			case size > dstLen:
				dst.openHole(idx+dstLen, size-dstLen)
			}
		} else if idx+size > dst.Tail() {
			dst.openHole(dst.Tail(), idx+size-dst.Tail())
		}
	}

	for d := 0; d < dups; d++ {
		copy(dst.cbase[dst.bias+idx+d*ilen:], cells)
	}
	dst.Terminate()

	if action == ModAppend {
		return 0
	}
	return idx + size
}

// ModifyString is the string variant of Modify over byte series. The
// source is normalized first: integers become single codepoints, chars
// become UTF-8, blocks become formed text, and anything not already a
// string is form-printed.
func ModifyString(action ModifyAction, dst *Series, idx int, src Cell, flags ModifyFlag, part, dups int) int {
	if dups < 0 {
		if action == ModAppend {
			return 0
		}
		return idx
	}

	if action == ModAppend || idx > dst.Tail() {
		idx = dst.Tail()
	}
	if idx < 0 {
		idx = 0
	}

	bytes := normalizeStringSource(src)
	if flags&ModPart != 0 && action != ModChange && part < len(bytes) {
		if part < 0 {
			part = 0
		}
		bytes = bytes[:part]
	}
	if src.Kind.IsSeries() && src.Kind != KindBlock && src.Ser == dst {
		tmp := make([]byte, len(bytes))
		copy(tmp, bytes)
		bytes = tmp
	}

	ilen := len(bytes)
	size := dups * ilen
	if size == 0 {
		if action == ModAppend {
			return 0
		}
		return idx
	}

	switch action {
	case ModInsert, ModAppend:
		dst.openHole(idx, size)
	case ModChange:
		if flags&ModPart != 0 {
			dstLen := part
			if dstLen > dst.Tail()-idx {
				dstLen = dst.Tail() - idx
			}
			if dstLen < 0 {
				dstLen = 0
			}
			switch {
			case size < dstLen:
				dst.Remove(idx+size, dstLen-size)
			case size > dstLen:
				dst.openHole(idx+dstLen, size-dstLen)
			}
		} else if idx+size > dst.Tail() {
			dst.openHole(dst.Tail(), idx+size-dst.Tail())
		}
	}

	for d := 0; d < dups; d++ {
		copy(dst.base[dst.bias+idx+d*ilen:], bytes)
	}
	dst.Terminate()

	if action == ModAppend {
		return 0
	}
	return idx + size
}

// normalizeStringSource converts a cell to the bytes a string modify
// inserts.
func normalizeStringSource(src Cell) []byte {
	switch src.Kind {
	case KindInteger:
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], rune(src.Int))
		return buf[:n]
	case KindChar:
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], rune(src.Int))
		return buf[:n]
	case KindString, KindIssue, KindBinary:
		if src.Ser == nil {
			return nil
		}
		return src.Ser.BytesAt(src.Index())
	case KindBlock:
		return []byte(FormBlock(src))
	default:
		return []byte(Form(src))
	}
}

// Form renders a cell as display text.
func Form(c Cell) string {
	switch c.Kind {
	case KindBlock:
		return FormBlock(c)
	default:
		return c.String()
	}
}

// FormBlock renders a block as space-separated formed elements.
func FormBlock(c Cell) string {
	if c.Ser == nil {
		return ""
	}
	var sb strings.Builder
	first := true
	for _, el := range c.Ser.Cells()[c.Index():] {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(Form(el))
	}
	return sb.String()
}
