// Package compress implements the runtime's zlib framing: deflated data
// followed by a 4-byte little-endian original-length tag.
package compress

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"rebo/internal/fault"
)

// tagSize is the trailing original-length tag in bytes.
const tagSize = 4

// Compress deflates length bytes of input starting at index and appends
// the little-endian original-length tag.
func Compress(input []byte, index, length int) ([]byte, *fault.Error) {
	if index < 0 {
		index = 0
	}
	if index > len(input) {
		index = len(input)
	}
	if length < 0 || index+length > len(input) {
		length = len(input) - index
	}
	src := input[index : index+length]

	headroom := length/10 + 12
	if headroom < 1024 {
		headroom = 1024
	}
	buf := bytes.NewBuffer(make([]byte, 0, length+headroom))

	zw := zlib.NewWriter(buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fault.New(fault.ErrBadPress, "deflate: %v", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fault.New(fault.ErrBadPress, "deflate: %v", err)
	}

	var tag [tagSize]byte
	binary.LittleEndian.PutUint32(tag[:], uint32(length))
	buf.Write(tag[:])
	return buf.Bytes(), nil
}

// Decompress inflates length bytes of framed data. A nonzero limit is
// checked against the original-length tag before inflating.
func Decompress(data []byte, length, limit int) ([]byte, *fault.Error) {
	if length <= 0 || length > len(data) {
		length = len(data)
	}
	if length < tagSize {
		return nil, fault.New(fault.ErrBadPress, "compressed data truncated")
	}
	body := data[:length-tagSize]
	orig := int(binary.LittleEndian.Uint32(data[length-tagSize : length]))

	if limit > 0 && orig > limit {
		return nil, fault.New(fault.ErrSizeLimit, "decompressed size %d exceeds limit %d", orig, limit)
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fault.New(fault.ErrBadPress, "inflate: %v", err)
	}
	defer zr.Close()

	out := make([]byte, 0, orig)
	outBuf := bytes.NewBuffer(out)
	n, err := io.Copy(outBuf, io.LimitReader(zr, int64(orig)+1))
	if err != nil {
		return nil, fault.New(fault.ErrBadPress, "inflate: %v", err)
	}
	if int(n) != orig {
		return nil, fault.New(fault.ErrBadPress, "inflated size %d does not match tag %d", n, orig)
	}
	return outBuf.Bytes(), nil
}
