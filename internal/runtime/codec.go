package runtime

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"rebo/internal/fault"
	"rebo/internal/value"
)

// Codec translates between byte media and value cells.
type Codec interface {
	Name() string
	// Identify reports whether the data looks like this codec's media.
	Identify(data []byte) bool
	Decode(rt *Runtime, data []byte) (value.Cell, *fault.Error)
	Encode(rt *Runtime, cell value.Cell) ([]byte, *fault.Error)
}

// CodecRegistry maps media names to codecs.
type CodecRegistry struct {
	codecs map[string]Codec
}

// NewCodecRegistry creates an empty registry.
func NewCodecRegistry() *CodecRegistry {
	return &CodecRegistry{codecs: make(map[string]Codec, 4)}
}

// Register installs a codec under its name.
func (r *CodecRegistry) Register(c Codec) {
	r.codecs[c.Name()] = c
}

// Lookup finds a codec by name.
func (r *CodecRegistry) Lookup(name string) (Codec, bool) {
	c, ok := r.codecs[name]
	return c, ok
}

// Handle wraps a codec as a handle cell for port data slots.
func (r *CodecRegistry) Handle(name string) (value.Cell, bool) {
	c, ok := r.codecs[name]
	if !ok {
		return value.Cell{}, false
	}
	return value.MakeHandle(&value.Handle{Name: c.Name(), Data: c}), true
}

// DoCodec drives a codec by action word: identify, decode, or encode.
func (rt *Runtime) DoCodec(ctx CallCtx) (value.Cell, *fault.Error) {
	h := ctx.Arg(0)
	if h.Kind != value.KindHandle || h.H == nil {
		return value.Cell{}, fault.New(fault.ErrBadArg, "codec handle expected")
	}
	codec, ok := h.H.Data.(Codec)
	if !ok {
		return value.Cell{}, fault.New(fault.ErrBadMedia, "handle %q is not a codec", h.H.Name)
	}
	action := ctx.Arg(1)
	data := ctx.Arg(2)

	word := ""
	if action.Kind == value.KindString || action.Kind == value.KindIssue {
		word = string(action.Ser.BytesAt(action.Index()))
	}
	switch word {
	case "identify":
		if data.Kind != value.KindBinary {
			return value.MakeLogic(false), nil
		}
		return value.MakeLogic(codec.Identify(data.Ser.BytesAt(data.Index()))), nil
	case "decode":
		if data.Kind != value.KindBinary {
			return value.Cell{}, fault.New(fault.ErrBadMedia, "%s decode needs binary data", codec.Name())
		}
		return codec.Decode(rt, data.Ser.BytesAt(data.Index()))
	case "encode":
		out, err := codec.Encode(rt, data)
		if err != nil {
			return value.Cell{}, err
		}
		s := rt.Pool.Make(len(out), 1, value.FlagManaged)
		s.Append(out)
		return value.MakeBinary(s, 0), nil
	default:
		return value.Cell{}, fault.New(fault.ErrBadMedia, "unknown codec action %q", word)
	}
}

// RegisterMsgpack installs the msgpack codec.
func RegisterMsgpack(r *CodecRegistry) {
	r.Register(msgpackCodec{})
}

// msgpackCodec maps cells to MessagePack. Blocks become arrays, series
// of bytes become bin values, scalars map to their natural types.
type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Identify(data []byte) bool {
	rd := bytes.NewReader(data)
	dec := msgpack.NewDecoder(rd)
	if _, err := dec.DecodeInterface(); err != nil {
		return false
	}
	return rd.Len() == 0
}

func (msgpackCodec) Encode(rt *Runtime, cell value.Cell) ([]byte, *fault.Error) {
	native, err := cellToNative(cell)
	if err != nil {
		return nil, err
	}
	out, merr := msgpack.Marshal(native)
	if merr != nil {
		return nil, fault.New(fault.ErrBadMedia, "msgpack encode: %v", merr)
	}
	return out, nil
}

func (msgpackCodec) Decode(rt *Runtime, data []byte) (value.Cell, *fault.Error) {
	var native any
	if err := msgpack.Unmarshal(data, &native); err != nil {
		return value.Cell{}, fault.New(fault.ErrBadMedia, "msgpack decode: %v", err)
	}
	return nativeToCell(rt, native)
}

func cellToNative(c value.Cell) (any, *fault.Error) {
	switch c.Kind {
	case value.KindNone, value.KindUnset:
		return nil, nil
	case value.KindLogic:
		return c.Int != 0, nil
	case value.KindInteger, value.KindChar, value.KindDate:
		return c.Int, nil
	case value.KindDecimal:
		return c.Flo, nil
	case value.KindMoney:
		return c.Dec.String(), nil
	case value.KindTuple:
		return c.Tup.String(), nil
	case value.KindPair:
		return []any{float64(c.X), float64(c.Y)}, nil
	case value.KindString, value.KindIssue:
		return string(c.Ser.BytesAt(c.Index())), nil
	case value.KindBinary:
		return append([]byte(nil), c.Ser.BytesAt(c.Index())...), nil
	case value.KindBlock:
		cells := c.Ser.Cells()[c.Index():]
		out := make([]any, 0, len(cells))
		for _, item := range cells {
			v, err := cellToNative(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fault.New(fault.ErrBadMedia, "cannot encode %s as msgpack", c.Kind)
	}
}

func nativeToCell(rt *Runtime, native any) (value.Cell, *fault.Error) {
	switch v := native.(type) {
	case nil:
		return value.MakeNone(), nil
	case bool:
		return value.MakeLogic(v), nil
	case int8:
		return value.MakeInteger(int64(v)), nil
	case int16:
		return value.MakeInteger(int64(v)), nil
	case int32:
		return value.MakeInteger(int64(v)), nil
	case int64:
		return value.MakeInteger(v), nil
	case uint8:
		return value.MakeInteger(int64(v)), nil
	case uint16:
		return value.MakeInteger(int64(v)), nil
	case uint32:
		return value.MakeInteger(int64(v)), nil
	case uint64:
		return value.MakeInteger(int64(v)), nil
	case float32:
		return value.MakeDecimal(float64(v)), nil
	case float64:
		return value.MakeDecimal(v), nil
	case string:
		return rt.makeString(v), nil
	case []byte:
		s := rt.Pool.Make(len(v), 1, value.FlagManaged)
		s.Append(v)
		return value.MakeBinary(s, 0), nil
	case []any:
		cells := make([]value.Cell, 0, len(v))
		for _, item := range v {
			c, err := nativeToCell(rt, item)
			if err != nil {
				return value.Cell{}, err
			}
			cells = append(cells, c)
		}
		return rt.makeBlock(cells), nil
	default:
		return value.Cell{}, fault.New(fault.ErrBadMedia, "msgpack value %T has no cell form", native)
	}
}
