package envelope

import "google.golang.org/protobuf/encoding/protowire"

// writer appends proto2 fields. Optional fields are written only when
// present; present zero values are written.
type writer struct {
	b []byte
}

func (w *writer) varint(num protowire.Number, v uint64) {
	w.b = protowire.AppendTag(w.b, num, protowire.VarintType)
	w.b = protowire.AppendVarint(w.b, v)
}

func (w *writer) boolean(num protowire.Number, v bool) {
	w.varint(num, protowire.EncodeBool(v))
}

func (w *writer) fixed64(num protowire.Number, v uint64) {
	w.b = protowire.AppendTag(w.b, num, protowire.Fixed64Type)
	w.b = protowire.AppendFixed64(w.b, v)
}

func (w *writer) bytes(num protowire.Number, v []byte) {
	w.b = protowire.AppendTag(w.b, num, protowire.BytesType)
	w.b = protowire.AppendBytes(w.b, v)
}

func (w *writer) str(num protowire.Number, v string) {
	w.b = protowire.AppendTag(w.b, num, protowire.BytesType)
	w.b = protowire.AppendString(w.b, v)
}

func (w *writer) optStr(num protowire.Number, v *string) {
	if v != nil {
		w.str(num, *v)
	}
}

func (w *writer) optBool(num protowire.Number, v *bool) {
	if v != nil {
		w.boolean(num, *v)
	}
}

func (w *writer) optBytes(num protowire.Number, v []byte) {
	if v != nil {
		w.bytes(num, v)
	}
}

func (w *writer) strs(num protowire.Number, vs []string) {
	for _, v := range vs {
		w.str(num, v)
	}
}
