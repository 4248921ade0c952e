// Package dextest builds small dex images and APKs for tests. The images
// carry only the sections the dex package reads: no code, no protos and no
// checksum.
package dextest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"unicode/utf16"

	"github.com/tongsgo/tongs/dex"
)

type builder struct {
	strings  []string
	stringIx map[string]uint32
	types    []uint32
	typeIx   map[string]uint32
	fields   []dex.FieldRef
	fieldIx  map[dex.FieldRef]uint32
	methods  []dex.MethodRef
	methodIx map[dex.MethodRef]uint32
}

// Build encodes the classes into a dex image. Method.Class is ignored.
func Build(classes ...*dex.ClassDef) []byte {
	b := &builder{
		stringIx: map[string]uint32{},
		typeIx:   map[string]uint32{},
		fieldIx:  map[dex.FieldRef]uint32{},
		methodIx: map[dex.MethodRef]uint32{},
	}

	// class methods get their own ids first so that ids grow within each
	// method list
	direct := make([][]uint32, len(classes))
	virtual := make([][]uint32, len(classes))
	for i, c := range classes {
		b.typ(c.Type)
		for _, m := range c.DirectMethods {
			direct[i] = append(direct[i], b.classMethod(c.Type, m.Name))
		}
		for _, m := range c.VirtualMethods {
			virtual[i] = append(virtual[i], b.classMethod(c.Type, m.Name))
		}
	}
	for _, c := range classes {
		if c.Superclass != "" {
			b.typ(c.Superclass)
		}
		for _, iface := range c.Interfaces {
			b.typ(iface)
		}
		if c.SourceFile != "" {
			b.str(c.SourceFile)
		}
		b.internAnnotations(c.Annotations)
		for _, m := range c.Methods() {
			b.internAnnotations(m.Annotations)
		}
	}

	dataOff := 0x70 + 4*len(b.strings) + 4*len(b.types) + 8*len(b.fields) + 8*len(b.methods) + 32*len(classes)
	data := &bytes.Buffer{}
	off := func() uint32 { return uint32(dataOff + data.Len()) }
	align := func() {
		for (dataOff+data.Len())%4 != 0 {
			data.WriteByte(0)
		}
	}

	stringOffs := make([]uint32, len(b.strings))
	for i, s := range b.strings {
		stringOffs[i] = off()
		units := utf16.Encode([]rune(s))
		writeULEB(data, uint32(len(units)))
		writeMUTF8(data, units)
		data.WriteByte(0)
	}

	writeSet := func(anns []dex.Annotation) uint32 {
		items := make([]uint32, len(anns))
		for i, a := range anns {
			items[i] = off()
			data.WriteByte(byte(a.Visibility))
			b.writeAnnotation(data, a.EncodedAnnotation)
		}
		align()
		setOff := off()
		writeU4(data, uint32(len(items)))
		for _, item := range items {
			writeU4(data, item)
		}
		return setOff
	}

	type classOffsets struct{ interfaces, annotations, classData uint32 }
	offsets := make([]classOffsets, len(classes))
	for i, c := range classes {
		if len(c.Interfaces) > 0 {
			align()
			offsets[i].interfaces = off()
			writeU4(data, uint32(len(c.Interfaces)))
			for _, iface := range c.Interfaces {
				writeU2(data, uint16(b.typeIx[iface]))
			}
		}

		var classSet uint32
		if len(c.Annotations) > 0 {
			classSet = writeSet(c.Annotations)
		}
		type methodSet struct{ idx, off uint32 }
		var methodSets []methodSet
		for j, m := range c.DirectMethods {
			if len(m.Annotations) > 0 {
				methodSets = append(methodSets, methodSet{direct[i][j], writeSet(m.Annotations)})
			}
		}
		for j, m := range c.VirtualMethods {
			if len(m.Annotations) > 0 {
				methodSets = append(methodSets, methodSet{virtual[i][j], writeSet(m.Annotations)})
			}
		}
		if classSet != 0 || len(methodSets) > 0 {
			align()
			offsets[i].annotations = off()
			writeU4(data, classSet)
			writeU4(data, 0)
			writeU4(data, uint32(len(methodSets)))
			writeU4(data, 0)
			for _, ms := range methodSets {
				writeU4(data, ms.idx)
				writeU4(data, ms.off)
			}
		}

		if len(c.DirectMethods)+len(c.VirtualMethods) > 0 {
			offsets[i].classData = off()
			writeULEB(data, 0)
			writeULEB(data, 0)
			writeULEB(data, uint32(len(c.DirectMethods)))
			writeULEB(data, uint32(len(c.VirtualMethods)))
			writeMethods := func(ms []*dex.Method, ids []uint32) {
				var prev uint32
				for j, m := range ms {
					writeULEB(data, ids[j]-prev)
					writeULEB(data, uint32(m.AccessFlags))
					writeULEB(data, 0)
					prev = ids[j]
				}
			}
			writeMethods(c.DirectMethods, direct[i])
			writeMethods(c.VirtualMethods, virtual[i])
		}
	}

	out := &bytes.Buffer{}
	out.WriteString("dex\n035\x00")
	out.Write(make([]byte, 4+20)) // checksum, signature
	writeU4(out, uint32(dataOff+data.Len()))
	writeU4(out, 0x70)
	writeU4(out, 0x12345678)
	writeU4(out, 0) // link_size
	writeU4(out, 0) // link_off
	writeU4(out, 0) // map_off

	section := func(n, size int, start int) int {
		if n == 0 {
			writeU4(out, 0)
			writeU4(out, 0)
			return start
		}
		writeU4(out, uint32(n))
		writeU4(out, uint32(start))
		return start + n*size
	}
	next := 0x70
	next = section(len(b.strings), 4, next)
	next = section(len(b.types), 4, next)
	section(0, 12, next) // proto_ids
	next = section(len(b.fields), 8, next)
	next = section(len(b.methods), 8, next)
	section(len(classes), 32, next)
	writeU4(out, uint32(data.Len()))
	writeU4(out, uint32(dataOff))

	for _, o := range stringOffs {
		writeU4(out, o)
	}
	for _, s := range b.types {
		writeU4(out, s)
	}
	for _, f := range b.fields {
		writeU2(out, uint16(b.typeIx[f.Class]))
		writeU2(out, uint16(b.typeIx[f.Type]))
		writeU4(out, b.stringIx[f.Name])
	}
	for _, m := range b.methods {
		writeU2(out, uint16(b.typeIx[m.Class]))
		writeU2(out, 0)
		writeU4(out, b.stringIx[m.Name])
	}
	for i, c := range classes {
		writeU4(out, b.typeIx[c.Type])
		writeU4(out, uint32(c.AccessFlags))
		writeU4(out, b.optionalType(c.Superclass))
		writeU4(out, offsets[i].interfaces)
		if c.SourceFile != "" {
			writeU4(out, b.stringIx[c.SourceFile])
		} else {
			writeU4(out, 0xffffffff)
		}
		writeU4(out, offsets[i].annotations)
		writeU4(out, offsets[i].classData)
		writeU4(out, 0)
	}
	if out.Len() != dataOff {
		panic(fmt.Sprintf("dextest: index sections end at 0x%x, expected 0x%x", out.Len(), dataOff))
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

// WriteAPK stores the dex images as classes.dex, classes2.dex, ... in a zip
// archive at path.
func WriteAPK(path string, images ...[]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	manifest, err := zw.Create("AndroidManifest.xml")
	if err != nil {
		return err
	}
	if _, err := manifest.Write([]byte("<manifest/>")); err != nil {
		return err
	}
	for i, image := range images {
		name := "classes.dex"
		if i > 0 {
			name = fmt.Sprintf("classes%d.dex", i+1)
		}
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write(image); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

func (b *builder) str(s string) uint32 {
	if idx, ok := b.stringIx[s]; ok {
		return idx
	}
	idx := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	b.stringIx[s] = idx
	return idx
}

func (b *builder) typ(descriptor string) uint32 {
	if idx, ok := b.typeIx[descriptor]; ok {
		return idx
	}
	idx := uint32(len(b.types))
	b.types = append(b.types, b.str(descriptor))
	b.typeIx[descriptor] = idx
	return idx
}

func (b *builder) optionalType(descriptor string) uint32 {
	if descriptor == "" {
		return 0xffffffff
	}
	return b.typeIx[descriptor]
}

func (b *builder) field(ref dex.FieldRef) uint32 {
	if idx, ok := b.fieldIx[ref]; ok {
		return idx
	}
	b.typ(ref.Class)
	b.typ(ref.Type)
	b.str(ref.Name)
	idx := uint32(len(b.fields))
	b.fields = append(b.fields, ref)
	b.fieldIx[ref] = idx
	return idx
}

func (b *builder) method(ref dex.MethodRef) uint32 {
	if idx, ok := b.methodIx[ref]; ok {
		return idx
	}
	idx := b.classMethod(ref.Class, ref.Name)
	b.methodIx[ref] = idx
	return idx
}

// classMethod always allocates a new method id so overloads stay distinct.
func (b *builder) classMethod(class, name string) uint32 {
	b.typ(class)
	b.str(name)
	idx := uint32(len(b.methods))
	b.methods = append(b.methods, dex.MethodRef{Class: class, Name: name})
	return idx
}

func (b *builder) internAnnotations(anns []dex.Annotation) {
	for _, a := range anns {
		b.internEncodedAnnotation(a.EncodedAnnotation)
	}
}

func (b *builder) internEncodedAnnotation(a dex.EncodedAnnotation) {
	b.typ(a.Type)
	for _, e := range a.Elements {
		b.str(e.Name)
		b.internValue(e.Value)
	}
}

func (b *builder) internValue(v dex.EncodedValue) {
	switch v := v.(type) {
	case dex.StringValue:
		b.str(string(v))
	case dex.TypeValue:
		b.typ(string(v))
	case dex.FieldValue:
		b.field(dex.FieldRef(v))
	case dex.EnumValue:
		b.field(dex.FieldRef(v))
	case dex.MethodValue:
		b.method(dex.MethodRef(v))
	case dex.ArrayValue:
		for _, item := range v {
			b.internValue(item)
		}
	case dex.AnnotationValue:
		b.internEncodedAnnotation(dex.EncodedAnnotation(v))
	}
}

func (b *builder) writeAnnotation(w *bytes.Buffer, a dex.EncodedAnnotation) {
	writeULEB(w, b.typeIx[a.Type])
	writeULEB(w, uint32(len(a.Elements)))
	for _, e := range a.Elements {
		writeULEB(w, b.stringIx[e.Name])
		b.writeValue(w, e.Value)
	}
}

func (b *builder) writeValue(w *bytes.Buffer, v dex.EncodedValue) {
	switch v := v.(type) {
	case dex.ByteValue:
		w.WriteByte(0x00)
		w.WriteByte(byte(v))
	case dex.ShortValue:
		writeSigned(w, 0x02, int64(v))
	case dex.CharValue:
		writeUnsigned(w, 0x03, uint64(v))
	case dex.IntValue:
		writeSigned(w, 0x04, int64(v))
	case dex.LongValue:
		writeSigned(w, 0x06, int64(v))
	case dex.FloatValue:
		writeRightExtended(w, 0x10, uint64(math.Float32bits(float32(v))), 4)
	case dex.DoubleValue:
		writeRightExtended(w, 0x11, math.Float64bits(float64(v)), 8)
	case dex.MethodTypeValue:
		writeUnsigned(w, 0x15, uint64(v.ProtoIndex))
	case dex.MethodHandleValue:
		writeUnsigned(w, 0x16, uint64(v.Index))
	case dex.StringValue:
		writeUnsigned(w, 0x17, uint64(b.stringIx[string(v)]))
	case dex.TypeValue:
		writeUnsigned(w, 0x18, uint64(b.typeIx[string(v)]))
	case dex.FieldValue:
		writeUnsigned(w, 0x19, uint64(b.fieldIx[dex.FieldRef(v)]))
	case dex.MethodValue:
		writeUnsigned(w, 0x1a, uint64(b.methodIx[dex.MethodRef(v)]))
	case dex.EnumValue:
		writeUnsigned(w, 0x1b, uint64(b.fieldIx[dex.FieldRef(v)]))
	case dex.ArrayValue:
		w.WriteByte(0x1c)
		writeULEB(w, uint32(len(v)))
		for _, item := range v {
			b.writeValue(w, item)
		}
	case dex.AnnotationValue:
		w.WriteByte(0x1d)
		b.writeAnnotation(w, dex.EncodedAnnotation(v))
	case dex.NullValue:
		w.WriteByte(0x1e)
	case dex.BooleanValue:
		if v {
			w.WriteByte(1<<5 | 0x1f)
		} else {
			w.WriteByte(0x1f)
		}
	default:
		panic(fmt.Sprintf("dextest: unsupported value %T", v))
	}
}

func writeSigned(w *bytes.Buffer, tag byte, v int64) {
	n := 1
	for ; n < 8; n++ {
		shift := uint(64 - 8*n)
		if (v<<shift)>>shift == v {
			break
		}
	}
	writeSized(w, tag, uint64(v), 0, n)
}

func writeUnsigned(w *bytes.Buffer, tag byte, v uint64) {
	n := 1
	for n < 8 && v>>(8*uint(n)) != 0 {
		n++
	}
	writeSized(w, tag, v, 0, n)
}

// writeRightExtended drops zero low order bytes.
func writeRightExtended(w *bytes.Buffer, tag byte, bits uint64, width int) {
	start := 0
	for start < width-1 && byte(bits>>(8*uint(start))) == 0 {
		start++
	}
	writeSized(w, tag, bits, start, width-start)
}

func writeSized(w *bytes.Buffer, tag byte, v uint64, from, n int) {
	w.WriteByte(byte(n-1)<<5 | tag)
	for i := from; i < from+n; i++ {
		w.WriteByte(byte(v >> (8 * uint(i))))
	}
}

func writeMUTF8(w *bytes.Buffer, units []uint16) {
	for _, u := range units {
		switch {
		case u != 0 && u < 0x80:
			w.WriteByte(byte(u))
		case u < 0x800:
			w.WriteByte(0xc0 | byte(u>>6))
			w.WriteByte(0x80 | byte(u&0x3f))
		default:
			w.WriteByte(0xe0 | byte(u>>12))
			w.WriteByte(0x80 | byte((u>>6)&0x3f))
			w.WriteByte(0x80 | byte(u&0x3f))
		}
	}
}

func writeULEB(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			w.WriteByte(b)
			return
		}
		w.WriteByte(b | 0x80)
	}
}

func writeU2(w *bytes.Buffer, v uint16) {
	_ = binary.Write(w, binary.LittleEndian, v)
}

func writeU4(w *bytes.Buffer, v uint32) {
	_ = binary.Write(w, binary.LittleEndian, v)
}
