package dex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"
)

const (
	headerSize = 0x70
	endianTag  = 0x12345678
	noIndex    = 0xffffffff
	classDefSz = 32
)

// ErrNotDex is returned for data that does not start with a dex header.
var ErrNotDex = errors.New("not a dex file")

// UnknownValueTypeError is returned for an encoded_value whose type tag is
// not defined by the dex format. Annotation and Element name the innermost
// annotation element holding the value, when there is one.
type UnknownValueTypeError struct {
	Tag        byte
	Offset     int
	Annotation string
	Element    string
}

func (e *UnknownValueTypeError) Error() string {
	return fmt.Sprintf("unknown encoded value type 0x%02x at offset 0x%x", e.Tag, e.Offset)
}

// IsDex reports whether data starts with a dex magic.
func IsDex(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:4], []byte("dex\n")) && data[7] == 0
}

type header struct {
	stringIDsSize, stringIDsOff uint32
	typeIDsSize, typeIDsOff     uint32
	fieldIDsSize, fieldIDsOff   uint32
	methodIDsSize, methodIDsOff uint32
	classDefsSize, classDefsOff uint32
}

type parser struct {
	data    []byte
	hdr     header
	strings []string
	types   []string
}

// Parse decodes a single dex file.
func Parse(data []byte) (*File, error) {
	if len(data) < headerSize || !IsDex(data) {
		return nil, ErrNotDex
	}
	p := &parser{data: data}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	if err := p.readStrings(); err != nil {
		return nil, err
	}
	if err := p.readTypes(); err != nil {
		return nil, err
	}

	if err := p.table("class_defs", p.hdr.classDefsOff, p.hdr.classDefsSize, classDefSz); err != nil {
		return nil, err
	}
	file := &File{}
	for i := uint32(0); i < p.hdr.classDefsSize; i++ {
		class, err := p.readClassDef(int(p.hdr.classDefsOff) + int(i)*classDefSz)
		if err != nil {
			return nil, fmt.Errorf("class_def %d: %w", i, err)
		}
		file.Classes = append(file.Classes, class)
	}
	return file, nil
}

func (p *parser) readHeader() error {
	c := p.at(0)
	if tag := c.u4At(40); tag != endianTag {
		return fmt.Errorf("unsupported endian tag 0x%08x", tag)
	}
	p.hdr = header{
		stringIDsSize: c.u4At(56), stringIDsOff: c.u4At(60),
		typeIDsSize: c.u4At(64), typeIDsOff: c.u4At(68),
		fieldIDsSize: c.u4At(80), fieldIDsOff: c.u4At(84),
		methodIDsSize: c.u4At(88), methodIDsOff: c.u4At(92),
		classDefsSize: c.u4At(96), classDefsOff: c.u4At(100),
	}
	return c.err
}

// table checks that size items of itemSize bytes fit at off.
func (p *parser) table(name string, off, size uint32, itemSize int) error {
	c := p.at(int(off))
	if !c.fits(uint64(size), itemSize) {
		return fmt.Errorf("%s: %w", name, c.err)
	}
	return nil
}

func (p *parser) readStrings() error {
	if err := p.table("string_ids", p.hdr.stringIDsOff, p.hdr.stringIDsSize, 4); err != nil {
		return err
	}
	p.strings = make([]string, p.hdr.stringIDsSize)
	for i := range p.strings {
		c := p.at(int(p.hdr.stringIDsOff) + i*4)
		off := c.u4()
		if c.err != nil {
			return fmt.Errorf("string_id %d: %w", i, c.err)
		}
		s, err := p.readStringData(int(off))
		if err != nil {
			return fmt.Errorf("string_id %d: %w", i, err)
		}
		p.strings[i] = s
	}
	return nil
}

func (p *parser) readStringData(off int) (string, error) {
	c := p.at(off)
	units := c.uleb128()
	if c.err != nil {
		return "", c.err
	}
	end := bytes.IndexByte(p.data[c.pos:], 0)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at 0x%x", off)
	}
	return decodeMUTF8(p.data[c.pos:c.pos+end], int(units))
}

func (p *parser) readTypes() error {
	if err := p.table("type_ids", p.hdr.typeIDsOff, p.hdr.typeIDsSize, 4); err != nil {
		return err
	}
	p.types = make([]string, p.hdr.typeIDsSize)
	for i := range p.types {
		c := p.at(int(p.hdr.typeIDsOff) + i*4)
		idx := c.u4()
		if c.err != nil {
			return fmt.Errorf("type_id %d: %w", i, c.err)
		}
		s, err := p.string(idx)
		if err != nil {
			return fmt.Errorf("type_id %d: %w", i, err)
		}
		p.types[i] = s
	}
	return nil
}

func (p *parser) string(idx uint32) (string, error) {
	if int64(idx) >= int64(len(p.strings)) {
		return "", fmt.Errorf("string index %d out of range", idx)
	}
	return p.strings[idx], nil
}

func (p *parser) typ(idx uint32) (string, error) {
	if int64(idx) >= int64(len(p.types)) {
		return "", fmt.Errorf("type index %d out of range", idx)
	}
	return p.types[idx], nil
}

func (p *parser) field(idx uint32) (FieldRef, error) {
	if idx >= p.hdr.fieldIDsSize {
		return FieldRef{}, fmt.Errorf("field index %d out of range", idx)
	}
	c := p.at(int(p.hdr.fieldIDsOff) + int(idx)*8)
	classIdx, typeIdx, nameIdx := c.u2(), c.u2(), c.u4()
	if c.err != nil {
		return FieldRef{}, c.err
	}
	var ref FieldRef
	var err error
	if ref.Class, err = p.typ(uint32(classIdx)); err != nil {
		return FieldRef{}, err
	}
	if ref.Type, err = p.typ(uint32(typeIdx)); err != nil {
		return FieldRef{}, err
	}
	if ref.Name, err = p.string(nameIdx); err != nil {
		return FieldRef{}, err
	}
	return ref, nil
}

func (p *parser) method(idx uint32) (MethodRef, error) {
	if idx >= p.hdr.methodIDsSize {
		return MethodRef{}, fmt.Errorf("method index %d out of range", idx)
	}
	c := p.at(int(p.hdr.methodIDsOff) + int(idx)*8)
	classIdx, _, nameIdx := c.u2(), c.u2(), c.u4()
	if c.err != nil {
		return MethodRef{}, c.err
	}
	var ref MethodRef
	var err error
	if ref.Class, err = p.typ(uint32(classIdx)); err != nil {
		return MethodRef{}, err
	}
	if ref.Name, err = p.string(nameIdx); err != nil {
		return MethodRef{}, err
	}
	return ref, nil
}

func (p *parser) readClassDef(off int) (*ClassDef, error) {
	c := p.at(off)
	classIdx := c.u4()
	flags := c.u4()
	superIdx := c.u4()
	interfacesOff := c.u4()
	sourceIdx := c.u4()
	annotationsOff := c.u4()
	classDataOff := c.u4()
	_ = c.u4() // static_values_off
	if c.err != nil {
		return nil, c.err
	}

	class := &ClassDef{AccessFlags: AccessFlags(flags)}
	var err error
	if class.Type, err = p.typ(classIdx); err != nil {
		return nil, err
	}
	if superIdx != noIndex {
		if class.Superclass, err = p.typ(superIdx); err != nil {
			return nil, err
		}
	}
	if sourceIdx != noIndex {
		if class.SourceFile, err = p.string(sourceIdx); err != nil {
			return nil, err
		}
	}
	if interfacesOff != 0 {
		if class.Interfaces, err = p.readTypeList(int(interfacesOff)); err != nil {
			return nil, fmt.Errorf("%s interfaces: %w", class.Type, err)
		}
	}

	methodAnnotations := map[uint32][]Annotation{}
	if annotationsOff != 0 {
		classAnnotations, byMethod, err := p.readAnnotationsDirectory(int(annotationsOff))
		if err != nil {
			return nil, fmt.Errorf("%s annotations: %w", class.Type, err)
		}
		class.Annotations = classAnnotations
		methodAnnotations = byMethod
	}

	if classDataOff != 0 {
		if err := p.readClassData(int(classDataOff), class, methodAnnotations); err != nil {
			return nil, fmt.Errorf("%s class data: %w", class.Type, err)
		}
	}
	return class, nil
}

func (p *parser) readTypeList(off int) ([]string, error) {
	c := p.at(off)
	size := c.u4()
	if !c.fits(uint64(size), 2) {
		return nil, c.err
	}
	out := make([]string, 0, size)
	for i := uint32(0); i < size; i++ {
		idx := c.u2()
		if c.err != nil {
			return nil, c.err
		}
		t, err := p.typ(uint32(idx))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *parser) readAnnotationsDirectory(off int) ([]Annotation, map[uint32][]Annotation, error) {
	c := p.at(off)
	classAnnotationsOff := c.u4()
	fieldsSize := c.u4()
	methodsSize := c.u4()
	_ = c.u4() // annotated_parameters_size
	if c.err != nil {
		return nil, nil, c.err
	}

	var classAnnotations []Annotation
	if classAnnotationsOff != 0 {
		var err error
		if classAnnotations, err = p.readAnnotationSet(int(classAnnotationsOff)); err != nil {
			return nil, nil, err
		}
	}

	c.skip(int(fieldsSize) * 8)
	if !c.fits(uint64(methodsSize), 8) {
		return nil, nil, c.err
	}
	byMethod := make(map[uint32][]Annotation, methodsSize)
	for i := uint32(0); i < methodsSize; i++ {
		methodIdx, setOff := c.u4(), c.u4()
		if c.err != nil {
			return nil, nil, c.err
		}
		set, err := p.readAnnotationSet(int(setOff))
		if err != nil {
			return nil, nil, fmt.Errorf("method %d: %w", methodIdx, err)
		}
		byMethod[methodIdx] = set
	}
	return classAnnotations, byMethod, nil
}

func (p *parser) readAnnotationSet(off int) ([]Annotation, error) {
	c := p.at(off)
	size := c.u4()
	if !c.fits(uint64(size), 4) {
		return nil, c.err
	}
	out := make([]Annotation, 0, size)
	for i := uint32(0); i < size; i++ {
		itemOff := c.u4()
		if c.err != nil {
			return nil, c.err
		}
		ic := p.at(int(itemOff))
		visibility := ic.u1()
		if ic.err != nil {
			return nil, ic.err
		}
		encoded, err := p.readEncodedAnnotation(ic)
		if err != nil {
			return nil, err
		}
		out = append(out, Annotation{Visibility: Visibility(visibility), EncodedAnnotation: encoded})
	}
	return out, nil
}

func (p *parser) readEncodedAnnotation(c *cursor) (EncodedAnnotation, error) {
	typeIdx := c.uleb128()
	size := c.uleb128()
	if !c.fits(uint64(size), 2) {
		return EncodedAnnotation{}, c.err
	}
	typ, err := p.typ(typeIdx)
	if err != nil {
		return EncodedAnnotation{}, err
	}
	ann := EncodedAnnotation{Type: typ}
	for i := uint32(0); i < size; i++ {
		nameIdx := c.uleb128()
		if c.err != nil {
			return EncodedAnnotation{}, c.err
		}
		name, err := p.string(nameIdx)
		if err != nil {
			return EncodedAnnotation{}, err
		}
		value, err := p.readValue(c)
		if err != nil {
			var unknown *UnknownValueTypeError
			if errors.As(err, &unknown) && unknown.Annotation == "" {
				unknown.Annotation, unknown.Element = typ, name
			}
			return EncodedAnnotation{}, fmt.Errorf("%s.%s: %w", typ, name, err)
		}
		ann.Elements = append(ann.Elements, Element{Name: name, Value: value})
	}
	return ann, nil
}

func (p *parser) readValue(c *cursor) (EncodedValue, error) {
	start := c.pos
	b := c.u1()
	if c.err != nil {
		return nil, c.err
	}
	tag, arg := b&0x1f, int(b>>5)
	size := arg + 1

	var v EncodedValue
	var err error
	switch tag {
	case 0x00:
		v = ByteValue(int8(c.u1()))
	case 0x02:
		v = ShortValue(int16(c.signed(size)))
	case 0x03:
		v = CharValue(uint16(c.unsigned(size)))
	case 0x04:
		v = IntValue(int32(c.signed(size)))
	case 0x06:
		v = LongValue(c.signed(size))
	case 0x10:
		v = FloatValue(math.Float32frombits(uint32(c.rightExtended(size, 4))))
	case 0x11:
		v = DoubleValue(math.Float64frombits(c.rightExtended(size, 8)))
	case 0x15:
		v = MethodTypeValue{ProtoIndex: uint32(c.unsigned(size))}
	case 0x16:
		v = MethodHandleValue{Index: uint32(c.unsigned(size))}
	case 0x17:
		var s string
		s, err = p.string(uint32(c.unsigned(size)))
		v = StringValue(s)
	case 0x18:
		var t string
		t, err = p.typ(uint32(c.unsigned(size)))
		v = TypeValue(t)
	case 0x19:
		var f FieldRef
		f, err = p.field(uint32(c.unsigned(size)))
		v = FieldValue(f)
	case 0x1a:
		var m MethodRef
		m, err = p.method(uint32(c.unsigned(size)))
		v = MethodValue(m)
	case 0x1b:
		var f FieldRef
		f, err = p.field(uint32(c.unsigned(size)))
		v = EnumValue(f)
	case 0x1c:
		n := c.uleb128()
		if !c.fits(uint64(n), 1) {
			return nil, c.err
		}
		values := make(ArrayValue, 0, n)
		for i := uint32(0); i < n && c.err == nil; i++ {
			item, itemErr := p.readValue(c)
			if itemErr != nil {
				return nil, itemErr
			}
			values = append(values, item)
		}
		v = values
	case 0x1d:
		var a EncodedAnnotation
		a, err = p.readEncodedAnnotation(c)
		v = AnnotationValue(a)
	case 0x1e:
		v = NullValue{}
	case 0x1f:
		v = BooleanValue(arg != 0)
	default:
		return nil, &UnknownValueTypeError{Tag: tag, Offset: start}
	}
	if err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	return v, nil
}

func (p *parser) readClassData(off int, class *ClassDef, annotations map[uint32][]Annotation) error {
	c := p.at(off)
	staticFields := c.uleb128()
	instanceFields := c.uleb128()
	directMethods := c.uleb128()
	virtualMethods := c.uleb128()
	fields := uint64(staticFields) + uint64(instanceFields)
	// fields take at least two bytes, methods at least three
	if !c.fits(fields*2+(uint64(directMethods)+uint64(virtualMethods))*3, 1) {
		return c.err
	}
	for i := uint64(0); i < fields; i++ {
		c.uleb128()
		c.uleb128()
	}
	if c.err != nil {
		return c.err
	}

	readMethods := func(n uint32) ([]*Method, error) {
		var idx uint32
		out := make([]*Method, 0, n)
		for i := uint32(0); i < n; i++ {
			idx += c.uleb128()
			flags := c.uleb128()
			c.uleb128() // code_off
			if c.err != nil {
				return nil, c.err
			}
			ref, err := p.method(idx)
			if err != nil {
				return nil, err
			}
			out = append(out, &Method{
				Class:       class,
				Name:        ref.Name,
				AccessFlags: AccessFlags(flags),
				Annotations: annotations[idx],
			})
		}
		return out, nil
	}

	var err error
	if class.DirectMethods, err = readMethods(directMethods); err != nil {
		return err
	}
	if class.VirtualMethods, err = readMethods(virtualMethods); err != nil {
		return err
	}
	return nil
}

// cursor reads little endian values and remembers the first out of bounds
// access.
type cursor struct {
	data []byte
	pos  int
	err  error
}

func (p *parser) at(off int) *cursor {
	c := &cursor{data: p.data, pos: off}
	if off < 0 || off > len(p.data) {
		c.err = fmt.Errorf("offset 0x%x out of bounds", off)
	}
	return c
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.pos+n > len(c.data) {
		c.err = fmt.Errorf("unexpected end of data at 0x%x", c.pos)
		return false
	}
	return true
}

// fits reports whether n items of at least size bytes each can follow the
// cursor position.
func (c *cursor) fits(n uint64, size int) bool {
	if c.err != nil {
		return false
	}
	if n > uint64(len(c.data)-c.pos)/uint64(size) {
		c.err = fmt.Errorf("count %d at 0x%x exceeds the remaining data", n, c.pos)
		return false
	}
	return true
}

func (c *cursor) skip(n int) {
	if c.need(n) {
		c.pos += n
	}
}

func (c *cursor) u1() byte {
	if !c.need(1) {
		return 0
	}
	b := c.data[c.pos]
	c.pos++
	return b
}

func (c *cursor) u2() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v
}

func (c *cursor) u4() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v
}

func (c *cursor) u4At(off int) uint32 {
	if c.err != nil {
		return 0
	}
	if off+4 > len(c.data) {
		c.err = fmt.Errorf("unexpected end of data at 0x%x", off)
		return 0
	}
	return binary.LittleEndian.Uint32(c.data[off:])
}

func (c *cursor) uleb128() uint32 {
	var v uint32
	for i := 0; i < 5; i++ {
		b := c.u1()
		if c.err != nil {
			return 0
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v
		}
	}
	c.err = fmt.Errorf("invalid uleb128 at 0x%x", c.pos)
	return 0
}

func (c *cursor) unsigned(n int) uint64 {
	if n > 8 {
		c.err = fmt.Errorf("invalid value size %d at 0x%x", n, c.pos)
		return 0
	}
	if !c.need(n) {
		return 0
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(c.data[c.pos+i]) << (8 * i)
	}
	c.pos += n
	return v
}

func (c *cursor) signed(n int) int64 {
	v := c.unsigned(n)
	shift := 64 - 8*uint(n)
	return int64(v<<shift) >> shift
}

// rightExtended reads n bytes that hold the most significant bytes of a
// width byte value.
func (c *cursor) rightExtended(n, width int) uint64 {
	if n > width {
		c.err = fmt.Errorf("invalid value size %d at 0x%x", n, c.pos)
		return 0
	}
	return c.unsigned(n) << (8 * uint(width-n))
}

// decodeMUTF8 decodes the modified UTF-8 used by dex string data.
func decodeMUTF8(b []byte, units int) (string, error) {
	out := make([]uint16, 0, min(units, len(b)))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			out = append(out, uint16(c))
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= len(b) {
				return "", fmt.Errorf("truncated modified UTF-8 sequence")
			}
			out = append(out, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= len(b) {
				return "", fmt.Errorf("truncated modified UTF-8 sequence")
			}
			out = append(out, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return "", fmt.Errorf("invalid modified UTF-8 byte 0x%02x", c)
		}
	}
	return string(utf16.Decode(out)), nil
}
