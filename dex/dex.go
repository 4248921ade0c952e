// Package dex decodes the parts of Dalvik executables needed to inspect test
// classes: class definitions, methods, access flags and annotations.
package dex

import "strings"

// AccessFlags are the access_flags of classes and methods.
type AccessFlags uint32

const (
	AccPublic       AccessFlags = 0x1
	AccPrivate      AccessFlags = 0x2
	AccProtected    AccessFlags = 0x4
	AccStatic       AccessFlags = 0x8
	AccFinal        AccessFlags = 0x10
	AccSynchronized AccessFlags = 0x20
	AccBridge       AccessFlags = 0x40
	AccVarargs      AccessFlags = 0x80
	AccNative       AccessFlags = 0x100
	AccInterface    AccessFlags = 0x200
	AccAbstract     AccessFlags = 0x400
	AccStrict       AccessFlags = 0x800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccConstructor  AccessFlags = 0x10000
)

// Has reports whether all bits of flag are set.
func (f AccessFlags) Has(flag AccessFlags) bool {
	return f&flag == flag
}

// File is a decoded dex file (or several merged multidex files).
type File struct {
	Classes []*ClassDef
}

// ClassDef is one class_def_item. Type names are kept as descriptors
// ("Lcom/example/Foo;").
type ClassDef struct {
	Type           string
	AccessFlags    AccessFlags
	Superclass     string
	Interfaces     []string
	SourceFile     string
	Annotations    []Annotation
	DirectMethods  []*Method
	VirtualMethods []*Method
}

// Methods returns virtual methods followed by direct methods.
func (c *ClassDef) Methods() []*Method {
	out := make([]*Method, 0, len(c.VirtualMethods)+len(c.DirectMethods))
	out = append(out, c.VirtualMethods...)
	return append(out, c.DirectMethods...)
}

// Method is an encoded_method of a class.
type Method struct {
	Class       *ClassDef
	Name        string
	AccessFlags AccessFlags
	Annotations []Annotation
}

// Visibility of an annotation_item.
type Visibility uint8

const (
	VisibilityBuild   Visibility = 0
	VisibilityRuntime Visibility = 1
	VisibilitySystem  Visibility = 2
)

// Annotation is an annotation_item.
type Annotation struct {
	Visibility Visibility
	EncodedAnnotation
}

// EncodedAnnotation is an annotation without visibility, as used for
// nested annotation values.
type EncodedAnnotation struct {
	Type     string
	Elements []Element
}

// Element is a name/value pair of an annotation.
type Element struct {
	Name  string
	Value EncodedValue
}

// EncodedValue is one encoded_value. Implementations are the *Value types
// of this package.
type EncodedValue interface {
	encodedValue()
}

// FieldRef is a resolved field_id_item.
type FieldRef struct {
	Class string
	Name  string
	Type  string
}

// MethodRef is a resolved method_id_item.
type MethodRef struct {
	Class string
	Name  string
}

type (
	ByteValue         int8
	ShortValue        int16
	CharValue         uint16
	IntValue          int32
	LongValue         int64
	FloatValue        float32
	DoubleValue       float64
	MethodTypeValue   struct{ ProtoIndex uint32 }
	MethodHandleValue struct{ Index uint32 }
	StringValue       string
	TypeValue         string
	FieldValue        FieldRef
	MethodValue       MethodRef
	EnumValue         FieldRef
	ArrayValue        []EncodedValue
	AnnotationValue   EncodedAnnotation
	NullValue         struct{}
	BooleanValue      bool
)

func (ByteValue) encodedValue() {}
func (ShortValue) encodedValue() {}
func (CharValue) encodedValue() {}
func (IntValue) encodedValue() {}
func (LongValue) encodedValue() {}
func (FloatValue) encodedValue() {}
func (DoubleValue) encodedValue() {}
func (MethodTypeValue) encodedValue() {}
func (MethodHandleValue) encodedValue() {}
func (StringValue) encodedValue() {}
func (TypeValue) encodedValue() {}
func (FieldValue) encodedValue() {}
func (MethodValue) encodedValue() {}
func (EnumValue) encodedValue() {}
func (ArrayValue) encodedValue() {}
func (AnnotationValue) encodedValue() {}
func (NullValue) encodedValue() {}
func (BooleanValue) encodedValue() {}

// ClassName converts a type descriptor into a dotted class name, nested
// classes included ("Lcom/a/B$C;" -> "com.a.B.C").
func ClassName(descriptor string) string {
	name := descriptor
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") {
		name = name[1 : len(name)-1]
	}
	return strings.NewReplacer("/", ".", "$", ".").Replace(name)
}

// PackageName returns the dotted package of a class descriptor, or "" for
// the default package.
func PackageName(descriptor string) string {
	idx := strings.LastIndexByte(descriptor, '/')
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(strings.TrimPrefix(descriptor[:idx], "L"), "/", ".")
}

// IsClassType reports whether the descriptor names a class (not a primitive
// or array type).
func IsClassType(descriptor string) bool {
	return strings.HasPrefix(descriptor, "L")
}
