package testinfo

// This file contains annotation inheritance resolution and the conversion of
// dex annotation values into model values.

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tongsgo/tongs/dex"
	"github.com/tongsgo/tongs/model"
)

const (
	inheritedAnnotation = "java.lang.annotation.Inherited"
	rootClass           = "java.lang.Object"
)

// resolver collects the annotations a class inherits from its ancestors.
// It is scoped to one archive.
type resolver struct {
	logger zerolog.Logger
	known  map[string]*dex.ClassDef
}

func newResolver(logger zerolog.Logger, file *dex.File) *resolver {
	known := make(map[string]*dex.ClassDef, len(file.Classes))
	for _, class := range file.Classes {
		if dex.IsClassType(class.Type) {
			known[dex.ClassName(class.Type)] = class
		}
	}
	return &resolver{logger: logger, known: known}
}

// Collect returns the annotations of a test method: inherited ones first,
// then the class annotations, then the method annotations.
func (r *resolver) Collect(method *dex.Method) ([]model.AnnotationInfo, error) {
	var out []dex.Annotation
	out = r.appendAncestors(out, method.Class, map[string]bool{dex.ClassName(method.Class.Type): true})
	out = append(out, method.Class.Annotations...)
	out = append(out, method.Annotations...)

	infos := make([]model.AnnotationInfo, 0, len(out))
	for _, a := range out {
		info, err := annotationInfo(a.EncodedAnnotation)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// appendAncestors visits interfaces in declared order, then the superclass.
// path holds the classes of the current chain and stops cycles.
func (r *resolver) appendAncestors(out []dex.Annotation, class *dex.ClassDef, path map[string]bool) []dex.Annotation {
	for _, iface := range class.Interfaces {
		out = r.appendAncestor(out, dex.ClassName(iface), path)
	}

	if class.Superclass != "" && class.Superclass != class.Type {
		if superclass := dex.ClassName(class.Superclass); superclass != rootClass {
			out = r.appendAncestor(out, superclass, path)
		}
	}
	return out
}

func (r *resolver) appendAncestor(out []dex.Annotation, name string, path map[string]bool) []dex.Annotation {
	class, ok := r.known[name]
	if !ok {
		r.logger.Debug().Str("class", name).Msg("Ancestor is not part of the archive")
		return out
	}
	if path[name] {
		r.logger.Warn().Str("class", name).Msg("Class hierarchy cycle")
		return out
	}
	path[name] = true
	defer delete(path, name)

	out = r.appendAncestors(out, class, path)
	for _, a := range class.Annotations {
		if r.inheritable(a.Type) {
			out = append(out, a)
		}
	}
	return out
}

// inheritable reports whether annotations of the given type propagate to
// subclasses. Types missing from the archive are assumed to.
func (r *resolver) inheritable(annotationType string) bool {
	class, ok := r.known[dex.ClassName(annotationType)]
	if !ok {
		return true
	}
	for _, meta := range class.Annotations {
		if dex.ClassName(meta.Type) == inheritedAnnotation {
			return true
		}
	}
	return false
}

func annotationInfo(a dex.EncodedAnnotation) (model.AnnotationInfo, error) {
	info := model.AnnotationInfo{
		Type:       dex.ClassName(a.Type),
		Properties: make(map[string]model.Value, len(a.Elements)),
	}
	for _, e := range a.Elements {
		v, err := decodeValue(e.Value)
		var nestedErr *ApkReadingError
		if errors.As(err, &nestedErr) {
			return model.AnnotationInfo{}, err
		} else if err != nil {
			return model.AnnotationInfo{}, &ApkReadingError{Annotation: info.Type, Element: e.Name, Kind: err.Error()}
		}
		info.Properties[e.Name] = v
	}
	return info, nil
}

func decodeValue(v dex.EncodedValue) (model.Value, error) {
	switch v := v.(type) {
	case dex.AnnotationValue:
		nested, err := annotationInfo(dex.EncodedAnnotation(v))
		if err != nil {
			return nil, err
		}
		return model.Nested(nested), nil
	case dex.NullValue:
		return model.Null{}, nil
	case dex.ArrayValue:
		list := make(model.List, 0, len(v))
		for _, item := range v {
			decoded, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, decoded)
		}
		return list, nil
	case dex.BooleanValue:
		return model.Bool(v), nil
	case dex.ByteValue:
		return model.IntNumber(model.WidthByte, int64(v)), nil
	case dex.CharValue:
		return model.String(string(rune(v))), nil
	case dex.DoubleValue:
		return model.FloatNumber(model.WidthDouble, float64(v)), nil
	case dex.EnumValue:
		return model.String(v.Name), nil
	case dex.FloatValue:
		return model.FloatNumber(model.WidthFloat, float64(v)), nil
	case dex.IntValue:
		return model.IntNumber(model.WidthInt, int64(v)), nil
	case dex.LongValue:
		return model.IntNumber(model.WidthLong, int64(v)), nil
	case dex.ShortValue:
		return model.IntNumber(model.WidthShort, int64(v)), nil
	case dex.StringValue:
		return model.String(v), nil
	case dex.TypeValue:
		return model.String(dex.ClassName(string(v))), nil
	default:
		return nil, fmt.Errorf("%T", v)
	}
}
