// Package extension maintains the registry of data types step inputs and
// outputs can declare.
package extension

import (
	"reflect"
	"strings"

	"github.com/viant/x"
)

// Types is a data type registry with support for slice and map modifiers
// such as []string or map[string]int.
type Types struct {
	x.Registry
}

// Register adds a data type to the registry.
func (t *Types) Register(dataType *x.Type) {
	t.Registry.Register(dataType)
}

// Lookup returns a registered data type, nil when unknown. A leading
// modifier ([], [][], map[string], map[string][]) wraps the base type.
func (t *Types) Lookup(dataType string) *x.Type {
	typeModifier := ""
	if idx := strings.LastIndex(dataType, "]"); idx != -1 {
		typeModifier = dataType[:idx+1]
		dataType = dataType[idx+1:]
	}
	ret := t.Registry.Lookup(dataType)
	if ret == nil {
		return nil
	}
	rType := ret.Type
	switch strings.TrimSpace(typeModifier) {
	case "":
	case "[]":
		rType = reflect.SliceOf(rType)
	case "[][]":
		rType = reflect.SliceOf(reflect.SliceOf(rType))
	case "map[string]":
		rType = reflect.MapOf(reflect.TypeOf(""), rType)
	case "map[string][]":
		rType = reflect.MapOf(reflect.TypeOf(""), reflect.SliceOf(rType))
	default:
		return nil
	}
	if rType != ret.Type {
		return x.NewType(rType)
	}
	return ret
}

// NewTypes creates a type registry pre-populated with the primitive types
// step declarations commonly use.
func NewTypes(options ...x.RegistryOption) *Types {
	result := &Types{Registry: *x.NewRegistry(options...)}
	for name, value := range map[string]interface{}{
		"string":  "",
		"int":     0,
		"int64":   int64(0),
		"float":   0.0,
		"float64": 0.0,
		"bool":    false,
		"any":     struct{}{},
	} {
		rType := reflect.TypeOf(value)
		if name == "any" {
			rType = reflect.TypeOf((*interface{})(nil)).Elem()
		}
		result.Registry.Register(x.NewType(rType, x.WithName(name)))
	}
	return result
}
