// Package reflectx has the reflection helpers used to route messages by type.
package reflectx

import "reflect"

// QualifiedName returns a name for t that is unique within a program: the
// import path and name of the type, preceded by one "*" per pointer level.
// Unnamed types fall back to their String form.
//
//	QualifiedName(reflect.TypeFor[*sim.Tick]()) // "*github.com/casualjim/courier/internal/sim.Tick"
func QualifiedName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return prefix + t.String()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}
