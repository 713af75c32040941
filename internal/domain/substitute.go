package domain

import (
	"reflect"
	"regexp"
	"strings"
)

// placeholderPattern matches both {{name}} and {brand.field} placeholder
// forms in a single pass.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}|\{([a-zA-Z0-9_.]+)\}`)

// substituteString resolves every placeholder in s against vars, returning
// the resolved string and the names of any placeholders left unresolved.
func substituteString(s string, vars map[string]string) (string, []string) {
	var unresolved []string
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.Trim(match, "{}")
		name = strings.TrimSpace(name)
		if v, ok := vars[name]; ok {
			return v
		}
		unresolved = append(unresolved, name)
		return match
	})
	return out, unresolved
}

// substituteConfig walks every string reachable from cfg — struct fields,
// slice elements, and map values — and resolves placeholders in place
// against vars. It returns the names of every placeholder left unresolved,
// so validation can fail load rather than start the process with a
// malformed template.
func substituteConfig(cfg *MasterDomainConfig, vars map[string]string) []string {
	var unresolved []string
	walkStrings(reflect.ValueOf(cfg), func(s string) string {
		resolved, missing := substituteString(s, vars)
		unresolved = append(unresolved, missing...)
		return resolved
	})
	return unresolved
}

// walkStrings visits every addressable string reachable from v and replaces
// it with fn(s). Maps of non-string values are copied into an addressable
// temporary, mutated, and written back since map values are not directly
// settable.
func walkStrings(v reflect.Value, fn func(string) string) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return
		}
		walkStrings(v.Elem(), fn)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if f.CanSet() {
				walkStrings(f, fn)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkStrings(v.Index(i), fn)
		}
	case reflect.Map:
		for _, key := range v.MapKeys() {
			val := v.MapIndex(key)
			if val.Kind() == reflect.String {
				v.SetMapIndex(key, reflect.ValueOf(fn(val.String())))
				continue
			}
			tmp := reflect.New(val.Type()).Elem()
			tmp.Set(val)
			walkStrings(tmp, fn)
			v.SetMapIndex(key, tmp)
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(fn(v.String()))
		}
	}
}
