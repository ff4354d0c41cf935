package scope

import (
	"fmt"
	"strings"
)

// Scope is an immutable set of variable bindings for one crawl branch.
//
// A Scope is never shared mutably: Child and Bind return fresh copies,
// so sibling branches created from the same parent can never observe
// each other's bindings. Lookup is resolved at snapshot time, not by
// live delegation to the parent.
type Scope struct {
	vars map[string]string
}

// New returns an empty root scope.
func New() Scope {
	return Scope{vars: map[string]string{}}
}

// Child returns a snapshot of s extended with the given bindings.
// Bindings with names already present in s shadow the inherited value
// without affecting s.
func (s Scope) Child(bindings map[string]string) Scope {
	child := make(map[string]string, len(s.vars)+len(bindings))
	for k, v := range s.vars {
		child[k] = v
	}
	for k, v := range bindings {
		child[k] = v
	}
	return Scope{vars: child}
}

// Bind returns a copy of s with name bound to value.
// Binding an already-bound name overwrites it in the returned scope;
// s itself is unchanged.
func (s Scope) Bind(name, value string) Scope {
	return s.Child(map[string]string{name: value})
}

// Get returns the value bound to name and whether it is bound.
func (s Scope) Get(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Len returns the number of bindings in the scope.
func (s Scope) Len() int {
	return len(s.vars)
}

// TemplateError reports a template placeholder that refers to an
// unbound variable. Resolution never substitutes a default value.
type TemplateError struct {
	// Name is the unbound placeholder name.
	Name string
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template references unbound variable %q", e.Name)
}

// ResolveTemplate replaces each {name} placeholder in tpl with the
// value bound to name in s. It returns a *TemplateError if a
// placeholder names an unbound variable, and an error for malformed
// placeholders (an unclosed '{').
//
// Literal text outside placeholders is copied through unchanged, so
// path separators and extensions survive resolution.
func ResolveTemplate(tpl string, s Scope) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl))

	for i := 0; i < len(tpl); {
		c := tpl[i]
		if c != '{' {
			b.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(tpl[i:], '}')
		if end < 0 {
			return "", fmt.Errorf("unclosed placeholder in template %q", tpl)
		}

		name := tpl[i+1 : i+end]
		value, ok := s.Get(name)
		if !ok {
			return "", &TemplateError{Name: name}
		}
		b.WriteString(value)
		i += end + 1
	}

	return b.String(), nil
}
