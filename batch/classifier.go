package batch

import (
	"path/filepath"
	"slices"
	"strings"
)

// Access describes what a tool does to the resources named in its
// arguments.
type Access int

const (
	// AccessUnknown is the zero value. Tools that declare nothing may
	// mutate whatever they touch.
	AccessUnknown Access = iota
	// AccessNone tools touch no shared resource named in their arguments.
	AccessNone
	// AccessRead tools only read.
	AccessRead
	// AccessWrite tools create, modify or delete.
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Mutating reports whether a may change the resources it touches.
func (a Access) Mutating() bool {
	return a == AccessWrite || a == AccessUnknown
}

// DefaultPathKeys are the argument keys treated as resource paths.
var DefaultPathKeys = []string{
	"file_path", "path", "notebook_path", "filePath", "filename",
	"directory", "dir", "source", "destination", "target",
}

// AccessFunc reports the declared access of a tool by name.
type AccessFunc func(name string) Access

// Footprint is what one invocation touches.
type Footprint struct {
	Access Access
	Paths  []string
}

// Classifier decides which invocations of a batch may run together. It only
// knows what it can read from each invocation's own arguments.
type Classifier struct {
	access  AccessFunc
	baseDir string
	keys    []string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithBaseDir resolves relative paths against dir.
func WithBaseDir(dir string) ClassifierOption {
	return func(c *Classifier) {
		if dir != "" {
			c.baseDir = filepath.Clean(dir)
		}
	}
}

// WithPathKeys replaces DefaultPathKeys.
func WithPathKeys(keys ...string) ClassifierOption {
	return func(c *Classifier) { c.keys = slices.Clone(keys) }
}

// NewClassifier creates a Classifier. A nil access func treats every tool as
// AccessUnknown.
func NewClassifier(access AccessFunc, opts ...ClassifierOption) *Classifier {
	if access == nil {
		access = func(string) Access { return AccessUnknown }
	}
	c := &Classifier{access: access, keys: DefaultPathKeys}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Footprint extracts the access kind and normalized paths of inv. Input that
// does not decode yields no paths.
func (c *Classifier) Footprint(inv Invocation) Footprint {
	fp := Footprint{Access: c.access(inv.Name)}
	if fp.Access == AccessNone {
		return fp
	}
	args, err := inv.Arguments()
	if err != nil {
		return fp
	}
	for _, key := range c.keys {
		switch v := args[key].(type) {
		case string:
			fp.Paths = c.add(fp.Paths, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					fp.Paths = c.add(fp.Paths, s)
				}
			}
		}
	}
	return fp
}

// NormalizePath returns the form of p that footprints compare: trimmed,
// joined onto baseDir when relative, and cleaned. Blank input yields "".
func NormalizePath(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if baseDir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Clean(p)
}

func (c *Classifier) add(paths []string, p string) []string {
	p = NormalizePath(c.baseDir, p)
	if p == "" {
		return paths
	}
	if slices.Contains(paths, p) {
		return paths
	}
	return append(paths, p)
}

// Conflicts reports whether two footprints must not run concurrently: they
// share a path, or one path contains the other, and at least one side may
// mutate it.
func Conflicts(a, b Footprint) bool {
	if a.Access == AccessNone || b.Access == AccessNone {
		return false
	}
	if !a.Access.Mutating() && !b.Access.Mutating() {
		return false
	}
	for _, pa := range a.Paths {
		for _, pb := range b.Paths {
			if overlaps(pa, pb) {
				return true
			}
		}
	}
	return false
}

// Conflicts reports whether invocations a and b must not run concurrently.
func (c *Classifier) Conflicts(a, b Invocation) bool {
	return Conflicts(c.Footprint(a), c.Footprint(b))
}

func overlaps(a, b string) bool {
	return a == b || within(a, b) || within(b, a)
}

// within reports whether child lies under dir.
func within(dir, child string) bool {
	sep := string(filepath.Separator)
	if !strings.HasSuffix(dir, sep) {
		dir += sep
	}
	return strings.HasPrefix(child, dir)
}
