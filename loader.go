package liquid

import (
	"os"
	"path/filepath"
	"strings"
)

// Loader is the pluggable template-source provider (spec.md §6.3). The
// core only consumes this interface; concrete loaders are an extension
// point, grounded on the teacher's TemplateLoader.
type Loader interface {
	// Load returns the source text for name, or a TemplateNotFound Error.
	Load(name string) (string, error)
}

// FileSystemLoader resolves template names against a base directory,
// grounded on the teacher's LocalFilesystemLoader.
type FileSystemLoader struct {
	Dirs []string
}

// NewFileSystemLoader builds a Loader that searches each directory in
// dirs, in order, for a requested template name.
func NewFileSystemLoader(dirs ...string) *FileSystemLoader {
	return &FileSystemLoader{Dirs: dirs}
}

func (l *FileSystemLoader) Load(name string) (string, error) {
	for _, dir := range l.Dirs {
		path := filepath.Join(dir, name)
		if !isSubPath(dir, path) {
			logf("access attempt outside of loader root (blocked): %q", path)
			continue
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
	}
	return "", errorf(KindTemplateNotFound, "loader", "template %q not found", name).At(name, 0, 0, nil)
}

// isSubPath guards against a template name like "../../etc/passwd" escaping
// the configured root directory.
func isSubPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DictLoader serves templates from an in-memory name→source map, useful
// for tests and embedded template sets.
type DictLoader struct {
	Templates map[string]string
}

// NewDictLoader builds a Loader backed by the given name→source map.
func NewDictLoader(templates map[string]string) *DictLoader {
	if templates == nil {
		templates = make(map[string]string)
	}
	return &DictLoader{Templates: templates}
}

func (l *DictLoader) Load(name string) (string, error) {
	src, ok := l.Templates[name]
	if !ok {
		return "", errorf(KindTemplateNotFound, "loader", "template %q not found", name).At(name, 0, 0, nil)
	}
	return src, nil
}

// ChoiceLoader tries each sub-loader in order, returning the first hit.
type ChoiceLoader struct {
	Loaders []Loader
}

// NewChoiceLoader builds a Loader that tries each of loaders in order.
func NewChoiceLoader(loaders ...Loader) *ChoiceLoader {
	return &ChoiceLoader{Loaders: loaders}
}

func (l *ChoiceLoader) Load(name string) (string, error) {
	var lastErr error
	for _, sub := range l.Loaders {
		src, err := sub.Load(name)
		if err == nil {
			return src, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errorf(KindTemplateNotFound, "loader", "template %q not found", name).At(name, 0, 0, nil)
	}
	return "", lastErr
}
