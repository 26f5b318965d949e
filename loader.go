package nano

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"
)

// ValidFileExtensions are the extensions Load compiles, and the ones tried when
// a template is referenced without an extension.
var ValidFileExtensions = []string{".html", ".tmpl", ".gohtml", ".txt", ".nano"}

// loader finds template sources in a filesystem and keeps their parsed form.
// It is guarded by the engine mutex.
type loader struct {
	fs     fs.FS
	prefix string
	exts   []string

	templates    map[string]*parsedTemplate
	lastLoadTime int64
}

type parsedTemplate struct {
	tmpl    *template.Template
	modTime time.Time
}

func newLoader(fsys fs.FS, prefix string, exts []string) *loader {
	return &loader{
		fs:           fsys,
		prefix:       normalizeName(prefix),
		exts:         exts,
		templates:    map[string]*parsedTemplate{},
		lastLoadTime: -1,
	}
}

// locate maps a template reference to its path in the filesystem. The name is
// tried as given, then under the prefix, each also with the known extensions
// appended when the name has none.
func (l *loader) locate(name string) (string, error) {
	clean := normalizeName(name)
	if clean == "" || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	candidates := []string{clean}
	if l.prefix != "" && l.prefix != "." {
		candidates = append(candidates, path.Join(l.prefix, clean))
	}
	if path.Ext(clean) == "" {
		for _, c := range slices.Clone(candidates) {
			for _, ext := range l.exts {
				candidates = append(candidates, c+ext)
			}
		}
	}
	for _, c := range candidates {
		if info, err := fs.Stat(l.fs, c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// get returns the parsed template at file, parsing it again when the source
// changed since it was cached.
func (l *loader) get(file string) (*template.Template, error) {
	info, err := fs.Stat(l.fs, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, file)
		}
		return nil, err
	}
	if p, ok := l.templates[file]; ok && !info.ModTime().After(p.modTime) {
		return p.tmpl, nil
	}
	p, err := l.parse(file, info.ModTime())
	if err != nil {
		return nil, err
	}
	l.templates[file] = p
	return p.tmpl, nil
}

func (l *loader) parse(file string, modTime time.Time) (*parsedTemplate, error) {
	f, err := l.fs.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(file).Funcs(template.FuncMap{directiveFunc: unbound}).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", file, err)
	}
	return &parsedTemplate{tmpl: tmpl, modTime: modTime}, nil
}

// load parses every file with a known extension. Only files modified since the
// previous load are parsed again. It returns the files it parsed.
func (l *loader) load() ([]string, error) {
	started := time.Now().UnixMilli()
	var parsed []string
	err := fs.WalkDir(l.fs, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		if !slices.Contains(l.exts, ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if _, cached := l.templates[p]; cached && info.ModTime().UnixMilli() <= l.lastLoadTime {
			return nil
		}
		t, err := l.parse(p, info.ModTime())
		if err != nil {
			return err
		}
		l.templates[p] = t
		parsed = append(parsed, p)
		return nil
	})
	if err != nil {
		return parsed, err
	}
	l.lastLoadTime = started
	return parsed, nil
}

// invalidate drops the cached parse of file.
func (l *loader) invalidate(file string) bool {
	file = normalizeName(file)
	if _, ok := l.templates[file]; !ok {
		return false
	}
	delete(l.templates, file)
	return true
}

// unbound stands in for the directive function until a render binds the real one.
func unbound(string) (any, error) {
	return nil, errNotRendering
}

// normalizeName: trim spaces and quotes, use forward slashes, drop leading
// slashes and clean the path
func normalizeName(n string) string {
	n = strings.TrimSpace(n)
	n = strings.Trim(n, `"' `)
	n = filepath.ToSlash(n)
	n = strings.TrimLeft(n, "/")
	if n == "" {
		return ""
	}
	return path.Clean(n)
}
