package views

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
)

// Extension is appended to view names by the page engine
const Extension = ".html"

//go:embed templates
var templatesFS embed.FS

// Templates returns the template tree rooted at the templates directory
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// ReadTemplate returns the raw bytes of the named template
func ReadTemplate(name string) ([]byte, error) {
	return fs.ReadFile(Templates(), name)
}

// New returns the Django syntax page engine over the embedded templates
func New() *django.Engine {
	return NewFromFS(Templates())
}

// NewFromFS returns a page engine over an arbitrary template tree
func NewFromFS(templates fs.FS) *django.Engine {
	engine := django.NewFileSystem(http.FS(templates), Extension)
	engine.AddFunc("lower", strings.ToLower)
	return engine
}

// TemplateRecorder reports the templates rendered since the last Reset
type TemplateRecorder interface {
	Reset()
	Names() []string
}

// Recorder wraps a fiber.Views engine and records every rendered template
type Recorder struct {
	fiber.Views

	mu    sync.Mutex
	names []string
}

var (
	_ fiber.Views      = (*Recorder)(nil)
	_ TemplateRecorder = (*Recorder)(nil)
)

func NewRecorder(engine fiber.Views) *Recorder {
	return &Recorder{Views: engine}
}

func (r *Recorder) Render(out io.Writer, name string, binding any, layout ...string) error {
	r.record(name)
	for _, l := range layout {
		if l != "" {
			r.record(l)
		}
	}
	return r.Views.Render(out, name, binding, layout...)
}

func (r *Recorder) record(name string) {
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = nil
}

// Used reports whether name was rendered since the last Reset
func (r *Recorder) Used(name string) bool {
	for _, n := range r.Names() {
		if n == name {
			return true
		}
	}
	return false
}
