package filehandler

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound   = internal.ErrNotFound
	ErrNoisePath  = fmt.Errorf("%w: well-known path", internal.ErrNotFound)
	ErrFilesystem = errors.New("filesystem error")
)

const (
	ServiceWorkerPath   = "/sw.js"
	ServiceWorkerScript = `import hot from "https://esm.sh/v135/hot";hot.listen();`
)

// noisePaths are requested by browsers and crawlers on their own. They
// never fall through to the fallback chain.
var noisePaths = map[string]struct{}{
	"/apple-touch-icon-precomposed.png": {},
	"/apple-touch-icon.png":             {},
	"/robots.txt":                       {},
	"/favicon.ico":                      {},
}

type Opener func(name string) (*internal.ServedFile, error)

type Option func(h *Handler)

// WithOpener replaces the file-open primitive.
func WithOpener(open Opener) Option {
	return func(h *Handler) {
		h.open = open
	}
}

// Handler resolves request paths and lists files below root.
type Handler struct {
	root     string
	fallback string
	open     Opener
	logger   zerolog.Logger
}

func NewHandler(root string, fallback string, logger zerolog.Logger, options ...Option) (*Handler, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, errors.Join(ErrFilesystem, err)
	}
	if !fi.IsDir() {
		return nil, errors.Join(ErrFilesystem, fmt.Errorf("%s is not a directory", root))
	}

	h := Handler{
		root:     root,
		fallback: strings.TrimPrefix(fallback, "/"),
		open:     internal.Open,
		logger:   logger,
	}
	for _, op := range options {
		op(&h)
	}

	h.logger.Debug().Str("root", root).Str("fallback", h.fallback).Msg("handler :: new")
	return &h, nil
}

func (h *Handler) Root() string {
	return h.root
}

// List walks root depth-first and returns every accepted file path
// relative to root. Hidden directories are skipped entirely. Nothing is
// cached; each call walks the filesystem again.
func (h *Handler) List() ([]string, error) {
	files := make([]string, 0)
	if err := h.readDir(h.root, "", &files); err != nil {
		return nil, errors.Join(ErrFilesystem, err)
	}
	return files, nil
}

func (h *Handler) readDir(dir string, prefix string, files *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if prefix != "" {
			name = prefix + "/" + name
		}
		if !internal.Accepts(name) {
			continue
		}

		if entry.IsDir() {
			if err = h.readDir(filepath.Join(dir, entry.Name()), name, files); err != nil {
				return err
			}
			continue
		}
		*files = append(*files, name)
	}

	return nil
}

// Open opens a root-relative name without any fallback.
func (h *Handler) Open(name string) (*internal.ServedFile, error) {
	return h.open(h.join(name))
}

// Resolve finds the file served for a request path. Paths with a hidden
// segment are not found. Otherwise the lookup order is:
// the path itself (only when its last segment has a dot), the generated
// service worker, the noise-path short circuit, then p.html, p/index.html,
// /404.html and finally the configured fallback page.
func (h *Handler) Resolve(reqPath string) (*internal.ServedFile, error) {
	p := "/" + strings.TrimPrefix(reqPath, "/")

	// hidden paths are never exposed, not even through the fallbacks
	if !internal.Accepts(strings.TrimPrefix(path.Clean(p), "/")) {
		return nil, ErrNotFound
	}

	if strings.Contains(path.Base(p), ".") {
		f, err := h.open(h.join(p))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrNotFound) {
			h.logger.Warn().Err(err).Str("path", p).Msg("handler :: open failed")
		}
	}

	if p == ServiceWorkerPath {
		return serviceWorker(), nil
	}

	if _, ok := noisePaths[p]; ok {
		return nil, ErrNoisePath
	}

	for _, candidate := range h.fallbacks(p) {
		f, err := h.open(h.join(candidate))
		if err == nil {
			h.logger.Debug().Str("path", p).Str("file", candidate).Msg("handler :: fallback")
			return f, nil
		}
	}

	return nil, ErrNotFound
}

func (h *Handler) fallbacks(p string) []string {
	list := []string{
		p + ".html",
		p + "/index.html",
		"/404.html",
	}
	if h.fallback != "" {
		list = append(list, "/"+h.fallback)
	}
	return list
}

// join maps a slash separated request path onto root. The path is cleaned
// first so it can never climb above root.
func (h *Handler) join(p string) string {
	clean := path.Clean("/" + p)
	return filepath.Join(h.root, filepath.FromSlash(clean))
}

func serviceWorker() *internal.ServedFile {
	body := strings.NewReader(ServiceWorkerScript)
	return internal.NewServedFile("application/javascript; charset=utf-8", body.Size(), time.Now(), body, nil)
}
