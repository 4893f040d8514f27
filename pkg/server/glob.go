package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/ManouchehrRasoulli/hotserve/pkg/glob"
	"github.com/ManouchehrRasoulli/hotserve/pkg/protocol"
)

// globStream walks the matched names of one response. At most one file is
// open at any time.
type globStream struct {
	names   []string
	cursor  int
	name    string
	current *internal.ServedFile
	err     error
	open    func(name string) (*internal.ServedFile, error)
}

func newGlobStream(names []string, open func(name string) (*internal.ServedFile, error)) *globStream {
	return &globStream{names: names, open: open}
}

// Next closes the current file and opens the next one.
func (g *globStream) Next() bool {
	g.release()
	if g.cursor >= len(g.names) {
		return false
	}
	g.name = g.names[g.cursor]
	g.cursor++
	g.current, g.err = g.open(g.name)
	return true
}

func (g *globStream) Name() string {
	return g.name
}

func (g *globStream) File() (*internal.ServedFile, error) {
	return g.current, g.err
}

func (g *globStream) release() {
	if g.current != nil {
		_ = g.current.Close()
		g.current = nil
	}
	g.err = nil
}

func (g *globStream) Close() {
	g.release()
	g.cursor = len(g.names)
}

func (s *Server) handleGlob(w http.ResponseWriter, r *http.Request) {
	s.metrics.request(endpointGlob)

	pattern := r.URL.Query().Get(protocol.GlobPatternParam)
	if pattern == "" {
		writeBody(w, http.StatusOK, protocol.ContentTypeGlob, []byte(protocol.EmptyList))
		return
	}

	names, err := s.files.List()
	if err != nil {
		s.logger.Error().Err(err).Str("pattern", pattern).Msg("server :: glob listing failed")
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	m := glob.Compile(pattern)
	matched := make([]string, 0)
	for _, name := range names {
		if m.Match(name) {
			matched = append(matched, name)
		}
	}
	if len(matched) == 0 {
		writeBody(w, http.StatusOK, protocol.ContentTypeGlob, []byte(protocol.EmptyList))
		return
	}

	list, err := json.Marshal(matched)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", protocol.ContentTypeGlob)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(list); err != nil {
		return
	}
	_ = rc.Flush()

	stream := newGlobStream(matched, s.files.Open)
	defer stream.Close()

	for stream.Next() {
		if _, err = io.WriteString(w, protocol.GlobDelimiter(stream.Name())); err != nil {
			return
		}

		f, err := stream.File()
		if err != nil {
			// removed since listing; keep the delimiter so the client stays aligned
			s.logger.Warn().Err(err).Str("file", stream.Name()).Msg("server :: glob open failed")
			continue
		}
		if err = pump(r.Context(), w, rc, f); err != nil {
			s.logger.Debug().Err(err).Str("pattern", pattern).Msg("server :: glob stream ended early")
			return
		}
		s.metrics.globFiles.Inc()
	}
}
