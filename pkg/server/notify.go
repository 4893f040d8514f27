package server

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/ManouchehrRasoulli/hotserve/pkg/protocol"
)

// handleNotify streams change events until the client goes away. Each
// connection owns a bounded queue; a client that lets it fill up is
// disconnected so the hub never waits on it.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	s.metrics.request(endpointNotify)

	if _, ok := w.(http.Flusher); !ok {
		writeText(w, http.StatusInternalServerError, ErrStreamingUnsupported.Error())
		return
	}
	if err := s.hub.Arm(); err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", protocol.ContentTypeEventStream)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, protocol.NotifyComment); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	events := make(chan internal.WatchEvent, s.cfg.Notify.Buffer)
	overflow := make(chan struct{})
	var once sync.Once

	id := s.hub.Subscribe(func(e internal.WatchEvent) {
		select {
		case events <- e:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer s.hub.Unsubscribe(id)

	s.metrics.streams.Inc()
	defer s.metrics.streams.Dec()

	lg := s.logger.With().Str("listener", id.String()).Logger()
	lg.Debug().Msg("server :: notify stream opened")
	defer lg.Debug().Msg("server :: notify stream closed")

	var keepAlive <-chan time.Time
	if s.cfg.Notify.KeepAlive > 0 {
		ticker := time.NewTicker(s.cfg.Notify.KeepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-overflow:
			s.metrics.dropped.Inc()
			lg.Warn().Int("buffer", s.cfg.Notify.Buffer).Msg("server :: notify client too slow, dropping")
			return
		case e := <-events:
			if err := protocol.WriteNotify(w, e); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-keepAlive:
			if _, err := io.WriteString(w, protocol.KeepAlive); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
