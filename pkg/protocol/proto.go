package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ManouchehrRasoulli/hotserve/internal"
)

/*
	client                                   server
	  GET /@hot-notify  ---------------------->
	            <--------------  : hot notify stream
	            <--------------  event: fs-notify / data: {...}   (per change)

	  GET /@hot-glob?pattern=*.js ------------>
	            <--------------  ["a.js","b.js"]
	            <--------------  \n\n---a.js---\n\n<bytes of a.js>
	            <--------------  \n\n---b.js---\n\n<bytes of b.js>
*/

const (
	NotifyPath = "/@hot-notify"
	IndexPath  = "/@hot-index"
	GlobPath   = "/@hot-glob"

	GlobPatternParam = "pattern"

	ContentTypeEventStream = "text/event-stream"
	ContentTypeGlob        = "hot/glob"
	ContentTypeJSON        = "application/json"

	NotifyEvent   = "fs-notify"
	NotifyComment = ": hot notify stream\n\n"
	KeepAlive     = ": keep-alive\n\n"

	EmptyList = "[]"
)

var (
	ErrMalformedFrame = errors.New("malformed notify frame")
	ErrMalformedGlob  = errors.New("malformed glob stream")
)

// NotifyPayload is the data line of an fs-notify frame.
type NotifyPayload struct {
	Type internal.Kind `json:"type"`
	Name string        `json:"name"`
}

// WriteNotify writes e as a server-sent event frame terminated by a blank
// line.
func WriteNotify(w io.Writer, e internal.WatchEvent) error {
	data, err := json.Marshal(NotifyPayload{Type: e.Kind, Name: "/" + e.Path})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", NotifyEvent, data)
	return err
}

// GlobDelimiter precedes the content of each file in a glob stream.
func GlobDelimiter(name string) string {
	return "\n\n---" + name + "---\n\n"
}

// ReadNotify reads frames from r until the next fs-notify event. Comment
// frames and other event types are skipped.
func ReadNotify(r *bufio.Reader) (internal.WatchEvent, error) {
	var event string
	var data strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return internal.WatchEvent{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if event == NotifyEvent && data.Len() > 0 {
				var p NotifyPayload
				if err = json.Unmarshal([]byte(data.String()), &p); err != nil {
					return internal.WatchEvent{}, errors.Join(ErrMalformedFrame, err)
				}
				return internal.WatchEvent{Kind: p.Type, Path: strings.TrimPrefix(p.Name, "/")}, nil
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

// GlobFile is one entry of a decoded glob stream.
type GlobFile struct {
	Name    string
	Content []byte
}

// SplitGlob decodes a complete glob response body. Delimiters are located
// from the end of the body backwards, so a file may contain the delimiter
// of any file streamed after it. A file containing its own delimiter is
// still cut at the last copy.
func SplitGlob(body []byte) ([]GlobFile, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var names []string
	if err := dec.Decode(&names); err != nil {
		return nil, errors.Join(ErrMalformedGlob, err)
	}

	rest := body[dec.InputOffset():]
	files := make([]GlobFile, len(names))
	end := len(rest)
	for i := len(names) - 1; i >= 0; i-- {
		delim := []byte(GlobDelimiter(names[i]))
		at := bytes.LastIndex(rest[:end], delim)
		if at < 0 {
			return nil, fmt.Errorf("%w: missing delimiter for %s", ErrMalformedGlob, names[i])
		}
		files[i] = GlobFile{Name: names[i], Content: rest[at+len(delim) : end]}
		end = at
	}
	if end != 0 {
		return nil, fmt.Errorf("%w: unexpected data before first file", ErrMalformedGlob)
	}

	return files, nil
}
