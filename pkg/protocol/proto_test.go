package protocol

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/stretchr/testify/require"
)

func TestWriteNotify(t *testing.T) {
	var b bytes.Buffer
	err := WriteNotify(&b, internal.WatchEvent{Kind: internal.KindModify, Path: "src/app.js"})
	require.NoError(t, err)
	require.Equal(t, "event: fs-notify\ndata: {\"type\":\"modify\",\"name\":\"/src/app.js\"}\n\n", b.String())
}

func TestGlobDelimiter(t *testing.T) {
	require.Equal(t, "\n\n---a.txt---\n\n", GlobDelimiter("a.txt"))
}

func TestReadNotify(t *testing.T) {
	var b bytes.Buffer
	b.WriteString(NotifyComment)
	b.WriteString(KeepAlive)
	b.WriteString("event: other\ndata: {}\n\n")
	require.NoError(t, WriteNotify(&b, internal.WatchEvent{Kind: internal.KindCreate, Path: "a.js"}))
	require.NoError(t, WriteNotify(&b, internal.WatchEvent{Kind: internal.KindRemove, Path: "css/b.css"}))

	r := bufio.NewReader(&b)
	e, err := ReadNotify(r)
	require.NoError(t, err)
	require.Equal(t, internal.WatchEvent{Kind: internal.KindCreate, Path: "a.js"}, e)

	e, err = ReadNotify(r)
	require.NoError(t, err)
	require.Equal(t, internal.WatchEvent{Kind: internal.KindRemove, Path: "css/b.css"}, e)

	_, err = ReadNotify(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadNotify_Malformed(t *testing.T) {
	_, err := ReadNotify(bufio.NewReader(strings.NewReader("event: fs-notify\ndata: {\n\n")))
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestSplitGlob(t *testing.T) {
	body := `["a.txt","b.txt"]` + GlobDelimiter("a.txt") + "AAA" + GlobDelimiter("b.txt") + "BBB"
	files, err := SplitGlob([]byte(body))
	require.NoError(t, err)
	require.Equal(t, []GlobFile{
		{Name: "a.txt", Content: []byte("AAA")},
		{Name: "b.txt", Content: []byte("BBB")},
	}, files)

	files, err = SplitGlob([]byte(EmptyList))
	require.NoError(t, err)
	require.Empty(t, files)

	// an unreadable file leaves its delimiter with no content
	files, err = SplitGlob([]byte(`["a.txt","b.txt"]` + GlobDelimiter("a.txt") + GlobDelimiter("b.txt") + "BBB"))
	require.NoError(t, err)
	require.Empty(t, files[0].Content)
	require.Equal(t, "BBB", string(files[1].Content))
}

func TestSplitGlob_ContentHoldsLaterDelimiter(t *testing.T) {
	notes := "see below" + GlobDelimiter("b.txt") + "quoted"
	body := `["a.md","b.txt"]` + GlobDelimiter("a.md") + notes + GlobDelimiter("b.txt") + "BBB"

	files, err := SplitGlob([]byte(body))
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, notes, string(files[0].Content))
	require.Equal(t, "BBB", string(files[1].Content))
}

func TestSplitGlob_Malformed(t *testing.T) {
	_, err := SplitGlob([]byte("not json"))
	require.ErrorIs(t, err, ErrMalformedGlob)

	_, err = SplitGlob([]byte(`["a.txt"]` + "AAA"))
	require.ErrorIs(t, err, ErrMalformedGlob)

	_, err = SplitGlob([]byte(`["a.txt","b.txt"]` + GlobDelimiter("a.txt") + "AAA"))
	require.ErrorIs(t, err, ErrMalformedGlob)

	_, err = SplitGlob([]byte(`["a.txt"]` + "junk" + GlobDelimiter("a.txt") + "AAA"))
	require.ErrorIs(t, err, ErrMalformedGlob)
}
