package internal

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Op is the raw operation reported by the filesystem watch primitive.
// Bits mirror fsnotify.Op so conversion is a plain cast.
type Op uint32

const (
	Create Op = Op(fsnotify.Create)
	Write  Op = Op(fsnotify.Write)
	Remove Op = Op(fsnotify.Remove)
	Rename Op = Op(fsnotify.Rename)
	Chmod  Op = Op(fsnotify.Chmod)
)

// Event is a raw watch event. Name is relative to the watched root and
// uses forward slashes.
type Event struct {
	Name string
	Op   Op
}

func (op Op) String() string {
	var b strings.Builder
	if op.Has(Create) {
		b.WriteString("|CREATE")
	}
	if op.Has(Remove) {
		b.WriteString("|REMOVE")
	}
	if op.Has(Write) {
		b.WriteString("|WRITE")
	}
	if op.Has(Rename) {
		b.WriteString("|RENAME")
	}
	if op.Has(Chmod) {
		b.WriteString("|CHMOD")
	}
	if b.Len() == 0 {
		return "[no events]"
	}
	return b.String()[1:]
}

func (op Op) Has(h Op) bool { return op&h == h }

func (e Event) Has(op Op) bool { return e.Op.Has(op) }

func (e Event) String() string {
	return fmt.Sprintf("%-13s %q", e.Op.String(), e.Name)
}

// Kind is the classified change kind delivered to clients.
type Kind string

const (
	KindCreate Kind = "create"
	KindModify Kind = "modify"
	KindRemove Kind = "remove"
	KindRename Kind = "rename"
)

// WatchEvent is a classified event whose Path always passes Accepts.
type WatchEvent struct {
	Kind Kind
	Path string
}

func (e WatchEvent) String() string {
	return fmt.Sprintf("%-7s %q", e.Kind, e.Path)
}

// Classify maps a raw op to the kind sent to listeners. A plain write is
// the generic "changed" case and becomes KindModify. Attribute-only
// changes are not reported.
func Classify(op Op) (Kind, bool) {
	switch {
	case op.Has(Remove):
		return KindRemove, true
	case op.Has(Rename):
		return KindRename, true
	case op.Has(Create):
		return KindCreate, true
	case op.Has(Write):
		return KindModify, true
	default:
		return "", false
	}
}
