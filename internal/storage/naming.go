package storage

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
)

// Namer produces collision-resistant stored names of the form
// "{stamp}_{base}{ext}". The stamp is wall-clock milliseconds, bumped so that
// it strictly increases within the process.
type Namer struct {
	last atomic.Int64
	now  func() time.Time
}

// NewNamer creates a Namer using the wall clock
func NewNamer() *Namer {
	return &Namer{now: time.Now}
}

func (n *Namer) stamp() int64 {
	for {
		last := n.last.Load()
		next := n.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if n.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// StoredName returns a fresh stored name for a user-supplied file name
func (n *Namer) StoredName(original string) string {
	base, ext := SplitName(original)
	return strconv.FormatInt(n.stamp(), 10) + "_" + base + ext
}

// SplitName reduces a user-supplied name to an ASCII alphanumeric base and a
// sanitized extension. Directory components are dropped; an empty base becomes "file".
func SplitName(original string) (base, ext string) {
	name := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}

	ext = filepath.Ext(name)
	base = keepAlnum(strings.TrimSuffix(name, ext))
	if base == "" {
		base = "file"
	}

	ext = keepAlnum(strings.TrimPrefix(ext, "."))
	if ext != "" {
		ext = "." + strings.ToLower(ext)
	}
	return base, ext
}

func keepAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
