// Package fonts resolves text runs to OpenType faces, measures them and
// draws them. The Go font family is embedded as the fallback for every
// family name; real TTF/OTF files can be added from a directory.
package fonts

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// LineHeight is the box height of a single text line relative to its size.
const LineHeight = 1.16

// Families offered to users when picking a watermark font.
var Families = []string{"Times New Roman", "Arial", "Courier", "New Georgia", "Verdana"}

type faceKey struct {
	family string
	size   float64
	bold   bool
}

// lockedFace serialises access to a face; opentype faces keep scratch
// buffers and are not safe for concurrent use.
type lockedFace struct {
	mu   sync.Mutex
	face font.Face
}

// Book is a concurrency-safe font registry with a face cache.
type Book struct {
	mu    sync.RWMutex
	fonts map[string]*opentype.Font
	faces map[faceKey]*lockedFace
}

// NewBook loads the embedded Go fonts and, when dir is not empty, every
// .ttf/.otf file in it keyed by lower-cased file stem ("arial.ttf" serves
// "Arial", "arial-bold.ttf" its bold variant).
func NewBook(dir string) (*Book, error) {
	b := &Book{
		fonts: make(map[string]*opentype.Font),
		faces: make(map[faceKey]*lockedFace),
	}

	embedded := map[string][]byte{
		"go":           goregular.TTF,
		"go-bold":      gobold.TTF,
		"go mono":      gomono.TTF,
		"go mono-bold": gomonobold.TTF,
	}
	for name, data := range embedded {
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded font %q: %w", name, err)
		}
		b.fonts[name] = f
	}

	if dir == "" {
		return b, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read font dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read font %q: %w", e.Name(), err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %q: %w", e.Name(), err)
		}
		b.fonts[strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))] = f
	}

	return b, nil
}

// resolve picks the font for a family: an exact file match first, then the
// embedded monospace font for courier-like names, then Go sans.
func (b *Book) resolve(family string, bold bool) *opentype.Font {
	name := strings.ToLower(strings.TrimSpace(family))
	suffix := ""
	if bold {
		suffix = "-bold"
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if f, ok := b.fonts[name+suffix]; ok {
		return f
	}
	if f, ok := b.fonts[name]; ok {
		return f
	}
	if strings.Contains(name, "courier") || strings.Contains(name, "mono") {
		return b.fonts["go mono"+suffix]
	}
	return b.fonts["go"+suffix]
}

func (b *Book) face(family string, size float64, bold bool) (*lockedFace, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	key := faceKey{family: strings.ToLower(strings.TrimSpace(family)), size: size, bold: bold}

	b.mu.RLock()
	lf, ok := b.faces[key]
	b.mu.RUnlock()
	if ok {
		return lf, nil
	}

	f, err := opentype.NewFace(b.resolve(family, bold), &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.faces[key]; ok {
		return prev, nil
	}
	lf = &lockedFace{face: f}
	b.faces[key] = lf
	return lf, nil
}

// WithFace runs fn while holding the face for (family, size, bold).
func (b *Book) WithFace(family string, size float64, bold bool, fn func(font.Face) error) error {
	lf, err := b.face(family, size, bold)
	if err != nil {
		return err
	}
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return fn(lf.face)
}
