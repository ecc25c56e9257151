// Package scene describes a composition as layers of positioned groups,
// text runs and images, independent of how it was laid out or will be drawn.
//
// A Scene is built fresh for every render and must not be changed once it
// is handed to the compositor. Image assets are shared between scenes and
// are never written to.
package scene

import (
	"image"
	"math"
)

type Kind int

const (
	KindText Kind = iota
	KindImage
)

// TextRun is a single line of text drawn with one font and color.
type TextRun struct {
	Content    string
	FontFamily string
	FontSizePx float64
	Color      string
	Bold       bool
}

// Shadow is a blurred silhouette drawn beneath an image.
type Shadow struct {
	Color   string
	Blur    float64
	OffsetX float64
	OffsetY float64
}

// ImageRef places a shared image asset at a uniform scale. Blur is a
// relative strength in [0, 1]; zero draws the asset sharp.
type ImageRef struct {
	Handle string
	Asset  image.Image
	Scale  float64
	Blur   float64
	Shadow *Shadow
}

// NaturalWidth is the unscaled asset width.
func (r ImageRef) NaturalWidth() float64 {
	if r.Asset == nil {
		return 0
	}
	return float64(r.Asset.Bounds().Dx())
}

// NaturalHeight is the unscaled asset height.
func (r ImageRef) NaturalHeight() float64 {
	if r.Asset == nil {
		return 0
	}
	return float64(r.Asset.Bounds().Dy())
}

// Element is either a text run or an image, with an offset local to its
// group (or layer) and its derived size.
type Element struct {
	Kind   Kind
	Text   TextRun
	Image  ImageRef
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// NewText returns a text element with an already measured size.
func NewText(run TextRun, width, height float64) Element {
	return Element{Kind: KindText, Text: run, Width: width, Height: height}
}

// NewImage returns an image element sized from its asset and scale.
func NewImage(ref ImageRef) Element {
	return Element{
		Kind:   KindImage,
		Image:  ref,
		Width:  ref.NaturalWidth() * ref.Scale,
		Height: ref.NaturalHeight() * ref.Scale,
	}
}

// At returns a copy of e moved to (left, top).
func (e Element) At(left, top float64) Element {
	e.Left, e.Top = left, top
	return e
}

// Group is the unit of placement. Its size is the extent of its children.
type Group struct {
	Name     string
	Left     float64
	Top      float64
	Width    float64
	Height   float64
	Elements []Element
}

// NewGroup collects elements and computes the bounding box.
func NewGroup(name string, elements ...Element) Group {
	g := Group{Name: name, Elements: elements}
	g.Fit()
	return g
}

// Add appends an element and grows the bounding box.
func (g *Group) Add(e Element) {
	g.Elements = append(g.Elements, e)
	g.Fit()
}

// Fit recomputes Width and Height from the children.
func (g *Group) Fit() {
	g.Width, g.Height = 0, 0
	for _, e := range g.Elements {
		g.Width = math.Max(g.Width, e.Left+e.Width)
		g.Height = math.Max(g.Height, e.Top+e.Height)
	}
}

// Layer is a rectangle with an optional fill, drawn in order: Base
// elements first, then Groups.
type Layer struct {
	Width      float64
	Height     float64
	Visible    bool
	Background string
	Base       []Element
	Groups     []Group
}

// Scene holds the image layer and the info strip below it.
// PrimaryNaturalWidth is the unscaled width of the source photo.
type Scene struct {
	Main                Layer
	Strip               Layer
	PrimaryNaturalWidth float64
}

// GroupCount returns the number of placed groups across both layers.
func (s *Scene) GroupCount() int {
	n := len(s.Main.Groups)
	if s.Strip.Visible {
		n += len(s.Strip.Groups)
	}
	return n
}

// Clone returns a deep copy of the scene structure. Assets stay shared.
func (s *Scene) Clone() *Scene {
	out := *s
	out.Main = s.Main.clone()
	out.Strip = s.Strip.clone()
	return &out
}

func (l Layer) clone() Layer {
	out := l
	out.Base = cloneElements(l.Base)
	if l.Groups != nil {
		out.Groups = make([]Group, len(l.Groups))
		for i, g := range l.Groups {
			g.Elements = cloneElements(g.Elements)
			out.Groups[i] = g
		}
	}
	return out
}

func cloneElements(in []Element) []Element {
	if in == nil {
		return nil
	}
	out := make([]Element, len(in))
	for i, e := range in {
		if e.Image.Shadow != nil {
			sh := *e.Image.Shadow
			e.Image.Shadow = &sh
		}
		out[i] = e
	}
	return out
}
