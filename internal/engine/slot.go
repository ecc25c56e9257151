package engine

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/scene"
)

// ErrSuperseded is returned for work whose slot has since been taken by a
// newer request. Its result must be dropped.
var ErrSuperseded = errors.New("render superseded by a newer request")

// SceneEncoder encodes a scene honouring ctx. *EncoderPool implements it.
type SceneEncoder interface {
	Export(ctx context.Context, sc *scene.Scene, opts imageproc.ExportOptions) (*imageproc.Encoded, error)
}

// Ticket identifies one request issued against a Slot.
type Ticket struct {
	seq uint64
	key string
}

// Slot serialises interactive renders for a single view. Every Begin
// invalidates the tickets issued before it and cancels their contexts, so
// only the latest request can deliver a result. The decoded source image is
// kept while the image key stays the same.
type Slot struct {
	renderer *Renderer
	encoder  SceneEncoder

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	imageKey string
	decoded  image.Image
}

// NewSlot binds a slot to r. With a nil encoder Render encodes on the
// calling goroutine.
func NewSlot(r *Renderer, enc SceneEncoder) *Slot {
	return &Slot{renderer: r, encoder: enc}
}

// Begin issues a new ticket and cancels the previous one.
func (s *Slot) Begin(ctx context.Context, imageKey string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	s.cancel = cancel
	return ctx, Ticket{seq: s.seq, key: imageKey}
}

// Accept reports whether t is still the latest ticket.
func (s *Slot) Accept(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.seq == s.seq
}

// Compose runs layout for req in the slot. A result produced after a newer
// Begin is discarded with ErrSuperseded.
func (s *Slot) Compose(ctx context.Context, req Request) (*Composition, error) {
	ctx, t := s.Begin(ctx, req.ImageKey)
	return s.compose(ctx, t, req)
}

func (s *Slot) compose(ctx context.Context, t Ticket, req Request) (*Composition, error) {
	img, err := s.source(t, req)
	if err != nil {
		return nil, err
	}
	if !s.Accept(t) {
		return nil, ErrSuperseded
	}

	comp, err := s.renderer.compose(ctx, img, req)
	if !s.Accept(t) {
		return nil, ErrSuperseded
	}
	return comp, err
}

// Render composes and encodes in the slot. The encoded result is dropped
// with ErrSuperseded if a newer request began meanwhile.
func (s *Slot) Render(ctx context.Context, req Request) (*Result, error) {
	ctx, t := s.Begin(ctx, req.ImageKey)

	comp, err := s.compose(ctx, t, req)
	if err != nil {
		return nil, err
	}

	res, err := encodeWith(ctx, s.renderer, s.encoder, comp, req.Multiplier)
	if !s.Accept(t) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// source returns the decoded image for the ticket, reusing the previous
// decode when the key is unchanged.
func (s *Slot) source(t Ticket, req Request) (image.Image, error) {
	s.mu.Lock()
	if t.key != "" && t.key == s.imageKey && s.decoded != nil {
		img := s.decoded
		s.mu.Unlock()
		return img, nil
	}
	s.mu.Unlock()

	img, err := imageproc.DecodeBytes(req.Image, req.ImageKey)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if t.seq == s.seq {
		s.imageKey, s.decoded = t.key, img
	}
	s.mu.Unlock()
	return img, nil
}

// SlotSet hands out one Slot per preview session. When full, the least
// recently used session is dropped.
type SlotSet struct {
	renderer *Renderer
	encoder  SceneEncoder
	capacity int

	mu    sync.Mutex
	slots map[string]*slotEntry
	clock uint64
}

type slotEntry struct {
	slot     *Slot
	lastUsed uint64
}

func NewSlotSet(r *Renderer, enc SceneEncoder, capacity int) *SlotSet {
	if capacity < 1 {
		capacity = 1
	}
	return &SlotSet{renderer: r, encoder: enc, capacity: capacity, slots: make(map[string]*slotEntry)}
}

// Slot returns the slot of session, creating it on first use.
func (ss *SlotSet) Slot(session string) *Slot {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.clock++
	if e, ok := ss.slots[session]; ok {
		e.lastUsed = ss.clock
		return e.slot
	}

	if len(ss.slots) >= ss.capacity {
		var oldest string
		var oldestUse uint64
		for k, e := range ss.slots {
			if oldestUse == 0 || e.lastUsed < oldestUse {
				oldest, oldestUse = k, e.lastUsed
			}
		}
		delete(ss.slots, oldest)
	}

	e := &slotEntry{slot: NewSlot(ss.renderer, ss.encoder), lastUsed: ss.clock}
	ss.slots[session] = e
	return e.slot
}

// Render runs req in the slot of session. A blank session renders on its
// own, outside every slot, so it neither supersedes nor is superseded.
func (ss *SlotSet) Render(ctx context.Context, session string, req Request) (*Result, error) {
	if session == "" {
		comp, err := ss.renderer.Compose(ctx, req)
		if err != nil {
			return nil, err
		}
		return encodeWith(ctx, ss.renderer, ss.encoder, comp, req.Multiplier)
	}
	return ss.Slot(session).Render(ctx, req)
}

// encodeWith exports comp on enc, or synchronously when enc is nil.
func encodeWith(ctx context.Context, r *Renderer, enc SceneEncoder, comp *Composition, multiplier float64) (*Result, error) {
	if enc == nil {
		return r.export(ctx, comp, multiplier)
	}
	out, err := enc.Export(ctx, comp.Scene, imageproc.ExportOptions{Multiplier: multiplier})
	if err != nil {
		return nil, err
	}
	return &Result{Composition: *comp, Encoded: out}, nil
}
