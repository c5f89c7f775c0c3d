// Package app provides the command orchestrator, its configuration, and events.
package app

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"tourist-remover/internal/alignment"
	"tourist-remover/internal/blend"
	imgpkg "tourist-remover/internal/image"
	"tourist-remover/internal/mask"
	"tourist-remover/internal/raster"
	"tourist-remover/pkg/geometry"
)

var (
	// ErrNoSource means a command needs images but nothing was loaded.
	ErrNoSource = errors.New("no images loaded")

	// ErrSkipped means the secondary failed to align earlier and is skipped.
	ErrSkipped = errors.New("secondary skipped")
)

// Aligner registers a secondary image into the primary's frame.
type Aligner interface {
	Align(primary, secondary *raster.Image) (*alignment.Result, error)
}

// State holds the loaded photographs, the running composite, and the
// per-secondary alignment cache.
type State struct {
	mu sync.RWMutex

	Config Config

	aligner Aligner
	blender *blend.Blender

	source  *imgpkg.Source
	result  *raster.Image
	aligned map[int]*alignment.Result
	skipped map[int]error

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventSourceLoaded EventType = iota
	EventAligned
	EventAlignmentSkipped
	EventBlended
	EventSaved
	EventPreviewWritten
	EventHighlightWritten
	EventReset
)

func (e EventType) String() string {
	switch e {
	case EventSourceLoaded:
		return "source-loaded"
	case EventAligned:
		return "aligned"
	case EventAlignmentSkipped:
		return "alignment-skipped"
	case EventBlended:
		return "blended"
	case EventSaved:
		return "saved"
	case EventPreviewWritten:
		return "preview-written"
	case EventHighlightWritten:
		return "highlight-written"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a new application state.
func NewState(cfg Config, aligner Aligner) *State {
	return &State{
		Config:    cfg,
		aligner:   aligner,
		blender:   blend.New(cfg.BlendOptions()),
		aligned:   make(map[int]*alignment.Result),
		skipped:   make(map[int]error),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Source returns the loaded photographs, or nil.
func (s *State) Source() *imgpkg.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Result returns the running composite, or nil before a load.
func (s *State) Result() *raster.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Skipped reports whether secondary n failed to align.
func (s *State) Skipped(n int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.skipped[n]
	return ok
}

// LoadSource loads a folder and starts a fresh composite from its primary.
func (s *State) LoadSource(dir string) error {
	src, err := imgpkg.LoadFolder(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.source = src
	s.result = src.Primary.Image.Clone()
	s.aligned = make(map[int]*alignment.Result)
	s.skipped = make(map[int]error)
	s.mu.Unlock()

	s.Emit(EventSourceLoaded, fmt.Sprintf("%s (%d secondaries)", dir, len(src.Secondaries)))
	return nil
}

// Align registers secondary n into the primary's frame and caches the result.
// An alignment failure marks n as skipped; later blends of n are refused with
// ErrSkipped. With ShowIntermediate set, a fresh alignment also writes its
// highlight images and a write failure is returned.
func (s *State) Align(n int) (*alignment.Result, error) {
	res, fresh, err := s.align(n)
	if err != nil {
		return nil, err
	}
	if fresh && s.Config.ShowIntermediate {
		if err := s.writeHighlights(n, res, s.Config.IntermediateDir); err != nil {
			return res, err
		}
	}
	return res, nil
}

// align returns the cached alignment of n or computes it. fresh is true when
// the aligner ran.
func (s *State) align(n int) (res *alignment.Result, fresh bool, err error) {
	s.mu.RLock()
	src := s.source
	cached := s.aligned[n]
	s.mu.RUnlock()

	if src == nil {
		return nil, false, ErrNoSource
	}
	if cached != nil {
		return cached, false, nil
	}
	frame, err := src.Secondary(n)
	if err != nil {
		return nil, false, err
	}

	res, err = s.aligner.Align(src.Primary.Image, frame.Image)
	if err != nil {
		if errors.Is(err, alignment.ErrAlignment) {
			s.mu.Lock()
			s.skipped[n] = err
			s.mu.Unlock()
			s.Emit(EventAlignmentSkipped, n)
		}
		return nil, false, fmt.Errorf("align secondary %d: %w", n, err)
	}

	s.mu.Lock()
	s.aligned[n] = res
	delete(s.skipped, n)
	s.mu.Unlock()
	s.Emit(EventAligned, n)
	return res, true, nil
}

// Blend replaces rect of the running composite with the same region of
// aligned secondary n, pyramid-blended across the seam. The composite is the
// white (base) input, the aligned secondary the black one.
func (s *State) Blend(n int, rect geometry.RectInt) error {
	s.mu.RLock()
	skipErr, skipped := s.skipped[n]
	base := s.result
	s.mu.RUnlock()

	if base == nil {
		return ErrNoSource
	}
	if skipped {
		return fmt.Errorf("blend secondary %d: %w (%v)", n, ErrSkipped, skipErr)
	}

	res, fresh, err := s.align(n)
	if err != nil {
		return err
	}
	if fresh && s.Config.ShowIntermediate {
		if err := s.writeHighlights(n, res, s.Config.IntermediateDir); err != nil {
			log.Printf("blend secondary %d: intermediate highlights: %v", n, err)
		}
	}

	if c := patchCoverage(res.Aligned, rect); c < 1 {
		log.Printf("blend secondary %d: only %.0f%% of patch %dx%d+%d+%d is covered",
			n, 100*c, rect.Width, rect.Height, rect.X, rect.Y)
	}

	m := mask.FromRect(base.Height, base.Width, rect)
	out, err := s.blender.Blend(base, res.Aligned, m)
	if err != nil {
		return fmt.Errorf("blend secondary %d: %w", n, err)
	}

	s.mu.Lock()
	s.result = out
	s.mu.Unlock()
	s.Emit(EventBlended, rect)
	return nil
}

// Save writes the running composite.
func (s *State) Save(path string) error {
	result := s.Result()
	if result == nil {
		return ErrNoSource
	}
	if err := imgpkg.Save(path, result); err != nil {
		return err
	}
	s.Emit(EventSaved, path)
	return nil
}

// Preview writes a downscaled copy of the composite, outlining rect if given.
func (s *State) Preview(path string, rect *geometry.RectInt) error {
	result := s.Result()
	if result == nil {
		return ErrNoSource
	}

	img := result.ToImage()
	if rect != nil {
		outlined, err := imgpkg.OutlinePatch(result, *rect, s.Config.outline(), 2)
		if err != nil {
			return err
		}
		img = outlined
	}
	if err := imgpkg.SaveImage(path, imgpkg.Fit(img, s.Config.Preview.MaxSide)); err != nil {
		return err
	}
	s.Emit(EventPreviewWritten, path)
	return nil
}

// Highlight aligns secondary n if needed and writes its coverage overlays
// into dir.
func (s *State) Highlight(n int, dir string) error {
	res, err := s.Align(n)
	if err != nil {
		return err
	}
	return s.writeHighlights(n, res, dir)
}

func (s *State) writeHighlights(n int, res *alignment.Result, dir string) error {
	src := s.Source()
	if src == nil {
		return ErrNoSource
	}

	hl, merged, err := imgpkg.Highlight(src.Primary.Image, res.Aligned, s.Config.tint())
	if err != nil {
		return fmt.Errorf("highlight secondary %d: %w", n, err)
	}
	files := map[string]*raster.Image{
		fmt.Sprintf("highlight-%d.png", n):        hl,
		fmt.Sprintf("highlight-merged-%d.png", n): merged,
	}
	for name, img := range files {
		if err := imgpkg.Save(filepath.Join(dir, name), img); err != nil {
			return err
		}
	}
	s.Emit(EventHighlightWritten, dir)
	return nil
}

// Reset discards the composite and alignment cache, restarting from the
// primary.
func (s *State) Reset() error {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return ErrNoSource
	}
	s.result = s.source.Primary.Image.Clone()
	s.aligned = make(map[int]*alignment.Result)
	s.skipped = make(map[int]error)
	s.mu.Unlock()

	s.Emit(EventReset, nil)
	return nil
}

// patchCoverage returns the fraction of rect (clipped to the image) where
// aligned carries data.
func patchCoverage(aligned *raster.Image, rect geometry.RectInt) float64 {
	x0, y0 := max(rect.X, 0), max(rect.Y, 0)
	x1 := min(rect.X+rect.Width, aligned.Width-1)
	y1 := min(rect.Y+rect.Height, aligned.Height-1)
	if x1 < x0 || y1 < y0 {
		return 1
	}

	covered, total := 0, 0
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			total++
			if aligned.HasData(y, x) {
				covered++
			}
		}
	}
	return float64(covered) / float64(total)
}
