// Package imagestore maps image tags to animation frames. A frame is a
// terminal glyph: one rune plus a tcell style.
package imagestore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/minesim/model"
)

// ErrMalformedImage indicates an image-list line that cannot be parsed.
var ErrMalformedImage = errors.New("malformed image line")

// Glyph is one drawable frame.
type Glyph struct {
	Rune  rune
	Style tcell.Style
}

// Store resolves image tags to frames. Unknown tags fall back to the
// background_default frames.
type Store struct {
	mu     sync.RWMutex
	frames map[string][]Glyph
}

func glyphs(frames string, fg, bg tcell.Color) []Glyph {
	style := tcell.StyleDefault.Foreground(fg).Background(bg)
	out := make([]Glyph, 0, len(frames))
	for _, r := range frames {
		out = append(out, Glyph{Rune: r, Style: style})
	}
	return out
}

// Default returns a store with built-in frames for every entity tag and the
// stock background tiles.
func Default() *Store {
	return &Store{frames: map[string][]Glyph{
		model.DefaultImageTag: glyphs(".", tcell.ColorDarkGreen, tcell.ColorReset),
		"grass":               glyphs(",", tcell.ColorGreen, tcell.ColorReset),
		"rocks":               glyphs(":", tcell.ColorGray, tcell.ColorReset),
		"obstacle":            glyphs("#", tcell.ColorSilver, tcell.ColorReset),
		"miner":               glyphs("mMmn", tcell.ColorYellow, tcell.ColorReset),
		"ore":                 glyphs("*", tcell.ColorOrange, tcell.ColorReset),
		"blob":                glyphs("oO@O", tcell.ColorFuchsia, tcell.ColorReset),
		"vein":                glyphs("V", tcell.ColorSaddleBrown, tcell.ColorReset),
		"blacksmith":          glyphs("B", tcell.ColorWhite, tcell.ColorDarkRed),
		"quake":               glyphs("~≈", tcell.ColorRed, tcell.ColorReset),
	}}
}

// Images returns one handle per frame of tag, or the default frames when tag
// is unknown.
func (s *Store) Images(tag string) []model.ImageHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frames, ok := s.frames[tag]
	if !ok || len(frames) == 0 {
		tag = model.DefaultImageTag
		frames = s.frames[tag]
	}
	if len(frames) == 0 {
		// An empty store still has to hand out a frame.
		return []model.ImageHandle{{Tag: tag}}
	}
	out := make([]model.ImageHandle, len(frames))
	for i := range frames {
		out[i] = model.ImageHandle{Tag: tag, Frame: i}
	}
	return out
}

// Glyph resolves a handle to its frame. Handles that do not resolve render
// as '?'.
func (s *Store) Glyph(h model.ImageHandle) Glyph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frames := s.frames[h.Tag]
	if h.Frame < 0 || h.Frame >= len(frames) {
		return Glyph{Rune: '?', Style: tcell.StyleDefault}
	}
	return frames[h.Frame]
}

// Tags lists the known tags.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]string, 0, len(s.frames))
	for tag := range s.frames {
		tags = append(tags, tag)
	}
	return tags
}

// Load reads an image list and adds or replaces the tags it names. Each line
// is "tag frames [fg [bg]]": frames is a run of runes, one per frame, and the
// colours are tcell colour names or #rrggbb. Blank lines and '#' comments are
// skipped.
func (s *Store) Load(r io.Reader) error {
	loaded := make(map[string][]Glyph)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 4 {
			return fmt.Errorf("line %d: want 2 to 4 fields, got %d: %w", lineNo, len(fields), ErrMalformedImage)
		}

		fg, bg := tcell.ColorReset, tcell.ColorReset
		if len(fields) > 2 {
			c, err := parseColor(fields[2])
			if err != nil {
				return fmt.Errorf("line %d: %v: %w", lineNo, err, ErrMalformedImage)
			}
			fg = c
		}
		if len(fields) > 3 {
			c, err := parseColor(fields[3])
			if err != nil {
				return fmt.Errorf("line %d: %v: %w", lineNo, err, ErrMalformedImage)
			}
			bg = c
		}
		loaded[fields[0]] = glyphs(fields[1], fg, bg)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read images: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, frames := range loaded {
		s.frames[tag] = frames
	}
	return nil
}

// LoadFile applies the image list at path on top of the built-in frames.
func LoadFile(path string) (*Store, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open images: %w", err)
	}
	defer f.Close()
	if err := s.Load(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func parseColor(name string) (tcell.Color, error) {
	if strings.EqualFold(name, "default") || strings.EqualFold(name, "reset") {
		return tcell.ColorReset, nil
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return c, fmt.Errorf("unknown colour %q", name)
	}
	return c, nil
}
