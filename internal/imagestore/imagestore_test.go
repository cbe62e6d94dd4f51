package imagestore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/minesim/model"
)

func TestDefaultCoversEveryEntityTag(t *testing.T) {
	s := Default()
	for _, kind := range model.Kinds {
		images := s.Images(kind.ImageTag())
		if len(images) == 0 {
			t.Fatalf("no images for %s", kind)
		}
		if images[0].Tag != kind.ImageTag() {
			t.Fatalf("%s resolved to tag %q, want %q", kind, images[0].Tag, kind.ImageTag())
		}
	}
}

func TestImagesFallsBackToDefaultTag(t *testing.T) {
	s := Default()
	images := s.Images("lava")
	if len(images) != 1 || images[0].Tag != model.DefaultImageTag {
		t.Fatalf("Images(lava) = %v, want the default frames", images)
	}
}

func TestGlyphFrames(t *testing.T) {
	s := Default()
	images := s.Images("miner")
	if len(images) != 4 {
		t.Fatalf("miner frames = %d, want 4", len(images))
	}
	if g := s.Glyph(images[1]); g.Rune != 'M' {
		t.Fatalf("miner frame 1 = %q, want 'M'", g.Rune)
	}
	fg, _, _ := s.Glyph(images[0]).Style.Decompose()
	if fg != tcell.ColorYellow {
		t.Fatalf("miner fg = %v, want yellow", fg)
	}
	if g := s.Glyph(model.ImageHandle{Tag: "miner", Frame: 9}); g.Rune != '?' {
		t.Fatalf("out-of-range frame = %q, want '?'", g.Rune)
	}
}

func TestLoadOverridesAndAddsTags(t *testing.T) {
	s := Default()
	err := s.Load(strings.NewReader(`
# custom art
miner 12 blue
lava ~ red black
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if images := s.Images("miner"); len(images) != 2 {
		t.Fatalf("miner frames = %d, want 2", len(images))
	}
	lava := s.Images("lava")
	if len(lava) != 1 || lava[0].Tag != "lava" {
		t.Fatalf("lava = %v", lava)
	}
	fg, bg, _ := s.Glyph(lava[0]).Style.Decompose()
	if fg != tcell.ColorRed || bg != tcell.ColorBlack {
		t.Fatalf("lava colours = %v/%v", fg, bg)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, in := range []string{"lonely\n", "a b c d e\n", "ore * notacolour\n"} {
		if err := Default().Load(strings.NewReader(in)); !errors.Is(err, ErrMalformedImage) {
			t.Fatalf("Load(%q) err = %v, want ErrMalformedImage", in, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.txt")
	if err := os.WriteFile(path, []byte("ore $ gold\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if g := s.Glyph(s.Images("ore")[0]); g.Rune != '$' {
		t.Fatalf("ore glyph = %q, want '$'", g.Rune)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
