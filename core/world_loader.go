package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/model"
)

var (
	// ErrUnknownKind indicates a world-file line with an unrecognised keyword.
	ErrUnknownKind = errors.New("unknown entity kind")
	// ErrMalformedLine indicates a world-file line with missing or non-numeric fields.
	ErrMalformedLine = errors.New("malformed world line")
)

// BackgroundLayer is implemented by worlds that keep a background layer.
type BackgroundLayer interface {
	SetBackground(pt model.Point, bg *model.Background) error
}

// BackgroundTile pairs a background with the tile it is drawn on.
type BackgroundTile struct {
	Pt         model.Point
	Background *model.Background
}

// WorldSummary counts what LoadWorld created.
type WorldSummary struct {
	Backgrounds int
	Entities    map[model.Kind]int
}

// field counts per keyword, including the keyword itself.
var lineFields = map[string]int{
	model.KeyBackground: 4,
	model.KeyObstacle:   4,
	model.KeyOre:        5,
	model.KeyVein:       6,
	model.KeyMiner:      7,
	model.KeyBlacksmith: 7,
}

// LoadWorld reads a world file from r, adds every entity to the world and
// starts each one's cycle relative to now. Blank lines and lines starting
// with '#' are skipped.
func (e *Engine) LoadWorld(ctx context.Context, r io.Reader, now model.Tick) (*WorldSummary, error) {
	summary := &WorldSummary{Entities: make(map[model.Kind]int)}
	layer, _ := e.world.(BackgroundLayer)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		want, ok := lineFields[fields[0]]
		if !ok {
			return summary, fmt.Errorf("line %d: %q: %w", lineNo, fields[0], ErrUnknownKind)
		}
		if len(fields) != want {
			return summary, fmt.Errorf("line %d: %s wants %d fields, got %d: %w", lineNo, fields[0], want, len(fields), ErrMalformedLine)
		}
		nums, err := parseInts(fields[2:])
		if err != nil {
			return summary, fmt.Errorf("line %d: %v: %w", lineNo, err, ErrMalformedLine)
		}
		if err := checkAttributes(nums[2:], now); err != nil {
			return summary, fmt.Errorf("line %d: %s %v: %w", lineNo, fields[0], err, ErrMalformedLine)
		}

		name := fields[1]
		pt := model.Pt(int(nums[0]), int(nums[1]))
		images := e.images.Images(fields[0])

		if fields[0] == model.KeyBackground {
			// Backgrounds are named after their image tag.
			bg := model.NewBackground(name, e.images.Images(name))
			if layer != nil {
				if err := layer.SetBackground(pt, bg); err != nil {
					return summary, fmt.Errorf("line %d: %w", lineNo, err)
				}
			}
			summary.Backgrounds++
			continue
		}

		var item model.GridItem
		switch fields[0] {
		case model.KeyObstacle:
			item = model.NewObstacle(name, pt, images)
		case model.KeyOre:
			item = model.NewOre(name, pt, images, model.Tick(nums[2]))
		case model.KeyVein:
			item = model.NewVein(name, pt, images, model.Tick(nums[2]), int(nums[3]))
		case model.KeyMiner:
			item = model.NewMinerNotFull(name, pt, images, model.Tick(nums[3]), int(nums[2]), model.Tick(nums[4]))
		case model.KeyBlacksmith:
			item = model.NewBlacksmith(name, pt, images, int(nums[2]), model.Tick(nums[3]), int(nums[4]))
		}

		if err := e.world.AddEntity(item); err != nil {
			return summary, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if occ, ok := item.(model.Occupant); ok {
			e.StartEntity(occ, now)
		}
		summary.Entities[item.Kind()]++
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read world: %w", err)
	}

	e.log.Info(ctx, "world loaded",
		logging.Int("backgrounds", summary.Backgrounds),
		logging.Int("entities", summary.total()),
	)
	return summary, nil
}

func (s *WorldSummary) total() int {
	n := 0
	for _, c := range s.Entities {
		n += c
	}
	return n
}

func parseInts(fields []string) ([]int64, error) {
	out := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q is not an integer", f)
		}
		out[i] = v
	}
	return out, nil
}

// checkAttributes rejects rates, limits and distances that are negative or
// that would overflow a tick once added to now.
func checkAttributes(attrs []int64, now model.Tick) error {
	for _, v := range attrs {
		if v < 0 {
			return fmt.Errorf("field %d is negative", v)
		}
		if v > math.MaxInt64-int64(now) {
			return fmt.Errorf("field %d overflows the clock", v)
		}
	}
	return nil
}

// SaveWorld writes backgrounds and then items in world-file form. Items
// without an encoding (blobs, quakes) are skipped.
func SaveWorld(w io.Writer, backgrounds []BackgroundTile, items []model.GridItem) error {
	bw := bufio.NewWriter(w)
	for _, bt := range backgrounds {
		if bt.Background == nil {
			continue
		}
		if _, err := fmt.Fprintln(bw, model.EncodeBackground(bt.Background, bt.Pt)); err != nil {
			return err
		}
	}
	for _, item := range items {
		line, ok := model.Encode(item)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
