package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(576, time.UTC)
	e.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return e
}

func TestWrapRespectsWidth(t *testing.T) {
	face := basicfont.Face7x13
	maxPx := 100

	lines := wrap("the quick brown fox jumps over the lazy dog", face, maxPx)
	require.NotEmpty(t, lines)
	for _, ln := range lines {
		assert.LessOrEqual(t, textWidth(ln, face), maxPx, "line %q overflows", ln)
	}
}

func TestWrapSingleWideWord(t *testing.T) {
	face := basicfont.Face7x13
	word := "Donaudampfschifffahrtsgesellschaft"

	lines := wrap(word, face, 20)
	require.Len(t, lines, 1)
	assert.Equal(t, word, lines[0])
	assert.Greater(t, textWidth(lines[0], face), 20)
}

func TestWrapEmptyInput(t *testing.T) {
	lines := wrap("   ", basicfont.Face7x13, 100)
	assert.Equal(t, []string{""}, lines)
}

func TestRenderFloorHeight(t *testing.T) {
	e := testEngine(t)
	cfg := config.DefaultReceipt()

	img := e.Render(model.RenderRequest{}, cfg)
	b := img.Bounds()
	assert.Equal(t, 576, b.Dx())
	assert.Equal(t, MinCanvasHeight, b.Dy())
}

func TestRenderHeightGrowsWithContent(t *testing.T) {
	e := testEngine(t)
	cfg := config.DefaultReceipt()

	short := e.Render(model.RenderRequest{
		Title: "TASKS",
		Lines: []string{"buy milk", "fix the gate"},
	}, cfg)
	long := e.Render(model.RenderRequest{
		Title: "TASKS",
		Lines: []string{"buy milk", "fix the gate", "water plants", "call plumber", "sharpen knives", "oil hinges"},
	}, cfg)

	assert.Greater(t, short.Bounds().Dy(), MinCanvasHeight)
	assert.Greater(t, long.Bounds().Dy(), short.Bounds().Dy())
}

func TestRenderTimestampAddsLine(t *testing.T) {
	e := testEngine(t)
	cfg := config.DefaultReceipt()

	req := model.RenderRequest{Title: "NOTE", Lines: []string{"hello", "world", "again", "and", "more"}}
	without := e.Render(req, cfg)
	req.AddTimestamp = true
	with := e.Render(req, cfg)

	assert.Greater(t, with.Bounds().Dy(), without.Bounds().Dy())
}

func TestRenderSenderAddsLine(t *testing.T) {
	e := testEngine(t)
	cfg := config.DefaultReceipt()

	req := model.RenderRequest{Lines: []string{"a", "b", "c", "d", "e", "f", "g"}}
	without := e.Render(req, cfg)
	req.SenderName = "Alice"
	with := e.Render(req, cfg)

	assert.Greater(t, with.Bounds().Dy(), without.Bounds().Dy())
}

func TestRenderBlankLinesPreserved(t *testing.T) {
	e := testEngine(t)
	cfg := config.DefaultReceipt()

	compact := e.Render(model.RenderRequest{Lines: []string{"a", "b", "c", "d", "e"}}, cfg)
	spaced := e.Render(model.RenderRequest{Lines: []string{"a", "", "b", "", "c", "", "d", "", "e"}}, cfg)

	assert.Greater(t, spaced.Bounds().Dy(), compact.Bounds().Dy())
}

func TestRenderIsWhiteBackground(t *testing.T) {
	e := testEngine(t)
	cfg := config.DefaultReceipt()

	img := e.Render(model.RenderRequest{}, cfg)
	// No content: every pixel stays white.
	for _, p := range img.Pix {
		require.Equal(t, uint8(255), p)
	}
}

func TestTimeString(t *testing.T) {
	e := testEngine(t)

	cfg := config.DefaultReceipt()
	cfg.TimeShowMinutes = true
	cfg.TimeShowSeconds = false
	assert.Equal(t, "2026-03-14 09:26", e.timeString(cfg))

	cfg.TimeShowSeconds = true
	assert.Equal(t, "2026-03-14 09:26:53", e.timeString(cfg))

	cfg.TimeShowMinutes = false
	cfg.TimeShowSeconds = false
	assert.Equal(t, "2026-03-14 09", e.timeString(cfg))

	cfg.TimePrefix = "Printed "
	assert.Equal(t, "Printed 2026-03-14 09", e.timeString(cfg))
}

func TestXForAlign(t *testing.T) {
	face := basicfont.Face7x13
	w := textWidth("hi", face)

	assert.Equal(t, 10, xForAlign("hi", face, 200, "left", 10, 10))
	assert.Equal(t, 200-10-w, xForAlign("hi", face, 200, "right", 10, 10))

	center := xForAlign("hi", face, 200, "center", 10, 10)
	assert.Equal(t, 10+(180-w)/2, center)
}

func TestResizeToWidthKeepsAspect(t *testing.T) {
	e := testEngine(t)
	cfg := config.DefaultReceipt()

	src := e.Render(model.RenderRequest{Lines: []string{"x"}}, cfg)
	dst := ResizeToWidth(src, 288)
	assert.Equal(t, 288, dst.Bounds().Dx())
	assert.InDelta(t, src.Bounds().Dy()/2, dst.Bounds().Dy(), 1)
}
