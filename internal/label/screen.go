package label

import (
	"image"

	"github.com/genricoloni/turntable/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// displays queries the attached monitors
type displays struct {
	count  func() int
	bounds func(index int) image.Rectangle
}

var activeDisplays = displays{
	count:  screenshot.NumActiveDisplays,
	bounds: screenshot.GetDisplayBounds,
}

// headlessScreen sizes the label when the daemon starts without a usable display
var headlessScreen = domain.ScreenResolution{Width: 1920, Height: 1080}

// NewScreenResolution picks the screen the label is sized against
func NewScreenResolution(logger *zap.Logger) *domain.ScreenResolution {
	res := detectScreen(logger, activeDisplays)
	return &res
}

// detectScreen returns the tallest active display, so the label is never
// upscaled when the record is moved to a larger monitor. Ties keep the primary.
func detectScreen(logger *zap.Logger, d displays) domain.ScreenResolution {
	n := d.count()

	var tallest image.Rectangle
	for i := range n {
		if b := d.bounds(i); b.Dx() > 0 && b.Dy() > tallest.Dy() {
			tallest = b
		}
	}

	if tallest.Empty() {
		logger.Warn("No usable display, sizing the label for a headless screen",
			zap.Int("displays", n),
			zap.Int("height", headlessScreen.Height))
		return headlessScreen
	}

	res := domain.ScreenResolution{Width: tallest.Dx(), Height: tallest.Dy()}
	logger.Info("Label screen selected",
		zap.Int("displays", n),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))
	return res
}
