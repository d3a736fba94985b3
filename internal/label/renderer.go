// Package label renders the record's center label image.
package label

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/turntable/internal/config"
	"github.com/genricoloni/turntable/internal/domain"
	"go.uber.org/zap"
)

const (
	// FallbackLocator is the label artwork used when none is configured or it cannot be loaded
	FallbackLocator = "/usr/share/turntable/label.png"

	labelFilename = "label.png"
	spindleRatio  = 0.06 // Spindle hole diameter as a fraction of the label
	minLabelSize  = 64
)

// discColor paints the label when no artwork can be loaded
var discColor = color.NRGBA{R: 0xB0, G: 0x1E, B: 0x23, A: 0xFF}

// Renderer produces the circular label image the presentation layer centers on the record
type Renderer struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	res     *domain.ScreenResolution
	appCfg  domain.Config

	mu     sync.Mutex
	layout config.Layout
}

// NewRenderer creates a label renderer
func NewRenderer(
	logger *zap.Logger,
	fetcher domain.Fetcher,
	res *domain.ScreenResolution,
	appCfg domain.Config,
	settings config.Settings,
) *Renderer {
	return &Renderer{
		logger:  logger,
		fetcher: fetcher,
		res:     res,
		appCfg:  appCfg,
		layout:  settings.Layout,
	}
}

// SetLayout updates the label size used by the next Render
func (r *Renderer) SetLayout(layout config.Layout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layout = layout
}

// Size returns the label edge in pixels for the current screen and layout
func (r *Renderer) Size() int {
	r.mu.Lock()
	percent := r.layout.LabelPercent
	r.mu.Unlock()

	size := int(float64(r.res.Height) * percent)
	return max(size, minLabelSize)
}

// Render loads the label artwork at locator, falling back to FallbackLocator and
// then to a plain disc, and writes it into the output directory.
// It returns the absolute path of the rendered file.
func (r *Renderer) Render(ctx context.Context, locator string) (string, error) {
	size := r.Size()

	img, source := r.load(ctx, locator)
	var label *image.NRGBA
	if img != nil {
		label = Process(img, size)
	} else {
		r.logger.Warn("No label artwork available, rendering a plain disc")
		label = Disc(size)
		source = "disc"
	}

	outputDir := r.appCfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, labelFilename)
	if err := imaging.Save(label, outputPath); err != nil {
		return "", fmt.Errorf("failed to write label file: %w", err)
	}

	r.logger.Info("Label rendered",
		zap.String("path", outputPath),
		zap.String("source", source),
		zap.Int("size", size))

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return outputPath, nil // Return relative path if abs fails
	}
	return absPath, nil
}

// load tries the configured locator, then the fallback
func (r *Renderer) load(ctx context.Context, locator string) (image.Image, string) {
	for _, candidate := range []string{locator, FallbackLocator} {
		if candidate == "" {
			continue
		}
		img, err := r.decode(ctx, candidate)
		if err != nil {
			r.logger.Warn("Failed to load label artwork",
				zap.String("locator", candidate),
				zap.Error(err))
			continue
		}
		return img, candidate
	}
	return nil, ""
}

func (r *Renderer) decode(ctx context.Context, locator string) (image.Image, error) {
	data, err := r.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Validate image dimensions to prevent division by zero
	bounds := img.Bounds()
	if bounds.Dy() == 0 || bounds.Dx() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
	return img, nil
}

// Process crops img to a size×size square and cuts it into a disc with a spindle hole
func Process(img image.Image, size int) *image.NRGBA {
	square := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
	mask(square)
	return square
}

// Disc returns a plain colored label
func Disc(size int) *image.NRGBA {
	disc := imaging.New(size, size, discColor)
	mask(disc)
	return disc
}

// mask clears every pixel outside the label circle or inside the spindle hole
func mask(img *image.NRGBA) {
	b := img.Bounds()
	cx := float64(b.Dx()) / 2
	cy := float64(b.Dy()) / 2
	outer := min(cx, cy)
	inner := outer * spindleRatio

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			d2 := dx*dx + dy*dy
			if d2 > outer*outer || d2 < inner*inner {
				i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
				img.Pix[i+3] = 0
			}
		}
	}
}
