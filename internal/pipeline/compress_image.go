package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// CompressMode selects how the image compression level is expressed.
type CompressMode string

// Compression modes: a 1-10 quality score or a 0-95% reduction level.
const (
	ModeScore   CompressMode = "score"
	ModePercent CompressMode = "percent"
)

// CompressImageParams hold the user's compression choice.
type CompressImageParams struct {
	Mode CompressMode
	// Score is 1-10 in score mode.
	Score int
	// Percent is 0-95 in steps of 5 in percent mode.
	Percent int
}

// Validate checks the mode-specific ranges.
func (p CompressImageParams) Validate() error {
	switch p.Mode {
	case ModeScore:
		if p.Score < 1 || p.Score > 10 {
			return fmt.Errorf("score must be 1-10, got %d", p.Score)
		}
	case ModePercent:
		if p.Percent < 0 || p.Percent > 95 {
			return fmt.Errorf("percent must be 0-95, got %d", p.Percent)
		}
		if p.Percent%5 != 0 {
			return fmt.Errorf("percent must be a multiple of 5, got %d", p.Percent)
		}
	default:
		return fmt.Errorf("unknown compression mode %q", p.Mode)
	}
	return nil
}

// Quality maps the params onto the 0-1 encoder quality. Percent mode
// floors at 0.1 regardless of the requested reduction.
func (p CompressImageParams) Quality() float64 {
	if p.Mode == ModeScore {
		return float64(p.Score) / 10
	}
	return math.Max(0.1, 1-float64(p.Percent)/100)
}

// CompressImage decodes the original raster and re-encodes it as JPEG
// at the computed quality. Saved bytes and percent derive from the
// stored sizes; the sign is preserved when the output grew.
type CompressImage struct {
	Params CompressImageParams
}

// Name identifies the strategy in logs and metrics.
func (s *CompressImage) Name() string { return "compress-image" }

// Run re-encodes the record's image.
func (s *CompressImage) Run(ctx context.Context, rec *store.Record, sess *crypto.Session, cb Callbacks) error {
	if err := s.Params.Validate(); err != nil {
		return err
	}

	conv := &ConvertImage{
		Format:  FormatFor(ToolCompressImage),
		Quality: s.Params.Quality(),
	}
	return conv.Run(ctx, rec, sess, cb)
}
