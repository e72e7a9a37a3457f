package export

import (
	"image/color"
	"io"

	"github.com/charmbracelet/log"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/names"
)

const (
	// DefaultQuality is the encoder quality for JPEG and WebP.
	DefaultQuality = 85

	DefaultFrontSuffix = "[A]"
	DefaultBackSuffix  = "[B]"
)

// DefaultBackground is the flattening color for opaque formats.
var DefaultBackground color.Color = color.White

// Options configures an export run.
type Options struct {
	Format Format `json:"format"`

	// Quality applies to JPEG and WebP, 1..100.
	Quality int `json:"quality,omitempty"`

	// Background replaces transparency in formats without an alpha channel.
	Background color.Color `json:"-"`

	FrontSuffix string `json:"front_suffix"`
	BackSuffix  string `json:"back_suffix"`

	// IncludeCardCode prefixes file names with "{code} " when a code is known.
	IncludeCardCode bool `json:"include_card_code"`

	// SkipUnnamed reports tiles without any name as skipped instead of
	// writing them under their positional name.
	SkipUnnamed bool `json:"skip_unnamed,omitempty"`

	Logger *log.Logger `json:"-"`
}

// DefaultOptions returns the options a fresh installation exports with.
func DefaultOptions() Options {
	o := Options{
		FrontSuffix:     DefaultFrontSuffix,
		BackSuffix:      DefaultBackSuffix,
		IncludeCardCode: true,
	}
	o.SetDefaults()
	return o
}

// SetDefaults fills zero values. Suffixes are left alone: an empty suffix
// is a valid choice.
func (o *Options) SetDefaults() {
	if o.Format == "" {
		o.Format = JPEG
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Background == nil {
		o.Background = DefaultBackground
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the quality range and normalizes the format, so that an
// alias such as "jpg" or "TIF" becomes its canonical [Format].
func (o *Options) Validate() error {
	f, err := ParseFormat(string(o.Format))
	if err != nil {
		return err
	}
	o.Format = f
	if o.Quality < 1 || o.Quality > 100 {
		return sserrors.New(sserrors.ErrCodeInvalidInput, "quality must be between 1 and 100, got %d", o.Quality)
	}
	return nil
}

// ValidateAndSetDefaults applies defaults, then validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

func (o *Options) suffix(side names.Side) string {
	if side == names.Back {
		return o.BackSuffix
	}
	return o.FrontSuffix
}
