// Package ingest turns an arbitrary source image into a managed, normalised
// PNG under the media directory.
//
// THE PIPELINE:
//
//	source path ─► decode ─► (thumbnail? fit 300×200) ─► normalise colour ─► PNG ─► media/<name>.png
//
// The source file is only ever read. The stored file appears atomically:
// it is written to a temporary name in the media directory and renamed into
// place, so a failed encode or a full disk never leaves a partial image.
package ingest

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/proman/internal/apperror"
	"golang.org/x/image/draw"

	// DECODER REGISTRATION:
	// image.Decode only knows the formats whose packages were imported.
	// The stdlib covers png/jpeg/gif; x/image adds webp, bmp and tiff.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Kind says what an ingested image is for. It selects the resize rule and
// the file-name prefix.
type Kind int

const (
	KindReference Kind = iota // reference image, stored at full size
	KindThumbnail             // project thumbnail, fitted into the thumbnail box
)

func (k Kind) String() string {
	if k == KindThumbnail {
		return "thumb"
	}
	return "ref"
}

// Ingester is the contract the service layer consumes. Pipeline runs it on
// the calling goroutine; Pool runs it on a background worker.
type Ingester interface {
	Ingest(src string, kind Kind) (string, error)
}

// Pipeline is the synchronous ingester.
type Pipeline struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
	encode func(io.Writer, image.Image) error
}

// New creates a pipeline. Zero thumbnail dimensions fall back to the defaults.
func New(cfg Config, logger *slog.Logger) *Pipeline {
	def := DefaultConfig()
	if cfg.ThumbnailWidth <= 0 || cfg.ThumbnailHeight <= 0 {
		cfg.ThumbnailWidth, cfg.ThumbnailHeight = def.ThumbnailWidth, def.ThumbnailHeight
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = def.MaxPixels
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = def.MediaDir
	}
	return &Pipeline{config: cfg, logger: logger, now: time.Now, encode: png.Encode}
}

// MediaDir returns the directory stored images are written to.
func (p *Pipeline) MediaDir() string { return p.config.MediaDir }

// Ingest validates, converts and stores src, returning the stored path.
//
// Failures:
//   - src missing or unreadable              → apperror.ErrIngestion
//   - src not a decodable image, or too big  → apperror.ErrUnsupportedFormat
//   - media directory or file not writable   → apperror.ErrIngestion
//
// Nothing is left in the media directory when an error is returned.
func (p *Pipeline) Ingest(src string, kind Kind) (string, error) {
	img, format, err := p.decode(src)
	if err != nil {
		return "", err
	}

	if kind == KindThumbnail {
		img = fit(img, p.config.ThumbnailWidth, p.config.ThumbnailHeight)
	}
	img = normalize(img)

	if err := os.MkdirAll(p.config.MediaDir, 0o755); err != nil {
		return "", apperror.Ingestion(src, fmt.Errorf("creating media directory: %w", err))
	}

	dst := filepath.Join(p.config.MediaDir, p.filename(kind))
	if err := p.writePNG(dst, img); err != nil {
		return "", apperror.Ingestion(src, err)
	}

	b := img.Bounds()
	p.logger.Debug("image ingested",
		slog.String("source", src),
		slog.String("format", format),
		slog.String("kind", kind.String()),
		slog.String("stored", dst),
		slog.Int("width", b.Dx()),
		slog.Int("height", b.Dy()),
	)
	return dst, nil
}

// decode opens src, checks its declared size, then decodes it fully.
func (p *Pipeline) decode(src string) (image.Image, string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, "", apperror.Ingestion(src, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, "", apperror.UnsupportedFormat(src, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > p.config.MaxPixels {
		return nil, "", apperror.UnsupportedFormat(src,
			fmt.Errorf("dimensions %dx%d outside the accepted range", cfg.Width, cfg.Height))
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", apperror.Ingestion(src, err)
	}
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", apperror.UnsupportedFormat(src, err)
	}
	return img, format, nil
}

// filename builds <kind>_<timestamp>_<xid>.png. The xid is unique within the
// process even for calls in the same instant, so names never collide.
func (p *Pipeline) filename(kind Kind) string {
	return fmt.Sprintf("%s_%s_%s.png", kind, p.now().Format("20060102_150405"), xid.New().String())
}

// fit shrinks img to fit inside w×h, keeping its aspect ratio.
// Images already inside the box are returned unchanged (never upscaled).
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}

	scale := min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	nw := max(1, int(float64(b.Dx())*scale+0.5))
	nh := max(1, int(float64(b.Dy())*scale+0.5))

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// normalize keeps an alpha channel only when the image actually uses it.
// Fully opaque images are flattened to RGBA, which the PNG encoder then
// writes without an alpha channel.
func normalize(img image.Image) image.Image {
	b := img.Bounds()
	rect := image.Rect(0, 0, b.Dx(), b.Dy())

	if hasTransparency(img) {
		dst := image.NewNRGBA(rect)
		draw.Draw(dst, rect, img, b.Min, draw.Src)
		return dst
	}
	dst := image.NewRGBA(rect)
	draw.Draw(dst, rect, img, b.Min, draw.Src)
	return dst
}

func hasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// writePNG encodes img to a temporary file next to dst and renames it into
// place. The temporary file is removed on every failure path.
func (p *Pipeline) writePNG(dst string, img image.Image) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".ingest-*.png")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = p.encode(tmp, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("moving into place: %w", err)
	}
	return nil
}

// Exists reports whether a stored image is present. A missing file is a
// broken link to show as such, not an error.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
