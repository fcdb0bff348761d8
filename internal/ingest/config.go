package ingest

// Config holds the configuration for image ingestion.
type Config struct {
	// MediaDir is where converted images are written. Created on first use.
	MediaDir string
	// ThumbnailWidth and ThumbnailHeight bound project thumbnails.
	// Larger images are shrunk to fit, aspect preserved; smaller ones are kept.
	ThumbnailWidth  int
	ThumbnailHeight int
	// MaxPixels rejects sources whose declared size exceeds it before the
	// full decode allocates memory for them.
	MaxPixels int
	// Workers is the number of background ingestion goroutines in a Pool.
	Workers int
}

// DefaultConfig provides the desktop defaults.
func DefaultConfig() Config {
	return Config{
		MediaDir:        "media",
		ThumbnailWidth:  300,
		ThumbnailHeight: 200,
		// 100 megapixels, well above any camera photo
		MaxPixels: 100_000_000,
		Workers:   2,
	}
}
