package ingest

import (
	"image"
	"io"
)

// SetEncoder replaces the PNG encoder, so tests can fail the write half way.
func SetEncoder(p *Pipeline, encode func(io.Writer, image.Image) error) {
	p.encode = encode
}
