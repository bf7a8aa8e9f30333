package fiber

import (
	"bytes"
	"compress/gzip"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	gofiber "github.com/gofiber/fiber/v2"
)

// CompressionConfig configures response compression.
type CompressionConfig struct {
	// EnableBrotli enables Brotli compression (better compression ratio)
	EnableBrotli bool
	// EnableGzip enables Gzip compression (wider browser support)
	EnableGzip bool
	// BrotliLevel compression level (0-11, default 4 for balance)
	BrotliLevel int
	// GzipLevel compression level (1-9, default 6 for balance)
	GzipLevel int
	// MinSize minimum response size to compress
	MinSize int
	// CompressibleTypes content types that should be compressed
	CompressibleTypes []string
	// SkipPaths are path prefixes never compressed
	SkipPaths []string
}

// DefaultCompressionConfig returns default compression configuration.
// Field fragments are small, so the threshold is lower than for pages.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		EnableBrotli: true,
		EnableGzip:   true,
		BrotliLevel:  4,
		GzipLevel:    6,
		MinSize:      512,
		CompressibleTypes: []string{
			"text/html",
			"text/plain",
			"application/javascript",
			"application/json",
		},
	}
}

func (config *CompressionConfig) clampLevels() {
	if config.BrotliLevel < 0 {
		config.BrotliLevel = 0
	}
	if config.BrotliLevel > 11 {
		config.BrotliLevel = 11
	}
	if config.GzipLevel < 1 {
		config.GzipLevel = 1
	}
	if config.GzipLevel > 9 {
		config.GzipLevel = 9
	}
}

// negotiate picks br or gzip from an Accept-Encoding header.
func (config *CompressionConfig) negotiate(acceptEncoding string) string {
	acceptEncoding = strings.ToLower(acceptEncoding)
	switch {
	case config.EnableBrotli && strings.Contains(acceptEncoding, "br"):
		return "br"
	case config.EnableGzip && strings.Contains(acceptEncoding, "gzip"):
		return "gzip"
	}
	return ""
}

type compressors struct {
	brotli sync.Pool
	gzip   sync.Pool
}

func newCompressors(config CompressionConfig) *compressors {
	brotliLevel := config.BrotliLevel
	gzipLevel := config.GzipLevel
	return &compressors{
		brotli: sync.Pool{New: func() interface{} { return brotli.NewWriterLevel(nil, brotliLevel) }},
		gzip: sync.Pool{New: func() interface{} {
			w, _ := gzip.NewWriterLevel(nil, gzipLevel)
			return w
		}},
	}
}

func (p *compressors) compress(encoding string, data []byte) []byte {
	var buf bytes.Buffer
	switch encoding {
	case "br":
		w := p.brotli.Get().(*brotli.Writer)
		defer p.brotli.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(data); err != nil {
			return nil
		}
		if err := w.Close(); err != nil {
			return nil
		}
	case "gzip":
		w := p.gzip.Get().(*gzip.Writer)
		defer p.gzip.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(data); err != nil {
			return nil
		}
		if err := w.Close(); err != nil {
			return nil
		}
	default:
		return nil
	}
	return buf.Bytes()
}

// BrotliGzipMiddleware creates a compression middleware with Brotli and Gzip support.
// Brotli is preferred when supported by the client, falling back to Gzip.
func BrotliGzipMiddleware(config CompressionConfig) gofiber.Handler {
	config.clampLevels()
	pools := newCompressors(config)

	return func(c *gofiber.Ctx) error {
		path := c.Path()
		for _, skipPath := range config.SkipPaths {
			if strings.HasPrefix(path, skipPath) {
				return c.Next()
			}
		}

		encoding := config.negotiate(c.Get(gofiber.HeaderAcceptEncoding))
		if encoding == "" {
			return c.Next()
		}

		if err := c.Next(); err != nil {
			return err
		}

		body := c.Response().Body()
		if len(body) < config.MinSize {
			return nil
		}
		if len(c.Response().Header.Peek(gofiber.HeaderContentEncoding)) > 0 {
			return nil
		}
		contentType := string(c.Response().Header.ContentType())
		shouldCompress := false
		for _, ct := range config.CompressibleTypes {
			if strings.Contains(contentType, ct) {
				shouldCompress = true
				break
			}
		}
		if !shouldCompress {
			return nil
		}

		compressed := pools.compress(encoding, body)
		if len(compressed) == 0 || len(compressed) >= len(body) {
			return nil
		}
		c.Set(gofiber.HeaderContentEncoding, encoding)
		c.Set(gofiber.HeaderVary, gofiber.HeaderAcceptEncoding)
		c.Response().SetBody(compressed)
		return nil
	}
}

// CompressedContent holds precompressed variants of a static asset.
type CompressedContent struct {
	Original []byte
	Brotli   []byte
	Gzip     []byte
}

// Precompress compresses content once for every enabled encoding.
func Precompress(config CompressionConfig, content []byte) *CompressedContent {
	config.clampLevels()
	pools := newCompressors(config)
	out := &CompressedContent{Original: content}
	if config.EnableBrotli {
		out.Brotli = pools.compress("br", content)
	}
	if config.EnableGzip {
		out.Gzip = pools.compress("gzip", content)
	}
	return out
}

// ServeCompressed sends the best precompressed variant the client accepts.
func ServeCompressed(c *gofiber.Ctx, config CompressionConfig, content *CompressedContent, contentType string) error {
	c.Set(gofiber.HeaderContentType, contentType)
	c.Set(gofiber.HeaderVary, gofiber.HeaderAcceptEncoding)
	switch config.negotiate(c.Get(gofiber.HeaderAcceptEncoding)) {
	case "br":
		if len(content.Brotli) > 0 {
			c.Set(gofiber.HeaderContentEncoding, "br")
			return c.Send(content.Brotli)
		}
	case "gzip":
		if len(content.Gzip) > 0 {
			c.Set(gofiber.HeaderContentEncoding, "gzip")
			return c.Send(content.Gzip)
		}
	}
	return c.Send(content.Original)
}
