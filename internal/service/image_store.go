package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"townsquare/internal/config"
	"townsquare/internal/models"
	"townsquare/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir            = "uploads"
	DefaultImageMaxUploadSizeMB = 10
	DefaultImageMaxDimension    = 2048
	JPEGQuality                 = 82
	WebPQuality                 = 70

	// Sources may be at most this many times the stored bound per side, and
	// never more than maxSourcePixels in total, before they are decoded.
	maxSourceScale  = 4
	maxSourcePixels = 40_000_000

	// UploadURLPrefix is where stored images are served from.
	UploadURLPrefix = "/uploads/"
)

// ImageUpload is a raw image part received with a post.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageStore normalises uploaded images and writes them to local disk.
type ImageStore struct {
	dir          string
	maxBytes     int64
	maxDimension int
	format       string
}

func NewImageStore(cfg *config.Config) *ImageStore {
	s := &ImageStore{
		dir:          DefaultUploadDir,
		maxBytes:     DefaultImageMaxUploadSizeMB * 1024 * 1024,
		maxDimension: DefaultImageMaxDimension,
		format:       "jpeg",
	}
	if cfg == nil {
		return s
	}
	if cfg.UploadDir != "" {
		s.dir = cfg.UploadDir
	}
	if cfg.ImageMaxUploadSizeMB > 0 {
		s.maxBytes = int64(cfg.ImageMaxUploadSizeMB) * 1024 * 1024
	}
	if cfg.ImageMaxDimension > 0 {
		s.maxDimension = cfg.ImageMaxDimension
	}
	if f := strings.ToLower(cfg.ImageFormat); f == "webp" {
		s.format = f
	}
	return s
}

// Dir is the directory images are written to.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save validates and re-encodes the upload and returns its public URL path.
// Identical uploads map to the same file.
func (s *ImageStore) Save(ctx context.Context, in ImageUpload) (url string, err error) {
	_, span := observability.StartSpan(ctx, "service.image", "save")
	defer func() { observability.EndSpan(span, err) }()

	if len(in.Content) == 0 {
		return "", models.NewValidationError("Image file is empty")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	switch http.DetectContentType(in.Content) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return "", models.NewValidationError("Only JPEG, PNG, GIF and WebP images are accepted")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if err := s.checkSourceSize(cfg.Width, cfg.Height); err != nil {
		return "", err
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	encoded, ext, err := s.encode(resizeToFit(decoded, s.maxDimension, s.maxDimension))
	if err != nil {
		return "", models.NewInternalError(err)
	}

	sum := sha256.Sum256(in.Content)
	name := hex.EncodeToString(sum[:]) + "." + ext
	if err := writeFileAtomic(filepath.Join(s.dir, name), encoded); err != nil {
		return "", models.NewInternalError(err)
	}

	observability.ImageUploadBytes.Observe(float64(len(encoded)))
	return UploadURLPrefix + name, nil
}

// checkSourceSize rejects declared dimensions that would make decoding
// allocate far more than the stored image needs.
func (s *ImageStore) checkSourceSize(w, h int) error {
	limit := s.maxDimension * maxSourceScale
	if w <= 0 || h <= 0 || w > limit || h > limit || int64(w)*int64(h) > maxSourcePixels {
		return models.NewValidationError(fmt.Sprintf("Image dimensions %dx%d exceed the %dx%d limit", w, h, limit, limit))
	}
	return nil
}

func (s *ImageStore) encode(img image.Image) ([]byte, string, error) {
	buf := bytes.NewBuffer(nil)
	if s.format == "webp" {
		if err := webp.Encode(buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "webp", nil
	}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "jpg", nil
}

// resizeToFit scales src down, preserving aspect ratio, so both sides fit the
// bounds. Smaller images are returned as is.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
