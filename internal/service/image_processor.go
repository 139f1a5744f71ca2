package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"strings"

	"shutterhub/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	DefaultImageMaxUploadSizeMB = 10
	// MaxImagePixels bounds width*height before a full decode is attempted.
	MaxImagePixels   = 50_000_000
	ThumbnailMaxSize = 640
	AvatarSize       = 512
	JPEGQuality      = 82
	WebPQuality      = 70
)

// decodedMIME maps image.Decode format names to the content type stored with the object.
var decodedMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// UploadFile is one uploaded file as received by a handler.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ProcessedImage is a validated upload with its derived thumbnail.
type ProcessedImage struct {
	Original      []byte
	OriginalType  string
	Thumbnail     []byte
	ThumbnailType string
	Width         int
	Height        int
}

// ImageProcessor validates uploads and derives thumbnails and avatars. It holds no
// state beyond its limits and is safe for concurrent use.
type ImageProcessor struct {
	maxBytes  int64
	maxPixels int
}

// NewImageProcessor creates an ImageProcessor. A non-positive limit uses the default.
func NewImageProcessor(maxUploadSizeMB int) *ImageProcessor {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultImageMaxUploadSizeMB
	}
	return &ImageProcessor{maxBytes: int64(maxUploadSizeMB) << 20, maxPixels: MaxImagePixels}
}

// Decode validates f and returns the decoded image with its canonical content type.
// Size is checked first, then the sniffed type, then the header dimensions, and only
// then the pixels. A declared image/* type must agree with the content.
func (p *ImageProcessor) Decode(f UploadFile) (image.Image, string, error) {
	switch {
	case len(f.Content) == 0:
		return nil, "", models.NewValidationError("No file uploaded")
	case int64(len(f.Content)) > p.maxBytes:
		return nil, "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", p.maxBytes>>20))
	}
	if _, ok := imageMIME(http.DetectContentType(f.Content)); !ok {
		return nil, "", models.NewValidationError("Invalid image type")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(f.Content))
	if err != nil {
		return nil, "", models.NewValidationError("Invalid image file")
	}
	contentType, ok := decodedMIME[format]
	if !ok {
		return nil, "", models.NewValidationError("Unsupported image format")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > p.maxPixels {
		return nil, "", models.NewValidationError(fmt.Sprintf("Image dimensions %dx%d are not allowed", cfg.Width, cfg.Height))
	}
	if declared, ok := imageMIME(f.ContentType); ok && declared != contentType {
		return nil, "", models.NewValidationError("Image content type mismatch")
	}

	img, _, err := image.Decode(bytes.NewReader(f.Content))
	if err != nil {
		return nil, "", models.NewValidationError("Invalid image file")
	}
	return img, contentType, nil
}

// Process validates f and renders a JPEG thumbnail no larger than ThumbnailMaxSize on
// either side. The original bytes are kept untouched.
func (p *ImageProcessor) Process(f UploadFile) (*ProcessedImage, error) {
	img, contentType, err := p.Decode(f)
	if err != nil {
		return nil, err
	}
	thumb, err := encodeImage(scaleDown(img, ThumbnailMaxSize), "image/jpeg")
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	size := img.Bounds().Size()
	return &ProcessedImage{
		Original:      f.Content,
		OriginalType:  contentType,
		Thumbnail:     thumb,
		ThumbnailType: "image/jpeg",
		Width:         size.X,
		Height:        size.Y,
	}, nil
}

// Avatar validates f and renders the centered square as an AvatarSize WebP.
func (p *ImageProcessor) Avatar(f UploadFile) ([]byte, error) {
	img, _, err := p.Decode(f)
	if err != nil {
		return nil, err
	}
	src := centerSquare(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	out, err := encodeImage(dst, "image/webp")
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// imageMIME canonicalizes an image/* content type. image/jpg is accepted as an alias.
func imageMIME(contentType string) (string, bool) {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		media = contentType
	}
	media = strings.ToLower(strings.TrimSpace(media))
	if media == "image/jpg" {
		media = "image/jpeg"
	}
	for _, known := range decodedMIME {
		if media == known {
			return media, true
		}
	}
	return "", false
}

func centerSquare(b image.Rectangle) image.Rectangle {
	side := min(b.Dx(), b.Dy())
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	return image.Rect(x, y, x+side, y+side)
}

// scaleDown fits img within maxSide x maxSide, keeping the aspect ratio. Smaller images
// are returned as they are.
func scaleDown(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}
	if w >= h {
		w, h = maxSide, max(1, h*maxSide/w)
	} else {
		w, h = max(1, w*maxSide/h), maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func encodeImage(img image.Image, contentType string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch contentType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case "image/webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: WebPQuality})
	default:
		err = fmt.Errorf("no encoder for %s", contentType)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
