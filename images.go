package quoteboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/quoteboard/logger"
)

const (
	maxImageWidth   = 1600
	jpegQuality     = 85
	maxUploadSize   = 5 << 20 // 5MB
	uploadsPrefix   = "/uploads/"
	screenshotField = "screenshot"
)

// ImageDir stores quote screenshots on disk.
type ImageDir struct {
	dir string
	log *logger.Logger
}

// NewImageDir ensures dir exists and returns an ImageDir rooted there.
func NewImageDir(dir string, log *logger.Logger) (*ImageDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &ImageDir{dir: dir, log: log.WithComponent("images")}, nil
}

// Path returns the on-disk path of name. Directory components are stripped.
func (d *ImageDir) Path(name string) string {
	return filepath.Join(d.dir, filepath.Base(name))
}

// Exists reports whether a stored file called name is present.
func (d *ImageDir) Exists(name string) bool {
	if name == "" || name == "." || name == "/" {
		return false
	}
	info, err := os.Stat(d.Path(name))
	return err == nil && !info.IsDir()
}

// Save writes data under a fresh unique name with the given extension.
func (d *ImageDir) Save(data []byte, ext string) (string, error) {
	for {
		name := newUploadName(ext)
		f, err := os.OpenFile(d.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create image: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write image: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close image: %w", err)
		}
		return name, nil
	}
}

// Remove deletes name. Failures are logged and otherwise ignored.
func (d *ImageDir) Remove(name string) {
	if name == "" {
		return
	}
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.log.Warnw("Failed to remove image", "file", name, "error", err)
	}
}

func newUploadName(ext string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return ts + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + ext
}

// processImage decodes a screenshot, downscales it to maxImageWidth and
// re-encodes it as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// receiveScreenshot stores the optional screenshot part of a multipart
// request and returns its filename ("" when none was sent). Whoever calls
// this owns the file afterwards and must remove it if the request fails.
func (a *App) receiveScreenshot(c echo.Context) (string, error) {
	file, err := c.FormFile(screenshotField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", invalid(screenshotField, "could not read screenshot")
	}
	if file.Size > maxUploadSize {
		return "", invalid(screenshotField, "screenshot too large (max 5MB)")
	}
	return a.storeScreenshot(file)
}

func (a *App) storeScreenshot(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := processImage(src)
	if err != nil {
		return "", invalid(screenshotField, "screenshot is not a supported image")
	}
	return a.Images.Save(data, ".jpg")
}
