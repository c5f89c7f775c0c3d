// Package image provides image loading, saving, and overlay compositing.
package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"tourist-remover/internal/raster"
)

var (
	ErrNoPrimary       = errors.New("no Primary image in folder")
	ErrMultiplePrimary = errors.New("more than one Primary image in folder")
	ErrNoSecondary     = errors.New("no Secondary-N image in folder")
	ErrNoSuchSecondary = errors.New("no such secondary image")
)

var (
	primaryName   = regexp.MustCompile(`(?i)^primary\.([a-z]+)$`)
	secondaryName = regexp.MustCompile(`(?i)^secondary-(\d+)\.([a-z]+)$`)
)

// Frame is one loaded photograph.
type Frame struct {
	Path  string
	Index int // N in Secondary-N; 0 for the primary
	Image *raster.Image
}

// Source holds the photographs of one scene: a single primary and one or
// more secondaries ordered by their number.
type Source struct {
	Dir         string
	Primary     *Frame
	Secondaries []*Frame
}

// Listing is the result of scanning a folder without decoding it.
type Listing struct {
	Primary     string
	Secondaries map[int]string
}

// SecondaryIndexes returns the secondary numbers in ascending order.
func (l *Listing) SecondaryIndexes() []int {
	out := make([]int, 0, len(l.Secondaries))
	for n := range l.Secondaries {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Scan applies the naming rules to the files in dir: exactly one
// Primary.<ext> and at least one Secondary-<n>.<ext>, case-insensitive, with a
// supported extension. Other files are ignored.
func Scan(dir string) (*Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	l := &Listing{Secondaries: make(map[int]string)}
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFormat(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())

		if primaryName.MatchString(e.Name()) {
			if l.Primary != "" {
				return nil, fmt.Errorf("%s and %s: %w", filepath.Base(l.Primary), e.Name(), ErrMultiplePrimary)
			}
			l.Primary = path
			continue
		}
		if m := secondaryName.FindStringSubmatch(e.Name()); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if prev, dup := l.Secondaries[n]; dup {
				return nil, fmt.Errorf("secondary %d named twice (%s, %s)", n, filepath.Base(prev), e.Name())
			}
			l.Secondaries[n] = path
		}
	}

	if l.Primary == "" {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoPrimary)
	}
	if len(l.Secondaries) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoSecondary)
	}
	return l, nil
}

// LoadFolder scans dir and decodes every image it names.
func LoadFolder(dir string) (*Source, error) {
	l, err := Scan(dir)
	if err != nil {
		return nil, err
	}

	src := &Source{Dir: dir}
	img, err := Load(l.Primary)
	if err != nil {
		return nil, err
	}
	src.Primary = &Frame{Path: l.Primary, Image: img}

	for _, n := range l.SecondaryIndexes() {
		path := l.Secondaries[n]
		img, err := Load(path)
		if err != nil {
			return nil, err
		}
		src.Secondaries = append(src.Secondaries, &Frame{Path: path, Index: n, Image: img})
	}
	return src, nil
}

// Secondary returns the secondary named Secondary-<n>.
func (s *Source) Secondary(n int) (*Frame, error) {
	for _, f := range s.Secondaries {
		if f.Index == n {
			return f, nil
		}
	}
	return nil, fmt.Errorf("secondary %d: %w", n, ErrNoSuchSecondary)
}

// Load decodes the image at path as a 3-channel raster, applying any EXIF
// orientation.
func Load(path string) (*raster.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	out := raster.FromImage(img)

	if format == "jpeg" || format == "tiff" {
		if _, err := file.Seek(0, io.SeekStart); err == nil {
			if o := readOrientation(file); o > 1 {
				out = Orient(out, o)
			}
		}
	}
	return out, nil
}

// readOrientation returns the EXIF orientation tag, or 1 when absent.
func readOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		log.Printf("ignoring EXIF orientation %d: %v", o, err)
		return 1
	}
	return o
}

// Orient returns img transformed so that EXIF orientation o displays upright.
func Orient(img *raster.Image, o int) *raster.Image {
	h, w := img.Height, img.Width
	var src func(r, c int) (int, int)
	switch o {
	case 2:
		src = func(r, c int) (int, int) { return r, w - 1 - c }
	case 3:
		src = func(r, c int) (int, int) { return h - 1 - r, w - 1 - c }
	case 4:
		src = func(r, c int) (int, int) { return h - 1 - r, c }
	case 5:
		src = func(r, c int) (int, int) { return c, r }
	case 6:
		src = func(r, c int) (int, int) { return h - 1 - c, r }
	case 7:
		src = func(r, c int) (int, int) { return h - 1 - c, w - 1 - r }
	case 8:
		src = func(r, c int) (int, int) { return c, w - 1 - r }
	default:
		return img
	}

	outH, outW := h, w
	if o >= 5 {
		outH, outW = w, h
	}
	out := raster.New(outH, outW, img.Channels)
	for r := 0; r < outH; r++ {
		for c := 0; c < outW; c++ {
			sr, sc := src(r, c)
			copy(out.Pixel(r, c), img.Pixel(sr, sc))
		}
	}
	return out
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
