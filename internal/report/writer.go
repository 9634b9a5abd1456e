package report

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/AnyUserName/imgfilter/internal/dataurl"
	"github.com/AnyUserName/imgfilter/internal/hasher"
	"github.com/AnyUserName/imgfilter/internal/raster"
)

// New creates a report for filter with defaults.
func New(filter string) *Report {
	return &Report{
		Version:     SupportedVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Filter:      filter,
	}
}

// Describe inspects a data URL. Dimensions are those of the EXIF-oriented
// raster the filter draws, and stay zero when the payload is not a decodable
// image. A string that is not a data URL only gets a digest.
func Describe(s string) Image {
	info := Image{Digest: hasher.Digest(s)}
	d, err := dataurl.Parse(s)
	if err != nil {
		return info
	}
	info.MediaType = d.MediaType
	info.Size = int64(len(d.Data))
	if img, err := (raster.ImagingDecoder{}).Decode(context.Background(), d.Data); err == nil {
		info.Width, info.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	return info
}

// WriteJSON serializes the report to path.
func WriteJSON(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	data = append(data, '\n')
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write report")
}
