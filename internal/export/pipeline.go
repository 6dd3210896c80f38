// Package export turns an open student profile into a downloadable report:
// a JPEG image or a single-page A4 PDF.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/report"
	"github.com/garyellow/lnmu-portal/internal/student"
)

// Format is an export file type.
type Format string

// Supported formats.
const (
	FormatJPEG Format = "jpg"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts jpg, jpeg and pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", domerrors.NewValidationError("format", fmt.Sprintf("unsupported export format %q", s))
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/jpeg"
}

// AssetSource loads the images a report embeds.
type AssetSource interface {
	LoadAll(ctx context.Context, doc report.Document) (report.Assets, error)
}

// Recorder observes finished exports.
type Recorder interface {
	RecordExport(format, status string, duration float64)
}

// Options configures a Pipeline.
type Options struct {
	Dir      string
	Links    report.Links
	Assets   AssetSource
	Renderer *report.Renderer
	Logger   *logger.Logger
	Recorder Recorder
}

// Pipeline renders and encodes reports.
type Pipeline struct {
	dir      string
	links    report.Links
	assets   AssetSource
	renderer *report.Renderer
	log      *logger.Logger
	recorder Recorder
}

// Artifact is an encoded report.
type Artifact struct {
	Name      string
	Format    Format
	Data      []byte
	Placement *Placement
}

// ContentType returns the MIME type of the artifact.
func (a Artifact) ContentType() string {
	return a.Format.ContentType()
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Assets == nil || opts.Renderer == nil {
		return nil, fmt.Errorf("export pipeline needs an asset source and a renderer")
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		dir:      dir,
		links:    opts.Links,
		assets:   opts.Assets,
		renderer: opts.Renderer,
		log:      log.WithModule("export"),
		recorder: opts.Recorder,
	}, nil
}

// Dir returns the directory Export writes into.
func (p *Pipeline) Dir() string {
	return p.dir
}

// Export encodes the report for prof and writes it to the export directory.
// It returns the path of the written file. On failure no file is left behind.
func (p *Pipeline) Export(ctx context.Context, prof *student.Profile, format Format) (string, error) {
	artifact, err := p.Encode(ctx, prof, format)
	if err != nil {
		return "", err
	}

	path := filepath.Join(p.dir, artifact.Name)
	if err := writeAtomic(path, artifact.Data); err != nil {
		p.log.WithError(err).ErrorContext(ctx, "Failed to write report", "path", path)
		return "", wrapper(format).Wrap(err, "Failed to save the report.")
	}
	p.log.InfoContext(ctx, "Report exported", "path", path, "format", string(format), "bytes", len(artifact.Data))
	return path, nil
}

// ExportImage writes <roll>_report.jpg.
func (p *Pipeline) ExportImage(ctx context.Context, prof *student.Profile) (string, error) {
	return p.Export(ctx, prof, FormatJPEG)
}

// ExportPDF writes <roll>_report.pdf.
func (p *Pipeline) ExportPDF(ctx context.Context, prof *student.Profile) (string, error) {
	return p.Export(ctx, prof, FormatPDF)
}

// Encode renders the report for prof without touching the filesystem.
func (p *Pipeline) Encode(ctx context.Context, prof *student.Profile, format Format) (artifact Artifact, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		if p.recorder != nil {
			p.recorder.RecordExport(string(format), status, time.Since(start).Seconds())
		}
	}()

	w := wrapper(format)
	if format != FormatJPEG && format != FormatPDF {
		return Artifact{}, w.Wrap(domerrors.NewValidationError("format", string(format)), "Unsupported export format.")
	}
	if prof == nil {
		return Artifact{}, w.Wrap(domerrors.ErrReportNotReady, "Report not ready")
	}

	doc, err := report.NewDocument(prof, p.links)
	if err != nil {
		return Artifact{}, w.Wrap(err, "Report not ready")
	}

	assets, err := p.assets.LoadAll(ctx, doc)
	if err != nil {
		p.log.WithError(err).WarnContext(ctx, "Report images unavailable", "roll", prof.RollNumber)
		return Artifact{}, w.Wrap(err, "Could not load the report images. Please try again.")
	}

	raster, err := p.renderer.Render(doc, assets)
	if err != nil {
		return Artifact{}, w.Wrap(err, "Failed to render the report.")
	}

	artifact = Artifact{Name: FileName(prof.RollNumber, format), Format: format}
	switch format {
	case FormatJPEG:
		artifact.Data, err = encodeJPEG(raster)
		if err != nil {
			return Artifact{}, w.Wrap(err, "Failed to generate the image.")
		}
	case FormatPDF:
		var placement Placement
		artifact.Data, placement, err = encodePDF(raster)
		if err != nil {
			return Artifact{}, w.Wrap(err, "Failed to generate the PDF.")
		}
		if placement.Scaled {
			p.log.WarnContext(ctx, "Report taller than one page, scaled to fit", "roll", prof.RollNumber)
		}
		artifact.Placement = &placement
	}
	return artifact, nil
}

func wrapper(format Format) domerrors.Scope {
	return domerrors.NewScope("export", "export_"+string(format))
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns <roll>_report.<ext> with anything unsafe in roll replaced.
func FileName(roll string, format Format) string {
	roll = unsafeName.ReplaceAllString(strings.TrimSpace(roll), "_")
	roll = strings.Trim(roll, ".")
	if roll == "" {
		roll = "student"
	}
	return roll + "_report." + string(format)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func encodePDF(img image.Image) ([]byte, Placement, error) {
	b := img.Bounds()
	placement, err := PlaceOnPage(b.Dx(), b.Dy())
	if err != nil {
		return nil, Placement{}, err
	}

	var raster bytes.Buffer
	if err := png.Encode(&raster, img); err != nil {
		return nil, Placement{}, fmt.Errorf("encode png: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("report", opts, &raster)
	pdf.ImageOptions("report", placement.X, placement.Y, placement.WidthMM, placement.HeightMM, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, Placement{}, fmt.Errorf("assemble pdf: %w", err)
	}

	pages, err := countPages(out.Bytes())
	if err != nil {
		return nil, Placement{}, err
	}
	if pages != 1 {
		return nil, Placement{}, fmt.Errorf("assembled pdf has %d pages, want 1", pages)
	}
	return out.Bytes(), placement, nil
}

// writeAtomic writes data to a temp file beside path and renames it into
// place. The temp file is removed on any failure.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
