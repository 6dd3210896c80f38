package portal

import (
	"context"
	"errors"
	"strings"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/export"
	"github.com/garyellow/lnmu-portal/internal/student"
)

var errExportDisabled = errors.New("export is not configured")

// ViewProfile loads roll into the detail view. The view stays closed while
// the request is pending and if it fails.
func (s *Session) ViewProfile(ctx context.Context, roll string) (*student.Profile, error) {
	ctx = s.scope(ctx)
	return s.profiles.Load(ctx, roll)
}

// CloseProfile hides the detail view. A pending profile request is ignored
// when it completes.
func (s *Session) CloseProfile() {
	s.profiles.Close()
}

// Profile returns the open profile.
func (s *Session) Profile() (*student.Profile, bool) {
	return s.profiles.Current()
}

// reportTarget returns the open profile when it matches roll. An empty roll
// accepts whichever profile is open.
func (s *Session) reportTarget(roll string) (*student.Profile, error) {
	w := domerrors.NewScope("portal", "export")
	if s.exporter == nil {
		return nil, w.Wrap(errExportDisabled, "Export is not available.")
	}
	p, ok := s.profiles.Current()
	if !ok {
		return nil, w.Wrap(domerrors.ErrReportNotReady, "Report not ready")
	}
	if roll = strings.TrimSpace(roll); roll != "" && roll != p.RollNumber {
		return nil, w.Wrap(domerrors.ErrReportNotReady, "Report not ready")
	}
	return p, nil
}

// Export writes the report of the open profile to the export directory and
// returns the file path.
func (s *Session) Export(ctx context.Context, roll string, format export.Format) (string, error) {
	ctx = s.scope(ctx)
	p, err := s.reportTarget(roll)
	if err != nil {
		return "", err
	}

	var path string
	err = s.loading.Track(func() error {
		var err error
		path, err = s.exporter.Export(ctx, p, format)
		return err
	})
	return path, err
}

// RenderReport encodes the report of the open profile in memory.
func (s *Session) RenderReport(ctx context.Context, roll string, format export.Format) (export.Artifact, error) {
	ctx = s.scope(ctx)
	p, err := s.reportTarget(roll)
	if err != nil {
		return export.Artifact{}, err
	}

	var artifact export.Artifact
	err = s.loading.Track(func() error {
		var err error
		artifact, err = s.exporter.Encode(ctx, p, format)
		return err
	})
	return artifact, err
}
