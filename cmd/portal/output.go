package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/portal"
	"github.com/garyellow/lnmu-portal/internal/report"
	"github.com/garyellow/lnmu-portal/internal/student"
)

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printList(items []string) error {
	if c.jsonOut {
		if items == nil {
			items = []string{}
		}
		return c.printJSON(items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(c.out, "(none)")
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintln(c.out, item); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) printPage(page portal.ResultPage) error {
	if c.jsonOut {
		return c.printJSON(page)
	}
	if len(page.Items) == 0 {
		_, err := fmt.Fprintln(c.out, "No results.")
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROLL\tNAME")
	for _, s := range page.Items {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", s.RollNumber, s.DisplayName)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "Page %d of %d (%d results)\n", page.CurrentPage, page.TotalPages, page.TotalItems)
	return err
}

// printProfile prints the detail view; nil means it stayed closed. The
// Aadhaar number is masked here and shown in full only on the exported report.
func (c *cli) printProfile(p *student.Profile) error {
	if c.jsonOut {
		if p == nil {
			return c.printJSON(nil)
		}
		masked := *p
		masked.Aadhaar = report.MaskAadhaar(p.Aadhaar)
		return c.printJSON(&masked)
	}
	if p == nil {
		_, err := fmt.Fprintln(c.out, "Profile not available.")
		return err
	}
	doc, err := report.NewDocument(p, c.links())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	for _, f := range doc.Personal {
		if f.Label == report.LabelAadhaar {
			f.Value = report.MaskAadhaar(p.Aadhaar)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", f.Label, f.Value)
	}
	for _, f := range doc.Admission {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", f.Label, f.Value)
	}
	for _, row := range doc.Education {
		_, _ = fmt.Fprintf(w, "%s\t%s, %s, %s marks, %s\n", row.Class, row.Board, row.Year, row.Marks, row.Percentage)
	}
	return w.Flush()
}

func (c *cli) links() report.Links {
	if c.cfg == nil {
		return report.Links{}
	}
	return report.Links{
		ImageOrigin:  c.cfg.ImageOrigin,
		ImageProxy:   c.cfg.ImageProxy,
		QRServiceURL: c.cfg.QRServiceURL,
	}
}

// absorb drops fetch failures the session has already turned into an empty
// page, an empty option list or a closed profile.
func absorb(err error) error {
	if portal.Degraded(err) {
		return nil
	}
	return err
}

// describe returns the user-facing text of err.
func describe(err error) string {
	var wrapped *domerrors.WrappedError
	var invalid *domerrors.ValidationError
	switch {
	case errors.As(err, &wrapped):
		return wrapped.UserMessage
	case errors.As(err, &invalid):
		return invalid.Message
	case domerrors.IsNotFound(err):
		return "No such student."
	case domerrors.IsMalformed(err):
		return "The records service returned an unexpected response."
	case errors.Is(err, domerrors.ErrTimeout):
		return "The records service did not answer in time."
	default:
		return err.Error()
	}
}
