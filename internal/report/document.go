// Package report builds the printable student report: the document model,
// the images it embeds, and the raster rendering used by export.
package report

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/garyellow/lnmu-portal/internal/student"
)

// Fixed report headings.
const (
	Title       = "LALIT NARAYAN MITHILA UNIVERSITY"
	Subtitle    = "STUDENT REPORT CARD (2023–2026)"
	Placeholder = "—"
)

// LabelAadhaar labels the identity number, shown in full only on the report.
const LabelAadhaar = "Aadhaar"

// Field is one labelled value.
type Field struct {
	Label string
	Value string
}

// QualificationRow is a row of the educational qualification table.
type QualificationRow struct {
	Class      string
	Board      string
	Year       string
	Marks      string
	Percentage string
}

// Document is everything the renderer draws, already resolved to text and
// absolute image URLs.
type Document struct {
	Roll      string
	Title     string
	Subtitle  string
	Personal  []Field
	Admission []Field
	Education []QualificationRow

	PhotoURL     string
	SignatureURL string
	QRCodeURL    string
}

// Links resolves the image URLs a report embeds.
type Links struct {
	// ImageOrigin is the upstream host serving photos and signatures.
	ImageOrigin string
	// ImageProxy, when set, replaces ImageOrigin so images load through a
	// same-origin proxy.
	ImageProxy string
	// QRServiceURL is the root of the QR code service.
	QRServiceURL string
}

// NewDocument lays out the fields of p.
func NewDocument(p *student.Profile, links Links) (Document, error) {
	if p == nil {
		return Document{}, fmt.Errorf("nil profile")
	}

	qr, err := links.QRCode(p)
	if err != nil {
		return Document{}, err
	}

	percentage := Placeholder
	if v := strings.TrimSpace(p.Percentage.String()); v != "" {
		percentage = v + "%"
	}

	return Document{
		Roll:     p.RollNumber,
		Title:    Title,
		Subtitle: Subtitle,
		Personal: []Field{
			field("Name", p.DisplayName),
			field("Father Name", p.FatherName),
			field("Mother Name", p.MotherName),
			field("Date of Birth", p.DateOfBirth),
			field("Gender", p.Gender),
			field("Category", p.Category),
			field(LabelAadhaar, p.Aadhaar),
			field("Mobile", p.Mobile),
			field("Email", p.Email),
			field("Address", p.Address),
		},
		Admission: []Field{
			field("Roll No", p.RollNumber),
			field("Registration No", p.RegistrationNumber),
			field("College", p.College),
			field("Honours", p.Honours),
			field("Stream", p.Stream),
			field("Admission Date", p.ApplicationDate),
		},
		Education: []QualificationRow{{
			Class:      "12th",
			Board:      orPlaceholder(p.TwelfthBoard),
			Year:       orPlaceholder(p.TwelfthYear.String()),
			Marks:      orPlaceholder(p.ObtainedMarks.String()),
			Percentage: percentage,
		}},
		PhotoURL:     links.Resolve(p.PhotoURL),
		SignatureURL: links.Resolve(p.SignatureURL),
		QRCodeURL:    qr,
	}, nil
}

// MaskAadhaar hides all but the last four characters of an Aadhaar number.
func MaskAadhaar(v string) string {
	r := []rune(strings.TrimSpace(v))
	if len(r) == 0 {
		return Placeholder
	}
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	return "XXXX-XXXX-" + string(r)
}

func field(label, value string) Field {
	return Field{Label: label, Value: orPlaceholder(value)}
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}

// Resolve maps an upstream image URL to the URL the loader should fetch.
// URLs on ImageOrigin go through ImageProxy when one is configured; relative
// paths are resolved against the proxy, or the origin without one.
func (l Links) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	origin := strings.TrimRight(l.ImageOrigin, "/")
	proxy := strings.TrimRight(l.ImageProxy, "/")

	if origin != "" && strings.HasPrefix(raw, origin) {
		if proxy == "" {
			return raw
		}
		return proxy + strings.TrimPrefix(raw, origin)
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		if proxy != "" {
			return proxy + raw
		}
		if origin != "" {
			return origin + raw
		}
	}
	return raw
}

// qrPayload is the record encoded in the report's QR code.
type qrPayload struct {
	Name              string `json:"name"`
	FatherName        string `json:"fatherName"`
	MotherName        string `json:"motherName"`
	DOB               string `json:"dob"`
	Gender            string `json:"gender"`
	Category          string `json:"category"`
	Aadhaar           string `json:"aadhaar"`
	Mobile            string `json:"mobile"`
	Email             string `json:"email"`
	Address           string `json:"address"`
	RollNo            string `json:"rollNo"`
	RegistrationNo    string `json:"registrationNo"`
	College           string `json:"college"`
	Honours           string `json:"honours"`
	Stream            string `json:"stream"`
	AdmissionDate     string `json:"admissionDate"`
	TwelfthBoard      string `json:"twelfthBoard"`
	TwelfthYear       string `json:"twelfthYear"`
	TwelfthMarks      string `json:"twelfthMarks"`
	TwelfthPercentage string `json:"twelfthPercentage"`
}

// QRCode returns the QR service URL encoding p as JSON.
func (l Links) QRCode(p *student.Profile) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(l.QRServiceURL), "/")
	if base == "" {
		return "", fmt.Errorf("qr service url is not configured")
	}

	data, err := json.Marshal(qrPayload{
		Name:              p.DisplayName,
		FatherName:        p.FatherName,
		MotherName:        p.MotherName,
		DOB:               p.DateOfBirth,
		Gender:            p.Gender,
		Category:          p.Category,
		Aadhaar:           p.Aadhaar,
		Mobile:            p.Mobile,
		Email:             p.Email,
		Address:           p.Address,
		RollNo:            p.RollNumber,
		RegistrationNo:    p.RegistrationNumber,
		College:           p.College,
		Honours:           p.Honours,
		Stream:            p.Stream,
		AdmissionDate:     p.AdmissionDate,
		TwelfthBoard:      p.TwelfthBoard,
		TwelfthYear:       p.TwelfthYear.String(),
		TwelfthMarks:      p.TwelfthMarks.String(),
		TwelfthPercentage: p.TwelfthPercentage.String(),
	})
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}

	return base + "/create-qr-code/?size=120x120&data=" + url.QueryEscape(string(data)), nil
}
