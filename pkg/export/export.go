package export

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Dataset defines tabular export content.
type Dataset struct {
	Title       string
	Headers     []string
	Rows        []map[string]string
	GeneratedAt time.Time
}

// File is a rendered export ready for download.
type File struct {
	Name        string
	ContentType string
	Payload     []byte
}

// ParseFormat normalises a query value into a Format.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Render encodes the dataset into the requested format.
func Render(data Dataset, format Format, baseName string) (*File, error) {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now().UTC()
	}
	stamp := data.GeneratedAt.Format("20060102-150405")
	switch format {
	case FormatCSV:
		payload, err := NewCSVExporter().Render(data)
		if err != nil {
			return nil, err
		}
		return &File{Name: fmt.Sprintf("%s-%s.csv", baseName, stamp), ContentType: "text/csv", Payload: payload}, nil
	case FormatPDF:
		payload, err := NewPDFExporter().Render(data)
		if err != nil {
			return nil, err
		}
		return &File{Name: fmt.Sprintf("%s-%s.pdf", baseName, stamp), ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
