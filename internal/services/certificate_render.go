package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

const (
	certificateWidth  = 1600
	certificateHeight = 1131
)

// CertificateRenderer rasterizes a certificate snapshot into a PNG. The
// layout is fixed; only the text content varies per certificate.
type CertificateRenderer struct {
	titleFace   font.Face
	nameFace    font.Face
	bodyFace    font.Face
	smallFace   font.Face
	inkColor    color.NRGBA
	accentColor color.NRGBA
}

func NewCertificateRenderer() (*CertificateRenderer, error) {
	fontPath := os.Getenv("CERTIFICATE_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("Env var CERTIFICATE_FONT is empty")
	}

	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}

	faceAt := func(size float64) font.Face {
		return truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}

	return &CertificateRenderer{
		titleFace:   faceAt(72),
		nameFace:    faceAt(56),
		bodyFace:    faceAt(30),
		smallFace:   faceAt(20),
		inkColor:    color.NRGBA{R: 0x2B, G: 0x2B, B: 0x2B, A: 0xFF},
		accentColor: color.NRGBA{R: 0x1F, G: 0x6F, B: 0x8B, A: 0xFF},
	}, nil
}

func (r *CertificateRenderer) Render(data *types.CertificateData) (bytes.Buffer, error) {
	dc := gg.NewContext(certificateWidth, certificateHeight)

	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, certificateWidth, certificateHeight)
	dc.Fill()

	// Double border
	dc.SetColor(r.accentColor)
	dc.SetLineWidth(8)
	dc.DrawRectangle(40, 40, certificateWidth-80, certificateHeight-80)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(60, 60, certificateWidth-120, certificateHeight-120)
	dc.Stroke()

	cx := float64(certificateWidth) / 2

	title := "Certificate of Completion"
	if data.CertificateType == types.CertificateTypeTrainingFocus {
		title = "Certificate of Training Focus Completion"
	}
	dc.SetFontFace(r.titleFace)
	dc.SetColor(r.inkColor)
	dc.DrawStringAnchored(title, cx, 200, 0.5, 0.5)

	dc.SetFontFace(r.bodyFace)
	dc.DrawStringAnchored("This certifies that", cx, 330, 0.5, 0.5)

	dc.SetFontFace(r.nameFace)
	dc.SetColor(r.accentColor)
	dc.DrawStringAnchored(data.RecipientName, cx, 420, 0.5, 0.5)

	dc.SetFontFace(r.bodyFace)
	dc.SetColor(r.inkColor)
	dc.DrawStringAnchored("has successfully completed", cx, 510, 0.5, 0.5)
	dc.DrawStringAnchored(data.ReferenceName, cx, 580, 0.5, 0.5)

	y := 660.0
	if data.CertificateType == types.CertificateTypeTrainingFocus && len(data.ModuleNames) > 0 {
		dc.SetFontFace(r.smallFace)
		for _, name := range truncateList(data.ModuleNames, 8) {
			dc.DrawStringAnchored(name, cx, y, 0.5, 0.5)
			y += 34
		}
		y += 20
	}

	dc.SetFontFace(r.bodyFace)
	dc.DrawStringAnchored(fmt.Sprintf("Issued %s", data.IssuedAt.Format("January 2, 2006")), cx, y+60, 0.5, 0.5)

	dc.SetFontFace(r.smallFace)
	dc.DrawStringAnchored(data.CertificateNumber, cx, certificateHeight-110, 0.5, 0.5)
	if data.AgencyName != "" {
		dc.DrawStringAnchored(data.AgencyName, cx, certificateHeight-150, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

// truncateList caps the rendered module list so long tracks do not overflow
// the page; the snapshot in certificate_data keeps the full list.
func truncateList(names []string, max int) []string {
	if len(names) <= max {
		return names
	}
	out := make([]string, 0, max)
	out = append(out, names[:max-1]...)
	out = append(out, fmt.Sprintf("and %d more modules", len(names)-(max-1)))
	return out
}
