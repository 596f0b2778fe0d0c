package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"

	"invoicer/internal/logger"
)

// Renderer turns a laid out page into a PDF document.
type Renderer interface {
	Render(page Page, w io.Writer) error
}

// lineSpacing is the line height as a multiple of the font size.
const lineSpacing = 1.2

const logoImageName = "company-logo"

// GofpdfRenderer renders pages with github.com/jung-kurt/gofpdf using the
// built-in core fonts.
type GofpdfRenderer struct {
	log zerolog.Logger
}

// NewGofpdfRenderer creates the default renderer.
func NewGofpdfRenderer() *GofpdfRenderer {
	return &GofpdfRenderer{log: logger.WithComponent("pdf-renderer")}
}

// Render draws every command in order and writes the document to w.
func (r *GofpdfRenderer) Render(page Page, w io.Writer) error {
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator(page.Metadata.Creator, false)
	doc.SetAuthor(page.Metadata.Author, true)
	doc.SetTitle(page.Metadata.Title, true)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")
	family := FontFamily(page.Font.Name)
	lineHeight := page.Font.Size * lineSpacing

	for _, cmd := range page.Commands {
		switch cmd.Kind {
		case KindText:
			doc.SetFont(family, fontStyle(cmd.Weight), page.Font.Size)
			for i, line := range strings.Split(cmd.Text, "\n") {
				if line == "" {
					continue
				}
				text := tr(line)
				doc.SetXY(cmd.X, cmd.Y+float64(i)*lineHeight)
				doc.CellFormat(doc.GetStringWidth(text), lineHeight, text, "", 0, "LT", false, 0, "")
			}
		case KindLine:
			doc.SetDrawColor(0, 0, 0)
			doc.SetLineWidth(1)
			doc.Line(cmd.X, cmd.Y, cmd.X2, cmd.Y2)
		case KindFillRect:
			level := int(cmd.Gray*255 + 0.5)
			doc.SetFillColor(level, level, level)
			doc.Rect(cmd.X, cmd.Y, cmd.W, cmd.H, "F")
		case KindImage:
			if err := r.drawImage(doc, cmd); err != nil {
				r.log.Warn().Err(err).Msg("Skipping logo")
			}
		}
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return nil
}

func (r *GofpdfRenderer) drawImage(doc *gofpdf.Fpdf, cmd DrawCommand) error {
	imageType, err := DetectImageType(cmd.Image)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: imageType}
	doc.RegisterImageOptionsReader(logoImageName, opts, bytes.NewReader(cmd.Image))
	if doc.Err() {
		// gofpdf latches the first error; clear it so the rest of the page still renders.
		err := doc.Error()
		doc.ClearError()
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	doc.ImageOptions(logoImageName, cmd.X, cmd.Y, cmd.W, cmd.H, false, opts, 0, "")
	return nil
}

// DetectImageType sniffs logo bytes and returns the gofpdf image type.
func DetectImageType(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("image/png"):
		return "PNG", nil
	case mtype.Is("image/jpeg"):
		return "JPG", nil
	case mtype.Is("image/gif"):
		return "GIF", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mtype.String())
	}
}

// FontFamily maps an appearance font name to a gofpdf core font.
func FontFamily(name string) string {
	switch name {
	case "Times New Roman":
		return "Times"
	case "Courier New":
		return "Courier"
	default:
		// Helvetica, and Avenir which has no core-font equivalent.
		return "Helvetica"
	}
}

func fontStyle(weight FontWeight) string {
	if weight == WeightBold || weight == WeightSemibold {
		return "B"
	}
	return ""
}
