// Package pdf lays out and renders the single-page invoice document.
//
// LayoutInvoicePage is a pure function from an invoice to an ordered list of
// draw commands on a US-Letter page (612x792pt, origin top-left). A Renderer
// turns the commands into PDF bytes; GofpdfRenderer is the production one.
package pdf

import (
	"fmt"
	"strconv"
	"time"

	"invoicer/pkg/models"
)

// Page geometry in points.
const (
	PageWidth  = 612.0
	PageHeight = 792.0

	marginLeft    = 40.0
	marginTop     = 40.0
	ruleEnd       = 572.0
	logoSize      = 100.0
	logoAdvance   = 120.0
	customerX     = 400.0
	blockAdvance  = 100.0
	rowHeight     = 20.0
	headerWidth   = 532.0 - marginLeft
	headerGray    = 0.9
	footerStartY  = 700.0
	totalsOffsetX = 360.0
)

// Table column offsets from the left margin.
var columnOffsets = [6]float64{0, 150, 200, 280, 360, 450}

var columnLabels = [6]string{"Item", "Qty", "Price", "Tax%", "Line Total", "Curr."}

// Document creator recorded in the PDF metadata.
const Creator = "InvoiceApp"

type CommandKind int

const (
	KindText CommandKind = iota
	KindLine
	KindFillRect
	KindImage
)

func (k CommandKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindLine:
		return "line"
	case KindFillRect:
		return "rect"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

type FontWeight int

const (
	WeightRegular FontWeight = iota
	WeightSemibold
	WeightBold
)

// DrawCommand is one primitive on the page. Which fields apply depends on
// Kind: text uses X, Y, Text and Weight (Y is the top of the first line);
// lines run from (X, Y) to (X2, Y2); rects and images fill X, Y, W, H.
type DrawCommand struct {
	Kind   CommandKind
	X, Y   float64
	X2, Y2 float64
	W, H   float64
	Text   string
	Weight FontWeight
	Gray   float64
	Image  []byte
}

// Font is the family and size chosen in the company appearance settings.
type Font struct {
	Name string
	Size float64
}

// Metadata is written into the PDF info dictionary.
type Metadata struct {
	Creator string
	Author  string
	Title   string
}

// Page is a laid out invoice.
type Page struct {
	Width    float64
	Height   float64
	Font     Font
	Metadata Metadata
	Commands []DrawCommand
}

// LayoutInvoicePage places every element of the invoice. Missing optional
// fields are printed as empty strings.
func LayoutInvoicePage(inv *models.Invoice) Page {
	company := inv.CompanyInfo
	if company == nil {
		company = &models.CompanyInfo{}
	}
	companyRate := company.TaxRate

	b := &builder{}
	y := marginTop

	if company.HasLogo() {
		b.image(marginLeft, y, logoSize, logoSize, company.LogoData)
		y += logoAdvance
	}

	b.text(marginLeft, y, WeightBold, fmt.Sprintf("%s\n%s\n%s %s\n%s\nTax ID: %s",
		company.Name,
		company.StreetAddress,
		company.PostCode, company.City,
		company.Country,
		company.TaxID,
	))
	b.text(customerX, y, WeightRegular, customerBlock(inv.Customer))

	y += blockAdvance
	b.rule(y)
	y += 20

	b.text(marginLeft, y, WeightRegular, fmt.Sprintf(
		"Invoice Number: %s\nDate: %s\nDue Date: %s\nStatus: %s\nTerms: %s",
		inv.InvoiceNumber,
		formatMediumDate(inv.Date),
		formatMediumDate(inv.DueDate()),
		inv.Status(),
		inv.PaymentTermsRaw,
	))

	y += blockAdvance
	b.rule(y)
	y += 10

	b.fillRect(marginLeft, y, headerWidth, rowHeight, headerGray)
	for i, label := range columnLabels {
		b.text(marginLeft+columnOffsets[i], y, WeightSemibold, label)
	}

	y += rowHeight
	b.rule(y)
	y += 10

	for i := range inv.Items {
		item := &inv.Items[i]
		cells := [6]string{
			item.Product.Name,
			strconv.Itoa(item.Quantity),
			models.FormatAmount(item.Product.Price),
			strconv.Itoa(item.EffectiveTaxRate(companyRate)) + "%",
			models.FormatAmount(item.LineTotal(companyRate)),
			item.Product.Currency,
		}
		for col, cell := range cells {
			b.text(marginLeft+columnOffsets[col], y, WeightRegular, cell)
		}
		y += rowHeight
	}

	y += 10
	b.rule(y)
	y += 10

	totals := models.ComputeTotals(inv.Items, companyRate)
	totalsX := marginLeft + totalsOffsetX
	b.text(totalsX, y, WeightRegular, "Subtotal: "+models.FormatAmount(totals.Subtotal))
	y += rowHeight
	b.text(totalsX, y, WeightRegular, company.TaxLabel+" Total: "+models.FormatAmount(totals.Tax))
	y += rowHeight
	b.text(totalsX, y, WeightBold, "Total: "+models.FormatAmount(totals.Total))
	y += rowHeight

	if y < footerStartY {
		y = footerStartY
	}
	if footer := company.FooterBlock(inv.InvoiceNumber); footer != "" {
		b.rule(y)
		y += 20
		b.text(marginLeft, y, WeightRegular, footer)
	}

	fontSize := float64(company.FontSize)
	if fontSize == 0 {
		fontSize = models.DefaultFontSize
	}
	fontName := company.FontName
	if fontName == "" {
		fontName = models.DefaultFontName
	}

	return Page{
		Width:  PageWidth,
		Height: PageHeight,
		Font:   Font{Name: fontName, Size: fontSize},
		Metadata: Metadata{
			Creator: Creator,
			Author:  company.Name,
			Title:   "Invoice " + inv.InvoiceNumber,
		},
		Commands: b.cmds,
	}
}

func customerBlock(c *models.Customer) string {
	if c == nil {
		return "Customer:\nN/A"
	}
	return fmt.Sprintf("Customer:\n%s\n%s\nEmail: %s\nPhone: %s", c.Name, c.Address, c.Email, c.Phone)
}

func formatMediumDate(t time.Time) string {
	return t.Format(models.MediumDateLayout)
}

type builder struct {
	cmds []DrawCommand
}

func (b *builder) text(x, y float64, weight FontWeight, s string) {
	b.cmds = append(b.cmds, DrawCommand{Kind: KindText, X: x, Y: y, Text: s, Weight: weight})
}

func (b *builder) rule(y float64) {
	b.cmds = append(b.cmds, DrawCommand{Kind: KindLine, X: marginLeft, Y: y, X2: ruleEnd, Y2: y})
}

func (b *builder) fillRect(x, y, w, h, gray float64) {
	b.cmds = append(b.cmds, DrawCommand{Kind: KindFillRect, X: x, Y: y, W: w, H: h, Gray: gray})
}

func (b *builder) image(x, y, w, h float64, data []byte) {
	b.cmds = append(b.cmds, DrawCommand{Kind: KindImage, X: x, Y: y, W: w, H: h, Image: data})
}
