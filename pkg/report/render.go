package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"gopkg.in/yaml.v3"
)

// Renderer writes a Document in one output format
type Renderer interface {
	Render(w io.Writer, doc *Document) error
	Extension() string
	ContentType() string
}

// RendererFor returns the renderer for a format name (pdf or yaml)
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "pdf", "":
		return NewPDFRenderer(), nil
	case "yaml", "yml":
		return YAMLRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q: must be pdf or yaml", format)
}

// PDF layout in millimetres on A4 portrait
const (
	pageMargin    = 14.0
	tableTop      = 55.0
	lineHeight    = 5.0
	cellPadding   = 1.5
	headerHeight  = 8.0
	tableFontSize = 10.0

	// baselineOffset places 10pt text inside a lineHeight band
	baselineOffset = 3.6
)

var fixedColumnWidths = []float64{25, 40, 25, 20}

// PDFRenderer lays the document out as a paginated table whose header row
// repeats on every page
type PDFRenderer struct {
	HeaderFill [3]int
}

// NewPDFRenderer uses the blue header style
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{HeaderFill: [3]int{41, 128, 185}}
}

func (r *PDFRenderer) Extension() string   { return "pdf" }
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Render writes the PDF to w
func (r *PDFRenderer) Render(w io.Writer, doc *Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.UserName, true)
	pdf.SetCreator("jira-timelog", false)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(pageMargin, 22, tr(doc.Title))

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(pageMargin, 30, tr("Generated on: "+doc.GeneratedOn))
	pdf.Text(pageMargin, 38, tr("User: "+doc.UserName))
	pdf.Text(pageMargin, 46, tr("Total Time: "+doc.TotalTime))

	widths := r.columnWidths(pdf)
	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - pageMargin - 6

	pdf.SetY(tableTop)
	r.header(pdf, doc.Columns, widths, tr)

	pdf.SetFont("Helvetica", "", tableFontSize)
	for _, row := range doc.Rows {
		cells := row.Cells()

		lines := make([][]string, len(cells))
		maxLines := 1
		for i, cell := range cells {
			lines[i] = wrapText(pdf, tr(cell), widths[i]-2*cellPadding)
			if len(lines[i]) > maxLines {
				maxLines = len(lines[i])
			}
		}
		height := float64(maxLines)*lineHeight + 2*cellPadding

		if pdf.GetY()+height > bottom {
			pdf.AddPage()
			pdf.SetY(pageMargin)
			r.header(pdf, doc.Columns, widths, tr)
			pdf.SetFont("Helvetica", "", tableFontSize)
		}

		y := pdf.GetY()
		x := pageMargin
		for i := range cells {
			pdf.Rect(x, y, widths[i], height, "D")
			for n, line := range lines[i] {
				pdf.Text(x+cellPadding, y+cellPadding+float64(n)*lineHeight+baselineOffset, line)
			}
			x += widths[i]
		}
		pdf.SetXY(pageMargin, y+height)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// wrapText breaks already-translated text into lines no wider than width.
// Core fonts are single-byte, so words too long for a line are cut by byte.
func wrapText(pdf *fpdf.Fpdf, text string, width float64) []string {
	var lines []string

	for _, paragraph := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(paragraph) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if pdf.GetStringWidth(candidate) <= width {
				line = candidate
				continue
			}

			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for pdf.GetStringWidth(word) > width && len(word) > 1 {
				cut := len(word) - 1
				for cut > 1 && pdf.GetStringWidth(word[:cut]) > width {
					cut--
				}
				lines = append(lines, word[:cut])
				word = word[cut:]
			}
			line = word
		}
		lines = append(lines, line)
	}

	return lines
}

// columnWidths gives the last column whatever the fixed columns leave
func (r *PDFRenderer) columnWidths(pdf *fpdf.Fpdf) []float64 {
	pageWidth, _ := pdf.GetPageSize()
	remaining := pageWidth - 2*pageMargin

	widths := make([]float64, 0, len(fixedColumnWidths)+1)
	for _, w := range fixedColumnWidths {
		widths = append(widths, w)
		remaining -= w
	}
	return append(widths, remaining)
}

func (r *PDFRenderer) header(pdf *fpdf.Fpdf, columns []string, widths []float64, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", tableFontSize)
	pdf.SetFillColor(r.HeaderFill[0], r.HeaderFill[1], r.HeaderFill[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)

	for i, column := range columns {
		pdf.CellFormat(widths[i], headerHeight, tr(column), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(headerHeight)

	pdf.SetTextColor(0, 0, 0)
}

// YAMLRenderer writes the document as YAML
type YAMLRenderer struct{}

func (YAMLRenderer) Extension() string   { return "yaml" }
func (YAMLRenderer) ContentType() string { return "application/yaml" }

// Render writes the YAML document to w
func (YAMLRenderer) Render(w io.Writer, doc *Document) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	return encoder.Close()
}

// Render produces the whole output in memory so a failed render leaves nothing
// behind
func Render(renderer Renderer, doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := renderer.Render(&buf, doc); err != nil {
		return nil, &FormatError{
			Type:    ErrTypeRender,
			Message: fmt.Sprintf("failed to render %s", renderer.Extension()),
			Err:     err,
			Context: doc.ReportID,
		}
	}
	return buf.Bytes(), nil
}
