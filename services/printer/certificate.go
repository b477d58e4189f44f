package printer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"calibration-backend/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Layout constants, in points on an A4 portrait page.
const (
	pageHeight    = 841.89
	margin        = 50.0
	rowHeight     = 20.0
	sectionGap    = 20.0
	signatureGap  = 40.0
	minSignatureY = 700.0
	qrX           = 450.0
	qrSize        = 80.0
	// signatureBlock is the height the signature and QR code need below signatureY.
	signatureBlock = qrSize + 20.0
	signatureLimit = pageHeight - rowHeight
	pageBottom     = pageHeight - margin
	dateColumnX    = 300.0
)

type Party struct {
	ID            uint
	CompanyName   string
	ContactPerson string
	Email         string
}

type Address struct {
	Line1   string
	Line2   string
	City    string
	State   string
	Pincode string
}

type Instrument struct {
	ID           uint
	Name         string
	ModelNumber  string
	SerialNumber string
	Manufacturer string
}

type Equipment struct {
	Name        string
	ModelNumber string
}

// Document is the fully resolved certificate content. It is built once and only read here.
type Document struct {
	OrgName           string
	CertificateNumber string
	CalibrationDate   time.Time
	DueDate           time.Time
	Customer          Party
	Address           *Address
	Instrument        Instrument
	Equipment         []Equipment
	Environment       models.EnvironmentalConditions
	Results           []models.TestResult
	Remarks           string
	PreparedBy        string
}

// Line is one positioned run of text.
type Line struct {
	Page     int
	X        float64
	Y        float64
	Text     string
	FontSize float64
	Bold     bool
	Centered bool
}

// Layout is the drawing plan for a Document.
type Layout struct {
	Lines      []Line
	Pages      int
	SignatureY float64
	QRPage     int
	QRX        float64
	QRY        float64
	QRSize     float64
}

type planner struct {
	layout Layout
	page   int
	y      float64

	// measure carries the row font and is never drawn.
	measure *gofpdf.Fpdf
	tr      func(string) string
	width   float64
}

func newPlanner() *planner {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	pageWidth, _ := pdf.GetPageSize()
	return &planner{
		page:    1,
		measure: pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		width:   pageWidth - 2*margin,
	}
}

func (p *planner) fits(text string) bool {
	return p.measure.GetStringWidth(p.tr(text)) <= p.width
}

// wrap breaks text at newlines, then at spaces, so every line fits the content width.
// A word wider than the page is cut between runes.
func (p *planner) wrap(text string) []string {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var out []string
	for _, para := range strings.Split(text, "\n") {
		if p.fits(para) {
			out = append(out, para)
			continue
		}
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if p.fits(candidate) {
				line = candidate
				continue
			}
			if line != "" {
				out = append(out, line)
			}
			for !p.fits(word) {
				head := p.prefix(word)
				out = append(out, head)
				word = word[len(head):]
			}
			line = word
		}
		out = append(out, line)
	}
	return out
}

// prefix returns the longest leading run of s that fits, and at least one rune.
func (p *planner) prefix(s string) string {
	_, n := utf8.DecodeRuneInString(s)
	for n < len(s) {
		_, size := utf8.DecodeRuneInString(s[n:])
		if !p.fits(s[:n+size]) {
			break
		}
		n += size
	}
	return s[:n]
}

func (p *planner) put(x, y float64, text string, size float64, bold, centered bool) {
	p.layout.Lines = append(p.layout.Lines, Line{
		Page: p.page, X: x, Y: y, Text: text, FontSize: size, Bold: bold, Centered: centered,
	})
}

// row emits body text at the running offset, one line per wrapped line, breaking to a
// new page at the bottom margin.
func (p *planner) row(text string) {
	for _, line := range p.wrap(text) {
		if p.y > pageBottom-rowHeight {
			p.page++
			p.y = margin
		}
		p.put(margin, p.y, line, 12, false, false)
		p.y += rowHeight
	}
}

func (p *planner) section(title string, rows []string) {
	p.y += sectionGap
	p.row(title)
	for _, r := range rows {
		p.row(r)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Plan lays out doc without drawing it.
func Plan(doc Document) Layout {
	p := newPlanner()

	p.put(margin, 50, doc.OrgName, 20, true, true)
	p.put(margin, 80, "CALIBRATION CERTIFICATE", 16, false, true)

	p.y = 120
	p.row("Certificate No: " + doc.CertificateNumber)
	p.row("Date: " + doc.CalibrationDate.Format("2006-01-02"))
	p.row("Due Date: " + doc.DueDate.Format("2006-01-02"))

	p.section("Customer Details:", []string{
		"Company: " + doc.Customer.CompanyName,
		"Contact: " + doc.Customer.ContactPerson,
		"Email: " + doc.Customer.Email,
	})

	if a := doc.Address; a != nil {
		rows := []string{a.Line1}
		if a.Line2 != "" {
			rows = append(rows, a.Line2)
		}
		rows = append(rows, fmt.Sprintf("%s, %s - %s", a.City, a.State, a.Pincode))
		p.section("Address:", rows)
	}

	p.section("Instrument Details:", []string{
		"Name: " + doc.Instrument.Name,
		"Model: " + orNA(doc.Instrument.ModelNumber),
		"Serial: " + orNA(doc.Instrument.SerialNumber),
		"Manufacturer: " + orNA(doc.Instrument.Manufacturer),
	})

	if len(doc.Equipment) > 0 {
		rows := make([]string, len(doc.Equipment))
		for i, e := range doc.Equipment {
			rows[i] = fmt.Sprintf("%d. %s (%s)", i+1, e.Name, orNA(e.ModelNumber))
		}
		p.section("Test Equipment Used:", rows)
	}

	if env := doc.Environment; !env.IsEmpty() {
		var rows []string
		if env.Temperature != nil {
			rows = append(rows, "Temperature: "+number(*env.Temperature)+"°C")
		}
		if env.Humidity != nil {
			rows = append(rows, "Humidity: "+number(*env.Humidity)+"%")
		}
		if env.Pressure != nil {
			rows = append(rows, "Pressure: "+number(*env.Pressure))
		}
		p.section("Environmental Conditions:", rows)
	}

	if len(doc.Results) > 0 {
		rows := make([]string, len(doc.Results))
		for i, r := range doc.Results {
			rows[i] = fmt.Sprintf("%d. %s: %s %s (Expected: %s %s)",
				i+1, r.TestPoint, number(r.MeasuredValue), r.Unit, number(r.ExpectedValue), r.Unit)
		}
		p.section("Test Results:", rows)
	}

	if doc.Remarks != "" {
		p.section("Remarks:", []string{doc.Remarks})
	}

	sigY := p.y + signatureGap
	if sigY < minSignatureY {
		sigY = minSignatureY
	}
	if sigY+signatureBlock > signatureLimit {
		p.page++
		sigY = margin
	}
	p.put(margin, sigY, "Prepared by:", 12, false, false)
	p.put(margin, sigY+rowHeight, doc.PreparedBy, 12, false, false)
	p.put(dateColumnX, sigY, "Date:", 12, false, false)
	p.put(dateColumnX, sigY+rowHeight, doc.CalibrationDate.Format("2006-01-02"), 12, false, false)
	p.put(qrX, sigY+qrSize+5, "QR Code", 10, false, false)

	p.layout.Pages = p.page
	p.layout.SignatureY = sigY
	p.layout.QRPage = p.page
	p.layout.QRX = qrX
	p.layout.QRY = sigY
	p.layout.QRSize = qrSize
	return p.layout
}

type qrPayload struct {
	CertificateNumber string `json:"certificateNumber"`
	CustomerID        uint   `json:"customerId"`
	InstrumentID      uint   `json:"instrumentId"`
	CalibrationDate   string `json:"calibrationDate"`
	DueDate           string `json:"dueDate"`
}

// QRPayload is the JSON echoed in the certificate's QR code.
func QRPayload(doc Document) ([]byte, error) {
	return json.Marshal(qrPayload{
		CertificateNumber: doc.CertificateNumber,
		CustomerID:        doc.Customer.ID,
		InstrumentID:      doc.Instrument.ID,
		CalibrationDate:   doc.CalibrationDate.Format("2006-01-02"),
		DueDate:           doc.DueDate.Format("2006-01-02"),
	})
}

// Write renders doc as a PDF into w.
func Write(w io.Writer, doc Document) error {
	layout := Plan(doc)

	payload, err := QRPayload(doc)
	if err != nil {
		return fmt.Errorf("encode qr payload: %w", err)
	}
	qrPng, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("generate qr code: %w", err)
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", imgOptions, bytes.NewReader(qrPng))

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*margin

	page := 0
	for _, line := range layout.Lines {
		for page < line.Page {
			pdf.AddPage()
			page++
		}
		style := ""
		if line.Bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, line.FontSize)
		pdf.SetXY(line.X, line.Y)
		if line.Centered {
			pdf.CellFormat(contentWidth, line.FontSize, tr(line.Text), "", 0, "C", false, 0, "")
			continue
		}
		pdf.CellFormat(contentWidth-(line.X-margin), line.FontSize, tr(line.Text), "", 0, "L", false, 0, "")
	}
	for page < layout.QRPage {
		pdf.AddPage()
		page++
	}
	pdf.ImageOptions("qr", layout.QRX, layout.QRY, layout.QRSize, layout.QRSize, false, imgOptions, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("draw certificate: %w", err)
	}
	return pdf.Output(w)
}

// Generator writes certificate files under <uploadDir>/certificates.
type Generator struct {
	uploadDir string
}

func NewGenerator(uploadDir string) *Generator {
	return &Generator{uploadDir: uploadDir}
}

// Result locates a rendered certificate on disk and under the public /uploads route.
type Result struct {
	FilePath   string
	FileName   string
	PublicPath string
}

func FileName(certificateNumber string) string {
	return "certificate-" + filepath.Base(certificateNumber) + ".pdf"
}

func PublicPath(certificateNumber string) string {
	return "/uploads/certificates/" + FileName(certificateNumber)
}

// Render writes the document to a temporary file and renames it into place, so a failed
// render never leaves a partial file at the final path.
func (g *Generator) Render(doc Document) (Result, error) {
	dir := filepath.Join(g.uploadDir, "certificates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create certificate directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".certificate-*.pdf")
	if err != nil {
		return Result{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, doc); err != nil {
		tmp.Close()
		return Result{}, err
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("write certificate: %w", err)
	}

	name := FileName(doc.CertificateNumber)
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Result{}, fmt.Errorf("move certificate into place: %w", err)
	}
	return Result{FilePath: path, FileName: name, PublicPath: PublicPath(doc.CertificateNumber)}, nil
}

// Path returns where the file for certificateNumber lives on disk.
func (g *Generator) Path(certificateNumber string) string {
	return filepath.Join(g.uploadDir, "certificates", FileName(certificateNumber))
}
