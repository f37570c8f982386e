// Package pdf renders invoices as A4 PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/models"
	"github.com/jung-kurt/gofpdf"
)

const dateLayout = "2006-01-02"

// Column widths of the line item table, in mm. They sum to the printable width.
var cols = [4]float64{100, 25, 30, 35}

// Render lays out the invoice issued by user and returns the encoded PDF.
func Render(inv *models.Invoice, user *models.User) ([]byte, error) {
	if inv == nil || user == nil {
		return nil, fmt.Errorf("pdf: invoice and user are required")
	}
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Invoice "+inv.Number, true)
	doc.SetAuthor(user.BusinessName(), true)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	header(doc, tr, inv, user)
	billTo(doc, tr, inv)
	lineTable(doc, tr, inv)
	totals(doc, inv)

	if strings.TrimSpace(inv.Notes) != "" {
		doc.Ln(8)
		doc.SetFont("Arial", "B", 11)
		doc.Cell(40, 7, "Notes")
		doc.Ln(7)
		doc.SetFont("Arial", "", 10)
		doc.MultiCell(190, 5, tr(inv.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render %s: %w", inv.Number, err)
	}
	return buf.Bytes(), nil
}

func header(doc *gofpdf.Fpdf, tr func(string) string, inv *models.Invoice, user *models.User) {
	top := doc.GetY()
	doc.SetFont("Arial", "B", 16)
	doc.Cell(95, 10, tr(user.BusinessName()))
	doc.Ln(9)

	doc.SetFont("Arial", "", 10)
	b := user.BusinessInfo
	for _, l := range strings.Split(b.Address, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			doc.Cell(95, 5, tr(l))
			doc.Ln(5)
		}
	}
	for _, l := range []string{b.Email, b.Phone} {
		if l != "" {
			doc.Cell(95, 5, tr(l))
			doc.Ln(5)
		}
	}
	if b.TaxID != "" {
		doc.Cell(95, 5, tr("Tax ID: "+b.TaxID))
		doc.Ln(5)
	}
	leftEnd := doc.GetY()

	doc.SetXY(105, top)
	doc.SetFont("Arial", "B", 20)
	doc.CellFormat(95, 10, "INVOICE", "", 2, "R", false, 0, "")
	doc.SetFont("Arial", "", 10)
	doc.CellFormat(95, 6, tr(inv.Number), "", 2, "R", false, 0, "")
	doc.CellFormat(95, 6, "Date: "+inv.Date.Format(dateLayout), "", 2, "R", false, 0, "")
	doc.CellFormat(95, 6, "Due: "+inv.DueDate.Format(dateLayout), "", 2, "R", false, 0, "")
	doc.CellFormat(95, 6, "Status: "+inv.Status.String(), "", 2, "R", false, 0, "")

	doc.SetXY(10, max(leftEnd, doc.GetY()))
	doc.Ln(10)
}

func billTo(doc *gofpdf.Fpdf, tr func(string) string, inv *models.Invoice) {
	doc.SetFont("Arial", "B", 12)
	doc.Cell(40, 8, "Bill To:")
	doc.Ln(8)
	doc.SetFont("Arial", "", 11)
	doc.Cell(190, 6, tr(inv.Client.Name))
	doc.Ln(6)
	for _, l := range inv.Client.AddressLines() {
		doc.Cell(190, 6, tr(l))
		doc.Ln(6)
	}
	if inv.Client.Email != "" {
		doc.Cell(190, 6, tr(inv.Client.Email))
		doc.Ln(6)
	}
	doc.Ln(8)
}

func lineTable(doc *gofpdf.Fpdf, tr func(string) string, inv *models.Invoice) {
	doc.SetFont("Arial", "B", 10)
	doc.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Qty", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		doc.CellFormat(cols[i], 8, h, "1", 0, align, true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Arial", "", 10)
	for _, it := range inv.LineItems {
		doc.CellFormat(cols[0], 7, tr(truncate(it.Description, 60)), "1", 0, "L", false, 0, "")
		doc.CellFormat(cols[1], 7, it.Quantity.String(), "1", 0, "R", false, 0, "")
		doc.CellFormat(cols[2], 7, calc.FormatCurrency(it.Rate), "1", 0, "R", false, 0, "")
		doc.CellFormat(cols[3], 7, calc.FormatCurrency(it.Amount), "1", 1, "R", false, 0, "")
	}
	doc.Ln(4)
}

func totals(doc *gofpdf.Fpdf, inv *models.Invoice) {
	label := cols[0] + cols[1] + cols[2]
	row := func(name, value string) {
		doc.CellFormat(label, 7, name, "", 0, "R", false, 0, "")
		doc.CellFormat(cols[3], 7, value, "", 1, "R", false, 0, "")
	}
	doc.SetFont("Arial", "", 10)
	row("Subtotal:", calc.FormatCurrency(inv.Subtotal))
	row(fmt.Sprintf("Tax (%s%%):", inv.TaxRate.String()), calc.FormatCurrency(inv.TaxAmount))
	doc.SetFont("Arial", "B", 12)
	row("Total:", calc.FormatCurrency(inv.Total))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
