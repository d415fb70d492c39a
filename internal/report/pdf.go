package report

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"

	"github.com/dvloznov/finance-bot/internal/domain"
)

// Renderer turns a Document into file bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}

// PDFRenderer renders A4 reports with the core Helvetica font.
type PDFRenderer struct{}

var _ Renderer = PDFRenderer{}

const (
	pageMargin = 15.0
	lineHeight = 7.0
)

// Render implements Renderer.
func (PDFRenderer) Render(doc Document) ([]byte, error) {
	loc := doc.loc()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Laporan Keuangan "+doc.Sender, true)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "LAPORAN KEUANGAN", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Nomor: "+doc.Sender, "", 1, "C", false, 0, "")
	period := fmt.Sprintf("Periode: %s - %s", doc.From.In(loc).Format("02/01/2006"), doc.To.In(loc).Format("02/01/2006"))
	if doc.Days > 0 {
		period += fmt.Sprintf(" (%d hari)", doc.Days)
	}
	pdf.CellFormat(0, 6, period, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Summary
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, lineHeight, "RINGKASAN", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Income", domain.FormatRupiah(doc.Summary.Income)},
		{"Expense", domain.FormatRupiah(doc.Summary.Expense)},
		{"Net", domain.FormatRupiah(doc.Summary.Net())},
		{"Saving Rate", doc.Summary.SavingRate().StringFixed(1) + "%"},
		{"Transaksi", fmt.Sprint(doc.Summary.Count)},
	}
	for _, r := range rows {
		pdf.CellFormat(50, lineHeight, r[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, r[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Breakdown
	if len(doc.Breakdown) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, lineHeight, "PENGELUARAN PER KATEGORI", "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, ct := range doc.Breakdown {
			pdf.CellFormat(50, lineHeight, ct.Category, "", 0, "L", false, 0, "")
			pdf.CellFormat(50, lineHeight, domain.FormatRupiah(ct.Total), "", 0, "R", false, 0, "")
			pdf.CellFormat(0, lineHeight, fmt.Sprintf("%d transaksi", ct.Count), "", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	// Transactions
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, lineHeight, "DAFTAR TRANSAKSI", "B", 1, "L", false, 0, "")
	if len(doc.Transactions) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, lineHeight, "Tidak ada transaksi pada periode ini", "", 1, "L", false, 0, "")
	} else {
		widths := []float64{32, 22, 28, 35, 63}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range []string{"Tanggal", "Tipe", "Kategori", "Jumlah", "Catatan"} {
			pdf.CellFormat(widths[i], lineHeight, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, tx := range doc.Transactions {
			cells := []string{
				tx.Timestamp.In(loc).Format("02/01/2006 15:04"),
				string(tx.Type),
				tx.Category,
				domain.FormatRupiah(tx.Amount),
				truncate(latin(tx.Note), 38),
			}
			aligns := []string{"L", "L", "L", "R", "L"}
			for i, c := range cells {
				pdf.CellFormat(widths[i], lineHeight-1, c, "1", 0, aligns[i], false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "Dibuat "+doc.GeneratedAt.In(loc).Format("02/01/2006 15:04 MST"), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("Render: %w", err)
	}
	return buf.Bytes(), nil
}

// latin drops characters the core fonts cannot draw.
func latin(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
