// Package contractpdf renders rental contracts to PDF.
//
// Rendering is a pure function of the contract data and locale: document
// dates are pinned to the contract's issue time and the catalog is written in
// sorted order, so identical input yields byte-identical output.
package contractpdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pageWidth    = 210.0
	margin       = 15.0
	contentWidth = pageWidth - 2*margin
	lineHeight   = 6.0
	sigHeight    = 25.0
	dateLayout   = "2006-01-02"
)

// Generator renders contracts, falling back to its default locale for
// unsupported locales.
type Generator struct {
	DefaultLocale string
}

func NewGenerator(defaultLocale string) *Generator {
	return &Generator{DefaultLocale: ResolveLocale(defaultLocale, DefaultLocale)}
}

func (g *Generator) Render(data *model.RentalContractData, locale string) ([]byte, error) {
	return render(data, ResolveLocale(locale, g.DefaultLocale))
}

// Render renders data with the package default locale as fallback.
func Render(data *model.RentalContractData, locale string) ([]byte, error) {
	return render(data, ResolveLocale(locale, DefaultLocale))
}

type document struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	locale string
	data   *model.RentalContractData
}

func render(data *model.RentalContractData, locale string) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("contract data is required")
	}

	issued := data.IssuedAt
	if issued.IsZero() {
		issued = time.Unix(0, 0).UTC()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(issued)
	pdf.SetModificationDate(issued)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin+5)

	d := &document{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		locale: locale,
		data:   data,
	}

	pdf.SetTitle(d.t("title")+" "+data.ContractNumber, true)
	pdf.SetFooterFunc(d.footer)
	pdf.AliasNbPages("")
	pdf.AddPage()

	d.header()
	d.parties()
	d.items()
	d.totals()
	d.terms()
	if err := d.signatures(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *document) t(key string) string {
	return d.tr(T(d.locale, key))
}

func (d *document) text(s string) string {
	return d.tr(s)
}

func (d *document) header() {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentWidth, 10, d.t("title"), "", 1, "C", false, 0, "")

	if d.data.IsDraft() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(contentWidth, lineHeight, d.t("draft"), "", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth/2, lineHeight, d.t("contract_number")+": "+d.text(d.data.ContractNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, lineHeight, d.t("issued")+": "+d.data.IssuedAt.Format(dateLayout), "", 1, "R", false, 0, "")
	if d.data.OrderNumber != "" {
		pdf.CellFormat(contentWidth, lineHeight, d.t("order_number")+": "+d.text(d.data.OrderNumber), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (d *document) parties() {
	pdf := d.pdf
	colWidth := contentWidth / 2
	top := pdf.GetY()

	d.party(margin, top, colWidth, d.t("owner"), d.data.Owner)
	bottomOwner := pdf.GetY()
	d.party(margin+colWidth, top, colWidth, d.t("renter"), d.data.Renter)

	if bottomOwner > pdf.GetY() {
		pdf.SetY(bottomOwner)
	}
	pdf.Ln(4)
}

func (d *document) party(x, y, w float64, heading string, p model.ContractParty) {
	pdf := d.pdf
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(w, lineHeight+1, heading, "B", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	rows := [][2]string{
		{"name", p.Name},
		{"email", p.Email},
		{"personal_number", p.PersonalNumber},
		{"phone", p.Telephone},
		{"address", p.Address},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		pdf.SetX(x)
		pdf.MultiCell(w, lineHeight-1, d.t(r[0])+": "+d.text(r[1]), "", "L", false)
	}
}

func (d *document) items() {
	pdf := d.pdf
	widths := []float64{62, 50, 14, 12, 21, 21}
	headers := []string{"item", "period", "days", "qty", "unit_price", "row_total"}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentWidth, lineHeight+1, d.t("items"), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], lineHeight, d.t(h), "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range d.data.Items {
		period := it.From.Format(dateLayout) + " - " + it.To.Format(dateLayout)
		cells := []string{
			d.text(it.Name),
			period,
			fmt.Sprintf("%d", it.Days),
			fmt.Sprintf("%d", it.Quantity),
			it.UnitPrice.StringFixed(2),
			it.RowTotal.StringFixed(2),
		}
		for i, c := range cells {
			align := "L"
			if i >= 2 {
				align = "R"
			}
			pdf.CellFormat(widths[i], lineHeight, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

func (d *document) totals() {
	pdf := d.pdf
	labelWidth := contentWidth - 40

	line := func(label string, amount decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, lineHeight, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, lineHeight, d.money(amount), "", 1, "R", false, 0, "")
	}

	line(d.t("subtotal"), d.data.Subtotal, false)
	if !d.data.RentalTotal.IsZero() {
		line(d.t("rental_total"), d.data.RentalTotal, false)
	}
	for _, tax := range d.data.Taxes {
		line(d.text(tax.Label), tax.Amount, false)
	}
	line(d.t("grand_total"), d.data.GrandTotal, true)

	if d.data.PaymentMethod != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentWidth, lineHeight, d.t("payment_method")+": "+d.text(d.data.PaymentMethod), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func (d *document) money(v decimal.Decimal) string {
	if d.data.Currency == "" {
		return v.StringFixed(2)
	}
	return v.StringFixed(2) + " " + d.text(d.data.Currency)
}

func (d *document) terms() {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentWidth, lineHeight+1, d.t("terms_heading"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(contentWidth, lineHeight-1, d.t("terms"), "", "J", false)
	pdf.Ln(4)
}

func (d *document) signatures() error {
	pdf := d.pdf
	colWidth := contentWidth / 2

	// keep the signature block on one page
	if pdf.GetY()+sigHeight+30 > 297-margin-5 {
		pdf.AddPage()
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentWidth, lineHeight+1, d.t("signatures"), "", 1, "L", false, 0, "")

	top := pdf.GetY()
	if err := d.signature("sig-owner", margin, top, colWidth-5, d.t("owner"), d.data.OwnerSignature); err != nil {
		return err
	}
	if err := d.signature("sig-renter", margin+colWidth, top, colWidth-5, d.t("renter"), d.data.RenterSignature); err != nil {
		return err
	}
	return pdf.Error()
}

func (d *document) signature(name string, x, y, w float64, heading string, sig *model.Signature) error {
	pdf := d.pdf

	if sig != nil {
		raw, err := base64.StdEncoding.DecodeString(sig.ImageData())
		if err != nil {
			return fmt.Errorf("invalid %s image: %w", name, err)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("invalid %s image: %w", name, err)
		}
		h := sigHeight
		iw := info.Width() * h / info.Height()
		if iw > w {
			iw, h = w, info.Height()*w/info.Width()
		}
		pdf.ImageOptions(name, x, y, iw, h, false, opts, 0, "")
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(x, y+sigHeight+1, x+w, y+sigHeight+1)

	pdf.SetXY(x, y+sigHeight+2)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(w, lineHeight-1, heading, "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if sig == nil {
		pdf.CellFormat(w, lineHeight-1, d.t("not_signed"), "", 2, "L", false, 0, "")
		return nil
	}
	pdf.CellFormat(w, lineHeight-1, d.text(sig.SignerName), "", 2, "L", false, 0, "")
	pdf.CellFormat(w, lineHeight-1, d.t("signed_at")+": "+sig.SignedAt.UTC().Format("2006-01-02 15:04 MST"), "", 2, "L", false, 0, "")
	return nil
}

func (d *document) footer() {
	pdf := d.pdf
	pdf.SetY(-15)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(contentWidth/2, 10, d.text(d.data.ContractNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 10, fmt.Sprintf("%s %d/{nb}", d.t("page"), pdf.PageNo()), "", 0, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
