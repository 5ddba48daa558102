package receipt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Options struct {
	ShopName string
	// Link is encoded as a QR code on the receipt when set.
	Link string
}

// Render writes a one-page PDF receipt for order.
func Render(w io.Writer, order *models.Order, opts Options) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Commande %d", order.ID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(opts.ShopName))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Commande n° %d", order.ID)))
	pdf.Ln(6)
	pdf.Cell(0, 6, order.Created.Format("02/01/2006 15:04"))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s %s <%s>", order.FirstName, order.LastName, order.Email)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(100, 8, tr("Article"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, tr("Prix"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 8, tr("Quantité"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, tr("Total"), "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, it := range order.Items {
		pdf.CellFormat(100, 7, tr(it.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, it.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprint(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, it.LineTotal().StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 8, tr("Total"), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, order.Total().StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.Ln(4)

	status := "En attente de paiement"
	if order.Paid {
		status = "Payée"
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(status))
	pdf.Ln(8)

	if opts.Link != "" {
		png, err := qrcode.Encode(opts.Link, qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("encode qr code: %w", err)
		}
		name := fmt.Sprintf("qr-%d", order.ID)
		img := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, img, bytes.NewReader(png))
		pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), 35, 35, false, img, 0, opts.Link)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build receipt: %w", err)
	}
	return pdf.Output(w)
}
