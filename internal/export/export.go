// README: Admin exports: single-request quote PDF and the requests XLSX listing.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"convoyage/internal/modules/quote"
)

const (
	requestsSheet = "demandes"
	dateLayout    = "02/01/2006 15:04"
)

var requestHeaders = []string{
	"Référence", "Date", "Statut", "Type de client", "Départ", "Arrivée", "Distance (km)",
	"Marque", "Modèle", "Immatriculation", "VIN", "Prix (EUR)",
	"Nom", "Email", "Téléphone", "Entreprise", "SIRET", "Notes",
}

// BuildQuotePDF renders a one-page quote for a stored request.
func BuildQuotePDF(r *quote.Request) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Devis convoyage "+r.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr("Devis de convoyage"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.CellFormat(45, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(value), "", 0, "L", false, 0, "")
		pdf.Ln(6)
	}
	line("Référence", r.ID)
	line("Date", r.CreatedAt.Format(dateLayout))
	line("Statut", r.Status)
	pdf.Ln(2)

	line("Client", fmt.Sprintf("%s (%s)", r.ClientName, r.CustomerType.Label()))
	line("Email", r.ClientEmail)
	line("Téléphone", r.ClientPhone)
	if r.CompanyName != nil {
		line("Entreprise", *r.CompanyName)
	}
	if r.SiretNumber != nil {
		line("SIRET", *r.SiretNumber)
	}
	pdf.Ln(2)

	line("Départ", r.DepartureLocation)
	line("Arrivée", r.ArrivalLocation)
	line("Véhicule", fmt.Sprintf("%s %s", r.VehicleBrand, r.VehicleModel))
	line("Immatriculation", r.LicensePlate)
	if r.VINNumber != nil {
		line("VIN", *r.VINNumber)
	}
	if r.Notes != nil {
		line("Notes", *r.Notes)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 7, tr("Distance"), "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 7, tr("Prix TTC"), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(60, 7, fmt.Sprintf("%d km", r.DistanceKm), "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 7, tr(pdfMoney(r)), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfMoney swaps the narrow no-break space, absent from the core font encoding.
func pdfMoney(r *quote.Request) string {
	return strings.ReplaceAll(r.Price().Format(), "\u202f", "\u00a0")
}

// BuildRequestsXLSX renders the request listing, one row per request.
func BuildRequestsXLSX(reqs []*quote.Request) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", requestsSheet); err != nil {
		return nil, err
	}

	for i, h := range requestHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(requestsSheet, cell, h)
	}
	for i, r := range reqs {
		row := []interface{}{
			r.ID,
			r.CreatedAt.In(time.Local).Format(dateLayout),
			r.Status,
			r.CustomerType.Label(),
			r.DepartureLocation,
			r.ArrivalLocation,
			r.DistanceKm,
			r.VehicleBrand,
			r.VehicleModel,
			r.LicensePlate,
			deref(r.VINNumber),
			r.CalculatedPrice.Round(2).InexactFloat64(),
			r.ClientName,
			r.ClientEmail,
			r.ClientPhone,
			deref(r.CompanyName),
			deref(r.SiretNumber),
			deref(r.Notes),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(requestsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
