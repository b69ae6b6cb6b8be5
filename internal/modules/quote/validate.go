package quote

import (
	"errors"
	"net/mail"
	"strings"

	"convoyage/internal/modules/pricing"
)

// User-facing messages, shown as-is by the quote form.
const (
	MsgAddressesRequired = "Veuillez renseigner les adresses de départ et d'arrivée"
	MsgSelectAddress     = "Veuillez sélectionner une adresse dans les suggestions"
	MsgVehicleRequired   = "Veuillez renseigner la marque, le modèle et l'immatriculation du véhicule"
	MsgDistanceNotFound  = "Impossible de calculer la distance. Vérifiez les adresses saisies."
	MsgDistanceError     = "Erreur lors du calcul de la distance"
	MsgDistanceRequired  = "Veuillez calculer la distance avant d'envoyer la demande"
	MsgSiretRequired     = "Le numéro SIRET est obligatoire pour les professionnels"
	MsgSiretInvalid      = "Le numéro SIRET doit contenir 14 chiffres"
	MsgCompanyRequired   = "Le nom de l'entreprise est obligatoire pour les professionnels"
	MsgContactRequired   = "Veuillez renseigner votre nom, votre email et votre téléphone"
	MsgEmailInvalid      = "L'adresse email n'est pas valide"
	MsgCustomerType      = "Type de client inconnu"
	MsgGeneric           = "Une erreur est survenue"
)

// ValidationError is a user-correctable problem with the draft.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// validateForDistance gates the distance step on addresses and vehicle identity.
func validateForDistance(d *Draft) *ValidationError {
	if blank(d.DepartureLocation) || blank(d.ArrivalLocation) {
		return invalid("departure_location", MsgAddressesRequired)
	}
	if !d.DepartureSelected {
		return invalid("departure_location", MsgSelectAddress)
	}
	if !d.ArrivalSelected {
		return invalid("arrival_location", MsgSelectAddress)
	}
	if blank(d.VehicleBrand) || blank(d.VehicleModel) || blank(d.LicensePlate) {
		return invalid("vehicle", MsgVehicleRequired)
	}
	return nil
}

// validateForSubmit checks everything a request record needs. Professional
// identity is checked first.
func validateForSubmit(d *Draft) *ValidationError {
	if d.CustomerType == pricing.CustomerProfessional {
		siret := NormalizeSiret(d.SiretNumber)
		if siret == "" {
			return invalid("siret_number", MsgSiretRequired)
		}
		if !ValidSiret(siret) {
			return invalid("siret_number", MsgSiretInvalid)
		}
		if blank(d.CompanyName) {
			return invalid("company_name", MsgCompanyRequired)
		}
	}
	if blank(d.ClientName) || blank(d.ClientEmail) || blank(d.ClientPhone) {
		return invalid("contact", MsgContactRequired)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(d.ClientEmail)); err != nil {
		return invalid("client_email", MsgEmailInvalid)
	}
	if err := validateForDistance(d); err != nil {
		return err
	}
	if d.DistanceKm == nil {
		return invalid("distance_km", MsgDistanceRequired)
	}
	return nil
}

// NormalizeSiret strips the spaces commonly used to group SIRET digits.
func NormalizeSiret(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), " ", "")
}

// ValidSiret reports whether v is exactly 14 ASCII digits.
func ValidSiret(v string) bool {
	if len(v) != 14 {
		return false
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// IsValidation reports whether err is a user-correctable validation problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
