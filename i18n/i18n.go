// Package i18n translates message codes for API responses.
package i18n

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

const DefaultLang = "fr"

var supported = []language.Tag{language.French, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[string]map[string]string{
	"fr": {
		"required":                  "Requis",
		"invalid_email":             "Adresse e-mail invalide",
		"must_be_positive":          "Doit être positif",
		"must_not_be_negative":      "Ne doit pas être négatif",
		"out_of_range":              "Hors limites",
		"too_precise":               "Trop de décimales",
		"too_large":                 "Valeur trop grande",
		"invalid":                   "Valeur invalide",
		"invalid_json":              "Corps de requête invalide",
		"validation_failed":         "Données invalides",
		"invalid_line_item":         "Ligne de facture invalide",
		"invalid_tax_rate":          "Taux de taxe invalide",
		"invalid_prefix":            "Préfixe de facture invalide",
		"invalid_status":            "Statut inconnu",
		"due_before_date":           "L'échéance précède la date de facture",
		"not_found":                 "Introuvable",
		"unauthorized":              "Non authentifié",
		"invalid_credentials":       "E-mail ou mot de passe invalide",
		"already_exists":            "Existe déjà",
		"illegal_status_transition": "Changement de statut interdit",
		"invoice_locked":            "La facture n'est plus un brouillon",
		"referential_conflict":      "Ressource encore référencée",
		"sequence_contention":       "Numérotation occupée, réessayez",
		"store_unavailable":         "Stockage indisponible",
		"no_recipient":              "Le client n'a pas d'adresse e-mail",
		"mail_failed":               "Échec de l'envoi de l'e-mail",
		"internal_error":            "Erreur interne",
	},
	"en": {
		"required":                  "Required",
		"invalid_email":             "Invalid email address",
		"must_be_positive":          "Must be positive",
		"must_not_be_negative":      "Must not be negative",
		"out_of_range":              "Out of range",
		"too_precise":               "Too many decimal places",
		"too_large":                 "Value too large",
		"invalid":                   "Invalid value",
		"invalid_json":              "Invalid request body",
		"validation_failed":         "Validation failed",
		"invalid_line_item":         "Invalid line item",
		"invalid_tax_rate":          "Invalid tax rate",
		"invalid_prefix":            "Invalid invoice prefix",
		"invalid_status":            "Unknown status",
		"due_before_date":           "Due date is before the invoice date",
		"not_found":                 "Not found",
		"unauthorized":              "Not authenticated",
		"invalid_credentials":       "Invalid email or password",
		"already_exists":            "Already exists",
		"illegal_status_transition": "Status change not allowed",
		"invoice_locked":            "Invoice is no longer a draft",
		"referential_conflict":      "Resource is still referenced",
		"sequence_contention":       "Invoice numbering is busy, retry",
		"store_unavailable":         "Storage unavailable",
		"no_recipient":              "Client has no email address",
		"mail_failed":               "Email delivery failed",
		"internal_error":            "Internal error",
	},
}

// T returns the message for code in lang. Unknown languages fall back to
// French; unknown codes are returned unchanged.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLang
	}
	// Only the first preference counts; "en-US,fr" means English.
	base, _ := tags[0].Base()
	if _, ok := messages[base.String()]; ok {
		return base.String()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLang
	}
	b, _ := supported[idx].Base()
	return b.String()
}

type langKey struct{}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, strings.ToLower(lang))
}

// LangFromContext returns the request language or the default.
func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLang
}
