package contractpdf

import "strings"

// DefaultLocale is used when neither the requested nor the configured
// locale has translations.
const DefaultLocale = "en"

var translations = map[string]map[string]string{
	"en": {
		"title":           "Rental Agreement",
		"contract_number": "Contract no.",
		"order_number":    "Order no.",
		"issued":          "Issued",
		"draft":           "DRAFT - not valid until the order is placed",
		"owner":           "Owner",
		"renter":          "Renter",
		"name":            "Name",
		"email":           "E-mail",
		"personal_number": "Personal number",
		"phone":           "Phone",
		"address":         "Address",
		"items":           "Rented items",
		"item":            "Item",
		"period":          "Period",
		"days":            "Days",
		"qty":             "Qty",
		"unit_price":      "Price/day",
		"row_total":       "Total",
		"subtotal":        "Subtotal",
		"rental_total":    "Rental total",
		"grand_total":     "Grand total",
		"payment_method":  "Payment method",
		"terms_heading":   "Terms",
		"terms": "The renter shall return the items in the condition received, at the end of the rental period. " +
			"The renter is liable for loss of or damage to the items during the rental period beyond normal wear. " +
			"The owner guarantees that the items are in working order at handover.",
		"signatures": "Signatures",
		"signed_at":  "Signed",
		"not_signed": "Not signed",
		"page":       "Page",
	},
	"sv": {
		"title":           "Hyresavtal",
		"contract_number": "Avtalsnr",
		"order_number":    "Ordernr",
		"issued":          "Utfärdat",
		"draft":           "UTKAST - gäller först när ordern är lagd",
		"owner":           "Uthyrare",
		"renter":          "Hyrestagare",
		"name":            "Namn",
		"email":           "E-post",
		"personal_number": "Personnummer",
		"phone":           "Telefon",
		"address":         "Adress",
		"items":           "Hyrda artiklar",
		"item":            "Artikel",
		"period":          "Period",
		"days":            "Dagar",
		"qty":             "Antal",
		"unit_price":      "Pris/dag",
		"row_total":       "Summa",
		"subtotal":        "Delsumma",
		"rental_total":    "Hyra totalt",
		"grand_total":     "Totalt",
		"payment_method":  "Betalsätt",
		"terms_heading":   "Villkor",
		"terms": "Hyrestagaren ska återlämna artiklarna i mottaget skick när hyresperioden löper ut. " +
			"Hyrestagaren ansvarar för förlust av eller skada på artiklarna under hyresperioden utöver normalt slitage. " +
			"Uthyraren garanterar att artiklarna fungerar vid överlämnandet.",
		"signatures": "Underskrifter",
		"signed_at":  "Undertecknat",
		"not_signed": "Ej undertecknat",
		"page":       "Sida",
	},
}

// ResolveLocale maps locale onto a supported one: "sv-SE" becomes "sv",
// unknown locales fall back to fallback, then to DefaultLocale.
func ResolveLocale(locale, fallback string) string {
	for _, l := range []string{locale, fallback} {
		l = strings.ToLower(strings.TrimSpace(l))
		if i := strings.IndexAny(l, "-_"); i > 0 {
			l = l[:i]
		}
		if _, ok := translations[l]; ok {
			return l
		}
	}
	return DefaultLocale
}

// T returns the translation of key in locale, falling back to DefaultLocale.
func T(locale, key string) string {
	if s, ok := translations[locale][key]; ok {
		return s
	}
	return translations[DefaultLocale][key]
}
