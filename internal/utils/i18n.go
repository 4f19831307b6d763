package utils

// Server and CLI side messages for fixed keys. Page copy lives in the frontend.

// SupportedLocales lists the locales messages exist for.
var SupportedLocales = []string{"en", "de"}

var translations = map[string]map[string]string{
	"en": {
		"health.ok":                 "ok",
		"gate.not_requested":        "Enter your email to unlock the full solution.",
		"gate.requested":            "Request received. Check your email for the unlock link.",
		"gate.invalid":              "This link is invalid or has expired.",
		"gate.already_used":         "This link has already been used.",
		"gate.unlocked":             "Solution unlocked.",
		"step.unanswered":           "Please answer the question to continue.",
		"step.out_of_range":         "This step does not exist.",
		"identity.name_required":    "Please enter your name.",
		"identity.invalid_email":    "Please enter a valid email address.",
		"survey.submitted":          "Thank you, your answers were submitted.",
		"mail.unlock.subject":       "Your link to the case study \"%s\"",
		"mail.confirmation.subject": "Thank you for taking part in \"%s\"",
		"mail.notice.subject":       "New response to \"%s\"",
	},
	"de": {
		"health.ok":                 "ok",
		"gate.not_requested":        "Geben Sie Ihre E-Mail-Adresse ein, um die vollständige Lösung freizuschalten.",
		"gate.requested":            "Anfrage erhalten. Bitte prüfen Sie Ihr Postfach.",
		"gate.invalid":              "Dieser Link ist ungültig oder abgelaufen.",
		"gate.already_used":         "Dieser Link wurde bereits verwendet.",
		"gate.unlocked":             "Lösung freigeschaltet.",
		"step.unanswered":           "Bitte beantworten Sie die Frage, um fortzufahren.",
		"step.out_of_range":         "Dieser Schritt existiert nicht.",
		"identity.name_required":    "Bitte geben Sie Ihren Namen ein.",
		"identity.invalid_email":    "Bitte geben Sie eine gültige E-Mail-Adresse ein.",
		"survey.submitted":          "Vielen Dank, Ihre Antworten wurden übermittelt.",
		"mail.unlock.subject":       "Ihr Link zur Case Study \"%s\"",
		"mail.confirmation.subject": "Vielen Dank für Ihre Teilnahme an \"%s\"",
		"mail.notice.subject":       "Neue Antwort auf \"%s\"",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
