// Package locale holds the user-facing strings and their translations.
package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	OpenError            = "openError"
	OpenErrorDescription = "openErrorDescription"
	AuthWaiting          = "authWaiting"
	AuthHandoffStarted   = "authHandoffStarted"
	AuthComplete         = "authComplete"
	AuthFailed           = "authFailed"
	LoggedOut            = "loggedOut"
	FileOpened           = "fileOpened"
)

var translations = map[language.Tag]map[string]string{
	language.English: {
		OpenError:            "Error opening file",
		OpenErrorDescription: "There was an error opening the file",
		AuthWaiting:          "Waiting for sign-in to complete in the browser...",
		AuthHandoffStarted:   "Sign-in handed off to the host; complete it in the opened window.",
		AuthComplete:         "Sign-in complete. You can close this window.",
		AuthFailed:           "Sign-in failed. You can close this window and try again.",
		LoggedOut:            "Signed out.",
		FileOpened:           "Opened %s (%d bytes)",
	},
	language.German: {
		OpenError:            "Fehler beim Öffnen der Datei",
		OpenErrorDescription: "Beim Öffnen der Datei ist ein Fehler aufgetreten",
		AuthWaiting:          "Warte auf die Anmeldung im Browser...",
		AuthHandoffStarted:   "Anmeldung an den Host übergeben; bitte im geöffneten Fenster abschließen.",
		AuthComplete:         "Anmeldung abgeschlossen. Dieses Fenster kann geschlossen werden.",
		AuthFailed:           "Anmeldung fehlgeschlagen. Fenster schließen und erneut versuchen.",
		LoggedOut:            "Abgemeldet.",
		FileOpened:           "%s geöffnet (%d Bytes)",
	},
}

// supported is ordered so the matcher falls back to English.
var supported = []language.Tag{language.English, language.German}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(supported)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	for tag, msgs := range translations {
		for key, text := range msgs {
			if err := b.SetString(tag, key, text); err != nil {
				panic("locale: " + err.Error())
			}
		}
	}

	return b
}

// Printer renders message keys in one language.
type Printer struct {
	p *message.Printer
}

// New returns a printer for a BCP 47 tag. Unknown or unparsable tags fall
// back to English.
func New(tag string) *Printer {
	t, err := language.Parse(tag)
	if err != nil {
		t = language.English
	}

	_, idx, _ := matcher.Match(t)

	return &Printer{p: message.NewPrinter(supported[idx], message.Catalog(cat))}
}

// T renders key with optional arguments.
func (p *Printer) T(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// Supported lists the languages with a full translation.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}
