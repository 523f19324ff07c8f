// config_features.go - Feature-Flags der Anzeige
//
// Dieses Modul enthaelt:
// - NoColor: ANSI-Farben im Terminal abschalten
// - PlainProgress: Zeilen-Ausgabe statt Live-Ansicht erzwingen
// - RefreshEvery: Terminal-Neuzeichnung nur jede n-te Iteration
package envconfig

var (
	// NoColor deaktiviert ANSI-Farben und Halbblock-Bilder
	NoColor = Bool("GANINVERT_NOCOLOR")

	// PlainProgress erzwingt die Zeilen-Ausgabe auch in einem Terminal
	PlainProgress = Bool("GANINVERT_PLAIN")

	// RefreshEvery zeichnet die Terminal-Ansicht nur jede n-te Iteration neu
	RefreshEvery = Uint("GANINVERT_REFRESH_EVERY", 1)
)
