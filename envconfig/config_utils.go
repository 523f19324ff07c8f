// config_utils.go - Getter-Bausteine und Export der Einstellungen
//
// Dieses Modul enthaelt:
// - Var: bereinigter Wert einer Variable
// - Bool/Uint: Getter mit Default und Warnung bei ungueltigen Werten
// - EnvVar/AsMap/Values: Beschreibung fuer Hilfetext und Start-Log
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var gibt den Wert von key ohne Leerzeichen und umschliessende Quotes zurueck
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Bool liest key als Schalter. Ein gesetzter, nicht lesbarer Wert zaehlt als an.
func Bool(key string) func() bool {
	return func() bool {
		s := Var(key)
		if s == "" {
			return false
		}
		b, err := strconv.ParseBool(s)
		return err != nil || b
	}
}

// Uint liest key als positive Zahl, ungueltige Werte fallen auf def zurueck
func Uint(key string, def uint) func() uint {
	return func() uint {
		s := Var(key)
		if s == "" {
			return def
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			slog.Warn("ungueltige umgebungsvariable, nutze standard", "key", key, "value", s, "default", def)
			return def
		}
		return uint(n)
	}
}

// EnvVar beschreibt eine Variable mit ihrem aktuellen Wert
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

var descriptions = []struct {
	name, text string
	value      func() any
}{
	{"GANINVERT_DEBUG", "Show additional debug information (1 = debug, 2 = trace)", func() any { return LogLevel() }},
	{"GANINVERT_DATA", "Directory holding sample_imgs/, pickle_data/ and checkpoints/", func() any { return DataDir() }},
	{"GANINVERT_HOST", "Address of the web display (default 127.0.0.1:8501)", func() any { return Host() }},
	{"GANINVERT_ORIGINS", "A comma separated list of allowed origins", func() any { return AllowedOrigins() }},
	{"GANINVERT_NOCOLOR", "Disable ANSI colors and half-block images", func() any { return NoColor() }},
	{"GANINVERT_PLAIN", "Print progress lines instead of the live terminal view", func() any { return PlainProgress() }},
	{"GANINVERT_REFRESH_EVERY", "Redraw the terminal view every n iterations (default 1)", func() any { return RefreshEvery() }},
}

// AsMap gibt alle Variablen mit aktuellem Wert zurueck
func AsMap() map[string]EnvVar {
	m := make(map[string]EnvVar, len(descriptions))
	for _, d := range descriptions {
		m[d.name] = EnvVar{Name: d.name, Value: d.value(), Description: d.text}
	}
	return m
}

// Values gibt die Werte als Strings fuer den Start-Log zurueck
func Values() map[string]string {
	vals := make(map[string]string, len(descriptions))
	for name, v := range AsMap() {
		vals[name] = fmt.Sprint(v.Value)
	}
	return vals
}
