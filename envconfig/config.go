// config.go - Prozess-Einstellungen aus GANINVERT_* Variablen
//
// Dieses Modul enthaelt:
// - Host: Adresse der Web-Ansicht (GANINVERT_HOST)
// - AllowedOrigins: zusaetzliche CORS-Origins (GANINVERT_ORIGINS)
// - DataDir: Wurzel fuer sample_imgs/, pickle_data/, checkpoints/ (GANINVERT_DATA)
// - LogLevel: INFO, DEBUG oder TRACE (GANINVERT_DEBUG)
//
// Getter und Export liegen in config_utils.go, Anzeige-Flags in config_features.go.
package envconfig

import (
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultPort = "8501"

// Host liest GANINVERT_HOST. Ohne Angabe lauscht die Web-Ansicht auf
// 127.0.0.1:8501, dem Port der Streamlit-Vorlage.
func Host() *url.URL {
	return parseHost(Var("GANINVERT_HOST"))
}

func parseHost(s string) *url.URL {
	port := defaultPort
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		scheme, rest = "http", s
	} else if scheme == "https" {
		port = "443"
	} else if scheme == "http" {
		port = "80"
	}

	hostport, path, _ := strings.Cut(rest, "/")
	host, p, err := net.SplitHostPort(hostport)
	switch {
	case err == nil:
		port = p
	case hostport == "":
		host = "127.0.0.1"
	default:
		host = strings.Trim(hostport, "[]")
		if ip := net.ParseIP(host); ip != nil {
			host = ip.String()
		}
	}

	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		slog.Warn("ungueltiger port, nutze standard", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{Scheme: scheme, Host: net.JoinHostPort(host, port), Path: path}
}

// AllowedOrigins gibt GANINVERT_ORIGINS (komma-separiert) plus die lokalen
// Origins mit beliebigem Port zurueck
func AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(Var("GANINVERT_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	for _, host := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		for _, scheme := range []string{"http", "https"} {
			origins = append(origins,
				scheme+"://"+host,
				scheme+"://"+net.JoinHostPort(host, "*"),
			)
		}
	}
	return origins
}

// DataDir gibt GANINVERT_DATA zurueck, "~/" wird aufgeloest.
// Default ist das Arbeitsverzeichnis.
func DataDir() string {
	dir := Var("GANINVERT_DATA")
	if rest, ok := strings.CutPrefix(dir, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, rest)
		}
	}
	if dir != "" {
		return dir
	}

	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// LogLevel liest GANINVERT_DEBUG: 1/true/debug = DEBUG, 2/trace = TRACE,
// sonst INFO
func LogLevel() slog.Level {
	s := strings.ToLower(Var("GANINVERT_DEBUG"))
	switch s {
	case "", "0", "false", "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "trace":
		return slog.Level(-8)
	}

	if b, err := strconv.ParseBool(s); err == nil && b {
		return slog.LevelDebug
	}
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n * -4)
	}
	return slog.LevelInfo
}
