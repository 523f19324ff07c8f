// routes_middleware.go - Middleware der Web-Ansicht
// Enthaelt: allowedHostsMiddleware(), noCacheMiddleware(), requestLogger()

package server

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/latentlab/ganinvert/logutil"
)

// localSuffixes sind Host-Endungen die nie oeffentlich aufloesen
var localSuffixes = []string{".localhost", ".local", ".internal"}

// isLocalIP prueft ob ip einem Interface dieses Rechners gehoert
func isLocalIP(ip netip.Addr) bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if prefix, err := netip.ParsePrefix(a.String()); err == nil && prefix.Addr() == ip {
			return true
		}
	}
	return false
}

// allowedHost erlaubt leere Hosts, localhost, den eigenen Rechnernamen und lokale Endungen
func allowedHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || host == "localhost" {
		return true
	}
	if hostname, err := os.Hostname(); err == nil && host == strings.ToLower(hostname) {
		return true
	}
	for _, suffix := range localSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// allowedHostsMiddleware schuetzt eine auf Loopback lauschende Ansicht vor DNS-Rebinding
func allowedHostsMiddleware(addr net.Addr) gin.HandlerFunc {
	return func(c *gin.Context) {
		if addr == nil {
			c.Next()
			return
		}
		// Wer bewusst oeffentlich lauscht, prueft Hosts selbst
		if ap, err := netip.ParseAddrPort(addr.String()); err == nil && !ap.Addr().IsLoopback() {
			c.Next()
			return
		}

		host, _, err := net.SplitHostPort(c.Request.Host)
		if err != nil {
			host = c.Request.Host
		}

		if ip, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
			if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || isLocalIP(ip) {
				c.Next()
				return
			}
		} else if allowedHost(host) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "host not allowed"})
	}
}

// noCacheMiddleware verhindert, dass Browser veralteten Zustand zeigen
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// requestLogger protokolliert Anfragen; Zustandsabfragen nur auf TRACE
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		switch path := c.FullPath(); {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Warn("anfrage", attrs...)
		case path == "/api/state" || path == "/api/images/:kind" || path == "/api/events":
			logutil.TraceContext(c.Request.Context(), "anfrage", attrs...)
		default:
			logger.Debug("anfrage", attrs...)
		}
	}
}
