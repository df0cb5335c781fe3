package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/topmuch/qrsell-sub001/internal/api/response"
)

// InternalAuthConfig guards /internal. Tokens lists every accepted operator
// token so a new one can be rolled out before the old one is retired.
// Callers inside TrustedNetworks (a Prometheus scraper on the private
// network, or loopback in development) need no token.
type InternalAuthConfig struct {
	Tokens          []string
	TrustedNetworks []netip.Prefix
}

// ParseTrustedNetworks turns "10.0.0.0/8" or bare addresses into prefixes.
func ParseTrustedNetworks(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if !strings.Contains(value, "/") {
			addr, err := netip.ParseAddr(value)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

func InternalTokenAuth(cfg InternalAuthConfig) gin.HandlerFunc {
	accepted := make([][]byte, 0, len(cfg.Tokens))
	for _, token := range cfg.Tokens {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			accepted = append(accepted, []byte(trimmed))
		}
	}
	trusted := append([]netip.Prefix(nil), cfg.TrustedNetworks...)

	return func(c *gin.Context) {
		if fromTrustedNetwork(c.ClientIP(), trusted) || tokenAccepted(internalTokenFromRequest(c), accepted) {
			c.Next()
			return
		}

		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		c.Abort()
	}
}

func internalTokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader("X-Internal-Token")); token != "" {
		return token
	}
	return bearerTokenFromRequest(c.GetHeader("Authorization"))
}

// tokenAccepted compares against every accepted token so timing does not
// reveal which slot matched.
func tokenAccepted(provided string, accepted [][]byte) bool {
	if provided == "" {
		return false
	}
	match := 0
	for _, token := range accepted {
		match |= subtle.ConstantTimeCompare([]byte(provided), token)
	}
	return match == 1
}

func fromTrustedNetwork(clientIP string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
