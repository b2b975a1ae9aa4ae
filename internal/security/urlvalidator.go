package security

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// Hosts that serve generated video files.
	allowedHosts = []string{
		"generativelanguage.googleapis.com",
		"storage.googleapis.com",
	}

	ErrPrivateIP     = errors.New("URL resolves to private IP address")
	ErrUntrustedHost = errors.New("URL host is not trusted")
	ErrInvalidScheme = errors.New("only HTTPS URLs are allowed")

	skipValidation = false
)

// SetSkipValidation disables download URL checks. Tests serving from
// httptest use it.
func SetSkipValidation(skip bool) {
	skipValidation = skip
}

// ValidateDownloadURL checks a video reference before the API key is sent to
// it. In strict mode only the generative service hosts are accepted.
func ValidateDownloadURL(rawURL string, strictMode bool) error {
	if skipValidation {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" {
		return ErrInvalidScheme
	}

	host := parsed.Hostname()
	if strictMode && !isAllowedHost(host) {
		return ErrUntrustedHost
	}
	return validateHostIP(host)
}

func isAllowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func validateHostIP(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 0:
			return true
		case ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127: // CGNAT
			return true
		case ip4[0] >= 224: // multicast and reserved
			return true
		}
	}
	return false
}
