// Package device turns a User-Agent header into a display label and a
// version-tolerant fingerprint for login audit records.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ParseUserAgent returns "<browser> on <os>" or "Unknown Device" for an empty header.
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown Browser"
	}
	return fmt.Sprintf("%s on %s", browser, platformName(ua))
}

func platformName(ua *useragent.UserAgent) string {
	platform := strings.TrimSpace(ua.Platform())
	if platform == "iPhone" || platform == "iPad" {
		return platform
	}
	if name := strings.TrimSpace(ua.OSInfo().Name); name != "" {
		return name
	}
	if platform != "" {
		return platform
	}
	return "Unknown OS"
}

// ComputeFingerprint hashes browser family, browser major version and OS so
// that minor browser updates keep the same fingerprint.
func (s *Service) ComputeFingerprint(userAgent string) string {
	if !s.enabled {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")
	sum := sha256.Sum256([]byte(strings.Join([]string{name, major, ua.OSInfo().Name, ua.Platform()}, "|")))
	return hex.EncodeToString(sum[:])
}
