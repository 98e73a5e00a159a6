package provider

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	userSuffix  = "@s.whatsapp.net"
	groupSuffix = "@g.us"
)

var (
	jidPattern   = regexp.MustCompile(`^[0-9]+@(s\.whatsapp\.net|g\.us)$`)
	nonDigit     = regexp.MustCompile(`\D`)
	leadingZeros = regexp.MustCompile(`^0+`)
)

// NormalizeJID turns a caller-supplied recipient (bare phone number, number
// with an old-style suffix, or full JID) into a canonical JID. Group JIDs are
// passed through; phone numbers are stripped to digits, must be 10-15 digits
// long, lose their leading zeros and gain the user suffix.
func NormalizeJID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("recipient is required")
	}

	if strings.HasSuffix(s, groupSuffix) {
		if !jidPattern.MatchString(s) {
			return "", fmt.Errorf("invalid group jid %q", raw)
		}
		return s, nil
	}

	s = strings.ReplaceAll(s, userSuffix, "")
	s = strings.ReplaceAll(s, "@c.us", "")
	s = nonDigit.ReplaceAllString(s, "")

	if len(s) < 10 || len(s) > 15 {
		return "", fmt.Errorf("phone number must be between 10 and 15 digits")
	}
	s = leadingZeros.ReplaceAllString(s, "")

	jid := s + userSuffix
	if !jidPattern.MatchString(jid) {
		return "", fmt.Errorf("invalid jid %q", raw)
	}
	return jid, nil
}

// BareNumber strips a user JID back to its phone number for webhook payloads.
func BareNumber(jid string) string {
	s := strings.TrimSpace(jid)
	s = strings.ReplaceAll(s, userSuffix, "")
	s = strings.ReplaceAll(s, "@c.us", "")
	return nonDigit.ReplaceAllString(s, "")
}
