package envelope

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrMissingSender is returned when the envelope has no sender address
var ErrMissingSender = errors.New("missing sender address")

// UserID returns the local part of an address, the text before "@". Display
// names are dropped when the address parses as RFC 5322.
func UserID(address string) string {
	address = strings.TrimSpace(address)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}
	userID, _, _ := strings.Cut(address, "@")
	return strings.TrimSpace(userID)
}

// Owner returns the userid of the sender.
func Owner(from string) (string, error) {
	userID := UserID(from)
	if userID == "" {
		return "", ErrMissingSender
	}
	return userID, nil
}

// Recipients returns the userid of every address in a To-style header, in
// header order. Duplicates are kept. Entries that do not parse are skipped.
func Recipients(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	addrs, err := mail.ParseAddressList(header)
	if err != nil {
		// One bad entry fails the whole list; fall back to comma splitting
		// so the good entries survive.
		addrs = nil
		for _, entry := range splitAddressList(header) {
			addr, err := mail.ParseAddress(strings.TrimSpace(entry))
			if err != nil {
				continue
			}
			addrs = append(addrs, addr)
		}
	}

	userIDs := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		userID, _, ok := strings.Cut(addr.Address, "@")
		if !ok || userID == "" {
			continue
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// splitAddressList splits a header on commas that sit outside quoted display
// names and angle-bracketed addresses.
func splitAddressList(header string) []string {
	var (
		entries []string
		start   int
		quoted  bool
		escaped bool
		depth   int
	)
	for i, r := range header {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case r == ',' && depth == 0:
			entries = append(entries, header[start:i])
			start = i + 1
		}
	}
	return append(entries, header[start:])
}
