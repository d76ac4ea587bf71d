package config

import "strings"

// A very basic email validation. In production, consider using a more robust library.
func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	// Check for the presence of an '@' symbol and a domain
	at := strings.Index(email, "@")
	if at == -1 || at == 0 || at == len(email)-1 {
		return false
	}
	return true
}

// A very basic hostname validation for relay/server fields.
func isValidHost(host string) bool {
	if len(host) < 1 || len(host) > 253 {
		return false
	}
	return !strings.ContainsAny(host, " \t")
}
