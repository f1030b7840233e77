package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/stoewer/go-strcase"
)

var allHTTPMethods = []string{
	http.MethodDelete,
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	http.MethodPatch,
	http.MethodPost,
	http.MethodPut,
	http.MethodTrace,
	http.MethodConnect,
}

// IsValidHTTPMethod checks the method is one of the known HTTP verbs.
func IsValidHTTPMethod(method string) bool {
	for _, x := range allHTTPMethods {
		if method == x {
			return true
		}
	}
	return false
}

// RealIP returns the client address, preferring the forwarding headers set by
// any fronting proxy over the socket peer address.
func RealIP(req *http.Request) string {
	ras := req.RemoteAddr

	if forwardedFor := req.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		ras = strings.Split(forwardedFor, ",")[0]
	} else if realIP := req.Header.Get("X-Real-IP"); realIP != "" {
		ras = realIP
	} else {
		ras = strings.Split(ras, ":")[0]
	}

	return strings.TrimSpace(ras)
}

// ToHeader converts a claim name to its X-Auth header form,
// e.g. given_name -> X-Auth-Given-Name.
func ToHeader(name string) string {
	symbols := []string{"_", "/", "."}
	for _, symbol := range symbols {
		name = strings.ReplaceAll(name, symbol, "-")
	}
	return "X-Auth-" + http.CanonicalHeaderKey(strcase.KebabCase(name))
}

// GetHashKey hashes a value for use as an opaque store key.
func GetHashKey(value string) string {
	hash := sha256.Sum256([]byte(value))
	return base64.RawStdEncoding.EncodeToString(hash[:])
}

// DefaultTo returns the first non-empty string.
func DefaultTo(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
