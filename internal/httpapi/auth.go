package httpapi

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const staffPINHeader = "X-Staff-PIN"

// StaffPINMiddleware requires a PIN matching pinHash on every mutating API
// call. An empty hash disables the check.
func StaffPINMiddleware(pinHash string, next http.Handler) http.Handler {
	hash := []byte(strings.TrimSpace(pinHash))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(hash) == 0 || isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		pin := strings.TrimSpace(r.Header.Get(staffPINHeader))
		if pin == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing staff pin")
			return
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid staff pin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func isPublicEndpoint(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
		return true
	}
	return !strings.HasPrefix(r.URL.Path, "/api/")
}
