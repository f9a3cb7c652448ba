package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	headerApproverKey  = "X-Approver-Key"
	headerApproverName = "X-Approver"
	defaultApprover    = "operator"
)

type approverCtxKey struct{}

// ApproverKey guards approve/deny endpoints. The request must carry an
// X-Approver-Key whose bcrypt hash matches the value returned by keyHash,
// which is read per request so a rotated hash applies immediately. A nil
// func or an empty hash disables the check. The optional X-Approver header
// names the decider and is made available through Approver.
func ApproverKey(keyHash func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var hash string
			if keyHash != nil {
				hash = keyHash()
			}
			if hash != "" {
				key := r.Header.Get(headerApproverKey)
				if key == "" {
					writeJSONError(w, http.StatusUnauthorized, "approver key required")
					return
				}
				if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
					writeJSONError(w, http.StatusForbidden, "invalid approver key")
					return
				}
			}

			name := strings.TrimSpace(r.Header.Get(headerApproverName))
			if name == "" {
				name = defaultApprover
			}
			ctx := context.WithValue(r.Context(), approverCtxKey{}, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Approver returns the decider name set by ApproverKey, or "" outside it.
func Approver(ctx context.Context) string {
	name, _ := ctx.Value(approverCtxKey{}).(string)
	return name
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + msg + `"}`))
}
