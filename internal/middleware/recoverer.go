package middleware

import (
	"net/http"
	"runtime/debug"

	"vpnportal/internal/logs"
	"vpnportal/internal/models"
)

// Recoverer перехватывает панику в обработчике, пишет лог со стеком
// и возвращает 500 в формате {success:false,message}.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				reqid := GetRequestID(r)
				logs.Logger.WithField("reqid", reqid).Errorf("panic: %v uri=%s method=%s\nstack:\n%s",
					rec, r.RequestURI, r.Method, string(debug.Stack()))
				models.WriteFailure(w, http.StatusInternalServerError,
					"unexpected server error (reqid "+reqid+")")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
