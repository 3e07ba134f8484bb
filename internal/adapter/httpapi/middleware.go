package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger tags every request with a request ID and logs its
// outcome and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
		start := time.Now()

		writer.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(recorder, request)

		log.Printf("%s %s %d %s id=%s",
			request.Method, request.URL.Path, recorder.status, time.Since(start), requestID)
	})
}
