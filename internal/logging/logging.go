// Package logging builds the service logger and the request logging middleware.
package logging

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// New returns a JSON logger tagged with the service name.
func New(service, level string) *logrus.Entry {
	return NewWithOutput(service, level, os.Stdout)
}

func NewWithOutput(service, level string, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log.WithField("service", service)
}

// Discard is a logger for tests.
func Discard() *logrus.Entry {
	return NewWithOutput("test", "panic", io.Discard)
}

// Requests logs one line per request after it completes.
func Requests(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				entry := log.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     status,
					"bytes":      ww.BytesWritten(),
					"latency_ms": time.Since(start).Milliseconds(),
					"request_id": middleware.GetReqID(r.Context()),
				})
				switch {
				case status >= 500:
					entry.Error("request failed")
				case status >= 400:
					entry.Warn("request rejected")
				default:
					entry.Info("request completed")
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
