package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

// RequestLogMiddleware writes one combined-format line per HTTP request to
// the debug log, so scrapes don't flood the default output.
func RequestLogMiddleware(next http.Handler) http.Handler {
	w := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	return handlers.CombinedLoggingHandler(w, next)
}
