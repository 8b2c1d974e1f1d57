package httpserver_test

import (
	"net/http"
	"net/http/httptest"
)

func httptestRecorder(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return rec
}
