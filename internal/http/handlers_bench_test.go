package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// BenchmarkDashboardCurrent measures re-rendering a stored snapshot through the full router.
func BenchmarkDashboardCurrent(b *testing.B) {
	s := setup(b)
	token := s.login(b)
	if w := s.do(b, http.MethodGet, "/dashboard?q=Tokyo", token, ""); w.Code != http.StatusOK {
		b.Fatalf("warmup status = %d", w.Code)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/current", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("status = %d", w.Code)
		}
	}
}
