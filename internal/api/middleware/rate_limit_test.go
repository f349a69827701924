package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimiter_AdmitsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("request over the limit should be rejected")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("1.2.3.4") {
		t.Fatalf("first key should be admitted")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatalf("second key should be admitted")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("first key should be exhausted")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") {
		t.Fatalf("first request should be admitted")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("second request in the window should be rejected")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatalf("request after the window elapsed should be admitted")
	}
}

func TestRateLimiter_EmptyKeyAlwaysAdmitted(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	for i := 0; i < 5; i++ {
		if !rl.Allow("") {
			t.Fatalf("empty key must always be admitted")
		}
	}
}

func TestRateLimiter_ConcurrentExactAdmits(t *testing.T) {
	const limit = 50
	rl := NewRateLimiter(limit, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan struct{}, limit*2)
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("1.2.3.4") {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != limit {
		t.Fatalf("expected exactly %d admits, got %d", limit, count)
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := handler(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
