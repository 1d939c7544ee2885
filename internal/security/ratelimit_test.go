package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Run("AllowsUpToRate", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		for i := 0; i < 3; i++ {
			if !rl.Allow("1.2.3.4") {
				t.Fatalf("request %d should be allowed", i+1)
			}
		}
		if rl.Allow("1.2.3.4") {
			t.Error("request beyond the rate should be denied")
		}
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		if !rl.Allow("1.2.3.4") {
			t.Fatal("first client should be allowed")
		}
		if !rl.Allow("5.6.7.8") {
			t.Error("a different client should have its own bucket")
		}
	})

	t.Run("RefillsAfterWindow", func(t *testing.T) {
		rl := NewRateLimiter(1, 10*time.Millisecond)
		if !rl.Allow("1.2.3.4") {
			t.Fatal("first request should be allowed")
		}
		if rl.Allow("1.2.3.4") {
			t.Fatal("second request inside the window should be denied")
		}
		time.Sleep(15 * time.Millisecond)
		if !rl.Allow("1.2.3.4") {
			t.Error("request after the window should be allowed again")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "RemoteAddrOnly",
			remoteAddr: "10.0.0.1:54321",
			expected:   "10.0.0.1",
		},
		{
			name:       "XForwardedForSingle",
			remoteAddr: "10.0.0.1:54321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			expected:   "203.0.113.7",
		},
		{
			name:       "XForwardedForChainTakesFirst",
			remoteAddr: "10.0.0.1:54321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			expected:   "203.0.113.7",
		},
		{
			name:       "XRealIP",
			remoteAddr: "10.0.0.1:54321",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			expected:   "203.0.113.9",
		},
		{
			name:       "RemoteAddrWithoutPort",
			remoteAddr: "10.0.0.1",
			expected:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.expected {
				t.Errorf("GetClientIP() = %v, want %v", got, tt.expected)
			}
		})
	}
}
