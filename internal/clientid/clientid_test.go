package clientid

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromRequest_ForwardedForTakesFirstEntry(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/chat", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	r.Header.Set("X-Real-Ip", "9.9.9.9")

	require.Equal(t, "1.2.3.4", FromRequest(r))
}

func TestFromRequest_Precedence(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"real ip when no forwarded", map[string]string{"X-Real-Ip": "9.9.9.9", "Cf-Connecting-Ip": "8.8.8.8"}, "9.9.9.9"},
		{"cf connecting ip last header", map[string]string{"Cf-Connecting-Ip": "8.8.8.8"}, "8.8.8.8"},
		{"forwarded wins over all", map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-Ip": "9.9.9.9"}, "1.1.1.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/chat", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			require.Equal(t, tc.want, FromRequest(r))
		})
	}
}

func TestFromRequest_FallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/chat", nil)
	r.RemoteAddr = "10.0.0.7:52110"

	require.Equal(t, "10.0.0.7", FromRequest(r))
}

func TestFromRequest_Nil(t *testing.T) {
	require.Equal(t, Unknown, FromRequest(nil))
}

func TestFromMap_CaseInsensitive(t *testing.T) {
	headers := map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}
	require.Equal(t, "1.2.3.4", FromMap(headers, "172.31.0.1"))
}

func TestFromMap_SourceIPFallback(t *testing.T) {
	require.Equal(t, "172.31.0.1", FromMap(map[string]string{}, "172.31.0.1"))
	require.Equal(t, "172.31.0.1", FromMap(nil, "172.31.0.1"))
}

func TestFromMap_Unknown(t *testing.T) {
	require.Equal(t, Unknown, FromMap(nil, ""))
	require.Equal(t, Unknown, FromMap(map[string]string{"x-forwarded-for": "  "}, " "))
}
