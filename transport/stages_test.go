package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticTokens struct{ token *oauth2.Token }

func (s staticTokens) CurrentToken(context.Context) (*oauth2.Token, error) {
	return s.token, nil
}

func TestEndpointLabel(t *testing.T) {
	require.Equal(t, "products", endpointLabel("products/12/"))
	require.Equal(t, "products", endpointLabel("products/"))
	require.Equal(t, "auth/login", endpointLabel("auth/login/"))
	require.Equal(t, "/", endpointLabel(""))
	require.Equal(t, "/", endpointLabel("42/"))
}

func TestMetricsStage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/profile/") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	g, err := New(Config{BaseEndpoint: server.URL + "/api/"},
		WithLogger(zerolog.Nop()),
		WithResponseStages(MetricsStage(metrics)),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, g.Get(ctx, "products/1/", nil))
	require.NoError(t, g.Get(ctx, "products/2/", nil))
	require.Error(t, g.Get(ctx, "auth/profile/", nil))

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "products", outcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "auth/profile", string(KindUnauthorized))))
	require.Equal(t, 2, testutil.CollectAndCount(metrics.Duration))
}

func TestLoggingStageNeverLogsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	g, err := New(Config{BaseEndpoint: server.URL, RequestTimeout: time.Second},
		WithRequestStages(RequestIDStage(), BearerStage(staticTokens{&oauth2.Token{AccessToken: "secret-token"}})),
		WithResponseStages(LoggingStage(logger)),
	)
	require.NoError(t, err)

	require.Error(t, g.Post(context.Background(), "auth/login/", map[string]string{"email": "a@x.com"}, nil))

	out := buf.String()
	require.Contains(t, out, `"level":"warn"`)
	require.Contains(t, out, `"kind":"unauthorized"`)
	require.Contains(t, out, `"backend_message":"Invalid credentials"`)
	require.Contains(t, out, `"request_id"`)
	require.NotContains(t, out, "secret-token")
}

func TestUserAgentStage(t *testing.T) {
	got := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("User-Agent")
	}))
	defer server.Close()

	g, err := New(Config{BaseEndpoint: server.URL},
		WithLogger(zerolog.Nop()),
		WithRequestStages(UserAgentStage("vendoriq-cli/test")),
	)
	require.NoError(t, err)
	require.NoError(t, g.Get(context.Background(), "dashboard/", nil))
	require.Equal(t, "vendoriq-cli/test", <-got)
}

func TestRequestIDStageKeepsExisting(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "fixed")
	require.NoError(t, RequestIDStage()(req))
	require.Equal(t, "fixed", req.Header.Get(RequestIDHeader))
}
