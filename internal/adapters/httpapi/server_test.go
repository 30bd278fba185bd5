package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

type stubReporter struct {
	res   *domain.AggregateResult
	err   error
	input domain.ReportInput
}

func (s *stubReporter) GenerateReportWithProgress(ctx context.Context, input domain.ReportInput, progress domain.ProgressFunc) (*domain.AggregateResult, error) {
	s.input = input
	if progress != nil {
		progress(domain.Progress{Stage: "page", Page: 0, Events: 1})
	}
	return s.res, s.err
}

type stubRefresher struct {
	currencies []string
	err        error
}

func (s *stubRefresher) UpdatePrices(ctx context.Context, currency string) error {
	s.currencies = append(s.currencies, currency)
	return s.err
}

func result() *domain.AggregateResult {
	return &domain.AggregateResult{
		ReportID: "r-1",
		Events: []domain.RewardEvent{{
			BlockTimestamp: 1614600000,
			Date:           "Mon Mar 01 2021",
			CoinAmount:     decimal.RequireFromString("1.5"),
			PricePerCoin:   decimal.RequireFromString("34.57"),
			FiatValue:      decimal.RequireFromString("51.86"),
		}},
		TotalFiatValue: decimal.RequireFromString("51.86"),
		TotalCoinValue: decimal.RequireFromString("1.5"),
		CurrencyCode:   "usd",
		CoinCode:       "DOT",
	}
}

func TestRewards_JSON(t *testing.T) {
	rep := &stubReporter{res: result()}
	srv := httptest.NewServer(New(Config{Reporter: rep}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/rewards?address=abc&network=polkadot&currency=USD")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Report-Id") != "r-1" {
		t.Errorf("missing report id header")
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["total_value_usd"] != 51.86 || body["total_value_DOT"] != 1.5 {
		t.Errorf("unexpected totals in %v", body)
	}
	if rep.input.Network != "polkadot" || rep.input.Currency != "USD" || rep.input.Address != "abc" {
		t.Errorf("unexpected input %+v", rep.input)
	}
}

func TestRewards_CSV(t *testing.T) {
	srv := httptest.NewServer(New(Config{Reporter: &stubReporter{res: result()}}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/rewards?address=abc&network=DOT&currency=usd&format=csv")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0][0] != "date" || records[1][8] != "51.86" {
		t.Errorf("unexpected csv %v", records)
	}
}

func TestRewards_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrUnsupportedNetwork, http.StatusBadRequest},
		{domain.ErrInvalidAddress, http.StatusBadRequest},
		{&domain.TransportError{Page: 2, Err: errors.New("EOF")}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&domain.TransportError{Page: 3, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(New(Config{Reporter: &stubReporter{err: tt.err}}).Handler())
		resp, err := http.Get(srv.URL + "/v1/rewards?address=a&network=b&currency=usd")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		srv.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, resp.StatusCode)
		}
	}
}

func TestRewards_BadFormat(t *testing.T) {
	srv := httptest.NewServer(New(Config{Reporter: &stubReporter{res: result()}}).Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/v1/rewards?format=xml")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func sign(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRefresh_RequiresToken(t *testing.T) {
	ref := &stubRefresher{}
	srv := httptest.NewServer(New(Config{Reporter: &stubReporter{}, Refresher: ref, JWTSecret: "s3cret"}).Handler())
	defer srv.Close()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", sign(t, "other", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", sign(t, "s3cret", time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid", sign(t, "s3cret", time.Now().Add(time.Hour)), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/prices/refresh?currency=EUR", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
	if len(ref.currencies) != 1 || ref.currencies[0] != "EUR" {
		t.Errorf("unexpected refresh calls %v", ref.currencies)
	}
}

func TestRefresh_DisabledWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(New(Config{Reporter: &stubReporter{}, Refresher: &stubRefresher{}}).Handler())
	defer srv.Close()
	resp, err := http.Post(srv.URL+"/v1/prices/refresh?currency=usd", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(New(Config{Reporter: &stubReporter{res: result()}}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/rewards/stream?address=a&network=DOT&currency=usd"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var first, second frame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Kind != "progress" || first.Progress == nil || first.Progress.Stage != "page" {
		t.Errorf("unexpected first frame %+v", first)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if second.Kind != "report" || second.ReportID != "r-1" {
		t.Errorf("unexpected report frame %+v", second)
	}
	report, ok := second.Report.(map[string]any)
	if !ok || report["total_value_usd"] != 51.86 {
		t.Errorf("unexpected report payload %v", second.Report)
	}
}

// waitingReporter blocks until its context ends.
type waitingReporter struct {
	started chan struct{}
	done    chan error
}

func (w *waitingReporter) GenerateReportWithProgress(ctx context.Context, input domain.ReportInput, progress domain.ProgressFunc) (*domain.AggregateResult, error) {
	close(w.started)
	<-ctx.Done()
	w.done <- ctx.Err()
	return nil, ctx.Err()
}

func TestStream_ClientDisconnectCancelsReport(t *testing.T) {
	rep := &waitingReporter{started: make(chan struct{}), done: make(chan error, 1)}
	srv := httptest.NewServer(New(Config{Reporter: rep}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/rewards/stream?address=a&network=DOT&currency=usd"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	select {
	case <-rep.started:
	case <-time.After(2 * time.Second):
		t.Fatal("report was never started")
	}
	conn.Close()

	select {
	case err := <-rep.done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("report kept running after the client went away")
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	New(Config{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected healthz response %d %q", rec.Code, rec.Body.String())
	}
}

func TestVersion(t *testing.T) {
	rec := httptest.NewRecorder()
	New(Config{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info["name"] != "staking-rewards" || info["version"] == "" {
		t.Errorf("unexpected version payload %v", info)
	}
}
