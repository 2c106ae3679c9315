package httpbridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"

	"github.com/juspay/g2h"
	"github.com/juspay/g2h/bridgetesting"
	"github.com/juspay/g2h/httpbridge"
)

func newGreeterTable(t *testing.T, opts ...httpbridge.Option) *httpbridge.RouteTable {
	t.Helper()
	bridge := httpbridge.New(opts...)
	bindings, err := bridge.Bind(bridgetesting.NewRegistry(), bridgetesting.ServiceDesc())
	if err != nil {
		t.Fatalf("failed to bind greeter service: %v", err)
	}
	if len(bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(bindings))
	}
	table, err := bindings[0].NewRouteTable(&bridgetesting.GreeterServer{})
	if err != nil {
		t.Fatalf("failed to build route table: %v", err)
	}
	return table
}

func postJSON(table *httpbridge.RouteTable, path, body string, hdrs map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) (int32, string) {
	t.Helper()
	var body struct {
		Code    int32  `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not valid JSON: %v (body %q)", err, rec.Body.String())
	}
	return body.Code, body.Message
}

func TestSayHello(t *testing.T) {
	table := newGreeterTable(t, httpbridge.WithStringEnums())
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello", `{"name":"World"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var resp struct {
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Message != "Hello, World!" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Timestamp == "" {
		t.Error("timestamp missing from response")
	}
}

func TestMalformedBody(t *testing.T) {
	table := newGreeterTable(t)
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello", `not-json`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	code, msg := decodeErrorBody(t, rec)
	if code != 3 {
		t.Errorf("error code = %d, want 3 (InvalidArgument)", code)
	}
	if msg == "" {
		t.Error("error message is empty")
	}
}

func TestHandlerError(t *testing.T) {
	table := newGreeterTable(t)
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello", `{"name":"x","failCode":5}`, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	code, msg := decodeErrorBody(t, rec)
	if code != 5 {
		t.Errorf("error code = %d, want 5 (NotFound)", code)
	}
	if msg == "" {
		t.Error("error message is empty")
	}
}

func TestEnumFormsAreEquivalent(t *testing.T) {
	table := newGreeterTable(t, httpbridge.WithStringEnums())
	path := "/greeter.v1.GreeterService/SayHello"

	byName := postJSON(table, path, `{"name":"e","status":"ACTIVE","priority":1}`, nil)
	byNumber := postJSON(table, path, `{"name":"e","status":1,"priority":1}`, nil)
	if byName.Code != http.StatusOK || byNumber.Code != http.StatusOK {
		t.Fatalf("statuses = %d / %d", byName.Code, byNumber.Code)
	}
	if byName.Body.String() != byNumber.Body.String() {
		// bodies differ only in the timestamp; compare status fields instead
		var a, b map[string]interface{}
		json.Unmarshal(byName.Body.Bytes(), &a)
		json.Unmarshal(byNumber.Body.Bytes(), &b)
		if a["status"] != b["status"] {
			t.Errorf("status differs: %v vs %v", a["status"], b["status"])
		}
	}

	var resp map[string]interface{}
	json.Unmarshal(byName.Body.Bytes(), &resp)
	if resp["status"] != "ACTIVE" {
		t.Errorf("response enum not symbolic: %v", resp["status"])
	}
}

func TestStringEnumsOffRejectsSymbols(t *testing.T) {
	table := newGreeterTable(t)
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello", `{"status":"ACTIVE"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when string enums are off", rec.Code)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	table := newGreeterTable(t)
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello",
		`{"name":"m","echoHeaders":["x-request-id","host"]}`,
		map[string]string{"X-Request-Id": "abc"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-Id"); got != "abc" {
		t.Errorf("X-Request-Id = %q, want %q", got, "abc")
	}
	// the Host header must never have become metadata
	var resp bridgetesting.HelloResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if _, ok := resp.Metadata["host"]; ok {
		t.Error("block-listed host header leaked into metadata")
	}
	if resp.Metadata["x-request-id"] != "abc" {
		t.Errorf("metadata echo = %v", resp.Metadata)
	}
}

func TestBlockedMetadataNotEmitted(t *testing.T) {
	table := newGreeterTable(t)
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello",
		`{"name":"m","headers":{"content-type":"text/evil","x-extra":"ok"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Extra"); got != "ok" {
		t.Errorf("X-Extra = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type overridden by handler metadata: %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	table := newGreeterTable(t)
	req := httptest.NewRequest(http.MethodGet, "/greeter.v1.GreeterService/SayHello", nil)
	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q", allow)
	}
}

func TestUnsupportedMediaType(t *testing.T) {
	table := newGreeterTable(t)
	req := httptest.NewRequest(http.MethodPost, "/greeter.v1.GreeterService/SayHello", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	table := newGreeterTable(t)
	rec := postJSON(table, "/greeter.v1.GreeterService/NoSuchMethod", `{}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPanicRecovered(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	table := newGreeterTable(t, httpbridge.WithLogger(logger))
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello", `{"panic":true}`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	code, msg := decodeErrorBody(t, rec)
	if code != 13 {
		t.Errorf("error code = %d, want 13 (Internal)", code)
	}
	if strings.Contains(msg, "greeter asked to panic") {
		t.Errorf("panic detail leaked to client: %q", msg)
	}
}

func TestPathPrefix(t *testing.T) {
	table := newGreeterTable(t, httpbridge.WithPathPrefix("/api"))
	rec := postJSON(table, "/api/greeter.v1.GreeterService/SayHello", `{"name":"p"}`, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	rec = postJSON(table, "/greeter.v1.GreeterService/SayHello", `{"name":"p"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unprefixed route still reachable: %d", rec.Code)
	}
}

func TestServiceFilter(t *testing.T) {
	bridge := httpbridge.New(httpbridge.WithServiceFilter(func(sd *g2h.ServiceDescriptor) bool {
		return sd.Name != "GreeterService"
	}))
	bindings, err := bridge.Bind(bridgetesting.NewRegistry(), bridgetesting.ServiceDesc())
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if len(bindings) != 0 {
		t.Errorf("filtered service still bound: %d bindings", len(bindings))
	}
}

func TestBindCollision(t *testing.T) {
	bridge := httpbridge.New()
	_, err := bridge.Bind(bridgetesting.NewRegistry(), bridgetesting.ServiceDesc(), bridgetesting.ServiceDesc())
	if err == nil {
		t.Fatal("colliding routes across services not rejected")
	}
	var se *g2h.SchemaError
	if !errors.As(err, &se) {
		t.Errorf("expected SchemaError, got %T", err)
	}
}

func TestCombine(t *testing.T) {
	t1 := newGreeterTable(t)
	t2 := newGreeterTable(t, httpbridge.WithPathPrefix("/api"))
	combined, err := httpbridge.Combine(t1, t2)
	if err != nil {
		t.Fatalf("failed to combine disjoint tables: %v", err)
	}
	if n := len(combined.Paths()); n != len(t1.Paths())+len(t2.Paths()) {
		t.Errorf("combined table has %d paths", n)
	}
	if _, err := httpbridge.Combine(t1, t1); err == nil {
		t.Error("combining overlapping tables not rejected")
	}
}

func TestInterceptor(t *testing.T) {
	var intercepted []string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		intercepted = append(intercepted, info.FullMethod)
		return handler(ctx, req)
	}
	table := newGreeterTable(t, httpbridge.WithUnaryInterceptor(interceptor))
	rec := postJSON(table, "/greeter.v1.GreeterService/SayHello", `{"name":"i"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(intercepted) != 1 || intercepted[0] != "/greeter.v1.GreeterService/SayHello" {
		t.Errorf("interceptor saw %v", intercepted)
	}
}

func TestBindRejectsWrongImplementation(t *testing.T) {
	bridge := httpbridge.New()
	bindings, err := bridge.Bind(bridgetesting.NewRegistry(), bridgetesting.ServiceDesc())
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if _, err := bindings[0].NewRouteTable(struct{}{}); err == nil {
		t.Error("implementation without methods not rejected")
	}
}

func TestRouteCount(t *testing.T) {
	table := newGreeterTable(t)
	paths := table.Paths()
	if len(paths) != len(bridgetesting.ServiceDesc().Methods) {
		t.Errorf("route table has %d paths: %v", len(paths), paths)
	}
}
