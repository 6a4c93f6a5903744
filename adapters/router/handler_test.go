package releaserouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-release-order/adapters/formapi"
	releasehttp "github.com/goliatone/go-release-order/adapters/http"
	releasetemplate "github.com/goliatone/go-release-order/adapters/template"
	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/goliatone/go-router"
)

func newTestPipeline() *releaseorder.Pipeline {
	pipeline := releaseorder.NewPipeline(releaseorder.NewForm(), releaseorder.NewImageService(releaseorder.NewMemoryAssetStore()))
	pipeline.Renderer = releasetemplate.NewRenderer()
	return pipeline
}

func assertErrorParity(t *testing.T, rec *httptest.ResponseRecorder, routerRec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != routerRec.Code {
		t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerRec.Code)
	}
	if rec.Header().Get("Content-Type") != routerRec.Header().Get("Content-Type") {
		t.Fatalf("content-type mismatch: http=%q router=%q", rec.Header().Get("Content-Type"), routerRec.Header().Get("Content-Type"))
	}
	var httpPayload formapi.ErrorResponse
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&httpPayload); err != nil {
		t.Fatalf("decode http response: %v", err)
	}
	var routerPayload formapi.ErrorResponse
	if err := json.NewDecoder(bytes.NewReader(routerRec.Body.Bytes())).Decode(&routerPayload); err != nil {
		t.Fatalf("decode router response: %v", err)
	}
	if httpPayload != routerPayload {
		t.Fatalf("payload mismatch: http=%+v router=%+v", httpPayload, routerPayload)
	}
}

func TestTransportParity_AddRow(t *testing.T) {
	httpPipeline := newTestPipeline()
	routerPipeline := newTestPipeline()
	httpHandler := releasehttp.NewHandler(releasehttp.Config{Pipeline: httpPipeline})
	routerHandler := NewHandler(Config{Pipeline: routerPipeline})

	req := httptest.NewRequest(http.MethodPost, "/release-order/rows", nil)
	rec := httptest.NewRecorder()
	httpHandler.ServeHTTP(rec, req)

	routerCtx := newTestHTTPContext(http.MethodPost, "/release-order/rows", nil, nil, nil)
	if err := routerHandler.Handle(routerCtx); err != nil {
		t.Fatalf("router handle: %v", err)
	}

	if rec.Code != routerCtx.recorder.Code {
		t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerCtx.recorder.Code)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Body.String() != routerCtx.recorder.Body.String() {
		t.Fatalf("body mismatch: http=%q router=%q", rec.Body.String(), routerCtx.recorder.Body.String())
	}
	if httpPipeline.Form.Len() != 2 || routerPipeline.Form.Len() != 2 {
		t.Fatalf("expected both forms to have 2 rows")
	}
}

func TestTransportParity_SetCell(t *testing.T) {
	httpPipeline := newTestPipeline()
	routerPipeline := newTestPipeline()
	httpHandler := releasehttp.NewHandler(releasehttp.Config{Pipeline: httpPipeline})
	routerHandler := NewHandler(Config{Pipeline: routerPipeline})

	body := `{"field":"publication","value":"Times of India"}`
	req := httptest.NewRequest(http.MethodPost, "/release-order/rows/0/cells", strings.NewReader(body))
	rec := httptest.NewRecorder()
	httpHandler.ServeHTTP(rec, req)

	routerCtx := newTestContext(http.MethodPost, "/release-order/rows/0/cells", []byte(body), nil, nil)
	if err := routerHandler.Handle(routerCtx); err != nil {
		t.Fatalf("router handle: %v", err)
	}

	if rec.Code != http.StatusOK || routerCtx.recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got http=%d router=%d", rec.Code, routerCtx.recorder.Code)
	}
	if httpPipeline.Form.Rows()[0].Publication != routerPipeline.Form.Rows()[0].Publication {
		t.Fatalf("expected both transports to update the row")
	}
	if routerPipeline.Form.Rows()[0].Publication != "Times of India" {
		t.Fatalf("unexpected publication %q", routerPipeline.Form.Rows()[0].Publication)
	}
}

func TestTransportParity_Errors(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "unknown field", method: http.MethodPost, path: "/release-order/fields", body: `{"field":"nope","value":"x"}`},
		{name: "invalid index", method: http.MethodDelete, path: "/release-order/rows/abc"},
		{name: "export unavailable", method: http.MethodGet, path: "/release-order/export.pdf"},
		{name: "unknown slot", method: http.MethodDelete, path: "/release-order/images/banner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			httpHandler := releasehttp.NewHandler(releasehttp.Config{Pipeline: newTestPipeline()})
			routerHandler := NewHandler(Config{Pipeline: newTestPipeline()})

			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			httpHandler.ServeHTTP(rec, req)

			routerCtx := newTestHTTPContext(tc.method, tc.path, []byte(tc.body), nil, nil)
			if err := routerHandler.Handle(routerCtx); err != nil {
				t.Fatalf("router handle: %v", err)
			}
			assertErrorParity(t, rec, routerCtx.recorder)
		})
	}
}

func TestRouterCleanView(t *testing.T) {
	handler := NewHandler(Config{Pipeline: newTestPipeline()})
	ctx := newTestContext(http.MethodGet, "/release-order/clean-view", nil, nil, nil)

	if err := handler.Handle(ctx); err != nil {
		t.Fatalf("router handle: %v", err)
	}
	if ctx.recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.recorder.Code)
	}
	if !ctx.sendCalled {
		t.Fatalf("expected buffered send")
	}
	if !strings.HasPrefix(ctx.recorder.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected content type %q", ctx.recorder.Header().Get("Content-Type"))
	}
}

func TestRouterPlaceholder(t *testing.T) {
	handler := NewHandler(Config{Pipeline: newTestPipeline()})
	ctx := newTestContext(http.MethodGet, PlaceholderPath, nil, nil, nil)

	if err := handler.HandlePlaceholder(ctx); err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	if ctx.recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.recorder.Code)
	}
	if ctx.recorder.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("unexpected content type %q", ctx.recorder.Header().Get("Content-Type"))
	}
	if handler.StaticPath() != "/release-order/static" {
		t.Fatalf("unexpected static path %q", handler.StaticPath())
	}
}

func TestNilRouterHandler(t *testing.T) {
	var handler *Handler
	ctx := newTestContext(http.MethodGet, "/release-order", nil, nil, nil)
	if err := handler.Handle(ctx); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if ctx.recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", ctx.recorder.Code)
	}
}

type testContext struct {
	method        string
	path          string
	body          []byte
	query         map[string]string
	headers       map[string]string
	params        map[string]string
	locals        map[any]any
	ctx           context.Context
	recorder      *httptest.ResponseRecorder
	statusWritten bool
	status        int
	sendCalled    bool
}

func newTestContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testContext {
	if headers == nil {
		headers = make(map[string]string)
	}
	if query == nil {
		query = make(map[string]string)
	}
	return &testContext{
		method:   method,
		path:     path,
		body:     body,
		query:    query,
		headers:  headers,
		params:   make(map[string]string),
		locals:   make(map[any]any),
		ctx:      context.Background(),
		recorder: httptest.NewRecorder(),
	}
}

func (c *testContext) Bind(v any) error {
	if len(c.body) == 0 {
		return nil
	}
	return json.Unmarshal(c.body, v)
}

func (c *testContext) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *testContext) SetContext(ctx context.Context) {
	c.ctx = ctx
}

func (c *testContext) Next() error { return nil }

func (c *testContext) RouteName() string { return "" }

func (c *testContext) RouteParams() map[string]string { return c.params }

func (c *testContext) Method() string { return c.method }

func (c *testContext) Path() string { return c.path }

func (c *testContext) Param(name string, defaultValue ...string) string {
	if val, ok := c.params[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) ParamsInt(key string, defaultValue int) int {
	val := c.Param(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Query(name string, defaultValue ...string) string {
	if val, ok := c.query[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) QueryValues(name string) []string {
	if val, ok := c.query[name]; ok {
		return []string{val}
	}
	return nil
}

func (c *testContext) QueryInt(name string, defaultValue int) int {
	val := c.Query(name)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Queries() map[string]string { return c.query }

func (c *testContext) Body() []byte { return c.body }

func (c *testContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *testContext) LocalsMerge(key any, value map[string]any) map[string]any {
	merged, _ := c.locals[key].(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range value {
		merged[k] = v
	}
	c.locals[key] = merged
	return merged
}

func (c *testContext) Render(name string, bind any, layouts ...string) error {
	return nil
}

func (c *testContext) Cookie(cookie *router.Cookie) {}

func (c *testContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) CookieParser(out any) error { return nil }

func (c *testContext) Redirect(location string, status ...int) error {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}
	c.SetHeader("Location", location)
	c.writeHeader(code)
	return nil
}

func (c *testContext) RedirectToRoute(routeName string, params router.ViewContext, status ...int) error {
	return nil
}

func (c *testContext) RedirectBack(fallback string, status ...int) error {
	return nil
}

func (c *testContext) Header(name string) string {
	return c.headers[name]
}

func (c *testContext) Referer() string { return "" }

func (c *testContext) OriginalURL() string { return c.path }

func (c *testContext) FormFile(key string) (*multipart.FileHeader, error) {
	return nil, nil
}

func (c *testContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) IP() string { return "127.0.0.1" }

func (c *testContext) Status(code int) router.Context {
	c.writeHeader(code)
	return c
}

func (c *testContext) Send(body []byte) error {
	c.sendCalled = true
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := c.recorder.Write(body)
	return err
}

func (c *testContext) SendString(body string) error {
	return c.Send([]byte(body))
}

func (c *testContext) SendStatus(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) JSON(code int, v any) error {
	c.recorder.Header().Set("Content-Type", "application/json")
	c.writeHeader(code)
	return json.NewEncoder(c.recorder).Encode(v)
}

func (c *testContext) SendStream(r io.Reader) error {
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := io.Copy(c.recorder, r)
	return err
}

func (c *testContext) NoContent(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) SetHeader(key, val string) router.Context {
	c.recorder.Header().Set(key, val)
	return c
}

func (c *testContext) Set(key string, value any) {
	c.locals[key] = value
}

func (c *testContext) Get(key string, def any) any {
	if val, ok := c.locals[key]; ok {
		return val
	}
	return def
}

func (c *testContext) GetString(key string, def string) string {
	if val, ok := c.locals[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return def
}

func (c *testContext) GetInt(key string, def int) int {
	if val, ok := c.locals[key]; ok {
		if num, ok := val.(int); ok {
			return num
		}
	}
	return def
}

func (c *testContext) GetBool(key string, def bool) bool {
	if val, ok := c.locals[key]; ok {
		if flag, ok := val.(bool); ok {
			return flag
		}
	}
	return def
}

func (c *testContext) writeHeader(code int) {
	if c.statusWritten {
		c.status = code
		return
	}
	c.statusWritten = true
	c.status = code
	c.recorder.WriteHeader(code)
}

type testHTTPContext struct {
	*testContext
	req *http.Request
}

func newTestHTTPContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testHTTPContext {
	base := newTestContext(method, path, body, headers, query)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
		base.headers[key] = value
	}
	base.ctx = req.Context()
	return &testHTTPContext{testContext: base, req: req}
}

func (c *testHTTPContext) Request() *http.Request { return c.req }

func (c *testHTTPContext) Response() http.ResponseWriter { return c.recorder }

var _ router.Context = (*testContext)(nil)
var _ router.Context = (*testHTTPContext)(nil)
var _ router.HTTPContext = (*testHTTPContext)(nil)
