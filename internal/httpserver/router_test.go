package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/payments"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	webhooksvc "storefront/internal/service/webhook"
)

type stubCartSvc struct {
	cart     *domain.Cart
	err      error
	lastRef  domain.StoreRef
	lastSess string
	lastIn   cartsvc.ItemInput
}

func (s *stubCartSvc) record(ref domain.StoreRef, sess string, in cartsvc.ItemInput) (*domain.Cart, error) {
	s.lastRef, s.lastSess, s.lastIn = ref, sess, in
	return s.cart, s.err
}

func (s *stubCartSvc) Get(_ context.Context, ref domain.StoreRef, sess string) (*domain.Cart, error) {
	return s.record(ref, sess, cartsvc.ItemInput{})
}

func (s *stubCartSvc) AddItem(_ context.Context, ref domain.StoreRef, sess string, in cartsvc.ItemInput) (*domain.Cart, error) {
	return s.record(ref, sess, in)
}

func (s *stubCartSvc) UpdateItem(_ context.Context, ref domain.StoreRef, sess string, in cartsvc.ItemInput) (*domain.Cart, error) {
	return s.record(ref, sess, in)
}

func (s *stubCartSvc) RemoveItem(_ context.Context, ref domain.StoreRef, sess string, in cartsvc.ItemInput) (*domain.Cart, error) {
	return s.record(ref, sess, in)
}

type stubCheckoutSvc struct {
	res      *checkoutsvc.Result
	err      error
	lastSess string
	lastIn   checkoutsvc.Input
}

func (s *stubCheckoutSvc) Checkout(_ context.Context, sess string, in checkoutsvc.Input) (*checkoutsvc.Result, error) {
	s.lastSess, s.lastIn = sess, in
	return s.res, s.err
}

// stubReconciler runs the delivery's Verify hook like the real reconciler.
type stubReconciler struct {
	deliveries []webhooksvc.Delivery
	err        error
}

func (s *stubReconciler) Process(_ context.Context, d webhooksvc.Delivery) (webhooksvc.Result, error) {
	if d.Verify != nil {
		if err := d.Verify(); err != nil {
			return webhooksvc.Result{}, err
		}
	}
	s.deliveries = append(s.deliveries, d)
	return webhooksvc.Result{Status: webhooksvc.MapStatus(d.TransactionStatus)}, s.err
}

type stubStorefrontSvc struct {
	feed  *domain.StoreFeed
	rates []domain.ShippingRate
	err   error
}

func (s *stubStorefrontSvc) Feed(_ context.Context, slug string) (*domain.StoreFeed, error) {
	if s.feed == nil || s.feed.Profile.Slug != slug {
		return nil, domain.ErrStoreNotFound
	}
	return s.feed, nil
}

func (s *stubStorefrontSvc) ShippingRates(_ context.Context, storeID string) ([]domain.ShippingRate, error) {
	if storeID == "" {
		return nil, domain.ErrStoreRequired
	}
	return s.rates, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

const (
	testServerKey     = "SB-Mid-server-test"
	testWebhookSecret = "whsec_test"
)

type harness struct {
	router     *gin.Engine
	cart       *stubCartSvc
	checkout   *stubCheckoutSvc
	reconciler *stubReconciler
	storefront *stubStorefrontSvc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cart: &stubCartSvc{cart: &domain.Cart{ID: "cart-1", SessionID: "sess-1", Items: []domain.CartItem{
			{ID: "line-1", ProductID: "prod-1", Quantity: 2, PriceSnapshot: 15000, NameSnapshot: "Kopi"},
		}}},
		checkout:   &stubCheckoutSvc{},
		reconciler: &stubReconciler{},
		storefront: &stubStorefrontSvc{},
	}
	router, err := buildRouter(zap.NewNop(), stubPinger{}, Deps{
		CartSvc:             h.cart,
		CheckoutSvc:         h.checkout,
		Reconciler:          h.reconciler,
		StorefrontSvc:       h.storefront,
		MidtransServerKey:   testServerKey,
		StripeWebhookSecret: testWebhookSecret,
		CookieSecure:        true,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	h.router = router
	return h
}

func (h *harness) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("expected %s cookie in response", sessionCookie)
	return nil
}

func TestBuildRouterRequiresServices(t *testing.T) {
	if _, err := buildRouter(zap.NewNop(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing services")
	}
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t)
	if rec := h.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", readyHandler(stubPinger{err: errors.New("down")}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRequestIDIsAssignedAndEchoed(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/healthz", "")
	if got := rec.Header().Get(requestIDHeader); len(got) != 26 {
		t.Fatalf("expected ulid request id, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestGetCartIssuesSessionCookie(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/cart?storeId=store-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cookie := sessionCookieFrom(t, rec)
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
	if cookie.MaxAge != 30*24*60*60 {
		t.Fatalf("expected 30 day max age, got %d", cookie.MaxAge)
	}
	if h.cart.lastSess != cookie.Value || h.cart.lastRef.StoreID != "store-1" {
		t.Fatalf("service got session %q ref %+v", h.cart.lastSess, h.cart.lastRef)
	}

	body := decode(t, rec)
	if body["cartId"] != "cart-1" || body["subtotal"] != float64(30000) {
		t.Fatalf("unexpected body: %v", body)
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 1 {
		t.Fatalf("expected one item, got %v", body["items"])
	}
}

func TestCartSessionCookieIsReused(t *testing.T) {
	h := newHarness(t)
	existing := &http.Cookie{Name: sessionCookie, Value: "sess-existing"}
	rec := h.do(http.MethodPost, "/cart", `{"businessId":"biz-1","productId":"prod-1","qty":2}`, existing)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decode(t, rec); body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body)
	}
	if got := sessionCookieFrom(t, rec).Value; got != "sess-existing" {
		t.Fatalf("expected cookie to be refreshed with same id, got %q", got)
	}
	if h.cart.lastSess != "sess-existing" || h.cart.lastRef.BusinessID != "biz-1" {
		t.Fatalf("unexpected call: %q %+v", h.cart.lastSess, h.cart.lastRef)
	}
	if h.cart.lastIn.ProductID != "prod-1" || h.cart.lastIn.Qty == nil || *h.cart.lastIn.Qty != 2 {
		t.Fatalf("unexpected item input: %+v", h.cart.lastIn)
	}
}

func TestCartErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		method string
		err    error
		want   int
	}{
		{"invalid qty", http.MethodPost, domain.ErrInvalidQuantity, http.StatusBadRequest},
		{"unavailable", http.MethodPost, domain.ErrProductUnavailable, http.StatusBadRequest},
		{"missing line", http.MethodPut, domain.ErrCartItemNotFound, http.StatusNotFound},
		{"store missing", http.MethodDelete, domain.ErrStoreNotFound, http.StatusNotFound},
		{"db failure", http.MethodPut, errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.cart.err = tc.err
			rec := h.do(tc.method, "/cart", `{"storeId":"store-1","productId":"prod-1","qty":1}`)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if msg := decode(t, rec)["message"]; msg != tc.err.Error() {
				t.Fatalf("expected message %q, got %v", tc.err.Error(), msg)
			}
		})
	}
}

func TestCartRejectsMalformedBody(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/cart", `{"qty":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutReturnsOrder(t *testing.T) {
	h := newHarness(t)
	h.checkout.res = &checkoutsvc.Result{OrderID: "sale-1", SaleNumber: "INV-20250314-000001"}
	rec := h.do(http.MethodPost, "/checkout",
		`{"storeId":"store-1","promoCode":"HEMAT10","customer":{"email":"a@example.com","name":"Ani"}}`,
		&http.Cookie{Name: sessionCookie, Value: "sess-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decode(t, rec)
	if body["orderId"] != "sale-1" || body["saleNumber"] != "INV-20250314-000001" {
		t.Fatalf("unexpected body: %v", body)
	}
	if v, ok := body["payment_url"]; !ok || v != nil {
		t.Fatalf("expected payment_url:null, got %v", body)
	}
	if h.checkout.lastSess != "sess-1" || *h.checkout.lastIn.PromoCode != "HEMAT10" || h.checkout.lastIn.Customer.Name != "Ani" {
		t.Fatalf("unexpected checkout input: %+v", h.checkout.lastIn)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	h := newHarness(t)
	h.checkout.err = domain.ErrCartEmpty
	rec := h.do(http.MethodPost, "/checkout", `{"storeId":"store-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func midtransBody(status, signature string) string {
	if signature == "" {
		signature = payments.MidtransSignature("INV-20250314-000001", "200", "30000.00", testServerKey)
	}
	return fmt.Sprintf(`{"order_id":"INV-20250314-000001","status_code":"200","gross_amount":"30000.00","signature_key":%q,"transaction_id":"trx-1","transaction_status":%q}`,
		signature, status)
}

func TestMidtransWebhook(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/webhooks/midtrans", midtransBody("settlement", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(h.reconciler.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(h.reconciler.deliveries))
	}
	d := h.reconciler.deliveries[0]
	if d.Provider != payments.ProviderMidtrans || d.EventID != "trx-1" || d.OrderID != "INV-20250314-000001" || d.TransactionStatus != "settlement" {
		t.Fatalf("unexpected delivery: %+v", d)
	}
	if !json.Valid(d.Payload) {
		t.Fatalf("expected raw payload to be passed through")
	}
}

func TestMidtransWebhookBadSignature(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/webhooks/midtrans", midtransBody("settlement", "bogus"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != domain.ErrInvalidSignature.Error() {
		t.Fatalf("unexpected message %v", msg)
	}
	if len(h.reconciler.deliveries) != 0 {
		t.Fatalf("expected no delivery to be processed")
	}
}

func TestMidtransWebhookUnknownOrder(t *testing.T) {
	h := newHarness(t)
	h.reconciler.err = domain.ErrOrderNotFound
	rec := h.do(http.MethodPost, "/webhooks/midtrans", midtransBody("settlement", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMidtransWebhookMalformed(t *testing.T) {
	h := newHarness(t)
	if rec := h.do(http.MethodPost, "/webhooks/midtrans", `{"status_code":"200"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func stripeRequest(t *testing.T, eventType, paymentStatus, secret string) *http.Request {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":%q,"data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"INV-20250314-000001","payment_status":%q}}}`,
		eventType, paymentStatus))
	ts := time.Now()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil))))
	return req
}

func TestStripeWebhook(t *testing.T) {
	h := newHarness(t)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, stripeRequest(t, "checkout.session.completed", "paid", testWebhookSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(h.reconciler.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(h.reconciler.deliveries))
	}
	d := h.reconciler.deliveries[0]
	if d.Provider != payments.ProviderStripe || d.EventID != "evt_1" || d.TransactionStatus != "settlement" || d.Verify != nil {
		t.Fatalf("unexpected delivery: %+v", d)
	}
}

func TestStripeWebhookRejectsForgery(t *testing.T) {
	h := newHarness(t)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, stripeRequest(t, "checkout.session.completed", "paid", "whsec_other"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(h.reconciler.deliveries) != 0 {
		t.Fatalf("forged event must not reach the reconciler")
	}
}

func TestStripeWebhookIgnoresOtherEvents(t *testing.T) {
	h := newHarness(t)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, stripeRequest(t, "customer.created", "", testWebhookSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(h.reconciler.deliveries) != 0 {
		t.Fatalf("ignored event must not reach the reconciler")
	}
}

func TestStoreFeed(t *testing.T) {
	h := newHarness(t)
	h.storefront.feed = &domain.StoreFeed{
		Profile:  domain.Business{ID: "biz-1", Slug: "kopi-kenangan", Name: "Kopi"},
		Products: []domain.Product{{ID: "prod-1", Name: "Kopi Susu", SellingPrice: 15000}},
	}

	rec := h.do(http.MethodGet, "/public/stores/kopi-kenangan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	profile, _ := body["profile"].(map[string]any)
	if profile["slug"] != "kopi-kenangan" {
		t.Fatalf("unexpected profile: %v", body["profile"])
	}

	if rec := h.do(http.MethodGet, "/public/stores/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestShippingRates(t *testing.T) {
	h := newHarness(t)
	if rec := h.do(http.MethodGet, "/shipping-rates", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without storeId, got %d", rec.Code)
	}

	rec := h.do(http.MethodGet, "/shipping-rates?storeId=store-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rates, ok := decode(t, rec)["rates"].([]any); !ok || len(rates) != 0 {
		t.Fatalf("expected empty rates array, got %s", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrStoreRequired, http.StatusBadRequest},
		{domain.ErrInsufficientProductStock, http.StatusBadRequest},
		{domain.ErrMissingServerKey, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("load: %w", domain.ErrOrderNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
