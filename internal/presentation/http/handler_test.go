package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appAuth "github.com/Zhima-Mochi/minishop-storefront/internal/application/auth"
	appCart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	appCatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	appCheckout "github.com/Zhima-Mochi/minishop-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/export"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/security"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/stripe"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
)

const (
	adminEmail    = "admin@shop.test"
	webhookSecret = "whsec_test"
)

type stubProvider struct {
	mu   sync.Mutex
	last checkout.SessionRequest
}

func (p *stubProvider) CreateSession(_ context.Context, req checkout.SessionRequest) (checkout.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = req
	return checkout.Session{ID: "cs_test_1", URL: "https://pay.test/cs_test_1", AmountTotal: req.AmountTotal()}, nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, domoutbox.Event) error { return nil }

type fixture struct {
	server   *httptest.Server
	products *memory.ProductRepository
	carts    *memory.CartRepository
	provider *stubProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tel := observability.Nop()
	ids := id.NewGenerator()

	products := memory.NewProductRepository()
	carts := memory.NewCartRepository()
	users := memory.NewUserRepository()
	images := memory.NewImageStore("http://media.test")
	provider := &stubProvider{}

	tokens, err := security.NewJWTIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	svc := Services{
		Auth:    appAuth.NewService(users, security.BcryptHasher{Cost: bcrypt.MinCost}, tokens, images, ids, appAuth.Options{AdminEmail: adminEmail}, tel),
		Catalog: appCatalog.NewService(products, images, export.NewXLSXExporter(), ids, tel),
		Cart:    appCart.NewService(carts, products, ids, tel),
		CreateCheckout: appCheckout.NewCreateSessionUseCase(carts, products, provider,
			appCheckout.Options{FrontendURL: "http://front.test"}, tel),
		Webhook: appCheckout.NewHandleWebhookUseCase(stripe.NewVerifier(webhookSecret, 5*time.Minute),
			memory.NewLedger(), carts, products, discardPublisher{}, tel),
	}
	h := NewHandler(svc, Options{TokenTTL: time.Hour}, nil, tel)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, products: products, carts: carts, provider: provider}
}

func (f *fixture) do(t *testing.T, method, path, token string, body []byte, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) doJSON(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return f.do(t, method, path, token, payload, "application/json")
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileContent string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) register(t *testing.T, name, email, phone string) string {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{
		"username":        name,
		"email":           email,
		"password":        "hunter22",
		"confirmPassword": "hunter22",
		"phone":           phone,
	}, "", "", "")
	resp := f.do(t, http.MethodPost, "/api/auth/register", "", body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[sessionResponse](t, resp).Token
}

func (f *fixture) createProduct(t *testing.T, token, name, price, stock string) productResponse {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{
		"name":        name,
		"description": "soft cotton",
		"tags":        "summer, cotton",
		"price":       price,
		"color":       "blue",
		"size":        "md",
		"totalStock":  stock,
	}, "images", "front.png", "png-bytes")
	resp := f.do(t, http.MethodPost, "/api/products", token, body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[productResponse](t, resp)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))
}

func TestAuthRoutes(t *testing.T) {
	f := newFixture(t)

	body, ct := multipartBody(t, map[string]string{
		"username": "ada", "email": adminEmail, "password": "hunter22",
		"confirmPassword": "hunter22", "phone": "555-0001",
	}, "profileImage", "me.png", "avatar")
	resp := f.do(t, http.MethodPost, "/api/auth/register", "", body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decode[sessionResponse](t, resp)
	assert.Equal(t, "admin", session.Role)
	assert.True(t, strings.HasPrefix(session.ProfileImage, "http://media.test/profiles/"))

	resp = f.do(t, http.MethodPost, "/api/auth/register", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "user already exists", decode[map[string]string](t, resp)["error"])

	resp = f.doJSON(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: adminEmail, Password: "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jwtCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieJWT {
			jwtCookie = c
		}
	}
	require.NotNil(t, jwtCookie)
	assert.True(t, jwtCookie.HttpOnly)

	resp = f.doJSON(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: adminEmail, Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", decode[map[string]string](t, resp)["error"])
}

func TestCookieAuthenticatesCartRequests(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "bo", "bo@shop.test", "555-0002")

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/cart", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookieJWT, Value: token})
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[cartResponse](t, resp).Items)
}

func TestProductRoutes(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "ada", adminEmail, "555-0001")
	customer := f.register(t, "bo", "bo@shop.test", "555-0002")

	p := f.createProduct(t, admin, "Basic Tee", "19.99", "3")
	assert.Equal(t, "basic-tee", p.Slug)
	assert.Equal(t, json.Number("19.99"), p.Price)
	assert.EqualValues(t, 1999, p.PriceCents)
	assert.True(t, p.InStock)
	require.Len(t, p.Images, 1)
	assert.Equal(t, []string{"summer", "cotton"}, p.Tags)

	second := f.createProduct(t, admin, "Basic Tee", "5", "0")
	assert.Equal(t, "basic-tee-2", second.Slug)
	assert.False(t, second.InStock)

	body, ct := multipartBody(t, map[string]string{"name": "x"}, "", "", "")
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/products", "", body, ct).StatusCode)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/products", customer, body, ct).StatusCode)

	body, ct = multipartBody(t, map[string]string{"name": "Tee", "price": "free"}, "", "", "")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/products", admin, body, ct).StatusCode)

	resp := f.do(t, http.MethodGet, "/api/products?minPrice=10&sort=price-asc", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[productPageResponse](t, resp)
	assert.EqualValues(t, 1, page.TotalProducts)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Products, 1)
	assert.Equal(t, p.ID, page.Products[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/products?size=huge", "", nil, "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/products?page=two", "", nil, "").StatusCode)

	resp = f.do(t, http.MethodGet, "/api/products/basic-tee", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, p.ID, decode[productResponse](t, resp).ID)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/products/nope", "", nil, "").StatusCode)

	body, ct = multipartBody(t, map[string]string{"name": "Premium Tee", "totalStock": "0"}, "", "", "")
	resp = f.do(t, http.MethodPut, "/api/products/"+p.ID, admin, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[productResponse](t, resp)
	assert.Equal(t, "premium-tee", updated.Slug)
	assert.False(t, updated.InStock)
	assert.Equal(t, json.Number("19.99"), updated.Price)

	resp = f.do(t, http.MethodGet, "/api/products/export", admin, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, "2", resp.Header.Get("X-Product-Count"))
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/products/export", customer, nil, "").StatusCode)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/products/"+second.ID, admin, nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/products/"+second.ID, admin, nil, "").StatusCode)
}

func TestCartRoutes(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "ada", adminEmail, "555-0001")
	customer := f.register(t, "bo", "bo@shop.test", "555-0002")
	p := f.createProduct(t, admin, "Basic Tee", "19.99", "3")

	assert.Equal(t, http.StatusUnauthorized, f.doJSON(t, http.MethodGet, "/api/cart", "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.doJSON(t, http.MethodGet, "/api/cart", "not-a-jwt", nil).StatusCode)

	add := addToCartRequest{ProductID: p.ID, Color: "blue", Size: "md"}
	resp := f.doJSON(t, http.MethodPost, "/api/cart", customer, add)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.doJSON(t, http.MethodPost, "/api/cart", customer, add)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cart := decode[cartResponse](t, resp)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, "Basic Tee", cart.Items[0].Product.Name)

	resp = f.doJSON(t, http.MethodPost, "/api/cart", customer, addToCartRequest{ProductID: "missing", Color: "blue", Size: "md"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	itemID := cart.Items[0].ID
	resp = f.doJSON(t, http.MethodPut, "/api/cart/"+itemID, customer, updateCartItemRequest{Quantity: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, decode[cartResponse](t, resp).Items[0].Quantity)

	assert.Equal(t, http.StatusNotFound, f.doJSON(t, http.MethodDelete, "/api/cart/unknown", customer, nil).StatusCode)

	resp = f.doJSON(t, http.MethodDelete, "/api/cart/"+itemID, customer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[cartResponse](t, resp).Items)

	resp = f.doJSON(t, http.MethodDelete, "/api/cart", customer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[cartResponse](t, resp).Items)
}

func TestCheckoutAndWebhook(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "ada", adminEmail, "555-0001")
	customer := f.register(t, "bo", "bo@shop.test", "555-0002")
	p := f.createProduct(t, admin, "Basic Tee", "19.99", "2")

	resp := f.doJSON(t, http.MethodPost, "/api/checkout/create-checkout-session", customer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "cart is empty", decode[map[string]string](t, resp)["error"])

	resp = f.doJSON(t, http.MethodPost, "/api/cart", customer, addToCartRequest{ProductID: p.ID, Color: "blue", Size: "md", Quantity: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cart := decode[cartResponse](t, resp)

	resp = f.doJSON(t, http.MethodPost, "/api/checkout/create-checkout-session", customer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.doJSON(t, http.MethodPut, "/api/cart/"+cart.Items[0].ID, customer, updateCartItemRequest{Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.doJSON(t, http.MethodPost, "/api/checkout/create-checkout-session", customer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decode[checkoutSessionResponse](t, resp)
	assert.Equal(t, "https://pay.test/cs_test_1", session.URL)
	assert.EqualValues(t, 3998, session.AmountTotal)
	assert.Equal(t, json.Number("39.98"), session.Amount)
	assert.Equal(t, cart.ID, f.provider.last.Metadata[checkout.MetadataCartID])

	payload := []byte(fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","metadata":{"userId":%q,"cartId":%q}}}}`,
		cart.UserID, cart.ID))

	resp = f.do(t, http.MethodPost, "/api/checkout/webhook", "", payload, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sign := func(body []byte) *http.Response {
		req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/checkout/webhook", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set(headerStripeSignature, stripe.SignatureHeader(webhookSecret, body, time.Now()))
		resp, err := f.server.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp = sign(payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"received": true}, decode[map[string]bool](t, resp))

	product, err := f.products.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.TotalStock)
	assert.Equal(t, 2, product.SoldCount)
	assert.False(t, product.InStock)

	stored, err := f.carts.FindByID(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Items)

	// Redelivery is acknowledged without decrementing again.
	resp = sign(payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	product, err = f.products.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, product.SoldCount)

	// Authentic but undecodable events are acknowledged, not blamed on the signature.
	resp = sign([]byte("not json"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusMapping(t *testing.T) {
	h := NewHandler(Services{}, Options{}, nil, nil)
	cases := []struct {
		err  error
		code int
	}{
		{appAuth.ErrInvalidCredentials, http.StatusUnauthorized},
		{checkout.ErrInvalidSignature, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", assert.AnError), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, statusFor(c.err), c.err.Error())
	}
	assert.Equal(t, internalErrorMessage, h.clientMessage(http.StatusInternalServerError, assert.AnError))

	dev := NewHandler(Services{}, Options{Development: true}, nil, nil)
	assert.Equal(t, assert.AnError.Error(), dev.clientMessage(http.StatusInternalServerError, assert.AnError))
}
