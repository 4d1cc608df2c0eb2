package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/R3E-Network/canteen_pos/internal/app"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/student"
	"github.com/R3E-Network/canteen_pos/internal/app/events"
	"github.com/R3E-Network/canteen_pos/internal/app/seed"
	"github.com/R3E-Network/canteen_pos/internal/app/session"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	"github.com/R3E-Network/canteen_pos/internal/app/storage/memory"
	"github.com/R3E-Network/canteen_pos/internal/httputil"
)

const (
	riceShop  = "ร้านข้าวแม่สมปอง"
	drinkShop = "ร้านน้ำผลไม้ป้าแก้ว"
)

type testServer struct {
	*httptest.Server
	app   *app.Application
	store *memory.Store
}

func newTestServer(t *testing.T, perMinute, burst int) *testServer {
	t.Helper()
	return newTestServerWithOrders(t, perMinute, burst, nil)
}

// newTestServerWithOrders lets a test wrap the order store, e.g. to slow down
// PlaceOrders.
func newTestServerWithOrders(t *testing.T, perMinute, burst int, wrap func(*memory.Store) storage.OrderStore) *testServer {
	t.Helper()
	store := memory.New()
	var orders storage.OrderStore = store
	if wrap != nil {
		orders = wrap(store)
	}
	application, err := app.New(app.Stores{
		Students: store,
		Admins:   store,
		Shops:    store,
		Menu:     store,
		Orders:   orders,
		Reports:  store,
	}, app.Options{}, nil)
	require.NoError(t, err)

	fixtures, err := seed.Sample()
	require.NoError(t, err)
	_, err = seed.Apply(context.Background(), fixtures, application.Admin, application.Shops, nil)
	require.NoError(t, err)

	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	tokens, err := session.NewTokens("handler-test-secret-123", time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(application, Config{
		Tokens:         tokens,
		LoginPerMinute: perMinute,
		LoginBurst:     burst,
	}, nil))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, app: application, store: store}
}

func (s *testServer) login(t *testing.T, role, identifier, password string) (*httputil.Client, sessionView) {
	t.Helper()
	c := httputil.NewClient(httputil.ClientConfig{BaseURL: s.URL})
	var view sessionView
	call(t, c, http.MethodPost, "/api/auth/"+role+"/login", loginRequest{Identifier: identifier, Password: password}, &view)
	require.NotEmpty(t, view.Token)
	return c, view
}

func call(t *testing.T, c *httputil.Client, method, path string, body, out interface{}) {
	t.Helper()
	require.NoError(t, try(c, method, path, body, out), "%s %s", method, path)
}

func try(c *httputil.Client, method, path string, body, out interface{}) error {
	resp, err := c.Do(context.Background(), method, path, body)
	if err != nil {
		return err
	}
	return httputil.DecodeResponse(resp, out)
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *httputil.APIError
	require.True(t, errors.As(err, &apiErr), "expected API error, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
}

func (s *testServer) menuItem(t *testing.T, shopName, itemName string) shop.MenuItem {
	t.Helper()
	sh, err := s.store.GetShopByName(context.Background(), shopName)
	require.NoError(t, err)
	items, err := s.store.ListMenuItems(context.Background(), sh.ID, false)
	require.NoError(t, err)
	for _, it := range items {
		if it.Name == itemName {
			return it
		}
	}
	t.Fatalf("item %s not found in %s", itemName, shopName)
	return shop.MenuItem{}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 100, 100)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	err = httputil.DecodeResponse(resp, nil)
	requireAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestStudentCheckoutFlow(t *testing.T) {
	srv := newTestServer(t, 100, 100)
	c, view := srv.login(t, "student", "01514", "01112547")
	require.NotNil(t, view.Balance)
	assert.EqualValues(t, 50000, *view.Balance)

	var shops []shop.Shop
	call(t, c, http.MethodGet, "/api/shops", nil, &shops)
	require.Len(t, shops, 4)

	var menu []shop.MenuItem
	call(t, c, http.MethodGet, "/api/shops/"+strconv.FormatInt(shops[0].ID, 10)+"/menu", nil, &menu)
	require.Len(t, menu, 3)

	call(t, c, http.MethodGet, "/api/shops/999/menu", nil, &menu)
	assert.Empty(t, menu)

	friedRice := srv.menuItem(t, riceShop, "ข้าวผัดหมู")
	juice := srv.menuItem(t, drinkShop, "น้ำส้มคั้น")

	var cv cartView
	call(t, c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: friedRice.ID, Quantity: 1}, &cv)
	call(t, c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: juice.ID, Quantity: 1}, &cv)
	call(t, c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: friedRice.ID, Quantity: 1}, &cv)
	assert.Equal(t, 2, cv.Count)
	assert.EqualValues(t, 11500, cv.Total)

	var group order.Group
	call(t, c, http.MethodPost, "/api/checkout", nil, &group)
	require.Len(t, group.Orders, 2)
	assert.EqualValues(t, 9000, group.Orders[0].TotalAmount)
	assert.EqualValues(t, 2500, group.Orders[1].TotalAmount)
	assert.EqualValues(t, 38500, group.BalanceAfter)

	call(t, c, http.MethodGet, "/api/cart", nil, &cv)
	assert.Zero(t, cv.Count)

	call(t, c, http.MethodGet, "/api/me", nil, &view)
	require.NotNil(t, view.Balance)
	assert.EqualValues(t, 38500, *view.Balance)

	var history []order.Order
	call(t, c, http.MethodGet, "/api/orders", nil, &history)
	assert.Len(t, history, 2)

	err := try(c, http.MethodPost, "/api/checkout", nil, nil)
	requireAPIError(t, err, http.StatusBadRequest, "EMPTY_CART")
}

func TestCheckoutInsufficientBalanceKeepsCart(t *testing.T) {
	srv := newTestServer(t, 100, 100)
	c, _ := srv.login(t, "student", "12346", "02022010")
	chicken := srv.menuItem(t, riceShop, "ข้าวมันไก่")

	call(t, c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: chicken.ID, Quantity: 7}, nil)
	err := try(c, http.MethodPost, "/api/checkout", nil, nil)
	requireAPIError(t, err, http.StatusConflict, "INSUFFICIENT_BALANCE")

	var cv cartView
	call(t, c, http.MethodGet, "/api/cart", nil, &cv)
	assert.Equal(t, 1, cv.Count)

	st, err := srv.store.GetStudent(context.Background(), "12346")
	require.NoError(t, err)
	assert.EqualValues(t, 30000, st.Balance)

	call(t, c, http.MethodDelete, "/api/cart/items/"+strconv.FormatInt(chicken.ID, 10), nil, &cv)
	assert.Zero(t, cv.Count)
	err = try(c, http.MethodDelete, "/api/cart/items/"+strconv.FormatInt(chicken.ID, 10), nil, nil)
	requireAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestAddToCartRejectsHugeQuantity(t *testing.T) {
	srv := newTestServer(t, 100, 100)
	c, _ := srv.login(t, "student", "01514", "01112547")
	friedRice := srv.menuItem(t, riceShop, "ข้าวผัดหมู")

	err := try(c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: friedRice.ID, Quantity: 2049638230412173}, nil)
	requireAPIError(t, err, http.StatusBadRequest, "INVALID_INPUT")

	var cv cartView
	call(t, c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: friedRice.ID, Quantity: 60}, &cv)
	err = try(c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: friedRice.ID, Quantity: 60}, nil)
	requireAPIError(t, err, http.StatusBadRequest, "INVALID_INPUT")

	call(t, c, http.MethodGet, "/api/cart", nil, &cv)
	require.Len(t, cv.Entries, 1)
	assert.Equal(t, 60, cv.Entries[0].Quantity)

	err = try(c, http.MethodPost, "/api/checkout", nil, nil)
	requireAPIError(t, err, http.StatusConflict, "INSUFFICIENT_BALANCE")

	st, err := srv.store.GetStudent(context.Background(), "01514")
	require.NoError(t, err)
	assert.EqualValues(t, 50000, st.Balance)
}

type slowOrders struct {
	*memory.Store
	delay time.Duration
}

func (s slowOrders) PlaceOrders(ctx context.Context, studentID string, orders []order.Order) (order.Group, error) {
	time.Sleep(s.delay)
	return s.Store.PlaceOrders(ctx, studentID, orders)
}

func TestConcurrentCheckoutChargesOnce(t *testing.T) {
	srv := newTestServerWithOrders(t, 100, 100, func(m *memory.Store) storage.OrderStore {
		return slowOrders{Store: m, delay: 50 * time.Millisecond}
	})
	c, _ := srv.login(t, "student", "01514", "01112547")
	friedRice := srv.menuItem(t, riceShop, "ข้าวผัดหมู")
	call(t, c, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: friedRice.ID, Quantity: 2}, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = try(c, http.MethodPost, "/api/checkout", nil, nil)
		}(i)
	}
	wg.Wait()

	var failed error
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			failed = err
		}
	}
	require.Equal(t, 1, succeeded, "errors: %v", errs)
	requireAPIError(t, failed, http.StatusBadRequest, "EMPTY_CART")

	st, err := srv.store.GetStudent(context.Background(), "01514")
	require.NoError(t, err)
	assert.EqualValues(t, 50000-2*friedRice.Price, st.Balance)

	history, err := srv.store.ListStudentOrders(context.Background(), "01514")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	var cv cartView
	call(t, c, http.MethodGet, "/api/cart", nil, &cv)
	assert.Zero(t, cv.Count)
}

func TestAuthenticationAndRoles(t *testing.T) {
	srv := newTestServer(t, 100, 100)
	anon := httputil.NewClient(httputil.ClientConfig{BaseURL: srv.URL})

	err := try(anon, http.MethodGet, "/api/me", nil, nil)
	requireAPIError(t, err, http.StatusUnauthorized, "UNAUTHORIZED")

	err = try(anon, http.MethodPost, "/api/auth/student/login", loginRequest{Identifier: "01514", Password: "wrong"}, nil)
	requireAPIError(t, err, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	err = try(anon, http.MethodPost, "/api/auth/janitor/login", loginRequest{Identifier: "x", Password: "y"}, nil)
	requireAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	c, view := srv.login(t, "student", "01514", "01112547")
	err = try(c, http.MethodGet, "/api/admin/students", nil, nil)
	requireAPIError(t, err, http.StatusForbidden, "FORBIDDEN")

	bearer := httputil.NewClient(httputil.ClientConfig{BaseURL: srv.URL, Token: view.Token})
	call(t, bearer, http.MethodGet, "/api/me", nil, nil)

	call(t, c, http.MethodPost, "/api/auth/logout", nil, nil)
	err = try(bearer, http.MethodGet, "/api/me", nil, nil)
	requireAPIError(t, err, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t, 1, 2)
	c := httputil.NewClient(httputil.ClientConfig{BaseURL: srv.URL})

	for i := 0; i < 2; i++ {
		err := try(c, http.MethodPost, "/api/auth/student/login", loginRequest{Identifier: "01514", Password: "wrong"}, nil)
		requireAPIError(t, err, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	}
	err := try(c, http.MethodPost, "/api/auth/student/login", loginRequest{Identifier: "01514", Password: "01112547"}, nil)
	requireAPIError(t, err, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED")
}

func TestShopManagementFlow(t *testing.T) {
	srv := newTestServer(t, 100, 100)
	shopClient, _ := srv.login(t, "shop", riceShop, "shop123")
	studentClient, _ := srv.login(t, "student", "01514", "01112547")

	var item shop.MenuItem
	call(t, shopClient, http.MethodPost, "/api/shop/menu", map[string]string{
		"name": "ข้าวไข่เจียว", "price": "35.00", "cost": "15.00", "category": "ข้าว",
	}, &item)
	assert.True(t, item.Available)
	assert.EqualValues(t, 3500, item.Price)

	err := try(shopClient, http.MethodPost, "/api/shop/menu", map[string]string{"name": "ข้าวไข่เจียว", "price": "1.00", "cost": "0.50"}, nil)
	requireAPIError(t, err, http.StatusConflict, "DUPLICATE_NAME")

	itemPath := "/api/shop/menu/" + strconv.FormatInt(item.ID, 10) + "/availability"
	call(t, shopClient, http.MethodPatch, itemPath, map[string]bool{"available": false}, &item)
	assert.False(t, item.Available)

	err = try(studentClient, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: item.ID, Quantity: 1}, nil)
	requireAPIError(t, err, http.StatusBadRequest, "INVALID_INPUT")

	juice := srv.menuItem(t, drinkShop, "น้ำส้มคั้น")
	err = try(shopClient, http.MethodPatch, "/api/shop/menu/"+strconv.FormatInt(juice.ID, 10)+"/availability", map[string]bool{"available": false}, nil)
	requireAPIError(t, err, http.StatusForbidden, "FORBIDDEN")

	var all []shop.MenuItem
	call(t, shopClient, http.MethodGet, "/api/shop/menu", nil, &all)
	assert.Len(t, all, 4)

	curry := srv.menuItem(t, riceShop, "ข้าวราดแกง")
	call(t, studentClient, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: curry.ID, Quantity: 2}, nil)
	var group order.Group
	call(t, studentClient, http.MethodPost, "/api/checkout", nil, &group)
	require.Len(t, group.Orders, 1)
	orderID := strconv.FormatInt(group.Orders[0].ID, 10)

	var pending []order.Order
	call(t, shopClient, http.MethodGet, "/api/shop/orders?status=pending", nil, &pending)
	require.Len(t, pending, 1)

	err = try(shopClient, http.MethodGet, "/api/shop/orders?status=lost", nil, nil)
	requireAPIError(t, err, http.StatusBadRequest, "INVALID_INPUT")

	var report shop.SalesReport
	call(t, shopClient, http.MethodGet, "/api/shop/report", nil, &report)
	require.Len(t, report.Daily, shop.ReportWindowDays)
	assert.EqualValues(t, 1, report.TodayOrders)
	assert.EqualValues(t, 8000, report.TodaySales)

	var cancelled order.Order
	call(t, shopClient, http.MethodPost, "/api/shop/orders/"+orderID+"/cancel", nil, &cancelled)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	st, err := srv.store.GetStudent(context.Background(), "01514")
	require.NoError(t, err)
	assert.EqualValues(t, 50000, st.Balance)

	err = try(shopClient, http.MethodPost, "/api/shop/orders/"+orderID+"/complete", nil, nil)
	requireAPIError(t, err, http.StatusBadRequest, "INVALID_INPUT")

	otherShop, _ := srv.login(t, "shop", drinkShop, "shop789")
	err = try(otherShop, http.MethodPost, "/api/shop/orders/"+orderID+"/cancel", nil, nil)
	requireAPIError(t, err, http.StatusForbidden, "FORBIDDEN")
}

func TestAdminManagementFlow(t *testing.T) {
	srv := newTestServer(t, 100, 100)
	c, _ := srv.login(t, "admin", "teacher1", "pass1234")

	var students []student.Student
	call(t, c, http.MethodGet, "/api/admin/students", nil, &students)
	assert.Len(t, students, 2)

	var created student.Student
	call(t, c, http.MethodPost, "/api/admin/students", map[string]string{
		"id": "20001", "name": "New Kid", "password": "kidpass", "balance": "100.00",
	}, &created)
	assert.EqualValues(t, 10000, created.Balance)

	err := try(c, http.MethodPost, "/api/admin/students", map[string]string{
		"id": "20001", "name": "Again", "password": "x", "balance": "0",
	}, nil)
	requireAPIError(t, err, http.StatusConflict, "DUPLICATE_NAME")

	var edited student.Student
	call(t, c, http.MethodPut, "/api/admin/students/20001", map[string]string{
		"name": "New Kid", "password": "", "balance": "75.50",
	}, &edited)
	assert.EqualValues(t, 7550, edited.Balance)
	srv.login(t, "student", "20001", "kidpass")

	err = try(c, http.MethodPut, "/api/admin/students/20001", map[string]string{"name": "New Kid", "balance": "-1.00"}, nil)
	requireAPIError(t, err, http.StatusBadRequest, "INVALID_INPUT")

	call(t, c, http.MethodDelete, "/api/admin/students/20001", nil, nil)
	err = try(c, http.MethodDelete, "/api/admin/students/20001", nil, nil)
	requireAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	var shops []shop.Shop
	call(t, c, http.MethodGet, "/api/admin/shops", nil, &shops)
	assert.Len(t, shops, 4)
}

func TestShopOrderStream(t *testing.T) {
	srv := newTestServer(t, 100, 100)
	_, shopView := srv.login(t, "shop", riceShop, "shop123")
	studentClient, _ := srv.login(t, "student", "01514", "01112547")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+shopView.Token)
	wsURL := "ws" + srv.URL[len("http"):] + "/api/shop/orders/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return srv.app.Hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	juice := srv.menuItem(t, drinkShop, "น้ำแตงโม")
	rice := srv.menuItem(t, riceShop, "ข้าวผัดหมู")
	call(t, studentClient, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: juice.ID, Quantity: 1}, nil)
	call(t, studentClient, http.MethodPost, "/api/cart/items", addItemRequest{ItemID: rice.ID, Quantity: 1}, nil)
	call(t, studentClient, http.MethodPost, "/api/checkout", nil, nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt events.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, events.OrderCreated, evt.Type)
	assert.Equal(t, rice.ShopID, evt.ShopID)
	assert.Equal(t, money.Cents(4500), evt.Order.TotalAmount)
}
