package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/admin"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/student"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
// A single mutex serializes writers, which gives checkout the same per-student
// isolation the postgres store gets from row locks.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	now    func() time.Time

	students map[string]student.Student
	admins   map[int64]admin.Admin
	shops    map[int64]shop.Shop
	items    map[int64]shop.MenuItem
	orders   map[int64]order.Order
}

var _ storage.StudentStore = (*Store)(nil)
var _ storage.AdminStore = (*Store)(nil)
var _ storage.ShopStore = (*Store)(nil)
var _ storage.MenuStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.ReportStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		now:      func() time.Time { return time.Now().UTC() },
		students: make(map[string]student.Student),
		admins:   make(map[int64]admin.Admin),
		shops:    make(map[int64]shop.Shop),
		items:    make(map[int64]shop.MenuItem),
		orders:   make(map[int64]order.Order),
	}
}

// SetClock overrides the timestamp source used for new orders.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// StudentStore implementation -------------------------------------------------

func (s *Store) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.students[st.ID]; exists {
		return student.Student{}, apperrors.DuplicateName("student", st.ID)
	}
	s.students[st.ID] = st
	return st, nil
}

func (s *Store) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[st.ID]; !ok {
		return student.Student{}, apperrors.NotFound("student", st.ID)
	}
	s.students[st.ID] = st
	return st, nil
}

func (s *Store) GetStudent(_ context.Context, id string) (student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return student.Student{}, apperrors.NotFound("student", id)
	}
	return st, nil
}

func (s *Store) ListStudents(_ context.Context) ([]student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]student.Student, 0, len(s.students))
	for _, st := range s.students {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteStudent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[id]; !ok {
		return apperrors.NotFound("student", id)
	}
	delete(s.students, id)
	return nil
}

// AdminStore implementation ---------------------------------------------------

func (s *Store) CreateAdmin(_ context.Context, a admin.Admin) (admin.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.admins {
		if existing.Username == a.Username {
			return admin.Admin{}, apperrors.DuplicateName("admin", a.Username)
		}
	}
	a.ID = s.nextIDLocked()
	s.admins[a.ID] = a
	return a, nil
}

func (s *Store) GetAdminByUsername(_ context.Context, username string) (admin.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.admins {
		if a.Username == username {
			return a, nil
		}
	}
	return admin.Admin{}, apperrors.NotFound("admin", username)
}

// ShopStore implementation ----------------------------------------------------

func (s *Store) CreateShop(_ context.Context, sh shop.Shop) (shop.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.shops {
		if existing.Name == sh.Name {
			return shop.Shop{}, apperrors.DuplicateName("shop", sh.Name)
		}
	}
	sh.ID = s.nextIDLocked()
	s.shops[sh.ID] = sh
	return sh, nil
}

func (s *Store) GetShop(_ context.Context, id int64) (shop.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shops[id]
	if !ok {
		return shop.Shop{}, apperrors.NotFound("shop", id)
	}
	return sh, nil
}

func (s *Store) GetShopByName(_ context.Context, name string) (shop.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sh := range s.shops {
		if sh.Name == name {
			return sh, nil
		}
	}
	return shop.Shop{}, apperrors.NotFound("shop", name)
}

func (s *Store) ListShops(_ context.Context) ([]shop.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]shop.Shop, 0, len(s.shops))
	for _, sh := range s.shops {
		result = append(result, sh)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MenuStore implementation ----------------------------------------------------

func (s *Store) CreateMenuItem(_ context.Context, item shop.MenuItem) (shop.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shops[item.ShopID]; !ok {
		return shop.MenuItem{}, apperrors.NotFound("shop", item.ShopID)
	}
	for _, existing := range s.items {
		if existing.ShopID == item.ShopID && existing.Name == item.Name {
			return shop.MenuItem{}, apperrors.DuplicateName("menu item", item.Name)
		}
	}
	item.ID = s.nextIDLocked()
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) GetMenuItem(_ context.Context, id int64) (shop.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return shop.MenuItem{}, apperrors.NotFound("menu item", id)
	}
	return item, nil
}

func (s *Store) ListMenuItems(_ context.Context, shopID int64, availableOnly bool) ([]shop.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]shop.MenuItem, 0)
	for _, item := range s.items {
		if item.ShopID != shopID {
			continue
		}
		if availableOnly && !item.Available {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SetMenuItemAvailability(_ context.Context, id int64, available bool) (shop.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return shop.MenuItem{}, apperrors.NotFound("menu item", id)
	}
	item.Available = available
	s.items[id] = item
	return item, nil
}

// OrderStore implementation ---------------------------------------------------

func (s *Store) PlaceOrders(_ context.Context, studentID string, orders []order.Order) (order.Group, error) {
	total, err := order.ChargeTotal(orders)
	if err != nil {
		return order.Group{}, apperrors.New(apperrors.CodeInvalidInput, err.Error(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return order.Group{}, apperrors.NotFound("student", studentID)
	}
	if st.Balance < total {
		return order.Group{}, apperrors.InsufficientBalance(st.Balance, total)
	}

	// Build everything before touching the maps so a rejected order leaves
	// no trace.
	now := s.now()
	created := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if _, ok := s.shops[o.ShopID]; !ok {
			return order.Group{}, apperrors.NotFound("shop", o.ShopID)
		}
		created = append(created, o)
	}
	for i := range created {
		o := &created[i]
		o.ID = s.nextIDLocked()
		o.StudentID = studentID
		o.Status = order.StatusPending
		o.CreatedAt = now
		o.Items = append([]order.Item(nil), o.Items...)
		for j := range o.Items {
			o.Items[j].ID = s.nextIDLocked()
			o.Items[j].OrderID = o.ID
		}
		s.orders[o.ID] = cloneOrder(*o)
	}

	group := order.Group{
		StudentID:     studentID,
		Orders:        created,
		Total:         total,
		BalanceBefore: st.Balance,
		BalanceAfter:  st.Balance - total,
	}
	st.Balance -= total
	s.students[studentID] = st
	return group, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, apperrors.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

func (s *Store) ListShopOrders(_ context.Context, shopID int64, status order.Status) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterOrdersLocked(func(o order.Order) bool {
		return o.ShopID == shopID && (status == "" || o.Status == status)
	}), nil
}

func (s *Store) ListStudentOrders(_ context.Context, studentID string) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterOrdersLocked(func(o order.Order) bool {
		return o.StudentID == studentID
	}), nil
}

func (s *Store) filterOrdersLocked(keep func(order.Order) bool) []order.Order {
	result := make([]order.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *Store) TransitionOrder(_ context.Context, id int64, status order.Status, refund bool) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, apperrors.NotFound("order", id)
	}
	if o.Status != order.StatusPending {
		return order.Order{}, apperrors.InvalidInput("order is not pending").
			WithDetails("status", string(o.Status))
	}
	if refund {
		if st, ok := s.students[o.StudentID]; ok {
			st.Balance += o.TotalAmount
			s.students[o.StudentID] = st
		}
	}
	o.Status = status
	s.orders[id] = o
	return cloneOrder(o), nil
}

// ReportStore implementation --------------------------------------------------

func (s *Store) ItemSales(_ context.Context, shopID int64) ([]shop.ItemSales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byItem := make(map[int64]*shop.ItemSales)
	for _, o := range s.orders {
		if o.ShopID != shopID || o.Status == order.StatusCancelled {
			continue
		}
		for _, line := range o.Items {
			agg, ok := byItem[line.MenuItemID]
			if !ok {
				agg = &shop.ItemSales{ItemID: line.MenuItemID, Name: line.Name}
				byItem[line.MenuItemID] = agg
			}
			agg.TotalSold += int64(line.Quantity)
			agg.Revenue += line.Price * money.Cents(line.Quantity)
			if item, found := s.items[line.MenuItemID]; found {
				agg.TotalCost += item.Cost * money.Cents(line.Quantity)
			}
		}
	}

	result := make([]shop.ItemSales, 0, len(byItem))
	for _, agg := range byItem {
		agg.Profit = agg.Revenue - agg.TotalCost
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalSold == result[j].TotalSold {
			return result[i].ItemID < result[j].ItemID
		}
		return result[i].TotalSold > result[j].TotalSold
	})
	return result, nil
}

func (s *Store) DailySales(_ context.Context, shopID int64, since, until time.Time) ([]shop.DailySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[time.Time]*shop.DailySales)
	for _, o := range s.orders {
		if o.ShopID != shopID || o.Status == order.StatusCancelled {
			continue
		}
		if o.CreatedAt.Before(since) || !o.CreatedAt.Before(until) {
			continue
		}
		day := truncateDay(o.CreatedAt)
		agg, ok := byDay[day]
		if !ok {
			agg = &shop.DailySales{Date: day}
			byDay[day] = agg
		}
		agg.OrdersCount++
		agg.Revenue += o.TotalAmount
	}

	result := make([]shop.DailySales, 0, len(byDay))
	for _, agg := range byDay {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cloneOrder(o order.Order) order.Order {
	o.Items = append([]order.Item(nil), o.Items...)
	return o
}
