// Package testutil provides common test utilities, chiefly an in-memory
// stand-in for the asset-tracking API so store tests exercise the real
// transport path without a backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"assetdesk/internal/domain"
)

// Token is the bearer credential the fixture server accepts.
const Token = "fixture-token"

type plannedFailure struct {
	status int
	body   string
}

// APIServer implements the REST surface of the tracking API over in-memory
// state. All exported methods are safe for concurrent use.
type APIServer struct {
	server *httptest.Server

	mu          sync.Mutex
	nextID      int64
	categories  []domain.Category
	accessories map[int64][]domain.Accessory
	assignments []domain.Assignment
	employees   []domain.Employee
	counts      map[string]int
	total       int
	failures    map[string]plannedFailure
	intercept   func(method, path string)
}

// NewAPIServer starts a fixture server and closes it when the test ends.
func NewAPIServer(t *testing.T) *APIServer {
	t.Helper()
	s := &APIServer{
		nextID:      100,
		accessories: make(map[int64][]domain.Accessory),
		counts:      make(map[string]int),
		failures:    make(map[string]plannedFailure),
	}
	s.server = httptest.NewServer(s.router())
	t.Cleanup(s.server.Close)
	return s
}

func (s *APIServer) URL() string { return s.server.URL }

// Intercept installs a hook invoked before each request is handled, outside
// the server lock. Tests use it to stall chosen responses and provoke
// ordering races.
func (s *APIServer) Intercept(fn func(method, path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intercept = fn
}

// FailWith makes every subsequent "METHOD /path" request answer with the
// given status and raw body until cleared.
func (s *APIServer) FailWith(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = plannedFailure{status: status, body: body}
}

func (s *APIServer) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]plannedFailure)
}

// RequestCount reports how many times "METHOD /path" was served.
func (s *APIServer) RequestCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[method+" "+path]
}

// TotalRequests reports how many requests reached the server at all.
func (s *APIServer) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *APIServer) SeedCategory(c domain.Category) domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.allocID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	s.categories = append(s.categories, c)
	return c
}

func (s *APIServer) SeedAccessory(a domain.Accessory) domain.Accessory {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.allocID()
	}
	if a.AccessoryNo == "" {
		a.AccessoryNo = fmt.Sprintf("AC-%04d", a.ID)
	}
	if a.Status == "" {
		a.Status = domain.AccessoryAvailable
	}
	s.accessories[a.CategoryID] = append(s.accessories[a.CategoryID], a)
	s.refreshStockCounts()
	return a
}

func (s *APIServer) SeedAssignment(a domain.Assignment) domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.allocID()
	}
	s.assignments = append(s.assignments, a)
	return a
}

func (s *APIServer) SeedEmployee(e domain.Employee) domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.allocID()
	}
	s.employees = append(s.employees, e)
	return e
}

// AccessoryStatus reports the current status of an accessory, for asserting
// that assignment traffic leaves accessories untouched.
func (s *APIServer) AccessoryStatus(id int64) (domain.AccessoryStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.accessories {
		for _, a := range list {
			if a.ID == id {
				return a.Status, true
			}
		}
	}
	return "", false
}

func (s *APIServer) allocID() int64 {
	s.nextID++
	return s.nextID
}

// refreshStockCounts recomputes the denormalized in_stock_count aggregate the
// way the real backend would.
func (s *APIServer) refreshStockCounts() {
	for i := range s.categories {
		count := 0
		for _, a := range s.accessories[s.categories[i].ID] {
			if a.Status == domain.AccessoryAvailable {
				count += a.StockQuantity
			}
		}
		s.categories[i].InStockCount = count
	}
}

func (s *APIServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)
	r.Use(s.requireBearer)

	r.Get("/categories", s.listCategories)
	r.Post("/categories", s.createCategory)
	r.Put("/categories/{id}", s.updateCategory)
	r.Delete("/categories/{id}", s.deleteCategory)
	r.Get("/categories/{id}", s.getCategory)

	r.Get("/accessories", s.listAllAccessories)
	r.Get("/accessories/{categoryID}", s.listAccessories)
	r.Post("/accessories", s.createAccessory)
	r.Put("/accessories/{id}", s.updateAccessory)
	r.Delete("/accessories/{id}", s.deleteAccessory)

	r.Get("/assignments", s.listAssignments)
	r.Post("/assignments", s.createAssignment)
	r.Put("/assignments/{id}", s.updateAssignment)
	r.Delete("/assignments/{id}", s.deleteAssignment)

	r.Get("/employees", s.listEmployees)
	return r
}

func (s *APIServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.total++
		s.counts[r.Method+" "+r.URL.Path]++
		hook := s.intercept
		failure, failed := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if hook != nil {
			hook(r.Method, r.URL.Path)
		}
		if failed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failure.status)
			_, _ = w.Write([]byte(failure.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": payload})
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func (s *APIServer) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]domain.Category(nil), s.categories...)
	s.mu.Unlock()
	writeData(w, out)
}

func (s *APIServer) getCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id {
			writeData(w, c)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Category not found"})
}

func (s *APIServer) createCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusUnprocessableEntity,
			map[string]any{"errors": map[string][]string{"name": {"The name field is required."}}})
		return
	}
	s.mu.Lock()
	now := time.Now().UTC()
	c := domain.Category{ID: s.allocID(), Name: in.Name, Code: in.Code, CreatedAt: now, UpdatedAt: now}
	s.categories = append(s.categories, c)
	s.mu.Unlock()
	writeData(w, c)
}

func (s *APIServer) updateCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var in struct {
		Name *string `json:"name"`
		Code *string `json:"code"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == id {
			if in.Name != nil {
				s.categories[i].Name = *in.Name
			}
			if in.Code != nil {
				s.categories[i].Code = *in.Code
			}
			s.categories[i].UpdatedAt = time.Now().UTC()
			writeData(w, s.categories[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Category not found"})
}

func (s *APIServer) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == id {
			// Dependent accessories are deliberately left behind; cleanup is
			// a backend concern the client must not assume.
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			writeData(w, nil)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Category not found"})
}

func (s *APIServer) listAllAccessories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	var out []domain.Accessory
	for _, list := range s.accessories {
		out = append(out, list...)
	}
	s.mu.Unlock()
	writeData(w, out)
}

func (s *APIServer) listAccessories(w http.ResponseWriter, r *http.Request) {
	categoryID := pathID(r, "categoryID")
	s.mu.Lock()
	out := append([]domain.Accessory(nil), s.accessories[categoryID]...)
	s.mu.Unlock()
	writeData(w, out)
}

func (s *APIServer) createAccessory(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"message": "Expected multipart form data"})
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed form data"})
		return
	}
	categoryID, _ := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	if categoryID == 0 || r.FormValue("brand_name") == "" {
		writeJSON(w, http.StatusUnprocessableEntity,
			map[string]any{"errors": map[string][]string{"brand_name": {"The brand name field is required."}}})
		return
	}

	amount, _ := decimal.NewFromString(r.FormValue("amount"))
	warranty, _ := strconv.Atoi(r.FormValue("warranty_months"))
	stock, _ := strconv.Atoi(r.FormValue("stock_quantity"))
	if stock == 0 {
		stock = 1
	}
	status := domain.AccessoryStatus(r.FormValue("status"))
	if status == "" {
		status = domain.AccessoryAvailable
	}

	var images []string
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["images"] {
			images = append(images, header.Filename)
		}
	}

	s.mu.Lock()
	a := domain.Accessory{
		ID:             s.allocID(),
		BrandName:      r.FormValue("brand_name"),
		CategoryID:     categoryID,
		VendorName:     r.FormValue("vendor_name"),
		Condition:      r.FormValue("condition"),
		PurchaseDate:   r.FormValue("purchase_date"),
		Amount:         amount,
		WarrantyMonths: warranty,
		StockQuantity:  stock,
		Status:         status,
		Note:           r.FormValue("note"),
		Images:         images,
	}
	a.AccessoryNo = fmt.Sprintf("AC-%04d", a.ID)
	s.accessories[categoryID] = append(s.accessories[categoryID], a)
	s.refreshStockCounts()
	s.mu.Unlock()
	writeData(w, a)
}

func (s *APIServer) updateAccessory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var in map[string]json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()
	for categoryID, list := range s.accessories {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			applyAccessoryPatch(&s.accessories[categoryID][i], in)
			s.refreshStockCounts()
			writeData(w, s.accessories[categoryID][i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Accessory not found"})
}

func applyAccessoryPatch(a *domain.Accessory, patch map[string]json.RawMessage) {
	unmarshal := func(key string, into any) {
		if raw, ok := patch[key]; ok {
			_ = json.Unmarshal(raw, into)
		}
	}
	unmarshal("brand_name", &a.BrandName)
	unmarshal("vendor_name", &a.VendorName)
	unmarshal("condition", &a.Condition)
	unmarshal("purchase_date", &a.PurchaseDate)
	unmarshal("amount", &a.Amount)
	unmarshal("warranty_months", &a.WarrantyMonths)
	unmarshal("stock_quantity", &a.StockQuantity)
	unmarshal("status", &a.Status)
	unmarshal("note", &a.Note)
}

func (s *APIServer) deleteAccessory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for categoryID, list := range s.accessories {
		for i := range list {
			if list[i].ID == id {
				s.accessories[categoryID] = append(list[:i], list[i+1:]...)
				s.refreshStockCounts()
				writeData(w, nil)
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Accessory not found"})
}

func (s *APIServer) listAssignments(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]domain.Assignment, len(s.assignments))
	for i, a := range s.assignments {
		out[i] = s.decorated(a)
	}
	s.mu.Unlock()
	writeData(w, out)
}

// decorated attaches the read-only user and accessory views the real backend
// renders into assignment listings.
func (s *APIServer) decorated(a domain.Assignment) domain.Assignment {
	for _, e := range s.employees {
		if e.ID == a.UserID {
			a.User = &domain.EmployeeRef{ID: e.ID, Name: e.Name}
		}
	}
	for _, list := range s.accessories {
		for _, acc := range list {
			if acc.ID == a.AccessoryID {
				a.Accessory = &domain.AccessoryRef{ID: acc.ID, AccessoryNo: acc.AccessoryNo, BrandName: acc.BrandName}
			}
		}
	}
	return a
}

func (s *APIServer) createAssignment(w http.ResponseWriter, r *http.Request) {
	var in domain.Assignment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed assignment"})
		return
	}
	if in.UserID == 0 || in.AccessoryID == 0 || in.AssignedAt == "" {
		writeJSON(w, http.StatusUnprocessableEntity,
			map[string]any{"errors": map[string][]string{"user_id": {"The user id field is required."}}})
		return
	}
	s.mu.Lock()
	in.ID = s.allocID()
	in.User = nil
	in.Accessory = nil
	s.assignments = append(s.assignments, in)
	out := s.decorated(in)
	s.mu.Unlock()
	writeData(w, out)
}

func (s *APIServer) updateAssignment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var in map[string]json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&in)

	unmarshal := func(key string, into any) {
		if raw, ok := in[key]; ok {
			_ = json.Unmarshal(raw, into)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID != id {
			continue
		}
		unmarshal("user_id", &s.assignments[i].UserID)
		unmarshal("category_id", &s.assignments[i].CategoryID)
		unmarshal("accessory_id", &s.assignments[i].AccessoryID)
		unmarshal("assigned_at", &s.assignments[i].AssignedAt)
		unmarshal("status", &s.assignments[i].Status)
		writeData(w, s.decorated(s.assignments[i]))
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Assignment not found"})
}

func (s *APIServer) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID == id {
			s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
			writeData(w, nil)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Assignment not found"})
}

func (s *APIServer) listEmployees(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]domain.Employee(nil), s.employees...)
	s.mu.Unlock()
	writeData(w, out)
}
