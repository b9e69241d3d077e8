package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/safar/sales-desk/internal/config"
	"github.com/safar/sales-desk/internal/database"
	"github.com/safar/sales-desk/internal/inventory"
	"github.com/safar/sales-desk/internal/models"
	"github.com/safar/sales-desk/internal/notify"
	"github.com/safar/sales-desk/internal/reports"
	"github.com/safar/sales-desk/internal/sales"
	"github.com/safar/sales-desk/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database")

	var cache *inventory.StockCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		cache = inventory.NewStockCache(rdb, cfg.Redis.StockTTL)
		logger.Info("stock cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var notifier sales.Notifier
	if cfg.AMQP.URL != "" {
		conn, publisher, err := notify.Connect(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Fatal("connect to broker", zap.Error(err))
		}
		defer conn.Close()
		notifier = publisher
		logger.Info("sale events enabled", zap.String("exchange", cfg.AMQP.Exchange))
	}

	engine := sales.NewEngine(db, logger, sales.EngineOptions{
		Policy:              sales.Policy{RejectNonPositiveLines: cfg.Sales.RejectNonPositiveLines},
		EnforceCatalogPrice: cfg.Sales.EnforceCatalogPrice,
		Cache:               cache,
		Notifier:            notifier,
	})
	reporter := reports.NewService(db)
	api := &apiServer{db: db, engine: engine, reporter: reporter, cache: cache, log: logger.Named("api")}

	mux := http.NewServeMux()
	mux.HandleFunc("/users", api.handleUsers)
	mux.HandleFunc("/users/", api.handleUserByID)
	mux.HandleFunc("/customers", api.handleCustomers)
	mux.HandleFunc("/customers/", api.handleCustomerByID)
	mux.HandleFunc("/products", api.handleProducts)
	mux.HandleFunc("/products/", api.handleProductByID)
	mux.HandleFunc("/sales", api.handleSales)
	mux.HandleFunc("/sales/", api.handleSaleByID)
	mux.HandleFunc("/dashboard", api.handleDashboard)
	mux.HandleFunc("/reports/products", api.handleProductReport)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}

type apiServer struct {
	db       *sql.DB
	engine   *sales.Engine
	reporter *reports.Service
	cache    *inventory.StockCache
	log      *zap.Logger
}

func (s *apiServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
			FullName string `json:"full_name"`
			Email    string `json:"email"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := store.CreateUser(ctx, s.db, req.Username, req.FullName, req.Email, req.Role)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, user)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *apiServer) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, _, ok := parsePath(r.URL.Path, "/users/")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := store.GetUser(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *apiServer) handleCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var req models.Customer
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		customer, err := store.CreateCustomer(ctx, s.db, req)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, customer)

	case http.MethodGet:
		page, pageSize := pageParams(r)
		result, err := store.ListCustomers(ctx, s.db, page, pageSize)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *apiServer) handleCustomerByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, rest, ok := parsePath(r.URL.Path, "/customers/")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid customer ID")
		return
	}

	if rest == "sales" {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		history, err := store.ListSalesByCustomer(ctx, s.db, id, 50)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, history)
		return
	}
	if rest != "" {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		customer, err := store.GetCustomer(ctx, s.db, id)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, customer)

	case http.MethodPut:
		var req models.Customer
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		customer, err := store.UpdateCustomer(ctx, s.db, id, req)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, customer)

	case http.MethodDelete:
		if err := store.DeleteCustomer(ctx, s.db, id); err != nil {
			s.respondStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *apiServer) handleProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Price       string `json:"price"`
			Stock       int    `json:"stock"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			respondError(w, http.StatusBadRequest, "Invalid price")
			return
		}
		if req.Stock < 0 {
			respondError(w, http.StatusBadRequest, "Invalid stock")
			return
		}

		product, err := store.CreateProduct(ctx, s.db, req.Name, req.Description, price, req.Stock)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, product)

	case http.MethodGet:
		if r.URL.Query().Get("available") == "true" {
			products, err := store.ListAvailableProducts(ctx, s.db)
			if err != nil {
				s.respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, products)
			return
		}

		page, pageSize := pageParams(r)
		result, err := store.ListProducts(ctx, s.db, page, pageSize)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *apiServer) handleProductByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, rest, ok := parsePath(r.URL.Path, "/products/")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	switch rest {
	case "restock":
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleRestock(w, r, id)
		return

	case "stock":
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleStock(w, r, id)
		return

	case "":
	default:
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := store.GetProduct(ctx, s.db, id)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, product)

	case http.MethodPut:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Price       string `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			respondError(w, http.StatusBadRequest, "Invalid price")
			return
		}
		product, err := store.UpdateProduct(ctx, s.db, id, req.Name, req.Description, price)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, product)

	case http.MethodDelete:
		if err := store.DeleteProduct(ctx, s.db, id); err != nil {
			s.respondStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *apiServer) handleRestock(w http.ResponseWriter, r *http.Request, productID int64) {
	ctx := r.Context()

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	if err := inventory.Restore(ctx, s.db, productID, req.Quantity); err != nil {
		s.respondStoreError(w, err)
		return
	}

	if s.cache != nil {
		if err := s.cache.Forget(ctx, productID); err != nil {
			s.log.Warn("stock cache invalidation failed", zap.Int64("product_id", productID), zap.Error(err))
		}
	}

	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// handleStock answers availability checks, read-through cached when Redis is
// configured.
func (s *apiServer) handleStock(w http.ResponseWriter, r *http.Request, productID int64) {
	ctx := r.Context()

	if s.cache != nil {
		stock, ok, err := s.cache.Get(ctx, productID)
		if err != nil {
			s.log.Warn("stock cache read failed", zap.Int64("product_id", productID), zap.Error(err))
		} else if ok {
			respondJSON(w, http.StatusOK, map[string]interface{}{"product_id": productID, "stock_quantity": stock})
			return
		}
	}

	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, productID, product.StockQuantity); err != nil {
			s.log.Warn("stock cache write failed", zap.Int64("product_id", productID), zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"product_id": productID, "stock_quantity": product.StockQuantity})
}

func (s *apiServer) handleSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var req sales.ProposedSale
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		sale, err := s.engine.SubmitSale(ctx, req)
		if err != nil {
			s.respondSaleError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, sale)

	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		result, err := store.ListSalesCursor(ctx, s.db, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			s.respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *apiServer) handleSaleByID(w http.ResponseWriter, r *http.Request) {
	id, rest, ok := parsePath(r.URL.Path, "/sales/")
	if !ok || rest != "" {
		respondError(w, http.StatusBadRequest, "Invalid sale ID")
		return
	}

	sale, err := store.GetSale(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sale)
}

func (s *apiServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reporter.Dashboard(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleProductReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.ProductSales(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func (s *apiServer) respondSaleError(w http.ResponseWriter, err error) {
	var short *inventory.InsufficientStockError
	var lineErr *sales.LineQuantityError
	var persistErr *sales.PersistenceError

	switch {
	case errors.Is(err, sales.ErrInvalidCustomer), errors.Is(err, sales.ErrEmptyOrder):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &lineErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &short):
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":      "insufficient stock",
			"product_id": short.ProductID,
			"requested":  short.Requested,
			"available":  short.Available,
		})
	case errors.As(err, &persistErr):
		respondError(w, http.StatusInternalServerError, "Sale could not be recorded, no changes were made")
	default:
		s.log.Error("unexpected sale error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

func (s *apiServer) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrSaleNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrCustomerHasSales),
		errors.Is(err, database.ErrProductHasSales):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

// parsePath splits "/prefix/{id}" or "/prefix/{id}/{rest}" and parses the id.
func parsePath(path, prefix string) (int64, string, bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	idPart, rest, _ := strings.Cut(trimmed, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 1 {
		return 0, "", false
	}
	return id, rest, true
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
