package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/models"
	"github.com/ibrahim-bhat/billflow_backend/models/reports"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/ibrahim-bhat/billflow_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

const defaultDeleteWindowDays = 3

// deleteWindowDays bounds how old a document may be (by creation time)
// and still be deletable over HTTP. 0 disables the guard.
func deleteWindowDays() int {
	v := strings.TrimSpace(os.Getenv("DELETE_WINDOW_DAYS"))
	if v == "" {
		return defaultDeleteWindowDays
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultDeleteWindowDays
	}
	return n
}

func withinDeleteWindow(createdAt time.Time) bool {
	days := deleteWindowDays()
	if days == 0 {
		return true
	}
	return time.Since(createdAt) <= time.Duration(days)*24*time.Hour
}

// respondError maps domain errors to HTTP statuses. Anything
// unclassified is logged in full and returned as a generic 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case utils.IsInsufficientStock(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"correlation_id": cid,
			"path":           c.FullPath(),
		}).Error(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type calcRowRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Rate     decimal.Decimal `json:"rate"`
}

type calcTotalsLine struct {
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Rate     decimal.Decimal `json:"rate"`
	// Amount carries the recorded sale amount when the caller has one;
	// positive values win over the computed quantity/weight price, the
	// same preference the settlement lines apply.
	Amount decimal.Decimal `json:"amount"`
}

type calcTotalsRequest struct {
	Lines []calcTotalsLine `json:"lines"`
}

// calcRowHandler mirrors the line amount rule the documents use, so a
// client can preview amounts while a form is being filled in.
func calcRowHandler(c *gin.Context) {
	var req calcRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": utils.Amount(req.Quantity, req.Weight, req.Rate)})
}

func calcTotalsHandler(c *gin.Context) {
	var req calcTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	lines := make([]utils.WeightedLine, 0, len(req.Lines))
	amounts := make([]decimal.Decimal, 0, len(req.Lines))
	for _, l := range req.Lines {
		amount := utils.Amount(l.Quantity, l.Weight, l.Rate)
		if l.Amount.IsPositive() {
			amount = l.Amount
		}
		lines = append(lines, utils.WeightedLine{Weight: l.Weight, Amount: amount})
		amounts = append(amounts, amount)
	}
	totalAmount, totalWeight := utils.WeightedTotals(lines)
	subtotal, total := utils.AmountTotals(amounts)
	c.JSON(http.StatusOK, gin.H{
		"total_amount": totalAmount,
		"total_weight": totalWeight,
		"subtotal":     subtotal,
		"total":        total,
	})
}

func registerVendorRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/vendors", func(c *gin.Context) {
		var input models.NewVendor
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vendor, err := models.CreateVendor(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, vendor)
	})
	r.GET("/vendors", func(c *gin.Context) {
		vendors, err := models.GetVendors(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, vendors)
	})
	r.GET("/vendors/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		vendor, err := models.GetVendor(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	})
}

func registerCustomerRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/customers", func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		customer, err := models.CreateCustomer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	})
	r.GET("/customers", func(c *gin.Context) {
		customers, err := models.GetCustomers(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, customers)
	})
	r.GET("/customers/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		customer, err := models.GetCustomer(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	})
}

func registerItemRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/items", func(c *gin.Context) {
		var input models.NewItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := models.CreateItem(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	})
	r.GET("/items", func(c *gin.Context) {
		items, err := models.GetItems(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		item, err := models.GetItem(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
}

func registerInventoryRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/inventory", func(c *gin.Context) {
		var input models.NewInventory
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inv, err := models.CreateInventory(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, inv)
	})
	r.GET("/inventory", func(c *gin.Context) {
		invs, err := models.GetInventories(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, invs)
	})
	r.GET("/inventory/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		inv, err := models.GetInventory(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, inv)
	})
	r.POST("/inventory/sweep", func(c *gin.Context) {
		result, err := workflow.RunInventorySweep(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerWatakRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/wataks", func(c *gin.Context) {
		var input models.NewVendorWatak
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		watak, err := models.CreateVendorWatak(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, watak)
	})
	r.GET("/wataks", func(c *gin.Context) {
		wataks, err := models.GetVendorWataks(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, wataks)
	})
	r.GET("/wataks/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		watak, err := models.GetVendorWatak(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, watak)
	})
	r.PUT("/wataks/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewVendorWatak
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		watak, err := models.UpdateVendorWatak(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, watak)
	})
	r.DELETE("/wataks/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		existing, err := models.GetVendorWatak(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if !withinDeleteWindow(existing.CreatedAt) {
			c.JSON(http.StatusForbidden, gin.H{"error": "delete window has passed for this watak"})
			return
		}
		watak, err := models.DeleteVendorWatak(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, watak)
	})
}

func registerVendorInvoiceRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/vendor-invoices", func(c *gin.Context) {
		var input models.NewVendorInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invoice, err := models.CreateVendorInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	})
	r.GET("/vendor-invoices", func(c *gin.Context) {
		invoices, err := models.GetVendorInvoices(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
	})
	r.GET("/vendor-invoices/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.GetVendorInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	})
	r.PUT("/vendor-invoices/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewVendorInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invoice, err := models.UpdateVendorInvoice(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	})
	r.DELETE("/vendor-invoices/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		existing, err := models.GetVendorInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if !withinDeleteWindow(existing.CreatedAt) {
			c.JSON(http.StatusForbidden, gin.H{"error": "delete window has passed for this invoice"})
			return
		}
		invoice, err := models.DeleteVendorInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	})
}

func registerCustomerInvoiceRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/customer-invoices", func(c *gin.Context) {
		var input models.NewCustomerInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invoice, notes, err := models.CreateCustomerInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"invoice": invoice, "notes": notes})
	})
	r.GET("/customer-invoices", func(c *gin.Context) {
		invoices, err := models.GetCustomerInvoices(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
	})
	r.GET("/customer-invoices/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.GetCustomerInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	})
	r.PUT("/customer-invoices/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewCustomerInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invoice, notes, err := models.UpdateCustomerInvoice(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoice": invoice, "notes": notes})
	})
	r.DELETE("/customer-invoices/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		existing, err := models.GetCustomerInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if !withinDeleteWindow(existing.CreatedAt) {
			c.JSON(http.StatusForbidden, gin.H{"error": "delete window has passed for this invoice"})
			return
		}
		invoice, notes, err := models.DeleteCustomerInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoice": invoice, "notes": notes})
	})
}

func registerPaymentRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/vendor-payments", func(c *gin.Context) {
		var input models.NewVendorPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payment, err := models.CreateVendorPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	})
	r.DELETE("/vendor-payments/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		payment, err := models.DeleteVendorPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	})
	r.POST("/customer-payments", func(c *gin.Context) {
		var input models.NewCustomerPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payment, err := models.CreateCustomerPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	})
	r.DELETE("/customer-payments/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		payment, err := models.DeleteCustomerPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	})
}

func registerReportRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.GET("/reports/stock-summary", func(c *gin.Context) {
		var vendorId *int
		if v := c.Query("vendor_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor_id"})
				return
			}
			vendorId = &id
		}
		rows, err := reports.GetStockSummaryReport(c.Request.Context(), vendorId)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if c.Query("format") == "xlsx" {
			c.Header("Content-Type", reports.ExcelContentType())
			c.Header("Content-Disposition", "attachment; filename="+reports.ExcelFilename("stock-summary", time.Now().Format("2006-01-02")))
			if err := reports.ExportStockSummaryExcel(c.Writer, rows); err != nil {
				respondError(c, logger, err)
			}
			return
		}
		c.JSON(http.StatusOK, rows)
	})
	r.GET("/reports/vendor-balances", func(c *gin.Context) {
		rows, err := reports.GetVendorBalanceReport(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if c.Query("format") == "xlsx" {
			c.Header("Content-Type", reports.ExcelContentType())
			c.Header("Content-Disposition", "attachment; filename="+reports.ExcelFilename("vendor-balances", time.Now().Format("2006-01-02")))
			if err := reports.ExportVendorBalancesExcel(c.Writer, rows); err != nil {
				respondError(c, logger, err)
			}
			return
		}
		c.JSON(http.StatusOK, rows)
	})
	r.GET("/reports/customer-balances", func(c *gin.Context) {
		rows, err := reports.GetCustomerBalanceReport(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if c.Query("format") == "xlsx" {
			c.Header("Content-Type", reports.ExcelContentType())
			c.Header("Content-Disposition", "attachment; filename="+reports.ExcelFilename("customer-balances", time.Now().Format("2006-01-02")))
			if err := reports.ExportCustomerBalancesExcel(c.Writer, rows); err != nil {
				respondError(c, logger, err)
			}
			return
		}
		c.JSON(http.StatusOK, rows)
	})
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Every request carries a correlation id; callers may supply one.
	r.Use(func(c *gin.Context) {
		correlationId := c.GetHeader("x-correlation-id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		if actor := c.GetHeader("x-actor"); actor != "" {
			ctx = utils.SetActorInContext(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("x-correlation-id", correlationId)
		c.Next()
	})

	// The port opens before the database is up; return 503 until the
	// dependencies finish connecting.
	var ready atomic.Bool
	r.Use(func(c *gin.Context) {
		if c.FullPath() == "/healthz" {
			c.Next()
			return
		}
		if !ready.Load() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "starting up"})
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": ready.Load()})
	})

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "x-correlation-id", "x-actor")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/calc/row", calcRowHandler)
	r.POST("/calc/totals", calcTotalsHandler)
	registerVendorRoutes(r, logger)
	registerCustomerRoutes(r, logger)
	registerItemRoutes(r, logger)
	registerInventoryRoutes(r, logger)
	registerWatakRoutes(r, logger)
	registerVendorInvoiceRoutes(r, logger)
	registerCustomerInvoiceRoutes(r, logger)
	registerPaymentRoutes(r, logger)
	registerReportRoutes(r, logger)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (startup probes are TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Balance and stock updates rely on READ COMMITTED row semantics.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	ready.Store(true)
	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
