package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/models"
	"github.com/ibrahim-bhat/billflow_backend/models/reports"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/ibrahim-bhat/billflow_backend/workflow"
	"github.com/shopspring/decimal"
)

// End-to-end stock and balance behavior against real MySQL and Redis.
// Set INTEGRATION_TESTS=1 to run (requires docker).

func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "billflow_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := utils.SetCorrelationIdInContext(context.Background(), "test")
	ctx = utils.SetActorInContext(ctx, "test")
	return ctx
}

type fixture struct {
	vendor    *models.Vendor
	customer  *models.Customer
	item      *models.Item
	inventory *models.Inventory
}

// seedStock creates a vendor, customer, item and one inventory batch
// holding the given quantity of the item.
func seedStock(t *testing.T, ctx context.Context, qty string) fixture {
	t.Helper()

	vendor, err := models.CreateVendor(ctx, &models.NewVendor{
		Name:           fmt.Sprintf("Vendor %d", time.Now().UnixNano()),
		Type:           models.VendorTypeLocal,
		VendorCategory: models.VendorCategoryCommission,
	})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{
		Name: fmt.Sprintf("Customer %d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	item, err := models.CreateItem(ctx, &models.NewItem{
		Name: fmt.Sprintf("Apple %d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	inventory, err := models.CreateInventory(ctx, &models.NewInventory{
		VendorId:     vendor.ID,
		DateReceived: time.Now(),
		Items: []models.NewInventoryItem{
			{ItemId: item.ID, QuantityReceived: mustDec(t, qty)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInventory: %v", err)
	}
	return fixture{vendor: vendor, customer: customer, item: item, inventory: inventory}
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func remainingStock(t *testing.T, inventoryItemId int) decimal.Decimal {
	t.Helper()
	var line models.InventoryItem
	if err := config.GetDB().First(&line, inventoryItemId).Error; err != nil {
		t.Fatalf("fetch inventory line %d: %v", inventoryItemId, err)
	}
	return line.RemainingStock
}

func customerBalance(t *testing.T, ctx context.Context, id int) decimal.Decimal {
	t.Helper()
	c, err := models.GetCustomer(ctx, id)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	return c.Balance
}

func vendorBalance(t *testing.T, ctx context.Context, id int) decimal.Decimal {
	t.Helper()
	v, err := models.GetVendor(ctx, id)
	if err != nil {
		t.Fatalf("GetVendor: %v", err)
	}
	return v.Balance
}

func TestCustomerInvoiceStockAndBalanceLifecycle(t *testing.T) {
	ctx := setupIntegration(t)
	fx := seedStock(t, ctx, "25")
	line := fx.inventory.Items[0]

	// Create: sell 10 of 25.
	invoice, notes, err := models.CreateCustomerInvoice(ctx, &models.NewCustomerInvoice{
		CustomerId: fx.customer.ID,
		Date:       time.Now(),
		Items: []models.NewCustomerInvoiceItem{
			{ItemId: fx.item.ID, VendorId: fx.vendor.ID, InventoryItemId: line.ID,
				Quantity: mustDec(t, "10"), Rate: mustDec(t, "5")},
		},
	})
	if err != nil {
		t.Fatalf("CreateCustomerInvoice: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("unexpected notes on create: %v", notes)
	}
	if got := remainingStock(t, line.ID); !got.Equal(mustDec(t, "15")) {
		t.Fatalf("remaining after create = %s, want 15", got)
	}
	if got := customerBalance(t, ctx, fx.customer.ID); !got.Equal(mustDec(t, "50")) {
		t.Fatalf("customer balance after create = %s, want 50", got)
	}

	// Edit: remaining must end at 25 - 8, independent of the old quantity.
	_, notes, err = models.UpdateCustomerInvoice(ctx, invoice.ID, &models.NewCustomerInvoice{
		CustomerId: fx.customer.ID,
		Date:       time.Now(),
		Items: []models.NewCustomerInvoiceItem{
			{ItemId: fx.item.ID, VendorId: fx.vendor.ID, InventoryItemId: line.ID,
				Quantity: mustDec(t, "8"), Rate: mustDec(t, "5")},
		},
	})
	if err != nil {
		t.Fatalf("UpdateCustomerInvoice: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("unexpected notes on edit: %v", notes)
	}
	if got := remainingStock(t, line.ID); !got.Equal(mustDec(t, "17")) {
		t.Fatalf("remaining after edit = %s, want 17", got)
	}
	if got := customerBalance(t, ctx, fx.customer.ID); !got.Equal(mustDec(t, "40")) {
		t.Fatalf("customer balance after edit = %s, want 40", got)
	}

	// Delete: exact inverse, stock and balance return to pre-create values.
	_, _, err = models.DeleteCustomerInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("DeleteCustomerInvoice: %v", err)
	}
	if got := remainingStock(t, line.ID); !got.Equal(mustDec(t, "25")) {
		t.Fatalf("remaining after delete = %s, want 25", got)
	}
	if got := customerBalance(t, ctx, fx.customer.ID); !got.IsZero() {
		t.Fatalf("customer balance after delete = %s, want 0", got)
	}
}

func TestCustomerInvoiceInsufficientStock(t *testing.T) {
	ctx := setupIntegration(t)
	fx := seedStock(t, ctx, "5")
	line := fx.inventory.Items[0]

	_, _, err := models.CreateCustomerInvoice(ctx, &models.NewCustomerInvoice{
		CustomerId: fx.customer.ID,
		Date:       time.Now(),
		Items: []models.NewCustomerInvoiceItem{
			{ItemId: fx.item.ID, InventoryItemId: line.ID,
				Quantity: mustDec(t, "6"), Rate: mustDec(t, "5")},
		},
	})
	if !utils.IsInsufficientStock(err) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	// Nothing persisted, nothing depleted.
	if got := remainingStock(t, line.ID); !got.Equal(mustDec(t, "5")) {
		t.Fatalf("remaining = %s, want 5", got)
	}
	if got := customerBalance(t, ctx, fx.customer.ID); !got.IsZero() {
		t.Fatalf("customer balance = %s, want 0", got)
	}
}

func TestConcurrentOversell(t *testing.T) {
	ctx := setupIntegration(t)
	fx := seedStock(t, ctx, "5")
	line := fx.inventory.Items[0]

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = models.CreateCustomerInvoice(ctx, &models.NewCustomerInvoice{
				CustomerId: fx.customer.ID,
				Date:       time.Now(),
				Items: []models.NewCustomerInvoiceItem{
					{ItemId: fx.item.ID, InventoryItemId: line.ID,
						Quantity: mustDec(t, "4"), Rate: mustDec(t, "5")},
				},
			})
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case utils.IsInsufficientStock(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("got %d successes and %d conflicts, want exactly 1 and 1", successes, conflicts)
	}
	if got := remainingStock(t, line.ID); !got.Equal(mustDec(t, "1")) {
		t.Fatalf("remaining = %s, want 1", got)
	}
}

func TestDeletedInventoryTolerance(t *testing.T) {
	ctx := setupIntegration(t)
	fx := seedStock(t, ctx, "10")
	line := fx.inventory.Items[0]

	invoice, _, err := models.CreateCustomerInvoice(ctx, &models.NewCustomerInvoice{
		CustomerId: fx.customer.ID,
		Date:       time.Now(),
		Items: []models.NewCustomerInvoiceItem{
			{ItemId: fx.item.ID, InventoryItemId: line.ID,
				Quantity: mustDec(t, "10"), Rate: mustDec(t, "4")},
		},
	})
	if err != nil {
		t.Fatalf("CreateCustomerInvoice: %v", err)
	}

	// Simulate the sweep removing the fully consumed line out-of-band.
	db := config.GetDB()
	if err := db.Exec("DELETE FROM inventory_items WHERE id = ?", line.ID).Error; err != nil {
		t.Fatalf("hard-delete inventory line: %v", err)
	}
	if err := db.Exec("DELETE FROM inventory WHERE id = ?", fx.inventory.ID).Error; err != nil {
		t.Fatalf("hard-delete inventory batch: %v", err)
	}

	// Delete must still complete, skip the stock restore, and report it.
	_, notes, err := models.DeleteCustomerInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("DeleteCustomerInvoice after sweep: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("notes = %v, want exactly one skipped-restoration note", notes)
	}
	if got := customerBalance(t, ctx, fx.customer.ID); !got.IsZero() {
		t.Fatalf("customer balance = %s, want 0", got)
	}
	if _, err := models.GetCustomerInvoice(ctx, invoice.ID); err == nil {
		t.Fatal("invoice still exists after delete")
	}
}

func TestReleaseClampsAtQuantityReceived(t *testing.T) {
	ctx := setupIntegration(t)
	fx := seedStock(t, ctx, "10")
	line := fx.inventory.Items[0]

	invoice, _, err := models.CreateCustomerInvoice(ctx, &models.NewCustomerInvoice{
		CustomerId: fx.customer.ID,
		Date:       time.Now(),
		Items: []models.NewCustomerInvoiceItem{
			{ItemId: fx.item.ID, InventoryItemId: line.ID,
				Quantity: mustDec(t, "4"), Rate: mustDec(t, "5")},
		},
	})
	if err != nil {
		t.Fatalf("CreateCustomerInvoice: %v", err)
	}

	// Someone manually tops the line back up; the delete's release must
	// not push remaining stock past what was received.
	db := config.GetDB()
	if err := db.Exec("UPDATE inventory_items SET remaining_stock = 9 WHERE id = ?", line.ID).Error; err != nil {
		t.Fatalf("top up line: %v", err)
	}
	if _, _, err := models.DeleteCustomerInvoice(ctx, invoice.ID); err != nil {
		t.Fatalf("DeleteCustomerInvoice: %v", err)
	}
	if got := remainingStock(t, line.ID); !got.Equal(mustDec(t, "10")) {
		t.Fatalf("remaining = %s, want clamped 10", got)
	}
}

func TestWatakSettlementBalanceAndSweep(t *testing.T) {
	ctx := setupIntegration(t)
	fx := seedStock(t, ctx, "10")
	line := fx.inventory.Items[0]

	// Local vendor: 10% commission, labor rate 1.
	// Raw total 50, commission 5, labor 10, proceeds 50, net 35.
	watak, err := models.CreateVendorWatak(ctx, &models.NewVendorWatak{
		VendorId:      fx.vendor.ID,
		Date:          time.Now(),
		InventoryDate: fx.inventory.DateReceived,
		Items: []models.NewWatakItem{
			{Name: fx.item.Name, Quantity: mustDec(t, "10"), Rate: mustDec(t, "5"),
				InventoryItemId: line.ID},
		},
	})
	if err != nil {
		t.Fatalf("CreateVendorWatak: %v", err)
	}
	if !watak.NetPayable.Equal(mustDec(t, "35")) {
		t.Fatalf("net payable = %s, want 35", watak.NetPayable)
	}
	if got := vendorBalance(t, ctx, fx.vendor.ID); !got.Equal(mustDec(t, "35")) {
		t.Fatalf("vendor balance = %s, want 35", got)
	}
	if !strings.HasPrefix(watak.WatakNumber, "WTK-") {
		t.Fatalf("watak number = %q, want WTK- prefix", watak.WatakNumber)
	}

	// Consume the whole line, then sweep.
	_, _, err = models.CreateCustomerInvoice(ctx, &models.NewCustomerInvoice{
		CustomerId: fx.customer.ID,
		Date:       time.Now(),
		Items: []models.NewCustomerInvoiceItem{
			{ItemId: fx.item.ID, InventoryItemId: line.ID,
				Quantity: mustDec(t, "10"), Rate: mustDec(t, "6")},
		},
	})
	if err != nil {
		t.Fatalf("CreateCustomerInvoice: %v", err)
	}

	result, err := workflow.RunInventorySweep(ctx)
	if err != nil {
		t.Fatalf("RunInventorySweep: %v", err)
	}
	if result.LinesRemoved != 1 {
		t.Fatalf("lines removed = %d, want 1", result.LinesRemoved)
	}
	if result.BatchesRemoved != 1 {
		t.Fatalf("batches removed = %d, want 1", result.BatchesRemoved)
	}

	db := config.GetDB()
	var count int64
	if err := db.Model(&models.InventoryItem{}).Where("id = ?", line.ID).Count(&count).Error; err != nil {
		t.Fatalf("count inventory line: %v", err)
	}
	if count != 0 {
		t.Fatal("swept inventory line still present")
	}
}

func TestVendorPaymentReducesBalance(t *testing.T) {
	ctx := setupIntegration(t)
	fx := seedStock(t, ctx, "10")

	if _, err := models.CreateVendorWatak(ctx, &models.NewVendorWatak{
		VendorId:      fx.vendor.ID,
		Date:          time.Now(),
		InventoryDate: fx.inventory.DateReceived,
		Items: []models.NewWatakItem{
			{Name: fx.item.Name, Quantity: mustDec(t, "10"), Rate: mustDec(t, "5")},
		},
	}); err != nil {
		t.Fatalf("CreateVendorWatak: %v", err)
	}

	payment, err := models.CreateVendorPayment(ctx, &models.NewVendorPayment{
		VendorId: fx.vendor.ID,
		Date:     time.Now(),
		Amount:   mustDec(t, "30"),
		Discount: mustDec(t, "5"),
	})
	if err != nil {
		t.Fatalf("CreateVendorPayment: %v", err)
	}
	if got := vendorBalance(t, ctx, fx.vendor.ID); !got.IsZero() {
		t.Fatalf("vendor balance = %s, want 0 after payment and discount", got)
	}

	if _, err := models.DeleteVendorPayment(ctx, payment.ID); err != nil {
		t.Fatalf("DeleteVendorPayment: %v", err)
	}
	if got := vendorBalance(t, ctx, fx.vendor.ID); !got.Equal(mustDec(t, "35")) {
		t.Fatalf("vendor balance = %s, want 35 after payment delete", got)
	}
}

// ghostRecord has no backing table; fetching it must surface the storage
// error as-is instead of a not-found.
type ghostRecord struct {
	ID int
}

func TestFetchModelErrorTaxonomy(t *testing.T) {
	ctx := setupIntegration(t)

	_, err := utils.FetchModel[models.Vendor](ctx, 999999999)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("missing vendor: got %v, want ErrorRecordNotFound", err)
	}

	_, err = utils.FetchModel[ghostRecord](ctx, 1)
	if err == nil {
		t.Fatal("fetch from missing table succeeded")
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("missing table reported as not-found: %v", err)
	}
}

func TestStockSummaryCacheSetAndSweepInvalidation(t *testing.T) {
	ctx := setupIntegration(t)
	t.Setenv("ENABLE_REPORT_CACHE", "true")
	fx := seedStock(t, ctx, "10")
	line := fx.inventory.Items[0]

	rows, err := reports.GetStockSummaryReport(ctx, nil)
	if err != nil {
		t.Fatalf("GetStockSummaryReport: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("stock summary returned no rows")
	}
	var cached []*reports.StockSummaryRow
	found, err := config.GetRedisObject("report:stock_summary", &cached)
	if err != nil {
		t.Fatalf("read cached summary: %v", err)
	}
	if !found {
		t.Fatal("stock summary was not cached after report run")
	}

	if _, err := models.CreateVendorWatak(ctx, &models.NewVendorWatak{
		VendorId:      fx.vendor.ID,
		Date:          time.Now(),
		InventoryDate: fx.inventory.DateReceived,
		Items: []models.NewWatakItem{
			{Name: fx.item.Name, Quantity: mustDec(t, "10"), Rate: mustDec(t, "5"),
				InventoryItemId: line.ID},
		},
	}); err != nil {
		t.Fatalf("CreateVendorWatak: %v", err)
	}
	if _, _, err := models.CreateCustomerInvoice(ctx, &models.NewCustomerInvoice{
		CustomerId: fx.customer.ID,
		Date:       time.Now(),
		Items: []models.NewCustomerInvoiceItem{
			{ItemId: fx.item.ID, InventoryItemId: line.ID,
				Quantity: mustDec(t, "10"), Rate: mustDec(t, "6")},
		},
	}); err != nil {
		t.Fatalf("CreateCustomerInvoice: %v", err)
	}

	result, err := workflow.RunInventorySweep(ctx)
	if err != nil {
		t.Fatalf("RunInventorySweep: %v", err)
	}
	if result.LinesRemoved == 0 {
		t.Fatal("sweep removed no lines")
	}

	found, err = config.GetRedisObject("report:stock_summary", &cached)
	if err != nil {
		t.Fatalf("read cached summary after sweep: %v", err)
	}
	if found {
		t.Fatal("stock summary cache survived the sweep")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("billflow-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("billflow-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=billflow_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
