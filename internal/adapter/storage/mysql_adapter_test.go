package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/trannm/order-reservation/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/orders?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ensureSchema(t, db)
	return db
}

func ensureSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price BIGINT NOT NULL,
			stock INT NOT NULL DEFAULT 0,
			active TINYINT(1) NOT NULL DEFAULT 1,
			version INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			order_number VARCHAR(32) NOT NULL,
			customer_id VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL,
			total_amount BIGINT NOT NULL,
			version INT NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE KEY uq_orders_order_number (order_number)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id VARCHAR(64) NOT NULL,
			product_id VARCHAR(64) NOT NULL,
			quantity INT NOT NULL,
			unit_price BIGINT NOT NULL,
			subtotal BIGINT NOT NULL,
			KEY idx_order_items_order (order_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}
}

func seedProduct(t *testing.T, db *sql.DB, id string, price int64, stock int, active bool) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO products (id, name, price, stock, active, version)
		VALUES (?, ?, ?, ?, ?, 0)
		ON DUPLICATE KEY UPDATE price = VALUES(price), stock = VALUES(stock), active = VALUES(active), version = 0`,
		id, id, price, stock, active,
	)
	if err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
}

func productStock(t *testing.T, db *sql.DB, id string) int {
	t.Helper()
	var stock int
	if err := db.QueryRow(`SELECT stock FROM products WHERE id = ?`, id).Scan(&stock); err != nil {
		t.Fatalf("read stock failed: %v", err)
	}
	return stock
}

func testOrder(productID string, quantity int) *domain.Order {
	now := time.Now().Truncate(time.Second)
	return &domain.Order{
		ID:          "test-order-" + uuid.NewString(),
		OrderNumber: "TST-" + uuid.NewString()[:12],
		CustomerID:  "test-customer",
		Status:      domain.OrderStatusPending,
		TotalAmount: int64(quantity) * 100,
		Items: []domain.OrderItem{
			{ProductID: productID, Quantity: quantity, UnitPrice: 100, Subtotal: int64(quantity) * 100},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestReserveStock_Success(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedProduct(t, db, "test-reserve", 100, 10, true)

	rows, err := adapter.ReserveStock(ctx, "test-reserve", 3)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected 1 row affected, got %d", rows)
	}
	if got := productStock(t, db, "test-reserve"); got != 7 {
		t.Errorf("expected stock 7, got %d", got)
	}
}

func TestReserveStock_Insufficient(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedProduct(t, db, "test-empty", 100, 2, true)

	rows, err := adapter.ReserveStock(ctx, "test-empty", 5)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected 0 rows affected, got %d", rows)
	}
	if got := productStock(t, db, "test-empty"); got != 2 {
		t.Errorf("expected stock unchanged at 2, got %d", got)
	}
}

func TestReserveStock_InactiveProduct(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedProduct(t, db, "test-inactive", 100, 10, false)

	rows, err := adapter.ReserveStock(ctx, "test-inactive", 1)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if rows != 0 {
		t.Errorf("inactive product must not be reservable, got %d rows", rows)
	}
}

func TestReserveStock_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	initialStock := 20
	totalRequests := 50
	seedProduct(t, db, "test-concurrent", 100, initialStock, true)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := adapter.ReserveStock(ctx, "test-concurrent", 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if rows == 1 {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if got := productStock(t, db, "test-concurrent"); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}

func TestRestoreStock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedProduct(t, db, "test-restore", 100, 5, true)

	if err := adapter.RestoreStock(ctx, "test-restore", 3); err != nil {
		t.Fatalf("RestoreStock failed: %v", err)
	}
	if got := productStock(t, db, "test-restore"); got != 8 {
		t.Errorf("expected stock 8, got %d", got)
	}
}

func TestRestoreStock_MissingProduct(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	err := NewMySQLAdapter(db).RestoreStock(context.Background(), "no-such-product", 1)

	var notFound *domain.ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected ProductNotFoundError, got %v", err)
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedProduct(t, db, "test-item", 100, 10, true)

	order := testOrder("test-item", 2)
	if err := adapter.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer func() {
		db.Exec(`DELETE FROM order_items WHERE order_id = ?`, order.ID)
		db.Exec(`DELETE FROM orders WHERE id = ?`, order.ID)
	}()

	got, err := adapter.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("order not found after create")
	}
	if got.OrderNumber != order.OrderNumber || got.Status != domain.OrderStatusPending {
		t.Errorf("unexpected order: %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", got.Items)
	}
}

func TestGetByID_Missing(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	got, err := NewMySQLAdapter(db).GetByID(context.Background(), "no-such-order")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing order, got %+v", got)
	}
}

func TestCreate_DuplicateOrderNumber(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	first := testOrder("test-item", 1)
	if err := adapter.Create(ctx, first); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	defer func() {
		db.Exec(`DELETE FROM order_items WHERE order_id = ?`, first.ID)
		db.Exec(`DELETE FROM orders WHERE id = ?`, first.ID)
	}()

	second := testOrder("test-item", 1)
	second.OrderNumber = first.OrderNumber

	err := adapter.Create(ctx, second)
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict on duplicate order number, got %v", err)
	}
}

func TestUpdateStatus_VersionConflict(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	order := testOrder("test-item", 1)
	if err := adapter.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer func() {
		db.Exec(`DELETE FROM order_items WHERE order_id = ?`, order.ID)
		db.Exec(`DELETE FROM orders WHERE id = ?`, order.ID)
	}()

	order.Status = domain.OrderStatusConfirmed
	if err := adapter.UpdateStatus(ctx, order); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if order.Version != 2 {
		t.Errorf("expected version bumped to 2, got %d", order.Version)
	}

	// A stale copy must be rejected.
	stale := *order
	stale.Version = 1
	stale.Status = domain.OrderStatusCancelled
	if err := adapter.UpdateStatus(ctx, &stale); !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict for stale version, got %v", err)
	}
}
