package excelimport_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/puretradeops/logistics_backend/config"
	"bitbucket.org/puretradeops/logistics_backend/excelimport"
	"bitbucket.org/puretradeops/logistics_backend/models"
	"bitbucket.org/puretradeops/logistics_backend/utils"
)

func TestExecuteCreateThenRerunIsIdempotent(t *testing.T) {
	setupImportDB(t)
	ctx := context.Background()

	rows := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "batch": "1", "Client": "Acme", "Qty": "100"},
		{"Order number": "1002", "Client": "Beta", "ETA": "15/01/2026"},
	})

	first, err := excelimport.Execute(ctx, rows, models.ImportModeUpdateOrCreate)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.Created != 2 || first.Updated != 0 || len(first.Errors) != 0 {
		t.Fatalf("first run: created=%d updated=%d errors=%d; want 2/0/0", first.Created, first.Updated, len(first.Errors))
	}

	second, err := excelimport.Execute(ctx, rows, models.ImportModeUpdateOrCreate)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if second.Created != 0 || second.Updated != 2 {
		t.Fatalf("second run: created=%d updated=%d; want 0/2", second.Created, second.Updated)
	}

	var count int64
	if err := config.GetDB().Model(&models.Shipment{}).Count(&count).Error; err != nil {
		t.Fatalf("count shipments: %v", err)
	}
	if count != 2 {
		t.Fatalf("shipments = %d; want 2 after rerun", count)
	}
}

func TestExecuteCreateOnlySkipsExisting(t *testing.T) {
	setupImportDB(t)
	ctx := context.Background()

	seed := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": "Acme"},
	})
	if _, err := excelimport.Execute(ctx, seed, models.ImportModeUpdateOrCreate); err != nil {
		t.Fatalf("seed Execute: %v", err)
	}

	rows := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": "Acme Renamed"},
		{"Order number": "2002", "Client": "Beta"},
	})
	outcome, err := excelimport.Execute(ctx, rows, models.ImportModeCreateOnly)
	if err != nil {
		t.Fatalf("Execute create_only: %v", err)
	}
	if outcome.Created != 1 || outcome.Updated != 0 || outcome.Skipped != 1 {
		t.Fatalf("created=%d updated=%d skipped=%d; want 1/0/1", outcome.Created, outcome.Updated, outcome.Skipped)
	}

	stored, err := models.GetShipmentByReference(ctx, "1001")
	if err != nil {
		t.Fatalf("GetShipmentByReference: %v", err)
	}
	if stored.Customer != "Acme" {
		t.Fatalf("customer = %q; create_only must not touch existing rows", stored.Customer)
	}
}

func TestExecuteSelfReconciliationWithinBatch(t *testing.T) {
	setupImportDB(t)
	ctx := context.Background()

	// Same natural key twice in one file: the second row must update the
	// shipment created by the first, not collide on the unique index.
	rows := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "batch": "1", "Client": "Acme", "Qty": "100"},
		{"Order number": "1001", "batch": "1.0", "Qty": "150"},
	})
	outcome, err := excelimport.Execute(ctx, rows, models.ImportModeUpdateOrCreate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Created != 1 || outcome.Updated != 1 || len(outcome.Errors) != 0 {
		t.Fatalf("created=%d updated=%d errors=%v; want 1 create + 1 update", outcome.Created, outcome.Updated, outcome.Errors)
	}

	stored, err := models.GetShipmentByReference(ctx, "1001-1")
	if err != nil {
		t.Fatalf("GetShipmentByReference: %v", err)
	}
	if stored.Quantity != 150 {
		t.Fatalf("quantity = %d; want the later row to win", stored.Quantity)
	}
	if stored.Customer != "Acme" {
		t.Fatalf("customer = %q; second row had no Client cell and must not blank it", stored.Customer)
	}
}

func TestExecuteBlankCellsPreserveStoredValues(t *testing.T) {
	setupImportDB(t)
	ctx := context.Background()

	seed := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": "Acme", "ETA": "15/01/2026", "Qty": "100"},
	})
	if _, err := excelimport.Execute(ctx, seed, models.ImportModeUpdateOrCreate); err != nil {
		t.Fatalf("seed Execute: %v", err)
	}

	update := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": "", "ETA": "#N/A", "Qty": "120"},
	})
	if _, err := excelimport.Execute(ctx, update, models.ImportModeUpdateOrCreate); err != nil {
		t.Fatalf("update Execute: %v", err)
	}

	stored, err := models.GetShipmentByReference(ctx, "1001")
	if err != nil {
		t.Fatalf("GetShipmentByReference: %v", err)
	}
	if stored.Customer != "Acme" {
		t.Fatalf("customer = %q; blank cell overwrote stored value", stored.Customer)
	}
	if stored.PlannedEta == nil {
		t.Fatal("planned_eta cleared by #N/A cell")
	}
	if stored.Quantity != 120 {
		t.Fatalf("quantity = %d; want 120 from update row", stored.Quantity)
	}
}

func TestExecuteTransitTransitionAlerts(t *testing.T) {
	setupImportDB(t)
	ctx := context.Background()
	db := config.GetDB()

	pastEta := time.Now().AddDate(0, 0, -10).Format("02/01/2006")
	seed := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": "Acme", "ETA": pastEta},
	})
	if _, err := excelimport.Execute(ctx, seed, models.ImportModeUpdateOrCreate); err != nil {
		t.Fatalf("seed Execute: %v", err)
	}
	shipment, err := models.GetShipmentByReference(ctx, "1001")
	if err != nil {
		t.Fatalf("GetShipmentByReference: %v", err)
	}

	// A loading alert raised before departure must be retired on transit.
	loading := &models.Alert{
		Type:       models.AlertTypeLateLoading,
		Severity:   models.AlertSeverityMedium,
		Message:    "loading behind schedule",
		ShipmentId: &shipment.ID,
		Active:     utils.NewTrue(),
	}
	if err := models.CreateAlert(db, loading); err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}

	transit := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Départ": "ON BOARD 12/03"},
	})
	if _, err := excelimport.Execute(ctx, transit, models.ImportModeUpdateOrCreate); err != nil {
		t.Fatalf("transit Execute: %v", err)
	}

	stored, err := models.GetShipmentByReference(ctx, "1001")
	if err != nil {
		t.Fatalf("GetShipmentByReference: %v", err)
	}
	if stored.Status != models.ShipmentStatusTransitOcean {
		t.Fatalf("status = %s; want TRANSIT_OCEAN", stored.Status)
	}

	var refreshed models.Alert
	if err := db.First(&refreshed, loading.ID).Error; err != nil {
		t.Fatalf("reload loading alert: %v", err)
	}
	if refreshed.Active == nil || *refreshed.Active {
		t.Fatal("loading alert still active after transit")
	}

	var delays []*models.Alert
	if err := db.Where("shipment_id = ? AND type = ?", shipment.ID, models.AlertTypeDelay).Find(&delays).Error; err != nil {
		t.Fatalf("load delay alerts: %v", err)
	}
	if len(delays) != 1 {
		t.Fatalf("delay alerts = %d; want exactly 1 for overdue ETA", len(delays))
	}
	if delays[0].Severity != models.AlertSeverityHigh {
		t.Fatalf("delay severity = %s; want HIGH", delays[0].Severity)
	}
	if delays[0].Active == nil || !*delays[0].Active {
		t.Fatal("delay alert not active")
	}

	// Re-importing the same transit row is not a transition; no second alert.
	if _, err := excelimport.Execute(ctx, transit, models.ImportModeUpdateOrCreate); err != nil {
		t.Fatalf("repeat transit Execute: %v", err)
	}
	if err := db.Where("shipment_id = ? AND type = ?", shipment.ID, models.AlertTypeDelay).Find(&delays).Error; err != nil {
		t.Fatalf("reload delay alerts: %v", err)
	}
	if len(delays) != 1 {
		t.Fatalf("delay alerts = %d after repeat import; want still 1", len(delays))
	}
}

func TestExecuteRowFailureDoesNotPoisonBatch(t *testing.T) {
	setupImportDB(t)
	ctx := context.Background()

	var input []map[string]string
	for i := 1; i <= 10; i++ {
		order := fmt.Sprintf("ORD-%03d", i)
		if i == 5 {
			// Overflows the reference column; MySQL rejects the row inside
			// its own savepoint.
			order = strings.Repeat("X", 150)
		}
		input = append(input, map[string]string{"Order number": order, "Client": "Acme"})
	}

	outcome, err := excelimport.Execute(ctx, excelimport.ParseRows(input), models.ImportModeUpdateOrCreate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(outcome.Errors) != 1 {
		t.Fatalf("errors = %v; want exactly the oversized row", outcome.Errors)
	}
	if outcome.Errors[0].Row != 6 {
		t.Fatalf("failed row = %d; want source row 6", outcome.Errors[0].Row)
	}
	if outcome.Created != 9 {
		t.Fatalf("created = %d; want the other 9 rows persisted", outcome.Created)
	}

	var count int64
	if err := config.GetDB().Model(&models.Shipment{}).Count(&count).Error; err != nil {
		t.Fatalf("count shipments: %v", err)
	}
	if count != 9 {
		t.Fatalf("shipments = %d; want 9", count)
	}
}

func TestExecuteFailedUpdateDoesNotTaintLaterRows(t *testing.T) {
	setupImportDB(t)
	ctx := context.Background()
	db := config.GetDB()

	seed := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": "Acme", "Qty": "100"},
	})
	if _, err := excelimport.Execute(ctx, seed, models.ImportModeUpdateOrCreate); err != nil {
		t.Fatalf("seed Execute: %v", err)
	}

	// The first row overflows the customer column and rolls back; its values
	// (including the inferred transit status) must not leak into the second
	// row's update of the same shipment.
	rows := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": strings.Repeat("X", 150), "Départ": "ON BOARD"},
		{"Order number": "1001", "Qty": "50"},
	})
	outcome, err := excelimport.Execute(ctx, rows, models.ImportModeUpdateOrCreate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(outcome.Errors) != 1 || outcome.Errors[0].Row != 2 {
		t.Fatalf("errors = %v; want exactly the oversized row 2", outcome.Errors)
	}
	if outcome.Updated != 1 {
		t.Fatalf("updated = %d; want the second row applied", outcome.Updated)
	}

	stored, err := models.GetShipmentByReference(ctx, "1001")
	if err != nil {
		t.Fatalf("GetShipmentByReference: %v", err)
	}
	if stored.Customer != "Acme" {
		t.Fatalf("customer = %q; failed row's value re-persisted by later row", stored.Customer)
	}
	if stored.Quantity != 50 {
		t.Fatalf("quantity = %d; want 50 from the second row", stored.Quantity)
	}
	if stored.Status != models.ShipmentStatusCreated {
		t.Fatalf("status = %s; rolled-back transit status leaked", stored.Status)
	}

	var alerts int64
	if err := db.Model(&models.Alert{}).Where("shipment_id = ?", stored.ID).Count(&alerts).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if alerts != 0 {
		t.Fatalf("alerts = %d; rolled-back transition produced side effects", alerts)
	}
}

func TestExecuteWithLockRejectsConcurrentImport(t *testing.T) {
	setupImportDB(t)

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	config.ConnectRedisWithRetry()

	ctx := context.Background()
	locker := config.GetRedisLock()
	if locker == nil {
		t.Fatal("redis lock not ready after ConnectRedisWithRetry")
	}

	// Hold the import lock as if another process were mid-import.
	held, err := locker.Obtain(ctx, "lock:shipment-import", time.Minute, nil)
	if err != nil {
		t.Fatalf("obtain lock: %v", err)
	}
	defer held.Release(ctx)

	rows := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "Client": "Acme"},
	})
	shortCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := excelimport.ExecuteWithLock(shortCtx, rows, models.ImportModeUpdateOrCreate); err != utils.ErrorImportLocked {
		t.Fatalf("ExecuteWithLock err = %v; want ErrorImportLocked", err)
	}
}

// setupImportDB starts a throwaway MySQL container, points the config
// globals at it and migrates the schema. Skips unless INTEGRATION_TESTS=1.
func setupImportDB(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "logistics_test")

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		t.Fatal("db is nil after ConnectDatabaseWithRetry")
	}
	models.MigrateTable()
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("logistics-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=logistics_test",
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

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("logistics-test-redis-%d", time.Now().UnixNano())
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
