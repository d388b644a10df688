package excelimport

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/puretradeops/logistics_backend/config"
	"bitbucket.org/puretradeops/logistics_backend/models"
	"bitbucket.org/puretradeops/logistics_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RowError reports one row that could not be processed, without affecting the
// rest of the batch.
type RowError struct {
	Row       int    `json:"row"`
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// Outcome is the aggregate result of one import batch.
type Outcome struct {
	Created        int        `json:"created"`
	Updated        int        `json:"updated"`
	Skipped        int        `json:"skipped"`
	Errors         []RowError `json:"errors"`
	TotalProcessed int        `json:"total_processed"`
}

const (
	importLockKey = "lock:shipment-import"
	importLockTTL = 2 * time.Minute
)

// ExecuteWithLock serializes imports across processes with a redis advisory
// lock before running Execute. Two operators importing at once would race on
// the same natural keys otherwise. When redis is not ready the import still
// runs, single-instance deployments should not be blocked by a cache outage.
func ExecuteWithLock(ctx context.Context, rows []*ParsedRow, mode models.ImportMode) (*Outcome, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		logger.WithFields(logrus.Fields{
			"module": "excelimport",
		}).Warn("redis lock not ready; running import without cross-process lock")
		return Execute(ctx, rows, mode)
	}

	lock, err := locker.Obtain(ctx, importLockKey, importLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), 10),
	})
	if err == redislock.ErrNotObtained {
		return nil, utils.ErrorImportLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain import lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			logger.WithFields(logrus.Fields{
				"module": "excelimport",
			}).Warn("failed to release import lock: " + releaseErr.Error())
		}
	}()

	return Execute(ctx, rows, mode)
}

// Execute runs the create-or-update pass over the parsed rows, in input
// order. Existing shipments are indexed once per batch and the index grows as
// rows create new shipments, so a correction row later in the same file
// updates the shipment created moments before. Each row runs in its own
// savepoint: a constraint violation loses that row only. The batch commits
// once at the end; if that commit fails nothing is persisted.
func Execute(ctx context.Context, rows []*ParsedRow, mode models.ImportMode) (*Outcome, error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin import batch: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var existing []*models.Shipment
	if err := tx.Find(&existing).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("load existing shipments: %w", err)
	}
	index := make(map[string]*models.Shipment, len(existing))
	for _, s := range existing {
		index[s.Reference] = s
	}

	outcome := &Outcome{Errors: []RowError{}}
	for _, row := range rows {
		outcome.TotalProcessed++

		if row.Err != "" || row.Key == nil {
			outcome.Errors = append(outcome.Errors, RowError{
				Row:       row.RowNumber,
				Reference: row.Reference(),
				Error:     row.Err,
			})
			continue
		}

		reference := row.Key.Reference()
		if shipment, found := index[reference]; found {
			if mode == models.ImportModeCreateOnly {
				outcome.Skipped++
				continue
			}
			err := tx.Transaction(func(rtx *gorm.DB) error {
				return updateShipment(rtx, shipment, row)
			})
			if err != nil {
				outcome.Errors = append(outcome.Errors, RowError{
					Row:       row.RowNumber,
					Reference: reference,
					Error:     err.Error(),
				})
				continue
			}
			outcome.Updated++
		} else {
			var created *models.Shipment
			err := tx.Transaction(func(rtx *gorm.DB) error {
				var cerr error
				created, cerr = createShipment(rtx, reference, row)
				return cerr
			})
			if err != nil {
				outcome.Errors = append(outcome.Errors, RowError{
					Row:       row.RowNumber,
					Reference: reference,
					Error:     err.Error(),
				})
				continue
			}
			index[reference] = created
			outcome.Created++
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("commit import batch: %w", err)
	}
	return outcome, nil
}

func createShipment(rtx *gorm.DB, reference string, row *ParsedRow) (*models.Shipment, error) {
	shipment := &models.Shipment{
		Reference: reference,
		Status:    models.ShipmentStatusCreated,
	}
	applyRowFields(shipment, row)
	if err := rtx.Create(shipment).Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

func updateShipment(rtx *gorm.DB, shipment *models.Shipment, row *ParsedRow) error {
	// The shipment lives in the batch index; when the row's savepoint rolls
	// back the in-memory struct must revert too, or a later same-key row
	// would re-persist the failed row's values.
	saved := *shipment
	previousStatus := shipment.Status
	applyRowFields(shipment, row)
	if err := rtx.Save(shipment).Error; err != nil {
		*shipment = saved
		return err
	}
	if models.IsEnteringTransit(previousStatus, shipment.Status) {
		if err := onEnterTransit(rtx, shipment); err != nil {
			*shipment = saved
			return err
		}
	}
	return nil
}

// applyRowFields copies every coerced field onto the shipment. The parser
// never emits nulls, so a blank cell in the file leaves the stored value
// alone. The reference is the key projection and is never updated from data.
func applyRowFields(shipment *models.Shipment, row *ParsedRow) {
	for name, value := range row.Fields {
		if name == "reference" {
			continue
		}
		shipment.ApplyImportField(name, value)
	}
}

// onEnterTransit fires once per CREATED->TRANSIT style transition, inside the
// row's savepoint: the loading-delay alerts are obsolete the moment the
// container is on the water, and an already-past ETA means the shipment is
// late before it even arrives.
func onEnterTransit(rtx *gorm.DB, shipment *models.Shipment) error {
	if _, err := models.DeactivateShipmentAlerts(rtx, shipment.ID, models.AlertTypeLateLoading); err != nil {
		return err
	}

	if shipment.PlannedEta == nil {
		return nil
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	eta := *shipment.PlannedEta
	etaDay := time.Date(eta.Year(), eta.Month(), eta.Day(), 0, 0, 0, 0, now.Location())
	if !etaDay.Before(today) {
		return nil
	}

	return models.CreateAlert(rtx, &models.Alert{
		Type:       models.AlertTypeDelay,
		Severity:   models.AlertSeverityHigh,
		Message:    fmt.Sprintf("Shipment in transit but planned ETA overdue (%s)", eta.Format("02/01/2006")),
		ShipmentId: &shipment.ID,
		Active:     utils.NewTrue(),
	})
}
