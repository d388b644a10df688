package models

import (
	"context"
	"time"

	"bitbucket.org/puretradeops/logistics_backend/config"
	"gorm.io/gorm"
)

// Alert is a risk/exception record, either global (route weather, strikes)
// or linked to one shipment. Alerts raised by the import engine are always
// linked and start active.
type Alert struct {
	ID          int           `gorm:"primary_key" json:"id"`
	Type        AlertType     `gorm:"size:50;not null;index" json:"type"`
	Severity    AlertSeverity `gorm:"size:20;not null;default:'MEDIUM'" json:"severity"`
	Message     string        `gorm:"type:text;not null" json:"message"`
	ImpactDays  int           `gorm:"default:0" json:"impact_days"`
	ShipmentId  *int          `gorm:"index" json:"shipment_id"`
	LinkedRoute string        `gorm:"size:100" json:"linked_route"`
	Active      *bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// CreateAlert inserts within the caller's transaction so an alert raised as
// an import side effect shares the fate of its row.
func CreateAlert(tx *gorm.DB, alert *Alert) error {
	return tx.Create(alert).Error
}

// DeactivateShipmentAlerts flips every active alert of the given type on the
// shipment to inactive. Returns the number of alerts touched.
func DeactivateShipmentAlerts(tx *gorm.DB, shipmentId int, alertType AlertType) (int64, error) {
	res := tx.Model(&Alert{}).
		Where("shipment_id = ? AND type = ? AND active = ?", shipmentId, alertType, true).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func ListAlerts(ctx context.Context, active *bool) ([]*Alert, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Alert{})
	if active != nil {
		dbCtx = dbCtx.Where("active = ?", *active)
	}
	var alerts []*Alert
	if err := dbCtx.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}
