package models

import (
	"errors"
)

// ShipmentStatus is the closed set of lifecycle states a shipment moves
// through. The import engine only ever assigns one of these values; free-text
// status strings from the master file are mapped during parsing.
type ShipmentStatus string

const (
	ShipmentStatusCreated          ShipmentStatus = "CREATED"
	ShipmentStatusProductionReady  ShipmentStatus = "PRODUCTION_READY"
	ShipmentStatusLoading          ShipmentStatus = "LOADING_IN_PROGRESS"
	ShipmentStatusReadyToDepart    ShipmentStatus = "CONTAINER_READY_FOR_DEPARTURE"
	ShipmentStatusTransitOcean     ShipmentStatus = "TRANSIT_OCEAN"
	ShipmentStatusArrivalPort      ShipmentStatus = "ARRIVAL_PORT"
	ShipmentStatusImportClearance  ShipmentStatus = "IMPORT_CLEARANCE"
	ShipmentStatusFinalDelivery    ShipmentStatus = "FINAL_DELIVERY"
)

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusCreated, ShipmentStatusProductionReady, ShipmentStatusLoading,
		ShipmentStatusReadyToDepart, ShipmentStatusTransitOcean, ShipmentStatusArrivalPort,
		ShipmentStatusImportClearance, ShipmentStatusFinalDelivery:
		return true
	}
	return false
}

func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	status := ShipmentStatus(s)
	if !status.Valid() {
		return "", errors.New("invalid shipment status")
	}
	return status, nil
}

// IsEnteringTransit reports whether the status change represents the shipment
// going on the water. The alert side effects in the import executor fire on
// exactly this transition, so it lives here where it can be tested alone.
func IsEnteringTransit(previous, next ShipmentStatus) bool {
	return next == ShipmentStatusTransitOcean && previous != ShipmentStatusTransitOcean
}

type AlertType string

const (
	AlertTypeDelay          AlertType = "DELAY"
	AlertTypeLateLoading    AlertType = "LATE_LOADING"
	AlertTypeWeather        AlertType = "WEATHER"
	AlertTypeStrike         AlertType = "STRIKE"
	AlertTypeCustoms        AlertType = "CUSTOMS"
	AlertTypePortCongestion AlertType = "PORT_CONGESTION"
)

type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// ImportMode selects the behavior of the import executor when a row matches
// an existing shipment.
type ImportMode string

const (
	ImportModeCreateOnly     ImportMode = "create_only"
	ImportModeUpdateOrCreate ImportMode = "update_or_create"
)

func ParseImportMode(s string) (ImportMode, error) {
	switch s {
	case "create_only":
		return ImportModeCreateOnly, nil
	case "update_or_create":
		return ImportModeUpdateOrCreate, nil
	}
	return "", errors.New("import mode must be create_only or update_or_create")
}

// RowStatus labels a previewed import row.
type RowStatus string

const (
	RowStatusNew    RowStatus = "new"
	RowStatusUpdate RowStatus = "update"
	RowStatusError  RowStatus = "error"
)
