package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/puretradeops/logistics_backend/config"
	"bitbucket.org/puretradeops/logistics_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shipment is one purchase-order line tracked from factory to delivery.
// Reference is the natural key projection: "<order>" or "<order>-<batch>".
type Shipment struct {
	ID          int    `gorm:"primary_key" json:"id"`
	Reference   string `gorm:"size:120;uniqueIndex;not null" json:"reference"`
	OrderNumber string `gorm:"size:100;index" json:"order_number"`
	BatchNumber string `gorm:"size:50" json:"batch_number"`

	Customer    string `gorm:"size:100;index" json:"customer"`
	Origin      string `gorm:"size:100" json:"origin"`
	Destination string `gorm:"size:100" json:"destination"`

	Incoterm     string `gorm:"size:20;default:'FOB'" json:"incoterm"`
	IncotermCity string `gorm:"size:100" json:"incoterm_city"`
	DcToDeliver  string `gorm:"size:100" json:"dc_to_deliver"`
	LoadingPlace string `gorm:"size:100" json:"loading_place"`
	Pod          string `gorm:"size:100" json:"pod"`

	QcDate       *time.Time `json:"qc_date"`
	PlannedEtd   *time.Time `json:"planned_etd"`
	PlannedEta   *time.Time `json:"planned_eta"`
	MadDate      *time.Time `json:"mad_date"`
	ItsDate      *time.Time `json:"its_date"`
	DeliveryDate *time.Time `json:"delivery_date"`

	Sku                   string `gorm:"size:100" json:"sku"`
	ProductDescription    string `gorm:"size:255" json:"product_description"`
	ProductDescriptionOld string `gorm:"size:255" json:"product_description_old"`

	Quantity       int `gorm:"default:0" json:"quantity"`
	QtyPreSerie    int `gorm:"default:0" json:"qty_pre_serie"`
	QtyIts         int `gorm:"default:0" json:"qty_its"`
	QtyFoc         int `gorm:"default:0" json:"qty_foc"`
	QtyPackingAcc  int `gorm:"default:0" json:"qty_packing_acc"`
	QtyExtraCarton int `gorm:"default:0" json:"qty_extra_carton"`
	NbCartons      int `gorm:"default:0" json:"nb_cartons"`
	NbPallets      int `gorm:"default:0" json:"nb_pallets"`

	WeightKg    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight_kg"`
	VolumeCbm   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"volume_cbm"`
	FreightRate decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"freight_rate"`

	TransportMode       string `gorm:"size:30" json:"transport_mode"`
	Vessel              string `gorm:"size:100" json:"vessel"`
	BlNumber            string `gorm:"size:100" json:"bl_number"`
	ContainerNumber     string `gorm:"size:100" json:"container_number"`
	SealNumber          string `gorm:"size:100" json:"seal_number"`
	Eto                 string `gorm:"size:100" json:"eto"`
	HsCode              string `gorm:"size:50" json:"hs_code"`
	ForwarderName       string `gorm:"size:100" json:"forwarder_name"`
	ForwarderRef        string `gorm:"size:100" json:"forwarder_ref"`
	PureTradeRef        string `gorm:"size:100" json:"pure_trade_ref"`
	ShipmentRefExternal string `gorm:"size:100" json:"shipment_ref_external"`

	Supplier             string `gorm:"size:100" json:"supplier"`
	SupplierContact      string `gorm:"size:100" json:"supplier_contact"`
	ResponsablePureTrade string `gorm:"size:100" json:"responsable_pure_trade"`
	AchatContact         string `gorm:"size:100" json:"achat_contact"`
	Interlocuteur        string `gorm:"size:100" json:"interlocuteur"`

	CommentsForwarder string `gorm:"size:255" json:"comments_forwarder"`
	CommentsInternal  string `gorm:"type:text" json:"comments_internal"`
	DepartureStat     string `gorm:"size:100" json:"departure_stat"`
	FoundStat         string `gorm:"size:100" json:"found_stat"`

	ComplianceStatus string `gorm:"size:30;default:'PENDING'" json:"compliance_status"`
	BudgetStatus     string `gorm:"size:30;default:'ON_TRACK'" json:"budget_status"`
	RushStatus       *bool  `gorm:"not null;default:false" json:"rush_status"`
	EcoFriendlyFlag  *bool  `gorm:"not null;default:false" json:"eco_friendly_flag"`

	Status ShipmentStatus `gorm:"size:50;not null;default:'CREATED'" json:"status"`

	Alerts []*Alert `gorm:"foreignKey:ShipmentId;constraint:OnDelete:CASCADE" json:"alerts,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ApplyImportField assigns one canonical field parsed from the master file.
// The switch is the complete allow-list of columns an import may touch:
// anything else (including "reference" and "id") is rejected so a renamed
// source column can never write an unexpected attribute. Values carry the
// types produced by the coercion layer; a wrong type is reported as not
// applied rather than panicking.
func (s *Shipment) ApplyImportField(name string, value any) bool {
	switch name {
	case "order_number":
		return setString(&s.OrderNumber, value)
	case "batch_number":
		return setString(&s.BatchNumber, value)
	case "customer":
		return setString(&s.Customer, value)
	case "origin":
		return setString(&s.Origin, value)
	case "destination":
		return setString(&s.Destination, value)
	case "incoterm":
		return setString(&s.Incoterm, value)
	case "incoterm_city":
		return setString(&s.IncotermCity, value)
	case "dc_to_deliver":
		return setString(&s.DcToDeliver, value)
	case "loading_place":
		return setString(&s.LoadingPlace, value)
	case "pod":
		return setString(&s.Pod, value)
	case "qc_date":
		return setDate(&s.QcDate, value)
	case "planned_etd":
		return setDate(&s.PlannedEtd, value)
	case "planned_eta":
		return setDate(&s.PlannedEta, value)
	case "mad_date":
		return setDate(&s.MadDate, value)
	case "its_date":
		return setDate(&s.ItsDate, value)
	case "delivery_date":
		return setDate(&s.DeliveryDate, value)
	case "sku":
		return setString(&s.Sku, value)
	case "product_description":
		return setString(&s.ProductDescription, value)
	case "product_description_old":
		return setString(&s.ProductDescriptionOld, value)
	case "quantity":
		return setInt(&s.Quantity, value)
	case "qty_pre_serie":
		return setInt(&s.QtyPreSerie, value)
	case "qty_its":
		return setInt(&s.QtyIts, value)
	case "qty_foc":
		return setInt(&s.QtyFoc, value)
	case "qty_packing_acc":
		return setInt(&s.QtyPackingAcc, value)
	case "qty_extra_carton":
		return setInt(&s.QtyExtraCarton, value)
	case "nb_cartons":
		return setInt(&s.NbCartons, value)
	case "nb_pallets":
		return setInt(&s.NbPallets, value)
	case "weight_kg":
		return setDecimal(&s.WeightKg, value)
	case "volume_cbm":
		return setDecimal(&s.VolumeCbm, value)
	case "freight_rate":
		return setDecimal(&s.FreightRate, value)
	case "transport_mode":
		return setString(&s.TransportMode, value)
	case "vessel":
		return setString(&s.Vessel, value)
	case "bl_number":
		return setString(&s.BlNumber, value)
	case "container_number":
		return setString(&s.ContainerNumber, value)
	case "eto":
		return setString(&s.Eto, value)
	case "hs_code":
		return setString(&s.HsCode, value)
	case "forwarder_name":
		return setString(&s.ForwarderName, value)
	case "forwarder_ref":
		return setString(&s.ForwarderRef, value)
	case "pure_trade_ref":
		return setString(&s.PureTradeRef, value)
	case "shipment_ref_external":
		return setString(&s.ShipmentRefExternal, value)
	case "supplier":
		return setString(&s.Supplier, value)
	case "supplier_contact":
		return setString(&s.SupplierContact, value)
	case "responsable_pure_trade":
		return setString(&s.ResponsablePureTrade, value)
	case "achat_contact":
		return setString(&s.AchatContact, value)
	case "interlocuteur":
		return setString(&s.Interlocuteur, value)
	case "comments_forwarder":
		return setString(&s.CommentsForwarder, value)
	case "comments_internal":
		return setString(&s.CommentsInternal, value)
	case "departure_stat":
		return setString(&s.DepartureStat, value)
	case "found_stat":
		return setString(&s.FoundStat, value)
	case "status":
		if v, ok := value.(ShipmentStatus); ok && v.Valid() {
			s.Status = v
			return true
		}
		return false
	}
	return false
}

func setString(dst *string, value any) bool {
	v, ok := value.(string)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func setInt(dst *int, value any) bool {
	v, ok := value.(int)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func setDecimal(dst *decimal.Decimal, value any) bool {
	v, ok := value.(decimal.Decimal)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func setDate(dst **time.Time, value any) bool {
	v, ok := value.(time.Time)
	if !ok {
		return false
	}
	*dst = &v
	return true
}

func GetShipmentByReference(ctx context.Context, reference string) (*Shipment, error) {
	db := config.GetDB()
	var shipment Shipment
	err := db.WithContext(ctx).Where("reference = ?", reference).First(&shipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

func ListShipments(ctx context.Context, customer string, status string) ([]*Shipment, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Shipment{})
	if customer != "" {
		dbCtx = dbCtx.Where("customer = ?", customer)
	}
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	var shipments []*Shipment
	if err := dbCtx.Order("created_at DESC").Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

// ListShipmentReferences returns the set of references currently in the
// store. The import previewer classifies rows against this set.
func ListShipmentReferences(ctx context.Context) (map[string]bool, error) {
	db := config.GetDB()
	var references []string
	if err := db.WithContext(ctx).Model(&Shipment{}).Pluck("reference", &references).Error; err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(references))
	for _, ref := range references {
		existing[ref] = true
	}
	return existing, nil
}
