package excelimport

// FieldKind declares the semantic type of a canonical shipment field. The
// coercion layer turns a raw cell into exactly one of these.
type FieldKind string

const (
	FieldKindText    FieldKind = "text"
	FieldKindInteger FieldKind = "integer"
	FieldKindDecimal FieldKind = "decimal"
	FieldKindDate    FieldKind = "date"
)

// ColumnMapping binds one master-file column label to a canonical field.
// Matching on the label is exact after trimming. Several labels may target
// the same field (spreadsheet aliases like "batch"/"BATCH"); the first label
// present in a file wins and later aliases are ignored for that field.
type ColumnMapping struct {
	Label string
	Field string
}

// Labels the ops team actually ships in the master file, business vocabulary
// included. Unmapped columns in the source are ignored, so new columns can
// appear in the file before anyone touches this table.
var columnMappings = []ColumnMapping{
	// Basic
	{"Order number", "order_number"},
	{"batch", "batch_number"},
	{"BATCH", "batch_number"},
	{"Client", "customer"},
	{"SKU", "sku"},

	// Descriptions
	{"Product description (old)", "product_description_old"},
	{"Product description (customer)", "product_description"},

	// Quantities
	{"Qty", "quantity"},
	{"Pré-série qty", "qty_pre_serie"},
	{"ITS qty", "qty_its"},
	{"FOC qty", "qty_foc"},
	{"Packing Acc qty", "qty_packing_acc"},
	{"Extra carton qty", "qty_extra_carton"},

	{"Nb of cartons", "nb_cartons"},
	{"Actual volume cbm", "volume_cbm"},
	{"Total GW (kg)", "weight_kg"},
	{"Nb of pallets", "nb_pallets"},

	// Partners
	{"Supplier", "supplier"},
	{"Contact", "supplier_contact"},
	{"Pure Trade", "pure_trade_ref"},

	// Locations
	{"Loading Place", "loading_place"},
	{"POD", "pod"},
	{"Selling Incoterm city", "incoterm_city"},
	{"DC to deliver", "dc_to_deliver"},

	// Dates
	{"QC", "qc_date"},
	{"ETD", "planned_etd"},
	{"ETA", "planned_eta"},
	{"MAD", "mad_date"},
	{"DATE ITS ", "its_date"},
	{"DATE ITS", "its_date"},
	{"Delivery date", "delivery_date"},

	// Shipping info
	{"Selling Incoterm", "incoterm"},
	{"MODE", "transport_mode"},
	{"VESSEL", "vessel"},
	{"BL n°", "bl_number"},
	{"Container nb", "container_number"},
	{"Forwarder", "forwarder_name"},
	{"NR BOOKING", "forwarder_ref"},
	{"ETO", "eto"},
	{"Shipment N°", "shipment_ref_external"},

	// Others
	{"Comments for forwarder", "comments_forwarder"},
	{"Commentaires", "comments_internal"},
	{"HS code", "hs_code"},
	{"Taux fret", "freight_rate"},
	{"Départ", "departure_stat"},
	{"Trouvé", "found_stat"},

	// Contacts
	{"LOG contact", "responsable_pure_trade"},
	{"Achat contact", "achat_contact"},
}

// fieldKinds is the complete set of canonical fields the parser may emit,
// each with its declared type. Fields not listed default to text.
var fieldKinds = map[string]FieldKind{
	"quantity":         FieldKindInteger,
	"qty_pre_serie":    FieldKindInteger,
	"qty_its":          FieldKindInteger,
	"qty_foc":          FieldKindInteger,
	"qty_packing_acc":  FieldKindInteger,
	"qty_extra_carton": FieldKindInteger,
	"nb_cartons":       FieldKindInteger,
	"nb_pallets":       FieldKindInteger,

	"weight_kg":    FieldKindDecimal,
	"volume_cbm":   FieldKindDecimal,
	"freight_rate": FieldKindDecimal,

	"qc_date":       FieldKindDate,
	"planned_etd":   FieldKindDate,
	"planned_eta":   FieldKindDate,
	"mad_date":      FieldKindDate,
	"its_date":      FieldKindDate,
	"delivery_date": FieldKindDate,
}

func kindOf(field string) FieldKind {
	if kind, ok := fieldKinds[field]; ok {
		return kind
	}
	return FieldKindText
}
