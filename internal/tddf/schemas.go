package tddf

const (
	FieldSequenceNumber        = "sequence_number"
	FieldEntryRunNumber        = "entry_run_number"
	FieldSequenceWithinRun     = "sequence_within_run"
	FieldRecordIdentifier      = "record_identifier"
	FieldBankNumber            = "bank_number"
	FieldMerchantAccountNumber = "merchant_account_number"
	FieldAssociationNumber     = "association_number"
	FieldGroupNumber           = "group_number"
	FieldTransactionCode       = "transaction_code"
)

// header is the layout shared by every record type.
var header = []FieldSpec{
	{Name: FieldSequenceNumber, Start: 0, Length: 7},
	{Name: FieldEntryRunNumber, Start: 7, Length: 4},
	{Name: FieldSequenceWithinRun, Start: 11, Length: 6},
	{Name: FieldRecordIdentifier, Start: 17, Length: 2},
	{Name: FieldBankNumber, Start: 19, Length: 4},
	{Name: FieldMerchantAccountNumber, Start: 23, Length: 16},
	{Name: FieldAssociationNumber, Start: 39, Length: 6},
	{Name: FieldGroupNumber, Start: 45, Length: 6},
	{Name: FieldTransactionCode, Start: 51, Length: 4},
}

func withHeader(fields ...FieldSpec) []FieldSpec {
	return append(append([]FieldSpec{}, header...), fields...)
}

func numeric(name string, start, length, scale int) FieldSpec {
	return FieldSpec{Name: name, Start: start, Length: length, Coercion: CoerceNumeric, Scale: scale}
}

func date(name string, start int, layout DateLayout) FieldSpec {
	return FieldSpec{Name: name, Start: start, Length: 8, Coercion: CoerceDate, Layout: layout}
}

func text(name string, start, length int) FieldSpec {
	return FieldSpec{Name: name, Start: start, Length: length}
}

var DetailTransaction = MustSchema("DT", "detail_transaction", withHeader(
	text("reference_number", 61, 23),
	date("transaction_date", 84, LayoutMMDDYYYY),
	numeric("transaction_amount", 92, 11, 2),
	numeric("batch_julian_date", 103, 5, 0),
	numeric("net_deposit", 108, 15, 2),
	text("cardholder_account_number", 123, 19),
	text("best_interchange_eligible", 142, 2),
	text("transaction_data_condition_code", 144, 2),
	text("downgrade_reason_code", 146, 4),
	text("debit_credit_indicator", 187, 1),
	numeric("authorization_amount", 188, 12, 2),
	text("merchant_name", 217, 25),
	text("authorization_number", 242, 6),
	text("reject_reason", 250, 2),
	text("card_type", 252, 2),
	text("mcc_code", 273, 4),
	text("terminal_id", 277, 8),
)...)

var BatchHeader = MustSchema("BH", "batch_header", withHeader(
	date("batch_date", 55, LayoutMMDDYYYY),
	numeric("batch_julian_date", 63, 5, 0),
	numeric("net_deposit", 68, 15, 2),
	numeric("transaction_count", 83, 9, 0),
	text("merchant_reference_number", 92, 23),
	text("batch_id", 115, 8),
	text("merchant_dba_name", 123, 25),
)...)

var PurchasingCard1 = MustSchema("P1", "purchasing_card_1", withHeader(
	text("customer_code", 55, 16),
	numeric("tax_amount", 71, 12, 2),
	text("tax_exempt_indicator", 83, 1),
	text("destination_postal_code", 84, 10),
	text("ship_from_postal_code", 94, 10),
	numeric("freight_amount", 104, 12, 2),
	numeric("duty_amount", 116, 12, 2),
	date("order_date", 128, LayoutYYYYMMDD),
)...)

var Adjustment = MustSchema("AD", "adjustment", withHeader(
	date("adjustment_date", 55, LayoutYYYYMMDD),
	numeric("adjustment_amount", 63, 12, 2),
	text("reason_code", 75, 4),
	text("reference_number", 79, 23),
	text("description", 102, 26),
)...)

var schemas = map[string]*Schema{
	DetailTransaction.Code: DetailTransaction,
	BatchHeader.Code:       BatchHeader,
	PurchasingCard1.Code:   PurchasingCard1,
	Adjustment.Code:        Adjustment,
}

// SchemaFor returns the schema of a record type, or nil when none is defined.
func SchemaFor(code string) *Schema {
	return schemas[code]
}
