package constants

// Common string constants used throughout the codebase
const (
	// Log levels
	ErrorLevel = "error"

	// Environments
	ProdEnvironment = "prod"

	// Deal types
	RetailDeal = "RETAIL"
	LeaseDeal  = "LEASE"
)

// Fee codes carried on itemized deal fees. Unknown codes fall back to the
// jurisdiction's default fee taxability.
const (
	FeeCodeDoc        = "DOC"
	FeeCodeTitle      = "TITLE"
	FeeCodeReg        = "REG"
	FeeCodePlate      = "PLATE"
	FeeCodeInspect    = "INSPECT"
	FeeCodeElectronic = "EFILING"
)

// Rebate kinds
const (
	RebateManufacturer = "MANUFACTURER"
	RebateDealer       = "DEALER"
)

// Backend product kinds
const (
	ProductServiceContract = "SERVICE_CONTRACT"
	ProductGAP             = "GAP"
	ProductAccessories     = "ACCESSORIES"
)
