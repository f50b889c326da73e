package messaging

const (
	// ProductsStreamName is the JetStream stream holding catalog product events.
	ProductsStreamName = "CATALOG_PRODUCTS"

	// ProductsSubjects matches every subject published to ProductsStreamName.
	ProductsSubjects = "catalog.products.>"

	StockUpdatedSubject = "catalog.products.stock_updated"
)
