package models

// Customer is sparse: many legacy journeys reference Company_ID "0"
// and only carry a company name, in which case the pipeline
// synthesizes a customer from the journey itself.
type Customer struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;index" json:"name"`
}

// ContactAddress holds the mailing address joined into the export
// sheet's multi-line Address cell.
type ContactAddress struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CustomerID string `gorm:"index" json:"customerId"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Zip        string `json:"zip"`
	Country    string `json:"country"`
}
