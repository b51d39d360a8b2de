package models

// QuoteItem is a quote line item. The quote-value endpoint derives the
// journey's quote total by summing Price*Qty over its items.
type QuoteItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	JrnID       uint    `gorm:"column:Jrn_ID;not null;index" json:"Jrn_ID"`
	Description string  `json:"description"`
	Qty         int     `gorm:"default:1" json:"qty"`
	Price       float64 `json:"price"`
}

func (QuoteItem) TableName() string { return "Quote_Item" }
