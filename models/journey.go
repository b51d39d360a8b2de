package models

// Journey mirrors the legacy Journey table. The legacy database stores
// almost everything as free text (stage labels, "0000-00-00" date
// sentinels, "90%" confidence strings), so the columns stay strings
// here and normalization happens in the pipeline adapter.
type Journey struct {
	ID uint `gorm:"primaryKey;column:ID" json:"ID"`

	ProjectName   string  `gorm:"column:Project_Name" json:"Project_Name"`
	TargetAccount string  `gorm:"column:Target_Account;index" json:"Target_Account"`
	JourneyStage  string  `gorm:"column:Journey_Stage;index" json:"Journey_Stage"`
	JourneyType   string  `gorm:"column:Journey_Type" json:"Journey_Type"`
	JourneyValue  float64 `gorm:"column:Journey_Value" json:"Journey_Value"`
	JourneyStatus string  `gorm:"column:Journey_Status" json:"Journey_Status"`
	Priority      string  `gorm:"column:Priority" json:"Priority"`

	LeadSource    string `gorm:"column:Lead_Source" json:"Lead_Source"`
	EquipmentType string `gorm:"column:Equipment_Type" json:"Equipment_Type"`
	QuoteType     string `gorm:"column:Quote_Type" json:"Quote_Type"`
	QuoteNumber   string `gorm:"column:Quote_Number" json:"Quote_Number"`
	QtyOfItems    int    `gorm:"column:Qty_of_Items" json:"Qty_of_Items"`
	Industry      string `gorm:"column:Industry" json:"Industry"`
	Dealer        string `gorm:"column:Dealer" json:"Dealer"`
	Notes         string `gorm:"column:Notes;type:text" json:"Notes"`

	RSM          string `gorm:"column:RSM;index" json:"RSM"`
	RSMTerritory string `gorm:"column:RSM_Territory" json:"RSM_Territory"`

	// Legacy timestamps, "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS",
	// with "0000-00-00" meaning absent.
	CreateDT              string `gorm:"column:CreateDT;index" json:"CreateDT"`
	ActionDate            string `gorm:"column:Action_Date" json:"Action_Date"`
	JourneyStartDate      string `gorm:"column:Journey_Start_Date" json:"Journey_Start_Date"`
	QuotePresentationDate string `gorm:"column:Quote_Presentation_Date" json:"Quote_Presentation_Date"`
	ExpectedDecisionDate  string `gorm:"column:Expected_Decision_Date" json:"Expected_Decision_Date"`
	DatePOReceived        string `gorm:"column:Date_PO_Received" json:"Date_PO_Received"`
	DateLost              string `gorm:"column:Date_Lost" json:"Date_Lost"`

	ChanceToSecureOrder string `gorm:"column:Chance_To_Secure_order" json:"Chance_To_Secure_order"`
	CompanyID           string `gorm:"column:Company_ID;index" json:"Company_ID"`

	// Soft-disable flag, 0/1. Journeys are never physically deleted;
	// the UI toggles this instead.
	DeletedAt int `gorm:"column:deletedAt;default:0" json:"deletedAt"`
}

func (Journey) TableName() string { return "Journey" }

// JourneyLog is the append-only audit trail. Stage moves write a
// single "Journey_Stage: FROM {old} TO {new}" action line.
type JourneyLog struct {
	ID         uint   `gorm:"primaryKey" json:"ID"`
	JrnID      uint   `gorm:"column:Jrn_ID;not null;index" json:"Jrn_ID"`
	Action     string `gorm:"column:Action;type:text" json:"Action"`
	CreateDtTm string `gorm:"column:CreateDtTm" json:"CreateDtTm"`
	CreateInit string `gorm:"column:CreateInit" json:"CreateInit"`
}

func (JourneyLog) TableName() string { return "Journey_Log" }

// JourneyContact joins journeys to their customer contacts for the
// export sheet.
type JourneyContact struct {
	ID       uint   `gorm:"primaryKey" json:"ID"`
	JrnID    uint   `gorm:"column:Jrn_ID;not null;index" json:"Jrn_ID"`
	Name     string `gorm:"column:Name" json:"Name"`
	Email    string `gorm:"column:Email" json:"Email"`
	Position string `gorm:"column:Position" json:"Position"`
}

func (JourneyContact) TableName() string { return "Journey_Contact" }
