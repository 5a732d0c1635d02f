package entity

type Type string

const (
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
)

func (t Type) String() string {
	return string(t)
}

type Category string

const (
	CategoryWelcome  Category = "welcome"
	CategoryBalance  Category = "balance"
	CategoryMessage  Category = "message"
	CategoryCampaign Category = "campaign"
	CategoryError    Category = "error"
	CategorySystem   Category = "system"
	CategoryWhatsApp Category = "whatsapp"
)

func (c Category) String() string {
	return string(c)
}
