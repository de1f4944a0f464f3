package models

type User struct {
	Model
	SoftDelete

	MobileNumber   string  `gorm:"size:15;uniqueIndex;not null" json:"mobile_number"`
	Email          string  `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password       string  `gorm:"not null" json:"-"`
	CompanyName    string  `gorm:"size:255" json:"company_name"`
	State          string  `gorm:"size:100" json:"state"`
	CompanyAddress *string `gorm:"size:500" json:"company_address"`
	GSTIN          *string `gorm:"column:gstin;size:15;index" json:"gstin"`
	PAN            *string `gorm:"column:pan;size:10;index" json:"pan"`
	IsActive       bool    `gorm:"not null;default:true" json:"is_active"`
	IsVerified     bool    `gorm:"not null;default:false" json:"is_verified"`

	// Relations
	Projects []Project `gorm:"foreignKey:UserID" json:"projects,omitempty"`
}
