// internal/models/driver.go
package models

// Driver owns trips and signs their daily logs. Header fields feed the log sheet.
type Driver struct {
	Base
	Name         string `json:"name"`
	Email        string `json:"email" gorm:"unique;not null"`
	Password     string `json:"-"`
	Phone        string `json:"phone"`
	CarrierName  string `json:"carrier_name"`
	TruckNumber  string `json:"truck_number"`
	HomeTerminal string `json:"home_terminal"`
	MainOffice   string `json:"main_office"`
}
