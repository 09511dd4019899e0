package model

import "time"

// Student is a registry record created by the create-user endpoint.
type Student struct {
	BaseModel
	RollNumber string    `gorm:"size:64;uniqueIndex;not null" json:"rollNumber"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	LastLogin  time.Time `json:"lastLogin"`
}

func (Student) TableName() string {
	return "students"
}
