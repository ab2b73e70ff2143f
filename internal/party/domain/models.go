package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Student struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	StudentNumber string       `gorm:"column:student_id;not null;uniqueIndex:ux_students_student_id" json:"student_id"`
	Name          string       `gorm:"not null" json:"name"`
	Email         string       `gorm:"not null;uniqueIndex:ux_students_email" json:"email"`
	Phone         string       `gorm:"not null;default:''" json:"phone"`
	Program       string       `gorm:"not null;default:''" json:"program"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string { return "students" }

type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null;uniqueIndex:ux_clients_email" json:"email"`
	Phone     string       `gorm:"not null;default:''" json:"phone"`
	Address   string       `gorm:"not null;default:''" json:"address"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
