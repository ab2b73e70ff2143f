package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertStudent(ctx context.Context, db *gorm.DB, student *Student) error
	FindStudentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	ListStudents(ctx context.Context, db *gorm.DB, search string, limit int) ([]*Student, error)

	InsertClient(ctx context.Context, db *gorm.DB, client *Client) error
	FindClientByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	ListClients(ctx context.Context, db *gorm.DB, search string, limit int) ([]*Client, error)
}
