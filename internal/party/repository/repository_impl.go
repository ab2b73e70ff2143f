package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/party/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertStudent(ctx context.Context, conn *gorm.DB, student *domain.Student) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO students (id, student_id, name, email, phone, program, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		student.ID,
		student.StudentNumber,
		student.Name,
		student.Email,
		student.Phone,
		student.Program,
		student.CreatedAt,
		student.UpdatedAt,
	).Error
}

func (r *repo) FindStudentByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	var student domain.Student
	err := conn.WithContext(ctx).Raw(
		`SELECT id, student_id, name, email, phone, program, created_at, updated_at
		 FROM students WHERE id = ?`,
		id,
	).Scan(&student).Error
	if err != nil {
		return nil, err
	}
	if student.ID == 0 {
		return nil, nil
	}
	return &student, nil
}

func (r *repo) ListStudents(ctx context.Context, conn *gorm.DB, search string, limit int) ([]*domain.Student, error) {
	var students []*domain.Student
	stmt := conn.WithContext(ctx).Model(&domain.Student{})
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		pattern := db.ContainsPattern(search)
		stmt = stmt.Where(
			`LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!' OR LOWER(student_id) LIKE ? ESCAPE '!'`,
			pattern, pattern, pattern,
		)
	}
	err := stmt.Order("name asc, id asc").Limit(limit).Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repo) InsertClient(ctx context.Context, conn *gorm.DB, client *domain.Client) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO clients (id, name, email, phone, address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.Email,
		client.Phone,
		client.Address,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindClientByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := conn.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, address, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) ListClients(ctx context.Context, conn *gorm.DB, search string, limit int) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := conn.WithContext(ctx).Model(&domain.Client{})
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		pattern := db.ContainsPattern(search)
		stmt = stmt.Where(
			`LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!' OR LOWER(address) LIKE ? ESCAPE '!'`,
			pattern, pattern, pattern,
		)
	}
	err := stmt.Order("name asc, id asc").Limit(limit).Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}
