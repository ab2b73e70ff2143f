package domain

import (
	"context"
	"errors"
)

// Programs are the study programs a student can enrol in.
var Programs = []string{
	"BFA-SEMESTER",
	"BFA-YEAR",
	"BFA-INS",
	"BSc-SEMESTER",
	"BSc-YEAR",
	"BSc-INS",
	"DFD-SEMESTER",
	"DFD-YEAR",
	"DFB-SEMESTER",
	"DFB-YEAR",
	"Fashion Design Studio-SC",
	"Fashion Marketing-SC",
	"Fashion Business-SC",
	"Digital Fashion Illustration-SC",
	"Fashion Illustration-SC",
	"Fashion Styling-SC",
	"Fashion Photography-SC",
	"Trend Forecasting-SC",
	"Pattern Development-SC",
}

type CreateStudentRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	StudentNumber string `json:"student_id"`
	Program       string `json:"program"`
}

type CreateClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ListRequest filters by a case-insensitive substring of name, email and
// student id or address.
type ListRequest struct {
	Search string
	Limit  int
}

type ListStudentResponse struct {
	Students []Student `json:"students"`
}

type ListClientResponse struct {
	Clients []Client `json:"clients"`
}

type Service interface {
	CreateStudent(context.Context, CreateStudentRequest) (Student, error)
	ListStudents(context.Context, ListRequest) (ListStudentResponse, error)
	GetStudent(ctx context.Context, id string) (Student, error)

	CreateClient(context.Context, CreateClientRequest) (Client, error)
	ListClients(context.Context, ListRequest) (ListClientResponse, error)
	GetClient(ctx context.Context, id string) (Client, error)

	Programs() []string
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPhone       = errors.New("invalid_phone")
	ErrInvalidAddress     = errors.New("invalid_address")
	ErrInvalidProgram     = errors.New("invalid_program")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
	ErrDuplicateEmail     = errors.New("duplicate_email")
	ErrDuplicateStudentID = errors.New("duplicate_student_id")
	ErrDuplicate          = errors.New("duplicate")
)
