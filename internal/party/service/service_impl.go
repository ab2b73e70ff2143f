package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/clock"
	obslogger "github.com/smallbiznis/invoicer/internal/observability/logger"
	"github.com/smallbiznis/invoicer/internal/party/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit        = 200
	maxListLimit            = 1000
	studentNumberAttempts   = 3
	studentNumberPrefix     = "PPFI"
	studentNumberRandDigits = 1000
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("party.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateStudent(ctx context.Context, req domain.CreateStudentRequest) (domain.Student, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Student{}, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Student{}, err
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.Student{}, domain.ErrInvalidPhone
	}
	program := strings.TrimSpace(req.Program)
	if !slices.Contains(domain.Programs, program) {
		return domain.Student{}, domain.ErrInvalidProgram
	}

	supplied := strings.TrimSpace(req.StudentNumber)
	attempts := 1
	if supplied == "" {
		attempts = studentNumberAttempts
	}

	now := s.clock.Now().UTC()
	for attempt := 1; ; attempt++ {
		number := supplied
		if number == "" {
			number = s.generateStudentNumber()
		}

		student := domain.Student{
			ID:            s.genID.Generate(),
			StudentNumber: number,
			Name:          name,
			Email:         email,
			Phone:         phone,
			Program:       program,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err := s.repo.InsertStudent(ctx, s.db, &student)
		if err == nil {
			return student, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Student{}, err
		}

		dupErr := classifyStudentDuplicate(err)
		if dupErr != domain.ErrDuplicateStudentID || attempt >= attempts {
			return domain.Student{}, dupErr
		}
		obslogger.WithContext(ctx, s.log).Debug("generated student id collided, retrying", zap.String("student_id", number))
	}
}

func (s *Service) ListStudents(ctx context.Context, req domain.ListRequest) (domain.ListStudentResponse, error) {
	items, err := s.repo.ListStudents(ctx, s.db, req.Search, listLimit(req.Limit))
	if err != nil {
		return domain.ListStudentResponse{}, err
	}

	students := make([]domain.Student, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		students = append(students, *item)
	}
	return domain.ListStudentResponse{Students: students}, nil
}

func (s *Service) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	studentID, err := parseID(id)
	if err != nil {
		return domain.Student{}, err
	}

	item, err := s.repo.FindStudentByID(ctx, s.db, studentID)
	if err != nil {
		return domain.Student{}, err
	}
	if item == nil {
		return domain.Student{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) CreateClient(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Client{}, err
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.Client{}, domain.ErrInvalidPhone
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return domain.Client{}, domain.ErrInvalidAddress
	}

	now := s.clock.Now().UTC()
	client := domain.Client{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertClient(ctx, s.db, &client); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Client{}, domain.ErrDuplicateEmail
		}
		return domain.Client{}, err
	}
	return client, nil
}

func (s *Service) ListClients(ctx context.Context, req domain.ListRequest) (domain.ListClientResponse, error) {
	items, err := s.repo.ListClients(ctx, s.db, req.Search, listLimit(req.Limit))
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}
	return domain.ListClientResponse{Clients: clients}, nil
}

func (s *Service) GetClient(ctx context.Context, id string) (domain.Client, error) {
	clientID, err := parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindClientByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Programs() []string {
	return slices.Clone(domain.Programs)
}

// generateStudentNumber builds PPFI<YY>-<NNN> with a random three digit suffix.
func (s *Service) generateStudentNumber() string {
	year := s.clock.Now().Format("06")
	return fmt.Sprintf("%s%s-%03d", studentNumberPrefix, year, rand.IntN(studentNumberRandDigits))
}

func classifyStudentDuplicate(err error) error {
	column := strings.ToLower(db.DuplicateKeyColumn(err))
	switch {
	case strings.Contains(column, "email"):
		return domain.ErrDuplicateEmail
	case strings.Contains(column, "student_id"):
		return domain.ErrDuplicateStudentID
	default:
		return domain.ErrDuplicate
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !emailRe.MatchString(email) {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func listLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
