package contact

import (
	"context"
	"errors"

	"github.com/Yamuna-Lakshmanan/HelpNow/internal/db"

	"github.com/google/uuid"
)

var (
	ErrTooManyContacts  = errors.New("contact limit reached")
	ErrStoreUnavailable = errors.New("contact store unavailable")
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) AddContact(ctx context.Context, input Contact) (Contact, error) {
	if s.db == nil {
		return Contact{}, ErrStoreUnavailable
	}
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM emergency_contacts WHERE user_id=$1`, input.UserID).Scan(&count); err != nil {
		return Contact{}, err
	}
	if count >= MaxAllowed {
		return Contact{}, ErrTooManyContacts
	}

	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO emergency_contacts (id, user_id, name, phone, relationship)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, input.ID, input.UserID, input.Name, input.Phone, input.Relationship)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Contact{}, err
	}
	return input, nil
}

func (s *Service) ListContacts(ctx context.Context, userID string) ([]Contact, error) {
	// The server stays up without postgres; contact lookups degrade to errors.
	if s.db == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, phone, COALESCE(relationship,''), created_at
		FROM emergency_contacts WHERE user_id=$1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relationship, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func (s *Service) DeleteContact(ctx context.Context, userID, id string) error {
	if s.db == nil {
		return ErrStoreUnavailable
	}
	_, err := s.db.Exec(ctx, `DELETE FROM emergency_contacts WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}
