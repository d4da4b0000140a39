package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrContactNotFound is returned when a contact id has no record.
var ErrContactNotFound = errors.New("contact not found")

type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Title     string    `json:"title"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Status    string    `json:"status"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactRepository defines persistence operations for contacts.
type ContactRepository interface {
	List(ctx context.Context, page, size int) ([]Contact, int, error)
	Get(ctx context.Context, id string) (*Contact, error)
	Create(ctx context.Context, c Contact) (*Contact, error)
	Update(ctx context.Context, c Contact) (*Contact, error)
	SetPhotoURL(ctx context.Context, id, photoURL string) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// PgContactRepository implements ContactRepository using pgxpool.
type PgContactRepository struct {
	db *pgxpool.Pool
}

func NewPgContactRepository(db *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{db: db}
}

// List returns one page of contacts, newest first, plus the total count.
func (r *PgContactRepository) List(ctx context.Context, page, size int) ([]Contact, int, error) {
	if page < 0 || size <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM contacts`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
SELECT id, name, email, title, phone, address, status, photo_url, created_at, updated_at
FROM contacts
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`, size, page*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Contact, 0, size)
	for rows.Next() {
		var ct Contact
		if err := rows.Scan(&ct.ID, &ct.Name, &ct.Email, &ct.Title, &ct.Phone, &ct.Address, &ct.Status, &ct.PhotoURL, &ct.CreatedAt, &ct.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, ct)
	}
	return items, total, rows.Err()
}

func (r *PgContactRepository) Get(ctx context.Context, id string) (*Contact, error) {
	const q = `SELECT id, name, email, title, phone, address, status, photo_url, created_at, updated_at FROM contacts WHERE id=$1`
	var ct Contact
	if err := r.db.QueryRow(ctx, q, id).Scan(&ct.ID, &ct.Name, &ct.Email, &ct.Title, &ct.Phone, &ct.Address, &ct.Status, &ct.PhotoURL, &ct.CreatedAt, &ct.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return &ct, nil
}

func (r *PgContactRepository) Create(ctx context.Context, ct Contact) (*Contact, error) {
	ct.ID = uuid.NewString()
	ct.Name = strings.TrimSpace(ct.Name)
	const q = `
INSERT INTO contacts (id, name, email, title, phone, address, status, photo_url)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING created_at, updated_at`
	if err := r.db.QueryRow(ctx, q, ct.ID, ct.Name, ct.Email, ct.Title, ct.Phone, ct.Address, ct.Status, ct.PhotoURL).Scan(&ct.CreatedAt, &ct.UpdatedAt); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *PgContactRepository) Update(ctx context.Context, ct Contact) (*Contact, error) {
	const q = `
UPDATE contacts
SET name=$1, email=$2, title=$3, phone=$4, address=$5, status=$6, updated_at=NOW()
WHERE id=$7
RETURNING photo_url, created_at, updated_at`
	if err := r.db.QueryRow(ctx, q, ct.Name, ct.Email, ct.Title, ct.Phone, ct.Address, ct.Status, ct.ID).Scan(&ct.PhotoURL, &ct.CreatedAt, &ct.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return &ct, nil
}

func (r *PgContactRepository) SetPhotoURL(ctx context.Context, id, photoURL string) error {
	const q = `UPDATE contacts SET photo_url=$1, updated_at=NOW() WHERE id=$2`
	tag, err := r.db.Exec(ctx, q, photoURL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (r *PgContactRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM contacts WHERE id=$1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *PgContactRepository) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT 1 FROM contacts WHERE id=$1`
	var one int
	if err := r.db.QueryRow(ctx, q, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgContactRepository) Count(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM contacts`
	var total int64
	if err := r.db.QueryRow(ctx, q).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
