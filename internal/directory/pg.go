package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

// uniqueViolation es el SQLSTATE de violación de unique constraint.
const uniqueViolation = "23505"

// PG implementa Store sobre PostgreSQL (pgxpool).
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

const userColumns = `id, provider, provider_subject_id, email, display_name, avatar_url, phone, birth_date, gender, role, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var email, avatar, phone, birth, gender *string
	var role string
	err := row.Scan(&u.ID, &u.Provider, &u.SubjectID, &email, &u.DisplayName,
		&avatar, &phone, &birth, &gender, &role, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	if email != nil {
		u.Email = *email
	}
	if avatar != nil {
		u.AvatarURL = *avatar
	}
	if phone != nil {
		u.Phone = *phone
	}
	if birth != nil {
		u.BirthDate = *birth
	}
	if gender != nil {
		u.Gender = *gender
	}
	if r, ok := identity.ParseRole(role); ok {
		u.Role = r
	}
	return &u, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (p *PG) Resolve(ctx context.Context, ci identity.CanonicalIdentity, signupRole identity.Role) (*User, bool, error) {
	u, err := p.findByIdentity(ctx, ci.Provider, ci.SubjectID)
	switch {
	case err == nil:
		if u.DeletedAt != nil {
			return nil, false, ErrWithdrawn
		}
		u, err = p.refreshProfile(ctx, u.ID, ci)
		return u, false, err

	case errors.Is(err, pgx.ErrNoRows):
		u, err = p.insert(ctx, ci, signupRole)
		if err == nil {
			return u, true, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// El 23505 puede venir de dos índices distintos: el de email
			// significa que otra identidad activa ya usa ese email, no una
			// carrera de la nuestra.
			if pgErr.ConstraintName == "uq_app_user_email" {
				return nil, false, ErrDuplicateEmail
			}
			// Carrera de primer-login: otro proceso insertó la misma
			// identidad entre nuestro SELECT y el INSERT. Releer y
			// actualizar como si hubiera existido siempre.
			u, err = p.findByIdentity(ctx, ci.Provider, ci.SubjectID)
			if err != nil {
				return nil, false, fmt.Errorf("directory: re-read tras conflicto: %w", err)
			}
			if u.DeletedAt != nil {
				return nil, false, ErrWithdrawn
			}
			u, err = p.refreshProfile(ctx, u.ID, ci)
			return u, false, err
		}
		return nil, false, err

	default:
		return nil, false, err
	}
}

func (p *PG) findByIdentity(ctx context.Context, provider, subjectID string) (*User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE provider = $1 AND provider_subject_id = $2`,
		provider, subjectID)
	return scanUser(row)
}

func (p *PG) insert(ctx context.Context, ci identity.CanonicalIdentity, role identity.Role) (*User, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO app_user (id, provider, provider_subject_id, email, display_name, avatar_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+userColumns,
		uuid.NewString(), ci.Provider, ci.SubjectID,
		nullIfEmpty(ci.Email), ci.Name, nullIfEmpty(ci.AvatarURL), string(role))
	return scanUser(row)
}

// refreshProfile pisa display_name y avatar con lo último del provider.
func (p *PG) refreshProfile(ctx context.Context, id string, ci identity.CanonicalIdentity) (*User, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE app_user SET display_name = $2, avatar_url = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, ci.Name, nullIfEmpty(ci.AvatarURL))
	return scanUser(row)
}

func (p *PG) FindByID(ctx context.Context, id string) (*User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE id = $1 AND deleted_at IS NULL`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (p *PG) SaveOnboarding(ctx context.Context, id string, ob Onboarding) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE app_user
		SET display_name = COALESCE(NULLIF($2, ''), display_name),
		    phone = $3, birth_date = $4, gender = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, ob.Nickname, nullIfEmpty(ob.Phone), nullIfEmpty(ob.BirthDate), nullIfEmpty(ob.Gender))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PG) SoftDelete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE app_user SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (p *PG) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateRole existe para override administrativo (memberctl); las
// transiciones normales pasan por membership, no por acá.
func (p *PG) UpdateRole(ctx context.Context, id string, role identity.Role) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE app_user SET role = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PG)(nil)
