package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

// uniqueViolation es el SQLSTATE de violación de unique constraint.
const uniqueViolation = "23505"

// PG persiste solicitudes y perfiles en Postgres. El "a lo sumo una PENDING
// por usuario" lo garantiza un índice único parcial sobre join_application
// (user_id WHERE status = 'PENDING'), no un check en código: dos Apply
// concurrentes del mismo usuario chocan en el índice, no en una carrera.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

const appColumns = `id, user_id, motivation, status, reason, created_at, decided_at, decided_by`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	var reason, decidedBy *string
	err := row.Scan(&a.ID, &a.UserID, &a.Motivation, &a.Status, &reason, &a.CreatedAt, &a.DecidedAt, &decidedBy)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		a.Reason = *reason
	}
	if decidedBy != nil {
		a.DecidedBy = *decidedBy
	}
	return &a, nil
}

func (p *PG) CreateApplication(ctx context.Context, app *Application) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO join_application (id, user_id, motivation, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		app.ID, app.UserID, app.Motivation, app.Status, app.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyApplied
		}
		return fmt.Errorf("membership: insert application: %w", err)
	}
	return nil
}

func (p *PG) FindApplication(ctx context.Context, id string) (*Application, error) {
	app, err := scanApplication(p.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM join_application WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	return app, err
}

func (p *PG) ListApplications(ctx context.Context, status string, limit, offset int) ([]Application, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
		SELECT `+appColumns+` FROM join_application
		WHERE status = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	return out, rows.Err()
}

// Approve ejecuta la decisión completa en una transacción. El UPDATE de la
// solicitud filtra por status = 'PENDING': si otra decisión llegó primero
// el rowcount es cero y devolvemos ErrNotPending sin tocar nada más.
func (p *PG) Approve(ctx context.Context, appID, decidedBy string, profile MemberProfile) (*Application, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("membership: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	app, err := scanApplication(tx.QueryRow(ctx, `
		UPDATE join_application
		SET status = $2, decided_at = NOW(), decided_by = $3
		WHERE id = $1 AND status = $4
		RETURNING `+appColumns,
		appID, StatusApproved, decidedBy, StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, p.decideConflict(ctx, appID)
	}
	if err != nil {
		return nil, fmt.Errorf("membership: approve application: %w", err)
	}

	// Sólo la transición USER→MEMBER existe; un rol que mientras tanto subió
	// por override administrativo (ADMIN) no se pisa hacia abajo. El CASE
	// mantiene el rowcount como check de existencia.
	tag, err := tx.Exec(ctx, `
		UPDATE app_user
		SET role = CASE WHEN role = $3 THEN $2 ELSE role END, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		app.UserID, identity.RoleMember.String(), identity.RoleUser.String())
	if err != nil {
		return nil, fmt.Errorf("membership: promote user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("membership: promote user %s: no active row", app.UserID)
	}

	// Creado si falta: un ex-MEMBER re-aprobado conserva su perfil original.
	_, err = tx.Exec(ctx, `
		INSERT INTO member_profile (user_id, nickname, bio, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING`,
		profile.UserID, profile.Nickname, profile.Bio, profile.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("membership: insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("membership: commit approve: %w", err)
	}
	return app, nil
}

func (p *PG) Reject(ctx context.Context, appID, decidedBy, reason string) (*Application, error) {
	app, err := scanApplication(p.pool.QueryRow(ctx, `
		UPDATE join_application
		SET status = $2, reason = $3, decided_at = NOW(), decided_by = $4
		WHERE id = $1 AND status = $5
		RETURNING `+appColumns,
		appID, StatusRejected, reason, decidedBy, StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, p.decideConflict(ctx, appID)
	}
	if err != nil {
		return nil, fmt.Errorf("membership: reject application: %w", err)
	}
	return app, nil
}

// decideConflict distingue "no existe" de "ya decidida" cuando el UPDATE
// condicionado no matcheó filas.
func (p *PG) decideConflict(ctx context.Context, appID string) error {
	var status string
	err := p.pool.QueryRow(ctx,
		`SELECT status FROM join_application WHERE id = $1`, appID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrApplicationNotFound
	}
	if err != nil {
		return err
	}
	return ErrNotPending
}

func (p *PG) FindProfile(ctx context.Context, userID string) (*MemberProfile, error) {
	var mp MemberProfile
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, nickname, bio, joined_at FROM member_profile WHERE user_id = $1`,
		userID).Scan(&mp.UserID, &mp.Nickname, &mp.Bio, &mp.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

var _ Store = (*PG)(nil)
