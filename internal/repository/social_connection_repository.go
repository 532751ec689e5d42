package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type SocialConnectionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialConnection, error)
	GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.SocialConnection, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialConnection, error)
	CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error)
	SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	Remove(ctx context.Context, id int64) error
}

type socialConnectionRepository struct {
	db *sql.DB
}

func NewSocialConnectionRepository(db *sql.DB) SocialConnectionRepository {
	return &socialConnectionRepository{db: db}
}

const connectionColumns = `id, user_id, platform, account_id, account_name, account_username,
	profile_picture_url, access_token, refresh_token, token_expires_at, is_active,
	created_at, updated_at`

func (r *socialConnectionRepository) Create(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error) {
	var err error
	var id int64

	insertQuery := `
		INSERT INTO social_connections(
			user_id,
			platform,
			account_id,
			account_name,
			account_username,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at,
			is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		RETURNING id
	`

	args := []interface{}{
		sc.UserID, sc.Platform, sc.AccountID, sc.AccountName, sc.AccountUsername,
		sc.ProfilePicture, sc.AccessToken, sc.RefreshToken, sc.TokenExpiresAt,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanConnection(row interface{ Scan(...interface{}) error }) (*models.SocialConnection, error) {
	var sc models.SocialConnection
	err := row.Scan(&sc.ID, &sc.UserID, &sc.Platform, &sc.AccountID, &sc.AccountName,
		&sc.AccountUsername, &sc.ProfilePicture, &sc.AccessToken, &sc.RefreshToken,
		&sc.TokenExpiresAt, &sc.IsActive, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// The epoch column default marks tokens that never expire; surface it
	// as the zero time the model checks for.
	if !sc.TokenExpiresAt.After(time.Unix(0, 0)) {
		sc.TokenExpiresAt = time.Time{}
	}
	return &sc, nil
}

func (r *socialConnectionRepository) GetByID(ctx context.Context, id int64) (*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE id = $1`
	sc, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sc, nil
}

func (r *socialConnectionRepository) GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM social_connections
		WHERE user_id = $1 AND platform = $2 AND is_active = TRUE`
	sc, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sc, nil
}

func (r *socialConnectionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	query := `SELECT id, user_id, platform, account_id, account_name, account_username, profile_picture_url
		FROM social_connections WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.SocialConnection
	for rows.Next() {
		var sc models.SocialConnection
		err := rows.Scan(&sc.ID, &sc.UserID, &sc.Platform, &sc.AccountID,
			&sc.AccountName, &sc.AccountUsername, &sc.ProfilePicture)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, &sc)
	}
	return connections, rows.Err()
}

func (r *socialConnectionRepository) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM social_connections
		WHERE is_active = TRUE
		  AND token_expires_at > 'epoch'::timestamptz
		  AND ((token_expires_at BETWEEN $1 AND $2) OR token_expires_at < $1)`
	rows, err := r.db.QueryContext(ctx, query, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.SocialConnection
	for rows.Next() {
		sc, err := scanConnection(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, sc)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return connections, nil
}

func (r *socialConnectionRepository) CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_connections WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, connectionID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *socialConnectionRepository) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	updateTokenQuery := `
		UPDATE social_connections
		SET
			access_token = COALESCE(NULLIF($2, ''), access_token),
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	result, err := tx.ExecContext(ctx, updateTokenQuery, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; connection may not exist")
		return errors.New("no rows affected; connection may not exist")
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialConnectionRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_connections WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
