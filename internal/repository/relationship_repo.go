package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

// OneAcceptedPerClientIndex is the partial unique index that backs the
// single-active-trainer rule at the storage layer.
const OneAcceptedPerClientIndex = "relationships_one_accepted_per_client"

const relationshipColumns = `id, client_id, trainer_id, status, is_favorite, created_at, accepted_at`

type RelationshipRepository struct {
	db DBTX
}

func NewRelationshipRepository(db DBTX) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// LockClient serializes relationship writes for one client until the
// surrounding transaction ends.
func (r *RelationshipRepository) LockClient(ctx context.Context, clientID int64) error {
	_, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", clientID)
	return err
}

func (r *RelationshipRepository) Create(
	ctx context.Context,
	clientID int64,
	trainerID int64,
) (*models.Relationship, error) {
	query := `
		INSERT INTO relationships (client_id, trainer_id, status)
		VALUES ($1, $2, 'PENDING')
		RETURNING ` + relationshipColumns
	return scanRelationship(r.db.QueryRow(ctx, query, clientID, trainerID))
}

func (r *RelationshipRepository) GetByID(ctx context.Context, id int64) (*models.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = $1`
	return scanRelationship(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate row-locks the relationship until the transaction ends.
func (r *RelationshipRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = $1 FOR UPDATE`
	return scanRelationship(r.db.QueryRow(ctx, query, id))
}

func (r *RelationshipRepository) GetByPair(
	ctx context.Context,
	clientID int64,
	trainerID int64,
) (*models.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE client_id = $1 AND trainer_id = $2`
	return scanRelationship(r.db.QueryRow(ctx, query, clientID, trainerID))
}

func (r *RelationshipRepository) GetAcceptedByClient(ctx context.Context, clientID int64) (*models.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE client_id = $1 AND status = 'ACCEPTED'`
	return scanRelationship(r.db.QueryRow(ctx, query, clientID))
}

func (r *RelationshipRepository) GetAcceptedByClientForUpdate(ctx context.Context, clientID int64) (*models.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE client_id = $1 AND status = 'ACCEPTED' FOR UPDATE`
	return scanRelationship(r.db.QueryRow(ctx, query, clientID))
}

func (r *RelationshipRepository) CountPendingByClient(ctx context.Context, clientID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM relationships
		WHERE client_id = $1 AND status = 'PENDING'
	`, clientID).Scan(&count)
	return count, err
}

// AcceptIfClientFree flips a PENDING invite to ACCEPTED only while the
// client has no other ACCEPTED row. pgx.ErrNoRows means the guard failed.
func (r *RelationshipRepository) AcceptIfClientFree(ctx context.Context, id int64) (*models.Relationship, error) {
	query := `
		UPDATE relationships AS r
		SET status = 'ACCEPTED', accepted_at = NOW()
		WHERE r.id = $1
		  AND r.status = 'PENDING'
		  AND NOT EXISTS (
			SELECT 1
			FROM relationships other
			WHERE other.client_id = r.client_id
			  AND other.status = 'ACCEPTED'
		  )
		RETURNING r.id, r.client_id, r.trainer_id, r.status, r.is_favorite, r.created_at, r.accepted_at
	`
	return scanRelationship(r.db.QueryRow(ctx, query, id))
}

// RejectOtherPending forecloses every other open invite of the client and
// returns the affected rows.
func (r *RelationshipRepository) RejectOtherPending(
	ctx context.Context,
	clientID int64,
	keepID int64,
) ([]models.Relationship, error) {
	query := `
		UPDATE relationships
		SET status = 'REJECTED'
		WHERE client_id = $1 AND id <> $2 AND status = 'PENDING'
		RETURNING ` + relationshipColumns
	return r.list(ctx, query, clientID, keepID)
}

func (r *RelationshipRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	current models.RelationshipStatus,
	next models.RelationshipStatus,
) (*models.Relationship, error) {
	query := `
		UPDATE relationships
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING ` + relationshipColumns
	return scanRelationship(r.db.QueryRow(ctx, query, id, current, next))
}

// DeleteIfStatus removes the row only while it still has the given status.
func (r *RelationshipRepository) DeleteIfStatus(
	ctx context.Context,
	id int64,
	status models.RelationshipStatus,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM relationships
		WHERE id = $1 AND status = $2
	`, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RelationshipRepository) ToggleFavorite(
	ctx context.Context,
	trainerID int64,
	clientID int64,
) (*models.Relationship, error) {
	query := `
		UPDATE relationships
		SET is_favorite = NOT is_favorite
		WHERE trainer_id = $1 AND client_id = $2 AND status = 'ACCEPTED'
		RETURNING ` + relationshipColumns
	return scanRelationship(r.db.QueryRow(ctx, query, trainerID, clientID))
}

func (r *RelationshipRepository) ListForClient(ctx context.Context, clientID int64) ([]models.RelationshipDetail, error) {
	return r.listDetails(ctx, `WHERE r.client_id = $1`, `ORDER BY r.created_at DESC, r.id DESC`, clientID)
}

func (r *RelationshipRepository) ListPendingForTrainer(ctx context.Context, trainerID int64) ([]models.RelationshipDetail, error) {
	return r.listDetails(
		ctx,
		`WHERE r.trainer_id = $1 AND r.status = 'PENDING'`,
		`ORDER BY r.created_at DESC, r.id DESC`,
		trainerID,
	)
}

func (r *RelationshipRepository) ListAcceptedForTrainer(ctx context.Context, trainerID int64) ([]models.RelationshipDetail, error) {
	return r.listDetails(
		ctx,
		`WHERE r.trainer_id = $1 AND r.status = 'ACCEPTED'`,
		`ORDER BY r.is_favorite DESC, r.accepted_at DESC, r.id DESC`,
		trainerID,
	)
}

func (r *RelationshipRepository) GetDetailAcceptedByClient(ctx context.Context, clientID int64) (*models.RelationshipDetail, error) {
	details, err := r.listDetails(ctx, `WHERE r.client_id = $1 AND r.status = 'ACCEPTED'`, ``, clientID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &details[0], nil
}

func (r *RelationshipRepository) listDetails(
	ctx context.Context,
	where string,
	orderBy string,
	args ...any,
) ([]models.RelationshipDetail, error) {
	query := `
		SELECT
			r.id, r.client_id, r.trainer_id, r.status, r.is_favorite, r.created_at, r.accepted_at,
			cu.id, cu.role, cu.full_name, cu.avatar_url,
			tu.id, tu.role, tu.full_name, tu.avatar_url
		FROM relationships r
		JOIN users cu ON cu.id = r.client_id
		JOIN users tu ON tu.id = r.trainer_id
		` + where + `
		` + orderBy

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.RelationshipDetail, 0)
	for rows.Next() {
		var detail models.RelationshipDetail
		if err := rows.Scan(
			&detail.ID,
			&detail.ClientID,
			&detail.TrainerID,
			&detail.Status,
			&detail.IsFavorite,
			&detail.CreatedAt,
			&detail.AcceptedAt,
			&detail.Client.ID,
			&detail.Client.Role,
			&detail.Client.FullName,
			&detail.Client.AvatarURL,
			&detail.Trainer.ID,
			&detail.Trainer.Role,
			&detail.Trainer.FullName,
			&detail.Trainer.AvatarURL,
		); err != nil {
			return nil, err
		}
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}

func (r *RelationshipRepository) list(ctx context.Context, query string, args ...any) ([]models.Relationship, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relationships := make([]models.Relationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, *rel)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return relationships, nil
}

func scanRelationship(row pgx.Row) (*models.Relationship, error) {
	var rel models.Relationship
	err := row.Scan(
		&rel.ID,
		&rel.ClientID,
		&rel.TrainerID,
		&rel.Status,
		&rel.IsFavorite,
		&rel.CreatedAt,
		&rel.AcceptedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}
