package repository

import (
	"context"

	"github.com/saeid-a/CoachLinkBack/internal/models"
)

type CreatePlanAssignmentInput struct {
	ClientID  int64
	TrainerID int64
	PlanID    int64
	Title     string
}

// PlanAssignmentRepository stores the plan rows a trainer assigned to a
// client. Plan contents live elsewhere; only the assignment matters here.
type PlanAssignmentRepository struct {
	db DBTX
}

func NewPlanAssignmentRepository(db DBTX) *PlanAssignmentRepository {
	return &PlanAssignmentRepository{db: db}
}

func (r *PlanAssignmentRepository) Create(
	ctx context.Context,
	input CreatePlanAssignmentInput,
) (*models.PlanAssignment, error) {
	query := `
		INSERT INTO plan_assignments (client_id, trainer_id, plan_id, title)
		VALUES ($1, $2, $3, $4)
		RETURNING id, client_id, trainer_id, plan_id, title, created_at
	`

	var assignment models.PlanAssignment
	err := r.db.QueryRow(ctx, query, input.ClientID, input.TrainerID, input.PlanID, input.Title).Scan(
		&assignment.ID,
		&assignment.ClientID,
		&assignment.TrainerID,
		&assignment.PlanID,
		&assignment.Title,
		&assignment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

func (r *PlanAssignmentRepository) ListForPair(
	ctx context.Context,
	clientID int64,
	trainerID int64,
) ([]models.PlanAssignment, error) {
	query := `
		SELECT id, client_id, trainer_id, plan_id, title, created_at
		FROM plan_assignments
		WHERE client_id = $1 AND trainer_id = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, clientID, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]models.PlanAssignment, 0)
	for rows.Next() {
		var assignment models.PlanAssignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.ClientID,
			&assignment.TrainerID,
			&assignment.PlanID,
			&assignment.Title,
			&assignment.CreatedAt,
		); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

// DeleteForPair removes every assignment the trainer made for the client and
// returns how many rows went away.
func (r *PlanAssignmentRepository) DeleteForPair(
	ctx context.Context,
	clientID int64,
	trainerID int64,
) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM plan_assignments
		WHERE client_id = $1 AND trainer_id = $2
	`, clientID, trainerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
