package models

import "time"

// PlanAssignment links a nutrition plan a trainer assigned to a client.
type PlanAssignment struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	TrainerID int64     `json:"trainer_id"`
	PlanID    int64     `json:"plan_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
