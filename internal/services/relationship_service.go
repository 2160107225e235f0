package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachLinkBack/internal/access"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/repository"
)

// RelationshipService owns the invite state machine between clients and
// trainers. Multi-row transitions run in one transaction that holds the
// client's advisory lock.
type RelationshipService struct {
	db               TxBeginner
	relationshipRepo *repository.RelationshipRepository
	userRepo         userReader
	notifier         Notifier
	logger           *slog.Logger
}

func NewRelationshipService(
	db TxBeginner,
	relationshipRepo *repository.RelationshipRepository,
	userRepo userReader,
	notifier Notifier,
	logger *slog.Logger,
) *RelationshipService {
	return &RelationshipService{
		db:               db,
		relationshipRepo: relationshipRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		logger:           loggerOrDefault(logger),
	}
}

func (s *RelationshipService) Invite(
	ctx context.Context,
	clientID int64,
	role models.Role,
	trainerID int64,
) (*models.Relationship, error) {
	if !access.IsClient(role) {
		return nil, apperror.Forbidden("Only clients can invite trainers")
	}
	if trainerID <= 0 || trainerID == clientID {
		return nil, apperror.BadRequest("Invalid trainer id")
	}

	trainer, err := s.userRepo.GetByID(ctx, trainerID)
	if err != nil {
		return nil, notFoundOr(err, "Trainer not found", "load trainer")
	}
	if !access.IsTrainer(trainer.Role) {
		return nil, apperror.NotFound("Trainer not found")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, internal("begin invite", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRelationshipRepo := repository.NewRelationshipRepository(tx)

	if err := txRelationshipRepo.LockClient(ctx, clientID); err != nil {
		return nil, internal("lock client", err)
	}

	if _, err := txRelationshipRepo.GetAcceptedByClient(ctx, clientID); err == nil {
		return nil, apperror.Conflict("You already have an active trainer")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, internal("load active relationship", err)
	}

	existing, err := txRelationshipRepo.GetByPair(ctx, clientID, trainerID)
	switch {
	case err == nil && existing.Status == models.StatusPending:
		return nil, apperror.BadRequest("An invite to this trainer is already pending")
	case err == nil && existing.Status == models.StatusRejected:
		return nil, apperror.BadRequest("This trainer has already rejected your invite")
	case err == nil:
		return nil, apperror.Conflict("You already have an active trainer")
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, internal("load existing invite", err)
	}

	pending, err := txRelationshipRepo.CountPendingByClient(ctx, clientID)
	if err != nil {
		return nil, internal("count pending invites", err)
	}
	if pending >= models.MaxPendingInvites {
		return nil, apperror.BadRequest(fmt.Sprintf("You can have at most %d pending invites", models.MaxPendingInvites))
	}

	relationship, err := txRelationshipRepo.Create(ctx, clientID, trainerID)
	if err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, apperror.BadRequest("An invite to this trainer already exists")
		}
		return nil, internal("create invite", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internal("commit invite", err)
	}

	client, _ := s.userRepo.GetByID(ctx, clientID)
	s.notify(ctx, trainerID, models.NotificationInviteReceived,
		fmt.Sprintf("%s sent you a coaching invite", clientDisplayName(client)))

	return relationship, nil
}

func (s *RelationshipService) Accept(
	ctx context.Context,
	trainerID int64,
	role models.Role,
	inviteID int64,
) (*models.AcceptInviteResult, error) {
	invite, err := s.loadInviteForTrainer(ctx, trainerID, role, inviteID)
	if err != nil {
		return nil, err
	}
	return s.acceptInvite(ctx, invite)
}

// acceptInvite runs the accept transaction for an invite that was PENDING
// when it was loaded. The row is read again under the client lock because
// the client may have withdrawn it or another trainer may have won since.
func (s *RelationshipService) acceptInvite(
	ctx context.Context,
	invite *models.Relationship,
) (*models.AcceptInviteResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, internal("begin accept", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRelationshipRepo := repository.NewRelationshipRepository(tx)
	txChatRepo := repository.NewChatRepository(tx)

	if err := txRelationshipRepo.LockClient(ctx, invite.ClientID); err != nil {
		return nil, internal("lock client", err)
	}

	current, err := txRelationshipRepo.GetByIDForUpdate(ctx, invite.ID)
	if err != nil {
		return nil, notFoundOr(err, "Invite not found", "reload invite")
	}
	if current.Status != models.StatusPending {
		if _, err := txRelationshipRepo.GetAcceptedByClient(ctx, current.ClientID); err == nil {
			return nil, apperror.Conflict("Client already accepted another trainer")
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, internal("load active relationship", err)
		}
		return nil, apperror.BadRequest("Invite is not pending")
	}

	accepted, err := txRelationshipRepo.AcceptIfClientFree(ctx, current.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || repository.IsUniqueViolation(err, repository.OneAcceptedPerClientIndex) {
			return nil, apperror.Conflict("Client already accepted another trainer")
		}
		return nil, internal("accept invite", err)
	}

	rejected, err := txRelationshipRepo.RejectOtherPending(ctx, invite.ClientID, invite.ID)
	if err != nil {
		return nil, internal("reject other invites", err)
	}

	chat, err := txChatRepo.CreateOrGet(ctx, accepted.TrainerID, accepted.ClientID)
	if err != nil {
		return nil, internal("create chat", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internal("commit accept", err)
	}

	rejectedIDs := make([]int64, 0, len(rejected))
	for _, rel := range rejected {
		rejectedIDs = append(rejectedIDs, rel.ID)
	}

	s.logger.Info("invite accepted",
		"invite_id", accepted.ID,
		"client_id", accepted.ClientID,
		"trainer_id", accepted.TrainerID,
		"chat_id", chat.ID,
		"foreclosed", len(rejectedIDs),
	)

	trainer, _ := s.userRepo.GetByID(ctx, accepted.TrainerID)
	s.notify(ctx, accepted.ClientID, models.NotificationInviteAccepted,
		fmt.Sprintf("%s accepted your invite", trainerDisplayName(trainer)))

	return &models.AcceptInviteResult{
		Relationship:      *accepted,
		Chat:              *chat,
		RejectedInviteIDs: rejectedIDs,
	}, nil
}

func (s *RelationshipService) Reject(
	ctx context.Context,
	trainerID int64,
	role models.Role,
	inviteID int64,
) (*models.Relationship, error) {
	invite, err := s.loadInviteForTrainer(ctx, trainerID, role, inviteID)
	if err != nil {
		return nil, err
	}

	rejected, err := s.relationshipRepo.UpdateStatusIfCurrent(ctx, invite.ID, models.StatusPending, models.StatusRejected)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.BadRequest("Invite is not pending")
		}
		return nil, internal("reject invite", err)
	}

	trainer, _ := s.userRepo.GetByID(ctx, trainerID)
	s.notify(ctx, rejected.ClientID, models.NotificationInviteRejected,
		fmt.Sprintf("%s declined your invite", trainerDisplayName(trainer)))

	return rejected, nil
}

func (s *RelationshipService) CancelInvite(
	ctx context.Context,
	clientID int64,
	role models.Role,
	inviteID int64,
) error {
	if !access.IsClient(role) {
		return apperror.Forbidden("Only clients can cancel invites")
	}

	invite, err := s.relationshipRepo.GetByID(ctx, inviteID)
	if err != nil {
		return notFoundOr(err, "Invite not found", "load invite")
	}
	if !access.CanCancelInvite(invite, clientID) {
		return apperror.Forbidden("You can only cancel your own invites")
	}

	return s.deletePendingInvite(ctx, invite)
}

func (s *RelationshipService) CancelInviteByTrainer(
	ctx context.Context,
	clientID int64,
	role models.Role,
	trainerID int64,
) error {
	if !access.IsClient(role) {
		return apperror.Forbidden("Only clients can cancel invites")
	}

	invite, err := s.relationshipRepo.GetByPair(ctx, clientID, trainerID)
	if err != nil {
		return notFoundOr(err, "Invite not found", "load invite")
	}

	return s.deletePendingInvite(ctx, invite)
}

func (s *RelationshipService) deletePendingInvite(ctx context.Context, invite *models.Relationship) error {
	switch invite.Status {
	case models.StatusAccepted:
		return apperror.BadRequest("Invite was accepted; cancel the cooperation instead")
	case models.StatusRejected:
		return apperror.BadRequest("Invite was already rejected")
	}

	deleted, err := s.relationshipRepo.DeleteIfStatus(ctx, invite.ID, models.StatusPending)
	if err != nil {
		return internal("delete invite", err)
	}
	if !deleted {
		return apperror.BadRequest("Invite is no longer pending")
	}

	client, _ := s.userRepo.GetByID(ctx, invite.ClientID)
	s.notify(ctx, invite.TrainerID, models.NotificationInviteCancelled,
		fmt.Sprintf("%s withdrew their invite", clientDisplayName(client)))

	return nil
}

// CancelCooperation ends the client's active relationship and removes every
// plan assignment the trainer made for that client.
func (s *RelationshipService) CancelCooperation(
	ctx context.Context,
	clientID int64,
	role models.Role,
) (*models.CancelCooperationResult, error) {
	if !access.IsClient(role) {
		return nil, apperror.Forbidden("Only clients can cancel a cooperation")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, internal("begin cancel cooperation", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRelationshipRepo := repository.NewRelationshipRepository(tx)
	txPlanRepo := repository.NewPlanAssignmentRepository(tx)

	if err := txRelationshipRepo.LockClient(ctx, clientID); err != nil {
		return nil, internal("lock client", err)
	}

	active, err := txRelationshipRepo.GetAcceptedByClientForUpdate(ctx, clientID)
	if err != nil {
		return nil, notFoundOr(err, "You do not have an active trainer", "load active relationship")
	}

	deletedPlans, err := txPlanRepo.DeleteForPair(ctx, clientID, active.TrainerID)
	if err != nil {
		return nil, internal("delete plan assignments", err)
	}

	deleted, err := txRelationshipRepo.DeleteIfStatus(ctx, active.ID, models.StatusAccepted)
	if err != nil {
		return nil, internal("delete relationship", err)
	}
	if !deleted {
		return nil, apperror.NotFound("You do not have an active trainer")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internal("commit cancel cooperation", err)
	}

	s.logger.Info("cooperation cancelled",
		"client_id", clientID,
		"trainer_id", active.TrainerID,
		"deleted_plans", deletedPlans,
	)

	client, _ := s.userRepo.GetByID(ctx, clientID)
	s.notify(ctx, active.TrainerID, models.NotificationCooperationCancelled,
		fmt.Sprintf("%s ended your cooperation", clientDisplayName(client)))

	return &models.CancelCooperationResult{
		TrainerID:             active.TrainerID,
		DeletedNutritionPlans: deletedPlans,
	}, nil
}

// ToggleFavorite flips the favorite flag on an active relationship.
func (s *RelationshipService) ToggleFavorite(
	ctx context.Context,
	trainerID int64,
	role models.Role,
	clientID int64,
) (*models.Relationship, error) {
	if !access.IsTrainer(role) {
		return nil, apperror.Forbidden("Only trainers can favorite clients")
	}

	relationship, err := s.relationshipRepo.ToggleFavorite(ctx, trainerID, clientID)
	if err == nil {
		return relationship, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, internal("toggle favorite", err)
	}

	if _, err := s.relationshipRepo.GetByPair(ctx, clientID, trainerID); err != nil {
		return nil, notFoundOr(err, "Client not found", "load relationship")
	}
	return nil, apperror.Forbidden("Client is not in an active cooperation with you")
}

func (s *RelationshipService) ListInvites(
	ctx context.Context,
	userID int64,
	role models.Role,
) ([]models.RelationshipDetail, error) {
	var (
		invites []models.RelationshipDetail
		err     error
	)
	switch role {
	case models.RoleTrainer:
		invites, err = s.relationshipRepo.ListPendingForTrainer(ctx, userID)
	case models.RoleClient:
		invites, err = s.relationshipRepo.ListForClient(ctx, userID)
	default:
		return nil, apperror.Forbidden("Forbidden")
	}
	if err != nil {
		return nil, internal("list invites", err)
	}
	return invites, nil
}

func (s *RelationshipService) GetActiveTrainer(
	ctx context.Context,
	clientID int64,
	role models.Role,
) (*models.RelationshipDetail, error) {
	if !access.IsClient(role) {
		return nil, apperror.Forbidden("Only clients have a trainer")
	}

	detail, err := s.relationshipRepo.GetDetailAcceptedByClient(ctx, clientID)
	if err != nil {
		return nil, notFoundOr(err, "You do not have an active trainer", "load active trainer")
	}
	return detail, nil
}

// ListClients returns the trainer's active clients, favorites first.
func (s *RelationshipService) ListClients(
	ctx context.Context,
	trainerID int64,
	role models.Role,
) ([]models.RelationshipDetail, error) {
	if !access.IsTrainer(role) {
		return nil, apperror.Forbidden("Only trainers have clients")
	}

	clients, err := s.relationshipRepo.ListAcceptedForTrainer(ctx, trainerID)
	if err != nil {
		return nil, internal("list clients", err)
	}
	return clients, nil
}

func (s *RelationshipService) loadInviteForTrainer(
	ctx context.Context,
	trainerID int64,
	role models.Role,
	inviteID int64,
) (*models.Relationship, error) {
	if !access.IsTrainer(role) {
		return nil, apperror.Forbidden("Only trainers can answer invites")
	}

	invite, err := s.relationshipRepo.GetByID(ctx, inviteID)
	if err != nil {
		return nil, notFoundOr(err, "Invite not found", "load invite")
	}
	if !access.CanDecideInvite(invite, trainerID) {
		return nil, apperror.Forbidden("This invite is addressed to another trainer")
	}
	if invite.Status != models.StatusPending {
		return nil, apperror.BadRequest("Invite is not pending")
	}
	return invite, nil
}

// notify runs after the transaction committed; failures never reach the
// caller.
func (s *RelationshipService) notify(
	ctx context.Context,
	userID int64,
	notificationType models.NotificationType,
	message string,
) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.CreateNotification(ctx, userID, notificationType, message); err != nil {
		s.logger.Warn("relationship notification failed",
			"user_id", userID,
			"type", notificationType,
			"error", err,
		)
	}
}

func clientDisplayName(user *models.User) string {
	if user != nil && user.FullName != nil && *user.FullName != "" {
		return *user.FullName
	}
	return "A client"
}

func trainerDisplayName(user *models.User) string {
	if user != nil && user.FullName != nil && *user.FullName != "" {
		return *user.FullName
	}
	return "A trainer"
}
