package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/saeid-a/CoachLinkBack/internal/database"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/repository"
	"github.com/stretchr/testify/require"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error

	testEmailSeq atomic.Int64
)

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		dir, err := database.FindMigrationsDir()
		if err != nil {
			testDBErr = err
			return
		}
		if err := database.Migrate(dbURL, dir, "up"); err != nil {
			testDBErr = err
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

type recordedEvent struct {
	Room    string
	Event   string
	Payload any
}

// recordingBroadcaster stands in for the websocket hub. It reports zero
// deliveries, like a hub with nobody connected.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func userRoom(userID int64) string { return fmt.Sprintf("user_%d", userID) }

func chatRoom(chatID int64) string { return fmt.Sprintf("chat_%d", chatID) }

func (b *recordingBroadcaster) EmitToUser(userID int64, event string, payload any) (int, error) {
	b.record(userRoom(userID), event, payload)
	return 0, nil
}

func (b *recordingBroadcaster) EmitToChat(chatID int64, event string, payload any) (int, error) {
	b.record(chatRoom(chatID), event, payload)
	return 0, nil
}

func (b *recordingBroadcaster) record(room string, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Room: room, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) rooms(event string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rooms []string
	for _, e := range b.events {
		if e.Event == event {
			rooms = append(rooms, e.Room)
		}
	}
	return rooms
}

type integrationServices struct {
	relationships *RelationshipService
	chats         *ChatService
	notifications *NotificationService
	auth          *AuthService
	broadcaster   *recordingBroadcaster
}

func newIntegrationServices(pool *pgxpool.Pool) integrationServices {
	broadcaster := &recordingBroadcaster{}
	userRepo := repository.NewUserRepository(pool)
	relationshipRepo := repository.NewRelationshipRepository(pool)

	notifications := NewNotificationService(repository.NewNotificationRepository(pool), broadcaster, nil)
	return integrationServices{
		relationships: NewRelationshipService(pool, relationshipRepo, userRepo, notifications, nil),
		chats: NewChatService(
			pool,
			repository.NewChatRepository(pool),
			repository.NewMessageRepository(pool),
			relationshipRepo,
			userRepo,
			nil,
			broadcaster,
			notifications,
			nil,
		),
		notifications: notifications,
		auth: NewAuthService(
			pool,
			userRepo,
			repository.NewAuthSessionRepository(pool),
			"integration-secret",
			time.Hour,
			24*time.Hour,
			nil,
		),
		broadcaster: broadcaster,
	}
}

func createTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role models.Role) *models.User {
	t.Helper()

	name := fmt.Sprintf("Test %s %d", role, testEmailSeq.Add(1))
	user := &models.User{
		Email:        fmt.Sprintf("coachlink-%s-%d-%d@example.com", role, time.Now().UnixNano(), testEmailSeq.Load()),
		PasswordHash: "test-hash",
		Role:         role,
		FullName:     &name,
	}
	require.NoError(t, repository.NewUserRepository(pool).CreateUser(ctx, user))

	t.Cleanup(func() {
		// Cascades remove relationships, chats, messages, sessions and
		// notifications that reference the user.
		if _, err := pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", user.ID); err != nil {
			t.Errorf("cleanup user %d: %v", user.ID, err)
		}
	})
	return user
}

func countRelationships(t *testing.T, ctx context.Context, pool *pgxpool.Pool, clientID int64, status models.RelationshipStatus) int {
	t.Helper()

	var count int
	err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM relationships WHERE client_id = $1 AND status = $2",
		clientID, status,
	).Scan(&count)
	require.NoError(t, err)
	return count
}

func countChats(t *testing.T, ctx context.Context, pool *pgxpool.Pool, trainerID int64, clientID int64) int {
	t.Helper()

	count, err := repository.NewChatRepository(pool).CountForPair(ctx, trainerID, clientID)
	require.NoError(t, err)
	return count
}
