package test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companyhub/internal/company/auth"
	"github.com/gartstein/companyhub/internal/company/controller"
	"github.com/gartstein/companyhub/internal/company/db"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/events"
	"github.com/gartstein/companyhub/internal/company/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

var kafkaBrokers = []string{"localhost:9092"}

// IntegrationTestSuite runs the membership flow against Postgres and Kafka
// as started by docker compose.
type IntegrationTestSuite struct {
	suite.Suite
	repo        *db.Repository
	producer    *events.Producer
	reader      *kafka.Reader
	topic       string
	logger      *zap.Logger
	testTimeout time.Duration

	users         *controller.UserService
	companies     *controller.CompanyService
	invites       *controller.InviteService
	notifications *controller.NotificationService
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.logger = zap.NewNop()
	s.testTimeout = 30 * time.Second

	repo, err := db.Connect(context.Background(), &db.Config{
		Driver:   db.DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "test",
		Password: "test",
		DBName:   "test",
		SSLMode:  "disable",
	}, 30*time.Second, s.logger)
	s.Require().NoError(err, "database initialization failed")
	s.repo = repo

	// a fresh topic per run keeps old messages out of the assertions
	s.topic = "companyhub-it-" + uuid.NewString()
	s.producer, err = events.NewProducer(kafkaBrokers, s.topic, 30*time.Second, s.logger)
	s.Require().NoError(err, "kafka producer initialization failed")

	s.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkaBrokers,
		Topic:       s.topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	s.users = controller.NewUserService(s.repo, auth.NewTokenManager("secret", time.Hour), s.logger)
	s.companies = controller.NewCompanyService(s.repo, nil, s.logger)
	s.invites = controller.NewInviteService(s.repo, s.producer, nil, s.logger)
	s.notifications = controller.NewNotificationService(s.repo, s.logger)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.reader != nil {
		_ = s.reader.Close()
	}
	if s.producer != nil {
		s.producer.Close()
	}
	if s.repo != nil {
		_ = s.repo.Close()
	}
}

func (s *IntegrationTestSuite) SetupTest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	err := s.repo.Exec(ctx, "TRUNCATE TABLE notifications, quizzes, invites, company_user_roles, companies, users RESTART IDENTITY CASCADE")
	s.Require().NoError(err, "failed to clean database")
}

func (s *IntegrationTestSuite) signUp(ctx context.Context, name string) *models.User {
	user, err := s.users.SignUp(ctx, &models.SignUp{
		FirstName: name,
		LastName:  "Tester",
		Email:     fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password:  "correct horse battery",
	})
	s.Require().NoError(err)
	return user
}

func (s *IntegrationTestSuite) TestInviteFlow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	owner := s.signUp(ctx, "owner")
	guest := s.signUp(ctx, "guest")

	company, err := s.companies.CreateCompany(ctx, &models.Company{
		Name:        "Integration " + uuid.NewString()[:8],
		Description: "Integration Test Company",
		Visibility:  models.Visible,
	}, owner.ID)
	s.Require().NoError(err)

	invite, err := s.invites.SendInvite(ctx, company.ID, guest.ID, owner.ID)
	s.Require().NoError(err)

	// a second invite while the first is pending conflicts
	_, err = s.invites.SendInvite(ctx, company.ID, guest.ID, owner.ID)
	s.ErrorIs(err, e.ErrInvitationAlreadyExist)

	decision, err := s.invites.AcceptInvite(ctx, invite.ID, guest.ID)
	s.Require().NoError(err)
	s.Require().NotNil(decision.Membership)
	s.Equal(models.RoleMember, decision.Membership.Role)

	members, err := s.invites.ListMembers(ctx, company.ID, owner.ID)
	s.Require().NoError(err)
	s.Len(members, 2)

	sent := s.consumeEvent(ctx, events.InviteSent, company.ID)
	s.Equal(guest.ID, sent.UserID)
	accepted := s.consumeEvent(ctx, events.InviteAccepted, company.ID)
	s.Equal(guest.ID, accepted.ActorID)

	// the consumed event feeds the owner's inbox the same way the consumer does
	s.Require().NoError(s.notifications.HandleEvent(ctx, accepted))
	inbox, err := s.notifications.ListNotifications(ctx, owner.ID, models.Page{Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Len(inbox, 1)
}

func (s *IntegrationTestSuite) TestDeleteCompanyCascades() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	owner := s.signUp(ctx, "owner")
	member := s.signUp(ctx, "member")

	company, err := s.companies.CreateCompany(ctx, &models.Company{
		Name:       "Doomed " + uuid.NewString()[:8],
		Visibility: models.Hidden,
	}, owner.ID)
	s.Require().NoError(err)

	_, err = s.invites.SendJoinRequest(ctx, company.ID, member.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.companies.DeleteCompany(ctx, company.ID, owner.ID))

	_, err = s.repo.GetCompany(ctx, company.ID)
	s.ErrorIs(err, e.ErrNotFound)
	_, err = s.repo.GetMembership(ctx, company.ID, owner.ID)
	s.ErrorIs(err, e.ErrNotFound)
	requests, err := s.repo.ListInvites(ctx, db.InviteFilter{UserID: member.ID})
	s.Require().NoError(err)
	s.Empty(requests)
}

// consumeEvent reads the topic until an event of the given type for the
// company arrives.
func (s *IntegrationTestSuite) consumeEvent(ctx context.Context, eventType events.EventType, companyID int64) events.Event {
	var found events.Event
	err := backoff.Retry(func() error {
		readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		msg, err := s.reader.ReadMessage(readCtx)
		if err != nil {
			return err
		}
		var event events.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return backoff.Permanent(err)
		}
		if event.Type != eventType || event.CompanyID != companyID {
			return fmt.Errorf("skipping %s for company %d", event.Type, event.CompanyID)
		}
		found = event
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 50), ctx))
	s.Require().NoError(err, "no %s event received", eventType)
	return found
}
