// Package handlers serves the company membership API over HTTP/JSON and
// exposes the gRPC health service, bridging the transport layer and the
// controller services.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gartstein/companyhub/internal/company/auth"
	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/gartstein/companyhub/internal/company/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 5 * time.Second

type UserController interface {
	SignUp(ctx context.Context, in *models.SignUp) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, page models.Page) ([]*models.User, error)
	UpdateUser(ctx context.Context, update *models.UserUpdate, actorID int64) (*models.User, error)
	DeleteUser(ctx context.Context, id, actorID int64) error
}

type CompanyController interface {
	CreateCompany(ctx context.Context, company *models.Company, ownerID int64) (*models.Company, error)
	GetCompany(ctx context.Context, id int64) (*models.Company, error)
	ListCompanies(ctx context.Context, page models.Page) ([]*models.Company, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate, actorID int64) (*models.Company, error)
	ChangeVisibility(ctx context.Context, companyID int64, visibility models.Visibility, actorID int64) (*models.Company, error)
	DeleteCompany(ctx context.Context, id, actorID int64) error
}

type InviteController interface {
	SendInvite(ctx context.Context, companyID, targetID, actorID int64) (*models.Invite, error)
	CancelInvite(ctx context.Context, companyID, targetID, actorID int64) error
	RespondToInvite(ctx context.Context, inviteID int64, action models.InviteAction, actorID int64) (*models.InviteDecision, error)
	DecideRequest(ctx context.Context, companyID, inviteID int64, action models.InviteAction, actorID int64) (*models.InviteDecision, error)
	SendJoinRequest(ctx context.Context, companyID, actorID int64) (*models.Invite, error)
	CancelJoinRequest(ctx context.Context, companyID, actorID int64) error
	LeaveCompany(ctx context.Context, companyID, actorID int64) error
	RemoveUser(ctx context.Context, companyID, targetID, actorID int64) error
	AssignAdmin(ctx context.Context, companyID, targetID, actorID int64) (*models.Membership, error)
	RemoveAdmin(ctx context.Context, companyID, targetID, actorID int64) (*models.Membership, error)
	ListUserInvites(ctx context.Context, actorID int64) ([]*models.Invite, error)
	ListCompanyInvites(ctx context.Context, companyID, actorID int64, kind models.InviteKind) ([]*models.Invite, error)
	ListAdmins(ctx context.Context, companyID, actorID int64) ([]*models.Membership, error)
	ListMembers(ctx context.Context, companyID, actorID int64) ([]*models.Membership, error)
	Relationship(ctx context.Context, companyID, userID int64) (*models.Relationship, error)
}

type QuizController interface {
	CreateQuiz(ctx context.Context, quiz *models.Quiz, actorID int64) (*models.Quiz, error)
	ListQuizzes(ctx context.Context, companyID, actorID int64, page models.Page) ([]*models.Quiz, error)
	UpdateQuiz(ctx context.Context, update *models.QuizUpdate, actorID int64) (*models.Quiz, error)
	ChangeStatus(ctx context.Context, quizID int64, status models.QuizStatus, actorID int64) (*models.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID, actorID int64) error
}

type NotificationController interface {
	ListNotifications(ctx context.Context, userID int64, page models.Page) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) (*models.Notification, error)
}

// Pinger reports storage liveness for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the controllers the HTTP routes call into.
type Services struct {
	Users         UserController
	Companies     CompanyController
	Invites       InviteController
	Quizzes       QuizController
	Notifications NotificationController
	DB            Pinger
}

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	health       *health.Server
	httpServer   *http.Server
	tokens       *auth.TokenManager
	metrics      *metrics.Metrics
	services     Services
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
// The gRPC side serves the health service; health checks need no token.
func NewServer(
	grpcPort int,
	httpPort int,
	tokens *auth.TokenManager,
	m *metrics.Metrics,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	interceptor := auth.NewAuthInterceptor(tokens, healthpb.Health_Check_FullMethodName)
	grpcOpts = append(grpcOpts, grpc.UnaryInterceptor(interceptor.Unary()))

	s := &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		health:       health.NewServer(),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		tokens:       tokens,
		metrics:      m,
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// RegisterHTTPHandlers builds the JSON API router on a grpc-gateway mux.
func (s *Server) RegisterHTTPHandlers(services Services) error {
	s.services = services
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(s.routingError))

	if err := s.registerRoutes(mux); err != nil {
		return err
	}

	s.httpServer.Handler = mux
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Handler returns the HTTP handler built by RegisterHTTPHandlers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routingError(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
	writeJSON(w, status, errorResponse{Details: http.StatusText(status)})
}

// Start binds both ports up front, so a taken port fails Start right away,
// then serves until one of the servers fails or Stop is called.
func (s *Server) Start() error {
	grpcListener, err := net.Listen("tcp", s.grpcEndpoint)
	if err != nil {
		return fmt.Errorf("gRPC listen error: %w", err)
	}
	httpListener, err := net.Listen("tcp", s.httpEndpoint)
	if err != nil {
		_ = grpcListener.Close()
		return fmt.Errorf("HTTP listen error: %w", err)
	}
	return s.Serve(grpcListener, httpListener)
}

// Serve runs both servers on the given listeners. When either server fails
// the other is stopped and the first error is returned.
func (s *Server) Serve(grpcListener, httpListener net.Listener) error {
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		s.logger.Info("Starting gRPC server", zap.String("endpoint", grpcListener.Addr().String()))
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		if err := s.grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("gRPC serve error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("endpoint", httpListener.Addr().String()))
		if err := s.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP serve error: %w", err)
		}
		return nil
	})

	// ctx ends on the first error, or once both servers returned after Stop
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpcServer.Stop()
		_ = s.httpServer.Close()
	}()

	return g.Wait()
}

// Stop marks the service NOT_SERVING and gracefully shuts down both servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
