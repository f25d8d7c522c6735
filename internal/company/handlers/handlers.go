package handlers

import (
	"context"
	"net/http"

	"github.com/gartstein/companyhub/internal/company/auth"
	"github.com/gartstein/companyhub/internal/company/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

// me stands for the authenticated user in /users/{user_id} and
// /members/{user_id}.
const me = "me"

type paramsKey struct{}

// handlerFunc serves one route. actorID is zero on public routes. A returned
// error is rendered through mapServiceError.
type handlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error

type route struct {
	method  string
	pattern string
	public  bool
	handle  handlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{http.MethodPost, "/v1/auth/signup", true, s.signUp},
		{http.MethodPost, "/v1/auth/login", true, s.login},
		{http.MethodGet, "/v1/users", false, s.listUsers},
		{http.MethodGet, "/v1/users/{user_id}", false, s.getUser},
		{http.MethodPut, "/v1/users/{user_id}", false, s.updateUser},
		{http.MethodDelete, "/v1/users/{user_id}", false, s.deleteUser},

		{http.MethodGet, "/v1/companies", true, s.listCompanies},
		{http.MethodPost, "/v1/companies", false, s.createCompany},
		{http.MethodGet, "/v1/companies/{company_id}", true, s.getCompany},
		{http.MethodPut, "/v1/companies/{company_id}", false, s.updateCompany},
		{http.MethodDelete, "/v1/companies/{company_id}", false, s.deleteCompany},
		{http.MethodPost, "/v1/companies/{company_id}/visibility", false, s.changeVisibility},
		{http.MethodGet, "/v1/companies/{company_id}/relationship", false, s.relationship},

		{http.MethodPost, "/v1/invites", false, s.sendInvite},
		{http.MethodGet, "/v1/invites", false, s.listUserInvites},
		{http.MethodDelete, "/v1/invites/{company_id}/{user_id}", false, s.cancelInvite},
		{http.MethodPut, "/v1/invites/{invite_id}/{action}", false, s.respondToInvite},
		{http.MethodGet, "/v1/companies/{company_id}/invites", false, s.listCompanyInvites},
		{http.MethodPut, "/v1/companies/{company_id}/requests/{invite_id}/{action}", false, s.decideRequest},
		{http.MethodPost, "/v1/join-requests", false, s.sendJoinRequest},
		{http.MethodDelete, "/v1/join-requests/{company_id}", false, s.cancelJoinRequest},

		{http.MethodGet, "/v1/companies/{company_id}/members", false, s.listMembers},
		{http.MethodDelete, "/v1/companies/{company_id}/members/{user_id}", false, s.removeMember},
		{http.MethodGet, "/v1/companies/{company_id}/admins", false, s.listAdmins},
		{http.MethodPost, "/v1/companies/{company_id}/admins/{user_id}", false, s.assignAdmin},
		{http.MethodDelete, "/v1/companies/{company_id}/admins/{user_id}", false, s.removeAdmin},

		{http.MethodPost, "/v1/companies/{company_id}/quizzes", false, s.createQuiz},
		{http.MethodGet, "/v1/companies/{company_id}/quizzes", false, s.listQuizzes},
		{http.MethodPut, "/v1/quizzes/{quiz_id}", false, s.updateQuiz},
		{http.MethodDelete, "/v1/quizzes/{quiz_id}", false, s.deleteQuiz},
		{http.MethodPost, "/v1/quizzes/{quiz_id}/status", false, s.changeQuizStatus},

		{http.MethodGet, "/v1/notifications", false, s.listNotifications},
		{http.MethodPut, "/v1/notifications/{notification_id}/read", false, s.markNotificationRead},
	}
}

func (s *Server) registerRoutes(mux *runtime.ServeMux) error {
	for _, rt := range s.routes() {
		if err := mux.HandlePath(rt.method, rt.pattern, s.wrap(rt)); err != nil {
			return err
		}
	}

	healthz := s.metrics.Instrument("/healthz", http.HandlerFunc(s.healthz))
	if err := mux.HandlePath(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		healthz.ServeHTTP(w, r)
	}); err != nil {
		return err
	}
	metricsHandler := s.metrics.Handler()
	return mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		metricsHandler.ServeHTTP(w, r)
	})
}

// wrap builds the middleware chain of a route once: metrics, then
// authentication unless the route is public.
func (s *Server) wrap(rt route) runtime.HandlerFunc {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := r.Context().Value(paramsKey{}).(map[string]string)
		actorID, _ := auth.UserIDFromContext(r.Context())
		if err := rt.handle(w, r, params, actorID); err != nil {
			s.writeError(w, r, err)
		}
	})
	if !rt.public {
		h = auth.HTTPMiddleware(h, s.tokens, s.writeError)
	}
	h = s.metrics.Instrument(rt.pattern, h)

	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), paramsKey{}, params)))
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.services.DB.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// users

func (s *Server) signUp(w http.ResponseWriter, r *http.Request, _ map[string]string, _ int64) error {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, err := s.services.Users.SignUp(r.Context(), &models.SignUp{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, userToJSON(user))
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ map[string]string, _ int64) error {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	token, err := s.services.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
	return nil
}

// userParam resolves {user_id}, where "me" is the actor.
func userParam(params map[string]string, actorID int64) (int64, error) {
	if params["user_id"] == me {
		return actorID, nil
	}
	return pathID(params, "user_id")
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, _ map[string]string, _ int64) error {
	page, err := queryPage(r)
	if err != nil {
		return err
	}
	users, err := s.services.Users.ListUsers(r.Context(), page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, usersToJSON(users))
	return nil
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	userID, err := userParam(params, actorID)
	if err != nil {
		return err
	}
	user, err := s.services.Users.GetUser(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userToJSON(user))
	return nil
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	userID, err := userParam(params, actorID)
	if err != nil {
		return err
	}
	var req userUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, err := s.services.Users.UpdateUser(r.Context(), req.toModel(userID), actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userToJSON(user))
	return nil
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	userID, err := userParam(params, actorID)
	if err != nil {
		return err
	}
	if err := s.services.Users.DeleteUser(r.Context(), userID, actorID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// companies

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string, _ int64) error {
	page, err := queryPage(r)
	if err != nil {
		return err
	}
	companies, err := s.services.Companies.ListCompanies(r.Context(), page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, companiesToJSON(companies))
	return nil
}

func (s *Server) createCompany(w http.ResponseWriter, r *http.Request, _ map[string]string, actorID int64) error {
	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	company, err := s.services.Companies.CreateCompany(r.Context(), &models.Company{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  models.Visibility(req.Visibility),
	}, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, companyToJSON(company))
	return nil
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request, params map[string]string, _ int64) error {
	id, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	company, err := s.services.Companies.GetCompany(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, companyToJSON(company))
	return nil
}

func (s *Server) updateCompany(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	id, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	var req companyUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	company, err := s.services.Companies.UpdateCompany(r.Context(), req.toModel(id), actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, companyToJSON(company))
	return nil
}

func (s *Server) deleteCompany(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	id, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	if err := s.services.Companies.DeleteCompany(r.Context(), id, actorID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) changeVisibility(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	id, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	var req visibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	company, err := s.services.Companies.ChangeVisibility(r.Context(), id, models.Visibility(req.Visibility), actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, companyToJSON(company))
	return nil
}

func (s *Server) relationship(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	id, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	rel, err := s.services.Invites.Relationship(r.Context(), id, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, relationshipToJSON(rel))
	return nil
}

// invites and join requests

func (s *Server) sendInvite(w http.ResponseWriter, r *http.Request, _ map[string]string, actorID int64) error {
	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	invite, err := s.services.Invites.SendInvite(r.Context(), req.CompanyID, req.UserID, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, inviteToJSON(invite))
	return nil
}

func (s *Server) listUserInvites(w http.ResponseWriter, r *http.Request, _ map[string]string, actorID int64) error {
	invites, err := s.services.Invites.ListUserInvites(r.Context(), actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, invitesToJSON(invites))
	return nil
}

func (s *Server) cancelInvite(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	userID, err := pathID(params, "user_id")
	if err != nil {
		return err
	}
	if err := s.services.Invites.CancelInvite(r.Context(), companyID, userID, actorID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) respondToInvite(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	inviteID, err := pathID(params, "invite_id")
	if err != nil {
		return err
	}
	decision, err := s.services.Invites.RespondToInvite(r.Context(), inviteID, models.InviteAction(params["action"]), actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, decisionToJSON(decision))
	return nil
}

func (s *Server) listCompanyInvites(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	kind := models.InviteKind(r.URL.Query().Get("kind"))
	invites, err := s.services.Invites.ListCompanyInvites(r.Context(), companyID, actorID, kind)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, invitesToJSON(invites))
	return nil
}

func (s *Server) decideRequest(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	inviteID, err := pathID(params, "invite_id")
	if err != nil {
		return err
	}
	decision, err := s.services.Invites.DecideRequest(r.Context(), companyID, inviteID, models.InviteAction(params["action"]), actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, decisionToJSON(decision))
	return nil
}

func (s *Server) sendJoinRequest(w http.ResponseWriter, r *http.Request, _ map[string]string, actorID int64) error {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	invite, err := s.services.Invites.SendJoinRequest(r.Context(), req.CompanyID, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, inviteToJSON(invite))
	return nil
}

func (s *Server) cancelJoinRequest(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	if err := s.services.Invites.CancelJoinRequest(r.Context(), companyID, actorID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// members and admins

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	members, err := s.services.Invites.ListMembers(r.Context(), companyID, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, membershipsToJSON(members))
	return nil
}

// removeMember expels a member, or leaves the company when user_id is "me".
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	if params["user_id"] == me {
		err = s.services.Invites.LeaveCompany(r.Context(), companyID, actorID)
	} else {
		var userID int64
		if userID, err = pathID(params, "user_id"); err != nil {
			return err
		}
		err = s.services.Invites.RemoveUser(r.Context(), companyID, userID, actorID)
	}
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) listAdmins(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	admins, err := s.services.Invites.ListAdmins(r.Context(), companyID, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, membershipsToJSON(admins))
	return nil
}

func (s *Server) assignAdmin(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	return s.changeRole(w, r, params, actorID, s.services.Invites.AssignAdmin)
}

func (s *Server) removeAdmin(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	return s.changeRole(w, r, params, actorID, s.services.Invites.RemoveAdmin)
}

func (s *Server) changeRole(
	w http.ResponseWriter,
	r *http.Request,
	params map[string]string,
	actorID int64,
	change func(ctx context.Context, companyID, targetID, actorID int64) (*models.Membership, error),
) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	userID, err := pathID(params, "user_id")
	if err != nil {
		return err
	}
	membership, err := change(r.Context(), companyID, userID, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, membershipToJSON(membership))
	return nil
}

// quizzes

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	var req quizRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	quiz, err := s.services.Quizzes.CreateQuiz(r.Context(), &models.Quiz{
		CompanyID:   companyID,
		Title:       req.Title,
		Description: req.Description,
	}, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, quizToJSON(quiz))
	return nil
}

func (s *Server) listQuizzes(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		return err
	}
	page, err := queryPage(r)
	if err != nil {
		return err
	}
	quizzes, err := s.services.Quizzes.ListQuizzes(r.Context(), companyID, actorID, page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, quizzesToJSON(quizzes))
	return nil
}

func (s *Server) updateQuiz(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	quizID, err := pathID(params, "quiz_id")
	if err != nil {
		return err
	}
	var req quizUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	quiz, err := s.services.Quizzes.UpdateQuiz(r.Context(), &models.QuizUpdate{
		ID:          quizID,
		Title:       req.Title,
		Description: req.Description,
	}, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, quizToJSON(quiz))
	return nil
}

func (s *Server) deleteQuiz(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	quizID, err := pathID(params, "quiz_id")
	if err != nil {
		return err
	}
	if err := s.services.Quizzes.DeleteQuiz(r.Context(), quizID, actorID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) changeQuizStatus(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	quizID, err := pathID(params, "quiz_id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	quiz, err := s.services.Quizzes.ChangeStatus(r.Context(), quizID, models.QuizStatus(req.Status), actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, quizToJSON(quiz))
	return nil
}

// notifications

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request, _ map[string]string, actorID int64) error {
	page, err := queryPage(r)
	if err != nil {
		return err
	}
	notifications, err := s.services.Notifications.ListNotifications(r.Context(), actorID, page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, notificationsToJSON(notifications))
	return nil
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request, params map[string]string, actorID int64) error {
	id, err := pathID(params, "notification_id")
	if err != nil {
		return err
	}
	n, err := s.services.Notifications.MarkRead(r.Context(), id, actorID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, notificationsToJSON([]*models.Notification{n})[0])
	return nil
}
