package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
	"go.uber.org/zap"
)

type errorResponse struct {
	Details string `json:"details"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type signUpRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type userUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type companyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

type companyUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

type companyResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type inviteRequest struct {
	CompanyID int64 `json:"company_id"`
	UserID    int64 `json:"user_id"`
}

type joinRequest struct {
	CompanyID int64 `json:"company_id"`
}

type inviteResponse struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type membershipResponse struct {
	CompanyID int64  `json:"company_id"`
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
}

type decisionResponse struct {
	Invite     inviteResponse      `json:"invite"`
	Membership *membershipResponse `json:"membership,omitempty"`
}

type relationshipResponse struct {
	Kind   string          `json:"kind"`
	Role   string          `json:"role,omitempty"`
	Invite *inviteResponse `json:"invite,omitempty"`
}

type quizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type quizUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type quizResponse struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	CreatedBy   int64     `json:"created_by"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func userToJSON(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func usersToJSON(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userToJSON(u))
	}
	return out
}

func (r *userUpdateRequest) toModel(id int64) *models.UserUpdate {
	return &models.UserUpdate{ID: id, FirstName: r.FirstName, LastName: r.LastName}
}

func companyToJSON(c *models.Company) companyResponse {
	return companyResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Visibility:  string(c.Visibility),
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func companiesToJSON(companies []*models.Company) []companyResponse {
	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, companyToJSON(c))
	}
	return out
}

func (r *companyUpdateRequest) toModel(id int64) *models.CompanyUpdate {
	update := &models.CompanyUpdate{ID: id, Name: r.Name, Description: r.Description}
	if r.Visibility != nil {
		v := models.Visibility(*r.Visibility)
		update.Visibility = &v
	}
	return update
}

func inviteToJSON(i *models.Invite) inviteResponse {
	return inviteResponse{
		ID:        i.ID,
		CompanyID: i.CompanyID,
		UserID:    i.UserID,
		Kind:      string(i.Kind),
		Status:    string(i.Status),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func invitesToJSON(invites []*models.Invite) []inviteResponse {
	out := make([]inviteResponse, 0, len(invites))
	for _, i := range invites {
		out = append(out, inviteToJSON(i))
	}
	return out
}

func membershipToJSON(m *models.Membership) membershipResponse {
	return membershipResponse{CompanyID: m.CompanyID, UserID: m.UserID, Role: string(m.Role)}
}

func membershipsToJSON(memberships []*models.Membership) []membershipResponse {
	out := make([]membershipResponse, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, membershipToJSON(m))
	}
	return out
}

func decisionToJSON(d *models.InviteDecision) decisionResponse {
	resp := decisionResponse{Invite: inviteToJSON(d.Invite)}
	if d.Membership != nil {
		m := membershipToJSON(d.Membership)
		resp.Membership = &m
	}
	return resp
}

func relationshipToJSON(rel *models.Relationship) relationshipResponse {
	resp := relationshipResponse{Kind: string(rel.Kind), Role: string(rel.Role)}
	if rel.Invite != nil {
		i := inviteToJSON(rel.Invite)
		resp.Invite = &i
	}
	return resp
}

func quizToJSON(q *models.Quiz) quizResponse {
	return quizResponse{
		ID:          q.ID,
		CompanyID:   q.CompanyID,
		CreatedBy:   q.CreatedBy,
		Title:       q.Title,
		Description: q.Description,
		Status:      string(q.Status),
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func quizzesToJSON(quizzes []*models.Quiz) []quizResponse {
	out := make([]quizResponse, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, quizToJSON(q))
	}
	return out
}

func notificationsToJSON(notifications []*models.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Text:      n.Text,
			Status:    string(n.Status),
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

// pathID parses a numeric path parameter.
func pathID(params map[string]string, name string) (int64, error) {
	id, err := strconv.ParseInt(params[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, e.Validation("Invalid %s '%s'.", name, params[name])
	}
	return id, nil
}

// queryPage reads page and page_size; missing values are left zero for
// the service defaults.
func queryPage(r *http.Request) (models.Page, error) {
	var page models.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"page": &page.Page, "page_size": &page.PageSize} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return page, e.Validation("Invalid %s '%s'.", name, raw)
		}
		*dst = v
	}
	return page, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return e.Validation("Invalid request body.")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// mapServiceError maps domain errors to HTTP status codes. Anything
// uncoded is an internal error and its text is never returned.
func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, e.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, e.ErrPermissionDenied):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, e.ErrInvalidInput), errors.Is(err, e.ErrSelfReference):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapServiceError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Internal server error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Details: msg})
}
