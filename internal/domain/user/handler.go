package user

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

type Handler struct {
	svc        *Service
	issuer     *auth.TokenIssuer
	oauth      *auth.OAuthRegistry
	challenges *auth.ChallengeStore
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer, oauth *auth.OAuthRegistry, challenges *auth.ChallengeStore) *Handler {
	return &Handler{svc: svc, issuer: issuer, oauth: oauth, challenges: challenges}
}

// RegisterPublicRoutes mounts the sign-in endpoints. These run outside the
// session middleware.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/pin", h.LoginPIN)
	g.GET("/auth/oauth/:provider", h.OAuthURL)
	g.POST("/auth/oauth/:provider", h.OAuthCallback)
	g.POST("/auth/webauthn/challenge", h.WebAuthnChallenge)
	g.POST("/auth/webauthn/login", h.WebAuthnLogin)
}

// RegisterRoutes mounts account management, admin-only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/accounts", auth.RequireAdmin())
	admin.GET("", h.ListAccounts)
	admin.POST("", h.CreateAccount)
	admin.DELETE("/:email", h.DeleteAccount)
	admin.PUT("/:email/pin", h.SetPIN)
	admin.PUT("/:email/credential", h.RegisterCredential)
}

type tokenResponse struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (h *Handler) issue(c echo.Context, a *Account, provider string) error {
	token, err := h.issuer.Issue(a.Email, a.Role, provider)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	return c.JSON(http.StatusOK, tokenResponse{
		Token:    token,
		Email:    a.Email,
		FullName: a.FullName,
		Role:     a.Role,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.issue(c, a, "password")
}

type pinRequest struct {
	Email string `json:"email"`
	PIN   string `json:"pin"`
}

func (h *Handler) LoginPIN(c echo.Context) error {
	var req pinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.AuthenticatePIN(c.Request().Context(), req.Email, req.PIN)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.issue(c, a, "pin")
}

func (h *Handler) OAuthURL(c echo.Context) error {
	provider, err := h.oauth.Provider(c.Param("provider"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	state := uuid.NewString()
	return c.JSON(http.StatusOK, map[string]string{
		"url":   provider.AuthCodeURL(state),
		"state": state,
	})
}

type oauthCallbackRequest struct {
	Code string `json:"code"`
}

func (h *Handler) OAuthCallback(c echo.Context) error {
	provider, err := h.oauth.Provider(c.Param("provider"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	var req oauthCallbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "authorization code required")
	}

	profile, err := provider.Exchange(c.Request().Context(), req.Code)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "oauth exchange failed")
	}
	a, err := h.svc.UpsertFromOAuth(c.Request().Context(), *profile)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.issue(c, a, profile.Provider)
}

type challengeRequest struct {
	Email string `json:"email"`
}

func (h *Handler) WebAuthnChallenge(c echo.Context) error {
	var req challengeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// A challenge is issued whether or not a credential exists, so the
	// endpoint does not reveal which accounts have biometrics set up.
	challenge, err := h.challenges.Issue(req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"challenge": challenge})
}

type webAuthnLoginRequest struct {
	Email     string `json:"email"`
	Signature string `json:"signature"`
}

func (h *Handler) WebAuthnLogin(c echo.Context) error {
	var req webAuthnLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	challenge, ok := h.challenges.Consume(req.Email)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no outstanding challenge")
	}
	secret, err := h.svc.CredentialSecret(c.Request().Context(), req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !auth.VerifyAssertion(challenge, secret, req.Signature) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	a, err := h.svc.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	return h.issue(c, a, "webauthn")
}

type createAccountRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (h *Handler) CreateAccount(c echo.Context) error {
	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Create(c.Request().Context(), req.Email, req.FullName, req.Role, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAccounts(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteAccount(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("email")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type setPINRequest struct {
	PIN string `json:"pin"`
}

func (h *Handler) SetPIN(c echo.Context) error {
	var req setPINRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetPIN(c.Request().Context(), c.Param("email"), req.PIN); err != nil {
		switch {
		case errors.Is(err, ErrWeakPIN):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type registerCredentialRequest struct {
	Secret string `json:"secret"`
}

func (h *Handler) RegisterCredential(c echo.Context) error {
	var req registerCredentialRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Secret == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "credential secret required")
	}
	if err := h.svc.RegisterCredential(c.Request().Context(), c.Param("email"), req.Secret); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
