package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/shophub/shophub/logging"
)

// ControllerConfig carries the collaborators the HTTP boundary needs.
type ControllerConfig struct {
	Logger   logging.Logger
	Tokens   TokenService
	Provider *UserProvider

	Register *RegisterUserHandler
	Verify   *VerifyEmailHandler
	Resend   *ResendVerificationHandler
	Forgot   *InitializePasswordResetHandler
	Reset    *FinalizePasswordResetHandler
	Change   *ChangePasswordHandler
	Profile  *UpdateProfileHandler

	CookieName    string
	CookieTTL     time.Duration
	SecureCookies bool
}

// Controller is the JSON boundary for the credential lifecycle. Every
// handler returns its error to the app-level error handler, which owns
// the category-to-status mapping.
type Controller struct {
	cfg ControllerConfig
}

// NewController will create a new Controller
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "token"
	}
	return &Controller{cfg: cfg}
}

// RegisterRoutes mounts the auth endpoints. The protected group needs
// the user store to resolve sessions.
func (a *Controller) RegisterRoutes(router fiber.Router, users Users) {
	router.Post("/register", a.RegisterPost)
	router.Post("/login", a.LoginPost)
	router.Post("/logout", a.LogoutPost)
	router.Get("/verify-email/:token", a.VerifyEmailGet)
	router.Post("/forgot-password", a.ForgotPasswordPost)
	router.Post("/reset-password/:token", a.ResetPasswordPost)

	protected := Protected(a.cfg.Tokens, users, a.cfg.CookieName)
	router.Get("/me", protected, a.MeGet)
	router.Put("/update-profile", protected, a.UpdateProfilePut)
	router.Post("/resend-verification", protected, a.ResendVerificationPost)
	router.Put("/change-password", protected, a.ChangePasswordPut)
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *Controller) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	var user *User
	err := a.cfg.Register.Execute(c.UserContext(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return err
	}

	return a.sendTokenResponse(c, fiber.StatusCreated, user)
}

// LoginPayload is the login body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := a.cfg.Provider.VerifyIdentity(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return a.sendTokenResponse(c, fiber.StatusOK, user)
}

// LogoutPost clears the session cookie. The JWT itself stays valid
// until expiry, there is no server-side session to revoke.
func (a *Controller) LogoutPost(c *fiber.Ctx) error {
	a.clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (a *Controller) MeGet(c *fiber.Ctx) error {
	user, ok := UserFromContext(c)
	if !ok {
		return ErrNoToken
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    profileResponse(user),
	})
}

// UpdateProfilePayload is the profile body; empty fields are ignored
type UpdateProfilePayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Validate will validate the payload
func (r UpdateProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 100)),
		validation.Field(&r.Address, validation.Length(0, 500)),
	)
}

func (a *Controller) UpdateProfilePut(c *fiber.Ctx) error {
	current, ok := UserFromContext(c)
	if !ok {
		return ErrNoToken
	}

	payload := new(UpdateProfilePayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	var user *User
	err := a.cfg.Profile.Execute(c.UserContext(), UpdateProfileMessage{
		UserID:  current.ID,
		Name:    payload.Name,
		Phone:   payload.Phone,
		Address: payload.Address,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    profileResponse(user),
	})
}

func (a *Controller) VerifyEmailGet(c *fiber.Ctx) error {
	err := a.cfg.Verify.Execute(c.UserContext(), VerifyEmailMessage{
		Token: c.Params("token"),
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email verified successfully",
	})
}

func (a *Controller) ResendVerificationPost(c *fiber.Ctx) error {
	user, ok := UserFromContext(c)
	if !ok {
		return ErrNoToken
	}

	err := a.cfg.Resend.Execute(c.UserContext(), ResendVerificationMessage{
		UserID: user.ID,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Verification email sent",
	})
}

// ForgotPasswordPayload is the forgot-password body
type ForgotPasswordPayload struct {
	Email string `json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *Controller) ForgotPasswordPost(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	err := a.cfg.Forgot.Execute(c.UserContext(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email sent",
	})
}

// ResetPasswordPayload is the reset-password body
type ResetPasswordPayload struct {
	Password string `json:"password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *Controller) ResetPasswordPost(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	var user *User
	err := a.cfg.Reset.Execute(c.UserContext(), FinalizePasswordResetMessage{
		Token:    c.Params("token"),
		Password: payload.Password,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return err
	}

	return a.sendTokenResponse(c, fiber.StatusOK, user)
}

// ChangePasswordPayload is the change-password body
type ChangePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

func (a *Controller) ChangePasswordPut(c *fiber.Ctx) error {
	current, ok := UserFromContext(c)
	if !ok {
		return ErrNoToken
	}

	payload := new(ChangePasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	var user *User
	err := a.cfg.Change.Execute(c.UserContext(), ChangePasswordMessage{
		UserID:          current.ID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return err
	}

	return a.sendTokenResponse(c, fiber.StatusOK, user)
}

// sendTokenResponse issues a fresh session token and delivers it both
// in the body and as an http-only cookie, so browser and API clients
// get the same session from one response.
func (a *Controller) sendTokenResponse(c *fiber.Ctx, status int, user *User) error {
	token, err := a.cfg.Tokens.Generate(user)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.CookieName,
		Value:    token,
		Expires:  time.Now().Add(a.cfg.CookieTTL),
		HTTPOnly: true,
		Secure:   a.cfg.SecureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    sessionUserResponse(user),
	})
}

func (a *Controller) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   a.cfg.SecureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

func sessionUserResponse(user *User) fiber.Map {
	return fiber.Map{
		"id":              user.ID.String(),
		"name":            user.Name,
		"email":           user.Email,
		"role":            string(user.Role),
		"isEmailVerified": user.IsEmailVerified,
	}
}

func profileResponse(user *User) fiber.Map {
	resp := sessionUserResponse(user)
	resp["profile"] = fiber.Map{
		"phone":   user.Phone,
		"address": user.Address,
	}
	if user.CreatedAt != nil {
		resp["createdAt"] = user.CreatedAt
	}
	return resp
}
