package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/subfoxapp/SubFox/app/models"
	"github.com/subfoxapp/SubFox/app/repository"
	"github.com/subfoxapp/SubFox/internal/pkg/database"
	"github.com/subfoxapp/SubFox/internal/pkg/env"
	"github.com/subfoxapp/SubFox/internal/pkg/mail"
	"github.com/subfoxapp/SubFox/internal/pkg/session"
	"github.com/subfoxapp/SubFox/internal/pkg/statistics"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// activationLink builds the confirmation URL sent in the activation mail.
func activationLink(token string) string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base + "/activate?token=" + token
}

// HandleAuthRegister creates a new account from a JSON payload. The account
// starts inactive; a confirmation mail carries the activation link.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := user.GenerateActivationToken(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", fmt.Sprintf("something went wrong: %s", err))
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if err := repo.Create(user); err != nil {
		return jsonError(c, fiber.StatusConflict, "registration_failed", fmt.Sprintf("could not create account: %s", err))
	}

	go func(name, email, token string) {
		body := mail.ActivationMailBody(name, activationLink(token))
		_ = mail.SendMail(email, "Activate your SubFox account", body)
	}(user.Name, user.Email, user.ActivationToken)

	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"message": "check your mailbox for the activation link",
	})
}

// HandleAuthActivate consumes an activation token and unlocks the account.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "activation token missing")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByActivationToken(token)
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "unknown activation token")
	}

	user.Activate()
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", fmt.Sprintf("something went wrong: %s", err))
	}

	return c.JSON(fiber.Map{
		"id":        user.ID,
		"activated": true,
	})
}

// HandleAuthLogin verifies credentials and starts a session.
//
// notice: in production you should not inform the user
// with detailed messages about login failures
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "login_failed", "there is a problem with the login process")
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "login_failed", "there is a problem with the login process")
	}

	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "account is not active")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", fmt.Sprintf("something went wrong: %s", err))
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)

	if err := sess.Save(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", fmt.Sprintf("something went wrong: %s", err))
	}

	database.GetDB().Model(user).Update("last_login_at", time.Now())

	if authEvents != nil {
		authEvents.SignedIn(user.ID, user.Email)
	}

	return c.JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleAuthLogout destroys the session and publishes the sign-out event.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "logged out (no sess)")
	}

	if err := sess.Destroy(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", fmt.Sprintf("something went wrong: %s", err))
	}

	if authEvents != nil {
		authEvents.SignedOut()
	}

	return c.JSON(fiber.Map{"message": "logged out"})
}
