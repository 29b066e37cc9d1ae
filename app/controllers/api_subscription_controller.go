package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/subfoxapp/SubFox/app/models"
	"github.com/subfoxapp/SubFox/app/repository"
	"github.com/subfoxapp/SubFox/internal/pkg/querycache"
	"github.com/subfoxapp/SubFox/internal/pkg/usercontext"
)

type subscriptionRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=150"`
	LogoURL         string  `json:"logo_url" validate:"omitempty,url,max=255"`
	Price           float64 `json:"price" validate:"gte=0"`
	Currency        string  `json:"currency" validate:"required,len=3,alpha"`
	BillingCycle    string  `json:"billing_cycle" validate:"oneof=daily weekly monthly quarterly yearly"`
	RenewalDate     string  `json:"renewal_date" validate:"required,datetime=2006-01-02"`
	NextBillingDate string  `json:"next_billing_date" validate:"omitempty,datetime=2006-01-02"`
}

type transactionRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
}

// toModel builds a Subscription owned by userID from a validated request.
func (r *subscriptionRequest) toModel(userID uint) (*models.Subscription, error) {
	renewal, err := parseDate(r.RenewalDate)
	if err != nil {
		return nil, err
	}
	next, err := parseDatePtr(r.NextBillingDate)
	if err != nil {
		return nil, err
	}
	return &models.Subscription{
		UserID:          userID,
		Name:            r.Name,
		LogoURL:         r.LogoURL,
		Price:           r.Price,
		Currency:        r.Currency,
		BillingCycle:    r.BillingCycle,
		RenewalDate:     renewal,
		NextBillingDate: next,
	}, nil
}

func subscriptionJSON(sub *models.Subscription) fiber.Map {
	history := make([]fiber.Map, 0, len(sub.Transactions))
	for _, tx := range sub.Transactions {
		history = append(history, fiber.Map{
			"amount": tx.Amount,
			"date":   tx.Date.Format(dateLayout),
		})
	}
	return fiber.Map{
		"id":                  sub.UUID,
		"user_id":             sub.UserID,
		"name":                sub.Name,
		"logo_url":            sub.LogoURL,
		"price":               sub.Price,
		"currency":            sub.Currency,
		"billing_cycle":       sub.BillingCycle,
		"renewal_date":        sub.RenewalDate.Format(dateLayout),
		"next_billing_date":   formatDatePtr(sub.NextBillingDate),
		"transaction_history": history,
	}
}

// cacheJSON reports entry freshness alongside the data so clients can drive
// spinners and "last updated" hints.
func cacheJSON(key querycache.Key) fiber.Map {
	snap, ok := queryCache.Snapshot(key)
	if !ok {
		return fiber.Map{"state": "absent"}
	}
	out := fiber.Map{
		"state":      string(snap.State),
		"fetched_at": snap.FetchedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if snap.Err != nil {
		out["error"] = snap.Err.Error()
	}
	return out
}

// HandleListSubscriptions returns the authenticated user's subscriptions via
// the query cache.
func HandleListSubscriptions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	subs, err := queryCache.FetchList(c.UserContext(), userCtx.UserID)
	if err != nil {
		// Store errors pass through verbatim; remapping is presentation logic.
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}

	items := make([]fiber.Map, 0, len(subs))
	for i := range subs {
		items = append(items, subscriptionJSON(&subs[i]))
	}
	return c.JSON(fiber.Map{
		"subscriptions": items,
		"cache":         cacheJSON(querycache.ListKey(userCtx.UserID)),
	})
}

// HandleGetSubscription returns one subscription by its public id. A missing
// record is a 404, not a store error.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	id := c.Params("uuid")
	if id == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "subscription id missing")
	}

	sub, err := queryCache.FetchDetail(c.UserContext(), id)
	if err != nil {
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}
	if sub == nil || sub.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	}

	return c.JSON(fiber.Map{
		"subscription": subscriptionJSON(sub),
		"cache":        cacheJSON(querycache.DetailKey(id)),
	})
}

// HandleCreateSubscription inserts a new subscription for the session user.
func HandleCreateSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	sub, err := req.toModel(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	id, err := queryCache.Create(c.UserContext(), sub)
	if err != nil {
		if errors.Is(err, querycache.ErrOwnerRequired) {
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// HandleUpdateSubscription replaces every field of an existing subscription.
func HandleUpdateSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	id := c.Params("uuid")
	if id == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "subscription id missing")
	}

	existing, err := queryCache.FetchDetail(c.UserContext(), id)
	if err != nil {
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}
	if existing == nil || existing.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	}

	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	sub, err := req.toModel(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	sub.UUID = id

	if err := queryCache.Update(c.UserContext(), sub); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
		}
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}

	return c.JSON(fiber.Map{"id": id})
}

// HandleDeleteSubscription removes a subscription. The cache recovers the
// owner from the detail entry when it has one; this handler additionally
// invalidates the session owner's list key, covering deletes initiated from
// a list view where no detail entry was ever fetched.
func HandleDeleteSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	id := c.Params("uuid")
	if id == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "subscription id missing")
	}

	sub, err := queryCache.FetchDetail(c.UserContext(), id)
	if err != nil {
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}
	if sub == nil || sub.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	}

	if err := queryCache.Remove(c.UserContext(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
		}
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}
	queryCache.InvalidateList(userCtx.UserID)

	return c.JSON(fiber.Map{"deleted": id})
}

// HandleAppendTransaction records one charge in a subscription's history.
func HandleAppendTransaction(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	id := c.Params("uuid")
	sub, err := queryCache.FetchDetail(c.UserContext(), id)
	if err != nil {
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}
	if sub == nil || sub.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	}

	var req transactionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	repo := repository.GetGlobalFactory().GetSubscriptionRepository()
	tx := &models.Transaction{Amount: req.Amount, Date: date}
	if err := repo.AppendTransaction(c.UserContext(), id, tx); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
		}
		return jsonError(c, fiber.StatusBadGateway, "store_unavailable", err.Error())
	}

	queryCache.InvalidateDetail(id)
	queryCache.InvalidateList(userCtx.UserID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"amount": req.Amount,
		"date":   req.Date,
	})
}
