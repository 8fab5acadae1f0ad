package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/purchases/pkg/ai"
	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/models"
)

type PurchaseService interface {
	AddToCart(ctx context.Context, user bson.ObjectID, item models.PurchaseItem) (*models.PurchaseDetail, error)
	UpdatePurchase(ctx context.Context, user bson.ObjectID, item models.PurchaseItem) (*models.PurchaseDetail, error)
	BuyProducts(ctx context.Context, user bson.ObjectID, items []models.PurchaseItem) ([]models.PurchaseDetail, error)
	GetPurchases(ctx context.Context, user bson.ObjectID, status models.PurchaseStatus) ([]models.PurchaseDetail, error)
	GetCart(ctx context.Context, user bson.ObjectID) ([]models.PurchaseDetail, error)
	DeletePurchases(ctx context.Context, user bson.ObjectID, ids []string) (int64, error)
	CreatePaymentIntent(ctx context.Context, user bson.ObjectID, refs []models.PurchaseRef) (*models.PaymentIntentResult, error)
	UpdatePaymentIntent(ctx context.Context, user bson.ObjectID, refs []models.PurchaseRef, orderID string) (json.RawMessage, error)
	OrderStats(ctx context.Context, user bson.ObjectID) (*models.OrderStats, error)
}

type AccountService interface {
	GetMe(ctx context.Context, id bson.ObjectID) (*models.User, error)
	UpdateMe(ctx context.Context, id bson.ObjectID, req models.UpdateMeRequest) (*models.User, error)
}

type InsightsGenerator interface {
	GeneratePurchaseInsights(ctx context.Context, stats *models.OrderStats) *ai.AIReportResponse
}

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

type Handler struct {
	purchases PurchaseService
	accounts  AccountService
	insights  InsightsGenerator
	health    map[string]Pinger
}

func NewHandler(purchases PurchaseService, accounts AccountService, insights InsightsGenerator, health map[string]Pinger) *Handler {
	return &Handler{purchases: purchases, accounts: accounts, insights: insights, health: health}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{"status": "OK"}
	healthy := true
	for name, ping := range h.health {
		if err := ping(ctx); err != nil {
			log.Printf("Health check %s failed: %v", name, err)
			status[name] = "Unavailable"
			healthy = false
			continue
		}
		status[name] = "Connected"
	}
	if !healthy {
		status["status"] = "DEGRADED"
		c.JSON(http.StatusServiceUnavailable, global.SuccessResponse("Service degraded", status))
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Service healthy", status))
}

func (h *Handler) AddToCart(c *gin.Context) {
	var item models.PurchaseItem
	if !bindJSON(c, &item) {
		return
	}
	purchase, err := h.purchases.AddToCart(c.Request.Context(), callerID(c), item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Added to cart", purchase))
}

func (h *Handler) UpdatePurchase(c *gin.Context) {
	var item models.PurchaseItem
	if !bindJSON(c, &item) {
		return
	}
	purchase, err := h.purchases.UpdatePurchase(c.Request.Context(), callerID(c), item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Purchase updated", purchase))
}

func (h *Handler) BuyProducts(c *gin.Context) {
	var items []models.PurchaseItem
	if !bindJSON(c, &items) {
		return
	}
	purchases, err := h.purchases.BuyProducts(c.Request.Context(), callerID(c), items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Products bought", purchases))
}

func (h *Handler) GetPurchases(c *gin.Context) {
	status, err := models.ParsePurchaseStatus(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid status", map[string]string{"status": err.Error()}))
		return
	}
	purchases, err := h.purchases.GetPurchases(c.Request.Context(), callerID(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Purchases retrieved", purchases))
}

func (h *Handler) GetCart(c *gin.Context) {
	purchases, err := h.purchases.GetCart(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Cart retrieved", purchases))
}

func (h *Handler) DeletePurchases(c *gin.Context) {
	var ids []string
	if !bindJSON(c, &ids) {
		return
	}
	deleted, err := h.purchases.DeletePurchases(c.Request.Context(), callerID(c), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(
		fmt.Sprintf("Deleted %d purchases", deleted),
		gin.H{"deleted_count": deleted},
	))
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req models.CreatePaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.purchases.CreatePaymentIntent(c.Request.Context(), callerID(c), req.SelectedPurchases)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Payment intent created", result))
}

func (h *Handler) UpdatePaymentIntent(c *gin.Context) {
	var req models.UpdatePaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}
	intent, err := h.purchases.UpdatePaymentIntent(c.Request.Context(), callerID(c), req.SelectedPurchases, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Payment intent updated", intent))
}

func (h *Handler) GetInsights(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := h.purchases.OrderStats(ctx, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if h.insights == nil {
		c.JSON(http.StatusOK, global.SuccessResponse("Order statistics", stats))
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Purchase insights", h.insights.GeneratePurchaseInsights(ctx, stats)))
}

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.accounts.GetMe(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Profile retrieved", user))
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req models.UpdateMeRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.accounts.UpdateMe(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse("Profile updated", user))
}

// bindJSON binds the body into dst. It writes the error response itself and
// reports whether the handler may continue.
func bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	if fields := validationFields(err); len(fields) > 0 {
		c.JSON(http.StatusUnprocessableEntity, global.ErrorResponse("Validation failed", fields))
		return false
	}
	c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid JSON format", map[string]string{"body": err.Error()}))
	return false
}

// validationFields flattens validator errors into field -> failed rule.
// Errors from slice bodies are keyed by element index.
func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var sliceErrs binding.SliceValidationError
	if errors.As(err, &sliceErrs) {
		for i, elemErr := range sliceErrs {
			for field, rule := range validationFields(elemErr) {
				fields[fmt.Sprintf("[%d].%s", i, field)] = rule
			}
		}
		return fields
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}

func respondError(c *gin.Context, err error) {
	var appErr *global.AppError
	if !errors.As(err, &appErr) {
		log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, global.ErrorResponse(err.Error(), nil))
		return
	}
	if appErr.Status >= http.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(appErr.Status, global.ErrorResponse(err.Error(), appErr.Fields))
}
