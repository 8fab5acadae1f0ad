package router

import (
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type EngineConfig struct {
	Production  bool
	ServiceName string
	CORSOrigins []string
}

// InitEngine builds the gin engine with the middleware every route shares.
func InitEngine(cfg EngineConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	registerJSONFieldNames()

	router := gin.Default()
	router.Use(RequestID())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return router
}

func InitializeRoutes(router *gin.Engine, h *Handler, jwtSecret []byte) {
	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		purchases := api.Group("/purchases")
		purchases.Use(AuthMiddleware(jwtSecret))
		{
			purchases.POST("/add-to-cart", h.AddToCart)
			purchases.PUT("/update-purchase", h.UpdatePurchase)
			purchases.POST("/buy-products", h.BuyProducts)
			purchases.GET("", h.GetPurchases)
			purchases.GET("/cart", h.GetCart)
			purchases.DELETE("", h.DeletePurchases)
			purchases.POST("/create-payment-intent", h.CreatePaymentIntent)
			purchases.POST("/update-payment-intent", h.UpdatePaymentIntent)
			purchases.GET("/insights", h.GetInsights)
		}

		user := api.Group("/user")
		user.Use(AuthMiddleware(jwtSecret))
		{
			user.GET("/me", h.GetMe)
			user.PUT("/me", h.UpdateMe)
		}
	}
}

// registerJSONFieldNames makes validation errors report json field names.
func registerJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}
