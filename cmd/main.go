package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/vanbook/backend/internal/app"
	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/controllers"
	"github.com/vanbook/backend/internal/middleware"
	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/services"
	"github.com/vanbook/backend/internal/tenant"
	"github.com/vanbook/backend/internal/utils"
)

const appName = "vanbook-backend"

func main() {
	utils.InitLogger(appName)
	cfg := config.LoadConfig(appName)

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	db := repositories.NewRoutedDB(application.Registry)

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	userRepo := repositories.NewUserRepository(db)
	companyRepo := repositories.NewCompanyRepository(db)
	codeRepo := repositories.NewCodeRepository(db)
	taskRepo := repositories.NewScheduledTaskRepository(db)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	scheduler := services.NewSchedulerService(taskRepo)
	otpService := services.NewOTPService(codeRepo, scheduler)
	progressService := services.NewProgressService(codeRepo, companyRepo)
	notifier := services.NewNotificationService(cfg)
	jwtService := services.NewJWTService(cfg)

	authService := services.NewAuthService(
		userRepo,
		companyRepo,
		codeRepo,
		otpService,
		progressService,
		notifier,
		jwtService,
		cfg,
	)
	userService := services.NewUserService(
		userRepo,
		companyRepo,
		otpService,
		progressService,
		notifier,
	)
	cleanupService := services.NewCleanupService(codeRepo, taskRepo)

	dispatcher := services.NewTaskDispatcher(taskRepo)
	dispatcher.Register(models.TaskRemoveExpiredCode, func(ctx context.Context, payload map[string]any) error {
		code, _ := payload["code"].(string)
		typ, _ := payload["type"].(string)
		return otpService.RemoveExpired(ctx, code, models.CodeType(typ))
	})

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	authController := controllers.NewAuthController(authService)
	userController := controllers.NewUserController(userService)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	// Health
	router.HandleFunc("/health", healthController.HealthCheckHandler).Methods("GET")

	resolveTenant := middleware.ResolveTenant(application.Registry)
	requireAuth := middleware.RequireAuth(jwtService, userRepo)

	// /auth/v1
	authRouter := router.PathPrefix("/auth").Subrouter()
	v1Router := authRouter.PathPrefix("/v1").Subrouter()
	v1Router.Use(resolveTenant)

	v1Router.HandleFunc("/signup", authController.SignUp).Methods("POST")
	v1Router.HandleFunc("/signin", authController.SignIn).Methods("POST")
	v1Router.HandleFunc("/request_reset_password", authController.RequestResetPassword).Methods("POST")
	v1Router.HandleFunc("/resend_reset_password", authController.ResendResetPassword).Methods("POST")
	v1Router.HandleFunc("/reset_password", authController.ResetPassword).Methods("POST")
	v1Router.HandleFunc("/setup_password", authController.SetupPassword).Methods("POST")

	// Phone verification requires a signed-in user
	verifyRouter := v1Router.PathPrefix("/verify").Subrouter()
	verifyRouter.Use(requireAuth)
	verifyRouter.HandleFunc("/start", authController.VerifyUser).Methods("POST")
	verifyRouter.HandleFunc("/confirm", authController.ConfirmOTP).Methods("POST")
	verifyRouter.HandleFunc("/resend", authController.ResendOTP).Methods("POST")

	// Admin endpoints
	adminRouter := v1Router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(requireAuth, middleware.RequireRole(models.RoleMaster))
	adminRouter.HandleFunc("/users", authController.CreateUserByAdmin).Methods("POST")

	// /user/v1
	userRouter := router.PathPrefix("/user").Subrouter()
	userV1Router := userRouter.PathPrefix("/v1").Subrouter()
	userV1Router.Use(resolveTenant, requireAuth)
	userV1Router.HandleFunc("/me", userController.GetMe).Methods("GET")
	userV1Router.HandleFunc("/me", userController.UpdateProfile).Methods("PUT")

	//----------------------------------------------------------------------
	// Background jobs: sweep queue polling + nightly cleanup, per tenant
	//----------------------------------------------------------------------
	c := cron.New()

	pollSpec := fmt.Sprintf("@every %s", config.SchedulerPollInterval)
	_, schErr := c.AddFunc(pollSpec, func() {
		for _, code := range application.Registry.Codes() {
			ctx := tenant.WithTenant(context.Background(), code)
			if e := dispatcher.DispatchDue(ctx); e != nil {
				utils.Logger.WithError(e).Errorf("Scheduled task dispatch failed for tenant %q", code)
			}
		}
	})
	if schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule task dispatch job")
	}

	_, schErr = c.AddFunc("0 3 * * *", func() {
		for _, code := range application.Registry.Codes() {
			ctx := tenant.WithTenant(context.Background(), code)
			if e := cleanupService.CleanupDaily(ctx); e != nil {
				utils.Logger.WithError(e).Errorf("Nightly cleanup failed for tenant %q", code)
			}
		}
	})
	if schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule nightly cleanup job")
	}

	c.Start()
	defer c.Stop()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.TenantHeader},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
