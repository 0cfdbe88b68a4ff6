package routes

import (
	"log"
	"project/backend/config"
	"project/backend/controllers"
	"project/backend/middleware"
	"project/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	// Services
	graph := services.NewContentGraph(db)
	tracker := services.NewLessonTracker(db)
	notifier := services.NewEmailNotifier(db, cfg, logger)
	renderer := services.URLRenderer{BaseURL: cfg.CertificateBaseURL}
	issuer := services.NewCertificateIssuer(db, renderer, notifier, logger)
	aggregator := services.NewAggregator(db, cfg, graph, tracker, issuer, notifier, logger)
	grader := services.NewGrader(db, cfg)
	reconciler := services.NewReconciler(db, cfg, aggregator, notifier, logger)
	checkout := services.NewCheckoutService(db, cfg, logger)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	staffMiddleware := middleware.RequireRole(db, cfg, "instructor", "admin")

	// Webhooks are authenticated by the payment processor, not by users
	paymentsController := controllers.NewPaymentsController(db, cfg, reconciler, checkout)
	app.Post("/api/webhooks/stripe", paymentsController.StripeWebhook)
	app.Post("/api/webhooks/midtrans", paymentsController.MidtransNotification)

	// Public certificate verification
	certificatesController := controllers.NewCertificatesController(db, cfg, issuer)
	app.Get("/api/certificates/verify/:code", certificatesController.VerifyCertificate)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg, graph)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetMyCourses)
	courses.Get("/catalog", coursesController.GetCatalog)
	courses.Get("/:id", coursesController.GetCourseDetails)

	// Lessons routes
	lessonsController := controllers.NewLessonsController(db, cfg, tracker, aggregator)
	lessons := app.Group("/api/lessons", authMiddleware)
	lessons.Get("/:id", lessonsController.GetLesson)
	lessons.Post("/:id/complete", lessonsController.MarkComplete)
	lessons.Post("/:id/time", lessonsController.RecordTime)

	// Quizzes routes
	quizzesController := controllers.NewQuizzesController(db, cfg, grader, aggregator)
	quizzes := app.Group("/api/quizzes", authMiddleware)
	quizzes.Get("/:id", quizzesController.GetQuiz)
	quizzes.Post("/:id/attempts", quizzesController.SubmitAttempt)
	quizzes.Get("/:id/attempts", quizzesController.GetMyAttempts)

	// Progress routes
	progressController := controllers.NewProgressController(db, cfg, aggregator)
	app.Get("/api/progress/:courseId", authMiddleware, progressController.GetMyProgress)
	app.Post("/api/progress/:courseId/recompute", authMiddleware, progressController.RecomputeProgress)

	// Payments routes
	app.Post("/api/checkout", authMiddleware, paymentsController.CreateCheckout)
	app.Get("/api/payments", authMiddleware, paymentsController.GetMyPayments)

	// Certificates routes
	app.Get("/api/certificates", authMiddleware, certificatesController.GetMyCertificates)

	// Staff routes for courses
	staffCourses := app.Group("/api/admin/courses", authMiddleware, staffMiddleware)
	staffCourses.Post("/", coursesController.CreateCourse)
	staffCourses.Put("/:id", coursesController.UpdateCourse)
	staffCourses.Post("/:id/sections", coursesController.AddSection)
	staffCourses.Post("/sections/:sectionId/items", coursesController.AddSectionItem)
	staffCourses.Post("/lessons", coursesController.CreateLesson)

	// Staff routes for quizzes
	staffQuizzes := app.Group("/api/admin/quizzes", authMiddleware, staffMiddleware)
	staffQuizzes.Post("/", quizzesController.CreateQuiz)
	staffQuizzes.Post("/:id/questions", quizzesController.AddQuestion)
	staffQuizzes.Get("/:id/attempts", quizzesController.GetQuizAttempts)
	staffQuizzes.Post("/attempts/:attemptId/grade", quizzesController.GradeAnswer)
}
