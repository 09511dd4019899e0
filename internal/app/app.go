package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"student_forms/internal/client"
	"student_forms/internal/config"
	"student_forms/internal/controller"
	"student_forms/internal/repository"
	"student_forms/internal/service"
	"student_forms/internal/util"
	"student_forms/internal/web"
	"student_forms/pkg/configwatcher"
	"student_forms/pkg/database"
	"student_forms/pkg/logger"
	"student_forms/pkg/monitoring"
	"student_forms/pkg/security"
	"student_forms/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services *services
	tracer   *sdktrace.TracerProvider
	cancel   context.CancelFunc
}

type repositories struct {
	sessions repository.SessionStore
	students *repository.StudentRepository
	forms    *repository.FormRepository
}

type services struct {
	auth     *service.AuthService
	form     *service.FormService
	registry *service.RegistryService
}

type controllers struct {
	page     *controller.PageController
	form     *controller.FormController
	registry *controller.RegistryController
	health   *controller.HealthController
}

func (a *App) initRepositories(cfg *config.Config) *repositories {
	repos := &repositories{}

	if cfg.Session.Store == util.SessionStoreRedis {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		a.Redis = rdb
		repos.sessions = repository.NewRedisSessionStore(rdb, cfg.Session.TTL)
	} else {
		repos.sessions = repository.NewMemorySessionStore()
	}

	if cfg.Registry.Enabled {
		db, err := database.InitDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		a.DB = db
		repos.students = repository.NewStudentRepository(db)

		forms, err := repository.NewFormRepository(cfg.Registry.FormsDir)
		if err != nil {
			logger.Log.Fatal("Failed to load form definitions", zap.String("dir", cfg.Registry.FormsDir), zap.Error(err))
		}
		logger.Log.Info("Form definitions loaded", zap.Strings("forms", forms.IDs()))
		repos.forms = forms
	}

	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	upstream := client.NewUpstreamClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	s.form = service.NewFormService(repos.sessions, upstream)
	s.auth = service.NewAuthService(upstream, repos.sessions, s.form)

	if cfg.Registry.Enabled {
		s.registry = service.NewRegistryService(repos.students, repos.forms, cfg.Registry.DefaultForm)
	}
	return s
}

func (a *App) initControllers(s *services) *controllers {
	c := &controllers{
		page:   controller.NewPageController(s.auth, s.form),
		form:   controller.NewFormController(s.auth, s.form),
		health: controller.NewHealthController(a.healthComponents()),
	}
	if s.registry != nil {
		c.registry = controller.NewRegistryController(s.registry)
	}
	return c
}

func (a *App) healthComponents() map[string]controller.Pinger {
	components := map[string]controller.Pinger{}
	if a.DB != nil {
		components["database"] = func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.Redis != nil {
		components["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return components
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context, repos *repositories, s *services, cfg *config.Config) {
	if cfg.Session.IdleSweep > 0 {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := s.form.Sweep(cfg.Session.IdleSweep); n > 0 {
						logger.Log.Debug("Swept idle form runtimes", zap.Int("count", n))
					}
				}
			}
		}()
	}

	if repos.forms != nil && cfg.Registry.Watch {
		go func() {
			if err := configwatcher.Watch(ctx, repos.forms.Dir(), repos.forms.Reload); err != nil {
				logger.Log.Error("Form definition watcher stopped", zap.Error(err))
			}
		}()
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(ginMode(cfg.Server.Mode))

	app := &App{Config: cfg}

	repos := app.initRepositories(cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	tmpl, err := web.Templates()
	if err != nil {
		logger.Log.Fatal("Failed to parse templates", zap.Error(err))
	}
	router.SetHTMLTemplate(tmpl)

	app.setupMiddlewares(router, cfg)
	router.StaticFS("/static", http.FS(web.Static()))
	app.registerRoutes(router, controllers, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, repos, services, cfg)

	return app
}

func ginMode(mode string) string {
	switch mode {
	case gin.ReleaseMode, gin.TestMode:
		return mode
	default:
		return gin.DebugMode
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
