package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"membership-portal/core/clock"
	"membership-portal/core/config"
	"membership-portal/core/loader"
	"membership-portal/core/logger"
	"membership-portal/core/middleware/auth"
	"membership-portal/core/middleware/rayid"
	"membership-portal/core/storage"
	"membership-portal/feature/announcement"
	"membership-portal/feature/identity"
	"membership-portal/feature/integrity"
	"membership-portal/feature/portal"
	"membership-portal/feature/profile"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Membership Portal API
// @version 1.0
// @description API for member sign-in, profiles and announcements.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the membership portal server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect stores
		st, err := openStores(ctx, cfg, logg)
		if err != nil {
			logg.Fatal("Failed to open stores", zap.Error(err))
		}
		defer st.close()

		if err := st.migrate(); err != nil {
			logg.Fatal("Failed to migrate schema", zap.Error(err))
		}

		if created, err := storage.EnsureBucket(ctx, st.storage, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			logg.Warn("Photo bucket unavailable; uploads will fail", zap.Error(err))
		} else if created {
			logg.Info("Created photo bucket", zap.String("bucket", cfg.Storage.Bucket))
		}

		// 4. Identity
		tokens, err := identity.NewTokens(cfg.Identity, time.Now)
		if err != nil {
			logg.Warn("Identity tokens unavailable; sign-in is disabled", zap.Error(err))
		}
		directory := identity.NewDirectory(st.db, cfg.Identity.BcryptCost)
		profiles := profile.NewRepository(st.profiles, st.mirror, logg)

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimit(),
			ReadTimeout:           time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		})

		// 6. Initialize Feature Loader
		mgr := loader.NewManager(logg)

		portalFeature := portal.NewFeature(portal.Deps{
			Directory: directory,
			Tokens:    tokens,
			Profiles:  profiles,
			Clock:     clock.System{},
			Editor:    cfg.Profile,
			Logger:    logg,
		})
		mgr.Register(portalFeature)
		mgr.Register(announcement.NewFeature(st.db, logg))
		mgr.Register(integrity.NewFeature(st.storage, cfg.Storage, st.db, st.redis, logg))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (operator endpoints only; member routes use bearer tokens)
		app.Use("/integrity", auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("address", cfg.Server.Address()))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
		portalFeature.Registry().Close()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
