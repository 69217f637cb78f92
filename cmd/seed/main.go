package main

import (
	"context"
	"errors"

	"github.com/Baaaki/wastetrack/internal/config"
	"github.com/Baaaki/wastetrack/internal/database"
	"github.com/Baaaki/wastetrack/internal/emission"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/internal/repository/filestore"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/Baaaki/wastetrack/internal/utils"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_ = logger.Init(true)
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := logger.InitForEnvironment(cfg.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Migration failed", zap.Error(err))
	}

	people := service.NewPersonService(repository.NewPersonRepository(db), utils.TokenConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
		Issuer: cfg.JWTIssuer,
	}, cfg.Environment)

	if err := seedManager(ctx, people, cfg); err != nil {
		logger.Log.Fatal("Failed to seed manager", zap.Error(err))
	}

	if cfg.SeedReportsFile == "" {
		return
	}

	factors, err := emission.LoadFactorTable(cfg.EmissionFactorsPath)
	if err != nil {
		logger.Log.Fatal("Failed to load emission factors", zap.Error(err))
	}
	legacy, err := filestore.OpenReportRepository(cfg.SeedReportsFile)
	if err != nil {
		logger.Log.Fatal("Failed to read legacy reports",
			zap.String("path", cfg.SeedReportsFile),
			zap.Error(err),
		)
	}

	imported, skipped, err := importReports(ctx, legacy, repository.NewReportRepository(db), emission.NewCalculator(factors))
	if err != nil {
		logger.Log.Fatal("Report import failed", zap.Error(err))
	}
	logger.Log.Info("Legacy reports imported",
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
	)
}

// seedManager creates the manager account, or reactivates it if it was deactivated.
// An active account is left untouched.
func seedManager(ctx context.Context, people *service.PersonService, cfg *config.Config) error {
	if cfg.SeedManagerPassword == "" {
		return errors.New("SEED_MANAGER_PASSWORD is required")
	}

	outcome, person, err := people.Register(ctx, service.RegisterInput{
		EmployeeID: cfg.SeedManagerID,
		Name:       cfg.SeedManagerName,
		Email:      cfg.SeedManagerEmail,
		Password:   cfg.SeedManagerPassword,
		Role:       string(models.RoleManager),
	})
	if errors.Is(err, service.ErrEmployeeIDTaken) {
		logger.Log.Info("Manager account already exists",
			zap.String("employee_id", cfg.SeedManagerID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Log.Info("Manager account seeded",
		zap.String("employee_id", person.EmployeeID),
		zap.String("result", outcome.Message()),
	)
	return nil
}

// importReports copies every report, active or not, keeping its id. Reports already
// present in dst are skipped. Missing emission values are filled in when the factor
// table allows it.
func importReports(ctx context.Context, src, dst repository.ReportRepository, calc *emission.Calculator) (imported, skipped int, err error) {
	reports, err := src.List(ctx, repository.ReportFilter{})
	if err != nil {
		return 0, 0, err
	}

	for i := range reports {
		report := &reports[i]

		existing, err := dst.GetByID(ctx, report.ID)
		if err != nil {
			return imported, skipped, err
		}
		if existing != nil {
			skipped++
			continue
		}

		if report.Co2Emission == nil {
			kg, err := calc.ComputeEmission(string(report.WasteType), report.WasteProcessingFacility, report.WasteAmount)
			if err != nil {
				logger.Log.Warn("Imported report has no resolvable emission factor",
					zap.Int("report_id", report.ID),
					zap.Error(err),
				)
			} else if err := report.AssignEmission(kg); err != nil {
				return imported, skipped, err
			}
		}

		if err := dst.Save(ctx, report); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}
