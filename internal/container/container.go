package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/roamplan/go-trip-planner/app/db"
	"github.com/roamplan/go-trip-planner/config"
	"github.com/roamplan/go-trip-planner/internal/api/discovery"
	generativeAI "github.com/roamplan/go-trip-planner/internal/api/generative_ai"
	"github.com/roamplan/go-trip-planner/internal/api/intent"
	"github.com/roamplan/go-trip-planner/internal/api/planner"
	"github.com/roamplan/go-trip-planner/internal/api/routing"
	"github.com/roamplan/go-trip-planner/internal/api/weather"
)

// Container wires the application graph: one shared pool and HTTP client,
// adapters around the external providers, and the planner stack on top.
type Container struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	PlannerHandler *planner.HandlerImpl
	PlannerService planner.Service
}

// Keys groups the external credentials pulled from the environment.
type Keys struct {
	GoogleMaps  string
	OpenWeather string
}

func NewContainer(ctx context.Context, cfg config.Config, keys Keys, pool *pgxpool.Pool, logger *slog.Logger) (*Container, error) {
	if pool == nil {
		dbCfg, err := database.NewDatabaseConfig(&cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build database config: %w", err)
		}
		pool, err = database.Init(dbCfg.ConnectionURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init database pool: %w", err)
		}
	}

	httpClient := &http.Client{Timeout: 20 * time.Second}

	aiClient, err := generativeAI.NewAIClient(ctx, cfg.Planner.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to init AI client: %w", err)
	}

	intentService := intent.NewServiceImpl(aiClient, logger)
	discoveryService := discovery.NewServiceImpl(httpClient, cfg.Planner.PlacesURL, keys.GoogleMaps, logger)
	distanceService := routing.NewDistanceServiceImpl(httpClient, cfg.Planner.DistanceURL, keys.GoogleMaps, logger)
	weatherService := weather.NewServiceImpl(httpClient, cfg.Planner.WeatherURL, keys.OpenWeather, logger)

	recovery := planner.NewRecoveryEngine(aiClient, logger)
	composer := planner.NewComposer(aiClient, recovery, logger)
	enricher := planner.NewEnricher(weatherService, cfg.Planner.ArtifactFile, logger)
	repo := planner.NewRepository(pool, logger)

	plannerService := planner.NewServiceImpl(
		intentService, discoveryService, distanceService, composer, enricher, repo, logger,
	)

	return &Container{
		Logger:         logger,
		Pool:           pool,
		PlannerHandler: planner.NewHandlerImpl(plannerService, logger),
		PlannerService: plannerService,
	}, nil
}

// Close releases the container's shared resources.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
