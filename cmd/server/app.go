package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	assignmenthandler "revenuehub/internal/assignment/handler"
	assignmentservice "revenuehub/internal/assignment/service"
	audithandler "revenuehub/internal/audit/handler"
	auditservice "revenuehub/internal/audit/service"
	businesshandler "revenuehub/internal/business/handler"
	businessservice "revenuehub/internal/business/service"
	collectionhandler "revenuehub/internal/collection/handler"
	collectionmetrics "revenuehub/internal/collection/metrics"
	collectionservice "revenuehub/internal/collection/service"
	"revenuehub/internal/geo"
	geohandler "revenuehub/internal/geo/handler"
	geoservice "revenuehub/internal/geo/service"
	identityhandler "revenuehub/internal/identity/handler"
	"revenuehub/internal/identity/revocation"
	identityservice "revenuehub/internal/identity/service"
	"revenuehub/internal/identity/token"
	"revenuehub/internal/platform/config"
	"revenuehub/internal/platform/metrics"
	reporthandler "revenuehub/internal/report/handler"
	reportservice "revenuehub/internal/report/service"
	revenuehandler "revenuehub/internal/revenue/handler"
	revenueservice "revenuehub/internal/revenue/service"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/platform/middleware/auth"
	"revenuehub/pkg/platform/middleware/metadata"
	"revenuehub/pkg/platform/middleware/request"
	"revenuehub/pkg/platform/middleware/requesttime"
)

const (
	demoDistrict  = "Accra Metropolitan"
	healthTimeout = 2 * time.Second
)

type application struct {
	router  http.Handler
	storage string
	close   func(ctx context.Context)
}

// registrar is implemented by every module handler.
type registrar interface {
	Register(r chi.Router)
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	st := in.stores()
	auditPublisher := in.newAuditPublisher(st.audit, log)
	closeAll := func(ctx context.Context) {
		auditPublisher.Close()
		in.close(ctx)
	}

	catalog := geo.NewGhanaCatalog()
	districtService := geoservice.New(st.districts, catalog,
		geoservice.WithLogger(log),
		geoservice.WithAuditPublisher(auditPublisher),
	)
	if err := seedDistricts(ctx, districtService, st.districts, catalog, log); err != nil {
		closeAll(ctx)
		return nil, err
	}

	jwtService := token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	identityService := identityservice.New(st.users, jwtService, st.revocations, catalog,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(auditPublisher),
		identityservice.WithDistrictChecker(districtService),
	)
	if cfg.DemoMode {
		created, err := identityService.SeedDemoUsers(ctx, demoDistrict)
		if err != nil {
			closeAll(ctx)
			return nil, err
		}
		log.InfoContext(ctx, "demo mode enabled", "accounts_created", created, "district", demoDistrict)
	}

	businessService := businessservice.New(st.businesses, catalog,
		businessservice.WithLogger(log),
		businessservice.WithAuditPublisher(auditPublisher),
		businessservice.WithOwners(st.users),
		businessservice.WithAssignments(st.assignments),
		businessservice.WithDistrictChecker(districtService),
	)
	revenueService := revenueservice.New(st.revenueTypes, catalog,
		revenueservice.WithLogger(log),
		revenueservice.WithAuditPublisher(auditPublisher),
		revenueservice.WithDistrictChecker(districtService),
	)
	assignmentService := assignmentservice.New(st.assignments, st.users, st.businesses, catalog,
		assignmentservice.WithLogger(log),
		assignmentservice.WithAuditPublisher(auditPublisher),
	)
	collectionService := collectionservice.New(st.collections, st.businesses, st.revenueTypes, catalog,
		collectionservice.WithLogger(log),
		collectionservice.WithAuditPublisher(auditPublisher),
		collectionservice.WithUsers(st.users),
		collectionservice.WithMetrics(collectionmetrics.New()),
		collectionservice.WithTxRunner(st.tx),
	)
	reportService := reportservice.New(st.collections, st.businesses, st.users, st.revenueTypes, catalog,
		reportservice.WithLogger(log),
		reportservice.WithAuditPublisher(auditPublisher),
	)
	auditService := auditservice.New(st.audit, catalog)

	m := metrics.New()
	guard := access.NewGuard(log, m)
	identityHandler := identityhandler.New(identityService, log, guard)
	modules := []registrar{
		identityHandler,
		geohandler.New(districtService, log, guard),
		businesshandler.New(businessService, log, guard),
		revenuehandler.New(revenueService, log, guard),
		assignmenthandler.New(assignmentService, log, guard),
		collectionhandler.New(collectionService, log, guard),
		reporthandler.New(reportService, log, guard),
		audithandler.New(auditService, log, guard),
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(log))
	r.Use(m.Middleware)

	r.Get("/health", healthHandler(in))
	r.Handle("/metrics", metrics.Handler())
	identityHandler.RegisterPublic(r)

	checker := revocation.NewChecker(st.revocations)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(token.NewMiddlewareAdapter(jwtService), checker, log))
		for _, h := range modules {
			h.Register(r)
		}
	})

	return &application{router: r, storage: in.storage, close: closeAll}, nil
}

type healthResponse struct {
	Status  string            `json:"status"`
	Storage string            `json:"storage"`
	Checks  map[string]string `json:"checks,omitempty"`
	Time    time.Time         `json:"time"`
}

func healthHandler(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Storage: in.storage, Checks: map[string]string{}, Time: time.Now().UTC()}
		if in.db != nil {
			resp.Checks["postgres"] = checkResult(in.db.PingContext(ctx))
		}
		if in.redis != nil {
			resp.Checks["redis"] = checkResult(in.redis.Health(ctx))
		}
		status := http.StatusOK
		for _, v := range resp.Checks {
			if v != "ok" {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func checkResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
