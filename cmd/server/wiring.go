package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	assignmentservice "revenuehub/internal/assignment/service"
	assignmentstore "revenuehub/internal/assignment/store"
	businessservice "revenuehub/internal/business/service"
	businessstore "revenuehub/internal/business/store"
	collectionservice "revenuehub/internal/collection/service"
	collectionstore "revenuehub/internal/collection/store"
	"revenuehub/internal/geo"
	geoservice "revenuehub/internal/geo/service"
	geostore "revenuehub/internal/geo/store"
	identityservice "revenuehub/internal/identity/service"
	identitystore "revenuehub/internal/identity/store"
	"revenuehub/internal/identity/revocation"
	"revenuehub/internal/platform/config"
	"revenuehub/internal/platform/postgres"
	"revenuehub/internal/platform/redis"
	revenueservice "revenuehub/internal/revenue/service"
	revenuestore "revenuehub/internal/revenue/store"
	id "revenuehub/pkg/domain"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/audit/kafka"
	"revenuehub/pkg/platform/audit/publisher"
	auditmemory "revenuehub/pkg/platform/audit/store/memory"
	auditpostgres "revenuehub/pkg/platform/audit/store/postgres"
	txcontext "revenuehub/pkg/platform/tx"
)

const auditBuffer = 256

type businessStore interface {
	businessservice.Store
	RecordPayment(ctx context.Context, businessID id.BusinessID, at time.Time) error
}

type assignmentStore interface {
	assignmentservice.Store
	businessservice.Assignments
}

// stores holds one backend per module, either all Postgres or all in-memory.
type stores struct {
	districts    geoservice.Store
	users        identityservice.Store
	businesses   businessStore
	revenueTypes revenueservice.Store
	assignments  assignmentStore
	collections  collectionservice.Store
	audit        audit.Store
	revocations  revocation.List
	tx           txcontext.Runner
}

// infra is the set of external connections opened at startup.
type infra struct {
	db      *sql.DB
	redis   *redis.Client
	kafka   *kafka.Producer
	storage string
}

func openInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{storage: "memory"}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		applied, err := postgres.Migrate(ctx, db, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		log.InfoContext(ctx, "database ready", "migrations_applied", len(applied))
		in.db = db
		in.storage = "postgres"
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close(ctx)
		return nil, err
	}
	in.redis = rc

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			in.close(ctx)
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
			producer.Close(ctx)
			in.close(ctx)
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
		in.kafka = producer
	}
	return in, nil
}

func (in *infra) close(ctx context.Context) {
	if in.kafka != nil {
		in.kafka.Close(ctx)
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

func (in *infra) stores() stores {
	var s stores
	if in.db != nil {
		s = stores{
			districts:    geostore.NewPostgres(in.db),
			users:        identitystore.NewPostgres(in.db),
			businesses:   businessstore.NewPostgres(in.db),
			revenueTypes: revenuestore.NewPostgres(in.db),
			assignments:  assignmentstore.NewPostgres(in.db),
			collections:  collectionstore.NewPostgres(in.db),
			audit:        auditpostgres.New(in.db),
			revocations:  revocation.NewPostgresTRL(in.db),
			tx:           txcontext.NewPostgres(in.db),
		}
	} else {
		collections := collectionstore.NewInMemory()
		s = stores{
			districts:    geostore.NewInMemory(),
			users:        identitystore.NewInMemory(),
			businesses:   businessstore.NewInMemory(businessstore.WithReferrers(collections)),
			revenueTypes: revenuestore.NewInMemory(revenuestore.WithReferrers(collections)),
			assignments:  assignmentstore.NewInMemory(),
			collections:  collections,
			audit:        auditmemory.NewInMemoryStore(),
			revocations:  revocation.NewInMemoryTRL(),
			tx:           txcontext.Noop{},
		}
	}
	if in.redis != nil {
		s.revocations = revocation.NewRedisTRL(in.redis.Client)
	}
	return s
}

// newAuditPublisher stores every event and forwards it to Kafka when configured.
func (in *infra) newAuditPublisher(store audit.Store, log *slog.Logger) *publisher.Publisher {
	opts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(auditBuffer),
	}
	if in.kafka != nil {
		opts = append(opts, publisher.WithSinks(in.kafka))
	}
	return publisher.NewPublisher(store, opts...)
}

// seedDistricts loads the district catalog into the store and registers any
// districts created in earlier runs with the region index.
func seedDistricts(ctx context.Context, districts *geoservice.Service, store geoservice.Store, catalog *geo.Catalog, log *slog.Logger) error {
	created, err := geostore.SeedFromCatalog(ctx, store, catalog, time.Now())
	if err != nil {
		return fmt.Errorf("seed districts: %w", err)
	}
	if created > 0 {
		log.InfoContext(ctx, "districts seeded", "created", created)
	}
	return districts.SyncCatalog(ctx)
}
