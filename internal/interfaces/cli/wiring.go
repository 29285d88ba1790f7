package cli

import (
	"context"
	"time"

	"github.com/turtacn/platemap/internal/application/analysis"
	"github.com/turtacn/platemap/internal/application/enumeration"
	"github.com/turtacn/platemap/internal/application/pipeline"
	"github.com/turtacn/platemap/internal/application/reconciliation"
	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/molecule"
	"github.com/turtacn/platemap/internal/infrastructure/database/postgres"
	"github.com/turtacn/platemap/internal/infrastructure/database/redis"
	"github.com/turtacn/platemap/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/platemap/internal/infrastructure/storage/minio"
	"github.com/turtacn/platemap/internal/intelligence/common"
	"github.com/turtacn/platemap/internal/intelligence/protocol_analyzer"
	"github.com/turtacn/platemap/internal/intelligence/reaction_oracle"
)

// closers collects cleanup functions, run in reverse order.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// -----------------------------------------------------------------------
// Services
// -----------------------------------------------------------------------

func (c *CLIContext) analysisService() (analysis.Service, error) {
	analyzer, err := protocol_analyzer.NewAnalyzer(c.Config.AnalyzerOptions(), c.Logger)
	if err != nil {
		return nil, err
	}
	return analysis.NewService(analyzer, c.Metrics, c.Logger), nil
}

// oracle returns the sulfonamide oracle, behind the Redis cache when it is
// enabled and reachable.
func (c *CLIContext) oracle(cl *closers) library.Oracle {
	base := reaction_oracle.NewSulfonamideOracle(c.Logger)
	rc := c.Config.Redis
	if !rc.Enabled {
		return base
	}
	client, err := redis.NewClient(&rc.RedisConfig, c.Logger)
	if err != nil {
		c.Logger.Warn("Reaction cache unavailable, reacting without it", logging.Err(err))
		return base
	}
	cl.add(func() { _ = client.Close() })
	return redis.NewReactionCache(base, client, c.Logger,
		redis.WithPrefix(rc.KeyPrefix),
		redis.WithTTL(rc.TTL),
		redis.WithMetrics(c.Metrics))
}

func (c *CLIContext) enumerationService(cl *closers) (enumeration.Service, error) {
	ec := c.Config.Enumeration
	processor := common.NewBatchProcessor[library.Pair, library.Outcome](
		common.WithName("enumerate"),
		common.WithMaxConcurrency(ec.Workers),
		common.WithItemTimeout(ec.ItemTimeout),
		common.WithBatchMetrics(c.Metrics),
		common.WithBatchLogger(c.Logger),
	)
	enumerator := library.NewEnumerator(c.oracle(cl),
		library.WithRunner(enumeration.NewPoolRunner(processor)),
		library.WithDescriber(reaction_oracle.NewSulfonamideOracle(c.Logger)),
		library.WithLogger(c.Logger))

	return enumeration.NewService(enumeration.Config{Geometry: ec.Geometry}, enumerator,
		validateStructure, c.Metrics, c.Logger)
}

func validateStructure(smiles string) error {
	_, err := molecule.Parse(smiles)
	return err
}

func (c *CLIContext) reconciliationService() (reconciliation.Service, error) {
	return reconciliation.NewService(reconciliation.Config{
		Keys:            c.Config.Keys,
		LibraryGeometry: c.Config.Enumeration.Geometry,
	}, c.Metrics, c.Logger)
}

// pipelineService wires the three stage services and whichever optional
// collaborators are enabled. A collaborator that cannot connect is logged
// and left out.
func (c *CLIContext) pipelineService(ctx context.Context, cl *closers) (pipeline.Service, error) {
	an, err := c.analysisService()
	if err != nil {
		return nil, err
	}
	en, err := c.enumerationService(cl)
	if err != nil {
		return nil, err
	}
	rec, err := c.reconciliationService()
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Analysis:       an,
		Enumeration:    en,
		Reconciliation: rec,
		Metrics:        c.Metrics,
		Logger:         c.Logger,
	}
	if store := c.artifactStore(); store != nil {
		deps.Store = store
	}
	if sink := c.runSink(ctx, cl); sink != nil {
		deps.Sink = sink
	}
	if events := c.eventPublisher(ctx, cl); events != nil {
		deps.Events = events
	}

	return pipeline.NewService(pipeline.Config{
		LiveGeometry:    c.Config.Analyzer.Geometry,
		LibraryGeometry: c.Config.Enumeration.Geometry,
	}, deps)
}

// -----------------------------------------------------------------------
// Optional collaborators
// -----------------------------------------------------------------------

func (c *CLIContext) artifactStore() *minio.ArtifactStore {
	mc := c.Config.MinIO
	if !mc.Enabled {
		return nil
	}
	client, err := minio.NewMinIOClient(&mc.MinIOConfig, c.Logger)
	if err != nil {
		c.Logger.Warn("Artifact store unavailable", logging.Err(err))
		return nil
	}
	return minio.NewArtifactStore(client, c.Logger)
}

func (c *CLIContext) runSink(ctx context.Context, cl *closers) *postgres.PlateMapSink {
	pc := c.Config.Postgres
	if !pc.Enabled {
		return nil
	}
	if pc.AutoMigrate {
		if err := postgres.RunMigrations(pc.DSN(), c.Logger); err != nil {
			c.Logger.Warn("Run history unavailable", logging.Err(err))
			return nil
		}
	}
	pool, err := postgres.NewConnectionPool(ctx, pc.PostgresConfig, c.Logger)
	if err != nil {
		c.Logger.Warn("Run history unavailable", logging.Err(err))
		return nil
	}
	cl.add(func() { postgres.Close(pool) })
	return postgres.NewPlateMapSink(pool, c.Logger)
}

func (c *CLIContext) eventPublisher(ctx context.Context, cl *closers) *kafka.RunEventPublisher {
	kc := c.Config.Kafka
	if !kc.Enabled {
		return nil
	}
	if kc.EnsureTopics {
		c.ensureTopics(ctx)
	}
	producer, err := kafka.NewProducer(kc.ProducerConfig, c.Logger)
	if err != nil {
		c.Logger.Warn("Run events unavailable", logging.Err(err))
		return nil
	}
	cl.add(func() { _ = producer.Close() })
	return kafka.NewRunEventPublisher(producer, kc.Topic, "platemap", c.Logger)
}

func (c *CLIContext) ensureTopics(ctx context.Context) {
	kc := c.Config.Kafka
	tm, err := kafka.NewTopicManager(kc.Brokers, c.Logger)
	if err != nil {
		c.Logger.Warn("Topic setup skipped", logging.Err(err))
		return
	}
	defer tm.Close()

	topics := kafka.DefaultTopics(kc.ReplicationFactor)
	if kc.Topic != kafka.TopicRunCompleted {
		topics[0].Name = kc.Topic
	}
	if err := tm.EnsureTopics(ctx, topics); err != nil {
		c.Logger.Warn("Topic setup failed", logging.Err(err))
	}
}

// -----------------------------------------------------------------------
// Metrics export
// -----------------------------------------------------------------------

// exportMetrics writes the textfile and pushes to the gateway when either
// is configured. Failures are logged.
func (c *CLIContext) exportMetrics(ctx context.Context, command string) {
	mc := c.Config.Monitoring
	g := c.Collector.Gatherer()
	if mc.TextfilePath != "" {
		if err := prometheus.WriteTextfile(g, mc.TextfilePath); err != nil {
			c.Logger.Warn("Metrics export failed", logging.Err(err))
		}
	}
	if mc.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := prometheus.Push(pushCtx, g, mc.PushgatewayURL, mc.Job, map[string]string{"command": command}); err != nil {
			c.Logger.Warn("Metrics push failed", logging.Err(err))
		}
	}
}

//Personal.AI order the ending
