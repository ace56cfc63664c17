package pipeline_test

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/events"
	"github.com/kurochkinivan/tddf_pipeline/internal/pipeline"
	"github.com/kurochkinivan/tddf_pipeline/internal/repository/memory"
	"github.com/kurochkinivan/tddf_pipeline/internal/tddf"
	"github.com/stretchr/testify/require"
)

var fastRetry = pipeline.RetryPolicy{Attempts: 2, Delay: time.Millisecond, MaxDelay: time.Millisecond}

type testEnv struct {
	store      *memory.Store
	contents   *memory.ContentStore
	events     *events.Recorder
	classifier *tddf.Classifier
	machine    *pipeline.StateMachine
	ingestor   *pipeline.Ingestor
	identifier *pipeline.Identifier
	encoder    *pipeline.Encoder
}

type envOption func(*envConfig)

type envConfig struct {
	records      pipeline.RecordStore
	batchTimeout time.Duration
	maxSize      int64
}

func withRecords(records pipeline.RecordStore) envOption {
	return func(c *envConfig) { c.records = records }
}

func withBatchTimeout(d time.Duration) envOption {
	return func(c *envConfig) { c.batchTimeout = d }
}

func withMaxSize(n int64) envOption {
	return func(c *envConfig) { c.maxSize = n }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	log := slog.New(slog.DiscardHandler)

	store := memory.NewStore()
	cfg := envConfig{records: store, batchTimeout: time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}

	env := &testEnv{
		store:      store,
		contents:   memory.NewContentStore(),
		events:     events.NewRecorder(),
		classifier: tddf.NewClassifier(tddf.DefaultRegistry()),
	}

	env.machine = pipeline.NewStateMachine(log, store, store, env.contents, env.events)
	env.ingestor = pipeline.NewIngestor(log, env.machine, store, env.contents, cfg.maxSize, fastRetry)
	env.identifier = pipeline.NewIdentifier(log, env.machine, store, env.contents, env.classifier, 250, fastRetry)
	env.encoder = pipeline.NewEncoder(log, env.machine, store, cfg.records, store, env.classifier, cfg.batchTimeout)

	return env
}

// uploaded creates an upload and stores content for it.
func (e *testEnv) uploaded(t *testing.T, content string) *domain.Upload {
	t.Helper()

	ctx := context.Background()

	u, err := e.machine.CreateUpload(ctx, "test.TSYSO", string(domain.FileTypeTDDF), "")
	require.NoError(t, err)

	u, err = e.ingestor.StoreContent(ctx, u.ID, []byte(content))
	require.NoError(t, err)
	require.Equal(t, domain.PhaseUploaded, u.Phase)

	return u
}

// identified creates an upload with content and raw import rows.
func (e *testEnv) identified(t *testing.T, content string) *domain.Upload {
	t.Helper()

	u := e.uploaded(t, content)

	u, err := e.identifier.Identify(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseIdentified, u.Phase)

	return u
}

func (e *testEnv) rowCounts(t *testing.T, uploadID string) domain.RowCounts {
	t.Helper()

	counts, err := e.store.CountRows(context.Background(), uploadID)
	require.NoError(t, err)

	return counts
}

func (e *testEnv) recordCount(t *testing.T, uploadID string) int {
	t.Helper()

	_, total, err := e.store.Records(context.Background(), uploadID, 1, 0)
	require.NoError(t, err)

	return total
}

func (e *testEnv) phase(t *testing.T, uploadID string) domain.Phase {
	t.Helper()

	u, err := e.machine.Upload(context.Background(), uploadID)
	require.NoError(t, err)

	return u.Phase
}

// tddfFile renders n detail transaction lines. Every skipEvery-th line is a
// purchasing card extension record instead, when skipEvery is positive.
// seed keeps the content, and so the checksum, of different files apart.
func tddfFile(t *testing.T, n, skipEvery int, seed string) string {
	t.Helper()

	var b strings.Builder
	for i := 1; i <= n; i++ {
		schema := tddf.DetailTransaction
		if skipEvery > 0 && i%skipEvery == 0 {
			schema = tddf.PurchasingCard1
		}

		line, err := schema.Format(map[string]any{
			tddf.FieldSequenceNumber:        fmt.Sprintf("%07d", i),
			tddf.FieldEntryRunNumber:        "0624",
			tddf.FieldSequenceWithinRun:     fmt.Sprintf("%06d", i),
			tddf.FieldBankNumber:            "6759",
			tddf.FieldMerchantAccountNumber: "0675900000012345",
			tddf.FieldAssociationNumber:     seed,
		})
		require.NoError(t, err)

		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}
