package pipeline_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrphanResolver(env *testEnv) *pipeline.OrphanResolver {
	return pipeline.NewOrphanResolver(
		slog.New(slog.DiscardHandler),
		pipeline.OrphanConfig{
			Interval: time.Minute,
			ClaimTTL: 10 * time.Minute,
		},
		env.store,
		env.store,
		env.machine,
		env.encoder,
	)
}

func TestOrphanResolver_Sweep(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// загрузка зависла в uploading без контента
	abandoned, err := env.machine.CreateUpload(ctx, "abandoned.TSYSO", "tddf", "")
	require.NoError(t, err)
	_, err = env.machine.AdvancePhase(ctx, abandoned.ID, domain.PhaseChange{To: domain.PhaseUploading})
	require.NoError(t, err)

	// все строки разобраны, но воркер упал до перехода в encoded
	unfinished := env.identified(t, tddfFile(t, 30, 0, "OR0001"))
	_, err = env.encoder.Begin(ctx, unfinished.ID)
	require.NoError(t, err)
	_, err = env.encoder.EncodeBatch(ctx, unfinished.ID, 100)
	require.NoError(t, err)

	// загрузка с консистентными артефактами остается на месте
	healthy := env.identified(t, tddfFile(t, 10, 0, "OR0002"))

	report, err := newOrphanResolver(env).Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Inspected)
	assert.Equal(t, 1, report.Finalized)
	assert.Equal(t, 1, report.Rewound)

	assert.Equal(t, domain.PhaseStarted, env.phase(t, abandoned.ID))
	assert.Equal(t, domain.PhaseEncoded, env.phase(t, unfinished.ID))
	assert.Equal(t, domain.PhaseIdentified, env.phase(t, healthy.ID))
}

func TestOrphanResolver_Sweep_EncodingWithPendingRows(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	u := env.identified(t, tddfFile(t, 30, 0, "OR0003"))

	_, err := env.encoder.Begin(ctx, u.ID)
	require.NoError(t, err)
	_, err = env.encoder.EncodeBatch(ctx, u.ID, 10)
	require.NoError(t, err)

	report, err := newOrphanResolver(env).Sweep(ctx)
	require.NoError(t, err)

	assert.Zero(t, report.Finalized)
	assert.Zero(t, report.Rewound)
	assert.Equal(t, domain.PhaseEncoding, env.phase(t, u.ID))
}

func TestOrphanResolver_ReleaseStaleClaims(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	u := env.identified(t, tddfFile(t, 20, 0, "OR0004"))

	// воркер забрал строки час назад и пропал
	_, err := env.store.ClaimRows(ctx, domain.Claim{
		UploadID: u.ID,
		Limit:    8,
		Token:    uuid.NewString(),
		At:       time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	// свежий claim не трогаем
	_, err = env.store.ClaimRows(ctx, domain.Claim{
		UploadID: u.ID,
		Limit:    2,
		Token:    uuid.NewString(),
		At:       time.Now(),
	})
	require.NoError(t, err)

	released, err := newOrphanResolver(env).ReleaseStaleClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, released)

	counts := env.rowCounts(t, u.ID)
	assert.Equal(t, 18, counts.Pending)
	assert.Equal(t, 2, counts.Claimed)
}
