package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/repo"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/testutil"
)

// newTestPGRepo returns a Postgres repo bound to a transaction that is rolled
// back when the test finishes.
func newTestPGRepo(t *testing.T) *repo.PGSnapshotRepo {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })

	return repo.NewSnapshotRepo(tx)
}

// repoContract runs the behaviour every SnapshotRepo must share.
func repoContract(t *testing.T, r repo.SnapshotRepo) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := r.Load(ctx, "cart:nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, r.Save(ctx, "cart:s1", []byte(`{"items":[]}`)))

		got, err := r.Load(ctx, "cart:s1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[]}`, string(got))
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, r.Save(ctx, "cart:s2", []byte(`{"items":[]}`)))
		require.NoError(t, r.Save(ctx, "cart:s2", []byte(`{"items":[{"productId":"7","name":"x","unitPrice":1,"quantity":2}]}`)))

		got, err := r.Load(ctx, "cart:s2")
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[{"productId":"7","name":"x","unitPrice":1,"quantity":2}]}`, string(got))
	})

	t.Run("namespaces do not collide", func(t *testing.T) {
		require.NoError(t, r.Save(ctx, "cart:s3", []byte(`{"items":[]}`)))

		_, err := r.Load(ctx, "wishlist:s3")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, r.Save(ctx, "wishlist:s4", []byte(`{"items":[]}`)))
		require.NoError(t, r.Delete(ctx, "wishlist:s4"))

		_, err := r.Load(ctx, "wishlist:s4")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.NoError(t, r.Delete(ctx, "wishlist:s4"), "deleting a missing key is not an error")
	})
}

func TestMemorySnapshotRepo(t *testing.T) {
	repoContract(t, repo.NewMemorySnapshotRepo())
}

func TestMemorySnapshotRepo_CopiesPayload(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemorySnapshotRepo()
	data := []byte(`{"items":[]}`)

	require.NoError(t, r.Save(ctx, "cart:s1", data))
	data[0] = 'X'

	got, err := r.Load(ctx, "cart:s1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(got))
	assert.Equal(t, 1, r.Len())
}

func TestRedisSnapshotRepo(t *testing.T) {
	client, _ := testutil.NewRedis(t)
	repoContract(t, repo.NewRedisSnapshotRepo(client, 0))
}

func TestRedisSnapshotRepo_TTL(t *testing.T) {
	ctx := context.Background()
	client, mr := testutil.NewRedis(t)
	r := repo.NewRedisSnapshotRepo(client, time.Hour)

	require.NoError(t, r.Save(ctx, "cart:s1", []byte(`{"items":[]}`)))
	assert.Equal(t, time.Hour, mr.TTL("cart:s1"))

	mr.FastForward(2 * time.Hour)

	_, err := r.Load(ctx, "cart:s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisSnapshotRepo_NoTTL(t *testing.T) {
	client, mr := testutil.NewRedis(t)
	r := repo.NewRedisSnapshotRepo(client, 0)

	require.NoError(t, r.Save(context.Background(), "cart:s1", []byte(`{"items":[]}`)))

	assert.Zero(t, mr.TTL("cart:s1"))
	raw, err := mr.Get("cart:s1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, raw)
}

func TestRedisSnapshotRepo_ServerDown(t *testing.T) {
	client, mr := testutil.NewRedis(t)
	r := repo.NewRedisSnapshotRepo(client, 0)
	mr.Close()

	_, err := r.Load(context.Background(), "cart:s1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestPGSnapshotRepo(t *testing.T) {
	repoContract(t, newTestPGRepo(t))
}

func TestPGSnapshotRepo_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	r := newTestPGRepo(t)

	require.NoError(t, r.Save(ctx, "cart:old", []byte(`{"items":[]}`)))
	require.NoError(t, r.Save(ctx, "cart:new", []byte(`{"items":[]}`)))

	// now() is fixed for the whole transaction, so both rows share updated_at.
	n, err := r.PurgeOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.PurgeOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = r.Load(ctx, "cart:new")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
