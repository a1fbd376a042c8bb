package registry

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/agentskills/registry/internal/authn"
	"github.com/agentskills/registry/internal/dbmigrations"
	"github.com/agentskills/registry/internal/dbmodels"
	"github.com/agentskills/registry/internal/identity"
	"github.com/agentskills/registry/internal/mdrender"
)

// memStore is an in-memory objectstore.Store stand-in, so the publish
// transaction's bundle upload exercises a real Put/Get round trip without
// reaching into S3.
type memStore struct {
	blobs map[string][]byte
}

func newMemStore() *memStore { return &memStore{blobs: map[string][]byte{}} }

func (m *memStore) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(body); err != nil {
		return err
	}
	m.blobs[key] = buf.Bytes()
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.blobs[key])), nil
}

func buildTestBundle(t *testing.T, name, version, author string) []byte {
	t.Helper()
	manifest := "---\nname: " + name + "\nversion: " + version + "\ndescription: a test skill\nauthor: " + author + "\ncompatibility: claude\n---\n\nbody\n"

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "SKILL.md", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(manifest))}))
	_, err := tw.Write([]byte(manifest))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("registry"),
		tcpostgres.WithUsername("registry"),
		tcpostgres.WithPassword("registry"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, dbmigrations.Up(connStr, ""))

	db, err := gorm.Open(gormpostgres.Open(connStr), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	return New(db, newMemStore(), mdrender.New(), identity.New(""))
}

func createTestUser(t *testing.T, db *gorm.DB, username string) dbmodels.User {
	t.Helper()
	user := dbmodels.User{Username: username, APIToken: "tok-" + username, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestPublishThenGetSkill(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, "alice")
	caller := authn.Principal{UserID: owner.ID, Username: owner.Username}

	raw := buildTestBundle(t, "pdf-summarizer", "1.0.0", "alice")
	result, err := svc.Publish(ctx, caller, PublishInput{Raw: raw, MaxDecompressed: 1 << 20})
	require.NoError(t, err)
	assert.Equal(t, "pdf-summarizer", result.Name)
	assert.Equal(t, "1.0.0", result.Version)

	view, err := svc.GetSkill(ctx, "pdf-summarizer", owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Owner)
	require.NotNil(t, view.LatestVersion)
	assert.Equal(t, "1.0.0", view.LatestVersion.Version)
}

func TestPublishRejectsAuthorMismatch(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	caller := authn.Principal{UserID: createTestUser(t, db, "bob").ID, Username: "bob"}
	raw := buildTestBundle(t, "other-skill", "1.0.0", "someone-else")

	_, err := svc.Publish(ctx, caller, PublishInput{Raw: raw, MaxDecompressed: 1 << 20})
	require.Error(t, err)
}

func TestPublishRejectsDuplicateVersion(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, "carol")
	caller := authn.Principal{UserID: owner.ID, Username: owner.Username}
	raw := buildTestBundle(t, "dup-skill", "1.0.0", "carol")

	_, err := svc.Publish(ctx, caller, PublishInput{Raw: raw, MaxDecompressed: 1 << 20})
	require.NoError(t, err)

	_, err = svc.Publish(ctx, caller, PublishInput{Raw: raw, MaxDecompressed: 1 << 20})
	require.Error(t, err)
}

func TestStarAndUnstar(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, "dave")
	caller := authn.Principal{UserID: owner.ID, Username: owner.Username}
	raw := buildTestBundle(t, "star-skill", "1.0.0", "dave")
	_, err := svc.Publish(ctx, caller, PublishInput{Raw: raw, MaxDecompressed: 1 << 20})
	require.NoError(t, err)

	starrer := createTestUser(t, db, "erin")
	count, err := svc.Star(ctx, starrer.ID, "star-skill")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = svc.Star(ctx, starrer.ID, "star-skill")
	assert.Error(t, err)

	count, err = svc.Unstar(ctx, starrer.ID, "star-skill")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSearchFindsPublishedSkill(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, "frank")
	caller := authn.Principal{UserID: owner.ID, Username: owner.Username}
	raw := buildTestBundle(t, "search-target", "1.0.0", "frank")
	_, err := svc.Publish(ctx, caller, PublishInput{Raw: raw, MaxDecompressed: 1 << 20})
	require.NoError(t, err)

	result, err := svc.Search(ctx, SearchParams{Query: "search-target", Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, result.Skills, 1)
	assert.Equal(t, "search-target", result.Skills[0].Name)
}
