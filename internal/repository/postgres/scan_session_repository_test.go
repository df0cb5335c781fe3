package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/topmuch/qrsell-sub001/internal/model"
)

func TestScanSessionCreate_ConcurrentSameActivationKey(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	rule := seedPromotionRule(t, ctx, pool, 30)
	repo := NewScanSessionRepository(pool)

	firstScan := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			at := firstScan.Add(time.Duration(offset) * time.Millisecond)
			err := repo.Create(ctx, &model.ScanSession{
				Token:         rule.Token,
				RuleID:        rule.ID,
				ActivationSeq: 1,
				FirstScanAt:   at,
				ExpiresAt:     at.Add(rule.Window()),
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected create error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", workers-1, created, conflicts)
	}

	latest, err := repo.FindLatestByToken(ctx, rule.Token)
	if err != nil {
		t.Fatalf("FindLatestByToken: %v", err)
	}
	byKey, err := repo.FindByActivation(ctx, rule.Token, 1)
	if err != nil {
		t.Fatalf("FindByActivation: %v", err)
	}
	if latest.ID != byKey.ID {
		t.Fatalf("latest %s and activation lookup %s disagree", latest.ID, byKey.ID)
	}
}

func TestScanSessionFindLatest_PicksHighestSequence(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	rule := seedPromotionRule(t, ctx, pool, 10)
	repo := NewScanSessionRepository(pool)

	start := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	for seq := int64(1); seq <= 3; seq++ {
		at := start.Add(time.Duration(seq) * time.Hour)
		if err := repo.Create(ctx, &model.ScanSession{
			Token:         rule.Token,
			RuleID:        rule.ID,
			ActivationSeq: seq,
			FirstScanAt:   at,
			ExpiresAt:     at.Add(rule.Window()),
		}); err != nil {
			t.Fatalf("create seq %d: %v", seq, err)
		}
	}

	latest, err := repo.FindLatestByToken(ctx, rule.Token)
	if err != nil {
		t.Fatalf("FindLatestByToken: %v", err)
	}
	if latest.ActivationSeq != 3 {
		t.Fatalf("expected seq 3, got %d", latest.ActivationSeq)
	}

	active, err := repo.CountActive(ctx, start.Add(3*time.Hour+time.Minute))
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected 1 active session, got %d", active)
	}
}

func TestScanSessionFindLatest_NotFound(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewScanSessionRepository(pool)

	session, err := repo.FindLatestByToken(context.Background(), "missing-token")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session, got %+v", session)
	}
}

func TestScanEventCountByProductSince(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	rule := seedPromotionRule(t, ctx, pool, 30)
	events := NewScanEventRepository(pool)

	now := time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{now.Add(-48 * time.Hour), now.Add(-time.Hour), now.Add(-time.Minute)} {
		if err := events.Record(ctx, &model.ScanEvent{
			SellerID:  rule.SellerID,
			ProductID: rule.ProductID,
			Token:     rule.Token,
			ScannedAt: at,
		}); err != nil {
			t.Fatalf("record scan event: %v", err)
		}
	}

	counts, err := events.CountByProductSince(ctx, rule.SellerID, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountByProductSince: %v", err)
	}
	if counts[rule.ProductID] != 2 {
		t.Fatalf("expected 2 recent scans, got %d", counts[rule.ProductID])
	}

	deleted, err := events.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned event, got %d", deleted)
	}
}

func seedPromotionRule(t *testing.T, ctx context.Context, pool *pgxpool.Pool, windowMinutes int) *model.PromotionRule {
	t.Helper()

	sellerID := uuid.New()
	productID := uuid.New()
	now := time.Now().UTC()

	if _, err := pool.Exec(ctx,
		`INSERT INTO sellers (id, display_name, created_at, updated_at) VALUES ($1, $2, $3, $3)`,
		sellerID, "seller-"+sellerID.String()[:8], now,
	); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO products (id, seller_id, name, price, created_at) VALUES ($1, $2, $3, $4, $5)`,
		productID, sellerID, "Sneakers", 10000, now,
	); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	rule := &model.PromotionRule{
		SellerID:        sellerID,
		Token:           strings.ReplaceAll(uuid.NewString(), "-", ""),
		ProductID:       productID,
		DiscountPercent: 20,
		WindowMinutes:   windowMinutes,
		IsActive:        true,
	}
	if err := NewPromotionRuleRepository(pool).Create(ctx, rule); err != nil {
		t.Fatalf("seed promotion rule: %v", err)
	}
	return rule
}

func startPostgresForTest(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "qrsell_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/qrsell_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	deadline := time.Now().Add(30 * time.Second)
	for {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("postgres did not become ready: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	applyAllMigrations(t, ctx, pool)
	return pool
}

func applyAllMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	migrationsDir := filepath.Join(findRepoRoot(t), "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		// #nosec G304 -- migration file list comes from controlled test directory.
		raw, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			t.Fatalf("read migration %s: %v", file, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(raw)); err != nil {
			t.Fatalf("apply migration %s: %v", file, err)
		}
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not locate repository root")
		}
		dir = parent
	}
}
