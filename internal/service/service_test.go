package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/config"
	"github.com/bigkaa/goportfolio/internal/database"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/domain/publication"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/storage/filestore"
	"github.com/bigkaa/goportfolio/internal/vision"
)

// testEnv — общая обвязка интеграционных тестов сервисного слоя.
type testEnv struct {
	pool    *pgxpool.Pool
	store   *filestore.FileStore
	tenants repository.TenantRepository
	assets  repository.AssetRepository
	audit   *AuditService
}

// setupEnv запускает PostgreSQL контейнер, применяет миграции и
// собирает зависимости сервисов. Контейнер останавливается в t.Cleanup.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("portfolio_test"),
		postgres.WithUsername("portfolio"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	dataDir := t.TempDir()
	os.Setenv("PF_DB_HOST", host)
	os.Setenv("PF_DB_PORT", port.Port())
	os.Setenv("PF_DB_NAME", "portfolio_test")
	os.Setenv("PF_DB_USER", "portfolio")
	os.Setenv("PF_DB_PASSWORD", "test-password")
	os.Setenv("PF_DB_SSL_MODE", "disable")
	os.Setenv("PF_ENV", "local")
	os.Setenv("PF_SESSION_SECRET", "test-session-secret")
	os.Setenv("PF_CSRF_SECRET", "test-csrf-secret")
	os.Setenv("PF_DATA_DIR", dataDir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	store, err := filestore.New(dataDir)
	if err != nil {
		t.Fatalf("Ошибка создания filestore: %v", err)
	}

	auditRepo := repository.NewAuditRepository(pool)

	return &testEnv{
		pool:    pool,
		store:   store,
		tenants: repository.NewTenantRepository(pool),
		assets:  repository.NewAssetRepository(pool),
		audit:   NewAuditService(auditRepo, logger),
	}
}

func (e *testEnv) newIngest(describer vision.Describer) *IngestService {
	return NewIngestService(
		e.assets,
		repository.NewAICostRepository(e.pool),
		repository.NewTxRunner(e.pool),
		e.store,
		describer,
		e.audit,
		auth.NewRateLimiter(100, time.Hour),
		20<<20,
		5*time.Second,
		testLogger(),
	)
}

func (e *testEnv) newAssets() *AssetService {
	return NewAssetService(e.assets, repository.NewTxRunner(e.pool), e.store, e.audit, testLogger())
}

func (e *testEnv) createTenant(t *testing.T, handle string) *model.Tenant {
	t.Helper()

	sub, err := model.AssignedSubdomain(handle)
	if err != nil {
		t.Fatalf("AssignedSubdomain(%q): %v", handle, err)
	}
	hash, err := auth.HashSecretPhrase("Correct-Horse-7!")
	if err != nil {
		t.Fatalf("HashSecretPhrase: %v", err)
	}
	tenant := &model.Tenant{
		ID:          uuid.New(),
		Handle:      handle,
		Subdomain:   sub,
		DisplayName: "Тестовый тенант " + handle,
		SecretHash:  hash,
		Role:        model.RoleTenant,
		AIStyle:     model.AIStyleBalanced,
	}
	if err := e.tenants.Create(context.Background(), tenant); err != nil {
		t.Fatalf("Create tenant: %v", err)
	}
	return tenant
}

func TestIngestEndToEnd(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "anna")

	describer := &fakeDescriber{
		desc: &vision.Description{
			Title:       "Autumn Forest",
			Description: "Золотые кроны в утреннем тумане",
			Tags:        []string{"осень", "лес"},
			Category:    "landscape",
		},
		usage: &vision.Usage{InputTokens: 1500, OutputTokens: 180},
	}
	svc := env.newIngest(describer)

	data := encodeTestJPEG(t, 2400, 1600)
	result, err := svc.Ingest(ctx, tenant, bytes.NewReader(data), "autumn.jpg", "127.0.0.1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if result.Asset.Title != "Autumn Forest" {
		t.Errorf("неожиданное название: %q", result.Asset.Title)
	}
	if result.Asset.Slug != "autumn-forest" {
		t.Errorf("неожиданный slug: %q", result.Asset.Slug)
	}
	if len(result.Variants) != len(model.VariantClasses) {
		t.Errorf("ожидалось %d вариантов, получено %d", len(model.VariantClasses), len(result.Variants))
	}
	// Тестовый JPEG без EXIF даёт ровно одно предупреждение о метаданных.
	if result.Status() != StatusPartiallyComplete {
		t.Errorf("ожидался %s, получен %s", StatusPartiallyComplete, result.Status())
	}

	// Оригинал и варианты лежат на диске.
	if !env.store.Exists(tenant.Handle, result.Asset.StorageName) {
		t.Error("оригинал отсутствует на диске")
	}
	for _, v := range result.Variants {
		if !env.store.Exists(tenant.Handle, v.StorageName) {
			t.Errorf("вариант %s отсутствует на диске", v.Class)
		}
	}

	// Изображение читается из БД.
	stored, err := env.assets.GetByID(ctx, result.Asset.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Published {
		t.Error("новое изображение должно быть черновиком")
	}

	// Расходы на описание учтены.
	in, out, err := svc.TotalUsage(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("TotalUsage: %v", err)
	}
	if in != 1500 || out != 180 {
		t.Errorf("неожиданный учёт токенов: %d/%d", in, out)
	}
}

func TestIngestIdenticalBytesTwice(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "boris")
	svc := env.newIngest(&fakeDescriber{desc: &vision.Description{Title: "Frame"}})

	data := encodeTestJPEG(t, 800, 600)

	first, err := svc.Ingest(ctx, tenant, bytes.NewReader(data), "shot.jpg", "127.0.0.1")
	if err != nil {
		t.Fatalf("первый Ingest: %v", err)
	}
	second, err := svc.Ingest(ctx, tenant, bytes.NewReader(data), "shot.jpg", "127.0.0.1")
	if err != nil {
		t.Fatalf("второй Ingest: %v", err)
	}

	if first.Asset.ID == second.Asset.ID {
		t.Error("повторная загрузка должна создавать отдельное изображение")
	}
	if first.Asset.Slug == second.Asset.Slug {
		t.Errorf("slug должны различаться: %q", first.Asset.Slug)
	}
	if first.Asset.Checksum != second.Asset.Checksum {
		t.Error("контрольные суммы идентичных байт должны совпадать")
	}
}

func TestIngestRejectsUnsupported(t *testing.T) {
	env := setupEnv(t)
	tenant := env.createTenant(t, "vera")
	svc := env.newIngest(nil)

	_, err := svc.Ingest(context.Background(), tenant, bytes.NewReader([]byte("просто текст")), "doc.txt", "127.0.0.1")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("ожидалась ErrUnsupportedMedia, получено %v", err)
	}
}

func TestPublicationLifecycle(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "gleb")
	ingest := env.newIngest(&fakeDescriber{desc: &vision.Description{Title: "Портрет"}})
	svc := env.newAssets()

	result, err := ingest.Ingest(ctx, tenant, bytes.NewReader(encodeTestJPEG(t, 640, 480)), "p.jpg", "127.0.0.1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	id := result.Asset.ID

	// feature на черновике недопустим.
	_, err = svc.Transition(ctx, id, publication.EventFeature, tenant.ID, "127.0.0.1")
	var terr *publication.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("ожидалась TransitionError, получено %v", err)
	}

	published, err := svc.Transition(ctx, id, publication.EventPublish, tenant.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published.Published || published.PublishedAt == nil {
		t.Error("изображение должно быть опубликовано")
	}

	featured, err := svc.Transition(ctx, id, publication.EventFeature, tenant.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("feature: %v", err)
	}
	if !featured.Featured {
		t.Error("изображение должно быть избранным")
	}

	// unpublish одновременно снимает featured.
	draft, err := svc.Transition(ctx, id, publication.EventUnpublish, tenant.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if draft.Published || draft.Featured || draft.PublishedAt != nil {
		t.Errorf("ожидался чистый черновик, получено %+v", draft)
	}
}

func TestUpdateMetadataVersionConflict(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "dina")
	ingest := env.newIngest(&fakeDescriber{desc: &vision.Description{Title: "Этюд"}})
	svc := env.newAssets()

	result, err := ingest.Ingest(ctx, tenant, bytes.NewReader(encodeTestJPEG(t, 640, 480)), "e.jpg", "127.0.0.1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	asset := result.Asset

	title := "Этюд в багровых тонах"
	updated, err := svc.UpdateMetadata(ctx, asset.ID, MetadataPatch{Title: &title}, asset.Version, tenant.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if updated.Title != title || updated.Version != asset.Version+1 {
		t.Errorf("неожиданный результат правки: %+v", updated)
	}

	// Правка с устаревшей версией отклоняется.
	stale := "Устаревшая правка"
	_, err = svc.UpdateMetadata(ctx, asset.ID, MetadataPatch{Title: &stale}, asset.Version, tenant.ID, "127.0.0.1")
	if !errors.Is(err, repository.ErrVersionMismatch) {
		t.Errorf("ожидалась ErrVersionMismatch, получено %v", err)
	}
}

func TestDeleteRemovesFiles(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "egor")
	ingest := env.newIngest(&fakeDescriber{desc: &vision.Description{Title: "Кадр"}})
	svc := env.newAssets()

	result, err := ingest.Ingest(ctx, tenant, bytes.NewReader(encodeTestJPEG(t, 640, 480)), "k.jpg", "127.0.0.1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := svc.Delete(ctx, result.Asset.ID, tenant.Handle, tenant.ID, "127.0.0.1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := svc.Get(ctx, result.Asset.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
	if env.store.Exists(tenant.Handle, result.Asset.StorageName) {
		t.Error("оригинал должен быть удалён с диска")
	}
	for _, v := range result.Variants {
		if env.store.Exists(tenant.Handle, v.StorageName) {
			t.Errorf("вариант %s должен быть удалён с диска", v.Class)
		}
	}
}

func TestAuthenticateFlow(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "irina")

	svc := NewAccountService(env.tenants, env.audit, auth.NewRateLimiter(5, time.Minute), testLogger())

	got, err := svc.Authenticate(ctx, "irina", "Correct-Horse-7!", "10.0.0.1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != tenant.ID {
		t.Error("вернулся не тот тенант")
	}

	// Неверная фраза и неизвестный handle дают одинаковую ошибку.
	_, errBad := svc.Authenticate(ctx, "irina", "wrong-phrase", "10.0.0.1")
	_, errUnknown := svc.Authenticate(ctx, "nobody", "wrong-phrase", "10.0.0.1")
	if !errors.Is(errBad, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("ожидалась единая ErrInvalidCredentials, получено %v / %v", errBad, errUnknown)
	}
}

func TestAuthenticateThrottle(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.createTenant(t, "klara")

	svc := NewAccountService(env.tenants, env.audit, auth.NewRateLimiter(3, time.Minute), testLogger())

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate(ctx, "klara", "wrong-phrase", "10.0.0.2"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("попытка %d: %v", i, err)
		}
	}
	// После исчерпания лимита отклоняются даже верные данные.
	if _, err := svc.Authenticate(ctx, "klara", "Correct-Horse-7!", "10.0.0.2"); !errors.Is(err, ErrThrottled) {
		t.Errorf("ожидалась ErrThrottled, получено %v", err)
	}
	// Другой адрес лимитом не затронут.
	if _, err := svc.Authenticate(ctx, "klara", "Correct-Horse-7!", "10.0.0.3"); err != nil {
		t.Errorf("вход с другого адреса: %v", err)
	}
}

func TestRegisterAndChangeSecret(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	admin := env.createTenant(t, "lidia")

	svc := NewAccountService(env.tenants, env.audit, auth.NewRateLimiter(5, time.Minute), testLogger())

	tenant, err := svc.Register(ctx, admin.ID, RegisterParams{
		Handle:      "maksim",
		DisplayName: "Максим",
		Secret:      "Very-Secret-42!",
		Subdomain:   "maksim",
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tenant.Role != model.RoleTenant || tenant.AIStyle != model.AIStyleBalanced {
		t.Errorf("неожиданные значения по умолчанию: %+v", tenant)
	}

	// Зарезервированный handle отклоняется.
	if _, err := svc.Register(ctx, admin.ID, RegisterParams{
		Handle: "admin", DisplayName: "X", Secret: "Very-Secret-42!",
	}, "10.0.0.1"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидалась ErrValidation, получено %v", err)
	}

	// Слабая фраза отклоняется единым сообщением.
	if _, err := svc.Register(ctx, admin.ID, RegisterParams{
		Handle: "nina", DisplayName: "Нина", Secret: "short",
	}, "10.0.0.1"); !errors.Is(err, auth.ErrWeakSecret) {
		t.Errorf("ожидалась ErrWeakSecret, получено %v", err)
	}

	if err := svc.ChangeSecret(ctx, tenant.ID, "Very-Secret-42!", "Brand-New-Phrase-9!", "10.0.0.1"); err != nil {
		t.Fatalf("ChangeSecret: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "maksim", "Brand-New-Phrase-9!", "10.0.0.4"); err != nil {
		t.Errorf("вход с новой фразой: %v", err)
	}
}

func TestGalleryPublishedOnly(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	tenant := env.createTenant(t, "olga")
	ingest := env.newIngest(&fakeDescriber{desc: &vision.Description{Title: "Кадр"}})
	assets := env.newAssets()
	gallery := NewGalleryService(env.assets, env.store, testLogger())

	draft, err := ingest.Ingest(ctx, tenant, bytes.NewReader(encodeTestJPEG(t, 640, 480)), "d.jpg", "127.0.0.1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	pub, err := ingest.Ingest(ctx, tenant, bytes.NewReader(encodeTestPNG(t, 640, 480)), "p.png", "127.0.0.1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, err := assets.Transition(ctx, pub.Asset.ID, publication.EventPublish, tenant.ID, "127.0.0.1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	list, total, err := gallery.ListPublished(ctx, tenant, "", 50, 0)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != pub.Asset.ID {
		t.Errorf("в галерее должно быть ровно опубликованное изображение, получено %d", total)
	}

	// Черновик по slug недоступен публично.
	if _, _, err := gallery.GetBySlug(ctx, tenant, draft.Asset.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}

	// Параметры съёмки скрыты, пока тенант не разрешил их показывать.
	got, _, err := gallery.GetBySlug(ctx, tenant, pub.Asset.Slug)
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if !got.Camera.Empty() {
		t.Error("параметры съёмки должны быть скрыты при share_exif=false")
	}
}
