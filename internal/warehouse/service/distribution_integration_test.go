package service_test

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/internal/warehouse/service"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error

	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		panic("failed to create integration suite: " + err.Error())
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

type services struct {
	batchRepo *repository.BatchRepository
	distRepo  *repository.DistributionRepository
	notifRepo *repository.NotificationRepository
	batch     *service.BatchService
	dist      *service.DistributionService
	notif     *service.NotificationService
	report    *service.ReportService
}

func newServices(t *testing.T) *services {
	t.Helper()
	testutil.SkipIfShort(t)
	suite.ResetTables(t, context.Background())

	batchRepo := repository.NewBatchRepository(suite.DB)
	distRepo := repository.NewDistributionRepository(suite.DB)
	notifRepo := repository.NewNotificationRepository(suite.DB)
	ledger := service.NewLedgerService(batchRepo, notifRepo, suite.Logger)

	return &services{
		batchRepo: batchRepo,
		distRepo:  distRepo,
		notifRepo: notifRepo,
		batch:     service.NewBatchService(suite.DB, batchRepo, notifRepo, nil, suite.Logger),
		dist:      service.NewDistributionService(suite.DB, ledger, batchRepo, distRepo, nil, suite.Logger),
		notif:     service.NewNotificationService(notifRepo),
		report:    service.NewReportService(batchRepo, distRepo),
	}
}

func seedBatch(t *testing.T, s *services, id, product string, quantity, expiresInDays int) *repository.ProductBatch {
	t.Helper()

	batch := &repository.ProductBatch{
		ID:          id,
		BarcodeNo:   "4800" + id,
		ProductName: product,
		Quantity:    quantity,
		ExpiryDate:  time.Now().AddDate(0, 0, expiresInDays).Truncate(24 * time.Hour),
	}
	require.NoError(t, s.batchRepo.Create(context.Background(), batch))
	return batch
}

func totalActiveStock(t *testing.T, s *services, product string) int {
	t.Helper()

	batches, err := s.batchRepo.ListByProduct(context.Background(), product, false)
	require.NoError(t, err)

	total := 0
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}

func TestDistributionCreate_FIFOAcrossBatches(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	oldest := seedBatch(t, s, "B-OLD", "Amoxicillin 250mg", 100, 60)
	middle := seedBatch(t, s, "B-MID", "Amoxicillin 250mg", 400, 120)
	newest := seedBatch(t, s, "B-NEW", "Amoxicillin 250mg", 400, 365)

	// 250 units spans the oldest batch (100) and part of the middle one (150).
	record, _, err := s.dist.Create(ctx, oldest.ID, 250)
	require.NoError(t, err)

	assert.Equal(t, oldest.ID, record.BatchID, "record anchors to the first batch drained")
	assert.Equal(t, 250, record.Quantity)
	assert.True(t, record.IsActive)

	drained, err := s.batchRepo.GetByID(ctx, oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, drained.Quantity)
	assert.True(t, drained.IsArchived, "drained batch is archived")
	assert.NotNil(t, drained.ArchivedAt)

	partial, err := s.batchRepo.GetByID(ctx, middle.ID)
	require.NoError(t, err)
	assert.Equal(t, 250, partial.Quantity)
	assert.False(t, partial.IsArchived)

	untouched, err := s.batchRepo.GetByID(ctx, newest.ID)
	require.NoError(t, err)
	assert.Equal(t, 400, untouched.Quantity)

	// Archived notification for the drained batch.
	notifications, err := s.notif.List(ctx, repository.NotifTypeArchived, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, oldest.ID, notifications[0].BatchID)
}

func TestDistributionCreate_OrderingViolation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	older := seedBatch(t, s, "B-EARLY", "Ibuprofen 200mg", 300, 30)
	newer := seedBatch(t, s, "B-LATE", "Ibuprofen 200mg", 300, 200)

	_, _, err := s.dist.Create(ctx, newer.ID, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOrderingViolation))

	// Nothing moved.
	assert.Equal(t, 600, totalActiveStock(t, s, "Ibuprofen 200mg"))

	records, err := s.dist.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Draining the older batch first unblocks the newer one.
	_, _, err = s.dist.Create(ctx, older.ID, 300)
	require.NoError(t, err)

	_, _, err = s.dist.Create(ctx, newer.ID, 50)
	require.NoError(t, err)
}

func TestDistributionCreate_InsufficientStock(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-ONLY", "Cetirizine 10mg", 80, 90)
	seedBatch(t, s, "B-ONLY2", "Cetirizine 10mg", 40, 180)

	_, _, err := s.dist.Create(ctx, batch.ID, 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	// The failed request left both batches intact.
	assert.Equal(t, 120, totalActiveStock(t, s, "Cetirizine 10mg"))
}

func TestDistributionCreate_InvalidQuantity(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-Q", "Loratadine 10mg", 500, 90)

	for _, quantity := range []int{0, -5} {
		_, _, err := s.dist.Create(ctx, batch.ID, quantity)
		require.Error(t, err, "quantity %d", quantity)
		assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
	}

	assert.Equal(t, 500, totalActiveStock(t, s, "Loratadine 10mg"))
}

func TestDistributionCreate_SpansBatchesBeyondSingleBatchCapacity(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	oldest := seedBatch(t, s, "B-BIG1", "Saline 500ml", 700, 60)
	seedBatch(t, s, "B-BIG2", "Saline 500ml", 500, 120)

	// MaxStock caps a single batch, not a distribution: 1100 units come out
	// of the two batches together.
	record, _, err := s.dist.Create(ctx, oldest.ID, 1100)
	require.NoError(t, err)
	assert.Equal(t, 1100, record.Quantity)
	assert.Equal(t, oldest.ID, record.BatchID)

	assert.Equal(t, 100, totalActiveStock(t, s, "Saline 500ml"))

	// Total availability is still the ceiling.
	_, _, err = s.dist.Create(ctx, "B-BIG2", 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
}

func TestDistributionAmend_BeyondSingleBatchCapacity(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	early := seedBatch(t, s, "B-BC1", "Dextrose 5%", 800, 60)
	late := seedBatch(t, s, "B-BC2", "Dextrose 5%", 800, 120)

	record, _, err := s.dist.Create(ctx, early.ID, 300)
	require.NoError(t, err)

	amended, err := s.dist.Amend(ctx, record.ID, 1200)
	require.NoError(t, err)
	assert.Equal(t, 1200, amended.Quantity)
	assert.Equal(t, 400, totalActiveStock(t, s, "Dextrose 5%"))

	// The restore half of the amend respects per-batch capacity.
	lateAfter, err := s.batchRepo.GetByID(ctx, late.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, lateAfter.Quantity, repository.MaxStock)
}

func TestDistributionCreate_LowStockWarningAndNotification(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-LOW", "Salbutamol inhaler", 400, 365)

	// 400 - 100 = 300, at or below the 350 threshold.
	_, warning, err := s.dist.Create(ctx, batch.ID, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, warning)

	notifications, err := s.notif.List(ctx, repository.NotifTypeLowStock, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, batch.ID, notifications[0].BatchID)
}

func TestDistributionCreate_ExpiringSoonNotification(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-EXP", "Insulin pen", 900, 20)

	_, _, err := s.dist.Create(ctx, batch.ID, 10)
	require.NoError(t, err)

	notifications, err := s.notif.List(ctx, repository.NotifTypeExpiringSoon, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, batch.ID, notifications[0].BatchID)
}

func TestDistributionAmend_RestoreThenDeduct(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	first := seedBatch(t, s, "B-AM1", "Metformin 500mg", 200, 60)
	seedBatch(t, s, "B-AM2", "Metformin 500mg", 200, 120)

	record, _, err := s.dist.Create(ctx, first.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 250, totalActiveStock(t, s, "Metformin 500mg"))

	amended, err := s.dist.Amend(ctx, record.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, amended.Quantity)
	assert.Equal(t, 100, totalActiveStock(t, s, "Metformin 500mg"))

	// Amending down restores the difference.
	amended, err = s.dist.Amend(ctx, record.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, amended.Quantity)
	assert.Equal(t, 350, totalActiveStock(t, s, "Metformin 500mg"))
}

func TestDistributionAmend_FailureLeavesStateIntact(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-ATOM", "Omeprazole 20mg", 500, 90)

	record, _, err := s.dist.Create(ctx, batch.ID, 200)
	require.NoError(t, err)

	// 300 on hand + 200 restorable = 500 available, 600 requested.
	_, err = s.dist.Amend(ctx, record.ID, 600)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	// The restoration inside the failed amend rolled back with it.
	assert.Equal(t, 300, totalActiveStock(t, s, "Omeprazole 20mg"))

	current, err := s.dist.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, current.Quantity)
	assert.True(t, current.IsActive)
}

func TestDistributionAmend_SameQuantityIsNoop(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-NOOP", "Aspirin 100mg", 500, 90)

	record, _, err := s.dist.Create(ctx, batch.ID, 100)
	require.NoError(t, err)

	amended, err := s.dist.Amend(ctx, record.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, amended.Quantity)
	assert.Equal(t, 400, totalActiveStock(t, s, "Aspirin 100mg"))
}

func TestDistributionRetire_NoStockRestoration(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-RET", "Vitamin C 500mg", 500, 90)

	record, _, err := s.dist.Create(ctx, batch.ID, 100)
	require.NoError(t, err)

	retired, err := s.dist.Retire(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, retired.IsActive)

	// Retirement is bookkeeping only; the handed-out stock stays gone.
	assert.Equal(t, 400, totalActiveStock(t, s, "Vitamin C 500mg"))

	// Retiring twice is rejected.
	_, err = s.dist.Retire(ctx, record.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyRetired))
}

func TestDistributionDelete_ActiveForbidden(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-DEL", "Zinc 50mg", 500, 90)

	record, _, err := s.dist.Create(ctx, batch.ID, 50)
	require.NoError(t, err)

	err = s.dist.Delete(ctx, record.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDeleteForbidden))

	// Retired records can be removed.
	_, err = s.dist.Retire(ctx, record.ID)
	require.NoError(t, err)
	require.NoError(t, s.dist.Delete(ctx, record.ID))

	_, err = s.dist.Get(ctx, record.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStockConservation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	seedBatch(t, s, "B-C1", "Folic acid 5mg", 300, 60)
	anchor := seedBatch(t, s, "B-C2", "Folic acid 5mg", 300, 30)
	seedBatch(t, s, "B-C3", "Folic acid 5mg", 400, 120)

	before := totalActiveStock(t, s, "Folic acid 5mg")
	require.Equal(t, 1000, before)

	record, _, err := s.dist.Create(ctx, anchor.ID, 450)
	require.NoError(t, err)

	_, err = s.dist.Amend(ctx, record.ID, 200)
	require.NoError(t, err)

	after := totalActiveStock(t, s, "Folic acid 5mg")
	assert.Equal(t, before, after+200, "stock on hand plus distributed equals the original total")

	summaries, err := s.report.StockSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, after, summaries[0].InStock)
	assert.Equal(t, 200, summaries[0].Distributed)
}

func TestBatchReactivation_RoundTrip(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	batch := seedBatch(t, s, "B-RR", "Ferrous sulfate", 120, 45)

	archived, err := s.batch.Archive(ctx, batch.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)

	// Archived batches are invisible to distribution.
	_, _, err = s.dist.Create(ctx, batch.ID, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyArchived))

	// Archiving twice is rejected.
	_, err = s.batch.Archive(ctx, batch.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyArchived))

	newExpiry := time.Now().AddDate(1, 0, 0).Truncate(24 * time.Hour)
	reactivated, err := s.batch.Reactivate(ctx, batch.ID, 800, newExpiry)
	require.NoError(t, err)
	assert.False(t, reactivated.IsArchived)
	assert.Equal(t, 800, reactivated.Quantity)

	// Reactivating an active batch is rejected.
	_, err = s.batch.Reactivate(ctx, batch.ID, 100, newExpiry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyActive))

	// The batch is distributable again.
	_, _, err = s.dist.Create(ctx, batch.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 700, totalActiveStock(t, s, "Ferrous sulfate"))
}

func TestRestore_FillsLatestExpiryFirst(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	early := seedBatch(t, s, "B-F1", "Prednisone 5mg", 600, 30)
	late := seedBatch(t, s, "B-F2", "Prednisone 5mg", 900, 300)

	record, _, err := s.dist.Create(ctx, early.ID, 500)
	require.NoError(t, err)

	// Restoring 500 and deducting 100: the freed 400 net goes to the latest
	// batch first (headroom 100), overflow into the earlier one.
	_, err = s.dist.Amend(ctx, record.ID, 100)
	require.NoError(t, err)

	lateAfter, err := s.batchRepo.GetByID(ctx, late.ID)
	require.NoError(t, err)
	earlyAfter, err := s.batchRepo.GetByID(ctx, early.ID)
	require.NoError(t, err)

	assert.Equal(t, 1400, lateAfter.Quantity+earlyAfter.Quantity)
	assert.LessOrEqual(t, lateAfter.Quantity, repository.MaxStock, "restore never exceeds batch capacity")
	assert.LessOrEqual(t, earlyAfter.Quantity, repository.MaxStock)
}
