package ordersync

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/internal/catalog"
	"github.com/rockcreekarms/ordersync-backend/pkg/crm"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
)

type fakeSyncStore struct {
	orders map[uuid.UUID]*models.Order
	groups map[string]*models.SyncGroupRecord

	savedOrders int
	savedLines  int
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		orders: map[uuid.UUID]*models.Order{},
		groups: map[string]*models.SyncGroupRecord{},
	}
}

func groupMapKey(orderID uuid.UUID, key enums.FulfillmentPath) string {
	return orderID.String() + "/" + key.String()
}

func (f *fakeSyncStore) FindOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeSyncStore) SaveOrder(_ context.Context, _ *models.Order) error {
	f.savedOrders++
	return nil
}

func (f *fakeSyncStore) SaveLineAssignment(_ context.Context, _ *models.OrderLine) error {
	f.savedLines++
	return nil
}

func (f *fakeSyncStore) FindGroup(_ context.Context, orderID uuid.UUID, key enums.FulfillmentPath) (*models.SyncGroupRecord, error) {
	record, ok := f.groups[groupMapKey(orderID, key)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeSyncStore) SaveGroup(_ context.Context, record *models.SyncGroupRecord) error {
	clone := *record
	f.groups[groupMapKey(record.OrderID, record.GroupKey)] = &clone
	return nil
}

type fakeResolver struct {
	nextID  int64
	failMPN string
}

func (f *fakeResolver) Resolve(_ context.Context, in catalog.Identity) (*models.CatalogProduct, error) {
	if f.failMPN != "" && in.MPN == f.failMPN {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line carries no product identifiers")
	}
	f.nextID++
	return &models.CatalogProduct{ID: f.nextID, MPN: in.MPN, UPC: in.UPC, Name: in.Name, IsActive: true}, nil
}

type fakeGateway struct{}

func (fakeGateway) Ensure(_ context.Context, product *models.CatalogProduct) (string, error) {
	return "crmp-" + product.MPN, nil
}

type fakeContacts struct {
	id    string
	err   error
	calls int
}

func (f *fakeContacts) FindOrCreateContact(_ context.Context, _ crm.ContactCreateParams) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeDeals struct {
	existing     map[string]*crm.Deal
	failWith     map[string]error
	created      []crm.DealCreateParams
	stageUpdates map[string]string
	searches     int
	createSeq    int
}

func newFakeDeals() *fakeDeals {
	return &fakeDeals{existing: map[string]*crm.Deal{}, failWith: map[string]error{}, stageUpdates: map[string]string{}}
}

func (f *fakeDeals) SearchDealByOrderNumber(_ context.Context, orderNumber string) (*crm.Deal, error) {
	f.searches++
	return f.existing[orderNumber], nil
}

func (f *fakeDeals) CreateDeal(_ context.Context, params crm.DealCreateParams) (string, error) {
	if err := f.failWith[params.OrderNumber]; err != nil {
		return "", err
	}
	f.createSeq++
	id := fmt.Sprintf("deal-%d", f.createSeq)
	f.created = append(f.created, params)
	f.existing[params.OrderNumber] = &crm.Deal{ID: id, OrderNumber: params.OrderNumber, Stage: params.Stage}
	return id, nil
}

func (f *fakeDeals) UpdateDealStage(_ context.Context, dealID, stage string) error {
	f.stageUpdates[dealID] = stage
	for _, deal := range f.existing {
		if deal.ID == dealID {
			deal.Stage = stage
		}
	}
	return nil
}

type fakeHolds struct {
	holds []enums.HoldType
}

func (f *fakeHolds) Evaluate(_ context.Context, _ *models.Order) ([]enums.HoldType, error) {
	return f.holds, nil
}

type fixture struct {
	store    *fakeSyncStore
	resolver *fakeResolver
	contacts *fakeContacts
	deals    *fakeDeals
	holds    *fakeHolds
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeSyncStore(),
		resolver: &fakeResolver{},
		contacts: &fakeContacts{id: "contact-1"},
		deals:    newFakeDeals(),
		holds:    &fakeHolds{},
	}
	svc, err := NewService(f.store, f.resolver, fakeGateway{}, f.contacts, f.deals, f.holds, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.service = svc
	return f
}

func testLine(mpn string, qty int, regulated, dropShip, inHouse bool) models.OrderLine {
	return models.OrderLine{
		ID:               uuid.New(),
		MPN:              mpn,
		UPC:              "0" + mpn,
		Name:             "Item " + mpn,
		Quantity:         qty,
		UnitPrice:        decimal.NewFromInt(100),
		Regulated:        regulated,
		DropShipEligible: dropShip,
		InHouseOnly:      inHouse,
	}
}

func (f *fixture) addOrder(testMode bool, lines ...models.OrderLine) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		SourceOrderID: "src-1",
		BuyerEmail:    "buyer@example.com",
		BuyerName:     "Jordan Smith",
		BuyerTier:     enums.BuyerTierRetail,
		Status:        enums.OrderStatusReceived,
		TestMode:      testMode,
		BaseSequence:  42,
		Lines:         lines,
	}
	f.store.orders[order.ID] = order
	return order
}

func TestSyncOrderNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.SyncOrder(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSyncOrderSingleGroup(t *testing.T) {
	f := newFixture(t)
	line := testLine("AC-1", 2, true, false, false)
	line.StockNumber = "D-AC-1"
	order := f.addOrder(false, line)

	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Synced() {
		t.Fatalf("expected synced result, got %+v", result)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(result.Groups))
	}
	got := result.Groups[0]
	if got.OrderNumber != "00000420" {
		t.Fatalf("expected order number 00000420, got %s", got.OrderNumber)
	}
	if result.ParentLabel != "00000420" {
		t.Fatalf("single group parent should equal child, got %s", result.ParentLabel)
	}
	if f.contacts.calls != 1 {
		t.Fatalf("buyer should be resolved exactly once, got %d", f.contacts.calls)
	}
	if len(f.deals.created) != 1 {
		t.Fatalf("expected one deal, got %d", len(f.deals.created))
	}
	deal := f.deals.created[0]
	if deal.Stage != "Submitted" || deal.ContactID != "contact-1" {
		t.Fatalf("unexpected deal params %+v", deal)
	}
	if !deal.Amount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected amount 200, got %s", deal.Amount)
	}
	if len(deal.Lines) != 1 {
		t.Fatalf("expected one deal line, got %d", len(deal.Lines))
	}
	dealLine := deal.Lines[0]
	if dealLine.StockNumber != "D-AC-1" || dealLine.UPC != "0AC-1" || !dealLine.Regulated {
		t.Fatalf("unexpected deal line %+v", dealLine)
	}
	record := f.store.groups[groupMapKey(order.ID, enums.FulfillmentPathDealer)]
	if record == nil || record.Status != enums.SyncStatusSynced || record.Attempts != 1 || record.SyncedAt == nil {
		t.Fatalf("unexpected group record %+v", record)
	}
}

func TestSyncOrderMultiGroupTestMode(t *testing.T) {
	f := newFixture(t)
	order := f.addOrder(true,
		testLine("AC-1", 1, true, false, false), // dealer
		testLine("AC-2", 1, false, true, false), // direct
		testLine("AC-3", 1, false, false, true), // in-house
	)

	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ParentLabel != "test0000042Z" {
		t.Fatalf("expected parent test0000042Z, got %s", result.ParentLabel)
	}
	want := map[enums.FulfillmentPath]string{
		enums.FulfillmentPathDealer:  "test0000042A",
		enums.FulfillmentPathDirect:  "test0000042B",
		enums.FulfillmentPathInHouse: "test0000042C",
	}
	for _, group := range result.Groups {
		if group.OrderNumber != want[group.Key] {
			t.Fatalf("group %s: expected %s, got %s", group.Key, want[group.Key], group.OrderNumber)
		}
		if group.Status != enums.SyncStatusSynced {
			t.Fatalf("group %s not synced: %+v", group.Key, group)
		}
	}
	if len(f.deals.created) != 3 {
		t.Fatalf("expected three deals, got %d", len(f.deals.created))
	}
}

func TestSyncOrderIdempotentRerun(t *testing.T) {
	f := newFixture(t)
	order := f.addOrder(false, testLine("AC-1", 1, true, false, false))

	if _, err := f.service.SyncOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error on rerun: %v", err)
	}
	if !result.Synced() {
		t.Fatalf("expected synced result, got %+v", result)
	}
	if len(f.deals.created) != 1 {
		t.Fatalf("rerun must not create another deal, got %d", len(f.deals.created))
	}
	record := f.store.groups[groupMapKey(order.ID, enums.FulfillmentPathDealer)]
	if record.Attempts != 1 {
		t.Fatalf("synced group must not be re-attempted, attempts=%d", record.Attempts)
	}
}

func TestSyncOrderProbeAdoptsExistingDeal(t *testing.T) {
	f := newFixture(t)
	order := f.addOrder(false, testLine("AC-1", 1, true, false, false))
	f.deals.existing["00000420"] = &crm.Deal{ID: "deal-prior", OrderNumber: "00000420"}

	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.deals.created) != 0 {
		t.Fatal("existing deal must not be recreated")
	}
	if result.Groups[0].DealID != "deal-prior" {
		t.Fatalf("expected adopted deal id, got %s", result.Groups[0].DealID)
	}
	if got := f.deals.stageUpdates["deal-prior"]; got != "Submitted" {
		t.Fatalf("adopted deal should be realigned to the current stage, got %q", got)
	}
}

func TestSyncOrderAdoptionKeepsMatchingStage(t *testing.T) {
	f := newFixture(t)
	order := f.addOrder(false, testLine("AC-1", 1, true, false, false))
	f.deals.existing["00000420"] = &crm.Deal{ID: "deal-prior", OrderNumber: "00000420", Stage: "Submitted"}

	if _, err := f.service.SyncOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.deals.stageUpdates) != 0 {
		t.Fatalf("matching stage must not be rewritten, got %v", f.deals.stageUpdates)
	}
}

func TestSyncOrderPartialFailureThenResync(t *testing.T) {
	f := newFixture(t)
	order := f.addOrder(false,
		testLine("AC-1", 1, true, false, false), // dealer -> A
		testLine("AC-2", 1, false, true, false), // direct -> B
	)
	f.deals.failWith["0000042B"] = pkgerrors.New(pkgerrors.CodeDependency, "crm unavailable")

	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err == nil {
		t.Fatal("expected error from failed group")
	}
	statuses := map[enums.FulfillmentPath]enums.SyncStatus{}
	for _, group := range result.Groups {
		statuses[group.Key] = group.Status
	}
	if statuses[enums.FulfillmentPathDealer] != enums.SyncStatusSynced {
		t.Fatalf("dealer group should sync independently, got %v", statuses)
	}
	if statuses[enums.FulfillmentPathDirect] != enums.SyncStatusFailed {
		t.Fatalf("direct group should fail, got %v", statuses)
	}
	failed := f.store.groups[groupMapKey(order.ID, enums.FulfillmentPathDirect)]
	if failed.LastError == nil || failed.Attempts != 1 {
		t.Fatalf("failed group should record the error, got %+v", failed)
	}

	delete(f.deals.failWith, "0000042B")
	result, err = f.service.SyncOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error on resync: %v", err)
	}
	if !result.Synced() {
		t.Fatalf("expected fully synced order, got %+v", result)
	}
	if len(f.deals.created) != 2 {
		t.Fatalf("expected exactly two deals across both attempts, got %d", len(f.deals.created))
	}
	recovered := f.store.groups[groupMapKey(order.ID, enums.FulfillmentPathDirect)]
	if recovered.Status != enums.SyncStatusSynced || recovered.LastError != nil || recovered.Attempts != 2 {
		t.Fatalf("unexpected recovered record %+v", recovered)
	}
}

func TestSyncOrderBuyerFailureLeavesGroupsPending(t *testing.T) {
	f := newFixture(t)
	f.contacts.err = pkgerrors.New(pkgerrors.CodeDependency, "crm unavailable")
	order := f.addOrder(false,
		testLine("AC-1", 1, true, false, false),
		testLine("AC-2", 1, false, true, false),
	)

	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err == nil {
		t.Fatal("expected buyer failure to surface")
	}
	for _, group := range result.Groups {
		if group.Status != enums.SyncStatusPending {
			t.Fatalf("group %s should stay pending, got %s", group.Key, group.Status)
		}
	}
	if len(f.deals.created) != 0 || f.deals.searches != 0 {
		t.Fatal("no deal work may happen before the buyer resolves")
	}
}

func TestSyncOrderValidationAbortsRemainingGroups(t *testing.T) {
	f := newFixture(t)
	f.resolver.failMPN = "AC-1"
	order := f.addOrder(false,
		testLine("AC-1", 1, true, false, false), // dealer, processed first
		testLine("AC-2", 1, false, true, false), // direct
	)

	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	statuses := map[enums.FulfillmentPath]enums.SyncStatus{}
	for _, group := range result.Groups {
		statuses[group.Key] = group.Status
	}
	if statuses[enums.FulfillmentPathDealer] != enums.SyncStatusFailed {
		t.Fatalf("dealer group should fail, got %v", statuses)
	}
	if statuses[enums.FulfillmentPathDirect] != enums.SyncStatusPending {
		t.Fatalf("validation must abort unstarted groups, got %v", statuses)
	}
	if len(f.deals.created) != 0 {
		t.Fatal("no deals may be created after a validation abort")
	}
}

func TestSyncOrderHoldAnnotatesDeal(t *testing.T) {
	f := newFixture(t)
	f.holds.holds = []enums.HoldType{enums.HoldTypeDealerNotOnFile}
	order := f.addOrder(false, testLine("AC-1", 1, true, false, false))

	result, err := f.service.SyncOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Synced() {
		t.Fatalf("holds must not block the sync, got %+v", result)
	}
	if order.Status != enums.OrderStatusHold {
		t.Fatalf("expected order on hold, got %s", order.Status)
	}
	deal := f.deals.created[0]
	if deal.Stage != "On Hold" {
		t.Fatalf("expected stage On Hold, got %s", deal.Stage)
	}
	if deal.HoldType != "FFL not on file" {
		t.Fatalf("expected hold annotation, got %q", deal.HoldType)
	}
}

func TestSyncOrderDealerLicenseTravelsOnDealerGroupOnly(t *testing.T) {
	f := newFixture(t)
	license := "1-23-456"
	order := f.addOrder(false,
		testLine("AC-1", 1, true, false, false),
		testLine("AC-2", 1, false, true, false),
	)
	order.DealerLicense = &license

	if _, err := f.service.SyncOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, deal := range f.deals.created {
		isDealer := deal.FulfillmentPath == enums.FulfillmentPathDealer.String()
		if isDealer && deal.DealerLicense != license {
			t.Fatalf("dealer deal missing license: %+v", deal)
		}
		if !isDealer && deal.DealerLicense != "" {
			t.Fatalf("non-dealer deal must not carry a license: %+v", deal)
		}
	}
}
