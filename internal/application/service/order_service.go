package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/event"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/logger"
	"github.com/sangkips/posflow-api/pkg/metrics"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/sangkips/posflow-api/pkg/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CouponReopenPolicy decides what happens to applied coupons when a billed order is reopened
type CouponReopenPolicy string

const (
	// CouponReopenKeep leaves usage counts and coupon links untouched
	CouponReopenKeep CouponReopenPolicy = "keep"
	// CouponReopenRelease gives the usages back and unlinks the coupons
	CouponReopenRelease CouponReopenPolicy = "release"
)

// OrderOptions tunes the order state machine
type OrderOptions struct {
	StagingTTL time.Duration
	// DispatchTimeout bounds the enqueue of the side effects of one committed operation
	DispatchTimeout    time.Duration
	CouponReopenPolicy CouponReopenPolicy
}

// DefaultDispatchTimeout is used when OrderOptions leaves DispatchTimeout unset
const DefaultDispatchTimeout = 2 * time.Second

// OrderServiceDeps groups the collaborators of the order state machine
type OrderServiceDeps struct {
	TxManager      repository.TxManager
	Staging        repository.StagingStore
	Dispatcher     event.Dispatcher
	Businesses     repository.BusinessRepository
	Areas          repository.AreaRepository
	Cycles         repository.EconomicCycleRepository
	Products       repository.ProductRepository
	Orders         repository.OrderRepository
	CashOperations repository.CashOperationRepository
	Tickets        repository.ProductionTicketRepository
	Resources      repository.ResourceRepository
	Dispatches     repository.DispatchRepository
	Ledger         *StockLedger
	Coupons        *CouponProcessor
	Options        OrderOptions
	Clock          func() time.Time
}

// OrderService owns the order lifecycle: every intent runs in one transaction that stages
// the working order, drives the stock ledger, coupons and settlement, persists and commits.
// Side effects are dispatched after the commit.
type OrderService struct {
	txm        repository.TxManager
	staging    repository.StagingStore
	dispatcher event.Dispatcher
	businesses repository.BusinessRepository
	areas      repository.AreaRepository
	cycles     repository.EconomicCycleRepository
	products   repository.ProductRepository
	orders     repository.OrderRepository
	cash       repository.CashOperationRepository
	tickets    repository.ProductionTicketRepository
	resources  repository.ResourceRepository
	dispatches repository.DispatchRepository
	ledger     *StockLedger
	coupons    *CouponProcessor
	opts       OrderOptions
	now        func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(deps OrderServiceDeps) *OrderService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	opts := deps.Options
	if opts.StagingTTL <= 0 {
		opts.StagingTTL = DefaultStagingTTL
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = DefaultDispatchTimeout
	}
	if opts.CouponReopenPolicy == "" {
		opts.CouponReopenPolicy = CouponReopenKeep
	}
	return &OrderService{
		txm:        deps.TxManager,
		staging:    deps.Staging,
		dispatcher: deps.Dispatcher,
		businesses: deps.Businesses,
		areas:      deps.Areas,
		cycles:     deps.Cycles,
		products:   deps.Products,
		orders:     deps.Orders,
		cash:       deps.CashOperations,
		tickets:    deps.Tickets,
		resources:  deps.Resources,
		dispatches: deps.Dispatches,
		ledger:     deps.Ledger,
		coupons:    deps.Coupons,
		opts:       opts,
		now:        now,
	}
}

// AddonInput is an addon sold with a line. Quantity is the total for the line.
type AddonInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// LineInput is a product requested for an order
type LineInput struct {
	ProductID    uuid.UUID
	VariationID  *uuid.UUID
	Quantity     decimal.Decimal
	Addons       []AddonInput
	Observations string
}

// PaymentInput is one received payment
type PaymentInput struct {
	Amount     money.Money
	PaymentWay enum.PaymentWay
}

// PayOrderInput carries everything billing needs
type PayOrderInput struct {
	Payments          []PaymentInput
	Coupons           []string
	AmountReturned    *money.Money
	Tip               *money.Money
	Shipping          *money.Money
	DiscountPercent   *decimal.Decimal
	CommissionPercent *decimal.Decimal
	HouseCosted       bool
}

// CreateOrderInput represents the create order input
type CreateOrderInput struct {
	AreaID         uuid.UUID
	Name           string
	Origin         enum.OrderOrigin
	ManagedByID    *uuid.UUID
	CreatedAt      *time.Time
	Lines          []LineInput
	ResourceIDs    []uuid.UUID
	PaymentGateway bool
	Payment        *PayOrderInput
}

// Validate checks the create order input
func (in *CreateOrderInput) Validate() error {
	if in.AreaID == uuid.Nil {
		return apperror.NewFieldError("area_id", "is required")
	}
	if len(in.Lines) == 0 {
		return apperror.NewFieldError("products", "at least one product is required")
	}
	if in.Payment != nil && in.PaymentGateway && in.Origin != enum.OrderOriginPOS {
		return apperror.NewFieldError("payment", "orders paid through the gateway cannot be billed on creation")
	}
	return validateLines("products", in.Lines)
}

func validateLines(field string, lines []LineInput) error {
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return apperror.NewFieldError(field, "product id is required")
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewFieldError(field, "quantity must be greater than zero")
		}
		for _, addon := range line.Addons {
			if addon.ProductID == uuid.Nil || !addon.Quantity.IsPositive() {
				return apperror.NewFieldError(field, "addons need a product and a positive quantity")
			}
		}
	}
	return nil
}

// afterCommit collects what a committed transaction hands to the dispatcher
type afterCommit struct {
	order     *entity.Order
	event     string
	from      string
	others    []broadcast
	records   []event.OrderRecord
	stock     map[uuid.UUID]map[uuid.UUID]struct{}
	ticketIDs []uuid.UUID
	notify    bool
	duplicate bool
}

type broadcast struct {
	order     *entity.Order
	event     string
	ticketIDs []uuid.UUID
}

func newAfterCommit(order *entity.Order, evt string, from enum.OrderStatus) *afterCommit {
	return &afterCommit{order: order, event: evt, from: from.String()}
}

// touch marks products whose availability changed in a stock area
func (ac *afterCommit) touch(areaID uuid.UUID, items []StockItem) {
	if len(items) == 0 {
		return
	}
	if ac.stock == nil {
		ac.stock = make(map[uuid.UUID]map[uuid.UUID]struct{})
	}
	if ac.stock[areaID] == nil {
		ac.stock[areaID] = make(map[uuid.UUID]struct{})
	}
	for _, item := range items {
		ac.stock[areaID][item.ProductID] = struct{}{}
	}
}

func (ac *afterCommit) jobs() []event.Job {
	if ac.duplicate {
		return nil
	}
	var jobs []event.Job
	add := func(code string, payload interface{}) {
		job, err := event.NewJob(code, payload)
		if err == nil {
			jobs = append(jobs, job)
		}
	}
	order := ac.order

	if len(ac.records) > 0 {
		add(event.JobRecordLog, event.RecordLogPayload{BusinessID: order.BusinessID, OrderID: order.ID, Records: ac.records})
	}
	for _, b := range append([]broadcast{{order: order, event: ac.event}}, ac.others...) {
		add(event.JobSocketBroadcast, event.BroadcastPayload{
			BusinessID: b.order.BusinessID,
			AreaID:     b.order.AreaID,
			Event:      b.event,
			OrderID:    b.order.ID,
			Status:     b.order.Status.String(),
			TotalToPay: b.order.TotalToPay,
		})
	}

	areaIDs := make([]uuid.UUID, 0, len(ac.stock))
	for id := range ac.stock {
		areaIDs = append(areaIDs, id)
	}
	sort.Slice(areaIDs, func(i, j int) bool { return areaIDs[i].String() < areaIDs[j].String() })
	for _, areaID := range areaIDs {
		productIDs := make([]uuid.UUID, 0, len(ac.stock[areaID]))
		for id := range ac.stock[areaID] {
			productIDs = append(productIDs, id)
		}
		sort.Slice(productIDs, func(i, j int) bool { return productIDs[i].String() < productIDs[j].String() })
		add(event.JobCheckProductAvailability, event.AvailabilityPayload{BusinessID: order.BusinessID, AreaID: areaID, ProductIDs: productIDs})
	}

	if len(ac.ticketIDs) > 0 {
		add(event.JobProductionTicketFanout, event.TicketFanoutPayload{BusinessID: order.BusinessID, OrderID: order.ID, TicketIDs: ac.ticketIDs})
	}
	for _, b := range ac.others {
		if len(b.ticketIDs) > 0 {
			add(event.JobProductionTicketFanout, event.TicketFanoutPayload{BusinessID: b.order.BusinessID, OrderID: b.order.ID, TicketIDs: b.ticketIDs})
		}
	}
	if ac.notify && order.Origin != enum.OrderOriginPOS {
		add(event.JobNotifyOrder, event.NotifyPayload{BusinessID: order.BusinessID, OrderID: order.ID, Event: ac.event, Origin: order.Origin.String()})
	}
	return jobs
}

// run executes fn in a transaction with a fresh stage. Side effects are dispatched
// only once the transaction committed.
func (s *OrderService) run(ctx context.Context, rc RequestContext, fn func(ctx context.Context, st *stage) (*afterCommit, error)) (*afterCommit, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.With(ctx, zap.String("business_id", rc.BusinessID.String()), zap.String("user_id", rc.UserID.String()))

	var (
		ac *afterCommit
		st *stage
	)
	err := s.txm.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		st, err = openStage(txCtx, s.staging, s.opts.StagingTTL, rc, s.now)
		if err != nil {
			return err
		}
		ac, err = fn(txCtx, st)
		if err != nil {
			return err
		}
		ac.records, err = st.records(txCtx)
		return err
	})
	if st != nil {
		st.clear(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, ac)
	return ac, nil
}

// dispatch hands the side effects to the queue. Failures are logged and never undo the commit.
func (s *OrderService) dispatch(ctx context.Context, ac *afterCommit) {
	if ac.duplicate {
		return
	}
	if ac.from != ac.order.Status.String() {
		metrics.ObserveTransition(ac.from, ac.order.Status.String())
	}
	log := logger.FromContext(ctx)
	// the transaction is committed, so a cancelled request must not drop its side effects
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DispatchTimeout)
	defer cancel()
	for _, job := range ac.jobs() {
		if err := s.dispatcher.Enqueue(ctx, job); err != nil {
			log.Warn("failed to dispatch side effect",
				zap.String("job", job.Code),
				zap.String("order_id", ac.order.ID.String()),
				zap.Error(err),
			)
			metrics.ObserveDispatch(job.Code, "failed")
			continue
		}
		metrics.ObserveDispatch(job.Code, "ok")
	}
}

// GetOrder gets an order by ID
func (s *OrderService) GetOrder(ctx context.Context, rc RequestContext, id uuid.UUID) (*entity.Order, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, rc.BusinessID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// ListOrders lists orders with filtering
func (s *OrderService) ListOrders(ctx context.Context, rc RequestContext, params *repository.OrderFilterParams) (*pagination.PaginatedResult[entity.Order], error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if params == nil {
		params = &repository.OrderFilterParams{}
	}
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	orders, total, err := s.orders.List(ctx, rc.BusinessID, params)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(orders, pag), nil
}

func (s *OrderService) loadBusiness(ctx context.Context, rc RequestContext) (*entity.Business, error) {
	business, err := s.businesses.GetByID(ctx, rc.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, apperror.NewNotFoundError("Business")
	}
	return business, nil
}

func (s *OrderService) loadSaleArea(ctx context.Context, rc RequestContext, id uuid.UUID) (*entity.Area, error) {
	area, err := s.areas.GetByID(ctx, rc.BusinessID, id)
	if err != nil {
		return nil, err
	}
	if area == nil {
		return nil, apperror.NewNotFoundError("Area")
	}
	if area.Type != enum.AreaTypeSale {
		return nil, apperror.NewFieldError("area_id", "must be a sales area")
	}
	if !area.IsActive {
		return nil, apperror.NewStateConflictError("Area %s is not active", area.Name)
	}
	return area, nil
}

func (s *OrderService) activeCycle(ctx context.Context, rc RequestContext) (*entity.EconomicCycle, error) {
	cycle, err := s.cycles.GetActive(ctx, rc.BusinessID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, apperror.NewStateConflictError("There is no active economic cycle")
	}
	return cycle, nil
}

// lockOrder loads the order and holds its row lock for the rest of the transaction
func (s *OrderService) lockOrder(ctx context.Context, rc RequestContext, id uuid.UUID) (*entity.Order, error) {
	order, err := s.orders.GetForUpdate(ctx, rc.BusinessID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// requireCurrentCycle rejects orders that do not belong to the active economic cycle
func (s *OrderService) requireCurrentCycle(ctx context.Context, rc RequestContext, order *entity.Order) (*entity.EconomicCycle, error) {
	cycle, err := s.activeCycle(ctx, rc)
	if err != nil {
		return nil, err
	}
	if cycle.ID != order.EconomicCycleID {
		return nil, apperror.NewStateConflictError("The order belongs to a closed economic cycle")
	}
	return cycle, nil
}

func requireMutable(order *entity.Order) error {
	if order.Status.IsClosed() {
		return apperror.NewStateConflictError("Order is %s and cannot be modified", order.Status)
	}
	return nil
}

// buildLines prices the requested products from the catalog. Every line draws stock from
// the stock source of the sales area.
func (s *OrderService) buildLines(ctx context.Context, rc RequestContext, area *entity.Area, inputs []LineInput) ([]entity.SelledProduct, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{})
	for _, in := range inputs {
		for _, id := range append([]uuid.UUID{in.ProductID}, addonIDs(in.Addons)...) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	products, err := s.products.GetByIDs(ctx, rc.BusinessID, ids)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]*entity.Product, len(products))
	for i := range products {
		catalog[products[i].ID] = &products[i]
	}

	stockArea := area.StockSource()
	now := s.now()
	lines := make([]entity.SelledProduct, 0, len(inputs))
	for _, in := range inputs {
		product, ok := catalog[in.ProductID]
		if !ok {
			return nil, apperror.NewNotFoundError("Product " + in.ProductID.String())
		}

		line := entity.SelledProduct{
			ID:           uuid.New(),
			ProductID:    product.ID,
			Name:         product.Name,
			Type:         product.Type,
			Quantity:     in.Quantity,
			UnitPrice:    product.Price,
			UnitCost:     product.AverageCost,
			Status:       enum.ProductionStatusReceived,
			StockAreaID:  &stockArea,
			Observations: in.Observations,
			CreatedAt:    now,
		}

		switch product.Type {
		case enum.ProductTypeVariation:
			if in.VariationID == nil {
				return nil, apperror.NewFieldError("variation_id", "is required for "+product.Name)
			}
			variation := product.Variation(*in.VariationID)
			if variation == nil {
				return nil, apperror.NewNotFoundError("Product variation")
			}
			variationID := variation.ID
			line.VariationID = &variationID
			line.Name = product.Name + " (" + variation.Name + ")"
			if variation.Price.Currency != "" {
				line.UnitPrice = variation.Price
			}
		case enum.ProductTypeMenu:
			if product.ProductionAreaID == nil {
				return nil, apperror.NewFieldError("products", product.Name+" has no production area")
			}
			productionArea := *product.ProductionAreaID
			line.ProductionAreaID = &productionArea
		}
		if line.UnitPrice.Currency == "" {
			return nil, apperror.NewFieldError("products", product.Name+" has no price")
		}

		for _, a := range in.Addons {
			addon, ok := catalog[a.ProductID]
			if !ok {
				return nil, apperror.NewNotFoundError("Addon " + a.ProductID.String())
			}
			if addon.Type != enum.ProductTypeAddon {
				return nil, apperror.NewFieldError("addons", addon.Name+" is not an addon")
			}
			line.Addons = append(line.Addons, entity.SelledProductAddon{
				ID:              uuid.New(),
				SelledProductID: line.ID,
				ProductID:       addon.ID,
				Name:            addon.Name,
				Quantity:        a.Quantity,
				Price:           addon.Price,
			})
		}
		line.TotalPrice = line.UnitPrice.Mul(line.Quantity)
		lines = append(lines, line)
	}
	return lines, nil
}

func addonIDs(addons []AddonInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(addons))
	for i, a := range addons {
		ids[i] = a.ProductID
	}
	return ids
}

// substractLines takes the stock consumed by the lines from the areas they draw from
func (s *OrderService) substractLines(ctx context.Context, rc RequestContext, business *entity.Business, order *entity.Order, lines []entity.SelledProduct, op enum.StockOperation, ac *afterCommit) error {
	grouped := stockItemsByArea(lines, order.AreaID)
	for _, areaID := range sortedAreaIDs(grouped) {
		orderID, cycleID := order.ID, order.EconomicCycleID
		if _, err := s.ledger.Substract(ctx, rc, SubstractInput{
			Items:           grouped[areaID],
			AreaID:          areaID,
			Strict:          !business.AllowNegativeStock,
			Operation:       op,
			OrderID:         &orderID,
			EconomicCycleID: &cycleID,
		}); err != nil {
			return err
		}
		ac.touch(areaID, grouped[areaID])
	}
	return nil
}

// restoreLines returns the stock consumed by the lines to the areas they were taken from
func (s *OrderService) restoreLines(ctx context.Context, rc RequestContext, order *entity.Order, lines []entity.SelledProduct, isAtSameCycle bool, op enum.StockOperation, ac *afterCommit) error {
	grouped := stockItemsByArea(lines, order.AreaID)
	for _, areaID := range sortedAreaIDs(grouped) {
		orderID, cycleID := order.ID, order.EconomicCycleID
		if err := s.ledger.Restore(ctx, rc, RestoreInput{
			Items:                 grouped[areaID],
			AreaID:                areaID,
			IsAtSameEconomicCycle: isAtSameCycle,
			Operation:             op,
			OrderID:               &orderID,
			EconomicCycleID:       &cycleID,
		}); err != nil {
			return err
		}
		ac.touch(areaID, grouped[areaID])
	}
	return nil
}

// openTickets groups new production lines into one ticket per production area
func (s *OrderService) openTickets(ctx context.Context, rc RequestContext, order *entity.Order) ([]uuid.UUID, error) {
	byArea := make(map[uuid.UUID][]int)
	for i, line := range order.SelledProducts {
		if !line.Type.RequiresProduction() || line.ProductionTicketID != nil || line.ProductionAreaID == nil {
			continue
		}
		byArea[*line.ProductionAreaID] = append(byArea[*line.ProductionAreaID], i)
	}
	if len(byArea) == 0 {
		return nil, nil
	}

	areaIDs := make([]uuid.UUID, 0, len(byArea))
	for id := range byArea {
		areaIDs = append(areaIDs, id)
	}
	sort.Slice(areaIDs, func(i, j int) bool { return areaIDs[i].String() < areaIDs[j].String() })

	tickets := make([]entity.ProductionTicket, 0, len(areaIDs))
	ids := make([]uuid.UUID, 0, len(areaIDs))
	for _, areaID := range areaIDs {
		ticket := entity.ProductionTicket{
			ID:               uuid.New(),
			BusinessID:       rc.BusinessID,
			OrderID:          order.ID,
			ProductionAreaID: areaID,
			Status:           enum.TicketStatusReceived,
			Name:             order.Name,
		}
		for _, i := range byArea[areaID] {
			ticketID := ticket.ID
			order.SelledProducts[i].ProductionTicketID = &ticketID
		}
		tickets = append(tickets, ticket)
		ids = append(ids, ticket.ID)
	}
	if err := s.tickets.Create(ctx, tickets...); err != nil {
		return nil, err
	}
	return ids, nil
}

// ticketsOf returns the tickets referenced by lines in id order
func ticketsOf(lines []entity.SelledProduct) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, line := range lines {
		if line.ProductionTicketID == nil {
			continue
		}
		if _, ok := seen[*line.ProductionTicketID]; ok {
			continue
		}
		seen[*line.ProductionTicketID] = struct{}{}
		ids = append(ids, *line.ProductionTicketID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// settleTickets closes the tickets of dropped lines that no kept line references anymore.
// Tickets still referenced lost part of their content and are returned for a new fan-out.
func (s *OrderService) settleTickets(ctx context.Context, dropped, kept []entity.SelledProduct) ([]uuid.UUID, error) {
	remaining := make(map[uuid.UUID]struct{})
	for _, id := range ticketsOf(kept) {
		remaining[id] = struct{}{}
	}
	var closed, changed []uuid.UUID
	for _, id := range ticketsOf(dropped) {
		if _, ok := remaining[id]; ok {
			changed = append(changed, id)
			continue
		}
		closed = append(closed, id)
	}
	if err := s.tickets.Close(ctx, closed...); err != nil {
		return nil, err
	}
	return changed, nil
}

// transferTickets gives target the tickets of its lines. A ticket none of the kept lines
// references moves to target whole; lines of a ticket shared with kept lines get a new
// ticket of target. It returns the shared tickets and the new ones.
func (s *OrderService) transferTickets(ctx context.Context, rc RequestContext, target *entity.Order, kept []entity.SelledProduct) ([]uuid.UUID, []uuid.UUID, error) {
	remaining := make(map[uuid.UUID]struct{})
	for _, id := range ticketsOf(kept) {
		remaining[id] = struct{}{}
	}
	var whole, shared []uuid.UUID
	for _, id := range ticketsOf(target.SelledProducts) {
		if _, ok := remaining[id]; ok {
			shared = append(shared, id)
			continue
		}
		whole = append(whole, id)
	}
	if err := s.tickets.Reassign(ctx, target.ID, whole...); err != nil {
		return nil, nil, err
	}
	for i := range target.SelledProducts {
		line := &target.SelledProducts[i]
		if line.ProductionTicketID == nil {
			continue
		}
		if _, ok := remaining[*line.ProductionTicketID]; ok {
			line.ProductionTicketID = nil
		}
	}
	opened, err := s.openTickets(ctx, rc, target)
	if err != nil {
		return nil, nil, err
	}
	return shared, opened, nil
}

// reserveResources locks the resources and books them for the order
func (s *OrderService) reserveResources(ctx context.Context, rc RequestContext, order *entity.Order, ids []uuid.UUID) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	resources, err := s.resources.GetByIDsForUpdate(ctx, rc.BusinessID, ids)
	if err != nil {
		return err
	}
	if len(resources) != len(ids) {
		return apperror.NewNotFoundError("Resource")
	}
	held := make(map[uuid.UUID]struct{}, len(order.Resources))
	for _, r := range order.Resources {
		held[r.ID] = struct{}{}
	}
	var book []uuid.UUID
	for _, r := range resources {
		if _, ok := held[r.ID]; ok {
			continue
		}
		if r.AreaID != order.AreaID {
			return apperror.NewFieldError("resources", "Resource "+r.Code+" does not belong to the order area")
		}
		if !r.IsAvailable {
			return apperror.NewStateConflictError("Resource %s is not available", r.Code)
		}
		r.IsAvailable = false
		order.Resources = append(order.Resources, r)
		book = append(book, r.ID)
	}
	if len(book) == 0 {
		return nil
	}
	return s.resources.SetAvailability(ctx, book, false)
}

// releaseResources frees every resource held by the order
func (s *OrderService) releaseResources(ctx context.Context, order *entity.Order) error {
	if len(order.Resources) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(order.Resources))
	for i, r := range order.Resources {
		ids[i] = r.ID
	}
	if err := s.resources.SetAvailability(ctx, ids, true); err != nil {
		return err
	}
	order.Resources = nil
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// initialStatus derives the status of a new order from its lines
func initialStatus(order *entity.Order) enum.OrderStatus {
	if order.PaymentGateway && order.Origin != enum.OrderOriginPOS {
		return enum.OrderStatusPaymentPending
	}
	if order.HasProductionItems() {
		return enum.OrderStatusInProcess
	}
	return enum.OrderStatusCompleted
}

// CreateOrder creates an order in the sales area, or returns the order a previous identical
// submission already created. The boolean reports whether a new order was created.
func (s *OrderService) CreateOrder(ctx context.Context, rc RequestContext, in *CreateOrderInput) (*entity.Order, bool, error) {
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		business, err := s.loadBusiness(ctx, rc)
		if err != nil {
			return nil, err
		}
		area, err := s.loadSaleArea(ctx, rc, in.AreaID)
		if err != nil {
			return nil, err
		}
		cycle, err := s.activeCycle(ctx, rc)
		if err != nil {
			return nil, err
		}

		createdAt := s.now()
		if in.CreatedAt != nil {
			createdAt = *in.CreatedAt
		}
		createdAt = createdAt.UTC().Truncate(time.Millisecond)

		if err := s.orders.LockCreation(ctx, rc.BusinessID, area.ID, createdAt, in.ManagedByID); err != nil {
			return nil, err
		}
		existing, err := s.orders.FindDuplicate(ctx, rc.BusinessID, area.ID, createdAt, in.ManagedByID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &afterCommit{order: existing, duplicate: true}, nil
		}

		order := &entity.Order{
			ID:              uuid.New(),
			BusinessID:      rc.BusinessID,
			AreaID:          area.ID,
			EconomicCycleID: cycle.ID,
			Name:            in.Name,
			Status:          enum.OrderStatusCreated,
			Origin:          in.Origin,
			ManagedByID:     in.ManagedByID,
			CreatedByID:     rc.UserID,
			PaymentGateway:  in.PaymentGateway,
			CreatedAt:       createdAt,
		}
		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}

		lines, err := s.buildLines(ctx, rc, area, in.Lines)
		if err != nil {
			return nil, err
		}
		ac := newAfterCommit(order, event.OrderCreated, enum.OrderStatusCreated)
		ac.notify = true

		if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
			for i := range lines {
				lines[i].OrderID = o.ID
			}
			o.SelledProducts = lines
			if err := s.substractLines(ctx, rc, business, o, o.SelledProducts, enum.StockOperationSale, ac); err != nil {
				return err
			}
			ac.ticketIDs, err = s.openTickets(ctx, rc, o)
			if err != nil {
				return err
			}
			o.Status = initialStatus(o)
			if err := s.reserveResources(ctx, rc, o, in.ResourceIDs); err != nil {
				return err
			}
			return priceOrder(o, business.Rates())
		}); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "ORDER_CREATED", ""); err != nil {
			return nil, err
		}

		if in.Payment != nil {
			if err := s.bill(ctx, rc, st, business, in.Payment); err != nil {
				return nil, err
			}
			ac.event = event.OrderPaid
		}

		final, err := st.order(ctx, roleOrder)
		if err != nil {
			return nil, err
		}
		if err := s.orders.Create(ctx, final); err != nil {
			return nil, err
		}
		ac.order = final
		ac.from = "NEW"
		return ac, nil
	})
	if err != nil {
		return nil, false, err
	}
	return ac.order, !ac.duplicate, nil
}
