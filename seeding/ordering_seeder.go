package seeding

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dashboard-service/models"

	"go.uber.org/zap"
)

// plainDecimal is the invariant decimal notation accepted for prices.
var plainDecimal = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

const (
	OrdersFile     = "Orders.sql"
	OrderItemsFile = "OrderItems.csv"
)

// OrderItemsHeader is the column order of OrderItems.csv.
var OrderItemsHeader = []string{"Id", "OrderId", "ProductId", "UnitPrice", "Units", "ProductName"}

var orderItemsInsert = NewInsertBuilder("order_items",
	[]string{"id", "order_id", "product_id", "unit_price", "units", "product_name"},
	func(it models.OrderItem) []any {
		return []any{it.ID, it.OrderID, it.ProductID, it.UnitPrice, it.Units, it.ProductName}
	},
)

// OrderingSeeder loads orders from a pre-rendered insert script and then
// their line items from CSV in fixed-size parameterized batches.
type OrderingSeeder struct {
	state     datasetState
	dir       string
	orders    Source[string]
	items     Source[models.OrderItem]
	batchSize int

	orderLines *Sequence[string]
	orderItems *Sequence[models.OrderItem]
	attempted  bool
}

func NewOrderingSeeder(store Store, dir string, batchSize int, logger *zap.Logger) *OrderingSeeder {
	return &OrderingSeeder{
		state: datasetState{
			name:   "ordering",
			table:  models.Order{}.TableName(),
			store:  store,
			logger: logger,
		},
		dir:       dir,
		orders:    NewLineSource(filepath.Join(dir, OrdersFile)),
		items:     NewCSVSource(filepath.Join(dir, OrderItemsFile), OrderItemsHeader, DecodeOrderItem),
		batchSize: ClampBatchSize(batchSize),
	}
}

func (s *OrderingSeeder) Name() string { return s.state.name }

func (s *OrderingSeeder) Status(ctx context.Context) (Status, error) {
	return s.state.resolve(ctx, s.load)
}

func (s *OrderingSeeder) load(ctx context.Context) (int, error) {
	orders, err := s.orders.Load(ctx)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	items, err := s.items.Load(ctx)
	if err != nil {
		return 0, err
	}
	s.state.logger.Debug("Read order items", zap.Int("count", items.Len()), zap.Duration("elapsed", time.Since(start)))

	s.orderLines, s.orderItems = orders, items
	return orders.Len() + items.Len(), nil
}

func (s *OrderingSeeder) Seed(ctx context.Context, progress ProgressFunc) error {
	st, err := s.Status(ctx)
	if err != nil {
		return err
	}
	if !st.NeedsSeeding {
		return nil
	}
	if s.attempted {
		return ErrAlreadyAttempted
	}
	s.attempted = true

	logger := s.state.logger
	logger.Info("Seeding ordering", zap.String("dir", s.dir))
	agg := newPhaseAggregator(2, progress)

	start := time.Now()
	err = runPhase(ctx, s.state.store, logger, "orders", NewLineBatcher(s.orderLines), ScriptStatement, agg.phase(0))
	if err != nil {
		return err
	}
	logger.Info("Orders inserted", zap.Int("lines", s.orderLines.Len()), zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	err = runPhase(ctx, s.state.store, logger, "order_items", NewRecordBatcher(s.orderItems, s.batchSize), orderItemsInsert.Build, agg.phase(1))
	if err != nil {
		return err
	}
	logger.Info("Order items inserted", zap.Int("items", s.orderItems.Len()), zap.Duration("elapsed", time.Since(start)))

	s.state.complete()
	return nil
}

// DecodeOrderItem maps an OrderItems.csv row. Prices always use '.' as the
// decimal separator, whatever the host locale.
func DecodeOrderItem(row []string) (models.OrderItem, error) {
	var it models.OrderItem
	var err error

	if it.ID, err = atoiColumn(row, 0, "Id"); err != nil {
		return it, err
	}
	if it.OrderID, err = atoiColumn(row, 1, "OrderId"); err != nil {
		return it, err
	}
	if it.ProductID, err = atoiColumn(row, 2, "ProductId"); err != nil {
		return it, err
	}
	if it.UnitPrice, err = decimalColumn(row, 3, "UnitPrice"); err != nil {
		return it, err
	}
	if it.Units, err = atoiColumn(row, 4, "Units"); err != nil {
		return it, err
	}
	it.ProductName = strings.TrimSpace(row[5])
	return it, nil
}

func decimalColumn(row []string, i int, name string) (float64, error) {
	v := strings.TrimSpace(row[i])
	if !plainDecimal.MatchString(v) {
		return 0, fmt.Errorf("%s: invalid decimal %q", name, v)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%s: invalid decimal %q", name, v)
	}
	return f, nil
}

func atoiColumn(row []string, i int, name string) (int, error) {
	v := strings.TrimSpace(row[i])
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", name, v)
	}
	return n, nil
}
