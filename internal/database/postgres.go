package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"order-service/internal/config"
	"order-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrCommit marks a transaction whose inserts succeeded but whose commit
// call failed. Callers must not assume the order was persisted.
var ErrCommit = errors.New("commit transaction failed")

// DB is the slice of pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db     DB
	tables config.Tables
	logger *zap.Logger
}

func New(db DB, t config.Tables, logger *zap.Logger) *Repo {
	return &Repo{db: db, tables: t, logger: logger}
}

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (r *Repo) qt(tbl string) string { return fmt.Sprintf(`"%s"."%s"`, r.tables.Schema, tbl) }

// CreateOrder persists the whole aggregate in one transaction: header row
// first (the database assigns order_uid and date_created), then delivery,
// payment and all items referencing it. Any failed step rolls the
// transaction back and returns that step's error; a rollback failure is
// logged and the database may be left inconsistent in that double-failure
// case.
func (r *Repo) CreateOrder(ctx context.Context, req *domain.CreateOrder) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	order := &domain.Order{
		TrackNumber:       req.TrackNumber,
		Entry:             req.Entry,
		Delivery:          req.Delivery,
		Payment:           req.Payment,
		Items:             req.Items,
		Locale:            req.Locale,
		InternalSignature: req.InternalSignature,
		CustomerID:        req.CustomerID,
		DeliveryService:   req.DeliveryService,
		ShardKey:          req.ShardKey,
		SmID:              req.SmID,
		OofShard:          req.OofShard,
	}

	err = tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (track_number, entry, locale, internal_signature,
		  customer_id, delivery_service, shardkey, sm_id, oof_shard)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING order_uid::text, date_created
	`, r.qt(r.tables.Order)),
		req.TrackNumber, req.Entry, req.Locale, req.InternalSignature, req.CustomerID,
		req.DeliveryService, req.ShardKey, req.SmID, req.OofShard,
	).Scan(&order.OrderUID, &order.DateCreated)
	if err != nil {
		r.rollback(ctx, tx)
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if _, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (order_uid, name, phone, zip, city, address, region, email)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, r.qt(r.tables.Delivery)),
		order.OrderUID, req.Delivery.Name, req.Delivery.Phone, req.Delivery.Zip,
		req.Delivery.City, req.Delivery.Address, req.Delivery.Region, req.Delivery.Email,
	); err != nil {
		r.rollback(ctx, tx)
		return nil, fmt.Errorf("insert delivery: %w", err)
	}

	if _, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (order_uid, transaction, request_id, currency, provider,
		  amount, payment_dt, bank, delivery_cost, goods_total, custom_fee)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, r.qt(r.tables.Payment)),
		order.OrderUID, req.Payment.Transaction, req.Payment.RequestID, req.Payment.Currency,
		req.Payment.Provider, req.Payment.Amount, req.Payment.PaymentDT, req.Payment.Bank,
		req.Payment.DeliveryCost, req.Payment.GoodsTotal, req.Payment.CustomFee,
	); err != nil {
		r.rollback(ctx, tx)
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if len(req.Items) > 0 {
		sql, args := buildItemsInsert(r.qt(r.tables.Item), order.OrderUID, req.Items)
		if _, err = tx.Exec(ctx, sql, args...); err != nil {
			r.rollback(ctx, tx)
			return nil, fmt.Errorf("insert items: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	return order, nil
}

// rollback is best-effort compensation; its own failure is logged and never
// replaces the error that triggered it.
func (r *Repo) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.Error("failed to rollback transaction", zap.Error(err))
	}
}

// buildItemsInsert renders all item rows as a single multi-row INSERT.
func buildItemsInsert(table, orderUID string, items []domain.Item) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, `INSERT INTO %s (order_uid, chrt_id, track_number, price, rid, name, sale, size, total_price, nm_id, brand, status) VALUES `, table)

	args := make([]any, 0, len(items)*12)
	for i, it := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		base := i * 12
		b.WriteByte('(')
		for j := 1; j <= 12; j++ {
			if j > 1 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", base+j)
		}
		b.WriteByte(')')
		args = append(args,
			orderUID, it.ChrtID, it.TrackNumber, it.Price, it.RID, it.Name,
			it.Sale, it.Size, it.TotalPrice, it.NmID, it.Brand, it.Status,
		)
	}
	return b.String(), args
}

// GetByUID assembles the aggregate from four point reads. Only a missing
// header row means not-found: orders are created whole, so once the header
// exists its siblings do too.
func (r *Repo) GetByUID(ctx context.Context, uid string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT order_uid::text, track_number, entry, locale, internal_signature, customer_id,
		       delivery_service, shardkey, sm_id, date_created, oof_shard
		FROM %s WHERE order_uid=$1
	`, r.qt(r.tables.Order)), uid).Scan(
		&o.OrderUID, &o.TrackNumber, &o.Entry, &o.Locale, &o.InternalSignature, &o.CustomerID,
		&o.DeliveryService, &o.ShardKey, &o.SmID, &o.DateCreated, &o.OofShard,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT transaction, request_id, currency, provider, amount, payment_dt, bank,
		       delivery_cost, goods_total, custom_fee
		FROM %s WHERE order_uid=$1
	`, r.qt(r.tables.Payment)), uid).Scan(
		&o.Payment.Transaction, &o.Payment.RequestID, &o.Payment.Currency, &o.Payment.Provider,
		&o.Payment.Amount, &o.Payment.PaymentDT, &o.Payment.Bank, &o.Payment.DeliveryCost,
		&o.Payment.GoodsTotal, &o.Payment.CustomFee,
	); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT name, phone, zip, city, address, region, email
		FROM %s WHERE order_uid=$1
	`, r.qt(r.tables.Delivery)), uid).Scan(
		&o.Delivery.Name, &o.Delivery.Phone, &o.Delivery.Zip, &o.Delivery.City,
		&o.Delivery.Address, &o.Delivery.Region, &o.Delivery.Email,
	); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT chrt_id, track_number, price, rid, name, sale, size, total_price, nm_id, brand, status
		FROM %s WHERE order_uid=$1
	`, r.qt(r.tables.Item)), uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ChrtID, &it.TrackNumber, &it.Price, &it.RID, &it.Name, &it.Sale,
			&it.Size, &it.TotalPrice, &it.NmID, &it.Brand, &it.Status); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}
