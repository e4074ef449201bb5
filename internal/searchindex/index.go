package searchindex

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

// Document is the searchable projection of a catalog product. Only products
// present in the active set are considered live by search consumers.
type Document struct {
	ProductID    int64   `json:"product_id"`
	MPN          string  `json:"mpn"`
	UPC          string  `json:"upc"`
	StockNumber  string  `json:"stock_number"`
	Name         string  `json:"name"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	Category     *string `json:"category,omitempty"`
	Regulated    bool    `json:"regulated"`
}

// Index keeps the search mirror in lockstep with the catalog. Implementations
// must be safe to call from within a database transaction callback.
type Index interface {
	Upsert(ctx context.Context, doc Document) error
	MarkInactive(ctx context.Context, productID int64) error
}

// keyValueStore is the slice of the redis client the index needs.
type keyValueStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...any) error
	SRem(ctx context.Context, key string, members ...any) error
	SearchDocKey(productID string) string
	SearchActiveSetKey() string
}

// RedisIndex mirrors catalog products into redis keys plus an active-id set.
type RedisIndex struct {
	store  keyValueStore
	logger *logger.Logger
}

func NewRedisIndex(store keyValueStore, logg *logger.Logger) *RedisIndex {
	return &RedisIndex{store: store, logger: logg}
}

// Upsert writes the product document and marks the product active.
func (i *RedisIndex) Upsert(ctx context.Context, doc Document) error {
	if doc.ProductID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "search document requires a product id")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshaling search document")
	}
	id := strconv.FormatInt(doc.ProductID, 10)
	if err := i.store.Set(ctx, i.store.SearchDocKey(id), payload, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing search document")
	}
	if err := i.store.SAdd(ctx, i.store.SearchActiveSetKey(), id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding product to active set")
	}
	if i.logger != nil {
		i.logger.Debug(ctx, "search index upserted product "+id)
	}
	return nil
}

// MarkInactive removes the product from the active set and drops its document.
func (i *RedisIndex) MarkInactive(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "deindex requires a product id")
	}
	id := strconv.FormatInt(productID, 10)
	if err := i.store.SRem(ctx, i.store.SearchActiveSetKey(), id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing product from active set")
	}
	if err := i.store.Del(ctx, i.store.SearchDocKey(id)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dropping search document")
	}
	if i.logger != nil {
		i.logger.Debug(ctx, "search index deindexed product "+id)
	}
	return nil
}
