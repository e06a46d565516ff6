package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request-scoped context.Context with an optional GORM
// transaction. Repo methods take this instead of bare context.Context so
// callers can compose multi-repo writes under one transaction: pass Tx
// when inside a transaction, leave it nil to let the repo fall back to
// its own *gorm.DB handle.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB resolves the handle a repo method should use: the transaction if
// one is attached, otherwise the repo's own base handle.
func (c Context) DB(base *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return base
}
