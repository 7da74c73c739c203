package sqlstore

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"pos/pkg/domain/model"
)

const (
	mysqlDuplicateEntry    = 1062
	postgresUniqueViolates = "23505"
)

type UnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

var _ model.UnitOfWork = &UnitOfWork{}

func (u *UnitOfWork) Execute(ctx context.Context, f func(provider model.RepositoryProvider) error) (err error) {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = pkgerrors.Wrap(tx.Commit(), "commit transaction")
	}()

	return f(&provider{ctx: ctx, tx: tx})
}

type provider struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (p *provider) OrderRepository() model.OrderRepository {
	return &orderRepository{ctx: p.ctx, tx: p.tx}
}

func (p *provider) OrderItemRepository() model.OrderItemRepository {
	return &orderItemRepository{ctx: p.ctx, tx: p.tx}
}

func (p *provider) TableRepository() model.TableRepository {
	return &tableRepository{ctx: p.ctx, tx: p.tx}
}

func (p *provider) PaymentRepository() model.PaymentRepository {
	return &paymentRepository{ctx: p.ctx, tx: p.tx}
}

// isDuplicateKey reports unique index violations of both supported drivers.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == postgresUniqueViolates
	}
	return false
}

// expectAffected turns an update of a missing row into notFound.
func expectAffected(result interface{ RowsAffected() (int64, error) }, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
