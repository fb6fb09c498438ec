package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Cars interface {
	repository.Repository[*Car]

	Remove(ctx context.Context, id uuid.UUID) error
}

type carsRepo struct {
	repository.Repository[*Car]
	db     *bun.DB
	logger Logger
}

var _ Cars = (*carsRepo)(nil)

func NewCarsRepository(db *bun.DB, logger Logger) Cars {
	if logger == nil {
		logger = defLogger{}
	}

	repo := repository.NewRepository[*Car](db, repository.ModelHandlers[*Car]{
		NewRecord: func() *Car { return &Car{} },
		GetID: func(c *Car) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Car, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &carsRepo{
		Repository: repo,
		db:         db,
		logger:     logger,
	}
}

func (r *carsRepo) Create(ctx context.Context, record *Car, criteria ...repository.InsertCriteria) (*Car, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *carsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Car, criteria ...repository.InsertCriteria) (*Car, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	created, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, err
	}
	r.logger.Info("cars insert", "id", created.ID.String())
	return created, nil
}

func (r *carsRepo) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Car)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	r.logger.Info("cars remove", "id", id.String())
	return nil
}
