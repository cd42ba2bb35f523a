package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/price-relay/internal/entity"
)

type RelaySymbolRepository struct {
	db *sqlx.DB
}

func NewRelaySymbolRepository(db *sqlx.DB) *RelaySymbolRepository {
	return &RelaySymbolRepository{db: db}
}

func (r *RelaySymbolRepository) GetActive(ctx context.Context) ([]entity.RelaySymbol, error) {
	query, args, err := activeRelaySymbolsQuery().ToSql()
	if err != nil {
		return nil, err
	}

	var symbols []entity.RelaySymbol
	err = r.db.SelectContext(ctx, &symbols, query, args...)
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

func activeRelaySymbolsQuery() sq.SelectBuilder {
	return sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From(entity.RelaySymbol{}.TableName()).
		Where(sq.Eq{"is_active": true}).
		OrderBy("sort_order asc", "symbol asc")
}
