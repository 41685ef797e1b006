package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

type postgresProdConsRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresProdConsRepo builds a pool-bound ProdCons repository.
func NewPostgresProdConsRepo(conn *postgres.Connection, log logging.Logger) aggregation.Repository {
	return &postgresProdConsRepo{log: log, executor: conn.DB()}
}

func newProdConsRepo(executor queryExecutor, log logging.Logger) aggregation.Repository {
	return &postgresProdConsRepo{log: log, executor: executor}
}

// componentNames lists the component column suffixes in the fixed order the
// queries and scans below rely on.
var componentNames = []string{
	"production_all_new", "production_feedstock", "production_quarantine",
	"production_process_agent", "destroyed",
	"import_new", "import_feedstock", "import_process_agent",
	"import_quarantine", "import_recovered",
	"export_new", "export_feedstock", "export_process_agent", "export_recovered",
	"non_party_import", "non_party_export", "prod_transfer",
}

func componentPtrs(c *aggregation.Components) []interface{} {
	return []interface{}{
		&c.ProductionAllNew, &c.ProductionFeedstock, &c.ProductionQuarantine,
		&c.ProductionProcessAgent, &c.Destroyed,
		&c.ImportNew, &c.ImportFeedstock, &c.ImportProcessAgent,
		&c.ImportQuarantine, &c.ImportRecovered,
		&c.ExportNew, &c.ExportFeedstock, &c.ExportProcessAgent, &c.ExportRecovered,
		&c.NonPartyImport, &c.NonPartyExport, &c.ProdTransfer,
	}
}

func componentValues(c *aggregation.Components) []interface{} {
	out := make([]interface{}, 0, len(componentNames))
	for _, p := range componentPtrs(c) {
		out = append(out, *(p.(*decimal.Decimal)))
	}
	return out
}

// prodConsColumns builds the full column list: identity, the ODP and GWP
// component columns, the derived figures, and the contributor map.
func prodConsColumns() string {
	cols := "id, party_id, period_id, group_id"
	for _, n := range componentNames {
		cols += ", odp_" + n
	}
	for _, n := range componentNames {
		cols += ", gwp_" + n
	}
	cols += ", calc_production, calc_consumption, calc_production_gwp, calc_consumption_gwp"
	cols += ", contributors"
	return cols
}

func scanProdCons(s scanner) (*aggregation.ProdCons, error) {
	var (
		row          aggregation.ProdCons
		prod, cons   decimal.NullDecimal
		prodG, consG decimal.NullDecimal
		contributors []byte
	)

	dest := []interface{}{&row.ID, &row.PartyID, &row.PeriodID, &row.GroupID}
	dest = append(dest, componentPtrs(&row.Components)...)
	dest = append(dest, componentPtrs(&row.ComponentsGWP)...)
	dest = append(dest, &prod, &cons, &prodG, &consG, &contributors)

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	if prod.Valid {
		row.CalcProduction = &prod.Decimal
	}
	if cons.Valid {
		row.CalcConsumption = &cons.Decimal
	}
	if prodG.Valid {
		row.CalcProductionGWP = &prodG.Decimal
	}
	if consG.Valid {
		row.CalcConsumptionGWP = &consG.Decimal
	}
	if len(contributors) > 0 {
		if err := json.Unmarshal(contributors, &row.ContributingSubmissions); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeProdConsCorrupt,
				"failed to decode contributor map")
		}
	}
	return &row, nil
}

func (r *postgresProdConsRepo) Find(ctx context.Context, partyID, periodID int64,
	group treaty.GroupID) (*aggregation.ProdCons, error) {

	row := r.executor.QueryRowContext(ctx, `
		SELECT `+prodConsColumns()+` FROM prodcons
		WHERE party_id = $1 AND period_id = $2 AND group_id = $3`,
		partyID, periodID, string(group))

	pc, err := scanProdCons(row)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodeNotFound, "aggregate row not found"),
			"failed to query aggregate row")
	}
	return pc, nil
}

func (r *postgresProdConsRepo) ListByPeriod(ctx context.Context, periodID int64) ([]*aggregation.ProdCons, error) {
	return r.list(ctx, `SELECT `+prodConsColumns()+` FROM prodcons
		WHERE period_id = $1 ORDER BY party_id, group_id`, periodID)
}

func (r *postgresProdConsRepo) ListByParty(ctx context.Context, partyID int64) ([]*aggregation.ProdCons, error) {
	return r.list(ctx, `SELECT `+prodConsColumns()+` FROM prodcons
		WHERE party_id = $1 ORDER BY period_id, group_id`, partyID)
}

func (r *postgresProdConsRepo) list(ctx context.Context, query string, args ...interface{}) ([]*aggregation.ProdCons, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list aggregate rows")
	}
	defer rows.Close()

	var out []*aggregation.ProdCons
	for rows.Next() {
		pc, err := scanProdCons(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan aggregate row")
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate aggregate rows")
	}
	return out, nil
}

func (r *postgresProdConsRepo) Upsert(ctx context.Context, row *aggregation.ProdCons) error {
	contributors, err := json.Marshal(row.ContributingSubmissions)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode contributor map")
	}

	cols := "party_id, period_id, group_id"
	placeholders := "$1, $2, $3"
	args := []interface{}{row.PartyID, row.PeriodID, string(row.GroupID)}
	add := func(name string, v interface{}) {
		cols += ", " + name
		args = append(args, v)
		placeholders += fmt.Sprintf(", $%d", len(args))
	}
	odp := componentValues(&row.Components)
	gwp := componentValues(&row.ComponentsGWP)
	for i, n := range componentNames {
		add("odp_"+n, odp[i])
	}
	for i, n := range componentNames {
		add("gwp_"+n, gwp[i])
	}
	add("calc_production", nullDecimal(row.CalcProduction))
	add("calc_consumption", nullDecimal(row.CalcConsumption))
	add("calc_production_gwp", nullDecimal(row.CalcProductionGWP))
	add("calc_consumption_gwp", nullDecimal(row.CalcConsumptionGWP))
	add("contributors", contributors)

	updates := ""
	for _, n := range componentNames {
		updates += "odp_" + n + " = EXCLUDED.odp_" + n + ", "
	}
	for _, n := range componentNames {
		updates += "gwp_" + n + " = EXCLUDED.gwp_" + n + ", "
	}
	updates += `calc_production = EXCLUDED.calc_production,
		calc_consumption = EXCLUDED.calc_consumption,
		calc_production_gwp = EXCLUDED.calc_production_gwp,
		calc_consumption_gwp = EXCLUDED.calc_consumption_gwp,
		contributors = EXCLUDED.contributors,
		updated_at = now()`

	query := `INSERT INTO prodcons (` + cols + `) VALUES (` + placeholders + `)
		ON CONFLICT (party_id, period_id, group_id) DO UPDATE SET ` + updates + `
		RETURNING id`

	if err := r.executor.QueryRowContext(ctx, query, args...).Scan(&row.ID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert aggregate row")
	}
	return nil
}

func (r *postgresProdConsRepo) Delete(ctx context.Context, partyID, periodID int64,
	group treaty.GroupID) error {

	_, err := r.executor.ExecContext(ctx, `
		DELETE FROM prodcons
		WHERE party_id = $1 AND period_id = $2 AND group_id = $3`,
		partyID, periodID, string(group))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete aggregate row")
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
