package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "reccalc/app/db"
	"reccalc/app/observability/metrics"
	"reccalc/internal/types"
)

const queryTimeout = 5 * time.Second

var _ RouteRepo = (*PostgresRouteRepo)(nil)

type RouteRepo interface {
	// CreateWithCalculation inserts a route owned by userID with version 1
	// and its carrying-capacity calculation in a single transaction. Either
	// both rows commit or neither does.
	CreateWithCalculation(ctx context.Context, userID uuid.UUID, p types.RouteParams, calc *types.RouteCalculation) (*types.Route, *types.RouteCalculation, error)

	// GetByID returns a route or types.ErrNotFound.
	GetByID(ctx context.Context, routeID uuid.UUID) (*types.Route, error)

	// ListByUser returns a page of the user's routes, newest first, with
	// calculation headline numbers joined in.
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) (*types.Page[types.RouteListItem], error)

	// UpdateWithCalculation replaces the route's fields and upserts its
	// calculation in a single transaction, if the stored version matches
	// and the caller owns the route. A version mismatch with a live row
	// returns types.ErrStaleWrite; a missing or foreign row returns
	// types.ErrNotFound. On success the version increments by one.
	UpdateWithCalculation(ctx context.Context, caller Caller, routeID uuid.UUID, version int, p types.RouteParams, calc *types.RouteCalculation) (*types.Route, *types.RouteCalculation, error)

	// Delete removes the route if the caller owns it; its calculation
	// cascades.
	Delete(ctx context.Context, caller Caller, routeID uuid.UUID) error

	// GetCalculation returns the calculation for a route or types.ErrNotFound.
	GetCalculation(ctx context.Context, routeID uuid.UUID) (*types.RouteCalculation, error)
}

type PostgresRouteRepo struct {
	logger *slog.Logger
	pgpool database.PGXQuerier
}

func NewPostgresRouteRepo(pgpool database.PGXQuerier, logger *slog.Logger) *PostgresRouteRepo {
	return &PostgresRouteRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// observeQuery records the query latency histogram, labelled by table.
func observeQuery(ctx context.Context, table string, start time.Time) {
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("db.sql.table", table)))
}

func mapStoreErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, types.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// inTx runs fn against a repository bound to one transaction and commits if
// fn returns nil. Any error from fn rolls the whole transaction back.
func (r *PostgresRouteRepo) inTx(ctx context.Context, fn func(txRepo *PostgresRouteRepo) error) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return mapStoreErr(err, "begin transaction")
	}
	if err := fn(&PostgresRouteRepo{logger: r.logger, pgpool: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.ErrorContext(ctx, "Failed to roll back transaction", slog.Any("error", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapStoreErr(err, "commit transaction")
	}
	return nil
}

const routeColumns = `id, user_id, route_name, route_type, route_time_type,
		t_sut, t_sezon, gs, tl, td_array, dt_array, dg_array, v_array,
		ecological_factors, management_factors, version, created_at, updated_at`

func scanRoute(row pgx.Row) (*types.Route, error) {
	var rt types.Route
	err := row.Scan(
		&rt.ID, &rt.UserID, &rt.RouteName, &rt.RouteType, &rt.RouteTimeType,
		&rt.TSut, &rt.TSezon, &rt.GS, &rt.TL,
		&rt.TDArray, &rt.DTArray, &rt.DGArray, &rt.VArray,
		&rt.EcologicalFactors, &rt.ManagementFactors,
		&rt.Version, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *PostgresRouteRepo) CreateWithCalculation(ctx context.Context, userID uuid.UUID, p types.RouteParams, calc *types.RouteCalculation) (*types.Route, *types.RouteCalculation, error) {
	ctx, span := otel.Tracer("RouteRepo").Start(ctx, "CreateRouteWithCalculation", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "routes"),
	))
	defer span.End()

	var (
		rt    *types.Route
		saved *types.RouteCalculation
	)
	err := r.inTx(ctx, func(txRepo *PostgresRouteRepo) error {
		var err error
		rt, err = txRepo.insertRoute(ctx, userID, p)
		if err != nil {
			return err
		}
		calc.RouteID = rt.ID
		saved, err = txRepo.upsertCalculation(ctx, calc)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Transaction failed")
		return nil, nil, err
	}

	span.SetStatus(codes.Ok, "Route created")
	return rt, saved, nil
}

func (r *PostgresRouteRepo) insertRoute(ctx context.Context, userID uuid.UUID, p types.RouteParams) (*types.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer observeQuery(ctx, "routes", time.Now())

	l := r.logger.With(slog.String("method", "CreateRoute"), slog.String("userID", userID.String()))

	query := `
		INSERT INTO routes (user_id, route_name, route_type, route_time_type,
			t_sut, t_sezon, gs, tl, td_array, dt_array, dg_array, v_array,
			ecological_factors, management_factors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + routeColumns

	rt, err := scanRoute(r.pgpool.QueryRow(ctx, query,
		userID, p.RouteName, p.RouteType, p.RouteTimeType,
		p.TSut, p.TSezon, p.GS, p.TL,
		p.TDArray, p.DTArray, p.DGArray, p.VArray,
		p.EcologicalFactors, p.ManagementFactors,
	))
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert route", slog.Any("error", err))
		return nil, mapStoreErr(err, "create route")
	}
	return rt, nil
}

func (r *PostgresRouteRepo) GetByID(ctx context.Context, routeID uuid.UUID) (*types.Route, error) {
	ctx, span := otel.Tracer("RouteRepo").Start(ctx, "GetRoute", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "routes"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer observeQuery(ctx, "routes", time.Now())

	rt, err := scanRoute(r.pgpool.QueryRow(ctx,
		`SELECT `+routeColumns+` FROM routes WHERE id = $1`, routeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Route not found")
			return nil, fmt.Errorf("route not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, mapStoreErr(err, "get route")
	}

	span.SetStatus(codes.Ok, "Route fetched")
	return rt, nil
}

func (r *PostgresRouteRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) (*types.Page[types.RouteListItem], error) {
	ctx, span := otel.Tracer("RouteRepo").Start(ctx, "ListRoutes", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "routes"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer observeQuery(ctx, "routes", time.Now())

	offset := (page - 1) * pageSize
	rows, err := r.pgpool.Query(ctx, `
		SELECT r.id, r.route_name, r.route_type, r.route_time_type, r.tl, r.version,
		       c.bcc, c.pcc, c.rcc, r.created_at,
		       COUNT(*) OVER () AS total
		FROM routes r
		LEFT JOIN route_calculations c ON c.route_id = r.id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, pageSize, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, mapStoreErr(err, "list routes")
	}
	defer rows.Close()

	result := &types.Page[types.RouteListItem]{
		Items:    []types.RouteListItem{},
		Page:     page,
		PageSize: pageSize,
	}
	for rows.Next() {
		var item types.RouteListItem
		var total int
		if err := rows.Scan(
			&item.ID, &item.RouteName, &item.RouteType, &item.RouteTimeType,
			&item.TL, &item.Version, &item.BCC, &item.PCC, &item.RCC,
			&item.CreatedAt, &total,
		); err != nil {
			span.RecordError(err)
			return nil, mapStoreErr(err, "scan route listing")
		}
		result.TotalItems = total
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, mapStoreErr(err, "list routes")
	}

	span.SetStatus(codes.Ok, "Routes listed")
	return result, nil
}

func (r *PostgresRouteRepo) UpdateWithCalculation(ctx context.Context, caller Caller, routeID uuid.UUID, version int, p types.RouteParams, calc *types.RouteCalculation) (*types.Route, *types.RouteCalculation, error) {
	ctx, span := otel.Tracer("RouteRepo").Start(ctx, "UpdateRouteWithCalculation", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "routes"),
	))
	defer span.End()

	var (
		rt    *types.Route
		saved *types.RouteCalculation
	)
	err := r.inTx(ctx, func(txRepo *PostgresRouteRepo) error {
		var err error
		rt, err = txRepo.updateRoute(ctx, caller, routeID, version, p)
		if err != nil {
			return err
		}
		calc.RouteID = rt.ID
		saved, err = txRepo.upsertCalculation(ctx, calc)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Transaction failed")
		return nil, nil, err
	}

	span.SetStatus(codes.Ok, "Route updated")
	return rt, saved, nil
}

func (r *PostgresRouteRepo) updateRoute(ctx context.Context, caller Caller, routeID uuid.UUID, version int, p types.RouteParams) (*types.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer observeQuery(ctx, "routes", time.Now())

	l := r.logger.With(slog.String("method", "UpdateRoute"), slog.String("routeID", routeID.String()))

	// Ownership is enforced here as well as in the service layer.
	query := `
		UPDATE routes SET
			route_name = $1, route_type = $2, route_time_type = $3,
			t_sut = $4, t_sezon = $5, gs = $6, tl = $7,
			td_array = $8, dt_array = $9, dg_array = $10, v_array = $11,
			ecological_factors = $12, management_factors = $13,
			version = version + 1, updated_at = now()
		WHERE id = $14 AND version = $15 AND (user_id = $16 OR $17)
		RETURNING ` + routeColumns

	isAdmin := caller.Role == types.RoleAdmin
	rt, err := scanRoute(r.pgpool.QueryRow(ctx, query,
		p.RouteName, p.RouteType, p.RouteTimeType,
		p.TSut, p.TSezon, p.GS, p.TL,
		p.TDArray, p.DTArray, p.DGArray, p.VArray,
		p.EcologicalFactors, p.ManagementFactors,
		routeID, version, caller.ID, isAdmin,
	))
	if err == nil {
		return rt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		l.ErrorContext(ctx, "Failed to update route", slog.Any("error", err))
		return nil, mapStoreErr(err, "update route")
	}

	// No row matched: either the route is gone, not the caller's, or
	// someone else won the race.
	var liveVersion int
	err = r.pgpool.QueryRow(ctx,
		`SELECT version FROM routes WHERE id = $1 AND (user_id = $2 OR $3)`,
		routeID, caller.ID, isAdmin).Scan(&liveVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("route not found: %w", types.ErrNotFound)
	}
	if err != nil {
		return nil, mapStoreErr(err, "update route version check")
	}

	l.WarnContext(ctx, "Stale route write rejected",
		slog.Int("caller_version", version),
		slog.Int("live_version", liveVersion),
	)
	return nil, fmt.Errorf("route version %d is stale (live version %d): %w", version, liveVersion, types.ErrStaleWrite)
}

func (r *PostgresRouteRepo) Delete(ctx context.Context, caller Caller, routeID uuid.UUID) error {
	ctx, span := otel.Tracer("RouteRepo").Start(ctx, "DeleteRoute", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "routes"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer observeQuery(ctx, "routes", time.Now())

	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM routes WHERE id = $1 AND (user_id = $2 OR $3)`,
		routeID, caller.ID, caller.Role == types.RoleAdmin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return mapStoreErr(err, "delete route")
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Route not found")
		return fmt.Errorf("route not found: %w", types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Route deleted")
	return nil
}

func (r *PostgresRouteRepo) upsertCalculation(ctx context.Context, calc *types.RouteCalculation) (*types.RouteCalculation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer observeQuery(ctx, "route_calculations", time.Now())

	var saved types.RouteCalculation
	err := r.pgpool.QueryRow(ctx, `
		INSERT INTO route_calculations (route_id, cfn, m_coefficient, bcc, pcc, rcc, max_groups)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (route_id) DO UPDATE SET
			cfn = EXCLUDED.cfn, m_coefficient = EXCLUDED.m_coefficient,
			bcc = EXCLUDED.bcc, pcc = EXCLUDED.pcc, rcc = EXCLUDED.rcc,
			max_groups = EXCLUDED.max_groups, created_at = now()
		RETURNING id, route_id, cfn, m_coefficient, bcc, pcc, rcc, max_groups, created_at`,
		calc.RouteID, calc.CFN, calc.MCoefficient, calc.BCC, calc.PCC, calc.RCC, calc.MaxGroups).
		Scan(&saved.ID, &saved.RouteID, &saved.CFN, &saved.MCoefficient,
			&saved.BCC, &saved.PCC, &saved.RCC, &saved.MaxGroups, &saved.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert calculation", slog.Any("error", err))
		return nil, mapStoreErr(err, "save calculation")
	}
	return &saved, nil
}

func (r *PostgresRouteRepo) GetCalculation(ctx context.Context, routeID uuid.UUID) (*types.RouteCalculation, error) {
	ctx, span := otel.Tracer("RouteRepo").Start(ctx, "GetCalculation", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "route_calculations"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer observeQuery(ctx, "route_calculations", time.Now())

	var calc types.RouteCalculation
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, route_id, cfn, m_coefficient, bcc, pcc, rcc, max_groups, created_at
		FROM route_calculations
		WHERE route_id = $1`, routeID).
		Scan(&calc.ID, &calc.RouteID, &calc.CFN, &calc.MCoefficient,
			&calc.BCC, &calc.PCC, &calc.RCC, &calc.MaxGroups, &calc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Calculation not found")
			return nil, fmt.Errorf("calculation not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, mapStoreErr(err, "get calculation")
	}

	span.SetStatus(codes.Ok, "Calculation fetched")
	return &calc, nil
}
