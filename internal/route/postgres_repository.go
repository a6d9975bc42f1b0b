package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldroute/fieldroute/internal/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const routeColumns = `
	id, technician_id, date, status, optimization_type, vehicle_type,
	avoid_tolls, avoid_highways,
	start_lat, start_lon, end_lat, end_lon,
	total_distance_km, total_duration_minutes, estimated_fuel_cost,
	route_polyline, optimized_at, optimization_source,
	created_at, updated_at`

const waypointColumns = `
	id, route_id, job_id, stop_order, status, lat, lon,
	estimated_arrival_time, estimated_departure_time, estimated_duration_minutes,
	actual_arrival_time, actual_departure_time, actual_duration_minutes,
	distance_from_previous_km, travel_time_minutes,
	arrival_notes, departure_notes,
	created_at, updated_at`

// CreateRoute persists a new route with its waypoints in one transaction.
func (r *PostgresRepository) CreateRoute(ctx context.Context, route *Route) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO routes (` + routeColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18, $19, $20)
		`

		_, err := tx.Exec(ctx, query, routeArgs(route)...)
		if err != nil {
			// Unique violation on (technician_id, date) means the
			// technician already has a route that day.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrRouteExists
			}
			return err
		}

		return insertWaypoints(ctx, tx, route.Waypoints)
	})
}

// GetRoute retrieves a route with its waypoints ordered by stop order.
func (r *PostgresRepository) GetRoute(ctx context.Context, id string) (*Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`

	route, err := r.scanRoute(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	route.Waypoints, err = r.routeWaypoints(ctx, route.ID)
	if err != nil {
		return nil, err
	}
	return route, nil
}

// GetRouteByTechnicianAndDate retrieves the technician's route for a date.
func (r *PostgresRepository) GetRouteByTechnicianAndDate(ctx context.Context, technicianID string, date time.Time) (*Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE technician_id = $1 AND date = $2`

	route, err := r.scanRoute(r.pool.QueryRow(ctx, query, technicianID, truncateToDay(date)))
	if err != nil {
		return nil, err
	}

	route.Waypoints, err = r.routeWaypoints(ctx, route.ID)
	if err != nil {
		return nil, err
	}
	return route, nil
}

// ListRouteIDsByDate returns the IDs of every route planned for the date.
func (r *PostgresRepository) ListRouteIDsByDate(ctx context.Context, date time.Time) ([]string, error) {
	query := `SELECT id FROM routes WHERE date = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, truncateToDay(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRoute removes a route; waypoints cascade at the schema level.
func (r *PostgresRepository) DeleteRoute(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// GetWaypoint retrieves a single waypoint by ID.
func (r *PostgresRepository) GetWaypoint(ctx context.Context, id string) (*Waypoint, error) {
	query := `SELECT ` + waypointColumns + ` FROM route_waypoints WHERE id = $1`

	wp, err := scanWaypoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWaypointNotFound
		}
		return nil, err
	}
	return wp, nil
}

// SaveOptimized writes the route aggregates and every waypoint's ordering
// and timing in one transaction, so readers never see a half-applied
// optimization.
func (r *PostgresRepository) SaveOptimized(ctx context.Context, route *Route) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE routes SET
				total_distance_km = $2,
				total_duration_minutes = $3,
				estimated_fuel_cost = $4,
				route_polyline = $5,
				optimized_at = $6,
				optimization_source = $7,
				updated_at = $8
			WHERE id = $1
		`

		result, err := tx.Exec(ctx, query,
			route.ID,
			route.TotalDistanceKm,
			route.TotalDurationMinutes,
			route.EstimatedFuelCost,
			route.RoutePolyline,
			route.OptimizedAt,
			route.OptimizationSource,
			route.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrRouteNotFound
		}

		wpQuery := `
			UPDATE route_waypoints SET
				stop_order = $2,
				estimated_arrival_time = $3,
				estimated_departure_time = $4,
				distance_from_previous_km = $5,
				travel_time_minutes = $6,
				updated_at = $7
			WHERE id = $1
		`

		for _, wp := range route.Waypoints {
			result, err := tx.Exec(ctx, wpQuery,
				wp.ID,
				wp.StopOrder,
				wp.EstimatedArrivalTime,
				wp.EstimatedDepartureTime,
				wp.DistanceFromPreviousKm,
				wp.TravelTimeMinutes,
				wp.UpdatedAt,
			)
			if err != nil {
				return err
			}
			if result.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrWaypointNotFound, wp.ID)
			}
		}
		return nil
	})
}

// SaveTransition writes a waypoint's lifecycle fields and the recomputed
// route status in one transaction.
func (r *PostgresRepository) SaveTransition(ctx context.Context, wp *Waypoint, routeStatus RouteStatus) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE route_waypoints SET
				status = $2,
				actual_arrival_time = $3,
				actual_departure_time = $4,
				actual_duration_minutes = $5,
				arrival_notes = $6,
				departure_notes = $7,
				updated_at = $8
			WHERE id = $1
		`

		result, err := tx.Exec(ctx, query,
			wp.ID,
			wp.Status,
			wp.ActualArrivalTime,
			wp.ActualDepartureTime,
			wp.ActualDurationMinutes,
			wp.ArrivalNotes,
			wp.DepartureNotes,
			wp.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrWaypointNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE routes SET status = $2, updated_at = $3 WHERE id = $1`,
			wp.RouteID, routeStatus, wp.UpdatedAt,
		)
		return err
	})
}

// UpdateRouteStatus sets the route status directly.
func (r *PostgresRepository) UpdateRouteStatus(ctx context.Context, id string, status RouteStatus) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE routes SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// routeWaypoints loads a route's waypoints ordered by stop order.
func (r *PostgresRepository) routeWaypoints(ctx context.Context, routeID string) ([]*Waypoint, error) {
	query := `SELECT ` + waypointColumns + ` FROM route_waypoints WHERE route_id = $1 ORDER BY stop_order`

	rows, err := r.pool.Query(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waypoints []*Waypoint
	for rows.Next() {
		wp, err := scanWaypoint(rows)
		if err != nil {
			return nil, err
		}
		waypoints = append(waypoints, wp)
	}
	return waypoints, rows.Err()
}

func insertWaypoints(ctx context.Context, tx pgx.Tx, waypoints []*Waypoint) error {
	query := `
		INSERT INTO route_waypoints (` + waypointColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19)
	`

	for _, wp := range waypoints {
		_, err := tx.Exec(ctx, query,
			wp.ID,
			wp.RouteID,
			wp.JobID,
			wp.StopOrder,
			wp.Status,
			wp.Location.Lat,
			wp.Location.Lon,
			wp.EstimatedArrivalTime,
			wp.EstimatedDepartureTime,
			wp.EstimatedDurationMinutes,
			wp.ActualArrivalTime,
			wp.ActualDepartureTime,
			wp.ActualDurationMinutes,
			wp.DistanceFromPreviousKm,
			wp.TravelTimeMinutes,
			wp.ArrivalNotes,
			wp.DepartureNotes,
			wp.CreatedAt,
			wp.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func routeArgs(route *Route) []interface{} {
	var startLat, startLon, endLat, endLon *float64
	if route.StartLocation != nil {
		startLat = &route.StartLocation.Lat
		startLon = &route.StartLocation.Lon
	}
	if route.EndLocation != nil {
		endLat = &route.EndLocation.Lat
		endLon = &route.EndLocation.Lon
	}

	return []interface{}{
		route.ID,
		route.TechnicianID,
		route.Date,
		route.Status,
		route.OptimizationType,
		route.VehicleType,
		route.AvoidTolls,
		route.AvoidHighways,
		startLat,
		startLon,
		endLat,
		endLon,
		route.TotalDistanceKm,
		route.TotalDurationMinutes,
		route.EstimatedFuelCost,
		route.RoutePolyline,
		route.OptimizedAt,
		route.OptimizationSource,
		route.CreatedAt,
		route.UpdatedAt,
	}
}

// scanRoute scans a route row, reassembling the optional endpoint points.
func (r *PostgresRepository) scanRoute(row pgx.Row) (*Route, error) {
	var route Route
	var startLat, startLon, endLat, endLon *float64

	err := row.Scan(
		&route.ID,
		&route.TechnicianID,
		&route.Date,
		&route.Status,
		&route.OptimizationType,
		&route.VehicleType,
		&route.AvoidTolls,
		&route.AvoidHighways,
		&startLat,
		&startLon,
		&endLat,
		&endLon,
		&route.TotalDistanceKm,
		&route.TotalDurationMinutes,
		&route.EstimatedFuelCost,
		&route.RoutePolyline,
		&route.OptimizedAt,
		&route.OptimizationSource,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}

	route.StartLocation = pointFromColumns(startLat, startLon)
	route.EndLocation = pointFromColumns(endLat, endLon)
	return &route, nil
}

func pointFromColumns(lat, lon *float64) *geo.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Point{Lat: *lat, Lon: *lon}
}

func scanWaypoint(row pgx.Row) (*Waypoint, error) {
	var wp Waypoint
	err := row.Scan(
		&wp.ID,
		&wp.RouteID,
		&wp.JobID,
		&wp.StopOrder,
		&wp.Status,
		&wp.Location.Lat,
		&wp.Location.Lon,
		&wp.EstimatedArrivalTime,
		&wp.EstimatedDepartureTime,
		&wp.EstimatedDurationMinutes,
		&wp.ActualArrivalTime,
		&wp.ActualDepartureTime,
		&wp.ActualDurationMinutes,
		&wp.DistanceFromPreviousKm,
		&wp.TravelTimeMinutes,
		&wp.ArrivalNotes,
		&wp.DepartureNotes,
		&wp.CreatedAt,
		&wp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wp, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
