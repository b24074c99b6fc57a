package exporter

import (
	"context"
	"fmt"

	"syara/internal/postgres"
	"syara/models"
)

// SnapshotReader assembles one export envelope from the relational store.
type SnapshotReader struct {
	pgClient *postgres.Client
}

func NewSnapshotReader(pgClient *postgres.Client) *SnapshotReader {
	return &SnapshotReader{pgClient: pgClient}
}

// Snapshot performs three independent reads. There is no shared transaction
// across them: each read is consistent at call time only, and an order_items
// row may reference a car deleted between reads. The consumer only uses the
// cars sequence, so the drift costs recommendation freshness, not correctness.
func (r *SnapshotReader) Snapshot(ctx context.Context) (*models.Envelope, error) {
	db := r.pgClient.DB().WithContext(ctx)

	var users []models.User
	if err := db.Raw(`
		SELECT id, first_name, last_name, email, created_at
		FROM users
		ORDER BY id
	`).Scan(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	var cars []models.Car
	if err := db.Raw(`
		SELECT id, brand, model, year, body_type, engine_type, engine_size_liters,
			horsepower, transmission, fuel_type, mileage_km, top_speed_kmh,
			color, features, price_usd, discount_percent, num_in_stock, description
		FROM cars
		ORDER BY id
	`).Scan(&cars).Error; err != nil {
		return nil, fmt.Errorf("failed to read cars: %w", err)
	}

	var orders []models.Order
	if err := db.Raw(`
		SELECT id, user_id, created_at
		FROM orders
		ORDER BY id
	`).Scan(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	var orderItems []models.OrderItem
	if err := db.Raw(`
		SELECT order_id, car_id
		FROM order_items
		ORDER BY order_id, car_id
	`).Scan(&orderItems).Error; err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &models.Envelope{
		Users:      users,
		Cars:       cars,
		Orders:     orders,
		OrderItems: orderItems,
	}, nil
}
