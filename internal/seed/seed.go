package seed

import (
	"context"
	"log/slog"
)

// Seeder provisions demo data for a freshly authenticated phone. The data
// layer owns what gets seeded; phone auth only reports the event.
type Seeder interface {
	Seed(ctx context.Context, phone string) error
}

// LoggerSeeder is a stub implementation that records seeding requests in the
// structured log.
type LoggerSeeder struct {
	logger *slog.Logger
}

// NewLoggerSeeder constructs a logging seeder stub.
func NewLoggerSeeder(logger *slog.Logger) *LoggerSeeder {
	return &LoggerSeeder{logger: logger}
}

// Seed writes the seeding request to the structured logger.
func (s *LoggerSeeder) Seed(_ context.Context, phone string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("demo data seeding requested", "phone", phone)
	return nil
}
