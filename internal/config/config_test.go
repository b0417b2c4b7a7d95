package config

import (
	"testing"
	"time"

	"github.com/samirnavas/who-gets-it/internal/models"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("BID_MIN_INCREMENT", "")
	t.Setenv("BID_FIRST_MAY_EQUAL_STARTING", "")
	t.Setenv("BULK_STOP_MAX", "")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "")
	t.Setenv("AUTH_ASSERTION_SECRET", "")
	t.Setenv("AUTH_ASSERTION_MAX_AGE_SECONDS", "")

	cfg := Load()

	if cfg.StorageDriver != StorageDriverPostgres {
		t.Errorf("StorageDriver = %q, want postgres", cfg.StorageDriver)
	}
	if cfg.BidMinIncrement != models.Cent {
		t.Errorf("BidMinIncrement = %d, want %d", cfg.BidMinIncrement, models.Cent)
	}
	if cfg.BidFirstMayEqualStarting {
		t.Error("BidFirstMayEqualStarting should default to false")
	}
	if cfg.BulkStopMax != MaxBulkStop {
		t.Errorf("BulkStopMax = %d, want %d", cfg.BulkStopMax, MaxBulkStop)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %s, want 1m", cfg.SweepInterval)
	}
	if cfg.AuthAssertionSecret != "" {
		t.Error("AuthAssertionSecret should default to empty")
	}
	if cfg.AuthAssertionMaxAge != 5*time.Minute {
		t.Errorf("AuthAssertionMaxAge = %s, want 5m", cfg.AuthAssertionMaxAge)
	}
}

func TestLoadBidPolicy(t *testing.T) {
	t.Setenv("BID_MIN_INCREMENT", "0.50")
	t.Setenv("BID_FIRST_MAY_EQUAL_STARTING", "true")

	policy := Load().BidPolicy()

	if policy.MinIncrement != 50 {
		t.Errorf("MinIncrement = %d, want 50", policy.MinIncrement)
	}
	if !policy.FirstBidMayEqualStartingBid {
		t.Error("FirstBidMayEqualStartingBid should be true")
	}
}

func TestLoadClampsBulkStopMax(t *testing.T) {
	t.Setenv("BULK_STOP_MAX", "500")
	if got := Load().BulkStopMax; got != MaxBulkStop {
		t.Errorf("BulkStopMax = %d, want %d", got, MaxBulkStop)
	}
}

func TestValidateFixesBadValues(t *testing.T) {
	cfg := &Config{StorageDriver: "mongo", BidMinIncrement: 0, JWTSecret: "x"}
	cfg.Validate(zap.NewNop())

	if cfg.StorageDriver != StorageDriverPostgres {
		t.Errorf("StorageDriver = %q, want postgres", cfg.StorageDriver)
	}
	if cfg.BidMinIncrement != models.Cent {
		t.Errorf("BidMinIncrement = %d, want %d", cfg.BidMinIncrement, models.Cent)
	}
}
