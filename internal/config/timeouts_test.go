package config

import (
	"testing"
	"time"
)

// TestTimeoutRelationships verifies timeouts that depend on each other
func TestTimeoutRelationships(t *testing.T) {
	if HTTPWrite <= BackendRequest {
		t.Errorf("HTTPWrite (%v) must exceed BackendRequest (%v)", HTTPWrite, BackendRequest)
	}
	if AssetRequest >= BackendRequest {
		t.Errorf("AssetRequest (%v) should be shorter than BackendRequest (%v)", AssetRequest, BackendRequest)
	}
	if GracefulShutdown != 30*time.Second {
		t.Errorf("GracefulShutdown = %v, want 30s", GracefulShutdown)
	}
}
