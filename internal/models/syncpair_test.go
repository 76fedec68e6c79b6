package models

import (
	"testing"
	"time"
)

func TestSyncPairValidate(t *testing.T) {
	tests := []struct {
		name    string
		pair    *SyncPair
		wantErr bool
	}{
		{
			name:    "valid pair",
			pair:    NewSyncPair(1, "user1", ServiceSpotify, "src1", ServiceAppleMusic, "dst1"),
			wantErr: false,
		},
		{
			name:    "missing user",
			pair:    NewSyncPair(1, "", ServiceSpotify, "src1", ServiceAppleMusic, "dst1"),
			wantErr: true,
		},
		{
			name:    "unknown source service",
			pair:    NewSyncPair(1, "user1", "tidal", "src1", ServiceAppleMusic, "dst1"),
			wantErr: true,
		},
		{
			name:    "missing playlist ID",
			pair:    NewSyncPair(1, "user1", ServiceSpotify, "", ServiceAppleMusic, "dst1"),
			wantErr: true,
		},
		{
			name:    "self link",
			pair:    NewSyncPair(1, "user1", ServiceSpotify, "same", ServiceSpotify, "same"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pair.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSyncPairBookkeeping(t *testing.T) {
	pair := NewSyncPair(1, "user1", ServiceSpotify, "src1", ServiceAppleMusic, "dst1")

	if !pair.SyncEnabled() {
		t.Error("new pair should have sync enabled")
	}
	if pair.LastSyncedAt() != nil {
		t.Error("new pair should never have synced")
	}

	failedAt := time.Now()
	pair.RecordFailure("rate limited", failedAt)
	pair.RecordFailure("rate limited again", failedAt.Add(time.Minute))

	if pair.ErrorCount() != 2 {
		t.Errorf("ErrorCount() = %d, want 2", pair.ErrorCount())
	}
	if pair.LastError() != "rate limited again" {
		t.Errorf("LastError() = %q", pair.LastError())
	}
	if pair.LastSyncedAt() != nil {
		t.Error("failures must not touch lastSyncedAt")
	}

	syncedAt := failedAt.Add(2 * time.Minute)
	pair.RecordSuccess(syncedAt)

	if pair.ErrorCount() != 0 {
		t.Errorf("ErrorCount() after success = %d, want 0", pair.ErrorCount())
	}
	if pair.LastError() != "" || pair.LastErrorAt() != nil {
		t.Error("success should clear error bookkeeping")
	}
	if pair.LastSyncedAt() == nil || !pair.LastSyncedAt().Equal(syncedAt) {
		t.Errorf("LastSyncedAt() = %v, want %v", pair.LastSyncedAt(), syncedAt)
	}
}
