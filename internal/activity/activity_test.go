// v1
// internal/activity/activity_test.go
package activity

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestUnmarshalDispatchesOnType(t *testing.T) {
	raw := `{
		"activityType": "cloud_compute",
		"timestamp": "2026-05-01T10:00:00Z",
		"location": {"country": "US", "region": "CA"},
		"metadata": {"provider": "aws", "region": "us-west-2", "vcpuCount": 4, "durationSeconds": 3600}
	}`
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Type != CloudCompute || r.CloudCompute == nil {
		t.Fatalf("cloud_compute variant not populated: %+v", r)
	}
	if r.CloudCompute.VCPUHours() != 4 {
		t.Fatalf("vCPU-hours mismatch: %f", r.CloudCompute.VCPUHours())
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"activityType":"teleport","timestamp":"2026-05-01T10:00:00Z"}`), &r)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestValidateRejectsMismatchedMeta(t *testing.T) {
	r := Record{Type: Storage, Timestamp: time.Now(), Electricity: &ElectricityMeta{KWh: 5}}
	if err := r.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("storage record without storage metadata must fail, got %v", err)
	}
}

func TestValidateRejectsNonPositiveMagnitudes(t *testing.T) {
	cases := []Record{
		{Type: CloudCompute, Timestamp: time.Now(), CloudCompute: &CloudComputeMeta{VCPUCount: 0, DurationSeconds: 60}},
		{Type: DataTransfer, Timestamp: time.Now(), DataTransfer: &DataTransferMeta{Bytes: -1}},
		{Type: Storage, Timestamp: time.Now(), Storage: &StorageMeta{SizeGB: 10, DurationHours: 0}},
		{Type: Electricity, Timestamp: time.Now(), Electricity: &ElectricityMeta{KWh: 0}},
		{Type: Transport, Timestamp: time.Now(), Transport: &TransportMeta{Km: 12, Mode: "rocket"}},
	}
	for i, r := range cases {
		if err := r.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d should be invalid, got %v", i, err)
		}
	}
}

func TestValidateRequiresTimestamp(t *testing.T) {
	r := Record{Type: Commit, Commit: &CommitMeta{}}
	if err := r.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("missing timestamp should be invalid, got %v", err)
	}
}

func TestMarshalRoundTripsEnvelope(t *testing.T) {
	r := Record{
		Type:        Electricity,
		Timestamp:   time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		Electricity: &ElectricityMeta{KWh: 12.5, TimeOfDay: "peak"},
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Electricity == nil || back.Electricity.KWh != 12.5 || back.Electricity.TimeOfDay != "peak" {
		t.Fatalf("round trip lost metadata: %+v", back.Electricity)
	}
}
