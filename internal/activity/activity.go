// v2
// internal/activity/activity.go
package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nksrentas/ecotrace/internal/geo"
)

// Type enumerates the supported activity kinds.
type Type string

const (
	CloudCompute Type = "cloud_compute"
	DataTransfer Type = "data_transfer"
	Storage      Type = "storage"
	Electricity  Type = "electricity"
	Transport    Type = "transport"
	Commit       Type = "commit"
	Deployment   Type = "deployment"
)

// ErrInvalid flags a malformed or type-mismatched activity record. It is
// returned before any external call is made.
var ErrInvalid = errors.New("invalid activity")

// Record is one immutable activity description. Exactly one of the typed
// metadata pointers matching Type must be set; the union replaces the source
// system's untyped metadata map so the engine can switch exhaustively.
type Record struct {
	Type      Type          `json:"activityType"`
	Timestamp time.Time     `json:"timestamp"`
	Location  *geo.Location `json:"location,omitempty"`
	UserID    string        `json:"userId,omitempty"`

	CloudCompute *CloudComputeMeta `json:"-"`
	DataTransfer *DataTransferMeta `json:"-"`
	Storage      *StorageMeta      `json:"-"`
	Electricity  *ElectricityMeta  `json:"-"`
	Transport    *TransportMeta    `json:"-"`
	Commit       *CommitMeta       `json:"-"`
	Deployment   *DeploymentMeta   `json:"-"`
}

type CloudComputeMeta struct {
	Provider        string  `json:"provider,omitempty"` // aws | gcp | azure
	Region          string  `json:"region,omitempty"`
	VCPUCount       float64 `json:"vcpuCount"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type DataTransferMeta struct {
	Bytes float64 `json:"bytes"`
}

type StorageMeta struct {
	SizeGB        float64 `json:"sizeGB"`
	DurationHours float64 `json:"durationHours"`
	Tier          string  `json:"tier,omitempty"` // ssd | hdd (default hdd)
}

type ElectricityMeta struct {
	KWh       float64 `json:"kWhConsumed"`
	TimeOfDay string  `json:"timeOfDay,omitempty"` // peak | offpeak | ""
}

type TransportMeta struct {
	Km   float64 `json:"km"`
	Mode string  `json:"mode"` // car | rail | air
}

type CommitMeta struct {
	FilesChanged int `json:"filesChanged,omitempty"`
	LinesChanged int `json:"linesChanged,omitempty"`
}

type DeploymentMeta struct {
	DurationSeconds float64 `json:"durationSeconds"`
	Environment     string  `json:"environment,omitempty"`
}

// VCPUHours is the functional quantity for compute activities.
func (m CloudComputeMeta) VCPUHours() float64 {
	return m.VCPUCount * m.DurationSeconds / 3600
}

// Validate checks structural consistency: the metadata variant must match
// Type and carry positive magnitudes. All violations wrap ErrInvalid.
func (r *Record) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required: %w", ErrInvalid)
	}
	switch r.Type {
	case CloudCompute:
		m := r.CloudCompute
		if m == nil {
			return missingMeta(r.Type)
		}
		if m.VCPUCount <= 0 || m.DurationSeconds <= 0 {
			return fmt.Errorf("cloud_compute requires positive vcpuCount and durationSeconds: %w", ErrInvalid)
		}
	case DataTransfer:
		if r.DataTransfer == nil {
			return missingMeta(r.Type)
		}
		if r.DataTransfer.Bytes <= 0 {
			return fmt.Errorf("data_transfer requires positive bytes: %w", ErrInvalid)
		}
	case Storage:
		m := r.Storage
		if m == nil {
			return missingMeta(r.Type)
		}
		if m.SizeGB <= 0 || m.DurationHours <= 0 {
			return fmt.Errorf("storage requires positive sizeGB and durationHours: %w", ErrInvalid)
		}
	case Electricity:
		if r.Electricity == nil {
			return missingMeta(r.Type)
		}
		if r.Electricity.KWh <= 0 {
			return fmt.Errorf("electricity requires positive kWhConsumed: %w", ErrInvalid)
		}
		switch r.Electricity.TimeOfDay {
		case "", "peak", "offpeak":
		default:
			return fmt.Errorf("unknown timeOfDay %q: %w", r.Electricity.TimeOfDay, ErrInvalid)
		}
	case Transport:
		m := r.Transport
		if m == nil {
			return missingMeta(r.Type)
		}
		if m.Km <= 0 {
			return fmt.Errorf("transport requires positive km: %w", ErrInvalid)
		}
		switch m.Mode {
		case "car", "rail", "air":
		default:
			return fmt.Errorf("unknown transport mode %q: %w", m.Mode, ErrInvalid)
		}
	case Commit:
		if r.Commit == nil {
			return missingMeta(r.Type)
		}
	case Deployment:
		if r.Deployment == nil {
			return missingMeta(r.Type)
		}
		if r.Deployment.DurationSeconds < 0 {
			return fmt.Errorf("deployment duration must not be negative: %w", ErrInvalid)
		}
	default:
		return fmt.Errorf("unknown activity type %q: %w", r.Type, ErrInvalid)
	}
	return nil
}

func missingMeta(t Type) error {
	return fmt.Errorf("metadata for %s is missing: %w", t, ErrInvalid)
}

// envelope is the wire shape: metadata arrives as a raw object and is decoded
// into the variant selected by activityType.
type envelope struct {
	Type      Type            `json:"activityType"`
	Timestamp time.Time       `json:"timestamp"`
	Location  *geo.Location   `json:"location,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Metadata  json.RawMessage `json:"metadata"`
}

// UnmarshalJSON decodes the envelope and dispatches metadata decoding on the
// declared activity type.
func (r *Record) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*r = Record{Type: env.Type, Timestamp: env.Timestamp, Location: env.Location, UserID: env.UserID}
	if len(env.Metadata) == 0 {
		env.Metadata = json.RawMessage("{}")
	}
	switch env.Type {
	case CloudCompute:
		r.CloudCompute = &CloudComputeMeta{}
		return json.Unmarshal(env.Metadata, r.CloudCompute)
	case DataTransfer:
		r.DataTransfer = &DataTransferMeta{}
		return json.Unmarshal(env.Metadata, r.DataTransfer)
	case Storage:
		r.Storage = &StorageMeta{}
		return json.Unmarshal(env.Metadata, r.Storage)
	case Electricity:
		r.Electricity = &ElectricityMeta{}
		return json.Unmarshal(env.Metadata, r.Electricity)
	case Transport:
		r.Transport = &TransportMeta{}
		return json.Unmarshal(env.Metadata, r.Transport)
	case Commit:
		r.Commit = &CommitMeta{}
		return json.Unmarshal(env.Metadata, r.Commit)
	case Deployment:
		r.Deployment = &DeploymentMeta{}
		return json.Unmarshal(env.Metadata, r.Deployment)
	default:
		return fmt.Errorf("unknown activity type %q: %w", env.Type, ErrInvalid)
	}
}

// MarshalJSON re-encodes the record in envelope form.
func (r Record) MarshalJSON() ([]byte, error) {
	var meta any
	switch r.Type {
	case CloudCompute:
		meta = r.CloudCompute
	case DataTransfer:
		meta = r.DataTransfer
	case Storage:
		meta = r.Storage
	case Electricity:
		meta = r.Electricity
	case Transport:
		meta = r.Transport
	case Commit:
		meta = r.Commit
	case Deployment:
		meta = r.Deployment
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: r.Type, Timestamp: r.Timestamp, Location: r.Location, UserID: r.UserID, Metadata: raw})
}
