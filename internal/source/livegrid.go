// v1
// internal/source/livegrid.go
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nksrentas/ecotrace/internal/factor"
)

// LiveGrid queries a real-time grid-intensity API:
// GET {base}/intensity?zone=<zone> returning
// {"zone":"...","carbonIntensity":<gCO2e/kWh>,"updatedAt":"RFC3339"}.
// Highest reliability, shortest validity window.
type LiveGrid struct {
	base string
	h    *http.Client
}

func NewLiveGrid(base string, client *http.Client) *LiveGrid {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &LiveGrid{base: base, h: client}
}

func (l *LiveGrid) Name() string { return "live_grid" }

func (l *LiveGrid) Descriptor() factor.SourceDescriptor {
	return factor.SourceDescriptor{
		Name:        l.Name(),
		Type:        "live_grid",
		Freshness:   factor.FreshRealtime,
		Reliability: 0.95,
	}
}

type liveGridResponse struct {
	Zone            string    `json:"zone"`
	CarbonIntensity float64   `json:"carbonIntensity"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (l *LiveGrid) Factor(ctx context.Context, zone string, asOf time.Time) (factor.EmissionFactor, error) {
	u, err := url.Parse(l.base + "/intensity")
	if err != nil {
		return factor.EmissionFactor{}, err
	}
	q := u.Query()
	q.Set("zone", zone)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return factor.EmissionFactor{}, err
	}
	resp, err := l.h.Do(req)
	if err != nil {
		return factor.EmissionFactor{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return factor.EmissionFactor{}, fmt.Errorf("live grid %s returned %d: %s", u.String(), resp.StatusCode, string(b))
	}
	var payload liveGridResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return factor.EmissionFactor{}, err
	}
	if payload.CarbonIntensity <= 0 {
		return factor.EmissionFactor{}, fmt.Errorf("live grid returned non-positive intensity %f", payload.CarbonIntensity)
	}
	updated := payload.UpdatedAt
	if updated.IsZero() {
		updated = asOf
	}
	return factor.EmissionFactor{
		ID:          fmt.Sprintf("livegrid-%s-%d", zone, updated.Unix()),
		Value:       payload.CarbonIntensity,
		Unit:        "gCO2e/kWh",
		Source:      l.Name(),
		Region:      zone,
		ValidFrom:   updated,
		ValidUntil:  updated.Add(time.Hour),
		Uncertainty: 0.05,
	}, nil
}
