package usage

import (
	"encoding/json"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/domain"
)

// wireRecord is the exact marketplace submission shape (spec §6 "Usage
// submission format").
type wireRecord struct {
	Resource    string             `json:"resource"`
	PeriodStart string             `json:"period_start"`
	PeriodEnd   string             `json:"period_end"`
	Usages      map[string]float64 `json:"usages"`
	IsFinal     bool               `json:"is_final"`
}

func encodeRecord(r domain.UsageRecord) ([]byte, error) {
	return json.Marshal(wireRecord{
		Resource:    r.ResourceID,
		PeriodStart: r.PeriodStart.Format(time.RFC3339),
		PeriodEnd:   r.PeriodEnd.Format(time.RFC3339),
		Usages: map[string]float64{
			"cpu_hours":      r.Metrics.CPUHours,
			"mem_gb_hours":   r.Metrics.MemGBHours,
			"gpu_hours":      r.Metrics.GPUHours,
			"storage_gb_hours": r.Metrics.StorageGBHours,
			"network_gb":     r.Metrics.NetworkGB,
		},
		IsFinal: r.IsFinal,
	})
}
