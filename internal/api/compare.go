package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/whsiao/tariffcompare/internal/catalog"
	"github.com/whsiao/tariffcompare/internal/metrics"
	"github.com/whsiao/tariffcompare/internal/tariff"
)

// CompareRequest is the body of POST /api/v1/compare. Dates are YYYY-MM-DD.
type CompareRequest struct {
	Usage      float64  `json:"usage"`
	PeakOnPeak *float64 `json:"peakOnPeak,omitempty"`
	SemiPeak   *float64 `json:"semiPeak,omitempty"`
	OffPeak    *float64 `json:"offPeak,omitempty"`

	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`

	Phase         string  `json:"phase,omitempty"`
	Voltage       float64 `json:"voltage,omitempty"`
	ContractAmps  float64 `json:"contractAmps,omitempty"`
	CurrentPlanID string  `json:"currentPlanId,omitempty"`

	Estimation *tariff.EstimationSettings `json:"estimation,omitempty"`
	Split      *tariff.SplitSettings      `json:"split,omitempty"`
}

// CompareResponse is the body returned by POST /api/v1/compare.
type CompareResponse struct {
	RequestID      string                         `json:"requestId"`
	CatalogVersion string                         `json:"catalogVersion"`
	Completeness   tariff.CompletenessReport      `json:"completeness"`
	Results        []tariff.PlanCalculationResult `json:"results"`
	Recommendation *tariff.Recommendation         `json:"recommendation,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/compare"
	if r.Method != http.MethodPost {
		writeError(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, path, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Usage < 0 {
		writeError(w, path, "usage must not be negative", http.StatusBadRequest)
		return
	}

	period, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, path, err.Error(), http.StatusBadRequest)
		return
	}

	cons := tariff.Consumption{
		Usage:      req.Usage,
		PeakOnPeak: req.PeakOnPeak,
		SemiPeak:   req.SemiPeak,
		OffPeak:    req.OffPeak,
	}
	report := tariff.Classify(cons)
	metrics.ComparisonsTotal.WithLabelValues(string(report.Level)).Inc()

	input := tariff.CalculationInput{
		Consumption:        cons,
		BillingPeriod:      period,
		Phase:              catalog.Phase(req.Phase),
		VoltageV:           req.Voltage,
		ContractCapacity:   req.ContractAmps,
		EstimationSettings: req.Estimation,
		SplitSettings:      req.Split,
		CurrentPlanID:      req.CurrentPlanID,
	}

	cat, err := s.loader.Catalog(r.Context())
	if err != nil {
		log.Printf("compare: catalog load failed: %v", err)
		writeError(w, path, "internal error", http.StatusInternalServerError)
		return
	}

	results, err := tariff.NewCalculator(cat).CalculateAll(input)
	if err != nil {
		if errors.Is(err, tariff.ErrInvalidArgument) {
			writeError(w, path, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("compare: calculation failed: %v", err)
		writeError(w, path, "internal error", http.StatusInternalServerError)
		return
	}
	tariff.FinalizeComparison(results, req.CurrentPlanID)

	writeJSON(w, path, CompareResponse{
		RequestID:      uuid.NewString(),
		CatalogVersion: cat.Version,
		Completeness:   report,
		Results:        results,
		Recommendation: tariff.BuildRecommendation(results),
	})
}

// parsePeriod builds a billing period from YYYY-MM-DD dates. A missing end
// date closes the period one month after the start.
func parsePeriod(start, end string) (tariff.BillingPeriod, error) {
	if start == "" {
		return tariff.BillingPeriod{}, fmt.Errorf("startDate is required")
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return tariff.BillingPeriod{}, fmt.Errorf("invalid startDate %q", start)
	}

	var e time.Time
	if end == "" {
		e = s.AddDate(0, 1, -1)
	} else {
		e, err = time.Parse("2006-01-02", end)
		if err != nil {
			return tariff.BillingPeriod{}, fmt.Errorf("invalid endDate %q", end)
		}
	}
	if e.Before(s) {
		return tariff.BillingPeriod{}, fmt.Errorf("endDate precedes startDate")
	}

	return tariff.BillingPeriod{
		Start: s,
		End:   e,
		Days:  int(e.Sub(s).Hours()/24) + 1,
	}, nil
}

// CompletenessRequest is the body of POST /api/v1/completeness.
type CompletenessRequest struct {
	Usage      float64  `json:"usage"`
	PeakOnPeak *float64 `json:"peakOnPeak,omitempty"`
	SemiPeak   *float64 `json:"semiPeak,omitempty"`
	OffPeak    *float64 `json:"offPeak,omitempty"`
}

func (s *Server) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/completeness"
	if r.Method != http.MethodPost {
		writeError(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompletenessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, path, "invalid JSON body", http.StatusBadRequest)
		return
	}

	report := tariff.Classify(tariff.Consumption{
		Usage:      req.Usage,
		PeakOnPeak: req.PeakOnPeak,
		SemiPeak:   req.SemiPeak,
		OffPeak:    req.OffPeak,
	})
	writeJSON(w, path, report)
}

// PlanSummary is one entry of GET /api/v1/plans.
type PlanSummary struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	NameEn     string           `json:"nameEn,omitempty"`
	Category   catalog.Category `json:"category"`
	TouType    catalog.TouType  `json:"touType"`
	Comparable bool             `json:"comparable"`
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/plans"
	if r.Method != http.MethodGet {
		writeError(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cat, err := s.loader.Catalog(r.Context())
	if err != nil {
		log.Printf("plans: catalog load failed: %v", err)
		writeError(w, path, "internal error", http.StatusInternalServerError)
		return
	}

	category := r.URL.Query().Get("category")
	summaries := make([]PlanSummary, 0, len(cat.Plans))
	for i := range cat.Plans {
		p := &cat.Plans[i]
		if category != "" && string(p.Category) != category {
			continue
		}
		summaries = append(summaries, PlanSummary{
			ID:         p.ID,
			Name:       p.Name,
			NameEn:     p.NameEn,
			Category:   p.Category,
			TouType:    p.TouType,
			Comparable: p.Comparable(),
		})
	}
	writeJSON(w, path, map[string]any{
		"catalogVersion": cat.Version,
		"plans":          summaries,
	})
}
