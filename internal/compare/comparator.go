// Package compare implements point-in-time comparison of one audited value
// between two runs, with provenance diffing and a narrative insight.
package compare

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ifrs17/internal/insight"
	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// NotFoundError reports which side of the comparison is missing.
type NotFoundError struct {
	Side    string // "current" or "prior"
	RunID   string
	ValueID string
}

func (e *NotFoundError) Error() string {
	if e.ValueID == "" {
		return fmt.Sprintf("%s run %s has no results", e.Side, e.RunID)
	}
	return fmt.Sprintf("%s run %s has no value %s", e.Side, e.RunID, e.ValueID)
}

const (
	ChangeAdded           = "added"
	ChangeRemoved         = "removed"
	ChangeVersionChanged  = "version_changed"
	ChangeSnapshotChanged = "snapshot_changed"
)

type AssumptionChange struct {
	AssumptionID   string `json:"assumption_id"`
	AssumptionType string `json:"assumption_type"`
	ChangeType     string `json:"change_type"`
	FromVersion    string `json:"from_version,omitempty"`
	ToVersion      string `json:"to_version,omitempty"`
}

type InputChange struct {
	DatasetName  string `json:"dataset_name"`
	ChangeType   string `json:"change_type"`
	FromSnapshot string `json:"from_snapshot,omitempty"`
	ToSnapshot   string `json:"to_snapshot,omitempty"`
}

type Comparison struct {
	ValueID      string `json:"value_id"`
	Label        string `json:"label"`
	CurrentRunID string `json:"current_run_id"`
	PriorRunID   string `json:"prior_run_id"`

	CurrentValue     decimal.Decimal `json:"current_value"`
	PriorValue       decimal.Decimal `json:"prior_value"`
	AbsoluteChange   decimal.Decimal `json:"absolute_change"`
	PercentageChange decimal.Decimal `json:"percentage_change"`
	Direction        string          `json:"direction"`
	Magnitude        string          `json:"magnitude"`

	AssumptionChanges []AssumptionChange `json:"assumption_changes"`
	InputChanges      []InputChange      `json:"input_changes"`
	FormulaChanged    bool               `json:"formula_changed"`

	Narrative       string `json:"narrative"`
	NarrativeSource string `json:"narrative_source"`
}

// Comparator is a pure read+compose operation over persisted audit rows plus
// one optional external call. CalculationValue rows are the single source of
// truth for both sides.
type Comparator struct {
	Repo    repository.Repository
	Insight insight.Generator
	Logger  *zap.Logger
}

func (c *Comparator) Compare(ctx context.Context, currentRunID, priorRunID, valueID string) (*Comparison, error) {
	current, err := c.loadSide(ctx, "current", currentRunID, valueID)
	if err != nil {
		return nil, err
	}
	prior, err := c.loadSide(ctx, "prior", priorRunID, valueID)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{
		ValueID:      valueID,
		Label:        current.Label,
		CurrentRunID: currentRunID,
		PriorRunID:   priorRunID,
		CurrentValue: current.Value,
		PriorValue:   prior.Value,
	}
	cmp.AbsoluteChange = current.Value.Sub(prior.Value)
	// Percentage change is defined as 0 when the prior value is exactly 0.
	if prior.Value.IsZero() {
		cmp.PercentageChange = decimal.Zero
	} else {
		cmp.PercentageChange = cmp.AbsoluteChange.Div(prior.Value).Mul(decimal.NewFromInt(100))
	}
	cmp.Direction = direction(cmp.AbsoluteChange)
	cmp.Magnitude = MagnitudeBucket(cmp.PercentageChange)

	cmp.AssumptionChanges = diffAssumptions(prior.Assumptions, current.Assumptions)
	cmp.InputChanges = diffInputs(prior.InputData, current.InputData)
	cmp.FormulaChanged = strings.TrimSpace(prior.Formula) != strings.TrimSpace(current.Formula)

	c.narrate(ctx, cmp)
	return cmp, nil
}

func (c *Comparator) loadSide(ctx context.Context, side, runID, valueID string) (*models.CalculationValue, error) {
	result, err := c.Repo.GetLatestEngineResultForRun(ctx, runID, "")
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &NotFoundError{Side: side, RunID: runID}
	}
	value, err := c.Repo.GetCalculationValue(ctx, runID, valueID)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, &NotFoundError{Side: side, RunID: runID, ValueID: valueID}
	}
	return value, nil
}

func (c *Comparator) narrate(ctx context.Context, cmp *Comparison) {
	drivers := Drivers(cmp)
	if c.Insight != nil {
		req := insight.Request{
			ValueID:          cmp.ValueID,
			Label:            cmp.Label,
			CurrentValue:     cmp.CurrentValue.String(),
			PriorValue:       cmp.PriorValue.String(),
			AbsoluteChange:   cmp.AbsoluteChange.String(),
			PercentageChange: cmp.PercentageChange.StringFixed(4),
			Direction:        cmp.Direction,
			Magnitude:        cmp.Magnitude,
			Drivers:          drivers,
		}
		text, err := c.Insight.Narrative(ctx, req)
		if err == nil {
			cmp.Narrative = text
			cmp.NarrativeSource = "ai"
			return
		}
		if c.Logger != nil {
			c.Logger.Warn("insight generation failed, using rule-based narrative",
				zap.String("value_id", cmp.ValueID), zap.Error(err))
		}
	}
	cmp.Narrative = RuleBasedNarrative(cmp, drivers)
	cmp.NarrativeSource = "rule_based"
}

// MagnitudeBucket classifies the absolute percentage change:
// <0.01% negligible, <5% minor, <20% moderate, else significant.
func MagnitudeBucket(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThan(decimal.NewFromFloat(0.01)):
		return "negligible"
	case abs.LessThan(decimal.NewFromInt(5)):
		return "minor"
	case abs.LessThan(decimal.NewFromInt(20)):
		return "moderate"
	default:
		return "significant"
	}
}

func direction(change decimal.Decimal) string {
	switch {
	case change.IsPositive():
		return "increase"
	case change.IsNegative():
		return "decrease"
	default:
		return "unchanged"
	}
}

// Drivers itemizes the provenance changes as human-readable lines.
func Drivers(cmp *Comparison) []string {
	var out []string
	for _, a := range cmp.AssumptionChanges {
		switch a.ChangeType {
		case ChangeVersionChanged:
			out = append(out, fmt.Sprintf("assumption %s moved from version %s to %s", a.AssumptionID, a.FromVersion, a.ToVersion))
		case ChangeAdded:
			out = append(out, fmt.Sprintf("assumption %s (%s) was added", a.AssumptionID, a.AssumptionType))
		case ChangeRemoved:
			out = append(out, fmt.Sprintf("assumption %s (%s) was removed", a.AssumptionID, a.AssumptionType))
		}
	}
	for _, i := range cmp.InputChanges {
		switch i.ChangeType {
		case ChangeSnapshotChanged:
			out = append(out, fmt.Sprintf("input dataset %s snapshot changed from %s to %s", i.DatasetName, i.FromSnapshot, i.ToSnapshot))
		case ChangeAdded:
			out = append(out, fmt.Sprintf("input dataset %s was added", i.DatasetName))
		case ChangeRemoved:
			out = append(out, fmt.Sprintf("input dataset %s was removed", i.DatasetName))
		}
	}
	if cmp.FormulaChanged {
		out = append(out, "the calculation formula changed between runs")
	}
	return out
}

// RuleBasedNarrative is the deterministic fallback used when the insight
// collaborator is unavailable or fails.
func RuleBasedNarrative(cmp *Comparison, drivers []string) string {
	var b strings.Builder
	label := cmp.Label
	if label == "" {
		label = cmp.ValueID
	}
	switch cmp.Direction {
	case "unchanged":
		fmt.Fprintf(&b, "%s is unchanged at %s between the two runs.", label, cmp.CurrentValue.String())
	default:
		fmt.Fprintf(&b, "%s shows a %s %s of %s (%s%%), from %s to %s.",
			label, cmp.Magnitude, cmp.Direction,
			cmp.AbsoluteChange.Abs().String(),
			cmp.PercentageChange.StringFixed(2),
			cmp.PriorValue.String(), cmp.CurrentValue.String())
	}
	if len(drivers) == 0 {
		b.WriteString(" No assumption or input data drivers were identified.")
		return b.String()
	}
	b.WriteString(" Identified drivers: ")
	b.WriteString(strings.Join(drivers, "; "))
	b.WriteString(".")
	return b.String()
}

func diffAssumptions(prior, current []models.AssumptionReference) []AssumptionChange {
	priorByID := map[string]models.AssumptionReference{}
	for _, a := range prior {
		priorByID[a.AssumptionID] = a
	}
	var out []AssumptionChange
	seen := map[string]bool{}
	for _, cur := range current {
		seen[cur.AssumptionID] = true
		old, ok := priorByID[cur.AssumptionID]
		if !ok {
			out = append(out, AssumptionChange{
				AssumptionID:   cur.AssumptionID,
				AssumptionType: cur.AssumptionType,
				ChangeType:     ChangeAdded,
				ToVersion:      cur.Version,
			})
			continue
		}
		if old.Version != cur.Version {
			out = append(out, AssumptionChange{
				AssumptionID:   cur.AssumptionID,
				AssumptionType: cur.AssumptionType,
				ChangeType:     ChangeVersionChanged,
				FromVersion:    old.Version,
				ToVersion:      cur.Version,
			})
		}
	}
	for _, old := range prior {
		if !seen[old.AssumptionID] {
			out = append(out, AssumptionChange{
				AssumptionID:   old.AssumptionID,
				AssumptionType: old.AssumptionType,
				ChangeType:     ChangeRemoved,
				FromVersion:    old.Version,
			})
		}
	}
	return out
}

func diffInputs(prior, current []models.InputDataReference) []InputChange {
	priorByName := map[string]models.InputDataReference{}
	for _, i := range prior {
		priorByName[i.DatasetName] = i
	}
	var out []InputChange
	seen := map[string]bool{}
	for _, cur := range current {
		seen[cur.DatasetName] = true
		old, ok := priorByName[cur.DatasetName]
		if !ok {
			out = append(out, InputChange{
				DatasetName: cur.DatasetName,
				ChangeType:  ChangeAdded,
				ToSnapshot:  cur.SnapshotID,
			})
			continue
		}
		if old.SnapshotID != cur.SnapshotID || old.ContentHash != cur.ContentHash {
			out = append(out, InputChange{
				DatasetName:  cur.DatasetName,
				ChangeType:   ChangeSnapshotChanged,
				FromSnapshot: old.SnapshotID,
				ToSnapshot:   cur.SnapshotID,
			})
		}
	}
	for _, old := range prior {
		if !seen[old.DatasetName] {
			out = append(out, InputChange{
				DatasetName:  old.DatasetName,
				ChangeType:   ChangeRemoved,
				FromSnapshot: old.SnapshotID,
			})
		}
	}
	return out
}
