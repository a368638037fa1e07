package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/jelly/sim"
	"github.com/pthm-cable/jelly/species"
)

// MilestoneType identifies the type of milestone.
type MilestoneType string

const (
	MilestoneRecord       MilestoneType = "record"
	MilestoneBreakthrough MilestoneType = "breakthrough"
	MilestoneProminent    MilestoneType = "species_prominent"
	MilestoneExtinct      MilestoneType = "species_extinct"
	MilestoneTakeover     MilestoneType = "species_takeover"
	MilestoneStagnation   MilestoneType = "stagnation"
)

// Milestone represents an automatically detected moment worth revisiting.
type Milestone struct {
	RunID       string        `csv:"run_id"`
	Type        MilestoneType `csv:"type"`
	Generation  int           `csv:"generation"`
	Species     int           `csv:"species"`
	Description string        `csv:"description"`
}

// LogMilestone logs the milestone using slog.
func (m Milestone) LogMilestone() {
	slog.Info("milestone",
		"type", string(m.Type),
		"generation", m.Generation,
		"description", m.Description,
	)
}

// MilestoneDetector detects interesting generations.
type MilestoneDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	bestEver         float64
	stagnantCount    int // consecutive generations without a new record
	stagnationLength int
	salt             string
}

// NewMilestoneDetector creates a detector with the given history size. Names
// in descriptions are derived with salt.
func NewMilestoneDetector(historySize int, salt string) *MilestoneDetector {
	if historySize < 5 {
		historySize = 5 // minimum for breakthrough detection
	}
	return &MilestoneDetector{
		history:          make([]GenerationStats, historySize),
		historySize:      historySize,
		stagnationLength: historySize * 2,
		salt:             salt,
	}
}

// Check analyzes the latest generation and returns any triggered milestones.
func (md *MilestoneDetector) Check(stats GenerationStats, s sim.Summary) []Milestone {
	var milestones []Milestone

	if m := md.checkRecord(stats); m != nil {
		milestones = append(milestones, *m)
	}
	if m := md.checkBreakthrough(stats); m != nil {
		milestones = append(milestones, *m)
	}
	if m := md.checkStagnation(stats); m != nil {
		milestones = append(milestones, *m)
	}
	if m := md.checkTakeover(stats); m != nil {
		milestones = append(milestones, *m)
	}

	for _, id := range s.Promoted {
		milestones = append(milestones, Milestone{
			Type:        MilestoneProminent,
			Generation:  s.Generation,
			Species:     id,
			Description: fmt.Sprintf("%s became prominent", species.Name(id, md.salt)),
		})
	}
	for _, id := range s.Extinct {
		milestones = append(milestones, Milestone{
			Type:        MilestoneExtinct,
			Generation:  s.Generation,
			Species:     id,
			Description: fmt.Sprintf("%s went extinct", species.Name(id, md.salt)),
		})
	}

	for i := range milestones {
		milestones[i].RunID = stats.RunID
	}

	md.addToHistory(stats)
	return milestones
}

func (md *MilestoneDetector) addToHistory(stats GenerationStats) {
	md.history[md.historyIdx] = stats
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}
}

func (md *MilestoneDetector) getHistory() []GenerationStats {
	if md.historyFull {
		return md.history
	}
	return md.history[:md.historyIdx]
}

func (md *MilestoneDetector) checkRecord(stats GenerationStats) *Milestone {
	first := !md.historyFull && md.historyIdx == 0
	if !first && stats.BestCM <= md.bestEver {
		md.stagnantCount++
		return nil
	}

	prev := md.bestEver
	md.bestEver = stats.BestCM
	md.stagnantCount = 0
	if first {
		return nil
	}
	return &Milestone{
		Type:        MilestoneRecord,
		Generation:  stats.Generation,
		Species:     -1,
		Description: fmt.Sprintf("Best %.1fcm beats previous record %.1fcm", stats.BestCM, prev),
	}
}

// checkBreakthrough fires when the median jumps by more than twice the
// spread of recent medians.
func (md *MilestoneDetector) checkBreakthrough(stats GenerationStats) *Milestone {
	history := md.getHistory()
	if len(history) < 3 {
		return nil
	}

	medians := make([]float64, len(history))
	for i, h := range history {
		medians[i] = h.MedianCM
	}
	mean, std, _, _, _ := ComputeFitnessStats(medians)
	if std == 0 {
		return nil
	}

	if stats.MedianCM > mean+2*std {
		return &Milestone{
			Type:        MilestoneBreakthrough,
			Generation:  stats.Generation,
			Species:     -1,
			Description: fmt.Sprintf("Median %.1fcm is %.1f std above recent mean (%.1fcm)", stats.MedianCM, (stats.MedianCM-mean)/std, mean),
		}
	}
	return nil
}

func (md *MilestoneDetector) checkStagnation(stats GenerationStats) *Milestone {
	if md.stagnantCount != md.stagnationLength {
		return nil
	}
	return &Milestone{
		Type:        MilestoneStagnation,
		Generation:  stats.Generation,
		Species:     -1,
		Description: fmt.Sprintf("No new record for %d generations", md.stagnantCount),
	}
}

// checkTakeover fires when one species first holds at least half the
// population after not doing so the generation before.
func (md *MilestoneDetector) checkTakeover(stats GenerationStats) *Milestone {
	if stats.DominantFraction < 0.5 {
		return nil
	}
	history := md.getHistory()
	if len(history) > 0 {
		prev := md.history[(md.historyIdx+md.historySize-1)%md.historySize]
		if prev.DominantSpecies == stats.DominantSpecies && prev.DominantFraction >= 0.5 {
			return nil
		}
	}
	return &Milestone{
		Type:        MilestoneTakeover,
		Generation:  stats.Generation,
		Species:     stats.DominantSpecies,
		Description: fmt.Sprintf("%s holds %.0f%% of the population", species.Name(stats.DominantSpecies, md.salt), stats.DominantFraction*100),
	}
}
