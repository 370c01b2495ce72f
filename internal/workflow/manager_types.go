package workflow

import (
	"shortform/internal/queue"
	"shortform/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Research  stage.Handler
	Script    stage.Handler
	Assets    stage.Handler
	Narration stage.Handler
	Quality   stage.Handler
	Assembly  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// ConfigureStages wires the handlers into the status pipeline. The review
// stage sits between narration and assembly so nothing is rendered for
// content that fails the gate.
func (m *Manager) ConfigureStages(set StageSet) {
	m.stages = []pipelineStage{
		{
			name:             "research",
			handler:          set.Research,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusResearching,
			doneStatus:       queue.StatusResearched,
		},
		{
			name:             "script",
			handler:          set.Script,
			startStatus:      queue.StatusResearched,
			processingStatus: queue.StatusScripting,
			doneStatus:       queue.StatusScripted,
		},
		{
			name:             "assets",
			handler:          set.Assets,
			startStatus:      queue.StatusScripted,
			processingStatus: queue.StatusGatheringAssets,
			doneStatus:       queue.StatusAssetsReady,
		},
		{
			name:             "narration",
			handler:          set.Narration,
			startStatus:      queue.StatusAssetsReady,
			processingStatus: queue.StatusNarrating,
			doneStatus:       queue.StatusNarrated,
		},
		{
			name:             "quality",
			handler:          set.Quality,
			startStatus:      queue.StatusNarrated,
			processingStatus: queue.StatusReviewing,
			doneStatus:       queue.StatusApproved,
		},
		{
			name:             "assembly",
			handler:          set.Assembly,
			startStatus:      queue.StatusApproved,
			processingStatus: queue.StatusAssembling,
			doneStatus:       queue.StatusCompleted,
		},
	}

	m.stageByStart = make(map[queue.Status]pipelineStage, len(m.stages))
	m.statusOrder = make([]queue.Status, 0, len(m.stages))
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
		m.statusOrder = append(m.statusOrder, stg.startStatus)
	}
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	stg, ok := m.stageByStart[status]
	return stg, ok
}
