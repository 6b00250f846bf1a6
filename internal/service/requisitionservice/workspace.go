package requisitionservice

import (
	"sync"
	"time"

	"drive360/internal/pkg/logger"
)

type workspaceEntry struct {
	orch     *Orchestrator
	lastUsed time.Time
}

// Workspace guarda um orquestrador por sessão.
type Workspace struct {
	repo   RequisitionRepository
	refs   ReferenceRepository
	logger logger.Logger

	mu      sync.Mutex
	entries map[string]*workspaceEntry
	now     func() time.Time
}

// NewWorkspace cria o registo de orquestradores.
func NewWorkspace(repo RequisitionRepository, refs ReferenceRepository, logger logger.Logger) *Workspace {
	return &Workspace{
		repo:    repo,
		refs:    refs,
		logger:  logger,
		entries: make(map[string]*workspaceEntry),
		now:     time.Now,
	}
}

// For devolve o orquestrador da sessão, criando-o na primeira utilização.
func (w *Workspace) For(sessionID string) *Orchestrator {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[sessionID]
	if !ok {
		e = &workspaceEntry{orch: NewOrchestrator(w.repo, w.refs, w.logger)}
		w.entries[sessionID] = e
	}
	e.lastUsed = w.now()
	return e.orch
}

// Drop descarta o estado da sessão. É registado como gancho de fim de sessão.
func (w *Workspace) Drop(sessionID string) {
	w.mu.Lock()
	delete(w.entries, sessionID)
	w.mu.Unlock()
}

// Sweep remove orquestradores sem uso há mais de idle e devolve quantos removeu.
func (w *Workspace) Sweep(idle time.Duration) int {
	cutoff := w.now().Add(-idle)

	w.mu.Lock()
	defer w.mu.Unlock()
	removed := 0
	for id, e := range w.entries {
		if e.lastUsed.Before(cutoff) {
			delete(w.entries, id)
			removed++
		}
	}
	if removed > 0 {
		w.logger.Debug("Orquestradores inativos removidos.", map[string]interface{}{"count": removed})
	}
	return removed
}

// Len devolve o número de sessões com estado.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}
