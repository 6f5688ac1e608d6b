package session

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
)

// Registry is the keyed map of live sessions, one per board id, matching
// §2's "Multi-board registry: keyed map of sessions; EEPROM persistence
// per board" component. A Session is created on first reference and torn
// down only at process exit, per §3's lifecycle rule; the registry itself
// guards only the map, not the sessions it hands out (a single simulation
// task owns each Session afterward, per this core's concurrency model).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	eepromDir string
	seed      uint64

	// Debug gates verbose log.Printf diagnostics for sessions this
	// registry creates.
	Debug bool
}

// NewRegistry builds an empty registry. eepromDir is the directory EEPROM
// files are read from and written to, one file per board id; seed drives
// every session's deterministic peripheral noise generators.
func NewRegistry(eepromDir string, seed uint64) *Registry {
	return &Registry{sessions: make(map[string]*Session), eepromDir: eepromDir, seed: seed}
}

func (r *Registry) eepromPath(boardID string) string {
	if r.eepromDir == "" {
		return ""
	}
	return filepath.Join(r.eepromDir, boardID+".eeprom")
}

// Get returns the session for boardID, creating it (with the Uno/328P
// default profile and an EEPROM restore) on first reference.
func (r *Registry) Get(boardID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[boardID]; ok {
		return s
	}
	return r.create(boardID, mcuavr.DefaultBoardProfile())
}

// EnsureProfile returns the session for boardID, rebuilding it if it
// already exists under a different board profile (per §4.5's "if the
// requested board profile differs from the live one, rebuild McuState...
// and drop firmware" rule), or creating it fresh otherwise.
func (r *Registry) EnsureProfile(boardID string, profile mcuavr.BoardProfile) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[boardID]
	if !ok {
		return r.create(boardID, profile)
	}
	if s.Profile.ID != profile.ID {
		if r.Debug {
			log.Printf("registry: board %s switching profile %s -> %s, dropping firmware", boardID, s.Profile.ID, profile.ID)
		}
		s.Rebuild(profile, r.seed)
		s.EEPROMPath = r.eepromPath(boardID)
		if err := s.RestoreEEPROM(); err != nil && r.Debug {
			log.Printf("registry: eeprom restore for %s failed: %v", boardID, err)
		}
	}
	return s
}

func (r *Registry) create(boardID string, profile mcuavr.BoardProfile) *Session {
	s := New(boardID, profile, r.seed)
	s.Debug = r.Debug
	s.EEPROMPath = r.eepromPath(boardID)
	if err := s.RestoreEEPROM(); err != nil && r.Debug {
		log.Printf("registry: eeprom restore for %s failed: %v", boardID, err)
	}
	r.sessions[boardID] = s
	if r.Debug {
		log.Printf("registry: created session for board %s (%s)", boardID, profile.ID)
	}
	return s
}

// Remove tears down transient state for boardID on transport loss,
// preserving its McuState, per §5's cancellation rule. It does not delete
// the session from the registry: firmware stays resident in memory but no
// commands flow until the board id is referenced again.
func (r *Registry) Remove(boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[boardID]; ok {
		s.ResetTransient()
	}
}

// Len reports how many sessions are currently registered, for diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
