package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrNotHost              = errors.New("not host")
	ErrInvalidPhase         = errors.New("invalid phase for action")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInsufficientNamePool = errors.New("insufficient name pool")
	ErrBusy                 = errors.New("session is already stepping")
)

// Room is a hosted game session. Rooms share nothing with each other.
type Room struct {
	Code      string
	CreatedAt time.Time
	HostToken string

	*Session

	mu      sync.Mutex
	running bool
	// OnGameOver runs once per finished game, from the run goroutine.
	OnGameOver func(*Room)
}

type RoomManager struct {
	mu       sync.RWMutex
	sessions map[string]*Room
	active   string // most recently created session code
	single   bool
	rng      *rand.Rand
}

// NewRoomManager returns an empty manager. In single-session mode creating a
// room evicts and resets the previous one.
func NewRoomManager(singleSession bool) *RoomManager {
	return &RoomManager{
		sessions: make(map[string]*Room),
		single:   singleSession,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (rm *RoomManager) CreateSession(opts Options) (code string, hostToken string, err error) {
	rm.mu.Lock()
	var evicted []*Room
	defer func() {
		rm.mu.Unlock()
		for _, r := range evicted {
			log.Info().Str("code", r.Code).Msg("room evicted")
			r.ResetGame()
		}
	}()

	if rm.single {
		for c, r := range rm.sessions {
			evicted = append(evicted, r)
			delete(rm.sessions, c)
		}
		rm.active = ""
	}

	code = rm.randomCode(5)
	for rm.sessions[code] != nil {
		code = rm.randomCode(5)
	}
	hostToken = uuid.NewString()
	rm.sessions[code] = &Room{
		Code:      code,
		CreatedAt: time.Now().UTC(),
		HostToken: hostToken,
		Session:   NewSession(opts),
	}
	rm.active = code
	return code, hostToken, nil
}

func (rm *RoomManager) Get(code string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r := rm.sessions[code]
	if r == nil {
		return nil, ErrSessionNotFound
	}
	return r, nil
}

func (rm *RoomManager) Active() (string, *Room) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	if rm.active == "" {
		return "", nil
	}
	return rm.active, rm.sessions[rm.active]
}

// Delete drops a room and resets its game.
func (rm *RoomManager) Delete(code string) {
	rm.mu.Lock()
	r := rm.sessions[code]
	delete(rm.sessions, code)
	if rm.active == code {
		rm.active = ""
	}
	rm.mu.Unlock()
	if r != nil {
		r.ResetGame()
	}
}

// Setup starts a new game in the room and runs it in the background.
func (r *Room) Setup(hostToken string, cfg GameConfig) error {
	if hostToken != r.HostToken {
		return ErrNotHost
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := r.SetupGame(cfg); err != nil {
		return err
	}
	r.start()
	return nil
}

// Reset abandons the room's current game.
func (r *Room) Reset(hostToken string) error {
	if hostToken != r.HostToken {
		return ErrNotHost
	}
	r.ResetGame()
	return nil
}

func (r *Room) start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	go func() {
		for {
			err := r.Run(context.Background())
			if err != nil {
				log.Error().Err(err).Str("code", r.Code).Msg("game run stopped")
			}
			if r.Phase() == PhaseGameOver && r.OnGameOver != nil {
				r.OnGameOver(r)
			}
			r.mu.Lock()
			// A setup that raced with the end of the previous run leaves a
			// fresh game waiting in Night.
			if p := r.Phase(); p != PhaseSetup && p != PhaseGameOver {
				r.mu.Unlock()
				continue
			}
			r.running = false
			r.mu.Unlock()
			return
		}
	}()
}

func (rm *RoomManager) randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rm.rng.Intn(len(letters))]
	}
	return string(b)
}
