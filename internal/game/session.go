package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDecisionTimeout = 20 * time.Second
	DefaultContextWindow   = 12
)

var (
	// errStale marks a decision whose session was reset while it was in flight.
	errStale = errors.New("stale decision")
	// errAborted wraps the host context error when a run is cancelled.
	errAborted = errors.New("run aborted")
)

// released reports whether a decision error left the session unlocked.
func released(err error) bool {
	return errors.Is(err, errStale) || errors.Is(err, errAborted)
}

type Options struct {
	Provider        DecisionProvider
	Rand            *rand.Rand
	Names           []string
	DecisionTimeout time.Duration
	ContextWindow   int
}

// State is a consistent copy of everything a host may display.
type State struct {
	GameID  string     `json:"gameId"`
	Phase   Phase      `json:"phase"`
	Day     int        `json:"day"`
	Winner  Winner     `json:"winner"`
	Action  Action     `json:"action"`
	Players []Player   `json:"players"`
	Log     []LogEntry `json:"log"`
}

// Session is one game: roster, log and phase, driven by Step/Run. Decision
// calls are issued one at a time and the lock is not held while an agent
// decides. ResetGame may be called at any time; whatever the in-flight agent
// returns afterwards is dropped.
type Session struct {
	mu sync.Mutex

	provider DecisionProvider
	rng      *rand.Rand
	names    []string
	timeout  time.Duration
	window   int

	gameID string
	roster []Player
	agents map[int]Agent
	phase  Phase
	day    int
	winner Winner
	log    Log
	action Action

	gen       uint64
	genCtx    context.Context
	genCancel context.CancelFunc
	// stepping is set while a Step of the current generation runs.
	stepping bool

	pending     []LogEntry
	phaseDirty  bool
	actionDirty bool

	// Hooks run after the session lock is released, in the order the
	// changes happened. Set them before the first Step.
	OnLog    func(LogEntry)
	OnPhase  func(Phase)
	OnAction func(Action)
}

func NewSession(opts Options) *Session {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.DecisionTimeout <= 0 {
		opts.DecisionTimeout = DefaultDecisionTimeout
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		provider:  opts.Provider,
		rng:       opts.Rand,
		names:     opts.Names,
		timeout:   opts.DecisionTimeout,
		window:    opts.ContextWindow,
		phase:     PhaseSetup,
		day:       1,
		genCtx:    ctx,
		genCancel: cancel,
	}
}

// SetupGame assigns roles, binds one agent per player and moves to Night.
func (s *Session) SetupGame(cfg GameConfig) error {
	s.mu.Lock()
	if s.phase != PhaseSetup {
		s.mu.Unlock()
		return ErrInvalidPhase
	}
	if s.provider == nil {
		s.mu.Unlock()
		return errors.New("game: no decision provider")
	}
	cfg = cfg.Normalize()
	roster, err := AssignRoles(cfg, s.names, s.rng)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.bumpGeneration()
	s.gameID = uuid.NewString()
	s.roster = roster
	s.agents = make(map[int]Agent, len(roster))
	for _, p := range roster {
		s.agents[p.ID] = s.provider.Bind(p)
	}
	s.log = Log{}
	s.day = 1
	s.winner = WinnerNone
	s.setAction(Action{})
	s.appendLog(LogEntry{Key: KeyNewGame})
	s.appendLog(LogEntry{Key: KeyGameSetup, Params: map[string]any{
		"totalPlayers":    cfg.Size(),
		"eliminatorCount": cfg.EliminatorCount,
		"bystanderCount":  cfg.BystanderCount,
	}})
	s.setPhase(PhaseNight)
	log.Info().Str("game", s.gameID).Int("players", len(roster)).Msg("game setup")
	s.flush()
	return nil
}

// ResetGame abandons the current game and returns to Setup.
func (s *Session) ResetGame() {
	s.mu.Lock()
	s.resetLocked()
	s.flush()
}

func (s *Session) resetLocked() {
	s.bumpGeneration()
	s.gameID = ""
	s.roster = nil
	s.agents = nil
	s.log = Log{}
	s.day = 1
	s.winner = WinnerNone
	s.setAction(Action{})
	s.setPhase(PhaseSetup)
	s.stepping = false
}

func (s *Session) bumpGeneration() {
	s.gen++
	s.genCancel()
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
}

// Run steps the game until it ends, is reset, or ctx is cancelled. A
// cancelled ctx resets the session.
func (s *Session) Run(ctx context.Context) error {
	for {
		more, err := s.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Step executes the current phase once and reports whether another phase
// follows automatically. A Step while another one runs fails with ErrBusy.
func (s *Session) Step(ctx context.Context) (bool, error) {
	s.mu.Lock()
	gen := s.gen
	phase := s.phase
	if phase == PhaseSetup || phase == PhaseGameOver {
		s.mu.Unlock()
		return false, nil
	}
	if s.stepping {
		s.mu.Unlock()
		return false, ErrBusy
	}
	s.stepping = true
	defer func() {
		s.mu.Lock()
		// a reset hands the session to the next game's driver
		if s.gen == gen {
			s.stepping = false
		}
		s.mu.Unlock()
	}()
	if s.resolveWinner() {
		s.flush()
		return false, nil
	}
	s.flush()

	var err error
	switch phase {
	case PhaseNight:
		err = s.runNight(ctx, gen)
	case PhaseDayDiscussion:
		err = s.runDiscussion(ctx, gen)
	case PhaseDayVote:
		err = s.runVote(ctx, gen)
	}
	if errors.Is(err, errStale) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false, nil
	}
	return s.phase != PhaseGameOver && s.phase != PhaseSetup, nil
}

func (s *Session) runNight(ctx context.Context, gen uint64) error {
	if !s.lockGen(gen) {
		return errStale
	}
	s.appendLog(LogEntry{Key: KeyNightBegins, Params: map[string]any{"day": s.day}})
	bloc, hasBloc := s.firstLiving(func(p Player) bool { return p.IsEliminator() })
	seeker, hasSeeker := s.firstLiving(func(p Player) bool { return p.Role == RoleSeeker })
	s.flush()

	kill := NoTarget
	if hasBloc {
		target, err := s.decideTarget(ctx, gen, bloc, ActionEliminatorsChoosing, "night",
			func(p Player) bool { return !p.IsEliminator() }, false,
			func(a Agent, ctx context.Context, req Request) (int, error) { return a.DecideNightAction(ctx, req) })
		if err != nil {
			return err
		}
		kill = target
		s.appendLog(LogEntry{Key: KeyEliminatorsChoose})
		s.flush()
	} else {
		if !s.lockGen(gen) {
			return errStale
		}
		s.appendLog(LogEntry{Key: KeyEliminatorsNoTarget})
		s.flush()
	}

	if hasSeeker {
		target, err := s.decideTarget(ctx, gen, seeker, ActionSeekerSeeking, "check",
			func(p Player) bool { return p.ID != seeker.ID }, false,
			func(a Agent, ctx context.Context, req Request) (int, error) { return a.DecideNightAction(ctx, req) })
		if err != nil {
			return err
		}
		if target != NoTarget {
			t := s.roster[target]
			s.appendLog(LogEntry{Key: KeySeekerChecks, Params: map[string]any{
				"seekerName": seeker.Name,
				"targetId":   t.ID,
				"targetName": t.Name,
				"targetRole": string(t.Role),
			}})
		}
		s.flush()
	}

	if !s.lockGen(gen) {
		return errStale
	}
	if kill != NoTarget && s.roster[kill].Alive {
		s.roster[kill].Alive = false
		s.appendLog(LogEntry{Key: KeyDawnKill, Params: map[string]any{"playerId": kill, "playerName": s.roster[kill].Name}})
	} else {
		s.appendLog(LogEntry{Key: KeyDawnNoKill})
	}
	if !s.resolveWinner() {
		s.setPhase(PhaseDayDiscussion)
	}
	s.flush()
	return nil
}

func (s *Session) runDiscussion(ctx context.Context, gen uint64) error {
	if !s.lockGen(gen) {
		return errStale
	}
	s.appendLog(LogEntry{Key: KeyDayDiscussion, Params: map[string]any{"day": s.day}})
	speakers := s.living()
	s.rng.Shuffle(len(speakers), func(i, j int) { speakers[i], speakers[j] = speakers[j], speakers[i] })
	s.flush()

	for _, p := range speakers {
		text, err := decide(s, ctx, gen, p, Action{Kind: ActionPlayerSpeaking, PlayerName: p.Name},
			func(a Agent, ctx context.Context, req Request) (string, error) { return a.DecideStatement(ctx, req) })
		if released(err) {
			return err
		}
		if err != nil {
			log.Warn().Err(err).Str("game", s.gameID).Str("player", p.Name).Str("decision", "statement").Msg("agent failed, treating as pass")
			text = ""
		}
		speaker := &Speaker{Name: p.Name, Role: p.Role}
		if strings.TrimSpace(text) == "" {
			s.appendLog(LogEntry{Key: KeyPlayerPasses, Speaker: speaker})
		} else {
			s.appendLog(LogEntry{Key: KeyPlayerSpeech, RawSpeech: text, Speaker: speaker})
		}
		s.flush()
	}

	if !s.lockGen(gen) {
		return errStale
	}
	if !s.resolveWinner() {
		s.setPhase(PhaseDayVote)
	}
	s.flush()
	return nil
}

func (s *Session) runVote(ctx context.Context, gen uint64) error {
	if !s.lockGen(gen) {
		return errStale
	}
	s.appendLog(LogEntry{Key: KeyDayVote, Params: map[string]any{"day": s.day}})
	voters := s.living()
	s.flush()

	votes := make(map[int]int)
	for _, voter := range voters {
		self := voter.ID
		target, err := s.decideTarget(ctx, gen, voter, ActionPlayerVoting, "vote",
			func(p Player) bool { return p.ID != self }, true,
			func(a Agent, ctx context.Context, req Request) (int, error) { return a.DecideVote(ctx, req) })
		if err != nil {
			return err
		}
		if target == NoTarget {
			s.appendLog(LogEntry{Key: KeyPlayerAbstains, Params: map[string]any{"voterName": voter.Name}})
		} else {
			votes[target]++
			s.appendLog(LogEntry{Key: KeyPlayerVotes, Params: map[string]any{
				"voterName":  voter.Name,
				"targetId":   target,
				"targetName": s.roster[target].Name,
			}})
		}
		s.flush()
	}

	if !s.lockGen(gen) {
		return errStale
	}
	target, count, tie := TallyVotes(votes)
	if tie {
		s.appendLog(LogEntry{Key: KeyVoteTie, Params: map[string]any{"count": count}})
	} else {
		s.roster[target].Alive = false
		s.appendLog(LogEntry{Key: KeyVoteResult, Params: map[string]any{
			"playerId":   target,
			"playerName": s.roster[target].Name,
			"count":      count,
		}})
	}
	if !s.resolveWinner() {
		s.day++
		s.setPhase(PhaseNight)
	}
	s.flush()
	return nil
}

// decideTarget asks self's agent for a target among living players accepted
// by legal. Errors and illegal answers become a random legal target; NoTarget
// is honoured only when abstain is true. On success s.mu is held.
func (s *Session) decideTarget(ctx context.Context, gen uint64, self Player, kind ActionKind, decision string, legal func(Player) bool, abstain bool, call func(Agent, context.Context, Request) (int, error)) (int, error) {
	target, err := decide(s, ctx, gen, self, Action{Kind: kind, PlayerName: self.Name}, call)
	if released(err) {
		return NoTarget, err
	}

	var candidates []int
	for _, p := range s.roster {
		if p.Alive && legal(p) {
			candidates = append(candidates, p.ID)
		}
	}
	if err == nil {
		if target == NoTarget && abstain {
			return NoTarget, nil
		}
		for _, id := range candidates {
			if id == target {
				return target, nil
			}
		}
	}

	fallback := NoTarget
	if len(candidates) > 0 {
		fallback = candidates[s.rng.Intn(len(candidates))]
	}
	ev := log.Warn().Str("game", s.gameID).Str("player", self.Name).Str("decision", decision).Int("fallback", fallback)
	if err != nil {
		ev = ev.Err(err)
	} else {
		ev = ev.Int("target", target)
	}
	ev.Msg("agent choice replaced")
	return fallback, nil
}

// decide runs one agent call with the lock released. It returns with s.mu
// held unless released(err); a cancelled ctx resets the session.
func decide[T any](s *Session, ctx context.Context, gen uint64, self Player, action Action, call func(Agent, context.Context, Request) (T, error)) (T, error) {
	var zero T
	if !s.lockGen(gen) {
		return zero, errStale
	}
	agent := s.agents[self.ID]
	if agent == nil {
		return zero, fmt.Errorf("no agent bound for player %d", self.ID)
	}
	req := Request{
		Self:      s.roster[self.ID],
		Roster:    s.visibleRoster(self),
		RecentLog: s.log.Recent(self.Role, s.window),
		Day:       s.day,
	}
	genCtx := s.genCtx
	s.setAction(action)
	s.flush()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	stop := context.AfterFunc(genCtx, cancel)
	v, err := call(agent, callCtx, req)
	stop()
	cancel()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return zero, errStale
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Info().Str("game", s.gameID).Err(ctxErr).Msg("run cancelled, resetting")
		s.resetLocked()
		s.flush()
		return zero, fmt.Errorf("%w: %w", errAborted, ctxErr)
	}
	s.setAction(Action{})
	return v, err
}

func (s *Session) lockGen(gen uint64) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	return true
}

// resolveWinner ends the game if the roster has a winner. Caller holds s.mu.
func (s *Session) resolveWinner() bool {
	w := Evaluate(s.roster)
	if w == WinnerNone {
		return false
	}
	s.winner = w
	if w == WinnerVillage {
		s.appendLog(LogEntry{Key: KeyEliminatorsPurged})
	} else {
		s.appendLog(LogEntry{Key: KeyEliminatorsOutnumber})
	}
	s.setAction(Action{})
	s.setPhase(PhaseGameOver)
	log.Info().Str("game", s.gameID).Str("winner", string(w)).Int("day", s.day).Msg("game over")
	return true
}

func (s *Session) firstLiving(match func(Player) bool) (Player, bool) {
	for _, p := range s.roster {
		if p.Alive && match(p) {
			return p, true
		}
	}
	return Player{}, false
}

func (s *Session) living() []Player {
	out := make([]Player, 0, len(s.roster))
	for _, p := range s.roster {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// visibleRoster hides every other player's role, except that eliminators
// see each other.
func (s *Session) visibleRoster(viewer Player) []Player {
	out := s.rosterCopy()
	for i := range out {
		if out[i].ID == viewer.ID || viewer.IsEliminator() && out[i].IsEliminator() {
			continue
		}
		out[i].Role = ""
		out[i].Strategy = ""
	}
	return out
}

func (s *Session) rosterCopy() []Player {
	out := make([]Player, len(s.roster))
	copy(out, s.roster)
	return out
}

func (s *Session) appendLog(e LogEntry) {
	s.log.Append(e)
	s.pending = append(s.pending, e)
}

func (s *Session) setPhase(p Phase) {
	if s.phase != p {
		log.Info().Str("game", s.gameID).Str("from", string(s.phase)).Str("to", string(p)).Int("day", s.day).Msg("phase transition")
	}
	s.phase = p
	s.phaseDirty = true
}

func (s *Session) setAction(a Action) {
	if s.action != a {
		s.action = a
		s.actionDirty = true
	}
}

// flush releases s.mu and then runs the hooks for changes made under it.
func (s *Session) flush() {
	entries := s.pending
	s.pending = nil
	phase, phaseDirty := s.phase, s.phaseDirty
	action, actionDirty := s.action, s.actionDirty
	s.phaseDirty, s.actionDirty = false, false
	onLog, onPhase, onAction := s.OnLog, s.OnPhase, s.OnAction
	s.mu.Unlock()

	if onLog != nil {
		for _, e := range entries {
			onLog(e)
		}
	}
	if phaseDirty && onPhase != nil {
		onPhase(phase)
	}
	if actionDirty && onAction != nil {
		onAction(action)
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Day() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

func (s *Session) Winner() Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// Action reports what the session is waiting on, for display only.
func (s *Session) Action() Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

func (s *Session) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

func (s *Session) Roster() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterCopy()
}

func (s *Session) Log() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Snapshot()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		GameID:  s.gameID,
		Phase:   s.phase,
		Day:     s.day,
		Winner:  s.winner,
		Action:  s.action,
		Players: s.rosterCopy(),
		Log:     s.log.Snapshot(),
	}
}
