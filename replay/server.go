package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
)

var (
	ErrGameNotFound = errors.New("game does not exist")
	ErrUnauthorized = errors.New("unauthorized")
	ErrIllegalMove  = errors.New("invalid movement or not your turn")
	ErrBadRequest   = errors.New("bad request")
)

type table struct {
	script *Script
	frame  int
	// computer is the color the server plays itself, or NoColor.
	computer board.Color
}

func (t *table) current() *Frame {
	return &t.script.Frames[t.frame]
}

// Server replays scripted games. The script it is built with is both the
// first game and the template of games created later.
type Server struct {
	mu       sync.Mutex
	template *Script
	tables   map[int]*table
	nextID   int

	router chi.Router
}

func NewServer(s *Script) *Server {
	srv := &Server{
		template: s,
		tables:   map[int]*table{},
		nextID:   s.GameID + 1,
	}
	srv.tables[s.GameID] = &table{script: s.clone(s.GameID, false)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/game_status", srv.handleStatus)
	r.Post("/move", srv.handleMove)
	r.Get("/game", srv.handleGame)
	r.Get("/list", srv.handleList)
	r.Delete("/kill", srv.handleKill)
	srv.router = r
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Str("req-id", middleware.GetReqID(r.Context())).
			Int("code", ww.Status()).Dur("took", time.Since(start)).
			Msg("request")
	})
}

// Status returns the game as the holder of token sees it.
func (s *Server) Status(gameID int, token string) (*api.GameStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	me, ok := t.script.seat(token)
	if !ok {
		return nil, ErrUnauthorized
	}
	f := t.current()
	points := map[string]int{board.Red.String(): 0, board.Green.String(): 0}
	for k, v := range f.Points {
		points[k] = v
	}
	gs := &api.GameStatus{
		MyColor:      me.Color,
		MyName:       me.Name,
		OpponentName: t.script.opponent(me).Name,
		GameBoard:    f.snap.Columns(),
		Points:       points,
		Status:       f.Status,
		Winner:       f.Winner,
		Options:      [][]int{},
		TurnOf:       f.TurnOf,
	}
	// Only the player on turn hears about the legal moves.
	if f.TurnOf == me.Color {
		for _, o := range f.Options {
			gs.Options = append(gs.Options, append([]int(nil), o...))
		}
	}
	return gs, nil
}

// Move plays req if it is one of the current options of the sender.
func (s *Server) Move(req api.MoveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[req.GameID]
	if !ok {
		return ErrGameNotFound
	}
	me, ok := t.script.seat(req.UserUUID)
	if !ok {
		return ErrUnauthorized
	}
	f := t.current()
	if f.Status != api.StatusInProgress || f.TurnOf != me.Color ||
		t.script.opponent(me).Token == "" || !f.legal(req.Move) {
		return ErrIllegalMove
	}
	s.advance(t, req.Move)
	log.Info().Int("game-id", req.GameID).Str("color", me.Color).
		Ints("seq", req.Move).Int("frame", t.frame).Msg("move-played")
	return nil
}

// advance plays m, then any moves that fall to the computer.
func (s *Server) advance(t *table, m []int) {
	t.frame = t.script.after(t.frame, m)
	for range t.script.Frames {
		f := t.current()
		if t.computer == board.NoColor || f.Status != api.StatusInProgress ||
			f.TurnOf != t.computer.String() || len(f.Options) == 0 {
			return
		}
		reply := f.Options[0]
		if len(f.Next) > 0 {
			reply = f.Next[0].Move
		}
		prev := t.frame
		t.frame = t.script.after(t.frame, reply)
		log.Debug().Int("game-id", t.script.GameID).Ints("seq", reply).Msg("computer-move")
		if t.frame == prev {
			return
		}
	}
}

// Create starts a new game from the template with its seats open. A
// PVC game seats the computer as GREEN.
func (s *Server) Create(gameType string) (int, error) {
	if gameType != api.GameTypePVP && gameType != api.GameTypePVC {
		return 0, fmt.Errorf("%w: game type %q", ErrBadRequest, gameType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	t := &table{script: s.template.clone(id, true)}
	if gameType == api.GameTypePVC {
		t.computer = board.Green
		for i := range t.script.Players {
			if t.script.Players[i].Color == board.Green.String() {
				t.script.Players[i].Name = "Computer"
				t.script.Players[i].Token = uuid.NewString()
			}
		}
	}
	s.tables[id] = t
	log.Info().Int("game-id", id).Str("type", gameType).Msg("game-created")
	return id, nil
}

// Join seats token in the first open seat. Joining a game one already
// plays in succeeds.
func (s *Server) Join(gameID int, name, token string) error {
	if name == "" || token == "" {
		return ErrBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if _, ok := t.script.seat(token); ok {
		return nil
	}
	for i := range t.script.Players {
		p := &t.script.Players[i]
		if p.Token == "" {
			p.Token = token
			p.Name = name
			log.Info().Int("game-id", gameID).Str("color", p.Color).Str("name", name).Msg("player-joined")
			return nil
		}
	}
	return ErrUnauthorized
}

func (s *Server) Kill(gameID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[gameID]; !ok {
		return ErrGameNotFound
	}
	delete(s.tables, gameID)
	return nil
}

// List returns every game ordered by id.
func (s *Server) List() *api.GameList {
	s.mu.Lock()
	defer s.mu.Unlock()
	gl := &api.GameList{Games: []api.GameSummary{}}
	for id, t := range s.tables {
		gl.Games = append(gl.Games, api.GameSummary{GameID: id, GameStatus: t.current().Status})
	}
	sort.Slice(gl.Games, func(i, j int) bool { return gl.Games[i].GameID < gl.Games[j].GameID })
	return gl
}

func httpCode(err error) int {
	switch {
	case errors.Is(err, ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrIllegalMove), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), httpCode(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("game_id"))
	if err != nil || q.Get("user_uuid") == "" {
		writeError(w, ErrBadRequest)
		return
	}
	gs, err := s.Status(id, q.Get("user_uuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req api.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserUUID == "" {
		writeError(w, ErrBadRequest)
		return
	}
	if err := s.Move(req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Move performed"))
}

// handleGame creates a game when no game_id is given, hands out a token
// when none is given, and otherwise joins.
func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = fmt.Sprintf("Noname%d", 111+frand.Intn(889))
	}
	if !q.Has("game_id") {
		id, err := s.Create(q.Get("type"))
		if err != nil {
			writeError(w, err)
			return
		}
		http.Redirect(w, r, "/game?"+url.Values{
			"game_id": {strconv.Itoa(id)},
			"name":    {name},
		}.Encode(), http.StatusFound)
		return
	}
	id, err := strconv.Atoi(q.Get("game_id"))
	if err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	token := q.Get("user_uuid")
	if token == "" {
		http.Redirect(w, r, "/game?"+url.Values{
			"game_id":   {strconv.Itoa(id)},
			"name":      {name},
			"user_uuid": {uuid.NewString()},
		}.Encode(), http.StatusFound)
		return
	}
	if err := s.Join(id, name, token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Joined"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.List())
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("game_id"))
	if err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	if err := s.Kill(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Game killed"))
}
