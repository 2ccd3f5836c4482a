package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/domino14/kingme/api"
)

// ListGames returns every game the server knows about.
func (c *HTTPClient) ListGames(ctx context.Context) (*api.GameList, error) {
	rep, err := c.roundTrip(ctx, http.MethodGet, "/list", nil, nil, true)
	if err != nil {
		return nil, err
	}
	if !rep.ok() {
		return nil, rep.statusError()
	}
	gl := &api.GameList{}
	if err := json.Unmarshal(rep.body, gl); err != nil {
		return nil, err
	}
	return gl, nil
}

// CreateGame asks for a new game of the given type (api.GameTypePVP or
// api.GameTypePVC) and returns its id. The server answers with a redirect
// to the join page of the new game.
func (c *HTTPClient) CreateGame(ctx context.Context, gameType, name string) (int, error) {
	q := url.Values{}
	q.Set("type", gameType)
	if name != "" {
		q.Set("name", name)
	}
	rep, err := c.roundTrip(ctx, http.MethodGet, "/game", q, nil, false)
	if err != nil {
		return 0, err
	}
	if rep.code < 300 || rep.code >= 400 {
		return 0, rep.statusError()
	}
	return gameIDFromLocation(rep.header.Get("Location"))
}

func gameIDFromLocation(loc string) (int, error) {
	u, err := url.Parse(loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoGameID, err)
	}
	raw := u.Query().Get("game_id")
	if raw == "" {
		return 0, fmt.Errorf("%w: location %q", ErrNoGameID, loc)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoGameID, err)
	}
	return id, nil
}

// JoinGame registers token under name in game gameID. A full game answers
// 401 and a missing one 404; both come back as a *StatusError.
func (c *HTTPClient) JoinGame(ctx context.Context, gameID int, name, token string) error {
	q := playerQuery(gameID, token)
	q.Set("name", name)
	rep, err := c.roundTrip(ctx, http.MethodGet, "/game", q, nil, false)
	if err != nil {
		return err
	}
	if !rep.ok() {
		return rep.statusError()
	}
	return nil
}

// KillGame removes a game from the server.
func (c *HTTPClient) KillGame(ctx context.Context, gameID int) error {
	q := url.Values{}
	q.Set("game_id", strconv.Itoa(gameID))
	rep, err := c.roundTrip(ctx, http.MethodDelete, "/kill", q, nil, true)
	if err != nil {
		return err
	}
	if !rep.ok() {
		return rep.statusError()
	}
	return nil
}
