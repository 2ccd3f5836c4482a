// Package api holds the JSON shapes of the checkers server surface.
package api

import "errors"

var (
	ErrUnknownColor  = errors.New("unknown color")
	ErrUnknownStatus = errors.New("unknown game status")
	ErrBadBoard      = errors.New("malformed game board")
)

// Wire names of game statuses.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDraw       = "DRAW"
	StatusWon        = "WON"
)

// GameStatus is the answer to a status poll, as seen by one player.
type GameStatus struct {
	MyColor      string         `json:"my_color" yaml:"my_color"`
	MyName       string         `json:"my_name" yaml:"my_name"`
	OpponentName string         `json:"opponent_name" yaml:"opponent_name"`
	GameBoard    [][]int        `json:"game_board" yaml:"game_board"`
	Points       map[string]int `json:"points" yaml:"points"`
	Status       string         `json:"status" yaml:"status"`
	Winner       string         `json:"winner" yaml:"winner"`
	Options      [][]int        `json:"options" yaml:"options"`
	TurnOf       string         `json:"turn_of" yaml:"turn_of"`
}

// StatusRequest identifies a player in a game. It is the query of an HTTP
// status poll and the body of a NATS one.
type StatusRequest struct {
	GameID   int    `json:"game_id"`
	UserUUID string `json:"user_uuid"`
}

// StatusReply is the NATS answer to a StatusRequest. Error is set, and the
// status left empty, when the request failed.
type StatusReply struct {
	GameStatus
	Error string `json:"error,omitempty"`
}

// MoveRequest submits a move.
type MoveRequest struct {
	GameID   int    `json:"game_id"`
	UserUUID string `json:"user_uuid"`
	Move     []int  `json:"move"`
}

// MoveReply is the NATS answer to a MoveRequest. Over HTTP the status code
// carries the same information.
type MoveReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// GameSummary is one entry of the server's game list.
type GameSummary struct {
	GameID     int    `json:"game_id"`
	GameStatus string `json:"game_status"`
}

type GameList struct {
	Games []GameSummary `json:"games"`
}

// Game types accepted when creating a game.
const (
	GameTypePVP = "PVP"
	GameTypePVC = "PVC"
)
