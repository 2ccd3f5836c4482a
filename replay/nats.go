package replay

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/api"
)

// ServeNATS answers status and move requests on <prefix>.status and
// <prefix>.move. The subscriptions end when nc is drained or closed.
func (s *Server) ServeNATS(nc *nats.Conn, prefix string) error {
	if _, err := nc.Subscribe(prefix+".status", func(m *nats.Msg) {
		log.Debug().Msgf("RECV: %d bytes on %s", len(m.Data), m.Subject)
		respond(m, s.natsStatus(m.Data))
	}); err != nil {
		return err
	}
	if _, err := nc.Subscribe(prefix+".move", func(m *nats.Msg) {
		log.Debug().Msgf("RECV: %d bytes on %s", len(m.Data), m.Subject)
		respond(m, s.natsMove(m.Data))
	}); err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Msgf("Listening on [%s.*]", prefix)
	return nil
}

func respond(m *nats.Msg, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		// Should never happen, but the requester still needs an answer.
		data = []byte(`{"error":"` + err.Error() + `"}`)
	}
	if err := m.Respond(data); err != nil {
		log.Err(err).Msg("nats-respond-failed")
	}
}

func (s *Server) natsStatus(data []byte) *api.StatusReply {
	var req api.StatusRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &api.StatusReply{Error: ErrBadRequest.Error()}
	}
	gs, err := s.Status(req.GameID, req.UserUUID)
	if err != nil {
		return &api.StatusReply{Error: err.Error()}
	}
	return &api.StatusReply{GameStatus: *gs}
}

func (s *Server) natsMove(data []byte) *api.MoveReply {
	var req api.MoveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &api.MoveReply{Error: ErrBadRequest.Error()}
	}
	if err := s.Move(req); err != nil {
		return &api.MoveReply{Error: err.Error()}
	}
	return &api.MoveReply{OK: true}
}
