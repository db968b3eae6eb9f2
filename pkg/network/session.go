package network

import (
	"context"
	"errors"
	"strings"

	"github.com/cbodonnell/wordchain/pkg/game"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
)

// Session is the server side of one client: it dispatches the client's lines
// and cleans up after it.
type Session struct {
	manager    *NetworkManager
	conn       *Conn
	playerID   uint32
	registered bool
	name       string
}

func newSession(manager *NetworkManager, player game.Player, conn *Conn) *Session {
	return &Session{
		manager:  manager,
		conn:     conn,
		playerID: player.ID,
	}
}

// handleLine processes one client line and reports whether the session continues.
func (s *Session) handleLine(ctx context.Context, line string) bool {
	cmd := messages.ParseCommand(line)
	log.Trace("Player %d sent %s command", s.playerID, cmd.Type)

	if !s.registered {
		if cmd.Type != messages.CommandTypeRegister {
			return true
		}
		return s.register(cmd)
	}

	switch cmd.Type {
	case messages.CommandTypeRegister:
		s.reply(messages.Error("Already registered."))
	case messages.CommandTypeStart:
		s.start(ctx)
	case messages.CommandTypeChat:
		if strings.TrimSpace(cmd.Text) == "" {
			return true
		}
		s.manager.broadcaster.Broadcast(messages.Chat(s.name, cmd.Text))
	case messages.CommandTypeSubmission:
		s.submit(line)
	}
	return true
}

func (s *Session) register(cmd messages.Command) bool {
	name, avatar, err := cmd.Registration()
	if err != nil {
		s.reply(messages.Error("Registration must include name and avatar filename."))
		log.Debug("Player %d sent malformed registration %q", s.playerID, cmd.Raw)
		return false
	}

	player, err := s.manager.registry.Register(s.playerID, name, avatar)
	switch {
	case errors.Is(err, game.ErrNameTaken):
		s.reply(messages.Error("Name %s is already taken.", name))
		return true
	case err != nil:
		log.Error("Failed to register player %d: %v", s.playerID, err)
		return false
	}

	s.registered = true
	s.name = player.Name
	log.Info("Player %d registered as %s with avatar %s", player.ID, player.Name, player.Avatar)
	s.manager.broadcaster.Broadcast(messages.Info("Player %s joined with avatar %s", player.Name, player.Avatar))
	if player.IsHost {
		s.reply(messages.Info("You are the host."))
	}
	return true
}

func (s *Session) start(ctx context.Context) {
	err := s.manager.registry.TryStart(s.playerID)
	switch {
	case errors.Is(err, game.ErrNotHost):
		s.reply(messages.Error("Only the host can start the game."))
	case errors.Is(err, game.ErrMatchActive):
		s.reply(messages.Error("Game already in progress."))
	case errors.Is(err, game.ErrNotEnoughPlayers):
		s.reply(messages.Error("Need at least 2 players."))
	case err != nil:
		log.Error("Failed to start match for player %d: %v", s.playerID, err)
	default:
		log.Info("Player %s started a match", s.name)
		go s.manager.runMatch(ctx)
	}
}

func (s *Session) submit(line string) {
	submission, err := messages.DecodeTurnSubmission(line)
	if err != nil {
		log.Debug("Dropping submission from %s: %v", s.name, err)
		return
	}
	if err := s.manager.registry.Submit(s.playerID, submission); err != nil {
		log.Warn("Dropping submission from %s: %v", s.name, err)
	}
}

func (s *Session) reply(line string) {
	s.manager.broadcaster.SendTo(s.conn, line)
}

// terminate removes the player, closes the connection and tells everyone else.
func (s *Session) terminate() {
	player, ok := s.manager.registry.Remove(s.playerID)
	if err := s.conn.Close(); err != nil {
		log.Debug("Failed to close connection for player %d: %v", s.playerID, err)
	}
	if !ok {
		return
	}

	log.Info("Player %d (%s) disconnected", player.ID, player.Name)
	if !player.Ready {
		return
	}
	s.manager.broadcaster.Broadcast(messages.Info("Player %s disconnected", player.Name))
	s.manager.broadcaster.Broadcast(messages.Scores(s.manager.registry.Scores()))
}
